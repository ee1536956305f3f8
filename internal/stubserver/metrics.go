package stubserver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	likesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibio_likes_total",
		Help: "Like edge mutations by action.",
	}, []string{"action"})

	commentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibio_comments_total",
		Help: "Comments created.",
	})

	followsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vibio_follows_total",
		Help: "Follow edge mutations by action.",
	}, []string{"action"})

	postsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vibio_posts_created_total",
		Help: "Posts created.",
	})
)
