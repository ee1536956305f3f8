// Package feed owns the client's view of the feed: posts, like counts, the
// current user's like set and the comment collection. All reconciliation of
// server responses and optimistic local mutations funnels through the
// Synchronizer so overlapping fetches cannot corrupt state.
package feed

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"vibio/internal/models"
	"vibio/internal/observability"
)

// API is the slice of the gateway the synchronizer fetches from.
type API interface {
	ShowPosts(ctx context.Context) ([]models.Post, error)
	ShowComments(ctx context.Context) ([]models.Comment, error)
	GetLikes(ctx context.Context) ([]models.Like, error)
}

// CurrentUser yields the id the like set is scoped to.
type CurrentUser interface {
	CurrentUserID() uint
}

// Synchronizer holds the reconciled feed state. A fetch failure leaves the
// previous state untouched; a fetch success destructively replaces the
// corresponding resource. Safe for concurrent use.
type Synchronizer struct {
	api     API
	current CurrentUser

	mu         sync.RWMutex
	rng        *rand.Rand
	posts      []models.Post
	likeCounts map[uint]int
	liked      map[uint]struct{}
	comments   []models.Comment
}

// NewSynchronizer creates an empty Synchronizer.
func NewSynchronizer(api API, current CurrentUser) *Synchronizer {
	return &Synchronizer{
		api:        api,
		current:    current,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		likeCounts: map[uint]int{},
		liked:      map[uint]struct{}{},
	}
}

// LoadFeed fetches the post collection, recomputes the like-count map from
// each post's embedded like edges, and stores the result in a randomized
// order. The shuffle reproduces the upstream client's behavior; it is
// deliberately not a ranking.
func (s *Synchronizer) LoadFeed(ctx context.Context) error {
	ctx, span := observability.TraceSyncOperation(ctx, "load_feed")
	defer span.End()
	observability.LogSyncStart(ctx, "load_feed", nil)

	posts, err := s.api.ShowPosts(ctx)
	if err != nil {
		observability.LogSyncError(ctx, "load_feed", err, nil)
		span.SetError(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(len(posts), func(i, j int) {
		posts[i], posts[j] = posts[j], posts[i]
	})
	s.posts = posts
	s.likeCounts = make(map[uint]int, len(posts))
	for _, p := range posts {
		s.likeCounts[p.ID] = len(p.Likes)
	}
	observability.LogSyncEnd(ctx, "load_feed", map[string]interface{}{"posts": len(posts)})
	return nil
}

// LoadLikesForCurrentUser fetches the global like-edge list, filters it to
// the current user, and destructively replaces the liked-by-me set. An
// optimistic like whose request is still in flight is overwritten here and
// restored by the reconciliation that follows the request.
func (s *Synchronizer) LoadLikesForCurrentUser(ctx context.Context) error {
	ctx, span := observability.TraceSyncOperation(ctx, "load_likes")
	defer span.End()

	edges, err := s.api.GetLikes(ctx)
	if err != nil {
		observability.LogSyncError(ctx, "load_likes", err, nil)
		span.SetError(err)
		return err
	}

	userID := s.current.CurrentUserID()
	liked := map[uint]struct{}{}
	for _, e := range edges {
		if e.UserID == userID {
			liked[e.PostID] = struct{}{}
		}
	}

	s.mu.Lock()
	s.liked = liked
	s.mu.Unlock()
	observability.LogSyncEnd(ctx, "load_likes", map[string]interface{}{"liked": len(liked)})
	return nil
}

// LoadComments fetches the entire comment collection and stores it
// wholesale; per-post views are derived at read time.
func (s *Synchronizer) LoadComments(ctx context.Context) error {
	ctx, span := observability.TraceSyncOperation(ctx, "load_comments")
	defer span.End()

	comments, err := s.api.ShowComments(ctx)
	if err != nil {
		observability.LogSyncError(ctx, "load_comments", err, nil)
		span.SetError(err)
		return err
	}

	s.mu.Lock()
	s.comments = comments
	s.mu.Unlock()
	observability.LogSyncEnd(ctx, "load_comments", map[string]interface{}{"comments": len(comments)})
	return nil
}

// RefreshAll runs the three loads concurrently and returns once all of them
// settle. A failure in one does not stop the others from updating state;
// the joined error reports whichever failed. The three resources are
// fetched independently, so the refreshed view is consistent only up to the
// slowest fetch.
func (s *Synchronizer) RefreshAll(ctx context.Context) error {
	ctx, span := observability.TraceSyncOperation(ctx, "refresh_all")
	defer span.End()
	observability.LogSyncStart(ctx, "refresh_all", nil)

	var wg sync.WaitGroup
	errs := make([]error, 3)
	loads := []func(context.Context) error{
		s.LoadFeed,
		s.LoadLikesForCurrentUser,
		s.LoadComments,
	}
	for i, load := range loads {
		wg.Add(1)
		go func(i int, load func(context.Context) error) {
			defer wg.Done()
			errs[i] = load(ctx)
		}(i, load)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		span.SetError(err)
		return err
	}
	return nil
}

// Posts returns a copy of the post collection in display order.
func (s *Synchronizer) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Post, len(s.posts))
	copy(out, s.posts)
	return out
}

// LikeCount returns the displayed like count for a post, never negative.
func (s *Synchronizer) LikeCount(postID uint) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := s.likeCounts[postID]
	if n < 0 {
		return 0
	}
	return n
}

// IsLiked reports whether the current user's like set contains the post.
func (s *Synchronizer) IsLiked(postID uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.liked[postID]
	return ok
}

// Comments returns a copy of the global comment collection.
func (s *Synchronizer) Comments() []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Comment, len(s.comments))
	copy(out, s.comments)
	return out
}

// CommentsFor filters the comment collection to one post.
func (s *Synchronizer) CommentsFor(postID uint) []models.Comment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Comment
	for _, c := range s.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out
}

// CommentCount returns the number of comments held for a post.
func (s *Synchronizer) CommentCount(postID uint) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n
}

// ToggleLikeLocal applies an optimistic like flip: membership is inverted
// and the cached count adjusted, atomically with respect to other state
// access. It returns the new membership, which decides the request
// direction.
func (s *Synchronizer) ToggleLikeLocal(postID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liked[postID]; ok {
		delete(s.liked, postID)
		if s.likeCounts[postID] > 0 {
			s.likeCounts[postID]--
		}
		return false
	}
	s.liked[postID] = struct{}{}
	s.likeCounts[postID]++
	return true
}

// RevertLike forces membership for a post to a known value, adjusting the
// count only when the state actually changes. Used to roll back a failed
// optimistic toggle.
func (s *Synchronizer) RevertLike(postID uint, liked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, has := s.liked[postID]
	if has == liked {
		return
	}
	if liked {
		s.liked[postID] = struct{}{}
		s.likeCounts[postID]++
		return
	}
	delete(s.liked, postID)
	if s.likeCounts[postID] > 0 {
		s.likeCounts[postID]--
	}
}
