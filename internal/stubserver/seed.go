package stubserver

import (
	"fmt"
	"math/rand"
	"time"

	"vibio/internal/models"
	"vibio/internal/observability"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedOptions controls how much demo data Seed creates.
type SeedOptions struct {
	Users    int
	Posts    int
	MaxDays  int
	Password string
}

// DefaultSeedOptions are sized for local development.
func DefaultSeedOptions() SeedOptions {
	return SeedOptions{Users: 8, Posts: 24, MaxDays: 30, Password: "password"}
}

// Seed fills an empty database with verified demo users, posts, likes,
// comments and follow edges. A non-empty database is left alone.
func Seed(db *gorm.DB, opts SeedOptions) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	gofakeit.Seed(time.Now().UnixNano())
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now()
	users := make([]models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		verifiedAt := now.Add(-time.Duration(r.Intn(opts.MaxDays*24)) * time.Hour)
		users = append(users, models.User{
			Name:            gofakeit.Name(),
			Username:        fmt.Sprintf("%s%d", gofakeit.Username(), i),
			Email:           fmt.Sprintf("demo%d@%s", i, gofakeit.DomainName()),
			Password:        string(hash),
			Bio:             gofakeit.Sentence(8),
			EmailVerifiedAt: &verifiedAt,
		})
	}
	if err := db.Create(&users).Error; err != nil {
		return err
	}

	posts := make([]models.Post, 0, opts.Posts)
	for i := 0; i < opts.Posts; i++ {
		author := users[r.Intn(len(users))]
		createdAt := now.Add(-time.Duration(r.Intn(opts.MaxDays*24*60)) * time.Minute)
		posts = append(posts, models.Post{
			Title:     gofakeit.Sentence(4),
			Body:      gofakeit.Paragraph(1, 3, 6, "\n"),
			UserID:    author.ID,
			CreatedAt: createdAt,
		})
	}
	if err := db.Create(&posts).Error; err != nil {
		return err
	}

	for _, post := range posts {
		for _, user := range users {
			if r.Intn(3) == 0 {
				like := models.Like{UserID: user.ID, PostID: post.ID}
				db.Where(like).FirstOrCreate(&like)
			}
			if r.Intn(5) == 0 {
				db.Create(&models.Comment{
					UserID:  user.ID,
					PostID:  post.ID,
					Content: gofakeit.Sentence(10),
				})
			}
		}
	}

	for _, follower := range users {
		for _, followed := range users {
			if follower.ID == followed.ID {
				continue
			}
			if r.Intn(4) == 0 {
				edge := models.Follower{FollowerID: follower.ID, FollowedUserID: followed.ID}
				db.Where(edge).FirstOrCreate(&edge)
			}
		}
	}

	observability.GlobalLogger.Info("seeded demo data",
		"users", len(users), "posts", len(posts), "password", opts.Password)
	return nil
}
