package stubserver

import (
	"strings"

	"vibio/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ShowComments returns the whole comment collection with authors embedded.
func (s *Server) ShowComments(c *fiber.Ctx) error {
	var comments []models.Comment
	err := s.db.Preload("User").Order("created_at ASC").Find(&comments).Error
	if err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to load comments")
	}
	return c.JSON(comments)
}

// GetLikes returns every like edge in the system.
func (s *Server) GetLikes(c *fiber.Ctx) error {
	var likes []models.Like
	if err := s.db.Find(&likes).Error; err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to load likes")
	}
	return c.JSON(likes)
}

type likeRequest struct {
	UserID uint `json:"user_id"`
	PostID uint `json:"post_id"`
}

// StoreLike creates the like edge for the token user. Repeats are absorbed
// by the unique pair constraint, so a duplicate request still succeeds.
func (s *Server) StoreLike(c *fiber.Ctx) error {
	var req likeRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid request body")
	}

	// The acting user comes from the token, not the body.
	userID := currentUserID(c)

	var post models.Post
	if err := s.db.First(&post, req.PostID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return respondStatus(c, fiber.StatusNotFound, "error", "Post not found")
		}
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to load post")
	}

	like := models.Like{UserID: userID, PostID: req.PostID}
	err := s.db.Where(models.Like{UserID: userID, PostID: req.PostID}).FirstOrCreate(&like).Error
	if err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to store like")
	}
	likesTotal.WithLabelValues("like").Inc()

	return respondStatus(c, fiber.StatusCreated, "success", "Post liked")
}

// DeleteLike removes the like edge for the token user. Removing an absent
// edge still succeeds so toggles settle regardless of interleaving.
func (s *Server) DeleteLike(c *fiber.Ctx) error {
	var req likeRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid request body")
	}

	userID := currentUserID(c)
	err := s.db.Where("user_id = ? AND post_id = ?", userID, req.PostID).Delete(&models.Like{}).Error
	if err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to remove like")
	}
	likesTotal.WithLabelValues("unlike").Inc()

	return respondStatus(c, fiber.StatusOK, "success", "Like removed")
}

type commentRequest struct {
	UserID  uint   `json:"user_id"`
	PostID  uint   `json:"post_id"`
	Content string `json:"content"`
}

// StoreComment creates a comment as the token user.
func (s *Server) StoreComment(c *fiber.Ctx) error {
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid request body")
	}
	if strings.TrimSpace(req.Content) == "" {
		return respondValidation(c, map[string][]string{
			"content": {"The content field is required."},
		})
	}

	var post models.Post
	if err := s.db.First(&post, req.PostID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return respondStatus(c, fiber.StatusNotFound, "error", "Post not found")
		}
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to load post")
	}

	comment := models.Comment{
		UserID:  currentUserID(c),
		PostID:  req.PostID,
		Content: req.Content,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to store comment")
	}
	commentsTotal.Inc()

	return respondStatus(c, fiber.StatusCreated, "success", "Comment added")
}

type followRequest struct {
	FollowerID     uint `json:"follower_id"`
	FollowedUserID uint `json:"followed_user_id"`
}

// Follow creates the directed follow edge from the token user.
func (s *Server) Follow(c *fiber.Ctx) error {
	var req followRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid request body")
	}

	followerID := currentUserID(c)
	if req.FollowedUserID == followerID {
		return respondValidation(c, map[string][]string{
			"followed_user_id": {"You cannot follow yourself."},
		})
	}
	if _, err := s.userByID(req.FollowedUserID); err != nil {
		return respondStatus(c, fiber.StatusNotFound, "error", "User not found")
	}

	edge := models.Follower{FollowerID: followerID, FollowedUserID: req.FollowedUserID}
	err := s.db.Where(models.Follower{FollowerID: followerID, FollowedUserID: req.FollowedUserID}).
		FirstOrCreate(&edge).Error
	if err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to follow user")
	}
	followsTotal.WithLabelValues("follow").Inc()

	return respondStatus(c, fiber.StatusCreated, "success", "Now following")
}

// Unfollow removes the directed follow edge from the token user.
func (s *Server) Unfollow(c *fiber.Ctx) error {
	var req followRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid request body")
	}

	followerID := currentUserID(c)
	err := s.db.Where("follower_id = ? AND followed_user_id = ?", followerID, req.FollowedUserID).
		Delete(&models.Follower{}).Error
	if err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to unfollow user")
	}
	followsTotal.WithLabelValues("unfollow").Inc()

	return respondStatus(c, fiber.StatusOK, "success", "Unfollowed")
}
