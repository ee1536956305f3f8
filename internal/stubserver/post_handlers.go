package stubserver

import (
	"strings"

	"vibio/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ShowPosts returns every post with its author, like edges and comments
// embedded. No pagination; the client shuffles ordering anyway.
func (s *Server) ShowPosts(c *fiber.Ctx) error {
	var posts []models.Post
	err := s.db.
		Preload("User").
		Preload("Likes").
		Preload("Comments").
		Preload("Comments.User").
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to load posts")
	}
	return c.JSON(posts)
}

// CreatePost accepts a multipart form with title, body and an optional image.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	title := c.FormValue("title")
	body := c.FormValue("body")

	if strings.TrimSpace(body) == "" {
		return respondValidation(c, map[string][]string{
			"body": {"The body field is required."},
		})
	}

	post := models.Post{
		Title:  title,
		Body:   body,
		UserID: userID,
	}

	if fh, err := c.FormFile("image"); err == nil && fh != nil {
		name, err := s.saveUpload(fh)
		if err != nil {
			return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to store image")
		}
		post.Image = name
	}

	if err := s.db.Create(&post).Error; err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to create post")
	}
	postsTotal.Inc()

	return respondStatus(c, fiber.StatusCreated, "success", "Post created")
}

type updatePostRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// UpdatePost edits a post's title and body. Only the author may edit.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid post id")
	}

	var req updatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid request body")
	}
	if strings.TrimSpace(req.Body) == "" {
		return respondValidation(c, map[string][]string{
			"body": {"The body field is required."},
		})
	}

	var post models.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return respondStatus(c, fiber.StatusNotFound, "error", "Post not found")
		}
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to load post")
	}
	if post.UserID != currentUserID(c) {
		return respondStatus(c, fiber.StatusForbidden, "error", "You can only edit your own posts")
	}

	updates := map[string]interface{}{"title": req.Title, "body": req.Body}
	if err := s.db.Model(&post).Updates(updates).Error; err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to update post")
	}

	return respondStatus(c, fiber.StatusOK, "success", "Post updated")
}

// DeletePost soft-deletes a post. Only the author may delete.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid post id")
	}

	var post models.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return respondStatus(c, fiber.StatusNotFound, "error", "Post not found")
		}
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to load post")
	}
	if post.UserID != currentUserID(c) {
		return respondStatus(c, fiber.StatusForbidden, "error", "You can only delete your own posts")
	}

	if err := s.db.Delete(&post).Error; err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to delete post")
	}

	return respondStatus(c, fiber.StatusOK, "success", "Post deleted")
}
