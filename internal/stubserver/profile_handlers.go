package stubserver

import (
	"strings"

	"vibio/internal/models"
	"vibio/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ShowProfile returns a user with their posts and follower edges.
func (s *Server) ShowProfile(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid user id")
	}

	var user models.User
	err = s.db.
		Preload("Posts").
		Preload("Posts.Likes").
		Preload("Posts.Comments").
		Preload("Followers").
		First(&user, userID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return respondStatus(c, fiber.StatusNotFound, "error", "User not found")
		}
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to load profile")
	}
	return c.JSON(user)
}

// ProfileSetup completes first-run setup: picks a username and optionally a
// profile picture, then returns a fresh token carrying the username.
func (s *Server) ProfileSetup(c *fiber.Ctx) error {
	user, err := s.userByID(currentUserID(c))
	if err != nil {
		return respondStatus(c, fiber.StatusNotFound, "error", "User not found")
	}

	username := strings.TrimSpace(c.FormValue("username"))
	if err := validation.ValidateUsername(username); err != nil {
		return respondValidation(c, map[string][]string{
			"username": {err.Error()},
		})
	}
	var count int64
	s.db.Model(&models.User{}).Where("username = ? AND id != ?", username, user.ID).Count(&count)
	if count > 0 {
		return respondValidation(c, map[string][]string{
			"username": {"The username has already been taken."},
		})
	}

	updates := map[string]interface{}{"username": username}
	if fh, err := c.FormFile("profile_picture"); err == nil && fh != nil {
		name, err := s.saveUpload(fh)
		if err != nil {
			return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to store picture")
		}
		updates["profile_picture"] = name
		user.ProfilePicture = name
	}
	if err := s.db.Model(user).Updates(updates).Error; err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to save profile")
	}
	user.Username = username

	token, err := s.generateToken(user)
	if err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to issue token")
	}

	return c.JSON(fiber.Map{
		"status": "success",
		"token":  token,
		"user":   user,
	})
}

// SkipProfileSetup acknowledges a skipped first-run setup.
func (s *Server) SkipProfileSetup(c *fiber.Ctx) error {
	return respondStatus(c, fiber.StatusOK, "success", "Profile setup skipped")
}

// UpdateProfile edits name, username, bio and optionally the profile
// picture. Clients tunnel PUT through POST with a _method field; the stub
// accepts the POST regardless of the override value.
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid user id")
	}
	if targetID != currentUserID(c) {
		return respondStatus(c, fiber.StatusForbidden, "error", "You can only edit your own profile")
	}

	user, err := s.userByID(targetID)
	if err != nil {
		return respondStatus(c, fiber.StatusNotFound, "error", "User not found")
	}

	updates := map[string]interface{}{}
	if name := strings.TrimSpace(c.FormValue("name")); name != "" {
		updates["name"] = name
		user.Name = name
	}
	if username := strings.TrimSpace(c.FormValue("username")); username != "" {
		if err := validation.ValidateUsername(username); err != nil {
			return respondValidation(c, map[string][]string{
				"username": {err.Error()},
			})
		}
		var count int64
		s.db.Model(&models.User{}).Where("username = ? AND id != ?", username, user.ID).Count(&count)
		if count > 0 {
			return respondValidation(c, map[string][]string{
				"username": {"The username has already been taken."},
			})
		}
		updates["username"] = username
		user.Username = username
	}
	if bio := c.FormValue("bio"); bio != "" {
		updates["bio"] = bio
		user.Bio = bio
	}
	if fh, err := c.FormFile("profile_picture"); err == nil && fh != nil {
		name, err := s.saveUpload(fh)
		if err != nil {
			return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to store picture")
		}
		updates["profile_picture"] = name
		user.ProfilePicture = name
	}

	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to save profile")
		}
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Profile updated",
		"user":    user,
	})
}

// DeleteProfilePicture clears the profile picture and returns the updated
// user.
func (s *Server) DeleteProfilePicture(c *fiber.Ctx) error {
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		return respondStatus(c, fiber.StatusBadRequest, "error", "Invalid user id")
	}
	if targetID != currentUserID(c) {
		return respondStatus(c, fiber.StatusForbidden, "error", "You can only edit your own profile")
	}

	user, err := s.userByID(targetID)
	if err != nil {
		return respondStatus(c, fiber.StatusNotFound, "error", "User not found")
	}

	if err := s.db.Model(user).Update("profile_picture", "").Error; err != nil {
		return respondStatus(c, fiber.StatusInternalServerError, "error", "Failed to update profile")
	}
	user.ProfilePicture = ""

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Profile picture removed",
		"user":    user,
	})
}
