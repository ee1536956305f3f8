package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"vibio/internal/models"
)

// likePayload is the wire shape for like-edge mutations.
type likePayload struct {
	UserID uint `json:"user_id"`
	PostID uint `json:"post_id"`
}

// followPayload is the wire shape for follow-edge mutations.
type followPayload struct {
	FollowerID     uint `json:"follower_id"`
	FollowedUserID uint `json:"followed_user_id"`
}

// ShowPosts fetches the full post collection with embedded author, like and
// comment data.
func (c *Client) ShowPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/api/show-posts", nil, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// ShowComments fetches the entire comment collection, unscoped.
func (c *Client) ShowComments(ctx context.Context) ([]models.Comment, error) {
	var comments []models.Comment
	if err := c.do(ctx, http.MethodGet, "/api/show-comments", nil, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

// GetLikes fetches every like edge in the system.
func (c *Client) GetLikes(ctx context.Context) ([]models.Like, error) {
	var likes []models.Like
	if err := c.do(ctx, http.MethodGet, "/api/get-likes", nil, &likes); err != nil {
		return nil, err
	}
	return likes, nil
}

// StoreLike creates the (userID, postID) like edge.
func (c *Client) StoreLike(ctx context.Context, userID, postID uint) error {
	return c.doStatus(ctx, http.MethodPost, "/api/store-like", likePayload{UserID: userID, PostID: postID})
}

// DeleteLike removes the (userID, postID) like edge.
func (c *Client) DeleteLike(ctx context.Context, userID, postID uint) error {
	return c.doStatus(ctx, http.MethodDelete, "/api/delete-like", likePayload{UserID: userID, PostID: postID})
}

// StoreComment creates a comment on postID.
func (c *Client) StoreComment(ctx context.Context, userID, postID uint, content string) error {
	payload := struct {
		UserID  uint   `json:"user_id"`
		PostID  uint   `json:"post_id"`
		Content string `json:"content"`
	}{userID, postID, content}
	return c.doStatus(ctx, http.MethodPost, "/api/store-comment", payload)
}

// Follow creates the directed follow edge.
func (c *Client) Follow(ctx context.Context, followerID, followedUserID uint) error {
	return c.do(ctx, http.MethodPost, "/api/followers", followPayload{followerID, followedUserID}, nil)
}

// Unfollow removes the directed follow edge.
func (c *Client) Unfollow(ctx context.Context, followerID, followedUserID uint) error {
	return c.do(ctx, http.MethodDelete, "/api/followers", followPayload{followerID, followedUserID}, nil)
}

// CreatePostInput carries the multipart fields for post creation. Image is
// optional; ImageName names the uploaded file part.
type CreatePostInput struct {
	UserID    uint
	Title     string
	Body      string
	Image     io.Reader
	ImageName string
}

// CreatePost uploads a new post.
func (c *Client) CreatePost(ctx context.Context, in CreatePostInput) error {
	fields := map[string]string{
		"user_id": strconv.FormatUint(uint64(in.UserID), 10),
		"title":   in.Title,
		"body":    in.Body,
	}
	body, contentType, err := multipartBody(fields, "image", in.ImageName, in.Image)
	if err != nil {
		return models.NewInternalError(err)
	}
	var status models.StatusResponse
	if err := c.doRaw(ctx, http.MethodPost, "/api/create-post", body, contentType, &status); err != nil {
		return err
	}
	if !status.OK() {
		return models.NewServerError(status.Message, nil)
	}
	return nil
}

// UpdatePost edits a post's title and body.
func (c *Client) UpdatePost(ctx context.Context, postID uint, title, body string) error {
	payload := struct {
		Title string `json:"title"`
		Body  string `json:"body"`
	}{title, body}
	return c.doStatus(ctx, http.MethodPut, fmt.Sprintf("/api/update-post/%d", postID), payload)
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, postID uint) error {
	return c.doStatus(ctx, http.MethodDelete, fmt.Sprintf("/api/delete-post/%d", postID), nil)
}

// Login authenticates by username or email. Server-side rejections come back
// as AppError with the envelope's message and field errors.
func (c *Client) Login(ctx context.Context, usernameOrEmail, password string) (*models.AuthResponse, error) {
	payload := struct {
		UsernameOrEmail string `json:"username_or_email"`
		Password        string `json:"password"`
	}{usernameOrEmail, password}
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/login", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" || resp.Token == "" {
		return nil, models.NewServerError(resp.Message, resp.Errors)
	}
	return &resp, nil
}

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

// Register creates a new, unconfirmed account.
func (c *Client) Register(ctx context.Context, in RegisterInput) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/register-user", in, &resp); err != nil {
		return nil, err
	}
	if resp.User == nil {
		return nil, models.NewServerError(resp.Message, resp.Errors)
	}
	return &resp, nil
}

// ConfirmEmail redeems an emailed confirmation code for a token.
func (c *Client) ConfirmEmail(ctx context.Context, code, email string) (*models.AuthResponse, error) {
	payload := struct {
		Code  string `json:"code"`
		Email string `json:"email"`
	}{code, email}
	var resp models.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/confirm-email", payload, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" || resp.Token == "" {
		return nil, models.NewServerError(resp.Message, resp.Errors)
	}
	return &resp, nil
}

// RequestConfirmEmail asks the server to send a fresh confirmation code.
func (c *Client) RequestConfirmEmail(ctx context.Context, email string) error {
	payload := struct {
		Email string `json:"email"`
	}{email}
	return c.doStatus(ctx, http.MethodPost, "/api/request-confirm-email", payload)
}

// ProfileSetupInput carries the first-run profile form.
type ProfileSetupInput struct {
	UserID         uint
	Username       string
	ProfilePicture io.Reader
	PictureName    string
}

// ProfileSetup completes first-run profile setup and returns a fresh token.
func (c *Client) ProfileSetup(ctx context.Context, in ProfileSetupInput) (*models.AuthResponse, error) {
	fields := map[string]string{
		"user_id":  strconv.FormatUint(uint64(in.UserID), 10),
		"username": in.Username,
	}
	body, contentType, err := multipartBody(fields, "profile_picture", in.PictureName, in.ProfilePicture)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	var resp models.AuthResponse
	if err := c.doRaw(ctx, http.MethodPost, "/api/profile-setup", body, contentType, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, models.NewServerError(resp.Message, resp.Errors)
	}
	return &resp, nil
}

// SkipProfileSetup marks profile setup as skipped for the user.
func (c *Client) SkipProfileSetup(ctx context.Context, userID uint) error {
	payload := struct {
		UserID uint `json:"user_id"`
	}{userID}
	return c.doStatus(ctx, http.MethodPost, "/api/skip-profile-setup", payload)
}

// ShowProfile fetches a user together with their posts and follower edges.
func (c *Client) ShowProfile(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/show-profile/%d", userID), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfileInput carries the editable profile fields.
type UpdateProfileInput struct {
	Name           string
	Username       string
	Bio            string
	ProfilePicture io.Reader
	PictureName    string
}

// UpdateProfile edits a profile. The API tunnels PUT through POST with the
// _method override field.
func (c *Client) UpdateProfile(ctx context.Context, userID uint, in UpdateProfileInput) (*models.ProfileResponse, error) {
	fields := map[string]string{
		"_method":  "PUT",
		"name":     in.Name,
		"username": in.Username,
		"bio":      in.Bio,
	}
	body, contentType, err := multipartBody(fields, "profile_picture", in.PictureName, in.ProfilePicture)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	var resp models.ProfileResponse
	if err := c.doRaw(ctx, http.MethodPost, fmt.Sprintf("/api/update-profile/%d", userID), body, contentType, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, models.NewServerError(resp.Message, nil)
	}
	return &resp, nil
}

// DeleteProfilePicture removes the profile picture and returns the updated
// user.
func (c *Client) DeleteProfilePicture(ctx context.Context, userID uint) (*models.ProfileResponse, error) {
	var resp models.ProfileResponse
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/delete-profile/%d", userID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, models.NewServerError(resp.Message, nil)
	}
	return &resp, nil
}
