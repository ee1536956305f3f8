package stubserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vibio/internal/config"
	"vibio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	cfg := &config.Config{
		JWTSecret: "test-secret",
		MediaDir:  t.TempDir(),
		Env:       "test",
	}
	srv, err := NewServerWithDB(cfg, db)
	require.NoError(t, err)
	return srv
}

// createVerifiedUser inserts a confirmed account and returns it with a token.
func createVerifiedUser(t *testing.T, srv *Server, username string) (*models.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	user := models.User{
		Name:            username,
		Username:        username,
		Email:           username + "@example.com",
		Password:        string(hash),
		EmailVerifiedAt: &now,
	}
	require.NoError(t, srv.DB().Create(&user).Error)

	token, err := srv.generateToken(&user)
	require.NoError(t, err)
	return &user, token
}

func jsonRequest(method, path string, payload interface{}) *http.Request {
	var body io.Reader
	if payload != nil {
		encoded, _ := json.Marshal(payload)
		body = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestRegisterConfirmLogin_FullFlow(t *testing.T) {
	srv := newTestServer(t)

	// Register
	resp, err := srv.App().Test(jsonRequest("POST", "/api/register-user", map[string]string{
		"name":                  "Jess",
		"email":                 "jess@example.com",
		"password":              "hunter2222",
		"password_confirmation": "hunter2222",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Login before confirmation is rejected with a verification message.
	resp, err = srv.App().Test(jsonRequest("POST", "/api/login", map[string]string{
		"username_or_email": "jess@example.com",
		"password":          "hunter2222",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	var envelope map[string]interface{}
	decodeBody(t, resp, &envelope)
	assert.Contains(t, envelope["message"], "verify")

	// The confirmation code is not mailed; read it from the database.
	var user models.User
	require.NoError(t, srv.DB().Where("email = ?", "jess@example.com").First(&user).Error)
	require.NotEmpty(t, user.ConfirmationCode)

	resp, err = srv.App().Test(jsonRequest("POST", "/api/confirm-email", map[string]string{
		"code":  user.ConfirmationCode,
		"email": "jess@example.com",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var confirmed struct {
		Status string `json:"status"`
		Token  string `json:"token"`
	}
	decodeBody(t, resp, &confirmed)
	assert.Equal(t, "success", confirmed.Status)
	assert.NotEmpty(t, confirmed.Token)

	// Login now succeeds.
	resp, err = srv.App().Test(jsonRequest("POST", "/api/login", map[string]string{
		"username_or_email": "jess@example.com",
		"password":          "hunter2222",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRegister_ValidationErrors(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.App().Test(jsonRequest("POST", "/api/register-user", map[string]string{
		"name":                  "",
		"email":                 "not-an-email",
		"password":              "short",
		"password_confirmation": "different",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var envelope struct {
		Errors map[string][]string `json:"errors"`
	}
	decodeBody(t, resp, &envelope)
	assert.NotEmpty(t, envelope.Errors["name"])
	assert.NotEmpty(t, envelope.Errors["email"])
	assert.NotEmpty(t, envelope.Errors["password"])
}

func TestRegister_DuplicateEmail(t *testing.T) {
	srv := newTestServer(t)
	createVerifiedUser(t, srv, "jess")

	resp, err := srv.App().Test(jsonRequest("POST", "/api/register-user", map[string]string{
		"name":                  "Other",
		"email":                 "jess@example.com",
		"password":              "hunter2222",
		"password_confirmation": "hunter2222",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var envelope struct {
		Errors map[string][]string `json:"errors"`
	}
	decodeBody(t, resp, &envelope)
	assert.Contains(t, envelope.Errors["email"][0], "already been taken")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv := newTestServer(t)
	createVerifiedUser(t, srv, "jess")

	resp, err := srv.App().Test(jsonRequest("POST", "/api/login", map[string]string{
		"username_or_email": "jess",
		"password":          "wrong-password",
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMutations_RequireAuth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.App().Test(jsonRequest("POST", "/api/store-like", map[string]uint{
		"user_id": 1, "post_id": 1,
	}), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStoreLike_DuplicateRequestsAbsorbed(t *testing.T) {
	srv := newTestServer(t)
	author, _ := createVerifiedUser(t, srv, "author")
	liker, token := createVerifiedUser(t, srv, "liker")

	post := models.Post{Body: "hello", UserID: author.ID}
	require.NoError(t, srv.DB().Create(&post).Error)

	for i := 0; i < 2; i++ {
		req := jsonRequest("POST", "/api/store-like", map[string]uint{
			"user_id": liker.ID, "post_id": post.ID,
		})
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := srv.App().Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	var count int64
	srv.DB().Model(&models.Like{}).Where("post_id = ?", post.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestDeleteLike_AbsentEdgeStillSucceeds(t *testing.T) {
	srv := newTestServer(t)
	_, token := createVerifiedUser(t, srv, "liker")

	req := jsonRequest("DELETE", "/api/delete-like", map[string]uint{
		"user_id": 1, "post_id": 99,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStoreLike_UnknownPost(t *testing.T) {
	srv := newTestServer(t)
	liker, token := createVerifiedUser(t, srv, "liker")

	req := jsonRequest("POST", "/api/store-like", map[string]uint{
		"user_id": liker.ID, "post_id": 404,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStoreComment_EmptyContentRejected(t *testing.T) {
	srv := newTestServer(t)
	author, token := createVerifiedUser(t, srv, "author")
	post := models.Post{Body: "hello", UserID: author.ID}
	require.NoError(t, srv.DB().Create(&post).Error)

	req := jsonRequest("POST", "/api/store-comment", map[string]interface{}{
		"user_id": author.ID, "post_id": post.ID, "content": "   ",
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestShowPosts_EmbedsAuthorUnderUsersKey(t *testing.T) {
	srv := newTestServer(t)
	author, _ := createVerifiedUser(t, srv, "author")
	post := models.Post{Body: "hello world", UserID: author.ID}
	require.NoError(t, srv.DB().Create(&post).Error)
	require.NoError(t, srv.DB().Create(&models.Like{UserID: author.ID, PostID: post.ID}).Error)

	resp, err := srv.App().Test(httptest.NewRequest("GET", "/api/show-posts", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var posts []models.Post
	decodeBody(t, resp, &posts)
	require.Len(t, posts, 1)
	assert.Equal(t, "author", posts[0].User.Username)
	assert.Len(t, posts[0].Likes, 1)

	// The wire key for the embedded author is "users".
	raw, _ := json.Marshal(posts[0])
	assert.Contains(t, string(raw), `"users"`)
}

func TestFollow_SelfFollowRejected(t *testing.T) {
	srv := newTestServer(t)
	user, token := createVerifiedUser(t, srv, "jess")

	req := jsonRequest("POST", "/api/followers", map[string]uint{
		"follower_id": user.ID, "followed_user_id": user.ID,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestFollowUnfollow_RoundTrip(t *testing.T) {
	srv := newTestServer(t)
	follower, token := createVerifiedUser(t, srv, "follower")
	followed, _ := createVerifiedUser(t, srv, "followed")

	req := jsonRequest("POST", "/api/followers", map[string]uint{
		"follower_id": follower.ID, "followed_user_id": followed.ID,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Profile shows the new follower edge.
	resp, err = srv.App().Test(httptest.NewRequest("GET",
		fmt.Sprintf("/api/show-profile/%d", followed.ID), nil), -1)
	require.NoError(t, err)
	var profile models.User
	decodeBody(t, resp, &profile)
	require.Len(t, profile.Followers, 1)
	assert.Equal(t, follower.ID, profile.Followers[0].FollowerID)

	req = jsonRequest("DELETE", "/api/followers", map[string]uint{
		"follower_id": follower.ID, "followed_user_id": followed.ID,
	})
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var count int64
	srv.DB().Model(&models.Follower{}).Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestUpdateProfile_OnlyOwner(t *testing.T) {
	srv := newTestServer(t)
	_, token := createVerifiedUser(t, srv, "jess")
	other, _ := createVerifiedUser(t, srv, "other")

	form := "name=Hacked"
	req := httptest.NewRequest("POST",
		fmt.Sprintf("/api/update-profile/%d", other.ID),
		strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDeletePost_OnlyAuthor(t *testing.T) {
	srv := newTestServer(t)
	author, _ := createVerifiedUser(t, srv, "author")
	_, token := createVerifiedUser(t, srv, "other")
	post := models.Post{Body: "mine", UserID: author.ID}
	require.NoError(t, srv.DB().Create(&post).Error)

	req := httptest.NewRequest("DELETE", fmt.Sprintf("/api/delete-post/%d", post.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestSeed_PopulatesEmptyDatabaseOnce(t *testing.T) {
	srv := newTestServer(t)

	require.NoError(t, Seed(srv.DB(), SeedOptions{Users: 3, Posts: 5, MaxDays: 7, Password: "password"}))

	var users, posts int64
	srv.DB().Model(&models.User{}).Count(&users)
	srv.DB().Model(&models.Post{}).Count(&posts)
	assert.EqualValues(t, 3, users)
	assert.EqualValues(t, 5, posts)

	// A second run leaves the database alone.
	require.NoError(t, Seed(srv.DB(), SeedOptions{Users: 3, Posts: 5, MaxDays: 7, Password: "password"}))
	srv.DB().Model(&models.User{}).Count(&users)
	assert.EqualValues(t, 3, users)
}
