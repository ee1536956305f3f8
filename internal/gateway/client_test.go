package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"vibio/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticToken(token string) TokenSource {
	return TokenSourceFunc(func() (string, error) { return token, nil })
}

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(srv.URL, 5*time.Second, tokens)
	require.NoError(t, err)
	return client, srv
}

func signedToken(t *testing.T, expiresIn time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": "7",
		"exp": time.Now().Add(expiresIn).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return token
}

func TestNewClient_RejectsRelativeURL(t *testing.T) {
	_, err := NewClient("not-a-url", time.Second, nil)
	assert.Error(t, err)
}

func TestShowPosts_DecodesEmbeddedCollections(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/show-posts", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":1,"body":"hello","users":{"id":3,"username":"sam"},
			 "likes":[{"user_id":3,"post_id":1}],
			 "comments":[{"id":9,"post_id":1,"content":"hey","users":{"id":4}}]}
		]`))
	}, nil)

	posts, err := client.ShowPosts(context.Background())

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "sam", posts[0].User.Username)
	assert.Len(t, posts[0].Likes, 1)
	assert.Len(t, posts[0].Comments, 1)
}

func TestBearerToken_AttachedToRequests(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"status":"success"}`))
	}, staticToken(signedToken(t, time.Hour)))

	require.NoError(t, client.StoreLike(context.Background(), 7, 1))

	assert.True(t, strings.HasPrefix(gotAuth, "Bearer "))
}

func TestBearerToken_ExpiredTokenRejectedBeforeSending(t *testing.T) {
	sent := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		sent = true
	}, staticToken(signedToken(t, -time.Hour)))

	err := client.StoreLike(context.Background(), 7, 1)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	assert.False(t, sent, "expired token must be caught before the request leaves")
}

func TestClassifyFailure_Unauthorized(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status":"error","message":"Invalid or expired token"}`))
	}, nil)

	err := client.StoreLike(context.Background(), 7, 1)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	assert.Equal(t, "Invalid or expired token", appErr.Message)
}

func TestClassifyFailure_ValidationErrorsCarryFields(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"status":"error","message":"The given data was invalid.",
			"errors":{"email":["The email has already been taken."]}}`))
	}, nil)

	_, err := client.Register(context.Background(), RegisterInput{
		Name: "Jess", Email: "jess@example.com",
		Password: "hunter22", PasswordConfirmation: "hunter22",
	})

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SERVER_REJECTED", appErr.Code)
	assert.Equal(t, "The email has already been taken.", appErr.UserMessage())
}

func TestDoStatus_NonSuccessEnvelopeIsAnError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"Post not found"}`))
	}, nil)

	err := client.StoreLike(context.Background(), 7, 1)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "SERVER_REJECTED", appErr.Code)
	assert.Equal(t, "Post not found", appErr.Message)
}

func TestTransportFailure_ClassifiedAsRequestError(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", time.Second, nil)
	require.NoError(t, err)

	err = client.StoreLike(context.Background(), 7, 1)

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "REQUEST_FAILED", appErr.Code)
}

func TestStoreLike_SendsThePair(t *testing.T) {
	var got likePayload
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/store-like", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status":"success"}`))
	}, nil)

	require.NoError(t, client.StoreLike(context.Background(), 7, 42))

	assert.Equal(t, uint(7), got.UserID)
	assert.Equal(t, uint(42), got.PostID)
}

func TestDeleteLike_UsesDeleteWithBody(t *testing.T) {
	var method string
	var got likePayload
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		assert.Equal(t, "/api/delete-like", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"status":"success"}`))
	}, nil)

	require.NoError(t, client.DeleteLike(context.Background(), 7, 42))

	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, uint(42), got.PostID)
}

func TestCreatePost_SendsMultipartForm(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "7", r.FormValue("user_id"))
		assert.Equal(t, "hello", r.FormValue("title"))
		assert.Equal(t, "first post", r.FormValue("body"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "pic.png", header.Filename)

		w.Write([]byte(`{"status":"success"}`))
	}, nil)

	err := client.CreatePost(context.Background(), CreatePostInput{
		UserID:    7,
		Title:     "hello",
		Body:      "first post",
		Image:     strings.NewReader("png-bytes"),
		ImageName: "pic.png",
	})
	require.NoError(t, err)
}

func TestUpdateProfile_TunnelsPutThroughPost(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/update-profile/7", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "PUT", r.FormValue("_method"))
		assert.Equal(t, "newname", r.FormValue("username"))
		w.Write([]byte(`{"status":"success","user":{"id":7,"username":"newname"}}`))
	}, nil)

	resp, err := client.UpdateProfile(context.Background(), 7, UpdateProfileInput{Username: "newname"})

	require.NoError(t, err)
	assert.Equal(t, "newname", resp.User.Username)
}

func TestLogin_MissingTokenIsAFailure(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	}, nil)

	_, err := client.Login(context.Background(), "jess", "hunter22")

	assert.Error(t, err)
}

func TestGetLikes_DecodesEdgeList(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get-likes", r.URL.Path)
		w.Write([]byte(`[{"user_id":7,"post_id":1},{"user_id":3,"post_id":2}]`))
	}, nil)

	likes, err := client.GetLikes(context.Background())

	require.NoError(t, err)
	require.Len(t, likes, 2)
	assert.Equal(t, uint(7), likes[0].UserID)
}
