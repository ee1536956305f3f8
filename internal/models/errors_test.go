package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_UserMessagePrefersFieldErrors(t *testing.T) {
	err := NewServerError("The given data was invalid.", map[string][]string{
		"username": {"The username has already been taken."},
		"email":    {"The email must be a valid email address."},
	})

	// Field errors win over the generic message, lowest key first.
	assert.Equal(t, "The email must be a valid email address.", err.UserMessage())
}

func TestAppError_UserMessageFallsBackToMessage(t *testing.T) {
	err := NewServerError("Post not found", nil)
	assert.Equal(t, "Post not found", err.UserMessage())

	err = NewServerError("", nil)
	assert.Equal(t, "The server rejected the request", err.UserMessage())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewRequestError(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestAppError_Codes(t *testing.T) {
	assert.Equal(t, "NOT_FOUND", NewNotFoundError("Post", 7).Code)
	assert.Equal(t, "VALIDATION_ERROR", NewValidationError("bad").Code)
	assert.Equal(t, "UNAUTHORIZED", NewUnauthorizedError("no").Code)
	assert.Equal(t, "REQUEST_FAILED", NewRequestError(errors.New("x")).Code)
	assert.Equal(t, "SERVER_REJECTED", NewServerError("x", nil).Code)
	assert.Equal(t, "INTERNAL_ERROR", NewInternalError(errors.New("x")).Code)
}

func TestStatusResponse_OK(t *testing.T) {
	assert.True(t, StatusResponse{Status: "success"}.OK())
	assert.True(t, StatusResponse{Status: "ok"}.OK())
	assert.False(t, StatusResponse{Status: "error"}.OK())
	assert.False(t, StatusResponse{}.OK())
}

func TestUser_Verified(t *testing.T) {
	var u User
	require.False(t, u.Verified())
}
