package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"vibio/internal/credstore"
	"vibio/internal/gateway"
	"vibio/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAuthAPI scripts the auth endpoints with function fields.
type stubAuthAPI struct {
	login               func(ctx context.Context, usernameOrEmail, password string) (*models.AuthResponse, error)
	register            func(ctx context.Context, in gateway.RegisterInput) (*models.AuthResponse, error)
	confirmEmail        func(ctx context.Context, code, email string) (*models.AuthResponse, error)
	requestConfirmEmail func(ctx context.Context, email string) error
	profileSetup        func(ctx context.Context, in gateway.ProfileSetupInput) (*models.AuthResponse, error)
	skipProfileSetup    func(ctx context.Context, userID uint) error
}

func (s *stubAuthAPI) Login(ctx context.Context, usernameOrEmail, password string) (*models.AuthResponse, error) {
	return s.login(ctx, usernameOrEmail, password)
}

func (s *stubAuthAPI) Register(ctx context.Context, in gateway.RegisterInput) (*models.AuthResponse, error) {
	return s.register(ctx, in)
}

func (s *stubAuthAPI) ConfirmEmail(ctx context.Context, code, email string) (*models.AuthResponse, error) {
	return s.confirmEmail(ctx, code, email)
}

func (s *stubAuthAPI) RequestConfirmEmail(ctx context.Context, email string) error {
	return s.requestConfirmEmail(ctx, email)
}

func (s *stubAuthAPI) ProfileSetup(ctx context.Context, in gateway.ProfileSetupInput) (*models.AuthResponse, error) {
	return s.profileSetup(ctx, in)
}

func (s *stubAuthAPI) SkipProfileSetup(ctx context.Context, userID uint) error {
	return s.skipProfileSetup(ctx, userID)
}

func TestLogin_PersistsTokenAndUser(t *testing.T) {
	store := credstore.NewMemoryStore()
	api := &stubAuthAPI{
		login: func(_ context.Context, usernameOrEmail, password string) (*models.AuthResponse, error) {
			assert.Equal(t, "jess", usernameOrEmail)
			assert.Equal(t, "hunter22", password)
			return &models.AuthResponse{
				Status: "success",
				Token:  "tok-1",
				User:   &models.User{ID: 7, Name: "Jess", Username: "jess"},
			}, nil
		},
	}
	m := NewManager(store, api)

	require.NoError(t, m.Login(context.Background(), "jess", "hunter22"))

	assert.True(t, m.IsLoggedIn())
	assert.Equal(t, uint(7), m.CurrentUserID())

	token, err := store.Get(credstore.KeyToken)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	userData, err := store.Get(credstore.KeyUserData)
	require.NoError(t, err)
	assert.Contains(t, userData, `"username":"jess"`)
}

func TestLogin_EmptyInputValidatesLocally(t *testing.T) {
	called := false
	api := &stubAuthAPI{
		login: func(context.Context, string, string) (*models.AuthResponse, error) {
			called = true
			return nil, nil
		},
	}
	m := NewManager(credstore.NewMemoryStore(), api)

	err := m.Login(context.Background(), "  ", "")

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	assert.False(t, called)
}

func TestLogin_UnverifiedEmailTriggersResend(t *testing.T) {
	resent := ""
	api := &stubAuthAPI{
		login: func(context.Context, string, string) (*models.AuthResponse, error) {
			return nil, models.NewServerError("Please verify your email address before logging in", nil)
		},
		requestConfirmEmail: func(_ context.Context, email string) error {
			resent = email
			return nil
		},
	}
	m := NewManager(credstore.NewMemoryStore(), api)

	err := m.Login(context.Background(), "jess@example.com", "hunter22")

	require.ErrorIs(t, err, ErrEmailUnverified)
	assert.Equal(t, "jess@example.com", resent)
	assert.False(t, m.IsLoggedIn())
}

func TestLogin_OtherRejectionsPassThrough(t *testing.T) {
	api := &stubAuthAPI{
		login: func(context.Context, string, string) (*models.AuthResponse, error) {
			return nil, models.NewServerError("Invalid credentials", nil)
		},
	}
	m := NewManager(credstore.NewMemoryStore(), api)

	err := m.Login(context.Background(), "jess", "wrong")

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEmailUnverified)
	assert.False(t, m.IsLoggedIn())
}

func TestCheckLogin_RestoresPersistedSession(t *testing.T) {
	store := credstore.NewMemoryStore()
	user := models.User{ID: 7, Name: "Jess", Username: "jess"}
	encoded, err := json.Marshal(user)
	require.NoError(t, err)
	require.NoError(t, store.Set(credstore.KeyToken, "tok-1"))
	require.NoError(t, store.Set(credstore.KeyUserData, string(encoded)))

	m := NewManager(store, &stubAuthAPI{})
	require.NoError(t, m.CheckLogin())

	assert.True(t, m.IsLoggedIn())
	assert.Equal(t, "jess", m.CurrentUser().Username)
}

func TestCheckLogin_TokenWithoutUserReadsLoggedOut(t *testing.T) {
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Set(credstore.KeyToken, "tok-1"))

	m := NewManager(store, &stubAuthAPI{})
	require.NoError(t, m.CheckLogin())

	assert.False(t, m.IsLoggedIn())
	assert.Nil(t, m.CurrentUser())
}

func TestCheckLogin_CorruptUserDataReadsLoggedOut(t *testing.T) {
	store := credstore.NewMemoryStore()
	require.NoError(t, store.Set(credstore.KeyToken, "tok-1"))
	require.NoError(t, store.Set(credstore.KeyUserData, "{not json"))

	m := NewManager(store, &stubAuthAPI{})
	require.NoError(t, m.CheckLogin())

	assert.False(t, m.IsLoggedIn())
}

func TestRegister_DoesNotLogIn(t *testing.T) {
	api := &stubAuthAPI{
		register: func(_ context.Context, in gateway.RegisterInput) (*models.AuthResponse, error) {
			return &models.AuthResponse{
				Status: "success",
				User:   &models.User{ID: 8, Name: in.Name, Email: in.Email},
			}, nil
		},
	}
	m := NewManager(credstore.NewMemoryStore(), api)

	user, err := m.Register(context.Background(), gateway.RegisterInput{
		Name:                 "Jess",
		Email:                "jess@example.com",
		Password:             "hunter22",
		PasswordConfirmation: "hunter22",
	})

	require.NoError(t, err)
	assert.Equal(t, uint(8), user.ID)
	assert.False(t, m.IsLoggedIn(), "registration must not start a session before confirmation")
}

func TestRegister_PasswordMismatchValidatesLocally(t *testing.T) {
	m := NewManager(credstore.NewMemoryStore(), &stubAuthAPI{})

	_, err := m.Register(context.Background(), gateway.RegisterInput{
		Name:                 "Jess",
		Email:                "jess@example.com",
		Password:             "hunter22",
		PasswordConfirmation: "hunter23",
	})

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestConfirmEmail_PersistsFreshSession(t *testing.T) {
	store := credstore.NewMemoryStore()
	api := &stubAuthAPI{
		confirmEmail: func(_ context.Context, code, email string) (*models.AuthResponse, error) {
			assert.Equal(t, "123456", code)
			assert.Equal(t, "jess@example.com", email)
			return &models.AuthResponse{
				Status: "success",
				Token:  "tok-2",
				User:   &models.User{ID: 7},
			}, nil
		},
	}
	m := NewManager(store, api)

	require.NoError(t, m.ConfirmEmail(context.Background(), "123456", "jess@example.com"))

	assert.True(t, m.IsLoggedIn())
	token, _ := store.Get(credstore.KeyToken)
	assert.Equal(t, "tok-2", token)
}

func TestLogout_ClearsEverything(t *testing.T) {
	store := credstore.NewMemoryStore()
	api := &stubAuthAPI{
		login: func(context.Context, string, string) (*models.AuthResponse, error) {
			return &models.AuthResponse{Status: "success", Token: "tok-1", User: &models.User{ID: 7}}, nil
		},
	}
	m := NewManager(store, api)
	require.NoError(t, m.Login(context.Background(), "jess", "hunter22"))
	require.True(t, m.IsLoggedIn())

	require.NoError(t, m.Logout())

	assert.False(t, m.IsLoggedIn())
	assert.Equal(t, uint(0), m.CurrentUserID())
	token, _ := store.Get(credstore.KeyToken)
	assert.Empty(t, token)
}

func TestRefreshUser_ReplacesCachedRecord(t *testing.T) {
	store := credstore.NewMemoryStore()
	api := &stubAuthAPI{
		login: func(context.Context, string, string) (*models.AuthResponse, error) {
			return &models.AuthResponse{Status: "success", Token: "tok-1", User: &models.User{ID: 7, Bio: "old"}}, nil
		},
	}
	m := NewManager(store, api)
	require.NoError(t, m.Login(context.Background(), "jess", "hunter22"))

	require.NoError(t, m.RefreshUser(&models.User{ID: 7, Bio: "new"}))

	assert.Equal(t, "new", m.CurrentUser().Bio)
}

func TestCurrentUser_ReturnsACopy(t *testing.T) {
	store := credstore.NewMemoryStore()
	api := &stubAuthAPI{
		login: func(context.Context, string, string) (*models.AuthResponse, error) {
			return &models.AuthResponse{Status: "success", Token: "tok-1", User: &models.User{ID: 7, Name: "Jess"}}, nil
		},
	}
	m := NewManager(store, api)
	require.NoError(t, m.Login(context.Background(), "jess", "hunter22"))

	first := m.CurrentUser()
	first.Name = "Mutated"

	assert.Equal(t, "Jess", m.CurrentUser().Name)
}

func TestLogin_ResendFailureStillSignalsUnverified(t *testing.T) {
	api := &stubAuthAPI{
		login: func(context.Context, string, string) (*models.AuthResponse, error) {
			return nil, models.NewServerError("Please confirm your email", nil)
		},
		requestConfirmEmail: func(context.Context, string) error {
			return errors.New("smtp down")
		},
	}
	m := NewManager(credstore.NewMemoryStore(), api)

	err := m.Login(context.Background(), "jess@example.com", "hunter22")

	assert.ErrorIs(t, err, ErrEmailUnverified)
}
