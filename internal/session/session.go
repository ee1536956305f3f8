// Package session manages the auth lifecycle: login state, the persisted
// token and the cached current-user record.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"vibio/internal/credstore"
	"vibio/internal/gateway"
	"vibio/internal/models"
)

// ErrEmailUnverified signals a login rejected because the account's email is
// not confirmed. A fresh confirmation code has already been requested; the
// caller should move to the confirm-email flow.
var ErrEmailUnverified = errors.New("email not verified")

// AuthAPI is the slice of the gateway the session manager needs.
type AuthAPI interface {
	Login(ctx context.Context, usernameOrEmail, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, in gateway.RegisterInput) (*models.AuthResponse, error)
	ConfirmEmail(ctx context.Context, code, email string) (*models.AuthResponse, error)
	RequestConfirmEmail(ctx context.Context, email string) error
	ProfileSetup(ctx context.Context, in gateway.ProfileSetupInput) (*models.AuthResponse, error)
	SkipProfileSetup(ctx context.Context, userID uint) error
}

// Manager owns the client's login state. Safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	store    credstore.Store
	api      AuthAPI
	user     *models.User
	loggedIn bool
}

// NewManager creates a Manager over the given credential store and API.
func NewManager(store credstore.Store, api AuthAPI) *Manager {
	return &Manager{store: store, api: api}
}

// Token yields the persisted auth token. Implements gateway.TokenSource.
func (m *Manager) Token() (string, error) {
	return m.store.Get(credstore.KeyToken)
}

// CheckLogin restores login state from the credential store. Logged in means
// both the token and the cached user record are present.
func (m *Manager) CheckLogin() error {
	token, err := m.store.Get(credstore.KeyToken)
	if err != nil {
		return err
	}
	userData, err := m.store.Get(credstore.KeyUserData)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if token == "" || userData == "" {
		m.user = nil
		m.loggedIn = false
		return nil
	}
	var user models.User
	if err := json.Unmarshal([]byte(userData), &user); err != nil {
		// A corrupt cached record reads as logged out rather than failing
		// the whole session.
		m.user = nil
		m.loggedIn = false
		return nil
	}
	m.user = &user
	m.loggedIn = true
	return nil
}

func (m *Manager) persistAuth(token string, user *models.User) error {
	if err := m.store.Set(credstore.KeyToken, token); err != nil {
		return err
	}
	if user != nil {
		encoded, err := json.Marshal(user)
		if err != nil {
			return models.NewInternalError(err)
		}
		if err := m.store.Set(credstore.KeyUserData, string(encoded)); err != nil {
			return err
		}
	}
	return m.CheckLogin()
}

// Login authenticates and persists the session. A rejection that points at
// an unconfirmed email triggers a confirmation-code resend and returns
// ErrEmailUnverified.
func (m *Manager) Login(ctx context.Context, usernameOrEmail, password string) error {
	if strings.TrimSpace(usernameOrEmail) == "" || password == "" {
		return models.NewValidationError("Username or email and password are required")
	}
	resp, err := m.api.Login(ctx, usernameOrEmail, password)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && isUnverifiedEmailMessage(appErr.Message) {
			if resendErr := m.api.RequestConfirmEmail(ctx, usernameOrEmail); resendErr != nil {
				return fmt.Errorf("%w: resending confirmation code: %v", ErrEmailUnverified, resendErr)
			}
			return ErrEmailUnverified
		}
		return err
	}
	return m.persistAuth(resp.Token, resp.User)
}

// Register creates a new account. The session stays logged out until the
// email is confirmed.
func (m *Manager) Register(ctx context.Context, in gateway.RegisterInput) (*models.User, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, models.NewValidationError("Name, email, and password are required")
	}
	if in.Password != in.PasswordConfirmation {
		return nil, models.NewValidationError("Passwords do not match")
	}
	resp, err := m.api.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return resp.User, nil
}

// ConfirmEmail redeems the emailed code and persists the fresh session.
func (m *Manager) ConfirmEmail(ctx context.Context, code, email string) error {
	if strings.TrimSpace(code) == "" {
		return models.NewValidationError("Confirmation code is required")
	}
	resp, err := m.api.ConfirmEmail(ctx, code, email)
	if err != nil {
		return err
	}
	return m.persistAuth(resp.Token, resp.User)
}

// ProfileSetup completes first-run setup and rotates the persisted token.
func (m *Manager) ProfileSetup(ctx context.Context, in gateway.ProfileSetupInput) error {
	if strings.TrimSpace(in.Username) == "" {
		return models.NewValidationError("Username is required")
	}
	resp, err := m.api.ProfileSetup(ctx, in)
	if err != nil {
		return err
	}
	return m.persistAuth(resp.Token, resp.User)
}

// SkipProfileSetup marks setup as skipped server-side.
func (m *Manager) SkipProfileSetup(ctx context.Context) error {
	return m.api.SkipProfileSetup(ctx, m.CurrentUserID())
}

// Logout clears the persisted credentials and cached user.
func (m *Manager) Logout() error {
	if err := m.store.Delete(credstore.KeyToken); err != nil {
		return err
	}
	if err := m.store.Delete(credstore.KeyUserData); err != nil {
		return err
	}
	return m.CheckLogin()
}

// IsLoggedIn reports whether a persisted session is active.
func (m *Manager) IsLoggedIn() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loggedIn
}

// CurrentUser returns a copy of the cached user record, or nil when logged
// out.
func (m *Manager) CurrentUser() *models.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	user := *m.user
	return &user
}

// CurrentUserID returns the cached user's id, or zero when logged out.
func (m *Manager) CurrentUserID() uint {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return 0
	}
	return m.user.ID
}

// RefreshUser replaces the cached user record after a profile edit.
func (m *Manager) RefreshUser(user *models.User) error {
	if user == nil {
		return models.NewValidationError("user is required")
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return models.NewInternalError(err)
	}
	if err := m.store.Set(credstore.KeyUserData, string(encoded)); err != nil {
		return err
	}
	return m.CheckLogin()
}

// isUnverifiedEmailMessage reports whether a login rejection message points
// at an unconfirmed email address.
func isUnverifiedEmailMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "verif") || strings.Contains(lower, "confirm")
}
