// Package profile fetches and edits user profiles and derives follow state
// from fetched follower edges.
package profile

import (
	"context"

	"vibio/internal/gateway"
	"vibio/internal/models"
)

// API is the slice of the gateway the profile service uses.
type API interface {
	ShowProfile(ctx context.Context, userID uint) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uint, in gateway.UpdateProfileInput) (*models.ProfileResponse, error)
	DeleteProfilePicture(ctx context.Context, userID uint) (*models.ProfileResponse, error)
}

// Session is the session surface the profile service updates after edits.
type Session interface {
	CurrentUserID() uint
	RefreshUser(user *models.User) error
}

// Service provides profile reads and edits.
type Service struct {
	api     API
	session Session
}

// NewService creates a profile Service.
func NewService(api API, session Session) *Service {
	return &Service{api: api, session: session}
}

// Show fetches a user with their posts and follower edges.
func (s *Service) Show(ctx context.Context, userID uint) (*models.User, error) {
	return s.api.ShowProfile(ctx, userID)
}

// IsFollowing reports whether viewerID appears in the fetched follower
// edges of profile. Follow state is only ever derived from a fetched
// profile, never assumed optimistically.
func IsFollowing(profile *models.User, viewerID uint) bool {
	if profile == nil {
		return false
	}
	for _, edge := range profile.Followers {
		if edge.FollowerID == viewerID {
			return true
		}
	}
	return false
}

// FollowerCount returns the number of follower edges on a fetched profile.
func FollowerCount(profile *models.User) int {
	if profile == nil {
		return 0
	}
	return len(profile.Followers)
}

// Update edits the current user's profile and refreshes the cached user
// record from the response.
func (s *Service) Update(ctx context.Context, in gateway.UpdateProfileInput) (*models.User, error) {
	userID := s.session.CurrentUserID()
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Log in to edit your profile")
	}
	resp, err := s.api.UpdateProfile(ctx, userID, in)
	if err != nil {
		return nil, err
	}
	if resp.User != nil {
		if err := s.session.RefreshUser(resp.User); err != nil {
			return nil, err
		}
	}
	return resp.User, nil
}

// DeleteProfilePicture removes the current user's profile picture and
// refreshes the cached user record.
func (s *Service) DeleteProfilePicture(ctx context.Context) (*models.User, error) {
	userID := s.session.CurrentUserID()
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Log in to edit your profile")
	}
	resp, err := s.api.DeleteProfilePicture(ctx, userID)
	if err != nil {
		return nil, err
	}
	if resp.User != nil {
		if err := s.session.RefreshUser(resp.User); err != nil {
			return nil, err
		}
	}
	return resp.User, nil
}
