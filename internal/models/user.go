// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user account as returned by the Vibio API.
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Name             string         `gorm:"not null" json:"name"`
	Username         string         `gorm:"unique" json:"username"`
	Email            string         `gorm:"unique;not null" json:"email"`
	Password         string         `gorm:"not null" json:"-"`
	Bio              string         `json:"bio"`
	ProfilePicture   string         `json:"profile_picture"`
	ConfirmationCode string         `json:"-"`
	EmailVerifiedAt  *time.Time     `json:"email_verified_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	Posts     []Post     `gorm:"foreignKey:UserID" json:"posts,omitempty"`
	Followers []Follower `gorm:"foreignKey:FollowedUserID" json:"followers,omitempty"`
}

// Verified reports whether the account finished email confirmation.
func (u *User) Verified() bool {
	return u.EmailVerifiedAt != nil
}
