package models

import "time"

// Comment represents a comment on a post. The API serves comments as one
// global collection; scoping to a post happens client-side on PostID.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	PostID    uint      `gorm:"not null;index" json:"post_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	User      User      `gorm:"foreignKey:UserID" json:"users"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
