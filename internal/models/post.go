package models

import (
	"time"

	"gorm.io/gorm"
)

// Post represents a feed post. The API embeds the author under the "users"
// key and ships the full like and comment collections with every post.
type Post struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Title     string         `json:"title"`
	Body      string         `gorm:"type:text" json:"body"`
	Image     string         `json:"image"`
	UserID    uint           `gorm:"not null;index" json:"user_id"`
	User      User           `gorm:"foreignKey:UserID" json:"users"`
	Likes     []Like         `gorm:"foreignKey:PostID" json:"likes"`
	Comments  []Comment      `gorm:"foreignKey:PostID" json:"comments"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
