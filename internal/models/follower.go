package models

import "time"

// Follower is a directed follow edge, unique per (follower, followed) pair.
type Follower struct {
	ID             uint      `gorm:"primaryKey" json:"-"`
	FollowerID     uint      `gorm:"not null;uniqueIndex:idx_follower_pair" json:"follower_id"`
	FollowedUserID uint      `gorm:"not null;uniqueIndex:idx_follower_pair" json:"followed_user_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Follower) TableName() string {
	return "followers"
}
