package models

// Like is a (user, post) like edge, unique per pair. The wire shape carries
// only the pair; the surrogate key stays server-side.
type Like struct {
	ID     uint `gorm:"primaryKey" json:"-"`
	UserID uint `gorm:"not null;uniqueIndex:idx_like_user_post" json:"user_id"`
	PostID uint `gorm:"not null;uniqueIndex:idx_like_user_post" json:"post_id"`
}

// TableName specifies the table name for GORM.
func (Like) TableName() string {
	return "likes"
}
