package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment is a user comment on a photo
type Comment struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PhotoID string `gorm:"not null;index:idx_comments_photo_created" json:"photo_id"`
	UserID  string `gorm:"not null;index" json:"user_id"`
	User    User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Content string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time      `gorm:"index:idx_comments_photo_created,sort:desc" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Comment) TableName() string {
	return "comments"
}
