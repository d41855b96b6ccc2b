package models

import (
	"time"

	"gorm.io/gorm"
)

// Plan groups photos around an outing or trip ("brunch spots", "Lisbon 2026").
type Plan struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	IsPublic    bool   `gorm:"default:true" json:"is_public"`

	Photos []Photo `gorm:"many2many:plan_photos;" json:"photos,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Plan) TableName() string {
	return "plans"
}
