package models

import (
	"time"

	"gorm.io/gorm"
)

// Photo represents an uploaded, location-tagged photo. The media itself lives
// in external blob storage; we only keep the URL and the metadata needed for
// browsing and engagement aggregation.
type Photo struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   User   `gorm:"foreignKey:UserID" json:"user,omitempty"`

	ImageURL     string `gorm:"not null" json:"image_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Caption      string `gorm:"type:text" json:"caption"`

	// Location tag (geocoding is external; we store the resolved values)
	Latitude  float64 `gorm:"index:idx_photos_location" json:"latitude"`
	Longitude float64 `gorm:"index:idx_photos_location" json:"longitude"`
	PlaceName string  `json:"place_name,omitempty"`

	IsPublic bool `gorm:"default:true;index" json:"is_public"`

	// Denormalized view counter. Reaction counts are derived by aggregation
	// over the reactions table, views are cheap enough to keep inline.
	ViewCount int64 `gorm:"default:0" json:"view_count"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name
func (Photo) TableName() string {
	return "photos"
}
