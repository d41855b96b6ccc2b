package models

import (
	"time"
)

// Reaction is one user's reaction to one photo. At most one row exists per
// (user, photo) pair; changing the reaction kind updates the row in place.
// Per-photo counts are always derived by aggregating this table, never
// denormalized, so the batched read path is the single source of truth.
type Reaction struct {
	ID      string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	PhotoID string `gorm:"not null;uniqueIndex:idx_reactions_photo_user;index" json:"photo_id"`
	UserID  string `gorm:"not null;uniqueIndex:idx_reactions_photo_user" json:"user_id"`

	// Kind is one of "like", "heart", "wow", "haha"
	Kind string `gorm:"not null;size:16" json:"kind"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (Reaction) TableName() string {
	return "reactions"
}
