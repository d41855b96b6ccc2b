package seed

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/pinlens/backend/internal/models"
)

// setupSeedDB builds an in-memory SQLite schema. Ids default to random hex
// because SQLite has no gen_random_uuid().
func setupSeedDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	for _, ddl := range []string{
		`CREATE TABLE users (
			id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			email TEXT NOT NULL,
			username TEXT NOT NULL,
			display_name TEXT NOT NULL,
			bio TEXT,
			avatar_url TEXT,
			is_active INTEGER DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE photos (
			id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			user_id TEXT NOT NULL,
			image_url TEXT NOT NULL,
			thumbnail_url TEXT,
			caption TEXT,
			latitude REAL,
			longitude REAL,
			place_name TEXT,
			is_public INTEGER DEFAULT 1,
			view_count INTEGER DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE reactions (
			id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			photo_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME,
			UNIQUE (photo_id, user_id)
		)`,
		`CREATE TABLE comments (
			id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			photo_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE plans (
			id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(16)))),
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			is_public INTEGER DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE plan_photos (
			plan_id TEXT NOT NULL,
			photo_id TEXT NOT NULL,
			PRIMARY KEY (plan_id, photo_id)
		)`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func TestSeedTestPopulatesTables(t *testing.T) {
	db := setupSeedDB(t)
	s := NewSeeder(db)

	require.NoError(t, s.SeedTest())

	var users, photos, reactions int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Photo{}).Count(&photos).Error)
	require.NoError(t, db.Model(&models.Reaction{}).Count(&reactions).Error)
	assert.Equal(t, int64(5), users)
	assert.Equal(t, int64(10), photos)
	assert.Greater(t, reactions, int64(0))
	assert.LessOrEqual(t, reactions, int64(20))
}

func TestSeededPhotosCarryImageURLs(t *testing.T) {
	db := setupSeedDB(t)
	s := NewSeeder(db)

	require.NoError(t, s.SeedTest())

	var seeded []models.Photo
	require.NoError(t, db.Find(&seeded).Error)
	require.NotEmpty(t, seeded)
	for _, photo := range seeded {
		assert.NotEmpty(t, photo.ID)
		assert.True(t, strings.HasPrefix(photo.ImageURL, "https://picsum.photos/seed/"), photo.ImageURL)
		assert.True(t, strings.HasPrefix(photo.ThumbnailURL, "https://picsum.photos/seed/"), photo.ThumbnailURL)
	}
}

func TestCleanRemovesSeedData(t *testing.T) {
	db := setupSeedDB(t)
	s := NewSeeder(db)

	require.NoError(t, s.SeedTest())
	require.NoError(t, s.Clean())

	for _, model := range []interface{}{&models.User{}, &models.Photo{}, &models.Reaction{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Equal(t, int64(0), count)
	}
}
