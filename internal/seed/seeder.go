// Package seed fills the database with fake data for development and tests.
package seed

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"gorm.io/gorm"

	"github.com/pinlens/backend/internal/engagement"
	"github.com/pinlens/backend/internal/logger"
	"github.com/pinlens/backend/internal/models"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	_ = gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	log := func(msg string) {
		logger.Log.Info(msg)
	}

	log("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	log("Creating photos...")
	photos, err := s.seedPhotos(users, 300)
	if err != nil {
		return fmt.Errorf("failed to seed photos: %w", err)
	}

	log("Creating reactions...")
	if err := s.seedReactions(users, photos, 1500); err != nil {
		return fmt.Errorf("failed to seed reactions: %w", err)
	}

	log("Creating comments...")
	if err := s.seedComments(users, photos, 600); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	log("Creating plans...")
	if err := s.seedPlans(users, photos, 40); err != nil {
		return fmt.Errorf("failed to seed plans: %w", err)
	}

	return nil
}

// SeedTest seeds the test database with a small fixed data set
func (s *Seeder) SeedTest() error {
	users, err := s.seedUsers(5)
	if err != nil {
		return fmt.Errorf("failed to seed test users: %w", err)
	}

	photos, err := s.seedPhotos(users, 10)
	if err != nil {
		return fmt.Errorf("failed to seed test photos: %w", err)
	}

	if err := s.seedReactions(users, photos, 20); err != nil {
		return fmt.Errorf("failed to seed test reactions: %w", err)
	}

	return nil
}

// Clean removes all seed data. Order respects foreign keys.
func (s *Seeder) Clean() error {
	tables := []string{"plan_photos", "plans", "comments", "reactions", "photos", "users"}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clean %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		username := fmt.Sprintf("%s%d", gofakeit.Username(), i)
		user := models.User{
			Email:       fmt.Sprintf("%d.%s", i, gofakeit.Email()),
			Username:    username,
			DisplayName: gofakeit.Name(),
			Bio:         gofakeit.Sentence(8),
			AvatarURL:   fmt.Sprintf("https://api.dicebear.com/7.x/avataaars/png?seed=%s", username),
			IsActive:    true,
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedPhotos(users []models.User, count int) ([]models.Photo, error) {
	photos := make([]models.Photo, 0, count)
	for i := 0; i < count; i++ {
		owner := users[gofakeit.Number(0, len(users)-1)]
		imageSeed := gofakeit.LetterN(12)
		photo := models.Photo{
			UserID:       owner.ID,
			ImageURL:     fmt.Sprintf("https://picsum.photos/seed/%s/1200/900", imageSeed),
			ThumbnailURL: fmt.Sprintf("https://picsum.photos/seed/%s/300/225", imageSeed),
			Caption:      gofakeit.Sentence(gofakeit.Number(3, 12)),
			Latitude:     gofakeit.Latitude(),
			Longitude:    gofakeit.Longitude(),
			PlaceName:    gofakeit.City(),
			IsPublic:     gofakeit.Number(0, 9) > 0,
			ViewCount:    int64(gofakeit.Number(0, 5000)),
		}
		if err := s.db.Create(&photo).Error; err != nil {
			return nil, err
		}
		photos = append(photos, photo)
	}
	return photos, nil
}

func (s *Seeder) seedReactions(users []models.User, photos []models.Photo, count int) error {
	kinds := engagement.Kinds
	created := 0
	// Random (user, photo) pairs collide with the unique index occasionally;
	// oversample attempts instead of tracking pairs
	for attempts := 0; created < count && attempts < count*3; attempts++ {
		user := users[gofakeit.Number(0, len(users)-1)]
		photo := photos[gofakeit.Number(0, len(photos)-1)]
		reaction := models.Reaction{
			PhotoID: photo.ID,
			UserID:  user.ID,
			Kind:    string(kinds[gofakeit.Number(0, len(kinds)-1)]),
		}
		result := s.db.Where("photo_id = ? AND user_id = ?", photo.ID, user.ID).
			FirstOrCreate(&reaction)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			created++
		}
	}
	return nil
}

func (s *Seeder) seedComments(users []models.User, photos []models.Photo, count int) error {
	for i := 0; i < count; i++ {
		comment := models.Comment{
			PhotoID: photos[gofakeit.Number(0, len(photos)-1)].ID,
			UserID:  users[gofakeit.Number(0, len(users)-1)].ID,
			Content: gofakeit.Sentence(gofakeit.Number(5, 20)),
		}
		if err := s.db.Create(&comment).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedPlans(users []models.User, photos []models.Photo, count int) error {
	for i := 0; i < count; i++ {
		owner := users[gofakeit.Number(0, len(users)-1)]

		attached := make([]models.Photo, 0, 6)
		for j := 0; j < gofakeit.Number(2, 6); j++ {
			attached = append(attached, photos[gofakeit.Number(0, len(photos)-1)])
		}

		plan := models.Plan{
			UserID:      owner.ID,
			Title:       fmt.Sprintf("%s in %s", gofakeit.HipsterWord(), gofakeit.City()),
			Description: gofakeit.Sentence(10),
			IsPublic:    true,
			Photos:      attached,
		}
		if err := s.db.Create(&plan).Error; err != nil {
			return err
		}
	}
	return nil
}
