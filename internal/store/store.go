// Package store is the authoritative aggregate store for engagement state:
// batched count reads and transactional reaction writes. It is the
// consistency source of truth the optimistic cache reconciles against.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pinlens/backend/internal/engagement"
	apierrors "github.com/pinlens/backend/internal/errors"
	"github.com/pinlens/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements engagement.BatchReader and engagement.MutationSender over
// the relational database.
type Store struct {
	db *gorm.DB
}

// New creates a store over db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ReadBatch returns engagement snapshots for every photo in photoIDs that
// exists. Photos with no reactions get all-zero counts; OwnReaction is set
// only when viewerID is non-empty and has a reaction row. Requested ids
// missing from the result are deleted photos.
func (s *Store) ReadBatch(ctx context.Context, photoIDs []string, viewerID string) (map[string]engagement.Snapshot, error) {
	if len(photoIDs) == 0 {
		return nil, engagement.ErrEmptyBatch
	}

	type photoRow struct {
		ID        string
		ViewCount int64
	}
	var photos []photoRow
	err := s.db.WithContext(ctx).
		Model(&models.Photo{}).
		Select("id", "view_count").
		Where("id IN ?", photoIDs).
		Find(&photos).Error
	if err != nil {
		return nil, apierrors.TransportFailure("photo lookup", err)
	}

	result := make(map[string]engagement.Snapshot, len(photos))
	existing := make([]string, 0, len(photos))
	for _, p := range photos {
		snap := engagement.NewSnapshot()
		snap.ViewCount = p.ViewCount
		result[p.ID] = snap
		existing = append(existing, p.ID)
	}
	if len(existing) == 0 {
		return result, nil
	}

	type countRow struct {
		PhotoID string
		Kind    string
		N       int64
	}
	var counts []countRow
	err = s.db.WithContext(ctx).
		Model(&models.Reaction{}).
		Select("photo_id", "kind", "COUNT(*) AS n").
		Where("photo_id IN ?", existing).
		Group("photo_id").
		Group("kind").
		Scan(&counts).Error
	if err != nil {
		return nil, apierrors.TransportFailure("reaction count read", err)
	}
	for _, row := range counts {
		kind, ok := engagement.ParseKind(row.Kind)
		if !ok {
			continue
		}
		if snap, ok := result[row.PhotoID]; ok {
			snap.Counts[kind] = row.N
			result[row.PhotoID] = snap
		}
	}

	if viewerID != "" {
		type ownRow struct {
			PhotoID string
			Kind    string
		}
		var own []ownRow
		err = s.db.WithContext(ctx).
			Model(&models.Reaction{}).
			Select("photo_id", "kind").
			Where("photo_id IN ? AND user_id = ?", existing, viewerID).
			Scan(&own).Error
		if err != nil {
			return nil, apierrors.TransportFailure("own reaction read", err)
		}
		for _, row := range own {
			kind, ok := engagement.ParseKind(row.Kind)
			if !ok {
				continue
			}
			if snap, ok := result[row.PhotoID]; ok {
				k := kind
				snap.OwnReaction = &k
				result[row.PhotoID] = snap
			}
		}
	}

	return result, nil
}

// UpsertReaction creates or replaces userID's reaction on photoID.
func (s *Store) UpsertReaction(ctx context.Context, photoID, userID string, kind engagement.ReactionKind) (*engagement.MutationResult, error) {
	if userID == "" {
		return nil, apierrors.Unauthorized("reaction requires an authenticated user")
	}
	if !kind.Valid() {
		return nil, apierrors.ValidationError("kind", "unknown reaction kind")
	}

	var result *engagement.MutationResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		photo, actor, err := s.lookupPhotoAndActor(tx, photoID, userID)
		if err != nil {
			return err
		}

		reaction := models.Reaction{
			ID:      uuid.NewString(),
			PhotoID: photoID,
			UserID:  userID,
			Kind:    string(kind),
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "photo_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "updated_at"}),
		}).Create(&reaction).Error
		if err != nil {
			return apierrors.TransportFailure("reaction upsert", err)
		}

		result = &engagement.MutationResult{
			OwnerID:          photo.UserID,
			ActorDisplayName: actor.DisplayName,
			ContentHint:      photo.Caption,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveReaction deletes userID's reaction on photoID. Removing a reaction
// that does not exist is not an error.
func (s *Store) RemoveReaction(ctx context.Context, photoID, userID string) (*engagement.MutationResult, error) {
	if userID == "" {
		return nil, apierrors.Unauthorized("reaction requires an authenticated user")
	}

	var result *engagement.MutationResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		photo, actor, err := s.lookupPhotoAndActor(tx, photoID, userID)
		if err != nil {
			return err
		}

		err = tx.Where("photo_id = ? AND user_id = ?", photoID, userID).
			Delete(&models.Reaction{}).Error
		if err != nil {
			return apierrors.TransportFailure("reaction delete", err)
		}

		result = &engagement.MutationResult{
			OwnerID:          photo.UserID,
			ActorDisplayName: actor.DisplayName,
			ContentHint:      photo.Caption,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordView bumps the denormalized view counter for photoID. Views are
// counted server-side, never optimistically.
func (s *Store) RecordView(ctx context.Context, photoID string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Photo{}).
		Where("id = ?", photoID).
		UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	if res.Error != nil {
		return apierrors.TransportFailure("view increment", res.Error)
	}
	if res.RowsAffected == 0 {
		return apierrors.NotFound("photo")
	}
	return nil
}

func (s *Store) lookupPhotoAndActor(tx *gorm.DB, photoID, userID string) (*models.Photo, *models.User, error) {
	var photo models.Photo
	err := tx.Select("id", "user_id", "caption").First(&photo, "id = ?", photoID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apierrors.NotFound("photo")
		}
		return nil, nil, apierrors.TransportFailure("photo lookup", err)
	}

	var actor models.User
	err = tx.Select("id", "display_name").First(&actor, "id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apierrors.NotFound("user")
		}
		return nil, nil, apierrors.TransportFailure("user lookup", err)
	}

	return &photo, &actor, nil
}
