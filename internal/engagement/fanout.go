package engagement

import (
	"context"
	"time"

	"github.com/pinlens/backend/internal/pubsub"
	"go.uber.org/zap"
)

// Fanout publishes best-effort signals after a confirmed mutation: an
// invalidation on the photo topic so other viewers re-read, and a
// human-readable notification on the owner's topic. Publish failure is logged
// and swallowed; it must never fail or roll back the mutation itself.
type Fanout struct {
	broker pubsub.Broker
	log    *zap.Logger
}

// NewFanout creates a fan-out publisher.
func NewFanout(broker pubsub.Broker, log *zap.Logger) *Fanout {
	return &Fanout{broker: broker, log: log}
}

// PublishInvalidation signals every listener on photoID's topic to re-read.
func (f *Fanout) PublishInvalidation(ctx context.Context, photoID string) {
	ev := pubsub.Event{
		Type:      pubsub.EventInvalidate,
		PhotoID:   photoID,
		Timestamp: time.Now().UTC(),
	}
	if err := f.broker.Publish(ctx, pubsub.PhotoTopic(photoID), ev); err != nil {
		f.log.Warn("Failed to publish invalidation",
			zap.String("photo_id", photoID),
			zap.Error(err),
		)
	}
}

// PublishReaction notifies the photo owner that actor reacted. A no-op when
// the actor reacts to their own photo, or when the owner is unknown.
func (f *Fanout) PublishReaction(ctx context.Context, photoID, actorID, ownerID string, kind ReactionKind, actorName, contentHint string) {
	if ownerID == "" || ownerID == actorID {
		return
	}

	ev := pubsub.Event{
		Type:        pubsub.EventReaction,
		PhotoID:     photoID,
		ActorName:   actorName,
		Kind:        string(kind),
		ContentHint: contentHint,
		Timestamp:   time.Now().UTC(),
	}
	if err := f.broker.Publish(ctx, pubsub.UserTopic(ownerID), ev); err != nil {
		f.log.Warn("Failed to publish reaction notification",
			zap.String("photo_id", photoID),
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
	}
}
