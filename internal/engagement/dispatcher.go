package engagement

import (
	"context"
	"errors"
	"time"

	apierrors "github.com/pinlens/backend/internal/errors"
	"go.uber.org/zap"
)

// Dispatcher submits reaction mutations to the aggregate store under a
// bounded timeout. A dispatch that exceeds the timeout is a failure and rolls
// back; a photo must never sit in Pending forever.
type Dispatcher struct {
	sender  MutationSender
	timeout time.Duration
	log     *zap.Logger
}

// DefaultDispatchTimeout bounds a single mutation round trip.
const DefaultDispatchTimeout = 5 * time.Second

// NewDispatcher creates a dispatcher over sender.
func NewDispatcher(sender MutationSender, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{sender: sender, timeout: timeout, log: log}
}

// Dispatch sends one reaction intent. target nil removes the viewer's
// reaction. The returned MutationResult is nil on failure.
func (d *Dispatcher) Dispatch(ctx context.Context, photoID, viewerID string, target *ReactionKind) (*MutationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var (
		res *MutationResult
		err error
	)
	if target != nil {
		res, err = d.sender.UpsertReaction(ctx, photoID, viewerID, *target)
	} else {
		res, err = d.sender.RemoveReaction(ctx, photoID, viewerID)
	}

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = apierrors.Timeout("reaction dispatch")
		}
		d.log.Warn("Reaction dispatch failed",
			zap.String("photo_id", photoID),
			zap.String("user_id", viewerID),
			zap.Error(err),
		)
		return nil, err
	}
	return res, nil
}
