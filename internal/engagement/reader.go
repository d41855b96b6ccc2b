package engagement

import (
	"context"
	"strings"
)

// BatchReader reads authoritative engagement state for a set of photos in one
// round trip. The result contains one entry per photo that exists, with all
// counts present (zero when the photo has no reactions) and OwnReaction set
// only when viewerID identifies an authenticated caller who has reacted.
// Requested ids absent from the result no longer exist. A transport failure
// fails the whole batch; callers rely on the fallback poller for retry rather
// than re-issuing immediately.
type BatchReader interface {
	ReadBatch(ctx context.Context, photoIDs []string, viewerID string) (map[string]Snapshot, error)
}

// MutationResult carries the metadata the fan-out path needs after a
// successful reaction write, saving a second lookup round trip.
type MutationResult struct {
	OwnerID          string
	ActorDisplayName string
	ContentHint      string
}

// MutationSender submits a single reaction intent for one photo to the
// aggregate store.
type MutationSender interface {
	UpsertReaction(ctx context.Context, photoID, userID string, kind ReactionKind) (*MutationResult, error)
	RemoveReaction(ctx context.Context, photoID, userID string) (*MutationResult, error)
}

// FilterIDs drops blank and duplicate ids, preserving first-seen order. Batch
// reads must never be issued for ids the store would reject outright.
func FilterIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
