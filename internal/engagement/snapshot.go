// Package engagement implements the aggregation and consistency engine for
// per-photo reaction state: batched authoritative reads, optimistic local
// mutations with rollback, push invalidation, and a polling fallback.
package engagement

import "time"

// ReactionKind is one of the fixed engagement types a user can put on a photo.
type ReactionKind string

const (
	KindLike  ReactionKind = "like"
	KindHeart ReactionKind = "heart"
	KindWow   ReactionKind = "wow"
	KindHaha  ReactionKind = "haha"
)

// Kinds lists every valid reaction kind in display order.
var Kinds = []ReactionKind{KindLike, KindHeart, KindWow, KindHaha}

// Valid reports whether k is a known reaction kind.
func (k ReactionKind) Valid() bool {
	switch k {
	case KindLike, KindHeart, KindWow, KindHaha:
		return true
	}
	return false
}

// ParseKind converts a wire string to a ReactionKind.
func ParseKind(s string) (ReactionKind, bool) {
	k := ReactionKind(s)
	return k, k.Valid()
}

// Snapshot is the engagement state of one photo as seen by one viewer:
// aggregate reaction counts, the view count, and the viewer's own reaction
// (nil when the viewer is unauthenticated or has not reacted).
type Snapshot struct {
	Counts      map[ReactionKind]int64 `json:"counts"`
	ViewCount   int64                  `json:"view_count"`
	OwnReaction *ReactionKind          `json:"own_reaction,omitempty"`
}

// NewSnapshot returns a snapshot with every count present and zero.
func NewSnapshot() Snapshot {
	counts := make(map[ReactionKind]int64, len(Kinds))
	for _, k := range Kinds {
		counts[k] = 0
	}
	return Snapshot{Counts: counts}
}

// Clone returns a deep copy. Rollback correctness depends on the saved
// pre-mutation snapshot being independent of the live cache entry.
func (s Snapshot) Clone() Snapshot {
	counts := make(map[ReactionKind]int64, len(s.Counts))
	for k, v := range s.Counts {
		counts[k] = v
	}
	var own *ReactionKind
	if s.OwnReaction != nil {
		k := *s.OwnReaction
		own = &k
	}
	return Snapshot{Counts: counts, ViewCount: s.ViewCount, OwnReaction: own}
}

// Equal reports whether two snapshots carry identical state.
func (s Snapshot) Equal(other Snapshot) bool {
	if s.ViewCount != other.ViewCount {
		return false
	}
	if (s.OwnReaction == nil) != (other.OwnReaction == nil) {
		return false
	}
	if s.OwnReaction != nil && *s.OwnReaction != *other.OwnReaction {
		return false
	}
	for _, k := range Kinds {
		if s.Counts[k] != other.Counts[k] {
			return false
		}
	}
	return true
}

// PendingMutation records an optimistic reaction change that has been applied
// locally but not yet confirmed by the store. At most one exists per photo.
type PendingMutation struct {
	// Target is the desired reaction, nil for removal.
	Target *ReactionKind
	// Before is the snapshot to restore if the dispatch fails.
	Before Snapshot
	// SubmittedAt is when the optimistic delta was applied.
	SubmittedAt time.Time
}
