package engagement

import (
	"sync"
	"time"
)

// Cache is the optimistic in-memory mapping from photo id to engagement
// snapshot. User actions mutate it immediately, before server confirmation;
// the pre-mutation snapshot is kept for rollback. While a mutation is pending
// for a photo, authoritative updates for that photo are refused so a stale
// server read cannot visually revert the user's own change.
//
// Contention is partitioned by photo id in practice, but the map itself is
// guarded by one mutex; no caller holds it across a network call.
type Cache struct {
	mu      sync.Mutex
	entries map[string]Snapshot
	pending map[string]*PendingMutation
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]Snapshot),
		pending: make(map[string]*PendingMutation),
	}
}

// Snapshot returns a copy of the cached snapshot for id.
func (c *Cache) Snapshot(id string) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap, ok := c.entries[id]
	if !ok {
		return Snapshot{}, false
	}
	return snap.Clone(), true
}

// HasPending reports whether an optimistic mutation is unresolved for id.
func (c *Cache) HasPending(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[id]
	return ok
}

// ApplyAuthoritative installs a server snapshot for id. Returns false without
// touching the entry when a mutation is pending, which is the reconciliation
// guard the listener and poller depend on.
func (c *Cache) ApplyAuthoritative(id string, snap Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[id]; busy {
		return false
	}
	c.entries[id] = snap.Clone()
	return true
}

// Drop removes the cache entry for id, used when reconciliation learns the
// photo no longer exists. Refused while a mutation is pending, same as
// ApplyAuthoritative.
func (c *Cache) Drop(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.pending[id]; busy {
		return false
	}
	delete(c.entries, id)
	return true
}

// BeginMutation applies the optimistic delta for a reaction change and marks
// the photo pending. target nil means removal.
//
// Returns the post-delta snapshot and whether a dispatch is actually needed:
// selecting the reaction the viewer already has (or removing one that is not
// set) is a no-op and must not reach the store. A second change while one is
// pending returns ErrMutationPending.
func (c *Cache) BeginMutation(id string, target *ReactionKind) (Snapshot, bool, error) {
	if target != nil && !target.Valid() {
		return Snapshot{}, false, ErrUnknownKind
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.pending[id]; busy {
		return Snapshot{}, false, ErrMutationPending
	}

	current, ok := c.entries[id]
	if !ok {
		current = NewSnapshot()
	}

	// Idempotence check before entering Pending.
	if target == nil && current.OwnReaction == nil {
		return current.Clone(), false, nil
	}
	if target != nil && current.OwnReaction != nil && *current.OwnReaction == *target {
		return current.Clone(), false, nil
	}

	before := current.Clone()
	next := current.Clone()

	if next.OwnReaction != nil {
		prev := *next.OwnReaction
		if next.Counts[prev] > 0 {
			next.Counts[prev]--
		}
	}
	if target != nil {
		k := *target
		next.Counts[k]++
		next.OwnReaction = &k
	} else {
		next.OwnReaction = nil
	}

	c.entries[id] = next
	c.pending[id] = &PendingMutation{
		Target:      target,
		Before:      before,
		SubmittedAt: time.Now().UTC(),
	}

	return next.Clone(), true, nil
}

// Resolve completes the pending mutation for id. On success the optimistic
// value stands as authoritative; on failure the entry is restored exactly to
// the pre-mutation snapshot. Either way the pending marker is cleared so the
// listener and poller may resume updating this photo.
func (c *Cache) Resolve(id string, success bool) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pm, ok := c.pending[id]
	if !ok {
		return Snapshot{}, false
	}
	delete(c.pending, id)

	if !success {
		c.entries[id] = pm.Before.Clone()
	}
	return c.entries[id].Clone(), true
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
