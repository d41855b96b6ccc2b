package engagement

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/pinlens/backend/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// Deduplicator collapses concurrent batch reads for an identical id set into
// a single in-flight call. The key covers the viewer too, since OwnReaction
// differs per viewer. A superset of an in-flight id set is a distinct request
// on purpose: partial reuse could hand a waiter a stale subset silently.
type Deduplicator struct {
	reader BatchReader
	group  singleflight.Group

	// Stats counters, readable via DedupStats.
	issued    atomic.Int64
	coalesced atomic.Int64
}

// DedupStats is a point-in-time view of deduplicator activity.
type DedupStats struct {
	Issued    int64 `json:"issued"`
	Coalesced int64 `json:"coalesced"`
}

// NewDeduplicator wraps reader with in-flight request coalescing.
func NewDeduplicator(reader BatchReader) *Deduplicator {
	return &Deduplicator{reader: reader}
}

// DedupKey is the canonical key for a batch read: the sorted, comma-joined id
// set, scoped by viewer.
func DedupKey(photoIDs []string, viewerID string) string {
	sorted := make([]string, len(photoIDs))
	copy(sorted, photoIDs)
	sort.Strings(sorted)
	return viewerID + "\x00" + strings.Join(sorted, ",")
}

// ReadBatch issues the read, or attaches to an identical in-flight one. All
// waiters receive the same result; the shared map must be treated as
// read-only by callers.
func (d *Deduplicator) ReadBatch(ctx context.Context, photoIDs []string, viewerID string) (map[string]Snapshot, error) {
	ids := FilterIDs(photoIDs)
	if len(ids) == 0 {
		return nil, ErrEmptyBatch
	}

	key := DedupKey(ids, viewerID)
	issuedHere := false
	res, err, shared := d.group.Do(key, func() (interface{}, error) {
		issuedHere = true
		d.issued.Add(1)
		return d.reader.ReadBatch(ctx, ids, viewerID)
	})
	// shared is also true for the caller that issued the read; only the
	// callers that attached to it count as coalesced.
	if shared && !issuedHere {
		d.coalesced.Add(1)
		metrics.Get().DedupCoalescedTotal.Inc()
	}
	if err != nil {
		return nil, err
	}
	return res.(map[string]Snapshot), nil
}

// Stats returns how many reads were actually issued and how many callers were
// coalesced onto an in-flight read.
func (d *Deduplicator) Stats() DedupStats {
	return DedupStats{
		Issued:    d.issued.Load(),
		Coalesced: d.coalesced.Load(),
	}
}
