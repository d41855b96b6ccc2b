// Package handlers exposes the HTTP surface: batched engagement reads,
// reaction writes, view recording, and the WebSocket upgrade.
package handlers

import (
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pinlens/backend/internal/auth"
	"github.com/pinlens/backend/internal/engagement"
	apierrors "github.com/pinlens/backend/internal/errors"
	"github.com/pinlens/backend/internal/metrics"
	"github.com/pinlens/backend/internal/store"
)

// Handlers bundles the dependencies shared by all HTTP endpoints.
type Handlers struct {
	store  *store.Store
	dedup  *engagement.Deduplicator
	fanout *engagement.Fanout
	log    *zap.Logger
}

// New creates the handler set. The deduplicator is shared across all HTTP
// callers so identical concurrent batch reads collapse server-side too.
func New(st *store.Store, fanout *engagement.Fanout, log *zap.Logger) *Handlers {
	return &Handlers{
		store:  st,
		dedup:  engagement.NewDeduplicator(st),
		fanout: fanout,
		log:    log,
	}
}

type countsRequest struct {
	PhotoIDs []string `json:"photo_ids" binding:"required"`
}

type countsEntry struct {
	Exists   bool                 `json:"exists"`
	Snapshot *engagement.Snapshot `json:"snapshot,omitempty"`
}

// GetCounts handles POST /api/engagement/counts. One round trip returns the
// snapshot for every requested photo; ids missing from the result were
// deleted. OwnReaction is populated only for authenticated callers.
func (h *Handlers) GetCounts(c *gin.Context) {
	var req countsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.BadRequest("invalid request body"))
		return
	}

	ids := engagement.FilterIDs(req.PhotoIDs)
	if len(ids) == 0 {
		respondError(c, apierrors.ValidationError("photo_ids", "at least one photo id is required"))
		return
	}

	viewerID := c.GetString(auth.ContextUserIDKey)

	m := metrics.Get()
	start := time.Now()
	snapshots, err := h.dedup.ReadBatch(c.Request.Context(), ids, viewerID)
	duration := time.Since(start).Seconds()

	if err != nil {
		m.BatchReadsTotal.WithLabelValues("error").Inc()
		m.BatchReadDuration.WithLabelValues("error").Observe(duration)
		respondError(c, err)
		return
	}
	m.BatchReadsTotal.WithLabelValues("success").Inc()
	m.BatchReadDuration.WithLabelValues("success").Observe(duration)
	m.BatchReadSize.WithLabelValues("success").Observe(float64(len(ids)))

	results := make(map[string]countsEntry, len(ids))
	for _, id := range ids {
		if snap, ok := snapshots[id]; ok {
			s := snap
			results[id] = countsEntry{Exists: true, Snapshot: &s}
		} else {
			results[id] = countsEntry{Exists: false}
		}
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

type reactionRequest struct {
	Kind string `json:"kind" binding:"required"`
}

// SetReaction handles POST /api/photos/:id/reaction. Setting the same kind
// twice is a no-op at the store level; changing kind replaces the previous
// reaction in place.
func (h *Handlers) SetReaction(c *gin.Context) {
	photoID := c.Param("id")
	userID := c.GetString(auth.ContextUserIDKey)

	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apierrors.BadRequest("invalid request body"))
		return
	}

	kind, ok := engagement.ParseKind(req.Kind)
	if !ok {
		respondError(c, apierrors.ValidationError("kind", "unknown reaction kind"))
		return
	}

	m := metrics.Get()
	result, err := h.store.UpsertReaction(c.Request.Context(), photoID, userID, kind)
	if err != nil {
		m.MutationsTotal.WithLabelValues("upsert", "error").Inc()
		respondError(c, err)
		return
	}
	m.MutationsTotal.WithLabelValues("upsert", "success").Inc()

	// Best effort; never fails the request
	h.fanout.PublishInvalidation(c.Request.Context(), photoID)
	h.fanout.PublishReaction(c.Request.Context(), photoID, userID, result.OwnerID, kind, result.ActorDisplayName, result.ContentHint)
	m.FanoutPublishes.WithLabelValues(string(kind)).Inc()

	c.JSON(http.StatusOK, gin.H{"photo_id": photoID, "kind": string(kind)})
}

// RemoveReaction handles DELETE /api/photos/:id/reaction. Removing when no
// reaction exists succeeds without effect.
func (h *Handlers) RemoveReaction(c *gin.Context) {
	photoID := c.Param("id")
	userID := c.GetString(auth.ContextUserIDKey)

	m := metrics.Get()
	if _, err := h.store.RemoveReaction(c.Request.Context(), photoID, userID); err != nil {
		m.MutationsTotal.WithLabelValues("remove", "error").Inc()
		respondError(c, err)
		return
	}
	m.MutationsTotal.WithLabelValues("remove", "success").Inc()

	h.fanout.PublishInvalidation(c.Request.Context(), photoID)

	c.JSON(http.StatusOK, gin.H{"photo_id": photoID})
}

// RecordView handles POST /api/photos/:id/view. Views are anonymous and
// fire-and-forget from the client's perspective.
func (h *Handlers) RecordView(c *gin.Context) {
	photoID := c.Param("id")

	if err := h.store.RecordView(c.Request.Context(), photoID); err != nil {
		respondError(c, err)
		return
	}

	h.fanout.PublishInvalidation(c.Request.Context(), photoID)

	c.JSON(http.StatusOK, gin.H{"photo_id": photoID})
}

// DedupStats handles GET /api/engagement/stats, a small operational endpoint.
func (h *Handlers) DedupStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.dedup.Stats())
}

// respondError maps domain errors onto HTTP responses.
func respondError(c *gin.Context, err error) {
	var apiErr *apierrors.APIError
	if stderrors.As(err, &apiErr) {
		c.JSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	switch {
	case stderrors.Is(err, engagement.ErrEmptyBatch):
		respondError(c, apierrors.ValidationError("photo_ids", "at least one photo id is required"))
	case stderrors.Is(err, engagement.ErrUnknownKind):
		respondError(c, apierrors.ValidationError("kind", "unknown reaction kind"))
	default:
		respondError(c, apierrors.InternalError("unexpected error"))
	}
}
