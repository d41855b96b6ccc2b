package engagement

import (
	"context"
	"sync"
	"time"

	"github.com/pinlens/backend/internal/metrics"
	"github.com/pinlens/backend/internal/pubsub"
	"go.uber.org/zap"
)

// Options configures one Service instance.
type Options struct {
	// ViewerID identifies the caller. Empty means unauthenticated: reads
	// work (without OwnReaction), mutations are refused.
	ViewerID string

	// Reader is the raw batched read path; the service wraps it with
	// request deduplication.
	Reader BatchReader

	// Sender is the mutation write path.
	Sender MutationSender

	// Broker carries invalidation and notification events.
	Broker pubsub.Broker

	PollInterval    time.Duration
	DispatchTimeout time.Duration

	Logger *zap.Logger

	// OnUpdate fires after any snapshot change: optimistic delta, rollback,
	// or authoritative reconciliation. exists is false when the photo was
	// found to be deleted and its entry cleared.
	OnUpdate func(photoID string, snap Snapshot, exists bool)

	// OnMutationError fires when a dispatched mutation fails, after the
	// rollback has been applied. The error is recoverable from the caller's
	// perspective.
	OnMutationError func(photoID string, err error)
}

// Service is the engagement engine for one viewer scope (a feed, a photo
// detail view, a connected device). It owns an optimistic cache, a
// deduplicated read path, an invalidation listener, and a fallback poller,
// all constructed explicitly so scopes are isolated and testable.
type Service struct {
	viewerID   string
	cache      *Cache
	dedup      *Deduplicator
	dispatcher *Dispatcher
	fanout     *Fanout
	listener   *Listener
	poller     *Poller
	log        *zap.Logger

	onUpdate        func(string, Snapshot, bool)
	onMutationError func(string, error)

	mu      sync.Mutex
	refs    map[string]int
	started bool

	readTimeout time.Duration
}

// NewService constructs a stopped service. Call Start before use.
func NewService(opts Options) *Service {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Service{
		viewerID:        opts.ViewerID,
		cache:           NewCache(),
		dedup:           NewDeduplicator(opts.Reader),
		dispatcher:      NewDispatcher(opts.Sender, opts.DispatchTimeout, log),
		fanout:          NewFanout(opts.Broker, log),
		log:             log,
		onUpdate:        opts.OnUpdate,
		onMutationError: opts.OnMutationError,
		refs:            make(map[string]int),
		readTimeout:     10 * time.Second,
	}
	s.listener = NewListener(opts.Broker, s, log)
	s.poller = NewPoller(s, opts.PollInterval, log)
	return s
}

// Start launches the fallback poller. The listener attaches topics lazily as
// photos are subscribed.
func (s *Service) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.poller.Start()
}

// Stop tears down the poller and every listener subscription.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.poller.Stop()
	s.listener.Close()
}

// Subscribe registers interest in photoIDs: each id gets a reference-counted
// invalidation subscription and an initial authoritative read. The returned
// func releases the references; topics are torn down when the last renderer
// of a photo lets go.
func (s *Service) Subscribe(photoIDs []string) func() {
	ids := FilterIDs(photoIDs)
	if len(ids) == 0 {
		return func() {}
	}

	fresh := make([]string, 0, len(ids))
	s.mu.Lock()
	for _, id := range ids {
		s.refs[id]++
		if s.refs[id] == 1 {
			fresh = append(fresh, id)
		}
	}
	s.mu.Unlock()

	for _, id := range fresh {
		if err := s.listener.Watch(id); err != nil {
			s.log.Warn("Failed to watch photo topic",
				zap.String("photo_id", id),
				zap.Error(err),
			)
		}
	}

	// Prime the cache so renderers have counts without waiting for a poll.
	go s.Reconcile(ids...)

	var once sync.Once
	return func() {
		once.Do(func() { s.release(ids) })
	}
}

func (s *Service) release(ids []string) {
	var dead []string
	s.mu.Lock()
	for _, id := range ids {
		if s.refs[id] == 0 {
			continue
		}
		s.refs[id]--
		if s.refs[id] == 0 {
			delete(s.refs, id)
			dead = append(dead, id)
		}
	}
	s.mu.Unlock()

	for _, id := range dead {
		s.listener.Unwatch(id)
	}
}

// WatchedIDs returns every photo id currently subscribed.
func (s *Service) WatchedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.refs))
	for id := range s.refs {
		ids = append(ids, id)
	}
	return ids
}

// HasPending reports whether photoID has an unresolved optimistic mutation.
func (s *Service) HasPending(photoID string) bool {
	return s.cache.HasPending(photoID)
}

// Snapshot returns the current cached snapshot for photoID.
func (s *Service) Snapshot(photoID string) (Snapshot, bool) {
	return s.cache.Snapshot(photoID)
}

// DedupStats exposes read-coalescing counters for observability.
func (s *Service) DedupStats() DedupStats {
	return s.dedup.Stats()
}

// Reconcile re-reads ids from the store and installs the results, respecting
// the pending-mutation guard. A transport failure leaves the cache untouched:
// stale-but-consistent beats partially applied.
func (s *Service) Reconcile(ids ...string) {
	ids = FilterIDs(ids)
	if len(ids) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.readTimeout)
	defer cancel()

	result, err := s.dedup.ReadBatch(ctx, ids, s.viewerID)
	if err != nil {
		s.log.Warn("Batch read failed, keeping cached snapshots",
			zap.Int("ids", len(ids)),
			zap.Error(err),
		)
		return
	}

	for _, id := range ids {
		snap, ok := result[id]
		if !ok {
			// The photo no longer exists; a zeroed-but-present entry would
			// read as "no reactions" rather than "gone".
			if s.cache.Drop(id) {
				s.notifyUpdate(id, Snapshot{}, false)
			}
			continue
		}
		if s.cache.ApplyAuthoritative(id, snap) {
			s.notifyUpdate(id, snap, true)
		}
	}
}

// Mutate applies the viewer's desired reaction (nil removes) optimistically
// and dispatches it asynchronously. The call never blocks on the network.
func (s *Service) Mutate(ctx context.Context, photoID string, target *ReactionKind) error {
	if s.viewerID == "" {
		return ErrUnauthenticated
	}
	if target != nil && !target.Valid() {
		return ErrUnknownKind
	}

	snap, dispatch, err := s.cache.BeginMutation(photoID, target)
	if err != nil {
		return err
	}
	if !dispatch {
		// Already in the desired state.
		return nil
	}

	s.notifyUpdate(photoID, snap, true)

	// The dispatch outlives the caller's request context on purpose: the UI
	// treats Mutate as fire-and-forget.
	go s.completeMutation(context.WithoutCancel(ctx), photoID, target)
	return nil
}

func (s *Service) completeMutation(ctx context.Context, photoID string, target *ReactionKind) {
	res, err := s.dispatcher.Dispatch(ctx, photoID, s.viewerID, target)
	if err != nil {
		restored, _ := s.cache.Resolve(photoID, false)
		metrics.Get().RollbacksTotal.Inc()
		s.notifyUpdate(photoID, restored, true)
		if s.onMutationError != nil {
			s.onMutationError(photoID, err)
		}
		return
	}

	// Success: the optimistic value stands as authoritative.
	s.cache.Resolve(photoID, true)

	s.fanout.PublishInvalidation(ctx, photoID)
	if res != nil && target != nil {
		s.fanout.PublishReaction(ctx, photoID, s.viewerID, res.OwnerID, *target, res.ActorDisplayName, res.ContentHint)
	}
}

func (s *Service) notifyUpdate(photoID string, snap Snapshot, exists bool) {
	if s.onUpdate != nil {
		s.onUpdate(photoID, snap, exists)
	}
}
