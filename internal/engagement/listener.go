package engagement

import (
	"sync"

	"github.com/pinlens/backend/internal/metrics"
	"github.com/pinlens/backend/internal/pubsub"
	"go.uber.org/zap"
)

// reconcileTarget is the slice of the service the listener and poller act on.
type reconcileTarget interface {
	HasPending(id string) bool
	Reconcile(ids ...string)
}

// Listener subscribes to per-photo invalidation topics and triggers a
// re-read when another client changes a watched photo. Events for a photo
// with an unresolved local mutation are ignored: reconciling at that moment
// could overwrite the viewer's own optimistic change with an older server
// snapshot.
type Listener struct {
	broker pubsub.Broker
	target reconcileTarget
	log    *zap.Logger

	mu     sync.Mutex
	unsubs map[string]func()
}

// NewListener creates a listener bound to target.
func NewListener(broker pubsub.Broker, target reconcileTarget, log *zap.Logger) *Listener {
	return &Listener{
		broker: broker,
		target: target,
		log:    log,
		unsubs: make(map[string]func()),
	}
}

// Watch subscribes to photoID's invalidation topic. Idempotent.
func (l *Listener) Watch(photoID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.unsubs[photoID]; ok {
		return nil
	}

	unsub, err := l.broker.Subscribe(pubsub.PhotoTopic(photoID), func(ev pubsub.Event) {
		l.handleEvent(photoID, ev)
	})
	if err != nil {
		return err
	}
	l.unsubs[photoID] = unsub
	return nil
}

// Unwatch tears down the subscription for photoID.
func (l *Listener) Unwatch(photoID string) {
	l.mu.Lock()
	unsub, ok := l.unsubs[photoID]
	if ok {
		delete(l.unsubs, photoID)
	}
	l.mu.Unlock()

	if ok {
		unsub()
	}
}

// handleEvent reacts to one delivered invalidation.
func (l *Listener) handleEvent(photoID string, ev pubsub.Event) {
	if ev.PhotoID != "" {
		photoID = ev.PhotoID
	}
	if l.target.HasPending(photoID) {
		// The viewer's own mutation is in flight; the post-resolution state
		// already reflects this change or will be rolled back exactly.
		l.log.Debug("Ignoring invalidation for photo with pending mutation",
			zap.String("photo_id", photoID),
		)
		metrics.Get().InvalidationsTotal.WithLabelValues("skipped_pending").Inc()
		return
	}
	metrics.Get().InvalidationsTotal.WithLabelValues("reconciled").Inc()
	go l.target.Reconcile(photoID)
}

// Close unsubscribes from every watched topic.
func (l *Listener) Close() {
	l.mu.Lock()
	unsubs := make([]func(), 0, len(l.unsubs))
	for id, unsub := range l.unsubs {
		unsubs = append(unsubs, unsub)
		delete(l.unsubs, id)
	}
	l.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}
