package engagement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinlens/backend/internal/metrics"
	"github.com/pinlens/backend/internal/pubsub"
)

// stubReader serves canned snapshots.
type stubReader struct {
	mu    sync.Mutex
	snaps map[string]Snapshot
	err   error
}

func (r *stubReader) ReadBatch(ctx context.Context, photoIDs []string, viewerID string) (map[string]Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string]Snapshot, len(photoIDs))
	for _, id := range photoIDs {
		if snap, ok := r.snaps[id]; ok {
			out[id] = snap.Clone()
		}
	}
	return out, nil
}

func (r *stubReader) set(id string, snap Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.snaps == nil {
		r.snaps = make(map[string]Snapshot)
	}
	r.snaps[id] = snap
}

// stubSender records mutations and signals completion.
type stubSender struct {
	mu      sync.Mutex
	upserts []string
	removes []string
	err     error
	result  MutationResult
	done    chan struct{}
}

func newStubSender() *stubSender {
	return &stubSender{done: make(chan struct{}, 16)}
}

func (s *stubSender) UpsertReaction(ctx context.Context, photoID, userID string, kind ReactionKind) (*MutationResult, error) {
	s.mu.Lock()
	s.upserts = append(s.upserts, photoID)
	err := s.err
	res := s.result
	s.mu.Unlock()
	s.done <- struct{}{}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *stubSender) RemoveReaction(ctx context.Context, photoID, userID string) (*MutationResult, error) {
	s.mu.Lock()
	s.removes = append(s.removes, photoID)
	err := s.err
	res := s.result
	s.mu.Unlock()
	s.done <- struct{}{}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *stubSender) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.upserts)
}

type update struct {
	photoID string
	snap    Snapshot
	exists  bool
}

// updateRecorder captures OnUpdate callbacks.
type updateRecorder struct {
	mu      sync.Mutex
	updates []update
}

func (u *updateRecorder) record(photoID string, snap Snapshot, exists bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.updates = append(u.updates, update{photoID, snap, exists})
}

func (u *updateRecorder) last() (update, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.updates) == 0 {
		return update{}, false
	}
	return u.updates[len(u.updates)-1], true
}

func (u *updateRecorder) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.updates)
}

func newTestService(t *testing.T, viewerID string, reader *stubReader, sender *stubSender, rec *updateRecorder) (*Service, *pubsub.MemoryBroker) {
	t.Helper()
	broker := pubsub.NewMemoryBroker()

	opts := Options{
		ViewerID:     viewerID,
		Reader:       reader,
		Sender:       sender,
		Broker:       broker,
		PollInterval: time.Hour, // keep the poller quiet during tests
	}
	if rec != nil {
		opts.OnUpdate = rec.record
	}

	svc := NewService(opts)
	svc.Start()
	t.Cleanup(svc.Stop)
	return svc, broker
}

func TestMutateUnauthenticated(t *testing.T) {
	reader := &stubReader{}
	sender := newStubSender()
	rec := &updateRecorder{}
	svc, _ := newTestService(t, "", reader, sender, rec)

	err := svc.Mutate(context.Background(), "p1", kindPtr(KindLike))
	assert.ErrorIs(t, err, ErrUnauthenticated)
	assert.Equal(t, 0, sender.upsertCount(), "unauthenticated mutation must not dispatch")
	assert.Equal(t, 0, rec.count(), "unauthenticated mutation must not change snapshots")
}

func TestMutateOptimisticThenConfirmed(t *testing.T) {
	reader := &stubReader{}
	sender := newStubSender()
	sender.result = MutationResult{OwnerID: "owner", ActorDisplayName: "Viewer"}
	rec := &updateRecorder{}
	svc, broker := newTestService(t, "viewer", reader, sender, rec)

	var invalidations []pubsub.Event
	var invMu sync.Mutex
	unsub, err := broker.Subscribe(pubsub.PhotoTopic("p1"), func(ev pubsub.Event) {
		invMu.Lock()
		invalidations = append(invalidations, ev)
		invMu.Unlock()
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, svc.Mutate(context.Background(), "p1", kindPtr(KindLike)))

	// Optimistic update is visible immediately
	got, ok := rec.last()
	require.True(t, ok)
	assert.Equal(t, "p1", got.photoID)
	assert.Equal(t, int64(1), got.snap.Counts[KindLike])

	<-sender.done
	require.Eventually(t, func() bool { return !svc.HasPending("p1") },
		time.Second, 5*time.Millisecond)

	snap, ok := svc.Snapshot("p1")
	require.True(t, ok)
	assert.Equal(t, int64(1), snap.Counts[KindLike])

	require.Eventually(t, func() bool {
		invMu.Lock()
		defer invMu.Unlock()
		return len(invalidations) == 1
	}, time.Second, 5*time.Millisecond)
	invMu.Lock()
	assert.Equal(t, pubsub.EventInvalidate, invalidations[0].Type)
	invMu.Unlock()
}

func TestMutateFailureRollsBack(t *testing.T) {
	reader := &stubReader{}
	sender := newStubSender()
	sender.err = errors.New("store down")
	rec := &updateRecorder{}

	var mutErr error
	var mutMu sync.Mutex
	broker := pubsub.NewMemoryBroker()
	svc := NewService(Options{
		ViewerID:     "viewer",
		Reader:       reader,
		Sender:       sender,
		Broker:       broker,
		PollInterval: time.Hour,
		OnUpdate:     rec.record,
		OnMutationError: func(photoID string, err error) {
			mutMu.Lock()
			mutErr = err
			mutMu.Unlock()
		},
	})
	svc.Start()
	defer svc.Stop()

	rollbacksBefore := testutil.ToFloat64(metrics.Get().RollbacksTotal)
	require.NoError(t, svc.Mutate(context.Background(), "p1", kindPtr(KindHeart)))

	<-sender.done
	require.Eventually(t, func() bool { return !svc.HasPending("p1") },
		time.Second, 5*time.Millisecond)

	// The rollback restored the pre-mutation state: an empty snapshot
	require.Eventually(t, func() bool {
		last, ok := rec.last()
		return ok && last.snap.Counts[KindHeart] == 0
	}, time.Second, 5*time.Millisecond)

	mutMu.Lock()
	assert.Error(t, mutErr)
	mutMu.Unlock()
	assert.Equal(t, rollbacksBefore+1, testutil.ToFloat64(metrics.Get().RollbacksTotal))
}

func TestReconcileDropsDeletedPhoto(t *testing.T) {
	reader := &stubReader{}
	reader.set("p1", snapshotWith(map[ReactionKind]int64{KindLike: 4}, nil))
	sender := newStubSender()
	rec := &updateRecorder{}
	svc, _ := newTestService(t, "viewer", reader, sender, rec)

	svc.Reconcile("p1", "p2")

	snap, ok := svc.Snapshot("p1")
	require.True(t, ok)
	assert.Equal(t, int64(4), snap.Counts[KindLike])

	// p2 does not exist; no entry, and the update reported exists=false
	_, ok = svc.Snapshot("p2")
	assert.False(t, ok)
}

func TestReconcileKeepsCacheOnTransportFailure(t *testing.T) {
	reader := &stubReader{}
	reader.set("p1", snapshotWith(map[ReactionKind]int64{KindWow: 2}, nil))
	sender := newStubSender()
	svc, _ := newTestService(t, "viewer", reader, sender, nil)

	svc.Reconcile("p1")
	snap, ok := svc.Snapshot("p1")
	require.True(t, ok)

	reader.mu.Lock()
	reader.err = errors.New("network partition")
	reader.mu.Unlock()

	svc.Reconcile("p1")
	after, ok := svc.Snapshot("p1")
	require.True(t, ok)
	assert.True(t, after.Equal(snap), "a failed batch read must not clear cached snapshots")
}

func TestSubscribeRefCountsTopics(t *testing.T) {
	reader := &stubReader{}
	sender := newStubSender()
	svc, broker := newTestService(t, "viewer", reader, sender, nil)

	topic := pubsub.PhotoTopic("p1")

	release1 := svc.Subscribe([]string{"p1"})
	release2 := svc.Subscribe([]string{"p1"})
	assert.Equal(t, 1, broker.SubscriberCount(topic), "one topic subscription per photo regardless of renderers")

	release1()
	assert.Equal(t, 1, broker.SubscriberCount(topic))

	release2()
	assert.Equal(t, 0, broker.SubscriberCount(topic))

	// Releasing twice is harmless
	release2()
	assert.Equal(t, 0, broker.SubscriberCount(topic))
}

func TestMutateSameKindTwiceDispatchesOnce(t *testing.T) {
	reader := &stubReader{}
	sender := newStubSender()
	svc, _ := newTestService(t, "viewer", reader, sender, nil)

	require.NoError(t, svc.Mutate(context.Background(), "p1", kindPtr(KindLike)))
	<-sender.done
	require.Eventually(t, func() bool { return !svc.HasPending("p1") },
		time.Second, 5*time.Millisecond)

	// Same kind again: already in the desired state
	require.NoError(t, svc.Mutate(context.Background(), "p1", kindPtr(KindLike)))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, sender.upsertCount())
}
