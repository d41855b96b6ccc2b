package engagement

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/pinlens/backend/internal/metrics"
)

func TestPollerReconcilesWatchedIDs(t *testing.T) {
	target := newFakeTarget()
	target.watched = []string{"p1", "p2"}
	runsBefore := testutil.ToFloat64(metrics.Get().PollerRunsTotal)

	poller := NewPoller(target, 10*time.Millisecond, zap.NewNop())
	poller.Start()
	defer poller.Stop()

	got := map[string]bool{}
	timeout := time.After(time.Second)
	for len(got) < 2 {
		select {
		case id := <-target.notify:
			got[id] = true
		case <-timeout:
			t.Fatalf("poller never reconciled both ids, saw %v", got)
		}
	}
	assert.True(t, got["p1"] && got["p2"])
	assert.Greater(t, testutil.ToFloat64(metrics.Get().PollerRunsTotal), runsBefore)
}

func TestPollerSkipsPendingIDs(t *testing.T) {
	target := newFakeTarget()
	target.watched = []string{"p1", "p2"}
	target.pending["p1"] = true

	poller := NewPoller(target, 10*time.Millisecond, zap.NewNop())
	poller.Start()
	defer poller.Stop()

	select {
	case id := <-target.notify:
		assert.Equal(t, "p2", id, "pending ids must be excluded from the poll batch")
	case <-time.After(time.Second):
		t.Fatal("poller never ran")
	}
}

func TestPollerStartStopIdempotent(t *testing.T) {
	target := newFakeTarget()
	poller := NewPoller(target, time.Hour, zap.NewNop())

	poller.Start()
	poller.Start()
	poller.Stop()
	poller.Stop()
}

func TestPollerDefaultInterval(t *testing.T) {
	poller := NewPoller(newFakeTarget(), 0, zap.NewNop())
	assert.Equal(t, DefaultPollInterval, poller.interval)
}
