package engagement

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pinlens/backend/internal/metrics"
	"go.uber.org/zap"
)

// pollTarget is what the poller needs from the service.
type pollTarget interface {
	reconcileTarget
	WatchedIDs() []string
}

// DefaultPollInterval is the fallback re-read cadence. The poller is an
// eventual-consistency backstop for lost push events, not the primary update
// path, so tens of seconds is deliberate.
const DefaultPollInterval = 30 * time.Second

// Poller periodically re-reads every watched photo through the batched
// reader, skipping photos with a pending mutation. A tick is skipped outright
// if the previous run has not finished.
type Poller struct {
	target   pollTarget
	interval time.Duration
	log      *zap.Logger

	stopChan  chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	busy      atomic.Bool
}

// NewPoller creates a poller over target.
func NewPoller(target pollTarget, interval time.Duration, log *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		target:   target,
		interval: interval,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Start begins the polling loop.
func (p *Poller) Start() {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return
	}
	p.isRunning = true
	p.mu.Unlock()

	p.log.Info("Starting engagement fallback poller",
		zap.Duration("interval", p.interval),
	)

	p.wg.Add(1)
	go p.loop()
}

// Stop gracefully stops the poller.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return
	}
	p.isRunning = false
	p.mu.Unlock()

	close(p.stopChan)
	p.wg.Wait()
	p.log.Info("Engagement fallback poller stopped")
}

func (p *Poller) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ticker.C:
			p.poll()
		}
	}
}

// poll re-reads all watched ids without a pending mutation. The busy flag
// prevents overlapping runs if a tick fires while a slow read is in flight.
func (p *Poller) poll() {
	if !p.busy.CompareAndSwap(false, true) {
		p.log.Debug("Skipping poll tick, previous run still in flight")
		return
	}
	defer p.busy.Store(false)

	metrics.Get().PollerRunsTotal.Inc()

	watched := p.target.WatchedIDs()
	due := make([]string, 0, len(watched))
	for _, id := range watched {
		if p.target.HasPending(id) {
			continue
		}
		due = append(due, id)
	}
	if len(due) == 0 {
		return
	}

	p.target.Reconcile(due...)
}
