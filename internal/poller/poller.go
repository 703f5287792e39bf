// Package poller emits a recurring tick onto the bus, driving every
// RepoWorker's scan of its working tree.
package poller

import (
	"context"
	"log/slog"
	"time"

	"github.com/GovCraft/ntangler/internal/bus"
	"github.com/GovCraft/ntangler/internal/pipeline"
)

// DefaultInterval is used when configuration supplies no poll interval.
const DefaultInterval = 10 * time.Second

// Poller publishes a PollTick every Interval until its context is
// cancelled. It holds no state and is not retried — a tick that no
// RepoWorker reacts to in time is simply followed by the next one.
type Poller struct {
	bus      *bus.Bus
	interval time.Duration
	logger   *slog.Logger
}

// New creates a Poller publishing onto b every interval. A
// non-positive interval falls back to DefaultInterval.
func New(b *bus.Bus, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{bus: b, interval: interval, logger: logger.With("component", "poller")}
}

// Start runs the ticking loop until ctx is cancelled. It blocks; call
// it from its own goroutine.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Debug("started", "interval", p.interval)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("stopped")
			return
		case now := <-ticker.C:
			bus.Publish(p.bus, pipeline.PollTick{At: now})
		}
	}
}
