// Package orchestrator wires the bus, repo workers, generator, poller,
// and renderer into one running system and owns its graceful shutdown.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GovCraft/ntangler/internal/bus"
	"github.com/GovCraft/ntangler/internal/config"
	"github.com/GovCraft/ntangler/internal/generator"
	"github.com/GovCraft/ntangler/internal/llm"
	"github.com/GovCraft/ntangler/internal/pipeline"
	"github.com/GovCraft/ntangler/internal/poller"
	"github.com/GovCraft/ntangler/internal/renderer"
	"github.com/GovCraft/ntangler/internal/repoworker"
)

// drainTimeout bounds how long Run waits for in-flight work to settle
// after ctx is cancelled before returning.
const drainTimeout = 5 * time.Second

// Orchestrator owns the bus and every long-lived component subscribed
// to it. Construct with New, then call Run.
type Orchestrator struct {
	cfg    *config.Config
	client llm.Client
	logger *slog.Logger

	bus       *bus.Bus
	poller    *poller.Poller
	generator *generator.Generator
	renderer  *renderer.Renderer
	workers   []*repoworker.RepoWorker
}

// New opens a RepoWorker for every configured repository and wires up
// the poller, generator, and renderer. Returns an error if any
// repository fails to open.
func New(cfg *config.Config, client llm.Client, logger *slog.Logger) (*Orchestrator, error) {
	if logger == nil {
		logger = slog.Default()
	}

	b := bus.New()

	workers := make([]*repoworker.RepoWorker, 0, len(cfg.Repositories))
	for _, desc := range cfg.Repositories {
		w, err := repoworker.Open(desc, b, logger)
		if err != nil {
			return nil, fmt.Errorf("open repository %q: %w", desc.Nickname, err)
		}
		workers = append(workers, w)
	}

	gen := generator.New(b, generator.Config{
		Client:      client,
		Model:       cfg.Model,
		Concurrency: generator.DefaultConcurrencyPerRepo * len(cfg.Repositories),
		Logger:      logger,
	})

	interval := time.Duration(cfg.PollInterval) * time.Second
	p := poller.New(b, interval, logger)

	r := renderer.New(b, renderer.Config{Logger: logger})

	return &Orchestrator{
		cfg: cfg, client: client, logger: logger.With("component", "orchestrator"),
		bus: b, poller: p, generator: gen, renderer: r, workers: workers,
	}, nil
}

// Run starts every bus-subscribing component, waits for each to finish
// subscribing, then starts the Poller and publishes SystemStarted.
// Blocks until ctx is cancelled, then gives in-flight work up to
// drainTimeout to settle before returning.
//
// The wait matters: bus.Publish only reaches subscribers already
// registered at the moment it's called, so publishing SystemStarted
// (or letting the Poller publish a PollTick) before every subscriber
// has reached its bus.Subscribe call would silently drop that event
// for whichever goroutine the scheduler hadn't run yet.
func (o *Orchestrator) Run(ctx context.Context) {
	var wg sync.WaitGroup
	var readyChans []chan struct{}

	spawn := func(run func(context.Context, chan<- struct{})) {
		ready := make(chan struct{})
		readyChans = append(readyChans, ready)
		wg.Add(1)
		go func() { defer wg.Done(); run(ctx, ready) }()
	}

	spawn(o.renderer.Run)
	spawn(o.generator.Run)
	for _, w := range o.workers {
		spawn(w.Run)
	}

	for _, ready := range readyChans {
		select {
		case <-ready:
		case <-ctx.Done():
			wg.Wait()
			return
		}
	}

	wg.Add(1)
	go func() { defer wg.Done(); o.poller.Start(ctx) }()

	bus.Publish(o.bus, pipeline.SystemStarted{})
	o.logger.Info("started", "repositories", len(o.workers), "poll_interval_seconds", o.cfg.PollInterval)

	<-ctx.Done()
	o.logger.Info("shutting down, draining in-flight work", "timeout", drainTimeout)

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		o.logger.Warn("drain timeout elapsed, exiting with work still in flight")
	}
}
