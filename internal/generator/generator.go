// Package generator turns a queued diff into a Conventional-Commits
// message by calling an LLM. Each call is circuit-broken and
// deadlined; a dropped call is never retried here — the RepoWorker
// that owns the file will rediscover it on its next poll.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/GovCraft/ntangler/internal/bus"
	"github.com/GovCraft/ntangler/internal/llm"
	"github.com/GovCraft/ntangler/internal/model"
	"github.com/GovCraft/ntangler/internal/pipeline"
	"github.com/GovCraft/ntangler/internal/prompts"
)

// callDeadline bounds every one of the three generation steps.
const callDeadline = 10 * time.Second

// DefaultConcurrencyPerRepo is the number of in-flight LLM calls
// permitted per configured repository when no override is given.
const DefaultConcurrencyPerRepo = 3

// Config configures a Generator.
type Config struct {
	Client      llm.Client
	Model       string
	Concurrency int // total in-flight call budget across all repositories
	Logger      *slog.Logger
}

// Generator is stateless per call; it holds only its LLM client handle
// and the machinery (semaphore, breakers) shared across calls.
type Generator struct {
	bus    *bus.Bus
	client llm.Client
	model  string
	logger *slog.Logger

	sem chan struct{}

	// One breaker per generation step, matching spec's three
	// individually-broken LLM calls. The first two steps are local
	// bookkeeping (thread allocation, message assembly) for the
	// Anthropic single-call API this client wraps; only the third
	// performs network I/O, but all three are wrapped uniformly so a
	// future multi-call provider slots in without restructuring.
	threadBreaker  *gobreaker.CircuitBreaker
	messageBreaker *gobreaker.CircuitBreaker
	runBreaker     *gobreaker.CircuitBreaker
}

// New constructs a Generator. It does not subscribe to DiffQueued until
// Run is called.
func New(b *bus.Bus, cfg Config) *Generator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrencyPerRepo
	}

	return &Generator{
		bus:            b,
		client:         cfg.Client,
		model:          cfg.Model,
		logger:         cfg.Logger.With("component", "generator"),
		sem:            make(chan struct{}, cfg.Concurrency),
		threadBreaker:  newBreaker("generator-thread"),
		messageBreaker: newBreaker("generator-message"),
		runBreaker:     newBreaker("generator-run"),
	}
}

// Concurrency returns the configured in-flight call budget.
func (g *Generator) Concurrency() int {
	return cap(g.sem)
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// Run subscribes to DiffQueued and handles each concurrently, bounded
// by the configured semaphore, until ctx is cancelled. If ready is
// non-nil, it is closed once the subscription is in place — callers
// publishing DiffQueued events the Generator must not miss should wait
// on it first, since bus.Publish only reaches subscribers already
// registered.
func (g *Generator) Run(ctx context.Context, ready chan<- struct{}) {
	diffs, unsubscribe := bus.Subscribe[pipeline.DiffQueued](g.bus, 32)
	defer unsubscribe()

	if ready != nil {
		close(ready)
	}

	g.logger.Debug("started", "concurrency", cap(g.sem))

	for {
		select {
		case <-ctx.Done():
			g.logger.Debug("stopped")
			return
		case evt := <-diffs:
			select {
			case g.sem <- struct{}{}:
				go func() {
					defer func() { <-g.sem }()
					g.handle(ctx, evt)
				}()
			case <-ctx.Done():
				return
			}
		}
	}
}

// conversation is the local accumulator the first two steps build up
// before the third step actually talks to the model.
type conversation struct {
	messages []llm.Message
}

func (g *Generator) handle(ctx context.Context, evt pipeline.DiffQueued) {
	logger := g.logger.With("repo", evt.RepoNickname, "file", evt.TargetFile)

	thread, err := g.allocateThread(ctx)
	if err != nil {
		logger.Warn("thread allocation unavailable, abandoning attempt", "error", err)
		return
	}

	thread, err = g.postDiff(ctx, thread, evt.Diff)
	if err != nil {
		logger.Warn("message assembly unavailable, abandoning attempt", "error", err)
		return
	}

	text, err := g.streamRun(ctx, thread)
	if err != nil {
		logger.Warn("generation call failed, abandoning attempt", "error", err)
		return
	}
	if text == "" {
		logger.Warn("empty response, dropping")
		return
	}

	commitMessage, err := model.ParseCommitMessage([]byte(text))
	if err != nil {
		logger.Error("failed to parse commit message", "error", err, "response", text)
		return
	}

	select {
	case evt.ReplyTo <- pipeline.CommitMessageGenerated{TargetFile: evt.TargetFile, CommitMessage: commitMessage}:
	case <-ctx.Done():
	}
}

// allocateThread is the first of the three generation steps: in the
// Assistants-style API this spec is modeled on it creates a
// conversation thread; against the single-call Anthropic API it wraps,
// it just seeds the local accumulator — kept as its own
// circuit-broken, deadlined step for parity with spec.md §4.4.
func (g *Generator) allocateThread(ctx context.Context) (conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, callDeadline)
	defer cancel()

	result, err := g.threadBreaker.Execute(func() (interface{}, error) {
		return conversation{messages: []llm.Message{{Role: "system", Content: ""}}}, ctx.Err()
	})
	if err != nil {
		return conversation{}, err
	}
	return result.(conversation), nil
}

// postDiff is the second step: posts the diff as a user message onto
// the thread.
func (g *Generator) postDiff(ctx context.Context, thread conversation, diff string) (conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, callDeadline)
	defer cancel()

	result, err := g.messageBreaker.Execute(func() (interface{}, error) {
		if ctx.Err() != nil {
			return conversation{}, ctx.Err()
		}
		messages := append(append([]llm.Message(nil), thread.messages...),
			llm.Message{Role: "user", Content: prompts.CommitMessagePrompt(diff)})
		return conversation{messages: messages}, nil
	})
	if err != nil {
		return conversation{}, err
	}
	return result.(conversation), nil
}

// streamRun is the third step and the only one that performs network
// I/O: it opens a streaming completion against the configured model
// and accumulates the response text.
func (g *Generator) streamRun(ctx context.Context, thread conversation) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callDeadline)
	defer cancel()

	result, err := g.runBreaker.Execute(func() (interface{}, error) {
		resp, err := g.client.ChatStream(ctx, g.model, thread.messages, func(string) {})
		if err != nil {
			return "", fmt.Errorf("generate commit message: %w", err)
		}
		return resp.Message.Content, nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}
