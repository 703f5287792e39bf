package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GovCraft/ntangler/internal/bus"
	"github.com/GovCraft/ntangler/internal/llm"
	"github.com/GovCraft/ntangler/internal/pipeline"
)

type fakeClient struct {
	response string
	err      error
}

func (f *fakeClient) Chat(ctx context.Context, model string, messages []llm.Message) (*llm.ChatResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Message: llm.Message{Role: "assistant", Content: f.response}, Done: true}, nil
}

func (f *fakeClient) ChatStream(ctx context.Context, model string, messages []llm.Message, cb llm.StreamCallback) (*llm.ChatResponse, error) {
	return f.Chat(ctx, model, messages)
}

const validJSON = `{"type":"fix","scope":"parser","description":"handle trailing comma","body":"fixes it","breaking":false,"footers":[]}`

func TestHandleSuccessSendsCommitMessageGenerated(t *testing.T) {
	g := New(bus.New(), Config{Client: &fakeClient{response: validJSON}, Model: "test-model"})

	reply := make(chan pipeline.CommitMessageGenerated, 1)
	g.handle(context.Background(), pipeline.DiffQueued{
		Diff:         "--- a\n+++ b\n",
		TargetFile:   "src/a.rs",
		RepoNickname: "demo",
		ReplyTo:      reply,
	})

	select {
	case got := <-reply:
		if got.TargetFile != "src/a.rs" || got.CommitMessage.Type != "fix" {
			t.Errorf("got %+v", got)
		}
	default:
		t.Fatal("expected a CommitMessageGenerated reply")
	}
}

func TestHandleLLMErrorAbandonsAttempt(t *testing.T) {
	g := New(bus.New(), Config{Client: &fakeClient{err: errors.New("network down")}, Model: "test-model"})

	reply := make(chan pipeline.CommitMessageGenerated, 1)
	g.handle(context.Background(), pipeline.DiffQueued{TargetFile: "src/a.rs", ReplyTo: reply})

	select {
	case got := <-reply:
		t.Fatalf("expected no reply after an LLM error, got %+v", got)
	default:
	}
}

func TestHandleParseFailureAbandonsAttempt(t *testing.T) {
	g := New(bus.New(), Config{Client: &fakeClient{response: "not json"}, Model: "test-model"})

	reply := make(chan pipeline.CommitMessageGenerated, 1)
	g.handle(context.Background(), pipeline.DiffQueued{TargetFile: "src/a.rs", ReplyTo: reply})

	select {
	case got := <-reply:
		t.Fatalf("expected no reply after a parse failure, got %+v", got)
	default:
	}
}

func TestHandleEmptyResponseAbandonsAttempt(t *testing.T) {
	g := New(bus.New(), Config{Client: &fakeClient{response: ""}, Model: "test-model"})

	reply := make(chan pipeline.CommitMessageGenerated, 1)
	g.handle(context.Background(), pipeline.DiffQueued{TargetFile: "src/a.rs", ReplyTo: reply})

	select {
	case got := <-reply:
		t.Fatalf("expected no reply for an empty response, got %+v", got)
	default:
	}
}

func TestRunRoutesReplyToQueuedEventsChannel(t *testing.T) {
	b := bus.New()
	g := New(b, Config{Client: &fakeClient{response: validJSON}, Model: "test-model", Concurrency: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ready := make(chan struct{})
	go g.Run(ctx, ready)
	<-ready

	reply := make(chan pipeline.CommitMessageGenerated, 1)
	bus.Publish(b, pipeline.DiffQueued{
		Diff:         "diff",
		TargetFile:   "src/a.rs",
		RepoNickname: "demo",
		ReplyTo:      reply,
	})

	select {
	case got := <-reply:
		if got.TargetFile != "src/a.rs" {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for reply")
	}
}

func TestNewDefaultsConcurrency(t *testing.T) {
	g := New(bus.New(), Config{Client: &fakeClient{}})
	if cap(g.sem) != DefaultConcurrencyPerRepo {
		t.Errorf("concurrency = %d, want default %d", cap(g.sem), DefaultConcurrencyPerRepo)
	}
}
