package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/GovCraft/ntangler/internal/config"
	"github.com/GovCraft/ntangler/internal/llm"
)

type fakeClient struct{}

func (fakeClient) Chat(ctx context.Context, model string, messages []llm.Message) (*llm.ChatResponse, error) {
	return nil, errors.New("no network access in tests")
}

func (f fakeClient) ChatStream(ctx context.Context, model string, messages []llm.Message, cb llm.StreamCallback) (*llm.ChatResponse, error) {
	return f.Chat(ctx, model, messages)
}

// initRepo creates a minimal on-disk git repository with one commit,
// returning its path.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := wt.Add("README.md"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	sig := &object.Signature{Name: "tester", Email: "tester@example.com", When: time.Now()}
	if _, err := wt.Commit("initial commit", &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return dir
}

func TestNewOpensEveryConfiguredRepository(t *testing.T) {
	dir := initRepo(t)
	cfg := &config.Config{
		Repositories: []config.RepositoryDescriptor{{Nickname: "demo", Path: dir}},
		PollInterval: 10,
		Model:        "test-model",
	}

	o, err := New(cfg, fakeClient{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(o.workers) != 1 {
		t.Errorf("workers = %d, want 1", len(o.workers))
	}
	if got := o.generator.Concurrency(); got != 3 {
		t.Errorf("generator concurrency = %d, want 3 (DefaultConcurrencyPerRepo * 1 repo)", got)
	}
}

func TestNewFailsForMissingRepository(t *testing.T) {
	cfg := &config.Config{
		Repositories: []config.RepositoryDescriptor{{Nickname: "demo", Path: "/nonexistent/path"}},
		PollInterval: 10,
	}

	if _, err := New(cfg, fakeClient{}, nil); err == nil {
		t.Error("expected an error opening a nonexistent repository")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	dir := initRepo(t)
	cfg := &config.Config{
		Repositories: []config.RepositoryDescriptor{{Nickname: "demo", Path: dir}},
		PollInterval: 10,
		Model:        "test-model",
	}
	o, err := New(cfg, fakeClient{}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { o.Run(ctx); close(done) }()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}
