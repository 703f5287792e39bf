package renderer

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GovCraft/ntangler/internal/bus"
	"github.com/GovCraft/ntangler/internal/model"
	"github.com/GovCraft/ntangler/internal/pipeline"
)

// syncBuffer lets the test goroutine poll output that the renderer's
// own goroutine is concurrently writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

func TestIsTerminalFalseForBuffer(t *testing.T) {
	var buf bytes.Buffer
	r := New(bus.New(), Config{Out: &buf})
	if r.tty {
		t.Error("expected a bytes.Buffer to never be reported as a terminal")
	}
}

func TestUpsertCoalescesByID(t *testing.T) {
	var buf bytes.Buffer
	r := New(bus.New(), Config{Out: &buf})

	now := time.Now().UTC()
	r.upsert(pipeline.NewPending("demo", "a.rs", now))
	r.upsert(pipeline.NewGenerating("demo", "a.rs", now.Add(time.Second)))

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rows) != 1 {
		t.Fatalf("rows = %d, want 1 (same file should coalesce)", len(r.rows))
	}
	if r.rows[0].Stage != pipeline.Generating {
		t.Errorf("stage = %v, want Generating", r.rows[0].Stage)
	}
}

func TestUpsertDistinguishesDifferentFiles(t *testing.T) {
	var buf bytes.Buffer
	r := New(bus.New(), Config{Out: &buf})

	now := time.Now().UTC()
	r.upsert(pipeline.NewPending("demo", "a.rs", now))
	r.upsert(pipeline.NewPending("demo", "b.rs", now))

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(r.rows))
	}
}

func TestUpsertDropsOldestBeyondCap(t *testing.T) {
	var buf bytes.Buffer
	r := New(bus.New(), Config{Out: &buf})

	base := time.Now().UTC()
	for i := 0; i < maxRows+3; i++ {
		r.upsert(pipeline.NewPending("demo", string(rune('a'+i)), base.Add(time.Duration(i)*time.Second)))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.rows) != maxRows {
		t.Fatalf("rows = %d, want capped at %d", len(r.rows), maxRows)
	}
}

func TestFormatRowFinalizedIncludesHeaderAndShortOid(t *testing.T) {
	evt := pipeline.NewFinalized(pipeline.FinalizedCommit{
		When:         time.Now(),
		TargetFile:   "src/a.rs",
		RepoNickname: "demo",
		Oid:          "0123456789abcdef0123456789abcdef01234567",
		CommitMessage: model.CommitMessage{
			Type:        "fix",
			Description: "handle trailing comma",
		},
	})

	line := formatRow(evt, plainStyles())
	if !strings.Contains(line, "0123456") {
		t.Errorf("line = %q, want the 7-char short oid", line)
	}
	if !strings.Contains(line, "fix: handle trailing comma") {
		t.Errorf("line = %q, want the rendered header", line)
	}
	if !strings.Contains(line, "PATCH") {
		t.Errorf("line = %q, want the PATCH semver label", line)
	}
}

func TestFormatRowPendingUsesPlaceholders(t *testing.T) {
	evt := pipeline.NewPending("demo", "src/a.rs", time.Now())
	line := formatRow(evt, plainStyles())
	if !strings.Contains(line, "Pending") {
		t.Errorf("line = %q, want the Pending label", line)
	}
	if !strings.Contains(line, placeholder) {
		t.Errorf("line = %q, want the oid placeholder", line)
	}
}

func TestRunPaintsOnBusEvents(t *testing.T) {
	buf := &syncBuffer{}
	b := bus.New()
	r := New(b, Config{Out: buf})

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	go r.Run(ctx, ready)
	<-ready

	bus.Publish(b, pipeline.SystemStarted{})
	bus.Publish(b, pipeline.FileChangeDetected{RepoNickname: "demo", Path: "src/a.rs"})

	deadline := time.After(time.Second)
	for {
		if strings.Contains(buf.String(), "src/a.rs") {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for the renderer to paint the pending row")
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
}
