// Package renderer paints a live view of the pipeline's in-flight and
// recently finalized commits to the terminal. It keeps only a bounded,
// coalesced window of rows — older finalized commits scroll off, not
// because they're forgotten but because the terminal isn't a log.
package renderer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/GovCraft/ntangler/internal/bus"
	"github.com/GovCraft/ntangler/internal/pipeline"
)

// maxRows bounds how many distinct files the view tracks at once.
const maxRows = 10

// Config configures a Renderer. Out defaults to os.Stdout; nil means
// the default.
type Config struct {
	Out    io.Writer
	Logger *slog.Logger
}

// Renderer subscribes to the pipeline's bus events and repaints a
// fixed region of the terminal every time one of this file's rows
// changes stage.
type Renderer struct {
	bus    *bus.Bus
	logger *slog.Logger
	out    io.Writer
	styles styles
	tty    bool

	mu        sync.Mutex
	rows      []pipeline.PipelineEvent
	lastPaint int // number of data lines printed by the previous paint
}

// New constructs a Renderer. It does not subscribe or paint until Run
// is called.
func New(b *bus.Bus, cfg Config) *Renderer {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	tty := isTerminal(cfg.Out)
	s := plainStyles()
	if tty {
		s = defaultStyles()
	}

	return &Renderer{
		bus:    b,
		logger: cfg.Logger.With("component", "renderer"),
		out:    cfg.Out,
		styles: s,
		tty:    tty,
	}
}

// isTerminal reports whether w is a TTY file descriptor. Non-file
// writers (buffers, pipes captured in tests) are never TTYs.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

// Run subscribes to the pipeline bus and repaints on every update
// until ctx is cancelled. If ready is non-nil, it is closed once every
// subscription above is in place — callers that publish events the
// Renderer must not miss (SystemStarted) should wait on it first,
// since bus.Publish only reaches subscribers already registered.
func (r *Renderer) Run(ctx context.Context, ready chan<- struct{}) {
	started, unsubStart := bus.Subscribe[pipeline.SystemStarted](r.bus, 1)
	defer unsubStart()
	changes, unsubChange := bus.Subscribe[pipeline.FileChangeDetected](r.bus, 64)
	defer unsubChange()
	queued, unsubQueued := bus.Subscribe[pipeline.DiffQueued](r.bus, 64)
	defer unsubQueued()
	finalized, unsubFinal := bus.Subscribe[pipeline.FinalizedCommit](r.bus, 64)
	defer unsubFinal()

	if ready != nil {
		close(ready)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-started:
			r.printHeader()
		case evt := <-changes:
			r.upsert(pipeline.NewPending(evt.RepoNickname, evt.Path, time.Now().UTC()))
		case evt := <-queued:
			r.upsert(pipeline.NewGenerating(evt.RepoNickname, evt.TargetFile, time.Now().UTC()))
		case evt := <-finalized:
			r.upsert(pipeline.NewFinalized(evt))
		}
	}
}

// upsert coalesces evt into the tracked row set by its stable ID,
// replacing an existing row in place or pushing a new one to the
// front, then repaints.
func (r *Renderer) upsert(evt pipeline.PipelineEvent) {
	r.mu.Lock()
	replaced := false
	for i, existing := range r.rows {
		if existing.ID == evt.ID {
			r.rows[i] = evt
			replaced = true
			break
		}
	}
	if !replaced {
		r.rows = append([]pipeline.PipelineEvent{evt}, r.rows...)
		if len(r.rows) > maxRows {
			r.rows = r.rows[:maxRows]
		}
	}
	rows := make([]pipeline.PipelineEvent, len(r.rows))
	copy(rows, r.rows)
	r.mu.Unlock()

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].When.After(rows[j].When) })
	r.paint(rows)
}

func (r *Renderer) printHeader() {
	if !r.tty {
		fmt.Fprintln(r.out, "ntangler watching")
		return
	}
	fmt.Fprintln(r.out, r.styles.title.Render("ntangler"))
}

// paint redraws the dynamic row region. On a TTY it moves the cursor
// back up over the previous paint and clears to the end of the
// screen before printing; otherwise it appends one line per update,
// since there is no fixed region to repaint in a log stream.
func (r *Renderer) paint(rows []pipeline.PipelineEvent) {
	if !r.tty {
		if len(rows) > 0 {
			fmt.Fprintln(r.out, formatRow(rows[0], r.styles))
		}
		return
	}

	var b strings.Builder
	if r.lastPaint > 0 {
		fmt.Fprintf(&b, "\x1b[%dA\x1b[J", r.lastPaint)
	}
	for _, row := range rows {
		b.WriteString(formatRow(row, r.styles))
		b.WriteByte('\n')
	}
	r.lastPaint = len(rows)
	fmt.Fprint(r.out, b.String())
}

// placeholder fills the Oid column for rows that haven't reached
// Finalized yet; those rows show a dash in the semver column and the
// stage label in place of the header.
const placeholder = "-------"

func formatRow(e pipeline.PipelineEvent, s styles) string {
	ts := e.When.Format("15:04:05")
	repo := s.repo.Render(e.RepoNickname)
	file := s.file.Render(e.TargetFile)

	if e.Stage != pipeline.Finalized {
		label := s.pending.Render(e.Stage.String())
		return fmt.Sprintf("%s  [%s]  %s  %-5s  %s  %s", repo, ts, placeholder, "-", file, label)
	}

	oid := e.Oid
	if len(oid) > 7 {
		oid = oid[:7]
	}
	impact := e.CommitMessage.SemverImpact()
	return fmt.Sprintf("%s  [%s]  %s  %s  %s  %s",
		repo, ts,
		s.oid.Render(oid),
		s.semver(impact).Render(fmt.Sprintf("%-5s", impact.String())),
		file,
		s.header.Render(e.CommitMessage.Header()),
	)
}
