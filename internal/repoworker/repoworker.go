// Package repoworker drives one repository's slice of the commit
// pipeline: scanning its working tree, diffing changed files, handing
// diffs to the generator, and staging/committing the message it gets
// back. Each RepoWorker exclusively owns one git handle; every
// handler below runs from the same goroutine, so no locking is needed
// around the repository itself.
package repoworker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/GovCraft/ntangler/internal/bus"
	"github.com/GovCraft/ntangler/internal/config"
	"github.com/GovCraft/ntangler/internal/model"
	"github.com/GovCraft/ntangler/internal/pipeline"
)

const replyBufferSize = 8

// defaultSignatureName and defaultSignatureEmail are used when a
// repository's own git config carries no user identity.
const (
	defaultSignatureName  = "ntangler"
	defaultSignatureEmail = "ntangler@localhost"
)

// RepoWorker owns one repository's git handle and descriptor.
type RepoWorker struct {
	desc     config.RepositoryDescriptor
	repo     *git.Repository
	worktree *git.Worktree
	bus      *bus.Bus
	logger   *slog.Logger

	replies chan pipeline.CommitMessageGenerated
}

// Open opens the repository at desc.Path and, if desc.Branch names an
// existing local branch, checks it out. A missing branch is logged
// and non-fatal: the worker continues on the current HEAD.
func Open(desc config.RepositoryDescriptor, b *bus.Bus, logger *slog.Logger) (*RepoWorker, error) {
	repo, err := git.PlainOpen(desc.Path)
	if err != nil {
		return nil, fmt.Errorf("open repository %q at %q: %w", desc.Nickname, desc.Path, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("repository %q worktree: %w", desc.Nickname, err)
	}

	return newWorker(desc, repo, wt, b, logger), nil
}

// newWorker wires a RepoWorker around an already-opened repository and
// worktree, letting tests exercise it against an in-memory repository
// without touching disk.
func newWorker(desc config.RepositoryDescriptor, repo *git.Repository, wt *git.Worktree, b *bus.Bus, logger *slog.Logger) *RepoWorker {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "repoworker", "repo", desc.Nickname)

	w := &RepoWorker{
		desc:     desc,
		repo:     repo,
		worktree: wt,
		bus:      b,
		logger:   logger,
		replies:  make(chan pipeline.CommitMessageGenerated, replyBufferSize),
	}

	if desc.Branch != "" {
		w.checkoutBranch(desc.Branch)
	}

	return w
}

func (w *RepoWorker) checkoutBranch(branch string) {
	err := w.worktree.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(branch)})
	if err != nil {
		w.logger.Warn("branch checkout failed, continuing on current head", "branch", branch, "error", err)
	}
}

// Run serializes every handler for this repository behind one select
// loop: a PollTick drives a scan, a reply on the direct-reply channel
// drives a commit. It blocks until ctx is cancelled. If ready is
// non-nil, it is closed once the PollTick subscription is in place —
// the Poller must not start ticking until every worker has reached
// this point, since bus.Publish only reaches subscribers already
// registered.
func (w *RepoWorker) Run(ctx context.Context, ready chan<- struct{}) {
	ticks, unsubscribe := bus.Subscribe[pipeline.PollTick](w.bus, replyBufferSize)
	defer unsubscribe()

	if ready != nil {
		close(ready)
	}

	w.logger.Debug("started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("stopped")
			return
		case <-ticks:
			w.handlePoll(ctx)
		case reply := <-w.replies:
			w.handleCommitMessageGenerated(ctx, reply)
		}
	}
}

// handlePoll scans the working tree and, for each retained path,
// publishes FileChangeDetected and immediately attempts to queue a
// diff for it. Folding the FileChangeDetected handler in here (rather
// than round-tripping through the bus) avoids a RepoWorker having to
// subscribe to, and filter, a broadcast of every repository's file
// changes just to find its own.
func (w *RepoWorker) handlePoll(ctx context.Context) {
	paths, err := changedPaths(w.worktree)
	if err != nil {
		w.logger.Error("status scan failed", "error", err)
		return
	}

	for _, path := range paths {
		bus.Publish(w.bus, pipeline.FileChangeDetected{
			RepoNickname: w.desc.Nickname,
			Path:         path,
		})
		w.queueDiff(ctx, path)
	}
}

func (w *RepoWorker) queueDiff(ctx context.Context, path string) {
	diff, err := diffPath(w.repo, w.worktree, path)
	if err != nil {
		w.logger.Error("diff failed", "path", path, "error", err)
		return
	}
	if diff == "" {
		w.logger.Debug("no-op change, dropping", "path", path)
		return
	}

	bus.Publish(w.bus, pipeline.DiffQueued{
		Diff:         diff,
		TargetFile:   path,
		RepoNickname: w.desc.Nickname,
		ReplyTo:      w.replies,
	})
}

func (w *RepoWorker) handleCommitMessageGenerated(ctx context.Context, reply pipeline.CommitMessageGenerated) {
	oid, err := w.commit(reply.TargetFile, reply.CommitMessage)
	if err != nil {
		w.logger.Error("commit failed", "path", reply.TargetFile, "error", err)
		return
	}

	bus.Publish(w.bus, pipeline.FinalizedCommit{
		When:          time.Now().UTC(),
		TargetFile:    reply.TargetFile,
		RepoNickname:  w.desc.Nickname,
		Oid:           oid,
		CommitMessage: reply.CommitMessage,
	})
}

// commit stages exactly path, commits it with the repository's own
// signature, and returns the resulting object id as 40 lowercase hex
// characters.
func (w *RepoWorker) commit(path string, msg model.CommitMessage) (string, error) {
	if _, err := w.worktree.Add(path); err != nil {
		return "", fmt.Errorf("stage %q: %w", path, err)
	}

	sig := w.signature()
	hash, err := w.worktree.Commit(msg.Render(), &git.CommitOptions{
		Author:    sig,
		Committer: sig,
	})
	if err != nil {
		return "", fmt.Errorf("commit %q: %w", path, err)
	}

	return hash.String(), nil
}

// signature resolves the repository's configured user identity,
// falling back to a fixed default when the repo has none set.
func (w *RepoWorker) signature() *object.Signature {
	name, email := defaultSignatureName, defaultSignatureEmail

	if cfg, err := w.repo.Config(); err == nil {
		if cfg.User.Name != "" {
			name = cfg.User.Name
		}
		if cfg.User.Email != "" {
			email = cfg.User.Email
		}
	}

	return &object.Signature{Name: name, Email: email, When: time.Now()}
}
