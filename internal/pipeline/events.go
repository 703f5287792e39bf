// Package pipeline defines the bus event types that carry one file
// change through the watch → diff → generate → commit → publish
// sequence, and the stable identity used to coalesce them.
package pipeline

import (
	"time"

	"github.com/GovCraft/ntangler/internal/model"
	"github.com/google/uuid"
)

// pipelineNamespace roots the v3 UUIDs this package derives. Any fixed
// value works; what matters is that it never changes, so the same
// (repo, file) pair always yields the same id across restarts.
var pipelineNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// EventID derives the stable identity of a file change: a v3 (MD5)
// UUID over "repoNickname/targetFile". The Renderer uses it to
// coalesce the Pending/Generating/Finalized stages of one file into a
// single row.
func EventID(repoNickname, targetFile string) uuid.UUID {
	return uuid.NewMD5(pipelineNamespace, []byte(repoNickname+"/"+targetFile))
}

// PollTick is published by the Poller every configured interval.
type PollTick struct {
	At time.Time
}

// FileChangeDetected is published by a RepoWorker for each working-tree
// path it finds modified, untracked, or type-changed during a poll.
type FileChangeDetected struct {
	RepoNickname string
	Path         string
}

// DiffQueued carries one file's patch to the Generator. ReplyTo is a
// direct-reply channel rather than a bus publication: it lets the
// Generator hand the resulting CommitMessageGenerated back to the
// originating RepoWorker without a global address index.
type DiffQueued struct {
	Diff         string
	TargetFile   string
	RepoNickname string
	ReplyTo      chan<- CommitMessageGenerated
}

// CommitMessageGenerated is sent by the Generator to the reply-to
// channel of the DiffQueued it answers.
type CommitMessageGenerated struct {
	TargetFile    string
	CommitMessage model.CommitMessage
}

// FinalizedCommit is published once a RepoWorker has staged and
// committed the target file.
type FinalizedCommit struct {
	When          time.Time
	TargetFile    string
	RepoNickname  string
	Oid           string
	CommitMessage model.CommitMessage
}

// SystemStarted is published once, after the Orchestrator has finished
// wiring every component. The Renderer paints its header in response;
// the Poller does not start ticking until after this publication.
type SystemStarted struct{}
