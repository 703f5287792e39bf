package pipeline

import (
	"time"

	"github.com/GovCraft/ntangler/internal/model"
	"github.com/google/uuid"
)

// Stage is the point a file change has reached in the pipeline.
type Stage int

const (
	Pending Stage = iota
	Generating
	Finalized
)

func (s Stage) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Generating:
		return "Generating"
	case Finalized:
		return "Finalized"
	default:
		return "Unknown"
	}
}

// PipelineEvent is the Renderer's view of one file's progress through
// the pipeline. Successive stages for the same (repo, file) share the
// same ID, which is how the Renderer coalesces them into one row.
type PipelineEvent struct {
	ID           uuid.UUID
	RepoNickname string
	TargetFile   string
	Stage        Stage
	When         time.Time

	// Oid and CommitMessage are only populated once Stage is Finalized.
	Oid           string
	CommitMessage model.CommitMessage
}

// NewPending builds the row shown as soon as a file change is detected.
func NewPending(repoNickname, targetFile string, when time.Time) PipelineEvent {
	return PipelineEvent{
		ID:           EventID(repoNickname, targetFile),
		RepoNickname: repoNickname,
		TargetFile:   targetFile,
		Stage:        Pending,
		When:         when,
	}
}

// NewGenerating builds the row shown once a diff has been queued for
// the LLM.
func NewGenerating(repoNickname, targetFile string, when time.Time) PipelineEvent {
	return PipelineEvent{
		ID:           EventID(repoNickname, targetFile),
		RepoNickname: repoNickname,
		TargetFile:   targetFile,
		Stage:        Generating,
		When:         when,
	}
}

// NewFinalized builds the row shown once the commit has landed.
func NewFinalized(f FinalizedCommit) PipelineEvent {
	return PipelineEvent{
		ID:            EventID(f.RepoNickname, f.TargetFile),
		RepoNickname:  f.RepoNickname,
		TargetFile:    f.TargetFile,
		Stage:         Finalized,
		When:          f.When,
		Oid:           f.Oid,
		CommitMessage: f.CommitMessage,
	}
}
