package pipeline

import (
	"testing"
	"time"
)

func TestEventIDStableAcrossCalls(t *testing.T) {
	a := EventID("demo", "src/a.rs")
	b := EventID("demo", "src/a.rs")
	if a != b {
		t.Errorf("EventID not stable: %v != %v", a, b)
	}
}

func TestEventIDDistinguishesRepoAndFile(t *testing.T) {
	base := EventID("demo", "src/a.rs")
	otherFile := EventID("demo", "src/b.rs")
	otherRepo := EventID("other", "src/a.rs")

	if base == otherFile {
		t.Error("different files produced the same id")
	}
	if base == otherRepo {
		t.Error("different repos produced the same id")
	}
}

func TestPipelineEventCoalescesByID(t *testing.T) {
	now := time.Now().UTC()
	pending := NewPending("demo", "src/a.rs", now)
	generating := NewGenerating("demo", "src/a.rs", now.Add(time.Second))

	if pending.ID != generating.ID {
		t.Error("same file at different stages should share an id")
	}
	if pending.Stage == generating.Stage {
		t.Error("expected distinct stages")
	}
}

func TestNewFinalizedCarriesCommitDetails(t *testing.T) {
	when := time.Now().UTC()
	fc := FinalizedCommit{
		When:         when,
		TargetFile:   "src/a.rs",
		RepoNickname: "demo",
		Oid:          "0123456789abcdef0123456789abcdef01234567",
	}
	evt := NewFinalized(fc)

	if evt.Stage != Finalized {
		t.Errorf("Stage = %v, want Finalized", evt.Stage)
	}
	if evt.Oid != fc.Oid {
		t.Errorf("Oid = %q, want %q", evt.Oid, fc.Oid)
	}
	if evt.ID != EventID("demo", "src/a.rs") {
		t.Error("finalized event id should match the deterministic id for its repo/file")
	}
}

func TestStageString(t *testing.T) {
	tests := map[Stage]string{
		Pending:    "Pending",
		Generating: "Generating",
		Finalized:  "Finalized",
	}
	for stage, want := range tests {
		if got := stage.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", stage, got, want)
		}
	}
}
