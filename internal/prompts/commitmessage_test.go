package prompts

import (
	"strings"
	"testing"
)

func TestCommitMessagePromptIncludesDiff(t *testing.T) {
	diff := "diff --git a/foo.go b/foo.go\n+added line"
	got := CommitMessagePrompt(diff)

	if !strings.Contains(got, diff) {
		t.Fatalf("expected prompt to embed the diff, got %q", got)
	}
	if !strings.Contains(got, `"type"`) {
		t.Errorf("expected prompt to describe the JSON contract")
	}
}
