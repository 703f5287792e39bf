package prompts

import "fmt"

// commitMessageTemplate is the prompt sent to an LLM to turn a single
// file's diff into a Conventional Commits message. The single format
// verb is the unified diff text.
const commitMessageTemplate = `You write Conventional Commits messages for a single changed file. You will be given a unified diff restricted to exactly one file. Respond with JSON only, no prose, no markdown fences, matching exactly these fields:

{
  "type":        "commit type: fix, feat, chore, refactor, docs, test, or other",
  "scope":       "short scope token, or null if none applies",
  "description": "one-line imperative summary, no trailing period",
  "body":        "free-form explanation, may be empty",
  "breaking":    true or false,
  "footers":     [ {"token": "...", "value": "..."} ]
}

Base the message only on what the diff actually shows. Prefer "fix" for bug fixes, "feat" for new capability, "chore" for routine maintenance. Set "breaking" true only when the change alters a public contract in a backward-incompatible way. Leave "footers" empty unless the diff itself signals something (e.g. a referenced issue).

Diff:
%s

JSON:`

// CommitMessagePrompt returns the fully interpolated prompt for
// generating a commit message from a single-file diff.
func CommitMessagePrompt(diff string) string {
	return fmt.Sprintf(commitMessageTemplate, diff)
}
