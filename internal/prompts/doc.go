// Package prompts holds the prompt template the generator sends to the
// LLM, as Go code rather than a config file — it is program logic:
// the template interpolates the diff and is validated by tests.
//
// Convention: each prompt category gets its own file with an exported
// function that accepts the dynamic parts and returns the fully
// interpolated prompt string.
package prompts
