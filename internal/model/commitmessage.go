// Package model holds the commit message domain type: its Conventional
// Commits rendering, its LLM JSON contract, and the semver impact it
// derives.
package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// breakingTokenPattern matches a footer token that signals a breaking
// change, mirroring the case-insensitive whole-word match the original
// footer canonicalization used.
var breakingTokenPattern = regexp.MustCompile(`(?i)\b(breaking|change)\b`)

// Footer is one trailing `token: value` line of a commit message.
type Footer struct {
	Token string
	Value string
}

// ParseFooter parses the "token:value" shorthand (splitting on the
// first colon) into a Footer, applying the same canonicalization
// UnmarshalJSON does.
func ParseFooter(s string) (Footer, error) {
	token, value, _ := strings.Cut(s, ":")
	f := Footer{Token: strings.TrimSpace(token), Value: strings.TrimSpace(value)}
	if f.Token == "" {
		return Footer{}, fmt.Errorf("parse footer %q: empty token", s)
	}
	f.canonicalize()
	return f, nil
}

// canonicalize normalizes a token that mentions "breaking" or "change"
// (case-insensitive, whole word) to the literal "BREAKING CHANGE".
func (f *Footer) canonicalize() {
	if breakingTokenPattern.MatchString(f.Token) {
		f.Token = "BREAKING CHANGE"
	}
}

// UnmarshalJSON canonicalizes the token as it decodes, so every Footer
// built from the wire contract has already had the breaking-change
// normalization applied.
func (f *Footer) UnmarshalJSON(data []byte) error {
	var raw struct {
		Token string `json:"token"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Token, f.Value = raw.Token, raw.Value
	f.canonicalize()
	return nil
}

// String renders the footer as "token: value".
func (f Footer) String() string {
	return fmt.Sprintf("%s: %s", f.Token, f.Value)
}

// SemverImpact classifies a commit's impact on the package's version.
type SemverImpact int

const (
	NoImpact SemverImpact = iota
	Patch
	Minor
	Major
)

// String renders the short glyph used in terminal display.
func (s SemverImpact) String() string {
	switch s {
	case Patch:
		return "PATCH"
	case Minor:
		return "MINOR"
	case Major:
		return "MAJOR"
	default:
		return "•" // •
	}
}

// ParseSemverImpact parses a case-insensitive name into a SemverImpact,
// defaulting to NoImpact for anything unrecognized.
func ParseSemverImpact(s string) SemverImpact {
	switch strings.ToLower(s) {
	case "patch":
		return Patch
	case "minor":
		return Minor
	case "major":
		return Major
	default:
		return NoImpact
	}
}

const (
	breakingChangeFooterValue = "This change is not backward compatible and requires consumers to update their integration."
	bugFixFooterValue         = "You appear to have made one or more backward-compatible bug fixes. Consider publishing a patch release."
	newFeatureFooterValue     = "You appear to have added backward-compatible functionality. Consider publishing a minor release."
)

// CommitMessage is the parsed, Conventional-Commits-shaped result of
// the generator's LLM call.
type CommitMessage struct {
	Type        string
	Scope       string
	Description string
	Body        string
	IsBreaking  bool
	Footers     []Footer
}

// commitMessageWire mirrors the JSON contract in full: scope is
// nullable, footers are canonicalized as they decode
// (Footer.UnmarshalJSON), and all four required fields are pointers so
// a missing key is distinguishable from a zero value.
type commitMessageWire struct {
	Type        *string  `json:"type"`
	Scope       *string  `json:"scope"`
	Description *string  `json:"description"`
	Body        *string  `json:"body"`
	Breaking    *bool    `json:"breaking"`
	Footers     []Footer `json:"footers"`
}

// ParseCommitMessage decodes the LLM's JSON response into a
// CommitMessage. Unknown keys are ignored; a missing type, description,
// body, or breaking key is a parse failure. The derived-footer policy
// (§3) is applied once, here.
func ParseCommitMessage(data []byte) (CommitMessage, error) {
	var wire commitMessageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return CommitMessage{}, fmt.Errorf("decode commit message: %w", err)
	}
	if wire.Type == nil || wire.Description == nil || wire.Body == nil || wire.Breaking == nil {
		return CommitMessage{}, fmt.Errorf("commit message missing required field")
	}
	if strings.TrimSpace(*wire.Description) == "" {
		return CommitMessage{}, fmt.Errorf("commit message has empty description")
	}

	m := CommitMessage{
		Type:        strings.ToLower(strings.TrimSpace(*wire.Type)),
		Description: *wire.Description,
		Body:        *wire.Body,
		IsBreaking:  *wire.Breaking,
		Footers:     wire.Footers,
	}
	if wire.Scope != nil {
		m.Scope = normalizeScope(*wire.Scope)
	}
	if m.Type == "" {
		return CommitMessage{}, fmt.Errorf("commit message has empty type")
	}

	m.applyDerivedFooters()
	return m, nil
}

// normalizeScope strips all whitespace from a scope token, so
// "  par ser \n" becomes "parser".
func normalizeScope(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// hasFooterToken reports whether a footer with the given token
// (case-insensitive) is already present.
func (m CommitMessage) hasFooterToken(token string) bool {
	for _, f := range m.Footers {
		if strings.EqualFold(f.Token, token) {
			return true
		}
	}
	return false
}

// applyDerivedFooters appends the canonical explanatory footer implied
// by the breaking flag or commit type, if one isn't already present.
// Applied exactly once, at parse time.
func (m *CommitMessage) applyDerivedFooters() {
	switch {
	case m.IsBreaking:
		if !m.hasFooterToken("BREAKING CHANGE") {
			m.Footers = append(m.Footers, Footer{Token: "BREAKING CHANGE", Value: breakingChangeFooterValue})
		}
	case m.Type == "fix":
		if !m.hasFooterToken("BUG FIX") {
			m.Footers = append(m.Footers, Footer{Token: "BUG FIX", Value: bugFixFooterValue})
		}
	case m.Type == "feat":
		if !m.hasFooterToken("NEW FEATURE") {
			m.Footers = append(m.Footers, Footer{Token: "NEW FEATURE", Value: newFeatureFooterValue})
		}
	}
}

// SemverImpact derives the version impact of this message: Major if
// breaking, else Patch for fix, Minor for feat, else NoImpact.
func (m CommitMessage) SemverImpact() SemverImpact {
	switch {
	case m.IsBreaking:
		return Major
	case m.Type == "fix":
		return Patch
	case m.Type == "feat":
		return Minor
	default:
		return NoImpact
	}
}

// Header renders the one-line "<type>[(<scope>)][!]: <description>".
func (m CommitMessage) Header() string {
	var b strings.Builder
	b.WriteString(m.Type)
	if m.Scope != "" {
		fmt.Fprintf(&b, "(%s)", m.Scope)
	}
	if m.IsBreaking {
		b.WriteByte('!')
	}
	b.WriteString(": ")
	b.WriteString(m.Description)
	return b.String()
}

// Render produces the full commit message text per §6.1: header, a
// blank line, the body, a blank line, then one footer per line.
func (m CommitMessage) Render() string {
	var footerLines []string
	for _, f := range m.Footers {
		footerLines = append(footerLines, f.String())
	}
	return strings.Join([]string{
		m.Header(),
		"",
		m.Body,
		"",
		strings.Join(footerLines, "\n"),
	}, "\n")
}

// Parse reverses Render, recovering type, scope, breaking flag,
// description, body, and footers from a committed message. It is the
// inverse of Render for any message Render itself produced.
func Parse(text string) (CommitMessage, error) {
	headerEnd := strings.Index(text, "\n\n")
	if headerEnd == -1 {
		return CommitMessage{}, fmt.Errorf("parse commit message: no header separator")
	}
	header := text[:headerEnd]
	if header == "" {
		return CommitMessage{}, fmt.Errorf("parse commit message: empty header")
	}
	remainder := text[headerEnd+2:]

	// The footer block, when present, has no blank lines within it, so
	// the LAST blank-line boundary is always the body/footer split —
	// even when the body itself contains blank lines.
	var body, footerBlock string
	if sep := strings.LastIndex(remainder, "\n\n"); sep == -1 {
		body = remainder
	} else {
		body = remainder[:sep]
		footerBlock = remainder[sep+2:]
	}

	m := CommitMessage{}

	rest := header
	typeEnd := strings.IndexAny(rest, "(:!")
	if typeEnd == -1 {
		return CommitMessage{}, fmt.Errorf("parse commit message: no header separator in %q", header)
	}
	m.Type = rest[:typeEnd]
	rest = rest[typeEnd:]

	if strings.HasPrefix(rest, "(") {
		close := strings.IndexByte(rest, ')')
		if close == -1 {
			return CommitMessage{}, fmt.Errorf("parse commit message: unterminated scope in %q", header)
		}
		m.Scope = rest[1:close]
		rest = rest[close+1:]
	}
	if strings.HasPrefix(rest, "!") {
		m.IsBreaking = true
		rest = rest[1:]
	}
	rest = strings.TrimPrefix(rest, ":")
	m.Description = strings.TrimSpace(rest)

	m.Body = body
	if footerBlock != "" {
		for _, line := range strings.Split(footerBlock, "\n") {
			if line == "" {
				continue
			}
			f, err := ParseFooter(line)
			if err != nil {
				return CommitMessage{}, fmt.Errorf("parse commit message: %w", err)
			}
			m.Footers = append(m.Footers, f)
		}
	}

	return m, nil
}
