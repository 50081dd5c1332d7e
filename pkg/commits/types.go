package commits

import "strings"

const (
	// DefaultDisplayTitleLength is the default max length for commit headers in display.
	DefaultDisplayTitleLength = 80
	// DefaultShortHashLength is the default length for abbreviated commit hashes.
	DefaultShortHashLength = 7

	ellipsis = "..."

	// NoteBreakingChange is the note keyword for breaking changes.
	NoteBreakingChange = "BREAKING CHANGE"
	// NoteDeprecated is the note keyword for deprecations.
	NoteDeprecated = "DEPRECATED"
)

// Note is a BREAKING CHANGE or DEPRECATED section of a commit message.
type Note struct {
	// Title is the keyword that introduced the note.
	Title string
	// Text is everything after the keyword's colon, including continuation lines.
	Text string
}

// Reference is an issue or pull request referenced from a commit footer.
type Reference struct {
	// Action is the closing keyword if one was used (e.g. "Closes", "PR Close").
	Action string
	// Repository is "owner/repo" for cross-repository references, empty otherwise.
	Repository string
	// Issue is the referenced issue or pull request number.
	Issue string
}

// Commit is a parsed commit message. Values are created once by [Parse] or
// [ParseFromGitLog] and never mutated.
type Commit struct {
	// Header is the first line with any fixup!/squash!/revert prefix removed.
	Header string
	// Type is the conventional commit type ("fix", "feat", ...), empty if the header
	// does not follow the type(scope): subject convention.
	Type string
	// Scope is the optional conventional commit scope.
	Scope string
	// Subject is the text after "type(scope): ", or the whole header.
	Subject string
	// Body is the free text between the header and the footer.
	Body string
	// Footer holds notes and trailers (Closes #1, PR Close #2, ...).
	Footer string

	References      []Reference
	BreakingChanges []Note
	Deprecations    []Note

	IsFixup  bool
	IsSquash bool
	IsRevert bool

	// Hash, ShortHash and Author are only set by ParseFromGitLog.
	Hash      string
	ShortHash string
	Author    string

	description string
}

// Description returns the message text following the header (body and footer) as it
// appeared in the commit.
func (c Commit) Description() string {
	return c.description
}

// IsFixupOrSquash reports whether autosquash would fold this commit into another one.
func (c Commit) IsFixupOrSquash() bool {
	return c.IsFixup || c.IsSquash
}

// HasBreakingChanges returns true if the commit carries at least one BREAKING CHANGE note.
func (c Commit) HasBreakingChanges() bool {
	return len(c.BreakingChanges) > 0
}

// HasDeprecations returns true if the commit carries at least one DEPRECATED note.
func (c Commit) HasDeprecations() bool {
	return len(c.Deprecations) > 0
}

// HeaderTruncated returns the header truncated to maxLen with "..." suffix if longer.
func (c Commit) HeaderTruncated(maxLen int) string {
	runes := []rune(c.Header)
	if len(runes) <= maxLen {
		return c.Header
	}
	if maxLen <= len(ellipsis) {
		return string(runes[:max(maxLen, 0)])
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}

// FormattedForDisplay returns "[ShortHash] Header" for log output, or only the
// header for commits that were not read from git.
func (c Commit) FormattedForDisplay() string {
	if c.ShortHash == "" {
		return c.HeaderTruncated(DefaultDisplayTitleLength)
	}
	return "[" + c.ShortHash + "] " + c.HeaderTruncated(DefaultDisplayTitleLength)
}

// CountFixupOrSquash returns how many commits in list autosquash would fold.
func CountFixupOrSquash(list []Commit) int {
	n := 0
	for _, c := range list {
		if c.IsFixupOrSquash() {
			n++
		}
	}
	return n
}

// WithoutFixupOrSquash returns the commits that survive an autosquash rebase.
func WithoutFixupOrSquash(list []Commit) []Commit {
	kept := make([]Commit, 0, len(list))
	for _, c := range list {
		if !c.IsFixupOrSquash() {
			kept = append(kept, c)
		}
	}
	return kept
}

func trimBlankLines(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
