package commits

import (
	"fmt"
	"regexp"
	"strings"
)

// GitLogFormat is the --format argument whose output ParseFromGitLog and
// ParseGitLogOutput understand. Records are terminated by the ASCII record separator.
const GitLogFormat = "%H%x1f%h%x1f%an%x1f%B%x1e"

const (
	fieldSeparator  = "\x1f"
	recordSeparator = "\x1e"
	gitLogFields    = 4
)

var (
	fixupPrefixRegex  = regexp.MustCompile(`(?i)^fixup! `)
	squashPrefixRegex = regexp.MustCompile(`(?i)^squash! `)
	revertPrefixRegex = regexp.MustCompile(`(?i)^revert:? `)

	headerRegex = regexp.MustCompile(`^(\w+)(?:\(([^)]+)\))?!?: (.+)$`)
	noteRegex   = regexp.MustCompile(`^(BREAKING CHANGE|DEPRECATED): ?(.*)$`)

	// Trailers open the footer: "Closes #1", "Fixes: #2", "PR Close #3", "Reviewed-by: x".
	trailerRegex = regexp.MustCompile(
		`^(?:(?i:close[sd]?|fix(?:e[sd])?|resolve[sd]?|pr close):?\s+(?:[\w.-]+/[\w.-]+)?#\d+|[A-Za-z][\w-]*-[\w-]+:\s)`,
	)
	referenceRegex = regexp.MustCompile(
		`(?i)(?:\b(close[sd]?|fix(?:e[sd])?|resolve[sd]?|pr close):?\s+)?(?:\b([\w.-]+/[\w.-]+))?#(\d+)\b`,
	)
)

// Parse classifies a raw commit message. It never fails: text that does not follow
// the conventional commit format yields a Commit with an empty Type and the whole
// first line as Subject.
func Parse(raw string) Commit {
	text := strings.Join(trimBlankLines(strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")), "\n")

	c := Commit{
		IsFixup:  fixupPrefixRegex.MatchString(text),
		IsSquash: squashPrefixRegex.MatchString(text),
		IsRevert: revertPrefixRegex.MatchString(text),
	}

	lines := strings.Split(text, "\n")
	c.Header = stripHeaderPrefixes(strings.TrimSpace(lines[0]))
	c.Subject = c.Header
	if m := headerRegex.FindStringSubmatch(c.Header); m != nil {
		c.Type, c.Scope, c.Subject = m[1], m[2], m[3]
	}

	if len(lines) == 1 {
		return c
	}

	rest := lines[1:]
	c.description = strings.Join(trimBlankLines(rest), "\n")

	body, footer := splitBodyAndFooter(rest)
	c.Body = strings.Join(body, "\n")
	c.Footer = strings.Join(footer, "\n")
	c.BreakingChanges, c.Deprecations = parseNotes(rest)
	c.References = parseReferences(footer)

	return c
}

// ParseFromGitLog parses one record produced by git log --format=GitLogFormat.
// Records with fewer fields are treated as a bare message.
func ParseFromGitLog(record string) Commit {
	record = strings.TrimSuffix(strings.TrimLeft(record, "\n"), recordSeparator)
	parts := strings.SplitN(record, fieldSeparator, gitLogFields)
	if len(parts) < gitLogFields {
		return Parse(record)
	}

	c := Parse(parts[3])
	c.Hash = parts[0]
	c.ShortHash = parts[1]
	c.Author = parts[2]
	return c
}

// ParseGitLogOutput parses the complete output of git log --format=GitLogFormat.
func ParseGitLogOutput(output string) ([]Commit, error) {
	var list []Commit
	for _, record := range strings.Split(output, recordSeparator) {
		record = strings.TrimLeft(record, "\n")
		if strings.TrimSpace(record) == "" {
			continue
		}
		if strings.Count(record, fieldSeparator) < gitLogFields-1 {
			return nil, fmt.Errorf("%w: %q", ErrMalformedLogRecord, record)
		}
		list = append(list, ParseFromGitLog(record))
	}
	return list, nil
}

// AppendPullRequestReference rewrites a commit message so its title ends with
// " (#<pr>)" and its last line is "PR Close #<pr>". Applying it twice is a no-op.
func AppendPullRequestReference(message string, pr int) string {
	lines := strings.Split(strings.TrimRight(message, "\n"), "\n")

	suffix := fmt.Sprintf(" (#%d)", pr)
	if !strings.HasSuffix(lines[0], suffix) {
		lines[0] += suffix
	}

	closeLine := fmt.Sprintf("PR Close #%d", pr)
	if lines[len(lines)-1] != closeLine {
		lines = append(lines, "", closeLine)
	}

	return strings.Join(lines, "\n") + "\n"
}

// StripComments drops the "#" lines git removes from a message written in an
// editor. Messages read back from history keep such lines, e.g. markdown headings.
func StripComments(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(trimBlankLines(kept), "\n")
}

func stripHeaderPrefixes(header string) string {
	for {
		switch {
		case fixupPrefixRegex.MatchString(header):
			header = fixupPrefixRegex.ReplaceAllString(header, "")
		case squashPrefixRegex.MatchString(header):
			header = squashPrefixRegex.ReplaceAllString(header, "")
		case revertPrefixRegex.MatchString(header):
			header = revertPrefixRegex.ReplaceAllString(header, "")
			if unquoted, ok := strings.CutPrefix(header, `"`); ok {
				header = strings.TrimSuffix(unquoted, `"`)
			}
		default:
			return strings.TrimSpace(header)
		}
	}
}

// splitBodyAndFooter cuts the lines after the header at the first paragraph that
// starts with a note or a trailer.
func splitBodyAndFooter(lines []string) ([]string, []string) {
	paragraphStart := true
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			paragraphStart = true
			continue
		}
		if paragraphStart && (noteRegex.MatchString(trimmed) || trailerRegex.MatchString(trimmed)) {
			return trimBlankLines(lines[:i]), trimBlankLines(lines[i:])
		}
		paragraphStart = false
	}
	return trimBlankLines(lines), nil
}

func parseNotes(lines []string) ([]Note, []Note) {
	var breaking, deprecated []Note
	for i := 0; i < len(lines); i++ {
		m := noteRegex.FindStringSubmatch(strings.TrimSpace(lines[i]))
		if m == nil {
			continue
		}

		text := []string{m[2]}
		for i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if next == "" || noteRegex.MatchString(next) || trailerRegex.MatchString(next) {
				break
			}
			text = append(text, next)
			i++
		}

		note := Note{Title: m[1], Text: strings.TrimSpace(strings.Join(text, "\n"))}
		if note.Title == NoteBreakingChange {
			breaking = append(breaking, note)
		} else {
			deprecated = append(deprecated, note)
		}
	}
	return breaking, deprecated
}

func parseReferences(footer []string) []Reference {
	var refs []Reference
	for _, line := range footer {
		for _, m := range referenceRegex.FindAllStringSubmatch(line, -1) {
			refs = append(refs, Reference{Action: m[1], Repository: m[2], Issue: m[3]})
		}
	}
	return refs
}
