package security

import (
	"regexp"
	"sync"
)

var (
	githubTokenRegex   *regexp.Regexp
	urlCredentialRegex *regexp.Regexp
	authHeaderRegex    *regexp.Regexp
	regexOnce          sync.Once
)

func compileRegexPatterns() {
	regexOnce.Do(func() {
		// ghp_ (personal), gho_ (oauth), ghs_ (app installation), ghu_ (user-to-server),
		// ghr_ (refresh) and fine-grained github_pat_ tokens.
		githubTokenRegex = regexp.MustCompile(`(gh[opsur]_[a-zA-Z0-9]{20,}|github_pat_[a-zA-Z0-9_]{20,})`)

		// https://x-access-token:<secret>@github.com/owner/repo.git
		urlCredentialRegex = regexp.MustCompile(`(https?://[^:/@\s]+):[^@\s]+@`)

		authHeaderRegex = regexp.MustCompile(`(?i)authorization:\s*(?:bearer|basic|token)\s+[a-zA-Z0-9+/=_-]{10,}`)
	})
}

// SanitizeString removes GitHub tokens, credentials embedded in remote URLs and
// authorization headers from s.
//
// Safe for concurrent use.
func SanitizeString(s string) string {
	compileRegexPatterns()

	s = urlCredentialRegex.ReplaceAllString(s, "$1:[redacted]@")
	s = githubTokenRegex.ReplaceAllString(s, "[github-token-redacted]")
	s = authHeaderRegex.ReplaceAllString(s, "Authorization: [redacted]")
	return s
}

// sanitizedError presents a redacted message but keeps the original chain for
// errors.Is and errors.As.
type sanitizedError struct {
	msg string
	err error
}

func (e *sanitizedError) Error() string { return e.msg }

func (e *sanitizedError) Unwrap() error { return e.err }

// SanitizeError returns err with [SanitizeString] applied to its message.
// Returns nil if err is nil.
func SanitizeError(err error) error {
	if err == nil {
		return nil
	}
	return &sanitizedError{msg: SanitizeString(err.Error()), err: err}
}
