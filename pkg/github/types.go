package github

import (
	"slices"
	"time"
)

// Constants for GitHub API operations.
const (
	perPage            = 100
	maxCommitsPerPR    = 250
	userCacheKey       = "authenticated-user"
	defaultCacheTTL    = 10 * time.Minute
	oauthScopesHeader  = "X-OAuth-Scopes"
	userTypeBot        = "Bot"
	installationLogin  = "github-app-installation"
	stateClosed        = "closed"
	statusCompleted    = "completed"
	conclusionSkipped  = "skipped"
	conclusionNeutral  = "neutral"
	conclusionSuccess  = "success"
	reviewChangesState = "CHANGES_REQUESTED"
)

// Normalized check states.
const (
	CheckSuccess = "success"
	CheckPending = "pending"
	CheckFailure = "failure"
)

// PullRequest is the subset of pull request metadata the merge tool reads.
type PullRequest struct {
	Number      int
	Title       string
	Body        string
	State       string
	Draft       bool
	Merged      bool
	Author      string
	BaseRef     string
	HeadRef     string
	HeadSHA     string
	Labels      []string
	CommitCount int
	// PendingReviewers counts users and teams whose review is still requested.
	PendingReviewers int
}

// IsOpen reports whether the pull request can still be merged.
func (p *PullRequest) IsOpen() bool {
	return p.State != stateClosed && !p.Merged
}

// HasLabel reports whether the pull request carries label.
func (p *PullRequest) HasLabel(label string) bool {
	return slices.Contains(p.Labels, label)
}

// Commit is a pull request commit as returned by the API.
type Commit struct {
	SHA        string
	Message    string
	ParentSHAs []string
}

// Review is a submitted pull request review.
type Review struct {
	User  string
	State string
}

// RequestsChanges reports whether the review blocks the merge.
func (r Review) RequestsChanges() bool {
	return r.State == reviewChangesState
}

// Comment is an issue comment on a pull request.
type Comment struct {
	User string
	Body string
}

// CheckState is a check run or commit status normalized to success, pending or failure.
type CheckState struct {
	Name  string
	State string
}

// Succeeded reports a passing check. Skipped and neutral check runs count as passing.
func (c CheckState) Succeeded() bool { return c.State == CheckSuccess }

// Pending reports a check that has not finished.
func (c CheckState) Pending() bool { return c.State == CheckPending }

// Failed reports a failing check.
func (c CheckState) Failed() bool { return c.State == CheckFailure }

// NewCheckState builds a CheckState. Unknown states count as failures.
func NewCheckState(name, state string) CheckState {
	switch state {
	case CheckSuccess, CheckPending, CheckFailure:
		return CheckState{Name: name, State: state}
	default:
		return CheckState{Name: name, State: CheckFailure}
	}
}

// UserAccess describes the authenticated credential.
type UserAccess struct {
	Login  string
	Type   string
	Scopes []string
}

// IsBot reports a bot credential (e.g. a GitHub App installation token).
func (u *UserAccess) IsBot() bool {
	return u.Type == userTypeBot
}

// MergeRequest carries the parameters of a merge API call.
type MergeRequest struct {
	Method  string
	Title   string
	Message string
	// SHA guards against merging a head that changed since it was validated.
	SHA string
}

// MergeResult is the outcome of a merge API call. Non-2xx responses are reported
// through StatusCode rather than an error.
type MergeResult struct {
	StatusCode int
	SHA        string
	Message    string
}
