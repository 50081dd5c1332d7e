// Package fixtures provides common test data structures for testing.
package fixtures

import (
	"fmt"

	ghpkg "github.com/sgaunet/merge-train/pkg/github"
)

// Test constants for GitHub fixtures.
const (
	DefaultPRNumber = 100
	DefaultHeadSHA  = "abc123def4567890abc123def4567890abc12345"
	DefaultBaseSHA  = "0000000000111111111122222222223333333333"
)

// OpenPullRequest returns an open, non-draft pull request against base.
func OpenPullRequest(number int, base string, labels ...string) *ghpkg.PullRequest {
	return &ghpkg.PullRequest{
		Number:      number,
		Title:       "fix(core): handle empty input",
		Body:        "Fixes the crash on empty input.",
		State:       "open",
		Author:      "contributor",
		BaseRef:     base,
		HeadRef:     "fix-empty-input",
		HeadSHA:     DefaultHeadSHA,
		Labels:      labels,
		CommitCount: 1,
	}
}

// APICommits returns pull request commits with the given messages. The first
// commit's parent is DefaultBaseSHA and each later commit builds on the previous.
func APICommits(messages ...string) []ghpkg.Commit {
	list := make([]ghpkg.Commit, len(messages))
	parent := DefaultBaseSHA
	for i, msg := range messages {
		sha := fmt.Sprintf("%040d", i+1)
		list[i] = ghpkg.Commit{SHA: sha, Message: msg, ParentSHAs: []string{parent}}
		parent = sha
	}
	return list
}

// PassingChecks returns successful checks with the given names.
func PassingChecks(names ...string) []ghpkg.CheckState {
	checks := make([]ghpkg.CheckState, len(names))
	for i, name := range names {
		checks[i] = ghpkg.NewCheckState(name, ghpkg.CheckSuccess)
	}
	return checks
}

// FailingCheck returns a failed check.
func FailingCheck(name string) ghpkg.CheckState {
	return ghpkg.NewCheckState(name, ghpkg.CheckFailure)
}
