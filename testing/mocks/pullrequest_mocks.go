package mocks

import (
	"context"

	"github.com/sgaunet/merge-train/pkg/pullrequest"
)

// PullRequestLoader is a mock pull request loader returning a fixed pull request.
type PullRequestLoader struct {
	callTracker

	PullRequest *pullrequest.PullRequest
	LoadError   error
	Branches    []string
	BranchesErr error
}

// Load returns PullRequest.
func (m *PullRequestLoader) Load(
	_ context.Context, number int, opts pullrequest.LoadOptions,
) (*pullrequest.PullRequest, error) {
	m.trackCall("Load", map[string]any{"number": number, "ignorePendingReviews": opts.IgnorePendingReviews})
	if m.LoadError != nil {
		return nil, m.LoadError
	}
	return m.PullRequest, nil
}

// OverrideBranches returns Branches.
func (m *PullRequestLoader) OverrideBranches(_ context.Context) ([]string, error) {
	m.trackCall("OverrideBranches", map[string]any{})
	return m.Branches, m.BranchesErr
}
