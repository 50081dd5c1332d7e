// Package pullrequest loads the merge-time view of a pull request: its metadata,
// parsed commits, resolved target branches and validation failures.
package pullrequest

import (
	"fmt"
	"slices"

	"github.com/sgaunet/merge-train/pkg/commits"
	"github.com/sgaunet/merge-train/pkg/validation"
)

// TempHeadBranch is the local branch the pull request head is fetched into.
const TempHeadBranch = "merge_pr_head"

// PullRequest is one merge attempt's view of a pull request. Values are not
// modified in place: stage transitions such as WithTargetBranches return copies.
type PullRequest struct {
	Number int
	Title  string
	Labels []string

	// GithubTargetBranch is the base branch selected in the GitHub UI.
	GithubTargetBranch string
	// TargetBranches is the resolved set of branches the pull request lands on.
	TargetBranches []string
	// TargetLabel is the matched target label, empty when labeling is disabled or
	// resolution failed.
	TargetLabel string

	CommitCount int
	Commits     []commits.Commit

	BaseSHA string
	HeadSHA string
	// RevisionRange is "<BaseSHA>..merge_pr_head".
	RevisionRange string
	// RequiredBaseSHA, when set, must be an ancestor of the pull request head.
	RequiredBaseSHA string

	NeedsCommitMessageFixup bool
	HasCaretakerNote        bool

	ValidationFailures []validation.Failure
}

// HasLabel reports whether the pull request carries label.
func (p *PullRequest) HasLabel(label string) bool {
	return slices.Contains(p.Labels, label)
}

// Mergeable reports whether validation found nothing to complain about.
func (p *PullRequest) Mergeable() bool {
	return len(p.ValidationFailures) == 0
}

// WithTargetBranches returns a copy targeting branches. The branch the pull request
// was opened against must stay in the set.
func (p *PullRequest) WithTargetBranches(branches []string) (*PullRequest, error) {
	if len(branches) == 0 {
		return nil, ErrNoBranchesSelected
	}
	if !slices.Contains(branches, p.GithubTargetBranch) {
		return nil, fmt.Errorf("%w: %s", ErrTargetBranchDropped, p.GithubTargetBranch)
	}

	next := *p
	next.TargetBranches = slices.Clone(branches)
	next.Labels = slices.Clone(p.Labels)
	return &next, nil
}

func revisionRange(baseSHA string) string {
	return baseSHA + ".." + TempHeadBranch
}
