package targeting

import "errors"

var (
	// ErrNoTargetLabel is returned when a PR carries no target label.
	ErrNoTargetLabel = errors.New("pull request has no target label")
	// ErrMultipleTargetLabels is returned when a PR carries more than one target label.
	ErrMultipleTargetLabels = errors.New("pull request has more than one target label")
	// ErrNoReleaseCandidate is returned for rc-targeted PRs without a release-candidate train.
	ErrNoReleaseCandidate = errors.New("no active release-candidate train")
	// ErrInvalidTargetBranch is returned when a label cannot be applied to the PR's branch.
	ErrInvalidTargetBranch = errors.New("target label does not apply to the pull request branch")
	// ErrTargetBranchNotCovered is returned when the resolved set omits the PR's branch.
	ErrTargetBranchNotCovered = errors.New("resolved branches do not include the pull request branch")
)
