package pullrequest

import "errors"

var (
	// ErrNoCommits is returned when the pull request has no commits.
	ErrNoCommits = errors.New("pull request has no commits")
	// ErrMissingBaseCommit is returned when the first commit has no parent.
	ErrMissingBaseCommit = errors.New("unable to determine the base commit of the pull request")
	// ErrTargetBranchDropped is returned when a manual branch selection omits the
	// branch the pull request was opened against.
	ErrTargetBranchDropped = errors.New("selected branches must include the pull request target branch")
	// ErrNoBranchesSelected is returned for an empty manual branch selection.
	ErrNoBranchesSelected = errors.New("no target branches selected")
)
