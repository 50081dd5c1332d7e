package strategy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMismatchedTargetBranch is returned when the pull request base branch is not
	// one of the resolved target branches.
	ErrMismatchedTargetBranch = errors.New("pull request is not targeting a resolved target branch")
	// ErrMissingRequiredBase is returned when the pull request does not contain the
	// configured required base commit.
	ErrMissingRequiredBase = errors.New("pull request does not contain the required base commit")
	// ErrInsufficientPermissions is returned when the merge endpoint answers 403 or 404.
	ErrInsufficientPermissions = errors.New("insufficient GitHub API permissions to merge the pull request")
	// ErrFixupRequiresSquash is returned when a commit message fixup was requested
	// for a merge method other than squash.
	ErrFixupRequiresSquash = errors.New("commit message fixup is only supported for squash merges")
	// ErrRebaseFailed is returned when the autosquash rebase does not complete.
	ErrRebaseFailed = errors.New("autosquash rebase failed")
	// ErrInvalidCommitCount is returned when the number of merged commits cannot be
	// determined.
	ErrInvalidCommitCount = errors.New("unable to determine the number of merged commits")
	// ErrNotPrepared is returned when Check or Merge runs before Prepare.
	ErrNotPrepared = errors.New("merge strategy has not been prepared")
)

// MergeConflictError lists the target branches a pull request does not apply to.
type MergeConflictError struct {
	Branches []string
}

func (e *MergeConflictError) Error() string {
	return fmt.Sprintf("Could not merge pull request into the following branches due to merge "+
		"conflicts: %s. Please rebase the PR or update the target label.", strings.Join(e.Branches, ", "))
}

// UnexpectedStatusError reports a merge endpoint response that is neither a success
// nor a known failure.
type UnexpectedStatusError struct {
	Code    int
	Message string
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("unexpected merge status code %d: %s", e.Code, e.Message)
}
