package merge

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sgaunet/merge-train/pkg/validation"
)

// Kind classifies why a merge stopped.
type Kind int

const (
	// KindFatal errors cannot be overridden by the operator.
	KindFatal Kind = iota
	// KindForceIgnorable means only ignorable validation failures stopped the merge
	// and the operator declined to ignore them.
	KindForceIgnorable
	// KindUserAborted means the operator declined a confirmation.
	KindUserAborted
)

func (k Kind) String() string {
	switch k {
	case KindFatal:
		return "fatal"
	case KindForceIgnorable:
		return "force-ignorable"
	case KindUserAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

var (
	// ErrDirtyWorkingCopy is returned when tracked files have local changes.
	ErrDirtyWorkingCopy = errors.New("local working repository not clean. Please make sure there " +
		"are no uncommitted changes")
	// ErrShallowClone is returned for shallow clones.
	ErrShallowClone = errors.New("unable to perform merge in a local repository that is configured " +
		"as shallow. Please convert the repository into a complete one by syncing with upstream")
	// ErrInsufficientScope is returned when the token cannot push to the repository.
	ErrInsufficientScope = errors.New("insufficient token scopes")
	// ErrValidationFailed is returned when validation failures stop the merge.
	ErrValidationFailed = errors.New("pull request failed validation")
	// ErrAborted is returned when the operator declines a confirmation.
	ErrAborted = errors.New("merge aborted by user")
)

// Error is returned by MergeTool.Merge for every unsuccessful merge.
type Error struct {
	Kind Kind
	Err  error
	// Failures are the validation failures that stopped the merge, if any.
	Failures []validation.Failure
}

func (e *Error) Error() string {
	if len(e.Failures) == 0 {
		return e.Err.Error()
	}

	lines := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		lines[i] = "  - " + f.String()
	}
	return fmt.Sprintf("%s:\n%s", e.Err, strings.Join(lines, "\n"))
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fatalError(err error) *Error {
	return &Error{Kind: KindFatal, Err: err}
}

func abortedError() *Error {
	return &Error{Kind: KindUserAborted, Err: ErrAborted}
}
