package git

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoRemoteURL is returned when a remote has no configured URL.
	ErrNoRemoteURL = errors.New("remote has no URL")
	// ErrNotAnInteger is returned when git output expected to be a count is not.
	ErrNotAnInteger = errors.New("git output is not an integer")
)

// CommandError describes a git invocation that exited with a non-zero status.
// Args and Stderr are sanitized before the error is built.
type CommandError struct {
	Args     []string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s failed with exit code %d", strings.Join(e.Args, " "), e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}
