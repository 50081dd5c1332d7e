package mocks

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/sgaunet/merge-train/pkg/commits"
	"github.com/sgaunet/merge-train/pkg/git"
)

// ErrCommandFailed is the error returned for configured command failures and
// cherry-pick conflicts.
var ErrCommandFailed = errors.New("git command failed")

// GitClient is an in-memory stand-in for git.Client. It records every command,
// tracks the checked out branch and counts commits added to each branch.
type GitClient struct {
	callTracker

	// Outputs maps a command prefix (e.g. "rev-list --count") to its stdout.
	// The longest matching prefix wins.
	Outputs map[string]string
	// Failures maps a command prefix to the error it fails with.
	Failures map[string]error
	// CherryPickConflicts lists local branches where cherry-picks conflict.
	CherryPickConflicts map[string]bool
	// LogCommits is returned by Log.
	LogCommits []commits.Commit

	Dirty     bool
	Shallow   bool
	StatusErr error

	// CheckoutErr makes Restore fail before running cleanup.
	CheckoutErr error

	// Tips counts commits created on each branch by cherry-pick.
	Tips map[string]int

	commands   []string
	checkedOut string
	staged     bool
}

// NewGitClient creates a mock working copy with "feature" checked out.
func NewGitClient() *GitClient {
	return &GitClient{
		Outputs:             make(map[string]string),
		Failures:            make(map[string]error),
		CherryPickConflicts: make(map[string]bool),
		Tips:                make(map[string]int),
		checkedOut:          "feature",
	}
}

// Commands returns every command run so far, arguments joined by spaces.
func (m *GitClient) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.commands)
}

// CommandsWithPrefix returns the commands starting with prefix.
func (m *GitClient) CommandsWithPrefix(prefix string) []string {
	var matched []string
	for _, c := range m.Commands() {
		if strings.HasPrefix(c, prefix) {
			matched = append(matched, c)
		}
	}
	return matched
}

// CheckedOut returns the branch or revision currently checked out.
func (m *GitClient) CheckedOut() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkedOut
}

// HasStagedChanges reports whether a cherry-pick left changes that were not reset.
func (m *GitClient) HasStagedChanges() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staged
}

// Run implements strategy.GitClient.
func (m *GitClient) Run(ctx context.Context, args ...string) (string, error) {
	res := m.RunGraceful(ctx, args...)
	if res.Err != nil {
		return "", res.Err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// RunGraceful implements strategy.GitClient.
func (m *GitClient) RunGraceful(_ context.Context, args ...string) git.Result {
	m.trackCall("RunGraceful", map[string]any{"args": args})
	return m.exec(args)
}

// RunInteractive implements strategy.GitClient.
func (m *GitClient) RunInteractive(_ context.Context, env []string, args ...string) error {
	m.trackCall("RunInteractive", map[string]any{"args": args, "env": env})
	return m.exec(args).Err
}

// RunCount implements strategy.GitClient.
func (m *GitClient) RunCount(ctx context.Context, args ...string) (int, error) {
	out, err := m.Run(ctx, args...)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, git.ErrNotAnInteger
	}
	return n, nil
}

// Log implements strategy.GitClient.
func (m *GitClient) Log(_ context.Context, revisionRange string) ([]commits.Commit, error) {
	m.trackCall("Log", map[string]any{"range": revisionRange})
	return m.LogCommits, nil
}

// CurrentBranchOrRevision implements strategy.GitClient.
func (m *GitClient) CurrentBranchOrRevision() (string, error) {
	m.trackCall("CurrentBranchOrRevision", map[string]any{})
	return m.CheckedOut(), nil
}

// HasUncommittedChanges implements merge.GitClient.
func (m *GitClient) HasUncommittedChanges() (bool, error) {
	m.trackCall("HasUncommittedChanges", map[string]any{})
	return m.Dirty, m.StatusErr
}

// IsShallowRepo implements merge.GitClient.
func (m *GitClient) IsShallowRepo() (bool, error) {
	m.trackCall("IsShallowRepo", map[string]any{})
	return m.Shallow, m.StatusErr
}

// Restore implements merge.GitClient.
func (m *GitClient) Restore(
	ctx context.Context, revision string, cleanup func(context.Context) error,
) *git.RestoreReport {
	m.trackCall("Restore", map[string]any{"revision": revision})

	report := &git.RestoreReport{Revision: revision}
	if m.CheckoutErr != nil {
		report.CheckoutError = m.CheckoutErr
		return report
	}

	m.mu.Lock()
	m.checkedOut = revision
	m.staged = false
	m.mu.Unlock()
	report.CheckedOut = true

	if cleanup == nil {
		report.CleanedUp = true
		return report
	}
	if err := cleanup(ctx); err != nil {
		report.CleanupError = err
		return report
	}
	report.CleanedUp = true
	return report
}

func (m *GitClient) exec(args []string) git.Result {
	line := strings.Join(args, " ")

	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, line)

	if err, ok := longestPrefix(m.Failures, line); ok {
		return git.Result{ExitCode: 1, Err: err}
	}

	switch args[0] {
	case "checkout":
		m.checkedOut = args[len(args)-1]
	case "cherry-pick":
		if slices.Contains(args, "--abort") {
			return git.Result{}
		}
		if m.CherryPickConflicts[m.checkedOut] {
			m.staged = true
			return git.Result{ExitCode: 1, Stderr: "CONFLICT (content)", Err: ErrCommandFailed}
		}
		if slices.Contains(args, "--no-commit") {
			m.staged = true
		} else {
			m.Tips[m.checkedOut]++
		}
	case "reset":
		m.staged = false
	}

	out, _ := longestPrefix(m.Outputs, line)
	return git.Result{Stdout: out}
}

func longestPrefix[V any](entries map[string]V, line string) (V, bool) {
	var (
		best    V
		bestLen = -1
	)
	for prefix, v := range entries {
		if strings.HasPrefix(line, prefix) && len(prefix) > bestLen {
			best, bestLen = v, len(prefix)
		}
	}
	return best, bestLen >= 0
}
