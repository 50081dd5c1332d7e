// Package git drives the local working copy: go-git for read-only inspection and the
// git binary for everything that rewrites history or talks to the remote.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/sgaunet/bullets"
	"github.com/sgaunet/merge-train/internal/logger"
	"github.com/sgaunet/merge-train/internal/security"
	"github.com/sgaunet/merge-train/pkg/commits"
)

const defaultBinary = "git"

// Result is the outcome of a git invocation that is allowed to fail.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	// Err is set when the process could not be started or exited non-zero.
	Err error
}

// Success reports whether the command exited with status 0.
func (r Result) Success() bool {
	return r.Err == nil && r.ExitCode == 0
}

// Client runs git commands sequentially against one working copy.
type Client struct {
	dir    string
	binary string
	token  *security.SecureToken
	repo   *gogit.Repository
	log    *bullets.Logger
}

// Open opens the repository containing dir. The token, if given, is redacted from
// every logged command and returned error.
func Open(dir string, token *security.SecureToken) (*Client, error) {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("failed to get worktree: %w", err)
	}

	return &Client{
		dir:    wt.Filesystem.Root(),
		binary: defaultBinary,
		token:  token,
		repo:   repo,
		log:    logger.NoLogger(),
	}, nil
}

// SetLogger sets the logger for this client.
func (c *Client) SetLogger(l *bullets.Logger) {
	c.log = l
}

// Dir returns the root of the working copy.
func (c *Client) Dir() string {
	return c.dir
}

// Run executes git and returns trimmed stdout. A non-zero exit is a *CommandError.
func (c *Client) Run(ctx context.Context, args ...string) (string, error) {
	res := c.RunGraceful(ctx, args...)
	if res.Err != nil {
		return "", res.Err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// RunGraceful executes git and reports failure through the Result instead of an error.
func (c *Client) RunGraceful(ctx context.Context, args ...string) Result {
	security.DebugCommand(c.log, c.binary, c.redactArgs(args))

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = c.dir
	cmd.Stdin = nil
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: c.redact(strings.TrimSpace(stderr.String())),
	}
	if err != nil {
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		res.Err = c.commandError(args, res.Stderr, res.ExitCode, err)
	}

	return res
}

// RunInteractive executes git attached to the terminal with extra environment
// variables, for commands that may open an editor.
func (c *Client) RunInteractive(ctx context.Context, env []string, args ...string) error {
	security.DebugCommand(c.log, c.binary, c.redactArgs(args))

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = c.dir
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return c.commandError(args, "", exitCode, err)
	}
	return nil
}

// RunCount executes git and parses its output as an integer (e.g. rev-list --count).
func (c *Client) RunCount(ctx context.Context, args ...string) (int, error) {
	out, err := c.Run(ctx, args...)
	if err != nil {
		return 0, err
	}

	n, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotAnInteger, out)
	}
	return n, nil
}

// Log returns the commits of revisionRange, oldest first.
func (c *Client) Log(ctx context.Context, revisionRange string) ([]commits.Commit, error) {
	out, err := c.Run(ctx, "log", "--reverse", "--format="+commits.GitLogFormat, revisionRange)
	if err != nil {
		return nil, err
	}
	return commits.ParseGitLogOutput(out)
}

// HasUncommittedChanges reports modified, staged or deleted tracked files.
// Untracked files are ignored.
func (c *Client) HasUncommittedChanges() (bool, error) {
	worktree, err := c.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("failed to get worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("failed to get repository status: %w", err)
	}

	for _, fileStatus := range status {
		if fileStatus.Staging == gogit.Untracked && fileStatus.Worktree == gogit.Untracked {
			continue
		}
		if fileStatus.Staging != gogit.Unmodified || fileStatus.Worktree != gogit.Unmodified {
			return true, nil
		}
	}

	return false, nil
}

// IsShallowRepo reports whether the repository is a shallow clone.
func (c *Client) IsShallowRepo() (bool, error) {
	shallow, err := c.repo.Storer.Shallow()
	if err != nil {
		return false, fmt.Errorf("failed to read shallow commits: %w", err)
	}
	return len(shallow) > 0, nil
}

// CurrentBranchOrRevision returns the checked out branch, or the HEAD commit hash
// when HEAD is detached.
func (c *Client) CurrentBranchOrRevision() (string, error) {
	head, err := c.repo.Head()
	if err != nil {
		return "", fmt.Errorf("failed to get HEAD reference: %w", err)
	}

	if head.Name().IsBranch() {
		return head.Name().Short(), nil
	}
	return head.Hash().String(), nil
}

// RemoteURL returns the first URL of the named remote.
func (c *Client) RemoteURL(remoteName string) (string, error) {
	remote, err := c.repo.Remote(remoteName)
	if err != nil {
		return "", fmt.Errorf("failed to get remote %s: %w", remoteName, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNoRemoteURL, remoteName)
	}

	return urls[0], nil
}

// RepoGitURL returns the authenticated HTTPS URL used for fetch and push.
func RepoGitURL(owner, name string, token *security.SecureToken) string {
	if token == nil || token.IsEmpty() {
		return fmt.Sprintf("https://github.com/%s/%s.git", owner, name)
	}
	return fmt.Sprintf("https://x-access-token:%s@github.com/%s/%s.git", token.Value(), owner, name)
}

func (c *Client) commandError(args []string, stderr string, exitCode int, err error) error {
	return &CommandError{
		Args:     c.redactArgs(args),
		Stderr:   stderr,
		ExitCode: exitCode,
		Err:      security.SanitizeError(err),
	}
}

func (c *Client) redact(s string) string {
	if c.token != nil {
		s = c.token.RedactIn(s)
	}
	return security.SanitizeString(s)
}

func (c *Client) redactArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = c.redact(a)
	}
	return out
}
