// Package strategy implements the ways a pull request lands on its target branches:
// a local autosquash rebase, the GitHub merge API, and a conditional choice between
// the two.
//
// Every strategy runs Prepare, Check, Merge and Cleanup in that order. Check
// cherry-picks the pull request into every target branch without committing, so
// that Merge never starts when any branch would conflict.
package strategy

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sgaunet/bullets"
	"github.com/sgaunet/merge-train/internal/logger"
	"github.com/sgaunet/merge-train/pkg/commits"
	"github.com/sgaunet/merge-train/pkg/git"
	"github.com/sgaunet/merge-train/pkg/github"
	"github.com/sgaunet/merge-train/pkg/pullrequest"
)

const localTargetPrefix = "local_target_"

// GitClient is the subset of git.Client the strategies drive. Commands never run
// concurrently.
type GitClient interface {
	Run(ctx context.Context, args ...string) (string, error)
	RunGraceful(ctx context.Context, args ...string) git.Result
	RunInteractive(ctx context.Context, env []string, args ...string) error
	RunCount(ctx context.Context, args ...string) (int, error)
	Log(ctx context.Context, revisionRange string) ([]commits.Commit, error)
	CurrentBranchOrRevision() (string, error)
}

// Strategy merges a pull request into its target branches.
type Strategy interface {
	Name() string
	// Prepare fetches the target branches and the pull request head.
	Prepare(ctx context.Context, pr *pullrequest.PullRequest) error
	// Check verifies the pull request applies cleanly to every target branch
	// without moving any branch.
	Check(ctx context.Context, pr *pullrequest.PullRequest) error
	// Merge lands the pull request. It must only run after a successful Check.
	Merge(ctx context.Context, pr *pullrequest.PullRequest) error
	// Cleanup deletes the temporary branches. It runs after the original branch
	// has been checked out again.
	Cleanup(ctx context.Context, pr *pullrequest.PullRequest) error
}

// Options configure the strategies.
type Options struct {
	// RemoteURL is the authenticated URL branches are fetched from and pushed to.
	RemoteURL string
	// MainBranch is the repository's primary branch.
	MainBranch string
	// MsgFilterCommand is the command filter-branch pipes each commit message through.
	// The pull request number is appended as the last argument.
	MsgFilterCommand string
	// CommentDelay is waited after an autosquash push before commenting on the PR.
	CommentDelay time.Duration
}

// LocalTargetBranch returns the local branch a target branch is fetched into.
func LocalTargetBranch(branch string) string {
	return localTargetPrefix + strings.ReplaceAll(branch, "/", "_")
}

type cherryPickOptions struct {
	dryRun bool
	// linkToOriginal records the original commit with "cherry picked from" lines.
	linkToOriginal bool
}

// base holds the fetch, cherry-pick and push mechanics shared by all strategies.
type base struct {
	git  GitClient
	api  github.APIClient
	opts Options
	log  *bullets.Logger

	// previous is the branch checked out when Prepare ran.
	previous string
}

func newBase(gitClient GitClient, api github.APIClient, opts Options) base {
	return base{git: gitClient, api: api, opts: opts, log: logger.NoLogger()}
}

func (b *base) prepare(ctx context.Context, pr *pullrequest.PullRequest) error {
	previous, err := b.git.CurrentBranchOrRevision()
	if err != nil {
		return err
	}
	b.previous = previous

	b.log.Info(fmt.Sprintf("Fetching %s and pull request #%d", strings.Join(pr.TargetBranches, ", "), pr.Number))
	return b.fetchTargetBranches(ctx, pr.TargetBranches,
		fmt.Sprintf("pull/%d/head:%s", pr.Number, pullrequest.TempHeadBranch))
}

// fetchTargetBranches fetches every branch into its local target branch in one call.
func (b *base) fetchTargetBranches(ctx context.Context, branches []string, extraRefspecs ...string) error {
	args := []string{"fetch", "-q", "-f", b.opts.RemoteURL}
	for _, branch := range branches {
		args = append(args, fmt.Sprintf("refs/heads/%s:%s", branch, LocalTargetBranch(branch)))
	}
	args = append(args, extraRefspecs...)

	if _, err := b.git.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to fetch target branches: %w", err)
	}
	return nil
}

func (b *base) check(ctx context.Context, pr *pullrequest.PullRequest) error {
	if !slices.Contains(pr.TargetBranches, pr.GithubTargetBranch) {
		return fmt.Errorf("%w: pull request targets %s, but is configured to land on %s",
			ErrMismatchedTargetBranch, pr.GithubTargetBranch, strings.Join(pr.TargetBranches, ", "))
	}

	if pr.RequiredBaseSHA != "" {
		if err := b.checkRequiredBase(ctx, pr.RequiredBaseSHA); err != nil {
			return err
		}
	}

	b.log.Info("Checking whether the pull request applies to every target branch")
	failed, err := b.cherryPickIntoTargetBranches(ctx, pr.RevisionRange, pr.TargetBranches,
		cherryPickOptions{dryRun: true})
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return &MergeConflictError{Branches: failed}
	}
	return nil
}

func (b *base) checkRequiredBase(ctx context.Context, sha string) error {
	res := b.git.RunGraceful(ctx, "merge-base", "--is-ancestor", sha, pullrequest.TempHeadBranch)
	switch {
	case res.Success():
		return nil
	case res.ExitCode == 1:
		return fmt.Errorf("%w: rebase the pull request onto a revision containing %s", ErrMissingRequiredBase, sha)
	default:
		return fmt.Errorf("failed to check for required base commit %s: %w", sha, res.Err)
	}
}

// cherryPickIntoTargetBranches applies revisionRange to each branch in turn and
// returns the branches it did not apply to. A dry run stages the changes without
// committing and resets afterwards, so no branch tip moves.
func (b *base) cherryPickIntoTargetBranches(
	ctx context.Context, revisionRange string, branches []string, opts cherryPickOptions,
) ([]string, error) {
	args := []string{"cherry-pick"}
	if opts.dryRun {
		args = append(args, "--no-commit")
	}
	if opts.linkToOriginal {
		args = append(args, "-x")
	}
	args = append(args, revisionRange)

	var failed []string
	for _, branch := range branches {
		if _, err := b.git.Run(ctx, "checkout", "-q", "-f", LocalTargetBranch(branch)); err != nil {
			return nil, err
		}

		res := b.git.RunGraceful(ctx, args...)
		if !res.Success() {
			b.log.Debug(fmt.Sprintf("Cherry-pick into %s failed: %s", branch, res.Stderr))
			failed = append(failed, branch)
			abortCtx := context.WithoutCancel(ctx)
			b.git.RunGraceful(abortCtx, "cherry-pick", "--abort")
			b.git.RunGraceful(abortCtx, "reset", "--hard", "HEAD")
			continue
		}

		if opts.dryRun {
			if _, err := b.git.Run(ctx, "reset", "--hard", "HEAD"); err != nil {
				return nil, err
			}
		}
	}
	return failed, nil
}

// pushTargetBranchesUpstream pushes every local target branch in one atomic push.
func (b *base) pushTargetBranchesUpstream(ctx context.Context, branches []string) error {
	args := []string{"push", "--atomic", b.opts.RemoteURL}
	for _, branch := range branches {
		args = append(args, fmt.Sprintf("%s:refs/heads/%s", LocalTargetBranch(branch), branch))
	}

	b.log.Info("Pushing " + strings.Join(branches, ", "))
	if _, err := b.git.Run(ctx, args...); err != nil {
		return fmt.Errorf("failed to push target branches: %w", err)
	}
	return nil
}

// revisionCount returns the number of commits in revisionRange.
func (b *base) revisionCount(ctx context.Context, revisionRange string) (int, error) {
	n, err := b.git.RunCount(ctx, "rev-list", "--count", revisionRange)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidCommitCount, err)
	}
	return n, nil
}

// cleanup deletes the temporary branches that exist.
func (b *base) cleanup(ctx context.Context, pr *pullrequest.PullRequest) error {
	candidates := []string{pullrequest.TempHeadBranch}
	for _, branch := range pr.TargetBranches {
		candidates = append(candidates, LocalTargetBranch(branch))
	}

	var existing []string
	for _, name := range candidates {
		if b.git.RunGraceful(ctx, "rev-parse", "--verify", "--quiet", "refs/heads/"+name).Success() {
			existing = append(existing, name)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if _, err := b.git.Run(ctx, append([]string{"branch", "-D"}, existing...)...); err != nil {
		return fmt.Errorf("failed to delete temporary branches: %w", err)
	}
	return nil
}

// restorePrevious checks out the branch that was active before Prepare.
func (b *base) restorePrevious(ctx context.Context) error {
	if b.previous == "" {
		return ErrNotPrepared
	}
	_, err := b.git.Run(ctx, "checkout", "-q", "-f", b.previous)
	return err
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("interrupted while waiting: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// SetLogger sets the logger for this strategy.
func (b *base) SetLogger(l *bullets.Logger) {
	b.log = l
}
