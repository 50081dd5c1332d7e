package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/sgaunet/merge-train/pkg/github"
	"github.com/sgaunet/merge-train/pkg/pullrequest"
)

// AutosquashStrategy rebases the pull request locally with --autosquash, rewrites
// its commit messages to reference the pull request, and cherry-picks the result
// into every target branch.
//
// GitHub does not mark a pull request as merged when its commits land through a
// push, so the strategy comments on the pull request and closes it when its base
// branch is not the primary branch.
type AutosquashStrategy struct {
	base
}

// NewAutosquashStrategy creates an autosquash strategy.
func NewAutosquashStrategy(gitClient GitClient, api github.APIClient, opts Options) *AutosquashStrategy {
	return &AutosquashStrategy{base: newBase(gitClient, api, opts)}
}

// Name implements Strategy.
func (s *AutosquashStrategy) Name() string { return "autosquash" }

// Prepare implements Strategy.
func (s *AutosquashStrategy) Prepare(ctx context.Context, pr *pullrequest.PullRequest) error {
	return s.prepare(ctx, pr)
}

// Check implements Strategy.
func (s *AutosquashStrategy) Check(ctx context.Context, pr *pullrequest.PullRequest) error {
	return s.check(ctx, pr)
}

// Merge implements Strategy.
func (s *AutosquashStrategy) Merge(ctx context.Context, pr *pullrequest.PullRequest) error {
	if err := s.autosquash(ctx, pr); err != nil {
		return err
	}

	// filter-branch rewrites merge_pr_head, which must not be checked out.
	if err := s.restorePrevious(ctx); err != nil {
		return err
	}

	if err := s.rewriteCommitMessages(ctx, pr); err != nil {
		return err
	}

	failed, err := s.cherryPickIntoTargetBranches(ctx, pr.RevisionRange, pr.TargetBranches, cherryPickOptions{})
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return &MergeConflictError{Branches: failed}
	}

	if err := s.pushTargetBranchesUpstream(ctx, pr.TargetBranches); err != nil {
		return err
	}

	sha, err := s.git.Run(ctx, "rev-parse", LocalTargetBranch(pr.GithubTargetBranch))
	if err != nil {
		return err
	}

	return s.reportMerged(ctx, pr, sha)
}

// Cleanup implements Strategy.
func (s *AutosquashStrategy) Cleanup(ctx context.Context, pr *pullrequest.PullRequest) error {
	return s.cleanup(ctx, pr)
}

func (s *AutosquashStrategy) autosquash(ctx context.Context, pr *pullrequest.PullRequest) error {
	var env []string
	if !pr.NeedsCommitMessageFixup {
		// Accept the autosquash todo list as is.
		env = append(env, "GIT_SEQUENCE_EDITOR=true")
	}

	s.log.Info("Rebasing pull request with autosquash")
	err := s.git.RunInteractive(ctx, env,
		"rebase", "--interactive", "--autosquash", pr.BaseSHA, pullrequest.TempHeadBranch)
	if err != nil {
		s.git.RunGraceful(context.WithoutCancel(ctx), "rebase", "--abort")
		return fmt.Errorf("%w: %w", ErrRebaseFailed, err)
	}
	return nil
}

func (s *AutosquashStrategy) rewriteCommitMessages(ctx context.Context, pr *pullrequest.PullRequest) error {
	filter := fmt.Sprintf("%s %d", s.opts.MsgFilterCommand, pr.Number)
	err := s.git.RunInteractive(ctx, []string{"FILTER_BRANCH_SQUELCH_WARNING=1"},
		"filter-branch", "-f", "--msg-filter", filter, pr.RevisionRange)
	if err != nil {
		return fmt.Errorf("failed to rewrite commit messages: %w", err)
	}

	rewritten, err := s.git.Log(ctx, pr.RevisionRange)
	if err != nil {
		return err
	}
	for _, c := range rewritten {
		s.log.Debug("Rewritten: " + c.FormattedForDisplay())
	}
	return nil
}

func (s *AutosquashStrategy) reportMerged(ctx context.Context, pr *pullrequest.PullRequest, sha string) error {
	if err := wait(ctx, s.opts.CommentDelay); err != nil {
		return err
	}

	body := fmt.Sprintf("This PR was merged into the repository by commit %s.\n\n"+
		"The changes were merged into the following branches: %s", sha, strings.Join(pr.TargetBranches, ", "))
	if err := s.api.CreateComment(ctx, pr.Number, body); err != nil {
		return fmt.Errorf("failed to comment on pull request #%d: %w", pr.Number, err)
	}

	if pr.GithubTargetBranch != s.opts.MainBranch {
		if err := s.api.ClosePullRequest(ctx, pr.Number); err != nil {
			return fmt.Errorf("failed to close pull request #%d: %w", pr.Number, err)
		}
	}
	return nil
}
