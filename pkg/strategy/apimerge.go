package strategy

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/sgaunet/merge-train/internal/ui"
	"github.com/sgaunet/merge-train/pkg/commits"
	"github.com/sgaunet/merge-train/pkg/config"
	"github.com/sgaunet/merge-train/pkg/github"
	"github.com/sgaunet/merge-train/pkg/pullrequest"
)

// APIMergeStrategy merges the pull request into its base branch through the GitHub
// merge API, then cherry-picks the merged commits into the other target branches
// with -x so they link back to the merged commit.
type APIMergeStrategy struct {
	base

	cfg    *config.MergeStrategyConfig
	prompt ui.Prompter
}

// NewAPIMergeStrategy creates an API merge strategy. prompt opens the commit
// message editor when a fixup was requested.
func NewAPIMergeStrategy(
	gitClient GitClient, api github.APIClient, cfg *config.MergeStrategyConfig, prompt ui.Prompter, opts Options,
) *APIMergeStrategy {
	return &APIMergeStrategy{base: newBase(gitClient, api, opts), cfg: cfg, prompt: prompt}
}

// Name implements Strategy.
func (s *APIMergeStrategy) Name() string { return "github-api-merge" }

// Prepare implements Strategy.
func (s *APIMergeStrategy) Prepare(ctx context.Context, pr *pullrequest.PullRequest) error {
	return s.prepare(ctx, pr)
}

// Check implements Strategy.
func (s *APIMergeStrategy) Check(ctx context.Context, pr *pullrequest.PullRequest) error {
	return s.check(ctx, pr)
}

// Merge implements Strategy.
func (s *APIMergeStrategy) Merge(ctx context.Context, pr *pullrequest.PullRequest) error {
	method := s.cfg.MethodFor(pr.Labels)
	if pr.NeedsCommitMessageFixup && method != config.MethodSquash {
		return fmt.Errorf("%w: pull request #%d would be merged with %q", ErrFixupRequiresSquash, pr.Number, method)
	}

	req := github.MergeRequest{Method: string(method), SHA: pr.HeadSHA}
	if method == config.MethodSquash {
		title, message, err := s.squashCommitMessage(pr)
		if err != nil {
			return err
		}
		req.Title, req.Message = title, message
	}

	s.log.Info(fmt.Sprintf("Merging pull request #%d into %s (%s)", pr.Number, pr.GithubTargetBranch, method))
	res, err := s.api.MergePullRequest(ctx, pr.Number, req)
	if err != nil {
		return fmt.Errorf("failed to merge pull request #%d: %w", pr.Number, err)
	}

	switch res.StatusCode {
	case http.StatusOK:
	case http.StatusMethodNotAllowed:
		return &MergeConflictError{Branches: []string{pr.GithubTargetBranch}}
	case http.StatusForbidden, http.StatusNotFound:
		return ErrInsufficientPermissions
	default:
		return &UnexpectedStatusError{Code: res.StatusCode, Message: res.Message}
	}

	remaining := slices.DeleteFunc(slices.Clone(pr.TargetBranches), func(b string) bool {
		return b == pr.GithubTargetBranch
	})
	if len(remaining) == 0 {
		return nil
	}

	return s.propagate(ctx, pr, method, res.SHA, remaining)
}

// Cleanup implements Strategy.
func (s *APIMergeStrategy) Cleanup(ctx context.Context, pr *pullrequest.PullRequest) error {
	return s.cleanup(ctx, pr)
}

// propagate cherry-picks the commits the merge created on the base branch into
// the remaining target branches.
func (s *APIMergeStrategy) propagate(
	ctx context.Context, pr *pullrequest.PullRequest, method config.MergeMethod, sha string, branches []string,
) error {
	if _, err := s.git.Run(ctx, "fetch", "-q", "-f", s.opts.RemoteURL, "refs/heads/"+pr.GithubTargetBranch); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", pr.GithubTargetBranch, err)
	}

	revisionRange, err := s.mergedRevisionRange(ctx, pr, method, sha)
	if err != nil {
		return err
	}

	failed, err := s.cherryPickIntoTargetBranches(ctx, revisionRange, branches,
		cherryPickOptions{dryRun: true, linkToOriginal: true})
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return fmt.Errorf("pull request #%d was merged into %s, but: %w", pr.Number, pr.GithubTargetBranch,
			&MergeConflictError{Branches: failed})
	}

	failed, err = s.cherryPickIntoTargetBranches(ctx, revisionRange, branches,
		cherryPickOptions{linkToOriginal: true})
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		return &MergeConflictError{Branches: failed}
	}

	return s.pushTargetBranchesUpstream(ctx, branches)
}

// mergedRevisionRange returns the range of commits the API merge added. Merge
// commits are excluded: the second parent side holds the pull request commits.
func (s *APIMergeStrategy) mergedRevisionRange(
	ctx context.Context, pr *pullrequest.PullRequest, method config.MergeMethod, sha string,
) (string, error) {
	var revisionRange string
	expected := pr.CommitCount
	switch method {
	case config.MethodSquash:
		revisionRange, expected = fmt.Sprintf("%s~1..%s", sha, sha), 1
	case config.MethodMerge:
		revisionRange = fmt.Sprintf("%s^1..%s^2", sha, sha)
	default:
		revisionRange = fmt.Sprintf("%s~%d..%s", sha, pr.CommitCount, sha)
	}

	count, err := s.revisionCount(ctx, revisionRange)
	if err != nil {
		return "", err
	}
	if count != expected {
		return "", fmt.Errorf("%w: expected %d commits in %s, found %d",
			ErrInvalidCommitCount, expected, revisionRange, count)
	}
	return revisionRange, nil
}

// squashCommitMessage returns the title and message of the squash commit,
// letting the operator edit them when a commit message fixup was requested.
func (s *APIMergeStrategy) squashCommitMessage(pr *pullrequest.PullRequest) (string, string, error) {
	title := fmt.Sprintf("%s (#%d)", pr.Title, pr.Number)
	message := DefaultSquashMessage(pr.Commits)

	if !pr.NeedsCommitMessageFixup {
		return title, message, nil
	}

	edited, err := s.prompt.EditMessage("Edit the commit message of the squash merge",
		pr.Title+"\n\n"+message)
	if err != nil {
		return "", "", err
	}

	editedTitle, body, _ := strings.Cut(commits.StripComments(edited), "\n\n")
	editedTitle = strings.Join(strings.Fields(editedTitle), " ")
	return fmt.Sprintf("%s (#%d)", editedTitle, pr.Number), strings.TrimSpace(body), nil
}

// DefaultSquashMessage builds the message of a squash commit from the commits that
// survive autosquashing: the description of a lone commit, or a bullet list of
// every commit message otherwise.
func DefaultSquashMessage(list []commits.Commit) string {
	kept := commits.WithoutFixupOrSquash(list)
	if len(kept) <= 1 {
		if len(kept) == 0 {
			return ""
		}
		return kept[0].Description()
	}

	entries := make([]string, len(kept))
	for i, c := range kept {
		entries[i] = "* " + c.Header
		if d := c.Description(); d != "" {
			entries[i] += "\n\n" + d
		}
	}
	return strings.Join(entries, "\n\n")
}
