package validation

import (
	"context"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sgaunet/merge-train/pkg/github"
)

const testedCommentPrefix = "TESTED="

// PendingReviewsValidator blocks on outstanding review requests and on reviewers
// whose latest review requests changes.
type PendingReviewsValidator struct {
	API github.APIClient
}

// Name implements Validator.
func (PendingReviewsValidator) Name() string { return "pending-reviews" }

// Validate implements Validator.
func (v PendingReviewsValidator) Validate(ctx context.Context, in *Input) (*Failure, error) {
	if in.IgnorePendingReviews {
		return nil, nil
	}

	if in.PR.PendingReviewers > 0 {
		return ignorable("Pull request has %d pending review request(s).", in.PR.PendingReviewers), nil
	}

	reviews, err := v.API.ListReviews(ctx, in.PR.Number)
	if err != nil {
		return nil, err
	}

	latest := make(map[string]github.Review)
	var order []string
	for _, r := range reviews {
		if r.State == "COMMENTED" || r.State == "PENDING" {
			continue
		}
		if _, seen := latest[r.User]; !seen {
			order = append(order, r.User)
		}
		latest[r.User] = r
	}

	var blocking []string
	for _, user := range order {
		if latest[user].RequestsChanges() {
			blocking = append(blocking, user)
		}
	}
	if len(blocking) > 0 {
		return ignorable("Pull request has changes requested by: %s", strings.Join(blocking, ", ")), nil
	}

	return nil, nil
}

// StatusChecksValidator requires every check on the head commit (or the configured
// required ones) to have passed.
type StatusChecksValidator struct {
	API github.APIClient
}

// Name implements Validator.
func (StatusChecksValidator) Name() string { return "status-checks" }

// Validate implements Validator.
func (v StatusChecksValidator) Validate(ctx context.Context, in *Input) (*Failure, error) {
	checks, err := v.API.ListCommitChecks(ctx, in.PR.HeadSHA)
	if err != nil {
		return nil, err
	}

	required := in.Config.Merge.RequiredStatusChecks
	var failing, pending []string
	seen := make(map[string]bool)

	for _, c := range checks {
		if len(required) > 0 && !slices.Contains(required, c.Name) {
			continue
		}
		seen[c.Name] = true
		switch {
		case c.Failed():
			failing = append(failing, c.Name)
		case c.Pending():
			pending = append(pending, c.Name)
		}
	}
	for _, name := range required {
		if !seen[name] {
			pending = append(pending, name)
		}
	}

	switch {
	case len(failing) > 0:
		return fatal("Pull request has failing status checks: %s", strings.Join(failing, ", ")), nil
	case len(pending) > 0:
		return fatal("Pull request has pending status checks: %s", strings.Join(pending, ", ")), nil
	}
	return nil, nil
}

// IsolatedSeparateFilesValidator keeps changes to the configured separate files
// apart from everything else, both inside the PR and relative to what was merged
// since the last sync.
type IsolatedSeparateFilesValidator struct {
	API github.APIClient
}

// Name implements Validator.
func (IsolatedSeparateFilesValidator) Name() string { return "isolated-separate-files" }

// Validate implements Validator.
func (v IsolatedSeparateFilesValidator) Validate(ctx context.Context, in *Input) (*Failure, error) {
	cfg := in.Config.Merge.IsolatedSeparateFiles
	if cfg == nil || len(cfg.Patterns) == 0 {
		return nil, nil
	}

	files, err := v.API.ListPullRequestFiles(ctx, in.PR.Number)
	if err != nil {
		return nil, err
	}
	separate, primary := partitionFiles(files, cfg.Patterns)

	if len(separate) > 0 && len(primary) > 0 {
		return fatal("Pull request mixes files that must be merged separately (%s) with other files. "+
			"Split it into two pull requests.", quoteAll(cfg.Patterns)), nil
	}
	if len(separate) == 0 && len(primary) == 0 {
		return nil, nil
	}

	merged, err := v.API.CompareFiles(ctx, cfg.SyncedRef, in.PR.BaseRef)
	if err != nil {
		return nil, err
	}
	mergedSeparate, mergedPrimary := partitionFiles(merged, cfg.Patterns)

	if len(separate) > 0 && len(mergedPrimary) > 0 {
		return fatal("Pull request only changes separate files, but %d other file(s) were merged since %s. "+
			"Sync %s before merging.", len(mergedPrimary), cfg.SyncedRef, cfg.SyncedRef), nil
	}
	if len(primary) > 0 && len(mergedSeparate) > 0 {
		return fatal("Pull request changes regular files, but %d separate file(s) were merged since %s. "+
			"Sync %s before merging.", len(mergedSeparate), cfg.SyncedRef, cfg.SyncedRef), nil
	}

	return nil, nil
}

func partitionFiles(files, patterns []string) ([]string, []string) {
	var separate, primary []string
	for _, f := range files {
		if matchesAny(f, patterns) {
			separate = append(separate, f)
		} else {
			primary = append(primary, f)
		}
	}
	return separate, primary
}

func matchesAny(path string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, path); err == nil && ok {
			return true
		}
	}
	return false
}

// TestedValidator requires PRs carrying the testing label to have a successful test
// status or a TESTED= comment from a trusted account.
type TestedValidator struct {
	API github.APIClient
}

// Name implements Validator.
func (TestedValidator) Name() string { return "tested" }

// Validate implements Validator.
func (v TestedValidator) Validate(ctx context.Context, in *Input) (*Failure, error) {
	cfg := in.Config.Merge.Tested
	if cfg == nil || !in.HasLabel(cfg.RequiredLabel) {
		return nil, nil
	}

	if cfg.StatusCheck != "" {
		checks, err := v.API.ListCommitChecks(ctx, in.PR.HeadSHA)
		if err != nil {
			return nil, err
		}
		for _, c := range checks {
			if c.Name == cfg.StatusCheck && c.Succeeded() {
				return nil, nil
			}
		}
	}

	comments, err := v.API.ListComments(ctx, in.PR.Number)
	if err != nil {
		return nil, err
	}

	var candidates []github.Comment
	for _, c := range comments {
		if hasTestedLine(c.Body) {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) > 0 {
		trusted, err := v.trustedUsers(ctx, cfg.TrustedUsers, cfg.TrustedTeams)
		if err != nil {
			return nil, err
		}
		for _, c := range candidates {
			if slices.Contains(trusted, c.User) {
				return nil, nil
			}
		}
	}

	return ignorable("Pull request requires testing (%q label): no successful test status and no %s "+
		"comment from a trusted account.", cfg.RequiredLabel, testedCommentPrefix), nil
}

func (v TestedValidator) trustedUsers(ctx context.Context, users, teams []string) ([]string, error) {
	trusted := slices.Clone(users)
	if len(teams) == 0 {
		return trusted, nil
	}

	members, err := v.API.ListTeamsMembers(ctx, teams)
	if err != nil {
		return nil, err
	}
	return append(trusted, members...), nil
}

func hasTestedLine(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), testedCommentPrefix) {
			return true
		}
	}
	return false
}
