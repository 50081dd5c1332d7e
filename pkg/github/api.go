package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v69/github"
	"golang.org/x/sync/errgroup"
)

// GetPullRequest fetches pull request metadata.
func (c *Client) GetPullRequest(ctx context.Context, number int) (*PullRequest, error) {
	c.log.Debug(fmt.Sprintf("Fetching pull request #%d", number))

	pr, resp, err := c.client.PullRequests.Get(ctx, c.owner, c.repo, number)
	if err != nil {
		if statusCode(resp, err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: #%d", ErrPRNotFound, number)
		}
		return nil, fmt.Errorf("failed to get pull request #%d: %w", number, err)
	}

	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}

	return &PullRequest{
		Number:           pr.GetNumber(),
		Title:            pr.GetTitle(),
		Body:             pr.GetBody(),
		State:            pr.GetState(),
		Draft:            pr.GetDraft(),
		Merged:           pr.GetMerged(),
		Author:           pr.GetUser().GetLogin(),
		BaseRef:          pr.GetBase().GetRef(),
		HeadRef:          pr.GetHead().GetRef(),
		HeadSHA:          pr.GetHead().GetSHA(),
		Labels:           labels,
		CommitCount:      pr.GetCommits(),
		PendingReviewers: len(pr.RequestedReviewers) + len(pr.RequestedTeams),
	}, nil
}

// ListPullRequestCommits returns the commits of a pull request, oldest first.
// The API caps the list at 250 commits.
func (c *Client) ListPullRequestCommits(ctx context.Context, number int) ([]Commit, error) {
	var all []Commit
	opts := &github.ListOptions{PerPage: perPage}

	for {
		commits, resp, err := c.client.PullRequests.ListCommits(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list commits of #%d: %w", number, err)
		}
		for _, rc := range commits {
			parents := make([]string, 0, len(rc.Parents))
			for _, p := range rc.Parents {
				parents = append(parents, p.GetSHA())
			}
			all = append(all, Commit{SHA: rc.GetSHA(), Message: rc.GetCommit().GetMessage(), ParentSHAs: parents})
		}
		if resp.NextPage == 0 || len(all) >= maxCommitsPerPR {
			break
		}
		opts.Page = resp.NextPage
	}

	c.log.Debug(fmt.Sprintf("Pull request #%d has %d commits", number, len(all)))
	return all, nil
}

// ListPullRequestFiles returns the paths touched by a pull request.
func (c *Client) ListPullRequestFiles(ctx context.Context, number int) ([]string, error) {
	var files []string
	opts := &github.ListOptions{PerPage: perPage}

	for {
		page, resp, err := c.client.PullRequests.ListFiles(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list files of #%d: %w", number, err)
		}
		for _, f := range page {
			files = append(files, f.GetFilename())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// ListReviews returns the submitted reviews of a pull request.
func (c *Client) ListReviews(ctx context.Context, number int) ([]Review, error) {
	var reviews []Review
	opts := &github.ListOptions{PerPage: perPage}

	for {
		page, resp, err := c.client.PullRequests.ListReviews(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list reviews of #%d: %w", number, err)
		}
		for _, r := range page {
			reviews = append(reviews, Review{User: r.GetUser().GetLogin(), State: r.GetState()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return reviews, nil
}

// ListComments returns the issue comments of a pull request.
func (c *Client) ListComments(ctx context.Context, number int) ([]Comment, error) {
	var comments []Comment
	opts := &github.IssueListCommentsOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	for {
		page, resp, err := c.client.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list comments of #%d: %w", number, err)
		}
		for _, ic := range page {
			comments = append(comments, Comment{User: ic.GetUser().GetLogin(), Body: ic.GetBody()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return comments, nil
}

// CreateComment posts an issue comment on a pull request.
func (c *Client) CreateComment(ctx context.Context, number int, body string) error {
	c.log.Debug(fmt.Sprintf("Commenting on pull request #%d", number))

	_, _, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("failed to comment on #%d: %w", number, err)
	}
	return nil
}

// ClosePullRequest closes a pull request without merging it.
func (c *Client) ClosePullRequest(ctx context.Context, number int) error {
	c.log.Debug(fmt.Sprintf("Closing pull request #%d", number))

	_, _, err := c.client.PullRequests.Edit(ctx, c.owner, c.repo, number, &github.PullRequest{
		State: github.Ptr(stateClosed),
	})
	if err != nil {
		return fmt.Errorf("failed to close #%d: %w", number, err)
	}
	return nil
}

// MergePullRequest calls the merge endpoint. Only transport failures are returned as
// errors; every HTTP response is reported in the MergeResult.
func (c *Client) MergePullRequest(ctx context.Context, number int, req MergeRequest) (*MergeResult, error) {
	c.log.Debug(fmt.Sprintf("Merging pull request #%d using method: %s", number, req.Method))

	options := &github.PullRequestOptions{
		MergeMethod: req.Method,
		CommitTitle: req.Title,
		SHA:         req.SHA,
	}

	merged, resp, err := c.client.PullRequests.Merge(ctx, c.owner, c.repo, number, req.Message, options)
	code := statusCode(resp, err)
	if err != nil && code == 0 {
		return nil, fmt.Errorf("failed to merge #%d: %w", number, err)
	}

	result := &MergeResult{StatusCode: code}
	if err != nil {
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) {
			result.Message = errResp.Message
		} else {
			result.Message = err.Error()
		}
		return result, nil
	}

	result.SHA = merged.GetSHA()
	result.Message = merged.GetMessage()
	return result, nil
}

// ListCommitChecks returns the check runs and commit statuses reported for ref.
func (c *Client) ListCommitChecks(ctx context.Context, ref string) ([]CheckState, error) {
	var checks []CheckState

	runOpts := &github.ListCheckRunsOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	for {
		runs, resp, err := c.client.Checks.ListCheckRunsForRef(ctx, c.owner, c.repo, ref, runOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to list check runs: %w", err)
		}
		for _, run := range runs.CheckRuns {
			checks = append(checks, checkRunState(run))
		}
		if resp.NextPage == 0 {
			break
		}
		runOpts.Page = resp.NextPage
	}

	status, _, err := c.client.Repositories.GetCombinedStatus(ctx, c.owner, c.repo, ref,
		&github.ListOptions{PerPage: perPage})
	if err != nil {
		return nil, fmt.Errorf("failed to get combined status: %w", err)
	}
	for _, s := range status.Statuses {
		state := s.GetState()
		if state == "error" {
			state = CheckFailure
		}
		checks = append(checks, NewCheckState(s.GetContext(), state))
	}

	c.log.Debug(fmt.Sprintf("Found %d checks and statuses for %s", len(checks), ref))
	return checks, nil
}

func checkRunState(run *github.CheckRun) CheckState {
	if run.GetStatus() != statusCompleted {
		return NewCheckState(run.GetName(), CheckPending)
	}
	switch run.GetConclusion() {
	case conclusionSuccess, conclusionSkipped, conclusionNeutral:
		return NewCheckState(run.GetName(), CheckSuccess)
	default:
		return NewCheckState(run.GetName(), CheckFailure)
	}
}

// ListBranches returns the names of all branches of the repository.
func (c *Client) ListBranches(ctx context.Context) ([]string, error) {
	var names []string
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	for {
		branches, resp, err := c.client.Repositories.ListBranches(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list branches: %w", err)
		}
		for _, b := range branches {
			names = append(names, b.GetName())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return names, nil
}

// GetFileContent returns the decoded content of path at ref.
func (c *Client) GetFileContent(ctx context.Context, path, ref string) ([]byte, error) {
	file, _, resp, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if statusCode(resp, err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s@%s", ErrFileNotFound, path, ref)
		}
		return nil, fmt.Errorf("failed to get %s@%s: %w", path, ref, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%w: %s@%s", ErrNotAFile, path, ref)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s@%s: %w", path, ref, err)
	}
	return []byte(content), nil
}

// CompareFiles returns the paths changed between base and head.
func (c *Client) CompareFiles(ctx context.Context, base, head string) ([]string, error) {
	var files []string
	opts := &github.ListOptions{PerPage: perPage}

	for {
		cmp, resp, err := c.client.Repositories.CompareCommits(ctx, c.owner, c.repo, base, head, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to compare %s...%s: %w", base, head, err)
		}
		for _, f := range cmp.Files {
			files = append(files, f.GetFilename())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return files, nil
}

// ListTeamMembers returns the logins of a team in the repository owner's organization.
func (c *Client) ListTeamMembers(ctx context.Context, teamSlug string) ([]string, error) {
	key := "team:" + teamSlug
	if cached, ok := c.cache.get(key); ok {
		if members, ok := cached.([]string); ok {
			return members, nil
		}
	}

	var members []string
	opts := &github.TeamListTeamMembersOptions{ListOptions: github.ListOptions{PerPage: perPage}}
	for {
		users, resp, err := c.client.Teams.ListTeamMembersBySlug(ctx, c.owner, teamSlug, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list members of team %s: %w", teamSlug, err)
		}
		for _, u := range users {
			members = append(members, u.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	c.cache.set(key, members)
	return members, nil
}

// ListTeamsMembers fetches several teams concurrently and returns the union of
// their members.
func (c *Client) ListTeamsMembers(ctx context.Context, teamSlugs []string) ([]string, error) {
	results := make([][]string, len(teamSlugs))

	g, gctx := errgroup.WithContext(ctx)
	for i, slug := range teamSlugs {
		g.Go(func() error {
			members, err := c.ListTeamMembers(gctx, slug)
			if err != nil {
				return err
			}
			results[i] = members
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var union []string
	for _, members := range results {
		for _, m := range members {
			if !seen[m] {
				seen[m] = true
				union = append(union, m)
			}
		}
	}
	return union, nil
}

// AuthenticatedUser returns the login, account type and OAuth scopes of the
// credential. The answer is cached.
func (c *Client) AuthenticatedUser(ctx context.Context) (*UserAccess, error) {
	if cached, ok := c.cache.get(userCacheKey); ok {
		if access, ok := cached.(*UserAccess); ok {
			return access, nil
		}
	}

	user, resp, err := c.client.Users.Get(ctx, "")
	if statusCode(resp, err) == http.StatusForbidden {
		return c.installationAccess(ctx, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get authenticated user: %w", err)
	}

	access := &UserAccess{
		Login:  user.GetLogin(),
		Type:   user.GetType(),
		Scopes: parseScopes(resp.Header.Get(oauthScopesHeader)),
	}
	c.log.Debug(fmt.Sprintf("Authenticated as %s (%s) with scopes %v", access.Login, access.Type, access.Scopes))

	c.cache.set(userCacheKey, access)
	return access, nil
}

// installationAccess identifies GitHub App installation tokens, which cannot read
// /user but can list the repositories of their installation.
func (c *Client) installationAccess(ctx context.Context, userErr error) (*UserAccess, error) {
	if _, _, err := c.client.Apps.ListRepos(ctx, &github.ListOptions{PerPage: 1}); err != nil {
		return nil, fmt.Errorf("failed to get authenticated user: %w", errors.Join(userErr, err))
	}

	access := &UserAccess{Login: installationLogin, Type: userTypeBot}
	c.log.Debug("Authenticated as a GitHub App installation")

	c.cache.set(userCacheKey, access)
	return access, nil
}

func parseScopes(header string) []string {
	var scopes []string
	for _, s := range strings.Split(header, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}
