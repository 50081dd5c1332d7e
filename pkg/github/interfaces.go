package github

import "context"

// APIClient defines the GitHub operations used by the merge tool.
// This interface enables dependency injection and facilitates black box testing
// by allowing mock implementations to replace the actual GitHub API client.
type APIClient interface {
	// Owner returns the repository owner.
	Owner() string
	// Repo returns the repository name.
	Repo() string

	// GetPullRequest fetches pull request metadata. Returns ErrPRNotFound for 404.
	GetPullRequest(ctx context.Context, number int) (*PullRequest, error)
	// ListPullRequestCommits returns the pull request commits, oldest first.
	ListPullRequestCommits(ctx context.Context, number int) ([]Commit, error)
	// ListPullRequestFiles returns the paths touched by the pull request.
	ListPullRequestFiles(ctx context.Context, number int) ([]string, error)
	// ListReviews returns the submitted reviews.
	ListReviews(ctx context.Context, number int) ([]Review, error)
	// ListComments returns the issue comments.
	ListComments(ctx context.Context, number int) ([]Comment, error)
	// CreateComment posts an issue comment.
	CreateComment(ctx context.Context, number int, body string) error
	// ClosePullRequest closes the pull request without merging.
	ClosePullRequest(ctx context.Context, number int) error
	// MergePullRequest calls the merge endpoint; HTTP failures are in the result.
	MergePullRequest(ctx context.Context, number int, req MergeRequest) (*MergeResult, error)

	// ListCommitChecks returns check runs and statuses for a ref.
	ListCommitChecks(ctx context.Context, ref string) ([]CheckState, error)
	// ListBranches returns all branch names.
	ListBranches(ctx context.Context) ([]string, error)
	// GetFileContent returns a file at a ref. Returns ErrFileNotFound for 404.
	GetFileContent(ctx context.Context, path, ref string) ([]byte, error)
	// CompareFiles returns the paths changed between two refs.
	CompareFiles(ctx context.Context, base, head string) ([]string, error)
	// ListTeamsMembers returns the union of the members of the given teams.
	ListTeamsMembers(ctx context.Context, teamSlugs []string) ([]string, error)
	// AuthenticatedUser describes the credential in use.
	AuthenticatedUser(ctx context.Context) (*UserAccess, error)
}

// Ensure Client implements APIClient interface at compile time.
var _ APIClient = (*Client)(nil)
