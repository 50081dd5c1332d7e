package mocks

import (
	"context"
	"net/http"

	ghpkg "github.com/sgaunet/merge-train/pkg/github"
)

// GitHubAPIClient is a mock implementation of github.APIClient with call tracking.
type GitHubAPIClient struct {
	callTracker

	OwnerName string
	RepoName  string

	// Configurable responses
	PullRequest         *ghpkg.PullRequest
	GetPullRequestError error
	Commits             []ghpkg.Commit
	ListCommitsError    error
	Files               []string
	ListFilesError      error
	Reviews             []ghpkg.Review
	Comments            []ghpkg.Comment
	CreateCommentError  error
	ClosePullRequestErr error
	MergeResult         *ghpkg.MergeResult
	MergeError          error
	Checks              []ghpkg.CheckState
	ListChecksError     error
	Branches            []string
	// FileContents maps "path@ref" to file content.
	FileContents map[string]string
	// ComparedFiles maps "base...head" to the changed paths.
	ComparedFiles map[string][]string
	TeamMembers   map[string][]string
	User          *ghpkg.UserAccess
	UserError     error
}

// NewGitHubAPIClient creates a new mock GitHub API client for angular/angular.
func NewGitHubAPIClient() *GitHubAPIClient {
	return &GitHubAPIClient{
		OwnerName:     "angular",
		RepoName:      "angular",
		MergeResult:   &ghpkg.MergeResult{StatusCode: http.StatusOK, SHA: "5e1ec7ed"},
		FileContents:  make(map[string]string),
		ComparedFiles: make(map[string][]string),
		TeamMembers:   make(map[string][]string),
		User:          &ghpkg.UserAccess{Login: "caretaker", Type: "User", Scopes: []string{"repo", "workflow"}},
	}
}

// Owner implements github.APIClient.
func (m *GitHubAPIClient) Owner() string { return m.OwnerName }

// Repo implements github.APIClient.
func (m *GitHubAPIClient) Repo() string { return m.RepoName }

// GetPullRequest implements github.APIClient.
func (m *GitHubAPIClient) GetPullRequest(_ context.Context, number int) (*ghpkg.PullRequest, error) {
	m.trackCall("GetPullRequest", map[string]any{"number": number})
	if m.GetPullRequestError != nil {
		return nil, m.GetPullRequestError
	}
	return m.PullRequest, nil
}

// ListPullRequestCommits implements github.APIClient.
func (m *GitHubAPIClient) ListPullRequestCommits(_ context.Context, number int) ([]ghpkg.Commit, error) {
	m.trackCall("ListPullRequestCommits", map[string]any{"number": number})
	return m.Commits, m.ListCommitsError
}

// ListPullRequestFiles implements github.APIClient.
func (m *GitHubAPIClient) ListPullRequestFiles(_ context.Context, number int) ([]string, error) {
	m.trackCall("ListPullRequestFiles", map[string]any{"number": number})
	return m.Files, m.ListFilesError
}

// ListReviews implements github.APIClient.
func (m *GitHubAPIClient) ListReviews(_ context.Context, number int) ([]ghpkg.Review, error) {
	m.trackCall("ListReviews", map[string]any{"number": number})
	return m.Reviews, nil
}

// ListComments implements github.APIClient.
func (m *GitHubAPIClient) ListComments(_ context.Context, number int) ([]ghpkg.Comment, error) {
	m.trackCall("ListComments", map[string]any{"number": number})
	return m.Comments, nil
}

// CreateComment implements github.APIClient.
func (m *GitHubAPIClient) CreateComment(_ context.Context, number int, body string) error {
	m.trackCall("CreateComment", map[string]any{"number": number, "body": body})
	return m.CreateCommentError
}

// ClosePullRequest implements github.APIClient.
func (m *GitHubAPIClient) ClosePullRequest(_ context.Context, number int) error {
	m.trackCall("ClosePullRequest", map[string]any{"number": number})
	return m.ClosePullRequestErr
}

// MergePullRequest implements github.APIClient.
func (m *GitHubAPIClient) MergePullRequest(
	_ context.Context, number int, req ghpkg.MergeRequest,
) (*ghpkg.MergeResult, error) {
	m.trackCall("MergePullRequest", map[string]any{
		"number":  number,
		"method":  req.Method,
		"title":   req.Title,
		"message": req.Message,
		"sha":     req.SHA,
	})
	if m.MergeError != nil {
		return nil, m.MergeError
	}
	return m.MergeResult, nil
}

// ListCommitChecks implements github.APIClient.
func (m *GitHubAPIClient) ListCommitChecks(_ context.Context, ref string) ([]ghpkg.CheckState, error) {
	m.trackCall("ListCommitChecks", map[string]any{"ref": ref})
	return m.Checks, m.ListChecksError
}

// ListBranches implements github.APIClient.
func (m *GitHubAPIClient) ListBranches(_ context.Context) ([]string, error) {
	m.trackCall("ListBranches", map[string]any{})
	return m.Branches, nil
}

// GetFileContent implements github.APIClient.
func (m *GitHubAPIClient) GetFileContent(_ context.Context, path, ref string) ([]byte, error) {
	m.trackCall("GetFileContent", map[string]any{"path": path, "ref": ref})
	content, ok := m.FileContents[path+"@"+ref]
	if !ok {
		return nil, ghpkg.ErrFileNotFound
	}
	return []byte(content), nil
}

// CompareFiles implements github.APIClient.
func (m *GitHubAPIClient) CompareFiles(_ context.Context, base, head string) ([]string, error) {
	m.trackCall("CompareFiles", map[string]any{"base": base, "head": head})
	return m.ComparedFiles[base+"..."+head], nil
}

// ListTeamsMembers implements github.APIClient.
func (m *GitHubAPIClient) ListTeamsMembers(_ context.Context, teamSlugs []string) ([]string, error) {
	m.trackCall("ListTeamsMembers", map[string]any{"teams": teamSlugs})
	var members []string
	for _, slug := range teamSlugs {
		members = append(members, m.TeamMembers[slug]...)
	}
	return members, nil
}

// AuthenticatedUser implements github.APIClient.
func (m *GitHubAPIClient) AuthenticatedUser(_ context.Context) (*ghpkg.UserAccess, error) {
	m.trackCall("AuthenticatedUser", map[string]any{})
	return m.User, m.UserError
}

// Ensure GitHubAPIClient implements github.APIClient interface.
var _ ghpkg.APIClient = (*GitHubAPIClient)(nil)

// SetReleaseTrains exposes branches with the given package.json versions, so that
// release train discovery sees them.
func (m *GitHubAPIClient) SetReleaseTrains(versions map[string]string) {
	m.Branches = m.Branches[:0]
	for branch, version := range versions {
		m.Branches = append(m.Branches, branch)
		m.FileContents["package.json@"+branch] = `{"version": "` + version + `"}`
	}
}
