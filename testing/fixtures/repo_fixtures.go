package fixtures

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/sgaunet/merge-train/pkg/git"
	"github.com/stretchr/testify/require"
)

// GitRepo builds commit graphs with go-git for tests that drive the git binary.
type GitRepo struct {
	Dir string

	t    *testing.T
	repo *gogit.Repository
	wt   *gogit.Worktree
}

// NewGitRepo initializes an empty repository whose default branch is main.
func NewGitRepo(t *testing.T) *GitRepo {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	return &GitRepo{Dir: dir, t: t, repo: repo, wt: wt}
}

// Commit writes content to name and commits it on the current branch.
func (r *GitRepo) Commit(name, content, message string) string {
	r.t.Helper()
	require.NoError(r.t, os.WriteFile(filepath.Join(r.Dir, name), []byte(content), 0o600))
	_, err := r.wt.Add(name)
	require.NoError(r.t, err)

	hash, err := r.wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(r.t, err)
	return hash.String()
}

// Branch creates branch name at sha and checks it out.
func (r *GitRepo) Branch(name, sha string) {
	r.t.Helper()
	require.NoError(r.t, r.wt.Checkout(&gogit.CheckoutOptions{
		Hash:   plumbing.NewHash(sha),
		Branch: plumbing.NewBranchReferenceName(name),
		Create: true,
	}))
}

// Checkout checks out an existing branch.
func (r *GitRepo) Checkout(name string) {
	r.t.Helper()
	require.NoError(r.t, r.wt.Checkout(&gogit.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}))
}

// SetRef points ref, e.g. refs/pull/1/head, at sha.
func (r *GitRepo) SetRef(ref, sha string) {
	r.t.Helper()
	require.NoError(r.t, r.repo.Storer.SetReference(
		plumbing.NewHashReference(plumbing.ReferenceName(ref), plumbing.NewHash(sha))))
}

// Bare mirrors every ref into a new bare repository that can be pushed to, and
// returns its path. main is its default branch.
func (r *GitRepo) Bare() string {
	r.t.Helper()
	r.Checkout("main")

	dir := filepath.Join(r.t.TempDir(), "upstream.git")
	RunGit(r.t, "", "clone", "-q", "--mirror", r.Dir, dir)
	return dir
}

// RequireGit skips the test when the git binary is missing and gives git a
// committer identity and non-interactive editors.
func RequireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}

	t.Setenv("GIT_AUTHOR_NAME", "Test")
	t.Setenv("GIT_AUTHOR_EMAIL", "test@example.com")
	t.Setenv("GIT_COMMITTER_NAME", "Test")
	t.Setenv("GIT_COMMITTER_EMAIL", "test@example.com")
	t.Setenv("GIT_EDITOR", "true")
}

// RunGit runs git in dir and returns its trimmed stdout.
func RunGit(t *testing.T, dir string, args ...string) string {
	t.Helper()

	// #nosec G204 - tests run git on temporary repositories
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		var stderr string
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			stderr = string(exitErr.Stderr)
		}
		require.NoError(t, err, "git %s: %s", strings.Join(args, " "), stderr)
	}
	return strings.TrimSpace(string(out))
}

// CloneRepository clones url into a temporary directory and opens the clone.
func CloneRepository(t *testing.T, url string) *git.Client {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "work")
	RunGit(t, "", "clone", "-q", url, dir)

	client, err := git.Open(dir, nil)
	require.NoError(t, err)
	return client
}
