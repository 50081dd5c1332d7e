package github_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sgaunet/merge-train/internal/security"
	ghpkg "github.com/sgaunet/merge-train/pkg/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setup starts a test API server and returns a client bound to angular/angular.
func setup(t *testing.T) (*ghpkg.Client, *http.ServeMux) {
	client, mux, _ := setupWithURL(t)
	return client, mux
}

func setupWithURL(t *testing.T) (*ghpkg.Client, *http.ServeMux, string) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := ghpkg.NewClientWithHTTP(server.Client(), "angular", "angular", ghpkg.WithBaseURL(server.URL))
	require.NoError(t, err)
	return client, mux, server.URL
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_RequiresToken(t *testing.T) {
	_, err := ghpkg.NewClient(security.NewSecureToken(""), "o", "r")
	require.ErrorIs(t, err, ghpkg.ErrTokenRequired)

	_, err = ghpkg.NewClient(security.NewSecureToken("ghp_x"), "", "r")
	require.ErrorIs(t, err, ghpkg.ErrRepositoryRequired)

	client, err := ghpkg.NewClient(security.NewSecureToken("ghp_x"), "o", "r")
	require.NoError(t, err)
	assert.Equal(t, "o", client.Owner())
	assert.Equal(t, "r", client.Repo())
}

func TestGetPullRequest(t *testing.T) {
	client, mux := setup(t)
	mux.HandleFunc("GET /repos/angular/angular/pulls/42", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"number":              42,
			"title":               "fix(core): handle null",
			"state":               "open",
			"draft":               false,
			"merged":              false,
			"commits":             3,
			"user":                map[string]any{"login": "octocat"},
			"base":                map[string]any{"ref": "main"},
			"head":                map[string]any{"ref": "fix-null", "sha": "abc123"},
			"labels":              []map[string]any{{"name": "target: patch"}, {"name": "action: merge"}},
			"requested_reviewers": []map[string]any{{"login": "reviewer"}},
		})
	})

	pr, err := client.GetPullRequest(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "fix(core): handle null", pr.Title)
	assert.Equal(t, "main", pr.BaseRef)
	assert.Equal(t, "abc123", pr.HeadSHA)
	assert.Equal(t, []string{"target: patch", "action: merge"}, pr.Labels)
	assert.Equal(t, 3, pr.CommitCount)
	assert.Equal(t, 1, pr.PendingReviewers)
	assert.True(t, pr.IsOpen())
}

func TestGetPullRequest_NotFound(t *testing.T) {
	client, mux := setup(t)
	mux.HandleFunc("GET /repos/angular/angular/pulls/7", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusNotFound, map[string]any{"message": "Not Found"})
	})

	_, err := client.GetPullRequest(context.Background(), 7)
	require.ErrorIs(t, err, ghpkg.ErrPRNotFound)
}

func TestListPullRequestCommits_Paginates(t *testing.T) {
	client, mux, serverURL := setupWithURL(t)
	mux.HandleFunc("GET /repos/angular/angular/pulls/1/commits", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			writeJSON(t, w, http.StatusOK, []map[string]any{
				{"sha": "c2", "commit": map[string]any{"message": "fixup! feat: a"}},
			})
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/angular/angular/pulls/1/commits?page=2>; rel="next"`, serverURL))
		writeJSON(t, w, http.StatusOK, []map[string]any{
			{"sha": "c1", "commit": map[string]any{"message": "feat: a"}, "parents": []map[string]any{{"sha": "base"}}},
		})
	})

	commits, err := client.ListPullRequestCommits(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "c1", commits[0].SHA)
	assert.Equal(t, []string{"base"}, commits[0].ParentSHAs)
	assert.Equal(t, "fixup! feat: a", commits[1].Message)
}

func TestMergePullRequest(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       map[string]any
		wantSHA    string
		wantStatus int
	}{
		{"merged", http.StatusOK, map[string]any{"sha": "deadbeef", "merged": true, "message": "merged"}, "deadbeef", 200},
		{"conflict", http.StatusMethodNotAllowed, map[string]any{"message": "Pull Request is not mergeable"}, "", 405},
		{"forbidden", http.StatusForbidden, map[string]any{"message": "Resource not accessible"}, "", 403},
		{"unprocessable", http.StatusUnprocessableEntity, map[string]any{"message": "Head branch was modified"}, "", 422},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mux := setup(t)
			var got map[string]any
			mux.HandleFunc("PUT /repos/angular/angular/pulls/5/merge", func(w http.ResponseWriter, r *http.Request) {
				body, _ := io.ReadAll(r.Body)
				assert.NoError(t, json.Unmarshal(body, &got))
				writeJSON(t, w, tt.status, tt.body)
			})

			res, err := client.MergePullRequest(context.Background(), 5, ghpkg.MergeRequest{
				Method:  "squash",
				Title:   "fix: x (#5)",
				Message: "body",
				SHA:     "abc",
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.StatusCode)
			assert.Equal(t, tt.wantSHA, res.SHA)
			assert.Equal(t, tt.body["message"], res.Message)
			assert.Equal(t, "squash", got["merge_method"])
			assert.Equal(t, "fix: x (#5)", got["commit_title"])
			assert.Equal(t, "body", got["commit_message"])
			assert.Equal(t, "abc", got["sha"])
		})
	}
}

func TestCreateCommentAndClose(t *testing.T) {
	client, mux := setup(t)
	var comment, state string
	mux.HandleFunc("POST /repos/angular/angular/issues/9/comments", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		comment = body["body"]
		writeJSON(t, w, http.StatusCreated, map[string]any{"id": 1})
	})
	mux.HandleFunc("PATCH /repos/angular/angular/pulls/9", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		state, _ = body["state"].(string)
		writeJSON(t, w, http.StatusOK, map[string]any{"number": 9, "state": "closed"})
	})

	require.NoError(t, client.CreateComment(context.Background(), 9, "merged"))
	require.NoError(t, client.ClosePullRequest(context.Background(), 9))
	assert.Equal(t, "merged", comment)
	assert.Equal(t, "closed", state)
}

func TestListCommitChecks(t *testing.T) {
	client, mux := setup(t)
	mux.HandleFunc("GET /repos/angular/angular/commits/abc/check-runs", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"total_count": 4,
			"check_runs": []map[string]any{
				{"id": 1, "name": "lint", "status": "completed", "conclusion": "success"},
				{"id": 2, "name": "test", "status": "in_progress"},
				{"id": 3, "name": "e2e", "status": "completed", "conclusion": "failure"},
				{"id": 4, "name": "docs", "status": "completed", "conclusion": "skipped"},
			},
		})
	})
	mux.HandleFunc("GET /repos/angular/angular/commits/abc/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"state": "failure",
			"statuses": []map[string]any{
				{"context": "ci/circleci", "state": "success"},
				{"context": "cla/google", "state": "error"},
			},
		})
	})

	checks, err := client.ListCommitChecks(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, []ghpkg.CheckState{
		{Name: "lint", State: ghpkg.CheckSuccess},
		{Name: "test", State: ghpkg.CheckPending},
		{Name: "e2e", State: ghpkg.CheckFailure},
		{Name: "docs", State: ghpkg.CheckSuccess},
		{Name: "ci/circleci", State: ghpkg.CheckSuccess},
		{Name: "cla/google", State: ghpkg.CheckFailure},
	}, checks)
}

func TestGetFileContent(t *testing.T) {
	client, mux := setup(t)
	mux.HandleFunc("GET /repos/angular/angular/contents/package.json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ref") != "main" {
			writeJSON(t, w, http.StatusNotFound, map[string]any{"message": "Not Found"})
			return
		}
		writeJSON(t, w, http.StatusOK, map[string]any{
			"type":     "file",
			"encoding": "base64",
			"content":  "eyJ2ZXJzaW9uIjoiMTIuMC4wLW5leHQuMCJ9",
		})
	})

	content, err := client.GetFileContent(context.Background(), "package.json", "main")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":"12.0.0-next.0"}`, string(content))

	_, err = client.GetFileContent(context.Background(), "package.json", "11.2.x")
	require.ErrorIs(t, err, ghpkg.ErrFileNotFound)
}

func TestListTeamsMembers(t *testing.T) {
	client, mux := setup(t)
	var calls atomic.Int32
	mux.HandleFunc("GET /orgs/angular/teams/{slug}/members", func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.PathValue("slug") {
		case "caretakers":
			writeJSON(t, w, http.StatusOK, []map[string]any{{"login": "alice"}, {"login": "bob"}})
		default:
			writeJSON(t, w, http.StatusOK, []map[string]any{{"login": "bob"}, {"login": "carol"}})
		}
	})

	members, err := client.ListTeamsMembers(context.Background(), []string{"caretakers", "framework"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, members)

	_, err = client.ListTeamsMembers(context.Background(), []string{"caretakers"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load(), "team members are cached")
}

func TestAuthenticatedUser_Cached(t *testing.T) {
	client, mux := setup(t)
	var calls atomic.Int32
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("X-OAuth-Scopes", "repo, workflow")
		writeJSON(t, w, http.StatusOK, map[string]any{"login": "caretaker", "type": "User"})
	})

	for range 2 {
		access, err := client.AuthenticatedUser(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "caretaker", access.Login)
		assert.Equal(t, []string{"repo", "workflow"}, access.Scopes)
		assert.False(t, access.IsBot())
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestAuthenticatedUser_InstallationToken(t *testing.T) {
	client, mux := setup(t)
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusForbidden, map[string]any{"message": "Resource not accessible by integration"})
	})
	mux.HandleFunc("GET /installation/repositories", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"total_count":  1,
			"repositories": []map[string]any{{"name": "angular"}},
		})
	})

	access, err := client.AuthenticatedUser(context.Background())
	require.NoError(t, err)
	assert.True(t, access.IsBot())
	assert.Empty(t, access.Scopes)
}

func TestAuthenticatedUser_Forbidden(t *testing.T) {
	client, mux := setup(t)
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusForbidden, map[string]any{"message": "Forbidden"})
	})
	mux.HandleFunc("GET /installation/repositories", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, http.StatusForbidden, map[string]any{"message": "Forbidden"})
	})

	_, err := client.AuthenticatedUser(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get authenticated user")
}

func TestCompareFiles(t *testing.T) {
	client, mux := setup(t)
	mux.HandleFunc("GET /repos/angular/angular/compare/{spec}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4d3b7c2...main", r.PathValue("spec"))
		writeJSON(t, w, http.StatusOK, map[string]any{
			"files": []map[string]any{{"filename": "packages/core/a.ts"}, {"filename": "README.md"}},
		})
	})

	files, err := client.CompareFiles(context.Background(), "4d3b7c2", "main")
	require.NoError(t, err)
	assert.Equal(t, []string{"packages/core/a.ts", "README.md"}, files)
}

func TestCheckState(t *testing.T) {
	assert.True(t, ghpkg.NewCheckState("a", "success").Succeeded())
	assert.True(t, ghpkg.NewCheckState("a", "pending").Pending())
	assert.True(t, ghpkg.NewCheckState("a", "weird").Failed())
}
