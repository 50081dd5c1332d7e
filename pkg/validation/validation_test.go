package validation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sgaunet/merge-train/pkg/config"
	"github.com/sgaunet/merge-train/pkg/github"
	"github.com/sgaunet/merge-train/pkg/validation"
	"github.com/sgaunet/merge-train/testing/fixtures"
	"github.com/sgaunet/merge-train/testing/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInput(labels ...string) *validation.Input {
	return &validation.Input{
		Config:  fixtures.DefaultConfig(),
		PR:      fixtures.OpenPullRequest(fixtures.DefaultPRNumber, "main", labels...),
		Commits: fixtures.ParsedCommits(fixtures.FixMessage),
	}
}

func run(t *testing.T, v validation.Validator, in *validation.Input) *validation.Failure {
	t.Helper()
	failure, err := v.Validate(context.Background(), in)
	require.NoError(t, err)
	return failure
}

func TestStateValidator(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(pr *github.PullRequest)
		want   string
	}{
		{name: "open", mutate: func(*github.PullRequest) {}},
		{name: "merged", mutate: func(pr *github.PullRequest) { pr.Merged = true }, want: "already merged"},
		{name: "closed", mutate: func(pr *github.PullRequest) { pr.State = "closed" }, want: "closed"},
		{name: "draft", mutate: func(pr *github.PullRequest) { pr.Draft = true }, want: "draft"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInput()
			tt.mutate(in.PR)

			failure := run(t, validation.StateValidator{}, in)
			if tt.want == "" {
				assert.Nil(t, failure)
				return
			}
			require.NotNil(t, failure)
			assert.Contains(t, failure.Message, tt.want)
			assert.False(t, failure.CanBeForceIgnored)
		})
	}
}

func TestMergeReadyValidator(t *testing.T) {
	assert.Nil(t, run(t, validation.MergeReadyValidator{}, newInput("action: merge")))

	failure := run(t, validation.MergeReadyValidator{}, newInput())
	require.NotNil(t, failure)
	assert.True(t, failure.CanBeForceIgnored)
	assert.Contains(t, failure.Message, `"action: merge"`)
}

func TestBreakingChangeLabelValidator(t *testing.T) {
	t.Run("note without label", func(t *testing.T) {
		in := newInput()
		in.Commits = fixtures.ParsedCommits(fixtures.BreakingMessage)

		failure := run(t, validation.BreakingChangeLabelValidator{}, in)
		require.NotNil(t, failure)
		assert.True(t, failure.CanBeForceIgnored)
		assert.Contains(t, failure.Message, "flag: breaking change")
	})

	t.Run("label without note", func(t *testing.T) {
		failure := run(t, validation.BreakingChangeLabelValidator{}, newInput("flag: breaking change"))
		require.NotNil(t, failure)
		assert.Contains(t, failure.Message, "BREAKING CHANGE")
	})

	t.Run("consistent", func(t *testing.T) {
		in := newInput("flag: breaking change")
		in.Commits = fixtures.ParsedCommits(fixtures.BreakingMessage)
		assert.Nil(t, run(t, validation.BreakingChangeLabelValidator{}, in))
		assert.Nil(t, run(t, validation.BreakingChangeLabelValidator{}, newInput()))
	})
}

func TestTargetLabelChangesValidator(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		messages []string
		exempt   []string
		want     string
	}{
		{name: "major accepts breaking changes", label: "target: major", messages: []string{fixtures.BreakingMessage}},
		{name: "minor rejects breaking changes", label: "target: minor", messages: []string{fixtures.BreakingMessage},
			want: "breaking changes"},
		{name: "minor accepts features", label: "target: minor", messages: []string{fixtures.FeatureMessage}},
		{name: "patch rejects features", label: "target: patch", messages: []string{fixtures.FeatureMessage},
			want: "feature commits"},
		{name: "patch rejects deprecations", label: "target: patch", messages: []string{fixtures.DeprecatedMessage},
			want: "deprecations"},
		{name: "patch accepts fixes", label: "target: patch", messages: []string{fixtures.FixMessage}},
		{name: "exempt scope", label: "target: patch", messages: []string{fixtures.FeatureMessage},
			exempt: []string{"router"}},
		{name: "no label", messages: []string{fixtures.BreakingMessage}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newInput()
			in.TargetLabel = tt.label
			in.Commits = fixtures.ParsedCommits(tt.messages...)
			in.Config.Merge.TargetLabelExemptScopes = tt.exempt

			failure := run(t, validation.TargetLabelChangesValidator{}, in)
			if tt.want == "" {
				assert.Nil(t, failure)
				return
			}
			require.NotNil(t, failure)
			assert.Contains(t, failure.Message, tt.want)
			assert.True(t, failure.CanBeForceIgnored)
		})
	}
}

func TestTargetBranchesValidator(t *testing.T) {
	in := newInput()
	assert.Nil(t, run(t, validation.TargetBranchesValidator{}, in))

	in.TargetResolutionErr = errors.New("no target label")
	failure := run(t, validation.TargetBranchesValidator{}, in)
	require.NotNil(t, failure)
	assert.False(t, failure.CanBeForceIgnored)
	assert.Equal(t, "Unable to determine target branches: no target label", failure.Message)
}

func TestPendingReviewsValidator(t *testing.T) {
	t.Run("pending review requests", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		in := newInput()
		in.PR.PendingReviewers = 2

		failure := run(t, validation.PendingReviewsValidator{API: api}, in)
		require.NotNil(t, failure)
		assert.True(t, failure.CanBeForceIgnored)
		assert.Contains(t, failure.Message, "2 pending review")
	})

	t.Run("latest review requests changes", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		api.Reviews = []github.Review{
			{User: "alice", State: "APPROVED"},
			{User: "bob", State: "CHANGES_REQUESTED"},
			{User: "alice", State: "CHANGES_REQUESTED"},
			{User: "bob", State: "COMMENTED"},
		}

		failure := run(t, validation.PendingReviewsValidator{API: api}, newInput())
		require.NotNil(t, failure)
		assert.Contains(t, failure.Message, "alice, bob")
	})

	t.Run("approved after changes requested", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		api.Reviews = []github.Review{
			{User: "alice", State: "CHANGES_REQUESTED"},
			{User: "alice", State: "APPROVED"},
		}
		assert.Nil(t, run(t, validation.PendingReviewsValidator{API: api}, newInput()))
	})

	t.Run("ignored", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		in := newInput()
		in.PR.PendingReviewers = 1
		in.IgnorePendingReviews = true

		assert.Nil(t, run(t, validation.PendingReviewsValidator{API: api}, in))
		assert.Equal(t, 0, api.GetCallCount("ListReviews"))
	})
}

func TestStatusChecksValidator(t *testing.T) {
	t.Run("failing", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		api.Checks = append(fixtures.PassingChecks("lint"), fixtures.FailingCheck("test"))

		failure := run(t, validation.StatusChecksValidator{API: api}, newInput())
		require.NotNil(t, failure)
		assert.False(t, failure.CanBeForceIgnored)
		assert.Equal(t, "Pull request has failing status checks: test", failure.Message)
		assert.Equal(t, fixtures.DefaultHeadSHA, api.GetLastCall("ListCommitChecks").Args["ref"])
	})

	t.Run("pending", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		api.Checks = []github.CheckState{github.NewCheckState("test", github.CheckPending)}

		failure := run(t, validation.StatusChecksValidator{API: api}, newInput())
		require.NotNil(t, failure)
		assert.Contains(t, failure.Message, "pending status checks: test")
	})

	t.Run("missing required check counts as pending", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		api.Checks = append(fixtures.PassingChecks("lint"), fixtures.FailingCheck("flaky"))
		in := newInput()
		in.Config.Merge.RequiredStatusChecks = []string{"lint", "test"}

		failure := run(t, validation.StatusChecksValidator{API: api}, in)
		require.NotNil(t, failure)
		assert.Equal(t, "Pull request has pending status checks: test", failure.Message)
	})

	t.Run("green", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		api.Checks = fixtures.PassingChecks("lint", "test")
		assert.Nil(t, run(t, validation.StatusChecksValidator{API: api}, newInput()))
	})
}

func TestIsolatedSeparateFilesValidator(t *testing.T) {
	newIsolatedInput := func() *validation.Input {
		in := newInput()
		in.Config.Merge.IsolatedSeparateFiles = &config.IsolatedFilesConfig{
			Patterns:  []string{"packages/core/primitives/**"},
			SyncedRef: "g3",
		}
		return in
	}

	tests := []struct {
		name   string
		files  []string
		merged []string
		want   string
	}{
		{name: "only primary files", files: []string{"packages/router/index.ts"}},
		{name: "only separate files", files: []string{"packages/core/primitives/signals/graph.ts"},
			merged: []string{"packages/core/primitives/signals/watch.ts"}},
		{name: "mixed", files: []string{"packages/core/primitives/signals/graph.ts", "packages/router/index.ts"},
			want: "mixes files"},
		{name: "separate after primary merged", files: []string{"packages/core/primitives/signals/graph.ts"},
			merged: []string{"packages/router/index.ts"}, want: "1 other file(s) were merged since g3"},
		{name: "primary after separate merged", files: []string{"packages/router/index.ts"},
			merged: []string{"packages/core/primitives/signals/watch.ts"}, want: "1 separate file(s) were merged"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := mocks.NewGitHubAPIClient()
			api.Files = tt.files
			api.ComparedFiles["g3...main"] = tt.merged

			failure := run(t, validation.IsolatedSeparateFilesValidator{API: api}, newIsolatedInput())
			if tt.want == "" {
				assert.Nil(t, failure)
				return
			}
			require.NotNil(t, failure)
			assert.Contains(t, failure.Message, tt.want)
			assert.False(t, failure.CanBeForceIgnored)
		})
	}

	t.Run("not configured", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		assert.Nil(t, run(t, validation.IsolatedSeparateFilesValidator{API: api}, newInput()))
		assert.Equal(t, 0, api.GetCallCount("ListPullRequestFiles"))
	})
}

func TestTestedValidator(t *testing.T) {
	newTestedInput := func() *validation.Input {
		in := newInput("requires: TGP")
		in.Config.Merge.Tested = &config.TestedConfig{
			RequiredLabel: "requires: TGP",
			StatusCheck:   "google-internal-tests",
			TrustedTeams:  []string{"framework-team"},
			TrustedUsers:  []string{"caretaker"},
		}
		return in
	}

	t.Run("label absent", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		in := newTestedInput()
		in.PR.Labels = nil
		assert.Nil(t, run(t, validation.TestedValidator{API: api}, in))
	})

	t.Run("successful test status", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		api.Checks = fixtures.PassingChecks("google-internal-tests")
		assert.Nil(t, run(t, validation.TestedValidator{API: api}, newTestedInput()))
	})

	t.Run("comment from team member", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		api.TeamMembers["framework-team"] = []string{"alice"}
		api.Comments = []github.Comment{{User: "alice", Body: "Looks good.\nTESTED=presubmit run 42"}}
		assert.Nil(t, run(t, validation.TestedValidator{API: api}, newTestedInput()))
	})

	t.Run("comment from untrusted user", func(t *testing.T) {
		api := mocks.NewGitHubAPIClient()
		api.Comments = []github.Comment{{User: "contributor", Body: "TESTED=trust me"}}

		failure := run(t, validation.TestedValidator{API: api}, newTestedInput())
		require.NotNil(t, failure)
		assert.True(t, failure.CanBeForceIgnored)
		assert.Contains(t, failure.Message, "requires testing")
	})
}

func TestPipeline_Run(t *testing.T) {
	api := mocks.NewGitHubAPIClient()
	api.Checks = []github.CheckState{fixtures.FailingCheck("test")}

	in := newInput("action: merge", "requires: TGP")
	in.TargetLabel = "target: patch"
	in.Config.Merge.Tested = &config.TestedConfig{RequiredLabel: "requires: TGP"}

	failures, err := validation.DefaultPipeline(api).Run(context.Background(), in)
	require.NoError(t, err)

	require.Len(t, failures, 2)
	assert.Contains(t, failures[0].Message, "failing status checks")
	assert.False(t, failures[0].CanBeForceIgnored)
	assert.Contains(t, failures[1].Message, "requires testing")
	assert.True(t, failures[1].CanBeForceIgnored)
	assert.False(t, validation.AllForceIgnorable(failures))
}

func TestPipeline_DisabledValidators(t *testing.T) {
	api := mocks.NewGitHubAPIClient()
	in := newInput()
	in.Config.Merge.DisabledValidators = []string{"merge-ready"}

	failures, err := validation.NewPipeline(validation.MergeReadyValidator{}).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Empty(t, failures)
	assert.Empty(t, api.GetCalls())
}

func TestPipeline_DataErrorsAbort(t *testing.T) {
	api := mocks.NewGitHubAPIClient()
	api.ListChecksError = errors.New("boom")

	_, err := validation.NewPipeline(validation.StatusChecksValidator{API: api}).Run(context.Background(), newInput())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validator status-checks")
}

func TestAllForceIgnorable(t *testing.T) {
	assert.True(t, validation.AllForceIgnorable(nil))
	assert.True(t, validation.AllForceIgnorable([]validation.Failure{{Message: "a", CanBeForceIgnored: true}}))
	assert.False(t, validation.AllForceIgnorable([]validation.Failure{
		{Message: "a", CanBeForceIgnored: true},
		{Message: "b"},
	}))
}
