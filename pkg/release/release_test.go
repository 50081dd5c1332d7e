package release_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sgaunet/merge-train/pkg/release"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRepo serves package.json versions per branch.
type fakeRepo struct {
	versions map[string]string
	extra    []string
}

func (f *fakeRepo) ListBranches(context.Context) ([]string, error) {
	names := append([]string{}, f.extra...)
	for b := range f.versions {
		names = append(names, b)
	}
	return names, nil
}

func (f *fakeRepo) GetFileContent(_ context.Context, path, ref string) ([]byte, error) {
	v, ok := f.versions[ref]
	if !ok || path != "package.json" {
		return nil, errors.New("not found")
	}
	return json.Marshal(map[string]string{"name": "pkg", "version": v})
}

func TestFetchActiveTrains(t *testing.T) {
	tests := []struct {
		name       string
		versions   map[string]string
		wantLatest string
		wantRC     string
	}{
		{
			name:       "next and latest",
			versions:   map[string]string{"main": "11.0.0-next.3", "10.2.x": "10.2.4", "10.1.x": "10.1.9"},
			wantLatest: "10.2.x",
		},
		{
			name:       "release candidate",
			versions:   map[string]string{"main": "11.1.0-next.0", "11.0.x": "11.0.0-rc.0", "10.2.x": "10.2.4"},
			wantLatest: "10.2.x",
			wantRC:     "11.0.x",
		},
		{
			name:       "feature freeze counts as release candidate",
			versions:   map[string]string{"main": "11.1.0-next.0", "11.0.x": "11.0.0-next.8", "10.2.x": "10.2.4"},
			wantLatest: "10.2.x",
			wantRC:     "11.0.x",
		},
		{
			name:       "double digit minors sort numerically",
			versions:   map[string]string{"main": "12.0.0-next.0", "11.10.x": "11.10.1", "11.9.x": "11.9.3"},
			wantLatest: "11.10.x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeRepo{versions: tt.versions, extra: []string{"feature/x", "renovate/deps"}}

			trains, err := release.FetchActiveTrains(context.Background(), repo, "main")
			require.NoError(t, err)
			assert.Equal(t, "main", trains.Next.BranchName)
			require.NotNil(t, trains.Latest)
			assert.Equal(t, tt.wantLatest, trains.Latest.BranchName)
			if tt.wantRC == "" {
				assert.Nil(t, trains.ReleaseCandidate)
			} else {
				require.NotNil(t, trains.ReleaseCandidate)
				assert.Equal(t, tt.wantRC, trains.ReleaseCandidate.BranchName)
			}
		})
	}
}

func TestFetchActiveTrains_Errors(t *testing.T) {
	tests := []struct {
		name     string
		versions map[string]string
		wantErr  error
	}{
		{
			name:     "branch newer than main",
			versions: map[string]string{"main": "11.0.0-next.0", "11.0.x": "11.0.0"},
			wantErr:  release.ErrUnexpectedVersionBranch,
		},
		{
			name:     "two consecutive release candidates",
			versions: map[string]string{"main": "12.1.0-next.0", "12.0.x": "12.0.0-rc.1", "11.2.x": "11.2.0-rc.0"},
			wantErr:  release.ErrConsecutiveFeatureFreeze,
		},
		{
			name:     "no latest",
			versions: map[string]string{"main": "1.0.0-next.0"},
			wantErr:  release.ErrNoLatestTrain,
		},
		{
			name:     "invalid version",
			versions: map[string]string{"main": "banana"},
			wantErr:  release.ErrInvalidVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := release.FetchActiveTrains(context.Background(), &fakeRepo{versions: tt.versions}, "main")
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestActiveTrainsBranches(t *testing.T) {
	trains := &release.ActiveTrains{
		Next:             &release.Train{BranchName: "main"},
		Latest:           &release.Train{BranchName: "10.2.x"},
		ReleaseCandidate: &release.Train{BranchName: "11.0.x"},
	}
	assert.Equal(t, []string{"main", "11.0.x", "10.2.x"}, trains.Branches())
}

func TestParseVersionBranch(t *testing.T) {
	b, ok := release.ParseVersionBranch("12.3.x")
	require.True(t, ok)
	assert.Equal(t, 12, b.Major)
	assert.Equal(t, 3, b.Minor)

	for _, name := range []string{"main", "12.x", "12.3.4", "v12.3.x", "12.3.x-old"} {
		_, ok := release.ParseVersionBranch(name)
		assert.False(t, ok, name)
	}
}

func TestTrainPrerelease(t *testing.T) {
	assert.Equal(t, "next", (&release.Train{Version: "v12.0.0-next.3"}).Prerelease())
	assert.Equal(t, "rc", (&release.Train{Version: "v12.0.0-rc.0"}).Prerelease())
	assert.Empty(t, (&release.Train{Version: "v12.0.1"}).Prerelease())
}

func TestActiveLTSBranches(t *testing.T) {
	now := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	info := &release.PackageInfo{
		DistTags: map[string]string{
			"latest":  "20.3.1",
			"next":    "21.0.0-next.4",
			"v19-lts": "19.2.14",
			"v18-lts": "18.2.13",
			"v17-lts": "17.3.12",
		},
		Time: map[string]string{
			"19.0.0": "2025-11-19T17:00:00.000Z",
			"18.0.0": "2025-05-21T17:00:00.000Z",
			"17.0.0": "2023-11-08T17:00:00.000Z",
		},
	}

	branches, err := release.ActiveLTSBranches(info, now)
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "19.2.x", branches[0].Name)
	assert.Equal(t, "v19-lts", branches[0].DistTag)
	assert.Equal(t, "18.2.x", branches[1].Name)
	assert.Equal(t, time.Date(2026, time.November, 21, 17, 0, 0, 0, time.UTC), branches[1].EndOfLife)
}

func TestActiveLTSBranches_MissingReleaseDate(t *testing.T) {
	info := &release.PackageInfo{DistTags: map[string]string{"v9-lts": "9.1.13"}}
	_, err := release.ActiveLTSBranches(info, time.Now())
	require.ErrorIs(t, err, release.ErrRegistry)
}

func TestRegistryClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/@angular%2Fcore" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"dist-tags": {"latest": "20.0.0", "v19-lts": "19.2.0"},
			"time": {"19.0.0": "2025-11-19T17:00:00.000Z"}
		}`))
	}))
	defer server.Close()

	client := release.NewRegistryClient(server.URL+"/", server.Client())
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	branches, err := client.FetchActiveLTSBranches(context.Background(), "@angular/core", now)
	require.NoError(t, err)
	require.Len(t, branches, 1)
	assert.Equal(t, "19.2.x", branches[0].Name)

	_, err = client.FetchPackageInfo(context.Background(), "left-pad")
	require.ErrorIs(t, err, release.ErrRegistry)
}
