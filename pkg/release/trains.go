// Package release discovers the active release trains of a repository: the
// main-branch train, the latest stable train, an optional release candidate, and
// the long-term-support branches still in their support window.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

const packageJSONPath = "package.json"

var versionBranchRegex = regexp.MustCompile(`^(\d+)\.(\d+)\.x$`)

// Train is a release train: a branch and the version its package.json declares.
type Train struct {
	BranchName string
	// Version is a canonical semver string with "v" prefix, e.g. "v12.1.0-next.2".
	Version string
}

// Prerelease returns the first prerelease identifier ("next", "rc", ...) or "".
func (t *Train) Prerelease() string {
	pre := strings.TrimPrefix(semver.Prerelease(t.Version), "-")
	id, _, _ := strings.Cut(pre, ".")
	return id
}

// ActiveTrains groups the trains a PR can target.
type ActiveTrains struct {
	Next             *Train
	Latest           *Train
	ReleaseCandidate *Train
}

// Branches returns the branch names of all active trains, next first.
func (a *ActiveTrains) Branches() []string {
	var names []string
	for _, t := range []*Train{a.Next, a.ReleaseCandidate, a.Latest} {
		if t != nil && !slices.Contains(names, t.BranchName) {
			names = append(names, t.BranchName)
		}
	}
	return names
}

// RepoReader reads branches and files from the hosting API.
type RepoReader interface {
	ListBranches(ctx context.Context) ([]string, error)
	GetFileContent(ctx context.Context, path, ref string) ([]byte, error)
}

// VersionBranch is a branch named "<major>.<minor>.x".
type VersionBranch struct {
	Name  string
	Major int
	Minor int
}

// ParseVersionBranch parses "<major>.<minor>.x" branch names.
func ParseVersionBranch(name string) (VersionBranch, bool) {
	m := versionBranchRegex.FindStringSubmatch(name)
	if m == nil {
		return VersionBranch{}, false
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	return VersionBranch{Name: name, Major: major, Minor: minor}, true
}

func (v VersionBranch) semver() string {
	return fmt.Sprintf("v%d.%d.0", v.Major, v.Minor)
}

// FetchActiveTrains determines the active release trains from the main branch and
// the version branches of the repository.
func FetchActiveTrains(ctx context.Context, repo RepoReader, mainBranch string) (*ActiveTrains, error) {
	nextVersion, err := fetchVersion(ctx, repo, mainBranch)
	if err != nil {
		return nil, err
	}
	next := &Train{BranchName: mainBranch, Version: nextVersion}

	names, err := repo.ListBranches(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	branches, err := versionBranchesBefore(names, nextVersion)
	if err != nil {
		return nil, err
	}

	trains := &ActiveTrains{Next: next}
	for _, b := range branches {
		version, err := fetchVersion(ctx, repo, b.Name)
		if err != nil {
			return nil, err
		}
		train := &Train{BranchName: b.Name, Version: version}

		if isFeatureFreezeOrRC(train) {
			if trains.ReleaseCandidate != nil {
				return nil, fmt.Errorf("%w: %s and %s", ErrConsecutiveFeatureFreeze,
					trains.ReleaseCandidate.BranchName, train.BranchName)
			}
			trains.ReleaseCandidate = train
			continue
		}

		trains.Latest = train
		break
	}

	if trains.Latest == nil {
		return nil, ErrNoLatestTrain
	}
	return trains, nil
}

// versionBranchesBefore returns the version branches sorted newest first, failing
// if one is at or after the main branch's major.minor.
func versionBranchesBefore(names []string, nextVersion string) ([]VersionBranch, error) {
	nextMajorMinor := semver.MajorMinor(nextVersion) + ".0"

	var branches []VersionBranch
	for _, name := range names {
		b, ok := ParseVersionBranch(name)
		if !ok {
			continue
		}
		if semver.Compare(b.semver(), nextMajorMinor) >= 0 {
			return nil, fmt.Errorf("%w: %s (main branch is at %s)", ErrUnexpectedVersionBranch, name, nextVersion)
		}
		branches = append(branches, b)
	}

	slices.SortFunc(branches, func(a, b VersionBranch) int {
		return semver.Compare(b.semver(), a.semver())
	})
	return branches, nil
}

func isFeatureFreezeOrRC(t *Train) bool {
	pre := t.Prerelease()
	return pre == "next" || pre == "rc"
}

func fetchVersion(ctx context.Context, repo RepoReader, branch string) (string, error) {
	data, err := repo.GetFileContent(ctx, packageJSONPath, branch)
	if err != nil {
		return "", fmt.Errorf("failed to read %s of %s: %w", packageJSONPath, branch, err)
	}

	var pkg struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("failed to parse %s of %s: %w", packageJSONPath, branch, err)
	}

	return CanonicalVersion(pkg.Version)
}

// CanonicalVersion returns v with a "v" prefix, validated as semver.
func CanonicalVersion(v string) (string, error) {
	canonical := "v" + strings.TrimPrefix(strings.TrimSpace(v), "v")
	if !semver.IsValid(canonical) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return semver.Canonical(canonical), nil
}
