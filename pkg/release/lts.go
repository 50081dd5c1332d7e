package release

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// Support windows of a major, counted from its first release.
const (
	activeSupportMonths = 6
	ltsSupportMonths    = 12
)

var ltsDistTagRegex = regexp.MustCompile(`^v(\d+)-lts$`)

// LTSBranch is a long-term-support branch still inside its support window.
type LTSBranch struct {
	Name    string
	Version string
	DistTag string
	// EndOfLife is the last day the branch accepts changes.
	EndOfLife time.Time
}

// PackageInfo is the part of the npm registry document used to derive LTS branches.
type PackageInfo struct {
	DistTags map[string]string `json:"dist-tags"`
	// Time maps published versions to their release timestamp.
	Time map[string]string `json:"time"`
}

// HTTPClient interface for HTTP operations (allows mocking in tests).
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// RegistryClient reads package documents from an npm registry.
type RegistryClient struct {
	baseURL    string
	httpClient HTTPClient
}

// NewRegistryClient creates a registry client for baseURL.
func NewRegistryClient(baseURL string, httpClient HTTPClient) *RegistryClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &RegistryClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

// FetchPackageInfo retrieves the dist-tags and publish times of pkg.
func (r *RegistryClient) FetchPackageInfo(ctx context.Context, pkg string) (*PackageInfo, error) {
	reqURL := r.baseURL + "/" + url.PathEscape(pkg)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create registry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query registry for %s: %w", pkg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrRegistry, pkg, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info PackageInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode registry document for %s: %w", pkg, err)
	}
	return &info, nil
}

// FetchActiveLTSBranches returns the LTS branches of pkg still supported at now.
func (r *RegistryClient) FetchActiveLTSBranches(ctx context.Context, pkg string, now time.Time) ([]LTSBranch, error) {
	info, err := r.FetchPackageInfo(ctx, pkg)
	if err != nil {
		return nil, err
	}
	return ActiveLTSBranches(info, now)
}

// ActiveLTSBranches derives LTS branches from "v<major>-lts" dist-tags. A major stays
// active for 18 months after its "<major>.0.0" release. Results are newest first.
func ActiveLTSBranches(info *PackageInfo, now time.Time) ([]LTSBranch, error) {
	var branches []LTSBranch

	for tag, version := range info.DistTags {
		m := ltsDistTagRegex.FindStringSubmatch(tag)
		if m == nil {
			continue
		}

		canonical, err := CanonicalVersion(version)
		if err != nil {
			return nil, fmt.Errorf("dist-tag %s: %w", tag, err)
		}

		released, ok := info.Time[m[1]+".0.0"]
		if !ok {
			return nil, fmt.Errorf("%w: no release date for %s.0.0", ErrRegistry, m[1])
		}
		releaseDate, err := time.Parse(time.RFC3339, released)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid release date %q for %s.0.0", ErrRegistry, released, m[1])
		}

		endOfLife := releaseDate.AddDate(0, activeSupportMonths+ltsSupportMonths, 0)
		if now.After(endOfLife) {
			continue
		}

		branches = append(branches, LTSBranch{
			Name:      strings.TrimPrefix(semver.MajorMinor(canonical), "v") + ".x",
			Version:   canonical,
			DistTag:   tag,
			EndOfLife: endOfLife,
		})
	}

	slices.SortFunc(branches, func(a, b LTSBranch) int {
		return semver.Compare(b.Version, a.Version)
	})
	return branches, nil
}
