// Package urlutil extracts the GitHub owner and repository name from git remote URLs.
//
// Supported formats:
//   - HTTPS: https://github.com/owner/repo(.git)
//   - SSH colon: git@github.com:owner/repo(.git)
//   - SSH protocol: ssh://git@github.com/owner/repo(.git)
package urlutil

import (
	"errors"
	"fmt"
	"strings"
)

const (
	minColonParts  = 2
	ownerRepoParts = 2
)

// ErrInvalidRemoteURL is returned when no owner/repo pair can be found in a URL.
var ErrInvalidRemoteURL = errors.New("invalid git remote URL")

// ExtractPathComponents returns the last componentCount slash-separated path
// components of a remote URL. The .git suffix must already be trimmed.
// Returns "" if the URL does not contain enough components.
//
//	ExtractPathComponents("git@github.com:owner/repo", 2) → "owner/repo"
func ExtractPathComponents(url string, componentCount int) string {
	if strings.HasPrefix(url, "ssh://") {
		return lastComponents(strings.Split(url, "/"), componentCount)
	}

	if strings.HasPrefix(url, "git@") {
		parts := strings.Split(url, ":")
		if len(parts) < minColonParts {
			return ""
		}
		return lastComponents(strings.Split(parts[len(parts)-1], "/"), componentCount)
	}

	return lastComponents(strings.Split(url, "/"), componentCount)
}

func lastComponents(parts []string, n int) string {
	if len(parts) < n {
		return ""
	}
	tail := parts[len(parts)-n:]
	for _, p := range tail {
		if p == "" {
			return ""
		}
	}
	return strings.Join(tail, "/")
}

// OwnerAndRepo parses a remote URL into the GitHub owner and repository name.
func OwnerAndRepo(remoteURL string) (string, string, error) {
	trimmed := strings.TrimSuffix(strings.TrimSpace(remoteURL), "/")
	trimmed = strings.TrimSuffix(trimmed, ".git")

	ownerRepo := ExtractPathComponents(trimmed, ownerRepoParts)
	parts := strings.Split(ownerRepo, "/")
	// GitHub logins never contain dots, so a dotted owner is the host itself.
	if ownerRepo == "" || len(parts) != ownerRepoParts || strings.Contains(parts[0], ".") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRemoteURL, remoteURL)
	}

	return parts[0], parts[1], nil
}
