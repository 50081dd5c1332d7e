package urlutil_test

import (
	"errors"
	"testing"

	"github.com/sgaunet/merge-train/internal/urlutil"
)

func TestExtractPathComponents(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		componentCount int
		want           string
	}{
		{"https", "https://github.com/owner/repo", 2, "owner/repo"},
		{"https_www", "https://www.github.com/owner/repo", 2, "owner/repo"},
		{"ssh_colon", "git@github.com:owner/repo", 2, "owner/repo"},
		{"ssh_protocol", "ssh://git@github.com/owner/repo", 2, "owner/repo"},
		{"ssh_colon_too_short", "git@github.com:repo", 2, ""},
		{"no_separator", "not-a-url", 2, ""},
		{"empty", "", 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := urlutil.ExtractPathComponents(tt.url, tt.componentCount)
			if got != tt.want {
				t.Errorf("ExtractPathComponents(%q, %d) = %q, want %q", tt.url, tt.componentCount, got, tt.want)
			}
		})
	}
}

func TestOwnerAndRepo(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		wantOwner string
		wantRepo  string
		wantErr   bool
	}{
		{"https with .git", "https://github.com/angular/angular.git", "angular", "angular", false},
		{"https trailing slash", "https://github.com/angular/components/", "angular", "components", false},
		{"ssh colon", "git@github.com:octo/merge-train.git", "octo", "merge-train", false},
		{"ssh protocol", "ssh://git@github.com/octo/repo", "octo", "repo", false},
		{"host only", "https://github.com", "", "", true},
		{"garbage", "nonsense", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			owner, repo, err := urlutil.OwnerAndRepo(tt.url)
			if tt.wantErr {
				if !errors.Is(err, urlutil.ErrInvalidRemoteURL) {
					t.Fatalf("OwnerAndRepo(%q) error = %v, want ErrInvalidRemoteURL", tt.url, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("OwnerAndRepo(%q) unexpected error: %v", tt.url, err)
			}
			if owner != tt.wantOwner || repo != tt.wantRepo {
				t.Errorf("OwnerAndRepo(%q) = %s/%s, want %s/%s", tt.url, owner, repo, tt.wantOwner, tt.wantRepo)
			}
		})
	}
}

func TestOwnerAndRepo_OwnerOnly(t *testing.T) {
	if _, _, err := urlutil.OwnerAndRepo("https://github.com/owner"); err == nil {
		t.Fatal("expected error for URL without repository")
	}
}
