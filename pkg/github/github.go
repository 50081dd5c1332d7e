// Package github provides the GitHub API operations the merge tool needs.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v69/github"
	"github.com/sgaunet/bullets"
	"github.com/sgaunet/merge-train/internal/logger"
	"github.com/sgaunet/merge-train/internal/security"
	"golang.org/x/oauth2"
)

// Client represents a GitHub API client wrapper bound to one repository.
type Client struct {
	client *github.Client
	owner  string
	repo   string
	log    *bullets.Logger
	cache  *cache
}

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL points the client at another API root (GitHub Enterprise or a test server).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) error {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		c.client.BaseURL = u
		return nil
	}
}

// NewClient creates a GitHub client authenticated with token.
func NewClient(token security.SecureToken, owner, repo string, opts ...Option) (*Client, error) {
	if token.IsEmpty() {
		return nil, ErrTokenRequired
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token.Value()},
	)
	return newClient(oauth2.NewClient(context.Background(), ts), owner, repo, opts...)
}

// NewClientWithHTTP creates a client on top of an existing HTTP client, which is
// expected to handle authentication itself.
func NewClientWithHTTP(httpClient *http.Client, owner, repo string, opts ...Option) (*Client, error) {
	return newClient(httpClient, owner, repo, opts...)
}

func newClient(httpClient *http.Client, owner, repo string, opts ...Option) (*Client, error) {
	if owner == "" || repo == "" {
		return nil, ErrRepositoryRequired
	}

	c := &Client{
		client: github.NewClient(httpClient),
		owner:  owner,
		repo:   repo,
		log:    logger.NoLogger(),
		cache:  newCache(defaultCacheTTL),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// SetLogger sets the logger for this client.
func (c *Client) SetLogger(l *bullets.Logger) {
	c.log = l
}

// Owner returns the repository owner.
func (c *Client) Owner() string {
	return c.owner
}

// Repo returns the repository name.
func (c *Client) Repo() string {
	return c.repo
}

// statusCode extracts the HTTP status of a go-github error, or 0.
func statusCode(resp *github.Response, err error) int {
	if resp != nil && resp.Response != nil {
		return resp.StatusCode
	}
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode
	}
	return 0
}
