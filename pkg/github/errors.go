package github

import "errors"

// Error definitions for GitHub API operations.
var (
	// ErrTokenRequired is returned when GITHUB_TOKEN environment variable is missing.
	ErrTokenRequired = errors.New("GITHUB_TOKEN environment variable is required")
	// ErrRepositoryRequired is returned when the client is built without owner or name.
	ErrRepositoryRequired = errors.New("repository owner and name are required")
	// ErrPRNotFound is returned when the pull request does not exist.
	ErrPRNotFound = errors.New("pull request not found")
	// ErrFileNotFound is returned when a file does not exist at the requested ref.
	ErrFileNotFound = errors.New("file not found")
	// ErrNotAFile is returned when a content path resolves to a directory.
	ErrNotAFile = errors.New("path is not a file")
)
