package release

import "errors"

var (
	// ErrInvalidVersion is returned when a package.json version is not valid semver.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrUnexpectedVersionBranch is returned for a version branch newer than the main branch.
	ErrUnexpectedVersionBranch = errors.New("version branch is more recent than the main branch")
	// ErrConsecutiveFeatureFreeze is returned when two version branches are both in
	// feature-freeze or release-candidate phase.
	ErrConsecutiveFeatureFreeze = errors.New("found two consecutive release-train branches in feature-freeze or release-candidate phase")
	// ErrNoLatestTrain is returned when no version branch carries a final release.
	ErrNoLatestTrain = errors.New("unable to determine the latest release-train")
	// ErrRegistry is returned for unexpected npm registry responses.
	ErrRegistry = errors.New("npm registry request failed")
)
