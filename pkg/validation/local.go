package validation

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/sgaunet/merge-train/pkg/commits"
)

// StateValidator rejects closed, merged and draft pull requests.
type StateValidator struct{}

// Name implements Validator.
func (StateValidator) Name() string { return "state" }

// Validate implements Validator.
func (StateValidator) Validate(_ context.Context, in *Input) (*Failure, error) {
	switch {
	case in.PR.Merged:
		return fatal("Pull request is already merged."), nil
	case in.PR.State == "closed":
		return fatal("Pull request is closed."), nil
	case in.PR.Draft:
		return fatal("Pull request is still a draft."), nil
	}
	return nil, nil
}

// MergeReadyValidator requires the merge-ready label.
type MergeReadyValidator struct{}

// Name implements Validator.
func (MergeReadyValidator) Name() string { return "merge-ready" }

// Validate implements Validator.
func (MergeReadyValidator) Validate(_ context.Context, in *Input) (*Failure, error) {
	label := in.Config.Merge.MergeReadyLabel
	if in.HasLabel(label) {
		return nil, nil
	}
	return ignorable("Pull request is not marked as ready for merge (missing %q label).", label), nil
}

// BreakingChangeLabelValidator requires the breaking-change label exactly when a
// commit carries a breaking change note.
type BreakingChangeLabelValidator struct{}

// Name implements Validator.
func (BreakingChangeLabelValidator) Name() string { return "breaking-change-label" }

// Validate implements Validator.
func (BreakingChangeLabelValidator) Validate(_ context.Context, in *Input) (*Failure, error) {
	label := in.Config.Merge.BreakingChangeLabel
	hasLabel := in.HasLabel(label)
	hasNotes := slices.ContainsFunc(in.Commits, commits.Commit.HasBreakingChanges)

	switch {
	case hasLabel && !hasNotes:
		return ignorable("Pull Request has a breaking change label, but does not contain any commits " +
			"with breaking change notes (i.e. commits do not have a `BREAKING CHANGE: <..>` section)."), nil
	case !hasLabel && hasNotes:
		return ignorable("Pull Request has at least one commit containing a breaking change note, but "+
			"does not have a breaking change label. Make sure to apply the following label: %s", label), nil
	}
	return nil, nil
}

// TargetLabelChangesValidator checks that the kind of change fits the target label:
// breaking changes only for major, features and deprecations not for patch, rc or lts.
type TargetLabelChangesValidator struct{}

// Name implements Validator.
func (TargetLabelChangesValidator) Name() string { return "target-label-changes" }

// Validate implements Validator.
func (TargetLabelChangesValidator) Validate(_ context.Context, in *Input) (*Failure, error) {
	labels := in.Config.Merge.TargetLabels
	if in.TargetLabel == "" || in.TargetLabel == labels.Major {
		return nil, nil
	}

	relevant := make([]commits.Commit, 0, len(in.Commits))
	for _, c := range in.Commits {
		if !slices.Contains(in.Config.Merge.TargetLabelExemptScopes, c.Scope) {
			relevant = append(relevant, c)
		}
	}

	if slices.ContainsFunc(relevant, commits.Commit.HasBreakingChanges) {
		return ignorable("Cannot merge into branch for %q as a pull request has breaking changes. "+
			"Breaking changes can only be merged with the %q label.", in.TargetLabel, labels.Major), nil
	}

	if in.TargetLabel == labels.Minor {
		return nil, nil
	}

	if slices.ContainsFunc(relevant, func(c commits.Commit) bool { return c.Type == "feat" }) {
		return ignorable("Cannot merge into branch for %q as a pull request has feature commits. "+
			"Feature commits can only be merged with the %q or %q labels.",
			in.TargetLabel, labels.Major, labels.Minor), nil
	}

	if slices.ContainsFunc(relevant, commits.Commit.HasDeprecations) {
		return ignorable("Cannot merge into branch for %q as a pull request contains deprecations. "+
			"Deprecations can only be merged with the %q or %q labels.",
			in.TargetLabel, labels.Minor, labels.Major), nil
	}

	return nil, nil
}

// TargetBranchesValidator surfaces target resolution failures.
type TargetBranchesValidator struct{}

// Name implements Validator.
func (TargetBranchesValidator) Name() string { return "target-branches" }

// Validate implements Validator.
func (TargetBranchesValidator) Validate(_ context.Context, in *Input) (*Failure, error) {
	if in.TargetResolutionErr == nil {
		return nil, nil
	}
	return fatal("Unable to determine target branches: %s", in.TargetResolutionErr), nil
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
