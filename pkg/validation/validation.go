// Package validation runs the independent pre-merge checks against a pull request.
package validation

import (
	"context"
	"fmt"
	"slices"

	"github.com/sgaunet/bullets"
	"github.com/sgaunet/merge-train/internal/logger"
	"github.com/sgaunet/merge-train/pkg/commits"
	"github.com/sgaunet/merge-train/pkg/config"
	"github.com/sgaunet/merge-train/pkg/github"
)

// Failure is one reason a pull request cannot be merged as is.
type Failure struct {
	Message string
	// CanBeForceIgnored allows the operator to merge anyway after confirmation.
	CanBeForceIgnored bool
}

func (f Failure) String() string {
	return f.Message
}

func fatal(format string, args ...any) *Failure {
	return &Failure{Message: fmt.Sprintf(format, args...)}
}

func ignorable(format string, args ...any) *Failure {
	return &Failure{Message: fmt.Sprintf(format, args...), CanBeForceIgnored: true}
}

// Input is everything a validator may inspect.
type Input struct {
	Config  *config.Config
	PR      *github.PullRequest
	Commits []commits.Commit

	// TargetLabel is the matched target label, empty when none was resolved.
	TargetLabel string
	// TargetBranches is the resolved branch set.
	TargetBranches []string
	// TargetResolutionErr is set when target labels could not be resolved.
	TargetResolutionErr error

	IgnorePendingReviews bool
}

// HasLabel reports whether the pull request carries label.
func (in *Input) HasLabel(label string) bool {
	return slices.Contains(in.PR.Labels, label)
}

// Validator checks one aspect of a pull request. It returns nil when the check passes;
// errors are reserved for failures to gather the data the check needs.
type Validator interface {
	Name() string
	Validate(ctx context.Context, in *Input) (*Failure, error)
}

// Pipeline runs the validators enabled in configuration.
type Pipeline struct {
	validators []Validator
	log        *bullets.Logger
}

// NewPipeline creates a pipeline running validators in order.
func NewPipeline(validators ...Validator) *Pipeline {
	return &Pipeline{validators: validators, log: logger.NoLogger()}
}

// DefaultPipeline creates the pipeline with every shipped validator.
func DefaultPipeline(api github.APIClient) *Pipeline {
	return NewPipeline(
		StateValidator{},
		MergeReadyValidator{},
		PendingReviewsValidator{API: api},
		BreakingChangeLabelValidator{},
		TargetLabelChangesValidator{},
		StatusChecksValidator{API: api},
		IsolatedSeparateFilesValidator{API: api},
		TestedValidator{API: api},
		TargetBranchesValidator{},
	)
}

// SetLogger sets the logger for this pipeline.
func (p *Pipeline) SetLogger(l *bullets.Logger) {
	p.log = l
}

// Run executes every enabled validator and collects their failures in order.
func (p *Pipeline) Run(ctx context.Context, in *Input) ([]Failure, error) {
	var failures []Failure

	for _, v := range p.validators {
		if !in.Config.ValidatorEnabled(v.Name()) {
			p.log.Debug(fmt.Sprintf("Validator %s disabled", v.Name()))
			continue
		}

		failure, err := v.Validate(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("validator %s: %w", v.Name(), err)
		}
		if failure != nil {
			p.log.Debug(fmt.Sprintf("Validator %s failed: %s", v.Name(), failure.Message))
			failures = append(failures, *failure)
		}
	}

	return failures, nil
}

// AllForceIgnorable reports whether every failure may be ignored by the operator.
func AllForceIgnorable(failures []Failure) bool {
	for _, f := range failures {
		if !f.CanBeForceIgnored {
			return false
		}
	}
	return true
}
