package strategy

import (
	"context"
	"fmt"

	"github.com/sgaunet/bullets"
	"github.com/sgaunet/merge-train/internal/logger"
	"github.com/sgaunet/merge-train/pkg/commits"
	"github.com/sgaunet/merge-train/pkg/config"
	"github.com/sgaunet/merge-train/pkg/pullrequest"
)

// ConditionalStrategy uses the autosquash strategy for pull requests that would be
// rebased through the API but contain fixup or squash commits, since the API
// rebase cannot fold them. Every other pull request goes through the API.
type ConditionalStrategy struct {
	autosquash Strategy
	apiMerge   Strategy
	cfg        *config.MergeStrategyConfig
	log        *bullets.Logger

	selected Strategy
}

// NewConditionalStrategy composes the two strategies.
func NewConditionalStrategy(autosquash, apiMerge Strategy, cfg *config.MergeStrategyConfig) *ConditionalStrategy {
	return &ConditionalStrategy{
		autosquash: autosquash,
		apiMerge:   apiMerge,
		cfg:        cfg,
		log:        logger.NoLogger(),
	}
}

// SetLogger sets the logger for this strategy.
func (s *ConditionalStrategy) SetLogger(l *bullets.Logger) {
	s.log = l
}

// Name implements Strategy.
func (s *ConditionalStrategy) Name() string {
	if s.selected == nil {
		return "conditional"
	}
	return "conditional/" + s.selected.Name()
}

// Selected returns the strategy chosen by Prepare, or nil.
func (s *ConditionalStrategy) Selected() Strategy {
	return s.selected
}

// Prepare implements Strategy. The choice made here holds for the other phases.
func (s *ConditionalStrategy) Prepare(ctx context.Context, pr *pullrequest.PullRequest) error {
	s.selected = s.apiMerge
	if s.cfg.Default == config.MethodRebase && commits.CountFixupOrSquash(pr.Commits) > 0 {
		s.selected = s.autosquash
	}

	s.log.Debug(fmt.Sprintf("Selected %s strategy for pull request #%d", s.selected.Name(), pr.Number))
	return s.selected.Prepare(ctx, pr)
}

// Check implements Strategy.
func (s *ConditionalStrategy) Check(ctx context.Context, pr *pullrequest.PullRequest) error {
	if s.selected == nil {
		return ErrNotPrepared
	}
	return s.selected.Check(ctx, pr)
}

// Merge implements Strategy.
func (s *ConditionalStrategy) Merge(ctx context.Context, pr *pullrequest.PullRequest) error {
	if s.selected == nil {
		return ErrNotPrepared
	}
	return s.selected.Merge(ctx, pr)
}

// Cleanup implements Strategy.
func (s *ConditionalStrategy) Cleanup(ctx context.Context, pr *pullrequest.PullRequest) error {
	if s.selected == nil {
		return nil
	}
	return s.selected.Cleanup(ctx, pr)
}
