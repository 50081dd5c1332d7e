// Package merge sequences a pull request merge: working copy checks, token scope
// checks, loading and validation, operator confirmations, and the merge strategy
// itself. The working copy is always restored, whatever the outcome.
package merge

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sgaunet/bullets"
	"github.com/sgaunet/merge-train/internal/logger"
	"github.com/sgaunet/merge-train/internal/ui"
	"github.com/sgaunet/merge-train/pkg/config"
	"github.com/sgaunet/merge-train/pkg/git"
	"github.com/sgaunet/merge-train/pkg/github"
	"github.com/sgaunet/merge-train/pkg/pullrequest"
	"github.com/sgaunet/merge-train/pkg/strategy"
	"github.com/sgaunet/merge-train/pkg/validation"
)

const (
	scopeRepo       = "repo"
	scopePublicRepo = "public_repo"
	scopeWorkflow   = "workflow"
)

// GitClient is the working copy the merge tool operates on.
type GitClient interface {
	strategy.GitClient
	HasUncommittedChanges() (bool, error)
	IsShallowRepo() (bool, error)
	Restore(ctx context.Context, revision string, cleanup func(context.Context) error) *git.RestoreReport
}

// PullRequestLoader loads and validates pull requests.
type PullRequestLoader interface {
	Load(ctx context.Context, number int, opts pullrequest.LoadOptions) (*pullrequest.PullRequest, error)
	OverrideBranches(ctx context.Context) ([]string, error)
}

// Flags are the per-invocation switches of a merge.
type Flags struct {
	// DryRun stops after the strategy checked that the merge would succeed.
	DryRun bool
	// ForceManualBranches lets the operator pick the target branches.
	ForceManualBranches bool
	// SkipBranchConfirmation merges without confirming the branch list.
	SkipBranchConfirmation bool
	// IgnorePendingReviews skips the pending reviews validator.
	IgnorePendingReviews bool
}

// MergeTool merges pull requests into their target branches.
type MergeTool struct {
	cfg    *config.Config
	git    GitClient
	api    github.APIClient
	loader PullRequestLoader
	prompt ui.Prompter
	opts   strategy.Options
	log    *bullets.Logger
}

// NewMergeTool creates a merge tool.
func NewMergeTool(
	cfg *config.Config,
	gitClient GitClient,
	api github.APIClient,
	loader PullRequestLoader,
	prompt ui.Prompter,
	opts strategy.Options,
) *MergeTool {
	return &MergeTool{
		cfg:    cfg,
		git:    gitClient,
		api:    api,
		loader: loader,
		prompt: prompt,
		opts:   opts,
		log:    logger.NoLogger(),
	}
}

// SetLogger sets the logger for this merge tool.
func (m *MergeTool) SetLogger(l *bullets.Logger) {
	m.log = l
}

// Merge merges pull request number. Every failure is returned as an *Error.
func (m *MergeTool) Merge(ctx context.Context, number int, flags Flags) error {
	if err := m.checkWorkingCopy(); err != nil {
		return err
	}

	if err := m.checkAccess(ctx); err != nil {
		return err
	}

	pr, err := m.loader.Load(ctx, number, pullrequest.LoadOptions{IgnorePendingReviews: flags.IgnorePendingReviews})
	if err != nil {
		return fatalError(err)
	}

	if err := m.handleValidationFailures(pr); err != nil {
		return err
	}

	if flags.ForceManualBranches {
		pr, err = m.selectBranches(ctx, pr)
		if err != nil {
			return err
		}
	}

	if pr.HasCaretakerNote {
		msg := fmt.Sprintf("Pull request #%d has a caretaker note. Do you want to proceed with merging?", pr.Number)
		if err := m.confirm(msg); err != nil {
			return err
		}
	}

	return m.run(ctx, m.newStrategy(), pr, flags)
}

func (m *MergeTool) checkWorkingCopy() error {
	dirty, err := m.git.HasUncommittedChanges()
	if err != nil {
		return fatalError(err)
	}
	if dirty {
		return fatalError(ErrDirtyWorkingCopy)
	}

	shallow, err := m.git.IsShallowRepo()
	if err != nil {
		return fatalError(err)
	}
	if shallow {
		return fatalError(ErrShallowClone)
	}
	return nil
}

// checkAccess verifies the token can push to the repository, including workflow
// files. Bot tokens carry no OAuth scopes and are trusted.
func (m *MergeTool) checkAccess(ctx context.Context) error {
	user, err := m.api.AuthenticatedUser(ctx)
	if err != nil {
		return fatalError(fmt.Errorf("failed to check token scopes: %w", err))
	}
	if user.IsBot() {
		m.log.Debug(fmt.Sprintf("Authenticated as bot %s, skipping scope check", user.Login))
		return nil
	}

	var missing []string
	switch {
	case slices.Contains(user.Scopes, scopeRepo):
	case !m.cfg.GitHub.Private && slices.Contains(user.Scopes, scopePublicRepo):
	case m.cfg.GitHub.Private:
		missing = append(missing, scopeRepo)
	default:
		missing = append(missing, scopePublicRepo)
	}
	if !slices.Contains(user.Scopes, scopeWorkflow) {
		missing = append(missing, scopeWorkflow)
	}

	if len(missing) > 0 {
		return fatalError(fmt.Errorf("%w: the token of %s is missing the following scopes: %s",
			ErrInsufficientScope, user.Login, strings.Join(missing, ", ")))
	}
	return nil
}

func (m *MergeTool) handleValidationFailures(pr *pullrequest.PullRequest) error {
	if pr.Mergeable() {
		return nil
	}

	for _, f := range pr.ValidationFailures {
		m.log.Warn(f.String())
	}

	if !validation.AllForceIgnorable(pr.ValidationFailures) {
		return &Error{Kind: KindFatal, Err: ErrValidationFailed, Failures: pr.ValidationFailures}
	}

	ok, err := m.prompt.Confirm("Do you want to forcibly ignore these validation failures?", false)
	if err != nil {
		return promptError(err)
	}
	if !ok {
		return &Error{Kind: KindForceIgnorable, Err: ErrValidationFailed, Failures: pr.ValidationFailures}
	}

	m.log.Warn(fmt.Sprintf("Ignoring %d validation failure(s) of pull request #%d",
		len(pr.ValidationFailures), pr.Number))
	return nil
}

func (m *MergeTool) selectBranches(ctx context.Context, pr *pullrequest.PullRequest) (*pullrequest.PullRequest, error) {
	options, err := m.loader.OverrideBranches(ctx)
	if err != nil {
		return nil, fatalError(err)
	}
	if !slices.Contains(options, pr.GithubTargetBranch) {
		options = append([]string{pr.GithubTargetBranch}, options...)
	}

	selected, err := m.prompt.SelectBranches(
		fmt.Sprintf("Select the branches to merge pull request #%d into", pr.Number), options, pr.TargetBranches)
	if err != nil {
		return nil, promptError(err)
	}

	next, err := pr.WithTargetBranches(selected)
	if err != nil {
		return nil, fatalError(err)
	}
	m.log.Info("Target branches manually set to " + strings.Join(next.TargetBranches, ", "))
	return next, nil
}

func (m *MergeTool) newStrategy() strategy.Strategy {
	apiCfg := m.cfg.Merge.GithubAPIMerge

	autosquash := strategy.NewAutosquashStrategy(m.git, m.api, m.opts)
	autosquash.SetLogger(m.log)
	if apiCfg == nil {
		return autosquash
	}

	apiMerge := strategy.NewAPIMergeStrategy(m.git, m.api, apiCfg, m.prompt, m.opts)
	apiMerge.SetLogger(m.log)

	conditional := strategy.NewConditionalStrategy(autosquash, apiMerge, apiCfg)
	conditional.SetLogger(m.log)
	return conditional
}

// run drives the strategy. The previously checked out revision is restored and the
// temporary branches deleted on every path out of this function.
func (m *MergeTool) run(ctx context.Context, s strategy.Strategy, pr *pullrequest.PullRequest, flags Flags) (err error) {
	previous, err := m.git.CurrentBranchOrRevision()
	if err != nil {
		return fatalError(err)
	}

	defer func() {
		// An interrupt cancels ctx; the working copy must still be put back.
		report := m.git.Restore(context.WithoutCancel(ctx), previous, func(ctx context.Context) error {
			return s.Cleanup(ctx, pr)
		})
		if report.Success() {
			return
		}
		if report.CleanupError != nil {
			m.log.Warn(report.CleanupError.Error())
		}
		if report.CheckoutError == nil {
			return
		}
		if err == nil {
			err = fatalError(report.CheckoutError)
			return
		}
		m.log.Error(report.CheckoutError.Error())
	}()

	if err := s.Prepare(ctx, pr); err != nil {
		return fatalError(err)
	}
	if err := s.Check(ctx, pr); err != nil {
		return fatalError(err)
	}

	branches := strings.Join(pr.TargetBranches, ", ")
	if flags.DryRun {
		m.log.Info(fmt.Sprintf("Dry run: pull request #%d can be merged into %s", pr.Number, branches))
		return nil
	}

	if !flags.SkipBranchConfirmation {
		msg := fmt.Sprintf("Pull request #%d will be merged into: %s. Do you want to continue?", pr.Number, branches)
		if err := m.confirm(msg); err != nil {
			return err
		}
	}

	m.log.Info(fmt.Sprintf("Merging pull request #%d with the %s strategy", pr.Number, s.Name()))
	if err := s.Merge(ctx, pr); err != nil {
		return fatalError(err)
	}

	m.log.Info(fmt.Sprintf("Successfully merged pull request #%d into %s", pr.Number, branches))
	return nil
}

func (m *MergeTool) confirm(message string) error {
	ok, err := m.prompt.Confirm(message, false)
	if err != nil {
		return promptError(err)
	}
	if !ok {
		return abortedError()
	}
	return nil
}

func promptError(err error) *Error {
	if errors.Is(err, ui.ErrInterrupted) {
		return &Error{Kind: KindUserAborted, Err: err}
	}
	return fatalError(err)
}

// Ensure the production collaborators satisfy the merge tool interfaces.
var (
	_ GitClient         = (*git.Client)(nil)
	_ PullRequestLoader = (*pullrequest.Loader)(nil)
)
