package pullrequest

import (
	"context"
	"fmt"
	"time"

	"github.com/sgaunet/bullets"
	"github.com/sgaunet/merge-train/internal/logger"
	"github.com/sgaunet/merge-train/pkg/commits"
	"github.com/sgaunet/merge-train/pkg/config"
	"github.com/sgaunet/merge-train/pkg/github"
	"github.com/sgaunet/merge-train/pkg/release"
	"github.com/sgaunet/merge-train/pkg/targeting"
	"github.com/sgaunet/merge-train/pkg/validation"
)

// LoadOptions tune validation of a loaded pull request.
type LoadOptions struct {
	IgnorePendingReviews bool
}

// Loader builds PullRequest values from the GitHub API, the active release trains
// and the validation pipeline.
type Loader struct {
	api      github.APIClient
	cfg      *config.Config
	pipeline *validation.Pipeline
	lts      targeting.LTSSource
	log      *bullets.Logger

	trains *release.ActiveTrains
}

// NewLoader creates a loader. lts may be nil when no LTS branches exist.
func NewLoader(
	api github.APIClient, cfg *config.Config, pipeline *validation.Pipeline, lts targeting.LTSSource,
) *Loader {
	return &Loader{
		api:      api,
		cfg:      cfg,
		pipeline: pipeline,
		lts:      lts,
		log:      logger.NoLogger(),
	}
}

// RegistryLTSSource lists the active LTS branches of npmPackage. It returns no
// branches when npmPackage is empty.
func RegistryLTSSource(
	ctx context.Context, registry *release.RegistryClient, npmPackage string,
) targeting.LTSSource {
	return func() ([]release.LTSBranch, error) {
		if npmPackage == "" {
			return nil, nil
		}
		return registry.FetchActiveLTSBranches(ctx, npmPackage, time.Now())
	}
}

// SetLogger sets the logger for this loader.
func (l *Loader) SetLogger(log *bullets.Logger) {
	l.log = log
}

// Load fetches pull request number, resolves its target branches and validates it.
// Target resolution problems are reported as validation failures, not errors.
func (l *Loader) Load(ctx context.Context, number int, opts LoadOptions) (*PullRequest, error) {
	l.log.Debug(fmt.Sprintf("Loading pull request #%d", number))

	data, err := l.api.GetPullRequest(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to load pull request #%d: %w", number, err)
	}

	apiCommits, err := l.api.ListPullRequestCommits(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to list commits of pull request #%d: %w", number, err)
	}
	if len(apiCommits) == 0 {
		return nil, ErrNoCommits
	}
	if len(apiCommits[0].ParentSHAs) == 0 {
		return nil, ErrMissingBaseCommit
	}

	parsed := make([]commits.Commit, len(apiCommits))
	for i, c := range apiCommits {
		parsed[i] = commits.Parse(c.Message)
		parsed[i].Hash = c.SHA
		parsed[i].ShortHash = shortHash(c.SHA)
	}

	baseSHA := apiCommits[0].ParentSHAs[0]
	commitCount := data.CommitCount
	if commitCount == 0 {
		commitCount = len(apiCommits)
	}

	pr := &PullRequest{
		Number:                  data.Number,
		Title:                   data.Title,
		Labels:                  data.Labels,
		GithubTargetBranch:      data.BaseRef,
		CommitCount:             commitCount,
		Commits:                 parsed,
		BaseSHA:                 baseSHA,
		HeadSHA:                 data.HeadSHA,
		RevisionRange:           revisionRange(baseSHA),
		RequiredBaseSHA:         l.cfg.Merge.RequiredBaseCommits[data.BaseRef],
		NeedsCommitMessageFixup: data.HasLabel(l.cfg.Merge.CommitMessageFixupLabel),
		HasCaretakerNote:        data.HasLabel(l.cfg.Merge.CaretakerNoteLabel),
	}

	resolver, err := l.resolver(ctx)
	if err != nil {
		return nil, err
	}

	in := &validation.Input{
		Config:               l.cfg,
		PR:                   data,
		Commits:              parsed,
		IgnorePendingReviews: opts.IgnorePendingReviews,
	}

	resolution, resolveErr := resolver.Resolve(data.Labels, data.BaseRef)
	if resolveErr != nil {
		l.log.Debug("Target resolution failed: " + resolveErr.Error())
		pr.TargetBranches = []string{data.BaseRef}
		in.TargetResolutionErr = resolveErr
	} else {
		pr.TargetBranches = resolution.Branches
		pr.TargetLabel = resolution.Label
	}
	in.TargetLabel = pr.TargetLabel
	in.TargetBranches = pr.TargetBranches

	failures, err := l.pipeline.Run(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to validate pull request #%d: %w", number, err)
	}
	pr.ValidationFailures = failures

	return pr, nil
}

// OverrideBranches lists the branches an operator may select by hand.
func (l *Loader) OverrideBranches(ctx context.Context) ([]string, error) {
	trains, err := l.activeTrains(ctx)
	if err != nil {
		return nil, err
	}

	var lts []release.LTSBranch
	if l.lts != nil {
		lts, err = l.lts()
		if err != nil {
			return nil, fmt.Errorf("failed to determine LTS branches: %w", err)
		}
	}

	return targeting.ManualOverrideBranches(trains, lts), nil
}

func (l *Loader) resolver(ctx context.Context) (*targeting.Resolver, error) {
	if l.cfg.Merge.NoTargetLabeling {
		return targeting.NewResolver(l.cfg, nil, l.lts), nil
	}

	trains, err := l.activeTrains(ctx)
	if err != nil {
		return nil, err
	}
	return targeting.NewResolver(l.cfg, trains, l.lts), nil
}

func (l *Loader) activeTrains(ctx context.Context) (*release.ActiveTrains, error) {
	if l.trains != nil {
		return l.trains, nil
	}

	trains, err := release.FetchActiveTrains(ctx, l.api, l.cfg.GitHub.MainBranchName)
	if err != nil {
		return nil, fmt.Errorf("failed to determine active release trains: %w", err)
	}
	l.log.Debug(fmt.Sprintf("Active release trains: %v", trains.Branches()))

	l.trains = trains
	return trains, nil
}

func shortHash(sha string) string {
	if len(sha) <= commits.DefaultShortHashLength {
		return sha
	}
	return sha[:commits.DefaultShortHashLength]
}
