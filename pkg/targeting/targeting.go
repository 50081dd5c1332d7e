// Package targeting maps a pull request's target label to the branches it lands on.
package targeting

import (
	"fmt"
	"slices"
	"sync"

	"github.com/sgaunet/merge-train/pkg/config"
	"github.com/sgaunet/merge-train/pkg/release"
)

// Label maps one target label to the branches a PR against githubTargetBranch lands on.
type Label struct {
	Name     string
	Branches func(githubTargetBranch string) ([]string, error)
}

// Resolution is the outcome of resolving a PR's target label.
type Resolution struct {
	// Label is the matched target label, empty when target labeling is disabled.
	Label    string
	Branches []string
}

// LTSSource lists active LTS branches. It is only called for LTS-targeted PRs.
type LTSSource func() ([]release.LTSBranch, error)

// Resolver resolves target labels against the active release trains.
type Resolver struct {
	mainBranch       string
	noTargetLabeling bool
	labels           []Label

	trains *release.ActiveTrains

	ltsOnce     sync.Once
	ltsSource   LTSSource
	ltsBranches []release.LTSBranch
	ltsErr      error
}

// NewResolver builds a resolver for the target labels configured in cfg.
func NewResolver(cfg *config.Config, trains *release.ActiveTrains, lts LTSSource) *Resolver {
	r := &Resolver{
		mainBranch:       cfg.GitHub.MainBranchName,
		noTargetLabeling: cfg.Merge.NoTargetLabeling,
		trains:           trains,
		ltsSource:        lts,
	}
	if trains != nil {
		r.labels = r.buildLabels(cfg.Merge.TargetLabels)
	}
	return r
}

// Resolve computes the branches a PR with prLabels against githubTargetBranch lands on.
func (r *Resolver) Resolve(prLabels []string, githubTargetBranch string) (*Resolution, error) {
	if r.noTargetLabeling {
		return &Resolution{Branches: []string{r.mainBranch}}, nil
	}
	return Resolve(r.labels, prLabels, githubTargetBranch)
}

// Resolve matches prLabels against labels. Exactly one label must match, and the
// resulting branch set must contain githubTargetBranch.
func Resolve(labels []Label, prLabels []string, githubTargetBranch string) (*Resolution, error) {
	var matches []Label
	for _, l := range labels {
		if slices.Contains(prLabels, l.Name) {
			matches = append(matches, l)
		}
	}

	switch len(matches) {
	case 0:
		return nil, ErrNoTargetLabel
	case 1:
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return nil, fmt.Errorf("%w: %v", ErrMultipleTargetLabels, names)
	}

	label := matches[0]
	branches, err := label.Branches(githubTargetBranch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label.Name, err)
	}

	if !slices.Contains(branches, githubTargetBranch) {
		return nil, fmt.Errorf("%w: %q resolves %s to %v", ErrTargetBranchNotCovered,
			label.Name, githubTargetBranch, branches)
	}

	return &Resolution{Label: label.Name, Branches: branches}, nil
}

// ManualOverrideBranches lists every branch an operator may pick by hand: the active
// release trains followed by the active LTS branches.
func ManualOverrideBranches(trains *release.ActiveTrains, lts []release.LTSBranch) []string {
	branches := trains.Branches()
	for _, b := range lts {
		if !slices.Contains(branches, b.Name) {
			branches = append(branches, b.Name)
		}
	}
	return branches
}

// ActiveLTSBranches returns the LTS branches, loading them once.
func (r *Resolver) ActiveLTSBranches() ([]release.LTSBranch, error) {
	r.ltsOnce.Do(func() {
		if r.ltsSource == nil {
			return
		}
		r.ltsBranches, r.ltsErr = r.ltsSource()
	})
	return r.ltsBranches, r.ltsErr
}

func (r *Resolver) buildLabels(names config.TargetLabelNames) []Label {
	t := r.trains
	return []Label{
		{
			Name: names.Major,
			Branches: func(string) ([]string, error) {
				return branchList(t.Next, t.ReleaseCandidate, t.Latest), nil
			},
		},
		{
			Name: names.Minor,
			Branches: func(string) ([]string, error) {
				return branchList(t.Next), nil
			},
		},
		{
			Name: names.Patch,
			Branches: func(target string) ([]string, error) {
				switch {
				case target == t.Latest.BranchName:
					return branchList(t.Latest), nil
				case t.ReleaseCandidate != nil && target == t.ReleaseCandidate.BranchName:
					return branchList(t.ReleaseCandidate, t.Latest), nil
				case target == t.Next.BranchName:
					return branchList(t.Next, t.ReleaseCandidate, t.Latest), nil
				}
				return nil, fmt.Errorf("%w: patch changes must target %s or %s, not %s",
					ErrInvalidTargetBranch, t.Next.BranchName, t.Latest.BranchName, target)
			},
		},
		{
			Name: names.RC,
			Branches: func(target string) ([]string, error) {
				if t.ReleaseCandidate == nil {
					return nil, ErrNoReleaseCandidate
				}
				switch target {
				case t.ReleaseCandidate.BranchName:
					return branchList(t.ReleaseCandidate), nil
				case t.Next.BranchName:
					return branchList(t.Next, t.ReleaseCandidate), nil
				}
				return nil, fmt.Errorf("%w: release-candidate changes must target %s or %s, not %s",
					ErrInvalidTargetBranch, t.Next.BranchName, t.ReleaseCandidate.BranchName, target)
			},
		},
		{
			Name: names.LTS,
			Branches: func(target string) ([]string, error) {
				lts, err := r.ActiveLTSBranches()
				if err != nil {
					return nil, fmt.Errorf("failed to determine LTS branches: %w", err)
				}
				for _, b := range lts {
					if b.Name == target {
						return []string{target}, nil
					}
				}
				return nil, fmt.Errorf("%w: %s is not an active LTS branch", ErrInvalidTargetBranch, target)
			},
		},
	}
}

func branchList(trains ...*release.Train) []string {
	var names []string
	for _, t := range trains {
		if t != nil && !slices.Contains(names, t.BranchName) {
			names = append(names, t.BranchName)
		}
	}
	return names
}
