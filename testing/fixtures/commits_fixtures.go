package fixtures

import "github.com/sgaunet/merge-train/pkg/commits"

// Commit messages for common scenarios.
const (
	FixMessage        = "fix(core): handle empty input"
	FeatureMessage    = "feat(router): add lazy routes"
	BreakingMessage   = "fix: repair X\n\nBREAKING CHANGE: Y"
	DeprecatedMessage = "fix(forms): rename validator\n\nDEPRECATED: use Validators.pattern instead"
	FixupMessage      = "fixup! fix(core): handle empty input"
)

// ParsedCommits parses each message into a commit.
func ParsedCommits(messages ...string) []commits.Commit {
	list := make([]commits.Commit, len(messages))
	for i, msg := range messages {
		list[i] = commits.Parse(msg)
	}
	return list
}
