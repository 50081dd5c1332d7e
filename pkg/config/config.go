// Package config handles loading and validation of the repository merge configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/sgaunet/merge-train/internal/urlutil"
	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file looked up at the repository root.
const DefaultFileName = ".merge-train.yml"

const (
	defaultMainBranch             = "main"
	defaultMergeReadyLabel        = "action: merge"
	defaultCaretakerNoteLabel     = "merge: caretaker note"
	defaultCommitMessageFixup     = "merge: fix commit message"
	defaultBreakingChangeLabel    = "flag: breaking change"
	defaultAutosquashCommentDelay = 5 * time.Second
	defaultNpmRegistry            = "https://registry.npmjs.org"
)

var (
	errConfigNotFound        = errors.New("config file not found")
	errRepositoryIncomplete  = errors.New("github owner and name must be set")
	errInvalidDefaultMethod  = errors.New("githubApiMerge.default must be one of merge, squash, rebase")
	errInvalidLabelMethod    = errors.New("githubApiMerge label method must be one of merge, squash, rebase")
	errEmptyLabelPattern     = errors.New("githubApiMerge label pattern must not be empty")
	errUnknownValidator      = errors.New("unknown validator in merge.disabledValidators")
	errNegativeCommentDelay  = errors.New("merge.autosquashCommentDelay must not be negative")
	errIsolatedFilesNoSync   = errors.New("merge.isolatedSeparateFiles requires syncedRef")
	errTestedNoRequiredLabel = errors.New("merge.tested requires requiredLabel")
)

// MergeMethod is a GitHub API merge method.
type MergeMethod string

// Supported merge methods.
const (
	MethodMerge  MergeMethod = "merge"
	MethodSquash MergeMethod = "squash"
	MethodRebase MergeMethod = "rebase"
)

// Valid reports whether m is a method the merge endpoint accepts.
func (m MergeMethod) Valid() bool {
	return m == MethodMerge || m == MethodSquash || m == MethodRebase
}

// ValidatorNames lists every validator that can be disabled through configuration.
var ValidatorNames = []string{
	"state",
	"merge-ready",
	"pending-reviews",
	"breaking-change-label",
	"target-label-changes",
	"status-checks",
	"isolated-separate-files",
	"tested",
	"target-branches",
}

// Config represents the complete merge configuration of one repository.
type Config struct {
	GitHub  GitHubConfig  `yaml:"github"`
	Merge   MergeConfig   `yaml:"merge"`
	Release ReleaseConfig `yaml:"release"`
}

// GitHubConfig identifies the upstream repository.
type GitHubConfig struct {
	Owner          string `yaml:"owner"`
	Name           string `yaml:"name"`
	MainBranchName string `yaml:"mainBranchName"`
	Private        bool   `yaml:"private"`
}

// LabelMethod selects a merge method for PRs carrying a label.
type LabelMethod struct {
	Pattern string      `yaml:"pattern"`
	Method  MergeMethod `yaml:"method"`
}

// MergeStrategyConfig configures merges through the GitHub API.
type MergeStrategyConfig struct {
	Default MergeMethod   `yaml:"default"`
	Labels  []LabelMethod `yaml:"labels"`
}

// MethodFor returns the method of the first configured label present in labels,
// or the default method.
func (c *MergeStrategyConfig) MethodFor(labels []string) MergeMethod {
	for _, lm := range c.Labels {
		if slices.Contains(labels, lm.Pattern) {
			return lm.Method
		}
	}
	return c.Default
}

// TargetLabelNames holds the label names the target resolver recognizes.
type TargetLabelNames struct {
	Major string `yaml:"major"`
	Minor string `yaml:"minor"`
	Patch string `yaml:"patch"`
	RC    string `yaml:"rc"`
	LTS   string `yaml:"lts"`
}

// IsolatedFilesConfig declares files that must land separately from everything else.
type IsolatedFilesConfig struct {
	Patterns  []string `yaml:"patterns"`
	SyncedRef string   `yaml:"syncedRef"`
}

// TestedConfig declares the testing gate.
type TestedConfig struct {
	RequiredLabel string   `yaml:"requiredLabel"`
	StatusCheck   string   `yaml:"statusCheck"`
	TrustedTeams  []string `yaml:"trustedTeams"`
	TrustedUsers  []string `yaml:"trustedUsers"`
}

// MergeConfig configures the merge tool.
type MergeConfig struct {
	// GithubAPIMerge selects the API-based strategies when present.
	GithubAPIMerge *MergeStrategyConfig `yaml:"githubApiMerge"`
	// NoTargetLabeling makes every PR target the main branch only.
	NoTargetLabeling bool `yaml:"noTargetLabeling"`
	// RequiredBaseCommits maps a branch to a commit every PR against it must contain.
	RequiredBaseCommits map[string]string `yaml:"requiredBaseCommits"`

	MergeReadyLabel         string           `yaml:"mergeReadyLabel"`
	CaretakerNoteLabel      string           `yaml:"caretakerNoteLabel"`
	CommitMessageFixupLabel string           `yaml:"commitMessageFixupLabel"`
	BreakingChangeLabel     string           `yaml:"breakingChangeLabel"`
	TargetLabels            TargetLabelNames `yaml:"targetLabels"`
	TargetLabelExemptScopes []string         `yaml:"targetLabelExemptScopes"`

	// RequiredStatusChecks restricts the status-checks validator to these names;
	// empty means every check and status on the head commit.
	RequiredStatusChecks  []string             `yaml:"requiredStatusChecks"`
	IsolatedSeparateFiles *IsolatedFilesConfig `yaml:"isolatedSeparateFiles"`
	Tested                *TestedConfig        `yaml:"tested"`

	AutosquashCommentDelay time.Duration `yaml:"autosquashCommentDelay"`
	DisabledValidators     []string      `yaml:"disabledValidators"`
}

// ReleaseConfig configures release-train and LTS discovery.
type ReleaseConfig struct {
	// NpmPackage is the package whose dist-tags declare LTS majors. Empty disables LTS.
	NpmPackage  string `yaml:"npmPackage"`
	RegistryURL string `yaml:"registryUrl"`
}

// Load reads, defaults and validates the configuration file at path.
func Load(path string) (*Config, error) {
	// #nosec G304 - reading the configuration path given by the operator is intentional
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", errConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, applies defaults and validates it. The
// repository owner and name may still be empty; see FillRepositoryFromRemote.
func Parse(data []byte) (*Config, error) {
	// Preset so that an explicit zero delay survives decoding.
	config := Config{Merge: MergeConfig{AutosquashCommentDelay: defaultAutosquashCommentDelay}}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	if err := config.validateMerge(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// FillRepositoryFromRemote sets owner and name from a remote URL when the file
// did not declare them.
func (c *Config) FillRepositoryFromRemote(remoteURL string) error {
	if c.GitHub.Owner != "" && c.GitHub.Name != "" {
		return nil
	}

	owner, name, err := urlutil.OwnerAndRepo(remoteURL)
	if err != nil {
		return fmt.Errorf("failed to derive repository from remote: %w", err)
	}

	if c.GitHub.Owner == "" {
		c.GitHub.Owner = owner
	}
	if c.GitHub.Name == "" {
		c.GitHub.Name = name
	}
	return nil
}

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if c.GitHub.Owner == "" || c.GitHub.Name == "" {
		return errRepositoryIncomplete
	}
	return c.validateMerge()
}

// ValidatorEnabled reports whether the named validator should run.
func (c *Config) ValidatorEnabled(name string) bool {
	return !slices.Contains(c.Merge.DisabledValidators, name)
}

// RegistryURL returns the npm registry base URL without trailing slash.
func (c *Config) RegistryURL() string {
	if c.Release.RegistryURL == "" {
		return defaultNpmRegistry
	}
	return c.Release.RegistryURL
}

func (c *Config) applyDefaults() {
	if c.GitHub.MainBranchName == "" {
		c.GitHub.MainBranchName = defaultMainBranch
	}

	m := &c.Merge
	setDefault(&m.MergeReadyLabel, defaultMergeReadyLabel)
	setDefault(&m.CaretakerNoteLabel, defaultCaretakerNoteLabel)
	setDefault(&m.CommitMessageFixupLabel, defaultCommitMessageFixup)
	setDefault(&m.BreakingChangeLabel, defaultBreakingChangeLabel)
	setDefault(&m.TargetLabels.Major, "target: major")
	setDefault(&m.TargetLabels.Minor, "target: minor")
	setDefault(&m.TargetLabels.Patch, "target: patch")
	setDefault(&m.TargetLabels.RC, "target: rc")
	setDefault(&m.TargetLabels.LTS, "target: lts")
}

func (c *Config) validateMerge() error {
	if api := c.Merge.GithubAPIMerge; api != nil {
		if !api.Default.Valid() {
			return fmt.Errorf("%w: %q", errInvalidDefaultMethod, api.Default)
		}
		for _, lm := range api.Labels {
			if lm.Pattern == "" {
				return errEmptyLabelPattern
			}
			if !lm.Method.Valid() {
				return fmt.Errorf("%w: %q for %q", errInvalidLabelMethod, lm.Method, lm.Pattern)
			}
		}
	}

	for _, name := range c.Merge.DisabledValidators {
		if !slices.Contains(ValidatorNames, name) {
			return fmt.Errorf("%w: %s", errUnknownValidator, name)
		}
	}

	if c.Merge.AutosquashCommentDelay < 0 {
		return errNegativeCommentDelay
	}
	if f := c.Merge.IsolatedSeparateFiles; f != nil && len(f.Patterns) > 0 && f.SyncedRef == "" {
		return errIsolatedFilesNoSync
	}
	if t := c.Merge.Tested; t != nil && t.RequiredLabel == "" {
		return errTestedNoRequiredLabel
	}

	return nil
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}
