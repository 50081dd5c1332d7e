package fixtures

import (
	"github.com/sgaunet/merge-train/pkg/config"
)

// DefaultConfigYAML is a minimal configuration for angular/angular.
const DefaultConfigYAML = `
github:
  owner: angular
  name: angular
  mainBranchName: main
`

// APIMergeConfigYAML enables the GitHub API merge strategies with squash by default.
const APIMergeConfigYAML = DefaultConfigYAML + `
merge:
  githubApiMerge:
    default: squash
    labels:
      - pattern: "merge: preserve commits"
        method: rebase
`

// Config parses yaml and panics on invalid input.
func Config(yaml string) *config.Config {
	cfg, err := config.Parse([]byte(yaml))
	if err != nil {
		panic(err)
	}
	return cfg
}

// DefaultConfig returns the parsed DefaultConfigYAML.
func DefaultConfig() *config.Config {
	return Config(DefaultConfigYAML)
}
