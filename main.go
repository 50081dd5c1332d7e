// Package main provides the entry point for the merge-train CLI tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sgaunet/bullets"
	"github.com/sgaunet/merge-train/internal/logger"
	"github.com/sgaunet/merge-train/internal/security"
	"github.com/sgaunet/merge-train/internal/ui"
	"github.com/sgaunet/merge-train/pkg/commits"
	"github.com/sgaunet/merge-train/pkg/config"
	"github.com/sgaunet/merge-train/pkg/git"
	"github.com/sgaunet/merge-train/pkg/github"
	"github.com/sgaunet/merge-train/pkg/merge"
	"github.com/sgaunet/merge-train/pkg/pullrequest"
	"github.com/sgaunet/merge-train/pkg/release"
	"github.com/sgaunet/merge-train/pkg/strategy"
	"github.com/sgaunet/merge-train/pkg/validation"
	"github.com/spf13/cobra"
)

const tokenEnvVar = "GITHUB_TOKEN"

var (
	errTokenMissing    = errors.New(tokenEnvVar + " environment variable is required")
	errInvalidPRNumber = errors.New("invalid pull request number")
)

var (
	logLevel   string
	configPath string
	repoDir    string
	mergeFlags merge.Flags
	log        *bullets.Logger
)

var rootCmd = &cobra.Command{
	Use:   "merge-train",
	Short: "Merge pull requests into their release trains",
	Long: `merge-train merges a GitHub pull request into every branch its target label
resolves to. It validates the pull request, checks that it applies cleanly to
each branch, and only then lands it, either through the GitHub merge API or by
pushing autosquashed commits.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var mergeCmd = &cobra.Command{
	Use:   "merge <pr-number>",
	Short: "Merge a pull request into its target branches",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := parsePRNumber(args[0])
		if err != nil {
			return err
		}
		return runMerge(cmd.Context(), number)
	},
}

// msgFilterCmd backs git filter-branch --msg-filter: it reads one commit message
// on stdin and writes it back with a reference to the pull request.
var msgFilterCmd = &cobra.Command{
	Use:    "msg-filter <pr-number>",
	Hidden: true,
	Args:   cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, err := parsePRNumber(args[0])
		if err != nil {
			return err
		}

		message, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read commit message: %w", err)
		}

		_, err = io.WriteString(cmd.OutOrStdout(), commits.AppendPullRequestReference(string(message), number))
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info",
		"Set log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to the merge configuration (default: "+config.DefaultFileName+" at the repository root)")
	rootCmd.PersistentFlags().StringVar(&repoDir, "repo-dir", ".", "Path inside the local repository")

	mergeCmd.Flags().BoolVar(&mergeFlags.DryRun, "dry-run", false,
		"Check that the pull request can be merged without merging it")
	mergeCmd.Flags().BoolVar(&mergeFlags.ForceManualBranches, "force-manual-branches", false,
		"Select the target branches manually")
	mergeCmd.Flags().BoolVar(&mergeFlags.SkipBranchConfirmation, "skip-branch-confirmation", false,
		"Merge without confirming the target branches")
	mergeCmd.Flags().BoolVar(&mergeFlags.IgnorePendingReviews, "ignore-pending-reviews", false,
		"Do not fail on pending review requests")

	rootCmd.AddCommand(mergeCmd, msgFilterCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parsePRNumber(arg string) (int, error) {
	number, err := strconv.Atoi(strings.TrimPrefix(arg, "#"))
	if err != nil || number <= 0 {
		return 0, fmt.Errorf("%w: %q", errInvalidPRNumber, arg)
	}
	return number, nil
}

func runMerge(ctx context.Context, number int) error {
	log = logger.NewLogger(logLevel)

	token := security.NewSecureToken(os.Getenv(tokenEnvVar))
	if token.IsEmpty() {
		return errTokenMissing
	}

	gitClient, err := git.Open(repoDir, &token)
	if err != nil {
		return err
	}
	gitClient.SetLogger(log)

	cfg, err := loadConfig(gitClient)
	if err != nil {
		return err
	}
	log.Debug(fmt.Sprintf("Merging into %s/%s", cfg.GitHub.Owner, cfg.GitHub.Name))

	api, err := github.NewClient(token, cfg.GitHub.Owner, cfg.GitHub.Name)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client: %w", err)
	}
	api.SetLogger(log)

	pipeline := validation.DefaultPipeline(api)
	pipeline.SetLogger(log)

	registry := release.NewRegistryClient(cfg.RegistryURL(), nil)
	loader := pullrequest.NewLoader(api, cfg, pipeline,
		pullrequest.RegistryLTSSource(ctx, registry, cfg.Release.NpmPackage))
	loader.SetLogger(log)

	msgFilter, err := msgFilterCommand()
	if err != nil {
		return err
	}

	tool := merge.NewMergeTool(cfg, gitClient, api, loader, ui.NewSurveyPrompter(), strategy.Options{
		RemoteURL:        git.RepoGitURL(cfg.GitHub.Owner, cfg.GitHub.Name, &token),
		MainBranch:       cfg.GitHub.MainBranchName,
		MsgFilterCommand: msgFilter,
		CommentDelay:     cfg.Merge.AutosquashCommentDelay,
	})
	tool.SetLogger(log)

	err = tool.Merge(ctx, number, mergeFlags)

	var mergeErr *merge.Error
	if errors.As(err, &mergeErr) && mergeErr.Kind == merge.KindUserAborted {
		log.Warn(fmt.Sprintf("Merge of pull request #%d aborted", number))
	}
	return err
}

// loadConfig reads the repository configuration and fills in the upstream
// repository from the origin remote when the file does not name it.
func loadConfig(gitClient *git.Client) (*config.Config, error) {
	path := configPath
	if path == "" {
		path = filepath.Join(gitClient.Dir(), config.DefaultFileName)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log.Debug("Configuration loaded from " + path)

	if remote, err := gitClient.RemoteURL("origin"); err == nil {
		if err := cfg.FillRepositoryFromRemote(remote); err != nil {
			return nil, err
		}
	} else {
		log.Debug("No origin remote to derive the repository from")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// msgFilterCommand returns the shell command filter-branch runs for each commit.
func msgFilterCommand() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate merge-train executable: %w", err)
	}
	return "'" + strings.ReplaceAll(exe, "'", `'\''`) + "' msg-filter", nil
}
