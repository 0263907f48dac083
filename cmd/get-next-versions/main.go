// Package main provides the get-next-versions CLI.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/benjamin-kraatz/get-next-versions/config"
	"github.com/benjamin-kraatz/get-next-versions/gitio"
	"github.com/benjamin-kraatz/get-next-versions/internal/discover"
	"github.com/benjamin-kraatz/get-next-versions/internal/journal"
	"github.com/benjamin-kraatz/get-next-versions/internal/report"
	"github.com/benjamin-kraatz/get-next-versions/plan"
)

const (
	gnvDir      = ".gnv"
	journalFile = "journal.db"
)

var rootCmd = &cobra.Command{
	Use:   "get-next-versions",
	Short: "Compute next semantic versions for monorepo packages",
	Long: `get-next-versions reads the conventional commits since each package's
last release tag and computes the next semantic version per package,
attributing commits by scope, changed directory, and declared
dependencies from release-config.json.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = newLogger()
	},
	RunE: runCheck,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Show pending version bumps for every configured package",
	RunE:  runCheck,
}

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Create release tags for packages with pending bumps",
	RunE:  runTag,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter release-config.json",
	RunE:  runInit,
}

var discoverCmd = &cobra.Command{
	Use:   "discover [pattern]...",
	Short: "Print a proposed config for packages found in the repository",
	RunE:  runDiscover,
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recorded check runs, or show one in full",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var (
	repoPath   string
	configPath string
	verbose    bool

	// Check flags
	jsonOutput bool
	strictMode bool
	journalRun bool

	// Tag flags
	pushTags   bool
	remoteName string
	assumeYes  bool

	// Init flags
	forceInit    bool
	discoverInit bool

	// History flags
	historyLimit int
)

var logger zerolog.Logger

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	var out io.Writer = os.Stderr
	if report.InteractiveStderr() {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func loadConfig() (config.Config, error) {
	path := configPath
	if path == "" {
		found, err := config.Find(repoPath)
		if err != nil {
			return config.Config{}, err
		}
		path = found
	}
	return config.Load(path)
}

// buildPlan loads the config, opens the repository, and computes the
// version plan shared by check and tag.
func buildPlan() (*plan.Result, *gitio.Repository, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	repo, err := gitio.Open(repoPath, logger)
	if err != nil {
		return nil, nil, err
	}
	planner := plan.NewPlanner(repo, cfg, logger)
	planner.Strict = strictMode
	res, err := planner.Plan()
	if err != nil {
		return nil, nil, err
	}
	return res, repo, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	res, repo, err := buildPlan()
	if err != nil {
		return err
	}

	if journalRun {
		if _, err := recordRun(repo, res); err != nil {
			logger.Warn().Err(err).Msg("recording run failed")
		}
	}

	if jsonOutput || report.DetectCI() {
		return report.JSON(os.Stdout, res)
	}
	report.Text(os.Stdout, res, report.InteractiveStdout())
	return nil
}

func runTag(cmd *cobra.Command, args []string) error {
	res, repo, err := buildPlan()
	if err != nil {
		return err
	}

	changed := res.Changed()
	if len(changed) == 0 {
		fmt.Println("Nothing to tag, all packages are up to date.")
		return nil
	}

	var tags []string
	for _, u := range changed {
		tags = append(tags, u.Tag())
		fmt.Printf("%s: %s -> %s (%s)\n", u.Name, u.CurrentVersion, u.NextVersion, u.Tag())
	}

	if !assumeYes {
		if report.DetectCI() || !report.InteractiveStdin() || !report.InteractiveStdout() {
			return fmt.Errorf("refusing to create tags without confirmation, pass --yes")
		}
		var confirm bool
		prompt := huh.NewConfirm().
			Title(fmt.Sprintf("Create %d release tag(s)?", len(tags))).
			Description(strings.Join(tags, "\n")).
			Value(&confirm)
		if err := prompt.Run(); err != nil {
			return err
		}
		if !confirm {
			fmt.Println("Aborted.")
			return nil
		}
	}

	for _, name := range tags {
		if err := repo.CreateTag(name); err != nil {
			return err
		}
	}
	if pushTags {
		if err := repo.PushTags(remoteName, tags); err != nil {
			return err
		}
	}

	if _, err := recordRun(repo, res); err != nil {
		logger.Warn().Err(err).Msg("recording run failed")
	}

	fmt.Printf("Created %d tag(s).\n", len(tags))
	return nil
}

// recordRun stores the result in the repository's journal, keyed by the
// result fingerprint, and returns the run ID.
func recordRun(repo *gitio.Repository, res *plan.Result) (string, error) {
	head, err := repo.Head()
	if err != nil {
		return "", err
	}
	store, err := journal.Open(filepath.Join(repoPath, gnvDir, journalFile), logger)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.Record(res, head)
}

const defaultConfig = `{
  "versionedPackages": [
    {
      "name": "root",
      "tagPrefix": "v",
      "directory": "."
    }
  ],
  "nonScopeBehavior": "bump"
}
`

func runInit(cmd *cobra.Command, args []string) error {
	target := filepath.Join(repoPath, config.DefaultFiles[0])
	if _, err := os.Stat(target); err == nil && !forceInit {
		return fmt.Errorf("%s already exists, pass --force to overwrite", target)
	}

	content := []byte(defaultConfig)
	if discoverInit {
		pkgs, err := discover.Packages(repoPath, discover.DefaultPatterns)
		if err != nil {
			return err
		}
		if len(pkgs) == 0 {
			return fmt.Errorf("no packages found, write %s by hand", config.DefaultFiles[0])
		}
		cfg := config.Config{VersionedPackages: pkgs, NonScopeBehavior: config.NonScopeBump}
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		content = append(data, '\n')
	}

	if err := os.WriteFile(target, content, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Printf("Wrote %s\n", target)
	return nil
}

func runDiscover(cmd *cobra.Command, args []string) error {
	patterns := discover.DefaultPatterns
	if len(args) > 0 {
		patterns = args
	}
	pkgs, err := discover.Packages(repoPath, patterns)
	if err != nil {
		return err
	}
	if len(pkgs) == 0 {
		fmt.Println("No packages found.")
		return nil
	}

	cfg := config.Config{VersionedPackages: pkgs, NonScopeBehavior: config.NonScopeBump}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	os.Stdout.Write(data)
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := journal.Open(filepath.Join(repoPath, gnvDir, journalFile), logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		id, err := store.Find(args[0])
		if err != nil {
			return err
		}
		res, err := store.Payload(id)
		if err != nil {
			return err
		}
		report.Text(os.Stdout, res, report.InteractiveStdout())
		return nil
	}

	entries, err := store.Entries(historyLimit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No recorded runs.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s  %s  %s  %d package(s), %d changed\n",
			shortID(e.ID), e.CreatedAt.Format(time.RFC3339), shortID(e.Head), e.Packages, e.Changed)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoPath, "repo", ".", "Path to the Git repository")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the release config (default: release-config.{json,yaml,yml} in the repo)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	// The bare command is check, so both carry the check flags.
	for _, cmd := range []*cobra.Command{rootCmd, checkCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON (implied on CI)")
		cmd.Flags().BoolVar(&strictMode, "strict", false, "Treat per-package git failures as fatal")
		cmd.Flags().BoolVar(&journalRun, "journal", false, "Record this run in the journal")
	}

	tagCmd.Flags().BoolVar(&strictMode, "strict", false, "Treat per-package git failures as fatal")
	tagCmd.Flags().BoolVar(&pushTags, "push", false, "Push created tags to the remote")
	tagCmd.Flags().StringVar(&remoteName, "remote", "origin", "Remote to push tags to")
	tagCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")

	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing config")
	initCmd.Flags().BoolVar(&discoverInit, "discover", false, "Seed the config from discovered packages")

	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "Number of runs to show")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
