// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for ctxbuild.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"ctxbuild/internal/config"
	"ctxbuild/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// Verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "ctxbuild",
		Short: "Stage and build container image contexts",
		Long: TitleStyle.Render("ctxbuild") + SubtitleStyle.Render(" - Stage and build container image contexts") + `

ctxbuild populates a pre-existing build context directory with a
dependency manifest and an archive of your scripts, runs the container
engine build (Docker or Podman), and removes the staged files again,
on success and on failure alike.

` + SubtitleStyle.Render("Expected layout:") + `
  project/
  ├── requirements.txt     the dependency manifest
  ├── scripts/             the scripts bundle source
  └── <context>/           the build context (contains the Dockerfile)

` + SubtitleStyle.Render("Examples:") + `
  ctxbuild build                      Stage and build with configured defaults
  ctxbuild build --image runner:v2    Override the image tag
  ctxbuild validate ./runner          Check a build context layout
  ctxbuild clean ./runner             Remove staged leftovers
  ctxbuild config show                Show current configuration`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/ctxbuild/config.cue)")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(completionCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadConfig loads the effective configuration, honoring the --config flag.
// A load failure is surfaced to the user and defaults are returned so
// commands that only read a couple of fields can still run.
func loadConfig(ctx context.Context) *config.Config {
	cfg, err := config.NewProvider().Load(ctx, config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
		return config.DefaultConfig()
	}

	// Apply verbose from config if not set via flag
	if !verbose {
		verbose = cfg.UI.Verbose
	}

	return cfg
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}
