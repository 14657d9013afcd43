// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"ctxbuild/internal/config"
	"ctxbuild/internal/container"
	"ctxbuild/internal/issue"
	"ctxbuild/internal/stage"

	"github.com/spf13/cobra"
)

var (
	buildImage        string
	buildEngine       string
	buildContextDir   string
	buildRequirements string
	buildScriptsDir   string
	buildArchiveName  string
	buildNoCache      bool
	buildKeepStaged   bool

	buildCmd = &cobra.Command{
		Use:   "build",
		Short: "Stage the build context and build the image",
		Long: `Stage the build context and build the image.

Copies the dependency manifest into the build context, archives the
scripts directory next to it, runs the engine build, then removes the
staged files again. The context directory must already exist and
contain a Dockerfile; ctxbuild never creates or destroys it.

Flags override the corresponding config fields.`,
		Args: cobra.NoArgs,
		RunE: runBuild,
	}
)

func init() {
	buildCmd.Flags().StringVar(&buildImage, "image", "", "image tag to apply (name[:tag])")
	buildCmd.Flags().StringVar(&buildEngine, "engine", "", "container engine to use (docker or podman)")
	buildCmd.Flags().StringVar(&buildContextDir, "context", "", "build context directory (default: directory named after the image)")
	buildCmd.Flags().StringVar(&buildRequirements, "requirements", "", "path to the dependency manifest")
	buildCmd.Flags().StringVar(&buildScriptsDir, "scripts", "", "directory archived into the context")
	buildCmd.Flags().StringVar(&buildArchiveName, "archive-name", "", "file name of the staged archive")
	buildCmd.Flags().BoolVar(&buildNoCache, "no-cache", true, "disable the engine build cache")
	buildCmd.Flags().BoolVar(&buildKeepStaged, "keep-staged", false, "leave staged files in the context after the build")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd.Context())

	opts := buildOptionsFromConfig(cmd, cfg)

	engineType := config.ContainerEngine(buildEngine)
	if buildEngine == "" {
		engineType = cfg.ContainerEngine
	}

	engine, err := container.NewEngine(container.EngineType(engineType))
	if err != nil {
		var notAvail *container.ErrEngineNotAvailable
		if errors.As(err, &notAvail) {
			rendered, _ := issue.Get(issue.EngineNotFoundId).Render("dark")
			fmt.Fprint(os.Stderr, rendered)
		}
		return &ExitError{Code: 1, Err: err}
	}

	if verbose {
		fmt.Printf("%s %s\n", CmdStyle.Render("engine:"), engine.Name())
		fmt.Printf("%s %s\n", CmdStyle.Render("image:"), opts.Image)
		fmt.Printf("%s %s\n", CmdStyle.Render("context:"), opts.ContextDir)
	}

	if err := stage.NewStager(engine, opts).Run(cmd.Context()); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Printf("%s Built %s\n", SuccessStyle.Render("✓"), opts.Image)
	return nil
}

// buildOptionsFromConfig merges config values with build command flags.
// A flag wins only when the user actually set it, so config values are
// not clobbered by flag defaults.
func buildOptionsFromConfig(cmd *cobra.Command, cfg *config.Config) stage.Options {
	opts := stage.Options{
		Image:        string(cfg.Image),
		ContextDir:   cfg.ContextDir,
		Requirements: cfg.Requirements,
		ScriptsDir:   cfg.ScriptsDir,
		ArchiveName:  cfg.ArchiveName,
		NoCache:      cfg.NoCache,
		KeepStaged:   cfg.KeepStaged,
		PreBuild:     cfg.Hooks.PreBuild,
		PostBuild:    cfg.Hooks.PostBuild,
		Verbose:      verbose || cfg.UI.Verbose,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
	}

	if buildImage != "" {
		opts.Image = buildImage
	}
	if buildContextDir != "" {
		opts.ContextDir = buildContextDir
	}
	if buildRequirements != "" {
		opts.Requirements = buildRequirements
	}
	if buildScriptsDir != "" {
		opts.ScriptsDir = buildScriptsDir
	}
	if buildArchiveName != "" {
		opts.ArchiveName = buildArchiveName
	}
	if cmd.Flags().Changed("no-cache") {
		opts.NoCache = buildNoCache
	}
	if cmd.Flags().Changed("keep-staged") {
		opts.KeepStaged = buildKeepStaged
	}

	// When no context is configured, fall back to a sibling directory named
	// after the image repository.
	if opts.ContextDir == "" {
		opts.ContextDir = config.ImageName(opts.Image).Repository()
	}

	return opts
}
