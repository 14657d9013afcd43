// SPDX-License-Identifier: MPL-2.0

package stage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"ctxbuild/internal/container"
	"ctxbuild/internal/hooks"
	"ctxbuild/internal/issue"
	"ctxbuild/pkg/buildcontext"

	"github.com/charmbracelet/log"
)

type (
	// Options configures a staged build.
	Options struct {
		// Image is the tag applied to the built image.
		Image string
		// ContextDir is the build context directory. It must already exist
		// and contain a Dockerfile.
		ContextDir string
		// Requirements is the path to the dependency manifest to stage.
		Requirements string
		// ScriptsDir is the directory archived into the context.
		ScriptsDir string
		// ArchiveName overrides the staged archive file name.
		ArchiveName string
		// NoCache disables the engine build cache.
		NoCache bool
		// KeepStaged leaves staged files in the context after the build.
		KeepStaged bool
		// PreBuild is a shell snippet run after staging, before the build.
		PreBuild string
		// PostBuild is a shell snippet run after a successful build.
		PostBuild string
		// Verbose lowers the stager's log level so per-step details are
		// written to Stderr.
		Verbose bool
		// Stdout receives engine and hook output (defaults to os.Stdout).
		Stdout io.Writer
		// Stderr receives engine and hook errors (defaults to os.Stderr).
		Stderr io.Writer
	}

	// Staging tracks files placed in the build context so they can be
	// removed again. Release is idempotent and safe to defer.
	Staging struct {
		// ManifestPath is the staged manifest inside the context.
		ManifestPath string
		// ArchivePath is the staged scripts archive inside the context.
		ArchivePath string

		released bool
		logger   *log.Logger
	}

	// Stager runs the stage-build-cleanup pipeline against one engine.
	Stager struct {
		engine container.Engine
		opts   Options
		hooks  *hooks.Runner
		logger *log.Logger
	}
)

// NewStager creates a stager for the given engine and options.
// Missing option fields fall back to conventional defaults.
func NewStager(engine container.Engine, opts Options) *Stager {
	if opts.Requirements == "" {
		opts.Requirements = buildcontext.StagedManifestName
	}
	if opts.ScriptsDir == "" {
		opts.ScriptsDir = "scripts"
	}
	if opts.ArchiveName == "" {
		opts.ArchiveName = buildcontext.StagedArchiveName
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(opts.Stderr, log.Options{
		Prefix: "stage",
		Level:  level,
	})

	return &Stager{
		engine: engine,
		opts:   opts,
		hooks:  hooks.NewRunner(opts.Stdout, opts.Stderr),
		logger: logger,
	}
}

// CheckPreconditions verifies every input exists before anything is staged.
// All failures are reported before any filesystem write so a bad invocation
// leaves the context untouched.
func (s *Stager) CheckPreconditions() error {
	if err := buildcontext.ValidateImageName(s.opts.Image); err != nil {
		return issue.NewErrorContext().
			WithOperation("validate image name").
			WithResource(s.opts.Image).
			WithSuggestion("Use a lowercase name[:tag] reference").
			WithSuggestion("Set the name with --image or the image config field").
			Wrap(err).
			BuildError()
	}

	if !fileExists(s.opts.Requirements) {
		return issue.NewErrorContext().
			WithOperation("locate dependency manifest").
			WithResource(s.opts.Requirements).
			WithSuggestion("Check that the manifest exists and is a regular file").
			WithSuggestion("Point at a different manifest with --requirements").
			Wrap(fmt.Errorf("manifest not found: %s", s.opts.Requirements)).
			BuildError()
	}

	if !dirExists(s.opts.ScriptsDir) {
		return issue.NewErrorContext().
			WithOperation("locate scripts directory").
			WithResource(s.opts.ScriptsDir).
			WithSuggestion("Create the directory or point at another with --scripts").
			Wrap(fmt.Errorf("scripts directory not found: %s", s.opts.ScriptsDir)).
			BuildError()
	}

	result, err := buildcontext.Validate(s.opts.ContextDir, s.opts.ArchiveName)
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("validate build context").
			WithResource(s.opts.ContextDir).
			WithSuggestion("Create the context directory with a Dockerfile inside").
			WithSuggestion("Point at the right directory with --context").
			Wrap(err).
			BuildError()
	}
	if !result.Valid {
		var msgs []string
		for _, vi := range result.Issues {
			msgs = append(msgs, vi.Error())
		}
		return issue.NewErrorContext().
			WithOperation("validate build context").
			WithResource(s.opts.ContextDir).
			WithSuggestion("Fix the issues reported by 'ctxbuild validate'").
			Wrap(fmt.Errorf("invalid build context: %s", strings.Join(msgs, "; "))).
			BuildError()
	}

	if err := hooks.Validate(s.opts.PreBuild); err != nil {
		return fmt.Errorf("pre_build hook: %w", err)
	}
	if err := hooks.Validate(s.opts.PostBuild); err != nil {
		return fmt.Errorf("post_build hook: %w", err)
	}

	return nil
}

// Stage copies the manifest and writes the scripts archive into the build
// context. It refuses to run when staged files are already present, which
// catches both interrupted runs and a second run sharing the context.
func (s *Stager) Stage() (*Staging, error) {
	if leftovers := buildcontext.StagedLeftovers(s.opts.ContextDir, s.opts.ArchiveName); len(leftovers) > 0 {
		return nil, issue.NewErrorContext().
			WithOperation("stage build context").
			WithResource(s.opts.ContextDir).
			WithSuggestion("Remove the leftovers with 'ctxbuild clean'").
			WithSuggestion("Make sure no other ctxbuild run shares this context").
			Wrap(fmt.Errorf("staged files already present: %s", strings.Join(leftovers, ", "))).
			BuildError()
	}

	staging := &Staging{
		ManifestPath: filepath.Join(s.opts.ContextDir, buildcontext.StagedManifestName),
		ArchivePath:  filepath.Join(s.opts.ContextDir, s.opts.ArchiveName),
		logger:       s.logger,
	}

	s.logger.Debug("staging manifest", "src", s.opts.Requirements, "dst", staging.ManifestPath)
	if err := copyFile(staging.ManifestPath, s.opts.Requirements); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("stage dependency manifest").
			WithResource(s.opts.Requirements).
			WithSuggestion("Check permissions on the build context directory").
			Wrap(err).
			BuildError()
	}

	s.logger.Debug("archiving scripts", "src", s.opts.ScriptsDir, "dst", staging.ArchivePath)
	if err := CreateArchive(staging.ArchivePath, s.opts.ScriptsDir); err != nil {
		// Remove the half-staged manifest so a failed stage leaves nothing behind.
		if relErr := staging.Release(); relErr != nil {
			s.logger.Warn("cleanup after failed staging", "err", relErr)
		}
		return nil, issue.NewErrorContext().
			WithOperation("archive scripts directory").
			WithResource(s.opts.ScriptsDir).
			WithSuggestion("Check permissions and free disk space").
			Wrap(err).
			BuildError()
	}

	return staging, nil
}

// Run executes the full pipeline: preconditions, staging, pre-build hook,
// engine build, post-build hook, cleanup. Staged files are released on every
// path unless Options.KeepStaged is set.
func (s *Stager) Run(ctx context.Context) (err error) {
	if err := s.CheckPreconditions(); err != nil {
		return err
	}

	staging, err := s.Stage()
	if err != nil {
		return err
	}
	defer func() {
		if s.opts.KeepStaged {
			s.logger.Info("keeping staged files", "manifest", staging.ManifestPath, "archive", staging.ArchivePath)
			return
		}
		if relErr := staging.Release(); relErr != nil && err == nil {
			err = relErr
		}
	}()

	hookEnv := hooks.Env{
		Image:      s.opts.Image,
		ContextDir: s.opts.ContextDir,
		Archive:    s.opts.ArchiveName,
		Engine:     s.engine.Name(),
	}

	if s.opts.PreBuild != "" {
		s.logger.Debug("running pre_build hook")
		if _, hookErr := s.hooks.Run(ctx, s.opts.PreBuild, s.opts.ContextDir, hookEnv); hookErr != nil {
			return fmt.Errorf("pre_build hook: %w", hookErr)
		}
	}

	s.logger.Info("building image", "image", s.opts.Image, "engine", s.engine.Name(), "context", s.opts.ContextDir)
	buildErr := s.engine.Build(ctx, container.BuildOptions{
		ContextDir: s.opts.ContextDir,
		Tag:        s.opts.Image,
		NoCache:    s.opts.NoCache,
		Stdout:     s.opts.Stdout,
		Stderr:     s.opts.Stderr,
	})
	if buildErr != nil {
		return buildErr
	}

	if s.opts.PostBuild != "" {
		s.logger.Debug("running post_build hook")
		if _, hookErr := s.hooks.Run(ctx, s.opts.PostBuild, s.opts.ContextDir, hookEnv); hookErr != nil {
			return fmt.Errorf("post_build hook: %w", hookErr)
		}
	}

	s.logger.Info("image built", "image", s.opts.Image)
	return nil
}

// Release removes the staged files from the build context. Missing files
// are ignored so Release can run after a partial stage or a manual clean.
func (st *Staging) Release() error {
	if st.released {
		return nil
	}
	st.released = true

	var errs []string
	for _, path := range []string{st.ManifestPath, st.ArchivePath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err.Error())
		} else if err == nil && st.logger != nil {
			st.logger.Debug("removed staged file", "path", path)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to remove staged files: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Clean removes staged leftovers from a build context without building.
// archiveName names a configured archive_name override to remove alongside
// the default staged files; pass "" when only the defaults apply.
// It returns the paths it removed.
func Clean(contextDir, archiveName string) ([]string, error) {
	leftovers := buildcontext.StagedLeftovers(contextDir, archiveName)

	var removed []string
	for _, name := range leftovers {
		path := filepath.Join(contextDir, name)
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}

	return removed, nil
}

// copyFile copies src to dst, preserving the source file mode.
func copyFile(dst, src string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Sync()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
