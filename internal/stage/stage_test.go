// SPDX-License-Identifier: MPL-2.0

package stage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ctxbuild/internal/container"
)

// fakeEngine records build invocations and can be told to fail.
type fakeEngine struct {
	builds   []container.BuildOptions
	buildErr error
}

func (f *fakeEngine) Name() string    { return "fake" }
func (f *fakeEngine) Available() bool { return true }

func (f *fakeEngine) Version(ctx context.Context) (string, error) { return "0.0.0-test", nil }

func (f *fakeEngine) Build(ctx context.Context, opts container.BuildOptions) error {
	f.builds = append(f.builds, opts)
	return f.buildErr
}

func (f *fakeEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	return false, nil
}

func (f *fakeEngine) RemoveImage(ctx context.Context, image string, force bool) error {
	return nil
}

// layout creates the conventional project layout: a manifest, a scripts
// directory with one file, and a build context containing a Dockerfile.
// Returns ready-to-use Options pointed at the layout.
func layout(t *testing.T) Options {
	t.Helper()
	root := t.TempDir()

	manifest := filepath.Join(root, "requirements.txt")
	if err := os.WriteFile(manifest, []byte("requests==2.31.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	scripts := filepath.Join(root, "scripts")
	if err := os.MkdirAll(scripts, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(scripts, "run.py"), []byte("print('hi')\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	ctxDir := filepath.Join(root, "runner-image")
	if err := os.MkdirAll(ctxDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ctxDir, "Dockerfile"), []byte("FROM python:3.12\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	return Options{
		Image:        "runner-image",
		ContextDir:   ctxDir,
		Requirements: manifest,
		ScriptsDir:   scripts,
		NoCache:      true,
	}
}

func TestRunHappyPath(t *testing.T) {
	opts := layout(t)
	engine := &fakeEngine{}

	if err := NewStager(engine, opts).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(engine.builds) != 1 {
		t.Fatalf("expected 1 build, got %d", len(engine.builds))
	}
	build := engine.builds[0]
	if build.Tag != "runner-image" {
		t.Errorf("Tag = %q, want runner-image", build.Tag)
	}
	if build.ContextDir != opts.ContextDir {
		t.Errorf("ContextDir = %q, want %q", build.ContextDir, opts.ContextDir)
	}
	if !build.NoCache {
		t.Error("NoCache should be propagated")
	}

	// Staged files must be gone after a successful run.
	for _, name := range []string{"requirements.txt", "scripts.tar.gz"} {
		if _, err := os.Stat(filepath.Join(opts.ContextDir, name)); !os.IsNotExist(err) {
			t.Errorf("staged file %s should be removed after the run", name)
		}
	}
}

func TestRunStagesBeforeBuild(t *testing.T) {
	opts := layout(t)

	// The checking engine observes the context while the build runs;
	// both staged files must be in place at that point.
	checked := false
	checker := &checkingEngine{fakeEngine: &fakeEngine{}, check: func() {
		checked = true
		for _, name := range []string{"requirements.txt", "scripts.tar.gz"} {
			if _, err := os.Stat(filepath.Join(opts.ContextDir, name)); err != nil {
				t.Errorf("staged file %s should exist during the build: %v", name, err)
			}
		}
	}}

	if err := NewStager(checker, opts).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !checked {
		t.Fatal("build was never invoked")
	}
}

// checkingEngine invokes a callback when Build runs.
type checkingEngine struct {
	*fakeEngine
	check func()
}

func (c *checkingEngine) Build(ctx context.Context, opts container.BuildOptions) error {
	c.check()
	return c.fakeEngine.Build(ctx, opts)
}

func TestRunCleansUpOnBuildFailure(t *testing.T) {
	opts := layout(t)
	engine := &fakeEngine{buildErr: errors.New("exit status 1")}

	err := NewStager(engine, opts).Run(context.Background())
	if err == nil {
		t.Fatal("expected build failure to propagate")
	}

	for _, name := range []string{"requirements.txt", "scripts.tar.gz"} {
		if _, err := os.Stat(filepath.Join(opts.ContextDir, name)); !os.IsNotExist(err) {
			t.Errorf("staged file %s should be removed after a failed build", name)
		}
	}
}

func TestRunKeepStaged(t *testing.T) {
	opts := layout(t)
	opts.KeepStaged = true
	engine := &fakeEngine{}

	if err := NewStager(engine, opts).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	for _, name := range []string{"requirements.txt", "scripts.tar.gz"} {
		if _, err := os.Stat(filepath.Join(opts.ContextDir, name)); err != nil {
			t.Errorf("staged file %s should remain with KeepStaged: %v", name, err)
		}
	}
}

func TestCheckPreconditions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"invalid image name", func(o *Options) { o.Image = "Bad Name" }},
		{"missing manifest", func(o *Options) { o.Requirements = "/nope/requirements.txt" }},
		{"missing scripts dir", func(o *Options) { o.ScriptsDir = "/nope/scripts" }},
		{"missing context dir", func(o *Options) { o.ContextDir = "/nope/ctx" }},
		{"bad pre_build hook", func(o *Options) { o.PreBuild = `echo "unterminated` }},
		{"bad post_build hook", func(o *Options) { o.PostBuild = "if then fi" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := layout(t)
			tt.mutate(&opts)
			if err := NewStager(&fakeEngine{}, opts).CheckPreconditions(); err == nil {
				t.Error("expected precondition failure")
			}
		})
	}
}

func TestCheckPreconditionsMissingDockerfile(t *testing.T) {
	opts := layout(t)
	if err := os.Remove(filepath.Join(opts.ContextDir, "Dockerfile")); err != nil {
		t.Fatal(err)
	}
	if err := NewStager(&fakeEngine{}, opts).CheckPreconditions(); err == nil {
		t.Error("expected precondition failure for missing Dockerfile")
	}
}

func TestStageRefusesLeftovers(t *testing.T) {
	opts := layout(t)
	if err := os.WriteFile(filepath.Join(opts.ContextDir, "scripts.tar.gz"), []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewStager(&fakeEngine{}, opts).Stage()
	if err == nil {
		t.Fatal("expected staging to refuse a dirty context")
	}
}

func TestStageRefusesCustomArchiveLeftover(t *testing.T) {
	opts := layout(t)
	opts.ArchiveName = "bundle.tar.gz"

	// A leftover under the configured archive name, as an interrupted
	// earlier run with the same configuration would leave behind.
	stale := filepath.Join(opts.ContextDir, "bundle.tar.gz")
	if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewStager(&fakeEngine{}, opts).Stage()
	if err == nil {
		t.Fatal("expected staging to refuse a leftover under the configured archive name")
	}

	data, err := os.ReadFile(stale)
	if err != nil {
		t.Fatalf("leftover archive missing after refusal: %v", err)
	}
	if string(data) != "stale" {
		t.Error("leftover archive must not be overwritten by a refused stage")
	}
}

func TestRunDoesNotBuildOnPreconditionFailure(t *testing.T) {
	opts := layout(t)
	opts.Requirements = "/nope/requirements.txt"
	engine := &fakeEngine{}

	if err := NewStager(engine, opts).Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(engine.builds) != 0 {
		t.Errorf("build should not run after precondition failure, got %d builds", len(engine.builds))
	}
}

func TestRunHooks(t *testing.T) {
	opts := layout(t)
	opts.PreBuild = "echo pre > hook-pre.txt"
	opts.PostBuild = `echo "$CTXBUILD_IMAGE" > hook-post.txt`
	engine := &fakeEngine{}

	if err := NewStager(engine, opts).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	// Hooks run with the context directory as working directory.
	if _, err := os.Stat(filepath.Join(opts.ContextDir, "hook-pre.txt")); err != nil {
		t.Errorf("pre_build hook output missing: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(opts.ContextDir, "hook-post.txt"))
	if err != nil {
		t.Fatalf("post_build hook output missing: %v", err)
	}
	if got := string(data); got != "runner-image\n" {
		t.Errorf("post_build hook saw CTXBUILD_IMAGE = %q, want runner-image", got)
	}
}

func TestRunPreBuildHookFailureSkipsBuild(t *testing.T) {
	opts := layout(t)
	opts.PreBuild = "exit 1"
	engine := &fakeEngine{}

	if err := NewStager(engine, opts).Run(context.Background()); err == nil {
		t.Fatal("expected hook failure to propagate")
	}
	if len(engine.builds) != 0 {
		t.Errorf("build should not run after pre_build failure, got %d builds", len(engine.builds))
	}

	// Cleanup still runs.
	for _, name := range []string{"requirements.txt", "scripts.tar.gz"} {
		if _, err := os.Stat(filepath.Join(opts.ContextDir, name)); !os.IsNotExist(err) {
			t.Errorf("staged file %s should be removed after hook failure", name)
		}
	}
}

func TestStagingReleaseIdempotent(t *testing.T) {
	opts := layout(t)
	staging, err := NewStager(&fakeEngine{}, opts).Stage()
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	if err := staging.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if err := staging.Release(); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}
}

func TestClean(t *testing.T) {
	opts := layout(t)

	// Nothing staged: nothing removed.
	removed, err := Clean(opts.ContextDir, "")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("Clean() on clean context removed %v", removed)
	}

	for _, name := range []string{"requirements.txt", "scripts.tar.gz"} {
		if err := os.WriteFile(filepath.Join(opts.ContextDir, name), []byte("stale"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	removed, err = Clean(opts.ContextDir, "")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("Clean() removed %d files, want 2", len(removed))
	}

	// The Dockerfile is untouched.
	if _, err := os.Stat(filepath.Join(opts.ContextDir, "Dockerfile")); err != nil {
		t.Errorf("Clean() must not touch the Dockerfile: %v", err)
	}
}

func TestCleanCustomArchiveName(t *testing.T) {
	opts := layout(t)
	stale := filepath.Join(opts.ContextDir, "bundle.tar.gz")
	if err := os.WriteFile(stale, []byte("stale"), 0o644); err != nil {
		t.Fatal(err)
	}

	// Without the archive name the leftover is invisible to Clean.
	removed, err := Clean(opts.ContextDir, "")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("Clean() without archive name removed %v", removed)
	}

	removed, err = Clean(opts.ContextDir, "bundle.tar.gz")
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	if len(removed) != 1 || removed[0] != stale {
		t.Errorf("Clean() removed %v, want [%s]", removed, stale)
	}
}

func TestRunVerboseLogsStagingDetails(t *testing.T) {
	opts := layout(t)
	opts.Verbose = true
	var buf bytes.Buffer
	opts.Stderr = &buf

	if err := NewStager(&fakeEngine{}, opts).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !strings.Contains(buf.String(), "staging manifest") {
		t.Errorf("verbose run should log staging details, got:\n%s", buf.String())
	}
}

func TestRunDefaultLogLevelHidesStagingDetails(t *testing.T) {
	opts := layout(t)
	var buf bytes.Buffer
	opts.Stderr = &buf

	if err := NewStager(&fakeEngine{}, opts).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if strings.Contains(buf.String(), "staging manifest") {
		t.Errorf("non-verbose run should not log staging details, got:\n%s", buf.String())
	}
}

func TestStagedManifestMatchesSource(t *testing.T) {
	opts := layout(t)
	staging, err := NewStager(&fakeEngine{}, opts).Stage()
	if err != nil {
		t.Fatalf("Stage() error = %v", err)
	}
	t.Cleanup(func() { _ = staging.Release() })

	src, err := os.ReadFile(opts.Requirements)
	if err != nil {
		t.Fatal(err)
	}
	dst, err := os.ReadFile(staging.ManifestPath)
	if err != nil {
		t.Fatalf("staged manifest missing: %v", err)
	}
	if string(src) != string(dst) {
		t.Error("staged manifest content differs from source")
	}
}
