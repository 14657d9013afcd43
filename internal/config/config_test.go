// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ctxbuild/pkg/cueutil"
)

// writeConfig writes a config.cue into a temp config dir and points the
// package at it. Cleanup restores the default lookup.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	path := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	// Empty config dir: loading falls back to defaults.
	SetConfigDirOverride(t.TempDir())
	t.Cleanup(Reset)

	cfg, path, err := LoadWithPath(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}
	if path != "" {
		t.Errorf("expected empty resolved path for defaults, got %q", path)
	}

	defaults := DefaultConfig()
	if cfg.ContainerEngine != defaults.ContainerEngine {
		t.Errorf("ContainerEngine = %q, want %q", cfg.ContainerEngine, defaults.ContainerEngine)
	}
	if cfg.Image != defaults.Image {
		t.Errorf("Image = %q, want %q", cfg.Image, defaults.Image)
	}
	if !cfg.NoCache {
		t.Error("NoCache default should be true")
	}
	if cfg.KeepStaged {
		t.Error("KeepStaged default should be false")
	}
}

func TestLoadFromConfigDir(t *testing.T) {
	wantPath := writeConfig(t, `
container_engine: "podman"
image:            "myorg/runner:v2"
scripts_dir:      "src/scripts"
no_cache:         false
hooks: {
	pre_build: "echo staging done"
}
ui: {
	verbose: true
}
`)

	cfg, path, err := LoadWithPath(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}
	if path != wantPath {
		t.Errorf("resolved path = %q, want %q", path, wantPath)
	}
	if cfg.ContainerEngine != ContainerEnginePodman {
		t.Errorf("ContainerEngine = %q, want podman", cfg.ContainerEngine)
	}
	if cfg.Image != "myorg/runner:v2" {
		t.Errorf("Image = %q, want myorg/runner:v2", cfg.Image)
	}
	if cfg.ScriptsDir != "src/scripts" {
		t.Errorf("ScriptsDir = %q, want src/scripts", cfg.ScriptsDir)
	}
	if cfg.NoCache {
		t.Error("NoCache should be overridden to false")
	}
	if cfg.Hooks.PreBuild != "echo staging done" {
		t.Errorf("Hooks.PreBuild = %q", cfg.Hooks.PreBuild)
	}
	if !cfg.UI.Verbose {
		t.Error("UI.Verbose should be true")
	}

	// Fields absent from the file keep their defaults.
	if cfg.Requirements != "requirements.txt" {
		t.Errorf("Requirements = %q, want default requirements.txt", cfg.Requirements)
	}
}

func TestLoadExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.cue")
	if err := os.WriteFile(path, []byte(`image: "custom-image"`), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, resolved, err := LoadWithPath(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}
	if resolved != path {
		t.Errorf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Image != "custom-image" {
		t.Errorf("Image = %q, want custom-image", cfg.Image)
	}
}

func TestLoadMissingExplicitConfigFile(t *testing.T) {
	_, _, err := LoadWithPath(context.Background(), LoadOptions{
		ConfigFilePath: filepath.Join(t.TempDir(), "nope.cue"),
	})
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadRejectsInvalidEngine(t *testing.T) {
	writeConfig(t, `container_engine: "rkt"`)

	_, _, err := LoadWithPath(context.Background(), LoadOptions{})
	if err == nil {
		t.Fatal("expected schema violation for unknown container engine")
	}
}

func TestLoadRejectsUnknownField(t *testing.T) {
	writeConfig(t, `imaeg: "typo"`)

	_, _, err := LoadWithPath(context.Background(), LoadOptions{})
	if err == nil {
		t.Fatal("expected schema violation for unknown field")
	}
}

func TestLoadRejectsInvalidCUESyntax(t *testing.T) {
	writeConfig(t, `image: "unterminated`)

	_, _, err := LoadWithPath(context.Background(), LoadOptions{})
	if err == nil {
		t.Fatal("expected parse error for invalid CUE syntax")
	}
}

func TestLoadRejectsOversizedConfig(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("image: \"oversized\"\n")
	pad := strings.Repeat("// padding\n", 1024)
	for int64(sb.Len()) <= cueutil.DefaultMaxFileSize {
		sb.WriteString(pad)
	}
	writeConfig(t, sb.String())

	_, _, err := LoadWithPath(context.Background(), LoadOptions{})
	if err == nil {
		t.Fatal("expected oversized config file to be rejected")
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("error = %v, want file size rejection", err)
	}
}

func TestLoadCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := LoadWithPath(ctx, LoadOptions{})
	if err == nil {
		t.Fatal("expected error for canceled context")
	}
}

func TestGenerateCUERoundTrip(t *testing.T) {
	original := DefaultConfig()
	original.ContainerEngine = ContainerEnginePodman
	original.Image = "roundtrip:latest"
	original.ContextDir = "/tmp/rt-ctx"
	original.Hooks.PostBuild = "echo built"
	original.UI.Verbose = true

	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	if err := Save(original); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	cfg, _, err := LoadWithPath(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}

	if cfg.ContainerEngine != original.ContainerEngine {
		t.Errorf("ContainerEngine = %q, want %q", cfg.ContainerEngine, original.ContainerEngine)
	}
	if cfg.Image != original.Image {
		t.Errorf("Image = %q, want %q", cfg.Image, original.Image)
	}
	if cfg.ContextDir != original.ContextDir {
		t.Errorf("ContextDir = %q, want %q", cfg.ContextDir, original.ContextDir)
	}
	if cfg.Hooks.PostBuild != original.Hooks.PostBuild {
		t.Errorf("Hooks.PostBuild = %q, want %q", cfg.Hooks.PostBuild, original.Hooks.PostBuild)
	}
	if cfg.UI.Verbose != original.UI.Verbose {
		t.Errorf("UI.Verbose = %v, want %v", cfg.UI.Verbose, original.UI.Verbose)
	}
}

func TestCreateDefaultConfigIdempotent(t *testing.T) {
	dir := t.TempDir()
	SetConfigDirOverride(dir)
	t.Cleanup(Reset)

	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() error = %v", err)
	}

	cfgPath := filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
	if err := os.WriteFile(cfgPath, []byte(`image: "user-edited"`), 0o644); err != nil {
		t.Fatalf("failed to edit config: %v", err)
	}

	// Second call must not clobber the user's file.
	if err := CreateDefaultConfig(); err != nil {
		t.Fatalf("CreateDefaultConfig() second call error = %v", err)
	}

	cfg, _, err := LoadWithPath(context.Background(), LoadOptions{})
	if err != nil {
		t.Fatalf("LoadWithPath() error = %v", err)
	}
	if cfg.Image != "user-edited" {
		t.Errorf("Image = %q, want user-edited (file should not be overwritten)", cfg.Image)
	}
}
