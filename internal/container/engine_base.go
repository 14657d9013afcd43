// SPDX-License-Identifier: MPL-2.0

package container

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"ctxbuild/internal/issue"
)

type (
	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// BaseCLIEngineOption configures a BaseCLIEngine.
	BaseCLIEngineOption func(*BaseCLIEngine)

	// BaseCLIEngine provides common implementation for CLI-based container engines.
	// Docker and Podman engines embed this struct. Methods that are identical across
	// all CLI engines (Build, ImageExists, RemoveImage, InspectImage) are implemented
	// here; engine-specific methods (Available, Version) remain on the concrete types.
	BaseCLIEngine struct {
		name        string // Engine name for error messages (e.g., "docker", "podman")
		binaryPath  string // resolved at construction via exec.LookPath
		execCommand ExecCommandFunc
	}
)

// --- Option Functions ---

// WithName sets the engine name used in error messages.
func WithName(name string) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.name = name
	}
}

// WithExecCommand sets a custom exec command function for testing.
func WithExecCommand(fn ExecCommandFunc) BaseCLIEngineOption {
	return func(e *BaseCLIEngine) {
		e.execCommand = fn
	}
}

// --- Constructor ---

// NewBaseCLIEngine creates a new base engine with the given binary path.
func NewBaseCLIEngine(binaryPath string, opts ...BaseCLIEngineOption) *BaseCLIEngine {
	e := &BaseCLIEngine{
		binaryPath:  binaryPath,
		execCommand: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Accessor Methods ---

// Name returns the engine name used in error messages.
func (e *BaseCLIEngine) Name() string {
	return e.name
}

// BinaryPath returns the path to the container engine binary.
func (e *BaseCLIEngine) BinaryPath() string {
	return e.binaryPath
}

// --- Argument Builders ---

// BuildArgs constructs arguments for a container build command.
// Returns arguments in the order expected by docker/podman build.
//
// Generated command: <binary> build [options] <context>
func (e *BaseCLIEngine) BuildArgs(opts BuildOptions) []string {
	args := []string{"build"}

	if opts.Dockerfile != "" {
		// Resolve Dockerfile path relative to context directory.
		// If ContextDir is empty, the Dockerfile path is used as-is
		// (assumed resolvable from CWD by the container engine).
		dockerfilePath := opts.Dockerfile
		if !filepath.IsAbs(dockerfilePath) && opts.ContextDir != "" {
			dockerfilePath = filepath.Join(opts.ContextDir, dockerfilePath)
		}
		args = append(args, "-f", dockerfilePath)
	}

	if opts.Tag != "" {
		args = append(args, "-t", opts.Tag)
	}

	if opts.NoCache {
		args = append(args, "--no-cache")
	}

	if opts.Pull {
		args = append(args, "--pull")
	}

	for k, v := range opts.BuildArgs {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, v))
	}

	args = append(args, opts.ContextDir)

	return args
}

// RemoveImageArgs constructs arguments for an image remove command.
func (e *BaseCLIEngine) RemoveImageArgs(image string, force bool) []string {
	args := []string{"rmi"}
	if force {
		args = append(args, "-f")
	}
	args = append(args, image)
	return args
}

// --- Command Execution ---

// RunCommand executes a command and returns its output.
// This is the low-level execution method used by concrete engines.
func (e *BaseCLIEngine) RunCommand(ctx context.Context, args ...string) ([]byte, error) {
	cmd := e.CreateCommand(ctx, args...)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return out, nil
}

// RunCommandStatus executes a command and returns only the error status.
func (e *BaseCLIEngine) RunCommandStatus(ctx context.Context, args ...string) error {
	cmd := e.CreateCommand(ctx, args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}
	return nil
}

// RunCommandWithOutput executes a command with stdout captured to a buffer.
func (e *BaseCLIEngine) RunCommandWithOutput(ctx context.Context, args ...string) (string, error) {
	cmd := e.CreateCommand(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("command %s %v failed: %w", e.binaryPath, args, err)
	}

	return out.String(), nil
}

// CreateCommand creates an exec.Cmd for the given arguments.
// This is useful when the caller needs to customize stdin/stdout/stderr.
func (e *BaseCLIEngine) CreateCommand(ctx context.Context, args ...string) *exec.Cmd {
	return e.execCommand(ctx, e.binaryPath, args...)
}

// --- Promoted Engine Methods (shared by Docker and Podman) ---

// Build builds an image from a Dockerfile.
// It validates BuildOptions before executing to catch invalid fields early.
func (e *BaseCLIEngine) Build(ctx context.Context, opts BuildOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	args := e.BuildArgs(opts)

	cmd := e.CreateCommand(ctx, args...)
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr

	if err := cmd.Run(); err != nil {
		return buildContainerError(e.name, opts, err)
	}

	return nil
}

// ImageExists checks if an image exists.
func (e *BaseCLIEngine) ImageExists(ctx context.Context, image string) (bool, error) {
	err := e.RunCommandStatus(ctx, "image", "inspect", image)
	return err == nil, nil
}

// RemoveImage removes an image.
func (e *BaseCLIEngine) RemoveImage(ctx context.Context, image string, force bool) error {
	args := e.RemoveImageArgs(image, force)
	return e.RunCommandStatus(ctx, args...)
}

// InspectImage returns information about an image.
func (e *BaseCLIEngine) InspectImage(ctx context.Context, image string) (string, error) {
	return e.RunCommandWithOutput(ctx, "image", "inspect", image)
}

// --- Dockerfile Resolution ---

// ResolveDockerfilePath resolves a Dockerfile path relative to the build context.
// If the path is absolute, it is returned as-is.
// If the path is relative, it is resolved against the context path.
// Returns the resolved path or error if path traversal is detected.
func ResolveDockerfilePath(contextPath, dockerfilePath string) (string, error) {
	if dockerfilePath == "" {
		return "", nil
	}

	if filepath.IsAbs(dockerfilePath) {
		return dockerfilePath, nil
	}

	resolved := filepath.Join(contextPath, dockerfilePath)

	// Check for path traversal: the resolved path should be within the context
	resolvedClean := filepath.Clean(resolved)
	contextClean := filepath.Clean(contextPath)

	// Ensure resolved path starts with context path
	if !strings.HasPrefix(resolvedClean, contextClean) {
		return "", fmt.Errorf("dockerfile path %q escapes context directory %q", dockerfilePath, contextPath)
	}

	return resolved, nil
}

// --- Actionable Error Helpers ---

// buildContainerError creates an actionable error for container build failures.
func buildContainerError(engine string, opts BuildOptions, cause error) error {
	ctx := issue.NewErrorContext().
		WithOperation("build container image")

	// Determine resource (Dockerfile or image tag)
	switch {
	case opts.Dockerfile != "":
		ctx.WithResource(opts.Dockerfile)
	case opts.ContextDir != "":
		ctx.WithResource(opts.ContextDir + "/Dockerfile")
	case opts.Tag != "":
		ctx.WithResource(opts.Tag)
	}

	// Add suggestions based on common build issues
	ctx.WithSuggestion("Check Dockerfile syntax for errors")
	ctx.WithSuggestion("Verify the build context path exists and is accessible")
	ctx.WithSuggestion("Ensure base images are available (try: " + engine + " pull <base-image>)")
	ctx.WithSuggestion("Run with --verbose to see full build output")

	return ctx.Wrap(cause).BuildError()
}
