// SPDX-License-Identifier: MPL-2.0

// Package hooks runs user-defined shell snippets around the image build.
//
// Snippets execute in an embedded POSIX shell interpreter rather than the
// host shell, so hook behavior is consistent across platforms. The build
// context path, image tag, and archive name are exposed to snippets as
// CTXBUILD_* environment variables.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Env carries the build state exposed to hook snippets.
type Env struct {
	// Image is the tag the build will apply (CTXBUILD_IMAGE).
	Image string
	// ContextDir is the absolute build context path (CTXBUILD_CONTEXT_DIR).
	ContextDir string
	// Archive is the staged archive file name (CTXBUILD_ARCHIVE).
	Archive string
	// Engine is the container engine name (CTXBUILD_ENGINE).
	Engine string
}

// Result holds the outcome of running a hook snippet.
type Result struct {
	// ExitCode is the snippet's exit status (0 on success).
	ExitCode int
}

// Runner executes hook snippets in an embedded shell interpreter.
type Runner struct {
	// Stdout receives snippet standard output (defaults to os.Stdout).
	Stdout io.Writer
	// Stderr receives snippet standard error (defaults to os.Stderr).
	Stderr io.Writer
}

// NewRunner creates a hook runner writing to the given streams.
// Nil writers default to the process streams.
func NewRunner(stdout, stderr io.Writer) *Runner {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Runner{Stdout: stdout, Stderr: stderr}
}

// Validate checks a snippet for shell syntax errors without running it.
func Validate(snippet string) error {
	if strings.TrimSpace(snippet) == "" {
		return nil
	}
	_, err := syntax.NewParser().Parse(strings.NewReader(snippet), "hook")
	if err != nil {
		return fmt.Errorf("hook syntax error: %w", err)
	}
	return nil
}

// Run executes a hook snippet with workDir as the working directory.
// An empty snippet is a no-op. The snippet's exit status is returned in
// Result; a non-zero status is also reported as a non-nil error so callers
// can fail fast.
func (r *Runner) Run(ctx context.Context, snippet, workDir string, env Env) (*Result, error) {
	if strings.TrimSpace(snippet) == "" {
		return &Result{ExitCode: 0}, nil
	}

	parser := syntax.NewParser()
	prog, err := parser.Parse(strings.NewReader(snippet), "hook")
	if err != nil {
		return &Result{ExitCode: 1}, fmt.Errorf("failed to parse hook: %w", err)
	}

	runner, err := interp.New(
		interp.Dir(workDir),
		interp.Env(expand.ListEnviron(env.toList()...)),
		interp.StdIO(nil, r.Stdout, r.Stderr),
	)
	if err != nil {
		return &Result{ExitCode: 1}, fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &Result{ExitCode: int(exitStatus)}, fmt.Errorf("hook exited with status %d", int(exitStatus))
		}
		return &Result{ExitCode: 1}, fmt.Errorf("hook execution failed: %w", err)
	}

	return &Result{ExitCode: 0}, nil
}

// toList builds the interpreter environment: the host environment plus
// the CTXBUILD_* variables describing the staged build.
func (e Env) toList() []string {
	return append(os.Environ(),
		"CTXBUILD_IMAGE="+e.Image,
		"CTXBUILD_CONTEXT_DIR="+e.ContextDir,
		"CTXBUILD_ARCHIVE="+e.Archive,
		"CTXBUILD_ENGINE="+e.Engine,
	)
}
