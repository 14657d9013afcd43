// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"fmt"
	"io"
)

// Engine defines the interface for container image operations
type Engine interface {
	// Name returns the engine name (docker or podman)
	Name() string
	// Available checks if the engine is available on the system
	Available() bool
	// Version returns the engine version
	Version(ctx context.Context) (string, error)

	// Build builds an image from a Dockerfile
	Build(ctx context.Context, opts BuildOptions) error
	// ImageExists checks if an image exists
	ImageExists(ctx context.Context, image string) (bool, error)
	// RemoveImage removes an image
	RemoveImage(ctx context.Context, image string, force bool) error
}

// BuildOptions contains options for building an image
type BuildOptions struct {
	// ContextDir is the build context directory
	ContextDir string
	// Dockerfile is the path to the Dockerfile (relative to ContextDir)
	Dockerfile string
	// Tag is the image tag
	Tag string
	// BuildArgs are build-time variables
	BuildArgs map[string]string
	// NoCache disables the build cache
	NoCache bool
	// Pull always attempts to pull newer versions of base images
	Pull bool
	// Stdout is where to write build output
	Stdout io.Writer
	// Stderr is where to write build errors
	Stderr io.Writer
}

// Validate returns an error if required BuildOptions fields are missing.
func (o BuildOptions) Validate() error {
	if o.ContextDir == "" {
		return fmt.Errorf("build options: context directory is required")
	}
	if o.Tag == "" {
		return fmt.Errorf("build options: image tag is required")
	}
	return nil
}

// EngineType identifies the container engine type
type EngineType string

const (
	EngineTypePodman EngineType = "podman"
	EngineTypeDocker EngineType = "docker"
)

// ErrEngineNotAvailable is returned when a container engine is not available
type ErrEngineNotAvailable struct {
	Engine string
	Reason string
}

func (e *ErrEngineNotAvailable) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// NewEngine creates a new container engine based on preference
func NewEngine(preferredType EngineType) (Engine, error) {
	switch preferredType {
	case EngineTypePodman:
		engine := NewPodmanEngine()
		if engine.Available() {
			return engine, nil
		}
		// Fall back to Docker
		dockerEngine := NewDockerEngine()
		if dockerEngine.Available() {
			return dockerEngine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "podman",
			Reason: "podman is not installed or not accessible, and docker fallback is also not available",
		}

	case EngineTypeDocker:
		engine := NewDockerEngine()
		if engine.Available() {
			return engine, nil
		}
		// Fall back to Podman
		podmanEngine := NewPodmanEngine()
		if podmanEngine.Available() {
			return podmanEngine, nil
		}
		return nil, &ErrEngineNotAvailable{
			Engine: "docker",
			Reason: "docker is not installed or not accessible, and podman fallback is also not available",
		}

	default:
		return nil, fmt.Errorf("unknown container engine type: %s", preferredType)
	}
}

// AutoDetectEngine tries to find an available container engine
func AutoDetectEngine() (Engine, error) {
	// Try Podman first (more commonly available in rootless setups)
	podman := NewPodmanEngine()
	if podman.Available() {
		return podman, nil
	}

	// Try Docker
	docker := NewDockerEngine()
	if docker.Available() {
		return docker, nil
	}

	return nil, &ErrEngineNotAvailable{
		Engine: "any",
		Reason: "no container engine (podman or docker) is available on this system",
	}
}
