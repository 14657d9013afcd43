// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"ctxbuild/pkg/buildcontext"
)

const (
	// ContainerEnginePodman uses Podman as the container build tool.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker as the container build tool.
	ContainerEngineDocker ContainerEngine = "docker"

	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"
)

var (
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidImageName is returned when an ImageName value is not a valid image reference.
	ErrInvalidImageName = errors.New("invalid image name")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ContainerEngine specifies which container build tool to use.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	// It wraps ErrInvalidContainerEngine for errors.Is() compatibility.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// ImageName is the tag applied to the built image (name[:tag] or
	// registry/name[:tag]). The zero value is invalid: every build needs a tag.
	ImageName string

	// InvalidImageNameError is returned when an ImageName is empty or does not
	// match the image reference grammar. It wraps ErrInvalidImageName.
	InvalidImageNameError struct {
		Value  ImageName
		Reason string
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// HooksConfig holds shell snippets run around the image build.
	// Both hooks run with the staged build context in place.
	HooksConfig struct {
		// PreBuild runs after staging, before the engine build.
		PreBuild string `json:"pre_build" mapstructure:"pre_build"`
		// PostBuild runs after a successful engine build, before cleanup.
		PostBuild string `json:"post_build" mapstructure:"post_build"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}

	// Config holds the application configuration.
	Config struct {
		// ContainerEngine specifies whether to use "podman" or "docker"
		ContainerEngine ContainerEngine `json:"container_engine" mapstructure:"container_engine"`
		// Image is the tag applied to the built image
		Image ImageName `json:"image" mapstructure:"image"`
		// ContextDir is the build context directory; defaults to a directory
		// named after the image (without tag) next to the working directory
		ContextDir string `json:"context_dir" mapstructure:"context_dir"`
		// Requirements is the path to the dependency manifest to stage
		Requirements string `json:"requirements" mapstructure:"requirements"`
		// ScriptsDir is the directory archived into the build context
		ScriptsDir string `json:"scripts_dir" mapstructure:"scripts_dir"`
		// ArchiveName overrides the staged archive file name
		ArchiveName string `json:"archive_name" mapstructure:"archive_name"`
		// NoCache disables the engine build cache (default: true)
		NoCache bool `json:"no_cache" mapstructure:"no_cache"`
		// KeepStaged leaves staged files in the context after the build
		KeepStaged bool `json:"keep_staged" mapstructure:"keep_staged"`
		// Hooks holds pre/post build shell snippets
		Hooks HooksConfig `json:"hooks" mapstructure:"hooks"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}
)

// Error implements the error interface for InvalidContainerEngineError.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: podman, docker)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidContainerEngineError) Unwrap() error {
	return ErrInvalidContainerEngine
}

// String returns the string representation of the ContainerEngine.
func (ce ContainerEngine) String() string { return string(ce) }

// IsValid returns whether the ContainerEngine is one of the defined engine types,
// and a list of validation errors if it is not.
func (ce ContainerEngine) IsValid() (bool, []error) {
	switch ce {
	case ContainerEnginePodman, ContainerEngineDocker:
		return true, nil
	default:
		return false, []error{&InvalidContainerEngineError{Value: ce}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// Error implements the error interface for InvalidImageNameError.
func (e *InvalidImageNameError) Error() string {
	return fmt.Sprintf("invalid image name %q: %s", e.Value, e.Reason)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidImageNameError) Unwrap() error { return ErrInvalidImageName }

// String returns the string representation of the ImageName.
func (n ImageName) String() string { return string(n) }

// Repository returns the image name without its tag suffix.
func (n ImageName) Repository() string {
	if idx := strings.LastIndex(string(n), ":"); idx > 0 && !strings.Contains(string(n)[idx:], "/") {
		return string(n)[:idx]
	}
	return string(n)
}

// IsValid returns whether the ImageName is a well-formed image reference,
// and a list of validation errors if it is not.
func (n ImageName) IsValid() (bool, []error) {
	if err := buildcontext.ValidateImageName(string(n)); err != nil {
		return false, []error{&InvalidImageNameError{Value: n, Reason: err.Error()}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid returns whether the UIConfig has valid fields.
// It delegates to ColorScheme.IsValid(); bool fields need no validation.
func (c UIConfig) IsValid() (bool, []error) {
	return c.ColorScheme.IsValid()
}

// IsValid returns whether the Config has valid fields.
// It delegates to ContainerEngine.IsValid(), Image.IsValid(), and
// UI.IsValid(). Path fields are checked against the filesystem at stage
// time, not here, so a config can be written before its paths exist.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.ContainerEngine.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Image.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ContainerEngine: ContainerEngineDocker,
		Image:           "scripts-runner",
		ContextDir:      "", // resolved from the image repository name when empty
		Requirements:    "requirements.txt",
		ScriptsDir:      "scripts",
		ArchiveName:     buildcontext.StagedArchiveName,
		NoCache:         true,
		KeepStaged:      false,
		Hooks:           HooksConfig{},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
			Verbose:     false,
		},
	}
}
