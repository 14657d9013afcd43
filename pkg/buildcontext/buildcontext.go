// SPDX-License-Identifier: MPL-2.0

// Package buildcontext provides functionality for working with container
// build contexts.
//
// A build context is a pre-existing directory that holds a Dockerfile and
// any files the image build references. ctxbuild never creates or destroys
// the context; it only stages files into it (the dependency manifest and
// the scripts archive) and removes them again after the build.
//
// Context layout contract:
//   - Must be a directory containing a Dockerfile at the root
//   - The staged manifest is written as "requirements.txt"
//   - The staged scripts archive is written as "scripts.tar.gz" unless a
//     different archive name is configured
//   - Staged files present outside a run are leftovers from an interrupted
//     run and are flagged by Validate
package buildcontext

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

const (
	// DockerfileName is the build definition file expected at the context root.
	DockerfileName = "Dockerfile"

	// StagedManifestName is the filename of the dependency manifest copy
	// staged into the context for the duration of a build.
	StagedManifestName = "requirements.txt"

	// StagedArchiveName is the filename of the gzip-compressed scripts
	// archive staged into the context for the duration of a build.
	StagedArchiveName = "scripts.tar.gz"
)

// imageNameRegex validates "name[:tag]" image references, optionally
// prefixed with a registry/repository path. Name components are lowercase
// alphanumerics with ".", "_", "-" separators; the tag allows upper case.
var imageNameRegex = regexp.MustCompile(
	`^[a-z0-9]+(?:[._-][a-z0-9]+)*(?:/[a-z0-9]+(?:[._-][a-z0-9]+)*)*(?::[a-zA-Z0-9_][a-zA-Z0-9._-]{0,127})?$`)

// ValidationIssue represents a single validation problem in a build context
type ValidationIssue struct {
	// Type categorizes the issue (e.g., "structure", "naming", "staging")
	Type string
	// Message describes the specific problem
	Message string
	// Path is the relative path within the context where the issue was found (optional)
	Path string
}

// Error implements the error interface for ValidationIssue
func (v ValidationIssue) Error() string {
	if v.Path != "" {
		return fmt.Sprintf("[%s] %s: %s", v.Type, v.Path, v.Message)
	}
	return fmt.Sprintf("[%s] %s", v.Type, v.Message)
}

// ValidationResult contains the result of build context validation
type ValidationResult struct {
	// Valid is true if the context passed all validation checks
	Valid bool
	// ContextPath is the absolute path to the validated context
	ContextPath string
	// DockerfilePath is the path to the Dockerfile within the context
	DockerfilePath string
	// StagedLeftovers lists staged files already present in the context,
	// usually left behind by an interrupted earlier run
	StagedLeftovers []string
	// Issues contains all validation problems found
	Issues []ValidationIssue
}

// AddIssue adds a validation issue to the result
func (r *ValidationResult) AddIssue(issueType, message, path string) {
	r.Issues = append(r.Issues, ValidationIssue{
		Type:    issueType,
		Message: message,
		Path:    path,
	})
	r.Valid = false
}

// Context represents a validated build context
type Context struct {
	// Path is the absolute path to the context directory
	Path string
	// DockerfilePath is the absolute path to the Dockerfile
	DockerfilePath string
}

// ManifestPath returns the path where the dependency manifest is staged.
func (c *Context) ManifestPath() string {
	return filepath.Join(c.Path, StagedManifestName)
}

// ArchivePath returns the path where the scripts archive is staged.
func (c *Context) ArchivePath() string {
	return filepath.Join(c.Path, StagedArchiveName)
}

// ValidateImageName checks if an image name is a valid "name[:tag]" reference.
// Returns nil if valid, or an error describing the problem.
func ValidateImageName(name string) error {
	if name == "" {
		return fmt.Errorf("image name cannot be empty")
	}

	if !imageNameRegex.MatchString(name) {
		return fmt.Errorf("image name '%s' is invalid: must be a lowercase name[:tag] reference (e.g., 'lesion-analysis', 'registry.example.com/team/app:latest')", name)
	}

	return nil
}

// IsContext checks if the given path looks like a build context directory.
// This is a quick check that only verifies the directory and Dockerfile exist.
// For full validation, use Validate().
func IsContext(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return false
	}

	dfInfo, err := os.Stat(filepath.Join(path, DockerfileName))
	return err == nil && !dfInfo.IsDir()
}

// StagedLeftovers returns the staged filenames already present in the
// context directory. The default staged names are always checked; extra
// names cover runs configured with an archive_name override. An empty
// slice means the context is clean.
func StagedLeftovers(contextDir string, extra ...string) []string {
	names := []string{StagedManifestName, StagedArchiveName}
	for _, name := range extra {
		if name != "" && !slices.Contains(names, name) {
			names = append(names, name)
		}
	}

	var leftovers []string
	for _, name := range names {
		info, err := os.Stat(filepath.Join(contextDir, name))
		if err == nil && !info.IsDir() {
			leftovers = append(leftovers, name)
		}
	}
	return leftovers
}

// Validate performs comprehensive validation of a build context at the given
// path. Extra staged names are checked for leftovers in addition to the
// defaults, matching a run configured with an archive_name override.
// Returns a ValidationResult with all issues found, or an error if the
// path cannot be accessed.
func Validate(contextDir string, stagedNames ...string) (*ValidationResult, error) {
	// Convert to absolute path
	absPath, err := filepath.Abs(contextDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	result := &ValidationResult{
		Valid:       true,
		ContextPath: absPath,
		Issues:      []ValidationIssue{},
	}

	// Check if path exists
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			result.AddIssue("structure", "build context directory does not exist", "")
			return result, nil
		}
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	// Check if it's a directory
	if !info.IsDir() {
		result.AddIssue("structure", "build context path is not a directory", "")
		return result, nil
	}

	// Check for the Dockerfile (required)
	dockerfilePath := filepath.Join(absPath, DockerfileName)
	dfInfo, err := os.Stat(dockerfilePath)
	switch {
	case err != nil && os.IsNotExist(err):
		result.AddIssue("structure", "missing required Dockerfile", "")
	case err != nil:
		result.AddIssue("structure", fmt.Sprintf("cannot access Dockerfile: %v", err), "")
	case dfInfo.IsDir():
		result.AddIssue("structure", "Dockerfile must be a file, not a directory", DockerfileName)
	default:
		result.DockerfilePath = dockerfilePath
	}

	// Flag staged leftovers from an interrupted run. They do not invalidate
	// the context but a run against it would refuse to stage over them.
	result.StagedLeftovers = StagedLeftovers(absPath, stagedNames...)

	return result, nil
}

// Load loads and validates a build context at the given path.
// Returns a Context struct if valid, or an error with validation details.
func Load(contextDir string) (*Context, error) {
	result, err := Validate(contextDir)
	if err != nil {
		return nil, err
	}

	if !result.Valid {
		var msgs []string
		for _, issue := range result.Issues {
			msgs = append(msgs, issue.Error())
		}
		return nil, fmt.Errorf("invalid build context: %s", strings.Join(msgs, "; "))
	}

	return &Context{
		Path:           result.ContextPath,
		DockerfilePath: result.DockerfilePath,
	}, nil
}
