// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"ctxbuild/pkg/buildcontext"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [context-dir]",
	Short: "Validate a build context directory",
	Long: `Validate a build context directory.

Checks that the directory exists, contains a Dockerfile, and reports any
staged leftovers from an interrupted run. With no argument the context is
resolved the same way 'ctxbuild build' resolves it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd.Context())

	var contextDir string
	if len(args) > 0 {
		contextDir = args[0]
	} else {
		contextDir = cfg.ContextDir
		if contextDir == "" {
			contextDir = cfg.Image.Repository()
		}
	}

	result, err := buildcontext.Validate(contextDir, cfg.ArchiveName)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	fmt.Printf("%s %s\n", CmdStyle.Render("context:"), result.ContextPath)

	if result.Valid {
		fmt.Printf("%s Build context is valid\n", SuccessStyle.Render("✓"))
	} else {
		fmt.Printf("%s Build context is invalid\n", ErrorStyle.Render("✗"))
		for _, vi := range result.Issues {
			fmt.Printf("  - %s\n", vi.Error())
		}
	}

	if len(result.StagedLeftovers) > 0 {
		fmt.Fprintf(os.Stderr, "%s staged leftovers present: %v (run 'ctxbuild clean' to remove)\n",
			WarningStyle.Render("Warning:"), result.StagedLeftovers)
	}

	if !result.Valid {
		return &ExitError{Code: 1, Err: fmt.Errorf("build context %s failed validation", contextDir)}
	}
	return nil
}
