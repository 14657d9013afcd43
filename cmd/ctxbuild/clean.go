// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"ctxbuild/internal/stage"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [context-dir]",
	Short: "Remove staged leftovers from a build context",
	Long: `Remove staged leftovers from a build context.

Deletes the staged dependency manifest and scripts archive left behind by
an interrupted run. Everything else in the context, including the
Dockerfile, is untouched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	// The config is loaded even with an explicit context argument so a
	// configured archive_name override is cleaned up too.
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

	removed, err := stage.Clean(contextDir, cfg.ArchiveName)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}

	if len(removed) == 0 {
		fmt.Printf("%s Nothing to clean in %s\n", SuccessStyle.Render("✓"), contextDir)
		return nil
	}

	for _, path := range removed {
		fmt.Printf("%s Removed %s\n", SuccessStyle.Render("✓"), path)
	}
	return nil
}
