// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"ctxbuild/internal/config"
	"ctxbuild/internal/issue"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage ctxbuild configuration",
	Long: `Manage ctxbuild configuration.

Configuration is stored in:
  - Linux: ~/.config/ctxbuild/config.cue
  - macOS: ~/Library/Application Support/ctxbuild/config.cue
  - Windows: %APPDATA%\ctxbuild\config.cue`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd)
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfigFile()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath()
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd, args[0], args[1])
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output raw configuration as CUE",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(cmd.Context())
			fmt.Print(config.GenerateCUE(cfg))
			return nil
		},
	})
}

func showConfig(cmd *cobra.Command) error {
	cfg, path, err := config.LoadWithPath(cmd.Context(), config.LoadOptions{ConfigFilePath: cfgFile})
	if err != nil {
		rendered, _ := issue.Get(issue.ConfigLoadFailedId).Render("dark")
		fmt.Fprint(os.Stderr, rendered)
		return err
	}

	headerStyle := TitleStyle
	keyStyle := CmdStyle
	valueStyle := SuccessStyle

	fmt.Println(headerStyle.Render("Current Configuration"))
	fmt.Println()

	if path != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Println()

	fmt.Printf("%s: %s\n", keyStyle.Render("container_engine"), valueStyle.Render(string(cfg.ContainerEngine)))
	fmt.Printf("%s: %s\n", keyStyle.Render("image"), valueStyle.Render(string(cfg.Image)))
	if cfg.ContextDir != "" {
		fmt.Printf("%s: %s\n", keyStyle.Render("context_dir"), valueStyle.Render(cfg.ContextDir))
	} else {
		fmt.Printf("%s: %s\n", keyStyle.Render("context_dir"), SubtitleStyle.Render("(derived from image name)"))
	}
	fmt.Printf("%s: %s\n", keyStyle.Render("requirements"), valueStyle.Render(cfg.Requirements))
	fmt.Printf("%s: %s\n", keyStyle.Render("scripts_dir"), valueStyle.Render(cfg.ScriptsDir))
	fmt.Printf("%s: %s\n", keyStyle.Render("archive_name"), valueStyle.Render(cfg.ArchiveName))
	fmt.Printf("%s: %s\n", keyStyle.Render("no_cache"), valueStyle.Render(strconv.FormatBool(cfg.NoCache)))
	fmt.Printf("%s: %s\n", keyStyle.Render("keep_staged"), valueStyle.Render(strconv.FormatBool(cfg.KeepStaged)))

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("hooks"))
	if cfg.Hooks.PreBuild == "" && cfg.Hooks.PostBuild == "" {
		fmt.Printf("  %s\n", SubtitleStyle.Render("(none configured)"))
	} else {
		if cfg.Hooks.PreBuild != "" {
			fmt.Printf("  pre_build: %s\n", valueStyle.Render(cfg.Hooks.PreBuild))
		}
		if cfg.Hooks.PostBuild != "" {
			fmt.Printf("  post_build: %s\n", valueStyle.Render(cfg.Hooks.PostBuild))
		}
	}

	fmt.Println()
	fmt.Printf("%s:\n", keyStyle.Render("ui"))
	fmt.Printf("  color_scheme: %s\n", valueStyle.Render(string(cfg.UI.ColorScheme)))
	fmt.Printf("  verbose: %s\n", valueStyle.Render(strconv.FormatBool(cfg.UI.Verbose)))

	return nil
}

func initConfigFile() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	if err = config.CreateDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}

	fmt.Printf("%s Created default configuration at %s/config.cue\n", SuccessStyle.Render("✓"), cfgDir)
	return nil
}

func showConfigPath() error {
	cfgDir, err := config.ConfigDir()
	if err != nil {
		return err
	}

	fmt.Printf("Config directory: %s\n", cfgDir)
	fmt.Printf("Config file: %s/config.cue\n", cfgDir)
	return nil
}

func setConfigValue(cmd *cobra.Command, key, value string) error {
	cfg, err := config.NewProvider().Load(cmd.Context(), config.LoadOptions{})
	if err != nil {
		return err
	}

	switch key {
	case "container_engine":
		if value != "podman" && value != "docker" {
			return fmt.Errorf("invalid container_engine: must be 'podman' or 'docker'")
		}
		cfg.ContainerEngine = config.ContainerEngine(value)

	case "image":
		img := config.ImageName(value)
		if valid, errs := img.IsValid(); !valid {
			return errs[0]
		}
		cfg.Image = img

	case "context_dir":
		cfg.ContextDir = value

	case "requirements":
		cfg.Requirements = value

	case "scripts_dir":
		cfg.ScriptsDir = value

	case "archive_name":
		cfg.ArchiveName = value

	case "no_cache":
		cfg.NoCache = value == "true" || value == "1"

	case "keep_staged":
		cfg.KeepStaged = value == "true" || value == "1"

	case "hooks.pre_build":
		cfg.Hooks.PreBuild = value

	case "hooks.post_build":
		cfg.Hooks.PostBuild = value

	case "ui.verbose":
		cfg.UI.Verbose = value == "true" || value == "1"

	case "ui.color_scheme":
		cs := config.ColorScheme(value)
		if valid, errs := cs.IsValid(); !valid {
			return errs[0]
		}
		cfg.UI.ColorScheme = cs

	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: container_engine, image, context_dir, requirements, scripts_dir, archive_name, no_cache, keep_staged, hooks.pre_build, hooks.post_build, ui.verbose, ui.color_scheme", key)
	}

	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}
