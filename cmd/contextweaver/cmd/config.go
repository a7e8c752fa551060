package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/contextweaver/contextweaver/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user configuration",
		Long: `Manage the user/global configuration file.

User configuration applies to every project indexed on this machine
(embedding provider, rerank endpoint, default ignore rules). Project
configuration in .contextweaver.yaml takes precedence over it.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/contextweaver/config.yaml)
  3. Project config (.contextweaver.yaml)
  4. Environment variables (CONTEXTWEAVER_*)`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade the user configuration file",
		Long: `Create the user configuration file at its default location with
built-in defaults. If a config already exists, --force backs up the
existing file and rewrites it; without --force the existing file is
left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInit(cmd, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration (backs it up first)")
	return cmd
}

func runConfigInit(cmd *cobra.Command, force bool) error {
	out := cmd.OutOrStdout()
	configPath := config.GetUserConfigPath()

	if config.UserConfigExists() {
		if !force {
			fmt.Fprintf(out, "User configuration already exists at %s\n", configPath)
			fmt.Fprintln(out, "Use --force to back it up and rewrite it with current defaults")
			return nil
		}

		backupPath, err := config.BackupUserConfig()
		if err != nil {
			return fmt.Errorf("failed to back up existing config: %w", err)
		}

		if err := config.NewConfig().WriteYAML(configPath); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		fmt.Fprintf(out, "Backed up existing configuration to %s\n", backupPath)
		fmt.Fprintf(out, "Wrote fresh configuration to %s\n", configPath)
		return nil
	}

	if err := os.MkdirAll(config.GetUserConfigDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := config.NewConfig().WriteYAML(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(out, "Created user configuration at %s\n", configPath)
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show [path]",
		Short: "Show the effective configuration",
		Long:  `Show the effective configuration after merging defaults, user config, project config, and environment overrides.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runConfigShow(cmd, dir, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func runConfigShow(cmd *cobra.Command, dir string, jsonOutput bool) error {
	root, err := config.FindProjectRoot(dir)
	if err != nil {
		root = dir
	}

	cfg, err := config.Load(root)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user configuration file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return nil
		},
	}
}
