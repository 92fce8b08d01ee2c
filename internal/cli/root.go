// Package cli provides the command-line interface for amalgam.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/amalgam/internal/cli/commands"
	"github.com/leapstack-labs/amalgam/internal/cli/config"
	"github.com/leapstack-labs/amalgam/internal/cli/output"
	"github.com/leapstack-labs/amalgam/internal/license"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "amalgam",
		Short: "amalgam - single-header amalgamation generator",
		Long: `amalgam turns a multi-file C/C++ library into one distributable header.

It reads the root document (sk_gpu_dev.h by default), replaces every
#include "module.h" marker with the module's declaration, appends every
module's implementation inside an #ifdef SKG_IMPL section, and ends with
the license footer. Expansion is one level deep: markers inside inlined
text are left alone.

Running amalgam without a command performs a build.`,
		Version: Version,
		Args:    cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			mode, err := output.ParseMode(cfg.OutputFormat)
			if err != nil {
				return err
			}
			cfg.OutputFormat = string(mode)

			level := slog.LevelWarn
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			ctx := config.WithConfig(cmd.Context(), cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			logger.Debug("configuration loaded",
				"source_dir", cfg.SourceDir,
				"root", cfg.Root,
				"dest", cfg.Dest,
				"exclude", cfg.Exclude.Names(),
			)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return commands.RunBuild(cmd, &commands.BuildOptions{})
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Single-header amalgamation generator
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./amalgam.yaml)")
	flags.String("source-dir", "", "Directory holding the root document and modules (default: .)")
	flags.String("root", "", "Root document, relative to the source directory (default: "+config.DefaultRoot+")")
	flags.String("dest", "", "Output file, relative to the source directory (default: "+config.DefaultDest+")")
	flags.String("guard", "", "Macro gating the implementation section (default: "+config.DefaultGuard+")")
	flags.StringSlice("skip", nil, "Module to exclude in addition to the configured set (repeatable)")
	flags.String("license", "", "License footer preset (default: "+config.DefaultLicense+")")
	flags.String("license-file", "", "Use this file verbatim as the license footer")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("license", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return license.Presets(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("root", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"h"}, cobra.ShellCompDirectiveFilterFileExt
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewBuildCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewCheckCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for amalgam.

To load completions:

Bash:
  $ source <(amalgam completion bash)

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  $ amalgam completion zsh > "${fpath[1]}/_amalgam"

Fish:
  $ amalgam completion fish | source

PowerShell:
  PS> amalgam completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
