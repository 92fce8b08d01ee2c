package commands

import (
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/amalgam/internal/amalgam"
	"github.com/leapstack-labs/amalgam/internal/cli/config"
	"github.com/leapstack-labs/amalgam/internal/cli/output"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration
// and the logger stored by the root command.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig(cmd)
	logger := config.GetLogger(cmd.Context())
	mode := output.Mode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// SourceFS returns the file system modules are read from.
func (c *CommandContext) SourceFS() fs.FS {
	return os.DirFS(c.Cfg.SourceDir)
}

// NewAmalgamator builds an Amalgamator from the configuration, loading the
// license footer. A nil logger uses the context's logger.
func (c *CommandContext) NewAmalgamator(logger *slog.Logger) (*amalgam.Amalgamator, error) {
	if logger == nil {
		logger = c.Logger
	}
	footer, err := c.Cfg.LicenseText()
	if err != nil {
		return nil, err
	}
	return amalgam.New(amalgam.Options{
		DeclExt: c.Cfg.DeclExt,
		ImplExt: c.Cfg.ImplExt,
		Guard:   c.Cfg.Guard,
		Exclude: c.Cfg.Exclude,
		License: footer,
		Logger:  logger,
	}), nil
}

// getConfig returns the configuration the root command stored, or the
// defaults when no configuration was loaded.
func getConfig(cmd *cobra.Command) *config.Config {
	if cfg := config.FromContext(cmd.Context()); cfg != nil {
		return cfg
	}
	return config.Default()
}
