package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/amalgam/internal/cli/config"
	"github.com/leapstack-labs/amalgam/internal/cli/output"
)

// ConfigOutput is the JSON output for the config command.
type ConfigOutput struct {
	ConfigFile string         `json:"config_file,omitempty"`
	Config     *config.Config `json:"config"`
}

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration after defaults, amalgam.yaml, AMALGAM_ environment
variables and flags have been applied. Paths are shown resolved.`,
		Example: `  # Show the configuration
  amalgam config

  # Check what an environment override does
  AMALGAM_GUARD=MY_IMPL amalgam config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfig(cmd)
		},
	}

	return cmd
}

func runConfig(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	out := &ConfigOutput{
		ConfigFile: config.GetConfigFileUsed(),
		Config:     cmdCtx.Cfg,
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	data, err := yaml.Marshal(out.Config)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	source := out.ConfigFile
	if source == "" {
		source = "none (defaults)"
	}
	if r.EffectiveMode() == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Configuration"))
		r.Println("")
		r.Println(output.FormatKeyValue("Config file", source))
		r.Println("")
		r.Println(output.FormatCodeBlock("yaml", string(data)))
		return nil
	}

	r.Muted("# config file: " + source)
	r.Printf("%s", data)
	return nil
}
