package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/amalgam/internal/cli/config"
	"github.com/leapstack-labs/amalgam/internal/cli/output"
)

const configHeader = `# amalgam configuration.
# Relative paths resolve against this file's directory; dest resolves
# against source_dir. Every key can be overridden with an AMALGAM_ variable
# (AMALGAM_LICENSE__PRESET for license.preset) or a flag.
`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default amalgam.yaml",
		Long: `Write an amalgam.yaml holding the default configuration, ready to edit.

The file lists the root document, the output path, the implementation
guard, the exclusion set and the license footer.`,
		Example: `  # Initialize in current directory
  amalgam init

  # Initialize in the source directory of a checkout
  amalgam init src

  # Force overwrite existing config
  amalgam init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			cfg := getConfig(cmd)
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

func runInit(r *output.Renderer, dir string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileNames[0])
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	data, err := defaultConfigYAML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.StatusLine(configPath, "success", "")
	r.Println("")
	r.Success("amalgam initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  amalgam list     See which modules will be inlined")
	r.Println("  amalgam check    Verify every module file exists")
	r.Println("  amalgam build    Write the single header")
	return nil
}

func defaultConfigYAML() ([]byte, error) {
	cfg := config.Default()
	cfg.OutputFormat = ""

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode configuration: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
