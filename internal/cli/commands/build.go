package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/amalgam/internal/amalgam"
	"github.com/leapstack-labs/amalgam/internal/cli/output"
)

// BuildOptions holds options for the build command.
type BuildOptions struct {
	Stdout bool // Write the document to stdout instead of the output file
}

// BuildOutput is the JSON output for the build command.
type BuildOutput struct {
	BuildID    string                 `json:"build_id"`
	Root       string                 `json:"root"`
	Dest       string                 `json:"dest,omitempty"`
	Bytes      int                    `json:"bytes"`
	Included   int                    `json:"included"`
	Excluded   int                    `json:"excluded"`
	DurationMS int64                  `json:"duration_ms"`
	Modules    []amalgam.ModuleStatus `json:"modules"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the single-header amalgamation",
		Long: `Read the root document, inline every referenced module's declaration in
place of its include marker, append every implementation inside the
implementation guard, and finish with the license footer.

The result is written once, atomically, to the output file (default
../sk_gpu.h relative to the source directory). Modules in the exclusion set
are skipped and their markers removed. Any missing file or malformed marker
aborts the build and leaves the previous output untouched.

Running amalgam without a command is the same as amalgam build.`,
		Example: `  # Build with defaults (./sk_gpu_dev.h -> ../sk_gpu.h)
  amalgam build

  # Build from another source directory
  amalgam build --source-dir src

  # Skip the OpenGL backend as well as the defaults
  amalgam build --skip sk_gpu_gl

  # Print the document instead of writing it
  amalgam build --stdout > /tmp/sk_gpu.h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return RunBuild(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Stdout, "stdout", false, "Write the document to stdout instead of the output file")

	return cmd
}

// RunBuild performs one amalgamation with the loaded configuration.
func RunBuild(cmd *cobra.Command, opts *BuildOptions) error {
	cmdCtx := NewCommandContext(cmd)
	out, err := build(cmdCtx, opts, "")
	if err != nil {
		return err
	}
	if opts.Stdout {
		return nil
	}

	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	r.Success(fmt.Sprintf("Wrote %s (%d modules inlined, %d excluded, %d bytes)",
		displayPath(out.Dest), out.Included, out.Excluded, out.Bytes))
	return nil
}

// build runs one amalgamation. trigger names what caused it and only
// appears in logs.
func build(cmdCtx *CommandContext, opts *BuildOptions, trigger string) (*BuildOutput, error) {
	cfg := cmdCtx.Cfg
	if err := cfg.ValidateDirectories(); err != nil {
		return nil, err
	}

	buildID := uuid.New().String()
	logger := cmdCtx.Logger.With("build_id", buildID)
	if trigger != "" {
		logger = logger.With("trigger", trigger)
	}

	a, err := cmdCtx.NewAmalgamator(logger)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var res *amalgam.Result
	if opts.Stdout {
		res, err = a.Run(cmdCtx.SourceFS(), cfg.Root)
		if err == nil {
			_, err = cmdCtx.Renderer.Writer().Write(res.Bytes())
		}
	} else {
		res, err = a.Build(cmdCtx.SourceFS(), cfg.Root, cfg.Dest)
	}
	if err != nil {
		logger.Error("amalgamation failed", "error", err, "code", string(amalgam.CodeOf(err)))
		return nil, err
	}

	out := &BuildOutput{
		BuildID:    buildID,
		Root:       cfg.Root,
		Bytes:      len(res.Text),
		Included:   res.Count(amalgam.StatusIncluded),
		Excluded:   res.Count(amalgam.StatusExcluded),
		DurationMS: time.Since(start).Milliseconds(),
		Modules:    res.Modules,
	}
	if !opts.Stdout {
		out.Dest = cfg.Dest
	}
	logger.Info("amalgamation complete",
		"root", out.Root,
		"dest", out.Dest,
		"included", out.Included,
		"excluded", out.Excluded,
		"bytes", out.Bytes,
		"duration_ms", out.DurationMS,
	)
	return out, nil
}

// displayPath shortens path relative to the working directory when that
// is shorter.
func displayPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(cwd, path); err == nil && len(rel) < len(path) {
		return rel
	}
	return path
}
