package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/amalgam/internal/amalgam"
	"github.com/leapstack-labs/amalgam/internal/cli/output"
)

// ErrCheckFailed is returned when a build would fail.
var ErrCheckFailed = errors.New("check failed")

// CheckOutput is the JSON output for the check command.
type CheckOutput struct {
	OK       bool                   `json:"ok"`
	Problems []amalgam.ModuleStatus `json:"problems"`
	Warnings []string               `json:"warnings,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that a build would succeed without writing it",
		Long: `Run every step of a build except the final write.

Reports included modules with a missing declaration or implementation file,
malformed include markers, and an output directory that does not exist.
Exits non-zero when a build would fail.`,
		Example: `  # Preflight before committing
  amalgam check

  # Machine-readable report
  amalgam check -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd)
		},
	}

	return cmd
}

func runCheck(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	cfg := cmdCtx.Cfg
	r := cmdCtx.Renderer

	if err := cfg.ValidateDirectories(); err != nil {
		return err
	}
	a, err := cmdCtx.NewAmalgamator(nil)
	if err != nil {
		return err
	}

	out := &CheckOutput{Problems: []amalgam.ModuleStatus{}}
	modules, err := a.Inspect(cmdCtx.SourceFS(), cfg.Root)
	if err != nil {
		return err
	}
	for _, m := range modules {
		if m.Status == amalgam.StatusMissing || m.Status == amalgam.StatusMalformed {
			out.Problems = append(out.Problems, m)
		}
	}
	if len(out.Problems) == 0 {
		// Catches unreadable files that exist.
		if _, err := a.Run(cmdCtx.SourceFS(), cfg.Root); err != nil {
			out.Error = err.Error()
		}
	}
	if info, err := os.Stat(filepath.Dir(cfg.Dest)); err != nil || !info.IsDir() {
		out.Warnings = append(out.Warnings, fmt.Sprintf("output directory %s does not exist", filepath.Dir(cfg.Dest)))
	}
	out.OK = len(out.Problems) == 0 && out.Error == ""

	switch r.EffectiveMode() {
	case output.ModeJSON:
		if err := r.JSON(out); err != nil {
			return err
		}
	case output.ModeMarkdown:
		checkMarkdown(r, cfg.Root, out)
	default:
		checkText(r, cfg.Root, out)
	}

	if !out.OK {
		return fmt.Errorf("%w: %d problem(s) in %s", ErrCheckFailed, problemCount(out), cfg.Root)
	}
	return nil
}

func problemCount(out *CheckOutput) int {
	n := len(out.Problems)
	if out.Error != "" {
		n++
	}
	return n
}

func problemDetail(m amalgam.ModuleStatus) string {
	if m.Status == amalgam.StatusMalformed {
		return fmt.Sprintf("line %d: %s", m.Line, m.Reason)
	}
	return fmt.Sprintf("line %d: %s", m.Line, moduleFiles(m))
}

func checkText(r *output.Renderer, root string, out *CheckOutput) {
	for _, m := range out.Problems {
		r.StatusLine(m.Marker, "error", problemDetail(m))
	}
	if out.Error != "" {
		r.StatusLine(root, "error", out.Error)
	}
	for _, w := range out.Warnings {
		r.StatusLine(w, "warning", "")
	}
	if out.OK {
		r.Success(fmt.Sprintf("%s is ready to amalgamate", root))
	}
}

func checkMarkdown(r *output.Renderer, root string, out *CheckOutput) {
	r.Println(output.FormatHeader(1, "Check: "+root))
	r.Println("")
	status := "ok"
	if !out.OK {
		status = "failed"
	}
	r.Println(output.FormatKeyValue("Status", status))
	for _, m := range out.Problems {
		r.Println(output.FormatKeyValue(m.Marker, problemDetail(m)))
	}
	if out.Error != "" {
		r.Println(output.FormatKeyValue("Error", out.Error))
	}
	for _, w := range out.Warnings {
		r.Println(output.FormatKeyValue("Warning", w))
	}
}
