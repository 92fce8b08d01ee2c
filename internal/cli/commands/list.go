package commands

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/amalgam/internal/amalgam"
	"github.com/leapstack-labs/amalgam/internal/cli/output"
)

// ListOutput is the JSON output for the list command.
type ListOutput struct {
	Root    string                 `json:"root"`
	Guard   string                 `json:"guard"`
	Modules []amalgam.ModuleStatus `json:"modules"`
	Summary ListSummary            `json:"summary"`
}

// ListSummary counts modules per status.
type ListSummary struct {
	Total     int `json:"total"`
	Included  int `json:"included"`
	Excluded  int `json:"excluded"`
	Self      int `json:"self"`
	Missing   int `json:"missing"`
	Malformed int `json:"malformed"`
}

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the modules referenced by the root document",
		Long: `List every include marker of the root document, in order of first
appearance, with what a build would do with it.

Output adapts to environment:
  - Terminal: Styled table
  - Piped/Scripted: Markdown table (agent-friendly)

Use --output to override: auto, text, markdown, json`,
		Example: `  # List modules (auto-detect output format)
  amalgam list

  # List modules as JSON
  amalgam list --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd)
		},
	}

	return cmd
}

func runList(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	if err := cmdCtx.Cfg.ValidateDirectories(); err != nil {
		return err
	}
	a, err := cmdCtx.NewAmalgamator(nil)
	if err != nil {
		return err
	}

	modules, err := a.Inspect(cmdCtx.SourceFS(), cmdCtx.Cfg.Root)
	if err != nil {
		return err
	}
	out := &ListOutput{
		Root:    cmdCtx.Cfg.Root,
		Guard:   a.Guard(),
		Modules: modules,
		Summary: summarize(modules),
	}

	r := cmdCtx.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		listMarkdown(r, out)
	default:
		listText(r, out)
	}
	return nil
}

func summarize(modules []amalgam.ModuleStatus) ListSummary {
	s := ListSummary{Total: len(modules)}
	for _, m := range modules {
		switch m.Status {
		case amalgam.StatusIncluded:
			s.Included++
		case amalgam.StatusExcluded:
			s.Excluded++
		case amalgam.StatusSelf:
			s.Self++
		case amalgam.StatusMissing:
			s.Missing++
		case amalgam.StatusMalformed:
			s.Malformed++
		}
	}
	return s
}

// moduleTable builds the rows shared by the text and Markdown renderings.
func moduleTable(out *ListOutput, label func(amalgam.ModuleStatus) string) table.Writer {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Module", "Status", "Line", "Uses", "Files"})
	for i, m := range out.Modules {
		name := m.Name
		if name == "" {
			name = m.Marker
		}
		t.AppendRow(table.Row{i + 1, name, label(m), m.Line, m.Occurrences, moduleFiles(m)})
	}
	return t
}

func moduleFiles(m amalgam.ModuleStatus) string {
	switch {
	case m.Reason != "":
		return m.Reason
	case len(m.Missing) > 0:
		return "missing " + strings.Join(m.Missing, ", ")
	case m.DeclPath != "":
		return m.DeclPath + " + " + m.ImplPath
	}
	return ""
}

// listText outputs modules as a styled table.
func listText(r *output.Renderer, out *ListOutput) {
	titleCaser := cases.Title(language.English)
	styles := r.Styles()

	r.Header(1, fmt.Sprintf("Modules in %s (%d total)", out.Root, out.Summary.Total))
	t := moduleTable(out, func(m amalgam.ModuleStatus) string {
		label := titleCaser.String(string(m.Status))
		switch m.Status {
		case amalgam.StatusIncluded:
			return styles.Success.Render(label)
		case amalgam.StatusMissing, amalgam.StatusMalformed:
			return styles.Error.Render(label)
		default:
			return styles.Muted.Render(label)
		}
	})
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.Render()

	r.Println("")
	r.Muted(fmt.Sprintf("%d included, %d excluded, %d missing, %d malformed; implementations guarded by %s",
		out.Summary.Included, out.Summary.Excluded, out.Summary.Missing, out.Summary.Malformed, out.Guard))
}

// listMarkdown outputs modules as a Markdown table.
func listMarkdown(r *output.Renderer, out *ListOutput) {
	r.Println(output.FormatHeader(1, fmt.Sprintf("Modules in %s (%d total)", out.Root, out.Summary.Total)))
	r.Println("")
	r.Println(output.FormatKeyValue("Guard", out.Guard))
	r.Println(output.FormatKeyValue("Included", fmt.Sprint(out.Summary.Included)))
	r.Println(output.FormatKeyValue("Excluded", fmt.Sprint(out.Summary.Excluded)))
	if out.Summary.Missing+out.Summary.Malformed > 0 {
		r.Println(output.FormatKeyValue("Problems", fmt.Sprint(out.Summary.Missing+out.Summary.Malformed)))
	}
	r.Println("")
	if len(out.Modules) == 0 {
		r.Println("No include markers found.")
		return
	}
	t := moduleTable(out, func(m amalgam.ModuleStatus) string { return string(m.Status) })
	r.Println(t.RenderMarkdown())
}
