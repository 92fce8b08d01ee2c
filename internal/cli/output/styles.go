package output

import "github.com/charmbracelet/lipgloss"

// Palette shared by every command.
const (
	ColorPrimary = lipgloss.Color("#7C3AED")
	ColorMuted   = lipgloss.Color("#6B7280")
	ColorSuccess = lipgloss.Color("#10B981")
	ColorError   = lipgloss.Color("#EF4444")
	ColorWarning = lipgloss.Color("#F59E0B")
	ColorInfo    = lipgloss.Color("#3B82F6")
)

// Styles groups the lipgloss styles used for text output.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Success lipgloss.Style
	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
	// Path is used for module and file names.
	Path lipgloss.Style
}

// NewStyles builds the styles for a lipgloss renderer. A renderer with the
// Ascii profile yields plain text.
func NewStyles(lr *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1: lr.NewStyle().Bold(true).Foreground(ColorPrimary).Underline(true),
		Header2: lr.NewStyle().Bold(true).Foreground(ColorPrimary),
		Bold:    lr.NewStyle().Bold(true),
		Success: lr.NewStyle().Foreground(ColorSuccess),
		Error:   lr.NewStyle().Bold(true).Foreground(ColorError),
		Warning: lr.NewStyle().Foreground(ColorWarning),
		Info:    lr.NewStyle().Foreground(ColorInfo),
		Muted:   lr.NewStyle().Foreground(ColorMuted),
		Path:    lr.NewStyle().Foreground(ColorInfo),
	}
}
