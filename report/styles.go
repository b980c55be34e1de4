package report

import "github.com/charmbracelet/lipgloss"

var (
	// Severity colors.
	colorError   = lipgloss.Color("#ef4444") // red-500
	colorWarning = lipgloss.Color("#eab308") // yellow-500
	colorInfo    = lipgloss.Color("#3b82f6") // blue-500
	colorOK      = lipgloss.Color("#10b981") // green-500
	colorRunning = lipgloss.Color("#06b6d4") // cyan-500

	// UI colors.
	colorDim    = lipgloss.Color("#6b7280") // gray-500
	colorMuted  = lipgloss.Color("#9ca3af") // gray-400
	colorAccent = lipgloss.Color("#3b82f6") // blue-500
)

// Styles holds the lipgloss styles of the terminal output.
type Styles struct {
	// Color disables every style when false.
	Color bool

	Error   lipgloss.Style
	Warning lipgloss.Style
	Info    lipgloss.Style
	OK      lipgloss.Style
	Running lipgloss.Style

	Dim      lipgloss.Style
	Muted    lipgloss.Style
	Bold     lipgloss.Style
	Path     lipgloss.Style
	TypeName lipgloss.Style

	SymbolOK      string
	SymbolError   string
	SymbolWarning string
	SymbolInfo    string
	SymbolPointer string
}

// DefaultStyles returns colored styles.
func DefaultStyles() *Styles {
	s := PlainStyles()
	s.Color = true

	s.Error = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	s.Warning = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	s.Info = lipgloss.NewStyle().Foreground(colorInfo).Bold(true)
	s.OK = lipgloss.NewStyle().Foreground(colorOK).Bold(true)
	s.Running = lipgloss.NewStyle().Foreground(colorRunning).Bold(true)

	s.Dim = lipgloss.NewStyle().Foreground(colorDim)
	s.Muted = lipgloss.NewStyle().Foreground(colorMuted)
	s.Bold = lipgloss.NewStyle().Bold(true)
	s.Path = lipgloss.NewStyle().Foreground(colorAccent)
	s.TypeName = lipgloss.NewStyle().Foreground(lipgloss.Color("#f8fafc")) // slate-50

	return s
}

// PlainStyles returns styles that leave text unchanged.
func PlainStyles() *Styles {
	return &Styles{
		SymbolOK:      "✓",
		SymbolError:   "✗",
		SymbolWarning: "!",
		SymbolInfo:    "i",
		SymbolPointer: "❯",
	}
}

// Paint renders text with st unless colors are disabled.
func (s *Styles) Paint(st lipgloss.Style, text string) string {
	if !s.Color {
		return text
	}

	return st.Render(text)
}

// SpinnerFrames returns the braille spinner animation frames.
func SpinnerFrames() []string {
	return []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
}
