package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/otl-lang/otl/watch"
)

// Messages accepted by WatchModel.
type (
	// ReloadingMsg marks the start of a reload.
	ReloadingMsg struct{ Changed []string }
	// ReloadedMsg carries the outcome of a reload.
	ReloadedMsg struct {
		Result watch.Result
		Types  int
		At     time.Time
	}
)

// WatchModel is the bubbletea model of `otl watch`.
type WatchModel struct {
	styles  *Styles
	spinner spinner.Model

	schema  string
	width   int
	loading bool
	reloads int

	last    *ReloadedMsg
	changed []string

	userQuit bool
}

// NewWatchModel creates the model for the schema at path.
func NewWatchModel(schema string, styles *Styles) *WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: SpinnerFrames(),
		FPS:    time.Second / 10,
	}
	s.Style = styles.Running

	return &WatchModel{
		styles:  styles,
		spinner: s,
		schema:  schema,
		width:   80,
		loading: true,
	}
}

// NewWatchProgram runs m on w. Input is read only from a terminal.
func NewWatchProgram(m *WatchModel, w io.Writer) *tea.Program {
	opts := []tea.ProgramOption{tea.WithOutput(w)}

	if !IsTerminal(w) {
		opts = append(opts, tea.WithInput(nil))
	}

	return tea.NewProgram(m, opts...)
}

// Init implements tea.Model.
func (m *WatchModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) { //nolint:ireturn // bubbletea.Model interface required by tea.Program
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.userQuit = true

			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case spinner.TickMsg:
		var cmd tea.Cmd

		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case ReloadingMsg:
		m.loading = true
		m.changed = msg.Changed

	case ReloadedMsg:
		m.loading = false
		m.reloads++
		m.last = &msg
	}

	return m, nil
}

// Quit reports whether the user asked to quit.
func (m *WatchModel) Quit() bool { return m.userQuit }

// View implements tea.Model.
func (m *WatchModel) View() string {
	s := m.styles

	lines := []string{m.header(), ""}

	if len(m.changed) > 0 {
		names := make([]string, 0, len(m.changed))
		for _, c := range m.changed {
			names = append(names, filepath.Base(c))
		}

		lines = append(lines, s.Paint(s.Dim, "  changed: "+strings.Join(names, ", ")))
	}

	if m.last != nil {
		lines = append(lines, m.outcome()...)
	}

	lines = append(lines, "", s.Paint(s.Dim, "  Press q to exit"))

	return strings.Join(lines, "\n") + "\n"
}

func (m *WatchModel) header() string {
	s := m.styles

	logo := s.Paint(s.Bold, "otl") + s.Paint(s.Dim, " watch")
	path := s.Paint(s.Path, m.schema)

	var status string

	switch {
	case m.loading:
		status = m.spinner.View() + " " + s.Paint(s.Running, "loading")
	case m.last != nil && m.failed():
		status = s.Paint(s.Error, s.SymbolError+" errors")
	default:
		status = s.Paint(s.OK, s.SymbolOK+" ready")
	}

	return fmt.Sprintf("%s  %s  %s", logo, path, status)
}

func (m *WatchModel) failed() bool {
	r := m.last.Result

	return r.Err != nil || (r.Module != nil && r.Module.Error != "")
}

func (m *WatchModel) outcome() []string {
	s := m.styles
	r := m.last.Result

	if r.Err != nil {
		return []string{"  " + s.Paint(s.Error, r.Err.Error())}
	}

	lines := []string{fmt.Sprintf("  %s %d types  %s",
		s.Paint(s.Muted, s.SymbolPointer),
		m.last.Types,
		s.Paint(s.Dim, fmt.Sprintf("reload #%d at %s", m.reloads, m.last.At.Format(time.TimeOnly))))}

	if r.Module != nil && r.Module.Error != "" {
		for _, l := range strings.Split(r.Module.Error, "\n") {
			lines = append(lines, "  "+s.Paint(s.Error, l))
		}
	}

	return lines
}
