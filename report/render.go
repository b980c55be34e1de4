// Package report renders diagnostics and schema state for the terminal.
package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// StylesFor returns colored styles for terminals and plain styles
// otherwise.
func StylesFor(w io.Writer) *Styles {
	if IsTerminal(w) {
		return DefaultStyles()
	}

	return PlainStyles()
}

// Renderer writes human readable reports.
type Renderer struct {
	w      io.Writer
	styles *Styles
}

// NewRenderer creates a renderer writing to w.
func NewRenderer(w io.Writer) *Renderer {
	return &Renderer{w: w, styles: StylesFor(w)}
}

// NewRendererWithStyles creates a renderer with explicit styles.
func NewRendererWithStyles(w io.Writer, s *Styles) *Renderer {
	return &Renderer{w: w, styles: s}
}

// Diagnostics writes every diagnostic of the file at path with a source
// snippet.
func (r *Renderer) Diagnostics(path string, source []byte, ds []visitor.Diagnostic) error {
	li := otl.NewLineIndex(string(source))

	for _, d := range ds {
		if _, err := io.WriteString(r.w, r.diagnostic(path, li, d)); err != nil {
			return err
		}
	}

	return nil
}

func (r *Renderer) severity(sev visitor.Severity) string {
	s := r.styles

	switch sev {
	case visitor.SeverityError:
		return s.Paint(s.Error, "error")
	case visitor.SeverityWarning:
		return s.Paint(s.Warning, "warning")
	default:
		return s.Paint(s.Info, "info")
	}
}

func (r *Renderer) diagnostic(path string, li *otl.LineIndex, d visitor.Diagnostic) string {
	s := r.styles
	line, col := li.Position(d.From)
	endLine, endCol := li.Position(d.To)
	text := li.Line(line)

	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s\n", r.severity(d.Severity), s.Paint(s.Bold, firstLine(d.Message)))
	fmt.Fprintf(&b, "  %s %s\n", s.Paint(s.Dim, "-->"), s.Paint(s.Path, fmt.Sprintf("%s:%d:%d", path, line+1, col+1)))

	gutter := strings.Repeat(" ", len(fmt.Sprint(line+1)))
	bar := s.Paint(s.Dim, "|")

	fmt.Fprintf(&b, " %s %s\n", gutter, bar)
	fmt.Fprintf(&b, " %s %s %s\n", s.Paint(s.Dim, fmt.Sprint(line+1)), bar, text)

	width := 1
	if endLine == line && endCol > col {
		width = endCol - col
	}

	caret := caretPad(text, col) + strings.Repeat("^", width)
	fmt.Fprintf(&b, " %s %s %s\n", gutter, bar, s.Paint(severityStyle(s, d.Severity), caret))

	for _, more := range strings.Split(d.Message, "\n")[1:] {
		fmt.Fprintf(&b, " %s %s %s\n", gutter, s.Paint(s.Dim, "="), more)
	}

	b.WriteString("\n")

	return b.String()
}

func severityStyle(s *Styles, sev visitor.Severity) lipgloss.Style {
	switch sev {
	case visitor.SeverityError:
		return s.Error
	case visitor.SeverityWarning:
		return s.Warning
	default:
		return s.Info
	}
}

// caretPad keeps the tabs of text up to col so the caret lines up.
func caretPad(text string, col int) string {
	var b strings.Builder

	n := 0
	for _, r := range text {
		if n >= col {
			break
		}

		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}

		n++
		if r >= 0x10000 {
			n++
		}
	}

	for ; n < col; n++ {
		b.WriteByte(' ')
	}

	return b.String()
}

func firstLine(s string) string {
	head, _, _ := strings.Cut(s, "\n")

	return head
}

// Summary writes a one line summary of a check.
func (r *Renderer) Summary(modules, errors, warnings int) error {
	s := r.styles

	noun := "modules"
	if modules == 1 {
		noun = "module"
	}

	var status string
	if errors > 0 {
		status = s.Paint(s.Error, s.SymbolError+" FAIL")
	} else {
		status = s.Paint(s.OK, s.SymbolOK+" OK")
	}

	_, err := fmt.Fprintf(r.w, "%s  %d %s, %s, %s\n",
		status, modules, noun,
		s.Paint(s.Error, plural(errors, "error")),
		s.Paint(s.Warning, plural(warnings, "warning")))

	return err
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}

	return fmt.Sprintf("%d %ss", n, word)
}

// Types writes the types of the graph with their parents and fields.
func (r *Renderer) Types(types []*typing.Type) error {
	s := r.styles

	for _, t := range types {
		var b strings.Builder

		b.WriteString(s.Paint(s.TypeName, t.Name))

		if t.IsAbstract {
			b.WriteString(s.Paint(s.Dim, " (abstract)"))
		}

		if len(t.ParentNames) > 0 {
			b.WriteString(s.Paint(s.Muted, " extends "+strings.Join(t.ParentNames, ", ")))
		}

		switch {
		case t.Folder != "":
			b.WriteString(s.Paint(s.Path, "  "+t.Folder+"/"))
		case t.Glob != "":
			b.WriteString(s.Paint(s.Path, "  "+t.Glob))
		}

		b.WriteString("\n")

		for _, name := range t.FieldNames() {
			f := t.Fields[name]

			fmt.Fprintf(&b, "  %s %s: %s", s.Paint(s.Dim, "•"), name, s.Paint(s.Muted, f.Type.Name()))

			if f.Default != "" {
				fmt.Fprintf(&b, " = %s", f.Default)
			}

			b.WriteString("\n")
		}

		if _, err := io.WriteString(r.w, b.String()); err != nil {
			return err
		}
	}

	return nil
}

// Violations writes metadata validation failures.
func (r *Renderer) Violations(path string, vs []typing.Violation) error {
	s := r.styles

	for _, v := range vs {
		if _, err := fmt.Fprintf(r.w, "%s %s: %s\n", s.Paint(s.Error, s.SymbolError), s.Paint(s.Path, path), v.String()); err != nil {
			return err
		}
	}

	return nil
}
