package report_test

import (
	"bytes"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otl-lang/otl/interpreter"
	"github.com/otl-lang/otl/report"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
	"github.com/otl-lang/otl/watch"
)

func TestRenderer_Diagnostics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		source string
		diag   visitor.Diagnostic
		want   string
	}{
		{
			name:   "error",
			source: "type B extends A {}\ntype A {}",
			diag:   visitor.Diagnostic{From: 15, To: 16, Severity: visitor.SeverityError, Message: "No such parent: A"},
			want: "error: No such parent: A\n" +
				"  --> schema.otl:1:16\n" +
				"   |\n" +
				" 1 | type B extends A {}\n" +
				"   |                ^\n" +
				"\n",
		},
		{
			name:   "tabs and multi-line message",
			source: "type A {\n\tfields {\n\t\tx: Wat\n\t}\n}",
			diag:   visitor.Diagnostic{From: 24, To: 27, Severity: visitor.SeverityWarning, Message: "Unknown type\nexpected a field type"},
			want: "warning: Unknown type\n" +
				"  --> schema.otl:3:6\n" +
				"   |\n" +
				" 3 | \t\tx: Wat\n" +
				"   | \t\t   ^^^\n" +
				"   = expected a field type\n" +
				"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			r := report.NewRendererWithStyles(&buf, report.PlainStyles())
			require.NoError(t, r.Diagnostics("schema.otl", []byte(tt.source), []visitor.Diagnostic{tt.diag}))

			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRenderer_Summary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	r := report.NewRendererWithStyles(&buf, report.PlainStyles())
	require.NoError(t, r.Summary(2, 1, 0))
	require.NoError(t, r.Summary(1, 0, 2))

	assert.Equal(t, "✗ FAIL  2 modules, 1 error, 0 warnings\n✓ OK  1 module, 0 errors, 2 warnings\n", buf.String())
}

func TestRenderer_Types(t *testing.T) {
	t.Parallel()

	a := typing.NewType("A")
	a.IsAbstract = true
	a.AddField(typing.NewField("title", &typing.StringType{}, "x"))

	b := typing.NewType("B")
	b.ParentNames = []string{"A"}
	b.Folder = "people"

	var buf bytes.Buffer

	r := report.NewRendererWithStyles(&buf, report.PlainStyles())
	require.NoError(t, r.Types([]*typing.Type{a, b}))

	assert.Equal(t, "A (abstract)\n  • title: String = x\nB extends A  people/\n", buf.String())
}

func TestRenderer_Violations(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	r := report.NewRendererWithStyles(&buf, report.PlainStyles())
	require.NoError(t, r.Violations("note.md", []typing.Violation{{Path: "age", Message: "Field age must be a number"}}))

	assert.Equal(t, "✗ note.md: Field age must be a number\n", buf.String())
}

func TestStylesFor(t *testing.T) {
	t.Parallel()

	assert.False(t, report.StylesFor(&bytes.Buffer{}).Color)
	assert.True(t, report.DefaultStyles().Color)
}

func TestWatchModel(t *testing.T) {
	t.Parallel()

	m := report.NewWatchModel("schema.otl", report.PlainStyles())
	assert.NotNil(t, m.Init())
	assert.Contains(t, m.View(), "loading")

	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	m.Update(report.ReloadingMsg{Changed: []string{"/vault/schema.otl"}})
	m.Update(report.ReloadedMsg{
		Result: watch.Result{Module: &interpreter.LoadedModule{Error: "schema.otl:15-16: No such parent: A"}},
		Types:  2,
		At:     at,
	})

	view := m.View()
	assert.Contains(t, view, "✗ errors")
	assert.Contains(t, view, "changed: schema.otl")
	assert.Contains(t, view, "2 types")
	assert.Contains(t, view, "reload #1 at 10:30:00")
	assert.Contains(t, view, "schema.otl:15-16: No such parent: A")

	m.Update(report.ReloadedMsg{Result: watch.Result{Module: &interpreter.LoadedModule{}}, Types: 3, At: at})
	assert.Contains(t, m.View(), "✓ ready")
	assert.Contains(t, m.View(), "reload #2")

	m.Update(report.ReloadedMsg{Result: watch.Result{Err: errors.New("import schema: boom")}, At: at})
	assert.Contains(t, m.View(), "import schema: boom")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
	assert.True(t, m.Quit())
}
