package handlers_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
	"github.com/otl-lang/otl/script"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
)

func parse(t *testing.T, src string, env *handlers.Env) (*otl.Tree, *visitor.Context) {
	t.Helper()

	tree, err := otl.Parse([]byte(src))
	require.NoError(t, err)

	return tree, visitor.NewContext(tree.Source, "test.otl", env, nil)
}

// members returns the statements of the first type body, delimiters excluded.
func members(tree *otl.Tree) []*otl.Node {
	var out []*otl.Node

	for _, n := range tree.Root.Child(otl.KindTypeDeclaration).Child(otl.KindTypeBody).Children {
		if n.Kind != otl.KindDelimiter {
			out = append(out, n)
		}
	}

	return out
}

func messages(r visitor.LintResult) []string {
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		out = append(out, d.Message)
	}

	return out
}

func lint(t *testing.T, ctx *visitor.Context, h *visitor.Handler, n *otl.Node) visitor.LintResult {
	t.Helper()

	r, err := ctx.Lint(h, n)
	require.NoError(t, err)

	return r
}

func run(t *testing.T, ctx *visitor.Context, h *visitor.Handler, n *otl.Node) any {
	t.Helper()

	v, err := ctx.Run(h, n)
	require.NoError(t, err)

	return v
}

func TestUnquote(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{`"plain"`, "plain"},
		{`'single'`, "single"},
		{`"""multi
line"""`, "multi\nline"},
		{`"esc\"aped\n"`, "esc\"aped\n"},
		{`"keep\d"`, `keep\d`},
		{`bare`, "bare"},
		{`""`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, handlers.Unquote(tt.in))
		})
	}
}

func TestDedent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, in, want string
	}{
		{"single line", "  return x", "return x"},
		{"block", "\n\t\tif a {\n\t\t\tb\n\t\t}\n\t", "if a {\n\tb\n}"},
		{"blank lines kept", "\n  a\n\n  b\n", "a\n\nb"},
		{"no indent", "a\n b", "a\n b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, handlers.Dedent(tt.in))
		})
	}
}

func TestAttribute(t *testing.T) {
	t.Parallel()

	tree, ctx := parse(t, `type A { folder = "typed/folder"; glob = "x/**" }`, nil)
	m := members(tree)

	h := handlers.Attribute("folder", handlers.String, "Folder")

	assert.Equal(t, "typed/folder", run(t, ctx, h, m[0]))
	assert.Nil(t, run(t, ctx, h, m[1]), "other names are not accepted")

	syms, err := ctx.Symbols(h, m[0])
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "folder", syms[0].Name)
	assert.Equal(t, otl.KindAssignmentName, syms[0].NameNode.Kind)

	named := handlers.NamedAttribute(handlers.String)
	assert.Equal(t, handlers.NamedValue{Name: "glob", Value: "x/**"}, run(t, ctx, named, m[1]))
}

func TestLiteralString(t *testing.T) {
	t.Parallel()

	tree, ctx := parse(t, `type A { mode = "bad"; mode = "b" }`, nil)
	m := members(tree)

	h := handlers.Attribute("mode", handlers.LiteralString("a", "b"), "")

	r := lint(t, ctx, h, m[0])
	assert.True(t, r.HasErrors)
	assert.Equal(t, []string{"Allowed values: a,b"}, messages(r))
	assert.Nil(t, run(t, ctx, h, m[0]))

	assert.Equal(t, "b", run(t, ctx, h, m[1]))
}

func TestList(t *testing.T) {
	t.Parallel()

	tree, ctx := parse(t, `type A { xs = ["a", 1, c]; xs = ["a", "b"]; xs = "a" }`, nil)
	m := members(tree)

	h := handlers.Attribute("xs", handlers.List(handlers.String, ""), "")

	r := lint(t, ctx, h, m[0])
	assert.Equal(t, []string{"Invalid type", "Unexpected value type"}, messages(r))

	src := tree.Source
	assert.Equal(t, "1", src[r.Diagnostics[0].From:r.Diagnostics[0].To])
	assert.Equal(t, "c", src[r.Diagnostics[1].From:r.Diagnostics[1].To])

	assert.Equal(t, []any{"a", "b"}, run(t, ctx, h, m[1]))

	r = lint(t, ctx, h, m[2])
	assert.Equal(t, []string{"Invalid type"}, messages(r), "a scalar is not a list")
}

const displaySource = `type A {
	display {
		title = "T"
		bogus = 1
		title = "U"
	}
}`

func display() *visitor.Handler {
	return handlers.StructuredSection("display", []visitor.Child{
		visitor.Named("title", handlers.Attribute("title", handlers.String, "")),
		visitor.Named("description", handlers.Attribute("description", handlers.String, "")),
	}, "Display")
}

func TestStructuredSection(t *testing.T) {
	t.Parallel()

	tree, ctx := parse(t, displaySource, nil)
	section := members(tree)[0]
	h := display()

	r := lint(t, ctx, h, section)
	assert.Equal(t, []string{"Unexpected statement.", "Duplicate symbol: title"}, messages(r))

	dup := r.Diagnostics[1]
	assert.Equal(t, "title", tree.Source[dup.From:dup.To])
	assert.Greater(t, dup.From, strings.Index(displaySource, `"T"`), "reported on the second declaration")

	got := run(t, ctx, h, section)
	assert.Equal(t, map[string]any{"title": "U"}, got, "runs despite errors, last value wins")

	syms, err := ctx.Symbols(h, section)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "display", syms[0].Name)
}

func TestSection_List(t *testing.T) {
	t.Parallel()

	tree, ctx := parse(t, `type A { fields { a: String; b: Number; a: Text } }`, nil)
	section := members(tree)[0]
	h := handlers.Section("fields", handlers.Field(), "")

	assert.Equal(t, []string{"Duplicate symbol: a"}, messages(lint(t, ctx, h, section)))

	got, ok := run(t, ctx, h, section).([]any)
	require.True(t, ok)
	require.Len(t, got, 3)
	assert.Equal(t, "b", got[1].(*typing.Field).Name)
}

func TestScope_Complete(t *testing.T) {
	t.Parallel()

	src := "type A {\n\tdisplay {\n\t\ttitle = \"T\"\n\n\t}\n}"
	tree, ctx := parse(t, src, nil)
	section := members(tree)[0]

	pos := strings.Index(src, "\n\n") + 1

	got, err := ctx.Complete(display(), section, pos)
	require.NoError(t, err)

	want := []visitor.Completion{{
		Label:   "description = ...",
		Apply:   "description = ${}",
		Snippet: true,
		Detail:  "attribute",
		Kind:    visitor.CompletionProperty,
		Symbol:  "description",
		Boost:   0,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("completions mismatch (-want +got):\n%s", diff)
	}
}

func fieldType(tree *otl.Tree, i int) *otl.Node {
	return members(tree)[i].Child(otl.KindAssignmentType)
}

func TestParameters_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want []string
		at   []string
	}{
		{
			name: "choice",
			src:  `type A { x: Choice["a", fuzzy = true, "b", fuzzy = false, foo = 1] }`,
			want: []string{
				"Args should go strictly before kwargs.",
				"Unexpected parameter.",
				"Repeated parameter.",
			},
			at: []string{`"b"`, "foo = 1", "fuzzy = false"},
		},
		{
			name: "kwargs only",
			src:  `type A { x: Number[min = 1, 5] }`,
			want: []string{
				"Args should go strictly before kwargs.",
				"Unexpected parameter.",
			},
			at: []string{"5", "5"},
		},
		{
			name: "kwargs only before kwarg",
			src:  `type A { x: Boolean[true, picker = "checkbox"] }`,
			want: []string{"Unexpected parameter."},
			at:   []string{"true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree, ctx := parse(t, tt.src, nil)
			r := lint(t, ctx, handlers.FieldType(), fieldType(tree, 0))

			assert.Equal(t, tt.want, messages(r))

			at := make([]string, 0, len(r.Diagnostics))
			for _, d := range r.Diagnostics {
				at = append(at, tt.src[d.From:d.To])
			}

			assert.Equal(t, tt.at, at)
		})
	}
}

func TestFieldType_Lint(t *testing.T) {
	t.Parallel()

	src := `type A {
	a: Numbr
	b: String[1]
	c: Number[picker = "wheel"]
	d: Number[3]
	e: Number[min = 5, max = 1]
	f: Required[String, Text]
	g: Number[min = -1, max = 1, picker = "slider"]
}`
	tree, ctx := parse(t, src, nil)
	h := handlers.FieldType()

	tests := []struct {
		name string
		i    int
		want []string
	}{
		{"unknown", 0, []string{"Unknown field type: Numbr. Allowed types: " + strings.Join(handlers.FieldTypeNames(), ",")}},
		{"no parameters", 1, []string{"String does not take parameters"}},
		{"literal value", 2, []string{"Allowed values: dropdown,slider,rating"}},
		{"no positional", 3, []string{"Unexpected parameter."}},
		{"bounds", 4, []string{"min must not be greater than max"}},
		{"single inner", 5, []string{"Required takes a single field type"}},
		{"valid", 6, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, ctx := parse(t, src, nil)
			assert.Equal(t, tt.want, messages(lint(t, ctx, h, fieldType(tree, tt.i))))
		})
	}

	assert.Equal(t,
		"String,Text,Number,Boolean,Choice,Tag,Date,DateTime,Note,List,Required,File",
		strings.Join(handlers.FieldTypeNames(), ","))

	got := run(t, ctx, h, fieldType(tree, 6))
	assert.Equal(t, &typing.NumberType{Min: -1, Max: 1, Picker: typing.PickerSlider}, got)
}

func TestField_Run(t *testing.T) {
	t.Parallel()

	src := `type A {
	fields {
		"field name": Number[min=38, max=138] = 40
		tags: List[Choice["a", "b"]] = ["a", "b"]
		flag: Boolean = 1
		ref: Required[Note["Person", short = false]]
		plain: Number
	}
}`
	tree, ctx := parse(t, src, nil)
	fields := members(tree)[0].Child(otl.KindSectionBody).ChildrenOf(otl.KindAssignment)
	require.Len(t, fields, 5)

	h := handlers.Field()

	get := func(i int) *typing.Field {
		t.Helper()

		f, ok := run(t, ctx, h, fields[i]).(*typing.Field)
		require.True(t, ok, "field %d", i)

		return f
	}

	f := get(0)
	assert.Equal(t, "field name", f.Name)
	assert.Equal(t, "40", f.Default)
	assert.Equal(t, &typing.NumberType{Min: 38, Max: 138, Picker: typing.PickerDropdown}, f.Type)
	assert.Equal(t, typing.Span{From: fields[0].From, To: fields[0].To}, f.Span)

	f = get(1)
	assert.Equal(t, "[a, b]", f.Default)
	assert.Equal(t, &typing.ListType{Inner: &typing.ChoiceType{Options: []string{"a", "b"}, Fuzzy: true}}, f.Type)

	assert.Equal(t, "true", get(2).Default)

	f = get(3)
	req, ok := f.Type.(*typing.RequiredType)
	require.True(t, ok)
	assert.Equal(t, &typing.NoteType{TypeNames: []string{"Person"}}, req.Inner)

	f = get(4)
	assert.Equal(t, "0", f.Default, "defaults to min")

	syms, err := ctx.Symbols(h, fields[0])
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "field name", syms[0].Name)
}

func TestScriptStrings(t *testing.T) {
	t.Parallel()

	src := `type A {
	header = fn"""
		return 1 + 1
	"""
	header = expr"1 +"
	header = md"""  # Title"""
	header = css"a {}"
}`
	header := handlers.Attribute("header", handlers.Union(
		handlers.FnScriptString(),
		handlers.ExprScriptString(""),
		handlers.MarkdownString(),
	), "")

	t.Run("compiles", func(t *testing.T) {
		t.Parallel()

		tree, ctx := parse(t, src, &handlers.Env{})
		m := members(tree)

		s, ok := run(t, ctx, header, m[0]).(*script.Script)
		require.True(t, ok)
		assert.Equal(t, script.KindFn, s.Kind)

		out, err := s.Call(nil)
		require.NoError(t, err)
		assert.Equal(t, 2, out)

		r := lint(t, ctx, header, m[1])
		assert.True(t, r.HasErrors)
		require.Len(t, r.Diagnostics, 1)
		assert.Equal(t, "expr", tree.Source[r.Diagnostics[0].From:r.Diagnostics[0].To], "reported on the tag")

		assert.Equal(t, &typing.Markdown{Source: "# Title"}, run(t, ctx, header, m[2]))

		r = lint(t, ctx, header, m[3])
		assert.Equal(t, []string{"Invalid type"}, messages(r), "css is not a header tag")
	})

	t.Run("safe mode", func(t *testing.T) {
		t.Parallel()

		tree, ctx := parse(t, src, &handlers.Env{SafeMode: true})
		m := members(tree)

		r := lint(t, ctx, header, m[0])
		assert.False(t, r.HasErrors)
		require.Len(t, r.Diagnostics, 1)
		assert.Equal(t, visitor.SeverityWarning, r.Diagnostics[0].Severity)
		assert.Equal(t, handlers.SafeModeMessage, r.Diagnostics[0].Message)
		assert.Nil(t, run(t, ctx, header, m[0]))

		assert.Equal(t, &typing.Markdown{Source: "# Title"}, run(t, ctx, header, m[2]), "markdown is not a script")
	})

	t.Run("invalid tag", func(t *testing.T) {
		t.Parallel()

		tree, ctx := parse(t, src, nil)
		tagged := members(tree)[3].Child(otl.KindAssignmentValue).Child(otl.KindLiteral).FirstChild()

		r := lint(t, ctx, handlers.TaggedString([]string{"fn", "expr"}, false), tagged)
		assert.Equal(t, []string{"Invalid tag: css, allowed tags: fn,expr"}, messages(r))

		v := run(t, ctx, handlers.CSSString(), tagged)
		assert.Equal(t, "a {}", v)
	})
}

type importer map[string]*handlers.ImportResult

func (i importer) Import(path, _ string) *handlers.ImportResult { return i[path] }

func TestImport(t *testing.T) {
	t.Parallel()

	base := typing.NewType("Base")
	other := typing.NewType("Other")

	env := &handlers.Env{Importer: importer{
		"./base.otl":   {Types: map[string]*typing.Type{"Base": base, "Other": other}},
		"./broken.otl": {Error: "broken.otl:0-4: boom"},
	}}

	src := `import { Base, Other as Alias } from "./base.otl"
import { X } from "./missing.otl"
import { Y } from "./broken.otl"
import { Base, Nope } from "./base.otl"`

	tree, ctx := parse(t, src, env)
	imports := tree.Root.ChildrenOf(otl.KindImportStatement)
	require.Len(t, imports, 4)

	h := handlers.Import()

	got, ok := run(t, ctx, h, imports[0]).([]*typing.Type)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "Base", got[0].Name)
	assert.Equal(t, "Alias", got[1].Name)
	assert.Equal(t, "Other", other.Name, "imported types are not renamed in place")

	syms, err := ctx.Symbols(h, imports[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"Base", "Alias"}, []string{syms[0].Name, syms[1].Name})

	assert.Equal(t, []string{"Invalid module"}, messages(lint(t, ctx, h, imports[1])))
	assert.Equal(t, []string{"Error importing ./broken.otl:\nbroken.otl:0-4: boom"}, messages(lint(t, ctx, h, imports[2])))

	r := lint(t, ctx, h, imports[3])
	assert.Equal(t, []string{"Unknown symbol"}, messages(r))
	assert.Equal(t, "Nope", src[r.Diagnostics[0].From:r.Diagnostics[0].To])
	assert.Nil(t, run(t, ctx, h, imports[3]))
}

func TestImport_NoImporter(t *testing.T) {
	t.Parallel()

	tree, ctx := parse(t, `import { A } from "./a.otl"`, nil)

	r := lint(t, ctx, handlers.Import(), tree.Root.FirstChild())
	assert.Equal(t, []string{"Invalid module"}, messages(r))
}

func TestFieldTypeSignature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		want  handlers.FieldSignature
		label string
	}{
		{
			name:  "Number",
			want:  handlers.FieldSignature{Name: "Number", Kwargs: []string{"min", "max", "picker"}},
			label: "Number[min = , max = , picker = ]",
		},
		{
			name:  "Tag",
			want:  handlers.FieldSignature{Name: "Tag", Args: "options...", Kwargs: []string{"dynamic", "fuzzy"}},
			label: "Tag[options..., dynamic = , fuzzy = ]",
		},
		{
			name:  "Required",
			want:  handlers.FieldSignature{Name: "Required", Args: "type"},
			label: "Required[type]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := handlers.FieldTypeSignature(tt.name)
			require.True(t, ok)

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("signature mismatch (-want +got):\n%s", diff)
			}

			assert.Equal(t, tt.label, got.Label())
		})
	}

	for _, name := range []string{"String", "Date", "Numbr"} {
		_, ok := handlers.FieldTypeSignature(name)
		assert.False(t, ok, name)
	}
}
