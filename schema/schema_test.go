package schema_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
	"github.com/otl-lang/otl/schema"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
)

type importer map[string]*handlers.ImportResult

func (i importer) Import(path, _ string) *handlers.ImportResult { return i[path] }

func evaluate(t *testing.T, src string, env *handlers.Env) (schema.Module, visitor.LintResult) {
	t.Helper()

	tree, err := otl.Parse([]byte(src))
	require.NoError(t, err)

	ctx := visitor.NewContext(tree.Source, "test.otl", env, nil)

	lint, err := ctx.Lint(schema.File, tree.Root)
	require.NoError(t, err)

	out, err := ctx.Run(schema.File, tree.Root)
	require.NoError(t, err)

	mod, _ := out.(schema.Module)
	require.NotNil(t, mod)

	return mod, lint
}

func messages(r visitor.LintResult) []string {
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		out = append(out, d.Message)
	}

	return out
}

func TestFile_Field(t *testing.T) {
	t.Parallel()

	mod, lint := evaluate(t, `type A { fields { field: String = "value" } }`, nil)
	require.Empty(t, lint.Diagnostics)

	a := mod["A"]
	require.NotNil(t, a)

	f := a.Fields["field"]
	require.NotNil(t, f)
	assert.Equal(t, "field", f.Name)
	assert.IsType(t, &typing.StringType{}, f.Type)
	assert.Equal(t, "value", f.Default)
	assert.Same(t, a, f.Owner)
}

func TestFile_Inheritance(t *testing.T) {
	t.Parallel()

	src := `
type A {
	icon = "a-icon"
	fields {
		x: String = "from A"
		y: Number
	}
}

type B extends A {
	fields {
		x: Text
	}
}
`

	mod, lint := evaluate(t, src, nil)
	require.Empty(t, messages(lint))

	a, b := mod["A"], mod["B"]
	require.NotNil(t, a)
	require.NotNil(t, b)

	assert.Equal(t, []string{"A"}, b.ParentNames)
	require.Len(t, b.Parents, 1)
	assert.Same(t, a, b.Parents[0])

	assert.IsType(t, &typing.TextType{}, b.Fields["x"].Type)
	assert.IsType(t, &typing.StringType{}, a.Fields["x"].Type)

	require.Contains(t, b.Fields, "y")
	assert.Same(t, b, b.Fields["y"].Owner)
	assert.Same(t, a, a.Fields["y"].Owner)

	assert.Equal(t, "a-icon", b.Icon)
	assert.True(t, a.IsAncestorOf(b))
	assert.True(t, b.IsDescendantOf(a))
}

func TestFile_ParentDeclaredLater(t *testing.T) {
	t.Parallel()

	src := "type B extends A {}\ntype A {}\n"

	mod, lint := evaluate(t, src, nil)

	require.Equal(t, []string{"No such parent: A"}, messages(lint))
	assert.True(t, lint.HasErrors)

	d := lint.Diagnostics[0]
	assert.Equal(t, "A", src[d.From:d.To])
	assert.Less(t, d.From, strings.Index(src, "\n"))

	require.Contains(t, mod, "B")
	assert.Empty(t, mod["B"].Parents)
	assert.Equal(t, []string{"A"}, mod["B"].ParentNames)
}

func TestFile_SelfParent(t *testing.T) {
	t.Parallel()

	_, lint := evaluate(t, "type A extends A {}", nil)

	assert.Equal(t, []string{"No such parent: A"}, messages(lint))
}

func TestFile_Import(t *testing.T) {
	t.Parallel()

	base := typing.NewType("Base")
	base.AddField(typing.NewField("id", &typing.StringType{}, nil))

	env := &handlers.Env{Importer: importer{
		"./base.otl": {Types: map[string]*typing.Type{"Base": base}},
	}}

	src := `import { Base as Root } from "./base.otl"
type Note extends Root {}
`

	mod, lint := evaluate(t, src, env)
	require.Empty(t, messages(lint))

	root, note := mod["Root"], mod["Note"]
	require.NotNil(t, root)
	require.NotNil(t, note)

	assert.NotSame(t, base, root)
	assert.Equal(t, "Base", base.Name)
	assert.Contains(t, note.Fields, "id")
	assert.Same(t, note, note.Fields["id"].Owner)
	assert.Same(t, base, base.Fields["id"].Owner)
}

func TestFile_Statements(t *testing.T) {
	t.Parallel()

	src := `
type A {
	fields {
		a: String
		a: Number
	}
}
type A {}
`

	_, lint := evaluate(t, src, nil)

	assert.Equal(t, []string{"Duplicate symbol: a", "Duplicate symbol: A"}, messages(lint))
}

func TestType_Sections(t *testing.T) {
	t.Parallel()

	src := `
abstract type Person {
	folder = "people"
	glob = "people/**"
	prefix = "P-{serial}"
	icon = "lucide-user"
	display {
		title = "Person"
		category = "contacts"
	}
	style {
		header = md"# Header"
		link = expr"title"
		show_prefix = "never"
		css_classes = ["wide", "card"]
	}
	actions {
		greet = {
			name = "Greet"
			script = fn"""return 1 + 1"""
			shortcut = "Mod+G"
		}
	}
	hooks {
		on_create = fn"""return 2"""
	}
	methods {
		double = expr"3 * 2"
	}
}
`

	mod, lint := evaluate(t, src, nil)
	require.Empty(t, messages(lint))

	p := mod["Person"]
	require.NotNil(t, p)

	assert.True(t, p.IsAbstract)
	assert.Equal(t, "people", p.Folder)
	assert.Equal(t, "people/**", p.Glob)
	assert.Equal(t, "lucide-user", p.Icon)
	require.NotNil(t, p.Prefix)
	assert.Equal(t, "P-{serial}", p.Prefix.Template)

	if diff := cmp.Diff(typing.Display{Title: "Person", Category: "contacts"}, p.Display); diff != "" {
		t.Errorf("display mismatch (-want +got):\n%s", diff)
	}

	require.NotNil(t, p.Style.Header)
	require.NotNil(t, p.Style.Header.Markdown)
	assert.Equal(t, "# Header", p.Style.Header.Markdown.Source)
	assert.NotNil(t, p.Style.Link)
	assert.Equal(t, typing.ShowPrefixNever, p.Style.ShowPrefix)
	assert.Equal(t, []string{"wide", "card"}, p.Style.CSSClasses)

	greet := p.Actions["greet"]
	require.NotNil(t, greet)
	assert.Equal(t, "greet", greet.ID)
	assert.Equal(t, "Greet", greet.Name)
	assert.Equal(t, "Mod+G", greet.Shortcut)

	out, err := greet.Run(nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out)

	require.True(t, p.Hooks.Has(typing.HookOnCreate))
	out, err = p.Hooks.Run(typing.HookOnCreate, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, out)

	out, err = p.Methods["double"].Call(nil)
	require.NoError(t, err)
	assert.Equal(t, 6, out)
}

func TestType_Lint(t *testing.T) {
	t.Parallel()

	src := `
type A {
	icon = 1
	color = "red"
	style {
		show_prefix = "sometimes"
	}
	fields {
		a: Strin
		b: Number[1, min = 0]
	}
}
`

	_, lint := evaluate(t, src, nil)

	assert.ElementsMatch(t, []string{
		"Invalid type",
		"Unexpected statement.",
		"Allowed values: always,smart,never",
		"Unknown field type: Strin. Allowed types: " + strings.Join(handlers.FieldTypeNames(), ","),
		"Unexpected parameter.",
	}, messages(lint))
}

func TestType_Decorations(t *testing.T) {
	t.Parallel()

	src := `type A { icon = "lucide-star" }`

	tree, err := otl.Parse([]byte(src))
	require.NoError(t, err)

	ctx := visitor.NewContext(tree.Source, "test.otl", nil, nil)

	got, err := ctx.Decorations(schema.File, tree.Root)
	require.NoError(t, err)

	end := strings.Index(src, `" }`) + 1
	want := []visitor.Decoration{{From: end, To: end, Kind: schema.DecorationIcon, Value: "lucide-star"}}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("decorations mismatch (-want +got):\n%s", diff)
	}
}

func TestTypeParentsClause_Complete(t *testing.T) {
	t.Parallel()

	src := "type A {}\ntype \"B C\" {}\ntype D extends A {}\ntype E {}\n"
	pos := strings.Index(src, "extends A") + len("extends A")

	tree, err := otl.Parse([]byte(src))
	require.NoError(t, err)

	ctx := visitor.NewContext(tree.Source, "test.otl", nil, nil)

	got, err := ctx.Complete(schema.File, tree.Root, pos)
	require.NoError(t, err)

	want := []visitor.Completion{{
		Label:  `"B C"`,
		Apply:  `"B C"`,
		Detail: "type",
		Kind:   visitor.CompletionType,
		Symbol: "B C",
	}}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("completions mismatch (-want +got):\n%s", diff)
	}
}

func TestFile_Symbols(t *testing.T) {
	t.Parallel()

	tree, err := otl.Parse([]byte("import { X as Y } from \"x.otl\"\ntype A {}\ntype \"B C\" extends A {}\n"))
	require.NoError(t, err)

	ctx := visitor.NewContext(tree.Source, "test.otl", nil, nil)

	syms, err := ctx.Symbols(schema.File, tree.Root)
	require.NoError(t, err)

	names := make([]string, 0, len(syms))
	for _, s := range syms {
		names = append(names, s.Name)
	}

	assert.Equal(t, []string{"Y", "A", "B C"}, names)
}

func TestLint_CachedWithinCall(t *testing.T) {
	t.Parallel()

	src := "type B extends A {}\ntype A { fields { x: Nope } }\n"

	tree, err := otl.Parse([]byte(src))
	require.NoError(t, err)

	var counted int

	counter := visitor.New(visitor.Args{
		Name:  "Counter",
		Rules: []otl.Kind{otl.KindFile},
		Lint: func(c *visitor.Call) {
			counted++
			c.Warning("counted")
		},
	})

	twice := visitor.New(visitor.Args{
		Name:  "Twice",
		Rules: []otl.Kind{otl.KindFile},
		Run: func(c *visitor.Call) any {
			c.Lint(counter, c.Node())
			c.Lint(counter, c.Node())

			return [2]visitor.LintResult{c.Lint(schema.File, c.Node()), c.Lint(schema.File, c.Node())}
		},
	})

	ctx := visitor.NewContext(tree.Source, "test.otl", nil, nil)

	out, err := ctx.Run(twice, tree.Root)
	require.NoError(t, err)

	results, ok := out.([2]visitor.LintResult)
	require.True(t, ok)
	require.NotEmpty(t, results[0].Diagnostics)

	if diff := cmp.Diff(results[0], results[1]); diff != "" {
		t.Errorf("second lint differs (-first +second):\n%s", diff)
	}

	assert.Equal(t, 1, counted)
}

func TestExpression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, got any)
	}{
		{"string", `"hi"`, func(t *testing.T, got any) {
			assert.Equal(t, "hi", got)
		}},
		{"number", "42", func(t *testing.T, got any) {
			assert.Equal(t, 42.0, got)
		}},
		{"field type", "Number[min = 1]", func(t *testing.T, got any) {
			nt, ok := got.(*typing.NumberType)
			require.True(t, ok)
			assert.Equal(t, 1.0, nt.Min)
		}},
		{"field", `x: Choice["a", "b"]`, func(t *testing.T, got any) {
			f, ok := got.(*typing.Field)
			require.True(t, ok)
			assert.Equal(t, "x", f.Name)
			assert.Equal(t, "a", f.Default)
		}},
		{"assignment", "x = true", func(t *testing.T, got any) {
			assert.Equal(t, handlers.NamedValue{Name: "x", Value: true}, got)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree, err := otl.ParseExpression(tt.input)
			require.NoError(t, err)

			ctx := visitor.NewContext(tree.Source, "", nil, nil)

			got, err := ctx.Run(schema.Expression, tree.Root)
			require.NoError(t, err)

			tt.check(t, got)
		})
	}
}
