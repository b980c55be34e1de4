package handlers

import (
	"slices"
	"strconv"
	"strings"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/visitor"
)

// String evaluates a quoted string to its unquoted content.
var String = visitor.New(visitor.Args{
	Name:  "String",
	Rules: kinds(otl.KindString),
	Run: func(c *visitor.Call) any {
		return Unquote(c.Text(nil))
	},
	Snippets: func(*visitor.Call) []visitor.Completion {
		return []visitor.Completion{
			{Label: `"""..."""`, Apply: "\"\"\"\n\t${}\n\"\"\"", Snippet: true, Info: "multiline string", Detail: "string", Kind: visitor.CompletionValue},
			{Label: `"..."`, Apply: `"${}"`, Snippet: true, Info: "string", Detail: "string", Kind: visitor.CompletionValue},
		}
	},
	Complete: func(*visitor.Call, int) []visitor.Completion { return none() },
})

// Number evaluates a numeric literal to a float64.
var Number = visitor.New(visitor.Args{
	Name:  "Number",
	Rules: kinds(otl.KindNumber),
	Run: func(c *visitor.Call) any {
		f, err := strconv.ParseFloat(strings.ReplaceAll(c.Text(nil), "_", ""), 64)
		if err != nil {
			return nil
		}

		return f
	},
	Lint: func(c *visitor.Call) {
		if _, err := strconv.ParseFloat(strings.ReplaceAll(c.Text(nil), "_", ""), 64); err != nil {
			c.Error("Invalid number")
		}
	},
})

// Boolean evaluates true or false.
var Boolean = visitor.New(visitor.Args{
	Name:  "Boolean",
	Rules: kinds(otl.KindBoolean),
	Run: func(c *visitor.Call) any {
		return c.Text(nil) == "true"
	},
	Snippets: func(*visitor.Call) []visitor.Completion {
		return []visitor.Completion{
			{Label: "true", Apply: "true", Detail: "boolean", Kind: visitor.CompletionValue},
			{Label: "false", Apply: "false", Detail: "boolean", Kind: visitor.CompletionValue},
		}
	},
})

// LiteralString is a String restricted to a fixed set of values.
func LiteralString(values ...string) *visitor.Handler {
	return String.Override(visitor.Args{
		Name: "LiteralString",
		Lint: func(c *visitor.Call) {
			if !slices.Contains(values, Unquote(c.Text(nil))) {
				c.Error("Allowed values: " + strings.Join(values, ","))
			}
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			out := make([]visitor.Completion, 0, len(values))
			for _, v := range values {
				quoted := strconv.Quote(v)
				out = append(out, visitor.Completion{Label: quoted, Apply: quoted, Info: "string", Detail: "string", Kind: visitor.CompletionValue})
			}

			return out
		},
	})
}

// Literal wraps inner in the Literal node the grammar puts around every
// value. Content inner does not accept is an "Invalid type".
func Literal(inner *visitor.Handler) *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:     "Literal(" + inner.Name() + ")",
		Rules:    kinds(otl.KindLiteral),
		Children: []visitor.Child{visitor.Named("type", inner)},
		Lint: func(c *visitor.Call) {
			content := firstChild(c)
			if content == nil {
				return
			}

			if !c.Accept(inner, content) {
				c.Error("Invalid type", content)
			}
		},
		Run: func(c *visitor.Call) any {
			return c.RunChild("type")
		},
		Snippets: func(c *visitor.Call) []visitor.Completion {
			return c.Snippets(inner)
		},
		Complete: func(c *visitor.Call, pos int) []visitor.Completion {
			content := firstChild(c)
			if content != nil && c.Accept(inner, content) {
				if out := c.Complete(inner, content, pos); out != nil {
					return out
				}
			}

			return none()
		},
	})
}

// Unquote strips the quotes of a "...", '...' or """...""" string and
// resolves backslash escapes. Text that is not quoted is returned as is.
func Unquote(s string) string {
	switch {
	case len(s) >= 6 && strings.HasPrefix(s, `"""`) && strings.HasSuffix(s, `"""`):
		return unescape(s[3 : len(s)-3])
	case len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0]:
		return unescape(s[1 : len(s)-1])
	default:
		return s
	}
}

var escapes = map[byte]byte{'n': '\n', 't': '\t', 'r': '\r', '\\': '\\', '"': '"', '\'': '\''}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			b.WriteByte(s[i])

			continue
		}

		i++
		if r, ok := escapes[s[i]]; ok {
			b.WriteByte(r)
		} else {
			b.WriteByte('\\')
			b.WriteByte(s[i])
		}
	}

	return b.String()
}
