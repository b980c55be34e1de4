package handlers

import (
	"strings"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/visitor"
)

var (
	identifier         = newIdentifier(false)
	identifierOrString = newIdentifier(true)
)

// Identifier evaluates a name. With allowString, quoted names such as
// "field name" are accepted as well and evaluate unquoted.
func Identifier(allowString bool) *visitor.Handler {
	if allowString {
		return identifierOrString
	}

	return identifier
}

func newIdentifier(allowString bool) *visitor.Handler {
	rules := kinds(otl.KindIdentifier)
	if allowString {
		rules = append(rules, otl.KindString)
	}

	return visitor.New(visitor.Args{
		Name:  "Identifier",
		Rules: rules,
		Run: func(c *visitor.Call) any {
			if c.Node().Kind == otl.KindString {
				return Unquote(c.Text(nil))
			}

			return c.Text(nil)
		},
	})
}

// Proxy accepts a wrapper node of the given kinds whose first child inner
// accepts, and forwards every operation to that child.
func Proxy(rules []otl.Kind, inner *visitor.Handler) *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:     "Proxy(" + inner.Name() + ")",
		Rules:    rules,
		Children: []visitor.Child{visitor.Named("value", inner)},
		Accept: func(c *visitor.Call) bool {
			return c.Accept(inner, firstChild(c))
		},
		Run: func(c *visitor.Call) any {
			return c.Run(inner, firstChild(c))
		},
		Complete: func(c *visitor.Call, pos int) []visitor.Completion {
			return c.Complete(inner, firstChild(c), pos)
		},
		Snippets: func(c *visitor.Call) []visitor.Completion {
			return c.Snippets(inner)
		},
		Symbols: func(c *visitor.Call) []visitor.Symbol {
			return c.Symbols(inner, firstChild(c))
		},
	})
}

// Keyword evaluates to true when the keyword node is present.
func Keyword(kind otl.Kind) *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:  "Keyword(" + string(kind) + ")",
		Rules: kinds(kind),
		Run:   func(*visitor.Call) any { return true },
	})
}

// Token evaluates to true for a node of the given kind.
func Token(kind otl.Kind) *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:  "Token(" + string(kind) + ")",
		Rules: kinds(kind),
		Run:   func(*visitor.Call) any { return true },
	})
}

// Union accepts a node when any alternative does. The first accepting
// alternative handles the node; snippets are those of every alternative.
func Union(alternatives ...*visitor.Handler) *visitor.Handler {
	names := make([]string, 0, len(alternatives))
	for _, alt := range alternatives {
		names = append(names, alt.Name())
	}

	pick := func(c *visitor.Call) *visitor.Handler {
		for _, alt := range alternatives {
			if c.Accept(alt, c.Node()) {
				return alt
			}
		}

		return nil
	}

	return visitor.New(visitor.Args{
		Name: "Union(" + strings.Join(names, ", ") + ")",
		Accept: func(c *visitor.Call) bool {
			return pick(c) != nil
		},
		Run: func(c *visitor.Call) any {
			return c.Run(pick(c), c.Node())
		},
		Lint: func(c *visitor.Call) {
			c.JoinDiagnostics(c.Lint(pick(c), c.Node()).Diagnostics)
		},
		Complete: func(c *visitor.Call, pos int) []visitor.Completion {
			return c.Complete(pick(c), c.Node(), pos)
		},
		Snippets: func(c *visitor.Call) []visitor.Completion {
			var out []visitor.Completion
			for _, alt := range alternatives {
				out = append(out, c.Snippets(alt)...)
			}

			return out
		},
		Symbols: func(c *visitor.Call) []visitor.Symbol {
			return c.Symbols(pick(c), c.Node())
		},
		Decorations: func(c *visitor.Call) []visitor.Decoration {
			return c.Decorations(pick(c), c.Node())
		},
	})
}
