package handlers

import (
	"slices"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/visitor"
)

// TagScope marks handlers whose node declares symbols.
const TagScope = "scope"

// Scoped derives a scope from base. The scope exposes the symbols of its
// claimed children, reports statements no child claims and duplicate
// names, and, when complete is set, offers the children's snippets for
// names not declared yet. The base's own lint still runs afterwards.
func Scoped(base *visitor.Handler, complete bool) *visitor.Handler {
	baseLint := base.Args().Lint

	tags := base.Tags()
	if !slices.Contains(tags, TagScope) {
		tags = append(tags, TagScope)
	}

	return base.Extend(visitor.Args{
		Tags: tags,
		Symbols: func(c *visitor.Call) []visitor.Symbol {
			var out []visitor.Symbol

			c.Traverse(func(n *otl.Node, child *visitor.Handler, _ string) {
				out = append(out, c.Symbols(child, n)...)
			}, visitor.Traversal{})

			return out
		},
		Lint: func(c *visitor.Call) {
			var unexpected []*otl.Node

			c.Traverse(func(*otl.Node, *visitor.Handler, string) {}, visitor.Traversal{
				NotAccepted: func(n *otl.Node) { unexpected = append(unexpected, n) },
			})

			for _, n := range unexpected {
				c.Error("Unexpected statement.", n)
			}

			seen := make(map[string]bool)

			for _, sym := range c.Symbols(c.Handler(), c.Node()) {
				if seen[sym.Name] {
					c.Error("Duplicate symbol: "+sym.Name, sym.NameNode)
				}

				seen[sym.Name] = true
			}

			if baseLint != nil {
				baseLint(c)
			}
		},
		Complete: func(c *visitor.Call, _ int) []visitor.Completion {
			if !complete {
				return none()
			}

			declared := make(map[string]bool)
			for _, sym := range c.Symbols(c.Handler(), c.Node()) {
				declared[sym.Name] = true
			}

			out := none()

			for _, child := range c.Handler().Children() {
				for _, s := range c.Snippets(child.Handler) {
					if s.Symbol != "" && declared[s.Symbol] {
						continue
					}

					out = append(out, s)
				}
			}

			for i := range out {
				out[i].Boost = -i
			}

			return out
		},
	})
}
