// Package schema assembles the grammar-level OTL handlers: type
// declarations, files and single expressions.
package schema

import (
	"slices"
	"strings"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
	"github.com/otl-lang/otl/visitor"
)

// TagFile marks the handler of a whole module.
const TagFile = "file"

// globalSymbols returns the symbols declared at the top of the enclosing
// file, or false when the call does not run inside a file.
func globalSymbols(c *visitor.Call) ([]visitor.Symbol, bool) {
	file := c.GetParent(visitor.Query{Tags: []string{TagFile}})
	if file == nil {
		return nil, false
	}

	return c.Symbols(file.Handler(), file.Node()), true
}

// TypeParentsClause evaluates `extends A, "B C"` to the parent names. A
// parent must be declared or imported above the referencing type.
var TypeParentsClause = visitor.New(visitor.Args{
	Name:     "TypeParentsClause",
	Rules:    []otl.Kind{otl.KindExtendsClause},
	Children: []visitor.Child{visitor.Named("parent", handlers.Identifier(true))},
	Lint: func(c *visitor.Call) {
		globals, ok := globalSymbols(c)
		if !ok {
			return
		}

		c.Traverse(func(n *otl.Node, child *visitor.Handler, _ string) {
			name, _ := c.Run(child, n).(string)

			for _, sym := range globals {
				if sym.Name == name && sym.Node.To <= n.From {
					return
				}
			}

			c.Error("No such parent: "+name, n)
		}, visitor.Traversal{})
	},
	Run: func(c *visitor.Call) any {
		return parentNames(c)
	},
	Symbols: func(c *visitor.Call) []visitor.Symbol {
		var out []visitor.Symbol

		c.Traverse(func(n *otl.Node, child *visitor.Handler, _ string) {
			if name, _ := c.Run(child, n).(string); name != "" {
				out = append(out, visitor.Symbol{Name: name, NameNode: n, Node: n})
			}
		}, visitor.Traversal{})

		return out
	},
	Complete: func(c *visitor.Call, _ int) []visitor.Completion {
		globals, _ := globalSymbols(c)
		current := parentNames(c)

		out := []visitor.Completion{}

		for _, sym := range globals {
			if sym.Node.To >= c.Node().From || slices.Contains(current, sym.Name) {
				continue
			}

			label := sym.Name
			if strings.Contains(label, " ") {
				label = `"` + label + `"`
			}

			out = append(out, visitor.Completion{
				Label:  label,
				Apply:  label,
				Detail: "type",
				Kind:   visitor.CompletionType,
				Symbol: sym.Name,
			})
		}

		return out
	},
	Options: &visitor.Options{RunDespiteErrors: true},
})

func parentNames(c *visitor.Call) []string {
	var out []string

	c.Traverse(func(n *otl.Node, child *visitor.Handler, _ string) {
		if name, _ := c.Run(child, n).(string); name != "" {
			out = append(out, name)
		}
	}, visitor.Traversal{})

	return out
}
