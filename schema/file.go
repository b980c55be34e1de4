package schema

import (
	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
)

// Module is an evaluated OTL file: its declared and imported types by name.
type Module map[string]*typing.Type

// File evaluates a whole module. Types are collected in source order and
// each declared type inherits from the parents collected before it, in the
// order the parents are listed. Imported types arrive already resolved.
var File = handlers.Scoped(visitor.New(visitor.Args{
	Name:  "File",
	Rules: []otl.Kind{otl.KindFile},
	Tags:  []string{TagFile},
	Children: []visitor.Child{
		visitor.Named("type", Type),
		visitor.Named("import", handlers.Import()),
	},
	Run: func(c *visitor.Call) any {
		mod := make(Module)

		c.Traverse(func(n *otl.Node, child *visitor.Handler, key string) {
			types, _ := c.Run(child, n).([]*typing.Type)

			for _, t := range types {
				mod[t.Name] = t

				if key != "type" {
					continue
				}

				for _, name := range t.ParentNames {
					if parent, ok := mod[name]; ok && parent != t {
						t.AddParent(parent)
					}
				}
			}
		}, visitor.Traversal{})

		return mod
	},
	Options: &visitor.Options{RunDespiteErrors: true},
}), true)
