package schema

import (
	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
	"github.com/otl-lang/otl/visitor"
)

func scalar() *visitor.Handler {
	return handlers.Literal(handlers.Union(handlers.String, handlers.Number, handlers.Boolean))
}

// Expression evaluates the root of otl.ParseExpression: a scalar literal,
// a field, a field type or a `name = literal` assignment. Assignments with
// a type are fields.
var Expression = visitor.New(visitor.Args{
	Name:  "Expression",
	Rules: []otl.Kind{otl.KindExpression},
	Children: []visitor.Child{
		visitor.Named("literal", scalar()),
		visitor.Named("field", handlers.Field().Override(visitor.Args{
			Accept: func(c *visitor.Call) bool {
				return c.Node().Child(otl.KindAssignmentType) != nil
			},
		})),
		visitor.Named("fieldType", handlers.FieldType()),
		visitor.Named("assignment", handlers.NamedAttribute(scalar())),
	},
	Run: func(c *visitor.Call) any {
		var out any

		c.Traverse(func(n *otl.Node, child *visitor.Handler, _ string) {
			if out == nil {
				out = c.Run(child, n)
			}
		}, visitor.Traversal{})

		return out
	},
})
