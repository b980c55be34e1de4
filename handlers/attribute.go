package handlers

import (
	"strings"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/visitor"
)

// NamedValue is the value of a `name = value` assignment.
type NamedValue struct {
	Name  string
	Value any
}

// List evaluates a [a, b, c] literal whose elements inner accepts.
// Elements that are not literals are reported and skipped.
func List(inner *visitor.Handler, info string) *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:     "List(" + inner.Name() + ")",
		Rules:    kinds(otl.KindList),
		Children: []visitor.Child{visitor.Named("value", Literal(inner))},
		Lint: func(c *visitor.Call) {
			c.Traverse(func(*otl.Node, *visitor.Handler, string) {}, visitor.Traversal{
				NotAccepted: func(n *otl.Node) { c.Error("Unexpected value type", n) },
			})
		},
		Run: func(c *visitor.Call) any {
			out := []any{}

			c.Traverse(func(n *otl.Node, child *visitor.Handler, _ string) {
				if v := c.Run(child, n); v != nil {
					out = append(out, v)
				}
			}, visitor.Traversal{})

			return out
		},
		Complete: func(c *visitor.Call, _ int) []visitor.Completion {
			return c.Snippets(inner)
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			return []visitor.Completion{{
				Label: "[ ... ]", Apply: "[${}]", Snippet: true, Info: info, Detail: "list", Kind: visitor.CompletionValue,
			}}
		},
	})
}

// assignmentValue evaluates the literal of an AssignmentValue node.
func assignmentValue(value *visitor.Handler) *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:     "AssignmentValue",
		Rules:    kinds(otl.KindAssignmentValue),
		Children: []visitor.Child{visitor.Named("literal", Literal(value))},
		Run: func(c *visitor.Call) any {
			return c.RunChildrenEager("literal")["literal"]
		},
		Complete: func(c *visitor.Call, _ int) []visitor.Completion {
			return c.Snippets(value)
		},
	})
}

// NamedAttribute evaluates `name = value` to a NamedValue and declares
// name in the enclosing scope.
func NamedAttribute(value *visitor.Handler) *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:  "NamedAttribute(" + value.Name() + ")",
		Rules: kinds(otl.KindAssignment),
		Children: []visitor.Child{
			visitor.Named("name", Proxy(kinds(otl.KindAssignmentName), Identifier(false))),
			visitor.Named("value", assignmentValue(value)),
		},
		Run: func(c *visitor.Call) any {
			values := c.RunChildren()
			name, _ := values["name"].(string)

			return NamedValue{Name: name, Value: values["value"]}
		},
		Complete: func(c *visitor.Call, _ int) []visitor.Completion {
			n := c.Node()

			valueNode := n.Child(otl.KindAssignmentValue)
			hasValue := valueNode != nil && strings.TrimSpace(c.Text(valueNode)) != ""

			if n.Child(otl.KindAssignmentName) != nil && !hasValue && strings.Contains(c.Text(nil), "=") {
				return c.Snippets(value)
			}

			return none()
		},
		Symbols: func(c *visitor.Call) []visitor.Symbol {
			return assignmentSymbol(c, c.Child("name"))
		},
	})
}

// assignmentSymbol declares the name of the frame's Assignment node.
func assignmentSymbol(c *visitor.Call, nameHandler *visitor.Handler) []visitor.Symbol {
	nameNode := c.Node().Child(otl.KindAssignmentName)
	if nameNode == nil {
		return nil
	}

	name, _ := c.Run(nameHandler, nameNode).(string)
	if name == "" {
		return nil
	}

	return []visitor.Symbol{{Name: name, NameNode: nameNode, Node: c.Node()}}
}

// Attribute is a NamedAttribute that only accepts the given name and
// evaluates to the bare value.
func Attribute(name string, value *visitor.Handler, info string) *visitor.Handler {
	return NamedAttribute(value).Extend(visitor.Args{
		Name: "Attribute(" + name + ")",
		Accept: func(c *visitor.Call) bool {
			nameNode := c.Node().Child(otl.KindAssignmentName)
			if nameNode == nil {
				return false
			}

			return c.Run(c.Child("name"), nameNode) == name
		},
		Run: func(c *visitor.Call) any {
			return c.RunChildrenEager("value")["value"]
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			return []visitor.Completion{{
				Label:   name + " = ...",
				Apply:   name + " = ${}",
				Snippet: true,
				Info:    info,
				Detail:  "attribute",
				Kind:    visitor.CompletionProperty,
				Symbol:  name,
			}}
		},
	})
}
