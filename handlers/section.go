package handlers

import (
	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/visitor"
)

// sectionName is the Identifier of a SectionDeclaration.
func sectionName(c *visitor.Call) (string, *otl.Node) {
	nameNode := c.Node().Child(otl.KindIdentifier)
	if nameNode == nil {
		return "", nil
	}

	name, _ := c.Run(Identifier(false), nameNode).(string)

	return name, nameNode
}

func section(name, info string, body *visitor.Handler) visitor.Args {
	return visitor.Args{
		Name:  "Section(" + name + ")",
		Rules: kinds(otl.KindSectionDeclaration),
		Children: []visitor.Child{
			visitor.Named("name", Identifier(false)),
			visitor.Named("body", body),
		},
		Accept: func(c *visitor.Call) bool {
			got, _ := sectionName(c)

			return got == name
		},
		Run: func(c *visitor.Call) any {
			return c.RunChild("body")
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			return []visitor.Completion{{
				Label:   name + " { ... }",
				Apply:   name + " {\n\t${}\n}",
				Snippet: true,
				Info:    info,
				Detail:  "section",
				Kind:    visitor.CompletionSection,
				Symbol:  name,
			}}
		},
		Symbols: func(c *visitor.Call) []visitor.Symbol {
			got, nameNode := sectionName(c)
			if got == "" {
				return nil
			}

			return []visitor.Symbol{{Name: got, NameNode: nameNode, Node: c.Node()}}
		},
		Options: &visitor.Options{RunDespiteErrors: true},
	}
}

// Section is `name { member... }` with homogeneous members. It evaluates
// to the list of member values in source order.
func Section(name string, member *visitor.Handler, info string) *visitor.Handler {
	body := visitor.New(visitor.Args{
		Name:     name + ".body",
		Rules:    kinds(otl.KindSectionBody),
		Children: []visitor.Child{visitor.Named("member", member)},
		Run: func(c *visitor.Call) any {
			out := []any{}

			c.Traverse(func(n *otl.Node, child *visitor.Handler, _ string) {
				if v := c.Run(child, n); v != nil {
					out = append(out, v)
				}
			}, visitor.Traversal{})

			return out
		},
		Options: &visitor.Options{RunDespiteErrors: true},
	})

	return visitor.New(section(name, info, Scoped(body, false)))
}

// StructuredSection is `name { ... }` with one named member per key. It
// evaluates to a map from member key to value.
func StructuredSection(name string, members []visitor.Child, info string) *visitor.Handler {
	body := visitor.New(visitor.Args{
		Name:     name + ".body",
		Rules:    kinds(otl.KindSectionBody),
		Children: members,
		Run: func(c *visitor.Call) any {
			return c.RunChildren()
		},
		Options: &visitor.Options{RunDespiteErrors: true},
	})

	return visitor.New(section(name, info, Scoped(body, true)))
}

// StructuredObject is an object literal `{ key = value ... }` with one
// named member per key. It evaluates to a map from member key to value.
func StructuredObject(members []visitor.Child) *visitor.Handler {
	return Scoped(visitor.New(visitor.Args{
		Name:     "Object",
		Rules:    kinds(otl.KindObject),
		Children: members,
		Run: func(c *visitor.Call) any {
			return c.RunChildren()
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			return []visitor.Completion{{
				Label: "{ ... }", Apply: "{\n\t${}\n}", Snippet: true, Detail: "object", Kind: visitor.CompletionValue,
			}}
		},
	}), true)
}
