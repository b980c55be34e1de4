package schema

import (
	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
	"github.com/otl-lang/otl/script"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
)

// TagTypeDecl marks the handler of a type declaration.
const TagTypeDecl = "typedecl"

// DecorationIcon is the decoration kind placed after icon values.
const DecorationIcon = "icon"

func attr(name string, value *visitor.Handler, info string) visitor.Child {
	return visitor.Named(name, handlers.Attribute(name, value, info))
}

// iconAttribute is `icon = "..."`, decorated with the icon after its value.
func iconAttribute() visitor.Child {
	return visitor.Named("icon", handlers.Attribute("icon", handlers.String, "Icon class").Override(visitor.Args{
		Decorations: func(c *visitor.Call) []visitor.Decoration {
			value := c.Node().Child(otl.KindAssignmentValue)
			if value == nil {
				return nil
			}

			icon := handlers.Unquote(c.Text(value))

			return []visitor.Decoration{{From: value.To, To: value.To, Kind: DecorationIcon, Value: icon}}
		},
	}))
}

func template(v any) *typing.Template {
	switch v := v.(type) {
	case *script.Script:
		return &typing.Template{Script: v}
	case *typing.Markdown:
		return &typing.Template{Markdown: v}
	}

	return nil
}

func scriptOf(v any) *script.Script {
	s, _ := v.(*script.Script)

	return s
}

func stringOf(v any) string {
	s, _ := v.(string)

	return s
}

func displaySection() visitor.Child {
	h := handlers.StructuredSection("display", []visitor.Child{
		attr("title", handlers.String, "Title shown instead of the type name"),
		attr("description", handlers.String, "Description of the type"),
		attr("category", handlers.String, "Category used to group types"),
	}, "Display section")

	return visitor.Named("display", h.Override(visitor.Args{
		Run: func(c *visitor.Call) any {
			values, _ := c.RunChild("body").(map[string]any)

			return typing.Display{
				Title:       stringOf(values["title"]),
				Description: stringOf(values["description"]),
				Category:    stringOf(values["category"]),
			}
		},
	}))
}

func styleSection() visitor.Child {
	chrome := func() *visitor.Handler {
		return handlers.Union(handlers.FnScriptString(), handlers.ExprScriptString(""), handlers.MarkdownString())
	}

	h := handlers.StructuredSection("style", []visitor.Child{
		attr("header", chrome(), "Rendered above the note"),
		attr("footer", chrome(), "Rendered below the note"),
		attr("link", handlers.Union(handlers.FnScriptString(), handlers.ExprScriptString("")), "Link text"),
		attr("css", handlers.CSSString(), "Stylesheet applied to notes"),
		attr("css_classes", handlers.List(handlers.String, "CSS classes"), "CSS classes added to notes"),
		attr("show_prefix", handlers.LiteralString(
			string(typing.ShowPrefixAlways), string(typing.ShowPrefixSmart), string(typing.ShowPrefixNever),
		), "When the prefix is shown in links"),
		attr("hide_inline_fields", handlers.LiteralString(
			string(typing.HideInlineFieldsAll), string(typing.HideInlineFieldsNone), string(typing.HideInlineFieldsDefined),
		), "Which inline fields are hidden"),
	}, "Style section")

	return visitor.Named("style", h.Override(visitor.Args{
		Run: func(c *visitor.Call) any {
			values, _ := c.RunChild("body").(map[string]any)

			style := typing.Style{
				Header:           template(values["header"]),
				Footer:           template(values["footer"]),
				Link:             scriptOf(values["link"]),
				CSS:              stringOf(values["css"]),
				ShowPrefix:       typing.ShowPrefix(stringOf(values["show_prefix"])),
				HideInlineFields: typing.HideInlineFields(stringOf(values["hide_inline_fields"])),
			}

			if classes, ok := values["css_classes"].([]any); ok {
				for _, v := range classes {
					if s, ok := v.(string); ok {
						style.CSSClasses = append(style.CSSClasses, s)
					}
				}
			}

			return style
		},
	}))
}

func actionsSection() visitor.Child {
	action := handlers.NamedAttribute(handlers.StructuredObject([]visitor.Child{
		attr("name", handlers.String, "Action name"),
		iconAttribute(),
		attr("script", handlers.FnScriptString(), "Script run by the action"),
		attr("shortcut", handlers.String, "Keyboard shortcut"),
	})).Override(visitor.Args{
		Name: "Action",
		Run: func(c *visitor.Call) any {
			values := c.RunChildren()

			id, _ := values["name"].(string)
			if id == "" {
				return nil
			}

			props, _ := values["value"].(map[string]any)

			return &typing.Action{
				ID:       id,
				Name:     stringOf(props["name"]),
				Icon:     stringOf(props["icon"]),
				Script:   scriptOf(props["script"]),
				Shortcut: stringOf(props["shortcut"]),
			}
		},
	})

	h := handlers.Section("actions", action, "Actions section")

	return visitor.Named("actions", h.Override(visitor.Args{
		Run: func(c *visitor.Call) any {
			items, _ := c.RunChild("body").([]any)

			out := make(map[string]*typing.Action, len(items))
			for _, v := range items {
				if a, ok := v.(*typing.Action); ok {
					out[a.ID] = a
				}
			}

			return out
		},
	}))
}

func hooksSection() visitor.Child {
	members := make([]visitor.Child, 0, len(typing.HookNames))
	for _, name := range typing.HookNames {
		members = append(members, attr(name, handlers.FnScriptString(), "Hook script"))
	}

	h := handlers.StructuredSection("hooks", members, "Hooks section")

	return visitor.Named("hooks", h.Override(visitor.Args{
		Run: func(c *visitor.Call) any {
			values, _ := c.RunChild("body").(map[string]any)

			out := make(typing.Hooks, len(values))
			for name, v := range values {
				if s := scriptOf(v); s != nil {
					out[name] = &typing.Hook{Func: s}
				}
			}

			return out
		},
	}))
}

func methodsSection() visitor.Child {
	h := handlers.Section("methods", handlers.NamedAttribute(handlers.ExprScriptString("${}")), "Methods section")

	return visitor.Named("methods", h.Override(visitor.Args{
		Run: func(c *visitor.Call) any {
			items, _ := c.RunChild("body").([]any)

			out := make(map[string]*typing.Method, len(items))
			for _, v := range items {
				nv, ok := v.(handlers.NamedValue)
				if !ok || nv.Name == "" {
					continue
				}

				if s := scriptOf(nv.Value); s != nil {
					out[nv.Name] = &typing.Method{Name: nv.Name, Function: s}
				}
			}

			return out
		},
	}))
}

func fieldsSection() visitor.Child {
	h := handlers.Section("fields", handlers.Field(), "Fields section")

	return visitor.Named("fields", h.Override(visitor.Args{
		Run: func(c *visitor.Call) any {
			items, _ := c.RunChild("body").([]any)

			out := make(map[string]*typing.Field, len(items))
			for _, v := range items {
				if f, ok := v.(*typing.Field); ok {
					out[f.Name] = f
				}
			}

			return out
		},
	}))
}

var typeBody = handlers.Scoped(visitor.New(visitor.Args{
	Name:  "TypeBody",
	Rules: []otl.Kind{otl.KindTypeBody},
	Children: []visitor.Child{
		attr("folder", handlers.String, "Folder new notes are created in"),
		attr("glob", handlers.String, "Pattern matching notes of the type"),
		visitor.Named("prefix", handlers.Attribute("prefix", handlers.String, "Prefix template of new notes").Override(visitor.Args{
			Run: func(c *visitor.Call) any {
				tmpl, ok := c.RunChildrenEager("value")["value"].(string)
				if !ok {
					return nil
				}

				return &typing.Prefix{Template: tmpl}
			},
		})),
		iconAttribute(),
		displaySection(),
		styleSection(),
		actionsSection(),
		hooksSection(),
		methodsSection(),
		fieldsSection(),
	},
	Run: func(c *visitor.Call) any {
		return c.RunChildren()
	},
	Options: &visitor.Options{RunDespiteErrors: true},
}), true)

// Type evaluates a type declaration to a one-element []*typing.Type.
// Parents are resolved by the enclosing File.
var Type = visitor.New(visitor.Args{
	Name:  "Type",
	Rules: []otl.Kind{otl.KindTypeDeclaration},
	Tags:  []string{TagTypeDecl},
	Children: []visitor.Child{
		visitor.Named("isAbstract", handlers.Keyword(otl.KindKeywordAbstract)),
		visitor.Named("name", handlers.Identifier(true)),
		visitor.Named("parentNames", TypeParentsClause),
		visitor.Named("body", typeBody),
	},
	Run: func(c *visitor.Call) any {
		values := c.RunChildren("isAbstract", "name", "parentNames", "body")

		name, _ := values["name"].(string)
		if name == "" {
			return nil
		}

		t := typing.NewType(name)
		t.IsAbstract, _ = values["isAbstract"].(bool)
		t.ParentNames, _ = values["parentNames"].([]string)

		body, _ := values["body"].(map[string]any)
		applyBody(t, body)

		return []*typing.Type{t}
	},
	Symbols: func(c *visitor.Call) []visitor.Symbol {
		nameNode := c.Node().Child(otl.KindIdentifier)
		if nameNode == nil {
			nameNode = c.Node().Child(otl.KindString)
		}

		if nameNode == nil {
			return nil
		}

		name, _ := c.Run(c.Child("name"), nameNode).(string)
		if name == "" {
			return nil
		}

		return []visitor.Symbol{{Name: name, NameNode: nameNode, Node: c.Node()}}
	},
	Snippets: func(*visitor.Call) []visitor.Completion {
		return []visitor.Completion{
			{
				Label:   "type ... extends ... { ... }",
				Apply:   "type ${name} extends ${parents} {\n\t${}\n}",
				Snippet: true,
				Info:    "A type with parents.",
				Detail:  "type",
				Kind:    visitor.CompletionKeyword,
			},
			{
				Label:   "type ... { ... }",
				Apply:   "type ${name} {\n\t${}\n}",
				Snippet: true,
				Info:    "A type without parents.",
				Detail:  "type",
				Kind:    visitor.CompletionKeyword,
			},
		}
	},
	Options: &visitor.Options{RunDespiteErrors: true},
})

func applyBody(t *typing.Type, body map[string]any) {
	t.Folder = stringOf(body["folder"])
	t.Glob = stringOf(body["glob"])
	t.Icon = stringOf(body["icon"])
	t.Prefix, _ = body["prefix"].(*typing.Prefix)
	t.Display, _ = body["display"].(typing.Display)
	t.Style, _ = body["style"].(typing.Style)

	if fields, ok := body["fields"].(map[string]*typing.Field); ok {
		for _, f := range fields {
			t.AddField(f)
		}
	}

	if actions, ok := body["actions"].(map[string]*typing.Action); ok {
		t.Actions = actions
	}

	if methods, ok := body["methods"].(map[string]*typing.Method); ok {
		t.Methods = methods
	}

	if hooks, ok := body["hooks"].(typing.Hooks); ok {
		t.Hooks = hooks
	}
}
