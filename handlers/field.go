package handlers

import (
	"fmt"
	"strings"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/script"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
)

// fieldTypeEntry registers a field type name. A nil spec means the type
// takes no parameters.
type fieldTypeEntry struct {
	name   string
	zero   func() typing.FieldType
	spec   *ParamsSpec
	params *visitor.Handler
}

// fieldTypes is the registry in declaration order. It is assigned in init
// because List and Required nest FieldType, which reads the registry.
var fieldTypes []fieldTypeEntry

func init() {
	fieldTypes = newFieldTypes()
}

// FieldTypeNames returns the registered field type names in order.
func FieldTypeNames() []string {
	names := make([]string, 0, len(fieldTypes))
	for _, e := range fieldTypes {
		names = append(names, e.name)
	}

	return names
}

// FieldSignature describes the parameters a field type accepts.
type FieldSignature struct {
	Name string

	// Args names the positional parameters; empty when there are none.
	Args string

	Kwargs []string
}

// Label renders the signature as `Name[args, key = , ...]`.
func (s FieldSignature) Label() string {
	return s.Name + "[" + strings.Join(s.Params(), ", ") + "]"
}

// Params returns the parameter labels in order: the positional
// parameters, then the keyword parameters.
func (s FieldSignature) Params() []string {
	var out []string
	if s.Args != "" {
		out = append(out, s.Args)
	}

	for _, k := range s.Kwargs {
		out = append(out, k+" = ")
	}

	return out
}

// FieldTypeSignature returns the signature of the named field type. It
// reports false for unknown types and types without parameters.
func FieldTypeSignature(name string) (FieldSignature, bool) {
	e, ok := lookupFieldType(name)
	if !ok || e.spec == nil {
		return FieldSignature{}, false
	}

	sig := FieldSignature{Name: name}
	if e.spec.Args != nil {
		sig.Args = e.spec.ArgsLabel
	}

	for _, kw := range e.spec.Kwargs {
		sig.Kwargs = append(sig.Kwargs, kw.Key)
	}

	return sig, true
}

func lookupFieldType(name string) (fieldTypeEntry, bool) {
	for _, e := range fieldTypes {
		if e.name == name {
			return e, true
		}
	}

	return fieldTypeEntry{}, false
}

func kw(key string, h *visitor.Handler) visitor.Child { return visitor.Named(key, h) }

func float(v any, def float64) float64 {
	if f, ok := v.(float64); ok {
		return f
	}

	return def
}

func boolean(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}

	return def
}

func str(v any) string {
	s, _ := v.(string)

	return s
}

func strs(vs []any) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

func newFieldTypes() []fieldTypeEntry {
	litString := Literal(String)
	litBool := Literal(Boolean)
	litNumber := Literal(Number)

	entries := []fieldTypeEntry{
		{name: "String", zero: func() typing.FieldType { return &typing.StringType{} }},
		{name: "Text", zero: func() typing.FieldType { return &typing.TextType{} }},
		{
			name: "Number",
			zero: func() typing.FieldType { return typing.NewNumberType() },
			spec: &ParamsSpec{
				Kwargs: []visitor.Child{
					kw("min", litNumber),
					kw("max", litNumber),
					kw("picker", Literal(LiteralString(typing.PickerDropdown, typing.PickerSlider, typing.PickerRating))),
				},
				Lint: func(c *visitor.Call, _ []Param, kwargs map[string]Param) {
					lo, hasMin := kwargs["min"]
					hi, hasMax := kwargs["max"]

					if hasMin && hasMax && float(lo.Value, 0) > float(hi.Value, 0) {
						c.Error("min must not be greater than max", hi.Node)
					}
				},
				Init: func(_ []any, kwargs map[string]any) any {
					t := typing.NewNumberType()
					t.Min = float(kwargs["min"], t.Min)
					t.Max = float(kwargs["max"], t.Max)

					if p := str(kwargs["picker"]); p != "" {
						t.Picker = p
					}

					return t
				},
			},
		},
		{
			name: "Boolean",
			zero: func() typing.FieldType { return &typing.BooleanType{Picker: typing.PickerCheckbox} },
			spec: &ParamsSpec{
				Kwargs: []visitor.Child{kw("picker", Literal(LiteralString(typing.PickerCheckbox)))},
				Init: func(_ []any, _ map[string]any) any {
					return &typing.BooleanType{Picker: typing.PickerCheckbox}
				},
			},
		},
		{
			name: "Choice",
			zero: func() typing.FieldType { return &typing.ChoiceType{Fuzzy: true} },
			spec: &ParamsSpec{
				Args:      litString,
				ArgsLabel: "options...",
				Kwargs:    []visitor.Child{kw("fuzzy", litBool)},
				Init: func(args []any, kwargs map[string]any) any {
					return &typing.ChoiceType{Options: strs(args), Fuzzy: boolean(kwargs["fuzzy"], true)}
				},
			},
		},
		{
			name: "Tag",
			zero: func() typing.FieldType { return &typing.TagType{Fuzzy: true} },
			spec: &ParamsSpec{
				Args:      litString,
				ArgsLabel: "options...",
				Kwargs:    []visitor.Child{kw("dynamic", litBool), kw("fuzzy", litBool)},
				Init: func(args []any, kwargs map[string]any) any {
					return &typing.TagType{
						Options: strs(args),
						Dynamic: boolean(kwargs["dynamic"], false),
						Fuzzy:   boolean(kwargs["fuzzy"], true),
					}
				},
			},
		},
		{name: "Date", zero: func() typing.FieldType { return &typing.DateType{} }},
		{name: "DateTime", zero: func() typing.FieldType { return &typing.DateTimeType{} }},
		{
			name: "Note",
			zero: func() typing.FieldType { return typing.NewNoteType() },
			spec: &ParamsSpec{
				Args:      litString,
				ArgsLabel: "types...",
				Kwargs: []visitor.Child{
					kw("dv", litString),
					kw("subpath", litBool),
					kw("display", litBool),
					kw("short", litBool),
					kw("subtypes", litBool),
					kw("relation", litBool),
					kw("implicit", litBool),
					kw("explicit", litBool),
					kw("inverse", litString),
				},
				Init: func(args []any, kwargs map[string]any) any {
					t := typing.NewNoteType()
					t.TypeNames = strs(args)
					t.DV = str(kwargs["dv"])
					t.Subpath = boolean(kwargs["subpath"], t.Subpath)
					t.Display = boolean(kwargs["display"], t.Display)
					t.Short = boolean(kwargs["short"], t.Short)
					t.Subtypes = boolean(kwargs["subtypes"], t.Subtypes)
					t.Relation = boolean(kwargs["relation"], t.Relation)
					t.Implicit = boolean(kwargs["implicit"], t.Implicit)
					t.Explicit = boolean(kwargs["explicit"], t.Explicit)
					t.Inverse = str(kwargs["inverse"])

					return t
				},
			},
		},
		{
			name: "List",
			zero: func() typing.FieldType { return &typing.ListType{Inner: &typing.StringType{}} },
			spec: &ParamsSpec{
				Args:      FieldType(),
				ArgsLabel: "type",
				Lint:      singleArg("List"),
				Init: func(args []any, _ map[string]any) any {
					return &typing.ListType{Inner: innerType(args)}
				},
			},
		},
		{
			name: "Required",
			zero: func() typing.FieldType { return &typing.RequiredType{Inner: &typing.StringType{}} },
			spec: &ParamsSpec{
				Args:      FieldType(),
				ArgsLabel: "type",
				Lint:      singleArg("Required"),
				Init: func(args []any, _ map[string]any) any {
					return &typing.RequiredType{Inner: innerType(args)}
				},
			},
		},
		{
			name: "File",
			zero: func() typing.FieldType { return &typing.FileType{} },
			spec: &ParamsSpec{
				Kwargs: []visitor.Child{
					kw("kind", litString),
					kw("ext", Literal(List(String, "Allowed file extensions"))),
					kw("folder", litString),
					kw("autorename", Literal(ExprScriptString(""))),
				},
				Init: func(_ []any, kwargs map[string]any) any {
					t := &typing.FileType{Kind: str(kwargs["kind"]), Folder: str(kwargs["folder"])}

					if ext, ok := kwargs["ext"].([]any); ok {
						t.Ext = strs(ext)
					}

					if s, ok := kwargs["autorename"].(*script.Script); ok {
						t.Autorename = s
					}

					return t
				},
			},
		},
	}

	for i := range entries {
		if entries[i].spec != nil {
			entries[i].params = Parameters(*entries[i].spec)
		}
	}

	return entries
}

func singleArg(name string) func(*visitor.Call, []Param, map[string]Param) {
	return func(c *visitor.Call, args []Param, _ map[string]Param) {
		switch {
		case len(args) == 0:
			c.Error(name + " requires a field type")
		case len(args) > 1:
			for _, p := range args[1:] {
				c.Error(name+" takes a single field type", p.Node)
			}
		}
	}
}

func innerType(args []any) typing.FieldType {
	if len(args) > 0 {
		if ft, ok := args[0].(typing.FieldType); ok {
			return ft
		}
	}

	return &typing.StringType{}
}

// FieldType evaluates `Name` or `Name[params]` to a typing.FieldType.
// Without parameters the type's defaults apply.
func FieldType() *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:     "FieldType",
		Rules:    kinds(otl.KindAssignmentType),
		Children: []visitor.Child{visitor.Named("name", Identifier(false))},
		Lint: func(c *visitor.Call) {
			name, _ := c.RunChild("name").(string)
			if name == "" {
				return
			}

			entry, ok := lookupFieldType(name)
			if !ok {
				c.Error(fmt.Sprintf("Unknown field type: %s. Allowed types: %s", name, strings.Join(FieldTypeNames(), ",")))

				return
			}

			params := c.Node().Child(otl.KindParameterList)
			if params == nil {
				return
			}

			if entry.params == nil {
				c.Error(name+" does not take parameters", params)

				return
			}

			c.JoinDiagnostics(c.Lint(entry.params, params).Diagnostics)
		},
		Run: func(c *visitor.Call) any {
			name, _ := c.RunChild("name").(string)

			entry, ok := lookupFieldType(name)
			if !ok {
				return nil
			}

			params := c.Node().Child(otl.KindParameterList)
			if params == nil {
				return entry.zero()
			}

			ft, _ := c.Run(entry.params, params).(typing.FieldType)

			return ft
		},
		Complete: func(c *visitor.Call, pos int) []visitor.Completion {
			name, _ := c.RunChild("name").(string)

			if params := c.Node().Child(otl.KindParameterList); params != nil && params.Contains(pos) && pos > params.From {
				if entry, ok := lookupFieldType(name); ok && entry.params != nil {
					return c.Complete(entry.params, params, pos)
				}

				return none()
			}

			out := make([]visitor.Completion, 0, len(fieldTypes))
			for i, e := range fieldTypes {
				out = append(out, visitor.Completion{Label: e.name, Apply: e.name, Detail: "field type", Kind: visitor.CompletionType, Boost: -i})
			}

			return out
		},
	})
}

// anyValue is a scalar field default.
func anyValue() *visitor.Handler { return Union(String, Number, Boolean) }

// Field evaluates `name: Type[params] = default` to a *typing.Field and
// declares name in the enclosing scope.
func Field() *visitor.Handler {
	nameHandler := Proxy(kinds(otl.KindAssignmentName), Identifier(true))

	return visitor.New(visitor.Args{
		Name:  "Field",
		Rules: kinds(otl.KindAssignment),
		Children: []visitor.Child{
			visitor.Named("name", nameHandler),
			visitor.Named("type", FieldType()),
			visitor.Named("default", assignmentValue(Union(List(anyValue(), "List of values"), anyValue()))),
		},
		Lint: func(c *visitor.Call) {
			if c.Node().Child(otl.KindAssignmentType) == nil {
				c.Error("Missing field type")
			}
		},
		Run: func(c *visitor.Call) any {
			values := c.RunChildren()

			name, _ := values["name"].(string)
			ft, _ := values["type"].(typing.FieldType)

			if name == "" || ft == nil {
				return nil
			}

			f := typing.NewField(name, ft, values["default"])
			f.Span = typing.Span{From: c.Node().From, To: c.Node().To}

			return f
		},
		Symbols: func(c *visitor.Call) []visitor.Symbol {
			return assignmentSymbol(c, nameHandler)
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			return []visitor.Completion{{
				Label: "name: Type", Apply: "${name}: ${Type}", Snippet: true, Detail: "field", Kind: visitor.CompletionProperty,
			}}
		},
	})
}
