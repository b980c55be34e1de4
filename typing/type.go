// Package typing holds the schema model produced by evaluating OTL modules:
// types with fields, actions, methods and hooks, the inheritance merge
// between them and the graph that indexes them for lookup.
package typing

import (
	"maps"
	"slices"
)

// Type is a named record schema.
type Type struct {
	Name       string
	IsAbstract bool

	// ParentNames are the parents as written in the extends clause.
	ParentNames []string

	// Parents are the resolved parents in declared order.
	Parents []*Type

	Folder string
	Glob   string
	Icon   string
	Prefix *Prefix

	Display Display
	Style   Style

	Fields  map[string]*Field
	Actions map[string]*Action
	Methods map[string]*Method
	Hooks   Hooks

	ancestors map[string]*Type

	// own holds the entries declared on the type itself, captured on the
	// first Inherit so later parents can replace earlier ones.
	own *ownEntries
}

type ownEntries struct {
	fields  map[string]*Field
	actions map[string]*Action
	methods map[string]*Method
}

// NewType creates an empty type.
func NewType(name string) *Type {
	return &Type{
		Name:      name,
		Fields:    make(map[string]*Field),
		Actions:   make(map[string]*Action),
		Methods:   make(map[string]*Method),
		Hooks:     make(Hooks),
		ancestors: make(map[string]*Type),
	}
}

// Inherit merges parent into t. Fields, actions and methods of t replace
// same-named parent entries; scalar settings are taken from the parent only
// when unset on t. IsAbstract, Folder, Glob, Parents and ParentNames are
// never inherited. Parents applied later overwrite earlier ones.
func (t *Type) Inherit(parent *Type) {
	if t.own == nil {
		t.own = &ownEntries{
			fields:  maps.Clone(t.Fields),
			actions: maps.Clone(t.Actions),
			methods: maps.Clone(t.Methods),
		}
	}

	t.Fields = mergeEntries(t.Fields, parent.Fields, t.own.fields)
	t.Actions = mergeEntries(t.Actions, parent.Actions, t.own.actions)
	t.Methods = mergeEntries(t.Methods, parent.Methods, t.own.methods)

	if t.Icon == "" {
		t.Icon = parent.Icon
	}

	if t.Prefix == nil {
		t.Prefix = parent.Prefix
	}

	t.Display.inherit(parent.Display)
	t.Style.inherit(parent.Style)

	if t.Hooks == nil {
		t.Hooks = make(Hooks)
	}

	for name, hook := range parent.Hooks {
		if _, ok := t.Hooks[name]; !ok {
			t.Hooks[name] = hook
		}
	}

	t.rebindFields()
	t.indexAncestors()
}

// AddParent appends parent to the resolved parents and inherits from it.
func (t *Type) AddParent(parent *Type) {
	t.Parents = append(t.Parents, parent)
	t.Inherit(parent)
}

// mergeEntries layers the maps left to right, later keys winning.
func mergeEntries[V any](layers ...map[string]V) map[string]V {
	merged := make(map[string]V)
	for _, layer := range layers {
		maps.Copy(merged, layer)
	}

	return merged
}

// rebindFields makes every field point back at t. Inherited fields are
// copied so the parent's fields keep their owner.
func (t *Type) rebindFields() {
	for name, f := range t.Fields {
		if f.Owner != t {
			t.Fields[name] = f.Bind(t)
		}
	}
}

func (t *Type) indexAncestors() {
	t.ancestors = make(map[string]*Type)

	var walk func(*Type)
	walk = func(ty *Type) {
		for _, p := range ty.Parents {
			if _, seen := t.ancestors[p.Name]; seen {
				continue
			}

			t.ancestors[p.Name] = p
			walk(p)
		}
	}

	walk(t)
}

// Ancestor returns the transitive parent called name, or nil.
func (t *Type) Ancestor(name string) *Type {
	return t.ancestors[name]
}

// Ancestors returns the names of all transitive parents, sorted.
func (t *Type) Ancestors() []string {
	return slices.Sorted(maps.Keys(t.ancestors))
}

// IsAncestorOf reports whether t is a transitive parent of other.
func (t *Type) IsAncestorOf(other *Type) bool {
	return other != nil && other.ancestors[t.Name] != nil
}

// IsDescendantOf reports whether other is a transitive parent of t.
func (t *Type) IsDescendantOf(other *Type) bool {
	return other != nil && t.ancestors[other.Name] != nil
}

// IsCreatable reports whether notes of this type can be created, which
// requires a folder to create them in.
func (t *Type) IsCreatable() bool {
	return t.Folder != ""
}

// FieldNames returns the field names, sorted.
func (t *Type) FieldNames() []string {
	return slices.Sorted(maps.Keys(t.Fields))
}

// Alias returns a shallow copy of t registered under name. The copy
// shares fields and parents with t.
func (t *Type) Alias(name string) *Type {
	c := *t
	c.Name = name
	c.Fields = maps.Clone(t.Fields)
	c.ancestors = maps.Clone(t.ancestors)
	c.rebindFields()

	return &c
}

// AddField declares f on t.
func (t *Type) AddField(f *Field) {
	if t.Fields == nil {
		t.Fields = make(map[string]*Field)
	}

	f.Owner = t
	t.Fields[f.Name] = f
}

// Ordered returns the types of a module with every parent before its
// children and otherwise sorted by name.
func Ordered(types map[string]*Type) []*Type {
	out := make([]*Type, 0, len(types))
	seen := make(map[*Type]bool, len(types))

	var visit func(t *Type)
	visit = func(t *Type) {
		if seen[t] {
			return
		}

		seen[t] = true

		for _, p := range t.Parents {
			if types[p.Name] == p {
				visit(p)
			}
		}

		out = append(out, t)
	}

	for _, name := range slices.Sorted(maps.Keys(types)) {
		visit(types[name])
	}

	return out
}
