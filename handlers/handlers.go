// Package handlers is the library of composable OTL handlers: literals,
// attributes, sections, scopes, tagged strings, parameter lists, field
// types, fields and imports. Grammar-level handlers in package schema are
// assembled from these.
package handlers

import (
	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
)

// Env is the environment handlers expect in visitor.Context.Env.
type Env struct {
	// Importer evaluates imported modules. Every import is an invalid
	// module when it is nil.
	Importer Importer

	// SafeMode disables embedded scripts: scripted strings produce a
	// warning and evaluate to nothing.
	SafeMode bool
}

// ImportResult is the outcome of evaluating an imported module.
type ImportResult struct {
	Types map[string]*typing.Type

	// Error is the module's diagnostic text, empty when it evaluated
	// cleanly.
	Error string
}

// Importer resolves and evaluates modules referenced by import statements.
type Importer interface {
	// Import evaluates the module at path, relative to the importing file
	// from. It returns nil when the module cannot be resolved.
	Import(path, from string) *ImportResult
}

// EnvOf returns the Env of the call's context, or an empty Env.
func EnvOf(c *visitor.Call) *Env {
	if env, ok := c.Env().(*Env); ok && env != nil {
		return env
	}

	return &Env{}
}

func kinds(ks ...otl.Kind) []otl.Kind { return ks }

// firstChild returns the first child of the frame's node.
func firstChild(c *visitor.Call) *otl.Node { return c.Node().FirstChild() }

// none is a non-nil empty completion list; it stops enclosing handlers
// from offering their own completions.
func none() []visitor.Completion { return []visitor.Completion{} }
