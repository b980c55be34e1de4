// Package visitor implements composable syntax tree handlers.
//
// A Handler is an immutable record of operation functions (accept, run,
// lint, complete, symbols, hover, decorations) bound to a set of node
// kinds, with ordered child handlers used to dispatch over a node's
// children. Handlers are derived from one another with Override and Extend;
// both return a new handler that remembers its base as Super.
//
// Operations execute inside a Context, which owns the frame stack and the
// per-call memo cache. A Context runs one top-level call at a time.
package visitor

import (
	"maps"
	"slices"

	"github.com/otl-lang/otl"
)

// Op identifies a handler operation.
type Op uint8

// Handler operations.
const (
	OpAccept Op = iota
	OpRun
	OpLint
	OpComplete
	OpSnippets
	OpSymbols
	OpHover
	OpDecorations
	OpTraverse
)

var opNames = [...]string{"accept", "run", "lint", "complete", "snippets", "symbols", "hover", "decorations", "traverse"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}

	return "unknown"
}

// Child binds a child handler to a role name.
type Child struct {
	Key     string
	Handler *Handler
}

// Named is shorthand for a Child.
func Named(key string, h *Handler) Child {
	return Child{Key: key, Handler: h}
}

// Options tune caching and traversal for a handler.
type Options struct {
	// Uncached lists operations that are never memoized. Complete, hover
	// and decorations are never memoized regardless.
	Uncached []Op

	// Traversal holds defaults merged under every Traverse call.
	Traversal Traversal

	// RunDespiteErrors evaluates the handler even when its lint reports
	// errors, producing a best-effort value.
	RunDespiteErrors bool
}

// Args describes a handler. Nil functions fall back to the defaults:
// accept everything matching Rules, produce no value, report nothing.
type Args struct {
	// Name is used in logs only.
	Name string

	// Rules is the set of node kinds the handler accepts. Empty accepts any kind.
	Rules []otl.Kind

	// Tags label the handler for GetParent lookups ("scope", "file", ...).
	Tags []string

	// Children are candidate handlers for the node's children, tried in order.
	Children []Child

	// Utils are auxiliary values (often functions taking *Call) that
	// derived handlers may replace.
	Utils map[string]any

	Accept      func(c *Call) bool
	Run         func(c *Call) any
	Lint        func(c *Call)
	Complete    func(c *Call, pos int) []Completion
	Snippets    func(c *Call) []Completion
	Symbols     func(c *Call) []Symbol
	Hover       func(c *Call, pos int) *Hover
	Decorations func(c *Call) []Decoration

	Options *Options
}

// Handler is an immutable composable analysis unit.
type Handler struct {
	args    Args
	options Options
	super   *Handler

	hasLint            bool
	lintChildren       []string
	hasHover           bool
	hoverChildren      []string
	hasDecorations     bool
	decorationChildren []string
}

// New builds a handler.
func New(args Args) *Handler {
	h := &Handler{args: args}

	h.args.Children = slices.Clone(args.Children)
	h.args.Tags = slices.Clone(args.Tags)
	h.args.Rules = slices.Clone(args.Rules)
	h.args.Utils = maps.Clone(args.Utils)

	h.options = Options{Traversal: Traversal{SkipUnmatched: []otl.Kind{otl.KindDelimiter}}}
	if args.Options != nil {
		h.options = mergeOptions(h.options, *args.Options)
	}

	h.hasLint = args.Lint != nil
	h.hasHover = args.Hover != nil
	h.hasDecorations = args.Decorations != nil

	for _, child := range h.args.Children {
		if child.Handler.hasLint {
			h.hasLint = true
			h.lintChildren = append(h.lintChildren, child.Key)
		}

		if child.Handler.hasHover {
			h.hasHover = true
			h.hoverChildren = append(h.hoverChildren, child.Key)
		}

		if child.Handler.hasDecorations {
			h.hasDecorations = true
			h.decorationChildren = append(h.decorationChildren, child.Key)
		}
	}

	return h
}

// Override derives a handler whose supplied functions replace the base
// ones. Rules, tags, children, utils and options are replaced wholesale
// when supplied.
func (h *Handler) Override(args Args) *Handler {
	merged := h.args
	overlay(&merged, args)

	if args.Children != nil {
		merged.Children = args.Children
	}

	if args.Utils != nil {
		merged.Utils = args.Utils
	}

	derived := New(merged)
	derived.super = h

	return derived
}

// Extend derives a handler with additional children and utils. Children
// with an existing key replace the base child in place; new keys are
// appended. Utils are shallow-merged with new keys winning.
func (h *Handler) Extend(args Args) *Handler {
	merged := h.args
	overlay(&merged, args)

	children := slices.Clone(h.args.Children)

	for _, child := range args.Children {
		i := slices.IndexFunc(children, func(c Child) bool { return c.Key == child.Key })
		if i >= 0 {
			children[i] = child
		} else {
			children = append(children, child)
		}
	}

	merged.Children = children

	utils := maps.Clone(h.args.Utils)
	if utils == nil && args.Utils != nil {
		utils = make(map[string]any, len(args.Utils))
	}

	maps.Copy(utils, args.Utils)
	merged.Utils = utils

	derived := New(merged)
	derived.super = h

	return derived
}

func overlay(dst *Args, src Args) {
	if src.Name != "" {
		dst.Name = src.Name
	}

	if src.Rules != nil {
		dst.Rules = src.Rules
	}

	if src.Tags != nil {
		dst.Tags = src.Tags
	}

	if src.Accept != nil {
		dst.Accept = src.Accept
	}

	if src.Run != nil {
		dst.Run = src.Run
	}

	if src.Lint != nil {
		dst.Lint = src.Lint
	}

	if src.Complete != nil {
		dst.Complete = src.Complete
	}

	if src.Snippets != nil {
		dst.Snippets = src.Snippets
	}

	if src.Symbols != nil {
		dst.Symbols = src.Symbols
	}

	if src.Hover != nil {
		dst.Hover = src.Hover
	}

	if src.Decorations != nil {
		dst.Decorations = src.Decorations
	}

	if src.Options != nil {
		dst.Options = src.Options
	}
}

func mergeOptions(base, o Options) Options {
	base.Uncached = o.Uncached
	base.RunDespiteErrors = o.RunDespiteErrors
	base.Traversal = base.Traversal.merge(o.Traversal)

	return base
}

// Super returns the handler this one was derived from, or nil.
func (h *Handler) Super() *Handler {
	return h.super
}

// Args returns a copy of the handler's description. Functions in it can be
// invoked directly with a *Call to reuse base behavior without a nested
// operation.
func (h *Handler) Args() Args {
	a := h.args
	a.Children = slices.Clone(h.args.Children)
	a.Tags = slices.Clone(h.args.Tags)
	a.Utils = maps.Clone(h.args.Utils)

	return a
}

// Name returns the handler's name.
func (h *Handler) Name() string {
	return h.args.Name
}

// Tags returns the handler's tags.
func (h *Handler) Tags() []string {
	return slices.Clone(h.args.Tags)
}

// HasTag reports whether the handler carries tag.
func (h *Handler) HasTag(tag string) bool {
	return slices.Contains(h.args.Tags, tag)
}

// Rules returns the node kinds the handler accepts.
func (h *Handler) Rules() []otl.Kind {
	return slices.Clone(h.args.Rules)
}

// Child returns the child handler registered under key.
func (h *Handler) Child(key string) *Handler {
	for _, c := range h.args.Children {
		if c.Key == key {
			return c.Handler
		}
	}

	return nil
}

// Children returns the ordered child handlers.
func (h *Handler) Children() []Child {
	return slices.Clone(h.args.Children)
}

// Util returns the utility registered under key.
func (h *Handler) Util(key string) any {
	return h.args.Utils[key]
}

// HasLint reports whether the handler or any descendant handler lints.
func (h *Handler) HasLint() bool {
	return h.hasLint
}

func (h *Handler) matches(kind otl.Kind) bool {
	return len(h.args.Rules) == 0 || slices.Contains(h.args.Rules, kind)
}

func (h *Handler) cached(op Op) bool {
	switch op {
	case OpComplete, OpHover, OpDecorations, OpSnippets, OpTraverse:
		return false
	}

	return !slices.Contains(h.options.Uncached, op)
}
