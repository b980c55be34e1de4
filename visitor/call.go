package visitor

import (
	"slices"

	"go.uber.org/zap"

	"github.com/otl-lang/otl"
)

// Call is the active frame of a handler operation: the handler, the node it
// runs on and the context. Handler functions receive it and use it to
// dispatch to children, report diagnostics and inspect enclosing frames.
type Call struct {
	ctx     *Context
	node    *otl.Node
	handler *Handler
	op      Op
}

// Node returns the node the frame operates on.
func (c *Call) Node() *otl.Node { return c.node }

// Handler returns the handler executing in this frame.
func (c *Call) Handler() *Handler { return c.handler }

// Op returns the operation of the frame.
func (c *Call) Op() Op { return c.op }

// Context returns the analysis context.
func (c *Call) Context() *Context { return c.ctx }

// Env returns the context's domain environment.
func (c *Call) Env() any { return c.ctx.Env }

// Logger returns the context's logger.
func (c *Call) Logger() *zap.Logger { return c.ctx.Logger }

// Path returns the path of the analysed source.
func (c *Call) Path() string { return c.ctx.Path }

// Child returns the handler's child registered under key.
func (c *Call) Child(key string) *Handler { return c.handler.Child(key) }

// Super returns the handler this frame's handler was derived from.
func (c *Call) Super() *Handler { return c.handler.super }

// Util returns the handler's utility registered under key.
func (c *Call) Util(key string) any { return c.handler.Util(key) }

// Util returns the handler utility under key converted to T. It returns the
// zero value when missing or of another type.
func Util[T any](c *Call, key string) T {
	v, _ := c.handler.Util(key).(T)

	return v
}

// Text returns the source text of n, or of the frame's node when n is nil.
func (c *Call) Text(n *otl.Node) string {
	if n == nil {
		n = c.node
	}

	return n.Text(c.ctx.Source)
}

// Nested operations. These never start a new top-level call.

// Accept reports whether h accepts n.
func (c *Call) Accept(h *Handler, n *otl.Node) bool { return c.ctx.accept(h, n) }

// Run evaluates h on n.
func (c *Call) Run(h *Handler, n *otl.Node) any { return c.ctx.run(h, n) }

// Lint lints h on n.
func (c *Call) Lint(h *Handler, n *otl.Node) LintResult { return c.ctx.lint(h, n) }

// Complete collects completions of h on n at pos.
func (c *Call) Complete(h *Handler, n *otl.Node, pos int) []Completion {
	return c.ctx.complete(h, n, pos)
}

// Snippets returns the template completions h offers for insertion at the
// frame's node.
func (c *Call) Snippets(h *Handler) []Completion { return c.ctx.snippets(h, c.node) }

// Symbols extracts the symbols h exposes on n.
func (c *Call) Symbols(h *Handler, n *otl.Node) []Symbol { return c.ctx.symbols(h, n) }

// Hover returns hover content of h on n at pos.
func (c *Call) Hover(h *Handler, n *otl.Node, pos int) *Hover { return c.ctx.hover(h, n, pos) }

// Decorations collects decorations of h on n.
func (c *Call) Decorations(h *Handler, n *otl.Node) []Decoration {
	return c.ctx.decorations(h, n)
}

// RunChildren runs the handler's children over the node's children and
// returns the non-nil value per key; a later node claimed by the same key
// replaces an earlier value. With no keys every child is a candidate.
func (c *Call) RunChildren(keys ...string) map[string]any {
	return c.runChildren(keys, false)
}

// RunChildrenEager is RunChildren that stops as soon as every key has a
// value, so the first value per key wins.
func (c *Call) RunChildrenEager(keys ...string) map[string]any {
	return c.runChildren(keys, true)
}

// RunChild returns the value produced by the child under key.
func (c *Call) RunChild(key string) any {
	return c.runChildren([]string{key}, false)[key]
}

func (c *Call) runChildren(keys []string, eager bool) map[string]any {
	result := make(map[string]any)

	t := Traversal{Select: keys}
	if eager && len(keys) > 0 {
		t.ExitCriterion = func() bool { return len(result) == len(keys) }
	}

	c.Traverse(func(n *otl.Node, child *Handler, key string) {
		if v := c.ctx.run(child, n); v != nil {
			result[key] = v
		}
	}, t)

	return result
}

// LintChildren lints the children selected by t (by default, those whose
// handlers lint) and aggregates their diagnostics.
func (c *Call) LintChildren(t Traversal) LintResult {
	var result LintResult

	if len(c.handler.lintChildren) == 0 {
		return result
	}

	if t.Select == nil {
		t.Select = c.handler.lintChildren
	}

	c.Traverse(func(n *otl.Node, child *Handler, _ string) {
		r := c.ctx.lint(child, n)
		result.Diagnostics = append(result.Diagnostics, r.Diagnostics...)
		result.HasErrors = result.HasErrors || r.HasErrors
	}, t)

	return result
}

// Diagnostics.

// Error reports an error on node, or on the frame's node when none is given.
func (c *Call) Error(message string, node ...*otl.Node) {
	c.report(SeverityError, message, node)
}

// Warning reports a warning.
func (c *Call) Warning(message string, node ...*otl.Node) {
	c.report(SeverityWarning, message, node)
}

// Info reports an informational diagnostic.
func (c *Call) Info(message string, node ...*otl.Node) {
	c.report(SeverityInfo, message, node)
}

// JoinDiagnostics adds diagnostics produced elsewhere to this frame.
func (c *Call) JoinDiagnostics(ds []Diagnostic) {
	e := c.ctx.entry(c.node, c.handler)
	e.diagnostics = append(e.diagnostics, ds...)
}

func (c *Call) report(sev Severity, message string, nodes []*otl.Node) {
	target := c.node
	if len(nodes) > 0 && nodes[0] != nil {
		target = nodes[0]
	}

	c.JoinDiagnostics([]Diagnostic{{From: target.From, To: target.To, Severity: sev, Message: message}})
}

// Query selects an enclosing frame by tag or by node kind.
type Query struct {
	Tags  []string
	Rules []otl.Kind
}

// GetParent returns the innermost active frame, this one included, whose
// handler carries one of q.Tags or accepts one of q.Rules.
func (c *Call) GetParent(q Query) *Call {
	stack := c.ctx.stack

	for i := len(stack) - 1; i >= 0; i-- {
		h := stack[i].handler

		for _, tag := range q.Tags {
			if h.HasTag(tag) {
				return stack[i]
			}
		}

		for _, rule := range q.Rules {
			if slices.Contains(h.args.Rules, rule) {
				return stack[i]
			}
		}
	}

	return nil
}
