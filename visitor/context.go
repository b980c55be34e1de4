package visitor

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/otl-lang/otl"
)

// Context carries the state of analysis calls over one source: the frame
// stack, the memo cache and the failure sink. The cache is discarded at
// the start of every top-level call.
type Context struct {
	// Source is the text the analysed tree was parsed from.
	Source string

	// Path identifies the source in diagnostics and logs.
	Path string

	// Env holds domain services handlers look up (import, script
	// compilation, settings). The visitor package never inspects it.
	Env any

	Logger *zap.Logger

	mu     sync.Mutex
	active bool

	stack    []*Call
	cache    map[cacheKey]*entry
	failures []Diagnostic
	calls    map[Op]int
}

type cacheKey struct {
	node    *otl.Node
	handler *Handler
}

type entry struct {
	accept      *bool
	run         any
	ran         bool
	lint        *LintResult
	symbols     []Symbol
	hasSymbols  bool
	diagnostics []Diagnostic
}

// NewContext creates a context over source.
func NewContext(source, path string, env any, logger *zap.Logger) *Context {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Context{Source: source, Path: path, Env: env, Logger: logger}
}

// Run evaluates h on n as a new top-level call.
func (ctx *Context) Run(h *Handler, n *otl.Node) (any, error) {
	if err := ctx.begin(); err != nil {
		return nil, err
	}
	defer ctx.end()

	return ctx.run(h, n), nil
}

// Lint lints h on n as a new top-level call.
func (ctx *Context) Lint(h *Handler, n *otl.Node) (LintResult, error) {
	if err := ctx.begin(); err != nil {
		return LintResult{}, err
	}
	defer ctx.end()

	return ctx.lint(h, n), nil
}

// Complete collects completions at pos as a new top-level call.
func (ctx *Context) Complete(h *Handler, n *otl.Node, pos int) ([]Completion, error) {
	if err := ctx.begin(); err != nil {
		return nil, err
	}
	defer ctx.end()

	return ctx.complete(h, n, pos), nil
}

// Symbols extracts the symbols h exposes on n as a new top-level call.
func (ctx *Context) Symbols(h *Handler, n *otl.Node) ([]Symbol, error) {
	if err := ctx.begin(); err != nil {
		return nil, err
	}
	defer ctx.end()

	return ctx.symbols(h, n), nil
}

// Hover returns hover content at pos as a new top-level call.
func (ctx *Context) Hover(h *Handler, n *otl.Node, pos int) (*Hover, error) {
	if err := ctx.begin(); err != nil {
		return nil, err
	}
	defer ctx.end()

	return ctx.hover(h, n, pos), nil
}

// Decorations collects decorations as a new top-level call.
func (ctx *Context) Decorations(h *Handler, n *otl.Node) ([]Decoration, error) {
	if err := ctx.begin(); err != nil {
		return nil, err
	}
	defer ctx.end()

	return ctx.decorations(h, n), nil
}

// Failures returns the handler failures recorded during the last top-level
// call outside of linting.
func (ctx *Context) Failures() []Diagnostic {
	return append([]Diagnostic(nil), ctx.failures...)
}

// Calls returns how many times each operation was entered during the last
// top-level call, including cache hits.
func (ctx *Context) Calls() map[Op]int {
	out := make(map[Op]int, len(ctx.calls))
	for op, n := range ctx.calls {
		out[op] = n
	}

	return out
}

func (ctx *Context) begin() error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if ctx.active {
		return ErrBusy
	}

	ctx.active = true
	ctx.stack = ctx.stack[:0]
	ctx.cache = make(map[cacheKey]*entry)
	ctx.failures = nil
	ctx.calls = make(map[Op]int)

	return nil
}

func (ctx *Context) end() {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	ctx.stack = ctx.stack[:0]
	ctx.active = false
}

func (ctx *Context) entry(n *otl.Node, h *Handler) *entry {
	key := cacheKey{node: n, handler: h}

	e, ok := ctx.cache[key]
	if !ok {
		e = &entry{}
		ctx.cache[key] = e
	}

	return e
}

func (ctx *Context) push(h *Handler, n *otl.Node, op Op) *Call {
	c := &Call{ctx: ctx, node: n, handler: h, op: op}
	ctx.stack = append(ctx.stack, c)
	ctx.calls[op]++

	return c
}

func (ctx *Context) pop() {
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
}

// guard runs fn and converts a panic into an error diagnostic on the
// current node, returning def instead.
func guard[T any](c *Call, op Op, def T, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			c.ctx.fail(c, op, r)
			out = def
		}
	}()

	return fn()
}

func (ctx *Context) fail(c *Call, op Op, r any) {
	ctx.Logger.Error("handler failed",
		zap.String("op", op.String()),
		zap.String("handler", c.handler.args.Name),
		zap.String("node", string(c.node.Kind)),
		zap.Int("from", c.node.From),
		zap.Int("to", c.node.To),
		zap.String("path", ctx.Path),
		zap.String("panic", fmt.Sprint(r)),
	)

	d := Diagnostic{From: c.node.From, To: c.node.To, Severity: SeverityError, Message: op.String() + "() failed."}
	e := ctx.entry(c.node, c.handler)
	e.diagnostics = append(e.diagnostics, d)

	if op != OpLint {
		ctx.failures = append(ctx.failures, d)
	}
}

// Operations. Each one checks acceptance first and yields the empty result
// for nodes the handler does not accept.

func (ctx *Context) accept(h *Handler, n *otl.Node) bool {
	if n == nil || h == nil {
		return false
	}

	e := ctx.entry(n, h)
	if e.accept != nil && h.cached(OpAccept) {
		ctx.calls[OpAccept]++

		return *e.accept
	}

	c := ctx.push(h, n, OpAccept)
	defer ctx.pop()

	ok := h.matches(n.Kind)
	if ok && h.args.Accept != nil {
		ok = guard(c, OpAccept, false, func() bool { return h.args.Accept(c) })
	}

	e.accept = &ok

	return ok
}

func (ctx *Context) run(h *Handler, n *otl.Node) any {
	if !ctx.accept(h, n) {
		return nil
	}

	if ctx.lint(h, n).HasErrors && !h.options.RunDespiteErrors {
		return nil
	}

	e := ctx.entry(n, h)
	if e.ran && h.cached(OpRun) {
		ctx.calls[OpRun]++

		return e.run
	}

	c := ctx.push(h, n, OpRun)
	defer ctx.pop()

	var result any
	if h.args.Run != nil {
		result = guard(c, OpRun, nil, func() any { return h.args.Run(c) })
	}

	e.run, e.ran = result, true

	return result
}

func (ctx *Context) lint(h *Handler, n *otl.Node) LintResult {
	if !h.hasLint {
		return LintResult{}
	}

	if !ctx.accept(h, n) {
		return LintResult{HasErrors: true}
	}

	e := ctx.entry(n, h)
	if e.lint != nil && h.cached(OpLint) {
		ctx.calls[OpLint]++

		return *e.lint
	}

	c := ctx.push(h, n, OpLint)
	defer ctx.pop()

	diagnostics := c.LintChildren(Traversal{}).Diagnostics

	e.diagnostics = nil

	if h.args.Lint != nil {
		guard(c, OpLint, struct{}{}, func() struct{} {
			h.args.Lint(c)

			return struct{}{}
		})
	}

	diagnostics = append(diagnostics, e.diagnostics...)
	result := LintResult{Diagnostics: diagnostics, HasErrors: hasErrors(diagnostics)}
	e.lint = &result

	return result
}

func (ctx *Context) complete(h *Handler, n *otl.Node, pos int) []Completion {
	if !ctx.accept(h, n) {
		return nil
	}

	c := ctx.push(h, n, OpComplete)
	defer ctx.pop()

	var result []Completion

	c.Traverse(func(child *otl.Node, ch *Handler, _ string) {
		if completions := ctx.complete(ch, child, pos); completions != nil {
			result = completions
		}
	}, Traversal{
		NodeFilter:    func(child *otl.Node) bool { return child.Contains(pos) },
		ExitCriterion: func() bool { return result != nil },
	})

	if result == nil && h.args.Complete != nil {
		result = guard(c, OpComplete, nil, func() []Completion { return h.args.Complete(c, pos) })
	}

	return result
}

func (ctx *Context) snippets(h *Handler, n *otl.Node) []Completion {
	if h.args.Snippets == nil {
		return nil
	}

	c := ctx.push(h, n, OpSnippets)
	defer ctx.pop()

	return guard(c, OpSnippets, nil, func() []Completion { return h.args.Snippets(c) })
}

func (ctx *Context) symbols(h *Handler, n *otl.Node) []Symbol {
	if !ctx.accept(h, n) {
		return nil
	}

	e := ctx.entry(n, h)
	if e.hasSymbols && h.cached(OpSymbols) {
		ctx.calls[OpSymbols]++

		return e.symbols
	}

	c := ctx.push(h, n, OpSymbols)
	defer ctx.pop()

	var result []Symbol
	if h.args.Symbols != nil {
		result = guard(c, OpSymbols, nil, func() []Symbol { return h.args.Symbols(c) })
	}

	e.symbols, e.hasSymbols = result, true

	return result
}

func (ctx *Context) hover(h *Handler, n *otl.Node, pos int) *Hover {
	if !h.hasHover || !ctx.accept(h, n) {
		return nil
	}

	c := ctx.push(h, n, OpHover)
	defer ctx.pop()

	var result *Hover

	if len(h.hoverChildren) > 0 {
		c.Traverse(func(child *otl.Node, ch *Handler, _ string) {
			if hv := ctx.hover(ch, child, pos); hv != nil {
				result = hv
			}
		}, Traversal{
			Select:        h.hoverChildren,
			NodeFilter:    func(child *otl.Node) bool { return child.Contains(pos) },
			ExitCriterion: func() bool { return result != nil },
		})
	}

	if result == nil && h.args.Hover != nil {
		result = guard(c, OpHover, nil, func() *Hover { return h.args.Hover(c, pos) })
	}

	return result
}

func (ctx *Context) decorations(h *Handler, n *otl.Node) []Decoration {
	if !h.hasDecorations || !ctx.accept(h, n) {
		return nil
	}

	c := ctx.push(h, n, OpDecorations)
	defer ctx.pop()

	var result []Decoration

	if len(h.decorationChildren) > 0 {
		c.Traverse(func(child *otl.Node, ch *Handler, _ string) {
			result = append(result, ctx.decorations(ch, child)...)
		}, Traversal{Select: h.decorationChildren})
	}

	if h.args.Decorations != nil {
		result = append(result, guard(c, OpDecorations, nil, func() []Decoration { return h.args.Decorations(c) })...)
	}

	return result
}
