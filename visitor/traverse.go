package visitor

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/otl-lang/otl"
)

// Traversal controls how Traverse walks the frame node's children.
// Zero fields fall back to the handler's defaults.
type Traversal struct {
	// Select restricts candidate child handlers to these keys, in this order.
	Select []string

	// NodeFilter skips nodes for which it returns false.
	NodeFilter func(*otl.Node) bool

	// ExitCriterion stops the walk once it returns true.
	ExitCriterion func() bool

	// SkipAlways lists node kinds never offered to child handlers.
	SkipAlways []otl.Kind

	// SkipUnmatched lists node kinds that are silently ignored when no
	// child handler claims them.
	SkipUnmatched []otl.Kind

	// VisitTop offers the frame node itself before its children.
	VisitTop bool

	// NotAccepted is called for each node no candidate claimed.
	NotAccepted func(*otl.Node)
}

func (t Traversal) merge(o Traversal) Traversal {
	if o.Select != nil {
		t.Select = o.Select
	}

	if o.NodeFilter != nil {
		t.NodeFilter = o.NodeFilter
	}

	if o.ExitCriterion != nil {
		t.ExitCriterion = o.ExitCriterion
	}

	if o.SkipAlways != nil {
		t.SkipAlways = o.SkipAlways
	}

	if o.SkipUnmatched != nil {
		t.SkipUnmatched = o.SkipUnmatched
	}

	if o.NotAccepted != nil {
		t.NotAccepted = o.NotAccepted
	}

	t.VisitTop = t.VisitTop || o.VisitTop

	return t
}

// Visitor is the callback Traverse invokes for each claimed node.
type Visitor func(n *otl.Node, child *Handler, key string)

// Traverse walks the children of the frame node in source order. Each node
// is offered to the candidate child handlers in registration order and the
// first one that accepts it claims it; fn is then invoked once for that
// pair. There is no backtracking after a node has been claimed.
func (c *Call) Traverse(fn Visitor, t Traversal) {
	t = c.handler.options.Traversal.merge(t)

	candidates := c.handler.args.Children
	if t.Select != nil {
		candidates = make([]Child, 0, len(t.Select))

		for _, key := range t.Select {
			if h := c.handler.Child(key); h != nil {
				candidates = append(candidates, Child{Key: key, Handler: h})
			}
		}
	}

	if t.VisitTop {
		if !c.visit(c.node, fn, candidates) && t.NotAccepted != nil {
			c.notAccepted(t.NotAccepted, c.node)
		}
	}

	for _, n := range c.node.Children {
		if t.ExitCriterion != nil && t.ExitCriterion() {
			break
		}

		if slices.Contains(t.SkipAlways, n.Kind) {
			continue
		}

		if t.NodeFilter != nil && !t.NodeFilter(n) {
			continue
		}

		if c.visit(n, fn, candidates) {
			continue
		}

		if slices.Contains(t.SkipUnmatched, n.Kind) {
			continue
		}

		if t.NotAccepted != nil {
			c.notAccepted(t.NotAccepted, n)
		}
	}
}

func (c *Call) visit(n *otl.Node, fn Visitor, candidates []Child) bool {
	for _, child := range candidates {
		if !c.ctx.accept(child.Handler, n) {
			continue
		}

		frame := c.ctx.push(child.Handler, n, OpTraverse)
		c.callback(frame, func() { fn(n, child.Handler, child.Key) })
		c.ctx.pop()

		return true
	}

	return false
}

func (c *Call) notAccepted(fn func(*otl.Node), n *otl.Node) {
	c.callback(c, func() { fn(n) })
}

// callback runs a traversal callback. A panic is logged and swallowed so
// the remaining nodes are still visited.
func (c *Call) callback(frame *Call, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.ctx.Logger.Error("traversal callback failed",
				zap.String("handler", frame.handler.args.Name),
				zap.String("node", string(frame.node.Kind)),
				zap.String("path", c.ctx.Path),
				zap.String("panic", fmt.Sprint(r)),
			)
		}
	}()

	fn()
}
