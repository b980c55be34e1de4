package handlers

import (
	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/visitor"
)

const argKey = "__arg"

// Param is an evaluated parameter together with its node.
type Param struct {
	Value any
	Node  *otl.Node
}

// ParamsSpec describes a `[arg, ..., key = value, ...]` parameter list.
type ParamsSpec struct {
	// Args evaluates positional parameters. When nil, every positional
	// parameter is reported as unexpected.
	Args *visitor.Handler

	// ArgsLabel names the positional parameters in signature help.
	ArgsLabel string

	// Kwargs evaluate keyword parameters, keyed by parameter name.
	Kwargs []visitor.Child

	// Lint optionally validates the evaluated parameters.
	Lint func(c *visitor.Call, args []Param, kwargs map[string]Param)

	// Init builds the list's value from the positional values (nil values
	// dropped) and the keyword values that were given.
	Init func(args []any, kwargs map[string]any) any
}

// Parameters builds the handler of a parameter list. Positional parameters
// must precede keyword parameters, keyword parameters must be known and
// may appear once.
func Parameters(spec ParamsSpec) *visitor.Handler {
	var argChildren []visitor.Child
	if spec.Args != nil {
		argChildren = append(argChildren, visitor.Named("literal", Proxy(kinds(otl.KindParameterValue), spec.Args)))
	}

	arg := visitor.New(visitor.Args{
		Name:     "Arg",
		Rules:    kinds(otl.KindParameter),
		Children: argChildren,
		Accept: func(c *visitor.Call) bool {
			return c.Node().Child(otl.KindParameterName) == nil
		},
		Run: func(c *visitor.Call) any {
			return c.RunChild("literal")
		},
	})

	children := []visitor.Child{visitor.Named(argKey, arg)}
	keys := make([]string, 0, len(spec.Kwargs))

	for _, kw := range spec.Kwargs {
		children = append(children, visitor.Named(kw.Key, kwarg(kw.Key, kw.Handler)))
		keys = append(keys, kw.Key)
	}

	return visitor.New(visitor.Args{
		Name:     "Parameters",
		Rules:    kinds(otl.KindParameterList),
		Children: children,
		Run: func(c *visitor.Call) any {
			var args []any

			c.Traverse(func(n *otl.Node, child *visitor.Handler, key string) {
				if key != argKey {
					return
				}

				if v := c.Run(child, n); v != nil {
					args = append(args, v)
				}
			}, visitor.Traversal{})

			kwargs := map[string]any{}
			if len(keys) > 0 {
				kwargs = c.RunChildren(keys...)
			}

			return spec.Init(args, kwargs)
		},
		Lint: func(c *visitor.Call) {
			var (
				metKwarg       bool
				argsAfterKwarg []*otl.Node
				notAccepted    []*otl.Node
				repeated       []*otl.Node
				args           []Param
			)

			kwargs := make(map[string]Param)

			c.Traverse(func(n *otl.Node, child *visitor.Handler, key string) {
				if key == argKey {
					if metKwarg {
						argsAfterKwarg = append(argsAfterKwarg, n)
					}

					if spec.Args == nil {
						notAccepted = append(notAccepted, n)

						return
					}

					args = append(args, Param{Value: c.Run(child, n), Node: n})

					return
				}

				metKwarg = true

				for _, sym := range c.Symbols(child, n) {
					if _, ok := kwargs[sym.Name]; ok {
						repeated = append(repeated, sym.Node)
					}

					kwargs[sym.Name] = Param{Value: c.Run(child, sym.Node), Node: sym.Node}
				}
			}, visitor.Traversal{
				NotAccepted: func(n *otl.Node) { notAccepted = append(notAccepted, n) },
			})

			if spec.Lint != nil {
				spec.Lint(c, args, kwargs)
			}

			for _, n := range argsAfterKwarg {
				c.Error("Args should go strictly before kwargs.", n)
			}

			for _, n := range notAccepted {
				c.Error("Unexpected parameter.", n)
			}

			for _, n := range repeated {
				c.Error("Repeated parameter.", n)
			}
		},
		Complete: func(c *visitor.Call, _ int) []visitor.Completion {
			given := make(map[string]bool)

			c.Traverse(func(n *otl.Node, child *visitor.Handler, key string) {
				if key != argKey {
					given[key] = true
				}
			}, visitor.Traversal{})

			out := none()

			for _, key := range keys {
				if given[key] {
					continue
				}

				out = append(out, visitor.Completion{
					Label:   key + " = ...",
					Apply:   key + " = ${}",
					Snippet: true,
					Detail:  "parameter",
					Kind:    visitor.CompletionProperty,
					Symbol:  key,
				})
			}

			return out
		},
	})
}

func kwarg(key string, value *visitor.Handler) *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:     "Kwarg(" + key + ")",
		Rules:    kinds(otl.KindParameter),
		Children: []visitor.Child{visitor.Named("value", Proxy(kinds(otl.KindParameterValue), value))},
		Accept: func(c *visitor.Call) bool {
			name := c.Node().Child(otl.KindParameterName)

			return name != nil && c.Text(name) == key
		},
		Run: func(c *visitor.Call) any {
			return c.RunChild("value")
		},
		Symbols: func(c *visitor.Call) []visitor.Symbol {
			return []visitor.Symbol{{Name: key, Node: c.Node(), NameNode: c.Node().Child(otl.KindParameterName)}}
		},
	})
}
