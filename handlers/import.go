package handlers

import (
	"fmt"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
)

// ImportedSymbol is one entry of an import list.
type ImportedSymbol struct {
	Symbol string

	// Alias is the local name; it equals Symbol when no alias is given.
	Alias string
	Node  *otl.Node
}

var importedSymbol = visitor.New(visitor.Args{
	Name:  "ImportedSymbol",
	Rules: kinds(otl.KindImportedSymbol),
	Children: []visitor.Child{
		visitor.Named("symbol", Identifier(true)),
		visitor.Named("alias", Proxy(kinds(otl.KindImportAlias), Identifier(true))),
	},
	Run: func(c *visitor.Call) any {
		values := c.RunChildren()
		sym := ImportedSymbol{Node: c.Node()}
		sym.Symbol, _ = values["symbol"].(string)
		sym.Alias, _ = values["alias"].(string)

		if sym.Alias == "" {
			sym.Alias = sym.Symbol
		}

		return sym
	},
})

var importedSymbols = visitor.New(visitor.Args{
	Name:     "ImportedSymbols",
	Rules:    kinds(otl.KindImportedSymbols),
	Children: []visitor.Child{visitor.Named("symbol", importedSymbol)},
	Run: func(c *visitor.Call) any {
		var out []ImportedSymbol

		c.Traverse(func(n *otl.Node, child *visitor.Handler, _ string) {
			if sym, ok := c.Run(child, n).(ImportedSymbol); ok {
				out = append(out, sym)
			}
		}, visitor.Traversal{})

		return out
	},
})

// importStatement evaluates the symbols and path of the frame's import
// statement and imports the module.
func importStatement(c *visitor.Call) ([]ImportedSymbol, string, *ImportResult) {
	values := c.RunChildren("symbols", "path")
	symbols, _ := values["symbols"].([]ImportedSymbol)
	path, _ := values["path"].(string)

	env := EnvOf(c)
	if env.Importer == nil || path == "" {
		return symbols, path, nil
	}

	return symbols, path, env.Importer.Import(path, c.Path())
}

// Import evaluates `import { A, B as C } from "path"` to the imported
// types, renamed to their aliases. The imported module's types are not
// modified.
func Import() *visitor.Handler {
	return visitor.New(visitor.Args{
		Name:  "Import",
		Rules: kinds(otl.KindImportStatement),
		Children: []visitor.Child{
			visitor.Named("symbols", importedSymbols),
			visitor.Named("path", String),
		},
		Lint: func(c *visitor.Call) {
			symbols, path, mod := importStatement(c)

			if mod == nil {
				c.Error("Invalid module")

				return
			}

			if mod.Error != "" {
				c.Error(fmt.Sprintf("Error importing %s:\n%s", path, mod.Error))

				return
			}

			for _, sym := range symbols {
				if _, ok := mod.Types[sym.Symbol]; !ok {
					c.Error("Unknown symbol", sym.Node)
				}
			}
		},
		Run: func(c *visitor.Call) any {
			symbols, _, mod := importStatement(c)
			if mod == nil {
				return nil
			}

			out := make([]*typing.Type, 0, len(symbols))

			for _, sym := range symbols {
				t, ok := mod.Types[sym.Symbol]
				if !ok {
					continue
				}

				out = append(out, t.Alias(sym.Alias))
			}

			return out
		},
		Symbols: func(c *visitor.Call) []visitor.Symbol {
			symbols, _ := c.RunChild("symbols").([]ImportedSymbol)

			out := make([]visitor.Symbol, 0, len(symbols))
			for _, sym := range symbols {
				out = append(out, visitor.Symbol{Name: sym.Alias, NameNode: sym.Node, Node: sym.Node})
			}

			return out
		},
		Snippets: func(*visitor.Call) []visitor.Completion {
			return []visitor.Completion{{
				Label:   "import { ... } from \"...\"",
				Apply:   "import { ${symbols} } from \"${path}\"",
				Snippet: true,
				Info:    "Import types from another module.",
				Kind:    visitor.CompletionKeyword,
			}}
		},
	})
}
