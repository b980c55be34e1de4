package lsp

import (
	"context"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
)

// DocumentSymbol handles textDocument/documentSymbol requests.
// Returns a hierarchical outline: types with their sections and
// attributes, and imported types.
func (s *Server) DocumentSymbol(_ context.Context, params *protocol.DocumentSymbolParams) ([]any, error) {
	s.logger.Debug("DocumentSymbol",
		zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	a := doc.current()
	if a == nil {
		return nil, nil
	}

	var symbols []any

	for _, sym := range a.Symbols {
		if sym.Node == nil || sym.NameNode == nil || strings.TrimSpace(sym.Name) == "" {
			continue
		}

		switch sym.Node.Kind {
		case otl.KindTypeDeclaration:
			symbols = append(symbols, typeSymbol(a, sym.Name, sym.Node, sym.NameNode))
		case otl.KindImportedSymbol:
			symbols = append(symbols, protocol.DocumentSymbol{
				Name:           sym.Name,
				Detail:         importDetail(a.Tree.Source, sym.Node),
				Kind:           protocol.SymbolKindModule,
				Range:          nodeRange(a.Lines, sym.Node),
				SelectionRange: nodeRange(a.Lines, sym.NameNode),
			})
		}
	}

	return symbols, nil
}

// importDetail returns the path a symbol is imported from.
func importDetail(src string, sym *otl.Node) string {
	imp := enclosing(sym, otl.KindImportStatement)
	if imp == nil {
		return ""
	}

	return "from " + imp.Child(otl.KindString).Text(src)
}

func typeSymbol(a *Analysis, name string, decl, nameNode *otl.Node) protocol.DocumentSymbol {
	sym := protocol.DocumentSymbol{
		Name:           name,
		Kind:           protocol.SymbolKindClass,
		Range:          nodeRange(a.Lines, decl),
		SelectionRange: nodeRange(a.Lines, nameNode),
	}

	if t, ok := a.Env[name]; ok && len(t.ParentNames) > 0 {
		sym.Detail = "extends " + strings.Join(t.ParentNames, ", ")
	}

	if body := decl.Child(otl.KindTypeBody); body != nil {
		sym.Children = blockSymbols(a, body)
	}

	return sym
}

// blockSymbols returns the sections and attributes of a type body or
// section body.
func blockSymbols(a *Analysis, block *otl.Node) []protocol.DocumentSymbol {
	src := a.Tree.Source

	var out []protocol.DocumentSymbol

	for _, n := range block.Children {
		switch n.Kind {
		case otl.KindSectionDeclaration:
			nameNode := declName(n)
			if nameNode == nil {
				continue
			}

			sym := protocol.DocumentSymbol{
				Name:           nameOf(src, nameNode),
				Kind:           protocol.SymbolKindNamespace,
				Range:          nodeRange(a.Lines, n),
				SelectionRange: nodeRange(a.Lines, nameNode),
			}

			if body := n.Child(otl.KindSectionBody); body != nil {
				sym.Children = blockSymbols(a, body)
			}

			out = append(out, sym)
		case otl.KindAssignment:
			nameNode := n.Child(otl.KindAssignmentName).FirstChild()
			if nameNode == nil {
				continue
			}

			sym := protocol.DocumentSymbol{
				Name:           nameOf(src, nameNode),
				Kind:           protocol.SymbolKindProperty,
				Range:          nodeRange(a.Lines, n),
				SelectionRange: nodeRange(a.Lines, nameNode),
			}

			if typ := n.Child(otl.KindAssignmentType); typ != nil {
				sym.Kind = protocol.SymbolKindField
				sym.Detail = typ.Text(src)
			}

			out = append(out, sym)
		}
	}

	return out
}
