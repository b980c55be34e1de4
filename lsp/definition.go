package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
)

// maxImportDepth bounds how many re-exports are followed to find a
// declaration.
const maxImportDepth = 8

// Definition handles textDocument/definition requests. Type names jump to
// their declaration, following imports into other modules; import paths
// jump to the imported file.
func (s *Server) Definition(_ context.Context, params *protocol.DefinitionParams) ([]protocol.Location, error) {
	s.logger.Debug("Definition",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	a := doc.current()
	if a == nil {
		return nil, nil
	}

	src := a.Tree.Source
	n := a.Tree.NodeAt(offsetOf(a.Lines, params.Position))

	if n == nil {
		return nil, nil
	}

	// Import path
	if n.Kind == otl.KindString && n.Parent != nil && n.Parent.Kind == otl.KindImportStatement {
		resolved, err := s.in.Loader().ResolvePath(handlers.Unquote(n.Text(src)), doc.Path)
		if err != nil {
			return nil, nil
		}

		return []protocol.Location{{URI: PathToURI(resolved)}}, nil
	}

	// An aliased imported name refers to the other module directly.
	if importedAs(src, n) != "" {
		if loc, ok := s.importedDeclaration(doc.Path, src, n.Parent, 0); ok {
			return []protocol.Location{loc}, nil
		}

		return nil, nil
	}

	name := typeRef(src, n)
	if name == "" {
		return nil, nil
	}

	if loc, ok := s.declaration(doc.URI, doc.Path, a.Tree, name, 0); ok {
		return []protocol.Location{loc}, nil
	}

	return nil, nil
}

// declaration finds where the type bound to name in tree is declared.
func (s *Server) declaration(u protocol.DocumentURI, path string, tree *otl.Tree, name string, depth int) (protocol.Location, bool) {
	if depth > maxImportDepth {
		return protocol.Location{}, false
	}

	for _, n := range tree.Root.Children {
		switch n.Kind {
		case otl.KindTypeDeclaration:
			if nameNode := declName(n); nameOf(tree.Source, nameNode) == name {
				return protocol.Location{URI: u, Range: nodeRange(tree.Lines, nameNode)}, true
			}
		case otl.KindImportStatement:
			symbols := n.Child(otl.KindImportedSymbols)
			if symbols == nil {
				continue
			}

			for _, sym := range symbols.ChildrenOf(otl.KindImportedSymbol) {
				local := declName(sym)
				if alias := sym.Child(otl.KindImportAlias); alias != nil {
					local = declName(alias)
				}

				if nameOf(tree.Source, local) == name {
					return s.importedDeclaration(path, tree.Source, sym, depth)
				}
			}
		}
	}

	return protocol.Location{}, false
}

// importedDeclaration finds the declaration of the imported symbol sym of
// the module at path.
func (s *Server) importedDeclaration(path, src string, sym *otl.Node, depth int) (protocol.Location, bool) {
	imp := enclosing(sym, otl.KindImportStatement)
	if imp == nil || imp.Child(otl.KindString) == nil {
		return protocol.Location{}, false
	}

	mod, err := s.in.Loader().LoadFrom(handlers.Unquote(imp.Child(otl.KindString).Text(src)), path)
	if err != nil {
		s.logger.Debug("Failed to load imported module", zap.Error(err))

		return protocol.Location{}, false
	}

	return s.declaration(PathToURI(mod.Path), mod.Path, mod.Tree, nameOf(src, declName(sym)), depth+1)
}
