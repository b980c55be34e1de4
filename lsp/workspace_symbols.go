package lsp

import (
	"context"
	"path/filepath"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/module"
)

// Symbols handles workspace/symbol requests.
// Searches type declarations across all .otl files in the workspace.
// Open documents are searched in their unsaved state.
func (s *Server) Symbols(_ context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	s.logger.Debug("Symbols",
		zap.String("query", params.Query))

	if s.workspaceRoot == "" {
		return nil, nil
	}

	paths, err := module.Discover(s.workspaceRoot, s.exclude)
	if err != nil {
		s.logger.Debug("Error walking workspace for symbols", zap.Error(err))

		return nil, nil
	}

	var symbols []protocol.SymbolInformation

	query := strings.ToLower(params.Query)

	for _, rel := range paths {
		path := filepath.Join(s.workspaceRoot, rel)

		// Load goes through readFile, which serves open documents.
		mod, err := s.in.Loader().Load(path)
		if err != nil {
			s.logger.Debug("Skipping module", zap.String("path", path), zap.Error(err))

			continue
		}

		symbols = append(symbols, moduleSymbols(PathToURI(mod.Path), rel, mod.Tree, query)...)
	}

	return symbols, nil
}

// moduleSymbols returns the types declared in tree whose name contains
// query, case-insensitively.
func moduleSymbols(u protocol.DocumentURI, container string, tree *otl.Tree, query string) []protocol.SymbolInformation {
	var symbols []protocol.SymbolInformation

	for _, decl := range tree.Root.ChildrenOf(otl.KindTypeDeclaration) {
		nameNode := declName(decl)
		name := nameOf(tree.Source, nameNode)

		if name == "" || !strings.Contains(strings.ToLower(name), query) {
			continue
		}

		symbols = append(symbols, protocol.SymbolInformation{
			Name: name,
			Kind: protocol.SymbolKindClass,
			Location: protocol.Location{
				URI:   u,
				Range: nodeRange(tree.Lines, nameNode),
			},
			ContainerName: filepath.ToSlash(container),
		})
	}

	return symbols
}
