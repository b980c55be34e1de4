package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
)

// DocumentLink handles textDocument/documentLink requests.
// Returns links for import paths that can be clicked to open the imported file.
// Paths that do not resolve are skipped; lint reports them.
func (s *Server) DocumentLink(_ context.Context, params *protocol.DocumentLinkParams) ([]protocol.DocumentLink, error) {
	s.logger.Debug("DocumentLink",
		zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	a := doc.current()
	if a == nil {
		return nil, nil
	}

	var links []protocol.DocumentLink

	for _, imp := range a.Tree.Root.ChildrenOf(otl.KindImportStatement) {
		pathNode := imp.Child(otl.KindString)
		if pathNode == nil {
			continue
		}

		path := handlers.Unquote(pathNode.Text(a.Tree.Source))

		resolved, err := s.in.Loader().ResolvePath(path, doc.Path)
		if err != nil {
			s.logger.Debug("Unresolved import", zap.String("path", path), zap.Error(err))

			continue
		}

		links = append(links, protocol.DocumentLink{
			Range:   nodeRange(a.Lines, pathNode),
			Target:  PathToURI(resolved),
			Tooltip: "Open " + path,
		})
	}

	return links, nil
}
