package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
)

// Formatting handles textDocument/formatting requests. The whole document
// is replaced; documents that do not parse are left alone.
func (s *Server) Formatting(_ context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	s.logger.Debug("Formatting",
		zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	formatted, err := otl.Format([]byte(doc.Content))
	if err != nil {
		s.logger.Debug("Not formatting", zap.Error(err))

		return nil, nil
	}

	if formatted == doc.Content {
		return nil, nil
	}

	lines := otl.NewLineIndex(doc.Content)

	return []protocol.TextEdit{{
		Range:   rangeOf(lines, 0, len(doc.Content)),
		NewText: formatted,
	}}, nil
}
