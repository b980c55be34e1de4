package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
)

// FoldingRanges handles textDocument/foldingRange requests.
// Returns folding ranges for types, sections, objects, lists and runs of
// imports.
func (s *Server) FoldingRanges(_ context.Context, params *protocol.FoldingRangeParams) ([]protocol.FoldingRange, error) {
	s.logger.Debug("FoldingRanges",
		zap.String("uri", string(params.TextDocument.URI)))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	a := doc.current()
	if a == nil {
		return nil, nil
	}

	ranges := importFoldingRanges(a)

	a.Tree.Root.Walk(func(n *otl.Node) bool {
		switch n.Kind {
		case otl.KindTypeDeclaration, otl.KindSectionDeclaration, otl.KindObject, otl.KindList:
			if r, ok := foldingRange(a.Lines, n.From, n.To, protocol.RegionFoldingRange); ok {
				ranges = append(ranges, r)
			}
		case otl.KindTaggedString:
			// Multi-line scripts and markdown
			if r, ok := foldingRange(a.Lines, n.From, n.To, protocol.RegionFoldingRange); ok {
				ranges = append(ranges, r)
			}

			return false
		}

		return true
	})

	return ranges, nil
}

// importFoldingRanges folds each run of consecutive import statements.
func importFoldingRanges(a *Analysis) []protocol.FoldingRange {
	var (
		ranges      []protocol.FoldingRange
		first, last *otl.Node
	)

	flush := func() {
		if first != nil && first != last {
			if r, ok := foldingRange(a.Lines, first.From, last.To, protocol.ImportsFoldingRange); ok {
				ranges = append(ranges, r)
			}
		}

		first, last = nil, nil
	}

	for _, n := range a.Tree.Root.Children {
		switch n.Kind {
		case otl.KindImportStatement:
			if first == nil {
				first = n
			}

			last = n
		case otl.KindDelimiter:
		default:
			flush()
		}
	}

	flush()

	return ranges
}

// foldingRange returns the range from the line of from to the line of the
// last character before to; single-line spans do not fold.
func foldingRange(lines *otl.LineIndex, from, to int, kind protocol.FoldingRangeKind) (protocol.FoldingRange, bool) {
	start, _ := lines.Position(from)
	end, _ := lines.Position(max(from, to-1))

	if end <= start {
		return protocol.FoldingRange{}, false
	}

	return protocol.FoldingRange{
		StartLine: uint32(start), //nolint:gosec // G115: line numbers are small
		EndLine:   uint32(end),   //nolint:gosec // G115: line numbers are small
		Kind:      kind,
	}, true
}
