package lsp

import (
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
)

// URIToPath converts a file URI to a filesystem path.
func URIToPath(u protocol.DocumentURI) string {
	if u == "" {
		return ""
	}

	return uri.URI(u).Filename()
}

// PathToURI converts a filesystem path to a file URI.
func PathToURI(path string) protocol.DocumentURI {
	return uri.File(path)
}

// position converts a byte offset to an LSP position.
func position(lines *otl.LineIndex, offset int) protocol.Position {
	line, char := lines.Position(offset)

	return protocol.Position{
		Line:      uint32(max(0, line)), //nolint:gosec // G115: line numbers are small
		Character: uint32(max(0, char)), //nolint:gosec // G115: column numbers are small
	}
}

// rangeOf converts a byte range to an LSP range.
func rangeOf(lines *otl.LineIndex, from, to int) protocol.Range {
	return protocol.Range{Start: position(lines, from), End: position(lines, to)}
}

// nodeRange returns the LSP range of n.
func nodeRange(lines *otl.LineIndex, n *otl.Node) protocol.Range {
	return rangeOf(lines, n.From, n.To)
}

// offsetOf converts an LSP position to a byte offset.
func offsetOf(lines *otl.LineIndex, pos protocol.Position) int {
	return lines.Offset(int(pos.Line), int(pos.Character))
}

// nameOf returns the name written by an Identifier or String node.
func nameOf(src string, n *otl.Node) string {
	if n == nil {
		return ""
	}

	if n.Kind == otl.KindString {
		return handlers.Unquote(n.Text(src))
	}

	return n.Text(src)
}

// declName returns the name node of a type declaration or section.
func declName(n *otl.Node) *otl.Node {
	for _, c := range n.Children {
		if c.Kind == otl.KindIdentifier || c.Kind == otl.KindString {
			return c
		}
	}

	return nil
}

// enclosing returns the nearest ancestor of n, n included, of the given kind.
func enclosing(n *otl.Node, kind otl.Kind) *otl.Node {
	for ; n != nil; n = n.Parent {
		if n.Kind == kind {
			return n
		}
	}

	return nil
}

func rangePtr(r protocol.Range) *protocol.Range {
	return &r
}
