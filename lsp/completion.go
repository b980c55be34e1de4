package lsp

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl/schema"
	"github.com/otl-lang/otl/visitor"
)

// Completion handles textDocument/completion requests.
func (s *Server) Completion(_ context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	s.logger.Debug("Completion",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	a := doc.current()
	if a == nil {
		return nil, nil //nolint:nilnil
	}

	offset := offsetOf(a.Lines, params.Position)

	completions, err := s.newContext(doc.Path, a.Tree).Complete(schema.File, a.Tree.Root, offset)
	if err != nil {
		return nil, err
	}

	// Higher boost first; ties keep handler order.
	slices.SortStableFunc(completions, func(x, y visitor.Completion) int {
		return y.Boost - x.Boost
	})

	items := make([]protocol.CompletionItem, 0, len(completions))
	for i, c := range completions {
		items = append(items, completionItem(c, i))
	}

	return &protocol.CompletionList{Items: items}, nil
}

// completionItem converts a visitor completion to an LSP item ranked at
// rank.
func completionItem(c visitor.Completion, rank int) protocol.CompletionItem {
	item := protocol.CompletionItem{
		Label:    c.Label,
		Detail:   c.Detail,
		Kind:     completionKind(c),
		SortText: fmt.Sprintf("%04d", rank),
	}

	if c.Info != "" {
		item.Documentation = protocol.MarkupContent{Kind: protocol.Markdown, Value: c.Info}
	}

	switch {
	case c.Snippet:
		item.InsertText = snippetText(c.Apply)
		item.InsertTextFormat = protocol.InsertTextFormatSnippet
	case c.Apply != "":
		item.InsertText = c.Apply
		item.InsertTextFormat = protocol.InsertTextFormatPlainText
	}

	return item
}

func completionKind(c visitor.Completion) protocol.CompletionItemKind {
	switch c.Kind {
	case visitor.CompletionKeyword:
		if c.Snippet {
			return protocol.CompletionItemKindSnippet
		}

		return protocol.CompletionItemKindKeyword
	case visitor.CompletionSection:
		return protocol.CompletionItemKindModule
	case visitor.CompletionProperty:
		return protocol.CompletionItemKindProperty
	case visitor.CompletionType:
		return protocol.CompletionItemKindClass
	case visitor.CompletionValue:
		return protocol.CompletionItemKindValue
	default:
		return protocol.CompletionItemKindText
	}
}

var placeholder = regexp.MustCompile(`\$\{([^}]*)\}`)

// snippetText converts a template with ${name} placeholders and a ${}
// final cursor into LSP snippet syntax.
func snippetText(template string) string {
	n := 0

	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		name := m[2 : len(m)-1]
		if name == "" {
			return "$0"
		}

		n++

		return "${" + strconv.Itoa(n) + ":" + name + "}"
	})
}
