package lsp

import (
	"context"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/schema"
	"github.com/otl-lang/otl/typing"
)

// Hover handles textDocument/hover requests. Handler hovers win; otherwise
// type names show the evaluated type and field names the evaluated field.
func (s *Server) Hover(_ context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	s.logger.Debug("Hover",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Analysis == nil || doc.Analysis.Tree == nil {
		return nil, nil //nolint:nilnil
	}

	a := doc.Analysis
	offset := offsetOf(a.Lines, params.Position)

	hv, err := s.newContext(doc.Path, a.Tree).Hover(schema.File, a.Tree.Root, offset)
	if err != nil {
		return nil, err
	}

	if hv != nil {
		return &protocol.Hover{
			Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: hv.Markdown},
			Range:    rangePtr(rangeOf(a.Lines, hv.From, hv.To)),
		}, nil
	}

	content, n := hoverContent(a, offset)
	if content == "" {
		return nil, nil //nolint:nilnil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: content},
		Range:    rangePtr(nodeRange(a.Lines, n)),
	}, nil
}

// hoverContent generates hover markdown for the name at offset.
func hoverContent(a *Analysis, offset int) (string, *otl.Node) {
	src := a.Tree.Source

	n := a.Tree.NodeAt(offset)
	if n == nil {
		return "", nil
	}

	if f := fieldAt(a, n); f != nil {
		return fieldMarkdown(f), n
	}

	name := typeRef(src, n)
	if name == "" {
		name = importedAs(src, n)
	}

	if t, ok := a.Env[name]; ok && name != "" {
		return typeMarkdown(t), n
	}

	return "", nil
}

// fieldAt returns the evaluated field n names in a fields section.
func fieldAt(a *Analysis, n *otl.Node) *typing.Field {
	src := a.Tree.Source

	if n.Parent == nil || n.Parent.Kind != otl.KindAssignmentName {
		return nil
	}

	section := enclosing(n, otl.KindSectionDeclaration)
	if section == nil || nameOf(src, declName(section)) != "fields" {
		return nil
	}

	decl := enclosing(section, otl.KindTypeDeclaration)
	if decl == nil {
		return nil
	}

	t, ok := a.Env[nameOf(src, declName(decl))]
	if !ok {
		return nil
	}

	return t.Fields[nameOf(src, n)]
}

func typeMarkdown(t *typing.Type) string {
	var b strings.Builder

	b.WriteString("```otl\n")

	if t.IsAbstract {
		b.WriteString("abstract ")
	}

	fmt.Fprintf(&b, "type %s", t.Name)

	if len(t.ParentNames) > 0 {
		fmt.Fprintf(&b, " extends %s", strings.Join(t.ParentNames, ", "))
	}

	b.WriteString("\n```\n")

	if t.Folder != "" {
		fmt.Fprintf(&b, "\n**Folder:** `%s`\n", t.Folder)
	}

	if t.Glob != "" {
		fmt.Fprintf(&b, "\n**Glob:** `%s`\n", t.Glob)
	}

	if names := t.FieldNames(); len(names) > 0 {
		b.WriteString("\n**Fields:**\n")

		for _, name := range names {
			fmt.Fprintf(&b, "- `%s`: `%s`\n", name, typing.TypeString(t.Fields[name].Type))
		}
	}

	return b.String()
}

func fieldMarkdown(f *typing.Field) string {
	var b strings.Builder

	fmt.Fprintf(&b, "```otl\n%s: %s\n```\n", f.Name, typing.TypeString(f.Type))

	if f.Default != "" {
		fmt.Fprintf(&b, "\n**Default:** `%s`\n", f.Default)
	}

	if targets := typing.NoteTargets(f.Type); len(targets) > 0 {
		fmt.Fprintf(&b, "\n**Links to:** %s\n", strings.Join(targets, ", "))
	}

	return b.String()
}
