package lsp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
)

var (
	// ErrRenameImported is returned when renaming a type bound by an
	// import without alias; it must be renamed where it is declared.
	ErrRenameImported = errors.New("imported type; rename it in the module declaring it")

	// ErrInvalidName is returned for names that cannot name a type.
	ErrInvalidName = errors.New("invalid type name")

	// ErrNameTaken is returned when the new name is already bound.
	ErrNameTaken = errors.New("name already in use")
)

// PrepareRename handles textDocument/prepareRename requests.
// Validates that rename is possible and returns the range of the name.
func (s *Server) PrepareRename(_ context.Context, params *protocol.PrepareRenameParams) (*protocol.Range, error) {
	s.logger.Debug("PrepareRename",
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

	n := a.Tree.NodeAt(offsetOf(a.Lines, params.Position))

	name := typeRef(a.Tree.Source, n)
	if name == "" {
		return nil, nil //nolint:nilnil
	}

	if importedUnaliased(a, name) {
		return nil, fmt.Errorf("%s: %w", name, ErrRenameImported)
	}

	return rangePtr(nodeRange(a.Lines, n)), nil
}

// Rename handles textDocument/rename requests. Renaming a declared type
// also updates open documents importing it; renaming an alias only touches
// the document.
func (s *Server) Rename(_ context.Context, params *protocol.RenameParams) (*protocol.WorkspaceEdit, error) {
	s.logger.Debug("Rename",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character),
		zap.String("newName", params.NewName))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	a := doc.current()
	if a == nil {
		return nil, nil //nolint:nilnil
	}

	name := typeRef(a.Tree.Source, a.Tree.NodeAt(offsetOf(a.Lines, params.Position)))
	if name == "" {
		return nil, nil //nolint:nilnil
	}

	if importedUnaliased(a, name) {
		return nil, fmt.Errorf("%s: %w", name, ErrRenameImported)
	}

	newName := params.NewName
	if strings.TrimSpace(newName) == "" || strings.ContainsAny(newName, "\n\r") {
		return nil, fmt.Errorf("%q: %w", newName, ErrInvalidName)
	}

	if newName == name {
		return nil, nil //nolint:nilnil
	}

	if _, taken := a.Env[newName]; taken || bound(a, newName) {
		return nil, fmt.Errorf("%s: %w", newName, ErrNameTaken)
	}

	changes := map[protocol.DocumentURI][]protocol.TextEdit{
		doc.URI: renameEdits(a.Tree, occurrences(a.Tree, name), newName),
	}

	if declaredIn(a.Tree, name) {
		for _, imp := range s.importers(doc.Path, name) {
			nodes := []*otl.Node{imp.name}

			// Without an alias the document uses the imported name.
			if imp.local == name {
				nodes = occurrences(imp.tree, name)
			}

			changes[imp.doc.URI] = append(changes[imp.doc.URI], renameEdits(imp.tree, nodes, newName)...)
		}
	}

	return &protocol.WorkspaceEdit{Changes: changes}, nil
}

// importedUnaliased reports whether name is bound by an import without
// alias.
func importedUnaliased(a *Analysis, name string) bool {
	for _, sym := range a.Symbols {
		if sym.Name == name && sym.Node != nil && sym.Node.Kind == otl.KindImportedSymbol {
			return sym.Node.Child(otl.KindImportAlias) == nil
		}
	}

	return false
}

// bound reports whether a top-level symbol named name exists.
func bound(a *Analysis, name string) bool {
	for _, sym := range a.Symbols {
		if sym.Name == name {
			return true
		}
	}

	return false
}

func renameEdits(tree *otl.Tree, nodes []*otl.Node, newName string) []protocol.TextEdit {
	edits := make([]protocol.TextEdit, 0, len(nodes))

	for _, n := range nodes {
		edits = append(edits, protocol.TextEdit{
			Range:   nodeRange(tree.Lines, n),
			NewText: spell(n.Text(tree.Source), n.Kind, newName),
		})
	}

	return edits
}

// spell writes name the way the replaced node old of the given kind is
// written: bare identifiers stay bare when possible and strings keep their
// quote character.
func spell(old string, kind otl.Kind, name string) string {
	if kind == otl.KindIdentifier && otl.IsIdentifier(name) {
		return name
	}

	quote := `"`
	if kind == otl.KindString && strings.HasPrefix(old, "'") {
		quote = "'"
	}

	escaped := strings.ReplaceAll(name, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, quote, `\`+quote)

	return quote + escaped + quote
}
