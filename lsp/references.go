package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
)

// typeRef returns the local type name n spells, or "" when n is not a
// type name. Type names appear as declaration names, in extends clauses,
// as imported names and as positional Note arguments. An imported name
// that is given an alias names a type of the other module and is not a
// local occurrence.
func typeRef(src string, n *otl.Node) string {
	if n == nil || n.Parent == nil || (n.Kind != otl.KindIdentifier && n.Kind != otl.KindString) {
		return ""
	}

	switch p := n.Parent; p.Kind {
	case otl.KindTypeDeclaration, otl.KindExtendsClause, otl.KindImportAlias:
		return nameOf(src, n)
	case otl.KindImportedSymbol:
		if p.Child(otl.KindImportAlias) != nil {
			return ""
		}

		return nameOf(src, n)
	case otl.KindLiteral:
		if n.Kind == otl.KindString && isNoteArg(src, p) {
			return nameOf(src, n)
		}
	}

	return ""
}

// importedAs returns the local name an aliased import binds the imported
// name n to, or "".
func importedAs(src string, n *otl.Node) string {
	if n == nil || n.Parent == nil || n.Parent.Kind != otl.KindImportedSymbol {
		return ""
	}

	alias := n.Parent.Child(otl.KindImportAlias)
	if alias == nil || declName(n.Parent) != n {
		return ""
	}

	return nameOf(src, declName(alias))
}

// isNoteArg reports whether lit is a positional argument of a Note field
// type, as in Note["Person"].
func isNoteArg(src string, lit *otl.Node) bool {
	value := lit.Parent
	if value == nil || value.Kind != otl.KindParameterValue {
		return false
	}

	param := value.Parent
	if param == nil || param.Child(otl.KindParameterName) != nil {
		return false
	}

	list := param.Parent
	if list == nil || list.Parent == nil || list.Parent.Kind != otl.KindAssignmentType {
		return false
	}

	return list.Parent.Child(otl.KindIdentifier).Text(src) == "Note"
}

// occurrences returns the nodes spelling the local type name in tree.
func occurrences(tree *otl.Tree, name string) []*otl.Node {
	var out []*otl.Node

	tree.Root.Walk(func(n *otl.Node) bool {
		if typeRef(tree.Source, n) == name {
			out = append(out, n)
		}

		return true
	})

	return out
}

// isDeclaration reports whether n is the name of a type declaration.
func isDeclaration(n *otl.Node) bool {
	return n.Parent != nil && n.Parent.Kind == otl.KindTypeDeclaration
}

// declaredIn reports whether tree declares a type named name.
func declaredIn(tree *otl.Tree, name string) bool {
	for _, n := range tree.Root.ChildrenOf(otl.KindTypeDeclaration) {
		if nameOf(tree.Source, declName(n)) == name {
			return true
		}
	}

	return false
}

// importer is an open document importing a type from another module.
type importer struct {
	doc   *Document
	tree  *otl.Tree
	name  *otl.Node // the imported name in the import list
	local string    // the name the type is bound to in doc
}

// importers returns the open documents, other than path, that import the
// type name from the module at path.
func (s *Server) importers(path, name string) []importer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []importer

	for _, doc := range s.documents {
		a := doc.current()
		if doc.Path == path || a == nil {
			continue
		}

		src := a.Tree.Source

		for _, imp := range a.Tree.Root.ChildrenOf(otl.KindImportStatement) {
			pathNode := imp.Child(otl.KindString)
			if pathNode == nil {
				continue
			}

			resolved, err := s.in.Loader().ResolvePath(handlers.Unquote(pathNode.Text(src)), doc.Path)
			if err != nil || resolved != path {
				continue
			}

			symbols := imp.Child(otl.KindImportedSymbols)
			if symbols == nil {
				continue
			}

			for _, sym := range symbols.ChildrenOf(otl.KindImportedSymbol) {
				nameNode := declName(sym)
				if nameOf(src, nameNode) != name {
					continue
				}

				local := name
				if alias := sym.Child(otl.KindImportAlias); alias != nil {
					local = nameOf(src, declName(alias))
				}

				out = append(out, importer{doc: doc, tree: a.Tree, name: nameNode, local: local})
			}
		}
	}

	return out
}

// References handles textDocument/references requests. References to a
// type declared in the document include its uses in open documents
// importing it.
func (s *Server) References(_ context.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	s.logger.Debug("References",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character),
		zap.Bool("includeDeclaration", params.Context.IncludeDeclaration))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	a := doc.current()
	if a == nil {
		return nil, nil
	}

	name := typeRef(a.Tree.Source, a.Tree.NodeAt(offsetOf(a.Lines, params.Position)))
	if name == "" {
		return nil, nil
	}

	var locations []protocol.Location

	for _, n := range occurrences(a.Tree, name) {
		if isDeclaration(n) && !params.Context.IncludeDeclaration {
			continue
		}

		locations = append(locations, protocol.Location{URI: doc.URI, Range: nodeRange(a.Lines, n)})
	}

	if !declaredIn(a.Tree, name) {
		return locations, nil
	}

	for _, imp := range s.importers(doc.Path, name) {
		locations = append(locations, protocol.Location{URI: imp.doc.URI, Range: nodeRange(imp.tree.Lines, imp.name)})

		for _, n := range occurrences(imp.tree, imp.local) {
			if n == imp.name {
				continue
			}

			locations = append(locations, protocol.Location{URI: imp.doc.URI, Range: nodeRange(imp.tree.Lines, n)})
		}
	}

	return locations, nil
}

// DocumentHighlight handles textDocument/documentHighlight requests.
// Declarations are highlighted as writes, every other use as a read.
func (s *Server) DocumentHighlight(_ context.Context, params *protocol.DocumentHighlightParams) ([]protocol.DocumentHighlight, error) {
	s.logger.Debug("DocumentHighlight",
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

	name := typeRef(a.Tree.Source, a.Tree.NodeAt(offsetOf(a.Lines, params.Position)))
	if name == "" {
		return nil, nil
	}

	var highlights []protocol.DocumentHighlight

	for _, n := range occurrences(a.Tree, name) {
		kind := protocol.DocumentHighlightKindRead
		if isDeclaration(n) {
			kind = protocol.DocumentHighlightKindWrite
		}

		highlights = append(highlights, protocol.DocumentHighlight{Range: nodeRange(a.Lines, n), Kind: kind})
	}

	return highlights, nil
}
