package lsp

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
	"github.com/otl-lang/otl/visitor"
)

const (
	// maxSuggestionDistance is the largest edit distance a suggested name
	// may have from the written one.
	maxSuggestionDistance = 3

	// maxSuggestions caps the quick fixes offered for one diagnostic.
	maxSuggestions = 3
)

// CodeAction handles textDocument/codeAction requests.
// Returns quick fixes for the diagnostics overlapping the requested range.
func (s *Server) CodeAction(_ context.Context, params *protocol.CodeActionParams) ([]protocol.CodeAction, error) {
	s.logger.Debug("CodeAction",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int("diagnosticCount", len(params.Context.Diagnostics)))

	if len(params.Context.Only) > 0 && !slices.Contains(params.Context.Only, protocol.QuickFix) {
		return nil, nil
	}

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok || doc.Analysis == nil || doc.Analysis.Tree == nil {
		return nil, nil
	}

	a := doc.Analysis

	var actions []protocol.CodeAction

	for _, d := range a.Diagnostics {
		diag := convertDiagnostic(a, d)
		if !rangesOverlap(diag.Range, params.Range) {
			continue
		}

		actions = append(actions, s.codeActionsForDiagnostic(doc, a, d, diag)...)
	}

	return actions, nil
}

// rangesOverlap checks if two ranges overlap.
func rangesOverlap(a, b protocol.Range) bool {
	// a ends before b starts
	if a.End.Line < b.Start.Line || (a.End.Line == b.Start.Line && a.End.Character < b.Start.Character) {
		return false
	}
	// b ends before a starts
	if b.End.Line < a.Start.Line || (b.End.Line == a.Start.Line && b.End.Character < a.Start.Character) {
		return false
	}

	return true
}

// codeActionsForDiagnostic generates quick fix actions for a specific diagnostic.
func (s *Server) codeActionsForDiagnostic(doc *Document, a *Analysis, d visitor.Diagnostic, diag protocol.Diagnostic) []protocol.CodeAction {
	n := nodeSpanning(a.Tree, d.From, d.To)
	if n == nil {
		return nil
	}

	switch {
	case strings.HasPrefix(d.Message, "Unknown field type: "):
		return fixUnknownFieldType(doc, a, n, diag)
	case strings.HasPrefix(d.Message, "No such parent: "):
		return fixMissingParent(doc, a, n, diag)
	case strings.HasPrefix(d.Message, "Duplicate symbol: "):
		return fixDuplicateSymbol(doc, a, n, diag)
	case d.Message == "Unknown symbol":
		return s.fixUnknownImport(doc, a, n, diag)
	}

	return nil
}

// fixUnknownFieldType offers the registered field types closest to the
// written one.
func fixUnknownFieldType(doc *Document, a *Analysis, n *otl.Node, diag protocol.Diagnostic) []protocol.CodeAction {
	// Without parameters the name spans the whole field type.
	ft := enclosing(n, otl.KindAssignmentType)
	if ft == nil {
		return nil
	}

	name := ft.Child(otl.KindIdentifier)
	if name == nil {
		return nil
	}

	return replaceActions(doc, a, name, similar(name.Text(a.Tree.Source), handlers.FieldTypeNames()), diag)
}

// fixMissingParent offers the closest names declared or imported above the
// referencing type.
func fixMissingParent(doc *Document, a *Analysis, n *otl.Node, diag protocol.Diagnostic) []protocol.CodeAction {
	var above []string

	for _, sym := range a.Symbols {
		if sym.Node != nil && sym.Node.To <= n.From {
			above = append(above, sym.Name)
		}
	}

	return replaceActions(doc, a, n, similar(nameOf(a.Tree.Source, n), above), diag)
}

// fixDuplicateSymbol renames a repeated declaration, or aliases a repeated
// import, to the first free numbered name.
func fixDuplicateSymbol(doc *Document, a *Analysis, n *otl.Node, diag protocol.Diagnostic) []protocol.CodeAction {
	// Imports report the whole symbol; the local name is the alias if any.
	if n.Kind == otl.KindImportedSymbol {
		if alias := n.Child(otl.KindImportAlias); alias != nil {
			n = declName(alias)
		} else {
			n = declName(n)
		}
	}

	if n == nil || n.Parent == nil {
		return nil
	}

	free := freeName(a, nameOf(a.Tree.Source, n))

	var edit protocol.TextEdit

	switch n.Parent.Kind {
	case otl.KindTypeDeclaration, otl.KindImportAlias:
		edit = protocol.TextEdit{
			Range:   nodeRange(a.Lines, n),
			NewText: spell(n.Text(a.Tree.Source), n.Kind, free),
		}
	case otl.KindImportedSymbol:
		edit = protocol.TextEdit{
			Range:   rangeOf(a.Lines, n.To, n.To),
			NewText: " as " + spell("", otl.KindIdentifier, free),
		}
	default:
		return nil
	}

	return []protocol.CodeAction{{
		Title:       fmt.Sprintf("Rename to '%s'", free),
		Kind:        protocol.QuickFix,
		Diagnostics: []protocol.Diagnostic{diag},
		Edit: &protocol.WorkspaceEdit{
			Changes: map[protocol.DocumentURI][]protocol.TextEdit{doc.URI: {edit}},
		},
	}}
}

// fixUnknownImport offers the closest types declared by the imported module.
func (s *Server) fixUnknownImport(doc *Document, a *Analysis, n *otl.Node, diag protocol.Diagnostic) []protocol.CodeAction {
	imp := enclosing(n, otl.KindImportStatement)
	if imp == nil || imp.Child(otl.KindString) == nil {
		return nil
	}

	sym := enclosing(n, otl.KindImportedSymbol)
	if sym == nil {
		return nil
	}

	name := declName(sym)
	if name == nil {
		return nil
	}

	mod, err := s.in.Loader().LoadFrom(handlers.Unquote(imp.Child(otl.KindString).Text(a.Tree.Source)), doc.Path)
	if err != nil {
		s.logger.Debug("Failed to load imported module", zap.Error(err))

		return nil
	}

	var declared []string

	for _, decl := range mod.Tree.Root.ChildrenOf(otl.KindTypeDeclaration) {
		if typeName := nameOf(mod.Tree.Source, declName(decl)); typeName != "" {
			declared = append(declared, typeName)
		}
	}

	return replaceActions(doc, a, name, similar(nameOf(a.Tree.Source, name), declared), diag)
}

// replaceActions offers one quick fix per candidate, replacing n with it.
// The closest candidate is preferred.
func replaceActions(doc *Document, a *Analysis, n *otl.Node, candidates []string, diag protocol.Diagnostic) []protocol.CodeAction {
	actions := make([]protocol.CodeAction, 0, len(candidates))

	for i, c := range candidates {
		actions = append(actions, protocol.CodeAction{
			Title:       fmt.Sprintf("Change to '%s'", c),
			Kind:        protocol.QuickFix,
			Diagnostics: []protocol.Diagnostic{diag},
			IsPreferred: i == 0,
			Edit: &protocol.WorkspaceEdit{
				Changes: map[protocol.DocumentURI][]protocol.TextEdit{
					doc.URI: {{
						Range:   nodeRange(a.Lines, n),
						NewText: spell(n.Text(a.Tree.Source), n.Kind, c),
					}},
				},
			},
		})
	}

	return actions
}

type suggestion struct {
	value    string
	distance int
}

// similar returns up to maxSuggestions candidates within
// maxSuggestionDistance of target, closest first. Case is ignored when
// measuring.
func similar(target string, candidates []string) []string {
	var found []suggestion

	for _, c := range candidates {
		if c == target {
			continue
		}

		dist := levenshtein.ComputeDistance(strings.ToLower(target), strings.ToLower(c))
		if dist <= maxSuggestionDistance {
			found = append(found, suggestion{value: c, distance: dist})
		}
	}

	slices.SortStableFunc(found, func(a, b suggestion) int { return cmp.Compare(a.distance, b.distance) })

	out := make([]string, 0, min(len(found), maxSuggestions))
	for _, sg := range found[:min(len(found), maxSuggestions)] {
		out = append(out, sg.value)
	}

	return out
}

// freeName returns name followed by the first number that makes it unbound.
func freeName(a *Analysis, name string) string {
	for i := 2; ; i++ {
		candidate := name + strconv.Itoa(i)

		if _, taken := a.Env[candidate]; !taken && !bound(a, candidate) {
			return candidate
		}
	}
}

// nodeSpanning returns the node covering exactly from..to.
func nodeSpanning(tree *otl.Tree, from, to int) *otl.Node {
	for n := tree.NodeAt(from); n != nil; n = n.Parent {
		if n.From == from && n.To == to {
			return n
		}
	}

	return nil
}
