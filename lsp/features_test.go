package lsp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.lsp.dev/protocol"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/lsp"
)

// open opens an in-memory document at path and returns its URI.
func open(t *testing.T, server *lsp.Server, path, text string) protocol.DocumentURI {
	t.Helper()

	u := lsp.PathToURI(path)

	err := server.DidOpen(context.Background(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: u, Version: 1, Text: text},
	})
	if err != nil {
		t.Fatalf("DidOpen(%s) error: %v", path, err)
	}

	return u
}

// at returns the position delta bytes into the nth occurrence (0-based)
// of needle in src.
func at(t *testing.T, src, needle string, nth, delta int) protocol.Position {
	t.Helper()

	offset := -1

	for i, from := 0, 0; i <= nth; i++ {
		idx := strings.Index(src[from:], needle)
		if idx < 0 {
			t.Fatalf("occurrence %d of %q not found", nth, needle)
		}

		offset = from + idx
		from = offset + len(needle)
	}

	line, char := otl.NewLineIndex(src).Position(offset + delta)

	return protocol.Position{Line: uint32(line), Character: uint32(char)} //nolint:gosec // test positions are small
}

func span(t *testing.T, src, needle string, nth int) protocol.Range {
	t.Helper()

	return protocol.Range{Start: at(t, src, needle, nth, 0), End: at(t, src, needle, nth, len(needle))}
}

func position(u protocol.DocumentURI, pos protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
		Position:     pos,
	}
}

const baseSchema = "type Base {\n\tfields {\n\t\tcreated: Date\n\t}\n}\n"

const mainSchema = `import { Base } from "./base.otl"

type Person extends Base {
	fields {
		boss: Note["Base"]
	}
}
`

const aliasSchema = `import { Base as Root } from "./base.otl"

type Person extends Root {}
`

func TestServer_Completion(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	src := "type A {}\ntype \"B C\" {}\ntype D extends A {}\n"
	u := open(t, server, "/ws/schema.otl", src)

	list, err := server.Completion(context.Background(), &protocol.CompletionParams{
		TextDocumentPositionParams: position(u, at(t, src, "extends A", 0, len("extends A"))),
	})
	if err != nil {
		t.Fatalf("Completion() error: %v", err)
	}

	want := []protocol.CompletionItem{{
		Label:            `"B C"`,
		Detail:           "type",
		Kind:             protocol.CompletionItemKindClass,
		SortText:         "0000",
		InsertText:       `"B C"`,
		InsertTextFormat: protocol.InsertTextFormatPlainText,
	}}

	if diff := cmp.Diff(want, list.Items); diff != "" {
		t.Errorf("completion items mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Completion_Snippets(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	u := open(t, server, "/ws/empty.otl", "")

	list, err := server.Completion(context.Background(), &protocol.CompletionParams{
		TextDocumentPositionParams: position(u, protocol.Position{}),
	})
	if err != nil {
		t.Fatalf("Completion() error: %v", err)
	}

	got := make(map[string]protocol.CompletionItem, len(list.Items))
	for _, item := range list.Items {
		got[item.Label] = item
	}

	typeItem, ok := got["type ... { ... }"]
	if !ok {
		t.Fatalf("missing type snippet in %v", list.Items)
	}

	if typeItem.InsertText != "type ${1:name} {\n\t$0\n}" {
		t.Errorf("InsertText = %q", typeItem.InsertText)
	}

	if typeItem.InsertTextFormat != protocol.InsertTextFormatSnippet || typeItem.Kind != protocol.CompletionItemKindSnippet {
		t.Errorf("type snippet format = %v, kind = %v", typeItem.InsertTextFormat, typeItem.Kind)
	}

	importItem, ok := got[`import { ... } from "..."`]
	if !ok {
		t.Fatalf("missing import snippet in %v", list.Items)
	}

	if importItem.InsertText != `import { ${1:symbols} } from "${2:path}"` {
		t.Errorf("InsertText = %q", importItem.InsertText)
	}
}

func TestServer_Completion_LastValid(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()
	src := "type A {}\ntype \"B C\" {}\ntype D extends A {}\n"
	u := open(t, server, "/ws/schema.otl", src)

	_ = server.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: u},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: src + "type E {"}},
	})

	list, err := server.Completion(ctx, &protocol.CompletionParams{
		TextDocumentPositionParams: position(u, at(t, src, "extends A", 0, len("extends A"))),
	})
	if err != nil {
		t.Fatalf("Completion() error: %v", err)
	}

	if list == nil || len(list.Items) != 1 || list.Items[0].Label != `"B C"` {
		t.Errorf("expected completion from the last valid analysis, got %v", list)
	}
}

func TestServer_DocumentSymbol(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	src := "type Person {\n\tfolder = \"people\"\n\tfields {\n\t\tname: String\n\t}\n}\n"
	u := open(t, server, "/ws/schema.otl", src)

	got, err := server.DocumentSymbol(context.Background(), &protocol.DocumentSymbolParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
	})
	if err != nil {
		t.Fatalf("DocumentSymbol() error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 symbol, got %d", len(got))
	}

	person, ok := got[0].(protocol.DocumentSymbol)
	if !ok {
		t.Fatalf("symbol type = %T", got[0])
	}

	type flat struct {
		Name   string
		Kind   protocol.SymbolKind
		Detail string
	}

	var names []flat

	var walk func(syms []protocol.DocumentSymbol)
	walk = func(syms []protocol.DocumentSymbol) {
		for _, s := range syms {
			names = append(names, flat{s.Name, s.Kind, s.Detail})
			walk(s.Children)
		}
	}
	walk([]protocol.DocumentSymbol{person})

	want := []flat{
		{"Person", protocol.SymbolKindClass, ""},
		{"folder", protocol.SymbolKindProperty, ""},
		{"fields", protocol.SymbolKindNamespace, ""},
		{"name", protocol.SymbolKindField, "String"},
	}

	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}

	if person.SelectionRange != span(t, src, "Person", 0) {
		t.Errorf("SelectionRange = %v", person.SelectionRange)
	}
}

func TestServer_FoldingRanges(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	dir := t.TempDir()
	open(t, server, filepath.Join(dir, "a.otl"), "type A {}\n")
	open(t, server, filepath.Join(dir, "b.otl"), "type B {}\n")

	src := "import { A } from \"./a.otl\"\nimport { B } from \"./b.otl\"\n\ntype C {\n\tfields {\n\t\tx: String\n\t}\n}\n"
	u := open(t, server, filepath.Join(dir, "c.otl"), src)

	got, err := server.FoldingRanges(context.Background(), &protocol.FoldingRangeParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: u},
		},
	})
	if err != nil {
		t.Fatalf("FoldingRanges() error: %v", err)
	}

	want := []protocol.FoldingRange{
		{StartLine: 0, EndLine: 1, Kind: protocol.ImportsFoldingRange},
		{StartLine: 3, EndLine: 7, Kind: protocol.RegionFoldingRange},
		{StartLine: 4, EndLine: 6, Kind: protocol.RegionFoldingRange},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("folding ranges mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_DocumentLink(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.otl")

	open(t, server, basePath, baseSchema)

	src := mainSchema + "import { X } from \"./missing.otl\"\n"
	u := open(t, server, filepath.Join(dir, "main.otl"), src)

	got, err := server.DocumentLink(context.Background(), &protocol.DocumentLinkParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
	})
	if err != nil {
		t.Fatalf("DocumentLink() error: %v", err)
	}

	want := []protocol.DocumentLink{{
		Range:   span(t, src, `"./base.otl"`, 0),
		Target:  lsp.PathToURI(basePath),
		Tooltip: "Open ./base.otl",
	}}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("links mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Definition(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.otl")
	baseURI := open(t, server, basePath, baseSchema)
	mainURI := open(t, server, filepath.Join(dir, "main.otl"), aliasSchema)

	baseDecl := protocol.Location{URI: baseURI, Range: span(t, baseSchema, "Base", 0)}

	tests := []struct {
		name string
		pos  protocol.Position
		want []protocol.Location
	}{
		{"alias in extends clause", at(t, aliasSchema, "Root", 1, 1), []protocol.Location{baseDecl}},
		{"imported name", at(t, aliasSchema, "Base", 0, 1), []protocol.Location{baseDecl}},
		{"alias", at(t, aliasSchema, "Root", 0, 1), []protocol.Location{baseDecl}},
		{"import path", at(t, aliasSchema, "./base", 0, 2), []protocol.Location{{URI: lsp.PathToURI(basePath)}}},
		{
			"local declaration",
			at(t, aliasSchema, "Person", 0, 1),
			[]protocol.Location{{URI: mainURI, Range: span(t, aliasSchema, "Person", 0)}},
		},
		{"keyword", at(t, aliasSchema, "type", 0, 1), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := server.Definition(context.Background(), &protocol.DefinitionParams{
				TextDocumentPositionParams: position(mainURI, tt.pos),
			})
			if err != nil {
				t.Fatalf("Definition() error: %v", err)
			}

			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("locations mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServer_References(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	dir := t.TempDir()
	baseURI := open(t, server, filepath.Join(dir, "base.otl"), baseSchema)
	mainURI := open(t, server, filepath.Join(dir, "main.otl"), mainSchema)

	refs := func(u protocol.DocumentURI, pos protocol.Position, decl bool) []protocol.Location {
		t.Helper()

		got, err := server.References(context.Background(), &protocol.ReferenceParams{
			TextDocumentPositionParams: position(u, pos),
			Context:                    protocol.ReferenceContext{IncludeDeclaration: decl},
		})
		if err != nil {
			t.Fatalf("References() error: %v", err)
		}

		return got
	}

	want := []protocol.Location{
		{URI: baseURI, Range: span(t, baseSchema, "Base", 0)},
		{URI: mainURI, Range: span(t, mainSchema, "Base", 0)},
		{URI: mainURI, Range: span(t, mainSchema, "Base", 1)},
		{URI: mainURI, Range: span(t, mainSchema, `"Base"`, 0)},
	}

	if diff := cmp.Diff(want, refs(baseURI, at(t, baseSchema, "Base", 0, 2), true)); diff != "" {
		t.Errorf("references mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff(want[1:], refs(baseURI, at(t, baseSchema, "Base", 0, 2), false)); diff != "" {
		t.Errorf("references without declaration mismatch (-want +got):\n%s", diff)
	}

	// From the importing module only its own uses are known.
	if diff := cmp.Diff(want[1:], refs(mainURI, at(t, mainSchema, `"Base"`, 0, 2), true)); diff != "" {
		t.Errorf("references from importer mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_DocumentHighlight(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	src := "type A {}\ntype B extends A {\n\tfields {\n\t\tparent: Note[\"A\"]\n\t}\n}\n"
	u := open(t, server, "/ws/schema.otl", src)

	got, err := server.DocumentHighlight(context.Background(), &protocol.DocumentHighlightParams{
		TextDocumentPositionParams: position(u, at(t, src, "extends A", 0, len("extends "))),
	})
	if err != nil {
		t.Fatalf("DocumentHighlight() error: %v", err)
	}

	want := []protocol.DocumentHighlight{
		{Range: span(t, src, "A", 0), Kind: protocol.DocumentHighlightKindWrite},
		{Range: span(t, src, "A", 1), Kind: protocol.DocumentHighlightKindRead},
		{Range: span(t, src, `"A"`, 0), Kind: protocol.DocumentHighlightKindRead},
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("highlights mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Rename(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()
	dir := t.TempDir()
	baseURI := open(t, server, filepath.Join(dir, "base.otl"), baseSchema)
	mainURI := open(t, server, filepath.Join(dir, "main.otl"), mainSchema)

	rng, err := server.PrepareRename(ctx, &protocol.PrepareRenameParams{
		TextDocumentPositionParams: position(baseURI, at(t, baseSchema, "Base", 0, 0)),
	})
	if err != nil {
		t.Fatalf("PrepareRename() error: %v", err)
	}

	if rng == nil || *rng != span(t, baseSchema, "Base", 0) {
		t.Errorf("PrepareRename() = %v", rng)
	}

	edit, err := server.Rename(ctx, &protocol.RenameParams{
		TextDocumentPositionParams: position(baseURI, at(t, baseSchema, "Base", 0, 0)),
		NewName:                    "Daily Note",
	})
	if err != nil {
		t.Fatalf("Rename() error: %v", err)
	}

	want := map[protocol.DocumentURI][]protocol.TextEdit{
		baseURI: {
			{Range: span(t, baseSchema, "Base", 0), NewText: `"Daily Note"`},
		},
		mainURI: {
			{Range: span(t, mainSchema, "Base", 0), NewText: `"Daily Note"`},
			{Range: span(t, mainSchema, "Base", 1), NewText: `"Daily Note"`},
			{Range: span(t, mainSchema, `"Base"`, 0), NewText: `"Daily Note"`},
		},
	}

	if diff := cmp.Diff(want, edit.Changes); diff != "" {
		t.Errorf("rename edits mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Rename_Errors(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()
	dir := t.TempDir()
	open(t, server, filepath.Join(dir, "base.otl"), baseSchema)
	mainURI := open(t, server, filepath.Join(dir, "main.otl"), mainSchema)
	aliasURI := open(t, server, filepath.Join(dir, "alias.otl"), aliasSchema)

	_, err := server.PrepareRename(ctx, &protocol.PrepareRenameParams{
		TextDocumentPositionParams: position(mainURI, at(t, mainSchema, "Base", 1, 0)),
	})
	if !errors.Is(err, lsp.ErrRenameImported) {
		t.Errorf("PrepareRename() on imported name error = %v, want %v", err, lsp.ErrRenameImported)
	}

	_, err = server.Rename(ctx, &protocol.RenameParams{
		TextDocumentPositionParams: position(mainURI, at(t, mainSchema, "Person", 0, 0)),
		NewName:                    "Base",
	})
	if !errors.Is(err, lsp.ErrNameTaken) {
		t.Errorf("Rename() to a bound name error = %v, want %v", err, lsp.ErrNameTaken)
	}

	_, err = server.Rename(ctx, &protocol.RenameParams{
		TextDocumentPositionParams: position(mainURI, at(t, mainSchema, "Person", 0, 0)),
		NewName:                    " ",
	})
	if !errors.Is(err, lsp.ErrInvalidName) {
		t.Errorf("Rename() to a blank name error = %v, want %v", err, lsp.ErrInvalidName)
	}

	// Aliases are local.
	edit, err := server.Rename(ctx, &protocol.RenameParams{
		TextDocumentPositionParams: position(aliasURI, at(t, aliasSchema, "Root", 1, 0)),
		NewName:                    "Entity",
	})
	if err != nil {
		t.Fatalf("Rename() alias error: %v", err)
	}

	want := map[protocol.DocumentURI][]protocol.TextEdit{
		aliasURI: {
			{Range: span(t, aliasSchema, "Root", 0), NewText: "Entity"},
			{Range: span(t, aliasSchema, "Root", 1), NewText: "Entity"},
		},
	}

	if diff := cmp.Diff(want, edit.Changes); diff != "" {
		t.Errorf("alias rename edits mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Imports(t *testing.T) {
	t.Parallel()

	server, client := newTestServer(t)
	ctx := context.Background()
	dir := t.TempDir()
	baseURI := open(t, server, filepath.Join(dir, "base.otl"), baseSchema)
	mainURI := open(t, server, filepath.Join(dir, "main.otl"), mainSchema)

	last := func(u protocol.DocumentURI) []protocol.Diagnostic {
		t.Helper()

		for i := len(client.diagnostics) - 1; i >= 0; i-- {
			if client.diagnostics[i].URI == u {
				return client.diagnostics[i].Diagnostics
			}
		}

		t.Fatalf("no diagnostics published for %s", u)

		return nil
	}

	if d := last(mainURI); len(d) != 0 {
		t.Fatalf("expected a clean importer, got %v", d)
	}

	// Unsaved edits of the imported module are seen once it is saved.
	_ = server.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: baseURI},
			Version:                2,
		},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: "type Other {}\n"}},
	})
	_ = server.DidSave(ctx, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: baseURI},
	})

	d := last(mainURI)
	if len(d) == 0 {
		t.Fatal("expected the importer to report the missing symbol")
	}

	if !slices.ContainsFunc(d, func(d protocol.Diagnostic) bool { return d.Message == "Unknown symbol" }) {
		t.Errorf("expected an unknown symbol diagnostic, got %v", d)
	}
}

func TestServer_Symbols(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	files := map[string]string{
		"people/person.otl": "type Person {}\ntype Personal {}\n",
		"meetings.otl":      "type Meeting {}\n",
		"drafts/draft.otl":  "type PersonDraft {}\n",
		".otl.yaml":         "exclude:\n  - drafts/\n",
	}

	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}

		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	server, _ := newTestServer(t)
	ctx := context.Background()

	_, _ = server.Initialize(ctx, &protocol.InitializeParams{RootURI: lsp.PathToURI(dir)})

	got, err := server.Symbols(ctx, &protocol.WorkspaceSymbolParams{Query: "person"})
	if err != nil {
		t.Fatalf("Symbols() error: %v", err)
	}

	var names []string
	for _, s := range got {
		names = append(names, s.ContainerName+":"+s.Name)
	}

	want := []string{"people/person.otl:Person", "people/person.otl:Personal"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("symbols mismatch (-want +got):\n%s", diff)
	}
}

func TestServer_Formatting(t *testing.T) {
	t.Parallel()

	server, _ := newTestServer(t)
	ctx := context.Background()

	src := "type A {\nfields {\n  a: String\n}\n}"
	u := open(t, server, "/ws/schema.otl", src)

	got, err := server.Formatting(ctx, &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
	})
	if err != nil {
		t.Fatalf("Formatting() error: %v", err)
	}

	want := []protocol.TextEdit{{
		Range: protocol.Range{
			Start: protocol.Position{},
			End:   protocol.Position{Line: 4, Character: 1},
		},
		NewText: "type A {\n\tfields {\n\t\ta: String\n\t}\n}\n",
	}}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("formatting edits mismatch (-want +got):\n%s", diff)
	}

	broken := open(t, server, "/ws/broken.otl", "type A {")

	got, err = server.Formatting(ctx, &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: broken},
	})
	if err != nil || got != nil {
		t.Errorf("Formatting() of unparsable document = %v, %v; want no edits", got, err)
	}
}
