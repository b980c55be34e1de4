// Package lsp implements a Language Server Protocol server for OTL schema
// modules.
package lsp

import (
	"context"
	"errors"
	"os"
	"sync"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/interpreter"
	"github.com/otl-lang/otl/module"
)

// Server implements the LSP Server interface for OTL.
type Server struct {
	client protocol.Client
	logger *zap.Logger

	// Document state
	mu        sync.RWMutex
	documents map[protocol.DocumentURI]*Document

	// Interpreter serving imports; rebuilt on initialize once the
	// workspace config is known.
	opts []interpreter.Option
	in   *interpreter.Interpreter

	// overlay holds the unsaved content of open documents by path. Imports
	// read it before the disk.
	overlayMu sync.RWMutex
	overlay   map[string]string

	// Server state
	initialized   bool
	shutdown      bool
	workspaceRoot string
	exclude       []string
}

// Document represents an open document in the server.
type Document struct {
	URI      protocol.DocumentURI
	Path     string
	Version  int32
	Content  string
	Analysis *Analysis

	// LastValidAnalysis holds the most recent analysis that parsed successfully.
	// Used for completion when the current document has parse errors.
	LastValidAnalysis *Analysis
}

// NewServer creates a new LSP server. opts configure the interpreter that
// evaluates imported modules.
func NewServer(client protocol.Client, logger *zap.Logger, opts ...interpreter.Option) *Server {
	s := &Server{
		client:    client,
		logger:    logger,
		documents: make(map[protocol.DocumentURI]*Document),
		overlay:   make(map[string]string),
	}

	loader := module.NewLoader()
	loader.ReadFile = s.readFile

	s.opts = append([]interpreter.Option{
		interpreter.WithLogger(logger),
		interpreter.WithLoader(loader),
	}, opts...)
	s.in = interpreter.New(s.opts...)

	return s
}

// readFile reads a module source, preferring the content of an open
// document.
func (s *Server) readFile(path string) ([]byte, error) {
	s.overlayMu.RLock()
	content, ok := s.overlay[path]
	s.overlayMu.RUnlock()

	if ok {
		return []byte(content), nil
	}

	return os.ReadFile(path) //nolint:gosec // Paths come from import statements
}

func (s *Server) setOverlay(path, content string) {
	s.overlayMu.Lock()
	defer s.overlayMu.Unlock()

	s.overlay[path] = content
}

func (s *Server) dropOverlay(path string) {
	s.overlayMu.Lock()
	defer s.overlayMu.Unlock()

	delete(s.overlay, path)
}

// Interpreter returns the interpreter evaluating imports.
func (s *Server) Interpreter() *interpreter.Interpreter {
	return s.in
}

// Initialize handles the initialize request.
func (s *Server) Initialize(_ context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	s.logger.Info("Initialize", zap.String("rootURI", string(params.RootURI)))

	// Extract workspace root from params
	if params.RootURI != "" {
		s.workspaceRoot = URIToPath(params.RootURI)
	} else if params.RootPath != "" {
		s.workspaceRoot = params.RootPath
	}

	if s.workspaceRoot != "" {
		s.logger.Info("Workspace root", zap.String("root", s.workspaceRoot))
		s.loadConfig()
	}

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			// Full document sync - client sends entire content on change
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
				Save:      &protocol.SaveOptions{},
			},
			HoverProvider:      true,
			DefinitionProvider: true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{"[", ".", "\"", ":"},
				ResolveProvider:   false,
			},
			DocumentSymbolProvider:    true,
			DocumentHighlightProvider: true,
			ReferencesProvider:        true,
			RenameProvider: &protocol.RenameOptions{
				PrepareProvider: true,
			},
			// Clickable import paths
			DocumentLinkProvider: &protocol.DocumentLinkOptions{
				ResolveProvider: false,
			},
			// Quick fixes for lint diagnostics
			CodeActionProvider: &protocol.CodeActionOptions{
				CodeActionKinds: []protocol.CodeActionKind{
					protocol.QuickFix,
				},
			},
			// Field type parameter hints
			SignatureHelpProvider: &protocol.SignatureHelpOptions{
				TriggerCharacters:   []string{"[", ","},
				RetriggerCharacters: []string{"="},
			},
			WorkspaceSymbolProvider:    true,
			FoldingRangeProvider:       true,
			DocumentFormattingProvider: true,
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    "otl-lsp",
			Version: "0.1.0",
		},
	}, nil
}

// loadConfig applies the workspace .otl.yaml, if any, to the interpreter.
func (s *Server) loadConfig() {
	cfg, err := otl.LoadConfig(s.workspaceRoot)
	if err != nil {
		if !errors.Is(err, otl.ErrConfigNotFound) {
			s.logger.Warn("Failed to load config", zap.Error(err))
		}

		return
	}

	s.exclude = cfg.Exclude
	s.in = interpreter.New(append(s.opts, interpreter.WithConfig(cfg))...)

	s.logger.Info("Loaded config",
		zap.String("dir", cfg.Dir),
		zap.String("schema", cfg.SchemaPath()),
		zap.Bool("scripts", cfg.ScriptsEnabled()))
}

// Initialized handles the initialized notification.
func (s *Server) Initialized(_ context.Context, _ *protocol.InitializedParams) error {
	s.logger.Info("Initialized")
	s.initialized = true

	return nil
}

// Shutdown handles the shutdown request.
func (s *Server) Shutdown(_ context.Context) error {
	s.logger.Info("Shutdown")
	s.shutdown = true

	return nil
}

// Exit handles the exit notification.
func (s *Server) Exit(_ context.Context) error {
	s.logger.Info("Exit")
	// The main loop should handle exiting after this
	return nil
}

// DidOpen handles textDocument/didOpen notifications.
func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.logger.Info("DidOpen", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &Document{
		URI:     params.TextDocument.URI,
		Path:    URIToPath(params.TextDocument.URI),
		Version: params.TextDocument.Version,
		Content: params.TextDocument.Text,
	}

	s.setOverlay(doc.Path, doc.Content)
	s.update(doc)
	s.documents[params.TextDocument.URI] = doc
	s.publishDiagnostics(ctx, doc)

	return nil
}

// DidChange handles textDocument/didChange notifications.
func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	s.logger.Info("DidChange",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Int32("version", params.TextDocument.Version))

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[params.TextDocument.URI]
	if !ok {
		s.logger.Warn("DidChange for unknown document", zap.String("uri", string(params.TextDocument.URI)))

		return nil
	}

	// Full sync - take the last content change (should only be one with full sync)
	if len(params.ContentChanges) > 0 {
		doc.Content = params.ContentChanges[len(params.ContentChanges)-1].Text
		doc.Version = params.TextDocument.Version

		// Modules importing this one evaluate the new content.
		s.setOverlay(doc.Path, doc.Content)
		s.in.Invalidate(doc.Path)

		s.update(doc)
		s.publishDiagnostics(ctx, doc)
	}

	return nil
}

// DidClose handles textDocument/didClose notifications.
func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	s.logger.Info("DidClose", zap.String("uri", string(params.TextDocument.URI)))

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.documents, params.TextDocument.URI)
	s.dropOverlay(URIToPath(params.TextDocument.URI))
	s.in.Invalidate(URIToPath(params.TextDocument.URI))

	// Clear diagnostics for closed document
	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
	if err != nil {
		s.logger.Error("Failed to clear diagnostics", zap.Error(err))
	}

	return nil
}

// DidSave handles textDocument/didSave notifications. Modules importing the
// saved file are re-evaluated and open documents re-analysed.
func (s *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	s.logger.Info("DidSave", zap.String("uri", string(params.TextDocument.URI)))

	s.invalidate(ctx, URIToPath(params.TextDocument.URI))

	return nil
}

// DidChangeWatchedFiles handles workspace/didChangeWatchedFiles
// notifications for modules edited outside the editor.
func (s *Server) DidChangeWatchedFiles(ctx context.Context, params *protocol.DidChangeWatchedFilesParams) error {
	paths := make([]string, 0, len(params.Changes))
	for _, change := range params.Changes {
		paths = append(paths, URIToPath(change.URI))
	}

	s.logger.Debug("DidChangeWatchedFiles", zap.Strings("paths", paths))

	s.invalidate(ctx, paths...)

	return nil
}

// invalidate drops the cached evaluation of paths and re-analyses every
// open document.
func (s *Server) invalidate(ctx context.Context, paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range paths {
		dropped := s.in.Invalidate(p)
		s.logger.Debug("Invalidated modules", zap.String("path", p), zap.Strings("dropped", dropped))
	}

	for _, doc := range s.documents {
		s.update(doc)
		s.publishDiagnostics(ctx, doc)
	}
}

// update re-analyses doc.
func (s *Server) update(doc *Document) {
	doc.Analysis = s.analyze(doc.Path, doc.Content)

	// If parsing succeeded, save as last valid analysis for completion fallback
	if doc.Analysis.ParseError == nil {
		doc.LastValidAnalysis = doc.Analysis
	}
}

// getDocument returns a document by URI (read-locked).
func (s *Server) getDocument(uri protocol.DocumentURI) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[uri]

	return doc, ok
}

var _ protocol.Server = (*Server)(nil)
