package lsp

import (
	"errors"

	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/schema"
	"github.com/otl-lang/otl/visitor"
)

// Analysis is the result of analysing one version of a document.
type Analysis struct {
	// Tree is nil when the document does not parse.
	Tree  *otl.Tree
	Lines *otl.LineIndex

	ParseError  *otl.ParseError
	Diagnostics []visitor.Diagnostic

	// Symbols are the top-level declarations: types and imported names.
	Symbols []visitor.Symbol

	// Env holds the types the document evaluates to, imports included.
	Env schema.Module
}

// analyze parses content and runs the schema handlers over it.
func (s *Server) analyze(path, content string) *Analysis {
	a := &Analysis{Lines: otl.NewLineIndex(content)}

	tree, err := otl.Parse([]byte(content))
	if err != nil {
		var pe *otl.ParseError
		if errors.As(err, &pe) {
			a.ParseError = pe
		} else {
			a.ParseError = &otl.ParseError{Cause: err}
		}

		return a
	}

	a.Tree = tree
	a.Lines = tree.Lines

	vctx := s.newContext(path, tree)

	lint, err := vctx.Lint(schema.File, tree.Root)
	if err != nil {
		s.logger.Error("Lint failed", zap.String("path", path), zap.Error(err))
	}

	a.Diagnostics = lint.Diagnostics

	if a.Symbols, err = vctx.Symbols(schema.File, tree.Root); err != nil {
		s.logger.Error("Symbols failed", zap.String("path", path), zap.Error(err))
	}

	out, err := vctx.Run(schema.File, tree.Root)
	if err != nil {
		s.logger.Error("Run failed", zap.String("path", path), zap.Error(err))
	}

	a.Env, _ = out.(schema.Module)

	for _, f := range vctx.Failures() {
		s.logger.Warn("Handler failure",
			zap.String("path", path),
			zap.Int("from", f.From),
			zap.Int("to", f.To),
			zap.String("message", f.Message))
	}

	return a
}

// newContext creates a visitor context over tree with the server's
// handler environment.
func (s *Server) newContext(path string, tree *otl.Tree) *visitor.Context {
	return visitor.NewContext(tree.Source, path, s.in.Env(), s.logger)
}

// current returns the analysis to answer position queries from: the
// latest one when it parsed, otherwise the last one that did.
func (d *Document) current() *Analysis {
	if d.Analysis != nil && d.Analysis.Tree != nil {
		return d.Analysis
	}

	if d.LastValidAnalysis != nil && d.LastValidAnalysis.Tree != nil {
		return d.LastValidAnalysis
	}

	return nil
}
