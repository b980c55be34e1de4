package lsp

import (
	"context"

	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl/visitor"
)

// publishDiagnostics converts analysis diagnostics to LSP format and publishes them.
func (s *Server) publishDiagnostics(ctx context.Context, doc *Document) {
	a := doc.Analysis
	if a == nil {
		return
	}

	diagnostics := make([]protocol.Diagnostic, 0, len(a.Diagnostics)+1)

	if a.ParseError != nil {
		diagnostics = append(diagnostics, protocol.Diagnostic{
			Range:    rangeOf(a.Lines, a.ParseError.Pos.Offset, a.ParseError.Pos.Offset+1),
			Severity: protocol.DiagnosticSeverityError,
			Source:   "otl",
			Message:  a.ParseError.Cause.Error(),
		})
	}

	for _, d := range a.Diagnostics {
		lspDiag := convertDiagnostic(a, d)
		s.logger.Debug("Publishing diagnostic",
			zap.Int("from", d.From),
			zap.Int("to", d.To),
			zap.Uint32("lsp.start.line", lspDiag.Range.Start.Line),
			zap.Uint32("lsp.start.char", lspDiag.Range.Start.Character),
			zap.String("message", d.Message))
		diagnostics = append(diagnostics, lspDiag)
	}

	err := s.client.PublishDiagnostics(ctx, &protocol.PublishDiagnosticsParams{
		URI:         doc.URI,
		Version:     uint32(doc.Version), //nolint:gosec // LSP version numbers are always non-negative
		Diagnostics: diagnostics,
	})
	if err != nil {
		s.logger.Error("Failed to publish diagnostics", zap.Error(err))
	}
}

// convertDiagnostic converts a visitor.Diagnostic to an LSP protocol.Diagnostic.
func convertDiagnostic(a *Analysis, d visitor.Diagnostic) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range:    rangeOf(a.Lines, d.From, d.To),
		Severity: convertSeverity(d.Severity),
		Source:   "otl",
		Message:  d.Message,
	}
}

// convertSeverity converts visitor severity to LSP severity.
func convertSeverity(sev visitor.Severity) protocol.DiagnosticSeverity {
	switch sev {
	case visitor.SeverityError:
		return protocol.DiagnosticSeverityError
	case visitor.SeverityWarning:
		return protocol.DiagnosticSeverityWarning
	case visitor.SeverityInfo:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}
