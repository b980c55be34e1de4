package lsp

import (
	"context"

	"github.com/alecthomas/participle/v2/lexer"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
)

// SignatureHelp handles textDocument/signatureHelp requests.
// Shows the parameters of a field type while typing its list, like
// Number[min = 1, |.
func (s *Server) SignatureHelp(_ context.Context, params *protocol.SignatureHelpParams) (*protocol.SignatureHelp, error) {
	s.logger.Debug("SignatureHelp",
		zap.String("uri", string(params.TextDocument.URI)),
		zap.Uint32("line", params.Position.Line),
		zap.Uint32("character", params.Position.Character))

	doc, ok := s.getDocument(params.TextDocument.URI)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	// The text is lexed rather than parsed: the list is usually unfinished.
	lines := otl.NewLineIndex(doc.Content)
	offset := min(offsetOf(lines, params.Position), len(doc.Content))

	call := parseParamsCall(doc.Content[:offset])
	if call == nil {
		return nil, nil //nolint:nilnil
	}

	sig, ok := handlers.FieldTypeSignature(call.name)
	if !ok {
		return nil, nil //nolint:nilnil
	}

	return &protocol.SignatureHelp{
		Signatures:      []protocol.SignatureInformation{signatureInfo(sig)},
		ActiveSignature: 0,
		ActiveParameter: activeParam(sig, call),
	}, nil
}

// paramsCall holds the parameter list being typed.
type paramsCall struct {
	name string

	// key is the keyword of the current parameter, empty for positional
	// parameters.
	key string

	// kwargs reports whether a keyword parameter precedes the current one.
	kwargs bool
}

// frame is an open bracket, brace or parenthesis.
type frame struct {
	open lexer.TokenType
	call paramsCall
}

// parseParamsCall finds the innermost field type parameter list open at
// the end of text. Unnamed brackets nested in it, like list values, are
// skipped. Returns nil outside a parameter list.
func parseParamsCall(text string) *paramsCall {
	// A trailing lexer error is an unfinished string; the tokens before
	// it still locate the list.
	toks, _ := otl.Tokens(text)

	var (
		stack []frame
		prev  lexer.Token // last significant token
	)

	for _, tok := range toks {
		switch tok.Type {
		case otl.TokenWhitespace, otl.TokenComment:
			continue
		case otl.TokenLBracket, otl.TokenLBrace, otl.TokenLParen:
			f := frame{open: tok.Type}
			if tok.Type == otl.TokenLBracket && prev.Type == otl.TokenIdent {
				f.call.name = prev.Value
			}

			stack = append(stack, f)
		case otl.TokenRBracket, otl.TokenRBrace, otl.TokenRParen:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case otl.TokenComma:
			if len(stack) > 0 {
				top := &stack[len(stack)-1].call
				top.kwargs = top.kwargs || top.key != ""
				top.key = ""
			}
		case otl.TokenEquals:
			if len(stack) > 0 && prev.Type == otl.TokenIdent {
				stack[len(stack)-1].call.key = prev.Value
			}
		}

		prev = tok
	}

	for i := len(stack) - 1; i >= 0; i-- {
		f := stack[i]

		if f.open != otl.TokenLBracket {
			return nil
		}

		if f.call.name != "" {
			return &f.call
		}
	}

	return nil
}

// signatureInfo renders sig as `Name[args, key = , ...]`.
func signatureInfo(sig handlers.FieldSignature) protocol.SignatureInformation {
	labels := sig.Params()
	params := make([]protocol.ParameterInformation, 0, len(labels))

	for _, l := range labels {
		params = append(params, protocol.ParameterInformation{Label: l})
	}

	return protocol.SignatureInformation{
		Label:      sig.Label(),
		Parameters: params,
	}
}

// activeParam returns the index of the parameter being typed. Positional
// parameters all map to the args label. Returns an out of range index when
// no parameter applies, which clients render without a highlight.
func activeParam(sig handlers.FieldSignature, call *paramsCall) uint32 {
	first := 0
	if sig.Args != "" {
		first = 1
	}

	if call.key != "" {
		for i, k := range sig.Kwargs {
			if k == call.key {
				return uint32(first + i) //nolint:gosec // G115: parameter counts are small
			}
		}
	} else if sig.Args != "" && !call.kwargs {
		return 0
	}

	return uint32(first + len(sig.Kwargs)) //nolint:gosec // G115: parameter counts are small
}
