package otl

import (
	"errors"
	"fmt"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// otlLexer is the custom lexer for OTL sources.
var otlLexer = newOTLLexer()

// Token lengths must match the source exactly, so strings are never unquoted
// by the parser; handlers unquote them when evaluating.
var (
	fileParser = participle.MustBuild[FileAST](
		participle.Lexer(otlLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(maxLookahead),
	)
	expressionParser = participle.MustBuild[ExpressionAST](
		participle.Lexer(otlLexer),
		participle.Elide("Whitespace", "Comment"),
		participle.UseLookahead(maxLookahead),
	)
)

// maxLookahead lets a malformed statement inside a block fall back to stray
// tokens instead of aborting the parse.
const maxLookahead = 1024

// ParseError is a hard parse failure: no tree could be produced.
type ParseError struct {
	Pos   lexer.Position
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %d:%d: %v", ErrParse, e.Pos.Line, e.Pos.Column, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// Parse parses an OTL module. It is safe for concurrent use.
func Parse(data []byte) (*Tree, error) {
	src := string(data)

	ast, err := fileParser.ParseString("", src)
	if err != nil {
		return nil, newParseError(err)
	}

	return &Tree{Source: src, Root: lowerFile(ast, len(src)), Lines: NewLineIndex(src)}, nil
}

// ParseExpression parses a single expression: a literal, a field type or an
// assignment.
func ParseExpression(text string) (*Tree, error) {
	ast, err := expressionParser.ParseString("", text)
	if err != nil {
		return nil, newParseError(err)
	}

	root := lowerExpression(ast)
	root.From, root.To = 0, len(text)

	return &Tree{Source: text, Root: root, Lines: NewLineIndex(text)}, nil
}

func newParseError(err error) *ParseError {
	pe := &ParseError{Cause: err}

	var perr participle.Error
	if errors.As(err, &perr) {
		pe.Pos = perr.Position()
		pe.Cause = errors.New(perr.Message())
	}

	var lerr *LexerError
	if errors.As(err, &lerr) {
		pe.Pos = lerr.Position()
	}

	return pe
}
