package otl

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2/lexer"
)

// Token type constants - negative values as per participle convention.
// Keywords (type, abstract, extends, import, from, as) stay identifiers and
// are matched by value in the grammar, so they remain usable as field names.
const (
	TokenEOF          lexer.TokenType = lexer.EOF
	TokenComment      lexer.TokenType = -(iota + 2) //nolint:mnd // participle convention
	TokenWhitespace                                 // spaces, tabs, newlines
	TokenString                                     // "...", '...' and """..."""
	TokenTaggedString                               // tag"..." or tag.mode"""..."""
	TokenNumber                                     // integers and decimals, optionally negative
	TokenIdent                                      // identifiers
	TokenDot                                        // .
	TokenColon                                      // :
	TokenComma                                      // ,
	TokenSemi                                       // ;
	TokenEquals                                     // =
	TokenLParen                                     // (
	TokenRParen                                     // )
	TokenLBracket                                   // [
	TokenRBracket                                   // ]
	TokenLBrace                                     // {
	TokenRBrace                                     // }
	TokenOp                                         // any other punctuation
)

// Lexer errors.
var (
	ErrUnterminatedString  = &LexerError{msg: "unterminated string"}
	ErrUnexpectedCharacter = &LexerError{msg: "unexpected character"}
)

// LexerError represents a lexer error with position.
type LexerError struct {
	msg string
	pos lexer.Position
	ch  rune
}

func (e *LexerError) Error() string {
	if e.ch != 0 {
		return e.pos.String() + ": " + e.msg + ": " + string(e.ch)
	}

	return e.pos.String() + ": " + e.msg
}

// Position returns where the error occurred.
func (e *LexerError) Position() lexer.Position {
	return e.pos
}

func (e *LexerError) withPos(pos lexer.Position) *LexerError {
	return &LexerError{msg: e.msg, pos: pos, ch: e.ch}
}

func (e *LexerError) withChar(ch rune) *LexerError {
	return &LexerError{msg: e.msg, pos: e.pos, ch: ch}
}

// otlDefinition implements lexer.Definition for OTL sources.
type otlDefinition struct {
	symbols map[string]lexer.TokenType
}

func newOTLLexer() *otlDefinition {
	return &otlDefinition{
		symbols: map[string]lexer.TokenType{
			"EOF":          TokenEOF,
			"Comment":      TokenComment,
			"Whitespace":   TokenWhitespace,
			"String":       TokenString,
			"TaggedString": TokenTaggedString,
			"Number":       TokenNumber,
			"Ident":        TokenIdent,
			"Dot":          TokenDot,
			"Colon":        TokenColon,
			"Comma":        TokenComma,
			"Semi":         TokenSemi,
			"Equals":       TokenEquals,
			"Op":           TokenOp,
			"(":            TokenLParen,
			")":            TokenRParen,
			"[":            TokenLBracket,
			"]":            TokenRBracket,
			"{":            TokenLBrace,
			"}":            TokenRBrace,
		},
	}
}

// Symbols returns the mapping of symbol names to token types.
func (d *otlDefinition) Symbols() map[string]lexer.TokenType {
	return d.symbols
}

// Lex creates a new Lexer for the given reader.
//
//nolint:ireturn // Required by participle's lexer.Definition interface.
func (d *otlDefinition) Lex(filename string, r io.Reader) (lexer.Lexer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	return d.LexString(filename, string(data))
}

// LexBytes implements lexer.BytesDefinition.
//
//nolint:ireturn // Required by participle's lexer.BytesDefinition interface.
func (d *otlDefinition) LexBytes(filename string, data []byte) (lexer.Lexer, error) {
	return d.LexString(filename, string(data))
}

// LexString implements lexer.StringDefinition.
//
//nolint:ireturn // Required by participle's lexer.StringDefinition interface.
func (d *otlDefinition) LexString(filename string, input string) (lexer.Lexer, error) {
	return &lexerState{filename: filename, input: input, line: 1, col: 1}, nil
}

type lexerState struct {
	filename string
	input    string
	offset   int
	line     int
	col      int
}

// Next returns the next token.
func (l *lexerState) Next() (lexer.Token, error) {
	if l.eof() {
		return lexer.EOFToken(l.pos()), nil
	}

	start := l.pos()
	r := l.peek()

	if isSpace(r) {
		for !l.eof() && isSpace(l.peek()) {
			l.advance()
		}

		return l.token(TokenWhitespace, start), nil
	}

	if r == '/' && l.peekAt(1) == '/' {
		for !l.eof() && l.peek() != '\n' {
			l.advance()
		}

		return l.token(TokenComment, start), nil
	}

	if r == '"' || r == '\'' {
		return l.scanString(start, TokenString)
	}

	if isDigit(r) || (r == '-' && isDigit(l.peekAt(1))) {
		return l.scanNumber(start), nil
	}

	if isIdentStart(r) {
		if n := l.tagLength(); n > 0 {
			for range n {
				l.advance()
			}

			return l.scanString(start, TokenTaggedString)
		}

		l.advance()

		for !l.eof() && isIdentContinue(l.peek()) {
			l.advance()
		}

		return l.token(TokenIdent, start), nil
	}

	l.advance()

	switch r {
	case '.':
		return l.token(TokenDot, start), nil
	case ':':
		return l.token(TokenColon, start), nil
	case ',':
		return l.token(TokenComma, start), nil
	case ';':
		return l.token(TokenSemi, start), nil
	case '=':
		return l.token(TokenEquals, start), nil
	case '(':
		return l.token(TokenLParen, start), nil
	case ')':
		return l.token(TokenRParen, start), nil
	case '[':
		return l.token(TokenLBracket, start), nil
	case ']':
		return l.token(TokenRBracket, start), nil
	case '{':
		return l.token(TokenLBrace, start), nil
	case '}':
		return l.token(TokenRBrace, start), nil
	}

	if strings.ContainsRune("+-*/%^&|!<>?#~@$", r) {
		return l.token(TokenOp, start), nil
	}

	return lexer.Token{}, ErrUnexpectedCharacter.withPos(start).withChar(r)
}

// tagLength reports the byte length of a string tag at the cursor
// ("fn", "fn.ts") when it is immediately followed by a quote, or 0.
func (l *lexerState) tagLength() int {
	rest := l.input[l.offset:]
	n := identLength(rest)

	if n < len(rest) && rest[n] == '.' {
		if m := identLength(rest[n+1:]); m > 0 {
			n += 1 + m
		}
	}

	if n < len(rest) && (rest[n] == '"' || rest[n] == '\'') {
		return n
	}

	return 0
}

func identLength(s string) int {
	n := 0

	for i, r := range s {
		if i == 0 && !isIdentStart(r) {
			return 0
		}

		if i > 0 && !isIdentContinue(r) {
			break
		}

		n = i + utf8.RuneLen(r)
	}

	return n
}

func (l *lexerState) pos() lexer.Position {
	return lexer.Position{
		Filename: l.filename,
		Offset:   l.offset,
		Line:     l.line,
		Column:   l.col,
	}
}

func (l *lexerState) eof() bool {
	return l.offset >= len(l.input)
}

func (l *lexerState) peek() rune {
	if l.eof() {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])

	return r
}

func (l *lexerState) peekAt(n int) rune {
	off := l.offset + n
	if off >= len(l.input) {
		return 0
	}

	r, _ := utf8.DecodeRuneInString(l.input[off:])

	return r
}

func (l *lexerState) advance() {
	if l.eof() {
		return
	}

	r, size := utf8.DecodeRuneInString(l.input[l.offset:])
	l.offset += size

	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *lexerState) match(s string) bool {
	return strings.HasPrefix(l.input[l.offset:], s)
}

func (l *lexerState) token(typ lexer.TokenType, start lexer.Position) lexer.Token {
	return lexer.Token{
		Type:  typ,
		Value: l.input[start.Offset:l.offset],
		Pos:   start,
	}
}

// scanString consumes a quoted string starting at the cursor. Triple-quoted
// strings may span lines; single-quoted forms may not.
func (l *lexerState) scanString(start lexer.Position, typ lexer.TokenType) (lexer.Token, error) {
	if l.match(`"""`) {
		for range 3 {
			l.advance()
		}

		for !l.eof() {
			if l.peek() == '\\' && l.peekAt(1) != 0 {
				l.advance()
				l.advance()

				continue
			}

			if l.match(`"""`) {
				for range 3 {
					l.advance()
				}

				return l.token(typ, start), nil
			}

			l.advance()
		}

		return lexer.Token{}, ErrUnterminatedString.withPos(start)
	}

	quote := l.peek()
	l.advance()

	for !l.eof() {
		ch := l.peek()
		if ch == '\\' && l.peekAt(1) != 0 {
			l.advance()
			l.advance()

			continue
		}

		if ch == quote {
			l.advance()

			return l.token(typ, start), nil
		}

		if ch == '\n' {
			return lexer.Token{}, ErrUnterminatedString.withPos(start)
		}

		l.advance()
	}

	return lexer.Token{}, ErrUnterminatedString.withPos(start)
}

func (l *lexerState) scanNumber(start lexer.Position) lexer.Token {
	if l.peek() == '-' {
		l.advance()
	}

	for !l.eof() && (isDigit(l.peek()) || l.peek() == '_') {
		l.advance()
	}

	if l.peek() == '.' && isDigit(l.peekAt(1)) {
		l.advance()

		for !l.eof() && (isDigit(l.peek()) || l.peek() == '_') {
			l.advance()
		}
	}

	if (l.peek() == 'e' || l.peek() == 'E') && (isDigit(l.peekAt(1)) || l.peekAt(1) == '-' || l.peekAt(1) == '+') {
		l.advance()

		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}

		for !l.eof() && isDigit(l.peek()) {
			l.advance()
		}
	}

	return l.token(TokenNumber, start)
}

// Character helpers.

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentContinue(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// IsIdentifier reports whether s can be written as a bare name.
func IsIdentifier(s string) bool {
	return s != "" && identLength(s) == len(s)
}

// Tokens lexes src up to the first error. The tokens read before an error
// are returned with it, so a prefix ending inside a string still yields
// everything before that string.
func Tokens(src string) ([]lexer.Token, error) {
	lex, err := otlLexer.LexString("", src)
	if err != nil {
		return nil, err
	}

	var out []lexer.Token

	for {
		tok, err := lex.Next()
		if err != nil {
			return out, err
		}

		if tok.EOF() {
			return out, nil
		}

		out = append(out, tok)
	}
}
