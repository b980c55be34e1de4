package otl

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// maxBlankLines is the number of consecutive empty lines Format keeps.
const maxBlankLines = 1

// Format formats an OTL module: every line is indented with one tab per
// open brace, bracket or parenthesis, trailing whitespace is removed, runs
// of blank lines are collapsed and blocks do not start or end with a blank
// line. Strings and comments are kept as written. Sources that do not
// parse are returned with their *ParseError.
func Format(data []byte) (string, error) {
	if _, err := Parse(data); err != nil {
		return "", err
	}

	lex, err := otlLexer.LexString("", string(data))
	if err != nil {
		return "", err
	}

	f := &formatter{}

	for {
		tok, err := lex.Next()
		if err != nil {
			return "", err
		}

		if tok.EOF() {
			break
		}

		f.token(tok)
	}

	return f.String(), nil
}

type formatter struct {
	b      strings.Builder
	indent int

	// Whitespace seen since the last token.
	breaks int
	space  string

	started bool
	opened  bool // the last token opened a block
}

func (f *formatter) token(tok lexer.Token) {
	switch tok.Type {
	case TokenWhitespace:
		if n := strings.Count(tok.Value, "\n"); n > 0 {
			f.breaks += n
			f.space = ""
		} else if f.breaks == 0 {
			f.space = tok.Value
		}

		return
	case TokenComment:
		tok.Value = strings.TrimRight(tok.Value, " \t\r")
	}

	closing := isClosing(tok.Type)
	if closing && f.indent > 0 {
		f.indent--
	}

	switch {
	case !f.started:
	case f.breaks > 0:
		breaks := min(f.breaks, maxBlankLines+1)
		if f.opened || closing {
			breaks = 1
		}

		f.b.WriteString(strings.Repeat("\n", breaks))
		f.b.WriteString(strings.Repeat("\t", f.indent))
	default:
		f.b.WriteString(f.space)
	}

	f.b.WriteString(tok.Value)

	f.started = true
	f.breaks, f.space = 0, ""
	f.opened = isOpening(tok.Type)

	if f.opened {
		f.indent++
	}
}

func (f *formatter) String() string {
	if !f.started {
		return ""
	}

	return f.b.String() + "\n"
}

func isOpening(t lexer.TokenType) bool {
	return t == TokenLBrace || t == TokenLBracket || t == TokenLParen
}

func isClosing(t lexer.TokenType) bool {
	return t == TokenRBrace || t == TokenRBracket || t == TokenRParen
}
