// Package otl parses OTL schema sources into a navigable syntax tree.
//
// The grammar structs in this file are populated by participle and then
// lowered into a generic tree of *Node values (see tree.go) which the
// visitor runtime walks.
package otl

import "github.com/alecthomas/participle/v2/lexer"

// NodeMeta contains position and token information common to all grammar nodes.
// Participle populates these fields during parsing.
type NodeMeta struct {
	Pos    lexer.Position `parser:""`
	EndPos lexer.Position `parser:""`
	Tokens []lexer.Token  `parser:""`
}

// span returns the byte range covered by the node's significant tokens.
func (n *NodeMeta) span() (int, int, bool) {
	from, to := -1, -1

	for _, tok := range n.Tokens {
		if tok.Type == TokenWhitespace || tok.Type == TokenComment || tok.EOF() {
			continue
		}

		if from < 0 {
			from = tok.Pos.Offset
		}

		to = tok.Pos.Offset + len(tok.Value)
	}

	return from, to, from >= 0
}

// FileAST is the grammar root of an OTL module.
type FileAST struct {
	NodeMeta

	Statements []*TopLevel `parser:"@@*"`
}

// TopLevel is one top-level statement.
type TopLevel struct {
	Import     *ImportStatementAST `parser:"  @@"`
	Type       *TypeDeclarationAST `parser:"| @@"`
	Delimiter  *DelimiterAST       `parser:"| @@"`
	Unexpected *UnexpectedAST      `parser:"| @@"`
}

// ImportStatementAST is `import { a as b, c } from "path"`.
type ImportStatementAST struct {
	NodeMeta

	Symbols *ImportedSymbolsAST `parser:"'import' @@"`
	Path    *StringAST          `parser:"'from' @@"`
}

// ImportedSymbolsAST is the braced symbol list of an import.
type ImportedSymbolsAST struct {
	NodeMeta

	Symbols []*ImportedSymbolAST `parser:"'{' ( @@ ( ',' @@ )* ','? )? '}'"`
}

// ImportedSymbolAST is one imported name with an optional alias.
type ImportedSymbolAST struct {
	NodeMeta

	Name  *NameAST        `parser:"@@"`
	Alias *ImportAliasAST `parser:"( 'as' @@ )?"`
}

// ImportAliasAST is the local name an import is bound to.
type ImportAliasAST struct {
	NodeMeta

	Name *NameAST `parser:"@@"`
}

// TypeDeclarationAST is `abstract? type Name extends A, B { ... }`.
type TypeDeclarationAST struct {
	NodeMeta

	Abstract *KeywordAST       `parser:"@@?"`
	Name     *NameAST          `parser:"'type' @@"`
	Extends  *ExtendsClauseAST `parser:"@@?"`
	Body     *BlockAST         `parser:"@@"`
}

// KeywordAST captures the `abstract` modifier.
type KeywordAST struct {
	NodeMeta

	Value string `parser:"@'abstract'"`
}

// ExtendsClauseAST lists parent type names.
type ExtendsClauseAST struct {
	NodeMeta

	Parents []*NameAST `parser:"'extends' @@ ( ',' @@ )*"`
}

// BlockAST is a braced list of statements: type bodies, section bodies
// and object literals share it.
type BlockAST struct {
	NodeMeta

	Items []*BlockItem `parser:"'{' @@* '}'"`
}

// BlockItem is one statement inside a block.
type BlockItem struct {
	Section    *SectionDeclarationAST `parser:"  @@"`
	Assignment *AssignmentAST         `parser:"| @@"`
	Delimiter  *DelimiterAST          `parser:"| @@"`
	Unexpected *StrayAST              `parser:"| @@"`
}

// SectionDeclarationAST is `name { ... }`.
type SectionDeclarationAST struct {
	NodeMeta

	Name *NameAST  `parser:"@@"`
	Body *BlockAST `parser:"@@"`
}

// AssignmentAST is `name: Type[params] = value`, with either part optional
// but not both.
type AssignmentAST struct {
	NodeMeta

	Name  *NameAST           `parser:"@@ (?= ':' | '=')"`
	Type  *AssignmentTypeAST `parser:"( ':' @@ )?"`
	Value *LiteralAST        `parser:"( '=' @@ )?"`
}

// AssignmentTypeAST is `Type` or `Type[params]`.
type AssignmentTypeAST struct {
	NodeMeta

	Name   *IdentAST         `parser:"@@"`
	Params *ParameterListAST `parser:"@@?"`
}

// ParameterListAST is `[a, b, key = value]`.
type ParameterListAST struct {
	NodeMeta

	Params []*ParameterAST `parser:"'[' ( @@ ( ',' @@ )* ','? )? ']'"`
}

// ParameterAST is a positional or keyword parameter.
type ParameterAST struct {
	NodeMeta

	Name  *IdentAST          `parser:"( @@ '=' )?"`
	Value *ParameterValueAST `parser:"@@"`
}

// ParameterValueAST is a literal or a nested field type.
type ParameterValueAST struct {
	NodeMeta

	Literal *LiteralAST        `parser:"  @@"`
	Type    *AssignmentTypeAST `parser:"| @@"`
}

// LiteralAST is any literal value.
type LiteralAST struct {
	NodeMeta

	Tagged  *TaggedStringAST `parser:"  @@"`
	String  *StringAST       `parser:"| @@"`
	Number  *NumberAST       `parser:"| @@"`
	Boolean *BooleanAST      `parser:"| @@"`
	List    *ListAST         `parser:"| @@"`
	Object  *BlockAST        `parser:"| @@"`
}

// ListAST is `[a, b, c]`. Elements that are not literals are kept so
// analysis can report them.
type ListAST struct {
	NodeMeta

	Items []*ListItemAST `parser:"'[' ( @@ ( ',' @@ )* ','? )? ']'"`
}

// ListItemAST is one list element.
type ListItemAST struct {
	Literal *LiteralAST `parser:"  @@"`
	Ident   *IdentAST   `parser:"| @@"`
}

// NameAST is an identifier or a quoted string used as a name.
type NameAST struct {
	NodeMeta

	Ident  *string `parser:"  @Ident"`
	String *string `parser:"| @String"`
}

// IdentAST is a bare identifier.
type IdentAST struct {
	NodeMeta

	Value string `parser:"@Ident"`
}

// StringAST is a quoted string, quotes included.
type StringAST struct {
	NodeMeta

	Value string `parser:"@String"`
}

// TaggedStringAST is `tag"..."`; the tag and the string are split when lowered.
type TaggedStringAST struct {
	NodeMeta

	Value string `parser:"@TaggedString"`
}

// NumberAST is a numeric literal.
type NumberAST struct {
	NodeMeta

	Value string `parser:"@Number"`
}

// BooleanAST is `true` or `false`.
type BooleanAST struct {
	NodeMeta

	Value string `parser:"@( 'true' | 'false' )"`
}

// DelimiterAST is a statement separator.
type DelimiterAST struct {
	NodeMeta

	Value string `parser:"@( ';' | ',' )"`
}

// UnexpectedAST is a stray top-level token. Keywords that start a statement
// are refused so a malformed declaration is a parse error.
type UnexpectedAST struct {
	NodeMeta

	Value string `parser:"@!( 'type' | 'import' | 'abstract' | '{' )"`
}

// StrayAST is a stray token inside a block.
type StrayAST struct {
	NodeMeta

	Value string `parser:"@!( '}' | '{' )"`
}

// ExpressionAST is the entry point for single-expression evaluation.
type ExpressionAST struct {
	NodeMeta

	Assignment *AssignmentAST     `parser:"  @@"`
	Literal    *LiteralAST        `parser:"| @@"`
	Type       *AssignmentTypeAST `parser:"| @@"`
}
