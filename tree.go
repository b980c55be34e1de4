package otl

import (
	"strings"
)

// Kind names the syntactic category of a Node.
type Kind string

// Node kinds produced by Parse and ParseExpression.
const (
	KindFile               Kind = "File"
	KindImportStatement    Kind = "ImportStatement"
	KindImportedSymbols    Kind = "ImportedSymbols"
	KindImportedSymbol     Kind = "ImportedSymbol"
	KindImportAlias        Kind = "ImportAlias"
	KindTypeDeclaration    Kind = "TypeDeclaration"
	KindKeywordAbstract    Kind = "KeywordAbstract"
	KindExtendsClause      Kind = "ExtendsClause"
	KindTypeBody           Kind = "TypeBody"
	KindSectionDeclaration Kind = "SectionDeclaration"
	KindSectionBody        Kind = "SectionBody"
	KindAssignment         Kind = "Assignment"
	KindAssignmentName     Kind = "AssignmentName"
	KindAssignmentType     Kind = "AssignmentType"
	KindAssignmentValue    Kind = "AssignmentValue"
	KindParameterList      Kind = "ParameterList"
	KindParameter          Kind = "Parameter"
	KindParameterName      Kind = "ParameterName"
	KindParameterValue     Kind = "ParameterValue"
	KindLiteral            Kind = "Literal"
	KindObject             Kind = "Object"
	KindList               Kind = "List"
	KindString             Kind = "String"
	KindNumber             Kind = "Number"
	KindBoolean            Kind = "Boolean"
	KindIdentifier         Kind = "Identifier"
	KindTaggedString       Kind = "TaggedString"
	KindTag                Kind = "Tag"
	KindDot                Kind = "Dot"
	KindDelimiter          Kind = "Delimiter"
	KindUnexpected         Kind = "Unexpected"
	KindExpression         Kind = "Expression"
)

// Node is an immutable syntax tree node. Its pointer identity is stable for
// the lifetime of the tree and is used as a cache key during analysis.
type Node struct {
	Kind     Kind
	From     int // byte offset, inclusive
	To       int // byte offset, exclusive
	Parent   *Node
	Children []*Node

	index int
}

// FirstChild returns the first child or nil.
func (n *Node) FirstChild() *Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}

	return n.Children[0]
}

// LastChild returns the last child or nil.
func (n *Node) LastChild() *Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}

	return n.Children[len(n.Children)-1]
}

// NextSibling returns the following sibling or nil.
func (n *Node) NextSibling() *Node {
	if n == nil || n.Parent == nil || n.index+1 >= len(n.Parent.Children) {
		return nil
	}

	return n.Parent.Children[n.index+1]
}

// PrevSibling returns the preceding sibling or nil.
func (n *Node) PrevSibling() *Node {
	if n == nil || n.Parent == nil || n.index == 0 {
		return nil
	}

	return n.Parent.Children[n.index-1]
}

// Child returns the first direct child of the given kind.
func (n *Node) Child(kind Kind) *Node {
	if n == nil {
		return nil
	}

	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}

	return nil
}

// ChildrenOf returns all direct children of the given kind.
func (n *Node) ChildrenOf(kind Kind) []*Node {
	if n == nil {
		return nil
	}

	var out []*Node

	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}

	return out
}

// Contains reports whether offset lies within [From, To].
func (n *Node) Contains(offset int) bool {
	return n != nil && n.From <= offset && offset <= n.To
}

// Text returns the node's source text.
func (n *Node) Text(src string) string {
	if n == nil || n.From < 0 || n.To > len(src) || n.From > n.To {
		return ""
	}

	return src[n.From:n.To]
}

// Walk visits n and its descendants depth-first until fn returns false.
func (n *Node) Walk(fn func(*Node) bool) bool {
	if n == nil {
		return true
	}

	if !fn(n) {
		return false
	}

	for _, c := range n.Children {
		if !c.Walk(fn) {
			return false
		}
	}

	return true
}

// String renders the subtree as an S-expression of kinds, for debugging and tests.
func (n *Node) String() string {
	var b strings.Builder

	n.format(&b)

	return b.String()
}

func (n *Node) format(b *strings.Builder) {
	b.WriteString(string(n.Kind))

	if len(n.Children) == 0 {
		return
	}

	b.WriteString("(")

	for i, c := range n.Children {
		if i > 0 {
			b.WriteString(" ")
		}

		c.format(b)
	}

	b.WriteString(")")
}

// Tree is a parsed source together with its root node.
type Tree struct {
	Source string
	Root   *Node
	Lines  *LineIndex
}

// Text returns the source text of n.
func (t *Tree) Text(n *Node) string {
	return n.Text(t.Source)
}

// NodeAt returns the innermost node whose range contains offset.
func (t *Tree) NodeAt(offset int) *Node {
	n := t.Root
	if !n.Contains(offset) {
		return nil
	}

	for {
		var next *Node

		for _, c := range n.Children {
			if c.Contains(offset) {
				next = c

				break
			}
		}

		if next == nil {
			return n
		}

		n = next
	}
}

// newNode creates a node and attaches the given children, skipping nils.
func newNode(kind Kind, from, to int, children ...*Node) *Node {
	n := &Node{Kind: kind, From: from, To: to}

	for _, c := range children {
		if c == nil {
			continue
		}

		c.Parent = n
		c.index = len(n.Children)
		n.Children = append(n.Children, c)
	}

	return n
}

func metaNode(kind Kind, meta *NodeMeta, children ...*Node) *Node {
	from, to, ok := meta.span()
	if !ok {
		from, to = meta.Pos.Offset, meta.Pos.Offset
	}

	return newNode(kind, from, to, children...)
}

// Lowering from grammar structs to the generic tree.

func lowerFile(f *FileAST, size int) *Node {
	var children []*Node

	for _, st := range f.Statements {
		switch {
		case st.Import != nil:
			children = append(children, lowerImport(st.Import))
		case st.Type != nil:
			children = append(children, lowerType(st.Type))
		case st.Delimiter != nil:
			children = append(children, metaNode(KindDelimiter, &st.Delimiter.NodeMeta))
		case st.Unexpected != nil:
			children = append(children, metaNode(KindUnexpected, &st.Unexpected.NodeMeta))
		}
	}

	return newNode(KindFile, 0, size, children...)
}

func lowerImport(imp *ImportStatementAST) *Node {
	symbols := make([]*Node, 0, len(imp.Symbols.Symbols))

	for _, sym := range imp.Symbols.Symbols {
		var alias *Node
		if sym.Alias != nil {
			alias = metaNode(KindImportAlias, &sym.Alias.NodeMeta, lowerName(sym.Alias.Name))
		}

		symbols = append(symbols, metaNode(KindImportedSymbol, &sym.NodeMeta, lowerName(sym.Name), alias))
	}

	var path *Node
	if imp.Path != nil {
		path = metaNode(KindString, &imp.Path.NodeMeta)
	}

	return metaNode(KindImportStatement, &imp.NodeMeta,
		metaNode(KindImportedSymbols, &imp.Symbols.NodeMeta, symbols...),
		path,
	)
}

func lowerType(td *TypeDeclarationAST) *Node {
	var abstract, extends *Node

	if td.Abstract != nil {
		abstract = metaNode(KindKeywordAbstract, &td.Abstract.NodeMeta)
	}

	if td.Extends != nil {
		parents := make([]*Node, 0, len(td.Extends.Parents))
		for _, p := range td.Extends.Parents {
			parents = append(parents, lowerName(p))
		}

		extends = metaNode(KindExtendsClause, &td.Extends.NodeMeta, parents...)
	}

	return metaNode(KindTypeDeclaration, &td.NodeMeta,
		abstract,
		lowerName(td.Name),
		extends,
		lowerBlock(KindTypeBody, td.Body),
	)
}

func lowerBlock(kind Kind, b *BlockAST) *Node {
	children := make([]*Node, 0, len(b.Items))

	for _, item := range b.Items {
		switch {
		case item.Section != nil:
			children = append(children, metaNode(KindSectionDeclaration, &item.Section.NodeMeta,
				lowerName(item.Section.Name),
				lowerBlock(KindSectionBody, item.Section.Body),
			))
		case item.Assignment != nil:
			children = append(children, lowerAssignment(item.Assignment))
		case item.Delimiter != nil:
			children = append(children, metaNode(KindDelimiter, &item.Delimiter.NodeMeta))
		case item.Unexpected != nil:
			children = append(children, metaNode(KindUnexpected, &item.Unexpected.NodeMeta))
		}
	}

	return metaNode(kind, &b.NodeMeta, children...)
}

func lowerAssignment(a *AssignmentAST) *Node {
	var typ, value *Node

	if a.Type != nil {
		typ = lowerAssignmentType(a.Type)
	}

	if a.Value != nil {
		value = metaNode(KindAssignmentValue, &a.Value.NodeMeta, lowerLiteral(a.Value))
	}

	return metaNode(KindAssignment, &a.NodeMeta,
		metaNode(KindAssignmentName, &a.Name.NodeMeta, lowerName(a.Name)),
		typ,
		value,
	)
}

func lowerAssignmentType(t *AssignmentTypeAST) *Node {
	var params *Node

	if t.Params != nil {
		list := make([]*Node, 0, len(t.Params.Params))

		for _, p := range t.Params.Params {
			var name *Node
			if p.Name != nil {
				name = metaNode(KindParameterName, &p.Name.NodeMeta, metaNode(KindIdentifier, &p.Name.NodeMeta))
			}

			var inner *Node
			if p.Value.Literal != nil {
				inner = lowerLiteral(p.Value.Literal)
			} else {
				inner = lowerAssignmentType(p.Value.Type)
			}

			list = append(list, metaNode(KindParameter, &p.NodeMeta,
				name,
				metaNode(KindParameterValue, &p.Value.NodeMeta, inner),
			))
		}

		params = metaNode(KindParameterList, &t.Params.NodeMeta, list...)
	}

	return metaNode(KindAssignmentType, &t.NodeMeta,
		metaNode(KindIdentifier, &t.Name.NodeMeta),
		params,
	)
}

func lowerLiteral(l *LiteralAST) *Node {
	var inner *Node

	switch {
	case l.Tagged != nil:
		inner = lowerTaggedString(l.Tagged)
	case l.String != nil:
		inner = metaNode(KindString, &l.String.NodeMeta)
	case l.Number != nil:
		inner = metaNode(KindNumber, &l.Number.NodeMeta)
	case l.Boolean != nil:
		inner = metaNode(KindBoolean, &l.Boolean.NodeMeta)
	case l.List != nil:
		items := make([]*Node, 0, len(l.List.Items))

		for _, item := range l.List.Items {
			if item.Literal != nil {
				items = append(items, lowerLiteral(item.Literal))
			} else {
				items = append(items, metaNode(KindIdentifier, &item.Ident.NodeMeta))
			}
		}

		inner = metaNode(KindList, &l.List.NodeMeta, items...)
	case l.Object != nil:
		inner = lowerBlock(KindObject, l.Object)
	}

	return metaNode(KindLiteral, &l.NodeMeta, inner)
}

// lowerTaggedString splits a `tag.mode"..."` token into Tag and String nodes.
func lowerTaggedString(t *TaggedStringAST) *Node {
	from, to, _ := t.span()
	value := t.Value

	quote := strings.IndexAny(value, `"'`)
	if quote < 0 {
		quote = len(value)
	}

	tag := value[:quote]
	tagParts := []*Node{}

	if dot := strings.IndexByte(tag, '.'); dot >= 0 {
		tagParts = append(tagParts,
			newNode(KindIdentifier, from, from+dot),
			newNode(KindDot, from+dot, from+dot+1),
			newNode(KindIdentifier, from+dot+1, from+quote),
		)
	} else {
		tagParts = append(tagParts, newNode(KindIdentifier, from, from+quote))
	}

	return newNode(KindTaggedString, from, to,
		newNode(KindTag, from, from+quote, tagParts...),
		newNode(KindString, from+quote, to),
	)
}

func lowerName(n *NameAST) *Node {
	if n == nil {
		return nil
	}

	if n.String != nil {
		return metaNode(KindString, &n.NodeMeta)
	}

	return metaNode(KindIdentifier, &n.NodeMeta)
}

func lowerExpression(e *ExpressionAST) *Node {
	var inner *Node

	switch {
	case e.Assignment != nil:
		inner = lowerAssignment(e.Assignment)
	case e.Literal != nil:
		inner = lowerLiteral(e.Literal)
	case e.Type != nil:
		inner = lowerAssignmentType(e.Type)
	}

	return metaNode(KindExpression, &e.NodeMeta, inner)
}
