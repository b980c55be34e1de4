package visitor

import (
	"errors"
	"slices"

	"github.com/otl-lang/otl"
)

// ErrBusy is returned when a top-level call starts while another one is
// still active on the same Context.
var ErrBusy = errors.New("visitor: context is busy with another call")

// Severity is the importance of a diagnostic.
type Severity int

// Diagnostic severities.
const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Diagnostic is a message bound to a byte range of the source.
type Diagnostic struct {
	From     int
	To       int
	Severity Severity
	Message  string
}

// LintResult is the outcome of linting a node.
type LintResult struct {
	Diagnostics []Diagnostic
	HasErrors   bool
}

func hasErrors(ds []Diagnostic) bool {
	return slices.ContainsFunc(ds, func(d Diagnostic) bool { return d.Severity == SeverityError })
}

// Symbol is a declaration exposed by a scope.
type Symbol struct {
	Name     string
	NameNode *otl.Node
	Node     *otl.Node

	// Completion overrides the text inserted when completing the symbol.
	Completion string
}

// CompletionKind classifies completion items.
type CompletionKind int

// Completion kinds.
const (
	CompletionText CompletionKind = iota
	CompletionKeyword
	CompletionSection
	CompletionProperty
	CompletionType
	CompletionValue
)

// Completion is a candidate inserted at a position.
type Completion struct {
	Label  string
	Detail string
	Info   string

	// Apply is the inserted text. When Snippet is set it is a template with
	// ${name} placeholders and ${} marking the final cursor position.
	Apply   string
	Snippet bool

	Kind CompletionKind

	// Symbol names the declaration this completion would introduce, so
	// scopes can hide completions for names already declared.
	Symbol string

	Boost int
}

// Snippet builds a template completion.
func Snippet(template, label, info string) Completion {
	return Completion{Label: label, Apply: template, Snippet: true, Info: info}
}

// Hover is markdown shown for a range.
type Hover struct {
	From     int
	To       int
	Markdown string
}

// Decoration attaches a presentational value to a range, such as an icon
// after an attribute value.
type Decoration struct {
	From  int
	To    int
	Kind  string
	Value string
}
