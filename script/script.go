// Package script compiles the embedded scripts of OTL schemas (actions,
// hooks, methods, style templates) with expr-lang.
package script

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/file"
	"github.com/expr-lang/expr/vm"
)

// Kind distinguishes the two script flavors a tag can select.
type Kind int

// Script kinds.
const (
	// KindExpr is a single expression evaluated for its value.
	KindExpr Kind = iota
	// KindFn is a function body invoked with a context.
	KindFn
)

func (k Kind) String() string {
	if k == KindFn {
		return "fn"
	}

	return "expr"
}

// Modes lists the dialect suffixes accepted after a script tag, e.g. fn.ts.
var Modes = []string{"js", "ts", "jsx", "tsx"}

// Errors.
var (
	ErrEmptyScript     = errors.New("script: empty script")
	ErrUnsupportedMode = errors.New("script: unsupported mode")
)

// CompileError is a script that failed to compile.
type CompileError struct {
	Line    int
	Column  int
	Message string
	Cause   error
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Column, e.Message)
	}

	return e.Message
}

func (e *CompileError) Unwrap() error {
	return e.Cause
}

// Script is a compiled script.
type Script struct {
	Source string
	Kind   Kind

	// Mode is the dialect suffix of the tag ("" when none was given). It is
	// kept as metadata; all modes compile the same way.
	Mode string

	program *vm.Program
}

// Compile compiles source. The script may reference any variable; missing
// variables evaluate to nil when the script is called.
func Compile(source string, kind Kind, mode string) (*Script, error) {
	if mode != "" && !slices.Contains(Modes, mode) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, mode)
	}

	body := strings.TrimSpace(source)
	if kind == KindFn {
		body = strings.TrimSpace(strings.TrimPrefix(body, "return "))
	}

	if body == "" {
		return nil, ErrEmptyScript
	}

	program, err := expr.Compile(body, expr.AsAny())
	if err != nil {
		return nil, newCompileError(err)
	}

	return &Script{Source: source, Kind: kind, Mode: mode, program: program}, nil
}

func newCompileError(err error) *CompileError {
	ce := &CompileError{Message: err.Error(), Cause: err}

	var ferr *file.Error
	if errors.As(err, &ferr) {
		ce.Line = ferr.Line
		ce.Column = ferr.Column
		ce.Message = ferr.Message
	}

	return ce
}

// Call runs the script against env. Function scripts also see env under
// the name ctx.
func (s *Script) Call(env map[string]any) (any, error) {
	if s == nil || s.program == nil {
		return nil, ErrEmptyScript
	}

	if env == nil {
		env = map[string]any{}
	}

	if s.Kind == KindFn {
		scoped := make(map[string]any, len(env)+1)
		for k, v := range env {
			scoped[k] = v
		}

		scoped["ctx"] = env
		env = scoped
	}

	out, err := expr.Run(s.program, env)
	if err != nil {
		return nil, fmt.Errorf("run %s script: %w", s.Kind, err)
	}

	return out, nil
}

// String returns the script as written, with its tag.
func (s *Script) String() string {
	tag := s.Kind.String()
	if s.Mode != "" {
		tag += "." + s.Mode
	}

	return tag + `"""` + s.Source + `"""`
}
