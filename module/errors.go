// Package module loads OTL source files, resolves the import paths between
// them, detects import cycles and tracks which modules depend on which.
package module

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for module operations.
var (
	// ErrModuleNotFound is returned when no file exists for an import path.
	ErrModuleNotFound = errors.New("module: not found")

	// ErrCyclicImport is returned when a module imports itself, directly or
	// through other modules.
	ErrCyclicImport = errors.New("module: cyclic import")

	// ErrParseError is returned when a module fails to parse.
	ErrParseError = errors.New("module: parse error")
)

// CycleError provides details about an import cycle.
type CycleError struct {
	// Path shows the cycle: [A, B, A] means A imports B and B imports A.
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCyclicImport, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error {
	return ErrCyclicImport
}

// LoadError provides details about a failed module load.
type LoadError struct {
	// Path is the filesystem path that failed to load.
	Path string
	// ImportedFrom is the module that imported this path (empty for root).
	ImportedFrom string
	// Cause is the underlying error.
	Cause error
}

func (e *LoadError) Error() string {
	if e.ImportedFrom != "" {
		return fmt.Sprintf("failed to load %q (imported from %s): %v", e.Path, e.ImportedFrom, e.Cause)
	}

	return fmt.Sprintf("failed to load %q: %v", e.Path, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
