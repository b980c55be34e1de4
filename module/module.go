package module

import (
	"path/filepath"
	"strings"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
)

// Extension is the file extension of OTL modules.
const Extension = ".otl"

// Module is a loaded and parsed OTL source file.
type Module struct {
	// Path is the absolute filesystem path to the .otl file.
	Path string

	// Source is the file content.
	Source []byte

	// Hash is the xxhash of Source; a changed hash invalidates the cache.
	Hash uint64

	// Tree is the parsed syntax tree.
	Tree *otl.Tree

	// Imports are the import paths as written, in source order.
	Imports []string
}

// NewModule creates a Module from a parsed tree.
func NewModule(path string, source []byte, hash uint64, tree *otl.Tree) *Module {
	return &Module{
		Path:    path,
		Source:  source,
		Hash:    hash,
		Tree:    tree,
		Imports: importPaths(tree),
	}
}

// importPaths collects the path strings of the file's import statements.
func importPaths(tree *otl.Tree) []string {
	if tree == nil || tree.Root == nil {
		return nil
	}

	var paths []string

	for _, stmt := range tree.Root.ChildrenOf(otl.KindImportStatement) {
		n := stmt.Child(otl.KindString)
		if n == nil {
			continue
		}

		if p := handlers.Unquote(n.Text(tree.Source)); p != "" {
			paths = append(paths, p)
		}
	}

	return paths
}

// BaseName returns the module name derived from the file path.
// For "/path/to/people.otl", returns "people".
func (m *Module) BaseName() string {
	base := filepath.Base(m.Path)

	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ResolvedContext holds a module and every module it transitively imports.
type ResolvedContext struct {
	// Root is the module resolution started from.
	Root *Module

	// AllModules contains all loaded modules by absolute path.
	AllModules map[string]*Module

	// Order lists the modules so that every module comes after the modules
	// it imports. Root is last.
	Order []*Module
}

// NewResolvedContext creates a new resolution context.
func NewResolvedContext(root *Module) *ResolvedContext {
	return &ResolvedContext{
		Root:       root,
		AllModules: map[string]*Module{root.Path: root},
	}
}
