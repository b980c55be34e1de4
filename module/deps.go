package module

import (
	"slices"
	"sync"
)

// DependencyGraph records which modules import which, so a change to one
// file can be propagated to every module that depends on it. It is safe
// for concurrent use.
type DependencyGraph struct {
	mu         sync.RWMutex
	imports    map[string]map[string]struct{}
	importedBy map[string]map[string]struct{}
}

// NewDependencyGraph creates an empty graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		imports:    make(map[string]map[string]struct{}),
		importedBy: make(map[string]map[string]struct{}),
	}
}

// AddDependency records that from imports to.
func (g *DependencyGraph) AddDependency(from, to string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	addEdge(g.imports, from, to)
	addEdge(g.importedBy, to, from)
}

// ClearDependencies forgets the imports of path, typically before its
// imports are recorded again.
func (g *DependencyGraph) ClearDependencies(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for to := range g.imports[path] {
		delete(g.importedBy[to], path)
	}

	delete(g.imports, path)
}

// GetDependencies returns the modules path imports directly, sorted.
func (g *DependencyGraph) GetDependencies(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return sortedKeys(g.imports[path])
}

// GetDependents returns every module that imports path directly or
// transitively, sorted. path itself is not included.
func (g *DependencyGraph) GetDependents(path string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := map[string]struct{}{}
	queue := []string{path}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		for dep := range g.importedBy[cur] {
			if _, ok := seen[dep]; ok || dep == path {
				continue
			}

			seen[dep] = struct{}{}
			queue = append(queue, dep)
		}
	}

	return sortedKeys(seen)
}

// Clear removes every edge.
func (g *DependencyGraph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.imports = make(map[string]map[string]struct{})
	g.importedBy = make(map[string]map[string]struct{})
}

func addEdge(edges map[string]map[string]struct{}, from, to string) {
	set, ok := edges[from]
	if !ok {
		set = make(map[string]struct{})
		edges[from] = set
	}

	set[to] = struct{}{}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}

	slices.Sort(out)

	return out
}
