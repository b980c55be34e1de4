package typing

import (
	"path"
	"slices"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Query selects a type by name, by folder or by the path of a note.
type Query struct {
	Name   string
	Folder string
	Path   string
}

type globEntry struct {
	pattern string
	typ     *Type
}

// Graph indexes the resolved types of the schema. It is rebuilt as a whole
// on every schema reload: Clear, then Add every type.
type Graph struct {
	mu      sync.RWMutex
	types   map[string]*Type
	order   []string
	folders map[string]*Type
	globs   []globEntry
	ready   bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		types:   make(map[string]*Type),
		folders: make(map[string]*Type),
	}
}

// Get returns the type matching q, or nil. The exact name wins; a path
// resolves through its folder and then through the glob patterns in the
// order they were added.
func (g *Graph) Get(q Query) *Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if q.Name != "" {
		if t, ok := g.types[q.Name]; ok {
			return t
		}
	}

	folder := q.Folder

	if q.Path != "" {
		folder = path.Dir(q.Path)
		if folder == "." || folder == "/" {
			return nil
		}
	}

	if folder != "" {
		if t, ok := g.folders[folder]; ok {
			return t
		}
	}

	if q.Path != "" {
		for _, e := range g.globs {
			if ok, _ := doublestar.Match(e.pattern, q.Path); ok {
				return e.typ
			}
		}
	}

	return nil
}

// Add indexes t by name and, when set, by folder and glob.
func (g *Graph) Add(t *Type) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.types[t.Name]; !ok {
		g.order = append(g.order, t.Name)
	}

	g.types[t.Name] = t

	if t.Folder != "" {
		g.folders[t.Folder] = t
	}

	// Malformed patterns never match.
	if t.Glob != "" && doublestar.ValidatePattern(t.Glob) {
		i := slices.IndexFunc(g.globs, func(e globEntry) bool { return e.pattern == t.Glob })
		if i >= 0 {
			g.globs[i].typ = t
		} else {
			g.globs = append(g.globs, globEntry{pattern: t.Glob, typ: t})
		}
	}
}

// Clear removes every type and marks the graph as not ready.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.types = make(map[string]*Type)
	g.order = nil
	g.folders = make(map[string]*Type)
	g.globs = nil
	g.ready = false
}

// Types returns the types in the order they were added.
func (g *Graph) Types() []*Type {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Type, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.types[name])
	}

	return out
}

// Len returns the number of types.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return len(g.types)
}

// Ready reports whether the schema finished loading.
func (g *Graph) Ready() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.ready
}

// SetReady marks the schema as loaded.
func (g *Graph) SetReady(ready bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ready = ready
}

// IsInstance reports whether left is right or a descendant of it. Both
// sides may be a *Type or a type name.
func (g *Graph) IsInstance(left, right any) bool {
	l, r := g.resolve(left), g.resolve(right)
	if l == nil || r == nil {
		return false
	}

	return l.Name == r.Name || l.IsDescendantOf(r)
}

func (g *Graph) resolve(v any) *Type {
	switch v := v.(type) {
	case *Type:
		return v
	case string:
		return g.Get(Query{Name: v})
	default:
		return nil
	}
}
