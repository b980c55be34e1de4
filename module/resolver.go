package module

// Resolver handles module dependency resolution and cycle detection.
type Resolver struct {
	loader *Loader
	deps   *DependencyGraph
}

// NewResolver creates a new module resolver with the given loader. Every
// import edge it follows is recorded in deps when deps is non-nil.
func NewResolver(loader *Loader, deps *DependencyGraph) *Resolver {
	return &Resolver{
		loader: loader,
		deps:   deps,
	}
}

// Resolve loads a module and all its transitive imports.
// Returns a ResolvedContext containing all modules needed for evaluation.
// Detects and reports import cycles.
func (r *Resolver) Resolve(rootPath string) (*ResolvedContext, error) {
	root, err := r.loader.Load(rootPath)
	if err != nil {
		return nil, err
	}

	return r.ResolveModule(root)
}

// ResolveModule resolves the imports of an already loaded module.
func (r *Resolver) ResolveModule(root *Module) (*ResolvedContext, error) {
	ctx := NewResolvedContext(root)

	// visiting = currently in the DFS stack (gray nodes)
	// visited = fully processed (black nodes)
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	err := r.resolveImports(root, ctx, visiting, visited, []string{root.Path})
	if err != nil {
		return nil, err
	}

	return ctx, nil
}

// resolveImports recursively loads and resolves imports for a module.
func (r *Resolver) resolveImports(
	mod *Module,
	ctx *ResolvedContext,
	visiting, visited map[string]bool,
	path []string,
) error {
	visiting[mod.Path] = true

	if r.deps != nil {
		r.deps.ClearDependencies(mod.Path)
	}

	for _, imp := range mod.Imports {
		imported, err := r.loader.LoadFrom(imp, mod.Path)
		if err != nil {
			return err
		}

		if r.deps != nil {
			r.deps.AddDependency(mod.Path, imported.Path)
		}

		if visiting[imported.Path] {
			cyclePath := append(path, imported.Path) //nolint:gocritic // intentional append to new slice

			return &CycleError{Path: cyclePath}
		}

		ctx.AllModules[imported.Path] = imported

		if !visited[imported.Path] {
			newPath := append(path, imported.Path) //nolint:gocritic // intentional append to new slice

			err := r.resolveImports(imported, ctx, visiting, visited, newPath)
			if err != nil {
				return err
			}
		}
	}

	visiting[mod.Path] = false
	visited[mod.Path] = true
	ctx.Order = append(ctx.Order, mod)

	return nil
}
