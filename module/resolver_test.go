package module_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/otl-lang/otl/module"
)

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	// root.otl imports people and places, which both import base.
	basePath := filepath.Join(tmpDir, "base.otl")
	writeFile(t, basePath, `abstract type Base {}`)

	peoplePath := filepath.Join(tmpDir, "people.otl")
	writeFile(t, peoplePath, `import { Base } from "./base"
type Person extends Base {}`)

	placesPath := filepath.Join(tmpDir, "places", "places.otl")
	writeFile(t, placesPath, `import { Base } from "../base.otl"
type Place extends Base {}`)

	rootPath := filepath.Join(tmpDir, "root.otl")
	writeFile(t, rootPath, `import { Person } from "./people"
import { Place } from "./places/places"`)

	loader := module.NewLoader()
	deps := module.NewDependencyGraph()

	ctx, err := module.NewResolver(loader, deps).Resolve(rootPath)
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	if ctx.Root.Path != rootPath {
		t.Errorf("Root path = %q, want %q", ctx.Root.Path, rootPath)
	}

	if len(ctx.AllModules) != 4 {
		t.Errorf("AllModules count = %d, want 4", len(ctx.AllModules))
	}

	order := make([]string, 0, len(ctx.Order))
	for _, m := range ctx.Order {
		order = append(order, m.Path)
	}

	want := []string{basePath, peoplePath, placesPath, rootPath}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("Order mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{peoplePath, placesPath, rootPath}, deps.GetDependents(basePath)); diff != "" {
		t.Errorf("GetDependents mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{peoplePath, placesPath}, deps.GetDependencies(rootPath)); diff != "" {
		t.Errorf("GetDependencies mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_Cycle(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	aPath := filepath.Join(tmpDir, "a.otl")
	writeFile(t, aPath, `import { B } from "./b"
type A {}`)

	bPath := filepath.Join(tmpDir, "b.otl")
	writeFile(t, bPath, `import { A } from "./a"
type B {}`)

	_, err := module.NewResolver(module.NewLoader(), nil).Resolve(aPath)
	if !errors.Is(err, module.ErrCyclicImport) {
		t.Fatalf("Resolve() error = %v, want ErrCyclicImport", err)
	}

	var cycleErr *module.CycleError
	if !errors.As(err, &cycleErr) {
		t.Fatalf("Resolve() error = %T, want *CycleError", err)
	}

	if diff := cmp.Diff([]string{aPath, bPath, aPath}, cycleErr.Path); diff != "" {
		t.Errorf("cycle path mismatch (-want +got):\n%s", diff)
	}
}

func TestResolver_SelfImport(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	path := filepath.Join(tmpDir, "self.otl")
	writeFile(t, path, `import { A } from "./self.otl"
type A {}`)

	_, err := module.NewResolver(module.NewLoader(), nil).Resolve(path)
	if !errors.Is(err, module.ErrCyclicImport) {
		t.Errorf("Resolve() error = %v, want ErrCyclicImport", err)
	}
}

func TestResolver_MissingImport(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	path := filepath.Join(tmpDir, "root.otl")
	writeFile(t, path, `import { A } from "./nowhere"`)

	_, err := module.NewResolver(module.NewLoader(), nil).Resolve(path)
	if !errors.Is(err, module.ErrModuleNotFound) {
		t.Errorf("Resolve() error = %v, want ErrModuleNotFound", err)
	}
}
