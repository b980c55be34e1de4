package module_test

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/otl-lang/otl/module"
)

func TestDependencyGraph(t *testing.T) {
	t.Parallel()

	g := module.NewDependencyGraph()

	g.AddDependency("root", "people")
	g.AddDependency("people", "base")
	g.AddDependency("places", "base")

	tests := []struct {
		name string
		got  []string
		want []string
	}{
		{"dependents of base", g.GetDependents("base"), []string{"people", "places", "root"}},
		{"dependents of people", g.GetDependents("people"), []string{"root"}},
		{"dependents of root", g.GetDependents("root"), []string{}},
		{"dependencies of people", g.GetDependencies("people"), []string{"base"}},
		{"dependencies of base", g.GetDependencies("base"), []string{}},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, tt.got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", tt.name, diff)
		}
	}

	g.ClearDependencies("people")

	if diff := cmp.Diff([]string{"places"}, g.GetDependents("base")); diff != "" {
		t.Errorf("dependents after ClearDependencies mismatch (-want +got):\n%s", diff)
	}

	g.Clear()

	if got := g.GetDependents("base"); len(got) != 0 {
		t.Errorf("dependents after Clear = %v, want none", got)
	}
}

func TestDependencyGraph_Cycle(t *testing.T) {
	t.Parallel()

	g := module.NewDependencyGraph()

	g.AddDependency("a", "b")
	g.AddDependency("b", "a")

	if diff := cmp.Diff([]string{"b"}, g.GetDependents("a")); diff != "" {
		t.Errorf("GetDependents mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()

	writeFile(t, filepath.Join(tmpDir, ".gitignore"), "build/\nscratch.otl\n")
	writeFile(t, filepath.Join(tmpDir, "schema.otl"), "type A {}")
	writeFile(t, filepath.Join(tmpDir, "scratch.otl"), "type S {}")
	writeFile(t, filepath.Join(tmpDir, "types", "people.otl"), "type P {}")
	writeFile(t, filepath.Join(tmpDir, "types", "notes.md"), "# notes")
	writeFile(t, filepath.Join(tmpDir, "build", "gen.otl"), "type G {}")
	writeFile(t, filepath.Join(tmpDir, "drafts", "wip.otl"), "type W {}")
	writeFile(t, filepath.Join(tmpDir, ".obsidian", "hidden.otl"), "type H {}")

	got, err := module.Discover(tmpDir, []string{"drafts/"})
	if err != nil {
		t.Fatalf("Discover() error: %v", err)
	}

	want := []string{"schema.otl", filepath.Join("types", "people.otl")}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
	}
}
