package otl_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/otl-lang/otl"
)

func TestLoadConfig_WalksUp(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")

	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	content := `schema: schema/main.otl
include: ["**/*.otl"]
exclude: ["vendor/"]
scripting:
  enabled: false
log: debug
export:
  name: neo4j
  uri: bolt://localhost:7687
  options:
    database: graph
`
	if err := os.WriteFile(filepath.Join(root, ".otl.yaml"), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := otl.LoadConfig(nested)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	want := &otl.Config{
		Schema:    "schema/main.otl",
		Include:   []string{"**/*.otl"},
		Exclude:   []string{"vendor/"},
		Scripting: otl.ScriptingConfig{Enabled: new(bool)},
		Log:       "debug",
		Export: otl.SinkConfig{
			Name:    "neo4j",
			URI:     "bolt://localhost:7687",
			Options: map[string]any{"database": "graph"},
		},
	}

	if diff := cmp.Diff(want, cfg, cmpopts.IgnoreFields(otl.Config{}, "Dir")); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}

	if cfg.ScriptsEnabled() {
		t.Error("ScriptsEnabled() = true, want false")
	}

	if got, want := cfg.SchemaPath(), filepath.Join(cfg.Dir, "schema", "main.otl"); got != want {
		t.Errorf("SchemaPath() = %q, want %q", got, want)
	}
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	var nilCfg *otl.Config
	if !nilCfg.ScriptsEnabled() {
		t.Error("nil config should enable scripts")
	}

	if !(&otl.Config{}).ScriptsEnabled() {
		t.Error("empty config should enable scripts")
	}
}

func TestFindConfig_NotFound(t *testing.T) {
	t.Parallel()

	_, err := otl.FindConfig(t.TempDir())
	if err != nil && !errors.Is(err, otl.ErrConfigNotFound) {
		t.Errorf("FindConfig() error = %v, want ErrConfigNotFound", err)
	}
}
