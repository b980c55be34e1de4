package otl

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the .otl.yaml configuration file.
type Config struct {
	// Root schema module; its types populate the type graph.
	Schema string `yaml:"schema"`

	// Include and Exclude are gitignore-style patterns selecting the .otl
	// files checked by `otl check` when no paths are given.
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	Scripting ScriptingConfig `yaml:"scripting"`

	// Log level for the CLI and language server (debug, info, warn, error).
	Log string `yaml:"log,omitempty"`

	// Export sink used by `otl export`.
	Export SinkConfig `yaml:"export,omitempty"`

	// Dir is the directory the config was loaded from. Relative paths in
	// the config are resolved against it.
	Dir string `yaml:"-"`
}

// ScriptingConfig controls embedded scripts.
type ScriptingConfig struct {
	// Enabled turns script compilation on. When off, scripted strings
	// produce a warning and evaluate to nothing.
	Enabled *bool `yaml:"enabled,omitempty"`
}

// ScriptsEnabled reports whether scripts may be compiled. Defaults to true.
func (c *Config) ScriptsEnabled() bool {
	return c == nil || c.Scripting.Enabled == nil || *c.Scripting.Enabled
}

// SchemaPath returns the schema path resolved against the config directory.
func (c *Config) SchemaPath() string {
	if c.Schema == "" || filepath.IsAbs(c.Schema) || c.Dir == "" {
		return c.Schema
	}

	return filepath.Join(c.Dir, c.Schema)
}

// DefaultConfigNames are the filenames we search for.
var DefaultConfigNames = []string{".otl.yaml", ".otl.yml", "otl.yaml", "otl.yml"}

// LoadConfig finds and loads the nearest .otl.yaml walking up from dir.
func LoadConfig(dir string) (*Config, error) {
	path, err := FindConfig(dir)
	if err != nil {
		return nil, err
	}

	return LoadConfigFile(path)
}

// FindConfig searches for a config file starting from dir and walking up.
func FindConfig(dir string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	for dir := absDir; ; {
		for _, name := range DefaultConfigNames {
			path := filepath.Join(dir, name)

			_, err := os.Stat(path)
			if err == nil {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrConfigNotFound
		}

		dir = parent
	}
}

// LoadConfigFile loads a config from a specific path.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var cfg Config

	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, err
	}

	cfg.Dir = filepath.Dir(path)

	return &cfg, nil
}
