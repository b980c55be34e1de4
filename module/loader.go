package module

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/otl-lang/otl"
)

// Loader handles loading and caching of OTL modules. A cached module is
// reused while the file content hashes the same. It is safe for
// concurrent use.
type Loader struct {
	mu sync.Mutex

	// cache stores loaded modules by absolute path.
	cache map[string]*Module

	// Parser is the function used to parse .otl files.
	// Defaults to otl.Parse but can be overridden for testing.
	Parser func(data []byte) (*otl.Tree, error)

	// ReadFile reads module sources. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

// NewLoader creates a new module loader.
func NewLoader() *Loader {
	return &Loader{
		cache:    make(map[string]*Module),
		Parser:   otl.Parse,
		ReadFile: os.ReadFile,
	}
}

// Load loads a module from the given path.
// Relative paths are resolved from the current working directory.
func (l *Loader) Load(path string) (*Module, error) {
	return l.LoadFrom(path, "")
}

// LoadFrom loads a module, resolving the path relative to the directory of
// the importing file from. This is used for loading imports.
func (l *Loader) LoadFrom(path, from string) (*Module, error) {
	absPath, err := l.ResolvePath(path, from)
	if err != nil {
		return nil, &LoadError{
			Path:         path,
			ImportedFrom: from,
			Cause:        err,
		}
	}

	return l.loadAbsolute(absPath, from)
}

// ResolvePath resolves an import path to an absolute path.
// If from is provided, relative paths are resolved from its directory.
func (l *Loader) ResolvePath(path, from string) (string, error) {
	// If path is already absolute, use it directly
	if filepath.IsAbs(path) {
		return l.normalizePath(path)
	}

	var baseDir string
	if from != "" {
		baseDir = filepath.Dir(from)
	} else {
		var err error

		baseDir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	return l.normalizePath(filepath.Join(baseDir, path))
}

// normalizePath ensures the path exists, appending the .otl extension
// when the path has none.
func (l *Loader) normalizePath(path string) (string, error) {
	path = filepath.Clean(path)

	// Try the path as-is first
	if l.exists(path) {
		return filepath.Abs(path)
	}

	if filepath.Ext(path) == "" && l.exists(path+Extension) {
		return filepath.Abs(path + Extension)
	}

	return "", fmt.Errorf("%w: %s", ErrModuleNotFound, path)
}

func (l *Loader) exists(path string) bool {
	info, err := os.Stat(path)
	if err == nil {
		return !info.IsDir()
	}

	// Sources served by a custom ReadFile need not exist on disk.
	if l.ReadFile != nil {
		_, err = l.ReadFile(path)

		return err == nil
	}

	return false
}

// loadAbsolute loads a module from an absolute path.
func (l *Loader) loadAbsolute(absPath, importedFrom string) (*Module, error) {
	readFile := l.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}

	data, err := readFile(absPath)
	if err != nil {
		return nil, &LoadError{
			Path:         absPath,
			ImportedFrom: importedFrom,
			Cause:        err,
		}
	}

	hash := xxhash.Sum64(data)

	l.mu.Lock()
	mod, ok := l.cache[absPath]
	l.mu.Unlock()

	if ok && mod.Hash == hash {
		return mod, nil
	}

	tree, err := l.Parser(data)
	if err != nil {
		return nil, &LoadError{
			Path:         absPath,
			ImportedFrom: importedFrom,
			Cause:        fmt.Errorf("%w: %w", ErrParseError, err),
		}
	}

	mod = NewModule(absPath, data, hash, tree)

	l.mu.Lock()
	l.cache[absPath] = mod
	l.mu.Unlock()

	return mod, nil
}

// Forget drops the cached module at the absolute path.
func (l *Loader) Forget(absPath string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.cache, absPath)
}

// Clear clears the module cache.
func (l *Loader) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cache = make(map[string]*Module)
}

// Cached returns all cached modules.
func (l *Loader) Cached() map[string]*Module {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make(map[string]*Module, len(l.cache))
	maps.Copy(result, l.cache)

	return result
}
