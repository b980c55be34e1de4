package module

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".obsidian":    {},
	".trash":       {},
}

// Discover finds the .otl files under root, skipping hidden directories and
// paths matched by root's .gitignore or by the exclude patterns. Paths are
// returned relative to root, sorted.
func Discover(root string, exclude []string) ([]string, error) {
	gi := loadIgnore(root, exclude)

	var results []string

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip unreadable entries
		}

		name := d.Name()

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if path == root {
				return nil
			}

			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}

			if gi != nil && (gi.MatchesPath(rel) || gi.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}

			return nil
		}

		if filepath.Ext(name) != Extension || d.Type()&os.ModeSymlink != 0 {
			return nil
		}

		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}

		results = append(results, rel)

		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(results)

	return results, nil
}

func loadIgnore(root string, exclude []string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFileAndLines(filepath.Join(root, ".gitignore"), exclude...)
	if err == nil {
		return gi
	}

	if len(exclude) > 0 {
		return ignore.CompileIgnoreLines(exclude...)
	}

	return nil
}
