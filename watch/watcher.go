// Package watch reloads the schema when OTL files change on disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	ignore "github.com/sabhiram/go-gitignore"
	"go.uber.org/zap"

	"github.com/otl-lang/otl/interpreter"
	"github.com/otl-lang/otl/module"
)

// DefaultDelay is how long the watcher waits for writes to settle.
const DefaultDelay = 100 * time.Millisecond

// Result describes one reload.
type Result struct {
	// Changed are the files reported by the file system.
	Changed []string
	// Invalidated are the cached modules that were dropped.
	Invalidated []string

	Module *interpreter.LoadedModule
	Err    error
}

// Watcher invalidates changed modules and reimports the schema.
type Watcher struct {
	in      *interpreter.Interpreter
	root    string
	delay   time.Duration
	exclude *ignore.GitIgnore
	logger  *zap.Logger
	notify  func(Result)
	started func([]string)

	fs *fsnotify.Watcher
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		w.delay = d
	}
}

// WithExclude ignores paths matching the gitignore-style patterns.
func WithExclude(patterns ...string) Option {
	return func(w *Watcher) {
		if len(patterns) > 0 {
			w.exclude = ignore.CompileIgnoreLines(patterns...)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// OnReload sets the function called after every reload.
func OnReload(fn func(Result)) Option {
	return func(w *Watcher) {
		w.notify = fn
	}
}

// OnReloading sets the function called with the changed files before a
// reload starts.
func OnReloading(fn func(changed []string)) Option {
	return func(w *Watcher) {
		w.started = fn
	}
}

// New creates a watcher for the .otl files below root.
func New(in *interpreter.Interpreter, root string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		in:      in,
		root:    abs,
		delay:   DefaultDelay,
		logger:  zap.NewNop(),
		notify:  func(Result) {},
		started: func([]string) {},
	}

	for _, opt := range opts {
		opt(w)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	w.fs = fs

	if err := w.addTree(abs); err != nil {
		_ = fs.Close()

		return nil, err
	}

	return w, nil
}

// Run processes file events until ctx is done. It closes the watcher on
// return.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fs.Close() }()

	d := NewDebouncer(w.delay, func(paths []string) {
		w.notify(w.reload(ctx, paths))
	})
	defer d.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}

			w.handle(ev, d)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event, d *Debouncer) {
	if w.ignored(ev.Name) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watch directory", zap.String("path", ev.Name), zap.Error(err))
			}

			return
		}
	}

	if filepath.Ext(ev.Name) != module.Extension {
		return
	}

	if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.logger.Debug("file changed", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
		d.Add(ev.Name)
	}
}

func (w *Watcher) reload(ctx context.Context, paths []string) Result {
	w.started(paths)

	res := Result{Changed: paths}

	for _, p := range paths {
		res.Invalidated = append(res.Invalidated, w.in.Invalidate(p)...)
	}

	res.Module, res.Err = w.in.ImportSchema(ctx)

	if res.Err != nil {
		w.logger.Warn("schema reload failed", zap.Error(res.Err))
	} else {
		w.logger.Info("schema reloaded",
			zap.Strings("changed", paths),
			zap.Int("invalidated", len(res.Invalidated)))
	}

	return res
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil //nolint:nilerr // unreadable entries are skipped
		}

		if path != w.root && w.ignored(path) {
			return filepath.SkipDir
		}

		if err := w.fs.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}

		return nil
	})
}

func (w *Watcher) ignored(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || name == "node_modules" {
		return true
	}

	if w.exclude == nil {
		return false
	}

	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}

	return w.exclude.MatchesPath(filepath.ToSlash(rel))
}
