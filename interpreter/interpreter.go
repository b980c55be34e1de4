// Package interpreter evaluates OTL modules: it loads files through the
// module loader, runs the schema handlers over them, serves imports between
// modules and publishes the root schema into the type graph.
package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/handlers"
	"github.com/otl-lang/otl/module"
	"github.com/otl-lang/otl/schema"
	"github.com/otl-lang/otl/typing"
	"github.com/otl-lang/otl/visitor"
)

var (
	// ErrNoSchema is returned by ImportSchema when no schema path is set.
	ErrNoSchema = errors.New("interpreter: no schema path configured")

	// ErrInvalidCode is returned by RunCode when the code has lint errors.
	ErrInvalidCode = errors.New("interpreter: invalid code")

	// ErrEvaluation is returned when a module produced no types.
	ErrEvaluation = errors.New("interpreter: module evaluation failed")
)

// ImportStatusListener is notified about module imports.
type ImportStatusListener interface {
	OnImportStarted(path string)
	OnImportFailed(path string)
	OnImportCompleted(path string)
}

// LoadedModule is the evaluation result of a module.
type LoadedModule struct {
	Path string
	Hash uint64

	// Env holds the module's declared and imported types.
	Env schema.Module

	// Error lists the module's lint errors, one `path:from-to: message`
	// per line; empty when the module is clean.
	Error string
}

// Interpreter evaluates modules and keeps the type graph in sync with the
// schema. Evaluated modules are cached until their content changes or
// they are invalidated.
type Interpreter struct {
	loader     *module.Loader
	deps       *module.DependencyGraph
	graph      *typing.Graph
	logger     *zap.Logger
	listener   ImportStatusListener
	schemaPath string
	safeMode   bool

	reloadMu sync.Mutex

	mu          sync.Mutex
	modules     map[string]*LoadedModule
	subscribers []func(Event)
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLoader sets the module loader.
func WithLoader(l *module.Loader) Option {
	return func(in *Interpreter) {
		in.loader = l
	}
}

// WithGraph sets the type graph the schema is published to.
func WithGraph(g *typing.Graph) Option {
	return func(in *Interpreter) {
		in.graph = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(in *Interpreter) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithListener sets the import status listener.
func WithListener(l ImportStatusListener) Option {
	return func(in *Interpreter) {
		in.listener = l
	}
}

// WithSchemaPath sets the root schema module.
func WithSchemaPath(path string) Option {
	return func(in *Interpreter) {
		in.schemaPath = path
	}
}

// WithSafeMode disables embedded scripts.
func WithSafeMode(enabled bool) Option {
	return func(in *Interpreter) {
		in.safeMode = enabled
	}
}

// WithConfig applies the schema path and scripting settings of cfg.
func WithConfig(cfg *otl.Config) Option {
	return func(in *Interpreter) {
		if cfg == nil {
			return
		}

		if p := cfg.SchemaPath(); p != "" {
			in.schemaPath = p
		}

		in.safeMode = !cfg.ScriptsEnabled()
	}
}

// New creates an Interpreter with the given options.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		loader:  module.NewLoader(),
		deps:    module.NewDependencyGraph(),
		graph:   typing.NewGraph(),
		logger:  zap.NewNop(),
		modules: make(map[string]*LoadedModule),
	}

	for _, opt := range opts {
		opt(in)
	}

	return in
}

// Graph returns the type graph.
func (in *Interpreter) Graph() *typing.Graph { return in.graph }

// Loader returns the module loader.
func (in *Interpreter) Loader() *module.Loader { return in.loader }

// Dependencies returns the import graph of the evaluated modules.
func (in *Interpreter) Dependencies() *module.DependencyGraph { return in.deps }

// SchemaPath returns the root schema module path.
func (in *Interpreter) SchemaPath() string { return in.schemaPath }

// Env returns the handler environment modules are evaluated with.
func (in *Interpreter) Env() *handlers.Env {
	return &handlers.Env{Importer: in, SafeMode: in.safeMode}
}

// RunCode evaluates a single expression with h, typically
// schema.Expression. Code with lint errors evaluates to nothing and the
// error wraps ErrInvalidCode.
func (in *Interpreter) RunCode(code string, h *visitor.Handler) (any, error) {
	tree, err := otl.ParseExpression(code)
	if err != nil {
		return nil, err
	}

	ctx := visitor.NewContext(tree.Source, "", in.Env(), in.logger)

	lint, err := ctx.Lint(h, tree.Root)
	if err != nil {
		return nil, err
	}

	if lint.HasErrors {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCode, FormatDiagnostics("", lint.Diagnostics))
	}

	return ctx.Run(h, tree.Root)
}

// EvaluateModule lints and runs file, storing the produced types and the
// lint errors in mod. A module with lint errors still produces its
// best-effort types. It returns false when no types were produced: the
// source is missing or does not parse.
func (in *Interpreter) EvaluateModule(file *module.Module, mod *LoadedModule) bool {
	path := mod.Path
	if file != nil && file.Path != "" {
		path = file.Path
	}

	if file == nil || file.Source == nil {
		in.notifyFailed(path)

		return false
	}

	in.notifyStarted(path)

	tree := file.Tree
	if tree == nil {
		var err error

		tree, err = otl.Parse(file.Source)
		if err != nil {
			mod.Error = fmt.Sprintf("%s: %v", path, err)
			in.notifyFailed(path)

			return false
		}
	}

	ctx := visitor.NewContext(tree.Source, path, in.Env(), in.logger)

	lint, err := ctx.Lint(schema.File, tree.Root)
	if err != nil {
		mod.Error = err.Error()
		in.notifyFailed(path)

		return false
	}

	if lint.HasErrors {
		mod.Error = FormatDiagnostics(path, lint.Diagnostics)
	}

	out, err := ctx.Run(schema.File, tree.Root)

	env, _ := out.(schema.Module)
	if err != nil || env == nil {
		in.notifyFailed(path)

		return false
	}

	for _, f := range ctx.Failures() {
		in.logger.Warn("handler failure during evaluation",
			zap.String("path", path),
			zap.Int("from", f.From),
			zap.Int("to", f.To),
			zap.String("message", f.Message))
	}

	mod.Env = env
	in.notifyCompleted(path)

	return true
}

// FormatDiagnostics renders diagnostics one per line as
// `path:from-to: message`.
func FormatDiagnostics(path string, ds []visitor.Diagnostic) string {
	lines := make([]string, 0, len(ds))
	for _, d := range ds {
		lines = append(lines, fmt.Sprintf("%s:%d-%d: %s", path, d.From, d.To, d.Message))
	}

	return strings.Join(lines, "\n")
}

// ImportModule loads and evaluates the module at path, relative to the
// importing file from (empty for the working directory). Results are
// cached by content hash. A module that takes part in an import cycle is
// not evaluated; its Error names the cycle.
func (in *Interpreter) ImportModule(path, from string) (*LoadedModule, error) {
	file, err := in.loader.LoadFrom(path, from)
	if err != nil {
		if errors.Is(err, module.ErrParseError) {
			in.notifyFailed(path)
		}

		return nil, err
	}

	in.mu.Lock()
	cached := in.modules[file.Path]
	in.mu.Unlock()

	if cached != nil && cached.Hash == file.Hash {
		return cached, nil
	}

	mod := &LoadedModule{Path: file.Path, Hash: file.Hash}

	_, err = module.NewResolver(in.loader, in.deps).ResolveModule(file)

	var cycle *module.CycleError
	if errors.As(err, &cycle) {
		in.logger.Warn("import cycle", zap.String("path", file.Path), zap.Strings("cycle", cycle.Path))
		mod.Error = err.Error()
		in.notifyFailed(file.Path)

		return mod, nil
	}

	if !in.EvaluateModule(file, mod) {
		return mod, fmt.Errorf("%w: %s", ErrEvaluation, file.Path)
	}

	in.mu.Lock()
	in.modules[file.Path] = mod
	in.mu.Unlock()

	in.logger.Debug("module evaluated",
		zap.String("path", file.Path),
		zap.Int("types", len(mod.Env)),
		zap.Bool("errors", mod.Error != ""))

	return mod, nil
}

// Import implements handlers.Importer. It returns nil when the module
// cannot be found.
func (in *Interpreter) Import(path, from string) *handlers.ImportResult {
	mod, err := in.ImportModule(path, from)

	switch {
	case errors.Is(err, module.ErrModuleNotFound):
		return nil
	case err != nil && mod == nil:
		return &handlers.ImportResult{Error: err.Error()}
	case mod == nil:
		return nil
	}

	return &handlers.ImportResult{Types: mod.Env, Error: mod.Error}
}

// Invalidate drops the cached evaluation of the module at the absolute
// path and of every module importing it. It returns the dropped paths.
func (in *Interpreter) Invalidate(path string) []string {
	dropped := append([]string{path}, in.deps.GetDependents(path)...)

	in.mu.Lock()
	defer in.mu.Unlock()

	for _, p := range dropped {
		delete(in.modules, p)
		in.loader.Forget(p)
	}

	return dropped
}

// Module returns the cached evaluation of the module at the absolute path.
func (in *Interpreter) Module(path string) *LoadedModule {
	in.mu.Lock()
	defer in.mu.Unlock()

	return in.modules[path]
}

func (in *Interpreter) notifyStarted(path string) {
	if in.listener != nil {
		in.listener.OnImportStarted(path)
	}
}

func (in *Interpreter) notifyFailed(path string) {
	in.logger.Debug("import failed", zap.String("path", path))

	if in.listener != nil {
		in.listener.OnImportFailed(path)
	}
}

func (in *Interpreter) notifyCompleted(path string) {
	if in.listener != nil {
		in.listener.OnImportCompleted(path)
	}
}

// ImportSchema imports the root schema module and publishes its types to
// the graph. Imports of the schema are serialized.
func (in *Interpreter) ImportSchema(ctx context.Context) (*LoadedModule, error) {
	in.reloadMu.Lock()
	defer in.reloadMu.Unlock()

	return in.importSchema(ctx)
}

// Reload drops every cached module and imports the schema again.
func (in *Interpreter) Reload(ctx context.Context) (*LoadedModule, error) {
	in.reloadMu.Lock()
	defer in.reloadMu.Unlock()

	in.mu.Lock()
	in.modules = make(map[string]*LoadedModule)
	in.mu.Unlock()

	in.loader.Clear()
	in.deps.Clear()

	return in.importSchema(ctx)
}

func (in *Interpreter) importSchema(ctx context.Context) (*LoadedModule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if in.schemaPath == "" {
		return nil, ErrNoSchema
	}

	mod, err := in.ImportModule(in.schemaPath, "")
	if err != nil {
		return mod, fmt.Errorf("import schema: %w", err)
	}

	wasReady := in.graph.Ready()

	in.graph.Clear()

	for _, t := range typing.Ordered(mod.Env) {
		in.graph.Add(t)
	}

	in.graph.SetReady(true)

	kind := EventSchemaChanged
	if !wasReady {
		kind = EventSchemaReady
	}

	in.logger.Info("schema loaded",
		zap.String("path", mod.Path),
		zap.Int("types", in.graph.Len()),
		zap.Bool("errors", mod.Error != ""))

	in.publish(Event{Kind: kind, Path: mod.Path, Types: in.graph.Len(), Error: mod.Error})

	return mod, nil
}
