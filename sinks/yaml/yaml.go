// Package yaml exports a resolved type graph as a YAML document.
package yaml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	goyaml "gopkg.in/yaml.v3"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/typing"
)

//nolint:gochecknoinits // Sink self-registration pattern
func init() {
	otl.RegisterSink("yaml", New)
}

// ErrNoDestination is returned when the sink config has no URI.
var ErrNoDestination = errors.New("yaml: no destination configured")

// Document is the exported file.
type Document struct {
	Types []Type `yaml:"types"`
}

// Type is the exported form of a typing.Type.
type Type struct {
	Name     string   `yaml:"name"`
	Abstract bool     `yaml:"abstract,omitempty"`
	Extends  []string `yaml:"extends,omitempty"`
	Folder   string   `yaml:"folder,omitempty"`
	Glob     string   `yaml:"glob,omitempty"`
	Icon     string   `yaml:"icon,omitempty"`
	Fields   []Field  `yaml:"fields,omitempty"`
	Actions  []string `yaml:"actions,omitempty"`
	Methods  []string `yaml:"methods,omitempty"`
	Hooks    []string `yaml:"hooks,omitempty"`
}

// Field is the exported form of a typing.Field.
type Field struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Default string   `yaml:"default,omitempty"`
	Links   []string `yaml:"links,omitempty"`
}

// Sink writes the document to a file or a writer.
type Sink struct {
	path string
	w    io.Writer
}

// New creates a sink writing to the path in cfg.URI. A "file://" prefix is
// accepted; "-" writes to stdout.
func New(cfg otl.SinkConfig) (otl.Sink, error) { //nolint:ireturn // Factory returns interface per Sink pattern
	path := strings.TrimPrefix(cfg.URI, "file://")

	switch path {
	case "":
		return nil, ErrNoDestination
	case "-":
		return NewWriter(os.Stdout), nil
	}

	return &Sink{path: path}, nil
}

// NewWriter creates a sink writing to w.
func NewWriter(w io.Writer) *Sink {
	return &Sink{w: w}
}

// Name returns the sink identifier.
func (s *Sink) Name() string {
	return "yaml"
}

// Export writes types as a Document.
func (s *Sink) Export(ctx context.Context, types []*typing.Type) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	w := s.w

	if w == nil {
		f, err := os.Create(s.path)
		if err != nil {
			return fmt.Errorf("yaml: create %s: %w", s.path, err)
		}
		defer f.Close()

		w = f
	}

	enc := goyaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(NewDocument(types)); err != nil {
		return fmt.Errorf("yaml: encode: %w", err)
	}

	return enc.Close()
}

// Close is a no-op; files are closed after every export.
func (s *Sink) Close() error {
	return nil
}

// NewDocument converts types, keeping their order.
func NewDocument(types []*typing.Type) Document {
	doc := Document{Types: make([]Type, 0, len(types))}

	for _, t := range types {
		out := Type{
			Name:     t.Name,
			Abstract: t.IsAbstract,
			Extends:  t.ParentNames,
			Folder:   t.Folder,
			Glob:     t.Glob,
			Icon:     t.Icon,
		}

		for _, name := range t.FieldNames() {
			f := t.Fields[name]
			out.Fields = append(out.Fields, Field{
				Name:    name,
				Type:    typing.TypeString(f.Type),
				Default: f.Default,
				Links:   typing.NoteTargets(f.Type),
			})
		}

		out.Actions = sortedKeys(t.Actions)
		out.Methods = sortedKeys(t.Methods)
		out.Hooks = sortedKeys(t.Hooks)

		doc.Types = append(doc.Types, out)
	}

	return doc
}

func sortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}

var _ otl.Sink = (*Sink)(nil)
