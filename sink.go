package otl

import (
	"context"
	"fmt"
	"sort"

	"github.com/otl-lang/otl/typing"
)

// Sink receives a resolved type graph, e.g. a graph database or a file.
type Sink interface {
	// Name returns the sink identifier (e.g., "neo4j", "yaml").
	Name() string

	// Export writes the given types. Types are ordered so that parents
	// precede their children.
	Export(ctx context.Context, types []*typing.Type) error

	// Close releases any resources held by the sink.
	Close() error
}

// SinkFactory creates a Sink from configuration.
type SinkFactory func(cfg SinkConfig) (Sink, error)

// SinkConfig holds settings for an export sink.
type SinkConfig struct {
	// Sink name (e.g., "neo4j", "yaml").
	Name string `yaml:"name,omitempty"`

	// Destination URI (e.g., "bolt://localhost:7687", "file:///tmp/types.yaml").
	URI string `yaml:"uri,omitempty"`

	// Optional credentials (if not in URI)
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`

	// Sink-specific options
	Options map[string]any `yaml:"options,omitempty"`
}

var sinks = make(map[string]SinkFactory)

// RegisterSink registers a sink factory by name.
// Sinks should call this in their init() function.
func RegisterSink(name string, factory SinkFactory) {
	sinks[name] = factory
}

// NewSink creates a sink instance by name.
func NewSink(name string, cfg SinkConfig) (Sink, error) { //nolint:ireturn
	factory, ok := sinks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSink, name)
	}

	return factory(cfg)
}

// RegisteredSinks returns the names of all registered sinks, sorted.
func RegisteredSinks() []string {
	names := make([]string, 0, len(sinks))
	for name := range sinks {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
