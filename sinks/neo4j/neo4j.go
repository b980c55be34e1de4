// Package neo4j exports a resolved type graph to Neo4j.
//
// Types become (:OtlType) nodes, fields become (:OtlField) nodes attached
// with [:HAS_FIELD], parents are linked with [:EXTENDS] and note fields
// with [:LINKS_TO] to the types they reference.
package neo4j

import (
	"context"
	"fmt"

	driver "github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/typing"
)

//nolint:gochecknoinits // Sink self-registration pattern
func init() {
	otl.RegisterSink("neo4j", New)
}

// Statement is a parameterized Cypher statement.
type Statement struct {
	Query  string
	Params map[string]any
}

// Sink writes types to Neo4j in a single write transaction.
type Sink struct {
	driver driver.DriverWithContext
	db     string

	// keep disables deleting previously exported types.
	keep bool

	exec func(ctx context.Context, stmts []Statement) error
}

// New creates a Neo4j sink and verifies connectivity.
//
// Options: "database" selects the database; "keep" (bool) keeps previously
// exported types instead of replacing them.
func New(cfg otl.SinkConfig) (otl.Sink, error) { //nolint:ireturn // Factory returns interface per Sink pattern
	auth := driver.NoAuth()
	if cfg.Username != "" {
		auth = driver.BasicAuth(cfg.Username, cfg.Password, "")
	}

	d, err := driver.NewDriverWithContext(cfg.URI, auth)
	if err != nil {
		return nil, fmt.Errorf("neo4j: failed to create driver: %w", err)
	}

	s := &Sink{driver: d}

	if db, ok := cfg.Options["database"].(string); ok {
		s.db = db
	}

	if keep, ok := cfg.Options["keep"].(bool); ok {
		s.keep = keep
	}

	ctx := context.Background()

	if err := d.VerifyConnectivity(ctx); err != nil {
		_ = d.Close(ctx)

		return nil, fmt.Errorf("neo4j: failed to connect: %w", err)
	}

	s.exec = s.write

	return s, nil
}

// Name returns the sink identifier.
func (s *Sink) Name() string {
	return "neo4j"
}

// Export replaces the exported graph with types.
func (s *Sink) Export(ctx context.Context, types []*typing.Type) error {
	stmts := Statements(types)
	if !s.keep {
		stmts = append([]Statement{{Query: clearQuery}}, stmts...)
	}

	return s.exec(ctx, stmts)
}

func (s *Sink) write(ctx context.Context, stmts []Statement) error {
	cfg := driver.SessionConfig{AccessMode: driver.AccessModeWrite}
	if s.db != "" {
		cfg.DatabaseName = s.db
	}

	session := s.driver.NewSession(ctx, cfg)
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx driver.ManagedTransaction) (any, error) {
		for _, st := range stmts {
			res, err := tx.Run(ctx, st.Query, st.Params)
			if err != nil {
				return nil, fmt.Errorf("neo4j: query execution failed: %w", err)
			}

			if _, err := res.Consume(ctx); err != nil {
				return nil, fmt.Errorf("neo4j: failed to consume result: %w", err)
			}
		}

		return nil, nil
	})

	return err
}

// Close releases the driver.
func (s *Sink) Close() error {
	if s.driver == nil {
		return nil
	}

	if err := s.driver.Close(context.Background()); err != nil {
		return fmt.Errorf("neo4j: failed to close driver: %w", err)
	}

	return nil
}

const clearQuery = `MATCH (n) WHERE n:OtlType OR n:OtlField DETACH DELETE n`

const typeQuery = `MERGE (t:OtlType {name: $name})
SET t.abstract = $abstract, t.folder = $folder, t.glob = $glob, t.icon = $icon`

const fieldQuery = `MATCH (t:OtlType {name: $type})
MERGE (f:OtlField {owner: $type, name: $name})
SET f.kind = $kind, f.default = $default
MERGE (t)-[:HAS_FIELD]->(f)`

const extendsQuery = `MATCH (c:OtlType {name: $child}), (p:OtlType {name: $parent})
MERGE (c)-[r:EXTENDS]->(p)
SET r.order = $order`

const linkQuery = `MATCH (f:OtlField {owner: $type, name: $field}), (target:OtlType {name: $target})
MERGE (f)-[:LINKS_TO]->(target)`

// Statements returns the statements writing types. Type nodes are created
// before any relationship refers to them.
func Statements(types []*typing.Type) []Statement {
	var nodes, rels []Statement

	for _, t := range types {
		nodes = append(nodes, Statement{Query: typeQuery, Params: map[string]any{
			"name":     t.Name,
			"abstract": t.IsAbstract,
			"folder":   t.Folder,
			"glob":     t.Glob,
			"icon":     t.Icon,
		}})

		for i, p := range t.Parents {
			rels = append(rels, Statement{Query: extendsQuery, Params: map[string]any{
				"child":  t.Name,
				"parent": p.Name,
				"order":  i,
			}})
		}

		for _, name := range t.FieldNames() {
			f := t.Fields[name]

			rels = append(rels, Statement{Query: fieldQuery, Params: map[string]any{
				"type":    t.Name,
				"name":    name,
				"kind":    typing.TypeString(f.Type),
				"default": f.Default,
			}})

			for _, target := range typing.NoteTargets(f.Type) {
				rels = append(rels, Statement{Query: linkQuery, Params: map[string]any{
					"type":   t.Name,
					"field":  name,
					"target": target,
				}})
			}
		}
	}

	return append(nodes, rels...)
}

var _ otl.Sink = (*Sink)(nil)
