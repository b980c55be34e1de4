package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/frontmatter"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/otl-lang/otl/report"
	"github.com/otl-lang/otl/typing"
)

var (
	// ErrUnknownType is returned when a type name is not in the schema.
	ErrUnknownType = errors.New("unknown type")

	// ErrNoType is returned when no type matches a note's path.
	ErrNoType = errors.New("no type matches note")

	// ErrNoNotes is returned when validate is called without notes.
	ErrNoNotes = errors.New("no notes given")

	// ErrUnterminatedFrontmatter is returned when the closing --- is missing.
	ErrUnterminatedFrontmatter = errors.New("unterminated frontmatter")
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate note frontmatter against the schema",
		ArgsUsage: "<notes...>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "type",
				Aliases: []string{"t"},
				Usage:   "type to validate against (default: resolved from the note path)",
			},
		},
		Action: runValidate,
	}
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	notes := cmd.Args().Slice()
	if len(notes) == 0 {
		return ErrNoNotes
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.importSchema(ctx); err != nil {
		return err
	}

	r := report.NewRenderer(os.Stdout)
	failed := false

	for _, note := range notes {
		t, err := s.noteType(note, cmd.String("type"))
		if err != nil {
			return err
		}

		data, err := os.ReadFile(note) //nolint:gosec // G304: file path from user input is expected
		if err != nil {
			return err
		}

		values, err := readFrontmatter(data)
		if err != nil {
			return fmt.Errorf("%s: %w", note, err)
		}

		vs := typing.Validate(t, values)
		if len(vs) > 0 {
			failed = true
		}

		if err := r.Violations(note, vs); err != nil {
			return err
		}
	}

	if failed {
		return cli.Exit("", 1)
	}

	return nil
}

// noteType returns the named type, or the type whose folder or glob
// matches the note's path relative to the session root.
func (s *session) noteType(note, name string) (*typing.Type, error) {
	g := s.in.Graph()

	if name != "" {
		t := g.Get(typing.Query{Name: name})
		if t == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
		}

		return t, nil
	}

	abs, err := filepath.Abs(note)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(s.root())
	if err != nil {
		return nil, err
	}

	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return nil, err
	}

	t := g.Get(typing.Query{Path: filepath.ToSlash(rel)})
	if t == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoType, note)
	}

	return t, nil
}

var (
	fence = []byte("---")

	yamlFrontmatter = frontmatter.NewFormat("---", "---", yaml.Unmarshal)
)

// readFrontmatter decodes the YAML block between the leading --- fences of
// a note. A note without frontmatter has no values.
func readFrontmatter(data []byte) (map[string]any, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	values := map[string]any{}

	_, err := frontmatter.MustParse(bytes.NewReader(data), &values, yamlFrontmatter)

	switch {
	case errors.Is(err, frontmatter.ErrNotFound):
		if opensFence(data) {
			return nil, ErrUnterminatedFrontmatter
		}

		return values, nil
	case err != nil:
		return nil, fmt.Errorf("frontmatter: %w", err)
	}

	return values, nil
}

// opensFence reports whether the first non-blank line of data is a fence.
func opensFence(data []byte) bool {
	for line := range bytes.Lines(data) {
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			return bytes.Equal(trimmed, fence)
		}
	}

	return false
}
