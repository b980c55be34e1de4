package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/otl-lang/otl/report"
	"github.com/otl-lang/otl/typing"
)

func typesCommand() *cli.Command {
	return &cli.Command{
		Name:      "types",
		Usage:     "List the types of the schema",
		ArgsUsage: "[type names...]",
		Action:    runTypes,
	}
}

func runTypes(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if err := s.importSchema(ctx); err != nil {
		return err
	}

	types := s.in.Graph().Types()

	if names := cmd.Args().Slice(); len(names) > 0 {
		types = types[:0:0]

		for _, name := range names {
			t := s.in.Graph().Get(typing.Query{Name: name})
			if t == nil {
				return fmt.Errorf("%w: %s", ErrUnknownType, name)
			}

			types = append(types, t)
		}
	}

	return report.NewRenderer(os.Stdout).Types(types)
}

// importSchema loads the schema into the graph. Lint errors of the schema
// are printed but do not fail the command.
func (s *session) importSchema(ctx context.Context) error {
	mod, err := s.in.ImportSchema(ctx)
	if err != nil {
		return err
	}

	if mod.Error != "" {
		fmt.Fprintln(os.Stderr, mod.Error)
	}

	return nil
}
