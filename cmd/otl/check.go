package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	ignore "github.com/sabhiram/go-gitignore"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/module"
	"github.com/otl-lang/otl/report"
	"github.com/otl-lang/otl/schema"
	"github.com/otl-lang/otl/visitor"
)

// ErrNoOTLFiles is returned when check finds nothing to check.
var ErrNoOTLFiles = errors.New("no .otl files found")

func checkCommand() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "Lint OTL modules",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "warnings-as-errors",
				Usage: "fail when any warning is reported",
			},
		},
		Action: runCheck,
	}
}

func runCheck(_ context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	files, err := s.collectFiles(cmd.Args().Slice())
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return ErrNoOTLFiles
	}

	r := report.NewRenderer(os.Stdout)

	var errs, warnings int

	for _, file := range files {
		source, ds, err := s.lint(file)
		if err != nil {
			return err
		}

		for _, d := range ds {
			switch d.Severity {
			case visitor.SeverityError:
				errs++
			case visitor.SeverityWarning:
				warnings++
			}
		}

		if err := r.Diagnostics(displayPath(file), source, ds); err != nil {
			return err
		}
	}

	if err := r.Summary(len(files), errs, warnings); err != nil {
		return err
	}

	if errs > 0 || (warnings > 0 && cmd.Bool("warnings-as-errors")) {
		return cli.Exit("", 1)
	}

	return nil
}

// lint parses and lints one module. A parse failure is reported as a
// diagnostic at the offending token.
func (s *session) lint(path string) ([]byte, []visitor.Diagnostic, error) {
	mod, err := s.in.Loader().Load(path)
	if err != nil {
		var pe *otl.ParseError
		if !errors.As(err, &pe) {
			return nil, nil, err
		}

		source, readErr := os.ReadFile(path) //nolint:gosec // G304: file path from user input is expected
		if readErr != nil {
			return nil, nil, readErr
		}

		return source, []visitor.Diagnostic{{
			From:     pe.Pos.Offset,
			To:       pe.Pos.Offset + 1,
			Severity: visitor.SeverityError,
			Message:  pe.Cause.Error(),
		}}, nil
	}

	ctx := visitor.NewContext(mod.Tree.Source, mod.Path, s.in.Env(), s.logger)

	res, err := ctx.Lint(schema.File, mod.Tree.Root)
	if err != nil {
		return nil, nil, fmt.Errorf("linting %s: %w", path, err)
	}

	for _, f := range ctx.Failures() {
		s.logger.Warn("Handler failure",
			zap.String("path", mod.Path),
			zap.Int("from", f.From),
			zap.String("message", f.Message))
	}

	return mod.Source, res.Diagnostics, nil
}

// collectFiles expands args into absolute .otl paths. Without args the
// session root is searched, honouring the config's include and exclude
// patterns.
func (s *session) collectFiles(args []string) ([]string, error) {
	if len(args) == 0 {
		return s.discover(s.root())
	}

	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, err
			}

			files = append(files, abs)

			continue
		}

		found, err := s.discover(arg)
		if err != nil {
			return nil, err
		}

		files = append(files, found...)
	}

	return files, nil
}

func (s *session) discover(dir string) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	rels, err := module.Discover(root, s.cfg.Exclude)
	if err != nil {
		return nil, fmt.Errorf("discovering modules in %s: %w", dir, err)
	}

	var include *ignore.GitIgnore
	if len(s.cfg.Include) > 0 {
		include = ignore.CompileIgnoreLines(s.cfg.Include...)
	}

	files := make([]string, 0, len(rels))

	for _, rel := range rels {
		if include != nil && !include.MatchesPath(filepath.ToSlash(rel)) {
			continue
		}

		files = append(files, filepath.Join(root, rel))
	}

	return files, nil
}

// displayPath shortens path relative to the working directory.
func displayPath(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}

	rel, err := filepath.Rel(wd, path)
	if err != nil || filepath.IsAbs(rel) {
		return path
	}

	return rel
}
