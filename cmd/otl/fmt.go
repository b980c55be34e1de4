package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/otl-lang/otl"
)

const filePermissions = 0o600

func fmtCommand() *cli.Command {
	return &cli.Command{
		Name:      "fmt",
		Aliases:   []string{"format"},
		Usage:     "Format OTL modules",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "write",
				Aliases: []string{"w"},
				Usage:   "write result to file instead of stdout",
			},
			&cli.BoolFlag{
				Name:    "check",
				Aliases: []string{"c"},
				Usage:   "check if files are formatted (exit 1 if not)",
			},
			&cli.BoolFlag{
				Name:    "diff",
				Aliases: []string{"d"},
				Usage:   "display diffs instead of rewriting files",
			},
		},
		Action: runFmt,
	}
}

func runFmt(_ context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()

	if len(args) == 0 {
		return formatStdin(os.Stdin, os.Stdout)
	}

	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	files, err := s.collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return ErrNoOTLFiles
	}

	var unformatted []string

	for _, file := range files {
		changed, err := formatFile(file, cmd.Bool("write"), cmd.Bool("diff") || cmd.Bool("check"), os.Stdout)
		if err != nil {
			return fmt.Errorf("%s: %w", displayPath(file), err)
		}

		if changed {
			unformatted = append(unformatted, file)
		}
	}

	if cmd.Bool("check") && len(unformatted) > 0 {
		_, _ = fmt.Fprintf(os.Stderr, "The following files are not formatted:\n")

		for _, f := range unformatted {
			_, _ = fmt.Fprintf(os.Stderr, "  %s\n", displayPath(f))
		}

		return cli.Exit("", 1)
	}

	return nil
}

func formatStdin(in io.Reader, out io.Writer) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	formatted, err := otl.Format(data)
	if err != nil {
		return err
	}

	_, err = io.WriteString(out, formatted)

	return err
}

// formatFile formats the module at path and reports whether it changed.
// Without write or showDiff the formatted module is printed.
func formatFile(path string, write, showDiff bool, out io.Writer) (bool, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- paths come from user args
	if err != nil {
		return false, err
	}

	formatted, err := otl.Format(data)
	if err != nil {
		return false, err
	}

	if string(data) == formatted {
		return false, nil
	}

	if write {
		if err := os.WriteFile(path, []byte(formatted), filePermissions); err != nil {
			return true, err
		}

		_, _ = fmt.Fprintf(out, "%s\n", displayPath(path))

		return true, nil
	}

	if showDiff {
		printDiff(out, displayPath(path), string(data), formatted)

		return true, nil
	}

	_, err = io.WriteString(out, formatted)

	return true, err
}

// printDiff writes the lines that differ between original and formatted.
func printDiff(out io.Writer, path, original, formatted string) {
	_, _ = fmt.Fprintf(out, "--- %s\n+++ %s\n", path, path)

	origLines := strings.Split(original, "\n")
	fmtLines := strings.Split(formatted, "\n")

	for i := range max(len(origLines), len(fmtLines)) {
		var origLine, fmtLine string

		if i < len(origLines) {
			origLine = origLines[i]
		}

		if i < len(fmtLines) {
			fmtLine = fmtLines[i]
		}

		if origLine == fmtLine {
			continue
		}

		_, _ = fmt.Fprintf(out, "%d\n-%s\n+%s\n", i+1, origLine, fmtLine)
	}
}
