// Package main provides the otl CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	// Register sinks.
	_ "github.com/otl-lang/otl/sinks/neo4j"
	_ "github.com/otl-lang/otl/sinks/yaml"
)

var version = "dev"

func main() {
	app := &cli.Command{
		Name:    "otl",
		Version: version,
		Usage:   "Object type language tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "schema",
				Aliases: []string{"s"},
				Usage:   "root schema module (overrides config)",
				Sources: cli.EnvVars("OTL_SCHEMA"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("OTL_LOG"),
			},
		},
		Commands: []*cli.Command{
			checkCommand(),
			fmtCommand(),
			typesCommand(),
			validateCommand(),
			exportCommand(),
			watchCommand(),
		},
	}

	err := app.Run(context.Background(), os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
