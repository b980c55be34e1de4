package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/otl-lang/otl"
)

// ErrNoSink is returned when neither flags nor config name a sink.
var ErrNoSink = errors.New("no sink specified (use --sink or .otl.yaml)")

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export the schema's type graph",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "sink",
				Usage: "sink to export to (" + strings.Join(otl.RegisteredSinks(), ", ") + ")",
			},
			&cli.StringFlag{
				Name:    "uri",
				Usage:   "destination URI",
				Sources: cli.EnvVars("OTL_EXPORT_URI"),
			},
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "destination username",
				Sources: cli.EnvVars("OTL_EXPORT_USER"),
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "destination password",
				Sources: cli.EnvVars("OTL_EXPORT_PASS"),
			},
		},
		Action: runExport,
	}
}

func runExport(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	cfg := sinkConfig(s.cfg.Export, cmd)
	if cfg.Name == "" {
		return ErrNoSink
	}

	if err := s.importSchema(ctx); err != nil {
		return err
	}

	sink, err := otl.NewSink(cfg.Name, cfg)
	if err != nil {
		return fmt.Errorf("failed to create sink: %w", err)
	}

	defer func() { _ = sink.Close() }()

	types := s.in.Graph().Types()

	if err := sink.Export(ctx, types); err != nil {
		return fmt.Errorf("export to %s: %w", sink.Name(), err)
	}

	s.logger.Info("Exported types", zap.String("sink", sink.Name()), zap.Int("types", len(types)))

	fmt.Printf("exported %d types to %s\n", len(types), sink.Name())

	return nil
}

// sinkConfig overrides the configured sink with the flags that are set.
func sinkConfig(cfg otl.SinkConfig, cmd *cli.Command) otl.SinkConfig {
	if v := cmd.String("sink"); v != "" {
		cfg.Name = v
	}

	if v := cmd.String("uri"); v != "" {
		cfg.URI = v
	}

	if v := cmd.String("username"); v != "" {
		cfg.Username = v
	}

	if v := cmd.String("password"); v != "" {
		cfg.Password = v
	}

	return cfg
}
