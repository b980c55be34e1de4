package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/otl-lang/otl"
	"github.com/otl-lang/otl/interpreter"
)

// session holds what every command needs: the config, a logger and an
// interpreter configured from both.
type session struct {
	cfg    *otl.Config
	logger *zap.Logger
	in     *interpreter.Interpreter
}

func newSession(cmd *cli.Command) (*session, error) {
	cfg, err := otl.LoadConfig(".")

	switch {
	case errors.Is(err, otl.ErrConfigNotFound):
		cfg = &otl.Config{}
	case err != nil:
		return nil, err
	}

	level := cmd.String("log-level")
	if level == "" {
		level = cfg.Log
	}

	logger, err := newLogger(level)
	if err != nil {
		return nil, err
	}

	opts := []interpreter.Option{
		interpreter.WithLogger(logger),
		interpreter.WithConfig(cfg),
	}

	if schema := cmd.String("schema"); schema != "" {
		abs, err := filepath.Abs(schema)
		if err != nil {
			return nil, fmt.Errorf("resolving schema %s: %w", schema, err)
		}

		opts = append(opts, interpreter.WithSchemaPath(abs))
	}

	return &session{cfg: cfg, logger: logger, in: interpreter.New(opts...)}, nil
}

// root is the directory commands search when given no paths: the config
// directory, or the working directory without a config.
func (s *session) root() string {
	if s.cfg.Dir != "" {
		return s.cfg.Dir
	}

	return "."
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// newLogger builds a development logger on stderr; stdout carries command
// output.
func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)

	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}

		config.Level = zap.NewAtomicLevelAt(lvl)
	}

	return config.Build()
}
