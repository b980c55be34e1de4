package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/otl-lang/otl/interpreter"
	"github.com/otl-lang/otl/report"
	"github.com/otl-lang/otl/watch"
)

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Reload the schema on change and show its diagnostics",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "how long to wait for writes to settle",
				Value: watch.DefaultDelay,
			},
		},
		Action: runWatch,
	}
}

func runWatch(ctx context.Context, cmd *cli.Command) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	if s.in.SchemaPath() == "" {
		return interpreter.ErrNoSchema
	}

	model := report.NewWatchModel(s.in.SchemaPath(), report.StylesFor(os.Stdout))
	program := report.NewWatchProgram(model, os.Stdout)

	reloaded := func(r watch.Result) {
		program.Send(report.ReloadedMsg{Result: r, Types: s.in.Graph().Len(), At: time.Now()})
	}

	w, err := watch.New(s.in, s.root(),
		watch.WithDelay(cmd.Duration("delay")),
		watch.WithExclude(s.cfg.Exclude...),
		watch.WithLogger(s.logger),
		watch.OnReloading(func(changed []string) { program.Send(report.ReloadingMsg{Changed: changed}) }),
		watch.OnReload(reloaded))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		var r watch.Result

		r.Module, r.Err = s.in.ImportSchema(ctx)
		reloaded(r)

		if err := w.Run(ctx); err != nil {
			s.logger.Error("Watcher stopped", zap.Error(err))
		}
	}()

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("watch UI: %w", err)
	}

	return nil
}
