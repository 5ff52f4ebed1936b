package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/prune/internal/output"
	"github.com/panbanda/prune/pkg/watch"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Re-run the analysis whenever a Python file changes",
		ArgsUsage: "[path]",
		Flags: append(analysisFlags(),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "How long a file must be quiet before re-analyzing",
			},
			&cli.BoolFlag{
				Name:  "reasons",
				Usage: "Show the scoring reasons",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cleanup, err := resolveRoot(ctx, c)
	if err != nil {
		return err
	}
	defer cleanup()
	cfg, err := analysisConfig(c, root)
	if err != nil {
		return err
	}
	if c.String("output") != "" {
		return fmt.Errorf("watch writes to stdout; --output is not supported")
	}

	previous := -1
	report := func() {
		result, err := analyzeProject(ctx, c, root, cfg)
		if err != nil {
			if ctx.Err() == nil {
				color.New(color.FgRed).Fprintf(c.App.ErrWriter, "Error: %v\n", err)
			}
			return
		}
		if err := render(c, cfg, &output.AnalysisReport{Output: result, ShowReasons: c.Bool("reasons")}); err != nil {
			slog.Warn("render failed", "error", err)
		}
		current := result.Summary.DeadCodeItems
		if previous >= 0 && current != previous {
			color.New(color.FgCyan).Fprintf(c.App.ErrWriter, "Dead code items: %d (%+d)\n", current, current-previous)
		}
		previous = current
	}

	w, err := watch.NewWatcher(root, cfg, c.Duration("debounce"), watch.WithOutput(c.App.ErrWriter))
	if err != nil {
		return err
	}
	defer w.Stop()

	w.SetCallback(func(changed []string) {
		slog.Debug("re-analyzing", "changed", len(changed))
		report()
	})

	report()
	if err := w.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
