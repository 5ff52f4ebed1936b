package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/prune/internal/output"
	"github.com/panbanda/prune/pkg/config"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		color.Red("Error: %v", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "prune",
		Usage:   "Find dead code in Python projects",
		Version: version,
		Description: `Prune builds a symbol table, an import graph and a call graph for a
Python project, finds the framework entrypoints (Flask, Celery, pytest,
deployment files) and scores every definition by how likely it is dead.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"PRUNE_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: text, json, markdown, toon (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging on stderr",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Disable the per-file cache",
			},
		},
		Before: func(c *cli.Context) error {
			setupLogging(c.App.ErrWriter, c.Bool("verbose"))
			return nil
		},
		DefaultCommand: "analyze",
		Commands: []*cli.Command{
			analyzeCmd(),
			entrypointsCmd(),
			graphCmd(),
			configCmd(),
			initCmd(),
			cacheCmd(),
			watchCmd(),
		},
	}
}

// setupLogging installs the process-wide slog handler. Logs go to stderr so
// they never mix with report output.
func setupLogging(w io.Writer, verbose bool) {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// getPath returns the project path from the first positional argument,
// defaulting to ".".
func getPath(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return "."
}

// loadConfig loads the --config file, or the first configuration file found
// under root, or the defaults. It returns the file used, empty for defaults.
func loadConfig(c *cli.Context, root string) (*config.Config, string, error) {
	path := c.String("config")
	if path == "" {
		found, err := config.Find(root)
		if errors.Is(err, config.ErrNotFound) {
			return config.DefaultConfig(), "", nil
		}
		if err != nil {
			return nil, "", err
		}
		path = found
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// resolveFormat picks the output format from the flag or configuration.
func resolveFormat(c *cli.Context, cfg *config.Config) (output.Format, error) {
	format := c.String("format")
	if format == "" {
		format = cfg.Output.Format
	}
	f := output.ParseFormat(format)
	if f == output.FormatText && format != "" && !strings.EqualFold(format, string(output.FormatText)) {
		return "", fmt.Errorf("unknown format %q", format)
	}
	return f, nil
}

func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	f, err := resolveFormat(c, cfg)
	if err != nil {
		return nil, err
	}
	colored := cfg.Output.Color && !color.NoColor
	return output.NewFormatter(f, c.String("output"), colored)
}

// messages writes plain status lines, colored when the terminal allows.
func messages(w io.Writer) *output.Formatter {
	return output.NewWriterFormatter(output.FormatText, w, !color.NoColor)
}

// cacheDir resolves the configured cache directory against root.
func cacheDir(cfg *config.Config, root string) string {
	if filepath.IsAbs(cfg.Cache.Dir) {
		return cfg.Cache.Dir
	}
	return filepath.Join(root, cfg.Cache.Dir)
}
