package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/panbanda/prune/internal/cache"
	"github.com/panbanda/prune/internal/output"
	"github.com/panbanda/prune/internal/progress"
	"github.com/panbanda/prune/internal/remote"
	"github.com/panbanda/prune/internal/scanner"
	"github.com/panbanda/prune/pkg/analyzer/deadcode"
	"github.com/panbanda/prune/pkg/analyzer/imports"
	"github.com/panbanda/prune/pkg/config"
	"github.com/panbanda/prune/pkg/models"
)

func analysisFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "min-confidence",
			Usage: "Only report items at or above this confidence (0-100)",
		},
		&cli.BoolFlag{
			Name:  "include-ignored",
			Usage: "Also analyze files excluded by .gitignore, pyproject.toml and default directories",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Number of files analyzed concurrently (default 2x CPUs)",
		},
		&cli.BoolFlag{
			Name:  "no-git",
			Usage: "Use filesystem modification times instead of commit dates",
		},
	}
}

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Report dead code candidates with confidence scores",
		ArgsUsage: "[path]",
		Flags: append(analysisFlags(), &cli.BoolFlag{
			Name:  "reasons",
			Usage: "Show the scoring reasons in text and markdown output",
		}),
		Action: runAnalyzeCmd,
	}
}

func entrypointsCmd() *cli.Command {
	return &cli.Command{
		Name:      "entrypoints",
		Usage:     "List detected framework, script and deployment entrypoints",
		ArgsUsage: "[path]",
		Flags:     analysisFlags(),
		Action:    runEntrypointsCmd,
	}
}

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Usage:     "Show the module dependency tree, orphaned modules and import cycles",
		ArgsUsage: "[path]",
		Flags: append(analysisFlags(), &cli.StringFlag{
			Name:  "why",
			Usage: "Show every module that transitively imports the named module",
		}),
		Action: runGraphCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	result, cfg, err := runAnalysis(c)
	if err != nil {
		return err
	}
	return render(c, cfg, &output.AnalysisReport{Output: result, ShowReasons: c.Bool("reasons")})
}

func runEntrypointsCmd(c *cli.Context) error {
	result, cfg, err := runAnalysis(c)
	if err != nil {
		return err
	}
	return render(c, cfg, &output.EntrypointsReport{Entrypoints: result.Entrypoints})
}

func runGraphCmd(c *cli.Context) error {
	result, cfg, err := runAnalysis(c)
	if err != nil {
		return err
	}
	if module := c.String("why"); module != "" {
		chain, err := importChain(result.DependencyTree, module)
		if err != nil {
			return err
		}
		return render(c, cfg, chain)
	}
	return render(c, cfg, &output.GraphReport{Tree: result.DependencyTree})
}

func importChain(tree models.DependencyTree, module string) (output.Renderable, error) {
	g := imports.FromTree(tree)
	if !g.Has(module) {
		return nil, fmt.Errorf("unknown module %q", module)
	}
	chain := g.ImportChain(module)
	rows := make([][]string, 0, len(chain))
	for _, name := range chain {
		rows = append(rows, []string{name, tree.Modules[name].Path})
	}
	return output.NewTable(
		fmt.Sprintf("Modules importing %s (%d)", module, len(chain)),
		[]string{"Module", "Path"}, rows, chain), nil
}

func render(c *cli.Context, cfg *config.Config, r output.Renderable) error {
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()
	return formatter.Output(r)
}

// runAnalysis resolves the project (cloning a remote reference when the
// path is one), applies the command-line overrides to the configuration and
// runs the dead code pipeline.
func runAnalysis(c *cli.Context) (*models.AnalysisOutput, *config.Config, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cleanup, err := resolveRoot(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	defer cleanup()

	cfg, err := analysisConfig(c, root)
	if err != nil {
		return nil, nil, err
	}
	result, err := analyzeProject(ctx, c, root, cfg)
	if err != nil {
		return nil, nil, err
	}
	return result, cfg, nil
}

// resolveRoot returns the absolute project directory. A remote reference
// such as owner/repo@ref is cloned first; cleanup removes the clone.
func resolveRoot(ctx context.Context, c *cli.Context) (string, func(), error) {
	path := getPath(c)
	src, err := remote.Parse(path)
	if err != nil {
		return "", nil, err
	}
	if src != nil {
		slog.Debug("cloning remote repository", "url", src.URL, "ref", src.Ref)
		spinner := progress.NewSpinner("Cloning "+src.URL, progress.WithHidden(color.NoColor))
		if err := src.Clone(ctx, io.Discard, true); err != nil {
			spinner.FinishError(err)
			return "", nil, err
		}
		spinner.FinishSuccess()
		return src.CloneDir, src.Cleanup, nil
	}

	root, err := filepath.Abs(path)
	if err != nil {
		return "", nil, err
	}
	if info, err := os.Stat(root); err != nil {
		return "", nil, err
	} else if !info.IsDir() {
		return "", nil, fmt.Errorf("%s is not a directory", root)
	}
	return root, func() {}, nil
}

// analysisConfig loads the configuration for root and applies the analysis
// flags on top of it.
func analysisConfig(c *cli.Context, root string) (*config.Config, error) {
	cfg, source, err := loadConfig(c, root)
	if err != nil {
		return nil, err
	}
	if source != "" {
		slog.Debug("loaded configuration", "path", source)
	}
	if c.IsSet("min-confidence") {
		cfg.Analysis.MinConfidence = c.Int("min-confidence")
		if cfg.Analysis.MinConfidence < 0 || cfg.Analysis.MinConfidence > 100 {
			return nil, fmt.Errorf("--min-confidence must be between 0 and 100")
		}
	}
	if c.Bool("no-git") {
		cfg.Analysis.PreferGit = false
	}
	if _, err := resolveFormat(c, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// analyzeProject scans root and analyzes the files found.
func analyzeProject(ctx context.Context, c *cli.Context, root string, cfg *config.Config) (*models.AnalysisOutput, error) {
	format, err := resolveFormat(c, cfg)
	if err != nil {
		return nil, err
	}
	hidden := color.NoColor || format != output.FormatText

	spinner := progress.NewSpinner("Scanning files", progress.WithHidden(hidden))
	s, err := scanner.NewScanner(cfg, scanner.WithIncludeIgnored(c.Bool("include-ignored")))
	if err != nil {
		spinner.FinishError(err)
		return nil, err
	}
	files, err := s.ScanDir(root)
	if err != nil {
		spinner.FinishError(err)
		return nil, err
	}
	files, skipped := scanner.FilterBySize(files, cfg.Analysis.MaxFileSize)
	spinner.FinishSuccess()
	slog.Debug("scanned project", "files", len(files), "too_large", skipped, "ignore_sources", s.Sources())
	if len(files) == 0 {
		messages(c.App.ErrWriter).Warning("No Python files found")
	}

	var fileCache *cache.Cache
	if cfg.Cache.Enabled && !c.Bool("no-cache") {
		fileCache, err = cache.New(cacheDir(cfg, root), cfg.Cache.TTL, true)
		if err != nil {
			slog.Warn("cache disabled", "error", err)
			fileCache = nil
		}
	}

	tracker := progress.NewTracker("Analyzing", len(files), progress.WithHidden(hidden))
	a, err := deadcode.New(root,
		deadcode.WithConfig(cfg),
		deadcode.WithCache(fileCache),
		deadcode.WithLogger(slog.Default()),
		deadcode.WithWorkers(c.Int("workers")),
		deadcode.WithProgress(tracker.Tick),
		deadcode.WithVersion(version),
	)
	if err != nil {
		tracker.FinishError(err)
		return nil, err
	}
	defer a.Close()

	result, err := a.Analyze(ctx, files)
	if err != nil {
		tracker.FinishError(err)
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	tracker.FinishSuccess()
	return result, nil
}
