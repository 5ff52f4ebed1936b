// Package deadcode runs the whole analysis: per-file collection, entrypoint
// marking, import and call reachability, and confidence scoring.
package deadcode

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/panbanda/prune/internal/cache"
	"github.com/panbanda/prune/internal/fileproc"
	"github.com/panbanda/prune/internal/vcs"
	"github.com/panbanda/prune/pkg/analyzer"
	"github.com/panbanda/prune/pkg/analyzer/collector"
	"github.com/panbanda/prune/pkg/analyzer/imports"
	"github.com/panbanda/prune/pkg/analyzer/noqa"
	"github.com/panbanda/prune/pkg/analyzer/scoring"
	"github.com/panbanda/prune/pkg/config"
	"github.com/panbanda/prune/pkg/models"
	"github.com/panbanda/prune/pkg/plugins"
)

// Compile-time check that Analyzer implements FileAnalyzer.
var _ analyzer.FileAnalyzer[*models.AnalysisOutput] = (*Analyzer)(nil)

// Analyzer detects dead code in a Python project.
type Analyzer struct {
	root      string
	cfg       *config.Config
	registry  *plugins.Registry
	collector *collector.Collector
	scorer    *scoring.Scorer
	noqa      *noqa.Matcher
	ignore    *config.GlobSet
	resolver  *imports.Resolver
	marked    map[models.EntrypointType]bool
	// fingerprint folds the plugin set into cache validation hashes.
	fingerprint string

	cache      *cache.Cache
	logger     *slog.Logger
	workers    int
	onProgress fileproc.ProgressFunc
	version    string
	now        func() time.Time
	ageOpts    []vcs.AgeOption
	skipInfra  bool
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithConfig sets the configuration. Defaults are used when unset.
func WithConfig(cfg *config.Config) Option {
	return func(a *Analyzer) {
		if cfg != nil {
			a.cfg = cfg
		}
	}
}

// WithRegistry replaces the built-in plugin registry.
func WithRegistry(r *plugins.Registry) Option {
	return func(a *Analyzer) {
		a.registry = r
	}
}

// WithCache enables the per-file collection cache.
func WithCache(c *cache.Cache) Option {
	return func(a *Analyzer) {
		a.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithWorkers sets the number of files collected concurrently. Zero uses
// the configured value or the default.
func WithWorkers(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithProgress sets a callback invoked after each file is collected.
func WithProgress(fn fileproc.ProgressFunc) Option {
	return func(a *Analyzer) {
		a.onProgress = fn
	}
}

// WithVersion sets the tool version reported in the metadata.
func WithVersion(v string) Option {
	return func(a *Analyzer) {
		a.version = v
	}
}

// WithClock overrides the current time used for staleness and metadata.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) {
		a.now = now
	}
}

// WithAgeOptions passes extra options to the file age lookup.
func WithAgeOptions(opts ...vcs.AgeOption) Option {
	return func(a *Analyzer) {
		a.ageOpts = append(a.ageOpts, opts...)
	}
}

// WithoutInfra disables scanning deployment files for entrypoints.
func WithoutInfra() Option {
	return func(a *Analyzer) {
		a.skipInfra = true
	}
}

// New creates a dead code analyzer for the project at root.
func New(root string, opts ...Option) (*Analyzer, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	a := &Analyzer{
		root:    absRoot,
		cfg:     config.DefaultConfig(),
		logger:  slog.Default(),
		version: "dev",
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.registry == nil {
		a.registry = plugins.Default(absRoot)
	}
	if a.workers == 0 {
		a.workers = a.cfg.Analysis.Workers
	}

	a.ignore, err = a.cfg.IgnoreDecoratorGlobs()
	if err != nil {
		return nil, fmt.Errorf("linting.ignore_decorators: %w", err)
	}

	factories := make([]string, 0)
	for name := range a.registry.FactoryFunctions() {
		factories = append(factories, name)
	}
	a.collector = collector.New(collector.WithFactories(factories...))
	a.scorer = scoring.New(a.cfg.Scoring, scoring.WithRegistry(a.registry), scoring.WithClock(a.now))
	a.noqa = noqa.New(a.cfg.Linting.NoqaPatterns)
	a.resolver = imports.NewResolver(absRoot, a.cfg.Analysis.SrcDirs)
	a.marked = a.cfg.MarkTypes()
	a.fingerprint = a.registry.Fingerprint()
	return a, nil
}

// Root returns the absolute project root.
func (a *Analyzer) Root() string {
	return a.root
}

// Analyze runs the full pipeline over files, which must lie under the
// project root. Per-file failures are reported in the output's errors and
// never abort the run.
func (a *Analyzer) Analyze(ctx context.Context, files []string) (*models.AnalysisOutput, error) {
	start := time.Now()

	records, err := a.collectAll(ctx, files)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("collected files", "files", len(records), "elapsed", time.Since(start))

	p := newProject(a, records)
	if !a.skipInfra {
		p.addInfra(ctx)
	}
	p.markEntrypoints()
	p.buildGraphs()
	a.logger.Debug("built graphs",
		"modules", len(p.graph.Modules()),
		"roots", len(p.roots),
		"orphaned", len(p.modules.Orphaned))

	ages := vcs.LastModified(ctx, a.root, p.definitionFiles(), append([]vcs.AgeOption{
		vcs.WithPreferGit(a.cfg.Analysis.PreferGit),
		vcs.WithTimeout(time.Duration(a.cfg.Analysis.GitTimeoutSeconds) * time.Second),
		vcs.WithLogger(a.logger),
	}, a.ageOpts...)...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := p.report(ages)
	out.Metadata.FilesAnalyzed = len(files)
	out.Metadata.AnalysisDurationMS = time.Since(start).Milliseconds()
	return out, nil
}

// Close releases any resources held by the analyzer.
func (a *Analyzer) Close() {}
