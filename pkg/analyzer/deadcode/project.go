package deadcode

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/panbanda/prune/pkg/analyzer/collector"
	"github.com/panbanda/prune/pkg/analyzer/imports"
	"github.com/panbanda/prune/pkg/analyzer/infra"
	"github.com/panbanda/prune/pkg/analyzer/reachability"
	"github.com/panbanda/prune/pkg/models"
)

// project is the merged, cross-file view of one run.
type project struct {
	a *Analyzer

	results     []*collector.Result
	detected    map[string][]models.DetectedEntrypoint
	diagnostics []models.FileDiagnostic

	// symbols holds every definition; index maps a qualified name to its
	// first definition.
	symbols []models.Symbol
	index   map[string]int
	usages  []models.Usage

	entrypoints  []models.EntrypointInfo
	seenEntry    map[string]bool
	listed       map[string]bool
	roots        []string
	entryModules map[string]bool
	infra        []infra.Entrypoint

	graph   *imports.Graph
	calls   *reachability.CallGraph
	reached *reachability.Set
	modules *reachability.ModuleReachability
}

func newProject(a *Analyzer, records []*fileRecord) *project {
	p := &project{
		a:            a,
		detected:     make(map[string][]models.DetectedEntrypoint),
		index:        make(map[string]int),
		seenEntry:    make(map[string]bool),
		listed:       make(map[string]bool),
		entryModules: make(map[string]bool),
	}
	for _, rec := range records {
		res := rec.Result
		if res.Failed() {
			a.logger.Warn("skipping file", "file", p.rel(res.File), "error", res.Error)
			p.diagnostics = append(p.diagnostics, models.FileDiagnostic{
				File:    p.rel(res.File),
				Kind:    string(res.Error.Kind),
				Line:    res.Error.Line,
				Message: res.Error.Error(),
			})
			continue
		}
		p.results = append(p.results, res)
		p.detected[res.File] = rec.Entrypoints
		for _, sym := range res.Symbols {
			if _, dup := p.index[sym.QualifiedName]; dup {
				a.logger.Debug("duplicate qualified name", "name", sym.QualifiedName, "file", p.rel(res.File))
				continue
			}
			p.index[sym.QualifiedName] = len(p.symbols)
			p.symbols = append(p.symbols, sym)
		}
		p.usages = append(p.usages, res.Usages...)
	}
	return p
}

// rel returns path relative to the project root with forward slashes.
func (p *project) rel(path string) string {
	if r, err := filepath.Rel(p.a.root, path); err == nil && !strings.HasPrefix(r, "..") {
		return filepath.ToSlash(r)
	}
	return filepath.ToSlash(path)
}

// addInfra records the entrypoints named by deployment files.
func (p *project) addInfra(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	p.infra = infra.Detect(p.a.root, infra.WithLogger(p.a.logger))
}

// definitionFiles lists every successfully collected file.
func (p *project) definitionFiles() []string {
	files := make([]string, 0, len(p.results))
	for _, res := range p.results {
		files = append(files, res.File)
	}
	return files
}

// buildGraphs builds the import graph and both reachability views.
func (p *project) buildGraphs() {
	files := make([]imports.File, 0, len(p.results))
	for _, res := range p.results {
		files = append(files, imports.File{Path: res.File, Imports: res.Imports})
	}
	p.graph = imports.Build(p.a.resolver, files)

	p.calls = reachability.BuildCallGraph(p.symbols, p.usages)
	p.reached = p.calls.Reachable(p.roots)
	p.modules = reachability.Modules(p.graph, p.entryModuleList())
}

func (p *project) entryModuleList() []string {
	out := make([]string, 0, len(p.entryModules))
	for _, name := range p.graph.Modules() {
		if p.entryModules[name] {
			out = append(out, name)
		}
	}
	return out
}
