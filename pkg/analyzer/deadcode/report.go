package deadcode

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/panbanda/prune/internal/vcs"
	"github.com/panbanda/prune/pkg/analyzer/collector"
	"github.com/panbanda/prune/pkg/analyzer/scoring"
	"github.com/panbanda/prune/pkg/models"
)

// suppressed reports whether a noqa comment or an ignored decorator
// removes sym from the candidates.
func (p *project) suppressed(res *collector.Result, sym models.Symbol) (*models.NoqaSkipped, bool) {
	if p.a.cfg.Linting.RespectNoqa {
		if comment, ok := res.Comments[sym.Location.Line]; ok {
			if m := p.a.noqa.Check(comment); m.Matched {
				return &models.NoqaSkipped{
					File:    p.rel(res.File),
					Line:    sym.Location.Line,
					Comment: strings.TrimSpace(comment),
					Symbol:  sym.QualifiedName,
				}, true
			}
		}
	}
	for _, dec := range sym.Decorators {
		if p.ignoredDecorator(dec) {
			return nil, true
		}
	}
	return nil, false
}

func (p *project) ignoredDecorator(dec string) bool {
	dec = strings.TrimLeft(strings.TrimSpace(dec), "@")
	if p.a.ignore.MatchName(dec) {
		return true
	}
	for _, pat := range p.a.ignore.Patterns() {
		pat = strings.TrimLeft(pat, "@")
		if pat != "" && strings.Contains(dec, pat) {
			return true
		}
	}
	return false
}

// scoringInputs gathers the project-wide signals.
func (p *project) scoringInputs(ages map[string]vcs.FileAge) scoring.Inputs {
	in := scoring.Inputs{
		UsedNames:   make(map[string]bool, len(p.usages)),
		FileAges:    make(map[string]time.Time, len(ages)),
		ORMUsages:   make(map[string]bool),
		ModelTables: make(map[string]string),
	}
	for _, u := range p.usages {
		in.UsedNames[u.SymbolName] = true
		if u.Context == models.UsageORMReference {
			in.ORMUsages[u.SymbolName] = true
		}
	}
	for path, age := range ages {
		in.FileAges[path] = age.When
	}
	for _, res := range p.results {
		for class, table := range res.Tables {
			in.ModelTables[class] = table
		}
	}
	return in
}

// report scores every candidate and assembles the output document.
func (p *project) report(ages map[string]vcs.FileAge) *models.AnalysisOutput {
	a := p.a
	in := p.scoringInputs(ages)
	hasRoots := len(p.roots) > 0

	out := &models.AnalysisOutput{
		Version:       models.OutputVersion,
		Summary:       models.NewAnalysisSummary(),
		Entrypoints:   p.entrypoints,
		DeadCode:      []models.DeadCodeItem{},
		OrphanedFiles: []models.OrphanedFile{},
		NoqaSkipped:   []models.NoqaSkipped{},
		Errors:        p.diagnostics,
	}
	if out.Entrypoints == nil {
		out.Entrypoints = []models.EntrypointInfo{}
	}

	candidates := 0
	var allImports []models.ImportRecord
	for _, res := range p.results {
		allImports = append(allImports, res.Imports...)
		orphaned := !p.modules.IsReachable(res.Module)

		for _, sym := range res.Symbols {
			i, ok := p.index[sym.QualifiedName]
			if !ok || p.symbols[i].Location.File != res.File {
				continue
			}
			sym = p.symbols[i]
			if skip, ok := p.suppressed(res, sym); ok {
				if skip != nil {
					out.NoqaSkipped = append(out.NoqaSkipped, *skip)
				}
				continue
			}
			candidates++

			confidence, reasons := a.scorer.Score(sym, in)
			switch {
			case orphaned:
				confidence, reasons = a.scorer.Orphaned()
			case hasRoots && !p.reached.Contains(sym.QualifiedName):
				confidence, reasons = a.scorer.Unreachable(confidence, reasons)
			case p.reached.Contains(sym.QualifiedName):
				confidence, reasons = a.scorer.Reachable(confidence, reasons)
			}
			if confidence < a.cfg.Analysis.MinConfidence {
				continue
			}

			item := models.DeadCodeItem{
				ID:              itemID(sym.QualifiedName, p.rel(sym.Location.File), sym.Location.Line),
				QualifiedName:   sym.QualifiedName,
				Name:            sym.Name,
				Type:            models.DeadCodeTypeFor(sym.Kind),
				File:            p.rel(sym.Location.File),
				Line:            sym.Location.Line,
				EndLine:         sym.Location.EndLine,
				Confidence:      confidence,
				Reasons:         reasons,
				SuggestedAction: models.SuggestedAction(confidence),
			}
			out.DeadCode = append(out.DeadCode, item)
		}
	}

	sort.SliceStable(out.DeadCode, func(i, j int) bool {
		x, y := out.DeadCode[i], out.DeadCode[j]
		if x.Confidence != y.Confidence {
			return x.Confidence > y.Confidence
		}
		if x.File != y.File {
			return x.File < y.File
		}
		return x.Line < y.Line
	})
	for _, item := range out.DeadCode {
		out.Summary.Add(item, scoring.ClassifyConfidence(item.Confidence))
	}

	out.OrphanedFiles = p.orphanedFiles()
	out.DependencyTree = p.tree()
	out.Metadata = models.AnalysisMetadata{
		Project:      filepath.Base(a.root),
		AnalyzedAt:   a.now().UTC(),
		ToolVersion:  a.version,
		TotalSymbols: candidates,
		Frameworks:   a.registry.DetectFrameworks(allImports),
	}
	return out
}

// orphanedFiles lists the files of orphaned modules.
func (p *project) orphanedFiles() []models.OrphanedFile {
	out := []models.OrphanedFile{}
	for _, res := range p.results {
		if p.modules.IsReachable(res.Module) {
			continue
		}
		out = append(out, models.OrphanedFile{
			File:       p.rel(res.File),
			ModuleName: res.Module,
			Symbols:    len(res.Symbols),
			Lines:      res.Lines,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

// tree serializes the import graph with root-relative paths and the
// ancestor-aware orphan list.
func (p *project) tree() models.DependencyTree {
	tree := p.graph.Tree(p.entryModuleList())
	for name, node := range tree.Modules {
		if node.Path != "" {
			node.Path = p.rel(node.Path)
			tree.Modules[name] = node
		}
	}
	tree.OrphanedModules = append([]string{}, p.modules.Orphaned...)
	return tree
}

// itemID is a stable identifier for a finding.
func itemID(qname, file string, line int) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(fmt.Sprintf("%s:%s:%d", qname, file, line)))
}
