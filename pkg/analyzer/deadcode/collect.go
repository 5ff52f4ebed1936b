package deadcode

import (
	"context"
	"os"

	"github.com/panbanda/prune/internal/cache"
	"github.com/panbanda/prune/internal/fileproc"
	"github.com/panbanda/prune/pkg/analyzer/collector"
	"github.com/panbanda/prune/pkg/models"
	"github.com/panbanda/prune/pkg/parser"
	"github.com/panbanda/prune/pkg/plugins"
)

// fileRecord is the cached outcome of collecting one file.
type fileRecord struct {
	Result      *collector.Result           `json:"result"`
	Entrypoints []models.DetectedEntrypoint `json:"entrypoints,omitempty"`
}

// collectAll collects every file concurrently. Results keep the input order.
func (a *Analyzer) collectAll(ctx context.Context, files []string) ([]*fileRecord, error) {
	records, errs := fileproc.MapFilesOrdered(ctx, files, a.workers, a.collectFile, a.onProgress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if errs != nil {
		for _, e := range errs.Errors {
			a.logger.Warn("collection failed", "file", e.Path, "error", e.Err)
		}
	}
	return records, nil
}

// collectFile returns the cached record for path when its content, module
// name and plugin set are unchanged, and collects it otherwise.
func (a *Analyzer) collectFile(ctx context.Context, psr *parser.Parser, path string) (*fileRecord, error) {
	module := a.resolver.ModuleName(path)

	source, err := os.ReadFile(path)
	if err != nil {
		res, _ := a.collector.CollectFile(ctx, psr, path, module)
		return &fileRecord{Result: res}, nil
	}

	hash := cache.HashBytes(source, a.version, a.fingerprint, module)
	if rec, ok := cache.Load[*fileRecord](a.cache, path, hash); ok && rec != nil && rec.Result != nil {
		return rec, nil
	}

	res, parsed := a.collector.CollectSource(ctx, psr, source, path, module)
	rec := &fileRecord{Result: res}
	if parsed != nil {
		rec.Entrypoints = a.detectEntrypoints(&plugins.File{Path: path, Source: source, Root: parsed.Root()})
		parsed.Tree.Close()
	}

	if ctx.Err() == nil {
		if err := cache.Store(a.cache, path, hash, rec); err != nil {
			a.logger.Debug("cache store failed", "file", path, "error", err)
		}
	}
	return rec, nil
}

// detectEntrypoints runs the plugin detectors and adds script entry blocks
// when no plugin reported them.
func (a *Analyzer) detectEntrypoints(f *plugins.File) []models.DetectedEntrypoint {
	eps := a.registry.DetectEntrypoints(f)
	for _, ep := range eps {
		if ep.Type == models.EntrypointMainBlock {
			return eps
		}
	}
	for _, block := range plugins.MainBlocks(f) {
		start, end := block.StartPoint(), block.EndPoint()
		eps = append(eps, models.DetectedEntrypoint{
			Name: plugins.MainBlockName,
			Type: models.EntrypointMainBlock,
			Location: models.Location{
				File:      f.Path,
				Line:      int(start.Row) + 1,
				Column:    int(start.Column),
				EndLine:   int(end.Row) + 1,
				EndColumn: int(end.Column),
			},
		})
	}
	return eps
}
