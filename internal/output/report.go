package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/panbanda/prune/pkg/analyzer/scoring"
	"github.com/panbanda/prune/pkg/models"
)

// AnalysisReport renders a full analysis run.
type AnalysisReport struct {
	Output *models.AnalysisOutput
	// ShowReasons adds the scoring reasons to the dead code table.
	ShowReasons bool
}

func (r *AnalysisReport) RenderData() any {
	return r.Output
}

func (r *AnalysisReport) RenderText(w io.Writer, colored bool) error {
	return r.build(colored).RenderText(w, colored)
}

func (r *AnalysisReport) RenderMarkdown(w io.Writer) error {
	return r.build(false).RenderMarkdown(w)
}

func (r *AnalysisReport) build(colored bool) *Report {
	out := r.Output
	report := &Report{Title: "Dead Code Analysis: " + out.Metadata.Project, Data: out}
	report.Parts = append(report.Parts, &Section{Title: "Summary", Content: summaryText(out)})

	headers := []string{"Confidence", "Type", "Name", "Location", "Action"}
	if r.ShowReasons {
		headers = append(headers, "Reasons")
	}
	rows := make([][]string, 0, len(out.DeadCode))
	for _, item := range out.DeadCode {
		conf := fmt.Sprintf("%d%%", item.Confidence)
		if colored {
			conf = confidenceColor(scoring.ClassifyConfidence(item.Confidence), conf)
		}
		row := []string{conf, string(item.Type), item.QualifiedName, location(item.File, item.Line), item.SuggestedAction}
		if r.ShowReasons {
			row = append(row, strings.Join(item.Reasons, "; "))
		}
		rows = append(rows, row)
	}
	report.Parts = append(report.Parts, NewTable("Dead Code", headers, rows, out.DeadCode))

	orphans := make([][]string, 0, len(out.OrphanedFiles))
	for _, f := range out.OrphanedFiles {
		orphans = append(orphans, []string{f.File, f.ModuleName, strconv.Itoa(f.Symbols), strconv.Itoa(f.Lines)})
	}
	report.Parts = append(report.Parts, NewTable("Orphaned Files",
		[]string{"File", "Module", "Symbols", "Lines"}, orphans, out.OrphanedFiles))

	if len(out.NoqaSkipped) > 0 {
		skipped := make([][]string, 0, len(out.NoqaSkipped))
		for _, s := range out.NoqaSkipped {
			skipped = append(skipped, []string{location(s.File, s.Line), s.Symbol, s.Comment})
		}
		report.Parts = append(report.Parts, NewTable("Suppressed",
			[]string{"Location", "Symbol", "Comment"}, skipped, out.NoqaSkipped))
	}

	if len(out.Errors) > 0 {
		errs := make([][]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			errs = append(errs, []string{e.File, e.Kind, e.Message})
		}
		report.Parts = append(report.Parts, NewTable("Skipped Files",
			[]string{"File", "Kind", "Message"}, errs, out.Errors))
	}
	return report
}

func summaryText(out *models.AnalysisOutput) string {
	s := out.Summary
	lines := []string{
		fmt.Sprintf("Files analyzed:      %d", out.Metadata.FilesAnalyzed),
		fmt.Sprintf("Symbols:             %d", out.Metadata.TotalSymbols),
		fmt.Sprintf("Entrypoints:         %d", len(out.Entrypoints)),
		fmt.Sprintf("Dead code items:     %d (high %d, medium %d, low %d)",
			s.DeadCodeItems,
			s.ByConfidence[models.ConfidenceHigh],
			s.ByConfidence[models.ConfidenceMedium],
			s.ByConfidence[models.ConfidenceLow]),
		fmt.Sprintf("Orphaned files:      %d", len(out.OrphanedFiles)),
		fmt.Sprintf("Removable lines:     ~%d", s.EstimatedLinesRemovable),
	}
	if len(out.Metadata.Frameworks) > 0 {
		lines = append(lines, "Frameworks:          "+strings.Join(out.Metadata.Frameworks, ", "))
	}
	lines = append(lines, fmt.Sprintf("Duration:            %dms", out.Metadata.AnalysisDurationMS))
	return strings.Join(lines, "\n")
}

// EntrypointsReport renders the detected entrypoints.
type EntrypointsReport struct {
	Entrypoints []models.EntrypointInfo
}

func (r *EntrypointsReport) RenderData() any {
	return r.Entrypoints
}

func (r *EntrypointsReport) RenderText(w io.Writer, colored bool) error {
	return r.table().RenderText(w, colored)
}

func (r *EntrypointsReport) RenderMarkdown(w io.Writer) error {
	return r.table().RenderMarkdown(w)
}

func (r *EntrypointsReport) table() *Table {
	eps := append([]models.EntrypointInfo(nil), r.Entrypoints...)
	sort.SliceStable(eps, func(i, j int) bool {
		if eps[i].Type != eps[j].Type {
			return eps[i].Type < eps[j].Type
		}
		return eps[i].QualifiedName < eps[j].QualifiedName
	})

	rows := make([][]string, 0, len(eps))
	for _, ep := range eps {
		rows = append(rows, []string{string(ep.Type), ep.QualifiedName, location(ep.File, ep.Line), ep.Decorator})
	}
	return NewTable(fmt.Sprintf("Entrypoints (%d)", len(eps)),
		[]string{"Type", "Name", "Location", "Decorator"}, rows, r.Entrypoints)
}

// GraphReport renders the module dependency tree.
type GraphReport struct {
	Tree models.DependencyTree
}

func (r *GraphReport) RenderData() any {
	return r.Tree
}

func (r *GraphReport) RenderText(w io.Writer, colored bool) error {
	return r.build().RenderText(w, colored)
}

func (r *GraphReport) RenderMarkdown(w io.Writer) error {
	return r.build().RenderMarkdown(w)
}

func (r *GraphReport) build() *Report {
	names := make([]string, 0, len(r.Tree.Modules))
	for name := range r.Tree.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		m := r.Tree.Modules[name]
		if m.Path == "" {
			continue
		}
		entry := ""
		if m.IsEntrypoint {
			entry = "yes"
		}
		rows = append(rows, []string{name, m.Path, strings.Join(m.Imports, ", "), strconv.Itoa(len(m.ImportedBy)), entry})
	}

	orphaned := "None."
	if len(r.Tree.OrphanedModules) > 0 {
		orphaned = strings.Join(r.Tree.OrphanedModules, "\n")
	}
	cycles := "None."
	if len(r.Tree.ImportCycles) > 0 {
		lines := make([]string, 0, len(r.Tree.ImportCycles))
		for _, c := range r.Tree.ImportCycles {
			if len(c) == 0 {
				continue
			}
			lines = append(lines, strings.Join(append(append([]string(nil), c...), c[0]), " -> "))
		}
		cycles = strings.Join(lines, "\n")
	}

	return &Report{
		Title: "Module Dependency Graph",
		Parts: []Renderable{
			NewTable("Modules", []string{"Module", "Path", "Imports", "Imported By", "Entrypoint"}, rows, r.Tree.Modules),
			&Section{Title: "Orphaned Modules", Content: orphaned},
			&Section{Title: "Import Cycles", Content: cycles},
		},
		Data: r.Tree,
	}
}

func location(file string, line int) string {
	if line <= 0 {
		return file
	}
	return fmt.Sprintf("%s:%d", file, line)
}

// confidenceColor colors text by confidence level: high is red, medium
// yellow, low green.
func confidenceColor(level, text string) string {
	switch level {
	case models.ConfidenceHigh:
		return color.RedString(text)
	case models.ConfidenceMedium:
		return color.YellowString(text)
	case models.ConfidenceLow:
		return color.GreenString(text)
	}
	return text
}
