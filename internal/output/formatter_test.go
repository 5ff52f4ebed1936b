package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/panbanda/prune/pkg/models"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"text", FormatText},
		{"TEXT", FormatText},
		{"json", FormatJSON},
		{"JSON", FormatJSON},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"toon", FormatTOON},
		{"TOON", FormatTOON},
		{"", FormatText},
		{"invalid", FormatText},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseFormat(tt.input); got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewFormatter(t *testing.T) {
	f, err := NewFormatter(FormatMarkdown, "", true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	defer f.Close()

	if f.format != FormatMarkdown {
		t.Errorf("format = %q, want %q", f.format, FormatMarkdown)
	}
	if !f.colored {
		t.Error("colored = false, want true")
	}
	if f.file != nil {
		t.Error("file should be nil for stdout")
	}
	if f.writer == nil {
		t.Error("writer should not be nil")
	}
}

func TestNewFormatterWithFile(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "report.json")

	f, err := NewFormatter(FormatJSON, outputPath, true)
	if err != nil {
		t.Fatalf("NewFormatter() error: %v", err)
	}
	if f.colored {
		t.Error("colored should be false when writing to file")
	}
	if err := f.Output(NewTable("Items", []string{"N"}, [][]string{{"3"}}, map[string]int{"items": 3})); err != nil {
		t.Fatalf("Output() error: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	data, err := os.ReadFile(outputPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"items": 3`) {
		t.Errorf("file content = %s", data)
	}
}

func TestNewFormatterInvalidPath(t *testing.T) {
	if _, err := NewFormatter(FormatText, "/nonexistent/directory/file.txt", false); err == nil {
		t.Error("NewFormatter() should error for invalid path")
	}
}

func render(t *testing.T, format Format, r Renderable) string {
	t.Helper()
	var buf bytes.Buffer
	if err := NewWriterFormatter(format, &buf, false).Output(r); err != nil {
		t.Fatalf("Output(%s) error: %v", format, err)
	}
	return buf.String()
}

func TestTableRender(t *testing.T) {
	scores := map[string]int{"a.py": 100, "b|c.py": 50}
	table := NewTable("Results",
		[]string{"File", "Score"},
		[][]string{{"a.py", "100"}, {"b|c.py", "50"}},
		scores,
	)

	text := render(t, FormatText, table)
	for _, want := range []string{"Results\n-------", "FILE", "SCORE", "a.py", "50"} {
		if !strings.Contains(text, want) {
			t.Errorf("text output missing %q:\n%s", want, text)
		}
	}

	md := render(t, FormatMarkdown, table)
	for _, want := range []string{"## Results", "| File | Score |", "| --- | --- |", `b\|c.py`} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown output missing %q:\n%s", want, md)
		}
	}

	var decoded map[string]int
	if err := json.Unmarshal([]byte(render(t, FormatJSON, table)), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(decoded) != 2 || decoded["a.py"] != 100 {
		t.Errorf("JSON should encode the table data, got %v", decoded)
	}
}

func TestTableRenderEmpty(t *testing.T) {
	table := NewTable("Empty", []string{"A"}, nil, nil)
	if text := render(t, FormatText, table); !strings.Contains(text, "(none)") {
		t.Errorf("empty table text = %q", text)
	}
	if md := render(t, FormatMarkdown, table); !strings.Contains(md, "_None._") {
		t.Errorf("empty table markdown = %q", md)
	}
}

func TestSectionRender(t *testing.T) {
	report := &Report{
		Title: "Graph",
		Parts: []Renderable{&Section{Title: "Cycles", Content: "a -> b -> a"}},
	}

	text := render(t, FormatText, report)
	for _, want := range []string{"Graph\n=====", "Cycles\n------", "a -> b -> a"} {
		if !strings.Contains(text, want) {
			t.Errorf("text output missing %q:\n%s", want, text)
		}
	}

	md := render(t, FormatMarkdown, report)
	if !strings.Contains(md, "# Graph\n") || !strings.Contains(md, "## Cycles\n\na -> b -> a") {
		t.Errorf("markdown headings wrong:\n%s", md)
	}
}

func TestStatusMessages(t *testing.T) {
	var buf bytes.Buffer
	f := NewWriterFormatter(FormatText, &buf, false)
	f.Success("Wrote %s", "prune.toml")
	f.Warning("No Python files found")

	want := "Wrote prune.toml\nWARNING: No Python files found\n"
	if buf.String() != want {
		t.Errorf("status output = %q, want %q", buf.String(), want)
	}
}

func sampleOutput() *models.AnalysisOutput {
	summary := models.NewAnalysisSummary()
	items := []models.DeadCodeItem{
		{
			ID: "0000000000000001", QualifiedName: "orphan.lonely", Name: "lonely",
			Type: models.DeadCodeTypeFor(models.KindFunction), File: "orphan.py", Line: 1, EndLine: 2,
			Confidence: 100, Reasons: []string{"Entire file is unreachable from any entrypoint"},
			SuggestedAction: models.SuggestedAction(100),
		},
		{
			ID: "0000000000000002", QualifiedName: "app.helper", Name: "helper",
			Type: models.DeadCodeTypeFor(models.KindFunction), File: "app.py", Line: 10, EndLine: 12,
			Confidence: 45, Reasons: []string{"Base confidence for FUNCTION: 60"},
			SuggestedAction: models.SuggestedAction(45),
		},
	}
	summary.Add(items[0], models.ConfidenceHigh)
	summary.Add(items[1], models.ConfidenceLow)

	return &models.AnalysisOutput{
		Version: models.OutputVersion,
		Metadata: models.AnalysisMetadata{
			Project: "demo", FilesAnalyzed: 2, TotalSymbols: 5, Frameworks: []string{"flask"},
		},
		Summary: summary,
		Entrypoints: []models.EntrypointInfo{
			{QualifiedName: "app.index", Type: models.EntrypointFlaskRoute, File: "app.py", Line: 5, Decorator: "@app.route"},
			{QualifiedName: "app.__main__", Type: models.EntrypointMainBlock, File: "app.py", Line: 20},
		},
		DeadCode:      items,
		OrphanedFiles: []models.OrphanedFile{{File: "orphan.py", ModuleName: "orphan", Symbols: 1, Lines: 2}},
		DependencyTree: models.DependencyTree{
			Modules: map[string]models.ModuleNode{
				"app":    {Path: "app.py", Imports: []string{"util"}, ImportedBy: []string{}, IsEntrypoint: true},
				"util":   {Path: "util.py", Imports: []string{"app"}, ImportedBy: []string{"app"}},
				"orphan": {Path: "orphan.py", Imports: []string{}, ImportedBy: []string{}},
			},
			OrphanedModules: []string{"orphan"},
			ImportCycles:    [][]string{{"app", "util"}},
		},
		NoqaSkipped: []models.NoqaSkipped{{File: "app.py", Line: 30, Comment: "# noqa", Symbol: "app.kept"}},
		Errors:      []models.FileDiagnostic{{File: "bad.py", Kind: "syntax", Line: 3, Message: "Syntax error at line 3: invalid syntax"}},
	}
}

func TestAnalysisReport(t *testing.T) {
	report := &AnalysisReport{Output: sampleOutput(), ShowReasons: true}

	text := render(t, FormatText, report)
	for _, want := range []string{
		"Dead Code Analysis: demo",
		"Dead code items:     2 (high 1, medium 0, low 1)",
		"Frameworks:          flask",
		"orphan.lonely", "orphan.py:1", "100%",
		"unreachable",
		"Orphaned Files", "Suppressed", "app.kept",
		"Skipped Files", "bad.py",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text report missing %q:\n%s", want, text)
		}
	}

	md := render(t, FormatMarkdown, report)
	if !strings.Contains(md, "# Dead Code Analysis: demo") || !strings.Contains(md, "## Dead Code") {
		t.Errorf("markdown report headings wrong:\n%s", md)
	}

	var decoded models.AnalysisOutput
	if err := json.Unmarshal([]byte(render(t, FormatJSON, report)), &decoded); err != nil {
		t.Fatalf("JSON report invalid: %v", err)
	}
	if decoded.Summary.DeadCodeItems != 2 || len(decoded.DeadCode) != 2 || decoded.DeadCode[0].ID != "0000000000000001" {
		t.Errorf("JSON report = %+v", decoded.Summary)
	}
}

func TestAnalysisReportTOON(t *testing.T) {
	out := render(t, FormatTOON, &AnalysisReport{Output: sampleOutput()})
	for _, want := range []string{"version", "dead_code", "orphan.lonely", "orphaned_files"} {
		if !strings.Contains(out, want) {
			t.Errorf("TOON output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "QualifiedName") {
		t.Error("TOON output should use the json field names")
	}
}

func TestEntrypointsReport(t *testing.T) {
	report := &EntrypointsReport{Entrypoints: sampleOutput().Entrypoints}

	text := render(t, FormatText, report)
	for _, want := range []string{"Entrypoints (2)", "flask_route", "app.index", "app.py:5", "@app.route", "main_block"} {
		if !strings.Contains(text, want) {
			t.Errorf("entrypoints text missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "flask_route") > strings.Index(text, "main_block") {
		t.Error("entrypoints should be grouped by type")
	}

	var decoded []models.EntrypointInfo
	if err := json.Unmarshal([]byte(render(t, FormatJSON, report)), &decoded); err != nil || len(decoded) != 2 {
		t.Errorf("entrypoints JSON = %v, %v", decoded, err)
	}
}

func TestGraphReport(t *testing.T) {
	report := &GraphReport{Tree: sampleOutput().DependencyTree}

	text := render(t, FormatText, report)
	for _, want := range []string{"Module Dependency Graph", "util.py", "Orphaned Modules", "orphan", "app -> util -> app"} {
		if !strings.Contains(text, want) {
			t.Errorf("graph text missing %q:\n%s", want, text)
		}
	}

	var decoded models.DependencyTree
	if err := json.Unmarshal([]byte(render(t, FormatJSON, report)), &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Modules) != 3 || len(decoded.ImportCycles) != 1 {
		t.Errorf("graph JSON = %+v", decoded)
	}
}

func TestConfidenceColor(t *testing.T) {
	for _, level := range []string{"high", "medium", "low", "other"} {
		if got := confidenceColor(level, "x"); !strings.Contains(got, "x") {
			t.Errorf("confidenceColor(%q) lost the text: %q", level, got)
		}
	}
}
