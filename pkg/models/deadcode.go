package models

import "time"

// DeadCodeType is the kind tag of a reported item.
type DeadCodeType string

const (
	DeadFunction DeadCodeType = "unused_function"
	DeadMethod   DeadCodeType = "unused_method"
	DeadClass    DeadCodeType = "unused_class"
	DeadVariable DeadCodeType = "unused_variable"
	DeadImport   DeadCodeType = "unused_import"
	DeadConstant DeadCodeType = "unused_constant"
	DeadModule   DeadCodeType = "orphaned_module"
)

// DeadCodeTypeFor maps a symbol kind to its report tag.
func DeadCodeTypeFor(kind SymbolKind) DeadCodeType {
	switch kind {
	case KindFunction:
		return DeadFunction
	case KindMethod:
		return DeadMethod
	case KindClass:
		return DeadClass
	case KindVariable:
		return DeadVariable
	case KindImport:
		return DeadImport
	case KindConstant:
		return DeadConstant
	case KindModule:
		return DeadModule
	default:
		return "unused_code"
	}
}

// Suggested actions.
const (
	ActionRemove = "remove"
	ActionReview = "review"
)

// RemoveThreshold is the confidence at which removal is suggested.
const RemoveThreshold = 90

// SuggestedAction returns "remove" at or above RemoveThreshold, else "review".
func SuggestedAction(confidence int) string {
	if confidence >= RemoveThreshold {
		return ActionRemove
	}
	return ActionReview
}

// DeadCodeItem is one removal candidate.
type DeadCodeItem struct {
	ID              string       `json:"id"`
	QualifiedName   string       `json:"qualified_name"`
	Name            string       `json:"name"`
	Type            DeadCodeType `json:"type"`
	File            string       `json:"file"`
	Line            int          `json:"line"`
	EndLine         int          `json:"end_line,omitempty"`
	Confidence      int          `json:"confidence"`
	Reasons         []string     `json:"reasons"`
	SuggestedAction string       `json:"suggested_action"`
}

// OrphanedFile is a file no entrypoint file reaches through imports.
type OrphanedFile struct {
	File       string `json:"file"`
	ModuleName string `json:"module_name"`
	Symbols    int    `json:"symbols"`
	Lines      int    `json:"lines"`
}

// NoqaSkipped records a definition suppressed by a comment.
type NoqaSkipped struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Comment string `json:"comment"`
	Symbol  string `json:"symbol"`
}

// FileDiagnostic reports a file excluded from the symbol table.
type FileDiagnostic struct {
	File    string `json:"file"`
	Kind    string `json:"kind"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
}

// Confidence levels used in summaries.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// AnalysisSummary aggregates the reported items.
type AnalysisSummary struct {
	DeadCodeItems           int                  `json:"dead_code_items"`
	ByType                  map[DeadCodeType]int `json:"by_type"`
	ByConfidence            map[string]int       `json:"by_confidence"`
	EstimatedLinesRemovable int                  `json:"estimated_lines_removable"`
}

// NewAnalysisSummary creates an initialized summary.
func NewAnalysisSummary() AnalysisSummary {
	return AnalysisSummary{
		ByType:       make(map[DeadCodeType]int),
		ByConfidence: make(map[string]int),
	}
}

// Add counts an item under the given confidence level.
func (s *AnalysisSummary) Add(item DeadCodeItem, level string) {
	s.DeadCodeItems++
	s.ByType[item.Type]++
	s.ByConfidence[level]++
	if item.EndLine > 0 && item.Line > 0 {
		s.EstimatedLinesRemovable += item.EndLine - item.Line + 1
	} else {
		s.EstimatedLinesRemovable++
	}
}

// AnalysisMetadata describes the run.
type AnalysisMetadata struct {
	Project            string    `json:"project"`
	AnalyzedAt         time.Time `json:"analyzed_at"`
	ToolVersion        string    `json:"tool_version"`
	FilesAnalyzed      int       `json:"files_analyzed"`
	TotalSymbols       int       `json:"total_symbols"`
	AnalysisDurationMS int64     `json:"analysis_duration_ms"`
	Frameworks         []string  `json:"frameworks,omitempty"`
}

// ModuleNode is one module of the dependency tree.
type ModuleNode struct {
	Path         string   `json:"path,omitempty"`
	Imports      []string `json:"imports"`
	ImportedBy   []string `json:"imported_by"`
	IsEntrypoint bool     `json:"is_entrypoint"`
}

// DependencyTree is the serialized import graph.
type DependencyTree struct {
	Modules         map[string]ModuleNode `json:"modules"`
	OrphanedModules []string              `json:"orphaned_modules"`
	ImportCycles    [][]string            `json:"import_cycles,omitempty"`
}

// AnalysisOutput is the complete result of a run.
type AnalysisOutput struct {
	Version        string           `json:"version"`
	Metadata       AnalysisMetadata `json:"metadata"`
	Summary        AnalysisSummary  `json:"summary"`
	Entrypoints    []EntrypointInfo `json:"entrypoints"`
	DeadCode       []DeadCodeItem   `json:"dead_code"`
	OrphanedFiles  []OrphanedFile   `json:"orphaned_files"`
	DependencyTree DependencyTree   `json:"dependency_tree"`
	NoqaSkipped    []NoqaSkipped    `json:"noqa_skipped"`
	Errors         []FileDiagnostic `json:"errors,omitempty"`
}

// OutputVersion is the AnalysisOutput schema version.
const OutputVersion = "1.0"
