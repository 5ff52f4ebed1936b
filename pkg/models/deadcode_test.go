package models

import "testing"

func TestDeadCodeTypeFor(t *testing.T) {
	tests := []struct {
		kind SymbolKind
		want DeadCodeType
	}{
		{KindFunction, DeadFunction},
		{KindMethod, DeadMethod},
		{KindClass, DeadClass},
		{KindVariable, DeadVariable},
		{KindImport, DeadImport},
		{KindConstant, DeadConstant},
		{KindModule, DeadModule},
		{SymbolKind("lambda"), DeadCodeType("unused_code")},
	}
	for _, tt := range tests {
		if got := DeadCodeTypeFor(tt.kind); got != tt.want {
			t.Errorf("DeadCodeTypeFor(%s) = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

func TestSuggestedAction(t *testing.T) {
	if got := SuggestedAction(RemoveThreshold); got != ActionRemove {
		t.Errorf("SuggestedAction(%d) = %s, want remove", RemoveThreshold, got)
	}
	if got := SuggestedAction(RemoveThreshold - 1); got != ActionReview {
		t.Errorf("SuggestedAction(%d) = %s, want review", RemoveThreshold-1, got)
	}
}

func TestAnalysisSummary_Add(t *testing.T) {
	s := NewAnalysisSummary()
	if s.ByType == nil || s.ByConfidence == nil {
		t.Fatal("NewAnalysisSummary() should initialize its maps")
	}

	s.Add(DeadCodeItem{Type: DeadFunction, Line: 10, EndLine: 14}, ConfidenceHigh)
	s.Add(DeadCodeItem{Type: DeadFunction, Line: 20}, ConfidenceLow)
	s.Add(DeadCodeItem{Type: DeadImport, Line: 1, EndLine: 1}, ConfidenceHigh)

	if s.DeadCodeItems != 3 {
		t.Errorf("DeadCodeItems = %d, want 3", s.DeadCodeItems)
	}
	if s.ByType[DeadFunction] != 2 || s.ByType[DeadImport] != 1 {
		t.Errorf("ByType = %v", s.ByType)
	}
	if s.ByConfidence[ConfidenceHigh] != 2 || s.ByConfidence[ConfidenceLow] != 1 {
		t.Errorf("ByConfidence = %v", s.ByConfidence)
	}
	// 5 lines for the span, 1 for the item without an end line, 1 for the import.
	if s.EstimatedLinesRemovable != 7 {
		t.Errorf("EstimatedLinesRemovable = %d, want 7", s.EstimatedLinesRemovable)
	}
}

func TestNameClassifiers(t *testing.T) {
	tests := []struct {
		name    string
		dunder  bool
		private bool
	}{
		{"__init__", true, false},
		{"__", false, false},
		{"____", false, false},
		{"_helper", false, true},
		{"__mangled", false, false},
		{"public", false, false},
	}
	for _, tt := range tests {
		if got := IsDunderName(tt.name); got != tt.dunder {
			t.Errorf("IsDunderName(%q) = %v, want %v", tt.name, got, tt.dunder)
		}
		if got := IsPrivateName(tt.name); got != tt.private {
			t.Errorf("IsPrivateName(%q) = %v, want %v", tt.name, got, tt.private)
		}
	}
}

func TestSymbolKindLabel(t *testing.T) {
	if got := KindFunction.Label(); got != "FUNCTION" {
		t.Errorf("Label() = %s, want FUNCTION", got)
	}
}
