// Package collector extracts symbol definitions, usages, imports and line
// comments from a single Python source file.
package collector

import (
	"fmt"

	"github.com/panbanda/prune/pkg/models"
)

// ErrorKind classifies a per-file failure.
type ErrorKind string

const (
	ErrorSyntax ErrorKind = "syntax"
	ErrorDecode ErrorKind = "decode"
	ErrorOther  ErrorKind = "other"
)

// FileError is the typed failure attached to a Result. A file carrying one
// contributes nothing to the symbol table.
type FileError struct {
	Kind    ErrorKind `json:"kind"`
	Line    int       `json:"line,omitempty"`
	Message string    `json:"message"`
}

func (e *FileError) Error() string {
	switch e.Kind {
	case ErrorSyntax:
		return fmt.Sprintf("Syntax error at line %d: %s", e.Line, e.Message)
	case ErrorDecode:
		return "Unicode decode error: " + e.Message
	default:
		return "Error: " + e.Message
	}
}

// Result is everything collected from one file.
type Result struct {
	File     string                `json:"file"`
	Module   string                `json:"module"`
	Symbols  []models.Symbol       `json:"symbols"`
	Usages   []models.Usage        `json:"usages"`
	Imports  []models.ImportRecord `json:"imports"`
	Comments map[int]string        `json:"comments,omitempty"`
	// Tables maps ORM model class names to their __tablename__.
	Tables map[string]string `json:"tables,omitempty"`
	Lines  int               `json:"lines"`
	Error  *FileError        `json:"error,omitempty"`

	index map[string]int
}

func newResult(file, module string) *Result {
	return &Result{
		File:     file,
		Module:   module,
		Comments: make(map[int]string),
		index:    make(map[string]int),
	}
}

// Failed reports whether the file could not be analyzed.
func (r *Result) Failed() bool {
	return r.Error != nil
}

// Definitions returns the symbols keyed by qualified name.
func (r *Result) Definitions() map[string]*models.Symbol {
	defs := make(map[string]*models.Symbol, len(r.Symbols))
	for i := range r.Symbols {
		defs[r.Symbols[i].QualifiedName] = &r.Symbols[i]
	}
	return defs
}

// Symbol returns the definition with the given qualified name.
func (r *Result) Symbol(qname string) (*models.Symbol, bool) {
	for i := range r.Symbols {
		if r.Symbols[i].QualifiedName == qname {
			return &r.Symbols[i], true
		}
	}
	return nil, false
}

// define adds sym, replacing an earlier definition with the same qualified
// name in place so the first-seen order is kept.
func (r *Result) define(sym models.Symbol) {
	if i, ok := r.index[sym.QualifiedName]; ok {
		r.Symbols[i] = sym
		return
	}
	r.index[sym.QualifiedName] = len(r.Symbols)
	r.Symbols = append(r.Symbols, sym)
}
