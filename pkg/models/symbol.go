package models

import "strings"

// SymbolKind classifies a definition.
type SymbolKind string

const (
	KindFunction SymbolKind = "function"
	KindMethod   SymbolKind = "method"
	KindClass    SymbolKind = "class"
	KindVariable SymbolKind = "variable"
	KindImport   SymbolKind = "import"
	KindConstant SymbolKind = "constant"
	KindModule   SymbolKind = "module"
)

// Label returns the upper-case form used in score reasons.
func (k SymbolKind) Label() string {
	return strings.ToUpper(string(k))
}

// Location is a source span. Lines are 1-based, columns 0-based.
type Location struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line,omitempty"`
	EndColumn int    `json:"end_column,omitempty"`
}

// Symbol is a named definition collected from one file.
type Symbol struct {
	Name          string     `json:"name"`
	QualifiedName string     `json:"qualified_name"`
	Kind          SymbolKind `json:"kind"`
	Location      Location   `json:"location"`
	Scope         string     `json:"scope"`
	Decorators    []string   `json:"decorators,omitempty"`
	IsEntrypoint  bool       `json:"is_entrypoint"`
	IsDunder      bool       `json:"is_dunder"`
	IsPrivate     bool       `json:"is_private"`
	// ParentClasses holds the base classes of a class, or of the enclosing
	// class for a method.
	ParentClasses []string `json:"parent_classes,omitempty"`
}

// IsDunderName reports whether name has the __x__ form.
func IsDunderName(name string) bool {
	return len(name) > 4 && strings.HasPrefix(name, "__") && strings.HasSuffix(name, "__")
}

// IsPrivateName reports whether name has a single leading underscore.
func IsPrivateName(name string) bool {
	return strings.HasPrefix(name, "_") && !strings.HasPrefix(name, "__")
}

// UsageContext tags how a name was used.
type UsageContext string

const (
	UsageCall         UsageContext = "call"
	UsageReference    UsageContext = "reference"
	UsageAttribute    UsageContext = "attribute"
	UsageInheritance  UsageContext = "inheritance"
	UsageDecorator    UsageContext = "decorator"
	UsageTypeHint     UsageContext = "type_hint"
	UsageORMReference UsageContext = "orm_reference"
)

// Usage is a recorded reference to a name. Caller is the qualified name of
// the nearest enclosing function, empty at module or class-body level.
type Usage struct {
	SymbolName string       `json:"symbol_name"`
	Context    UsageContext `json:"context"`
	Location   Location     `json:"location"`
	Caller     string       `json:"caller,omitempty"`
}

// ImportRecord is one imported name.
type ImportRecord struct {
	Module     string   `json:"module"`
	Name       string   `json:"name,omitempty"`
	Alias      string   `json:"alias,omitempty"`
	IsRelative bool     `json:"is_relative"`
	Level      int      `json:"level"`
	Location   Location `json:"location"`
}

// ModuleInfo is a node of the import graph. An empty Path marks an external module.
type ModuleInfo struct {
	Name       string `json:"name"`
	Path       string `json:"path,omitempty"`
	IsPackage  bool   `json:"is_package"`
	IsExternal bool   `json:"is_external"`
}
