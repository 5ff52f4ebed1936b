// Package plugins holds the framework rule providers consulted by the
// collector, the reachability pass and the scoring engine.
package plugins

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/panbanda/prune/pkg/models"
)

// ImplicitName is a method name that frameworks call on subclasses of the
// listed bases.
type ImplicitName struct {
	Name          string
	Context       string
	ParentClasses []string
	Delta         int
}

// DecoratorRule adjusts confidence for definitions whose decorator text
// contains Pattern.
type DecoratorRule struct {
	Pattern     string
	Delta       int
	Description string
}

// File is a parsed source file handed to entrypoint detectors.
type File struct {
	Path   string
	Source []byte
	Root   *sitter.Node
}

// Plugin is a framework rule provider.
type Plugin interface {
	// Name identifies the plugin, e.g. "flask-restplus".
	Name() string
	// Framework is the tag reported when the framework is detected.
	Framework() string
	// ImportIndicators are module or imported names that reveal the framework.
	ImportIndicators() []string
	// FactoryFunctions are application factory names.
	FactoryFunctions() []string
	// ImplicitNames declare the score delta for names the framework calls
	// implicitly.
	ImplicitNames() []ImplicitName
	DecoratorRules() []DecoratorRule
	// DetectEntrypoints returns the framework entrypoints defined in f.
	DetectEntrypoints(f *File) []models.DetectedEntrypoint
	// IsImplicitName reports whether the framework uses name implicitly.
	IsImplicitName(name string, parentClasses, decorators []string) bool
}
