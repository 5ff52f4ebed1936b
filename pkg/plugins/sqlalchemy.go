package plugins

import (
	"strings"

	"github.com/panbanda/prune/pkg/models"
)

// ModelBases are the base classes that mark an SQLAlchemy model.
var ModelBases = []string{"Model", "db.Model", "Base", "DeclarativeBase", "AbstractConcreteBase"}

var modelBaseSet = stringSet(ModelBases...)

// IsModelBase reports whether name is a known SQLAlchemy model base.
func IsModelBase(name string) bool {
	return modelBaseSet[name]
}

var sqlalchemyDecorators = []string{"validates", "hybrid_property", "hybrid_method", "reconstructor", "listens_for"}

// SQLAlchemy treats model classes as infrastructure entrypoints, since
// migrations and metadata introspection reach them, and model attributes
// as implicitly used.
type SQLAlchemy struct{}

// NewSQLAlchemy creates the SQLAlchemy plugin.
func NewSQLAlchemy() *SQLAlchemy { return &SQLAlchemy{} }

func (*SQLAlchemy) Name() string      { return "sqlalchemy" }
func (*SQLAlchemy) Framework() string { return "sqlalchemy" }

func (*SQLAlchemy) ImportIndicators() []string {
	return []string{"sqlalchemy", "flask_sqlalchemy", "SQLAlchemy"}
}

func (*SQLAlchemy) FactoryFunctions() []string { return nil }

func (*SQLAlchemy) ImplicitNames() []ImplicitName { return nil }

func (*SQLAlchemy) DecoratorRules() []DecoratorRule {
	return []DecoratorRule{
		{Pattern: "validates", Delta: -30, Description: "SQLAlchemy validation decorator"},
		{Pattern: "hybrid_property", Delta: -30, Description: "SQLAlchemy hybrid property"},
		{Pattern: "hybrid_method", Delta: -30, Description: "SQLAlchemy hybrid method"},
		{Pattern: "reconstructor", Delta: -30, Description: "SQLAlchemy reconstructor"},
		{Pattern: "listens_for", Delta: -30, Description: "SQLAlchemy event listener"},
	}
}

func (*SQLAlchemy) IsImplicitName(name string, parentClasses, decorators []string) bool {
	for _, parent := range parentClasses {
		if IsModelBase(parent) && !models.IsDunderName(name) {
			return true
		}
	}
	return decoratorContains(decorators, sqlalchemyDecorators)
}

func (*SQLAlchemy) DetectEntrypoints(f *File) []models.DetectedEntrypoint {
	var out []models.DetectedEntrypoint
	for _, d := range Definitions(f) {
		if d.Kind != DefClass {
			continue
		}
		for _, b := range d.Bases {
			if IsModelBase(b) {
				out = append(out, models.DetectedEntrypoint{
					Name:        d.Name,
					Type:        models.EntrypointInfra,
					Location:    d.Location(f.Path),
					Arguments:   map[string]any{"reason": "SQLAlchemy Model"},
					ParentClass: d.Class,
				})
				break
			}
		}
	}
	return out
}

// decoratorContains reports whether any decorator's lower-cased text
// contains one of patterns.
func decoratorContains(decorators, patterns []string) bool {
	for _, dec := range decorators {
		lower := strings.ToLower(dec)
		for _, p := range patterns {
			if strings.Contains(lower, p) {
				return true
			}
		}
	}
	return false
}
