package plugins

import (
	"strings"

	"github.com/panbanda/prune/pkg/models"
)

var pydanticBases = stringSet(
	"BaseModel", "pydantic.BaseModel",
	"BaseSettings", "pydantic.BaseSettings", "pydantic_settings.BaseSettings",
)

var pydanticDecorators = []string{
	"field_validator", "model_validator", "field_serializer", "model_serializer",
	"computed_field", "validator", "root_validator",
}

// Pydantic treats model fields and validator methods as implicitly used.
// Models themselves are not entrypoints: an unused model is dead.
type Pydantic struct{}

// NewPydantic creates the Pydantic plugin.
func NewPydantic() *Pydantic { return &Pydantic{} }

func (*Pydantic) Name() string      { return "pydantic" }
func (*Pydantic) Framework() string { return "pydantic" }

func (*Pydantic) ImportIndicators() []string {
	return []string{"pydantic", "BaseModel", "pydantic_settings"}
}

func (*Pydantic) FactoryFunctions() []string { return nil }

func (*Pydantic) ImplicitNames() []ImplicitName { return nil }

func (*Pydantic) DecoratorRules() []DecoratorRule {
	return []DecoratorRule{
		{Pattern: "field_validator", Delta: -30, Description: "Pydantic field validator"},
		{Pattern: "model_validator", Delta: -30, Description: "Pydantic model validator"},
		{Pattern: "field_serializer", Delta: -30, Description: "Pydantic field serializer"},
		{Pattern: "model_serializer", Delta: -30, Description: "Pydantic model serializer"},
		{Pattern: "computed_field", Delta: -30, Description: "Pydantic computed field"},
		{Pattern: "validator", Delta: -30, Description: "Pydantic v1 validator"},
		{Pattern: "root_validator", Delta: -30, Description: "Pydantic v1 root validator"},
	}
}

func (*Pydantic) IsImplicitName(name string, parentClasses, decorators []string) bool {
	if decoratorContains(decorators, pydanticDecorators) {
		return true
	}
	for _, parent := range parentClasses {
		if !pydanticBases[parent] {
			continue
		}
		switch name {
		case "Config", "model_config", "__validators__", "__fields__":
			return true
		}
		if !strings.HasPrefix(name, "_") {
			return true
		}
	}
	return false
}

func (*Pydantic) DetectEntrypoints(*File) []models.DetectedEntrypoint { return nil }
