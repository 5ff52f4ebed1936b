package scoring

import "github.com/panbanda/prune/pkg/models"

// Config holds the base confidences and the magnitudes of every
// adjustment. Penalties are negative, bonuses positive.
type Config struct {
	// BaseConfidence is keyed by symbol kind ("function", "import", ...).
	BaseConfidence map[string]int `koanf:"base_confidence" toml:"base_confidence"`

	DunderPenalty            int `koanf:"dunder_penalty" toml:"dunder_penalty"`
	PrivatePenalty           int `koanf:"private_penalty" toml:"private_penalty"`
	EntrypointPenalty        int `koanf:"entrypoint_penalty" toml:"entrypoint_penalty"`
	DecoratorPenalty         int `koanf:"decorator_penalty" toml:"decorator_penalty"`
	NameUsedPenalty          int `koanf:"name_used_penalty" toml:"name_used_penalty"`
	QualifiedNameUsedPenalty int `koanf:"qualified_name_used_penalty" toml:"qualified_name_used_penalty"`
	ImplicitNamePenalty      int `koanf:"implicit_name_penalty" toml:"implicit_name_penalty"`
	TestNamePenalty          int `koanf:"test_name_penalty" toml:"test_name_penalty"`

	StaleFileMonths     int `koanf:"stale_file_months" toml:"stale_file_months"`
	StaleFileBonus      int `koanf:"stale_file_bonus" toml:"stale_file_bonus"`
	VeryStaleFileMonths int `koanf:"very_stale_file_months" toml:"very_stale_file_months"`
	VeryStaleFileBonus  int `koanf:"very_stale_file_bonus" toml:"very_stale_file_bonus"`

	ORMUnusedBonus int `koanf:"orm_unused_bonus" toml:"orm_unused_bonus"`
	ORMUsedPenalty int `koanf:"orm_used_penalty" toml:"orm_used_penalty"`

	UnreachableBonus int `koanf:"unreachable_bonus" toml:"unreachable_bonus"`
	ReachablePenalty int `koanf:"reachable_penalty" toml:"reachable_penalty"`
}

// DefaultBaseConfidence returns the per-kind starting confidence.
func DefaultBaseConfidence() map[string]int {
	return map[string]int{
		string(models.KindFunction): 60,
		string(models.KindMethod):   60,
		string(models.KindClass):    60,
		string(models.KindVariable): 60,
		string(models.KindImport):   90,
		string(models.KindConstant): 70,
		string(models.KindModule):   80,
	}
}

// DefaultConfig returns the default scoring configuration.
func DefaultConfig() Config {
	return Config{
		BaseConfidence:           DefaultBaseConfidence(),
		DunderPenalty:            -40,
		PrivatePenalty:           -10,
		EntrypointPenalty:        -40,
		DecoratorPenalty:         -20,
		NameUsedPenalty:          -40,
		QualifiedNameUsedPenalty: -20,
		ImplicitNamePenalty:      -40,
		TestNamePenalty:          -30,
		StaleFileMonths:          6,
		StaleFileBonus:           10,
		VeryStaleFileMonths:      12,
		VeryStaleFileBonus:       15,
		ORMUnusedBonus:           30,
		ORMUsedPenalty:           -20,
		UnreachableBonus:         30,
		ReachablePenalty:         -20,
	}
}

// base returns the starting confidence for kind, defaulting to 60 for
// kinds missing from the table.
func (c Config) base(kind models.SymbolKind) int {
	if v, ok := c.BaseConfidence[string(kind)]; ok {
		return v
	}
	return 60
}
