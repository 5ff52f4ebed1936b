// Package scoring turns the signals gathered for a symbol into a 0 to 100
// confidence that it is dead, with an ordered list of reasons.
package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/panbanda/prune/pkg/models"
	"github.com/panbanda/prune/pkg/plugins"
)

// entrypointDecorators are decorator fragments that indicate external use.
// Matching is by substring of the lower-cased decorator text.
var entrypointDecorators = []string{
	"route", "get", "post", "put", "delete", "patch",
	"task", "shared_task", "command",
	"pytest.fixture", "fixture",
	"property", "staticmethod", "classmethod", "abstractmethod", "override",
	"register", "receiver", "admin.register",
	"login_required", "permission_required", "api_view", "action",
}

// implicitNames are invoked by the runtime or by unittest rather than by
// user code.
var implicitNames = map[string]bool{
	"__init__": true, "__new__": true, "__del__": true, "__repr__": true,
	"__str__": true, "__bytes__": true, "__format__": true, "__hash__": true,
	"__bool__": true, "__eq__": true, "__ne__": true, "__lt__": true,
	"__le__": true, "__gt__": true, "__ge__": true, "__getattr__": true,
	"__setattr__": true, "__delattr__": true, "__getattribute__": true,
	"__get__": true, "__set__": true, "__delete__": true, "__call__": true,
	"__len__": true, "__getitem__": true, "__setitem__": true,
	"__delitem__": true, "__iter__": true, "__next__": true,
	"__contains__": true, "__add__": true, "__sub__": true, "__mul__": true,
	"__truediv__": true, "__floordiv__": true, "__mod__": true,
	"__pow__": true, "__enter__": true, "__exit__": true,
	"__aenter__": true, "__aexit__": true, "__await__": true,
	"__aiter__": true, "__anext__": true,
	"setUp": true, "tearDown": true, "setUpClass": true,
	"tearDownClass": true, "setUpModule": true, "tearDownModule": true,
}

// OrphanedReason replaces every other reason for symbols in orphaned files.
const OrphanedReason = "Entire file is unreachable from any entrypoint"

// UnreachableReason is appended for symbols no entrypoint calls.
const UnreachableReason = "Not reachable from any entrypoint"

// Inputs are the project-wide signals a symbol is scored against.
type Inputs struct {
	// UsedNames holds every usage name seen in the project.
	UsedNames map[string]bool
	// FileAges maps a file to its last modification time.
	FileAges map[string]time.Time
	// ORMUsages holds model class and table names referenced through ORM
	// patterns.
	ORMUsages map[string]bool
	// ModelTables maps a model class name to its table name.
	ModelTables map[string]string
}

// Scorer computes confidences.
type Scorer struct {
	cfg      Config
	registry *plugins.Registry
	rules    []plugins.Rule
	now      func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithRegistry sets the plugin registry consulted for implicit names and
// decorator rules.
func WithRegistry(r *plugins.Registry) Option {
	return func(s *Scorer) {
		s.registry = r
	}
}

// WithClock overrides the current time used for staleness.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		s.now = now
	}
}

// New creates a scorer.
func New(cfg Config, opts ...Option) *Scorer {
	if cfg.BaseConfidence == nil {
		cfg.BaseConfidence = DefaultBaseConfidence()
	}
	s := &Scorer{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry != nil {
		s.rules = s.registry.DecoratorRules()
	}
	return s
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() Config {
	return s.cfg
}

// Score returns the confidence that sym is dead and the reasons, in the
// order the adjustments were applied.
func (s *Scorer) Score(sym models.Symbol, in Inputs) (int, []string) {
	cfg := s.cfg
	confidence := cfg.base(sym.Kind)
	reasons := []string{fmt.Sprintf("Base confidence for %s: %d", sym.Kind.Label(), confidence)}

	apply := func(delta int, reason string) {
		confidence += delta
		reasons = append(reasons, reason)
	}

	if in.UsedNames[sym.Name] {
		apply(cfg.NameUsedPenalty, fmt.Sprintf("Name '%s' found in usages: %d", sym.Name, cfg.NameUsedPenalty))
	}
	if in.UsedNames[sym.QualifiedName] {
		apply(cfg.QualifiedNameUsedPenalty, fmt.Sprintf("Qualified name found in usages: %d", cfg.QualifiedNameUsedPenalty))
	}
	if sym.IsDunder || implicitNames[sym.Name] {
		apply(cfg.DunderPenalty, fmt.Sprintf("Dunder/implicit method: %d", cfg.DunderPenalty))
	}
	if s.registry != nil {
		if m, ok := s.registry.ImplicitPlugin(sym.Name, sym.ParentClasses, sym.Decorators); ok {
			delta := cfg.ImplicitNamePenalty
			if m.Rule != nil {
				delta = m.Rule.Delta
			}
			apply(delta, fmt.Sprintf("Implicit name detected by %s plugin: %d", m.Plugin, delta))
		}
	}
	if sym.IsPrivate && !sym.IsDunder {
		apply(cfg.PrivatePenalty, fmt.Sprintf("Private symbol: %d", cfg.PrivatePenalty))
	}
	if sym.IsEntrypoint {
		apply(cfg.EntrypointPenalty, fmt.Sprintf("Marked as entrypoint: %d", cfg.EntrypointPenalty))
	}
	if delta, reason, ok := s.matchDecorator(sym.Decorators); ok {
		apply(delta, reason)
	}
	if strings.HasPrefix(sym.Name, "test_") || strings.HasSuffix(sym.Name, "_test") {
		apply(cfg.TestNamePenalty, fmt.Sprintf("Looks like a test function: %d", cfg.TestNamePenalty))
	}
	if modified, ok := in.FileAges[sym.Location.File]; ok {
		if delta, reason := s.staleness(modified); delta > 0 {
			apply(delta, reason)
		}
	}
	if isModel(sym) {
		if hasORMUsage(sym, in) {
			apply(cfg.ORMUsedPenalty, fmt.Sprintf("SQLAlchemy Model with ORM usages: %d", cfg.ORMUsedPenalty))
		} else {
			apply(cfg.ORMUnusedBonus, fmt.Sprintf("SQLAlchemy Model with no ORM usages: +%d", cfg.ORMUnusedBonus))
		}
	}

	return clamp(confidence), reasons
}

// matchDecorator finds the first (decorator, rule) pair in declaration
// order. Plugin rules are tried before the built-in fragments.
func (s *Scorer) matchDecorator(decorators []string) (int, string, bool) {
	for _, dec := range decorators {
		lower := strings.ToLower(dec)
		for _, rule := range s.rules {
			if strings.Contains(lower, strings.ToLower(rule.Pattern)) {
				return rule.Delta, fmt.Sprintf("%s '%s' (%s plugin): %d", rule.Description, dec, rule.Plugin, rule.Delta), true
			}
		}
		for _, pattern := range entrypointDecorators {
			if strings.Contains(lower, pattern) {
				return s.cfg.DecoratorPenalty, fmt.Sprintf("Has entrypoint decorator '%s': %d", dec, s.cfg.DecoratorPenalty), true
			}
		}
	}
	return 0, "", false
}

func (s *Scorer) staleness(modified time.Time) (int, string) {
	days := int(s.now().Sub(modified).Hours() / 24)
	months := float64(days) / 30
	switch {
	case months >= float64(s.cfg.VeryStaleFileMonths):
		return s.cfg.VeryStaleFileBonus, fmt.Sprintf("File not modified in %d months: +%d", int(months), s.cfg.VeryStaleFileBonus)
	case months >= float64(s.cfg.StaleFileMonths):
		return s.cfg.StaleFileBonus, fmt.Sprintf("File not modified in %d months: +%d", int(months), s.cfg.StaleFileBonus)
	}
	return 0, ""
}

func isModel(sym models.Symbol) bool {
	if sym.Kind != models.KindClass {
		return false
	}
	for _, p := range sym.ParentClasses {
		if plugins.IsModelBase(p) {
			return true
		}
	}
	return false
}

func hasORMUsage(sym models.Symbol, in Inputs) bool {
	if len(in.ORMUsages) == 0 {
		return false
	}
	if in.ORMUsages[sym.Name] {
		return true
	}
	table, ok := in.ModelTables[sym.Name]
	return ok && table != "" && in.ORMUsages[table]
}

// Orphaned returns the score for a symbol whose file no entrypoint reaches.
func (s *Scorer) Orphaned() (int, []string) {
	return 100, []string{OrphanedReason}
}

// Unreachable raises the confidence of a symbol in a reachable file that no
// entrypoint calls.
func (s *Scorer) Unreachable(confidence int, reasons []string) (int, []string) {
	for _, r := range reasons {
		if r == UnreachableReason {
			return clamp(confidence + s.cfg.UnreachableBonus), reasons
		}
	}
	return clamp(confidence + s.cfg.UnreachableBonus), append(reasons, UnreachableReason)
}

// Reachable lowers the confidence of a symbol some entrypoint calls.
func (s *Scorer) Reachable(confidence int, reasons []string) (int, []string) {
	return clamp(confidence + s.cfg.ReachablePenalty), append(reasons, fmt.Sprintf("Reachable from an entrypoint: %d", s.cfg.ReachablePenalty))
}

// ClassifyConfidence buckets a confidence into high, medium or low.
func ClassifyConfidence(confidence int) string {
	switch {
	case confidence >= 90:
		return models.ConfidenceHigh
	case confidence >= 70:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
