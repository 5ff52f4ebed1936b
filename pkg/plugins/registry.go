package plugins

import (
	"sort"
	"strings"

	"github.com/panbanda/prune/pkg/models"
)

// extraIndicators tag frameworks that have no provider but are still
// worth reporting in the analysis metadata.
var extraIndicators = map[string]string{
	"fastapi": "fastapi",
	"FastAPI": "fastapi",
	"django":  "django",
	"click":   "click",
	"typer":   "typer",
}

// Rule is a decorator rule together with the plugin that contributed it.
type Rule struct {
	DecoratorRule
	Plugin string
}

// Registry aggregates a fixed set of plugins. Iteration order is
// alphabetical by plugin name, so "first matching plugin" is deterministic.
type Registry struct {
	plugins []Plugin
	byName  map[string]Plugin
}

// NewRegistry creates a registry over the given plugins. A later plugin
// with a duplicate name replaces the earlier one.
func NewRegistry(plugins ...Plugin) *Registry {
	r := &Registry{byName: make(map[string]Plugin, len(plugins))}
	for _, p := range plugins {
		r.byName[p.Name()] = p
	}
	for _, p := range r.byName {
		r.plugins = append(r.plugins, p)
	}
	sort.Slice(r.plugins, func(i, j int) bool {
		return r.plugins[i].Name() < r.plugins[j].Name()
	})
	return r
}

// Builtin returns the built-in providers. root is the project root used by
// the pytest provider to find CI configuration.
func Builtin(root string) []Plugin {
	return []Plugin{
		NewCelery(),
		NewFlask(),
		NewFlaskRestPlus(),
		NewPydantic(),
		NewPytest(root),
		NewSQLAlchemy(),
	}
}

// Default returns a registry with every built-in provider.
func Default(root string) *Registry {
	return NewRegistry(Builtin(root)...)
}

// Plugins returns the registered plugins in iteration order.
func (r *Registry) Plugins() []Plugin {
	return r.plugins
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Fingerprinter is implemented by plugins whose detection depends on
// project state beyond the file being analyzed.
type Fingerprinter interface {
	Fingerprint() string
}

// Fingerprint identifies the registered plugins and their project state.
// Cached per-file detections are valid only under the same fingerprint.
func (r *Registry) Fingerprint() string {
	parts := make([]string, 0, len(r.plugins))
	for _, p := range r.plugins {
		part := p.Name()
		if fp, ok := p.(Fingerprinter); ok {
			part += "=" + fp.Fingerprint()
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ";")
}

// ImportIndicators maps every indicator to its framework tag.
func (r *Registry) ImportIndicators() map[string]string {
	out := make(map[string]string)
	for _, p := range r.plugins {
		for _, ind := range p.ImportIndicators() {
			out[ind] = p.Framework()
		}
	}
	return out
}

// FactoryFunctions returns the union of factory names across plugins.
func (r *Registry) FactoryFunctions() map[string]bool {
	out := make(map[string]bool)
	for _, p := range r.plugins {
		for _, name := range p.FactoryFunctions() {
			out[name] = true
		}
	}
	return out
}

// DecoratorRules returns every plugin decorator rule in registry order.
func (r *Registry) DecoratorRules() []Rule {
	var out []Rule
	for _, p := range r.plugins {
		for _, rule := range p.DecoratorRules() {
			out = append(out, Rule{DecoratorRule: rule, Plugin: p.Name()})
		}
	}
	return out
}

// ImplicitMatch names the plugin that treats a symbol as implicitly used.
type ImplicitMatch struct {
	Plugin string
	// Rule is the plugin's implicit-name rule for the symbol's name, nil
	// when the plugin matched without declaring one.
	Rule *ImplicitName
}

// ImplicitPlugin returns the first plugin that considers the symbol
// implicitly used, with its implicit-name rule for that name if any.
func (r *Registry) ImplicitPlugin(name string, parentClasses, decorators []string) (ImplicitMatch, bool) {
	for _, p := range r.plugins {
		if !p.IsImplicitName(name, parentClasses, decorators) {
			continue
		}
		m := ImplicitMatch{Plugin: p.Name()}
		for _, rule := range p.ImplicitNames() {
			if rule.Name == name {
				m.Rule = &rule
				break
			}
		}
		return m, true
	}
	return ImplicitMatch{}, false
}

// DetectEntrypoints runs every plugin's detector over f.
func (r *Registry) DetectEntrypoints(f *File) []models.DetectedEntrypoint {
	var out []models.DetectedEntrypoint
	for _, p := range r.plugins {
		out = append(out, p.DetectEntrypoints(f)...)
	}
	return out
}

// DetectFrameworks returns the sorted framework tags revealed by imports.
// An import matches when its top-level module or imported name is an
// indicator.
func (r *Registry) DetectFrameworks(imports []models.ImportRecord) []string {
	indicators := r.ImportIndicators()
	for k, v := range extraIndicators {
		if _, ok := indicators[k]; !ok {
			indicators[k] = v
		}
	}

	found := make(map[string]bool)
	for _, imp := range imports {
		if imp.IsRelative {
			continue
		}
		top, _, _ := strings.Cut(imp.Module, ".")
		if fw, ok := indicators[top]; ok {
			found[fw] = true
		}
		if fw, ok := indicators[imp.Name]; ok && imp.Name != "" {
			found[fw] = true
		}
	}

	out := make([]string, 0, len(found))
	for fw := range found {
		out = append(out, fw)
	}
	sort.Strings(out)
	return out
}
