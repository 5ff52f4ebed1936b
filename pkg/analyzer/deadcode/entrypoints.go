package deadcode

import (
	"strings"

	"github.com/panbanda/prune/pkg/analyzer/collector"
	"github.com/panbanda/prune/pkg/analyzer/infra"
	"github.com/panbanda/prune/pkg/models"
)

// decoratorHint maps an entrypoint type to decorator names that imply it.
type decoratorHint struct {
	typ      models.EntrypointType
	patterns []string
}

// decoratorHints covers decorators the plugin detectors do not recognize
// structurally, e.g. routes on an app object imported from elsewhere.
var decoratorHints = []decoratorHint{
	{models.EntrypointFlaskRoute, []string{"route", "get", "post", "put", "delete", "patch"}},
	{models.EntrypointFlaskHook, []string{"before_request", "after_request", "teardown_request", "before_first_request"}},
	{models.EntrypointFlaskErrorHandler, []string{"errorhandler"}},
	{models.EntrypointFlaskCLI, []string{"cli.command"}},
	{models.EntrypointCeleryTask, []string{"task"}},
	{models.EntrypointCelerySharedTask, []string{"shared_task"}},
	{models.EntrypointCelerySignal, []string{"connect"}},
	{models.EntrypointFastAPIRoute, []string{"get", "post", "put", "delete", "patch"}},
	{models.EntrypointClickCommand, []string{"command", "group"}},
}

// symbolKey identifies a definition within one file the way detectors
// report it.
type symbolKey struct {
	name  string
	class string
}

func keyOf(sym models.Symbol) symbolKey {
	k := symbolKey{name: sym.Name}
	if sym.Kind == models.KindMethod {
		k.class = lastSegment(sym.Scope)
	}
	return k
}

// markEntrypoints sets IsEntrypoint on symbols and records the call graph
// roots and entrypoint modules. Only types enabled in the configuration
// mark anything; every detected entrypoint is still listed.
func (p *project) markEntrypoints() {
	factories := p.a.registry.FactoryFunctions()

	for _, res := range p.results {
		byKey := make(map[symbolKey][]int)
		for _, sym := range res.Symbols {
			if i, ok := p.index[sym.QualifiedName]; ok && p.symbols[i].Location.File == res.File {
				byKey[keyOf(sym)] = append(byKey[keyOf(sym)], i)
			}
		}

		for _, ep := range p.detected[res.File] {
			if ep.Type == models.EntrypointMainBlock {
				p.markMainBlock(res, ep)
				continue
			}
			for _, i := range byKey[symbolKey{name: ep.Name, class: ep.ParentClass}] {
				p.mark(i, ep.Type, ep.Decorator)
			}
		}
	}

	for i := range p.symbols {
		sym := &p.symbols[i]
		if p.listed[sym.QualifiedName] {
			continue
		}
		if sym.Kind == models.KindFunction && factories[sym.Name] {
			p.mark(i, models.EntrypointFactoryFunction, "")
			continue
		}
		for _, dec := range sym.Decorators {
			if typ, ok := hintFor(dec); ok {
				p.mark(i, typ, dec)
				break
			}
		}
	}

	for _, ep := range p.infra {
		p.markInfra(ep)
	}
}

// mark records symbol i as an entrypoint of type typ.
func (p *project) mark(i int, typ models.EntrypointType, decorator string) {
	sym := &p.symbols[i]
	key := sym.QualifiedName + "\x00" + string(typ)
	if p.seenEntry[key] {
		return
	}
	p.seenEntry[key] = true
	p.listed[sym.QualifiedName] = true
	p.entrypoints = append(p.entrypoints, models.EntrypointInfo{
		QualifiedName: sym.QualifiedName,
		Type:          typ,
		File:          p.rel(sym.Location.File),
		Line:          sym.Location.Line,
		Decorator:     decorator,
	})
	if !p.a.marked[typ] || sym.IsEntrypoint {
		return
	}
	sym.IsEntrypoint = true
	p.roots = append(p.roots, sym.QualifiedName)
	p.entryModules[p.a.resolver.ModuleName(sym.Location.File)] = true
}

// markMainBlock makes the file's entry block a call graph root.
func (p *project) markMainBlock(res *collector.Result, ep models.DetectedEntrypoint) {
	caller := collector.MainCaller(res.Module)
	key := caller + "\x00" + string(ep.Type)
	if p.seenEntry[key] {
		return
	}
	p.seenEntry[key] = true
	p.entrypoints = append(p.entrypoints, models.EntrypointInfo{
		QualifiedName: caller,
		Type:          ep.Type,
		File:          p.rel(res.File),
		Line:          ep.Location.Line,
	})
	if p.a.marked[ep.Type] {
		p.roots = append(p.roots, caller)
		p.entryModules[res.Module] = true
	}
}

// markInfra lists a deployment entrypoint and makes its resolved file an
// entrypoint module. A "module:object" target also marks the object.
func (p *project) markInfra(ep infra.Entrypoint) {
	typ := ep.Type()
	info := models.EntrypointInfo{
		QualifiedName: ep.Target,
		Type:          typ,
		File:          ep.Source,
		Line:          ep.Line,
		Decorator:     ep.Command,
	}
	if ep.File != "" {
		module := p.a.resolver.ModuleName(ep.File)
		info.QualifiedName = module
		if _, obj, ok := strings.Cut(ep.Target, ":"); ok && obj != "" {
			info.QualifiedName = module + "." + obj
			if i, found := p.index[module+"."+obj]; found && p.a.marked[typ] && !p.symbols[i].IsEntrypoint {
				p.symbols[i].IsEntrypoint = true
				p.roots = append(p.roots, p.symbols[i].QualifiedName)
			}
		}
		if p.a.marked[typ] {
			p.entryModules[module] = true
		}
	}

	key := info.QualifiedName + "\x00" + ep.Source
	if p.seenEntry[key] {
		return
	}
	p.seenEntry[key] = true
	p.entrypoints = append(p.entrypoints, info)
}

// hintFor matches a decorator against the hint table using its last one or
// two dotted segments, ignoring call arguments.
func hintFor(decorator string) (models.EntrypointType, bool) {
	last, lastTwo := decoratorTail(decorator)
	if last == "" {
		return "", false
	}
	for _, h := range decoratorHints {
		for _, pat := range h.patterns {
			if pat == last || pat == lastTwo {
				return h.typ, true
			}
		}
	}
	return "", false
}

// decoratorTail returns the last segment and the last two segments of a
// decorator's dotted name: "app.cli.command()" gives "command" and
// "cli.command".
func decoratorTail(decorator string) (string, string) {
	name := strings.TrimSpace(strings.TrimPrefix(decorator, "@"))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = name[:i]
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "", ""
	}
	parts := strings.Split(name, ".")
	last := parts[len(parts)-1]
	if len(parts) < 2 {
		return last, last
	}
	return last, parts[len(parts)-2] + "." + last
}

func lastSegment(dotted string) string {
	if i := strings.LastIndexByte(dotted, '.'); i >= 0 {
		return dotted[i+1:]
	}
	return dotted
}
