// Package reachability computes which symbols are transitively called from
// entrypoints and which modules are imported from entrypoint files.
package reachability

import (
	"sort"
	"strings"

	"github.com/panbanda/prune/pkg/analyzer/imports"
	"github.com/panbanda/prune/pkg/models"
)

// CallGraph is a caller to callee graph over qualified names.
type CallGraph struct {
	names []string
	ids   map[string]uint32
	edges map[uint32][]uint32
}

// BuildCallGraph links every usage made inside a function to a known
// symbol. A usage name resolves to the first symbol, in the given order,
// whose qualified name ends with "."+name; unrelated symbols sharing a short
// name are therefore indistinguishable. Callers that are not symbols, such
// as a module's script entry block, become graph nodes of their own so they
// can serve as roots.
func BuildCallGraph(symbols []models.Symbol, usages []models.Usage) *CallGraph {
	g := &CallGraph{
		ids:   make(map[string]uint32, len(symbols)),
		edges: make(map[uint32][]uint32),
	}
	bySuffix := make(map[string]uint32, len(symbols))
	for _, s := range symbols {
		if _, ok := g.ids[s.QualifiedName]; ok {
			continue
		}
		id := uint32(len(g.names))
		g.ids[s.QualifiedName] = id
		g.names = append(g.names, s.QualifiedName)
		if i := strings.LastIndexByte(s.QualifiedName, '.'); i >= 0 {
			if _, taken := bySuffix[s.QualifiedName[i+1:]]; !taken {
				bySuffix[s.QualifiedName[i+1:]] = id
			}
		}
	}

	for _, u := range usages {
		if u.Caller == "" {
			continue
		}
		to, ok := bySuffix[u.SymbolName]
		if !ok {
			continue
		}
		g.addEdge(g.node(u.Caller), to)
	}
	return g
}

func (g *CallGraph) node(name string) uint32 {
	if id, ok := g.ids[name]; ok {
		return id
	}
	id := uint32(len(g.names))
	g.ids[name] = id
	g.names = append(g.names, name)
	return id
}

func (g *CallGraph) addEdge(from, to uint32) {
	for _, existing := range g.edges[from] {
		if existing == to {
			return
		}
	}
	g.edges[from] = append(g.edges[from], to)
}

// Callees returns the qualified names called from caller.
func (g *CallGraph) Callees(caller string) []string {
	id, ok := g.ids[caller]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.edges[id]))
	for _, to := range g.edges[id] {
		out = append(out, g.names[to])
	}
	return out
}

// EdgeCount returns the number of distinct caller to callee edges.
func (g *CallGraph) EdgeCount() int {
	n := 0
	for _, e := range g.edges {
		n += len(e)
	}
	return n
}

// Reachable returns the entrypoints and every symbol transitively called
// from them. Unknown entrypoint names are ignored.
func (g *CallGraph) Reachable(entrypoints []string) *Set {
	visited := NewBitSet()
	queue := make([]uint32, 0, len(entrypoints))
	for _, e := range entrypoints {
		if id, ok := g.ids[e]; ok && visited.TrySet(id) {
			queue = append(queue, id)
		}
	}

	// Index-based queue avoids reslicing.
	for head := 0; head < len(queue); head++ {
		for _, next := range g.edges[queue[head]] {
			if visited.TrySet(next) {
				queue = append(queue, next)
			}
		}
	}
	return &Set{ids: g.ids, bits: visited}
}

// Set is a reachable set of qualified names.
type Set struct {
	ids  map[string]uint32
	bits *BitSet
}

// Contains reports whether qname is reachable.
func (s *Set) Contains(qname string) bool {
	id, ok := s.ids[qname]
	return ok && s.bits.IsSet(id)
}

// Len returns the number of reachable symbols.
func (s *Set) Len() int {
	return int(s.bits.CountSet())
}

// ModuleReachability is the result of walking the import graph.
type ModuleReachability struct {
	reachable map[string]bool
	// Orphaned are the internal modules no entrypoint module reaches, sorted.
	Orphaned []string
}

// IsReachable reports whether module was reached.
func (m *ModuleReachability) IsReachable(module string) bool {
	return m.reachable[module]
}

// Modules walks the import graph from the entrypoint modules. Loading a
// module also loads every ancestor package, so reaching a.b.c reaches a.b
// and a when they are known modules.
func Modules(g *imports.Graph, entrypoints []string) *ModuleReachability {
	names := g.Modules()
	ids := make(map[string]uint32, len(names))
	for i, n := range names {
		ids[n] = uint32(i)
	}

	visited := NewBitSet()
	var queue []uint32
	enqueue := func(name string) {
		if id, ok := ids[name]; ok && visited.TrySet(id) {
			queue = append(queue, id)
		}
	}
	for _, e := range entrypoints {
		enqueue(e)
	}
	for head := 0; head < len(queue); head++ {
		current := names[queue[head]]
		for _, next := range g.Imports(current) {
			enqueue(next)
		}
		for parent := parentModule(current); parent != ""; parent = parentModule(parent) {
			enqueue(parent)
		}
	}

	res := &ModuleReachability{reachable: make(map[string]bool, len(queue))}
	for _, id := range queue {
		res.reachable[names[id]] = true
	}
	for _, n := range g.InternalModules() {
		if !res.reachable[n] {
			res.Orphaned = append(res.Orphaned, n)
		}
	}
	sort.Strings(res.Orphaned)
	return res
}

func parentModule(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return ""
}
