package imports

import (
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/panbanda/prune/pkg/models"
)

// Graph is a directed module import graph. Edges are deduplicated and kept
// in insertion order.
type Graph struct {
	modules map[string]*models.ModuleInfo
	order   []string
	forward map[string][]string
	reverse map[string][]string
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		modules: make(map[string]*models.ModuleInfo),
		forward: make(map[string][]string),
		reverse: make(map[string][]string),
	}
}

// AddModule registers a module node. Re-adding a name keeps the first entry.
func (g *Graph) AddModule(info models.ModuleInfo) {
	if _, ok := g.modules[info.Name]; ok {
		return
	}
	g.modules[info.Name] = &info
	g.order = append(g.order, info.Name)
}

// AddEdge records that from imports to. Self edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	if from == to {
		return
	}
	for _, existing := range g.forward[from] {
		if existing == to {
			return
		}
	}
	g.forward[from] = append(g.forward[from], to)
	g.reverse[to] = append(g.reverse[to], from)
}

// Module returns the node for name.
func (g *Graph) Module(name string) (*models.ModuleInfo, bool) {
	m, ok := g.modules[name]
	return m, ok
}

// Has reports whether name is a known module.
func (g *Graph) Has(name string) bool {
	_, ok := g.modules[name]
	return ok
}

// Modules returns all module names in insertion order.
func (g *Graph) Modules() []string {
	return append([]string(nil), g.order...)
}

// InternalModules returns the names of non-external modules in insertion order.
func (g *Graph) InternalModules() []string {
	var out []string
	for _, name := range g.order {
		if !g.modules[name].IsExternal {
			out = append(out, name)
		}
	}
	return out
}

// Imports returns the modules imported by name.
func (g *Graph) Imports(name string) []string {
	return g.forward[name]
}

// ImportedBy returns the modules importing name.
func (g *Graph) ImportedBy(name string) []string {
	return g.reverse[name]
}

// Reachable returns every module reachable from the entrypoints through
// forward edges, entrypoints included.
func (g *Graph) Reachable(entrypoints []string) map[string]bool {
	return bfs(entrypoints, g.forward)
}

// Orphaned returns the internal modules not reachable from any entrypoint,
// sorted by name.
func (g *Graph) Orphaned(entrypoints []string) []string {
	reachable := g.Reachable(entrypoints)
	var out []string
	for _, name := range g.InternalModules() {
		if !reachable[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ImportChain returns every module that transitively imports module,
// in breadth-first order and excluding module itself.
func (g *Graph) ImportChain(module string) []string {
	var out []string
	visited := map[string]bool{module: true}
	queue := []string{module}
	for head := 0; head < len(queue); head++ {
		for _, next := range g.reverse[queue[head]] {
			if visited[next] {
				continue
			}
			visited[next] = true
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	return out
}

func bfs(starts []string, edges map[string][]string) map[string]bool {
	visited := make(map[string]bool, len(starts))
	queue := make([]string, 0, len(starts))
	for _, s := range starts {
		if !visited[s] {
			visited[s] = true
			queue = append(queue, s)
		}
	}
	for head := 0; head < len(queue); head++ {
		for _, next := range edges[queue[head]] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return visited
}

// Cycles returns the strongly connected components with more than one
// module. Names within a cycle and the cycles themselves are sorted.
func (g *Graph) Cycles() [][]string {
	dg := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(g.order))
	names := make(map[int64]string, len(g.order))
	for i, name := range g.order {
		id := int64(i)
		ids[name] = id
		names[id] = name
		dg.AddNode(simple.Node(id))
	}
	for _, from := range g.order {
		for _, to := range g.forward[from] {
			toID, ok := ids[to]
			if !ok {
				continue
			}
			dg.SetEdge(simple.Edge{F: simple.Node(ids[from]), T: simple.Node(toID)})
		}
	}

	var cycles [][]string
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) < 2 {
			continue
		}
		members := make([]string, 0, len(scc))
		for _, n := range scc {
			members = append(members, names[n.ID()])
		}
		sort.Strings(members)
		cycles = append(cycles, members)
	}
	sort.Slice(cycles, func(i, j int) bool {
		return strings.Join(cycles[i], ",") < strings.Join(cycles[j], ",")
	})
	return cycles
}

// Tree serializes the graph. Entrypoint modules are flagged and used for
// the orphan list.
func (g *Graph) Tree(entrypoints []string) models.DependencyTree {
	isEntry := make(map[string]bool, len(entrypoints))
	for _, e := range entrypoints {
		isEntry[e] = true
	}
	tree := models.DependencyTree{
		Modules:         make(map[string]models.ModuleNode, len(g.modules)),
		OrphanedModules: g.Orphaned(entrypoints),
		ImportCycles:    g.Cycles(),
	}
	for _, name := range g.order {
		m := g.modules[name]
		tree.Modules[name] = models.ModuleNode{
			Path:         m.Path,
			Imports:      nonNil(g.forward[name]),
			ImportedBy:   nonNil(g.reverse[name]),
			IsEntrypoint: isEntry[name],
		}
	}
	if tree.OrphanedModules == nil {
		tree.OrphanedModules = []string{}
	}
	return tree
}

// FromTree rebuilds a graph from its serialized form. Modules are added in
// name order.
func FromTree(tree models.DependencyTree) *Graph {
	names := make([]string, 0, len(tree.Modules))
	for name := range tree.Modules {
		names = append(names, name)
	}
	sort.Strings(names)

	g := NewGraph()
	for _, name := range names {
		node := tree.Modules[name]
		g.AddModule(models.ModuleInfo{Name: name, Path: node.Path, IsExternal: node.Path == ""})
	}
	for _, name := range names {
		for _, to := range tree.Modules[name].Imports {
			g.AddEdge(name, to)
		}
	}
	return g
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string(nil), s...)
}
