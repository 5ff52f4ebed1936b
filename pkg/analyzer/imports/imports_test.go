package imports

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/prune/pkg/models"
)

func writeFiles(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("\n"), 0o644))
	}
}

func TestResolver_IsExternal(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)
	tests := []struct {
		module string
		want   bool
	}{
		{"os", true},
		{"os.path", true},
		{"collections.abc", true},
		{"flask", true},
		{"sqlalchemy.orm", true},
		{"myapp", false},
		{"myapp.models", false},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			assert.Equal(t, tt.want, r.IsExternal(tt.module))
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"app/__init__.py",
		"app/models.py",
		"app/api/__init__.py",
		"tools.py",
		"src/lib/core.py",
	)
	r := NewResolver(root, []string{".", "src"})

	tests := []struct {
		module string
		want   string
	}{
		{"app", "app/__init__.py"},
		{"app.models", "app/models.py"},
		{"app.api", "app/api/__init__.py"},
		{"tools", "tools.py"},
		{"lib.core", "src/lib/core.py"},
	}
	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			got, ok := r.Resolve(tt.module)
			require.True(t, ok)
			assert.Equal(t, filepath.Join(r.Root(), filepath.FromSlash(tt.want)), got)
		})
	}

	_, ok := r.Resolve("missing.module")
	assert.False(t, ok)
	_, ok = r.Resolve("os.path")
	assert.False(t, ok, "external modules never resolve")
}

func TestResolver_ResolveIsCached(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "pkg/mod.py")
	r := NewResolver(root, nil)

	first, ok := r.Resolve("pkg.mod")
	require.True(t, ok)
	probes := r.probes

	second, ok := r.Resolve("pkg.mod")
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, probes, r.probes, "second resolve must not touch the filesystem")

	_, _ = r.Resolve("nope")
	probes = r.probes
	_, _ = r.Resolve("nope")
	assert.Equal(t, probes, r.probes, "misses are cached too")
}

func TestResolver_ModuleName(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root, []string{".", "src"})
	tests := []struct {
		path string
		want string
	}{
		{"app/models.py", "app.models"},
		{"app/__init__.py", "app"},
		{"main.py", "main"},
		{"src/lib/core.py", "lib.core"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, r.ModuleName(filepath.Join(root, filepath.FromSlash(tt.path))))
		})
	}
}

func TestBuild_Edges(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"app/__init__.py",
		"app/main.py",
		"app/models.py",
		"app/services/__init__.py",
		"app/services/billing.py",
		"other/models.py",
	}
	writeFiles(t, root, files...)
	r := NewResolver(root, nil)
	p := func(f string) string { return filepath.Join(root, filepath.FromSlash(f)) }

	g := Build(r, []File{
		{Path: p("app/__init__.py"), Imports: []models.ImportRecord{
			{Module: "", Name: "main", IsRelative: true, Level: 1},
		}},
		{Path: p("app/main.py"), Imports: []models.ImportRecord{
			{Module: "os"},
			{Module: "app.models", Name: "User"},
			{Module: "app.models", Name: "Order"},
			{Module: "services.billing", Name: "charge", IsRelative: true, Level: 1},
		}},
		{Path: p("app/models.py")},
		{Path: p("app/services/__init__.py")},
		{Path: p("app/services/billing.py"), Imports: []models.ImportRecord{
			{Module: "models", Name: "User", IsRelative: true, Level: 2},
		}},
		{Path: p("other/models.py")},
	})

	assert.Equal(t, []string{"app.main"}, g.Imports("app"))
	assert.Equal(t, []string{"app.models", "app.services.billing"}, g.Imports("app.main"))
	assert.Equal(t, []string{"app.models"}, g.Imports("app.services.billing"))
	assert.ElementsMatch(t, []string{"app.main", "app.services.billing"}, g.ImportedBy("app.models"))
	assert.True(t, g.Has("other.models"), "same-stem files stay distinct")
	assert.Empty(t, g.Imports("other.models"))
}

func TestGraph_CyclicOrphans(t *testing.T) {
	g := NewGraph()
	for _, m := range []string{"a", "b", "c", "d"} {
		g.AddModule(models.ModuleInfo{Name: m, Path: m + ".py"})
	}
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")
	g.AddEdge("c", "a")

	reachable := g.Reachable([]string{"a"})
	assert.True(t, reachable["a"])
	assert.True(t, reachable["b"])
	assert.True(t, reachable["c"])
	assert.False(t, reachable["d"])
	assert.Equal(t, []string{"d"}, g.Orphaned([]string{"a"}))

	assert.Equal(t, [][]string{{"a", "b", "c"}}, g.Cycles())
	assert.Equal(t, []string{"b", "a"}, g.ImportChain("c"))
}

func TestFromTree(t *testing.T) {
	g := NewGraph()
	for _, m := range []string{"a", "b", "c"} {
		g.AddModule(models.ModuleInfo{Name: m, Path: m + ".py"})
	}
	g.AddModule(models.ModuleInfo{Name: "requests", IsExternal: true})
	g.AddEdge("a", "b")
	g.AddEdge("b", "c")

	rebuilt := FromTree(g.Tree([]string{"a"}))
	assert.Equal(t, []string{"a", "b", "c"}, rebuilt.InternalModules())
	assert.Equal(t, []string{"b", "a"}, rebuilt.ImportChain("c"))
	assert.Equal(t, g.Orphaned([]string{"a"}), rebuilt.Orphaned([]string{"a"}))
}

func TestGraph_OrphanPartition(t *testing.T) {
	g := NewGraph()
	names := []string{"m0", "m1", "m2", "m3", "m4", "m5", "m6", "m7"}
	for _, n := range names {
		g.AddModule(models.ModuleInfo{Name: n})
	}
	g.AddModule(models.ModuleInfo{Name: "ext", IsExternal: true})
	edges := [][2]string{{"m0", "m1"}, {"m1", "m2"}, {"m2", "m0"}, {"m3", "m4"}, {"m5", "m5"}, {"m6", "m1"}, {"m1", "ext"}}
	for _, e := range edges {
		g.AddEdge(e[0], e[1])
	}

	for _, entry := range [][]string{nil, {"m0"}, {"m3"}, {"m6", "m7"}, names} {
		reachable := g.Reachable(entry)
		orphaned := g.Orphaned(entry)

		seen := map[string]bool{}
		for _, o := range orphaned {
			assert.False(t, reachable[o], "orphan %s must not be reachable", o)
			seen[o] = true
		}
		for _, n := range g.InternalModules() {
			if !seen[n] {
				assert.True(t, reachable[n], "%s is neither orphaned nor reachable", n)
			}
		}
	}
}

func TestGraph_AddEdgeDedup(t *testing.T) {
	g := NewGraph()
	g.AddEdge("a", "b")
	g.AddEdge("a", "b")
	g.AddEdge("a", "a")
	assert.Equal(t, []string{"b"}, g.Imports("a"))
	assert.Equal(t, []string{"a"}, g.ImportedBy("b"))
}

func TestGraph_Tree(t *testing.T) {
	g := NewGraph()
	g.AddModule(models.ModuleInfo{Name: "main", Path: "main.py"})
	g.AddModule(models.ModuleInfo{Name: "util", Path: "util.py"})
	g.AddModule(models.ModuleInfo{Name: "dead", Path: "dead.py"})
	g.AddEdge("main", "util")

	tree := g.Tree([]string{"main"})
	assert.Equal(t, []string{"dead"}, tree.OrphanedModules)
	assert.True(t, tree.Modules["main"].IsEntrypoint)
	assert.Equal(t, []string{"util"}, tree.Modules["main"].Imports)
	assert.Equal(t, []string{"main"}, tree.Modules["util"].ImportedBy)
	assert.Equal(t, []string{}, tree.Modules["dead"].Imports)
	assert.Empty(t, tree.ImportCycles)
}

func TestRelativeBase(t *testing.T) {
	tests := []struct {
		module string
		isPkg  bool
		level  int
		want   string
		ok     bool
	}{
		{"app.main", false, 1, "app", true},
		{"app.sub.mod", false, 2, "app", true},
		{"app", true, 1, "app", true},
		{"app.sub", true, 2, "app", true},
		{"main", false, 1, "", true},
		{"main", false, 3, "", false},
	}
	for _, tt := range tests {
		got, ok := relativeBase(tt.module, tt.isPkg, tt.level)
		assert.Equal(t, tt.ok, ok, tt.module)
		assert.Equal(t, tt.want, got, tt.module)
	}
}
