package imports

import (
	"strings"

	"github.com/panbanda/prune/pkg/models"
)

// File is one analyzed file and the imports collected from it.
type File struct {
	Path    string
	Imports []models.ImportRecord
}

// Build creates the module graph for files. Every file becomes a node keyed
// by its full dotted module name; import edges are resolved only for files
// that carry import records.
func Build(r *Resolver, files []File) *Graph {
	g := NewGraph()
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = r.ModuleName(f.Path)
		g.AddModule(models.ModuleInfo{
			Name:      names[i],
			Path:      f.Path,
			IsPackage: IsPackageFile(f.Path),
		})
	}

	for i, f := range files {
		from := names[i]
		isPkg := IsPackageFile(f.Path)
		for _, rec := range f.Imports {
			if to, ok := resolveEdge(r, g, from, isPkg, rec); ok {
				g.AddEdge(from, to)
			}
		}
	}
	return g
}

// resolveEdge finds the internal module an import record refers to.
func resolveEdge(r *Resolver, g *Graph, from string, isPkg bool, rec models.ImportRecord) (string, bool) {
	var target string
	if rec.IsRelative || rec.Level > 0 {
		base, ok := relativeBase(from, isPkg, rec.Level)
		if !ok {
			return "", false
		}
		target = joinModule(base, rec.Module)
	} else {
		if r.IsExternal(rec.Module) {
			return "", false
		}
		target = rec.Module
	}

	var candidates []string
	if rec.Name != "" && rec.Name != "*" {
		candidates = append(candidates, joinModule(target, rec.Name))
	}
	for parts := strings.Split(target, "."); len(parts) > 0 && parts[0] != ""; parts = parts[:len(parts)-1] {
		candidates = append(candidates, strings.Join(parts, "."))
	}

	for _, c := range candidates {
		if g.Has(c) {
			return c, true
		}
	}
	// Fall back to the filesystem for modules keyed under another root.
	for _, c := range candidates {
		if path, ok := r.Resolve(c); ok {
			if name := r.ModuleName(path); g.Has(name) {
				return name, true
			}
		}
	}
	return "", false
}

// relativeBase returns the package a relative import of the given level is
// anchored at. A package's __init__ is its own level-1 anchor.
func relativeBase(module string, isPkg bool, level int) (string, bool) {
	parts := strings.Split(module, ".")
	keep := len(parts) - level
	if isPkg {
		keep++
	}
	if keep < 0 || keep > len(parts) {
		return "", false
	}
	return strings.Join(parts[:keep], "."), true
}

func joinModule(base, name string) string {
	switch {
	case base == "":
		return name
	case name == "":
		return base
	default:
		return base + "." + name
	}
}
