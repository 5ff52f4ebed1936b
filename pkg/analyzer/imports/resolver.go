// Package imports resolves Python module names to files and builds the
// module import graph.
package imports

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Resolver maps dotted module names to files under a set of source roots.
// Results are memoized; a Resolver is safe for concurrent use.
type Resolver struct {
	root    string
	srcDirs []string

	mu     sync.Mutex
	cache  map[string]string
	probes int
}

// NewResolver creates a resolver for root. Relative source directories are
// taken relative to root; an empty list means root itself.
func NewResolver(root string, srcDirs []string) *Resolver {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	if len(srcDirs) == 0 {
		srcDirs = []string{"."}
	}
	dirs := make([]string, 0, len(srcDirs))
	for _, d := range srcDirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(absRoot, d)
		}
		dirs = append(dirs, filepath.Clean(d))
	}
	return &Resolver{
		root:    absRoot,
		srcDirs: dirs,
		cache:   make(map[string]string),
	}
}

// Root returns the absolute project root.
func (r *Resolver) Root() string {
	return r.root
}

// IsExternal reports whether module belongs to the standard library or a
// well-known third-party package.
func (r *Resolver) IsExternal(module string) bool {
	top, _, _ := strings.Cut(module, ".")
	if _, ok := stdlibModules[top]; ok {
		return true
	}
	_, ok := commonExternal[top]
	return ok
}

// Resolve returns the file implementing module, or false when the module is
// external or not found.
func (r *Resolver) Resolve(module string) (string, bool) {
	if module == "" || r.IsExternal(module) {
		return "", false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if path, ok := r.cache[module]; ok {
		return path, path != ""
	}
	path := r.find(module)
	r.cache[module] = path
	return path, path != ""
}

func (r *Resolver) find(module string) string {
	parts := strings.Split(module, ".")
	for _, dir := range r.srcDirs {
		candidates := []string{filepath.Join(append([]string{dir}, parts...)...) + string(filepath.Separator) + "__init__.py"}
		if len(parts) > 1 {
			candidates = append(candidates,
				filepath.Join(append([]string{dir}, parts[:len(parts)-1]...)...)+string(filepath.Separator)+parts[len(parts)-1]+".py")
		}
		candidates = append(candidates, filepath.Join(dir, parts[0]+".py"))
		if len(parts) == 1 {
			candidates = append(candidates, filepath.Join(dir, parts[0], "__init__.py"))
		}
		for _, c := range candidates {
			if r.exists(c) {
				return c
			}
		}
	}
	return ""
}

func (r *Resolver) exists(path string) bool {
	r.probes++
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ModuleName returns the dotted module name of path relative to the
// deepest source root containing it, or the project root when none does.
func (r *Resolver) ModuleName(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	dirs := append([]string(nil), r.srcDirs...)
	sort.SliceStable(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	base := r.root
	for _, d := range dirs {
		if rel, err := filepath.Rel(d, abs); err == nil && !strings.HasPrefix(rel, "..") {
			base = d
			break
		}
	}
	rel, err := filepath.Rel(base, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Base(abs)
	}
	if name := PathToModule(rel); name != "" {
		return name
	}
	return filepath.Base(filepath.Dir(abs))
}

// PathToModule converts a slash or OS separated relative path to a dotted
// module name, dropping the extension and a trailing __init__.
func PathToModule(rel string) string {
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	parts := strings.Split(rel, "/")
	if len(parts) > 0 && parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "" && p != "." {
			out = append(out, p)
		}
	}
	return strings.Join(out, ".")
}

// IsPackageFile reports whether path is a package __init__ file.
func IsPackageFile(path string) bool {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) == "__init__"
}
