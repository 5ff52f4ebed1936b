// Package scanner finds the Python files a run analyzes.
package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
	"github.com/pelletier/go-toml"

	"github.com/panbanda/prune/pkg/config"
	"github.com/panbanda/prune/pkg/parser"
)

// Scanner finds Python source files under a project root.
type Scanner struct {
	config         *config.Config
	includeIgnored bool
	include        *config.GlobSet
	exclude        *config.GlobSet

	// base is the directory ignore-file patterns are relative to: the git
	// root when the project lives in a repository, else the project root.
	base     string
	matchers []gitignore.Matcher
	sources  []string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithIncludeIgnored disables .gitignore, pyproject and default directory
// exclusion. The analysis include/exclude globs still apply.
func WithIncludeIgnored(include bool) Option {
	return func(s *Scanner) {
		s.includeIgnored = include
	}
}

// NewScanner creates a new file scanner. The configuration is expected to
// have been validated; malformed globs are reported here as well.
func NewScanner(cfg *config.Config, opts ...Option) (*Scanner, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	s := &Scanner{config: cfg}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.include, err = config.CompileGlobs(cfg.Analysis.Include); err != nil {
		return nil, fmt.Errorf("analysis.include: %w", err)
	}
	if s.exclude, err = config.CompileGlobs(cfg.Analysis.Exclude); err != nil {
		return nil, fmt.Errorf("analysis.exclude: %w", err)
	}
	return s, nil
}

// Sources lists the ignore-file sources loaded by the last ScanDir.
func (s *Scanner) Sources() []string {
	return s.sources
}

// findGitRoot finds the root of the git repository by looking for .git directory.
// Returns empty string if not in a git repository.
func findGitRoot(start string) string {
	dir := start
	for {
		gitDir := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitDir); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns builds the gitignore-style matcher from the default
// directory names, every .gitignore in the repository, and the ruff and
// mypy excludes in pyproject.toml.
func (s *Scanner) loadExcludePatterns(root string) {
	s.matchers = nil
	s.sources = nil
	s.base = root
	if s.includeIgnored {
		return
	}

	gitRoot := findGitRoot(root)
	if gitRoot != "" {
		s.base = gitRoot
	}
	domain := splitPath(relOrEmpty(s.base, root))

	var patterns []gitignore.Pattern
	for _, dir := range s.config.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(dir, domain))
	}
	s.sources = append(s.sources, "defaults")

	if s.config.Exclude.Gitignore {
		// ReadPatterns recursively reads all .gitignore files in the tree.
		if gitPatterns, err := gitignore.ReadPatterns(osfs.New(s.base), nil); err == nil && len(gitPatterns) > 0 {
			patterns = append(patterns, gitPatterns...)
			s.sources = append(s.sources, filepath.Join(s.base, ".gitignore"))
		}
	}

	if s.config.Exclude.Pyproject {
		pyproject := filepath.Join(root, "pyproject.toml")
		if excludes := PyprojectExcludes(pyproject); len(excludes) > 0 {
			for _, p := range excludes {
				patterns = append(patterns, gitignore.ParsePattern(p, domain))
			}
			s.sources = append(s.sources, pyproject)
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

// PyprojectExcludes returns the [tool.ruff] and [tool.mypy] exclude
// entries of a pyproject.toml. A missing or unparsable file yields nil.
func PyprojectExcludes(path string) []string {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil
	}
	var patterns []string
	for _, key := range []string{"tool.ruff.exclude", "tool.ruff.extend-exclude", "tool.mypy.exclude"} {
		switch v := tree.Get(key).(type) {
		case string:
			patterns = append(patterns, v)
		case []interface{}:
			for _, item := range v {
				if str, ok := item.(string); ok {
					patterns = append(patterns, str)
				}
			}
		}
	}
	return patterns
}

// isExcluded checks if a path, relative to the ignore base, matches any
// exclusion pattern.
func (s *Scanner) isExcluded(parts []string, isDir bool) bool {
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// ScanDir recursively scans a directory for Python files and returns their
// absolute paths in lexical order.
// Validates that all paths stay within the root directory to prevent traversal attacks.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 1024)

	// Resolve root to absolute path for security validation
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	// Resolve any symlinks in the root path
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(absRoot)

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == absRoot {
			return nil
		}

		// Security: validate path stays within root (prevent symlink traversal)
		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				return nil
			}
		}

		parts := splitPath(relOrEmpty(s.base, path))
		if d.IsDir() {
			if s.isExcluded(parts, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !parser.IsPythonFile(path) || s.isExcluded(parts, false) {
			return nil
		}

		rel := filepath.ToSlash(relOrEmpty(absRoot, path))
		if !s.include.Match(rel) || s.exclude.Match(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})

	return files, walkErr
}

// isWithinRoot checks if a path is contained within the root directory.
// Returns false if the path escapes via symlinks or relative paths.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)

	// Add separator to prevent "/root2" matching "/root"
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

func relOrEmpty(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil || rel == "." {
		return ""
	}
	return rel
}

func splitPath(rel string) []string {
	if rel == "" {
		return nil
	}
	return strings.Split(rel, string(filepath.Separator))
}

// FilterBySize filters files that exceed the configured maximum size.
// Returns the filtered list and the count of files that were skipped.
// If maxSize is 0, returns the original list unchanged.
func FilterBySize(files []string, maxSize int64) ([]string, int) {
	if maxSize <= 0 {
		return files, 0
	}

	filtered := make([]string, 0, len(files))
	skipped := 0

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			skipped++
			continue
		}
		if info.Size() > maxSize {
			skipped++
			continue
		}
		filtered = append(filtered, f)
	}

	return filtered, skipped
}
