// Package testutil builds throwaway Python projects and git repositories
// for tests.
package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/panbanda/prune/pkg/parser"
)

// WriteFile writes content to a file, creating parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll(%s) error: %v", dir, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile(%s) error: %v", path, err)
	}
}

// CreateFileTree creates multiple files from a map of slash-separated
// relative path to content.
func CreateFileTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		WriteFile(t, filepath.Join(root, filepath.FromSlash(name)), content)
	}
}

// PythonProject writes files under a new temporary root and returns the
// root and the absolute paths of its Python files in lexical order.
func PythonProject(t *testing.T, files map[string]string) (string, []string) {
	t.Helper()
	root := t.TempDir()
	CreateFileTree(t, root, files)
	return root, PythonFiles(t, root)
}

// PythonFiles returns every Python file under root in lexical order.
func PythonFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && parser.IsPythonFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir(%s) error: %v", root, err)
	}
	sort.Strings(files)
	return files
}

// InitRepo initializes an empty git repository in a new temporary directory.
func InitRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if _, err := git.PlainInit(root, false); err != nil {
		t.Fatalf("PlainInit error: %v", err)
	}
	return root
}

// Commit writes a file into the repository at root and commits it with
// the given commit time.
func Commit(t *testing.T, root, name, content string, when time.Time) {
	t.Helper()
	repo, err := git.PlainOpen(root)
	if err != nil {
		t.Fatalf("PlainOpen error: %v", err)
	}
	WriteFile(t, filepath.Join(root, filepath.FromSlash(name)), content)

	w, err := repo.Worktree()
	if err != nil {
		t.Fatalf("Worktree error: %v", err)
	}
	if _, err := w.Add(name); err != nil {
		t.Fatalf("Add(%s) error: %v", name, err)
	}
	sig := &object.Signature{Name: "Test", Email: "test@example.com", When: when}
	if _, err := w.Commit("add "+name, &git.CommitOptions{Author: sig, Committer: sig}); err != nil {
		t.Fatalf("Commit error: %v", err)
	}
}
