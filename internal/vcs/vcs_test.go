package vcs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/panbanda/prune/internal/testutil"
)

func TestNewGitOpener(t *testing.T) {
	opener := NewGitOpener()
	if opener == nil {
		t.Fatal("NewGitOpener() returned nil")
	}
}

func TestGitOpener_PlainOpen(t *testing.T) {
	repoPath := testutil.InitRepo(t)

	repo, err := NewGitOpener().PlainOpen(repoPath)
	if err != nil {
		t.Fatalf("PlainOpen() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(repoPath)
	if repo.RepoPath() != want {
		t.Errorf("RepoPath() = %q, want %q", repo.RepoPath(), want)
	}
}

func TestGitOpener_PlainOpen_NonExistent(t *testing.T) {
	if _, err := NewGitOpener().PlainOpen("/nonexistent/path"); err == nil {
		t.Error("PlainOpen() should return error for non-existent path")
	}
}

func TestGitOpener_PlainOpenWithDetect(t *testing.T) {
	repoPath := testutil.InitRepo(t)

	subDir := filepath.Join(repoPath, "subdir")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	repo, err := NewGitOpener().PlainOpenWithDetect(subDir)
	if err != nil {
		t.Fatalf("PlainOpenWithDetect() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(repoPath)
	if repo.RepoPath() != want {
		t.Errorf("RepoPath() = %q, want the repository root %q", repo.RepoPath(), want)
	}
}

func TestGitRepository_LogFileName(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repoPath := testutil.InitRepo(t)
	testutil.Commit(t, repoPath, "a.py", "x = 1\n", old)
	testutil.Commit(t, repoPath, "b.py", "y = 1\n", recent)

	repo, err := NewGitOpener().PlainOpen(repoPath)
	if err != nil {
		t.Fatal(err)
	}
	iter, err := repo.Log(&LogOptions{FileName: "a.py"})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	defer iter.Close()

	var count int
	err = iter.ForEach(func(c Commit) error {
		count++
		if !c.When().Equal(old) {
			t.Errorf("When() = %v, want %v", c.When(), old)
		}
		if c.Message() != "add a.py" {
			t.Errorf("Message() = %q", c.Message())
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("a.py touched by %d commits, want 1", count)
	}
}

func TestLastModified_PrefersCommitDate(t *testing.T) {
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	repoPath := testutil.InitRepo(t)
	testutil.Commit(t, repoPath, "pkg/a.py", "x = 1\n", old)

	untracked := filepath.Join(repoPath, "pkg", "new.py")
	if err := os.WriteFile(untracked, []byte("z = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	tracked := filepath.Join(repoPath, "pkg", "a.py")
	missing := filepath.Join(repoPath, "gone.py")

	ages := LastModified(context.Background(), repoPath, []string{tracked, untracked, missing})

	if got := ages[tracked]; got.Source != SourceGit || !got.When.Equal(old) {
		t.Errorf("tracked file age = %+v, want git %v", got, old)
	}
	if got := ages[untracked]; got.Source != SourceMtime {
		t.Errorf("untracked file should fall back to mtime, got %+v", got)
	}
	if _, ok := ages[missing]; ok {
		t.Error("a missing file should have no age")
	}
}

func TestLastModified_NoRepository(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.py")
	if err := os.WriteFile(file, []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2019, 3, 4, 0, 0, 0, 0, time.UTC)
	if err := os.Chtimes(file, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	ages := LastModified(context.Background(), dir, []string{file})
	got := ages[file]
	if got.Source != SourceMtime || !got.When.Equal(mtime) {
		t.Errorf("age = %+v, want mtime %v", got, mtime)
	}
}

func TestLastModified_GitDisabled(t *testing.T) {
	repoPath := testutil.InitRepo(t)
	testutil.Commit(t, repoPath, "a.py", "x = 1\n", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	file := filepath.Join(repoPath, "a.py")

	ages := LastModified(context.Background(), repoPath, []string{file}, WithPreferGit(false))
	if ages[file].Source != SourceMtime {
		t.Errorf("with git disabled the source should be mtime, got %s", ages[file].Source)
	}
}

type failingOpener struct{}

func (failingOpener) PlainOpen(string) (Repository, error) { return nil, errors.New("boom") }
func (failingOpener) PlainOpenWithDetect(string) (Repository, error) {
	return nil, errors.New("boom")
}

func TestLastModified_OpenerFailureFallsBack(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.py")
	if err := os.WriteFile(file, []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ages := LastModified(context.Background(), dir, []string{file}, WithOpener(failingOpener{}))
	if ages[file].Source != SourceMtime {
		t.Errorf("opener failure should fall back to mtime, got %+v", ages[file])
	}
}

func TestLastModified_CancelledContext(t *testing.T) {
	repoPath := testutil.InitRepo(t)
	testutil.Commit(t, repoPath, "a.py", "x = 1\n", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	file := filepath.Join(repoPath, "a.py")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ages := LastModified(ctx, repoPath, []string{file})
	if ages[file].Source != SourceMtime {
		t.Errorf("a cancelled lookup should fall back to mtime, got %+v", ages[file])
	}
}

func TestLastModified_NewestCommitWins(t *testing.T) {
	first := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	second := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	third := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	repoPath := testutil.InitRepo(t)
	testutil.Commit(t, repoPath, "a.py", "x = 1\n", first)
	testutil.Commit(t, repoPath, "b.py", "y = 1\n", second)
	testutil.Commit(t, repoPath, "a.py", "x = 2\n", third)

	a := filepath.Join(repoPath, "a.py")
	b := filepath.Join(repoPath, "b.py")
	ages := LastModified(context.Background(), repoPath, []string{a, b})

	if got := ages[a]; got.Source != SourceGit || !got.When.Equal(third) {
		t.Errorf("a.py age = %+v, want git %v", got, third)
	}
	if got := ages[b]; got.Source != SourceGit || !got.When.Equal(second) {
		t.Errorf("b.py age = %+v, want git %v", got, second)
	}
}

// endlessRepo serves a history that never touches the requested files
// and never ends, each commit taking a little time to inspect.
type endlessRepo struct {
	path string
}

func (r endlessRepo) Head() (Reference, error)                   { return endlessRef{}, nil }
func (r endlessRepo) Log(*LogOptions) (CommitIterator, error)    { return endlessIter{}, nil }
func (r endlessRepo) CommitObject(plumbing.Hash) (Commit, error) { return endlessCommit{}, nil }
func (r endlessRepo) RepoPath() string                           { return r.path }

type endlessRef struct{}

func (endlessRef) Hash() plumbing.Hash { return plumbing.ZeroHash }

type endlessIter struct{}

func (endlessIter) ForEach(fn func(Commit) error) error {
	for {
		if err := fn(endlessCommit{}); err != nil {
			return err
		}
	}
}

func (endlessIter) Close() {}

type endlessCommit struct{}

func (endlessCommit) Hash() plumbing.Hash { return plumbing.ZeroHash }
func (endlessCommit) When() time.Time     { return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC) }
func (endlessCommit) Message() string     { return "unrelated" }
func (endlessCommit) ChangedFiles(context.Context) ([]string, error) {
	time.Sleep(time.Millisecond)
	return []string{"other.py"}, nil
}

type endlessOpener struct {
	path string
}

func (o endlessOpener) PlainOpen(string) (Repository, error) { return endlessRepo{o.path}, nil }
func (o endlessOpener) PlainOpenWithDetect(string) (Repository, error) {
	return endlessRepo{o.path}, nil
}

func TestLastModified_TimeoutBoundsHistoryWalk(t *testing.T) {
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "b.py")
	if err := os.WriteFile(file, []byte("x = 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	ages := LastModified(context.Background(), dir, []string{file},
		WithOpener(endlessOpener{path: dir}), WithTimeout(50*time.Millisecond))
	elapsed := time.Since(start)

	if elapsed > time.Second {
		t.Errorf("lookup took %v with a 50ms timeout", elapsed)
	}
	if ages[file].Source != SourceMtime {
		t.Errorf("an unresolved file should fall back to mtime, got %+v", ages[file])
	}
}
