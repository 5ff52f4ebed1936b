package vcs

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultTimeout bounds the whole version-control lookup.
const DefaultTimeout = 5 * time.Second

// errResolved stops the history walk once every file has a commit time.
var errResolved = errors.New("all files resolved")

// AgeSource records where a file's timestamp came from.
type AgeSource string

const (
	SourceGit   AgeSource = "git"
	SourceMtime AgeSource = "mtime"
)

// FileAge is the last-modified time of one file.
type FileAge struct {
	Path   string
	When   time.Time
	Source AgeSource
}

type ageConfig struct {
	preferGit bool
	timeout   time.Duration
	opener    Opener
	logger    *slog.Logger
}

// AgeOption configures LastModified.
type AgeOption func(*ageConfig)

// WithPreferGit toggles the commit-date lookup. When off only filesystem
// modification times are used.
func WithPreferGit(prefer bool) AgeOption {
	return func(c *ageConfig) { c.preferGit = prefer }
}

// WithTimeout bounds the commit-date lookup. Files not resolved in time
// fall back to their modification time.
func WithTimeout(d time.Duration) AgeOption {
	return func(c *ageConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithOpener replaces the repository opener.
func WithOpener(o Opener) AgeOption {
	return func(c *ageConfig) { c.opener = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) AgeOption {
	return func(c *ageConfig) { c.logger = l }
}

// LastModified returns the last-modified time of each file, keyed by path.
// The last commit touching a file is preferred; any failure to open the
// repository, walk its history or finish within the timeout falls back to
// the filesystem modification time. Files for which neither is available
// are absent from the result.
func LastModified(ctx context.Context, root string, files []string, opts ...AgeOption) map[string]FileAge {
	cfg := ageConfig{
		preferGit: true,
		timeout:   DefaultTimeout,
		opener:    DefaultOpener(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	ages := make(map[string]FileAge, len(files))
	if cfg.preferGit {
		for _, a := range commitTimes(ctx, root, files, cfg) {
			ages[a.Path] = a
		}
	}

	for _, f := range files {
		if _, ok := ages[f]; ok {
			continue
		}
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		ages[f] = FileAge{Path: f, When: info.ModTime(), Source: SourceMtime}
	}
	return ages
}

// commitTimes walks the history once, newest first, and takes each file's
// time from the first commit that adds or modifies it. The walk checks the
// context before every commit, so the timeout bounds the whole lookup.
func commitTimes(ctx context.Context, root string, files []string, cfg ageConfig) []FileAge {
	repo, err := cfg.opener.PlainOpenWithDetect(root)
	if err != nil {
		cfg.logger.Debug("git history unavailable, using modification times", "root", root, "error", err)
		return nil
	}
	if _, err := repo.Head(); err != nil {
		cfg.logger.Debug("repository has no commits", "root", root, "error", err)
		return nil
	}
	repoPath := repo.RepoPath()

	pending := make(map[string]string, len(files))
	for _, f := range files {
		if rel, err := relativeTo(repoPath, f); err == nil {
			pending[rel] = f
		}
	}
	if len(pending) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	iter, err := repo.Log(&LogOptions{})
	if err != nil {
		cfg.logger.Debug("git log failed", "root", root, "error", err)
		return nil
	}
	defer iter.Close()

	results := make([]FileAge, 0, len(pending))
	err = iter.ForEach(func(c Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		changed, err := c.ChangedFiles(ctx)
		if err != nil {
			return err
		}
		for _, rel := range changed {
			file, ok := pending[rel]
			if !ok {
				continue
			}
			delete(pending, rel)
			results = append(results, FileAge{Path: file, When: c.When(), Source: SourceGit})
		}
		if len(pending) == 0 {
			return errResolved
		}
		return nil
	})
	if err != nil && !errors.Is(err, errResolved) {
		cfg.logger.Debug("git history walk stopped early", "unresolved", len(pending), "error", err)
	}
	return results
}

func relativeTo(repoPath, file string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	rel, err := filepath.Rel(repoPath, abs)
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(rel, "..") {
		return "", errors.New("file is outside the repository")
	}
	return filepath.ToSlash(rel), nil
}
