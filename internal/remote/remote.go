// Package remote resolves repository references given on the command line
// and clones them into a temporary directory for analysis.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrEmptyRef is returned for a reference with a trailing '@' and no ref.
var ErrEmptyRef = errors.New("empty ref after '@'")

var shaPattern = regexp.MustCompile(`^[0-9a-f]{7,40}$`)

// Source represents a remote repository to analyze.
type Source struct {
	URL      string // normalized git URL
	Ref      string // branch, tag, or SHA (empty = default branch)
	CloneDir string // temp directory after clone
}

// Parse detects if a path is a remote reference.
// Returns nil if path exists on filesystem (local path takes precedence).
func Parse(path string) (*Source, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil
	}

	// Extract ref from path@ref syntax. The user part of an SSH URL is not a ref.
	start := 0
	if strings.HasPrefix(path, "git@") {
		start = len("git@")
	}
	ref := ""
	if idx := strings.LastIndex(path[start:], "@"); idx != -1 {
		idx += start
		ref = path[idx+1:]
		path = path[:idx]
		if ref == "" {
			return nil, ErrEmptyRef
		}
	}

	switch {
	case strings.HasPrefix(path, "https://"), strings.HasPrefix(path, "http://"),
		strings.HasPrefix(path, "git@"), strings.HasPrefix(path, "ssh://"):
		return &Source{URL: path, Ref: ref}, nil
	case isHostPath(path):
		return &Source{URL: "https://" + path, Ref: ref}, nil
	case isGitHubShorthand(path):
		return &Source{URL: "https://github.com/" + path, Ref: ref}, nil
	}
	return nil, nil
}

// isHostPath reports whether path looks like host.tld/owner/repo.
func isHostPath(path string) bool {
	parts := strings.Split(path, "/")
	host := parts[0]
	if len(parts) < 3 || !strings.Contains(host, ".") || strings.Trim(host, ".") != host {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// isGitHubShorthand returns true if path matches owner/repo pattern.
func isGitHubShorthand(path string) bool {
	slashIdx := strings.Index(path, "/")
	if slashIdx == -1 {
		return false
	}
	// Must have exactly one slash
	if strings.Count(path, "/") != 1 {
		return false
	}
	// No dots before the slash (would indicate a domain)
	if strings.Contains(path[:slashIdx], ".") {
		return false
	}
	// Both parts must be non-empty
	return slashIdx > 0 && slashIdx < len(path)-1
}

// Clone fetches the repository into a new temporary directory and checks
// out Ref. Clone progress is written to progress. A shallow clone fetches
// only the tip commit; a commit SHA always needs the full history.
func (s *Source) Clone(ctx context.Context, progress io.Writer, shallow bool) error {
	dir, err := os.MkdirTemp("", "prune-clone-*")
	if err != nil {
		return err
	}
	s.CloneDir = dir

	opts := &git.CloneOptions{URL: s.URL, Progress: progress}
	isSHA := shaPattern.MatchString(s.Ref)
	if shallow && !isSHA {
		opts.Depth = 1
	}

	if s.Ref == "" || isSHA {
		repo, err := git.PlainCloneContext(ctx, dir, false, opts)
		if err != nil {
			return s.fail(fmt.Errorf("clone %s: %w", s.URL, err))
		}
		if isSHA {
			return s.checkout(repo)
		}
		return nil
	}

	// Try the ref as a branch, then as a tag.
	opts.SingleBranch = true
	opts.ReferenceName = plumbing.NewBranchReferenceName(s.Ref)
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err == nil {
		return nil
	}
	if err := resetDir(dir); err != nil {
		return s.fail(err)
	}
	opts.ReferenceName = plumbing.NewTagReferenceName(s.Ref)
	if _, err := git.PlainCloneContext(ctx, dir, false, opts); err != nil {
		return s.fail(fmt.Errorf("clone %s at %s: %w", s.URL, s.Ref, err))
	}
	return nil
}

func (s *Source) checkout(repo *git.Repository) error {
	hash, err := repo.ResolveRevision(plumbing.Revision(s.Ref))
	if err != nil {
		return s.fail(fmt.Errorf("resolve %s: %w", s.Ref, err))
	}
	wt, err := repo.Worktree()
	if err != nil {
		return s.fail(err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Hash: *hash}); err != nil {
		return s.fail(fmt.Errorf("checkout %s: %w", s.Ref, err))
	}
	return nil
}

func (s *Source) fail(err error) error {
	s.Cleanup()
	return err
}

// Cleanup removes the clone directory.
func (s *Source) Cleanup() {
	if s.CloneDir == "" {
		return
	}
	_ = os.RemoveAll(s.CloneDir)
	s.CloneDir = ""
}

func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}
