// Package vcs provides version control system abstractions.
package vcs

import (
	"context"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

// Repository provides access to git repository operations.
type Repository interface {
	// Head returns a reference to the HEAD commit.
	Head() (Reference, error)
	// Log returns a commit iterator starting from HEAD, newest first.
	Log(opts *LogOptions) (CommitIterator, error)
	// CommitObject returns the commit with the given hash.
	CommitObject(hash plumbing.Hash) (Commit, error)
	// RepoPath returns the root path of the working tree.
	RepoPath() string
}

// Reference represents a git reference (branch, tag, HEAD).
type Reference interface {
	Hash() plumbing.Hash
}

// LogOptions configures the commit log query.
type LogOptions struct {
	Since *time.Time
	// FileName restricts the log to commits touching this slash-separated
	// path, relative to the repository root.
	FileName string
}

// CommitIterator iterates over commits.
type CommitIterator interface {
	ForEach(fn func(Commit) error) error
	Close()
}

// Commit represents a git commit.
type Commit interface {
	// Hash returns the commit hash.
	Hash() plumbing.Hash
	// When returns the committer timestamp.
	When() time.Time
	// Message returns the commit message.
	Message() string
	// ChangedFiles lists the slash-separated paths added or modified by
	// this commit relative to its first parent. A root commit lists its
	// whole tree.
	ChangedFiles(ctx context.Context) ([]string, error)
}

// Opener opens git repositories.
type Opener interface {
	// PlainOpen opens an existing git repository.
	PlainOpen(path string) (Repository, error)
	// PlainOpenWithDetect opens a git repository, detecting .git in parent directories.
	PlainOpenWithDetect(path string) (Repository, error)
}
