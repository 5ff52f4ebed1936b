// Package watch re-runs analysis when Python sources change.
package watch

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"

	"github.com/panbanda/prune/pkg/config"
	"github.com/panbanda/prune/pkg/parser"
)

// DefaultDebounce is how long a file must be quiet before it is reported.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors a project tree and reports batches of changed Python
// files once they have been stable for the debounce period.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	config    *config.Config
	debounce  time.Duration
	path      string
	out       io.Writer
	callback  func(changed []string)

	dirs    *config.GlobSet
	include *config.GlobSet
	exclude *config.GlobSet

	mu      sync.Mutex
	pending map[string]time.Time
	running sync.Mutex
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithOutput sets where status lines are written. Defaults to stderr.
func WithOutput(w io.Writer) Option {
	return func(wt *Watcher) {
		wt.out = w
	}
}

// NewWatcher creates a new file watcher.
func NewWatcher(path string, cfg *config.Config, debounce time.Duration, opts ...Option) (*Watcher, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	dirs, err := config.CompileNameGlobs(cfg.Exclude.Dirs)
	if err != nil {
		return nil, err
	}
	include, err := config.CompileGlobs(cfg.Analysis.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := config.CompileGlobs(cfg.Analysis.Exclude)
	if err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsWatcher: fsWatcher,
		config:    cfg,
		debounce:  debounce,
		path:      path,
		out:       os.Stderr,
		dirs:      dirs,
		include:   include,
		exclude:   exclude,
		pending:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// SetCallback sets the function called with each batch of changed files.
// Batches are delivered one at a time.
func (w *Watcher) SetCallback(cb func(changed []string)) {
	w.callback = cb
}

// Start begins watching for file changes and blocks until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.path); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	cyan.Fprintf(w.out, "Watching for changes in %s...\n", w.path)
	cyan.Fprintln(w.out, "Press Ctrl+C to stop")

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			color.New(color.FgRed).Fprintf(w.out, "Watch error: %v\n", err)
		}
	}
}

// addTree watches root and every non-excluded directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.dirs.MatchName(d.Name()) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

// handleEvent records a write, create, remove or rename of a Python file.
// New directories are added to the watch list.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	path := event.Name

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if !w.dirs.MatchName(info.Name()) {
				_ = w.addTree(path)
			}
			return
		}
	}

	if !w.relevant(path) {
		return
	}

	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// relevant reports whether path is a Python file the analysis would include.
func (w *Watcher) relevant(file string) bool {
	if !parser.IsPythonFile(file) {
		return false
	}
	rel, err := filepath.Rel(w.path, file)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(path.Dir(rel), "/") {
		if w.dirs.MatchName(part) {
			return false
		}
	}
	return w.include.Match(rel) && !w.exclude.Match(rel)
}

// processDebounced processes pending changes after debounce period.
func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending()
		}
	}
}

// processPending hands the files that have been stable for the debounce
// period to the callback as one sorted batch.
func (w *Watcher) processPending() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, lastMod := range w.pending {
		if now.Sub(lastMod) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(ready) == 0 || w.callback == nil {
		return
	}
	sort.Strings(ready)
	w.runCallback(ready)
}

// runCallback executes the callback for one batch. Batches never overlap.
func (w *Watcher) runCallback(changed []string) {
	w.running.Lock()
	defer w.running.Unlock()

	yellow := color.New(color.FgYellow)
	for _, path := range changed {
		rel, err := filepath.Rel(w.path, path)
		if err != nil {
			rel = path
		}
		yellow.Fprintf(w.out, "File changed: %s\n", rel)
	}

	w.callback(changed)
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.fsWatcher.Close()
}

// WatchedDirs returns the directories being watched.
func (w *Watcher) WatchedDirs() []string {
	return w.fsWatcher.WatchList()
}
