// Package fileproc provides concurrent file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/panbanda/prune/pkg/parser"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// DefaultWorkers returns the worker count used when none is configured.
func DefaultWorkers() int {
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// ProgressFunc is called after each file is processed.
type ProgressFunc func()

// MapFilesOrdered processes files in parallel, calling fn for each file with
// a dedicated parser. Successful results are returned in input order, so the
// merge is deterministic regardless of scheduling. Failed files, including
// files skipped after ctx is cancelled, are reported in the returned errors.
// If workers is <= 0, defaults to 2x NumCPU.
func MapFilesOrdered[T any](
	ctx context.Context,
	files []string,
	workers int,
	fn func(context.Context, *parser.Parser, string) (T, error),
	onProgress ProgressFunc,
) ([]T, *ProcessingErrors) {
	if len(files) == 0 {
		return nil, nil
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	slots := make([]T, len(files))
	ok := make([]bool, len(files))
	errs := &ProcessingErrors{}

	// Each index is written by exactly one goroutine, so slots need no lock.
	p := pool.New().WithMaxGoroutines(workers)
	for i, path := range files {
		p.Go(func() {
			defer func() {
				if onProgress != nil {
					onProgress()
				}
			}()
			if err := ctx.Err(); err != nil {
				errs.Add(path, err)
				return
			}

			psr := parser.New()
			defer psr.Close()

			result, err := fn(ctx, psr, path)
			if err != nil {
				errs.Add(path, err)
				return
			}
			slots[i] = result
			ok[i] = true
		})
	}
	p.Wait()

	results := make([]T, 0, len(files))
	for i, r := range slots {
		if ok[i] {
			results = append(results, r)
		}
	}
	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
