// Package analyzer holds the contract shared by the project analyzers.
package analyzer

import "context"

// FileAnalyzer analyzes a set of source files as one project.
type FileAnalyzer[T any] interface {
	// Analyze processes files and returns the result. It stops early and
	// returns ctx.Err() when ctx is cancelled.
	Analyze(ctx context.Context, files []string) (T, error)

	// Close releases any resources held by the analyzer.
	Close()
}
