// Package progress draws file-processing progress on stderr.
package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Tracker wraps a progress bar for one phase of a run. A nil or hidden
// Tracker accepts every call and draws nothing.
type Tracker struct {
	bar    *progressbar.ProgressBar
	label  string
	writer io.Writer
}

type options struct {
	writer io.Writer
	hidden bool
}

// Option configures a Tracker.
type Option func(*options)

// WithWriter draws the bar on w instead of stderr.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithHidden suppresses drawing, e.g. for machine-readable output or when
// stderr is not a terminal.
func WithHidden(hidden bool) Option {
	return func(o *options) { o.hidden = hidden }
}

func apply(opts []Option) options {
	o := options{writer: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSpinner creates a spinner for a phase with no known file count, such
// as scanning the tree or looking up commit dates.
func NewSpinner(label string, opts ...Option) *Tracker {
	o := apply(opts)
	t := &Tracker{label: label, writer: o.writer}
	if o.hidden {
		return t
	}
	t.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(o.writer),
		progressbar.OptionSetWidth(20),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	return t
}

// NewTracker creates a progress bar over total files.
func NewTracker(label string, total int, opts ...Option) *Tracker {
	o := apply(opts)
	t := &Tracker{label: label, writer: o.writer}
	if o.hidden {
		return t
	}
	t.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(o.writer),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionSetDescription(label),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionSetElapsedTime(false),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
	return t
}

// Tick increments the progress by 1. Safe for concurrent use.
func (t *Tracker) Tick() {
	if t == nil || t.bar == nil {
		return
	}
	_ = t.bar.Add(1)
}

// FinishSuccess clears the bar completely (no output).
func (t *Tracker) FinishSuccess() {
	t.finish()
}

// FinishSkipped clears the bar and reports why the phase was skipped.
func (t *Tracker) FinishSkipped(reason string) {
	if t.finish() {
		fmt.Fprintf(t.writer, "  %s skipped (%s)\n", t.label, reason)
	}
}

// FinishError clears the bar and reports the error.
func (t *Tracker) FinishError(err error) {
	if t.finish() {
		fmt.Fprintf(t.writer, "  %s error: %v\n", t.label, err)
	}
}

// finish stops the bar and reports whether it was drawn.
func (t *Tracker) finish() bool {
	if t == nil || t.bar == nil {
		return false
	}
	_ = t.bar.Finish()
	_ = t.bar.Clear()
	return true
}
