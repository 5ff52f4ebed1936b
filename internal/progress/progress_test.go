package progress

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestTrackerTicks(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker("Analyzing", 10, WithWriter(&buf))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Tick()
		}()
	}
	wg.Wait()

	if got := tr.bar.State().CurrentNum; got != 10 {
		t.Errorf("CurrentNum = %d, want 10", got)
	}
	tr.FinishSuccess()
}

func TestTrackerFinishMessages(t *testing.T) {
	var buf bytes.Buffer
	NewSpinner("Commit dates", WithWriter(&buf)).FinishSkipped("not a git repository")
	if !strings.Contains(buf.String(), "Commit dates skipped (not a git repository)") {
		t.Errorf("skip message missing: %q", buf.String())
	}

	buf.Reset()
	NewTracker("Analyzing", 1, WithWriter(&buf)).FinishError(errors.New("boom"))
	if !strings.Contains(buf.String(), "Analyzing error: boom") {
		t.Errorf("error message missing: %q", buf.String())
	}
}

func TestHiddenTracker(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTracker("Analyzing", 3, WithWriter(&buf), WithHidden(true))
	tr.Tick()
	tr.FinishError(errors.New("ignored"))
	if buf.Len() != 0 {
		t.Errorf("hidden tracker wrote %q", buf.String())
	}

	var nilTracker *Tracker
	nilTracker.Tick()
	nilTracker.FinishSuccess()
}
