package cli

import (
	"context"
	"testing"
	"time"

	"github.com/matzehuels/repairgraph/pkg/observability"
)

func TestSpinnerBasic(t *testing.T) {
	s := newSpinner("Testing...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()

	if !s.Cancelled() {
		t.Error("Stop should cancel the spinner context")
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerWithContext(ctx, "Testing with context...")
	s.Start()

	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
}

func TestSpinnerWithTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	s := newSpinnerWithContext(ctx, "Testing with timeout...")
	s.Start()

	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("Testing idempotent stop...")
	s.Start()

	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithSuccess(t *testing.T) {
	s := newSpinner("Testing success...")
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.StopWithSuccess("Done!")
}

func TestSpinnerStopWithError(t *testing.T) {
	s := newSpinner("Testing error...")
	s.Start()
	time.Sleep(50 * time.Millisecond)
	s.StopWithError("Failed!")
}

func TestNewSpinnerWithContextNilParent(t *testing.T) {
	s := newSpinnerWithContext(context.Background(), "Test")
	s.Start()
	s.Stop()
}

func TestSpinnerSetMessage(t *testing.T) {
	s := newSpinner("first")
	s.SetMessage("second")
	if got := s.Message(); got != "second" {
		t.Errorf("Message() = %q, want %q", got, "second")
	}
	// Stop before Start must not block.
	s.Stop()
}

func TestFollowStages(t *testing.T) {
	s := newSpinner("start")
	restore := followStages(s)

	observability.Pipeline().OnExtractStart(context.Background(), "wt", "wt_r1")
	if got := s.Message(); got != "Extracting wt/wt_r1..." {
		t.Errorf("after extract start: %q", got)
	}
	observability.Pipeline().OnLayoutStart(context.Background(), "sgA", 12)
	if got := s.Message(); got != "Laying out sgA (12 nodes)..." {
		t.Errorf("after layout start: %q", got)
	}

	restore()
	observability.Pipeline().OnGraphStart(context.Background(), "sgA", 2)
	if got := s.Message(); got != "Laying out sgA (12 nodes)..." {
		t.Errorf("hooks should be restored, message changed to %q", got)
	}
}
