package vlm

import (
	"testing"
	"time"
)

func TestStats_EmptySnapshot(t *testing.T) {
	s := NewStats(time.Hour)
	snap := s.Snapshot()
	if snap.Count != 0 || snap.AvgMs != 0 {
		t.Errorf("expected zero snapshot, got %+v", snap)
	}
}

func TestStats_Aggregates(t *testing.T) {
	s := NewStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400} {
		s.Record(ms, 10, 5)
	}

	snap := s.Snapshot()
	if snap.Count != 4 {
		t.Fatalf("expected 4 samples, got %d", snap.Count)
	}
	if snap.MinMs != 100 || snap.MaxMs != 400 {
		t.Errorf("min/max wrong: %+v", snap)
	}
	if snap.AvgMs != 250 {
		t.Errorf("expected avg 250, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 250 {
		t.Errorf("expected p50 250, got %f", snap.P50Ms)
	}
	if snap.PromptTokens != 40 || snap.CompletionTokens != 20 {
		t.Errorf("token totals wrong: %+v", snap)
	}
}

func TestStats_NegativeDurationClamped(t *testing.T) {
	s := NewStats(time.Hour)
	s.Record(-50, 0, 0)
	if snap := s.Snapshot(); snap.MinMs != 0 {
		t.Errorf("expected clamp to 0, got %d", snap.MinMs)
	}
}

func TestStats_OldSamplesPruned(t *testing.T) {
	s := NewStats(time.Millisecond)
	s.Record(100, 1, 1)
	time.Sleep(5 * time.Millisecond)

	snap := s.Snapshot()
	if snap.Count != 0 {
		t.Errorf("expected expired samples pruned, got %d", snap.Count)
	}
	// Token counts are cumulative and survive pruning.
	if snap.PromptTokens != 1 {
		t.Errorf("token totals should survive pruning, got %+v", snap)
	}
}
