package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	durations := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for _, d := range durations {
		tracker.Observe(d)
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}

	p95 := tracker.Percentile(95)
	if p95 < 40*time.Millisecond {
		t.Fatalf("expected percentile >= 40ms, got %v", p95)
	}
}

func TestLatencyTrackerBoundedSize(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
}

func TestLatencyTrackerSummary(t *testing.T) {
	tracker := NewLatencyTracker(0)
	if summary := tracker.Summary(); summary.Count != 0 || summary.P95 != 0 {
		t.Fatalf("expected empty summary, got %+v", summary)
	}

	for i := 1; i <= 10; i++ {
		tracker.Observe(time.Duration(i) * time.Second)
	}
	summary := tracker.Summary()
	if summary.Count != 10 {
		t.Fatalf("expected 10 samples, got %d", summary.Count)
	}
	if summary.Max != 10*time.Second {
		t.Fatalf("expected max 10s, got %v", summary.Max)
	}
	if summary.P50 > summary.P95 {
		t.Fatalf("expected p50 <= p95, got %v > %v", summary.P50, summary.P95)
	}
}

func TestLatencyTrackerOverwritesOldest(t *testing.T) {
	tracker := NewLatencyTracker(2)
	tracker.Observe(time.Hour)
	tracker.Observe(time.Second)
	tracker.Observe(2 * time.Second)

	if max := tracker.Percentile(100); max != 2*time.Second {
		t.Fatalf("expected oldest sample evicted, max %v", max)
	}
	if min := tracker.Percentile(0); min != time.Second {
		t.Fatalf("expected min 1s, got %v", min)
	}
}
