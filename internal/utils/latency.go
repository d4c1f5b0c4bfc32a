package utils

import (
	"sort"
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LatencyTracker keeps the most recent run durations in a fixed ring and reports
// empirical percentiles over them.
type LatencyTracker struct {
	mu    sync.Mutex
	ring  []time.Duration
	next  int
	count int
}

// NewLatencyTracker creates a tracker holding up to size samples.
func NewLatencyTracker(size int) *LatencyTracker {
	if size <= 0 {
		size = 512
	}
	return &LatencyTracker{ring: make([]time.Duration, size)}
}

// Observe records d, overwriting the oldest sample once the ring is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	l.ring[l.next] = d
	l.next = (l.next + 1) % len(l.ring)
	if l.count < len(l.ring) {
		l.count++
	}
	l.mu.Unlock()
}

// Count returns the number of samples currently held.
func (l *LatencyTracker) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Percentile returns the p-th (0-100) empirical percentile, or zero without samples.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	return quantile(l.sortedSeconds(), p)
}

// LatencySummary is a point-in-time view of the tracked durations.
type LatencySummary struct {
	Count int
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

// Summary sorts the ring once and reports count, median, p95 and max.
func (l *LatencyTracker) Summary() LatencySummary {
	sorted := l.sortedSeconds()
	return LatencySummary{
		Count: len(sorted),
		P50:   quantile(sorted, 50),
		P95:   quantile(sorted, 95),
		Max:   quantile(sorted, 100),
	}
}

func (l *LatencyTracker) sortedSeconds() []float64 {
	l.mu.Lock()
	out := make([]float64, l.count)
	for i := 0; i < l.count; i++ {
		out[i] = l.ring[i].Seconds()
	}
	l.mu.Unlock()
	sort.Float64s(out)
	return out
}

func quantile(sorted []float64, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	switch {
	case p <= 0:
		return seconds(sorted[0])
	case p >= 100:
		return seconds(sorted[len(sorted)-1])
	}
	return seconds(stat.Quantile(p/100, stat.Empirical, sorted, nil))
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Microsecond)
}
