package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("second register: %v", err)
	}
}

func TestObserveRunNormalisesOutcome(t *testing.T) {
	before := testutil.ToFloat64(runsTotal.WithLabelValues(OutcomeError))
	ObserveRun(-time.Second, "weird")
	if got := testutil.ToFloat64(runsTotal.WithLabelValues(OutcomeError)); got != before+1 {
		t.Fatalf("expected unknown outcome counted as error, got %v", got-before)
	}

	before = testutil.ToFloat64(runsTotal.WithLabelValues(OutcomePersistError))
	ObserveRun(time.Second, OutcomePersistError)
	if got := testutil.ToFloat64(runsTotal.WithLabelValues(OutcomePersistError)); got != before+1 {
		t.Fatalf("expected persist outcome counted")
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(insightsTotal)
	AddInsights(3)
	AddInsights(-1)
	if got := testutil.ToFloat64(insightsTotal); got != before+3 {
		t.Fatalf("expected 3 insights added, got %v", got-before)
	}

	before = testutil.ToFloat64(rejectedObservationsTotal.WithLabelValues("ingest"))
	AddRejectedObservations("ingest", 2)
	if got := testutil.ToFloat64(rejectedObservationsTotal.WithLabelValues("ingest")); got != before+2 {
		t.Fatalf("expected 2 rejections added, got %v", got-before)
	}
}
