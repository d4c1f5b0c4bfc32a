package engine

import (
	"testing"
	"time"

	"github.com/miradorstack/mirador-roi/internal/models"
)

func fixedClock(ts time.Time) func() time.Time {
	calls := 0
	return func() time.Time {
		calls++
		// advance on every call so a second read would be visible
		return ts.Add(time.Duration(calls) * time.Millisecond)
	}
}

func TestAssembleOrderAndFields(t *testing.T) {
	assembler := NewInsightAssembler(fixedClock(baseTime))
	scored := ScoreAll([]models.CorrelationRecord{
		{MetricName: "A", Coefficient: 2, Intercept: 1, MeanSquaredError: 1},
		{MetricName: "B", Coefficient: -0.5, Intercept: 3, MeanSquaredError: 0.25},
		{MetricName: "C", Coefficient: 0.2, Intercept: 60},
	})

	insights, rows, runAt, err := assembler.Assemble(scored)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(insights) != 3 || len(rows) != 3 {
		t.Fatalf("expected 3 insights and rows, got %d and %d", len(insights), len(rows))
	}
	for i, want := range []string{"A", "B", "C"} {
		if insights[i].Workload != want || rows[i].AISystemID != want {
			t.Fatalf("position %d: expected %s, got %s/%s", i, want, insights[i].Workload, rows[i].AISystemID)
		}
		if insights[i].ModelID != "N/A" {
			t.Fatalf("expected placeholder model id, got %q", insights[i].ModelID)
		}
		if insights[i].ROIScore != scored[i].ROI.Score || rows[i].ROIScore != scored[i].ROI.Score {
			t.Fatalf("position %d: roi mismatch", i)
		}
		if insights[i].Cost != scored[i].Record.Coefficient || insights[i].KPIImpactScore != scored[i].Record.Coefficient {
			t.Fatalf("position %d: expected cost and impact to carry the coefficient", i)
		}
		if rows[i].ConfidenceLevel != 1.0 {
			t.Fatalf("expected confidence 1.0, got %v", rows[i].ConfidenceLevel)
		}
	}

	if insights[0].Comment != "Coeff=2.00, MSE=1.00" {
		t.Fatalf("unexpected comment %q", insights[0].Comment)
	}
	if insights[1].Comment != "Coeff=-0.50, MSE=0.25" {
		t.Fatalf("unexpected comment %q", insights[1].Comment)
	}
	if rows[1].BusinessValue != 0.25 {
		t.Fatalf("expected business value to be the squared coefficient, got %v", rows[1].BusinessValue)
	}

	if runAt.Location() != time.UTC {
		t.Fatalf("expected run timestamp in UTC")
	}
	for _, row := range rows {
		if row.Timestamp != rows[0].Timestamp {
			t.Fatalf("rows do not share a timestamp: %q vs %q", row.Timestamp, rows[0].Timestamp)
		}
		ts, err := row.Time()
		if err != nil || !ts.Equal(runAt) {
			t.Fatalf("row timestamp %q does not match run time %v", row.Timestamp, runAt)
		}
	}

	meta, err := rows[2].Metadata()
	if err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta != scored[2].Record {
		t.Fatalf("metadata round trip mismatch: %+v", meta)
	}
	if rows[0].CorrelationMetadata != `{"metric":"A","coeff":2,"intercept":1,"mse":1}` {
		t.Fatalf("unexpected metadata encoding %s", rows[0].CorrelationMetadata)
	}
}

func TestAssembleEmpty(t *testing.T) {
	insights, rows, _, err := NewInsightAssembler(nil).Assemble(nil)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(insights) != 0 || len(rows) != 0 {
		t.Fatalf("expected nothing assembled, got %d/%d", len(insights), len(rows))
	}
}
