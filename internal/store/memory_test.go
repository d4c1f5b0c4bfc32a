package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/mirador-roi/internal/models"
)

func TestMemoryStoreWindow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(func() time.Time { return fixedNow })

	rows := []models.Row{
		models.Observation{MetricName: "CSAT", Value: 80, Timestamp: fixedNow.Add(-48 * time.Hour)}.Row(models.TableBusinessMetrics),
		models.Observation{MetricName: "CSAT", Value: 82, Timestamp: fixedNow.Add(-2 * time.Hour)}.Row(models.TableBusinessMetrics),
	}
	require.NoError(t, store.Append(ctx, models.TableBusinessMetrics, rows))

	observations, err := store.Fetch(ctx, models.TableBusinessMetrics, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, observations, 1)
	assert.Equal(t, 82.0, observations[0].Value)

	infra, err := store.Fetch(ctx, models.TableInfrastructureMetrics, 24*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, infra)
}

func TestMemoryStoreRejectsUnknownTable(t *testing.T) {
	store := NewMemoryStore(nil)
	assert.Error(t, store.Append(context.Background(), models.Table("other"), []models.Row{{}}))
	_, err := store.Fetch(context.Background(), models.TableROICorrelations, time.Hour)
	assert.Error(t, err)
}

func TestMemoryStoreCorrelations(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(func() time.Time { return fixedNow })

	rows := []models.Row{
		models.CorrelationRow{Timestamp: fixedNow.Add(-time.Hour).Format(time.RFC3339Nano), AISystemID: "CSAT", ROIScore: 0.2}.Row(),
		models.CorrelationRow{Timestamp: fixedNow.Add(-72 * time.Hour).Format(time.RFC3339Nano), AISystemID: "old", ROIScore: 1}.Row(),
	}
	require.NoError(t, store.Append(ctx, models.TableROICorrelations, rows))

	history, err := store.FetchCorrelations(ctx, 24*time.Hour)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "CSAT", history[0].AISystemID)
	assert.Len(t, store.Rows(models.TableROICorrelations), 2)
}

func TestMemoryStoreCopiesRows(t *testing.T) {
	store := NewMemoryStore(nil)
	row := models.Observation{MetricName: "a", Value: 1, Timestamp: time.Now()}.Row(models.TableBusinessMetrics)
	require.NoError(t, store.Append(context.Background(), models.TableBusinessMetrics, []models.Row{row}))
	row["metric_value"] = 99.0
	assert.Equal(t, 1.0, store.Rows(models.TableBusinessMetrics)[0]["metric_value"])
}
