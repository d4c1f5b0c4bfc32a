package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/miradorstack/mirador-roi/internal/models"
)

func jsonResponse(t *testing.T, status int, payload any) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func TestHTTPStoreFetch(t *testing.T) {
	client := NewHTTPStore("https://warehouse.example.com/api", "", "", time.Second)
	client.now = func() time.Time { return fixedNow }
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/query" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var body queryRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Table != "infrastructure_metrics" || body.Since != "2024-03-07T00:00:00Z" {
			t.Fatalf("unexpected query %+v", body)
		}
		return jsonResponse(t, http.StatusOK, map[string]any{
			"rows": []map[string]any{
				{"timestamp": "2024-03-07T12:00:00Z", "service_name": "api", "cost_usd": 100},
			},
		}), nil
	}))

	observations, err := client.Fetch(context.Background(), models.TableInfrastructureMetrics, 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(observations) != 1 || observations[0].MetricName != "api" || observations[0].Value != 100 {
		t.Fatalf("unexpected observations: %+v", observations)
	}
}

func TestHTTPStoreAppend(t *testing.T) {
	hits := 0
	client := NewHTTPStore("https://warehouse.example.com", "/query", "/rows", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		hits++
		if req.URL.Path != "/rows" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var body rowsPayload
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Table != "roi_correlations" || len(body.Rows) != 2 {
			t.Fatalf("unexpected batch %+v", body)
		}
		return jsonResponse(t, http.StatusNoContent, map[string]any{}), nil
	}))

	rows := []models.Row{{"ai_system_id": "a"}, {"ai_system_id": "b"}}
	if err := client.Append(context.Background(), models.TableROICorrelations, rows); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := client.Append(context.Background(), models.TableROICorrelations, nil); err != nil {
		t.Fatalf("empty append: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one request, got %d", hits)
	}
}

func TestHTTPStoreUpstreamError(t *testing.T) {
	client := NewHTTPStore("https://warehouse.example.com", "", "", time.Second)
	client.httpClient = newTestClient(roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(t, http.StatusBadGateway, map[string]any{}), nil
	}))

	if _, err := client.Fetch(context.Background(), models.TableBusinessMetrics, time.Hour); err == nil {
		t.Fatalf("expected error for 502")
	}
	if _, err := NewHTTPStore("", "", "", time.Second).FetchCorrelations(context.Background(), time.Hour); err == nil {
		t.Fatalf("expected error without base URL")
	}
}
