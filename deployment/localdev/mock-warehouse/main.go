package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"

	"github.com/miradorstack/mirador-roi/internal/models"
	"github.com/miradorstack/mirador-roi/internal/store"
	"github.com/miradorstack/mirador-roi/internal/utils"
)

type queryRequest struct {
	Table string `json:"table"`
	Since string `json:"since"`
}

type rowsPayload struct {
	Table string       `json:"table,omitempty"`
	Rows  []models.Row `json:"rows"`
}

func main() {
	var addr string
	var days int
	flag.StringVar(&addr, "addr", ":8090", "Listen address")
	flag.IntVar(&days, "days", 14, "Days of hourly sample data to seed")
	flag.Parse()

	logger := utils.NewLogger("info", false)
	warehouse := store.NewMemoryStore(nil)
	if err := seed(context.Background(), warehouse, days); err != nil {
		logger.Error("seed warehouse", slog.Any("error", err))
		os.Exit(1)
	}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		since, err := utils.ParseRFC3339(req.Since)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		table := models.Table(req.Table)
		if !table.Valid() {
			http.Error(w, "unknown table", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, rowsPayload{Rows: rowsSince(warehouse.Rows(table), since)})
	}).Methods(http.MethodPost)

	r.HandleFunc("/rows", func(w http.ResponseWriter, r *http.Request) {
		var req rowsPayload
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		if err := warehouse.Append(r.Context(), models.Table(req.Table), req.Rows); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Info("rows appended", slog.String("table", req.Table), slog.Int("rows", len(req.Rows)))
		writeJSON(w, http.StatusCreated, map[string]int{"accepted": len(req.Rows)})
	}).Methods(http.MethodPost)

	logger.Info("mock warehouse listening", slog.String("address", addr), slog.Int("seed_days", days))
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("mock warehouse exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// seed writes hourly CSAT/NPS readings and matching per-service spend. CSAT tracks spend
// linearly, NPS moves against it, so a correlation run over the seed yields one positive
// and one negative ROI.
func seed(ctx context.Context, warehouse *store.MemoryStore, days int) error {
	start := time.Now().UTC().Truncate(time.Hour).Add(-time.Duration(days) * 24 * time.Hour)
	var business, infra []models.Row
	for h := 0; h < days*24; h++ {
		ts := start.Add(time.Duration(h) * time.Hour)
		cost := 100 + 40*math.Sin(float64(h)/12)
		infra = append(infra, models.Observation{MetricName: "support-api", Value: cost, Timestamp: ts}.Row(models.TableInfrastructureMetrics))
		business = append(business,
			models.Observation{MetricName: "CSAT", Value: 60 + 0.2*cost, Timestamp: ts}.Row(models.TableBusinessMetrics),
			models.Observation{MetricName: "NPS", Value: 50 - 0.1*cost + float64(h%3), Timestamp: ts}.Row(models.TableBusinessMetrics),
		)
	}
	if err := warehouse.Append(ctx, models.TableInfrastructureMetrics, infra); err != nil {
		return err
	}
	return warehouse.Append(ctx, models.TableBusinessMetrics, business)
}

func rowsSince(rows []models.Row, since time.Time) []models.Row {
	out := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		raw, _ := row["timestamp"].(string)
		ts, err := utils.ParseRFC3339(raw)
		if err != nil || ts.Before(since) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
