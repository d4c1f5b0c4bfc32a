package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/miradorstack/mirador-roi/internal/extractors"
	"github.com/miradorstack/mirador-roi/internal/models"
)

const (
	apiPrefix    = "/api/v1"
	maxBodyBytes = 8 << 20
)

// Backend is the domain surface the HTTP gateway exposes. Errors carry gRPC status codes.
type Backend interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (models.AnalysisReport, error)
	Record(ctx context.Context, table models.Table, raw []extractors.RawObservation) (int, error)
	History(ctx context.Context, req models.HistoryRequest) (time.Duration, []models.WorkloadSummary, error)
}

// Capability describes one operation for callers that discover the API at runtime.
type Capability struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	GRPCMethod  string            `json:"grpc_method"`
	Parameters  map[string]string `json:"parameters,omitempty"`
}

// Capabilities lists the operations served by the gateway and the gRPC service.
var Capabilities = []Capability{
	{
		Name:        "analyze_correlations",
		Description: "Correlate business metrics with infrastructure cost over a window, score ROI per metric, and persist one roi_correlations row per insight.",
		Method:      http.MethodPost,
		Path:        "/api/v1/correlations:analyze",
		GRPCMethod:  "AnalyzeCorrelations",
		Parameters: map[string]string{
			"window":      "reporting window such as 30d, 2w or 1m (default from configuration)",
			"metrics":     "optional business metric names to correlate",
			"custom_kpis": "optional KPI names to total over the window",
		},
	},
	{
		Name:        "record_observations",
		Description: "Append validated observations to business_metrics or infrastructure_metrics.",
		Method:      http.MethodPost,
		Path:        "/api/v1/observations/{table}",
		GRPCMethod:  "RecordObservations",
		Parameters: map[string]string{
			"table":        "business_metrics or infrastructure_metrics",
			"observations": "list of {metric_name, value, timestamp (RFC3339)}",
		},
	},
	{
		Name:        "workload_history",
		Description: "Summarise persisted ROI correlations per workload.",
		Method:      http.MethodGet,
		Path:        "/api/v1/correlations/history",
		GRPCMethod:  "GetWorkloadHistory",
		Parameters: map[string]string{
			"window": "lookback window such as 30d (default from configuration)",
		},
	},
}

// Gateway serves the JSON HTTP API.
type Gateway struct {
	backend Backend
	logger  *slog.Logger
	router  *mux.Router
}

// NewGateway wires routes for backend.
func NewGateway(backend Backend, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{backend: backend, logger: logger, router: mux.NewRouter()}

	g.router.HandleFunc("/healthz", g.handleHealth).Methods(http.MethodGet)
	// Routes stay on the root router: a mux subrouter answers a method mismatch with 404.
	g.router.HandleFunc(apiPrefix+"/capabilities", g.handleCapabilities).Methods(http.MethodGet)
	g.router.HandleFunc(apiPrefix+"/correlations:analyze", g.handleAnalyze).Methods(http.MethodPost)
	g.router.HandleFunc(apiPrefix+"/correlations/history", g.handleHistory).Methods(http.MethodGet)
	g.router.HandleFunc(apiPrefix+"/observations/{table}", g.handleRecord).Methods(http.MethodPost)
	g.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, r.Method+" not allowed on "+r.URL.Path)
	})
	return g
}

// Handler returns the instrumented router.
func (g *Gateway) Handler() http.Handler {
	return otelhttp.NewHandler(g.router, "mirador-roi-gateway")
}

func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "SERVING"})
}

func (g *Gateway) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"capabilities": Capabilities})
}

func (g *Gateway) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var body AnalyzeRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := body.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := g.backend.Analyze(r.Context(), req)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (g *Gateway) handleRecord(w http.ResponseWriter, r *http.Request) {
	table := models.Table(mux.Vars(r)["table"])

	var body RecordRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	accepted, err := g.backend.Record(r.Context(), table, body.Observations)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RecordResponse{Table: string(table), Accepted: accepted})
}

func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	req, err := HistoryRequest{Window: r.URL.Query().Get("window")}.ToDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	window, workloads, err := g.backend.History(r.Context(), req)
	if err != nil {
		g.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewHistoryResponse(window, workloads))
}

func (g *Gateway) fail(w http.ResponseWriter, r *http.Request, err error) {
	st, _ := status.FromError(err)
	code := HTTPStatus(st.Code())
	if code >= http.StatusInternalServerError {
		g.logger.Error("gateway request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	writeError(w, code, st.Message())
}

// HTTPStatus maps a gRPC status code onto the closest HTTP status.
func HTTPStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed
	case codes.Unavailable:
		return http.StatusServiceUnavailable
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
