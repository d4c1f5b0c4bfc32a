package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/miradorstack/mirador-roi/internal/models"
	"github.com/miradorstack/mirador-roi/internal/utils"
)

// HTTPStore talks to a warehouse gateway exposing POST /query and POST /rows.
type HTTPStore struct {
	baseURL    string
	queryPath  string
	rowsPath   string
	httpClient *http.Client
	now        func() time.Time
}

// NewHTTPStore constructs a client targeting the configured warehouse gateway.
func NewHTTPStore(baseURL, queryPath, rowsPath string, timeout time.Duration) *HTTPStore {
	if queryPath == "" {
		queryPath = "/query"
	}
	if rowsPath == "" {
		rowsPath = "/rows"
	}
	return &HTTPStore{
		baseURL:   strings.TrimRight(baseURL, "/"),
		queryPath: queryPath,
		rowsPath:  rowsPath,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

type queryRequest struct {
	Table string `json:"table"`
	Since string `json:"since"`
}

type rowsPayload struct {
	Table string       `json:"table,omitempty"`
	Rows  []models.Row `json:"rows"`
}

// Fetch queries the gateway for observations in the trailing window.
func (c *HTTPStore) Fetch(ctx context.Context, table models.Table, since time.Duration) ([]models.Observation, error) {
	if err := checkFetchTable(table); err != nil {
		return nil, err
	}
	rows, err := c.query(ctx, table, since)
	if err != nil {
		return nil, err
	}
	return observationsFromRows(table, rows)
}

// FetchCorrelations queries the gateway for roi_correlations rows in the trailing window.
func (c *HTTPStore) FetchCorrelations(ctx context.Context, since time.Duration) ([]models.CorrelationRow, error) {
	rows, err := c.query(ctx, models.TableROICorrelations, since)
	if err != nil {
		return nil, err
	}
	return correlationsFromRows(rows)
}

// Append posts the batch in a single request; the gateway accepts or rejects it whole.
func (c *HTTPStore) Append(ctx context.Context, table models.Table, rows []models.Row) error {
	if err := checkAppendTable(table); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	if err := c.postJSON(ctx, c.resolvePath(c.rowsPath), rowsPayload{Table: string(table), Rows: rows}, nil); err != nil {
		return utils.NewTableError("append", string(table), "warehouse request failed", err)
	}
	return nil
}

// Close is a no-op.
func (c *HTTPStore) Close() error { return nil }

func (c *HTTPStore) query(ctx context.Context, table models.Table, since time.Duration) ([]models.Row, error) {
	if c.baseURL == "" {
		return nil, utils.NewTableError("fetch", string(table), "warehouse base URL not configured", nil)
	}
	payload := queryRequest{
		Table: string(table),
		Since: c.now().Add(-since).UTC().Format(time.RFC3339Nano),
	}
	var response rowsPayload
	if err := c.postJSON(ctx, c.resolvePath(c.queryPath), payload, &response); err != nil {
		return nil, utils.NewTableError("fetch", string(table), "warehouse request failed", err)
	}
	return response.Rows, nil
}

func (c *HTTPStore) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *HTTPStore) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("warehouse returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
