// Package airtable is a thin read client for the Airtable REST API, plus the
// filter-formula builder used to express restaurant search predicates.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	// airtableAPIURL is the Airtable REST API base endpoint.
	airtableAPIURL = "https://api.airtable.com/v0"

	// requestTimeout is the maximum duration for a single Airtable call.
	requestTimeout = 10 * time.Second

	// httpMaxIdleConns is the maximum number of idle (keep-alive) connections
	// kept in the transport pool.
	httpMaxIdleConns = 10

	// httpIdleConnTimeout is how long an idle connection is kept in the pool
	// before being closed.
	httpIdleConnTimeout = 30 * time.Second
)

// Record is one row of an Airtable table: an opaque identifier plus the field
// map. The search pipeline only ever reads records.
type Record struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// StringField returns the named field as a string, or fallback when the field
// is absent or not a string.
func (r Record) StringField(name Field, fallback string) string {
	if v, ok := r.Fields[string(name)].(string); ok {
		return v
	}
	return fallback
}

// FloatField returns the named field as a float64. Airtable serializes
// numbers as JSON numbers but some denormalized columns hold numeric strings,
// so both are accepted.
func (r Record) FloatField(name Field) (float64, bool) {
	switch v := r.Fields[string(name)].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// Query describes one list-records call.
type Query struct {
	Formula       string
	SortField     Field
	SortDirection string // "asc" or "desc"
	MaxRecords    int
	View          string // optional named view
}

// Lister lists records from a table. The production implementation is Client;
// tests swap in scripted doubles, and CachedLister decorates any Lister with
// the shared TTL cache.
type Lister interface {
	ListRecords(ctx context.Context, table string, q Query) ([]Record, error)
}

// Client calls the Airtable REST API for a single base.
type Client struct {
	baseID     string
	token      string
	httpClient *http.Client
	// apiURL is the Airtable endpoint. Overrideable in tests.
	apiURL string
}

// NewClient creates a read client for the given base, authenticated with a
// personal access token.
func NewClient(baseID, token string) *Client {
	transport := &http.Transport{
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return &Client{
		baseID: baseID,
		token:  token,
		apiURL: airtableAPIURL,
		httpClient: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
	}
}

// ListRecords performs one filtered, sorted, capped read against a table.
func (c *Client) ListRecords(ctx context.Context, table string, q Query) ([]Record, error) {
	params := url.Values{}
	if q.Formula != "" {
		params.Set("filterByFormula", q.Formula)
	}
	if q.SortField != "" {
		params.Set("sort[0][field]", string(q.SortField))
		dir := q.SortDirection
		if dir == "" {
			dir = "desc"
		}
		params.Set("sort[0][direction]", dir)
	}
	if q.MaxRecords > 0 {
		params.Set("maxRecords", strconv.Itoa(q.MaxRecords))
	}
	if q.View != "" {
		params.Set("view", q.View)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/%s/%s?%s", c.apiURL, c.baseID, url.PathEscape(table), params.Encode())
	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("airtable: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("airtable: http: %w", err)
	}
	defer httpResp.Body.Close()

	respBytes, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("airtable: read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("airtable: status %d: %s", httpResp.StatusCode, string(respBytes))
	}

	var payload struct {
		Records []Record `json:"records"`
	}
	if err := json.Unmarshal(respBytes, &payload); err != nil {
		return nil, fmt.Errorf("airtable: unmarshal response: %w", err)
	}
	return payload.Records, nil
}
