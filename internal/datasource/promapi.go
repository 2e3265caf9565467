package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/probelab/crucible/internal/logging"
)

// PromClient queries a Prometheus-compatible HTTP API (/api/v1/query,
// /api/v1/query_range, /api/v1/series). It implements DataSource.
type PromClient struct {
	baseURL string
	token   string
	client  *http.Client
	step    time.Duration
	// entityLabel is the label whose values identify services in
	// ActiveEntities results (default "service").
	entityLabel string
	// entitySelector is the series selector used for entity-membership
	// queries (default `up`).
	entitySelector string
	logger         *logging.Logger
}

// PromClientConfig configures a PromClient.
type PromClientConfig struct {
	// BaseURL is the root of the Prometheus-compatible API
	BaseURL string

	// Token is an optional bearer token
	Token string

	// Step is the range-query resolution (default 30s)
	Step time.Duration

	// EntityLabel identifies services in series metadata (default "service")
	EntityLabel string

	// EntitySelector is the selector for entity-membership queries (default "up")
	EntitySelector string
}

// NewPromClient creates a Prometheus API client with tuned connection
// pooling.
func NewPromClient(cfg PromClientConfig, logger *logging.Logger) (*PromClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("prometheus base URL must not be empty")
	}
	if cfg.Step == 0 {
		cfg.Step = 30 * time.Second
	}
	if cfg.EntityLabel == "" {
		cfg.EntityLabel = "service"
	}
	if cfg.EntitySelector == "" {
		cfg.EntitySelector = "up"
	}
	if logger == nil {
		logger = logging.GetLogger("datasource.prom")
	}

	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     20,
		MaxIdleConnsPerHost: 10, // default 2 causes connection churn
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &PromClient{
		baseURL:        cfg.BaseURL,
		token:          cfg.Token,
		client:         &http.Client{Transport: transport},
		step:           cfg.Step,
		entityLabel:    cfg.EntityLabel,
		entitySelector: cfg.EntitySelector,
		logger:         logger,
	}, nil
}

// promResponse is the envelope of every Prometheus API response.
type promResponse struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	ErrorType string          `json:"errorType"`
	Error     string          `json:"error"`
}

type promQueryData struct {
	ResultType string           `json:"resultType"`
	Result     []promResultItem `json:"result"`
}

type promResultItem struct {
	Metric map[string]string `json:"metric"`
	Value  []json.RawMessage `json:"value"`
	Values [][]json.RawMessage `json:"values"`
}

// QueryRange implements DataSource.QueryRange.
func (c *PromClient) QueryRange(ctx context.Context, metric string, start, end time.Time) ([]Point, error) {
	params := url.Values{}
	params.Set("query", metric)
	params.Set("start", formatPromTime(start))
	params.Set("end", formatPromTime(end))
	params.Set("step", strconv.FormatFloat(c.step.Seconds(), 'f', -1, 64))

	data, err := c.do(ctx, metric, "/api/v1/query_range", params)
	if err != nil {
		return nil, err
	}

	var parsed promQueryData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, NewQueryError(KindMalformed, metric, fmt.Errorf("parse range response: %w", err))
	}
	if len(parsed.Result) == 0 {
		return nil, NewQueryError(KindNotFound, metric, fmt.Errorf("no series returned"))
	}

	// Strategies query one metric at a time; use the first series.
	points := make([]Point, 0, len(parsed.Result[0].Values))
	for _, pair := range parsed.Result[0].Values {
		point, err := parsePromSample(pair)
		if err != nil {
			return nil, NewQueryError(KindMalformed, metric, err)
		}
		points = append(points, point)
	}
	if len(points) == 0 {
		return nil, NewQueryError(KindNotFound, metric, fmt.Errorf("series has no samples"))
	}
	return points, nil
}

// QueryInstant implements DataSource.QueryInstant.
func (c *PromClient) QueryInstant(ctx context.Context, metric string) (float64, error) {
	params := url.Values{}
	params.Set("query", metric)

	data, err := c.do(ctx, metric, "/api/v1/query", params)
	if err != nil {
		return 0, err
	}

	var parsed promQueryData
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, NewQueryError(KindMalformed, metric, fmt.Errorf("parse instant response: %w", err))
	}
	if len(parsed.Result) == 0 || len(parsed.Result[0].Value) != 2 {
		return 0, NewQueryError(KindNotFound, metric, fmt.Errorf("no data for metric"))
	}

	point, err := parsePromSample(parsed.Result[0].Value)
	if err != nil {
		return 0, NewQueryError(KindMalformed, metric, err)
	}
	return point.Value, nil
}

// ActiveEntities implements DataSource.ActiveEntities by listing series
// matching the entity selector in the window and collecting the entity
// label values.
func (c *PromClient) ActiveEntities(ctx context.Context, start, end time.Time) ([]string, error) {
	params := url.Values{}
	params.Set("match[]", c.entitySelector)
	params.Set("start", formatPromTime(start))
	params.Set("end", formatPromTime(end))

	data, err := c.do(ctx, c.entitySelector, "/api/v1/series", params)
	if err != nil {
		return nil, err
	}

	var series []map[string]string
	if err := json.Unmarshal(data, &series); err != nil {
		return nil, NewQueryError(KindMalformed, c.entitySelector, fmt.Errorf("parse series response: %w", err))
	}

	seen := make(map[string]struct{})
	var entities []string
	for _, labels := range series {
		name := labels[c.entityLabel]
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		entities = append(entities, name)
	}
	if len(entities) == 0 {
		return nil, NewQueryError(KindNotFound, c.entitySelector, fmt.Errorf("no entities observed in window"))
	}
	return entities, nil
}

// do executes one API call and returns the data payload of a successful
// envelope. Transport, HTTP, and envelope failures are mapped to typed
// query errors.
func (c *PromClient) do(ctx context.Context, metric, path string, params url.Values) (json.RawMessage, error) {
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, NewQueryError(KindMalformed, metric, fmt.Errorf("create request: %w", err))
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return nil, NewQueryError(KindTimeout, metric, err)
		}
		return nil, NewQueryError(KindUnavailable, metric, err)
	}
	defer resp.Body.Close()

	// Read to completion for connection reuse.
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewQueryError(KindUnavailable, metric, fmt.Errorf("read response body: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest:
		return nil, NewQueryError(KindMalformed, metric, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewQueryError(KindNotFound, metric, fmt.Errorf("status %d", resp.StatusCode))
	default:
		c.logger.Error("prometheus query failed: status=%d body=%s", resp.StatusCode, string(body))
		return nil, NewQueryError(KindUnavailable, metric, fmt.Errorf("status %d: %s", resp.StatusCode, string(body)))
	}

	var envelope promResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, NewQueryError(KindMalformed, metric, fmt.Errorf("parse response envelope: %w", err))
	}
	if envelope.Status != "success" {
		return nil, NewQueryError(KindMalformed, metric, fmt.Errorf("%s: %s", envelope.ErrorType, envelope.Error))
	}
	return envelope.Data, nil
}

// parsePromSample decodes a [unix_seconds, "value"] pair.
func parsePromSample(pair []json.RawMessage) (Point, error) {
	if len(pair) != 2 {
		return Point{}, fmt.Errorf("sample has %d elements, want 2", len(pair))
	}

	var ts float64
	if err := json.Unmarshal(pair[0], &ts); err != nil {
		return Point{}, fmt.Errorf("parse sample timestamp: %w", err)
	}

	var raw string
	if err := json.Unmarshal(pair[1], &raw); err != nil {
		return Point{}, fmt.Errorf("parse sample value: %w", err)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse sample value %q: %w", raw, err)
	}

	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return Point{Timestamp: time.Unix(sec, nsec).UTC(), Value: value}, nil
}

func formatPromTime(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}
