// Package backend talks to the hosted record backend that stores courses
// and progress, and adapts it to the domain repository interfaces.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"

	"github.com/felixgeelhaar/learnlens/internal/record"
)

// ErrRecordNotFound is returned when a record lookup by ID finds nothing
var ErrRecordNotFound = errors.New("record not found")

// Config holds the connection settings for the backend project
type Config struct {
	BaseURL    string
	ProjectID  string
	PublicKey  string
	Timeout    time.Duration // default: 15s
	Resilience ResilienceConfig
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// ResilienceConfig selects the fortify patterns wrapped around each call
type ResilienceConfig struct {
	EnableCircuitBreaker bool
	EnableRetry          bool
	EnableRateLimit      bool
	EnableBulkhead       bool

	// MaxAttempts for retry (default: 3)
	MaxAttempts int

	// InitialDelay before the first retry (default: 200ms)
	InitialDelay time.Duration

	// RatePerSecond for rate limiting (default: 10)
	RatePerSecond int

	// MaxConcurrent in-flight requests for the bulkhead (default: 4)
	MaxConcurrent int
}

// DefaultResilienceConfig returns the defaults used by the CLI and daemon
func DefaultResilienceConfig() ResilienceConfig {
	return ResilienceConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableRateLimit:      true,
		EnableBulkhead:       true,
		MaxAttempts:          3,
		InitialDelay:         200 * time.Millisecond,
		RatePerSecond:        10,
		MaxConcurrent:        4,
	}
}

// Client performs record CRUD against one backend project
type Client struct {
	baseURL    string
	projectID  string
	publicKey  string
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker[*envelope]
	retrier    retry.Retry[*envelope]
	limiter    ratelimit.RateLimiter
	bulkhead   bulkhead.Bulkhead[*envelope]
	logger     *slog.Logger
}

// NewClient creates a client for the configured project
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL is required")
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("backend project ID is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		projectID:  cfg.ProjectID,
		publicKey:  cfg.PublicKey,
		httpClient: cfg.HTTPClient,
		logger:     logger,
	}
	if c.httpClient == nil {
		c.httpClient = newBackendHTTPClient(cfg.Timeout)
	}

	rc := cfg.Resilience
	if rc.EnableCircuitBreaker {
		c.breaker = circuitbreaker.New[*envelope](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    30 * time.Second,
			Timeout:     20 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				c.logger.Warn("backend circuit breaker state change",
					"project", c.projectID,
					"from", from.String(),
					"to", to.String())
			},
		})
	}
	if rc.EnableRetry {
		attempts := rc.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		delay := rc.InitialDelay
		if delay <= 0 {
			delay = 200 * time.Millisecond
		}
		c.retrier = retry.New[*envelope](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  delay,
			MaxDelay:      5 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryable,
		})
	}
	if rc.EnableRateLimit {
		rate := rc.RatePerSecond
		if rate <= 0 {
			rate = 10
		}
		c.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 2,
			Interval: time.Second,
		})
	}
	if rc.EnableBulkhead {
		maxConcurrent := rc.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 4
		}
		c.bulkhead = bulkhead.New[*envelope](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 4,
			QueueTimeout:  10 * time.Second,
		})
	}

	return c, nil
}

// Close releases resources held by the client
func (c *Client) Close() error {
	if c.limiter != nil {
		return c.limiter.Close()
	}
	return nil
}

// FieldRef names a field to return from a fetch
type FieldRef struct {
	Field struct {
		Name string `json:"Name"`
	} `json:"field"`
}

// Fields builds a field list for Query.Fields
func Fields(names ...string) []FieldRef {
	refs := make([]FieldRef, len(names))
	for i, n := range names {
		refs[i].Field.Name = n
	}
	return refs
}

// Condition filters fetched records
type Condition struct {
	FieldName string `json:"FieldName"`
	Operator  string `json:"Operator"`
	Values    []any  `json:"Values"`
}

// EqualTo builds an equality condition
func EqualTo(field string, value any) Condition {
	return Condition{FieldName: field, Operator: "EqualTo", Values: []any{value}}
}

// Paging limits the fetched window
type Paging struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Query describes a fetch request
type Query struct {
	Fields     []FieldRef  `json:"fields,omitempty"`
	Where      []Condition `json:"where,omitempty"`
	PagingInfo *Paging     `json:"pagingInfo,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Results []recordResult  `json:"results"`
}

type recordResult struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  []FieldError    `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

// FetchRecords returns every record of table matching q
func (c *Client) FetchRecords(ctx context.Context, table string, q Query) ([]record.Record, error) {
	env, err := c.call(ctx, table, http.MethodPost, c.tablePath(table, "records/fetch"), q)
	if err != nil {
		return nil, err
	}
	return decodeRecords(env.Data)
}

// GetRecordByID returns one record or ErrRecordNotFound
func (c *Client) GetRecordByID(ctx context.Context, table, id string) (record.Record, error) {
	env, err := c.call(ctx, table, http.MethodGet, c.tablePath(table, "records/"+url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}
	rec, err := decodeRecord(env.Data)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("%s/%s: %w", table, id, ErrRecordNotFound)
	}
	return rec, nil
}

// CreateRecords inserts records and returns the created rows. Rows the
// backend accepted are returned alongside a *RecordErrors for the rest.
func (c *Client) CreateRecords(ctx context.Context, table string, records []record.Record) ([]record.Record, error) {
	return c.write(ctx, table, http.MethodPost, records)
}

// CreateRecord inserts a single record
func (c *Client) CreateRecord(ctx context.Context, table string, r record.Record) (record.Record, error) {
	return single(c.CreateRecords(ctx, table, []record.Record{r}))
}

// UpdateRecords updates records identified by their "Id" field
func (c *Client) UpdateRecords(ctx context.Context, table string, records []record.Record) ([]record.Record, error) {
	return c.write(ctx, table, http.MethodPatch, records)
}

// UpdateRecord updates a single record
func (c *Client) UpdateRecord(ctx context.Context, table string, r record.Record) (record.Record, error) {
	return single(c.UpdateRecords(ctx, table, []record.Record{r}))
}

// DeleteRecords removes records by ID
func (c *Client) DeleteRecords(ctx context.Context, table string, ids ...string) error {
	recordIDs := make([]any, len(ids))
	for i, id := range ids {
		recordIDs[i] = record.LookupValue(id)
	}
	env, err := c.call(ctx, table, http.MethodDelete, c.tablePath(table, "records"), map[string]any{"RecordIds": recordIDs})
	if err != nil {
		return err
	}
	_, err = collectResults(table, env.Results)
	return err
}

func (c *Client) write(ctx context.Context, table, method string, records []record.Record) ([]record.Record, error) {
	env, err := c.call(ctx, table, method, c.tablePath(table, "records"), map[string]any{"records": records})
	if err != nil {
		return nil, err
	}
	return collectResults(table, env.Results)
}

func single(records []record.Record, err error) (record.Record, error) {
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("backend returned no record")
	}
	return records[0], nil
}

func collectResults(table string, results []recordResult) ([]record.Record, error) {
	var (
		ok       []record.Record
		failures []RecordFailure
	)
	for i, res := range results {
		if !res.Success {
			failures = append(failures, RecordFailure{Index: i, Message: res.Message, Errors: res.Errors})
			continue
		}
		rec, err := decodeRecord(res.Data)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			ok = append(ok, rec)
		}
	}
	if len(failures) > 0 {
		return ok, &RecordErrors{Table: table, Failures: failures}
	}
	return ok, nil
}

func (c *Client) tablePath(table, suffix string) string {
	return fmt.Sprintf("%s/v1/projects/%s/tables/%s/%s",
		c.baseURL, url.PathEscape(c.projectID), url.PathEscape(table), suffix)
}

// call runs one request through rate limiting, circuit breaker, retry and
// the bulkhead, outermost first
func (c *Client) call(ctx context.Context, table, method, endpoint string, body any) (*envelope, error) {
	if c.limiter != nil && !c.limiter.Allow(ctx, c.projectID) {
		return nil, fmt.Errorf("rate limit exceeded for backend project %s", c.projectID)
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	operation := func(ctx context.Context) (*envelope, error) {
		return c.roundTrip(ctx, method, endpoint, payload)
	}
	if c.bulkhead != nil {
		send := operation
		operation = func(ctx context.Context) (*envelope, error) {
			return c.bulkhead.Execute(ctx, send)
		}
	}

	var (
		env *envelope
		err error
	)
	switch {
	case c.breaker != nil && c.retrier != nil:
		env, err = c.breaker.Execute(ctx, func(ctx context.Context) (*envelope, error) {
			return c.retrier.Do(ctx, operation)
		})
	case c.breaker != nil:
		env, err = c.breaker.Execute(ctx, operation)
	case c.retrier != nil:
		env, err = c.retrier.Do(ctx, operation)
	default:
		env, err = operation(ctx)
	}
	if err != nil {
		return nil, err
	}

	if !env.Success {
		return nil, &APIError{Table: table, Message: env.Message}
	}
	return env, nil
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, payload []byte) (*envelope, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Project-ID", c.projectID)
	if c.publicKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.publicKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		"method", method,
		"url", endpoint,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds())

	// A missing record is an answer, not a failure; keep it away from the breaker.
	if resp.StatusCode == http.StatusNotFound && method == http.MethodGet {
		return &envelope{Success: true}, nil
	}
	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode backend response: %w", err)
	}
	return &env, nil
}

func decodeRecords(raw json.RawMessage) ([]record.Record, error) {
	if isNull(raw) {
		return []record.Record{}, nil
	}
	var records []record.Record
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if records == nil {
		records = []record.Record{}
	}
	return records, nil
}

func decodeRecord(raw json.RawMessage) (record.Record, error) {
	if isNull(raw) {
		return nil, nil
	}
	var rec record.Record
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// isRetryable retries throttling and server-side failures only
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
