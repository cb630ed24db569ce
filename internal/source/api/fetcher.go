// Package api fetches tabular batches from JSON HTTP APIs. The response may
// be a top-level array of objects or an object carrying the rows under a
// "results" key.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"quickelt/internal/model"
	"quickelt/internal/pipeline"
)

// Config holds the API source settings.
type Config struct {
	URL       string
	Token     string
	Framework string
	Timeout   time.Duration
	// RequestsPerSecond throttles outgoing requests; zero disables the
	// limiter.
	RequestsPerSecond float64
}

// Fetcher pulls one JSON payload per run and converts it to a batch.
type Fetcher struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewFetcher creates an API fetcher.
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return &Fetcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		logger:  logger,
	}
}

// Origin implements pipeline.Fetcher.
func (f *Fetcher) Origin() string { return string(model.SourceKindAPI) }

// Framework implements pipeline.Fetcher.
func (f *Fetcher) Framework() string { return f.cfg.Framework }

// Extra implements pipeline.Fetcher.
func (f *Fetcher) Extra() map[string]interface{} {
	return map[string]interface{}{"query": f.cfg.URL}
}

// Fetch performs one GET and decodes the rows. Server-side (5xx) and
// connection failures are transient; client errors (4xx) and malformed
// bodies are permanent.
func (f *Fetcher) Fetch(ctx context.Context) (*model.Batch, error) {
	op := "GET " + f.cfg.URL

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, pipeline.Permanent(op, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.cfg.URL, nil)
	if err != nil {
		return nil, pipeline.Permanent(op, err)
	}
	req.Header.Set("Accept", "application/json")
	if f.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+f.cfg.Token)
	}

	f.logger.Info("sending API request", zap.String("url", f.cfg.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, pipeline.Transient(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return nil, pipeline.Transient(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		io.Copy(io.Discard, resp.Body)
		return nil, pipeline.Permanent(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	records, err := decodeRecords(resp.Body)
	if err != nil {
		return nil, pipeline.Permanent(op, err)
	}

	batch := model.BatchFromRecords(records)
	f.logger.Info("API response decoded",
		zap.Int("rows", batch.RowCount()),
		zap.Int("columns", batch.ColumnCount()))
	return batch, nil
}

// decodeRecords accepts either a JSON array of objects or an object whose
// "results" key holds the array.
func decodeRecords(r io.Reader) ([]model.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var payload interface{}
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("malformed response body: %w", err)
	}

	var rows []interface{}
	switch v := payload.(type) {
	case []interface{}:
		rows = v
	case map[string]interface{}:
		results, ok := v["results"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("unrecognized response shape: no results array")
		}
		rows = results
	default:
		return nil, fmt.Errorf("unrecognized response shape: %T", payload)
	}

	records := make([]model.Record, 0, len(rows))
	for i, row := range rows {
		obj, ok := row.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("row %d is not an object", i)
		}
		records = append(records, model.Record(obj))
	}
	return records, nil
}
