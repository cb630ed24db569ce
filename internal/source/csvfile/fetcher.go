// Package csvfile fetches tabular batches from local CSV files. The first
// row is the header.
package csvfile

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"

	"go.uber.org/zap"

	"quickelt/internal/model"
	"quickelt/internal/pipeline"
)

// Config holds the CSV source settings.
type Config struct {
	Path      string
	Framework string
	// Delimiter defaults to comma.
	Delimiter rune
}

// Fetcher reads one CSV file per run.
type Fetcher struct {
	cfg    Config
	logger *zap.Logger
}

// NewFetcher creates a CSV file fetcher.
func NewFetcher(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

// Origin implements pipeline.Fetcher.
func (f *Fetcher) Origin() string { return string(model.SourceKindCSV) }

// Framework implements pipeline.Fetcher.
func (f *Fetcher) Framework() string { return f.cfg.Framework }

// Extra implements pipeline.Fetcher.
func (f *Fetcher) Extra() map[string]interface{} {
	return map[string]interface{}{"source_file": f.cfg.Path}
}

// Fetch reads the whole file. Local filesystem failures do not improve with
// retries, so every error is permanent.
func (f *Fetcher) Fetch(ctx context.Context) (*model.Batch, error) {
	op := "read " + f.cfg.Path

	if err := ctx.Err(); err != nil {
		return nil, pipeline.Permanent(op, err)
	}

	file, err := os.Open(f.cfg.Path)
	if err != nil {
		return nil, pipeline.Permanent(op, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if f.cfg.Delimiter != 0 {
		reader.Comma = f.cfg.Delimiter
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, pipeline.Permanent(op, err)
	}
	if len(rows) == 0 {
		return nil, pipeline.Permanent(op, fmt.Errorf("file has no header row"))
	}

	header := rows[0]
	records := make([]model.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(model.Record, len(header))
		for i, col := range header {
			rec[col] = row[i]
		}
		records = append(records, rec)
	}

	f.logger.Info("CSV file read",
		zap.String("path", f.cfg.Path),
		zap.Int("rows", len(records)),
		zap.Int("columns", len(header)))

	return model.NewBatch(header, records), nil
}
