package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"quickelt/internal/model"
	"quickelt/internal/pipeline"
)

// Config holds the database source settings.
type Config struct {
	Type      string
	Host      string
	Port      int
	Database  string
	Username  string
	Password  string
	SSL       bool
	Query     string
	Framework string
	Timeout   time.Duration
}

// Fetcher runs one read-only query per run and converts the result set to
// a batch.
type Fetcher struct {
	cfg      Config
	registry *Registry
	logger   *zap.Logger
}

// NewFetcher creates a database fetcher. The query is checked for read-only
// safety up front so misconfiguration fails before any connection attempt.
func NewFetcher(cfg Config, registry *Registry, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = NewRegistry()
	}
	if !registry.IsSupported(cfg.Type) {
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err := ValidateReadOnly(cfg.Query); err != nil {
		return nil, fmt.Errorf("invalid ingestion query: %w", err)
	}
	if cfg.Port == 0 {
		driver, _ := registry.GetDriver(cfg.Type)
		cfg.Port = driver.GetDefaultPort()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Fetcher{cfg: cfg, registry: registry, logger: logger}, nil
}

// Origin implements pipeline.Fetcher.
func (f *Fetcher) Origin() string { return string(model.SourceKindDatabase) }

// Framework implements pipeline.Fetcher.
func (f *Fetcher) Framework() string { return f.cfg.Framework }

// Extra implements pipeline.Fetcher.
func (f *Fetcher) Extra() map[string]interface{} {
	return map[string]interface{}{"query": f.cfg.Query}
}

// Fetch opens a connection, runs the query and scans the full result set.
// Unreachable databases are transient; query execution failures are
// permanent.
func (f *Fetcher) Fetch(ctx context.Context) (*model.Batch, error) {
	op := fmt.Sprintf("query %s@%s", f.cfg.Type, f.cfg.Host)

	driver, err := f.registry.GetDriver(f.cfg.Type)
	if err != nil {
		return nil, pipeline.Permanent(op, err)
	}

	db, err := driver.Open(driver.BuildDSN(ConnConfig{
		Host:     f.cfg.Host,
		Port:     f.cfg.Port,
		Database: f.cfg.Database,
		Username: f.cfg.Username,
		Password: f.cfg.Password,
		SSL:      f.cfg.SSL,
	}))
	if err != nil {
		return nil, pipeline.Permanent(op, err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, pipeline.Transient(op, fmt.Errorf("database unavailable: %w", err))
	}

	f.logger.Info("executing ingestion query",
		zap.String("type", f.cfg.Type),
		zap.String("host", f.cfg.Host))

	rows, err := db.QueryContext(ctx, f.cfg.Query)
	if err != nil {
		return nil, pipeline.Permanent(op, err)
	}
	defer rows.Close()

	batch, err := scanRows(rows)
	if err != nil {
		return nil, pipeline.Permanent(op, err)
	}

	f.logger.Info("query returned",
		zap.Int("rows", batch.RowCount()),
		zap.Int("columns", batch.ColumnCount()))
	return batch, nil
}

// scanRows converts a result set to a batch, normalizing []byte cells to
// strings so later type coercion sees text.
func scanRows(rows *sql.Rows) (*model.Batch, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var records []model.Record
	values := make([]interface{}, len(columns))
	scanTargets := make([]interface{}, len(columns))
	for i := range values {
		scanTargets[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", len(records), err)
		}
		rec := make(model.Record, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				rec[col] = string(v)
			default:
				rec[col] = v
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("result iteration failed: %w", err)
	}

	return model.NewBatch(columns, records), nil
}
