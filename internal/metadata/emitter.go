// Package metadata writes the JSON sidecar describing one bronze landing.
// Every terminal run state, success or failure, gets exactly one sidecar so
// each ingestion attempt stays auditable.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"quickelt/internal/model"
)

// MetadataError reports a failure to write the sidecar. The data file
// already written must not be lost because of it; drivers log a warning and
// keep the data write's outcome.
type MetadataError struct {
	Path string
	Err  error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("emit metadata %s: %v", e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error {
	return e.Err
}

// Record is the sidecar payload for one write artifact. Created once at the
// end of a run, never mutated afterward.
type Record struct {
	Origin      string
	Framework   string
	Timestamp   string
	Status      model.RunStatus
	DataFile    string
	Rows        int
	Columns     int
	ColumnTypes map[string]string
	// Extra carries source-specific entries such as query, scraping_url,
	// sharepoint_path or error detail.
	Extra map[string]interface{}
}

// Emitter writes metadata sidecars.
type Emitter struct {
	logger *zap.Logger
}

// NewEmitter creates an emitter.
func NewEmitter(logger *zap.Logger) *Emitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Emitter{logger: logger}
}

// Emit serializes the record as pretty-printed UTF-8 JSON at path,
// preserving non-ASCII characters. Re-emitting to the same path overwrites
// it; the path namer yields a fresh path per run, so this only matters when
// a caller retries emission itself.
func (e *Emitter) Emit(path string, rec *Record) error {
	payload := map[string]interface{}{
		"origin":        rec.Origin,
		"framework":     rec.Framework,
		"timestamp":     rec.Timestamp,
		"status":        string(rec.Status),
		"data_file":     rec.DataFile,
		"rows":          rec.Rows,
		"columns":       rec.Columns,
		"columns_types": rec.ColumnTypes,
	}
	if rec.ColumnTypes == nil {
		payload["columns_types"] = map[string]string{}
	}
	for k, v := range rec.Extra {
		payload[k] = v
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(payload); err != nil {
		return &MetadataError{Path: path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &MetadataError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return &MetadataError{Path: path, Err: err}
	}

	e.logger.Info("metadata written",
		zap.String("path", path),
		zap.String("origin", rec.Origin),
		zap.String("status", string(rec.Status)))

	return nil
}
