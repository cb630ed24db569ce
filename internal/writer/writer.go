// Package writer serializes validated batches to bronze data files. Every
// format writes to a temporary file in the target directory and renames it
// into place only after the full batch is serialized, so a crash mid-write
// never leaves a truncated file at the final path.
package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"quickelt/internal/model"
)

// WriteError reports a failed bronze write: unsupported format, directory
// problems, or a serialization failure.
type WriteError struct {
	Path   string
	Format model.DataFormat
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s (%s): %v", e.Path, e.Format, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// WriteResult reports what landed.
type WriteResult struct {
	Rows    int
	Columns int
}

// Writer lands validated batches as CSV, Parquet or Avro files.
type Writer struct {
	logger *zap.Logger
}

// NewWriter creates a writer.
func NewWriter(logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{logger: logger}
}

// Write serializes the batch to dataFilePath in the given format.
func (w *Writer) Write(ctx context.Context, vb *model.ValidatedBatch, dataFilePath string, format model.DataFormat) (*WriteResult, error) {
	var serialize func(*model.ValidatedBatch, string) error
	switch format {
	case model.FormatCSV:
		serialize = writeCSV
	case model.FormatParquet:
		serialize = writeParquet
	case model.FormatAvro:
		serialize = writeAvro
	default:
		return nil, &WriteError{Path: dataFilePath, Format: format, Err: fmt.Errorf("unsupported format")}
	}

	if err := ctx.Err(); err != nil {
		return nil, &WriteError{Path: dataFilePath, Format: format, Err: err}
	}

	dir := filepath.Dir(dataFilePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &WriteError{Path: dataFilePath, Format: format, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dataFilePath)+".tmp-*")
	if err != nil {
		return nil, &WriteError{Path: dataFilePath, Format: format, Err: err}
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := serialize(vb, tmpPath); err != nil {
		os.Remove(tmpPath)
		return nil, &WriteError{Path: dataFilePath, Format: format, Err: err}
	}

	if err := os.Rename(tmpPath, dataFilePath); err != nil {
		os.Remove(tmpPath)
		return nil, &WriteError{Path: dataFilePath, Format: format, Err: err}
	}

	w.logger.Info("data file written",
		zap.String("path", dataFilePath),
		zap.String("format", string(format)),
		zap.Int("rows", vb.RowCount()),
		zap.Int("columns", vb.ColumnCount()))

	return &WriteResult{Rows: vb.RowCount(), Columns: vb.ColumnCount()}, nil
}
