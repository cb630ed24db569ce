package writer

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/linkedin/goavro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	pqreader "github.com/xitongsys/parquet-go/reader"

	"quickelt/internal/model"
)

func validatedProducts(t *testing.T) *model.ValidatedBatch {
	t.Helper()
	c, err := model.NewContract("product", []model.Field{
		{Name: "id", Type: model.FieldTypeInteger},
		{Name: "name", Type: model.FieldTypeString},
		{Name: "price", Type: model.FieldTypeFloat},
	})
	require.NoError(t, err)
	return &model.ValidatedBatch{
		Contract: c,
		Records: []model.Record{
			{"id": int64(1), "name": "café", "price": 1.5},
			{"id": int64(2), "name": "b", "price": 2.75},
		},
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	w := NewWriter(nil)
	path := filepath.Join(t.TempDir(), "product_quickelt_2026-08-26_143005.csv")

	res, err := w.Write(context.Background(), validatedProducts(t), path, model.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.Equal(t, 3, res.Columns)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "name", "price"}, rows[0])
	assert.Equal(t, []string{"1", "café", "1.5"}, rows[1])
	assert.Equal(t, []string{"2", "b", "2.75"}, rows[2])
}

func TestWriteParquetRoundTrip(t *testing.T) {
	w := NewWriter(nil)
	path := filepath.Join(t.TempDir(), "product_quickelt_2026-08-26_143005.parquet")

	res, err := w.Write(context.Background(), validatedProducts(t), path, model.FormatParquet)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)

	pf, err := newLocalParquetFile().Open(path)
	require.NoError(t, err)
	defer pf.Close()

	pr, err := pqreader.NewParquetReader(pf, nil, 4)
	require.NoError(t, err)
	defer pr.ReadStop()

	assert.Equal(t, int64(2), pr.GetNumRows())
}

func TestParquetFileReopensSelf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.parquet")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	pf, err := newLocalParquetFile().Open(path)
	require.NoError(t, err)
	defer pf.Close()

	// parquet-go requests extra handles on the same data by passing an
	// empty name.
	again, err := pf.Open("")
	require.NoError(t, err)
	defer again.Close()

	buf := make([]byte, 1)
	n, err := again.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, byte('x'), buf[0])
}

func TestWriteAvroRoundTrip(t *testing.T) {
	w := NewWriter(nil)
	path := filepath.Join(t.TempDir(), "product_quickelt_2026-08-26_143005.avro")

	res, err := w.Write(context.Background(), validatedProducts(t), path, model.FormatAvro)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ocf, err := goavro.NewOCFReader(f)
	require.NoError(t, err)

	var count int
	for ocf.Scan() {
		_, err := ocf.Read()
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 2, count)
}

func TestWriteUnsupportedFormat(t *testing.T) {
	w := NewWriter(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "product.orc")

	_, err := w.Write(context.Background(), validatedProducts(t), path, model.DataFormat("orc"))
	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr))

	// Nothing lands on a failed write, not even a temp file.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWriteLeavesNoTempFileBehind(t *testing.T) {
	w := NewWriter(nil)
	dir := t.TempDir()
	path := filepath.Join(dir, "product.csv")

	_, err := w.Write(context.Background(), validatedProducts(t), path, model.FormatCSV)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "product.csv", entries[0].Name())
}
