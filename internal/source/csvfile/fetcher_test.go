package csvfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickelt/internal/pipeline"
)

func TestFetchReadsHeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,name,price\n1,a,1.5\n2,b,2.5\n"), 0o644))

	f := NewFetcher(Config{Path: path, Framework: "quickelt"}, nil)
	batch, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name", "price"}, batch.Columns)
	assert.Equal(t, 2, batch.RowCount())
	assert.Equal(t, "1", batch.Records[0]["id"])
	assert.Equal(t, "2.5", batch.Records[1]["price"])
}

func TestFetchSupportsCustomDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")
	require.NoError(t, os.WriteFile(path, []byte("id;name\n1;a\n"), 0o644))

	f := NewFetcher(Config{Path: path, Framework: "quickelt", Delimiter: ';'}, nil)
	batch, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, batch.Columns)
}

func TestFetchMissingFileIsPermanent(t *testing.T) {
	f := NewFetcher(Config{Path: "/nonexistent/products.csv", Framework: "quickelt"}, nil)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, pipeline.IsTransient(err))
}

func TestFetchEmptyFileIsPermanent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	f := NewFetcher(Config{Path: path, Framework: "quickelt"}, nil)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, pipeline.IsTransient(err))
}
