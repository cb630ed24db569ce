package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickelt/internal/pipeline"
)

const articlePage = `<!DOCTYPE html>
<html><body>
<h1>Articles</h1>
<table>
  <tr><th>article_id</th><th>title</th><th>url</th></tr>
  <tr><td>1</td><td>First post</td><td>https://example.com/1</td></tr>
  <tr><td>2</td><td>Segundo post — ação</td><td>https://example.com/2</td></tr>
</table>
</body></html>`

func TestFetchExtractsFirstTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	f := NewFetcher(Config{URL: srv.URL, Framework: "quickelt"}, nil)
	batch, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"article_id", "title", "url"}, batch.Columns)
	require.Equal(t, 2, batch.RowCount())
	assert.Equal(t, "1", batch.Records[0]["article_id"])
	assert.Equal(t, "Segundo post — ação", batch.Records[1]["title"])
}

func TestFetchPageWithoutTableIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>no tables here</p></body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(Config{URL: srv.URL, Framework: "quickelt"}, nil)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, pipeline.IsTransient(err))
}

func TestFetchServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewFetcher(Config{URL: srv.URL, Framework: "quickelt"}, nil)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, pipeline.IsTransient(err))
}

func TestFetchSkipsNestedTableRows(t *testing.T) {
	page := `<!DOCTYPE html>
<html><body>
<table>
  <tr><th>region</th><th>total</th></tr>
  <tr><td>north</td><td>10</td></tr>
  <tr><td>
    <table>
      <tr><td>sub_a</td><td>3</td></tr>
      <tr><td>sub_b</td><td>7</td></tr>
    </table>
  </td><td>ignored</td></tr>
  <tr><td>south</td><td>20</td></tr>
</table>
</body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	f := NewFetcher(Config{URL: srv.URL, Framework: "quickelt"}, nil)
	batch, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "total"}, batch.Columns)
	require.Equal(t, 3, batch.RowCount())
	assert.Equal(t, "north", batch.Records[0]["region"])
	assert.Equal(t, "south", batch.Records[2]["region"])
	for _, rec := range batch.Records {
		assert.NotEqual(t, "sub_a", rec["region"])
		assert.NotEqual(t, "sub_b", rec["region"])
	}
}

func TestFetchRaggedRowsArePadded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<table><tr><th>a</th><th>b</th></tr><tr><td>1</td></tr></table>`))
	}))
	defer srv.Close()

	f := NewFetcher(Config{URL: srv.URL, Framework: "quickelt"}, nil)
	batch, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "", batch.Records[0]["b"])
}
