package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickelt/internal/pipeline"
)

func TestFetchDecodesTopLevelArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Write([]byte(`[{"id":1,"name":"a","price":1.5},{"id":2,"name":"b","price":2.5}]`))
	}))
	defer srv.Close()

	f := NewFetcher(Config{URL: srv.URL, Token: "secret", Framework: "quickelt"}, nil)
	batch, err := f.Fetch(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, batch.RowCount())
	assert.Equal(t, []string{"id", "name", "price"}, batch.Columns)
}

func TestFetchDecodesResultsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"count":1,"results":[{"id":1,"name":"a"}]}`))
	}))
	defer srv.Close()

	f := NewFetcher(Config{URL: srv.URL, Framework: "quickelt"}, nil)
	batch, err := f.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, batch.RowCount())
}

func TestFetchClassifiesServerErrorsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(Config{URL: srv.URL, Framework: "quickelt"}, nil)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.True(t, pipeline.IsTransient(err))
}

func TestFetchClassifiesClientErrorsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(Config{URL: srv.URL, Framework: "quickelt"}, nil)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, pipeline.IsTransient(err))
}

func TestFetchMalformedBodyIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected": "shape"}`))
	}))
	defer srv.Close()

	f := NewFetcher(Config{URL: srv.URL, Framework: "quickelt"}, nil)
	_, err := f.Fetch(context.Background())
	require.Error(t, err)
	assert.False(t, pipeline.IsTransient(err))
}
