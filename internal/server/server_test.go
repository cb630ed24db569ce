package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"quickelt/internal/catalog"
	"quickelt/internal/config"
	"quickelt/internal/model"
	"quickelt/internal/pipeline"
)

type fakeIngestor struct {
	results map[string][]pipeline.RunResult
}

func (f *fakeIngestor) RunByName(ctx context.Context, name string) ([]pipeline.RunResult, error) {
	runs, ok := f.results[name]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", name)
	}
	return runs, nil
}

type fakeRepo struct {
	byID map[string]*model.SourceDefinition
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{byID: map[string]*model.SourceDefinition{}}
}

func (r *fakeRepo) Create(ctx context.Context, src *model.SourceDefinition) error {
	if src.ID == "" {
		src.ID = fmt.Sprintf("id-%d", len(r.byID)+1)
	}
	r.byID[src.ID] = src
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id string) (*model.SourceDefinition, error) {
	src, ok := r.byID[id]
	if !ok {
		return nil, catalog.ErrSourceNotFound
	}
	return src, nil
}

func (r *fakeRepo) GetAll(ctx context.Context, limit, offset int) ([]*model.SourceDefinition, int64, error) {
	var out []*model.SourceDefinition
	for _, src := range r.byID {
		out = append(out, src)
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) Update(ctx context.Context, src *model.SourceDefinition) error {
	r.byID[src.ID] = src
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func newTestServer(t *testing.T, ingestor Ingestor, repo catalog.SourceRepository) *Server {
	t.Helper()
	return New(config.ServerConfig{Mode: "test"}, zap.NewNop(),
		prometheus.NewRegistry(), ingestor, repo)
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Engine().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &fakeIngestor{}, nil)
	w := doRequest(s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, &fakeIngestor{}, nil)
	doRequest(s, http.MethodGet, "/health", "")

	w := doRequest(s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "quickelt_http_requests_total")
}

func TestIngestSuccess(t *testing.T) {
	ing := &fakeIngestor{results: map[string][]pipeline.RunResult{
		"orders": {{Status: model.RunStatusSuccess, Rows: 10}},
	}}
	s := newTestServer(t, ing, nil)

	w := doRequest(s, http.MethodPost, "/api/v1/ingest/orders", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Success bool `json:"success"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Success)
}

func TestIngestUnknownSource(t *testing.T) {
	s := newTestServer(t, &fakeIngestor{}, nil)
	w := doRequest(s, http.MethodPost, "/api/v1/ingest/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestIngestRunFailure(t *testing.T) {
	ing := &fakeIngestor{results: map[string][]pipeline.RunResult{
		"orders": {{Status: model.RunStatusFailure}},
	}}
	s := newTestServer(t, ing, nil)

	w := doRequest(s, http.MethodPost, "/api/v1/ingest/orders", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "RUN_FAILED")
}

func TestSourcesUnavailableWithoutCatalog(t *testing.T) {
	s := newTestServer(t, &fakeIngestor{}, nil)
	w := doRequest(s, http.MethodGet, "/api/v1/sources", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSourceCRUD(t *testing.T) {
	repo := newFakeRepo()
	s := newTestServer(t, &fakeIngestor{}, repo)

	body := `{"name":"orders","kind":"api","origin":"api","framework":"requests","contract":"orders","format":"csv"}`
	w := doRequest(s, http.MethodPost, "/api/v1/sources", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Data model.SourceDefinition `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)

	w = doRequest(s, http.MethodGet, "/api/v1/sources/"+created.Data.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"orders"`)

	w = doRequest(s, http.MethodGet, "/api/v1/sources", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	update := `{"name":"orders","kind":"api","origin":"api","framework":"httpx","contract":"orders","format":"csv"}`
	w = doRequest(s, http.MethodPut, "/api/v1/sources/"+created.Data.ID, update)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "httpx")

	w = doRequest(s, http.MethodDelete, "/api/v1/sources/"+created.Data.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(s, http.MethodGet, "/api/v1/sources/"+created.Data.ID, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateSourceRejectsBadKind(t *testing.T) {
	s := newTestServer(t, &fakeIngestor{}, newFakeRepo())
	body := `{"name":"orders","kind":"ftp","origin":"x","framework":"y","contract":"orders"}`
	w := doRequest(s, http.MethodPost, "/api/v1/sources", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid source kind")
}

func TestAuthRequired(t *testing.T) {
	cfg := config.ServerConfig{Mode: "test", EnableAuth: true, JWTSecret: "test-secret"}
	s := New(cfg, zap.NewNop(), prometheus.NewRegistry(), &fakeIngestor{
		results: map[string][]pipeline.RunResult{
			"orders": {{Status: model.RunStatusSuccess}},
		},
	}, nil)

	w := doRequest(s, http.MethodPost, "/api/v1/ingest/orders", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	jwtManager := NewJWTManager("test-secret", time.Hour)
	token, err := jwtManager.GenerateToken("u1", "operator")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTRoundTrip(t *testing.T) {
	jwtManager := NewJWTManager("secret", time.Hour)
	token, err := jwtManager.GenerateToken("u1", "operator")
	require.NoError(t, err)

	claims, err := jwtManager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "operator", claims.Username)

	other := NewJWTManager("different", time.Hour)
	_, err = other.ValidateToken(token)
	require.Error(t, err)
}
