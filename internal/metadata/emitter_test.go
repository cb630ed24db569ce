package metadata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickelt/internal/model"
)

func TestEmitWritesRequiredKeys(t *testing.T) {
	e := NewEmitter(nil)
	path := filepath.Join(t.TempDir(), "api_quickelt_2026-08-26_143005_metadata.json")

	err := e.Emit(path, &Record{
		Origin:      "api",
		Framework:   "quickelt",
		Timestamp:   "2026-08-26_143005",
		Status:      model.RunStatusSuccess,
		DataFile:    "/data/bronze/api_quickelt_2026-08-26_143005.csv",
		Rows:        1,
		Columns:     3,
		ColumnTypes: map[string]string{"id": "integer", "name": "string", "price": "float"},
		Extra:       map[string]interface{}{"query": "SELECT * FROM products"},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))

	for _, key := range []string{"origin", "framework", "timestamp", "status", "data_file", "rows", "columns", "columns_types", "query"} {
		assert.Contains(t, payload, key)
	}
	assert.Equal(t, "success", payload["status"])
	assert.Equal(t, float64(1), payload["rows"])
	assert.Equal(t, "SELECT * FROM products", payload["query"])
}

func TestEmitPreservesNonASCII(t *testing.T) {
	e := NewEmitter(nil)
	path := filepath.Join(t.TempDir(), "meta.json")

	err := e.Emit(path, &Record{
		Origin:    "csv",
		Framework: "quickelt",
		Timestamp: "2026-08-26_143005",
		Status:    model.RunStatusFailure,
		Extra:     map[string]interface{}{"error": "falha na validação"},
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "falha na validação")
	assert.NotContains(t, string(raw), `\u00e7`)
}

func TestEmitPrettyPrints(t *testing.T) {
	e := NewEmitter(nil)
	path := filepath.Join(t.TempDir(), "meta.json")

	require.NoError(t, e.Emit(path, &Record{
		Origin:    "scrape",
		Framework: "quickelt",
		Timestamp: "2026-08-26_143005",
		Status:    model.RunStatusSuccess,
	}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "\n    \""))
}

func TestEmitOverwritesExistingSidecar(t *testing.T) {
	e := NewEmitter(nil)
	path := filepath.Join(t.TempDir(), "meta.json")

	rec := &Record{Origin: "api", Framework: "quickelt", Timestamp: "x", Status: model.RunStatusFailure}
	require.NoError(t, e.Emit(path, rec))

	rec.Status = model.RunStatusSuccess
	require.NoError(t, e.Emit(path, rec))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "success", payload["status"])
}
