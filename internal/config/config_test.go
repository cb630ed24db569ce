package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quickelt/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "landing:\n  bronze_root: /tmp/bronze\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/bronze", cfg.Landing.BronzeRoot)
	assert.Equal(t, "./data/metadata", cfg.Landing.MetadataRoot)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.False(t, cfg.Server.Enabled)
}

func TestLoadFullSource(t *testing.T) {
	path := writeConfig(t, `
landing:
  bronze_root: /data/bronze
  metadata_root: /data/metadata
  unique_suffix: true
retry:
  max_attempts: 5
  base_delay: 1s
sources:
  - name: orders
    kind: api
    origin: api
    framework: requests
    format: parquet
    strict: true
    enabled: true
    contract:
      - name: id
        type: integer
      - name: total
        type: float
        optional: true
    api:
      url: https://example.com/orders
      token: secret
      requests_per_second: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sources, 1)

	src := cfg.Sources[0]
	assert.Equal(t, "orders", src.Name)
	assert.Equal(t, "api", src.Kind)
	assert.Equal(t, "parquet", src.Format)
	assert.True(t, src.Strict)
	assert.Equal(t, "https://example.com/orders", src.API.URL)
	assert.Equal(t, 2.0, src.API.RequestsPerSecond)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.Landing.UniqueSuffix)

	contract, err := src.ToContract()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "total"}, contract.FieldNames())
	assert.Equal(t, model.FieldTypeFloat, contract.Fields[1].Type)
	assert.True(t, contract.Fields[1].Optional)
}

func TestLoadRejectsBadFieldType(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: orders
    kind: api
    origin: api
    framework: requests
    format: csv
    contract:
      - name: id
        type: decimal
`)

	_, err := Load(path)
	require.Error(t, err)
	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: orders
    kind: ftp
    origin: ftp
    framework: requests
    format: csv
    contract:
      - name: id
        type: integer
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsDuplicateSourceNames(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: orders
    kind: api
    origin: api
    framework: requests
    format: csv
    contract:
      - name: id
        type: integer
  - name: orders
    kind: csv
    origin: local
    framework: pandas
    format: csv
    contract:
      - name: id
        type: integer
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate source name")
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("QUICKELT_LOGGING_LEVEL", "debug")
	path := writeConfig(t, "landing:\n  bronze_root: /tmp/bronze\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
