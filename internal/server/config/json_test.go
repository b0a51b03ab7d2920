package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func TestParseJSON_Overlay(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"endpoint_addr_grpc":    "www.example:9000",
		"database_dsn":          "postgres://db/docs",
		"max_file_size":         4096,
		"allowed_extensions":    []string{".pdf"},
		"content_store":         "none",
		"content_store_timeout": "3s",
		"ledger_timeout":        int64(90 * time.Second),
	})

	var c Config
	c.LoadDefaults()
	require.NoError(t, parseJSON(&c, []string{"-config", path}))

	assert.Equal(t, "www.example:9000", c.EndpointAddrGRPC)
	assert.Equal(t, "postgres://db/docs", c.DatabaseDSN)
	assert.Equal(t, int64(4096), c.MaxFileSize)
	assert.Equal(t, []string{".pdf"}, c.AllowedExtensions)
	assert.Equal(t, ContentStoreNone, c.ContentStore)
	assert.Equal(t, 3*time.Second, c.ContentStoreTimeout)
	assert.Equal(t, 90*time.Second, c.LedgerTimeout)
	assert.Equal(t, "secretKey", c.SecretKey, "absent keys keep earlier values")
}

func TestParseJSON_NoFile(t *testing.T) {
	var c Config
	c.LoadDefaults()
	want := c

	require.NoError(t, parseJSON(&c, []string{"-a", ":1"}))
	assert.Equal(t, want, c)
}

func TestParseJSON_Errors(t *testing.T) {
	var c Config

	err := parseJSON(&c, []string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	require.ErrorContains(t, err, "read config")

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))
	err = parseJSON(&c, []string{"-c", bad})
	require.ErrorContains(t, err, "parse config")
}
