package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajasatyajit/EcoScan/config"
	"github.com/rajasatyajit/EcoScan/internal/logger"
	"github.com/rajasatyajit/EcoScan/internal/service"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	logger.InitWithWriter(io.Discard, "error", "text")

	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{ReadTimeout: 5 * time.Second, AllowedOrigins: []string{"*"}},
		Store: config.StoreConfig{
			Backend: config.BackendFile,
			Path:    filepath.Join(dir, "ledger.json"),
		},
		Resolver: config.ResolverConfig{RateLimit: 60, MaxConcurrent: 1},
	}
}

func TestNew_ScanPersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := New(ctx, cfg, WithRemote(nil))
	require.NoError(t, err)

	_, err = a.Service.Scan(ctx, "8901234567890")
	require.NoError(t, err)
	require.NoError(t, a.Close())

	restarted, err := New(ctx, cfg, WithRemote(nil))
	require.NoError(t, err)
	defer restarted.Close()

	assert.Equal(t, 1, restarted.Ledger.Len())
	assert.Equal(t, 10, restarted.Ledger.Points())
}

func TestNew_BadCatalogPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestRouter_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, WithRemote(nil))
	require.NoError(t, err)
	defer a.Close()

	srv := httptest.NewServer(a.Router(BuildInfo{Version: "test"}))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/v1/scans", "application/json", strings.NewReader(`{"product_id":"8901111222333"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var result service.ScanResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "catalog", result.Product.Source)
	assert.Equal(t, 10, result.Points)

	ready, err := http.Get(srv.URL + "/v1/health/ready")
	require.NoError(t, err)
	ready.Body.Close()
	assert.Equal(t, http.StatusOK, ready.StatusCode)

	missing, err := http.Get(srv.URL + "/v1/products/0000000000000")
	require.NoError(t, err)
	missing.Body.Close()
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}
