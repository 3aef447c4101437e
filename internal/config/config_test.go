package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "sqlite", cfg.Store.LexicalBackend)
	assert.False(t, cfg.Rerank.Enabled, "reranking is fail-safe-off by default")
	assert.Equal(t, 25, cfg.Rerank.Threshold)
	assert.Equal(t, 40, cfg.Rerank.MaxCandidates)
	assert.Equal(t, "17 3 * * *", cfg.Maintenance.Schedule)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.LexicalBackend)
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  data_dir: /tmp/echo-test
  lexical_backend: bleve
model:
  binary: nlp-helper
  args: ["--json"]
rerank:
  enabled: true
  threshold: 10
  timeout: 2.5
maintenance:
  watch_path: /tmp/entries.jsonl
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/echo-test", cfg.Store.DataDir)
	assert.Equal(t, "bleve", cfg.Store.LexicalBackend)
	assert.Equal(t, "nlp-helper", cfg.Model.Binary)
	assert.Equal(t, []string{"--json"}, cfg.Model.Args)
	assert.True(t, cfg.Rerank.Enabled)
	assert.Equal(t, 10, cfg.Rerank.Threshold)
	assert.Equal(t, 2500*time.Millisecond, cfg.Rerank.Timeout())
	assert.Equal(t, "/tmp/entries.jsonl", cfg.Maintenance.WatchPath)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  lexical_backend: sqlite\n"), 0o644))

	t.Setenv("ECHOSEARCH_LEXICAL_BACKEND", "bleve")
	t.Setenv("ECHOSEARCH_DATA_DIR", "/tmp/env-dir")
	t.Setenv("ECHOSEARCH_RERANK_ENABLED", "true")
	t.Setenv("ECHOSEARCH_RERANK_THRESHOLD", "15")
	t.Setenv("ECHOSEARCH_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bleve", cfg.Store.LexicalBackend)
	assert.Equal(t, "/tmp/env-dir", cfg.Store.DataDir)
	assert.True(t, cfg.Rerank.Enabled)
	assert.Equal(t, 15, cfg.Rerank.Threshold)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestEnvOverrideInvalidValuesIgnored(t *testing.T) {
	t.Setenv("ECHOSEARCH_RERANK_ENABLED", "definitely")
	t.Setenv("ECHOSEARCH_RERANK_THRESHOLD", "-5")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.False(t, cfg.Rerank.Enabled)
	assert.Equal(t, 25, cfg.Rerank.Threshold)
}

func TestNormalizeCapsRerankCandidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rerank:\n  max_candidates: 500\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Rerank.MaxCandidates)
}

func TestRerankTimeoutDefault(t *testing.T) {
	assert.Equal(t, 4*time.Second, RerankConfig{}.Timeout())
	assert.Equal(t, 4*time.Second, RerankConfig{TimeoutSeconds: -1}.Timeout())
}

func TestStorePath(t *testing.T) {
	cfg := Default()
	cfg.Store.DataDir = "/data/echo"
	assert.Equal(t, filepath.Join("/data/echo", "echo.db"), cfg.StorePath())
}
