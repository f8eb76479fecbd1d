package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv points user config and env overrides away from the host.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{
		"MAKTABAMCP_DATA_DIR", "MAKTABAMCP_SEARCH_MODE", "MAKTABAMCP_MAX_RESULTS",
		"MAKTABAMCP_EMBEDDER", "MAKTABAMCP_OLLAMA_HOST", "MAKTABAMCP_OLLAMA_MODEL",
		"MAKTABAMCP_LOG_LEVEL", "MAKTABAMCP_TRANSPORT", "MAKTABAMCP_TELEMETRY",
	} {
		t.Setenv(key, "")
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "balanced", cfg.Search.Mode)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, 5, cfg.Search.NearWindow)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.NotEmpty(t, cfg.DataDir)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNoConfigFiles(t *testing.T) {
	isolateEnv(t)

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "balanced", cfg.Search.Mode)
}

func TestLoadProjectConfig(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	yaml := `
version: 1
data_dir: /tmp/maktaba-test
collections:
  - name: bukhari
    path: data/bukhari.jsonl
  - name: muslim
    path: data/muslim.jsonl
search:
  mode: term-priority
  max_results: 25
embeddings:
  provider: static
server:
  log_level: warn
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".maktabamcp.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/maktaba-test", cfg.DataDir)
	require.Len(t, cfg.Collections, 2)
	assert.Equal(t, "bukhari", cfg.Collections[0].Name)
	assert.Equal(t, "term-priority", cfg.Search.Mode)
	assert.Equal(t, 25, cfg.Search.MaxResults)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.Equal(t, "warn", cfg.Server.LogLevel)

	// Unset fields keep defaults.
	assert.Equal(t, 5, cfg.Search.NearWindow)
	assert.Equal(t, "stdio", cfg.Server.Transport)
}

func TestLoadYMLFallback(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".maktabamcp.yml"),
		[]byte("search:\n  max_results: 7\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.MaxResults)
}

func TestLoadUserConfigMerged(t *testing.T) {
	isolateEnv(t)

	userDir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "maktabamcp")
	require.NoError(t, os.MkdirAll(userDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(userDir, "config.yaml"),
		[]byte("search:\n  mode: term-priority\n  max_results: 30\n"), 0o644))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".maktabamcp.yaml"),
		[]byte("search:\n  max_results: 15\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	// Project config wins over user config; user config wins over defaults.
	assert.Equal(t, 15, cfg.Search.MaxResults)
	assert.Equal(t, "term-priority", cfg.Search.Mode)
}

func TestLoadEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("MAKTABAMCP_SEARCH_MODE", "term-priority")
	t.Setenv("MAKTABAMCP_MAX_RESULTS", "42")
	t.Setenv("MAKTABAMCP_EMBEDDER", "static")
	t.Setenv("MAKTABAMCP_TELEMETRY", "false")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".maktabamcp.yaml"),
		[]byte("search:\n  mode: balanced\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "term-priority", cfg.Search.Mode)
	assert.Equal(t, 42, cfg.Search.MaxResults)
	assert.Equal(t, "static", cfg.Embeddings.Provider)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoadDotEnv(t *testing.T) {
	isolateEnv(t)
	// godotenv only fills variables absent from the environment.
	os.Unsetenv("MAKTABAMCP_SEARCH_MODE")
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("MAKTABAMCP_SEARCH_MODE=term-priority\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "term-priority", cfg.Search.Mode)
}

func TestLoadInvalidYAML(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".maktabamcp.yaml"),
		[]byte("search: [not a map"), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(*Config) {}, ""},
		{"bad mode", func(c *Config) { c.Search.Mode = "fast" }, "search.mode"},
		{"negative results", func(c *Config) { c.Search.MaxResults = -1 }, "max_results"},
		{"bad provider", func(c *Config) { c.Embeddings.Provider = "mlx" }, "embeddings.provider"},
		{"bad transport", func(c *Config) { c.Server.Transport = "sse" }, "server.transport"},
		{"bad log level", func(c *Config) { c.Server.LogLevel = "trace" }, "log_level"},
		{"collection without name", func(c *Config) {
			c.Collections = []Collection{{Path: "x.jsonl"}}
		}, "require a name"},
		{"collection without path", func(c *Config) {
			c.Collections = []Collection{{Name: "bukhari"}}
		}, "requires a path"},
		{"duplicate collection", func(c *Config) {
			c.Collections = []Collection{
				{Name: "bukhari", Path: "a.jsonl"},
				{Name: "bukhari", Path: "b.jsonl"},
			}
		}, "duplicate collection"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()

	cfg := NewConfig()
	cfg.Search.Mode = "term-priority"
	cfg.Collections = []Collection{{Name: "bukhari", Path: "bukhari.jsonl"}}
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ".maktabamcp.yaml")))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "term-priority", loaded.Search.Mode)
	require.Len(t, loaded.Collections, 1)
	assert.Equal(t, "bukhari", loaded.Collections[0].Name)
}

func TestDerivedPaths(t *testing.T) {
	cfg := NewConfig()
	cfg.DataDir = "/data/maktaba"

	assert.Equal(t, "/data/maktaba/documents.db", cfg.DocumentStorePath())
	assert.Equal(t, "/data/maktaba/lexical.bleve", cfg.LexicalIndexPath())
	assert.Equal(t, "/data/maktaba/vectors.hnsw", cfg.VectorIndexPath())
	assert.Equal(t, "/data/maktaba/ingest.lock", cfg.LockPath())
}
