package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete MaktabaMCP configuration.
type Config struct {
	Version     int              `yaml:"version" json:"version"`
	DataDir     string           `yaml:"data_dir" json:"data_dir"`
	Collections []Collection     `yaml:"collections" json:"collections"`
	Search      SearchConfig     `yaml:"search" json:"search"`
	Embeddings  EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Ingest      IngestConfig     `yaml:"ingest" json:"ingest"`
	Telemetry   TelemetryConfig  `yaml:"telemetry" json:"telemetry"`
	Server      ServerConfig     `yaml:"server" json:"server"`
}

// Collection names a hadith collection and its JSONL source file.
type Collection struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
}

// SearchConfig configures hybrid search defaults.
type SearchConfig struct {
	// Mode is the default weight preset: "balanced" or "term-priority".
	Mode string `yaml:"mode" json:"mode"`

	// MaxResults caps the hits returned per query.
	MaxResults int `yaml:"max_results" json:"max_results"`

	// NearWindow is the token window for the proximity bonus.
	NearWindow int `yaml:"near_window" json:"near_window"`

	// OverfetchFactor multiplies the requested limit when pulling
	// candidates from each source before fusion.
	OverfetchFactor int `yaml:"overfetch_factor" json:"overfetch_factor"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the backend: "ollama", "openai", "static", or
	// empty for auto-detection.
	Provider string `yaml:"provider" json:"provider"`

	// Model overrides the provider's default embedding model.
	Model string `yaml:"model" json:"model"`

	// Dimensions overrides auto-detection (0 = auto-detect).
	Dimensions int `yaml:"dimensions" json:"dimensions"`

	// BatchSize for batch embedding requests.
	BatchSize int `yaml:"batch_size" json:"batch_size"`

	// OllamaHost is the Ollama API endpoint (empty = http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`

	// OpenAIBaseURL overrides the OpenAI endpoint, for compatible servers.
	// The API key itself comes only from the environment.
	OpenAIBaseURL string `yaml:"openai_base_url" json:"openai_base_url"`

	// CacheSize is the LRU embedding cache size.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// IngestConfig configures corpus ingestion.
type IngestConfig struct {
	// Workers is the number of parallel embedding workers.
	Workers int `yaml:"workers" json:"workers"`

	// Watch re-ingests collection files when they change.
	Watch bool `yaml:"watch" json:"watch"`

	// WatchDebounce coalesces rapid file events, e.g. "500ms".
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// TelemetryConfig configures in-process query metrics.
type TelemetryConfig struct {
	// Enabled turns query metrics collection on.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// RecentQueries is the repeat-detection window size.
	RecentQueries int `yaml:"recent_queries" json:"recent_queries"`

	// TopTerms is the number of distinct query terms tracked.
	TopTerms int `yaml:"top_terms" json:"top_terms"`

	// ZeroResultBuffer bounds the zero-result query buffer.
	ZeroResultBuffer int `yaml:"zero_result_buffer" json:"zero_result_buffer"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	Port      int    `yaml:"port" json:"port"`
	LogLevel  string `yaml:"log_level" json:"log_level"`
}

// Config file names, project-level then user-level.
const (
	projectConfigYAML = ".maktabamcp.yaml"
	projectConfigYML  = ".maktabamcp.yml"
)

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: defaultDataDir(),
		Search: SearchConfig{
			Mode:            "balanced",
			MaxResults:      10,
			NearWindow:      5,
			OverfetchFactor: 5,
		},
		Embeddings: EmbeddingsConfig{
			Provider:  "", // auto-detect: ollama, then static
			BatchSize: 32,
			CacheSize: 1000,
		},
		Ingest: IngestConfig{
			Workers:       runtime.NumCPU(),
			Watch:         false,
			WatchDebounce: "500ms",
		},
		Telemetry: TelemetryConfig{
			Enabled:          true,
			RecentQueries:    100,
			TopTerms:         100,
			ZeroResultBuffer: 500,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Port:      8765,
			LogLevel:  "info",
		},
	}
}

// defaultDataDir returns the index storage directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".maktabamcp")
	}
	return filepath.Join(home, ".maktabamcp")
}

// GetUserConfigPath returns the user configuration file path,
// following the XDG Base Directory layout.
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "maktabamcp", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "maktabamcp", "config.yaml")
	}
	return filepath.Join(home, ".config", "maktabamcp", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user configuration if present.
// A missing file is not an error.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("load user config %s: %w", configPath, err)
	}
	return cfg, nil
}

// Load builds the configuration for a working directory, in order of
// increasing precedence:
//  1. Defaults
//  2. User config (~/.config/maktabamcp/config.yaml)
//  3. Project config (.maktabamcp.yaml in dir)
//  4. Environment variables (MAKTABAMCP_*), including a .env file in dir
func Load(dir string) (*Config, error) {
	// .env never overrides variables already exported in the shell.
	_ = godotenv.Load(filepath.Join(dir, ".env"))

	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromFile loads .maktabamcp.yaml or .maktabamcp.yml if present.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, projectConfigYAML)
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, projectConfigYML)
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	// No config file means defaults.
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.DataDir != "" {
		c.DataDir = other.DataDir
	}
	if len(other.Collections) > 0 {
		c.Collections = other.Collections
	}

	if other.Search.Mode != "" {
		c.Search.Mode = other.Search.Mode
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}
	if other.Search.NearWindow != 0 {
		c.Search.NearWindow = other.Search.NearWindow
	}
	if other.Search.OverfetchFactor != 0 {
		c.Search.OverfetchFactor = other.Search.OverfetchFactor
	}

	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.OpenAIBaseURL != "" {
		c.Embeddings.OpenAIBaseURL = other.Embeddings.OpenAIBaseURL
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Ingest.Workers != 0 {
		c.Ingest.Workers = other.Ingest.Workers
	}
	if other.Ingest.Watch {
		c.Ingest.Watch = true
	}
	if other.Ingest.WatchDebounce != "" {
		c.Ingest.WatchDebounce = other.Ingest.WatchDebounce
	}

	// Telemetry.Enabled defaults to true; a bare "telemetry:" block with
	// enabled absent reads as false, so gate on a sibling field being set.
	if other.Telemetry.RecentQueries != 0 || other.Telemetry.TopTerms != 0 ||
		other.Telemetry.ZeroResultBuffer != 0 {
		c.Telemetry.Enabled = other.Telemetry.Enabled
	}
	if other.Telemetry.RecentQueries != 0 {
		c.Telemetry.RecentQueries = other.Telemetry.RecentQueries
	}
	if other.Telemetry.TopTerms != 0 {
		c.Telemetry.TopTerms = other.Telemetry.TopTerms
	}
	if other.Telemetry.ZeroResultBuffer != 0 {
		c.Telemetry.ZeroResultBuffer = other.Telemetry.ZeroResultBuffer
	}

	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
}

// applyEnvOverrides applies MAKTABAMCP_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MAKTABAMCP_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("MAKTABAMCP_SEARCH_MODE"); v != "" {
		c.Search.Mode = v
	}
	if v := os.Getenv("MAKTABAMCP_MAX_RESULTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.MaxResults = n
		}
	}
	if v := os.Getenv("MAKTABAMCP_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("MAKTABAMCP_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("MAKTABAMCP_OLLAMA_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("MAKTABAMCP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("MAKTABAMCP_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("MAKTABAMCP_TELEMETRY"); v != "" {
		c.Telemetry.Enabled = strings.ToLower(v) == "true" || v == "1"
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	validModes := map[string]bool{"balanced": true, "term-priority": true}
	if !validModes[strings.ToLower(c.Search.Mode)] {
		return fmt.Errorf("search.mode must be 'balanced' or 'term-priority', got %s", c.Search.Mode)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("search.max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.NearWindow < 0 {
		return fmt.Errorf("search.near_window must be non-negative, got %d", c.Search.NearWindow)
	}

	if p := strings.ToLower(c.Embeddings.Provider); p != "" {
		validProviders := map[string]bool{"ollama": true, "openai": true, "static": true, "auto": true}
		if !validProviders[p] {
			return fmt.Errorf("embeddings.provider must be 'ollama', 'openai', 'static', or empty (auto-detect), got %s", c.Embeddings.Provider)
		}
	}

	validTransports := map[string]bool{"stdio": true, "http": true}
	if !validTransports[strings.ToLower(c.Server.Transport)] {
		return fmt.Errorf("server.transport must be 'stdio' or 'http', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}

	seen := make(map[string]bool, len(c.Collections))
	for _, col := range c.Collections {
		if col.Name == "" {
			return fmt.Errorf("collections entries require a name")
		}
		if col.Path == "" {
			return fmt.Errorf("collection %s requires a path", col.Name)
		}
		if seen[col.Name] {
			return fmt.Errorf("duplicate collection name %s", col.Name)
		}
		seen[col.Name] = true
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// Paths derived from DataDir.

// DocumentStorePath returns the SQLite document store path.
func (c *Config) DocumentStorePath() string {
	return filepath.Join(c.DataDir, "documents.db")
}

// LexicalIndexPath returns the bleve index directory.
func (c *Config) LexicalIndexPath() string {
	return filepath.Join(c.DataDir, "lexical.bleve")
}

// VectorIndexPath returns the vector index file path.
func (c *Config) VectorIndexPath() string {
	return filepath.Join(c.DataDir, "vectors.hnsw")
}

// LockPath returns the single-writer ingest lock path.
func (c *Config) LockPath() string {
	return filepath.Join(c.DataDir, "ingest.lock")
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
