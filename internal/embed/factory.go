package embed

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ProviderType identifies an embedding provider.
type ProviderType string

const (
	// ProviderOllama uses a local Ollama server.
	ProviderOllama ProviderType = "ollama"

	// ProviderOpenAI uses the OpenAI embeddings API.
	ProviderOpenAI ProviderType = "openai"

	// ProviderStatic uses the hash-based fallback embedder.
	ProviderStatic ProviderType = "static"

	// ProviderAuto picks the first working provider: ollama, then static.
	// OpenAI is never auto-selected; remote billing requires opting in.
	ProviderAuto ProviderType = "auto"
)

// Environment variable overrides.
const (
	// EnvEmbedderProvider overrides the configured provider.
	EnvEmbedderProvider = "MAKTABAMCP_EMBEDDER"

	// EnvOllamaHost overrides the Ollama endpoint.
	EnvOllamaHost = "MAKTABAMCP_OLLAMA_HOST"

	// EnvOllamaModel overrides the Ollama model.
	EnvOllamaModel = "MAKTABAMCP_OLLAMA_MODEL"

	// EnvOpenAIKey supplies the OpenAI API key. OPENAI_API_KEY is
	// honored as a fallback.
	EnvOpenAIKey = "MAKTABAMCP_OPENAI_API_KEY"

	// EnvOpenAIModel overrides the OpenAI model.
	EnvOpenAIModel = "MAKTABAMCP_OPENAI_MODEL"
)

// FactoryConfig configures embedder construction.
type FactoryConfig struct {
	// Provider selects the embedding backend (default: auto).
	Provider ProviderType

	// Ollama configures the ollama provider.
	Ollama OllamaConfig

	// OpenAI configures the openai provider.
	OpenAI OpenAIConfig

	// CacheSize is the LRU embedding cache size (default: 1000).
	CacheSize int

	// DisableCache skips the caching wrapper.
	DisableCache bool

	// DisableFallback fails construction instead of degrading to the
	// static embedder when the selected provider is unreachable.
	DisableFallback bool
}

// DefaultFactoryConfig returns the default factory configuration.
func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		Provider:  ProviderAuto,
		Ollama:    DefaultOllamaConfig(),
		OpenAI:    DefaultOpenAIConfig(),
		CacheSize: DefaultEmbeddingCacheSize,
	}
}

// ParseProvider parses a provider name. Empty means auto.
func ParseProvider(s string) (ProviderType, error) {
	switch ProviderType(strings.ToLower(strings.TrimSpace(s))) {
	case ProviderOllama:
		return ProviderOllama, nil
	case ProviderOpenAI:
		return ProviderOpenAI, nil
	case ProviderStatic:
		return ProviderStatic, nil
	case ProviderAuto, "":
		return ProviderAuto, nil
	default:
		return "", fmt.Errorf("unknown embedding provider %q (want ollama, openai, static, or auto)", s)
	}
}

// NewEmbedder constructs an embedder from config plus environment
// overrides, wrapped in an LRU cache unless disabled. When the selected
// provider cannot be reached the static embedder is substituted so
// indexing and search keep working, unless DisableFallback is set.
func NewEmbedder(ctx context.Context, cfg FactoryConfig) (Embedder, error) {
	applyEnvOverrides(&cfg)

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderAuto
	}

	inner, err := newProvider(ctx, provider, cfg)
	if err != nil {
		if cfg.DisableFallback || provider == ProviderStatic {
			return nil, err
		}
		slog.Warn("embedding provider unavailable, using static fallback",
			"provider", provider,
			"error", err)
		inner = NewStaticEmbedder()
	}

	if cfg.DisableCache {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}

func newProvider(ctx context.Context, provider ProviderType, cfg FactoryConfig) (Embedder, error) {
	switch provider {
	case ProviderOllama:
		return NewOllamaEmbedder(ctx, cfg.Ollama)

	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg.OpenAI)

	case ProviderStatic:
		return NewStaticEmbedder(), nil

	case ProviderAuto:
		e, err := NewOllamaEmbedder(ctx, cfg.Ollama)
		if err == nil {
			return e, nil
		}
		slog.Debug("ollama unavailable", "error", err)
		return NewStaticEmbedder(), nil

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", provider)
	}
}

func applyEnvOverrides(cfg *FactoryConfig) {
	if v := os.Getenv(EnvEmbedderProvider); v != "" {
		if p, err := ParseProvider(v); err == nil {
			cfg.Provider = p
		} else {
			slog.Warn("ignoring invalid provider override", "value", v)
		}
	}
	if v := os.Getenv(EnvOllamaHost); v != "" {
		cfg.Ollama.Host = v
	}
	if v := os.Getenv(EnvOllamaModel); v != "" {
		cfg.Ollama.Model = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		cfg.OpenAI.APIKey = v
	} else if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv(EnvOpenAIModel); v != "" {
		cfg.OpenAI.Model = v
	}
}

// GetInfo describes an embedder, unwrapping the cache layer.
func GetInfo(e Embedder) EmbedderInfo {
	info := EmbedderInfo{}
	if cached, ok := e.(*CachedEmbedder); ok {
		info.Cached = true
		e = cached.Inner()
	}

	switch e.(type) {
	case *OllamaEmbedder:
		info.Provider = string(ProviderOllama)
	case *OpenAIEmbedder:
		info.Provider = string(ProviderOpenAI)
	case *StaticEmbedder:
		info.Provider = string(ProviderStatic)
	default:
		info.Provider = "unknown"
	}

	info.Model = e.ModelName()
	info.Dimensions = e.Dimensions()
	return info
}
