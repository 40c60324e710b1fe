package embedder

import (
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	// Provider is jina, openai or local. Empty auto-detects.
	Provider string
	// APIKey overrides the provider's environment variable
	APIKey string
	// Endpoint overrides the provider's default URL
	Endpoint  string
	CacheSize int
}

// New creates an embedder from cfg. An empty provider falls back to
// DetectProvider.
func New(cfg Config) (Embedder, error) {
	cache := NewCache(cfg.CacheSize)

	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = DetectProvider()
	}

	switch provider {
	case ProviderJina:
		return newRemoteProvider(jinaSpec, keyOrEnv(cfg.APIKey, EnvJinaAPIKey), cfg.Endpoint, cache)
	case ProviderOpenAI:
		return newRemoteProvider(openAISpec, keyOrEnv(cfg.APIKey, EnvOpenAIAPIKey), cfg.Endpoint, cache)
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, cfg.Provider)
	}
}

// DetectProvider returns the provider that would be used based on current environment
// Priority:
// 1. DOCSYNC_EMBEDDING_PROVIDER (jina, openai, local)
// 2. JINA_API_KEY, then OPENAI_API_KEY
// 3. local
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	if os.Getenv(EnvJinaAPIKey) != "" {
		return ProviderJina
	}
	if os.Getenv(EnvOpenAIAPIKey) != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}

func keyOrEnv(key, env string) string {
	if key != "" {
		return key
	}
	return os.Getenv(env)
}
