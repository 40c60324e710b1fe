// Package config loads docsync settings from defaults, an optional config
// file, DOCSYNC_ environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dshills/docsync-mcp/internal/chunker"
	"github.com/dshills/docsync-mcp/internal/embedder"
	"github.com/dshills/docsync-mcp/pkg/types"
)

// EnvPrefix is prepended to every environment override
const EnvPrefix = "DOCSYNC"

// Config is the full application configuration
type Config struct {
	DBPath     string          `mapstructure:"db_path"`
	CorpusRoot string          `mapstructure:"corpus_root"`
	Embedding  EmbeddingConfig `mapstructure:"embedding"`
	Chunker    ChunkerConfig   `mapstructure:"chunker"`
	Search     SearchConfig    `mapstructure:"search"`
	Sync       SyncConfig      `mapstructure:"sync"`
	Log        LogConfig       `mapstructure:"log"`
}

// EmbeddingConfig selects and paces the embedding provider
type EmbeddingConfig struct {
	Provider  string        `mapstructure:"provider"` // jina, openai, local; empty auto-detects
	Endpoint  string        `mapstructure:"endpoint"`
	Delay     time.Duration `mapstructure:"delay"`
	CacheSize int           `mapstructure:"cache_size"`
}

// ChunkerConfig lists grammar sources in resolution order
type ChunkerConfig struct {
	GrammarSources []string `mapstructure:"grammar_sources"`
	Languages      []string `mapstructure:"languages"` // empty allows every language
}

// SearchConfig tunes lexical search
type SearchConfig struct {
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	ExactIDBonus int           `mapstructure:"exact_id_bonus"`
}

// SyncConfig tunes directory syncs
type SyncConfig struct {
	Workers int `mapstructure:"workers"`
}

// LogConfig controls logging
type LogConfig struct {
	Verbose bool `mapstructure:"verbose"`
}

// New returns a viper instance with defaults and environment binding set
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("docsync")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".docsync"))
	}
	return v
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db_path", "~/.docsync/docsync.db")
	v.SetDefault("corpus_root", ".")
	v.SetDefault("embedding.provider", "")
	v.SetDefault("embedding.endpoint", "")
	v.SetDefault("embedding.delay", 250*time.Millisecond)
	v.SetDefault("embedding.cache_size", embedder.DefaultCacheSize)
	v.SetDefault("chunker.grammar_sources", []string{"builtin"})
	v.SetDefault("chunker.languages", []string{})
	v.SetDefault("search.cache_ttl", time.Minute)
	v.SetDefault("search.exact_id_bonus", 100)
	v.SetDefault("sync.workers", 4)
	v.SetDefault("log.verbose", false)
}

// Load reads the config file, if any, and decodes v. An explicit cfgFile
// must exist; otherwise a missing docsync.* file is not an error.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.DBPath = ExpandHome(cfg.DBPath)
	cfg.CorpusRoot = ExpandHome(cfg.CorpusRoot)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("invalid configuration: db_path is required")
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "", embedder.ProviderJina, embedder.ProviderOpenAI, embedder.ProviderLocal:
	default:
		return fmt.Errorf("invalid configuration: embedding.provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Delay < 0 {
		return errors.New("invalid configuration: embedding.delay cannot be negative")
	}
	if c.Sync.Workers < 1 {
		return errors.New("invalid configuration: sync.workers must be at least 1")
	}
	if c.Search.ExactIDBonus < 1 {
		return errors.New("invalid configuration: search.exact_id_bonus must be positive")
	}
	if _, err := c.GrammarSources(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GrammarSources builds the chunker's grammar sources from the config
func (c *Config) GrammarSources() ([]chunker.GrammarSource, error) {
	allow := make([]types.Language, 0, len(c.Chunker.Languages))
	for _, name := range c.Chunker.Languages {
		allow = append(allow, types.Language(strings.ToLower(strings.TrimSpace(name))))
	}
	return chunker.SourcesFromConfig(c.Chunker.GrammarSources, allow)
}

// EmbedderConfig converts the embedding section for embedder.New
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		Endpoint:  c.Embedding.Endpoint,
		CacheSize: c.Embedding.CacheSize,
	}
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
