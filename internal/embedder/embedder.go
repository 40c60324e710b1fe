package embedder

import (
	"context"
	"errors"
	"fmt"
	"slices"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/docsync-mcp/internal/fingerprint"
)

// Errors returned by providers and request validation
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrProviderFailed  = errors.New("embedding provider failed")
	ErrRateLimited     = errors.New("embedding provider rate limited")
	ErrInvalidProvider = errors.New("unknown embedding provider")
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrBatchTooLarge   = errors.New("batch size exceeds limit")
	ErrNoAPIKey        = errors.New("embedding provider API key not set")
)

// Embedding is one vector together with the model that produced it
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
	Hash      string // fingerprint of the embedded text
}

// EmbeddingRequest asks for the vector of one text. Model overrides the
// provider default when set.
type EmbeddingRequest struct {
	Text  string
	Model string
}

// BatchEmbeddingRequest asks for the vectors of up to MaxBatchSize texts
type BatchEmbeddingRequest struct {
	Texts []string
	Model string
}

// BatchEmbeddingResponse holds one embedding per request text, in order
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder turns text into vectors. Implementations are safe for
// concurrent use; one instance is shared by sync and query paths.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// Dimension is the length of every vector this embedder returns
	Dimension() int
	Provider() string
	Model() string
	Close() error
}

// DefaultCacheSize is used when a cache is requested without a size
const DefaultCacheSize = 10000

// Cache is an LRU of embeddings keyed by CacheKey. A nil *Cache is valid
// and never hits.
type Cache struct {
	lru *lru.Cache[string, *Embedding]
}

// NewCache creates a cache holding up to size embeddings
func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	l, err := lru.New[string, *Embedding](size)
	if err != nil {
		panic(fmt.Sprintf("embedder: lru cache of size %d: %v", size, err))
	}
	return &Cache{lru: l}
}

// CacheKey identifies text embedded by model. Different models never
// share an entry.
func CacheKey(model, text string) string {
	return string(fingerprint.String(model + "\x00" + text))
}

// Get returns a copy of the cached embedding
func (c *Cache) Get(key string) (*Embedding, bool) {
	if c == nil {
		return nil, false
	}
	emb, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	cp := *emb
	cp.Vector = slices.Clone(emb.Vector)
	return &cp, true
}

// Set stores emb under key, evicting the least recently used entry when full
func (c *Cache) Set(key string, emb *Embedding) {
	if c == nil {
		return
	}
	c.lru.Add(key, emb)
}

// Size returns the number of cached embeddings
func (c *Cache) Size() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

// Clear removes every cached embedding
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.lru.Purge()
}

// textHash is the Embedding.Hash of text
func textHash(text string) string {
	return string(fingerprint.String(text))
}

// ValidateRequest rejects empty text
func ValidateRequest(req EmbeddingRequest) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateBatchRequest rejects empty batches, empty texts and batches
// larger than MaxBatchSize
func ValidateBatchRequest(req BatchEmbeddingRequest) error {
	switch {
	case len(req.Texts) == 0:
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	case len(req.Texts) > MaxBatchSize:
		return fmt.Errorf("%w: %d texts, max %d", ErrBatchTooLarge, len(req.Texts), MaxBatchSize)
	}
	if i := slices.Index(req.Texts, ""); i >= 0 {
		return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
	}
	return nil
}
