package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultLocalModel  = "local-hashing"

	// Dimensions
	JinaDimension   = 1024
	OpenAIDimension = 1536
	LocalDimension  = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	// Environment
	EnvProvider     = "DOCSYNC_EMBEDDING_PROVIDER"
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// remoteSpec describes an OpenAI-compatible embeddings endpoint
type remoteSpec struct {
	name      string
	endpoint  string
	model     string
	dimension int
	keyEnv    string
}

var (
	jinaSpec = remoteSpec{
		name:      ProviderJina,
		endpoint:  "https://api.jina.ai/v1/embeddings",
		model:     DefaultJinaModel,
		dimension: JinaDimension,
		keyEnv:    EnvJinaAPIKey,
	}
	openAISpec = remoteSpec{
		name:      ProviderOpenAI,
		endpoint:  "https://api.openai.com/v1/embeddings",
		model:     DefaultOpenAIModel,
		dimension: OpenAIDimension,
		keyEnv:    EnvOpenAIAPIKey,
	}
)

// RemoteProvider implements Embedder against an HTTP embeddings API.
// Jina and OpenAI share the request and response format.
type RemoteProvider struct {
	spec       remoteSpec
	apiKey     string
	endpoint   string
	httpClient *http.Client
	cache      *Cache
	retry      RetryConfig
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(apiKey string, cache *Cache) (*RemoteProvider, error) {
	return newRemoteProvider(jinaSpec, apiKey, "", cache)
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(apiKey string, cache *Cache) (*RemoteProvider, error) {
	return newRemoteProvider(openAISpec, apiKey, "", cache)
}

func newRemoteProvider(spec remoteSpec, apiKey, endpoint string, cache *Cache) (*RemoteProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoAPIKey, spec.keyEnv)
	}
	if endpoint == "" {
		endpoint = spec.endpoint
	}

	return &RemoteProvider{
		spec:     spec,
		apiKey:   apiKey,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache: cache,
		retry: DefaultRetryConfig(),
	}, nil
}

// GenerateEmbedding returns the embedding of one text, from cache when possible
func (p *RemoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.spec.model
	}
	if emb, ok := p.cache.Get(CacheKey(model, req.Text)); ok {
		return emb, nil
	}

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

// GenerateBatch embeds texts in order
func (p *RemoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.spec.model
	}

	embeddings, err := retryWithBackoff(ctx, p.retry, func() ([]*Embedding, error) {
		return p.callAPI(ctx, req.Texts, model)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrProviderFailed, p.spec.name, err)
	}

	if len(embeddings) != len(req.Texts) {
		return nil, fmt.Errorf("%w: %s returned %d embeddings for %d texts",
			ErrProviderFailed, p.spec.name, len(embeddings), len(req.Texts))
	}

	for i, emb := range embeddings {
		emb.Hash = textHash(req.Texts[i])
		p.cache.Set(CacheKey(model, req.Texts[i]), emb)
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.spec.name,
		Model:      model,
	}, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

func (p *RemoteProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	body, err := json.Marshal(embeddingsRequest{Input: texts, Model: model})
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
	case resp.StatusCode != http.StatusOK:
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, permanent(fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var apiResp embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	// The API may return data out of order; index is authoritative.
	embeddings := make([]*Embedding, len(apiResp.Data))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(embeddings) {
			return nil, permanent(fmt.Errorf("response index %d out of range", data.Index))
		}
		embeddings[data.Index] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.spec.name,
			Model:     apiResp.Model,
		}
	}
	for i, emb := range embeddings {
		if emb == nil {
			return nil, permanent(fmt.Errorf("response missing index %d", i))
		}
	}

	return embeddings, nil
}

// Dimension returns the vector length
func (p *RemoteProvider) Dimension() int {
	return p.spec.dimension
}

// Provider returns the provider name
func (p *RemoteProvider) Provider() string {
	return p.spec.name
}

// Model returns the default model
func (p *RemoteProvider) Model() string {
	return p.spec.model
}

// Close releases provider resources
func (p *RemoteProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// LocalProvider embeds text offline by hashing word tokens into a fixed
// number of signed buckets. Texts sharing vocabulary get similar vectors.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates a new local embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{
		model: DefaultLocalModel,
		cache: cache,
	}, nil
}

// GenerateEmbedding returns the embedding of one text, from cache when possible
func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := CacheKey(l.model, req.Text)
	if emb, ok := l.cache.Get(key); ok {
		return emb, nil
	}

	emb := &Embedding{
		Vector:    NormalizeVector(hashTokens(req.Text, LocalDimension)),
		Dimension: LocalDimension,
		Provider:  ProviderLocal,
		Model:     l.model,
		Hash:      textHash(req.Text),
	}
	l.cache.Set(key, emb)

	return emb, nil
}

// GenerateBatch embeds texts in order
func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text, Model: req.Model})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      l.model,
	}, nil
}

// Dimension returns the vector length
func (l *LocalProvider) Dimension() int {
	return LocalDimension
}

// Provider returns the provider name
func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

// Model returns the default model
func (l *LocalProvider) Model() string {
	return l.model
}

// Close releases provider resources
func (l *LocalProvider) Close() error {
	return nil
}

// hashTokens folds lowercase word tokens into dim buckets
func hashTokens(text string, dim int) []float32 {
	vector := make([]float32, dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		bucket := int(sum % uint64(dim))
		if sum&(1<<63) != 0 {
			vector[bucket]--
		} else {
			vector[bucket]++
		}
	}
	return vector
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
