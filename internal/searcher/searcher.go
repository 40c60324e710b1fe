package searcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/dshills/docsync-mcp/internal/corpus"
	"github.com/dshills/docsync-mcp/internal/embedder"
	"github.com/dshills/docsync-mcp/internal/logger"
	"github.com/dshills/docsync-mcp/internal/storage"
	"github.com/dshills/docsync-mcp/pkg/types"
)

var (
	// ErrEmptyQuery is returned for a query with no terms
	ErrEmptyQuery = errors.New("query cannot be empty")
	// ErrNoEmbedder is returned by MatchChunks when built without storage or embedder
	ErrNoEmbedder = errors.New("embedder not initialized")
	// ErrEmptyDocID is returned by Read and Suggest for a blank id
	ErrEmptyDocID = types.ErrEmptyDocumentID
	// ErrEmptyCorpus is returned when no corpus root is given
	ErrEmptyCorpus = errors.New("corpus root cannot be empty")
)

const (
	// DefaultCacheTTL is how long a corpus index is reused
	DefaultCacheTTL = time.Minute
	// DefaultExactIDBonus is added when a query term equals a document id
	DefaultExactIDBonus = 100
	// DefaultMatchLimit applies to MatchChunks when no limit is given
	DefaultMatchLimit = 10

	indexCacheSize = 64
)

// Config contains configuration for the searcher
type Config struct {
	CacheTTL     time.Duration // Index age before rebuild (default: DefaultCacheTTL)
	ExactIDBonus int           // Bonus for an exact id match (default: DefaultExactIDBonus)
	Fs           afero.Fs      // Corpus filesystem (default: OS)
}

// Searcher answers lexical queries over a document corpus and similarity
// queries over stored chunk embeddings
type Searcher struct {
	fs           afero.Fs
	index        *expirable.LRU[string, []types.DocumentRef]
	builds       singleflight.Group
	exactIDBonus int

	storage  storage.EmbeddingStore
	embedder embedder.Embedder
}

// NewSearcher creates a new Searcher. store and emb are only needed by
// MatchChunks and may be nil otherwise.
func NewSearcher(store storage.EmbeddingStore, emb embedder.Embedder, cfg Config) *Searcher {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.ExactIDBonus <= 0 {
		cfg.ExactIDBonus = DefaultExactIDBonus
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}

	return &Searcher{
		fs:           cfg.Fs,
		index:        expirable.NewLRU[string, []types.DocumentRef](indexCacheSize, nil, cfg.CacheTTL),
		exactIDBonus: cfg.ExactIDBonus,
		storage:      store,
		embedder:     emb,
	}
}

// Search ranks the documents under root against query. Each whitespace
// separated term found in a document's id, title or type scores one; a
// term equal to the id adds the exact-id bonus. Documents scoring zero are
// left out and ties keep corpus order. A limit of 0 returns every hit.
func (s *Searcher) Search(root, query string, limit int) ([]types.SearchHit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, ErrEmptyQuery
	}

	refs, err := s.refs(root)
	if err != nil {
		return nil, err
	}

	hits := make([]types.SearchHit, 0)
	for _, ref := range refs {
		if score := s.score(ref, terms); score > 0 {
			hits = append(hits, types.SearchHit{Ref: ref, Score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Searcher) score(ref types.DocumentRef, terms []string) int {
	id := strings.ToLower(ref.ID)
	haystack := strings.ToLower(ref.ID + " " + ref.Title + " " + ref.Type)

	score := 0
	for _, term := range terms {
		if strings.Contains(haystack, term) {
			score++
		}
		if term == id {
			score += s.exactIDBonus
		}
	}
	return score
}

// Read returns the first document under root whose id is docID. A miss
// returns false; the error is reserved for I/O failures.
func (s *Searcher) Read(docID, root string) (types.Document, bool, error) {
	if docID == "" {
		return types.Document{}, false, ErrEmptyDocID
	}
	if root == "" {
		return types.Document{}, false, ErrEmptyCorpus
	}
	return corpus.New(s.fs, root).Find(docID)
}

// Suggest returns up to maxResults known ids that contain docID or are contained
// in it, compared case-insensitively. maxResults <= 0 means no cap.
func (s *Searcher) Suggest(docID, root string, maxResults int) ([]string, error) {
	needle := strings.ToLower(strings.TrimSpace(docID))
	if needle == "" {
		return nil, ErrEmptyDocID
	}

	refs, err := s.refs(root)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	suggestions := make([]string, 0)
	for _, ref := range refs {
		id := strings.ToLower(ref.ID)
		if id == "" || seen[ref.ID] {
			continue
		}
		if strings.Contains(id, needle) || strings.Contains(needle, id) {
			seen[ref.ID] = true
			suggestions = append(suggestions, ref.ID)
			if maxResults > 0 && len(suggestions) == maxResults {
				break
			}
		}
	}
	return suggestions, nil
}

// InvalidateCache drops every cached corpus index
func (s *Searcher) InvalidateCache() {
	s.index.Purge()
}

// refs returns the cached index for root, building it when missing or
// expired. Concurrent builds of the same root are shared.
func (s *Searcher) refs(root string) ([]types.DocumentRef, error) {
	if root == "" {
		return nil, ErrEmptyCorpus
	}
	key := filepath.Clean(root)
	if refs, ok := s.index.Get(key); ok {
		return refs, nil
	}

	v, err, _ := s.builds.Do(key, func() (any, error) {
		start := time.Now()
		refs, err := corpus.New(s.fs, key).Refs()
		if err != nil {
			return nil, err
		}
		s.index.Add(key, refs)
		logger.Debug("indexed %d documents under %s in %v", len(refs), key, time.Since(start))
		return refs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index corpus: %w", err)
	}
	return v.([]types.DocumentRef), nil
}

// MatchChunks embeds query and returns the most similar stored chunks of
// projectID, best first
func (s *Searcher) MatchChunks(ctx context.Context, projectID, query string, limit int) ([]types.ChunkMatch, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if s.embedder == nil || s.storage == nil {
		return nil, ErrNoEmbedder
	}
	if limit <= 0 {
		limit = DefaultMatchLimit
	}

	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	results, err := s.storage.SearchEmbeddings(ctx, projectID, emb.Vector, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	matches := make([]types.ChunkMatch, 0, len(results))
	for _, r := range results {
		m := types.ChunkMatch{
			Rank:       len(matches) + 1,
			Similarity: r.SimilarityScore,
			FilePath:   r.FilePath,
			ChunkHash:  r.ChunkHash,
			Content:    r.Content,
			StartLine:  r.Metadata.StartLine,
			EndLine:    r.Metadata.EndLine,
			Kind:       r.Metadata.Kind,
		}
		if err := m.Validate(); err != nil {
			logger.Debug("dropping match %s: %v", r.ChunkHash, err)
			continue
		}
		matches = append(matches, m)
	}
	return matches, nil
}
