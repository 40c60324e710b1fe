package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/dshills/docsync-mcp/internal/chunker"
	"github.com/dshills/docsync-mcp/internal/corpus"
	"github.com/dshills/docsync-mcp/internal/embedder"
	"github.com/dshills/docsync-mcp/internal/fingerprint"
	"github.com/dshills/docsync-mcp/internal/logger"
	"github.com/dshills/docsync-mcp/internal/storage"
	"github.com/dshills/docsync-mcp/pkg/types"
)

var (
	// ErrSyncInProgress is returned when a directory sync is already running for a project
	ErrSyncInProgress = errors.New("sync already in progress for this project")
	// ErrEmptyProjectID is returned when an operation is given no project id
	ErrEmptyProjectID = errors.New("project id cannot be empty")
	// ErrEmptyPath is returned when an operation is given no document path
	ErrEmptyPath = errors.New("document path cannot be empty")
)

const (
	// DefaultEmbedDelay spaces consecutive embedding calls
	DefaultEmbedDelay = 250 * time.Millisecond
	// DefaultWorkers bounds concurrent document syncs in SyncDirectory
	DefaultWorkers = 4
	// MaxFileSize is the largest file SyncDirectory will read
	MaxFileSize = 1 << 20
)

// Indexer keeps stored chunk embeddings in step with document content
type Indexer struct {
	storage  storage.Storage
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	limiter  *rate.Limiter
	fs       afero.Fs
	workers  int
	locks    projectLocks
}

// Config contains configuration for the indexer
type Config struct {
	EmbedDelay time.Duration // Spacing between embedding calls; 0 disables it
	Workers    int           // Concurrent syncs in SyncDirectory (default: DefaultWorkers)
	Fs         afero.Fs      // Filesystem for SyncDirectory (default: OS)
}

// DefaultConfig returns the standard indexer configuration
func DefaultConfig() Config {
	return Config{EmbedDelay: DefaultEmbedDelay, Workers: DefaultWorkers}
}

// SyncResult reports the outcome of one document sync
type SyncResult struct {
	Document      *storage.Document
	ChunksIndexed int  // embeddings created by this sync
	ChunksReused  int  // chunks whose embedding was already stored
	Unchanged     bool // content matched the stored checksum
}

// DirectoryStats summarizes a SyncDirectory run
type DirectoryStats struct {
	DocumentsScanned int
	DocumentsChanged int
	ChunksIndexed    int
	ChunksReused     int
	Errors           int
	ErrorMessages    []string
	Duration         time.Duration
}

// New creates an Indexer. A nil chunker uses chunker.NewDefault.
func New(store storage.Storage, ch *chunker.Chunker, emb embedder.Embedder, cfg Config) *Indexer {
	if ch == nil {
		ch = chunker.NewDefault()
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	limit := rate.Inf
	if cfg.EmbedDelay > 0 {
		limit = rate.Every(cfg.EmbedDelay)
	}

	return &Indexer{
		storage:  store,
		chunker:  ch,
		embedder: emb,
		limiter:  rate.NewLimiter(limit, 1),
		fs:       cfg.Fs,
		workers:  cfg.Workers,
	}
}

// SyncDocument brings the stored embeddings for (projectID, path) into line
// with content. Unchanged content returns without chunking. Embedding
// failures skip the affected chunk; a failed document upsert aborts.
func (idx *Indexer) SyncDocument(ctx context.Context, projectID, path, title, content string) (*SyncResult, error) {
	if projectID == "" {
		return nil, ErrEmptyProjectID
	}
	if path == "" {
		return nil, ErrEmptyPath
	}

	checksum := string(fingerprint.String(content))

	existing, err := idx.storage.GetDocument(ctx, projectID, path)
	switch {
	case err == nil && existing.Checksum == checksum:
		logger.Debug("sync %s/%s: unchanged (version %d)", projectID, path, existing.Version)
		return &SyncResult{Document: existing, Unchanged: true}, nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	doc := &storage.Document{
		ProjectID: projectID,
		FilePath:  path,
		Title:     title,
		Content:   content,
		Checksum:  checksum,
	}
	if err := idx.storage.UpsertDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to upsert document: %w", err)
	}

	// Until every chunk is stored the checksum must not match, or a retry
	// with the same content would short-circuit past the missing chunks.
	complete := false
	defer func() {
		if !complete {
			idx.invalidate(ctx, doc)
		}
	}()

	chunks := idx.chunker.ChunkFile(ctx, path, content)
	hashes := make([]fingerprint.Hash, len(chunks))
	current := fingerprint.NewSet()
	for i := range chunks {
		hashes[i] = fingerprint.String(chunks[i].Content)
		current.Add(hashes[i])
	}

	stored, err := idx.storage.ListEmbeddingHashes(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list embeddings: %w", err)
	}

	have := fingerprint.NewSet()
	var orphans []int64
	for _, s := range stored {
		h := fingerprint.Hash(s.Hash)
		if current.Has(h) {
			have.Add(h)
		} else {
			orphans = append(orphans, s.ID)
		}
	}

	// Orphans go before any insert.
	if len(orphans) > 0 {
		if _, err := idx.storage.DeleteEmbeddings(ctx, orphans); err != nil {
			return nil, fmt.Errorf("failed to delete orphaned embeddings: %w", err)
		}
	}

	result := &SyncResult{Document: doc}
	skipped := 0
	for i, chunk := range chunks {
		if have.Has(hashes[i]) {
			result.ChunksReused++
			continue
		}
		// Identical chunks in one document share an embedding.
		have.Add(hashes[i])

		if err := idx.limiter.Wait(ctx); err != nil {
			return result, fmt.Errorf("sync of %s interrupted: %w", path, err)
		}
		if err := idx.embedChunk(ctx, doc, i, chunk, hashes[i]); err != nil {
			logger.Warn("sync %s/%s: chunk %d (%s) skipped: %v", projectID, path, i, shortHash(hashes[i]), err)
			skipped++
			continue
		}
		result.ChunksIndexed++
	}
	complete = skipped == 0

	logger.Info("synced %s/%s: document %d version %d, %d indexed, %d reused",
		projectID, path, doc.ID, doc.Version, result.ChunksIndexed, result.ChunksReused)
	return result, nil
}

// invalidate clears the checksum of a partially reconciled document. It
// runs even after ctx is canceled.
func (idx *Indexer) invalidate(ctx context.Context, doc *storage.Document) {
	if err := idx.storage.InvalidateChecksum(context.WithoutCancel(ctx), doc.ID); err != nil {
		logger.Error("sync %s/%s: failed to mark document incomplete: %v", doc.ProjectID, doc.FilePath, err)
		return
	}
	doc.Checksum = ""
	logger.Warn("sync %s/%s: incomplete, next sync will retry", doc.ProjectID, doc.FilePath)
}

func (idx *Indexer) embedChunk(ctx context.Context, doc *storage.Document, index int, chunk types.Chunk, hash fingerprint.Hash) error {
	emb, err := idx.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: chunk.Content})
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	record := &storage.ChunkEmbedding{
		DocumentID: doc.ID,
		ChunkHash:  string(hash),
		Content:    chunk.Content,
		Vector:     emb.Vector,
		Provider:   emb.Provider,
		Model:      emb.Model,
		Metadata: storage.ChunkMetadata{
			ChunkIndex:       index,
			Kind:             string(chunk.Kind),
			StartLine:        chunk.StartLine,
			EndLine:          chunk.EndLine,
			Language:         string(chunk.Language),
			SourcePath:       chunk.SourcePath,
			EnclosingContext: chunk.EnclosingContext,
			Title:            doc.Title,
		},
	}
	if err := idx.storage.InsertEmbedding(ctx, record); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return nil
}

// DeleteDocument removes a document together with its embeddings
func (idx *Indexer) DeleteDocument(ctx context.Context, projectID, path string) error {
	if projectID == "" {
		return ErrEmptyProjectID
	}
	if path == "" {
		return ErrEmptyPath
	}
	if err := idx.storage.DeleteDocument(ctx, projectID, path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	logger.Info("deleted %s/%s", projectID, path)
	return nil
}

// Status reports what is stored for a project
func (idx *Indexer) Status(ctx context.Context, projectID string) (*storage.ProjectStatus, error) {
	if projectID == "" {
		return nil, ErrEmptyProjectID
	}
	return idx.storage.GetStatus(ctx, projectID)
}

// SyncDirectory syncs every eligible file under root. Paths are stored
// relative to root with forward slashes. Per-file failures are counted,
// not returned.
func (idx *Indexer) SyncDirectory(ctx context.Context, projectID, root string) (*DirectoryStats, error) {
	if projectID == "" {
		return nil, ErrEmptyProjectID
	}

	if !idx.locks.tryLock(projectID) {
		return nil, ErrSyncInProgress
	}
	defer idx.locks.unlock(projectID)

	start := time.Now()
	files, err := idx.discoverFiles(root)
	if err != nil {
		return nil, fmt.Errorf("failed to discover files: %w", err)
	}

	stats := &DirectoryStats{ErrorMessages: make([]string, 0)}
	var mu sync.Mutex // guards stats

	fail := func(rel string, err error) {
		mu.Lock()
		defer mu.Unlock()
		stats.Errors++
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", rel, err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.workers)

	for _, file := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			raw, err := afero.ReadFile(idx.fs, file.abs)
			if err != nil {
				fail(file.rel, err)
				return nil
			}
			if !utf8.Valid(raw) {
				logger.Debug("skipping non-UTF-8 file %s", file.rel)
				return nil
			}

			content := string(raw)
			res, err := idx.SyncDocument(gctx, projectID, file.rel, corpus.Title(file.rel, content), content)

			mu.Lock()
			defer mu.Unlock()
			stats.DocumentsScanned++
			if res != nil {
				if !res.Unchanged {
					stats.DocumentsChanged++
				}
				stats.ChunksIndexed += res.ChunksIndexed
				stats.ChunksReused += res.ChunksReused
			}
			if err != nil {
				stats.Errors++
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", file.rel, err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}

	stats.Duration = time.Since(start)
	logger.Info("synced directory %s for %s: %d scanned, %d changed, %d indexed, %d reused, %d errors",
		root, projectID, stats.DocumentsScanned, stats.DocumentsChanged, stats.ChunksIndexed, stats.ChunksReused, stats.Errors)
	return stats, nil
}

type discoveredFile struct {
	abs string
	rel string
}

// discoverFiles lists regular files under root, skipping hidden
// directories, dependency trees and files over MaxFileSize
func (idx *Indexer) discoverFiles(root string) ([]discoveredFile, error) {
	root = filepath.Clean(root)
	var files []discoveredFile

	err := afero.Walk(idx.fs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path == root {
				return nil
			}
			name := info.Name()
			if strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}

		if !info.Mode().IsRegular() || info.Size() > MaxFileSize || strings.HasPrefix(info.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, discoveredFile{abs: path, rel: filepath.ToSlash(rel)})
		return nil
	})

	return files, err
}

func shortHash(h fingerprint.Hash) string {
	if len(h) > 12 {
		return string(h[:12])
	}
	return string(h)
}
