package indexer

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsync-mcp/internal/chunker"
	"github.com/dshills/docsync-mcp/internal/embedder"
	"github.com/dshills/docsync-mcp/internal/fingerprint"
	"github.com/dshills/docsync-mcp/internal/storage"
)

// mockEmbedder implements embedder.Embedder for testing
type mockEmbedder struct {
	dimension int
	failOn    map[int]bool // 1-based call numbers that fail
	callCount int
	texts     []string
	mu        sync.Mutex
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dimension: 3, failOn: map[int]bool{}}
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.texts = append(m.texts, req.Text)
	if m.failOn[m.callCount] {
		return nil, fmt.Errorf("mock failure on call %d", m.callCount)
	}

	return &embedder.Embedding{
		Vector:    []float32{float32(len(req.Text)), 1, 0.5},
		Dimension: m.dimension,
		Provider:  "mock",
		Model:     "test-v1",
	}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	resp := &embedder.BatchEmbeddingResponse{Provider: "mock", Model: "test-v1"}
	for _, text := range req.Texts {
		emb, err := m.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
		if err != nil {
			return nil, err
		}
		resp.Embeddings = append(resp.Embeddings, emb)
	}
	return resp, nil
}

func (m *mockEmbedder) Dimension() int   { return m.dimension }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "test-v1" }
func (m *mockEmbedder) Close() error     { return nil }

func (m *mockEmbedder) getCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// recordingStore records embedding writes on top of a real store
type recordingStore struct {
	storage.Storage
	mu        sync.Mutex
	inserted  []string
	deleted   []int64
	upsertErr error
	listErr   error
	order     []string
}

func (r *recordingStore) ListEmbeddingHashes(ctx context.Context, documentID int64) ([]storage.StoredHash, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.Storage.ListEmbeddingHashes(ctx, documentID)
}

func (r *recordingStore) UpsertDocument(ctx context.Context, doc *storage.Document) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	return r.Storage.UpsertDocument(ctx, doc)
}

func (r *recordingStore) InsertEmbedding(ctx context.Context, emb *storage.ChunkEmbedding) error {
	r.mu.Lock()
	r.inserted = append(r.inserted, emb.ChunkHash)
	r.order = append(r.order, "insert")
	r.mu.Unlock()
	return r.Storage.InsertEmbedding(ctx, emb)
}

func (r *recordingStore) DeleteEmbeddings(ctx context.Context, ids []int64) (int, error) {
	r.mu.Lock()
	r.deleted = append(r.deleted, ids...)
	r.order = append(r.order, "delete")
	r.mu.Unlock()
	return r.Storage.DeleteEmbeddings(ctx, ids)
}

func (r *recordingStore) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inserted, r.deleted, r.order = nil, nil, nil
}

// setupTestStorage creates an in-memory SQLite database for testing
func setupTestStorage(t testing.TB) *recordingStore {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "Failed to create test storage")
	t.Cleanup(func() { _ = store.Close() })

	return &recordingStore{Storage: store}
}

func newTestIndexer(t testing.TB, cfg Config) (*Indexer, *recordingStore, *mockEmbedder) {
	t.Helper()
	store := setupTestStorage(t)
	emb := newMockEmbedder()
	// grammars disabled: the fallback segmenter is deterministic everywhere
	return New(store, chunker.New(nil), emb, cfg), store, emb
}

func storedHashes(t *testing.T, store storage.Storage, docID int64) []string {
	t.Helper()
	hashes, err := store.ListEmbeddingHashes(context.Background(), docID)
	require.NoError(t, err)
	out := make([]string, len(hashes))
	for i, h := range hashes {
		out[i] = h.Hash
	}
	sort.Strings(out)
	return out
}

func hashesOf(texts ...string) []string {
	out := make([]string, len(texts))
	for i, s := range texts {
		out[i] = string(fingerprint.String(s))
	}
	sort.Strings(out)
	return out
}

func TestSyncDocument_FirstSync(t *testing.T) {
	idx, store, _ := newTestIndexer(t, Config{})

	res, err := idx.SyncDocument(context.Background(), "p1", "a.md", "A", "# A\nhello")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Document.Version)
	assert.Equal(t, 1, res.ChunksIndexed)
	assert.Equal(t, 0, res.ChunksReused)
	assert.False(t, res.Unchanged)
	assert.Equal(t, hashesOf("# A\nhello"), storedHashes(t, store, res.Document.ID))
}

func TestSyncDocument_NoOpResync(t *testing.T) {
	idx, store, emb := newTestIndexer(t, Config{})
	ctx := context.Background()

	first, err := idx.SyncDocument(ctx, "p1", "a.txt", "A", "one\n\ntwo")
	require.NoError(t, err)
	calls := emb.getCallCount()
	store.reset()

	second, err := idx.SyncDocument(ctx, "p1", "a.txt", "A", "one\n\ntwo")
	require.NoError(t, err)

	assert.True(t, second.Unchanged)
	assert.Equal(t, 0, second.ChunksIndexed)
	assert.Equal(t, 0, second.ChunksReused)
	assert.Equal(t, first.Document.Version, second.Document.Version)
	assert.Equal(t, calls, emb.getCallCount())
	assert.Empty(t, store.order)
}

func TestSyncDocument_ExactReconciliation(t *testing.T) {
	idx, store, emb := newTestIndexer(t, Config{})
	ctx := context.Background()

	res, err := idx.SyncDocument(ctx, "p1", "notes.txt", "Notes", "alpha\n\nbeta\n\ngamma")
	require.NoError(t, err)
	require.Equal(t, 3, res.ChunksIndexed)
	docID := res.Document.ID

	before, err := store.ListEmbeddingHashes(ctx, docID)
	require.NoError(t, err)
	var gammaID int64
	for _, h := range before {
		if h.Hash == string(fingerprint.String("gamma")) {
			gammaID = h.ID
		}
	}
	require.NotZero(t, gammaID)

	store.reset()
	embCalls := emb.getCallCount()

	res, err = idx.SyncDocument(ctx, "p1", "notes.txt", "Notes", "alpha\n\nbeta\n\ndelta")
	require.NoError(t, err)

	assert.Equal(t, 2, res.Document.Version)
	assert.Equal(t, 1, res.ChunksIndexed)
	assert.Equal(t, 2, res.ChunksReused)

	assert.Equal(t, []int64{gammaID}, store.deleted)
	assert.Equal(t, []string{string(fingerprint.String("delta"))}, store.inserted)
	assert.Equal(t, []string{"delete", "insert"}, store.order)
	assert.Equal(t, embCalls+1, emb.getCallCount())
	assert.Equal(t, hashesOf("alpha", "beta", "delta"), storedHashes(t, store, docID))
}

func TestSyncDocument_EmbeddingFailureIsolation(t *testing.T) {
	idx, store, emb := newTestIndexer(t, Config{})
	emb.failOn[2] = true

	res, err := idx.SyncDocument(context.Background(), "p1", "x.txt", "X", "first\n\nsecond\n\nthird")
	require.NoError(t, err)

	assert.Equal(t, 2, res.ChunksIndexed)
	assert.Equal(t, 0, res.ChunksReused)
	assert.Equal(t, hashesOf("first", "third"), storedHashes(t, store, res.Document.ID))

	// a later sync of changed content picks the missed chunk up again
	res, err = idx.SyncDocument(context.Background(), "p1", "x.txt", "X", "first\n\nsecond\n\nthird\n\nfourth")
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChunksIndexed)
	assert.Equal(t, hashesOf("first", "second", "third", "fourth"), storedHashes(t, store, res.Document.ID))
}

func TestSyncDocument_DuplicateChunks(t *testing.T) {
	idx, store, emb := newTestIndexer(t, Config{})

	res, err := idx.SyncDocument(context.Background(), "p1", "dup.txt", "D", "same\n\nsame\n\nother")
	require.NoError(t, err)

	assert.Equal(t, 2, res.ChunksIndexed)
	assert.Equal(t, 1, res.ChunksReused)
	assert.Equal(t, 2, emb.getCallCount())
	assert.Equal(t, hashesOf("same", "other"), storedHashes(t, store, res.Document.ID))
}

func TestSyncDocument_UpsertFailureIsFatal(t *testing.T) {
	idx, store, emb := newTestIndexer(t, Config{})
	store.upsertErr = errors.New("disk full")

	_, err := idx.SyncDocument(context.Background(), "p1", "a.md", "A", "# A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0, emb.getCallCount())
	assert.Empty(t, store.order)
}

func TestSyncDocument_Validation(t *testing.T) {
	idx, _, _ := newTestIndexer(t, Config{})
	ctx := context.Background()

	_, err := idx.SyncDocument(ctx, "", "a.md", "", "x")
	assert.ErrorIs(t, err, ErrEmptyProjectID)
	_, err = idx.SyncDocument(ctx, "p1", "", "", "x")
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestSyncDocument_RateLimited(t *testing.T) {
	idx, _, _ := newTestIndexer(t, Config{EmbedDelay: 20 * time.Millisecond})

	start := time.Now()
	res, err := idx.SyncDocument(context.Background(), "p1", "r.txt", "R", "a\n\nb\n\nc")
	require.NoError(t, err)
	assert.Equal(t, 3, res.ChunksIndexed)
	// first call is immediate, the next two wait one interval each
	assert.GreaterOrEqual(t, time.Since(start), 35*time.Millisecond)
}

func TestSyncDocument_CanceledWhileWaiting(t *testing.T) {
	idx, _, emb := newTestIndexer(t, Config{EmbedDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := idx.SyncDocument(ctx, "p1", "c.txt", "C", "a\n\nb")
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.ChunksIndexed)
	assert.Equal(t, 1, emb.getCallCount())
}

func TestSyncDocument_RetryAfterCancel(t *testing.T) {
	store := setupTestStorage(t)
	first := New(store, chunker.New(nil), newMockEmbedder(), Config{EmbedDelay: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res, err := first.SyncDocument(ctx, "p1", "c.txt", "C", "a\n\nb")
	require.Error(t, err)
	assert.Equal(t, hashesOf("a"), storedHashes(t, store, res.Document.ID))

	// Same content again must not short-circuit
	retry := New(store, chunker.New(nil), newMockEmbedder(), Config{})
	res, err = retry.SyncDocument(context.Background(), "p1", "c.txt", "C", "a\n\nb")
	require.NoError(t, err)
	assert.False(t, res.Unchanged)
	assert.Equal(t, 1, res.ChunksIndexed)
	assert.Equal(t, 1, res.ChunksReused)
	assert.Equal(t, hashesOf("a", "b"), storedHashes(t, store, res.Document.ID))

	// Now complete, so a third sync is a no-op
	res, err = retry.SyncDocument(context.Background(), "p1", "c.txt", "C", "a\n\nb")
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
}

func TestSyncDocument_RetryAfterEmbeddingFailure(t *testing.T) {
	idx, store, emb := newTestIndexer(t, Config{})
	emb.failOn[2] = true
	content := "first\n\nsecond\n\nthird"

	res, err := idx.SyncDocument(context.Background(), "p1", "x.txt", "X", content)
	require.NoError(t, err)
	assert.Equal(t, 2, res.ChunksIndexed)

	res, err = idx.SyncDocument(context.Background(), "p1", "x.txt", "X", content)
	require.NoError(t, err)
	assert.False(t, res.Unchanged)
	assert.Equal(t, 1, res.ChunksIndexed)
	assert.Equal(t, 2, res.ChunksReused)
	assert.Equal(t, hashesOf("first", "second", "third"), storedHashes(t, store, res.Document.ID))

	res, err = idx.SyncDocument(context.Background(), "p1", "x.txt", "X", content)
	require.NoError(t, err)
	assert.True(t, res.Unchanged)
}

func TestSyncDocument_RetryAfterListFailure(t *testing.T) {
	idx, store, _ := newTestIndexer(t, Config{})
	store.listErr = errors.New("io error")

	_, err := idx.SyncDocument(context.Background(), "p1", "l.txt", "L", "one\n\ntwo")
	require.Error(t, err)

	store.listErr = nil
	res, err := idx.SyncDocument(context.Background(), "p1", "l.txt", "L", "one\n\ntwo")
	require.NoError(t, err)
	assert.False(t, res.Unchanged)
	assert.Equal(t, 2, res.ChunksIndexed)
	assert.Equal(t, hashesOf("one", "two"), storedHashes(t, store, res.Document.ID))
}

func TestDeleteDocument(t *testing.T) {
	idx, store, _ := newTestIndexer(t, Config{})
	ctx := context.Background()

	res, err := idx.SyncDocument(ctx, "p1", "a.txt", "A", "one\n\ntwo")
	require.NoError(t, err)

	require.NoError(t, idx.DeleteDocument(ctx, "p1", "a.txt"))
	assert.Empty(t, storedHashes(t, store, res.Document.ID))

	err = idx.DeleteDocument(ctx, "p1", "a.txt")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// resync after delete starts over at version 1
	res, err = idx.SyncDocument(ctx, "p1", "a.txt", "A", "one\n\ntwo")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Document.Version)
	assert.Equal(t, 2, res.ChunksIndexed)
}

func TestStatus(t *testing.T) {
	idx, _, _ := newTestIndexer(t, Config{})
	ctx := context.Background()

	_, err := idx.SyncDocument(ctx, "p1", "a.txt", "A", "one\n\ntwo")
	require.NoError(t, err)

	status, err := idx.Status(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, status.DocumentsCount)
	assert.Equal(t, 2, status.EmbeddingsCount)
}

func memDir(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/repo", 0o755))
	for name, content := range files {
		p := path.Join("/repo", name)
		require.NoError(t, fs.MkdirAll(path.Dir(p), 0o755))
		require.NoError(t, afero.WriteFile(fs, p, []byte(content), 0o644))
	}
	return fs
}

func TestSyncDirectory(t *testing.T) {
	fs := memDir(t, map[string]string{
		"README.md":               "# Readme\nintro\n## Usage\nrun it",
		"docs/guide.md":           "---\ntitle: Guide\n---\nbody",
		"src/main.go":             "package main\n\nfunc main() {}\n",
		".git/config":             "[core]",
		"node_modules/x/index.js": "module.exports = 1",
		"vendor/lib/lib.go":       "package lib",
		"big.txt":                 string(make([]byte, MaxFileSize+1)),
	})
	idx, store, _ := newTestIndexer(t, Config{Fs: fs, Workers: 2})
	ctx := context.Background()

	stats, err := idx.SyncDirectory(ctx, "p1", "/repo")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentsScanned)
	assert.Equal(t, 3, stats.DocumentsChanged)
	assert.Equal(t, 0, stats.Errors)
	assert.Greater(t, stats.ChunksIndexed, 0)

	docs, err := store.ListDocuments(ctx, "p1")
	require.NoError(t, err)
	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.FilePath
	}
	assert.Equal(t, []string{"README.md", "docs/guide.md", "src/main.go"}, paths)
	assert.Equal(t, "Readme", docs[0].Title)
	assert.Equal(t, "Guide", docs[1].Title)
	assert.Equal(t, "main.go", docs[2].Title)

	// second pass changes nothing
	stats, err = idx.SyncDirectory(ctx, "p1", "/repo")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentsScanned)
	assert.Equal(t, 0, stats.DocumentsChanged)
	assert.Equal(t, 0, stats.ChunksIndexed)
}

func TestSyncDirectory_CountsFailures(t *testing.T) {
	fs := memDir(t, map[string]string{"a.txt": "a", "b.txt": "b"})
	idx, store, _ := newTestIndexer(t, Config{Fs: fs, Workers: 1})
	store.upsertErr = errors.New("readonly")

	stats, err := idx.SyncDirectory(context.Background(), "p1", "/repo")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentsScanned)
	assert.Equal(t, 2, stats.Errors)
	assert.Len(t, stats.ErrorMessages, 2)
}

func TestSyncDirectory_InProgress(t *testing.T) {
	idx, _, _ := newTestIndexer(t, Config{Fs: memDir(t, map[string]string{"a.txt": "a"})})

	require.True(t, idx.locks.tryLock("p1"))

	_, err := idx.SyncDirectory(context.Background(), "p1", "/repo")
	assert.ErrorIs(t, err, ErrSyncInProgress)

	// other projects are independent
	_, err = idx.SyncDirectory(context.Background(), "p2", "/repo")
	assert.NoError(t, err)

	idx.locks.unlock("p1")
	_, err = idx.SyncDirectory(context.Background(), "p1", "/repo")
	assert.NoError(t, err)
}

func TestSyncDirectory_MissingRoot(t *testing.T) {
	idx, _, _ := newTestIndexer(t, Config{Fs: afero.NewMemMapFs()})

	_, err := idx.SyncDirectory(context.Background(), "p1", "/nope")
	assert.Error(t, err)
}

func TestProjectLocks(t *testing.T) {
	var l projectLocks
	assert.True(t, l.tryLock("a"))
	assert.False(t, l.tryLock("a"))
	assert.True(t, l.tryLock("b"))
	l.unlock("a")
	assert.True(t, l.tryLock("a"))
}
