package storage

import (
	"context"
	"time"
)

// DocumentStore persists document records keyed by (project, path)
type DocumentStore interface {
	GetDocument(ctx context.Context, projectID, filePath string) (*Document, error)
	UpsertDocument(ctx context.Context, doc *Document) error
	// InvalidateChecksum clears a document's checksum so the next sync
	// reconciles it even when the content is unchanged
	InvalidateChecksum(ctx context.Context, documentID int64) error
	DeleteDocument(ctx context.Context, projectID, filePath string) error
	ListDocuments(ctx context.Context, projectID string) ([]*Document, error)
}

// EmbeddingStore persists chunk embeddings owned by a document
type EmbeddingStore interface {
	ListEmbeddingHashes(ctx context.Context, documentID int64) ([]StoredHash, error)
	DeleteEmbeddings(ctx context.Context, ids []int64) (deletedCount int, err error)
	InsertEmbedding(ctx context.Context, emb *ChunkEmbedding) error
	SearchEmbeddings(ctx context.Context, projectID string, vector []float32, limit int) ([]VectorResult, error)
}

// Storage combines the document and embedding stores
type Storage interface {
	DocumentStore
	EmbeddingStore

	// Status operations
	GetStatus(ctx context.Context, projectID string) (*ProjectStatus, error)

	// Database operations
	Close() error
}

// Document is the stored unit a sync operates against
type Document struct {
	ID        int64
	ProjectID string
	FilePath  string
	Title     string
	Content   string
	Checksum  string // hex content digest
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoredHash identifies one stored embedding by row id and chunk hash
type StoredHash struct {
	ID   int64
	Hash string
}

// ChunkMetadata is stored as JSON alongside each embedding
type ChunkMetadata struct {
	ChunkIndex       int    `json:"chunk_index"`
	Kind             string `json:"kind"`
	StartLine        int    `json:"start_line"`
	EndLine          int    `json:"end_line"`
	Language         string `json:"language"`
	SourcePath       string `json:"source_path"`
	EnclosingContext string `json:"enclosing_context,omitempty"`
	Title            string `json:"title,omitempty"`
}

// ChunkEmbedding is a persisted chunk with its vector. Rows are never
// updated; a changed chunk is a delete plus an insert.
type ChunkEmbedding struct {
	ID         int64
	DocumentID int64
	ChunkHash  string
	Content    string
	Vector     []float32
	Provider   string
	Model      string
	Metadata   ChunkMetadata
	CreatedAt  time.Time
}

// VectorResult is one similarity match
type VectorResult struct {
	EmbeddingID     int64
	DocumentID      int64
	FilePath        string
	ChunkHash       string
	Content         string
	Metadata        ChunkMetadata
	SimilarityScore float64
}

// ProjectStatus reports what is stored for a project
type ProjectStatus struct {
	ProjectID       string
	DocumentsCount  int
	EmbeddingsCount int
	LastUpdatedAt   time.Time
	IndexSizeMB     float64
}
