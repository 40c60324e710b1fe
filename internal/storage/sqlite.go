package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// One long-lived connection: pragmas below are per connection and
	// every :memory: connection is a separate database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Embeddings are removed with their document
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Document operations

// GetDocument returns the document stored at (projectID, filePath)
func (s *SQLiteStorage) GetDocument(ctx context.Context, projectID, filePath string) (*Document, error) {
	query := `
		SELECT id, project_id, file_path, title, content, checksum, version, created_at, updated_at
		FROM documents
		WHERE project_id = ? AND file_path = ?
	`
	var doc Document
	var title sql.NullString
	err := s.db.QueryRowContext(ctx, query, projectID, filePath).Scan(
		&doc.ID, &doc.ProjectID, &doc.FilePath, &title, &doc.Content,
		&doc.Checksum, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	doc.Title = title.String
	return &doc, nil
}

// UpsertDocument inserts a document at version 1 or updates the existing
// row. The version only advances when the checksum changes. The write is a
// single statement, so the content and checksum never diverge.
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (project_id, file_path, title, content, checksum, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(project_id, file_path) DO UPDATE SET
			title = excluded.title,
			content = excluded.content,
			version = CASE WHEN documents.checksum = excluded.checksum
				THEN documents.version ELSE documents.version + 1 END,
			checksum = excluded.checksum,
			updated_at = excluded.updated_at
		RETURNING id, version
	`
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, query,
		doc.ProjectID, doc.FilePath, doc.Title, doc.Content, doc.Checksum, now, now,
	).Scan(&doc.ID, &doc.Version)
	if err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	return nil
}

// InvalidateChecksum clears the stored checksum of a document
func (s *SQLiteStorage) InvalidateChecksum(ctx context.Context, documentID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE documents SET checksum = '' WHERE id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("failed to invalidate checksum: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDocument removes a document; its embeddings cascade
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, projectID, filePath string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE project_id = ? AND file_path = ?`, projectID, filePath)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDocuments returns all documents of a project ordered by path
func (s *SQLiteStorage) ListDocuments(ctx context.Context, projectID string) ([]*Document, error) {
	query := `
		SELECT id, project_id, file_path, title, content, checksum, version, created_at, updated_at
		FROM documents
		WHERE project_id = ?
		ORDER BY file_path
	`
	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	docs := make([]*Document, 0)
	for rows.Next() {
		var doc Document
		var title sql.NullString
		if err := rows.Scan(
			&doc.ID, &doc.ProjectID, &doc.FilePath, &title, &doc.Content,
			&doc.Checksum, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		doc.Title = title.String
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// Embedding operations

// ListEmbeddingHashes returns the id and chunk hash of every embedding
// stored for a document
func (s *SQLiteStorage) ListEmbeddingHashes(ctx context.Context, documentID int64) ([]StoredHash, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chunk_hash FROM chunk_embeddings WHERE document_id = ? ORDER BY id`, documentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	hashes := make([]StoredHash, 0)
	for rows.Next() {
		var h StoredHash
		if err := rows.Scan(&h.ID, &h.Hash); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// DeleteEmbeddings deletes multiple embeddings in a single query
func (s *SQLiteStorage) DeleteEmbeddings(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	// Build parameterized IN clause
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `DELETE FROM chunk_embeddings WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rowsAffected), nil
}

// InsertEmbedding stores a new embedding. A second embedding with the same
// hash for the same document returns ErrAlreadyExists.
func (s *SQLiteStorage) InsertEmbedding(ctx context.Context, emb *ChunkEmbedding) error {
	if len(emb.Vector) == 0 {
		return errors.New("embedding vector cannot be empty")
	}

	meta, err := json.Marshal(emb.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	query := `
		INSERT INTO chunk_embeddings (document_id, chunk_hash, content, vector, dimension, provider, model, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, chunk_hash) DO NOTHING
		RETURNING id
	`
	now := time.Now().UTC()
	err = s.db.QueryRowContext(ctx, query,
		emb.DocumentID, emb.ChunkHash, emb.Content, serializeVector(emb.Vector), len(emb.Vector),
		emb.Provider, emb.Model, string(meta), now,
	).Scan(&emb.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("embedding %s for document %d: %w", emb.ChunkHash, emb.DocumentID, ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to insert embedding: %w", err)
	}

	emb.CreatedAt = now
	return nil
}

// SearchEmbeddings returns the embeddings of a project most similar to vector
func (s *SQLiteStorage) SearchEmbeddings(ctx context.Context, projectID string, vector []float32, limit int) ([]VectorResult, error) {
	return searchVector(ctx, s.db, projectID, vector, limit)
}

// Status operations

// GetStatus reports document and embedding counts for a project
func (s *SQLiteStorage) GetStatus(ctx context.Context, projectID string) (*ProjectStatus, error) {
	status := &ProjectStatus{ProjectID: projectID}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE project_id = ?`, projectID,
	).Scan(&status.DocumentsCount)
	if err != nil {
		return nil, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunk_embeddings e
		JOIN documents d ON e.document_id = d.id
		WHERE d.project_id = ?
	`, projectID).Scan(&status.EmbeddingsCount)
	if err != nil {
		return nil, err
	}

	if status.DocumentsCount > 0 {
		var last sql.NullString
		err = s.db.QueryRowContext(ctx,
			`SELECT MAX(updated_at) FROM documents WHERE project_id = ?`, projectID,
		).Scan(&last)
		if err == nil && last.Valid {
			status.LastUpdatedAt = parseTimestamp(last.String)
		}
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	return status, nil
}

// parseTimestamp parses the text form drivers use for aggregated
// TIMESTAMP values, returning the zero time when no layout matches
func parseTimestamp(s string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999 -0700 MST",
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
