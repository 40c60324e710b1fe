package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// searchVector ranks a project's embeddings by cosine similarity to
// queryVector. Similarity is computed in Go for both drivers.
func searchVector(ctx context.Context, db *sql.DB, projectID string, queryVector []float32, limit int) ([]VectorResult, error) {
	query := `
		SELECT e.id, e.document_id, d.file_path, e.chunk_hash, e.content, e.metadata, e.vector
		FROM chunk_embeddings e
		INNER JOIN documents d ON e.document_id = d.id
		WHERE d.project_id = ? AND e.dimension = ?
	`
	rows, err := db.QueryContext(ctx, query, projectID, len(queryVector))
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates, err := computeSimilarityScores(rows, queryVector)
	if err != nil {
		return nil, err
	}

	sortCandidates(candidates)
	return topResults(candidates, limit), nil
}

// computeSimilarityScores scans embedding rows and scores each against
// the query vector
func computeSimilarityScores(rows *sql.Rows, queryVector []float32) ([]VectorResult, error) {
	candidates := make([]VectorResult, 0)

	for rows.Next() {
		var r VectorResult
		var meta sql.NullString
		var blob []byte
		if err := rows.Scan(&r.EmbeddingID, &r.DocumentID, &r.FilePath, &r.ChunkHash, &r.Content, &meta, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}

		vector := deserializeVector(blob)
		if len(vector) != len(queryVector) {
			continue // Dimension mismatch, skip
		}
		r.SimilarityScore = cosineSimilarity(queryVector, vector)

		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &r.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode metadata for embedding %d: %w", r.EmbeddingID, err)
			}
		}
		candidates = append(candidates, r)
	}

	return candidates, rows.Err()
}

// topResults truncates candidates to limit; a non-positive limit keeps all
func topResults(candidates []VectorResult, limit int) []VectorResult {
	if limit <= 0 || limit > len(candidates) {
		limit = len(candidates)
	}
	return candidates[:limit]
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// sortCandidates sorts by score descending; equal scores keep insertion
// order so results are deterministic
func sortCandidates(candidates []VectorResult) {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].SimilarityScore > candidates[j].SimilarityScore
	})
}
