package types

// DocumentRef is the metadata kept for each corpus document by the search index
type DocumentRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
	Path  string `json:"path"`
}

// Document is a fully read corpus document
type Document struct {
	DocumentRef
	Meta map[string]any `json:"meta,omitempty"`
	Body string         `json:"body"`
}

// SearchHit pairs a document reference with its lexical relevance
type SearchHit struct {
	Ref   DocumentRef `json:"ref"`
	Score int         `json:"score"`
}

// ChunkMatch is a stored chunk returned by similarity lookup
type ChunkMatch struct {
	Rank       int     `json:"rank"` // 1-based
	Similarity float64 `json:"similarity"`
	FilePath   string  `json:"file_path"`
	ChunkHash  string  `json:"chunk_hash"`
	Content    string  `json:"content"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	Kind       string  `json:"kind"`
}

// Validate checks if the match is well formed
func (m *ChunkMatch) Validate() error {
	if m.Rank < 1 {
		return ErrInvalidRank
	}
	if m.FilePath == "" {
		return ErrInvalidPath
	}
	if m.Content == "" {
		return ErrEmptyContent
	}
	return nil
}
