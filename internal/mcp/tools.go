package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/afero"

	"github.com/dshills/docsync-mcp/internal/corpus"
	"github.com/dshills/docsync-mcp/internal/indexer"
	"github.com/dshills/docsync-mcp/internal/searcher"
	"github.com/dshills/docsync-mcp/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeNotFound       = -32001 // Document or path does not exist
	ErrorCodeSyncInProgress = -32002 // Another directory sync is running for the project
)

const (
	// MaxLimit caps limit parameters
	MaxLimit = 100
	// MaxSuggestions caps suggestions on a read miss
	MaxSuggestions = 5
	// maxReportedErrors caps error messages in a sync_directory response
	maxReportedErrors = 5
)

// handleChunkFile handles the chunk_file tool invocation
func (s *Server) handleChunkFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	content, err := s.contentOrFile(args, path)
	if err != nil {
		return nil, err
	}

	chunks := s.chunker.ChunkFile(ctx, path, content)

	items := make([]map[string]interface{}, len(chunks))
	for i, c := range chunks {
		item := map[string]interface{}{
			"kind":       c.Kind,
			"start_line": c.StartLine,
			"end_line":   c.EndLine,
			"language":   c.Language,
			"tokens":     c.TokenCount(),
			"content":    c.Content,
		}
		if c.EnclosingContext != "" {
			item["enclosing_context"] = c.EnclosingContext
		}
		items[i] = item
	}

	return textResult(map[string]interface{}{
		"path":   path,
		"count":  len(chunks),
		"chunks": items,
	}), nil
}

// handleSyncDocument handles the sync_document tool invocation
func (s *Server) handleSyncDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	content, err := s.contentOrFile(args, path)
	if err != nil {
		return nil, err
	}
	title := getStringDefault(args, "title", "")
	if title == "" {
		title = corpus.Title(path, content)
	}

	res, err := s.indexer.SyncDocument(ctx, projectID, path, title, content)
	if err != nil {
		return nil, toolError("sync failed", err)
	}

	return textResult(map[string]interface{}{
		"document": map[string]interface{}{
			"id":         res.Document.ID,
			"project_id": res.Document.ProjectID,
			"path":       res.Document.FilePath,
			"title":      res.Document.Title,
			"version":    res.Document.Version,
			"checksum":   res.Document.Checksum,
		},
		"unchanged":      res.Unchanged,
		"chunks_indexed": res.ChunksIndexed,
		"chunks_reused":  res.ChunksReused,
	}), nil
}

// handleDeleteDocument handles the delete_document tool invocation
func (s *Server) handleDeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}

	if err := s.indexer.DeleteDocument(ctx, projectID, path); err != nil {
		return nil, toolError("delete failed", err)
	}

	return textResult(map[string]interface{}{
		"deleted":    true,
		"project_id": projectID,
		"path":       path,
	}), nil
}

// handleSyncDirectory handles the sync_directory tool invocation
func (s *Server) handleSyncDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}
	path, err := requireString(args, "path")
	if err != nil {
		return nil, err
	}
	if ok, _ := afero.DirExists(s.fs, path); !ok {
		return nil, newMCPError(ErrorCodeNotFound, "directory not found", map[string]interface{}{
			"param": "path",
			"value": path,
		})
	}

	stats, err := s.indexer.SyncDirectory(ctx, projectID, path)
	if err != nil {
		return nil, toolError("directory sync failed", err)
	}

	response := map[string]interface{}{
		"documents_scanned": stats.DocumentsScanned,
		"documents_changed": stats.DocumentsChanged,
		"chunks_indexed":    stats.ChunksIndexed,
		"chunks_reused":     stats.ChunksReused,
		"errors":            stats.Errors,
		"duration_ms":       stats.Duration.Milliseconds(),
	}
	if len(stats.ErrorMessages) > 0 {
		msgs := stats.ErrorMessages
		if len(msgs) > maxReportedErrors {
			msgs = msgs[:maxReportedErrors]
		}
		response["error_messages"] = msgs
	}

	return textResult(response), nil
}

// handleSearch handles the search tool invocation
func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := getLimit(args, 10)
	if err != nil {
		return nil, err
	}
	root := getStringDefault(args, "corpus_root", s.corpusRoot)

	hits, err := s.searcher.Search(root, query, limit)
	if err != nil {
		return nil, toolError("search failed", err)
	}

	return textResult(map[string]interface{}{
		"query":   query,
		"count":   len(hits),
		"results": hits,
	}), nil
}

// handleRead handles the read tool invocation
func (s *Server) handleRead(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	docID, err := requireString(args, "doc_id")
	if err != nil {
		return nil, err
	}
	root := getStringDefault(args, "corpus_root", s.corpusRoot)

	doc, ok, err := s.searcher.Read(docID, root)
	if err != nil {
		return nil, toolError("read failed", err)
	}
	if !ok {
		suggestions, err := s.searcher.Suggest(docID, root, MaxSuggestions)
		if err != nil {
			return nil, toolError("read failed", err)
		}
		return textResult(map[string]interface{}{
			"found":       false,
			"doc_id":      docID,
			"message":     fmt.Sprintf("document %q not found", docID),
			"suggestions": suggestions,
		}), nil
	}

	return textResult(map[string]interface{}{
		"found":    true,
		"document": doc,
	}), nil
}

// handleMatchChunks handles the match_chunks tool invocation
func (s *Server) handleMatchChunks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}
	query, err := requireString(args, "query")
	if err != nil {
		return nil, err
	}
	limit, err := getLimit(args, searcher.DefaultMatchLimit)
	if err != nil {
		return nil, err
	}

	matches, err := s.searcher.MatchChunks(ctx, projectID, query, limit)
	if err != nil {
		return nil, toolError("match failed", err)
	}

	return textResult(map[string]interface{}{
		"query":   query,
		"count":   len(matches),
		"matches": matches,
	}), nil
}

// handleStatus handles the status tool invocation
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	projectID, err := requireString(args, "project_id")
	if err != nil {
		return nil, err
	}

	status, err := s.indexer.Status(ctx, projectID)
	if err != nil {
		return nil, toolError("failed to get status", err)
	}

	response := map[string]interface{}{
		"project_id":       status.ProjectID,
		"indexed":          status.DocumentsCount > 0,
		"documents_count":  status.DocumentsCount,
		"embeddings_count": status.EmbeddingsCount,
		"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
	}
	if !status.LastUpdatedAt.IsZero() {
		response["last_updated_at"] = status.LastUpdatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	if s.embedder != nil {
		response["embedding_provider"] = s.embedder.Provider()
		response["embedding_model"] = s.embedder.Model()
	}
	if s.chunker != nil {
		st := s.chunker.Stats()
		response["chunker"] = map[string]interface{}{
			"grammar_files":  st.GrammarFiles,
			"fallback_files": st.FallbackFiles,
		}
	}

	return textResult(response), nil
}

// Helper functions

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// toolError maps a component error to an MCP error code
func toolError(message string, err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, corpus.ErrNoRoot):
		code = ErrorCodeNotFound
	case errors.Is(err, indexer.ErrSyncInProgress):
		code = ErrorCodeSyncInProgress
	case errors.Is(err, indexer.ErrEmptyProjectID), errors.Is(err, indexer.ErrEmptyPath),
		errors.Is(err, searcher.ErrEmptyQuery), errors.Is(err, searcher.ErrEmptyDocID),
		errors.Is(err, searcher.ErrEmptyCorpus):
		code = ErrorCodeInvalidParams
	}
	return newMCPError(code, message, map[string]interface{}{
		"error": err.Error(),
	})
}

func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func requireString(args map[string]interface{}, key string) (string, error) {
	val, ok := args[key].(string)
	if !ok || val == "" {
		return "", newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]interface{}{
			"param":  key,
			"reason": "missing or empty",
		})
	}
	return val, nil
}

// contentOrFile returns the content argument, or reads path when it is absent
func (s *Server) contentOrFile(args map[string]interface{}, path string) (string, error) {
	if content, ok := args["content"].(string); ok {
		return content, nil
	}
	raw, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", newMCPError(ErrorCodeNotFound, "file not readable", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}
	return string(raw), nil
}

func getLimit(args map[string]interface{}, defaultValue int) (int, error) {
	limit := getIntDefault(args, "limit", defaultValue)
	if limit < 0 || limit > MaxLimit {
		return 0, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 0 and %d", MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	return limit, nil
}

// textResult formats a response as indented JSON text
func textResult(data map[string]interface{}) *mcp.CallToolResult {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("%v", data))
	}
	return mcp.NewToolResultText(string(bytes))
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}
