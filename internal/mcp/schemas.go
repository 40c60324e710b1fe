package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func limitProp(description string, def int) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
		"default":     def,
		"minimum":     0,
		"maximum":     MaxLimit,
	}
}

// chunkFileTool returns the tool definition for chunk_file
func chunkFileTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_file",
		Description: "Split a file into semantically coherent chunks without storing anything",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path":    stringProp("File path; the extension selects the language"),
				"content": stringProp("File content. When omitted the file at path is read"),
			},
			Required: []string{"path"},
		},
	}
}

// syncDocumentTool returns the tool definition for sync_document
func syncDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sync_document",
		Description: "Store a document and re-embed only the chunks whose content changed",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": stringProp("Project the document belongs to"),
				"path":       stringProp("Document path, unique within the project"),
				"title":      stringProp("Display title. Derived from the content when omitted"),
				"content":    stringProp("Document content. When omitted the file at path is read"),
			},
			Required: []string{"project_id", "path"},
		},
	}
}

// deleteDocumentTool returns the tool definition for delete_document
func deleteDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and all of its chunk embeddings",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": stringProp("Project the document belongs to"),
				"path":       stringProp("Document path as it was synced"),
			},
			Required: []string{"project_id", "path"},
		},
	}
}

// syncDirectoryTool returns the tool definition for sync_directory
func syncDirectoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sync_directory",
		Description: "Sync every text file under a directory. Unchanged files are skipped by checksum",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": stringProp("Project to sync into"),
				"path":       stringProp("Absolute path to the directory"),
			},
			Required: []string{"project_id", "path"},
		},
	}
}

// searchTool returns the tool definition for search
func searchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search",
		Description: "Find corpus documents whose id, title or type match the query terms",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query":       stringProp("Whitespace separated search terms"),
				"corpus_root": stringProp("Corpus directory. Defaults to the configured corpus_root"),
				"limit":       limitProp("Maximum number of results; 0 returns all", 10),
			},
			Required: []string{"query"},
		},
	}
}

// readTool returns the tool definition for read
func readTool() mcp.Tool {
	return mcp.Tool{
		Name:        "read",
		Description: "Read a corpus document by id. Unknown ids return suggestions",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"doc_id":      stringProp("Document id"),
				"corpus_root": stringProp("Corpus directory. Defaults to the configured corpus_root"),
			},
			Required: []string{"doc_id"},
		},
	}
}

// matchChunksTool returns the tool definition for match_chunks
func matchChunksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "match_chunks",
		Description: "Return the stored chunks most similar to a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": stringProp("Project to search"),
				"query":      stringProp("Natural language query"),
				"limit":      limitProp("Maximum number of chunks", 10),
			},
			Required: []string{"project_id", "query"},
		},
	}
}

// statusTool returns the tool definition for status
func statusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "status",
		Description: "Report stored document and embedding counts for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_id": stringProp("Project to report on"),
			},
			Required: []string{"project_id"},
		},
	}
}
