// Package mcp implements the Model Context Protocol (MCP) server for docsync.
//
// The server exposes the chunking, indexing and lookup components as tools:
//   - chunk_file: Split a file into semantic chunks
//   - sync_document: Bring the stored embeddings of one document up to date
//   - delete_document: Remove a document and its embeddings
//   - sync_directory: Sync every document under a directory
//   - search: Rank corpus documents by id, title and type
//   - read: Return one corpus document, with suggestions on a miss
//   - match_chunks: Similarity lookup over stored chunk embeddings
//   - status: Index statistics for a project
//
// # Transport
//
// MCP is JSON-RPC 2.0 over stdio. The server is started with:
//
//	docsync serve
//
// Logs go to stderr; stdout carries protocol messages only.
//
// # Tool: sync_document
//
//	Request:
//	{
//	  "name": "sync_document",
//	  "arguments": {
//	    "project_id": "handbook",
//	    "path": "docs/setup.md",
//	    "content": "# Setup\n..."
//	  }
//	}
//
//	Response:
//	{
//	  "document": {"id": 1, "path": "docs/setup.md", "version": 2, ...},
//	  "unchanged": false,
//	  "chunks_indexed": 1,
//	  "chunks_reused": 3
//	}
//
// When content is omitted the file at path is read. A second sync with the
// same content reports unchanged and embeds nothing.
//
// # Tool: read
//
// A miss is not an error. The response carries found=false and up to five
// ids that contain, or are contained in, the requested id.
//
// # Errors
//
// Failures are returned as *MCPError:
//
//	-32602  invalid or missing parameter
//	-32603  internal failure
//	-32001  document, file or corpus root not found
//	-32002  a directory sync is already running for the project
package mcp
