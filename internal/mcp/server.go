package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/afero"

	"github.com/dshills/docsync-mcp/internal/chunker"
	"github.com/dshills/docsync-mcp/internal/config"
	"github.com/dshills/docsync-mcp/internal/embedder"
	"github.com/dshills/docsync-mcp/internal/indexer"
	"github.com/dshills/docsync-mcp/internal/searcher"
	"github.com/dshills/docsync-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "docsync-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	storage    storage.Storage
	embedder   embedder.Embedder
	chunker    *chunker.Chunker
	indexer    *indexer.Indexer
	searcher   *searcher.Searcher
	fs         afero.Fs
	corpusRoot string
}

// Deps are the components a Server exposes
type Deps struct {
	Storage    storage.Storage
	Embedder   embedder.Embedder
	Chunker    *chunker.Chunker
	Indexer    *indexer.Indexer
	Searcher   *searcher.Searcher
	Fs         afero.Fs
	CorpusRoot string
}

// NewServer builds every component from cfg
func NewServer(cfg *config.Config) (*Server, error) {
	d, err := BuildDeps(cfg)
	if err != nil {
		return nil, err
	}
	return New(d), nil
}

// BuildDeps opens storage and constructs the components described by cfg.
// The caller owns the result and must Close it.
func BuildDeps(cfg *config.Config) (Deps, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return Deps{}, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(cfg.DBPath)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = store.Close()
		return Deps{}, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	sources, err := cfg.GrammarSources()
	if err != nil {
		_ = store.Close()
		return Deps{}, err
	}
	ch := chunker.New(chunker.NewGrammarRegistry(sources...))

	fs := afero.NewOsFs()

	// One embedder serves both sync and query so they share its cache
	idx := indexer.New(store, ch, emb, indexer.Config{
		EmbedDelay: cfg.Embedding.Delay,
		Workers:    cfg.Sync.Workers,
		Fs:         fs,
	})
	srch := searcher.NewSearcher(store, emb, searcher.Config{
		CacheTTL:     cfg.Search.CacheTTL,
		ExactIDBonus: cfg.Search.ExactIDBonus,
		Fs:           fs,
	})

	return Deps{
		Storage:    store,
		Embedder:   emb,
		Chunker:    ch,
		Indexer:    idx,
		Searcher:   srch,
		Fs:         fs,
		CorpusRoot: cfg.CorpusRoot,
	}, nil
}

// Close releases the storage and embedder
func (d Deps) Close() error {
	if d.Embedder != nil {
		_ = d.Embedder.Close()
	}
	if d.Storage != nil {
		return d.Storage.Close()
	}
	return nil
}

// New creates a server over already constructed components
func New(d Deps) *Server {
	if d.Fs == nil {
		d.Fs = afero.NewOsFs()
	}

	s := &Server{
		mcp:        server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		storage:    d.Storage,
		embedder:   d.Embedder,
		chunker:    d.Chunker,
		indexer:    d.Indexer,
		searcher:   d.Searcher,
		fs:         d.Fs,
		corpusRoot: d.CorpusRoot,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// Close releases the storage and embedder
func (s *Server) Close() error {
	if s.embedder != nil {
		_ = s.embedder.Close()
	}
	if s.storage != nil {
		return s.storage.Close()
	}
	return nil
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(chunkFileTool(), s.handleChunkFile)
	s.mcp.AddTool(syncDocumentTool(), s.handleSyncDocument)
	s.mcp.AddTool(deleteDocumentTool(), s.handleDeleteDocument)
	s.mcp.AddTool(syncDirectoryTool(), s.handleSyncDirectory)
	s.mcp.AddTool(searchTool(), s.handleSearch)
	s.mcp.AddTool(readTool(), s.handleRead)
	s.mcp.AddTool(matchChunksTool(), s.handleMatchChunks)
	s.mcp.AddTool(statusTool(), s.handleStatus)
}
