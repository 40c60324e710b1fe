package chunker

import (
	"context"
	"sync/atomic"

	"github.com/dshills/docsync-mcp/internal/language"
	"github.com/dshills/docsync-mcp/internal/logger"
	"github.com/dshills/docsync-mcp/pkg/types"
)

// Chunker splits files into chunks, using a grammar when one is available
// and the line-based splitters otherwise
type Chunker struct {
	registry *GrammarRegistry

	grammarFiles  atomic.Int64
	fallbackFiles atomic.Int64
}

// Stats counts how files were segmented
type Stats struct {
	GrammarFiles  int64
	FallbackFiles int64
}

// New creates a Chunker backed by registry. A nil registry disables
// grammar segmentation.
func New(registry *GrammarRegistry) *Chunker {
	if registry == nil {
		registry = NewGrammarRegistry()
	}
	return &Chunker{registry: registry}
}

// NewDefault creates a Chunker using the compiled-in grammars
func NewDefault() *Chunker {
	return New(NewGrammarRegistry(BuiltinSource{}))
}

// ChunkFile splits content into chunks. It never fails: grammar problems
// are logged and the file is segmented by SegmentFallback instead.
func (c *Chunker) ChunkFile(ctx context.Context, path, content string) []types.Chunk {
	lang := language.Classify(path)
	if !lang.IsCode() {
		return SegmentFallback(path, content)
	}

	chunks, deg := c.segmentWithGrammar(ctx, lang, path, content)
	if deg != nil {
		c.fallbackFiles.Add(1)
		logger.Warn("chunker: %s (%s): %s, using line-based segmentation", path, lang, deg)
		return SegmentFallback(path, content)
	}

	c.grammarFiles.Add(1)
	return chunks
}

func (c *Chunker) segmentWithGrammar(ctx context.Context, lang types.Language, path, content string) ([]types.Chunk, *Degradation) {
	if !c.registry.Enabled() {
		return nil, degrade(GrammarsDisabled, nil)
	}

	g, ok, err := c.registry.Lookup(ctx, lang)
	switch {
	case err != nil:
		return nil, degrade(GrammarLoadFailed, err)
	case !ok:
		return nil, degrade(GrammarUnavailable, nil)
	}

	return segmentGrammar(ctx, g, path, content)
}

// Stats returns segmentation counters since creation
func (c *Chunker) Stats() Stats {
	return Stats{
		GrammarFiles:  c.grammarFiles.Load(),
		FallbackFiles: c.fallbackFiles.Load(),
	}
}
