package types

import (
	"errors"
	"fmt"
)

// ChunkKind tags the construct that produced a chunk
type ChunkKind string

const (
	KindFunction      ChunkKind = "function"
	KindMethod        ChunkKind = "method"
	KindClass         ChunkKind = "class"
	KindInterface     ChunkKind = "interface"
	KindType          ChunkKind = "type"
	KindVariable      ChunkKind = "variable" // arrow/lambda bindings
	KindExport        ChunkKind = "export"
	KindMarkupSection ChunkKind = "markup-section"
	KindTextBlock     ChunkKind = "text-block"
	KindWholeFile     ChunkKind = "whole-file"
)

// Valid reports whether k is one of the known kinds
func (k ChunkKind) Valid() bool {
	switch k {
	case KindFunction, KindMethod, KindClass, KindInterface, KindType, KindVariable,
		KindExport, KindMarkupSection, KindTextBlock, KindWholeFile:
		return true
	default:
		return false
	}
}

// Chunk is a verbatim substring of a document treated as one embeddable unit
type Chunk struct {
	Content string
	Kind    ChunkKind

	// Location, 1-based and inclusive
	StartLine int
	EndLine   int

	Language   Language
	SourcePath string

	// EnclosingContext names the enclosing declaration (e.g. a class), if known
	EnclosingContext string
}

// ValidateLines checks the line range of the chunk
func (c *Chunk) ValidateLines() error {
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}

	return nil
}

// Validate performs comprehensive validation of the chunk
func (c *Chunk) Validate() error {
	if err := c.ValidateLines(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidChunk, err)
	}

	if !c.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidChunk, c.Kind)
	}

	if c.Language == "" {
		return fmt.Errorf("%w: language is required", ErrInvalidChunk)
	}

	return nil
}

// TokenCount estimates the number of tokens in the chunk.
// Uses a simple heuristic: characters / 4
func (c *Chunk) TokenCount() int {
	return len(c.Content) / 4
}

// Label returns a short human readable description, e.g. "method Server.Start (12-40)"
func (c *Chunk) Label() string {
	if c.EnclosingContext != "" {
		return fmt.Sprintf("%s in %s (%d-%d)", c.Kind, c.EnclosingContext, c.StartLine, c.EndLine)
	}
	return fmt.Sprintf("%s (%d-%d)", c.Kind, c.StartLine, c.EndLine)
}
