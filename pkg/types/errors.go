package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidChunk    = errors.New("invalid chunk")
	ErrInvalidPath     = errors.New("invalid path")
	ErrEmptyDocumentID = errors.New("document id cannot be empty")
	ErrInvalidRank     = errors.New("rank must be >= 1")
	ErrEmptyContent    = errors.New("content cannot be empty")
)
