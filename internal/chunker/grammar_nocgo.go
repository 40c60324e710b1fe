//go:build !cgo

package chunker

import (
	"context"
	"errors"

	"github.com/dshills/docsync-mcp/pkg/types"
)

// Grammar is a placeholder; tree-sitter grammars require cgo
type Grammar struct {
	Language types.Language
	Source   string
}

func builtinGrammar(types.Language) (Grammar, bool) {
	return Grammar{}, false
}

func segmentGrammar(context.Context, Grammar, string, string) ([]types.Chunk, *Degradation) {
	return nil, degrade(GrammarUnavailable, errors.New("built without cgo"))
}
