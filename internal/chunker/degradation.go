package chunker

import "fmt"

// DegradationReason explains why grammar segmentation was not used
type DegradationReason int

const (
	// GrammarsDisabled means no grammar sources are configured
	GrammarsDisabled DegradationReason = iota + 1
	// GrammarUnavailable means no source provides a grammar for the language
	GrammarUnavailable
	// GrammarLoadFailed means a source failed while loading the grammar
	GrammarLoadFailed
	// ParseFailed means the parser returned an error
	ParseFailed
	// SyntaxErrors means the tree had errors and nothing could be extracted
	SyntaxErrors
)

func (r DegradationReason) String() string {
	switch r {
	case GrammarsDisabled:
		return "grammars disabled"
	case GrammarUnavailable:
		return "grammar unavailable"
	case GrammarLoadFailed:
		return "grammar load failed"
	case ParseFailed:
		return "parse failed"
	case SyntaxErrors:
		return "syntax errors"
	default:
		return fmt.Sprintf("DegradationReason(%d)", int(r))
	}
}

// Degradation is returned by the grammar path instead of chunks when the
// file must be segmented by the fallback splitters.
type Degradation struct {
	Reason DegradationReason
	Err    error
}

func (d *Degradation) String() string {
	if d.Err != nil {
		return fmt.Sprintf("%s: %v", d.Reason, d.Err)
	}
	return d.Reason.String()
}

func degrade(reason DegradationReason, err error) *Degradation {
	return &Degradation{Reason: reason, Err: err}
}
