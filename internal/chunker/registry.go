package chunker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/dshills/docsync-mcp/internal/logger"
	"github.com/dshills/docsync-mcp/pkg/types"
)

// ErrUnknownSource is returned for grammar source names that are not recognized
var ErrUnknownSource = errors.New("unknown grammar source")

// GrammarSource resolves a grammar for a language. A source that does not
// provide the language returns ok == false and a nil error.
type GrammarSource interface {
	Name() string
	Resolve(ctx context.Context, lang types.Language) (g Grammar, ok bool, err error)
}

// BuiltinSource serves the grammars compiled into the binary
type BuiltinSource struct{}

// Name implements GrammarSource
func (BuiltinSource) Name() string { return "builtin" }

// Resolve implements GrammarSource
func (BuiltinSource) Resolve(_ context.Context, lang types.Language) (Grammar, bool, error) {
	g, ok := builtinGrammar(lang)
	return g, ok, nil
}

// NoneSource provides no grammars. Configuring it alone turns grammar
// segmentation off.
type NoneSource struct{}

// Name implements GrammarSource
func (NoneSource) Name() string { return "none" }

// Resolve implements GrammarSource
func (NoneSource) Resolve(context.Context, types.Language) (Grammar, bool, error) {
	return Grammar{}, false, nil
}

// AllowListSource restricts another source to a set of languages
type AllowListSource struct {
	Languages []types.Language
	Next      GrammarSource
}

// Name implements GrammarSource
func (a AllowListSource) Name() string {
	return "allow(" + a.Next.Name() + ")"
}

// Resolve implements GrammarSource
func (a AllowListSource) Resolve(ctx context.Context, lang types.Language) (Grammar, bool, error) {
	for _, l := range a.Languages {
		if l == lang {
			return a.Next.Resolve(ctx, lang)
		}
	}
	return Grammar{}, false, nil
}

// SourcesFromConfig builds the ordered source list from configured names.
// A name may carry its own language subset, e.g. "builtin:go,python".
// A non-empty allow list restricts every source to those languages.
func SourcesFromConfig(names []string, allow []types.Language) ([]GrammarSource, error) {
	sources := make([]GrammarSource, 0, len(names))
	for _, name := range names {
		base, langs, hasSubset := strings.Cut(strings.ToLower(strings.TrimSpace(name)), ":")

		var src GrammarSource
		switch base {
		case "builtin":
			src = BuiltinSource{}
		case "none":
			src = NoneSource{}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
		}

		if hasSubset {
			subset := parseLanguages(langs)
			if len(subset) == 0 {
				return nil, fmt.Errorf("%w: %q has an empty language list", ErrUnknownSource, name)
			}
			src = AllowListSource{Languages: subset, Next: src}
		}
		if len(allow) > 0 {
			src = AllowListSource{Languages: allow, Next: src}
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func parseLanguages(list string) []types.Language {
	var langs []types.Language
	for _, l := range strings.Split(list, ",") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, types.Language(l))
		}
	}
	return langs
}

type grammarEntry struct {
	grammar Grammar
	ok      bool
	err     error
}

// GrammarRegistry resolves grammars through an ordered list of sources and
// memoizes the outcome per language, including misses and load failures.
// Concurrent first lookups for the same language share one resolution.
type GrammarRegistry struct {
	sources []GrammarSource

	mu      sync.RWMutex
	entries map[types.Language]grammarEntry
	group   singleflight.Group
}

// NewGrammarRegistry creates a registry that tries sources in order
func NewGrammarRegistry(sources ...GrammarSource) *GrammarRegistry {
	return &GrammarRegistry{
		sources: sources,
		entries: make(map[types.Language]grammarEntry),
	}
}

// Enabled reports whether any source is configured
func (r *GrammarRegistry) Enabled() bool {
	return len(r.sources) > 0
}

// Lookup returns the grammar for lang. ok is false when no source provides
// it; err is set when a source failed and no later source succeeded.
func (r *GrammarRegistry) Lookup(ctx context.Context, lang types.Language) (Grammar, bool, error) {
	if e, hit := r.cached(lang); hit {
		return e.grammar, e.ok, e.err
	}

	v, _, _ := r.group.Do(string(lang), func() (interface{}, error) {
		if e, hit := r.cached(lang); hit {
			return e, nil
		}
		e := r.resolve(ctx, lang)
		r.mu.Lock()
		r.entries[lang] = e
		r.mu.Unlock()
		return e, nil
	})

	e := v.(grammarEntry)
	return e.grammar, e.ok, e.err
}

func (r *GrammarRegistry) cached(lang types.Language) (grammarEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[lang]
	return e, ok
}

func (r *GrammarRegistry) resolve(ctx context.Context, lang types.Language) grammarEntry {
	var errs []error
	for _, src := range r.sources {
		g, ok, err := src.Resolve(ctx, lang)
		switch {
		case err != nil:
			logger.Debug("grammar %s: source %s failed: %v", lang, src.Name(), err)
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
		case ok:
			logger.Debug("grammar %s: resolved by %s", lang, src.Name())
			g.Source = src.Name()
			return grammarEntry{grammar: g, ok: true}
		default:
			logger.Debug("grammar %s: not provided by %s", lang, src.Name())
		}
	}
	return grammarEntry{err: errors.Join(errs...)}
}
