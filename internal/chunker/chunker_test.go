package chunker

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsync-mcp/pkg/types"
)

// countingSource records Resolve calls and answers from a fixed result
type countingSource struct {
	name  string
	calls atomic.Int32
	ok    bool
	err   error
	gate  chan struct{}
}

func (s *countingSource) Name() string { return s.name }

func (s *countingSource) Resolve(_ context.Context, lang types.Language) (Grammar, bool, error) {
	s.calls.Add(1)
	if s.gate != nil {
		<-s.gate
	}
	if s.err != nil || !s.ok {
		return Grammar{}, false, s.err
	}
	return Grammar{Language: lang}, true, nil
}

func TestNew(t *testing.T) {
	c := New(nil)
	require.NotNil(t, c)
	assert.False(t, c.registry.Enabled())
}

func TestChunkFile_MarkupSkipsGrammar(t *testing.T) {
	src := &countingSource{name: "fake", ok: true}
	c := New(NewGrammarRegistry(src))

	chunks := c.ChunkFile(context.Background(), "README.md", "# T\nx\n## A\ny")
	require.Len(t, chunks, 2)
	assert.Equal(t, types.KindMarkupSection, chunks[0].Kind)
	assert.Equal(t, int32(0), src.calls.Load())
	assert.Equal(t, Stats{}, c.Stats())
}

func TestChunkFile_GrammarsDisabled(t *testing.T) {
	c := New(NewGrammarRegistry())

	chunks := c.ChunkFile(context.Background(), "main.go", "package main\n\nfunc main() {}\n")
	require.Len(t, chunks, 2)
	assert.Equal(t, types.KindTextBlock, chunks[0].Kind)
	assert.Equal(t, int64(1), c.Stats().FallbackFiles)
}

func TestChunkFile_LoadFailureFallsBack(t *testing.T) {
	src := &countingSource{name: "broken", err: errors.New("missing shared object")}
	c := New(NewGrammarRegistry(src))

	content := "def a():\n    pass\n\n\ndef b():\n    pass\n"
	chunks := c.ChunkFile(context.Background(), "x.py", content)
	require.Len(t, chunks, 2)
	assert.Equal(t, types.KindTextBlock, chunks[0].Kind)

	// the failure is memoized
	c.ChunkFile(context.Background(), "y.py", content)
	assert.Equal(t, int32(1), src.calls.Load())
	assert.Equal(t, int64(2), c.Stats().FallbackFiles)
}

func TestChunkFile_Idempotent(t *testing.T) {
	c := NewDefault()
	files := map[string]string{
		"doc.md":   "# Title\nintro\n## A\nfoo\n## B\nbar",
		"notes":    "one\n\ntwo\n\n\nthree",
		"main.go":  "package main\n\n// Run runs.\nfunc Run() {}\n\nfunc main() { Run() }\n",
		"app.js":   "function a() {}\nconst b = () => 1;\n",
		"empty.py": "",
	}

	for path, content := range files {
		t.Run(path, func(t *testing.T) {
			first := c.ChunkFile(context.Background(), path, content)
			second := c.ChunkFile(context.Background(), path, content)
			assert.Equal(t, first, second)
			require.NotEmpty(t, first)
			for _, ch := range first {
				assert.Contains(t, content, ch.Content)
			}
		})
	}
}

func TestGrammarRegistry_Order(t *testing.T) {
	miss := &countingSource{name: "miss"}
	failing := &countingSource{name: "failing", err: errors.New("boom")}
	hit := &countingSource{name: "hit", ok: true}

	r := NewGrammarRegistry(miss, failing, hit)
	g, ok, err := r.Lookup(context.Background(), types.LangGo)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hit", g.Source)
	assert.Equal(t, types.LangGo, g.Language)

	assert.Equal(t, int32(1), miss.calls.Load())
	assert.Equal(t, int32(1), failing.calls.Load())
	assert.Equal(t, int32(1), hit.calls.Load())
}

func TestGrammarRegistry_MemoizesMiss(t *testing.T) {
	src := &countingSource{name: "miss"}
	r := NewGrammarRegistry(src)

	for i := 0; i < 3; i++ {
		_, ok, err := r.Lookup(context.Background(), types.LangRust)
		assert.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, int32(1), src.calls.Load())
}

func TestGrammarRegistry_ConcurrentFirstLookup(t *testing.T) {
	src := &countingSource{name: "slow", ok: true, gate: make(chan struct{})}
	r := NewGrammarRegistry(src)

	var wg sync.WaitGroup
	results := make([]bool, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok, _ := r.Lookup(context.Background(), types.LangJava)
			results[i] = ok
		}(i)
	}

	for src.calls.Load() == 0 {
		runtime.Gosched()
	}
	close(src.gate)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, ok := range results {
		assert.True(t, ok)
	}
}

func TestSourcesFromConfig(t *testing.T) {
	sources, err := SourcesFromConfig([]string{"builtin"}, nil)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "builtin", sources[0].Name())

	sources, err = SourcesFromConfig([]string{" Builtin "}, []types.Language{types.LangGo})
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "allow(builtin)", sources[0].Name())

	_, ok, err := sources[0].Resolve(context.Background(), types.LangPython)
	assert.NoError(t, err)
	assert.False(t, ok)

	sources, err = SourcesFromConfig(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, sources)

	_, err = SourcesFromConfig([]string{"/usr/lib/grammars"}, nil)
	assert.ErrorIs(t, err, ErrUnknownSource)

	_, err = SourcesFromConfig([]string{"builtin:"}, nil)
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestSourcesFromConfig_Subsets(t *testing.T) {
	ctx := context.Background()

	sources, err := SourcesFromConfig([]string{"builtin:go, rust", "none"}, nil)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "allow(builtin)", sources[0].Name())
	assert.Equal(t, "none", sources[1].Name())

	allowed := sources[0].(AllowListSource)
	assert.Equal(t, []types.Language{types.LangGo, types.LangRust}, allowed.Languages)

	_, ok, err := sources[0].Resolve(ctx, types.LangPython)
	assert.NoError(t, err)
	assert.False(t, ok)

	for _, lang := range GrammarLanguages() {
		_, ok, err := sources[1].Resolve(ctx, lang)
		assert.NoError(t, err)
		assert.False(t, ok, "none resolves nothing, got %s", lang)
	}

	// none alone disables grammars
	ch := New(NewGrammarRegistry(NoneSource{}))
	chunks := ch.ChunkFile(ctx, "main.go", "package main\n\nfunc main() {}\n")
	require.NotEmpty(t, chunks)
	assert.Equal(t, int64(1), ch.Stats().FallbackFiles)
}

func TestConstructKinds(t *testing.T) {
	for lang, table := range extractable {
		for nodeType, c := range table {
			assert.NotEmpty(t, c.kind(false), "%s/%s", lang, nodeType)
			assert.True(t, c.kind(true).Valid(), "%s/%s", lang, nodeType)
		}
	}
	assert.Equal(t, types.KindMethod, constructFunction.kind(true))
	assert.Equal(t, types.KindFunction, constructFunction.kind(false))
	assert.ElementsMatch(t, GrammarLanguages(), keys(extractable))
}

func TestDegradationString(t *testing.T) {
	d := degrade(GrammarLoadFailed, errors.New("no such file"))
	assert.Equal(t, "grammar load failed: no such file", d.String())
	assert.Equal(t, "grammar unavailable", degrade(GrammarUnavailable, nil).String())
}

func keys(m map[types.Language]map[string]construct) []types.Language {
	out := make([]types.Language, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
