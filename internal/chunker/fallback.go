package chunker

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dshills/docsync-mcp/internal/language"
	"github.com/dshills/docsync-mcp/pkg/types"
)

var (
	// sectionBoundary matches the start of a second-level markup heading
	sectionBoundary = regexp.MustCompile(`(?m)^## `)

	// blockBoundary matches runs of two or more newlines
	blockBoundary = regexp.MustCompile(`(?:\r?\n){2,}`)
)

// SegmentFallback splits content without a grammar. Markup is split on
// second-level headings, everything else on blank-line runs. It always
// returns at least one chunk.
func SegmentFallback(path, content string) []types.Chunk {
	lang := language.Classify(path)

	var chunks []types.Chunk
	if lang == types.LangMarkup {
		chunks = splitSections(path, lang, content)
	} else {
		chunks = splitBlocks(path, lang, content)
	}

	if len(chunks) == 0 {
		return []types.Chunk{wholeFile(path, lang, content)}
	}
	return chunks
}

// splitSections cuts content at the start of every "## " line. The text
// before the first heading forms the first fragment.
func splitSections(path string, lang types.Language, content string) []types.Chunk {
	cuts := []int{0}
	for _, loc := range sectionBoundary.FindAllStringIndex(content, -1) {
		if loc[0] > 0 {
			cuts = append(cuts, loc[0])
		}
	}
	cuts = append(cuts, len(content))

	chunks := make([]types.Chunk, 0, len(cuts)-1)
	for i := 0; i < len(cuts)-1; i++ {
		if c, ok := spanChunk(path, lang, content, cuts[i], cuts[i+1], types.KindMarkupSection); ok {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

// splitBlocks cuts content around every run of blank lines
func splitBlocks(path string, lang types.Language, content string) []types.Chunk {
	var chunks []types.Chunk
	start := 0
	for _, loc := range blockBoundary.FindAllStringIndex(content, -1) {
		if c, ok := spanChunk(path, lang, content, start, loc[0], types.KindTextBlock); ok {
			chunks = append(chunks, c)
		}
		start = loc[1]
	}
	if c, ok := spanChunk(path, lang, content, start, len(content), types.KindTextBlock); ok {
		chunks = append(chunks, c)
	}
	return chunks
}

// spanChunk builds a chunk from content[start:end] with leading line breaks
// and trailing whitespace removed. Blank spans are rejected.
func spanChunk(path string, lang types.Language, content string, start, end int, kind types.ChunkKind) (types.Chunk, bool) {
	for start < end && (content[start] == '\n' || content[start] == '\r') {
		start++
	}
	text := strings.TrimRightFunc(content[start:end], unicode.IsSpace)
	if strings.TrimSpace(text) == "" {
		return types.Chunk{}, false
	}

	startLine := lineAt(content, start)
	return types.Chunk{
		Content:    text,
		Kind:       kind,
		StartLine:  startLine,
		EndLine:    startLine + strings.Count(text, "\n"),
		Language:   lang,
		SourcePath: path,
	}, true
}

// wholeFile returns a single chunk spanning the entire content
func wholeFile(path string, lang types.Language, content string) types.Chunk {
	return types.Chunk{
		Content:    content,
		Kind:       types.KindWholeFile,
		StartLine:  1,
		EndLine:    lineCount(content),
		Language:   lang,
		SourcePath: path,
	}
}

// lineAt returns the 1-based line number of byte offset off
func lineAt(content string, off int) int {
	return strings.Count(content[:off], "\n") + 1
}

// lineCount returns the number of lines in content, not counting an
// empty line after a trailing newline
func lineCount(content string) int {
	n := strings.Count(content, "\n") + 1
	if n > 1 && strings.HasSuffix(content, "\n") {
		n--
	}
	return n
}
