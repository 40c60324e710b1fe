package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docsync-mcp/pkg/types"
)

func TestSegmentFallback_MarkupSections(t *testing.T) {
	content := "# Title\nintro\n## A\nfoo\n## B\nbar"

	chunks := SegmentFallback("doc.md", content)
	require.Len(t, chunks, 3)

	assert.Equal(t, "# Title\nintro", chunks[0].Content)
	assert.True(t, strings.HasPrefix(chunks[1].Content, "## A"))
	assert.True(t, strings.HasPrefix(chunks[2].Content, "## B"))

	assert.Equal(t, [2]int{1, 2}, [2]int{chunks[0].StartLine, chunks[0].EndLine})
	assert.Equal(t, [2]int{3, 4}, [2]int{chunks[1].StartLine, chunks[1].EndLine})
	assert.Equal(t, [2]int{5, 6}, [2]int{chunks[2].StartLine, chunks[2].EndLine})

	for _, c := range chunks {
		assert.Equal(t, types.KindMarkupSection, c.Kind)
		assert.Equal(t, types.LangMarkup, c.Language)
		assert.Equal(t, "doc.md", c.SourcePath)
	}
}

func TestSegmentFallback_MarkupLeadingHeading(t *testing.T) {
	content := "## Only\nbody\n\n## Second\n"

	chunks := SegmentFallback("doc.md", content)
	require.Len(t, chunks, 2)
	assert.Equal(t, "## Only\nbody", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, "## Second", chunks[1].Content)
	assert.Equal(t, 4, chunks[1].StartLine)
	assert.Equal(t, 4, chunks[1].EndLine)
}

func TestSegmentFallback_MarkupIgnoresDeeperHeadings(t *testing.T) {
	content := "intro\n### Deep\ntext\n#### Deeper\n"

	chunks := SegmentFallback("doc.md", content)
	require.Len(t, chunks, 1)
	assert.Equal(t, types.KindMarkupSection, chunks[0].Kind)
}

func TestSegmentFallback_TextBlocks(t *testing.T) {
	content := "para one\nline two\n\n\npara two\n\nthree"

	chunks := SegmentFallback("notes.txt", content)
	require.Len(t, chunks, 3)

	assert.Equal(t, "para one\nline two", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 2, chunks[0].EndLine)

	assert.Equal(t, "para two", chunks[1].Content)
	assert.Equal(t, 5, chunks[1].StartLine)
	assert.Equal(t, 5, chunks[1].EndLine)

	assert.Equal(t, "three", chunks[2].Content)
	assert.Equal(t, 7, chunks[2].StartLine)

	for _, c := range chunks {
		assert.Equal(t, types.KindTextBlock, c.Kind)
		assert.Equal(t, types.LangText, c.Language)
	}
}

func TestSegmentFallback_CRLF(t *testing.T) {
	chunks := SegmentFallback("notes.txt", "a\r\n\r\nb")
	require.Len(t, chunks, 2)
	assert.Equal(t, "a", chunks[0].Content)
	assert.Equal(t, "b", chunks[1].Content)
	assert.Equal(t, 3, chunks[1].StartLine)
}

func TestSegmentFallback_CodeKeepsLanguage(t *testing.T) {
	chunks := SegmentFallback("main.go", "package main\n\nfunc main() {}\n")
	require.Len(t, chunks, 2)
	assert.Equal(t, types.LangGo, chunks[0].Language)
	assert.Equal(t, types.KindTextBlock, chunks[0].Kind)
}

func TestSegmentFallback_NeverEmpty(t *testing.T) {
	inputs := map[string]string{
		"empty":        "",
		"blank lines":  "\n\n\n\n",
		"spaces":       "   \t  ",
		"single char":  "x",
		"binary":       "\x00\x01\x02\xff\xfe\n\n\x7f",
		"heading only": "## ",
	}
	for name, in := range inputs {
		for _, path := range []string{"f.md", "f.txt", "f.go", "noext"} {
			t.Run(name+"/"+path, func(t *testing.T) {
				chunks := SegmentFallback(path, in)
				require.NotEmpty(t, chunks)
				for _, c := range chunks {
					assert.Contains(t, in, c.Content)
					assert.NoError(t, c.Validate())
				}
			})
		}
	}
}

func TestSegmentFallback_WholeFile(t *testing.T) {
	chunks := SegmentFallback("f.txt", "\n\n\n")
	require.Len(t, chunks, 1)
	assert.Equal(t, types.KindWholeFile, chunks[0].Kind)
	assert.Equal(t, "\n\n\n", chunks[0].Content)
	assert.Equal(t, 1, chunks[0].StartLine)
	assert.Equal(t, 3, chunks[0].EndLine)
}

func TestSegmentFallback_NoOverlap(t *testing.T) {
	content := "# T\n\n## A\na\n\n## B\nb\n\n## C\nc\n"
	chunks := SegmentFallback("doc.md", content)
	require.Len(t, chunks, 4)
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].StartLine, chunks[i-1].EndLine)
	}
}

func TestLineCount(t *testing.T) {
	assert.Equal(t, 1, lineCount(""))
	assert.Equal(t, 1, lineCount("a"))
	assert.Equal(t, 1, lineCount("a\n"))
	assert.Equal(t, 2, lineCount("a\nb"))
	assert.Equal(t, 3, lineCount("\n\n\n"))
}
