package language

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/docsync-mcp/pkg/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want types.Language
	}{
		{"main.go", types.LangGo},
		{"web/app.js", types.LangJavaScript},
		{"web/App.JSX", types.LangJavaScript},
		{"src/index.ts", types.LangTypeScript},
		{"src/view.tsx", types.LangTSX},
		{"tool.py", types.LangPython},
		{"lib.rs", types.LangRust},
		{"Main.java", types.LangJava},
		{"README.md", types.LangMarkup},
		{"docs/guide.MDX", types.LangMarkup},
		{"notes.markdown", types.LangMarkup},
		{"notes.txt", types.LangText},
		{"Makefile", types.LangText},
		{"", types.LangText},
		{"archive.tar.gz", types.LangText},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}

func TestIsMarkup(t *testing.T) {
	assert.True(t, IsMarkup("a.md"))
	assert.False(t, IsMarkup("a.go"))
}
