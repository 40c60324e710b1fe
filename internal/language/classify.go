// Package language maps file paths to semantic language tags.
package language

import (
	"path/filepath"
	"strings"

	"github.com/dshills/docsync-mcp/pkg/types"
)

var extensions = map[string]types.Language{
	".go":   types.LangGo,
	".js":   types.LangJavaScript,
	".jsx":  types.LangJavaScript,
	".mjs":  types.LangJavaScript,
	".cjs":  types.LangJavaScript,
	".ts":   types.LangTypeScript,
	".mts":  types.LangTypeScript,
	".cts":  types.LangTypeScript,
	".tsx":  types.LangTSX,
	".py":   types.LangPython,
	".pyi":  types.LangPython,
	".rs":   types.LangRust,
	".java": types.LangJava,

	".md":       types.LangMarkup,
	".mdx":      types.LangMarkup,
	".markdown": types.LangMarkup,
}

// Classify returns the language tag for path based on its extension.
// Unknown extensions classify as types.LangText.
func Classify(path string) types.Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := extensions[ext]; ok {
		return lang
	}
	return types.LangText
}

// IsMarkup reports whether path names a markup document
func IsMarkup(path string) bool {
	return Classify(path) == types.LangMarkup
}
