package types

// Language is the semantic language tag of a file
type Language string

const (
	LangGo         Language = "go"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJava       Language = "java"

	// LangMarkup covers markdown-like documentation
	LangMarkup Language = "markup"
	// LangText is the catch-all for unrecognized files
	LangText Language = "text"
)

// IsCode reports whether the language is a programming language
// that may have a grammar.
func (l Language) IsCode() bool {
	return l != LangMarkup && l != LangText && l != ""
}
