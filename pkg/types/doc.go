// Package types provides shared type definitions for the docsync MCP server.
//
// # Core Types
//
// Language is the tag produced by the classifier for a file path. Code
// languages may be segmented by grammar, while LangMarkup and LangText
// always use the line-based splitters:
//
//	lang := language.Classify("src/app.ts") // types.LangTypeScript
//	lang.IsCode()                           // true
//
// Chunk is a verbatim substring of a document with its location and the
// construct that produced it:
//
//	chunk := types.Chunk{
//	    Content:          "def run(self):\n    ...",
//	    Kind:             types.KindMethod,
//	    StartLine:        10,
//	    EndLine:          14,
//	    Language:         types.LangPython,
//	    EnclosingContext: "Worker",
//	}
//
// # Corpus Documents
//
// DocumentRef holds the {id, title, type, path} metadata indexed for lexical
// search; Document adds the parsed front matter and body returned by read.
//
// # Validation
//
//	if err := chunk.Validate(); err != nil {
//	    // errors.Is(err, types.ErrInvalidChunk)
//	}
package types
