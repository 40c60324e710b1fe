// Package chunker divides source and documentation files into chunks for
// embedding and search.
//
// # Basic Usage
//
//	c := chunker.NewDefault()
//	chunks := c.ChunkFile(ctx, "src/server.ts", content)
//
//	for _, chunk := range chunks {
//	    fmt.Printf("%s lines %d-%d\n", chunk.Kind, chunk.StartLine, chunk.EndLine)
//	}
//
// ChunkFile never returns an error. Every chunk's Content is a verbatim
// substring of the input and chunks from one call never overlap.
//
// # Segmentation Strategy
//
// Code files (Go, JavaScript, TypeScript, TSX, Python, Rust, Java) are parsed
// with tree-sitter. Each top-level declaration becomes one chunk:
//   - Functions and arrow/lambda bindings
//   - Classes, or their individual methods when the class body has any
//   - Interfaces and type declarations
//   - Module-level exports
//
// A comment directly above a declaration is included in its chunk and the
// chunk starts on the comment's first line. Methods carry the enclosing
// class (or Go receiver type) in EnclosingContext. A file with no
// declarations produces a single whole-file chunk.
//
// Markup files are split on "## " headings and any other file on blank-line
// runs (SegmentFallback). The same splitters are used when a code file
// cannot be handled by a grammar.
//
// # Grammar Resolution
//
// Grammars come from a GrammarRegistry holding an ordered list of sources:
//
//	sources, err := chunker.SourcesFromConfig([]string{"builtin"}, nil)
//	registry := chunker.NewGrammarRegistry(sources...)
//	c := chunker.New(registry)
//
// The registry resolves each language once per process. The outcome, hit,
// miss or load failure, is cached, and concurrent first lookups share one
// resolution. Builtin grammars require cgo; without it every code file
// degrades to the line-based splitters.
//
// # Degradation
//
// The grammar path returns either chunks or a *Degradation naming the reason
// (grammars disabled, grammar unavailable, load failure, parse failure,
// syntax errors with nothing extracted). ChunkFile logs the degradation and
// falls back.
package chunker
