//go:build cgo

package chunker

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/dshills/docsync-mcp/pkg/types"
)

// Grammar is a loaded tree-sitter grammar for one language
type Grammar struct {
	Language types.Language
	Source   string

	ts *sitter.Language
}

var builtinGrammars = map[types.Language]func() *sitter.Language{
	types.LangGo:         golang.GetLanguage,
	types.LangJavaScript: javascript.GetLanguage,
	types.LangTypeScript: typescript.GetLanguage,
	types.LangTSX:        tsx.GetLanguage,
	types.LangPython:     python.GetLanguage,
	types.LangRust:       rust.GetLanguage,
	types.LangJava:       java.GetLanguage,
}

func builtinGrammar(lang types.Language) (Grammar, bool) {
	load, ok := builtinGrammars[lang]
	if !ok {
		return Grammar{}, false
	}
	return Grammar{Language: lang, ts: load()}, true
}

// segmentGrammar parses content and extracts one chunk per declaration.
// Parsers are not safe for concurrent use, so each call gets its own.
func segmentGrammar(ctx context.Context, g Grammar, path, content string) ([]types.Chunk, *Degradation) {
	table, ok := extractable[g.Language]
	if !ok || g.ts == nil {
		return nil, degrade(GrammarUnavailable, nil)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(g.ts)

	src := []byte(content)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, degrade(ParseFailed, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &walker{
		src:   src,
		path:  path,
		lang:  g.Language,
		table: table,
		seen:  make(map[[2]uint32]bool),
	}
	w.visit(root, "", false)

	if len(w.chunks) == 0 {
		if root.HasError() {
			return nil, degrade(SyntaxErrors, nil)
		}
		return []types.Chunk{wholeFile(path, g.Language, content)}, nil
	}
	return w.chunks, nil
}

type walker struct {
	src   []byte
	path  string
	lang  types.Language
	table map[string]construct

	seen    map[[2]uint32]bool
	lastEnd uint32
	chunks  []types.Chunk
}

func (w *walker) visit(n *sitter.Node, enclosing string, inContainer bool) {
	switch c := w.resolve(n, inContainer); c {
	case constructNone:
		for i := 0; i < int(n.NamedChildCount()); i++ {
			w.visit(n.NamedChild(i), enclosing, inContainer)
		}

	case constructWrapper:
		if inner := wrapped(n); inner != nil {
			ic := w.resolve(inner, inContainer)
			if ic == constructClass && w.splittable(inner) {
				w.visitMembers(inner)
				return
			}
			if ic != constructNone {
				w.emit(n, ic.kind(inContainer), enclosing)
				return
			}
		}
		w.emit(n, types.KindExport, enclosing)

	case constructClass:
		if w.splittable(n) {
			w.visitMembers(n)
			return
		}
		w.emit(n, types.KindClass, enclosing)

	case constructMethod:
		if w.lang == types.LangGo {
			enclosing = receiverType(n, w.src)
		}
		w.emit(n, c.kind(inContainer), enclosing)

	default:
		w.emit(n, c.kind(inContainer), enclosing)
	}
}

// resolve maps a node to its construct, applying the conditions that a
// node type alone cannot express
func (w *walker) resolve(n *sitter.Node, inContainer bool) construct {
	c := w.table[n.Type()]
	switch c {
	case constructBinding:
		if !w.bindsLambda(n) {
			return constructNone
		}
	case constructMember:
		if !inContainer {
			return constructNone
		}
	}
	return c
}

// splittable reports whether a container has members worth emitting alone
func (w *walker) splittable(n *sitter.Node) bool {
	body := n.ChildByFieldName("body")
	if body == nil {
		return false
	}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		if w.resolve(body.NamedChild(i), true) != constructNone {
			return true
		}
	}
	return false
}

func (w *walker) visitMembers(n *sitter.Node) {
	name := containerName(n, w.src)
	body := n.ChildByFieldName("body")
	for i := 0; i < int(body.NamedChildCount()); i++ {
		w.visit(body.NamedChild(i), name, true)
	}
}

func (w *walker) emit(n *sitter.Node, kind types.ChunkKind, enclosing string) {
	key := [2]uint32{n.StartByte(), n.EndByte()}
	if w.seen[key] {
		return
	}
	w.seen[key] = true

	start, startRow := n.StartByte(), n.StartPoint().Row
	if doc := leadingComment(n); doc != nil && doc.StartByte() >= w.lastEnd {
		start, startRow = doc.StartByte(), doc.StartPoint().Row
	}
	end, endRow := n.EndByte(), n.EndPoint().Row
	if n.EndPoint().Column == 0 && endRow > startRow {
		endRow--
	}

	w.chunks = append(w.chunks, types.Chunk{
		Content:          string(w.src[start:end]),
		Kind:             kind,
		StartLine:        int(startRow) + 1,
		EndLine:          int(endRow) + 1,
		Language:         w.lang,
		SourcePath:       w.path,
		EnclosingContext: enclosing,
	})
	w.lastEnd = end
}

// bindsLambda reports whether a declaration or assignment binds a name to
// an arrow function, function expression or lambda
func (w *walker) bindsLambda(n *sitter.Node) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		var value *sitter.Node
		switch child.Type() {
		case "variable_declarator":
			value = child.ChildByFieldName("value")
		case "assignment":
			value = child.ChildByFieldName("right")
		}
		if value != nil && lambdaValues[value.Type()] {
			return true
		}
	}
	return false
}

// leadingComment returns the first node of the comment run that ends on
// the line directly above n. Each comment in the run sits on the line
// after the previous one.
func leadingComment(n *sitter.Node) *sitter.Node {
	prev := n.PrevSibling()
	if prev == nil || !isComment(prev) || lastRow(prev)+1 < n.StartPoint().Row {
		return nil
	}
	first := prev
	for {
		p := first.PrevSibling()
		if p == nil || !isComment(p) || lastRow(p)+1 < first.StartPoint().Row {
			return first
		}
		first = p
	}
}

// lastRow is the row of n's final character. Some grammars end line
// comments at column 0 of the following row.
func lastRow(n *sitter.Node) uint32 {
	end := n.EndPoint()
	if end.Column == 0 && end.Row > n.StartPoint().Row {
		return end.Row - 1
	}
	return end.Row
}

func isComment(n *sitter.Node) bool {
	t := n.Type()
	return t == "comment" || strings.HasSuffix(t, "_comment")
}

// wrapped returns the declaration inside an export statement or decorator
func wrapped(n *sitter.Node) *sitter.Node {
	if d := n.ChildByFieldName("declaration"); d != nil {
		return d
	}
	return n.ChildByFieldName("definition")
}

func containerName(n *sitter.Node, src []byte) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return name.Content(src)
	}
	if typ := n.ChildByFieldName("type"); typ != nil {
		return typ.Content(src)
	}
	return ""
}

// receiverType returns the receiver type name of a Go method
func receiverType(n *sitter.Node, src []byte) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	if id := firstOfType(recv, "type_identifier"); id != nil {
		return id.Content(src)
	}
	return ""
}

func firstOfType(n *sitter.Node, typ string) *sitter.Node {
	if n.Type() == typ {
		return n
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := firstOfType(n.NamedChild(i), typ); found != nil {
			return found
		}
	}
	return nil
}
