// Package corpus reads markup documents with YAML front matter from a
// directory tree.
//
// Document fields resolve as follows:
//   - id: front matter "id", else the file name without its extension
//   - title: front matter "title", else the first "# " heading, else the id
//   - type: front matter "type", else the parent directory name, else "doc"
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/dshills/docsync-mcp/internal/language"
	"github.com/dshills/docsync-mcp/internal/logger"
	"github.com/dshills/docsync-mcp/pkg/types"
)

// DefaultType is used for documents at the corpus root without a type
const DefaultType = "doc"

// ErrNoRoot is returned when the corpus root is missing or not a directory
var ErrNoRoot = errors.New("corpus root is not a directory")

// Corpus is a document tree rooted at a directory of fs
type Corpus struct {
	fs   afero.Fs
	root string
}

// New returns a corpus over root. A nil fs means the OS filesystem.
func New(fsys afero.Fs, root string) *Corpus {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Corpus{fs: fsys, root: filepath.Clean(root)}
}

// Root returns the cleaned corpus root
func (c *Corpus) Root() string {
	return c.root
}

// IsDocument reports whether path names a corpus document
func IsDocument(p string) bool {
	return language.IsMarkup(p)
}

// Refs returns the metadata of every document, ordered by path.
// Unreadable or malformed documents are logged and skipped.
func (c *Corpus) Refs() ([]types.DocumentRef, error) {
	var refs []types.DocumentRef
	err := c.walk(func(rel string, raw []byte) (bool, error) {
		doc, err := Parse(rel, raw)
		if err != nil {
			logger.Warn("corpus: skipping %s: %v", rel, err)
			return false, nil
		}
		refs = append(refs, doc.DocumentRef)
		return false, nil
	})
	return refs, err
}

// Find returns the first document, in path order, whose id equals id.
// A miss returns false with a nil error.
func (c *Corpus) Find(id string) (types.Document, bool, error) {
	var found types.Document
	var ok bool
	err := c.walk(func(rel string, raw []byte) (bool, error) {
		doc, err := Parse(rel, raw)
		if err != nil {
			return false, nil
		}
		if doc.ID == id {
			found, ok = doc, true
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return types.Document{}, false, err
	}
	return found, ok, nil
}

var errStop = errors.New("stop")

// walk visits documents in lexical path order. fn returns true to stop.
func (c *Corpus) walk(fn func(rel string, raw []byte) (bool, error)) error {
	info, err := c.fs.Stat(c.root)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNoRoot, c.root)
	}

	err = afero.Walk(c.fs, c.root, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if p != c.root && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsDocument(p) {
			return nil
		}

		raw, err := afero.ReadFile(c.fs, p)
		if err != nil {
			return fmt.Errorf("read %s: %w", p, err)
		}
		rel, err := filepath.Rel(c.root, p)
		if err != nil {
			return err
		}
		stop, err := fn(filepath.ToSlash(rel), raw)
		if err != nil {
			return err
		}
		if stop {
			return errStop
		}
		return nil
	})
	if errors.Is(err, errStop) {
		return nil
	}
	return err
}

// Parse builds a document from its corpus-relative slash path and raw bytes
func Parse(rel string, raw []byte) (types.Document, error) {
	meta, body, err := SplitFrontMatter(string(raw))
	if err != nil {
		return types.Document{}, err
	}

	doc := types.Document{
		DocumentRef: types.DocumentRef{Path: rel},
		Meta:        meta,
		Body:        body,
	}
	doc.ID = stringField(meta, "id")
	if doc.ID == "" {
		base := path.Base(rel)
		doc.ID = strings.TrimSuffix(base, path.Ext(base))
	}
	doc.Title = stringField(meta, "title")
	if doc.Title == "" {
		doc.Title = firstHeading(body)
	}
	if doc.Title == "" {
		doc.Title = doc.ID
	}
	doc.Type = stringField(meta, "type")
	if doc.Type == "" {
		if dir := path.Dir(rel); dir != "." && dir != "/" {
			doc.Type = path.Base(dir)
		} else {
			doc.Type = DefaultType
		}
	}
	return doc, nil
}

// Title resolves a display title for any file. Markup documents use their
// front matter or first heading; everything else uses the file name.
func Title(rel, content string) string {
	if IsDocument(rel) {
		if doc, err := Parse(filepath.ToSlash(rel), []byte(content)); err == nil {
			return doc.Title
		}
	}
	return path.Base(filepath.ToSlash(rel))
}

// SplitFrontMatter separates a leading "---" delimited YAML block from the
// body. Content without front matter returns a nil map and the input.
func SplitFrontMatter(content string) (map[string]any, string, error) {
	normalized := strings.TrimPrefix(content, "\ufeff")
	first, rest, ok := cutLine(normalized)
	if !ok || strings.TrimRight(first, " \t\r") != "---" {
		return nil, content, nil
	}

	var block []string
	for {
		line, tail, more := cutLine(rest)
		if strings.TrimRight(line, " \t\r") == "---" {
			meta := map[string]any{}
			if err := yaml.Unmarshal([]byte(strings.Join(block, "\n")), &meta); err != nil {
				return nil, "", fmt.Errorf("front matter: %w", err)
			}
			return meta, tail, nil
		}
		if !more {
			// unterminated: treat the whole file as body
			return nil, content, nil
		}
		block = append(block, line)
		rest = tail
	}
}

// cutLine splits s at the first newline; ok is false when s is empty
func cutLine(s string) (line, rest string, ok bool) {
	if s == "" {
		return "", "", false
	}
	line, rest, found := strings.Cut(s, "\n")
	return line, rest, found || line != ""
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

func stringField(meta map[string]any, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
