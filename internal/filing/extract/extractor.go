// Package extract pulls structured fields out of 10-K primary documents.
// Extractors are pluggable; the orchestrator parses the HTML once and shares
// the tree across all of them.
package extract

import (
	"bytes"
	"os"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Document is one on-disk filing plus its lazily-built parse tree. The tree
// is built at most once and shared across extractors; creation is guarded so
// concurrent extractors see a single parse.
type Document struct {
	Path    string
	Content []byte

	once sync.Once
	tree *goquery.Document
	err  error
}

// OpenDocument reads the filing into memory. The parse tree is deferred
// until an extractor first asks for it.
func OpenDocument(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read %s", path)
	}
	return &Document{Path: path, Content: content}, nil
}

// Tree returns the parsed HTML tree, building it on first use.
func (d *Document) Tree() (*goquery.Document, error) {
	d.once.Do(func() {
		d.tree, d.err = goquery.NewDocumentFromReader(bytes.NewReader(d.Content))
		if d.err != nil {
			d.err = eris.Wrapf(d.err, "extract: parse %s", d.Path)
		}
	})
	return d.tree, d.err
}

// Head returns the first n bytes of the raw document.
func (d *Document) Head(n int) []byte {
	if n > len(d.Content) {
		n = len(d.Content)
	}
	return d.Content[:n]
}

// Extractor pulls one named field from a filing. Extract may return any
// value shape; Validate filters out garbage before the result is kept.
type Extractor interface {
	FieldName() string
	Extract(doc *Document) (any, error)
	Validate(value any) bool
}

// Run executes every extractor against one document. Per-extractor failures
// are logged and skipped; non-validating values are dropped.
func Run(doc *Document, extractors []Extractor) map[string]any {
	results := make(map[string]any, len(extractors))
	for _, ex := range extractors {
		value, err := ex.Extract(doc)
		if err != nil {
			zap.L().Debug("extract: extractor failed",
				zap.String("field", ex.FieldName()),
				zap.String("path", doc.Path),
				zap.Error(err),
			)
			continue
		}
		if value == nil || !ex.Validate(value) {
			continue
		}
		results[ex.FieldName()] = value
	}
	return results
}
