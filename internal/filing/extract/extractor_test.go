package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubExtractor struct {
	field string
	value any
	err   error
	valid bool
}

func (s stubExtractor) FieldName() string              { return s.field }
func (s stubExtractor) Extract(*Document) (any, error) { return s.value, s.err }
func (s stubExtractor) Validate(any) bool              { return s.valid }

func TestOpenDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "10k_2024.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body>hi</body></html>"), 0o644))

	doc, err := OpenDocument(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)

	tree, err := doc.Tree()
	require.NoError(t, err)
	assert.Equal(t, "hi", tree.Find("body").Text())
}

func TestOpenDocument_Missing(t *testing.T) {
	_, err := OpenDocument(filepath.Join(t.TempDir(), "absent.html"))
	assert.Error(t, err)
}

func TestHead_ClampsToContent(t *testing.T) {
	doc := docFromString("short")
	assert.Equal(t, []byte("short"), doc.Head(1000))
	assert.Equal(t, []byte("sh"), doc.Head(2))
}

func TestRun_SkipsFailuresAndInvalidValues(t *testing.T) {
	doc := docFromString("<html></html>")
	results := Run(doc, []Extractor{
		stubExtractor{field: "good", value: "kept", valid: true},
		stubExtractor{field: "failing", err: eris.New("boom")},
		stubExtractor{field: "invalid", value: "dropped", valid: false},
		stubExtractor{field: "empty", value: nil, valid: true},
	})

	assert.Equal(t, map[string]any{"good": "kept"}, results)
}
