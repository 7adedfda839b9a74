package domains

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStatusFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "domain_status.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadStatusFile_NormalizesAndFilters(t *testing.T) {
	path := writeStatusFile(t, `
- domain: https://www.apple.com/store
  title: Apple
  keywords: iphone, mac
  description: Consumer electronics.
  technologies:
    - name: Akamai
      category: CDN
    - name: ""
- domain: sec.gov
  title: Blacklisted
- domain: not a domain
- domain: apple.com
  title: Duplicate of the first entry
`)

	records, err := LoadStatusFile(path)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "apple.com", rec.Domain)
	assert.Equal(t, "Apple", rec.Title)
	assert.Equal(t, "iphone, mac", rec.Keywords)
	require.Len(t, rec.Technologies, 1)
	assert.Equal(t, "Akamai", rec.Technologies[0].Name)
	assert.Equal(t, "CDN", rec.Technologies[0].Category)
}

func TestLoadStatusFile_MissingFile(t *testing.T) {
	_, err := LoadStatusFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadStatusFile_MalformedYAML(t *testing.T) {
	path := writeStatusFile(t, "{not yaml")
	_, err := LoadStatusFile(path)
	require.Error(t, err)
}
