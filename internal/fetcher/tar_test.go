package fetcher

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestTar(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	tw := tar.NewWriter(f)
	for name, content := range members {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     name,
			Mode:     0o644,
			Size:     int64(len(content)),
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
}

func TestListTar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.tar")
	writeTestTar(t, path, map[string]string{
		"doc.htm":  "hello",
		"data.xml": "<xml/>",
	})

	members, err := ListTar(path)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	sizes := map[string]int64{}
	for _, m := range members {
		sizes[m.Name] = m.Size
	}
	assert.Equal(t, int64(5), sizes["doc.htm"])
}

func TestExtractTarMember(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.tar")
	writeTestTar(t, path, map[string]string{"doc.htm": "hello world"})

	dest := filepath.Join(dir, "out", "doc.htm")
	require.NoError(t, ExtractTarMember(path, "doc.htm", dest))

	content, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestExtractTarMember_PathTraversalRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evil.tar")
	writeTestTar(t, path, map[string]string{"../../etc/passwd": "root:x:0:0"})

	dest := filepath.Join(dir, "out", "passwd")
	err := ExtractTarMember(path, "../../etc/passwd", dest)
	require.Error(t, err)

	// Nothing may be written anywhere under the temp root.
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Len(t, entries, 1)
	assert.Equal(t, "evil.tar", entries[0].Name())
}

func TestExtractTarMember_AbsolutePathRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "evil.tar")
	writeTestTar(t, path, map[string]string{"doc.htm": "x"})

	err := ExtractTarMember(path, "/etc/cron.d/job", filepath.Join(dir, "out", "job"))
	assert.Error(t, err)
}

func TestExtractTarMember_MissingMember(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.tar")
	writeTestTar(t, path, map[string]string{"doc.htm": "x"})

	err := ExtractTarMember(path, "other.htm", filepath.Join(dir, "out", "other.htm"))
	assert.Error(t, err)
}

func TestSafeMemberName(t *testing.T) {
	assert.True(t, SafeMemberName("doc.htm"))
	assert.True(t, SafeMemberName("sub/dir/doc.htm"))
	assert.False(t, SafeMemberName("../../etc/passwd"))
	assert.False(t, SafeMemberName("/abs/path"))
	assert.False(t, SafeMemberName(`\windows\path`))
	assert.False(t, SafeMemberName("a/../../b"))
}
