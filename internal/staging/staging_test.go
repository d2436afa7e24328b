package staging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.pdf"), "bb")
	writeFile(t, filepath.Join(dir, "a.pdf"), "a")
	writeFile(t, filepath.Join(dir, "processed_txt", "a.txt"), "cached")

	files, err := New(dir).List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.pdf", files[0].Name)
	assert.Equal(t, int64(1), files[0].Size)
	assert.Equal(t, filepath.Join(dir, "b.pdf"), files[1].Path)
}

func TestList_MissingDir(t *testing.T) {
	files, err := New(filepath.Join(t.TempDir(), "nope")).List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestAdd(t *testing.T) {
	src := filepath.Join(t.TempDir(), "kdv.pdf")
	writeFile(t, src, "%PDF-1.4")
	area := New(filepath.Join(t.TempDir(), "data"))

	dst, err := area.Add(src)
	require.NoError(t, err)
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	files, err := area.List()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "kdv.pdf", files[0].Name)
}

func TestAdd_RejectsNonPDF(t *testing.T) {
	src := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, src, "x")

	_, err := New(t.TempDir()).Add(src)
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.pdf"), "a")
	area := New(dir)

	require.NoError(t, area.Remove("a.pdf"))
	assert.NoFileExists(t, filepath.Join(dir, "a.pdf"))

	assert.ErrorIs(t, area.Remove("a.pdf"), os.ErrNotExist)
	assert.Error(t, area.Remove("../a.pdf"))
	assert.Error(t, area.Remove(""))
}

func TestClear(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	writeFile(t, filepath.Join(dir, "a.pdf"), "a")
	writeFile(t, filepath.Join(dir, "processed_txt", "a.txt"), "a")

	require.NoError(t, New(dir).Clear())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
