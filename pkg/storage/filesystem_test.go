package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "flood_map_2026.zip", SanitizeFilename("flood map 2026.zip"))
	assert.Equal(t, "b_c.pdf", SanitizeFilename("a/b\\c.pdf"))
	assert.Equal(t, "plain-name_1.txt", SanitizeFilename("plain-name_1.txt"))
}

func TestLocalStorageSaveStream(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/uploads/resource-deliveries")
	require.NoError(t, err)

	name, url, err := store.SaveStream("flood map.zip", strings.NewReader("payload"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, "_flood_map.zip"))
	assert.Equal(t, "/uploads/resource-deliveries/"+name, url)

	content, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))
}

func TestLocalStorageDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir, "/uploads")
	require.NoError(t, err)

	name, _, err := store.SaveStream("doc.pdf", strings.NewReader("x"))
	require.NoError(t, err)
	require.NoError(t, store.Delete(name))

	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))
}
