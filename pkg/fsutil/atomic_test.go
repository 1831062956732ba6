package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/evidentry-project/evidentry/pkg/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWrite_CreatesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.json")

	require.NoError(t, fsutil.AtomicWrite(path, []byte(`{"ok":true}`), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(data))
}

func TestAtomicWrite_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "record.json")

	require.NoError(t, fsutil.AtomicWrite(path, []byte("old"), 0644))
	require.NoError(t, fsutil.AtomicWrite(path, []byte("new"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestAtomicWrite_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, fsutil.AtomicWrite(filepath.Join(dir, "a"), []byte("x"), 0600))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a", entries[0].Name())
}

func TestRenameAndSync(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old")
	require.NoError(t, os.WriteFile(old, []byte("x"), 0644))

	newPath := filepath.Join(dir, "new")
	require.NoError(t, fsutil.RenameAndSync(old, newPath))

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newPath)
	assert.NoError(t, err)
}
