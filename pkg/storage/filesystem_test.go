package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveUsesDatedLayout(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	store.now = func() time.Time { return time.Date(2026, time.August, 26, 10, 0, 0, 0, time.UTC) }

	relPath, err := store.Save("payments_all_20260826_100000.csv", []byte("Student,Amount\n"))
	require.NoError(t, err)
	assert.Equal(t, "2026/08/payments_all_20260826_100000.csv", relPath)

	file, err := store.Open(relPath)
	require.NoError(t, err)
	defer file.Close()
	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, "Student,Amount\n", string(content))
}

func TestLocalStorageRejectsPathTraversal(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../escape.csv", []byte("x"))
	require.Error(t, err)

	_, err = store.Open("../../etc/passwd")
	require.Error(t, err)
}

func TestLocalStorageCleanupOlderThan(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	relPath, err := store.Save("grades_stu-1.pdf", []byte("%PDF"))
	require.NoError(t, err)

	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, filepath.FromSlash(relPath)), old, old))

	removed, err := store.CleanupOlderThan(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{relPath}, removed)

	_, err = store.Open(relPath)
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}
