package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveCreatesDirectories(t *testing.T) {
	base := filepath.Join(t.TempDir(), "exports")
	s := NewLocalStorage(base)

	path, err := s.Save("nested/students.csv", []byte("ID,Name\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "nested", "students.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ID,Name\n", string(data))

	entries, err := os.ReadDir(filepath.Join(base, "nested"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestLocalStorageSaveOverwrites(t *testing.T) {
	s := NewLocalStorage(t.TempDir())
	_, err := s.Save("out.csv", []byte("old"))
	require.NoError(t, err)
	path, err := s.Save("out.csv", []byte("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestLocalStorageAbsolutePathAndName(t *testing.T) {
	s := NewLocalStorage("ignored")
	abs := filepath.Join(t.TempDir(), "report.pdf")
	assert.Equal(t, abs, s.Path(abs))

	s.now = func() time.Time { return time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC) }
	assert.Equal(t, "courses-20240102-150405.csv", s.Name("courses", "csv"))
	assert.Equal(t, "courses-20240102-150405.pdf", s.Name("courses", ".pdf"))
}
