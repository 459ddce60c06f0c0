package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomicWriter_PrettyJSON(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "1.json")

	w := NewAtomicWriter(0o644)
	require.NoError(t, w.Write(path, map[string]any{"name": "Alice", "age": 30}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"age\": 30,\n  \"name\": \"Alice\"\n}\n", string(data))
	assert.NoFileExists(t, path+TempSuffix)
}

func TestAtomicWriter_Replaces(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "1.json")
	w := NewAtomicWriter(0o644)

	require.NoError(t, w.Write(path, map[string]any{"v": 1}))
	require.NoError(t, w.Write(path, []any{"x"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `["x"]`, string(data))
}

func TestAtomicWriter_EncodeFailureKeepsOriginal(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "1.json")
	w := NewAtomicWriter(0o644)
	require.NoError(t, w.Write(path, map[string]any{"v": 1}))

	err := w.Write(path, map[string]any{"ch": make(chan int)})
	require.ErrorIs(t, err, ErrWriteFailed)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":1}`, string(data))
	assert.NoFileExists(t, path+TempSuffix)
}

func TestAtomicWriter_MissingDirectory(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "missing", "1.json")

	err := NewAtomicWriter(0o644).Write(path, map[string]any{})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.NoFileExists(t, path)
}

func TestAtomicWriter_RenameFailureCleansTemp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// a non-empty directory at the target path makes the rename fail
	path := filepath.Join(dir, "1.json")
	require.NoError(t, os.MkdirAll(filepath.Join(path, "child"), 0o755))

	err := NewAtomicWriter(0o644).Write(path, map[string]any{})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.NoFileExists(t, path+TempSuffix)
	assert.DirExists(t, path)
}
