package store

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/brettbedarf/docfs/internal/util"
)

// AtomicWriter replaces files through a temp file and a rename, so readers only ever see
// the previous or the new complete document. It does no locking of its own.
type AtomicWriter struct {
	fileMode os.FileMode
}

func NewAtomicWriter(fileMode os.FileMode) *AtomicWriter {
	if fileMode == 0 {
		fileMode = 0o644
	}
	return &AtomicWriter{fileMode: fileMode}
}

// Encode renders doc as 2-space indented JSON with a trailing newline
func Encode(doc any) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write encodes doc and atomically replaces path with it
func (w *AtomicWriter) Write(path string, doc any) error {
	data, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrWriteFailed, path, err)
	}
	return w.WriteBytes(path, data)
}

// WriteBytes atomically replaces path with data
func (w *AtomicWriter) WriteBytes(path string, data []byte) error {
	tmp := path + TempSuffix
	if err := w.writeTemp(tmp, data); err != nil {
		w.cleanup(tmp)
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		w.cleanup(tmp)
		return fmt.Errorf("%w: rename %s: %w", ErrWriteFailed, path, err)
	}
	return nil
}

func (w *AtomicWriter) writeTemp(tmp string, data []byte) error {
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, w.fileMode)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// cleanup is best effort; a leftover temp file is never read as a document.
func (w *AtomicWriter) cleanup(tmp string) {
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		logger := util.GetLogger("AtomicWriter")
		logger.Warn().Err(err).Str("path", tmp).Msg("Failed to remove temp file")
	}
}
