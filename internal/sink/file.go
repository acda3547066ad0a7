package sink

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"solana-price-tracker/internal/domain"
)

// DefaultFile is the snapshot file written after every emitting tick.
const DefaultFile = "token_prices.json"

// FileWriter overwrites a JSON file with the latest snapshot.
type FileWriter struct {
	path string
}

// NewFileWriter creates a FileWriter for path.
func NewFileWriter(path string) *FileWriter {
	if path == "" {
		path = DefaultFile
	}
	return &FileWriter{path: path}
}

// Path returns the target file.
func (f *FileWriter) Path() string {
	return f.path
}

// Write replaces the file atomically: readers see the old or the new array, never a partial one.
func (f *FileWriter) Write(s *domain.Snapshot) error {
	data, err := json.MarshalIndent(s.Records(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// CreateTemp opens with 0600; the snapshot is meant for other readers.
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
