package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore writes one JSON file per result under a directory. It is the
// default sink for local runs.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed and returns a file sink.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

// SaveResult writes the record as <runID>.json.
func (s *FileStore) SaveResult(_ context.Context, rec Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	path := filepath.Join(s.dir, rec.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Close is a no-op for the file sink.
func (s *FileStore) Close(context.Context) error { return nil }
