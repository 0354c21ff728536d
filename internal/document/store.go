package document

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store persists the document as a single pretty-printed JSON file.
//
// Saves are atomic: the document is written to a temp file in the same
// directory and renamed into place, so a crash mid-write never leaves a
// truncated document behind.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path. The parent
// directory is created on first save if it doesn't exist.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file path the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// Load reads and parses the persisted document.
//
// Returns (nil, nil) when no document exists yet; this is the fresh-install
// state, not an error.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read document %s: %w", s.path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document %s: %w", s.path, err)
	}

	return &doc, nil
}

// Save writes the document to disk atomically.
func (s *Store) Save(doc *Document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create document directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	// Write atomically via temp file
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
