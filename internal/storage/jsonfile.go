// Package storage provides the flat-file persistence used by the
// application: one JSON document per concern, fully read and fully
// rewritten on every mutation, no schema versioning.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ReadDocument loads the JSON document at path into v. A missing file is
// not an error: v is left untouched and ok is false. A corrupt or
// unreadable file is reported so callers can degrade to their default
// state.
func ReadDocument(path string, v any) (ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// WriteDocument replaces the JSON document at path with v, creating the
// parent directory if needed.
func WriteDocument(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
