package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore implements the Store interface using one JSON file per result set.
// Result sets are stored as <baseDir>/<name>.json with the sweep journal
// alongside as <baseDir>/<name>.jsonl.
//
// Thread-safety: This implementation uses atomic file operations (rename)
// and does not require locks.
type FSStore struct {
	baseDir string // Root directory for result files (e.g., "./plots")
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// Dir returns the base directory
func (fs *FSStore) Dir() string {
	return fs.baseDir
}

// ResultPath returns the path to the JSON file for a result set.
func (fs *FSStore) ResultPath(name string) string {
	return filepath.Join(fs.baseDir, name+".json")
}

// JournalPath returns the path to the sweep journal for a result set.
func (fs *FSStore) JournalPath(name string) string {
	return filepath.Join(fs.baseDir, name+".jsonl")
}

// validateName rejects names that would escape the base directory
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid result set name %q", name)
	}
	return nil
}

// SaveResults atomically saves a result set under name.
func (fs *FSStore) SaveResults(name string, rs *ResultSet) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := SaveFile(fs.ResultPath(name), rs); err != nil {
		return err
	}

	slog.Debug("Result set saved", "name", name, "path", fs.ResultPath(name))
	return nil
}

// LoadResults retrieves the result set stored under name.
func (fs *FSStore) LoadResults(name string) (*ResultSet, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	rs, err := LoadFile(fs.ResultPath(name))
	if err != nil {
		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			return nil, &NotFoundError{Name: name}
		}
		return nil, err
	}
	return rs, nil
}

// ListResults returns metadata for all result files in the base directory.
func (fs *FSStore) ListResults() ([]ResultInfo, error) {
	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read result directory: %w", err)
	}

	infos := []ResultInfo{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		fileInfo, err := entry.Info()
		if err != nil {
			slog.Warn("Failed to stat result file", "name", name, "error", err)
			continue
		}

		rs, err := fs.LoadResults(name)
		if err != nil {
			slog.Warn("Failed to load result set for listing", "name", name, "error", err)
			continue // Skip corrupted files
		}

		infos = append(infos, NewResultInfo(name, rs, fileInfo.ModTime(), fileInfo.Size()))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	slog.Debug("Listed result sets", "count", len(infos))
	return infos, nil
}

// DeleteResults removes the result file and its journal.
func (fs *FSStore) DeleteResults(name string) error {
	if err := validateName(name); err != nil {
		return err
	}

	path := fs.ResultPath(name)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &NotFoundError{Name: name}
		}
		return fmt.Errorf("failed to remove result file: %w", err)
	}

	if err := DeleteJournal(fs.JournalPath(name)); err != nil {
		return err
	}

	slog.Debug("Result set deleted", "name", name, "path", path)
	return nil
}

// Close is a no-op for the filesystem store.
func (fs *FSStore) Close() error {
	return nil
}
