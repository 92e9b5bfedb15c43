// Package jsonstore keeps each record list as a JSON array in its own file.
// Every operation loads the whole file, and writes replace it atomically.
package jsonstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// arrayFile serialises read-modify-write cycles on one JSON array file.
type arrayFile[T any] struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex
}

func newArrayFile[T any](path string, logger *slog.Logger) *arrayFile[T] {
	return &arrayFile[T]{path: path, logger: logger}
}

func (f *arrayFile[T]) all() ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load()
}

func (f *arrayFile[T]) append(v T) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	list, err := f.load()
	if err != nil {
		return err
	}
	return f.save(append(list, v))
}

// load returns an empty list for a missing or blank file. A file that does not
// parse is also read as empty; the next write replaces it.
func (f *arrayFile[T]) load() ([]T, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []T{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}

	var list []T
	if err := json.Unmarshal(data, &list); err != nil {
		f.logger.Warn("data file is not a valid JSON array, treating as empty", "path", f.path, "error", err)
		return []T{}, nil
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

// save writes to a temp file in the same directory and renames it over the
// target, so readers never observe a half-written array.
func (f *arrayFile[T]) save(list []T) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.path, err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// CreateTemp uses 0600; data files are shared with other readers.
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		f.removeTemp(tmpPath)
		return fmt.Errorf("failed to chmod %s: %w", tmpPath, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		f.removeTemp(tmpPath)
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		f.removeTemp(tmpPath)
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		f.removeTemp(tmpPath)
		return fmt.Errorf("failed to replace %s: %w", f.path, err)
	}
	return nil
}

func (f *arrayFile[T]) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Error("failed to remove temp file", "path", path, "error", err)
	}
}
