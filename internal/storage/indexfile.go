package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/kensa/internal/errs"
	"github.com/hyperjump/kensa/internal/models"
)

// SaveIndex writes idx to path as indented JSON. The previous file is replaced
// atomically: the data goes to a temp file in the same directory, is synced, then renamed.
func SaveIndex(path string, idx *models.Index) error {
	const op = "save index"
	if err := checkIndex(idx); err != nil {
		return errs.E(errs.Indexing, op, err)
	}
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return errs.E(errs.Indexing, op, fmt.Errorf("encoding index: %w", err))
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.E(errs.Indexing, op, fmt.Errorf("creating index directory: %w", err))
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.E(errs.Indexing, op, fmt.Errorf("creating temp file: %w", err))
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		cleanup()
		return errs.E(errs.Indexing, op, fmt.Errorf("writing temp file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errs.E(errs.Indexing, op, fmt.Errorf("syncing temp file: %w", err))
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errs.E(errs.Indexing, op, fmt.Errorf("closing temp file: %w", err))
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errs.E(errs.Indexing, op, fmt.Errorf("replacing index file: %w", err))
	}
	return nil
}

// LoadIndex reads and validates the index at path. Every failure is a configuration error.
func LoadIndex(path string) (*models.Index, error) {
	const op = "load index"
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Errorf(errs.Configuration, op, "index not found at %s; run `kensa build` first", path)
		}
		return nil, errs.E(errs.Configuration, op, fmt.Errorf("reading index: %w", err))
	}
	var idx models.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, errs.E(errs.Configuration, op, fmt.Errorf("parsing index %s: %w", path, err))
	}
	if err := checkIndex(&idx); err != nil {
		return nil, errs.E(errs.Configuration, op, fmt.Errorf("%s: %w", path, err))
	}
	return &idx, nil
}

func checkIndex(idx *models.Index) error {
	if idx == nil {
		return fmt.Errorf("nil index")
	}
	if idx.Version != models.IndexVersion {
		return fmt.Errorf("unsupported index version %d (want %d)", idx.Version, models.IndexVersion)
	}
	if idx.Dim < 0 {
		return fmt.Errorf("negative dimension %d", idx.Dim)
	}
	for i, ch := range idx.Chunks {
		if len(ch.Vector) != idx.Dim {
			return fmt.Errorf("chunk %d (%s) has vector length %d, index dim is %d", i, ch.ID, len(ch.Vector), idx.Dim)
		}
	}
	return nil
}
