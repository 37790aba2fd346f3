// Package snapshot persists the index and graph snapshots as JSON.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/phobologic/traceguide/internal/model"
)

// ErrMissing reports that a snapshot required by a later stage does not
// exist.
var ErrMissing = errors.New("snapshot missing")

// WriteIndex writes the index snapshot to path.
func WriteIndex(path string, idx *model.Index) error {
	return writeJSON(path, idx)
}

// WriteGraph writes the graph snapshot to path.
func WriteGraph(path string, g *model.Graph) error {
	return writeJSON(path, g)
}

// ReadIndex loads an index snapshot. A missing file yields ErrMissing.
func ReadIndex(path string) (*model.Index, error) {
	var idx model.Index
	if err := readJSON(path, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

// ReadGraph loads a graph snapshot. A missing file yields ErrMissing.
func ReadGraph(path string) (*model.Graph, error) {
	var g model.Graph
	if err := readJSON(path, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Marshal renders v the way snapshots are stored: two-space indent and a
// trailing newline.
func Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrMissing, path)
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return WriteFileAtomic(path, data)
}

// WriteFileAtomic writes data to a temp file in the target directory,
// syncs it, then renames it into place.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("syncing %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Chmod(tmp, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming into %s: %w", path, err)
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return nil
	}
	defer func() { _ = d.Close() }()
	// Some platforms do not support fsync on directories.
	_ = d.Sync()
	return nil
}
