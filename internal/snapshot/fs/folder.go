// Package fs implements the shared snapshot folder on a local directory,
// typically one kept in sync by a cloud drive client.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Folder reads and writes snapshot files in a directory.
type Folder struct {
	dir string
}

// New validates that the directory exists and returns a Folder over it.
func New(dir string) (*Folder, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot folder %s is not a directory", dir)
	}
	return &Folder{dir: dir}, nil
}

// List returns the snapshot file names in the directory.
func (f *Folder) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot folder: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasSuffix(entry.Name(), ".json") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Read returns the contents of the named snapshot.
func (f *Folder) Read(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, filepath.Base(name)))
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	return data, nil
}

// Write stores a snapshot via write-new-then-rename so a concurrent reader
// never observes a partial file.
func (f *Folder) Write(_ context.Context, name string, data []byte) error {
	target := filepath.Join(f.dir, filepath.Base(name))
	tmp, err := os.CreateTemp(f.dir, filepath.Base(name)+".part_")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()         //nolint:errcheck
		os.Remove(tmpName)  //nolint:errcheck
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return fmt.Errorf("publish snapshot %s: %w", name, err)
	}
	return nil
}
