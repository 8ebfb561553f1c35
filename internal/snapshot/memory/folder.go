// Package memory implements an in-memory snapshot folder for tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Folder keeps snapshots in a map. Safe for concurrent use.
type Folder struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// New returns an empty in-memory folder.
func New() *Folder {
	return &Folder{files: make(map[string][]byte)}
}

// List returns the stored names in sorted order.
func (f *Folder) List(_ context.Context) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.files))
	for name := range f.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read returns the contents of the named snapshot.
func (f *Folder) Read(_ context.Context, name string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	data, ok := f.files[name]
	if !ok {
		return nil, fmt.Errorf("snapshot %s not found", name)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Write stores a snapshot under the given name.
func (f *Folder) Write(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	f.files[name] = stored
	return nil
}
