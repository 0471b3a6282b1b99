// Package filestore persists deal room state as flat JSON files, one array
// per collection, behind the repository interfaces of the dealroom package.
package filestore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/harborstone/portal/backend/internal/dealroom"
)

// collection is one JSON-array file. Every read-modify-write cycle runs
// under the collection mutex, so concurrent writers cannot drop each other's
// rows.
type collection[T any] struct {
	fs    afero.Fs
	path  string
	label string
	mu    sync.Mutex
}

func newCollection[T any](fs afero.Fs, path, label string) *collection[T] {
	return &collection[T]{fs: fs, path: path, label: label}
}

func (c *collection[T]) readLocked() ([]T, error) {
	raw, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, dealroom.NewStorageError("read "+c.label, err)
	}
	if len(raw) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, dealroom.NewStorageError("read "+c.label, err)
	}
	return items, nil
}

func (c *collection[T]) writeLocked(items []T) error {
	if err := c.fs.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return dealroom.NewStorageError("save "+c.label, err)
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return dealroom.NewStorageError("save "+c.label, err)
	}
	if err := afero.WriteFile(c.fs, c.path, raw, 0o644); err != nil {
		return dealroom.NewStorageError("save "+c.label, err)
	}
	return nil
}

// view runs fn over the current contents under the lock without writing.
func (c *collection[T]) view(fn func(items []T) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.readLocked()
	if err != nil {
		return err
	}
	return fn(items)
}

// mutate runs fn under the lock and persists the returned list when fn
// reports a change.
func (c *collection[T]) mutate(fn func(items []T) ([]T, bool, error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, err := c.readLocked()
	if err != nil {
		return err
	}
	updated, changed, err := fn(items)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return c.writeLocked(updated)
}
