// Package statecache keeps a badger-backed record of the last staged
// state of each file (digest, size, mtime). Staging consults it to
// skip rehashing files whose metadata has not changed. The cache is an
// accelerator only: deleting the database directory is always safe and
// never loses staged data.
package statecache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "file_state:"

// FileState is the recorded state of a file at the time it was staged.
type FileState struct {
	Digest  string    `json:"digest"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

type Cache struct {
	db *badger.DB
}

// Open opens (or creates) the cache database at dir.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // badger is chatty by default

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening state cache: %w", err)
	}

	return &Cache{db: db}, nil
}

// OpenInMemory opens a throwaway cache for tests.
func OpenInMemory() (*Cache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening in-memory state cache: %w", err)
	}

	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func key(relPath string) []byte {
	return []byte(keyPrefix + relPath)
}

// Get returns the recorded state for relPath, or nil if none exists.
func (c *Cache) Get(relPath string) (*FileState, error) {
	var state FileState

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(relPath))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &state)
		})
	})
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("retrieving file state: %w", err)
	}

	return &state, nil
}

// Put records the staged state of relPath.
func (c *Cache) Put(relPath string, state FileState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling file state: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(relPath), data)
	})
}

// Delete removes the recorded state for relPath.
func (c *Cache) Delete(relPath string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(relPath))
	})
}
