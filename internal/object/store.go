// Package object persists blobs on disk keyed by their digest.
// Each blob lives at objects/<digest> with its raw bytes verbatim;
// a digest is written at most once and never overwritten.
package object

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"minigit/internal/digest"
)

var (
	ErrObjectNotFound = errors.New("object not found")
	ErrInvalidDigest  = errors.New("invalid digest")
)

const defaultCacheSize = 256

// Store is a write-once blob store rooted at a single directory.
// The directory itself must exist before Put is called; creating it is
// the repository's job, not the store's.
type Store struct {
	root  string
	cache *lru.Cache[string, []byte]
}

func NewStore(root string) (*Store, error) {
	cache, err := lru.New[string, []byte](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating object cache: %w", err)
	}

	return &Store{
		root:  root,
		cache: cache,
	}, nil
}

func (s *Store) path(d string) string {
	return filepath.Join(s.root, d)
}

// Put writes content under d unless an object already exists there.
// Existing objects are trusted: their bytes are never re-read or
// compared against content. Safe to call repeatedly with the same
// digest.
func (s *Store) Put(d string, content []byte) error {
	if !digest.Valid(d) {
		return fmt.Errorf("%w: %q", ErrInvalidDigest, d)
	}
	if content == nil {
		content = []byte{}
	}

	path := s.path(d)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("checking object %s: %w", path, err)
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("writing object %s: %w", path, err)
	}

	s.cache.Add(d, content)
	return nil
}

// Get returns the blob stored under d.
func (s *Store) Get(d string) ([]byte, error) {
	if !digest.Valid(d) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDigest, d)
	}

	if content, ok := s.cache.Get(d); ok {
		return content, nil
	}

	content, err := os.ReadFile(s.path(d))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, d)
		}
		return nil, fmt.Errorf("reading object %s: %w", s.path(d), err)
	}

	s.cache.Add(d, content)
	return content, nil
}

// Exists reports whether an object is stored under d.
func (s *Store) Exists(d string) bool {
	if !digest.Valid(d) {
		return false
	}

	if s.cache.Contains(d) {
		return true
	}

	_, err := os.Stat(s.path(d))
	return err == nil
}
