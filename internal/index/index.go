// Package index holds the staging index: the complete mapping from
// repository-relative paths to the digest of their staged content.
// The index is loaded in full, mutated in memory, and rewritten in
// full; there is no incremental update path.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	vcserrors "minigit/internal/errors"
)

// Index maps repository-relative path strings to blob digests.
// Several paths may share a digest; each path has exactly one.
type Index struct {
	entries map[string]string
}

func New() *Index {
	return &Index{entries: make(map[string]string)}
}

// Load reads the persisted index at path. A missing file is the normal
// state of a fresh repository and yields an empty index; a file that
// exists but does not parse is a fatal parse error naming path.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, vcserrors.IO("reading index", path, err)
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, vcserrors.Parse("parsing index", path, err)
	}
	if entries == nil {
		// A literal JSON null decodes to a nil map.
		entries = make(map[string]string)
	}

	return &Index{entries: entries}, nil
}

// Save serializes the complete mapping as pretty JSON and atomically
// replaces the file at path. The temporary file carries a unique
// suffix so a crashed writer never clobbers a concurrent one, and the
// rename guarantees the previous index is either intact or fully
// replaced.
func (idx *Index) Save(path string) error {
	data, err := json.MarshalIndent(idx.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("serializing index: %w", err)
	}

	tmp := fmt.Sprintf("%s.%s.tmp", path, uuid.New().String())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return vcserrors.IO("writing index", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return vcserrors.IO("replacing index", path, err)
	}

	return nil
}

// Set upserts the entry for path. Re-staging a path overwrites its
// previous digest.
func (idx *Index) Set(path, digest string) {
	idx.entries[path] = digest
}

// Get returns the digest staged for path.
func (idx *Index) Get(path string) (string, bool) {
	d, ok := idx.entries[path]
	return d, ok
}

// Len is the number of staged paths.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Paths returns the staged paths in sorted order.
func (idx *Index) Paths() []string {
	paths := make([]string, 0, len(idx.entries))
	for p := range idx.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Equal reports whether two indexes hold the same mapping.
func (idx *Index) Equal(other *Index) bool {
	if idx.Len() != other.Len() {
		return false
	}
	for p, d := range idx.entries {
		if od, ok := other.entries[p]; !ok || od != d {
			return false
		}
	}
	return true
}
