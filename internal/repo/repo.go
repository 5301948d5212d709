// Package repo owns the repository handle: the control area layout,
// initialization, and the staging operation that ties the hasher, the
// blob store, and the index together. Every operation goes through an
// explicit *Repository; nothing consults the ambient working directory.
package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"minigit/internal/config"
	"minigit/internal/digest"
	vcserrors "minigit/internal/errors"
	"minigit/internal/index"
	"minigit/internal/logging"
	"minigit/internal/object"
	"minigit/internal/statecache"
)

const (
	// ControlDirName is the fixed control area location under the
	// repository root.
	ControlDirName = ".minigit"

	objectsDirName  = "objects"
	indexFileName   = "index.json"
	commitsFileName = "commits.jsonl" // reserved for future history tooling
	configFileName  = "config.json"
	cacheDirName    = "db"
)

// Repository is the handle for one repository rooted at Root.
type Repository struct {
	Root    string
	Objects *object.Store
	Cache   *statecache.Cache // nil when the stat cache is disabled or unavailable
	Config  *config.Config
	Logger  *zap.Logger
}

// Options configures Open.
type Options struct {
	Logger           *zap.Logger // nil builds one from the config log level
	DisableStatCache bool
}

func ControlDir(root string) string  { return filepath.Join(root, ControlDirName) }
func ObjectsDir(root string) string  { return filepath.Join(ControlDir(root), objectsDirName) }
func IndexPath(root string) string   { return filepath.Join(ControlDir(root), indexFileName) }
func CommitsPath(root string) string { return filepath.Join(ControlDir(root), commitsFileName) }
func ConfigPath(root string) string  { return filepath.Join(ControlDir(root), configFileName) }
func cacheDir(root string) string    { return filepath.Join(ControlDir(root), cacheDirName) }

func (r *Repository) IndexPath() string   { return IndexPath(r.Root) }
func (r *Repository) CommitsPath() string { return CommitsPath(r.Root) }

// Init creates the control area, the objects directory, and an empty
// index. Idempotent: an already-initialized repository is reported via
// created=false, not an error, and its contents are left untouched.
func Init(root string) (created bool, err error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return false, fmt.Errorf("resolving repository root %s: %w", root, err)
	}

	if _, err := os.Stat(ControlDir(absRoot)); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, vcserrors.IO("checking control area", ControlDir(absRoot), err)
	}

	if err := os.MkdirAll(ObjectsDir(absRoot), 0755); err != nil {
		return false, vcserrors.IO("creating objects directory", ObjectsDir(absRoot), err)
	}

	if err := index.New().Save(IndexPath(absRoot)); err != nil {
		return false, err
	}

	return true, nil
}

// Open opens an initialized repository at root. The control area must
// already exist; directing the user to init is the only remedy for a
// missing one. Open re-ensures the objects directory so Put always has
// its precondition.
func Open(root string, opts Options) (*Repository, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving repository root %s: %w", root, err)
	}

	if _, err := os.Stat(ControlDir(absRoot)); err != nil {
		if os.IsNotExist(err) {
			return nil, vcserrors.Precondition(
				"not a minigit repository (missing .minigit); run 'minigit init' first")
		}
		return nil, vcserrors.IO("checking control area", ControlDir(absRoot), err)
	}

	cfg, err := config.Load(ConfigPath(absRoot))
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		l, err := logging.NewLogger(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("initializing logger: %w", err)
		}
		logger = l.Logger
	}

	// Safe if it already exists; restores the blob store precondition
	// when the objects directory was removed out-of-band.
	if err := os.MkdirAll(ObjectsDir(absRoot), 0755); err != nil {
		return nil, vcserrors.IO("creating objects directory", ObjectsDir(absRoot), err)
	}

	store, err := object.NewStore(ObjectsDir(absRoot))
	if err != nil {
		return nil, err
	}

	r := &Repository{
		Root:    absRoot,
		Objects: store,
		Config:  cfg,
		Logger:  logger,
	}

	if cfg.StatCache.Enabled && !opts.DisableStatCache {
		cache, err := statecache.Open(cacheDir(absRoot))
		if err != nil {
			// Another invocation may hold the badger lock. Staging is
			// correct without the cache, so degrade instead of failing.
			logger.Warn("state cache unavailable, staging without it", zap.Error(err))
		} else {
			r.Cache = cache
		}
	}

	return r, nil
}

// Close releases the repository's resources.
func (r *Repository) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// LoadIndex reads the complete staging index.
func (r *Repository) LoadIndex() (*index.Index, error) {
	return index.Load(r.IndexPath())
}

// SaveIndex atomically rewrites the complete staging index.
func (r *Repository) SaveIndex(idx *index.Index) error {
	return idx.Save(r.IndexPath())
}

// resolve turns a staging argument into an absolute path. Relative
// arguments are resolved against the repository root.
func (r *Repository) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(r.Root, path)
}

// normalize expresses path relative to the repository root. A path
// outside the tree degrades to its absolute form verbatim; such
// entries are machine-specific, which is the accepted trade-off for
// not rejecting out-of-tree staging outright.
func (r *Repository) normalize(path string) (string, error) {
	abs := r.resolve(path)

	rel, err := filepath.Rel(r.Root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return abs, nil
	}
	return rel, nil
}

// Stage reads the file at path, persists its content blob, and upserts
// the (normalized path, digest) pair into idx in memory. It never
// persists the index; the caller saves once per batch so a multi-file
// operation is a single atomic rewrite.
func (r *Repository) Stage(path string, idx *index.Index) error {
	abs := r.resolve(path)
	rel, err := r.normalize(path)
	if err != nil {
		return err
	}

	if d, ok := r.cachedDigest(abs, rel); ok {
		idx.Set(rel, d)
		return nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return vcserrors.IO("reading", abs, err)
	}

	d := digest.Sum(content)
	if err := r.Objects.Put(d, content); err != nil {
		return fmt.Errorf("storing blob %s: %w", d, err)
	}

	idx.Set(rel, d)
	r.recordState(abs, rel, d)

	return nil
}

// cachedDigest returns the recorded digest for rel when the file's
// size and mtime are unchanged since it was last staged and the blob
// still exists. A miss on any condition falls through to a full
// read-and-hash.
func (r *Repository) cachedDigest(abs, rel string) (string, bool) {
	if r.Cache == nil {
		return "", false
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}

	state, err := r.Cache.Get(rel)
	if err != nil {
		r.Logger.Warn("reading state cache", zap.String("path", rel), zap.Error(err))
		return "", false
	}
	if state == nil || state.Size != info.Size() || !state.ModTime.Equal(info.ModTime()) {
		return "", false
	}
	if !r.Objects.Exists(state.Digest) {
		return "", false
	}

	return state.Digest, true
}

func (r *Repository) recordState(abs, rel, d string) {
	if r.Cache == nil {
		return
	}

	info, err := os.Stat(abs)
	if err != nil {
		return
	}

	err = r.Cache.Put(rel, statecache.FileState{
		Digest:  d,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	})
	if err != nil {
		r.Logger.Warn("updating state cache", zap.String("path", rel), zap.Error(err))
	}
}
