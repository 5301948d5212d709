// Package watch stages files automatically as they change on disk.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"minigit/internal/repo"
)

// Watcher observes the repository tree and stages every created or
// modified regular file. Removals and renames are ignored: there is no
// unstage operation, so the index only ever grows or updates.
type Watcher struct {
	repo     *repo.Repository
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.Logger

	ignoreDirs map[string]bool

	mu      sync.Mutex
	pending map[string]*time.Timer

	// stageMu serializes complete staging operations. Debounce timers
	// fire on their own goroutines, and an unserialized load→mutate→save
	// pair would let the later save drop the earlier one's entry.
	stageMu sync.Mutex
}

func New(r *repo.Repository, logger *zap.Logger, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	w := &Watcher{
		repo:     r,
		watcher:  fsw,
		debounce: debounce,
		logger:   logger,
		ignoreDirs: map[string]bool{
			repo.ControlDirName: true,
			".git":              true,
			"node_modules":      true,
			"vendor":            true,
		},
		pending: make(map[string]*time.Timer),
	}

	if err := w.watchTree(r.Root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// watchTree registers dir and every non-ignored subdirectory below it.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(w.repo.Root, path)
		if err != nil {
			return err
		}
		if rel != "." && w.shouldIgnore(rel) {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		return nil
	})
}

// scheduleTree stages every regular file already inside dir. A
// populated directory can arrive in one event (mv or untar into the
// tree), so watching the new directory alone would miss its contents.
func (w *Watcher) scheduleTree(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, rerr := filepath.Rel(w.repo.Root, path)
		if rerr != nil {
			return rerr
		}
		if w.shouldIgnore(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type().IsRegular() {
			w.schedule(path)
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("walking new directory",
			zap.String("path", dir), zap.Error(err))
	}
}

// Run processes events until Close is called.
func (w *Watcher) Run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	rel, err := filepath.Rel(w.repo.Root, event.Name)
	if err != nil || w.shouldIgnore(rel) {
		return
	}

	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if event.Op&fsnotify.Create != 0 {
			if err := w.watchTree(event.Name); err != nil {
				w.logger.Error("watching new directory",
					zap.String("path", event.Name), zap.Error(err))
			}
			w.scheduleTree(event.Name)
		}
		return
	}

	if !info.Mode().IsRegular() {
		return
	}

	w.schedule(event.Name)
}

// schedule stages path after the debounce window, resetting the timer
// on every further event so a burst of writes stages once.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}

	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		if err := w.stage(path); err != nil {
			w.logger.Warn("auto-staging failed",
				zap.String("path", path), zap.Error(err))
		}
	})
}

// stage runs one complete staging operation for a single file:
// load, mutate, save. The whole operation holds stageMu so concurrent
// timers cannot interleave their index rewrites.
func (w *Watcher) stage(path string) error {
	w.stageMu.Lock()
	defer w.stageMu.Unlock()

	idx, err := w.repo.LoadIndex()
	if err != nil {
		return err
	}

	if err := w.repo.Stage(path, idx); err != nil {
		return err
	}

	if err := w.repo.SaveIndex(idx); err != nil {
		return err
	}

	w.logger.Info("staged", zap.String("path", path))
	return nil
}

func (w *Watcher) shouldIgnore(rel string) bool {
	if rel == "" || rel == "." {
		return true
	}

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, ".") || w.ignoreDirs[part] {
			return true
		}
	}
	return false
}

// Close stops the watcher and cancels pending staging timers.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	return w.watcher.Close()
}
