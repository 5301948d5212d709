package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"minigit/internal/repo"
)

func setupWatchedRepo(t *testing.T) (*repo.Repository, *Watcher) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	_, err = repo.Init(root)
	require.NoError(t, err)

	r, err := repo.Open(root, repo.Options{Logger: zap.NewNop(), DisableStatCache: true})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })

	w, err := New(r, zap.NewNop(), 50*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	go w.Run()
	return r, w
}

func TestWatcher(t *testing.T) {
	t.Run("StagesNewFile", func(t *testing.T) {
		r, _ := setupWatchedRepo(t)

		require.NoError(t, os.WriteFile(filepath.Join(r.Root, "fresh.txt"), []byte("hello"), 0644))

		assert.Eventually(t, func() bool {
			idx, err := r.LoadIndex()
			if err != nil {
				return false
			}
			d, ok := idx.Get("fresh.txt")
			return ok && d == "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"
		}, 3*time.Second, 25*time.Millisecond)
	})

	t.Run("ConcurrentStagingLosesNoEntries", func(t *testing.T) {
		r, w := setupWatchedRepo(t)

		// Two staging operations racing load→mutate→save would let the
		// later save drop the earlier entry. Every file staged here
		// must survive into the final index.
		const rounds = 100
		for i := 0; i < rounds; i++ {
			a := filepath.Join(r.Root, fmt.Sprintf("a%03d.txt", i))
			b := filepath.Join(r.Root, fmt.Sprintf("b%03d.txt", i))
			require.NoError(t, os.WriteFile(a, []byte("alpha"), 0644))
			require.NoError(t, os.WriteFile(b, []byte("beta"), 0644))

			var wg sync.WaitGroup
			for _, path := range []string{a, b} {
				wg.Add(1)
				go func(p string) {
					defer wg.Done()
					assert.NoError(t, w.stage(p))
				}(path)
			}
			wg.Wait()
		}

		idx, err := r.LoadIndex()
		require.NoError(t, err)
		assert.Equal(t, 2*rounds, idx.Len())
	})

	t.Run("StagesPopulatedDirectoryMove", func(t *testing.T) {
		r, _ := setupWatchedRepo(t)

		// A directory that arrives with contents produces one Create
		// event; the files inside must still be staged.
		staging := filepath.Join(t.TempDir(), "incoming")
		require.NoError(t, os.MkdirAll(staging, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(staging, "x.txt"), []byte("ex"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(staging, "y.txt"), []byte("why"), 0644))

		require.NoError(t, os.Rename(staging, filepath.Join(r.Root, "incoming")))

		assert.Eventually(t, func() bool {
			idx, err := r.LoadIndex()
			if err != nil {
				return false
			}
			_, okX := idx.Get(filepath.Join("incoming", "x.txt"))
			_, okY := idx.Get(filepath.Join("incoming", "y.txt"))
			return okX && okY
		}, 3*time.Second, 25*time.Millisecond)
	})

	t.Run("IgnoresControlArea", func(t *testing.T) {
		r, _ := setupWatchedRepo(t)

		// Index rewrites happen inside .minigit; the watcher must not
		// react to them or it would stage its own bookkeeping.
		require.NoError(t, os.WriteFile(filepath.Join(r.Root, "seed.txt"), []byte("seed"), 0644))

		assert.Eventually(t, func() bool {
			idx, err := r.LoadIndex()
			if err != nil {
				return false
			}
			return idx.Len() == 1
		}, 3*time.Second, 25*time.Millisecond)

		// Give any spurious control-area staging time to land.
		time.Sleep(300 * time.Millisecond)

		idx, err := r.LoadIndex()
		require.NoError(t, err)
		assert.Equal(t, 1, idx.Len())
		for _, p := range idx.Paths() {
			assert.NotContains(t, p, repo.ControlDirName)
		}
	})
}

func TestShouldIgnore(t *testing.T) {
	w := &Watcher{ignoreDirs: map[string]bool{
		repo.ControlDirName: true,
		".git":              true,
		"node_modules":      true,
		"vendor":            true,
	}}

	assert.True(t, w.shouldIgnore(filepath.Join(repo.ControlDirName, "index.json")))
	assert.True(t, w.shouldIgnore(filepath.Join(".git", "HEAD")))
	assert.True(t, w.shouldIgnore(filepath.Join("node_modules", "pkg", "index.js")))
	assert.True(t, w.shouldIgnore(".hidden"))
	assert.True(t, w.shouldIgnore("."))

	assert.False(t, w.shouldIgnore("main.go"))
	assert.False(t, w.shouldIgnore(filepath.Join("src", "deep", "file.txt")))
}
