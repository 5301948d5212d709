// Package export serializes the staged tree as a zstd-compressed tar
// stream. It is a snapshot of the staging area only; nothing here
// touches commit history.
package export

import (
	"archive/tar"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"minigit/internal/index"
	"minigit/internal/object"
)

// Write emits one tar entry per staged path, with contents fetched
// from the blob store, compressed with zstd. Entries appear in sorted
// path order so the output is reproducible for a given index.
func Write(w io.Writer, idx *index.Index, store *object.Store) error {
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return fmt.Errorf("creating zstd encoder: %w", err)
	}

	tw := tar.NewWriter(enc)

	now := time.Now()
	for _, path := range idx.Paths() {
		d, _ := idx.Get(path)

		content, err := store.Get(d)
		if err != nil {
			return fmt.Errorf("exporting %s: %w", path, err)
		}

		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     filepath.ToSlash(path),
			Mode:     0644,
			Size:     int64(len(content)),
			ModTime:  now,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("writing tar header for %s: %w", path, err)
		}
		if _, err := tw.Write(content); err != nil {
			return fmt.Errorf("writing tar entry for %s: %w", path, err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalizing tar stream: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing compression: %w", err)
	}

	return nil
}
