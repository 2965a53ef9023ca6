package debug

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/ncruces/go-strftime"
)

const snapshotStamp = "%Y%m%d_%H%M%S"

// SnapshotWriter saves debug stills as JPEG files named
// <kind>_<timestamp>_<seq>.jpg. Safe for concurrent use.
type SnapshotWriter struct {
	dir     string
	quality int
	now     func() time.Time

	mkdir   sync.Once
	dirErr  error
	saved   atomic.Uint64
	dropped atomic.Uint64
}

// NewSnapshotWriter returns a writer for dir. The directory is created on the
// first save.
func NewSnapshotWriter(dir string, quality int) *SnapshotWriter {
	if quality < 1 || quality > 100 {
		quality = 80
	}
	return &SnapshotWriter{dir: dir, quality: quality, now: time.Now}
}

// Save encodes img to the snapshot directory.
func (w *SnapshotWriter) Save(kind string, seq uint64, img *image.RGBA) error {
	if img == nil {
		return nil
	}
	w.mkdir.Do(func() { w.dirErr = os.MkdirAll(w.dir, 0o755) })
	if w.dirErr != nil {
		w.dropped.Add(1)
		return fmt.Errorf("debug: snapshot dir: %w", w.dirErr)
	}
	name := fmt.Sprintf("%s_%s_%06d.jpg", kind, strftime.Format(snapshotStamp, w.now()), seq)
	if err := imaging.Save(img, filepath.Join(w.dir, name), imaging.JPEGQuality(w.quality)); err != nil {
		w.dropped.Add(1)
		return fmt.Errorf("debug: snapshot %s: %w", name, err)
	}
	w.saved.Add(1)
	return nil
}

// Counts returns saved and failed snapshot totals.
func (w *SnapshotWriter) Counts() (saved, dropped uint64) {
	return w.saved.Load(), w.dropped.Load()
}
