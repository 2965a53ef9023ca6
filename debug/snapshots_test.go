package debug

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshotWriterNamesAndWrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snaps")
	w := NewSnapshotWriter(dir, 0)
	w.now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if err := w.Save("raw", 42, img); err != nil {
		t.Fatalf("save: %v", err)
	}
	want := filepath.Join(dir, "raw_20240305_140709_000042.jpg")
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("expected %s: %v", want, err)
	}
	if err := w.Save("processed", 1, nil); err != nil {
		t.Fatalf("nil image should be ignored: %v", err)
	}
	if saved, dropped := w.Counts(); saved != 1 || dropped != 0 {
		t.Fatalf("unexpected counts saved=%d dropped=%d", saved, dropped)
	}
}

func TestSnapshotWriterDirFailure(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := NewSnapshotWriter(filepath.Join(blocker, "sub"), 80)
	if err := w.Save("raw", 1, image.NewRGBA(image.Rect(0, 0, 2, 2))); err == nil {
		t.Fatalf("expected error when directory cannot be created")
	}
	if _, dropped := w.Counts(); dropped != 1 {
		t.Fatalf("failed save not counted")
	}
}
