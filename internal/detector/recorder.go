package detector

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// FilenameLayout names snapshot images by their second-granularity timestamp.
// Two fires within one second share a name, so callers keep dwell >= 1s.
const FilenameLayout = "20060102_150405.jpg"

// Inserter is the write half of the snapshot store.
type Inserter interface {
	Insert(ctx context.Context, filename string, createdAt time.Time) error
}

// SnapshotRecorder writes the frame under Dir and then records it in Store.
type SnapshotRecorder struct {
	Dir    string
	Store  Inserter
	Logger *slog.Logger
}

// Record saves frame as Dir/YYYYMMDD_HHMMSS.jpg and inserts its row. A failed
// image write skips the insert so no row points at a missing file. Errors are
// logged, never returned: the detection loop keeps running.
func (r *SnapshotRecorder) Record(ctx context.Context, frame []byte, at time.Time) {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	name := at.Format(FilenameLayout)

	if err := os.WriteFile(filepath.Join(r.Dir, name), frame, 0644); err != nil {
		log.Error("snapshot: failed to write image", "file", name, "error", err)
		return
	}

	// A stop request arriving mid-record must not lose a snapshot that already fired
	if err := r.Store.Insert(context.WithoutCancel(ctx), name, at); err != nil {
		log.Error("snapshot: failed to insert record", "file", name, "error", err)
		return
	}
	log.Info("snapshot: saved", "file", name)
}
