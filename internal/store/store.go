// Package store persists snapshot records: an append-only table of
// (id, filename, created_at) with range and latest lookups.
//
// Two backends are available, chosen by the connection URL scheme:
//
//	sqlite://database.db       (modernc.org/sqlite, the default)
//	postgres://host:5432/vigil (pgx)
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/andresmejia3/vigil/internal/types"
)

// Layout is the wall-clock format used for created_at bounds and storage.
const Layout = "2006-01-02 15:04:05"

// NoFiles is returned in place of image paths when a range query finds nothing.
const NoFiles = "Not_files"

// ErrNotFound reports an empty store or an empty range.
var ErrNotFound = errors.New("no snapshots found")

// Store is the snapshot table. Implementations are safe for one writer and
// many concurrent readers.
type Store interface {
	// EnsureSchema creates the table if absent. It never drops data.
	EnsureSchema(ctx context.Context) error
	// Insert appends a snapshot. A zero createdAt means now.
	Insert(ctx context.Context, filename string, createdAt time.Time) error
	// Range returns snapshots with created_at in [start, end], oldest first,
	// or ErrNotFound when there are none.
	Range(ctx context.Context, start, end time.Time) ([]types.Snapshot, error)
	// Latest returns the most recently created snapshot or ErrNotFound.
	Latest(ctx context.Context) (types.Snapshot, error)
	Close()
}

// Open connects to the backend named by url's scheme and ensures the schema.
func Open(ctx context.Context, url string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		s, err = NewPostgres(ctx, url)
	case strings.HasPrefix(url, "sqlite://"):
		s, err = NewSQLite(strings.TrimPrefix(url, "sqlite://"))
	default:
		return nil, fmt.Errorf("unsupported database url %q (want sqlite:// or postgres://)", url)
	}
	if err != nil {
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}
	return s, nil
}

// Ranger is the range-query half of Store.
type Ranger interface {
	Range(ctx context.Context, start, end time.Time) ([]types.Snapshot, error)
}

// ImagePaths runs a range query and maps rows to "images/<filename>" paths.
// Both an empty result and a failed query yield []string{NoFiles}.
func ImagePaths(ctx context.Context, s Ranger, start, end time.Time, log *slog.Logger) []string {
	if log == nil {
		log = slog.Default()
	}
	snaps, err := s.Range(ctx, start, end)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error("snapshot range query failed", "start", start.Format(Layout), "end", end.Format(Layout), "error", err)
		}
		return []string{NoFiles}
	}
	paths := make([]string, len(snaps))
	for i, snap := range snaps {
		paths[i] = ImagePath(snap.Filename)
	}
	return paths
}

// ImagePath is the static-relative path clients use to fetch a snapshot image.
func ImagePath(filename string) string {
	return "images/" + filename
}

// stamp normalises created_at to local wall-clock seconds, the granularity of
// snapshot filenames and of the query bounds.
func stamp(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Local().Truncate(time.Second)
}
