package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresmejia3/vigil/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores snapshots in PostgreSQL. The pool hands each operation its
// own connection, so the detector and the readers never share one.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres establishes a connection pool to the database.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// EnsureSchema creates the humans table if it doesn't exist.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS humans (
			id BIGSERIAL PRIMARY KEY,
			filename TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT LOCALTIMESTAMP(0)
		);
		CREATE INDEX IF NOT EXISTS humans_created_at_idx ON humans (created_at);
	`)
	return err
}

// Close terminates the pool.
func (s *Postgres) Close() {
	s.pool.Close()
}

// Insert saves a snapshot record.
func (s *Postgres) Insert(ctx context.Context, filename string, createdAt time.Time) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO humans (filename, created_at) VALUES ($1, $2)`,
		filename, wallClock(stamp(createdAt)))
	return err
}

// Range returns the snapshots created between start and end inclusive.
func (s *Postgres) Range(ctx context.Context, start, end time.Time) ([]types.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, filename, created_at FROM humans
		WHERE created_at BETWEEN $1 AND $2
		ORDER BY created_at ASC, id ASC
	`, wallClock(start), wallClock(end))
	if err != nil {
		return nil, err
	}
	snaps, err := pgx.CollectRows(rows, scanSnapshot)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	return snaps, nil
}

// Latest returns the newest snapshot. Ties on created_at go to the higher id.
func (s *Postgres) Latest(ctx context.Context) (types.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, filename, created_at FROM humans ORDER BY created_at DESC, id DESC LIMIT 1`)
	if err != nil {
		return types.Snapshot{}, err
	}
	snap, err := pgx.CollectOneRow(rows, scanSnapshot)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Snapshot{}, ErrNotFound
	}
	return snap, err
}

func scanSnapshot(row pgx.CollectableRow) (types.Snapshot, error) {
	var snap types.Snapshot
	var created time.Time
	if err := row.Scan(&snap.ID, &snap.Filename, &created); err != nil {
		return types.Snapshot{}, err
	}
	snap.CreatedAt = fromWallClock(created)
	return snap, nil
}

// wallClock drops the zone so TIMESTAMP columns store local wall-clock values.
func wallClock(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

// fromWallClock reinterprets a zone-less TIMESTAMP value as local time.
func fromWallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}
