package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/andresmejia3/vigil/internal/types"
	_ "modernc.org/sqlite"
)

// SQLite stores snapshots in a local SQLite file. created_at is kept as
// "YYYY-MM-DD HH:MM:SS" text so BETWEEN compares lexically.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database file at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &SQLite{db: db}, nil
}

// EnsureSchema creates the humans table if it doesn't exist.
func (s *SQLite) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS humans (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			created_at TEXT NOT NULL DEFAULT (datetime('now', 'localtime'))
		);
		CREATE INDEX IF NOT EXISTS humans_created_at_idx ON humans (created_at);
	`)
	return err
}

// Close closes the underlying database.
func (s *SQLite) Close() {
	s.db.Close()
}

// Insert saves a snapshot record.
func (s *SQLite) Insert(ctx context.Context, filename string, createdAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO humans (filename, created_at) VALUES (?, ?)`,
		filename, stamp(createdAt).Format(Layout))
	return err
}

// Range returns the snapshots created between start and end inclusive.
func (s *SQLite) Range(ctx context.Context, start, end time.Time) ([]types.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, filename, created_at FROM humans
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at ASC, id ASC
	`, start.Local().Format(Layout), end.Local().Format(Layout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []types.Snapshot
	for rows.Next() {
		snap, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	return snaps, nil
}

// Latest returns the newest snapshot. Ties on created_at go to the higher id.
func (s *SQLite) Latest(ctx context.Context) (types.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, filename, created_at FROM humans ORDER BY created_at DESC, id DESC LIMIT 1`)
	snap, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Snapshot{}, ErrNotFound
	}
	return snap, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row scanner) (types.Snapshot, error) {
	var snap types.Snapshot
	var created string
	if err := row.Scan(&snap.ID, &snap.Filename, &created); err != nil {
		return types.Snapshot{}, err
	}
	t, err := time.ParseInLocation(Layout, created, time.Local)
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	snap.CreatedAt = t
	return snap, nil
}
