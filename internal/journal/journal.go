// Package journal keeps an append-only SQLite history of timer firings.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/warpdl/deadline/common"
	_ "modernc.org/sqlite"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

// ErrDisabled is returned by a nil Journal.
var ErrDisabled = errors.New("journal disabled")

const schema = `
CREATE TABLE IF NOT EXISTS firings (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	timer_id INTEGER NOT NULL,
	label    TEXT    NOT NULL DEFAULT '',
	fired_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS firings_fired_at ON firings(fired_at);
`

// Journal is a SQLite-backed firing history. A nil *Journal is valid and
// reports ErrDisabled from every method except Close.
type Journal struct {
	db *sql.DB
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA busy_timeout = 5000")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal migrate: %w", err)
	}
	return &Journal{db: db}, nil
}

// Record appends one firing. A zero FiredAt is replaced by the current time.
func (j *Journal) Record(ctx context.Context, f common.Firing) error {
	if j == nil || j.db == nil {
		return ErrDisabled
	}
	if f.FiredAt.IsZero() {
		f.FiredAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO firings(timer_id, label, fired_at) VALUES(?,?,?)`,
		int64(f.ID), f.Label, f.FiredAt.UnixNano(),
	)
	return err
}

// List returns up to limit firings, newest first. limit <= 0 means
// DefaultListLimit; larger values are capped at MaxListLimit.
func (j *Journal) List(ctx context.Context, limit int) ([]common.Firing, error) {
	if j == nil || j.db == nil {
		return nil, ErrDisabled
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT timer_id, label, fired_at FROM firings ORDER BY fired_at DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]common.Firing, 0, limit)
	for rows.Next() {
		var (
			id    int64
			label string
			at    int64
		)
		if err := rows.Scan(&id, &label, &at); err != nil {
			return nil, err
		}
		out = append(out, common.Firing{ID: uint64(id), Label: label, FiredAt: time.Unix(0, at)})
	}
	return out, rows.Err()
}

// Prune deletes firings older than before and returns how many were removed.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	if j == nil || j.db == nil {
		return 0, ErrDisabled
	}
	res, err := j.db.ExecContext(ctx, `DELETE FROM firings WHERE fired_at < ?`, before.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}
