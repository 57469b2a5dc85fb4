package magzfeed

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/magzfeed/feed"
)

// Store wraps a SQLite database holding page session state, so a visitor's
// feed position survives a server restart.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the schema.
func NewStore(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets the load-more handlers read while a save is in progress; the
	// busy timeout makes writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(4)
	}
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS feed_sessions (
    id TEXT PRIMARY KEY,
    category_slug TEXT NOT NULL,
    label TEXT NOT NULL,
    label_locked INTEGER NOT NULL DEFAULT 0,
    active_month TEXT NOT NULL DEFAULT '',
    cursor INTEGER NOT NULL DEFAULT 0,
    rendered INTEGER NOT NULL DEFAULT 0,
    finished INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS feed_sessions_updated ON feed_sessions (updated_at);
`)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(`ALTER TABLE feed_sessions ADD COLUMN source_slug TEXT NOT NULL DEFAULT '';`); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
			return nil
		}
		return err
	}
	return nil
}

// SaveSession upserts a page session.
func (s *Store) SaveSession(ctx context.Context, st feed.SessionState) error {
	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO feed_sessions
(id, category_slug, source_slug, label, label_locked, active_month, cursor, rendered, finished, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.CategorySlug, st.SourceSlug, st.Label, boolInt(st.LabelLocked), st.ActiveMonth,
		st.Cursor, st.Rendered, boolInt(st.Finished), updated.UnixMilli())
	return err
}

// GetSession returns a page session by id, or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (feed.SessionState, error) {
	var st feed.SessionState
	var locked, finished int
	var updated int64
	err := s.db.QueryRowContext(ctx, `SELECT id, category_slug, source_slug, label, label_locked, active_month, cursor, rendered, finished, updated_at
FROM feed_sessions WHERE id = ?`, id).
		Scan(&st.ID, &st.CategorySlug, &st.SourceSlug, &st.Label, &locked, &st.ActiveMonth, &st.Cursor, &st.Rendered, &finished, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return feed.SessionState{}, ErrNotFound
	}
	if err != nil {
		return feed.SessionState{}, err
	}
	st.LabelLocked = locked == 1
	st.Finished = finished == 1
	st.UpdatedAt = time.UnixMilli(updated)
	return st, nil
}

// DeleteSession removes a page session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM feed_sessions WHERE id = ?`, id)
	return err
}

// PurgeSessions deletes sessions not updated since before and returns how
// many were removed.
func (s *Store) PurgeSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM feed_sessions WHERE updated_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
