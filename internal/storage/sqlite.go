package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/nikbrunner/minimark/internal/model"
)

// migrations are applied in order; migrations[i] moves the schema to
// version i+1. Columns added after v1 are nullable so rows written by older
// versions load with their defaults.
var migrations = []string{
	// v1: records keyed by id with the url lookup index.
	`
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS bookmarks (
		id TEXT PRIMARY KEY NOT NULL,
		type TEXT,
		title TEXT,
		url TEXT NOT NULL DEFAULT '',
		parent_id TEXT,
		clicks INTEGER,
		add_date INTEGER,
		last_click_date INTEGER,
		dynamic_param_keys TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url);

	INSERT OR REPLACE INTO schema_version (version) VALUES (1);
	`,
	// v2: parent lookups.
	`
	CREATE INDEX IF NOT EXISTS idx_bookmarks_parent_id ON bookmarks(parent_id);
	UPDATE schema_version SET version = 2;
	`,
	// v3: archive flag.
	`
	ALTER TABLE bookmarks ADD COLUMN is_archived INTEGER;
	CREATE INDEX IF NOT EXISTS idx_bookmarks_is_archived ON bookmarks(is_archived);
	UPDATE schema_version SET version = 3;
	`,
	// v4: liveness tracking.
	`
	ALTER TABLE bookmarks ADD COLUMN status TEXT;
	ALTER TABLE bookmarks ADD COLUMN last_check_date INTEGER;
	ALTER TABLE bookmarks ADD COLUMN offline_since INTEGER;
	CREATE INDEX IF NOT EXISTS idx_bookmarks_status ON bookmarks(status);
	CREATE INDEX IF NOT EXISTS idx_bookmarks_last_check_date ON bookmarks(last_check_date);
	UPDATE schema_version SET version = 4;
	`,
	// v5: pinning.
	`
	ALTER TABLE bookmarks ADD COLUMN is_pinned INTEGER;
	CREATE INDEX IF NOT EXISTS idx_bookmarks_is_pinned ON bookmarks(is_pinned) WHERE is_pinned = 1;
	UPDATE schema_version SET version = 5;
	`,
}

// SchemaVersion is the schema version a fresh database ends up at.
var SchemaVersion = len(migrations)

const selectColumns = `
	SELECT id, type, title, url, parent_id, clicks, add_date, last_click_date,
		dynamic_param_keys, is_archived, status, last_check_date, offline_since, is_pinned
	FROM bookmarks`

// SQLiteStorage implements Storage using a SQLite database.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens (and migrates) the database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &SQLiteStorage{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Version returns the schema version recorded in the database.
func (s *SQLiteStorage) Version() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	return version, err
}

// migrate brings the schema up to SchemaVersion.
func (s *SQLiteStorage) migrate() error {
	version, err := s.Version()
	if err != nil {
		// Table doesn't exist or is empty, start fresh
		version = 0
	}

	for v := version; v < len(migrations); v++ {
		if err := s.apply(migrations[v]); err != nil {
			return fmt.Errorf("schema v%d: %w", v+1, err)
		}
	}
	return nil
}

// apply runs one migration in a transaction so a failed step leaves the
// schema at the previous version.
func (s *SQLiteStorage) apply(migration string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(migration); err != nil {
		return err
	}
	return tx.Commit()
}

// GetAll returns every record in insertion order.
func (s *SQLiteStorage) GetAll(ctx context.Context) ([]model.Record, error) {
	return s.query(ctx, selectColumns+" ORDER BY rowid")
}

// Get returns the record with the given id.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (model.Record, error) {
	records, err := s.query(ctx, selectColumns+" WHERE id = ?", id)
	if err != nil {
		return model.Record{}, err
	}
	if len(records) == 0 {
		return model.Record{}, ErrNotFound
	}
	return records[0], nil
}

// GetByURL returns every record with the given url.
func (s *SQLiteStorage) GetByURL(ctx context.Context, url string) ([]model.Record, error) {
	return s.query(ctx, selectColumns+" WHERE url = ? ORDER BY rowid", url)
}

// Put inserts or replaces a record. Replacing keeps the row, and with it
// the insertion order.
func (s *SQLiteStorage) Put(ctx context.Context, r model.Record) error {
	keys, err := json.Marshal(r.DynamicParamKeys)
	if err != nil {
		return err
	}
	if r.DynamicParamKeys == nil {
		keys = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bookmarks (
			id, type, title, url, parent_id, clicks, add_date, last_click_date,
			dynamic_param_keys, is_archived, status, last_check_date, offline_since, is_pinned
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			title = excluded.title,
			url = excluded.url,
			parent_id = excluded.parent_id,
			clicks = excluded.clicks,
			add_date = excluded.add_date,
			last_click_date = excluded.last_click_date,
			dynamic_param_keys = excluded.dynamic_param_keys,
			is_archived = excluded.is_archived,
			status = excluded.status,
			last_check_date = excluded.last_check_date,
			offline_since = excluded.offline_since,
			is_pinned = excluded.is_pinned
	`,
		r.ID, r.Type, r.Title, r.URL, r.ParentID, r.Clicks, r.AddDate, r.LastClickDate,
		string(keys), boolInt(r.IsArchived), r.Status, r.LastCheckDate, r.OfflineSince, boolInt(r.IsPinned),
	)
	return err
}

// Delete removes a record. Deleting a missing id is not an error.
func (s *SQLiteStorage) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM bookmarks WHERE id = ?", id)
	return err
}

// Clear removes every record.
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM bookmarks")
	return err
}

func (s *SQLiteStorage) query(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []model.Record{}
	for rows.Next() {
		var (
			r                                  model.Record
			typ, title, parentID, keys, status sql.NullString
			clicks, addDate, archived, pinned  sql.NullInt64
			lastClick, lastCheck, offlineSince sql.NullInt64
		)
		if err := rows.Scan(
			&r.ID, &typ, &title, &r.URL, &parentID, &clicks, &addDate, &lastClick,
			&keys, &archived, &status, &lastCheck, &offlineSince, &pinned,
		); err != nil {
			return nil, err
		}

		r.Type = typ.String
		r.Title = title.String
		if parentID.Valid && parentID.String != "" {
			r.ParentID = &parentID.String
		}
		r.Clicks = int(clicks.Int64)
		r.AddDate = addDate.Int64
		r.LastClickDate = nullInt(lastClick)
		r.IsArchived = archived.Int64 == 1
		r.IsPinned = pinned.Int64 == 1
		r.Status = status.String
		r.LastCheckDate = nullInt(lastCheck)
		r.OfflineSince = nullInt(offlineSince)

		if keys.Valid && keys.String != "" {
			if err := json.Unmarshal([]byte(keys.String), &r.DynamicParamKeys); err != nil {
				r.DynamicParamKeys = nil
			}
		}

		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// IsNotFound reports whether err means a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// DefaultSQLitePath returns the default SQLite database path: ~/.config/minimark/bookmarks.db
func DefaultSQLitePath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "bookmarks.db"), nil
}
