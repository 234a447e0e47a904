package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/nikbrunner/bmlens/internal/model"
)

const currentSchemaVersion = 2

// SQLiteStorage implements Backend using a SQLite database.
type SQLiteStorage struct {
	db   *sqlx.DB
	path string
}

type folderRow struct {
	ID       string         `db:"id"`
	Title    string         `db:"title"`
	ParentID sql.NullString `db:"parent_id"`
	Position int            `db:"position"`
}

type bookmarkRow struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	URL       string         `db:"url"`
	ParentID  sql.NullString `db:"parent_id"`
	Tags      string         `db:"tags"`
	DateAdded sql.NullString `db:"date_added"`
	Position  int            `db:"position"`
}

// NewSQLiteStorage creates a new SQLiteStorage with the given database path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single connection keeps pragmas and :memory: databases consistent
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	s := &SQLiteStorage{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
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

// SchemaVersion returns the applied schema version.
func (s *SQLiteStorage) SchemaVersion() (int, error) {
	var version int
	if err := s.db.Get(&version, "SELECT version FROM schema_version LIMIT 1"); err != nil {
		return 0, err
	}
	return version, nil
}

// migrate runs database migrations.
func (s *SQLiteStorage) migrate() error {
	version, err := s.SchemaVersion()
	if err != nil {
		// table doesn't exist or is empty, start fresh
		version = 0
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return fmt.Errorf("v1: %w", err)
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return fmt.Errorf("v2: %w", err)
		}
	}
	return nil
}

// migrateV1 creates the library schema.
func (s *SQLiteStorage) migrateV1() error {
	schema := `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS folders (
			id TEXT PRIMARY KEY NOT NULL,
			title TEXT NOT NULL,
			parent_id TEXT,
			position INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_folders_parent_id ON folders(parent_id);

		CREATE TABLE IF NOT EXISTS bookmarks (
			id TEXT PRIMARY KEY NOT NULL,
			title TEXT NOT NULL,
			url TEXT NOT NULL,
			parent_id TEXT,
			tags TEXT NOT NULL DEFAULT '[]',
			date_added TEXT,
			position INTEGER NOT NULL DEFAULT 0
		);

		CREATE INDEX IF NOT EXISTS idx_bookmarks_parent_id ON bookmarks(parent_id);
		CREATE INDEX IF NOT EXISTS idx_bookmarks_url ON bookmarks(url);

		DELETE FROM schema_version;
		INSERT INTO schema_version (version) VALUES (1);
	`
	_, err := s.db.Exec(schema)
	return err
}

// migrateV2 adds the key-value table for notes, settings and view state.
func (s *SQLiteStorage) migrateV2() error {
	migration := `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY NOT NULL,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		UPDATE schema_version SET version = 2;
	`
	_, err := s.db.Exec(migration)
	return err
}

// Load reads the store from the SQLite database, in saved order.
func (s *SQLiteStorage) Load() (*model.Store, error) {
	store := model.NewStore()

	var folders []folderRow
	if err := s.db.Select(&folders, `SELECT id, title, parent_id, position FROM folders ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load folders: %w", err)
	}
	for _, r := range folders {
		f := model.Folder{ID: r.ID, Title: r.Title}
		if r.ParentID.Valid {
			f.ParentID = &r.ParentID.String
		}
		store.Folders = append(store.Folders, f)
	}

	var bookmarks []bookmarkRow
	if err := s.db.Select(&bookmarks,
		`SELECT id, title, url, parent_id, tags, date_added, position FROM bookmarks ORDER BY position`); err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}
	for _, r := range bookmarks {
		b := model.Bookmark{ID: r.ID, Title: r.Title, URL: r.URL}
		if r.ParentID.Valid {
			b.ParentID = &r.ParentID.String
		}
		if err := json.Unmarshal([]byte(r.Tags), &b.Tags); err != nil || b.Tags == nil {
			b.Tags = []string{}
		}
		if r.DateAdded.Valid {
			if t, err := time.Parse(time.RFC3339Nano, r.DateAdded.String); err == nil {
				b.DateAdded = t
			}
		}
		store.Bookmarks = append(store.Bookmarks, b)
	}
	return store, nil
}

// Save writes the store to the SQLite database.
// Uses a transaction for atomicity, retried while the database is locked.
func (s *SQLiteStorage) Save(store *model.Store) error {
	return withRetry(context.Background(), func() error { return s.save(store) })
}

func (s *SQLiteStorage) save(store *model.Store) error {
	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM bookmarks"); err != nil {
		return fmt.Errorf("clear bookmarks: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM folders"); err != nil {
		return fmt.Errorf("clear folders: %w", err)
	}

	folderStmt, err := tx.PrepareNamed(`
		INSERT INTO folders (id, title, parent_id, position)
		VALUES (:id, :title, :parent_id, :position)
	`)
	if err != nil {
		return fmt.Errorf("prepare folder insert: %w", err)
	}
	defer folderStmt.Close()

	for i, f := range store.Folders {
		row := folderRow{ID: f.ID, Title: f.Title, ParentID: nullString(f.ParentID), Position: i}
		if _, err := folderStmt.Exec(row); err != nil {
			return fmt.Errorf("insert folder %s: %w", f.ID, err)
		}
	}

	bookmarkStmt, err := tx.PrepareNamed(`
		INSERT INTO bookmarks (id, title, url, parent_id, tags, date_added, position)
		VALUES (:id, :title, :url, :parent_id, :tags, :date_added, :position)
	`)
	if err != nil {
		return fmt.Errorf("prepare bookmark insert: %w", err)
	}
	defer bookmarkStmt.Close()

	for i, b := range store.Bookmarks {
		tags := b.Tags
		if tags == nil {
			tags = []string{}
		}
		tagsJSON, err := json.Marshal(tags)
		if err != nil {
			return fmt.Errorf("encode tags of %s: %w", b.ID, err)
		}
		row := bookmarkRow{
			ID: b.ID, Title: b.Title, URL: b.URL,
			ParentID: nullString(b.ParentID),
			Tags:     string(tagsJSON),
			Position: i,
		}
		if !b.DateAdded.IsZero() {
			row.DateAdded = sql.NullString{String: b.DateAdded.UTC().Format(time.RFC3339Nano), Valid: true}
		}
		if _, err := bookmarkStmt.Exec(row); err != nil {
			return fmt.Errorf("insert bookmark %s: %w", b.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Get returns the value under key or ErrNotFound.
func (s *SQLiteStorage) Get(key string) (json.RawMessage, error) {
	var value string
	err := s.db.Get(&value, "SELECT value FROM kv WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return json.RawMessage(value), nil
}

// Put stores value under key. The value must be valid JSON.
func (s *SQLiteStorage) Put(key string, value json.RawMessage) error {
	if !json.Valid(value) {
		return fmt.Errorf("put %s: invalid json value", key)
	}
	return withRetry(context.Background(), func() error {
		_, err := s.db.Exec(`
			INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, string(value), time.Now().UTC().Format(time.RFC3339))
		if err != nil {
			return fmt.Errorf("put %s: %w", key, err)
		}
		return nil
	})
}

// Delete removes key. Missing keys are not an error.
func (s *SQLiteStorage) Delete(key string) error {
	return withRetry(context.Background(), func() error {
		if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
		return nil
	})
}

// Keys returns the sorted keys starting with prefix.
func (s *SQLiteStorage) Keys(prefix string) ([]string, error) {
	keys := []string{}
	escaped := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(prefix)
	if err := s.db.Select(&keys, `SELECT key FROM kv WHERE key LIKE ? ESCAPE '\' ORDER BY key`, escaped+"%"); err != nil {
		return nil, fmt.Errorf("list keys %s: %w", prefix, err)
	}
	return keys, nil
}

// DefaultSQLitePath returns the default SQLite database path: ~/.config/bmlens/bookmarks.db
func DefaultSQLitePath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, sqliteFileName), nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// errStop tells the repeater a failure is not worth retrying.
var errStop = errors.New("stop retrying")

// withRetry runs fn, retrying while SQLite reports a lock.
func withRetry(ctx context.Context, fn func() error) error {
	var critical error
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	err := retrier.Do(ctx, func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isLockError(err) {
			log.Printf("[DEBUG] database locked, retrying: %v", err)
			return err
		}
		critical = err
		return errStop
	}, errStop)
	if critical != nil {
		return critical
	}
	return err
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
