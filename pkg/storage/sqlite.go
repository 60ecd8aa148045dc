// Package storage persists revivable documents in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	dcerrors "github.com/odvcencio/dashcore/pkg/errors"
	"github.com/odvcencio/dashcore/pkg/revive"
	"github.com/odvcencio/dashcore/pkg/target"
	"github.com/odvcencio/dashcore/pkg/telemetry"
)

const baseSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	type       TEXT NOT NULL DEFAULT '',
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// ErrStoreClosed is returned by every operation after Close.
var ErrStoreClosed = errors.New("storage: closed")

const busyRetries = 3

// Store is a key/value store of revivable documents. It embeds a Target and
// posts change-<key> with the (old, new) values whenever a document is
// written with different content or deleted.
type Store struct {
	target.Target

	db      *sql.DB
	rev     *revive.Reviver
	metrics *telemetry.Metrics
	log     zerolog.Logger
	closed  atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithReviver sets the reviver used to encode and decode documents. The
// default is revive.Default.
func WithReviver(r *revive.Reviver) Option {
	return func(s *Store) { s.rev = r }
}

// WithMetrics counts store operations on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open opens or creates the database at dbPath, which may be a file path,
// a file: URI or ":memory:".
func Open(dbPath string, opts ...Option) (*Store, error) {
	filePath, onDisk := sqliteFilePathFromDSN(dbPath)
	if onDisk {
		if dir := filepath.Dir(filePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o700); err != nil {
				return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageOpen, "create database directory").
					WithContext("path", dir)
			}
		}
		if err := ensurePrivateSQLiteFile(filePath); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageOpen, "open database").WithContext("path", dbPath)
	}
	if onDisk {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
	} else {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageOpen, "configure database").WithContext("pragma", pragma)
		}
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, dcerrors.Wrap(err, dcerrors.ErrCodeStorageOpen, "migrate database")
	}

	s := &Store{db: db, rev: revive.Default, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func sqliteFilePathFromDSN(dsn string) (string, bool) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" || dsn == ":memory:" {
		return "", false
	}
	if strings.HasPrefix(dsn, "file:") {
		u, err := url.Parse(dsn)
		if err != nil || !strings.EqualFold(strings.TrimSpace(u.Scheme), "file") {
			return "", false
		}
		path := strings.TrimSpace(u.Path)
		if path == "" {
			path = strings.TrimSpace(u.Opaque)
		}
		if path == "" || path == ":memory:" || u.Query().Get("mode") == "memory" {
			return "", false
		}
		return path, true
	}
	if strings.Contains(dsn, "://") {
		return "", false
	}
	return dsn, true
}

func ensurePrivateSQLiteFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return dcerrors.Wrap(err, dcerrors.ErrCodeStorageOpen, "stat database").WithContext("path", path)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return dcerrors.Wrap(err, dcerrors.ErrCodeStorageOpen, "create database").WithContext("path", path)
	}
	return f.Close()
}

// Close closes the database. Further calls return ErrStoreClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return ErrStoreClosed
	}
	return s.db.Close()
}

// Migration is a versioned schema change.
type Migration struct {
	Version int
	Name    string
	Apply   func(db *sql.DB) error
}

var migrations = []Migration{
	{1, "documents", func(*sql.DB) error { return nil }},
	{2, "documents_type_index", func(db *sql.DB) error {
		_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(type)`)
		return err
	}},
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(baseSchema); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}
	current, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}
	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if err := m.Apply(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := db.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
	}
	return nil
}

func getSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// SchemaVersion returns the latest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}
	return getSchemaVersion(s.db)
}

// withTx runs fn in a transaction, retrying when SQLite reports the
// database busy.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	var err error
	for attempt := 0; attempt < busyRetries; attempt++ {
		if attempt > 0 {
			s.log.Debug().Int("attempt", attempt).Err(err).Msg("database busy, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt*50) * time.Millisecond):
			}
		}
		err = s.tryTx(ctx, fn)
		if !isBusyError(err) {
			return err
		}
	}
	return err
}

func (s *Store) tryTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		code := sqliteErr.Code()
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}
