// Package sqlite implements the profile store, the calendar and the contact
// directory on a local SQLite database.
//
// Times are stored as integer Unix nanoseconds in UTC so range queries
// compare numerically.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/secretary"
	"github.com/oklog/ulid/v2"

	_ "github.com/mattn/go-sqlite3"
)

// Interface compliance checks.
var (
	_ secretary.ProfileStore = (*DB)(nil)
	_ secretary.Calendar     = (*DB)(nil)
	_ secretary.Contacts     = (*DB)(nil)
)

// Filename is the database file created inside a data directory.
const Filename = "secretary.db"

// DB is a SQLite-backed store.
type DB struct {
	db    *sql.DB
	path  string
	now   func() time.Time
	newID func() string
}

// Option configures a [DB].
type Option func(*DB)

// WithClock sets the time source for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(d *DB) { d.now = now }
}

// Open opens (creating if needed) the database in dataDir and applies the
// schema.
func Open(dataDir string, opts ...Option) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir: %w", err)
	}
	path := filepath.Join(dataDir, Filename)
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_timeout=5000&_fk=1")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	d := &DB{
		db:    db,
		path:  path,
		now:   time.Now,
		newID: func() string { return ulid.Make().String() },
	}
	for _, o := range opts {
		o(d)
	}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string { return d.path }

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		avatar_url TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		start_at INTEGER NOT NULL,
		end_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_at);

	CREATE TABLE IF NOT EXISTS contacts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		company TEXT NOT NULL DEFAULT ''
	);
	`
	_, err := d.db.Exec(schema)
	return err
}

func toUnix(t time.Time) int64 { return t.UTC().UnixNano() }

func fromUnix(n int64) time.Time { return time.Unix(0, n).UTC() }
