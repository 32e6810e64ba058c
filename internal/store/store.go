package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/filecrawler/internal/entry"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on entries.source
const currentSchemaVersion = 1

// DefaultCacheSize is how many known ids the Exists cache remembers.
const DefaultCacheSize = 4096

// ErrNotFound is returned by Get when no entry carries the id.
var ErrNotFound = errors.New("entry not found")

// SQLite stores entries in a local SQLite database.
type SQLite struct {
	db    *sql.DB
	seq   *Sequence
	known *knownIDs
}

// OpenSQLite creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically.
//
// This function is idempotent - safe to call multiple times.
func OpenSQLite(path string) (*SQLite, error) {
	// Open database (creates file if doesn't exist)
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so every worker shares
	// one connection and gets per-call isolation from database/sql.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &SQLite{
		db:    db,
		known: newKnownIDs(DefaultCacheSize),
	}
	s.seq = NewSequence(s.maxID)
	return s, nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Insert writes e, replacing any row that already carries its id.
func (s *SQLite) Insert(ctx context.Context, e *entry.Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (id, content, creation_date, source, ingested_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			creation_date = excluded.creation_date,
			source = excluded.source,
			ingested_at = excluded.ingested_at
	`,
		e.ID,
		e.Content,
		e.CreationDate.UTC().Format(time.RFC3339),
		e.Source,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert entry %d: %w", e.ID, err)
	}

	s.known.add(e.ID)
	return nil
}

// Exists reports whether an entry with id has been committed.
func (s *SQLite) Exists(ctx context.Context, id int64) (bool, error) {
	if s.known.contains(id) {
		return true, nil
	}

	var found int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entries WHERE id = ?`, id).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("exists entry %d: %w", id, err)
	}
	if found > 0 {
		s.known.add(id)
	}
	return found > 0, nil
}

// NextID returns the next id from the sequence.
func (s *SQLite) NextID(ctx context.Context) (int64, error) {
	return s.seq.Next(ctx)
}

// Get loads a single entry. Returns ErrNotFound when no row matches.
func (s *SQLite) Get(ctx context.Context, id int64) (*entry.Entry, error) {
	var (
		e       entry.Entry
		created string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, content, creation_date, source FROM entries WHERE id = ?
	`, id).Scan(&e.ID, &e.Content, &created, &e.Source)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}

	e.CreationDate, err = time.Parse(time.RFC3339, created)
	if err != nil {
		return nil, fmt.Errorf("get entry %d: creation_date: %w", id, err)
	}
	return &e, nil
}

// Count returns the number of stored entries.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// List returns every stored entry in id order.
func (s *SQLite) List(ctx context.Context) ([]entry.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, creation_date, source FROM entries ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []entry.Entry
	for rows.Next() {
		var (
			e       entry.Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Content, &created, &e.Source); err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		if e.CreationDate, err = time.Parse(time.RFC3339, created); err != nil {
			return nil, fmt.Errorf("list entries: entry %d creation_date: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return entries, nil
}

func (s *SQLite) maxID(ctx context.Context) (int64, error) {
	var highest sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM entries`).Scan(&highest); err != nil {
		return 0, fmt.Errorf("max entry id: %w", err)
	}
	return highest.Int64, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds an index on entries.source for operator lookups.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_entries_source ON entries(source)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *SQLite) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
