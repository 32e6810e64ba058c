package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/filecrawler/internal/entry"
)

//go:embed schema_postgres.sql
var postgresSchema string

// Postgres stores entries in PostgreSQL through a pgx pool. Each call
// borrows its own pooled connection, which gives workers per-call isolation.
type Postgres struct {
	pool  *pgxpool.Pool
	seq   *Sequence
	known *knownIDs
}

// OpenPostgres connects to dsn, verifies the connection and creates the
// schema when missing.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	p := &Postgres{
		pool:  pool,
		known: newKnownIDs(DefaultCacheSize),
	}
	p.seq = NewSequence(p.maxID)
	return p, nil
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// Insert writes e, replacing any row that already carries its id.
func (p *Postgres) Insert(ctx context.Context, e *entry.Entry) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO entries (id, content, creation_date, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			creation_date = EXCLUDED.creation_date,
			source = EXCLUDED.source,
			ingested_at = now()
	`, e.ID, e.Content, e.CreationDate.UTC(), e.Source)
	if err != nil {
		return fmt.Errorf("insert entry %d: %w", e.ID, err)
	}

	p.known.add(e.ID)
	return nil
}

// Exists reports whether an entry with id has been committed.
func (p *Postgres) Exists(ctx context.Context, id int64) (bool, error) {
	if p.known.contains(id) {
		return true, nil
	}

	var found bool
	err := p.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM entries WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return false, fmt.Errorf("exists entry %d: %w", id, err)
	}
	if found {
		p.known.add(id)
	}
	return found, nil
}

// NextID returns the next id from the sequence.
func (p *Postgres) NextID(ctx context.Context) (int64, error) {
	return p.seq.Next(ctx)
}

// Get loads a single entry. Returns ErrNotFound when no row matches.
func (p *Postgres) Get(ctx context.Context, id int64) (*entry.Entry, error) {
	var e entry.Entry
	err := p.pool.QueryRow(ctx, `
		SELECT id, content, creation_date, source FROM entries WHERE id = $1
	`, id).Scan(&e.ID, &e.Content, &e.CreationDate, &e.Source)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %d: %w", id, err)
	}
	return &e, nil
}

func (p *Postgres) maxID(ctx context.Context) (int64, error) {
	var highest int64
	if err := p.pool.QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM entries`).Scan(&highest); err != nil {
		return 0, fmt.Errorf("max entry id: %w", err)
	}
	return highest, nil
}
