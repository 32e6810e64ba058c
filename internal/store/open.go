package store

import (
	"context"
	"fmt"

	"github.com/roach88/filecrawler/internal/entry"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Repository is the persistence contract shared by SQLite and Postgres.
type Repository interface {
	Insert(ctx context.Context, e *entry.Entry) error
	Exists(ctx context.Context, id int64) (bool, error)
	NextID(ctx context.Context) (int64, error)
	Get(ctx context.Context, id int64) (*entry.Entry, error)
	Close() error
}

// Open opens the repository selected by driver. For sqlite, dsn is a file
// path; for postgres it is a connection string.
func Open(ctx context.Context, driver, dsn string) (Repository, error) {
	switch driver {
	case DriverSQLite, "":
		return OpenSQLite(dsn)
	case DriverPostgres:
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
}
