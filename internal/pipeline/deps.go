package pipeline

import (
	"context"
	"log/slog"

	"github.com/roach88/filecrawler/internal/entry"
	"github.com/roach88/filecrawler/internal/metrics"
	"github.com/roach88/filecrawler/internal/wal"
)

// Parser turns a source file into an entry carrying id. It must not touch
// the filesystem beyond reading path and must be safe for concurrent use.
type Parser interface {
	Analyze(ctx context.Context, path string, id int64) (*entry.Entry, error)
}

// Repository persists entries. Exists must only see committed rows and
// NextID must be monotonic under concurrent callers.
type Repository interface {
	Insert(ctx context.Context, e *entry.Entry) error
	Exists(ctx context.Context, id int64) (bool, error)
	NextID(ctx context.Context) (int64, error)
}

// FileService wraps the filesystem primitives the pipeline needs.
// IsLocked is a best-effort, non-blocking check.
type FileService interface {
	Exists(path string) bool
	IsLocked(path string) bool
	MoveTo(path, destDir string) error
}

// Deps are the collaborators shared by every Machine.
type Deps struct {
	WAL        *wal.Store
	Parser     Parser
	Repo       Repository
	Files      FileService
	SuccessDir string
	FailDir    string
	Logger     *slog.Logger
	Metrics    *metrics.Collectors
}
