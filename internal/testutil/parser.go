package testutil

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/roach88/filecrawler/internal/entry"
)

// ParserFunc adapts a function to the pipeline parser interface.
type ParserFunc func(ctx context.Context, path string, id int64) (*entry.Entry, error)

// Analyze calls f.
func (f ParserFunc) Analyze(ctx context.Context, path string, id int64) (*entry.Entry, error) {
	return f(ctx, path, id)
}

// RawParser returns a parser that stores the raw file bytes as content,
// stamped with date. calls, when non-nil, counts invocations.
func RawParser(date time.Time, calls *atomic.Int64) ParserFunc {
	return func(_ context.Context, path string, id int64) (*entry.Entry, error) {
		if calls != nil {
			calls.Add(1)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return &entry.Entry{ID: id, Content: string(data), CreationDate: date, Source: path}, nil
	}
}

// FailingParser returns a parser that always fails with err.
func FailingParser(err error) ParserFunc {
	return func(context.Context, string, int64) (*entry.Entry, error) {
		return nil, err
	}
}
