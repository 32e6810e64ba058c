package wal

import (
	"context"
	"log/slog"
)

// InTransaction brackets action with an OPEN and a CLOSE record.
//
// The result is reported present only when both records reached disk and
// the action returned no error. If either bracket could not be written the
// action's result is discarded, because its durability is unknown.
func InTransaction[T any](
	ctx context.Context,
	s *Store,
	sourcePath, command string,
	id int64,
	action func(context.Context) (T, error),
) (T, bool) {
	var zero T

	if err := s.WriteOpen(sourcePath, command, id); err != nil {
		s.logger.Error("wal open failed",
			slog.String("command", command),
			slog.String("path", sourcePath),
			slog.String("error", err.Error()),
		)
		return zero, false
	}

	result, err := action(ctx)
	if err != nil {
		s.logger.Error("wal-bracketed action failed",
			slog.String("command", command),
			slog.Int64("id", id),
			slog.String("path", sourcePath),
			slog.String("error", err.Error()),
		)
		return zero, false
	}

	if err := s.WriteClose(sourcePath, command, id); err != nil {
		s.logger.Error("wal close failed",
			slog.String("command", command),
			slog.String("path", sourcePath),
			slog.String("error", err.Error()),
		)
		return zero, false
	}

	return result, true
}
