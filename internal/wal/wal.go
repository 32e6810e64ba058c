package wal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Store owns the WAL directory. Access is partitioned by file name, so
// concurrent writers for different source files never share a log.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New opens the WAL directory, creating it when missing, and checks that it
// is writable.
func New(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create wal dir %s: %w", dir, err)
	}

	check := filepath.Join(dir, ".write_check")
	if err := os.WriteFile(check, []byte("ok"), 0o640); err != nil {
		return nil, fmt.Errorf("wal dir %s is not writable: %w", dir, err)
	}
	_ = os.Remove(check)

	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		dir:    dir,
		logger: logger.With(slog.String("component", "wal")),
	}, nil
}

// Dir returns the WAL directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the log file used for sourcePath.
func (s *Store) Path(sourcePath string) string {
	return filepath.Join(s.dir, FileName(sourcePath))
}

// WriteOpen appends an OPEN record for command on sourcePath.
func (s *Store) WriteOpen(sourcePath, command string, id int64) error {
	return s.append(Record{Phase: PhaseOpen, Command: command, ID: id, Path: sourcePath})
}

// WriteClose appends a CLOSE record for command on sourcePath.
func (s *Store) WriteClose(sourcePath, command string, id int64) error {
	return s.append(Record{Phase: PhaseClose, Command: command, ID: id, Path: sourcePath})
}

func (s *Store) append(rec Record) error {
	path := s.Path(rec.Path)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("open wal %s: %w", path, err)
	}

	if _, err := f.WriteString(rec.String() + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("append wal %s: %w", path, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("fsync wal %s: %w", path, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close wal %s: %w", path, err)
	}

	s.logger.Debug("wal record written",
		slog.String("phase", string(rec.Phase)),
		slog.String("command", rec.Command),
		slog.Int64("id", rec.ID),
		slog.String("path", rec.Path),
	)
	return nil
}

// DeleteLog removes the log of sourcePath. It reports whether the log is
// absent afterwards; a log that never existed counts as deleted.
func (s *Store) DeleteLog(sourcePath string) bool {
	return s.Remove(s.Path(sourcePath))
}

// HasLog reports whether sourcePath has a pending log.
func (s *Store) HasLog(sourcePath string) bool {
	_, err := os.Stat(s.Path(sourcePath))
	return err == nil
}

// Remove deletes a log file by its own path, as returned by ListPending.
func (s *Store) Remove(walFile string) bool {
	err := os.Remove(walFile)
	if err == nil || os.IsNotExist(err) {
		return true
	}
	s.logger.Error("failed to remove wal",
		slog.String("wal", walFile),
		slog.String("error", err.Error()),
	)
	return false
}

// ListPending returns every log currently in the WAL directory, in name
// order. Each one belongs to a run that never reached a terminal outcome.
func (s *Store) ListPending() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list wal dir %s: %w", s.dir, err)
	}

	var pending []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		pending = append(pending, filepath.Join(s.dir, e.Name()))
	}
	return pending, nil
}
