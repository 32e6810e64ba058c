// Package fileops provides the filesystem primitives the pipeline uses:
// existence checks, a best-effort lock check and moving a file into a
// destination directory.
package fileops

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

// LockSuffix is appended to a file name during the lock check.
const LockSuffix = ".crawlerlock"

// Service implements the pipeline file service on the local filesystem.
type Service struct {
	settle time.Duration
	now    func() time.Time
	logger *slog.Logger

	// renameMu serialises lock checks so two workers never rename the same
	// file at once.
	renameMu sync.Mutex
}

// New returns a Service. Files modified less than settle ago are reported
// as locked; zero disables the check.
func New(settle time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		settle: settle,
		now:    time.Now,
		logger: logger.With(slog.String("component", "fileops")),
	}
}

// Exists reports whether path names an existing file.
func (s *Service) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsLocked reports whether another process appears to still hold path.
//
// The check renames path to path+LockSuffix and back. A rename failure, or
// an mtime inside the settle window, means locked. If the rename back
// fails the file is left under the temporary name and an error is logged.
func (s *Service) IsLocked(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return true
	}
	if s.settle > 0 && s.now().Sub(info.ModTime()) < s.settle {
		return true
	}

	s.renameMu.Lock()
	defer s.renameMu.Unlock()

	tmp := path + LockSuffix
	if err := os.Rename(path, tmp); err != nil {
		return true
	}
	if err := os.Rename(tmp, path); err != nil {
		s.logger.Error("lock check could not restore file name",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return true
	}
	return false
}

// MoveTo moves path into destDir, keeping its base name. An existing file
// of the same name in destDir is replaced. Cross-device moves fall back to
// copy then delete.
func (s *Service) MoveTo(path, destDir string) error {
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", destDir, err)
	}
	dest := filepath.Join(destDir, filepath.Base(path))

	err := os.Rename(path, dest)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("move %s: %w", path, err)
	}

	if err := copyFile(path, dest); err != nil {
		return fmt.Errorf("copy %s: %w", path, err)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s after copy: %w", path, err)
	}
	return nil
}

func copyFile(src, dest string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp := dest + ".part"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(tmp)
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	if err = out.Sync(); err != nil {
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, dest)
}
