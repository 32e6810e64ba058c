// Package scan walks the watch directory and yields candidate files.
//
// Traversal is lazy and depth-first: a directory's entries are visited in
// name order and each subdirectory is fully walked before its next
// sibling. Unreadable directories are logged and skipped; the walk never
// aborts on a single bad entry.
package scan

import (
	"context"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Options tune a Scanner.
type Options struct {
	// Ignore holds gitignore-style patterns relative to the root.
	Ignore []string
	// Exclude lists directories never descended into, typically the
	// success, fail and WAL directories when they live under the root.
	Exclude []string
}

// Scanner enumerates regular files under a root directory.
type Scanner struct {
	root    string
	matcher gitignore.Matcher
	exclude map[string]struct{}
	logger  *slog.Logger
}

// New returns a Scanner rooted at root.
func New(root string, opts Options, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}

	var patterns []gitignore.Pattern
	for _, line := range opts.Ignore {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	exclude := make(map[string]struct{}, len(opts.Exclude))
	for _, d := range opts.Exclude {
		if abs, err := filepath.Abs(d); err == nil {
			exclude[filepath.Clean(abs)] = struct{}{}
		}
	}

	return &Scanner{
		root:    root,
		matcher: gitignore.NewMatcher(patterns),
		exclude: exclude,
		logger:  logger.With(slog.String("component", "scan")),
	}
}

// Root returns the directory being scanned.
func (s *Scanner) Root() string {
	return s.root
}

// Files yields the absolute path of every regular file under the root.
// Stopping the range loop or cancelling ctx ends the walk early.
func (s *Scanner) Files(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		root, err := filepath.Abs(s.root)
		if err != nil {
			s.logger.Error("cannot resolve watch directory", slog.String("root", s.root), slog.String("error", err.Error()))
			return
		}
		s.walk(ctx, root, nil, yield)
	}
}

// walk returns false once the consumer stops or ctx is done.
func (s *Scanner) walk(ctx context.Context, dir string, rel []string, yield func(string) bool) bool {
	if ctx.Err() != nil {
		return false
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("skipping unreadable directory", slog.String("dir", dir), slog.String("error", err.Error()))
		return true
	}

	for _, ent := range entries {
		path := filepath.Join(dir, ent.Name())
		parts := append(rel[:len(rel):len(rel)], ent.Name())

		switch {
		case ent.IsDir():
			if _, skip := s.exclude[path]; skip {
				continue
			}
			if s.matcher.Match(parts, true) {
				continue
			}
			if !s.walk(ctx, path, parts, yield) {
				return false
			}
		case ent.Type().IsRegular():
			if s.matcher.Match(parts, false) {
				continue
			}
			if !yield(path) {
				return false
			}
		default:
			s.logger.Debug("skipping non-regular entry", slog.String("path", path))
		}
	}
	return true
}
