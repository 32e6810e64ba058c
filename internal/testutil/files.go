package testutil

import (
	"os"
	"path/filepath"
	"sync"
)

// FakeFiles is a file service backed by the real filesystem, with lock
// state and move failures controlled by the test.
type FakeFiles struct {
	mu      sync.Mutex
	locked  map[string]bool
	moves   []Move
	MoveErr error
}

// Move records one MoveTo call.
type Move struct {
	Path string
	Dest string
}

// NewFakeFiles returns a service with no locked paths.
func NewFakeFiles() *FakeFiles {
	return &FakeFiles{locked: make(map[string]bool)}
}

// Lock marks path as held by a writer.
func (f *FakeFiles) Lock(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked[path] = true
}

// Unlock clears the lock on path.
func (f *FakeFiles) Unlock(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.locked, path)
}

// Exists reports whether path is present on disk.
func (f *FakeFiles) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// IsLocked reports whether Lock was called for path.
func (f *FakeFiles) IsLocked(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked[path]
}

// MoveTo renames path into destDir and records the call.
func (f *FakeFiles) MoveTo(path, destDir string) error {
	f.mu.Lock()
	f.moves = append(f.moves, Move{Path: path, Dest: destDir})
	err := f.MoveErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return err
	}
	return os.Rename(path, filepath.Join(destDir, filepath.Base(path)))
}

// Moves returns the recorded MoveTo calls in order.
func (f *FakeFiles) Moves() []Move {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Move(nil), f.moves...)
}
