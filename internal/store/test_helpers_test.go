package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/filecrawler/internal/entry"
)

// createTestStore creates a new SQLite store on a temp path.
func createTestStore(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEntry creates an entry with minimal required fields.
func createTestEntry(id int64, content string) *entry.Entry {
	return &entry.Entry{
		ID:           id,
		Content:      content,
		CreationDate: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Source:       "/in/doc.xml",
	}
}
