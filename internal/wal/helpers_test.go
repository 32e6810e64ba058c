package wal

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// testLogger discards output so test runs stay quiet.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createTestStore opens a Store on a fresh temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), testLogger())
	require.NoError(t, err)
	return s
}

// writeRaw writes a log file with exact bytes, bypassing the Store.
func writeRaw(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o640))
}
