package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// executeRoot runs the root command with args and returns stdout and
// stderr separately.
func executeRoot(t *testing.T, ctx context.Context, args ...string) (string, string, error) {
	t.Helper()
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

type crawlerDirs struct {
	Watch, OK, Fail, WAL, DB string
}

// writeTestConfig creates the directories and a config file using them.
func writeTestConfig(t *testing.T) (string, crawlerDirs) {
	t.Helper()
	root := t.TempDir()
	d := crawlerDirs{
		Watch: filepath.Join(root, "in"),
		OK:    filepath.Join(root, "ok"),
		Fail:  filepath.Join(root, "fail"),
		WAL:   filepath.Join(root, "wal"),
		DB:    filepath.Join(root, "entries.db"),
	}
	for _, dir := range []string{d.Watch, d.OK, d.Fail} {
		require.NoError(t, os.MkdirAll(dir, 0o750))
	}

	cfg := fmt.Sprintf(`watch_dir: %q
success_dir: %q
fail_dir: %q
wal_dir: %q
workers: 2
period: 1s
database:
  driver: sqlite
  dsn: %q
`, d.Watch, d.OK, d.Fail, d.WAL, d.DB)
	path := filepath.Join(root, "filecrawler.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, d
}

func writeEntry(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	doc := fmt.Sprintf("<Entry><content>%s</content><creationDate>2024-03-01 12:30:00</creationDate></Entry>", content)
	require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))
	return p
}
