package scan

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func touch(t *testing.T, root string, rel ...string) string {
	t.Helper()
	p := filepath.Join(append([]string{root}, rel...)...)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	return p
}

func collect(s *Scanner) []string {
	return slices.Collect(s.Files(context.Background()))
}

func TestFiles_DepthFirstOrder(t *testing.T) {
	root := t.TempDir()
	a := touch(t, root, "a.xml")
	bInner := touch(t, root, "b", "inner.xml")
	bDeep := touch(t, root, "b", "c", "deep.xml")
	z := touch(t, root, "z.xml")

	got := collect(New(root, Options{}, testLogger()))
	assert.Equal(t, []string{a, bInner, bDeep, z}, got)
}

func TestFiles_EmptyDirectory(t *testing.T) {
	assert.Empty(t, collect(New(t.TempDir(), Options{}, testLogger())))
}

func TestFiles_MissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nope")
	assert.Empty(t, collect(New(root, Options{}, testLogger())))
}

func TestFiles_IgnorePatterns(t *testing.T) {
	root := t.TempDir()
	keep := touch(t, root, "keep.xml")
	touch(t, root, "keep.xml.crawlerlock")
	touch(t, root, "tmp", "scratch.xml")
	touch(t, root, "notes.txt")
	nested := touch(t, root, "sub", "more.xml")

	s := New(root, Options{Ignore: []string{"*.crawlerlock", "tmp/", "*.txt", "# comment", ""}}, testLogger())
	assert.Equal(t, []string{keep, nested}, collect(s))
}

func TestFiles_ExcludedDirectories(t *testing.T) {
	root := t.TempDir()
	in := touch(t, root, "in.xml")
	touch(t, root, "done", "old.xml")

	s := New(root, Options{Exclude: []string{filepath.Join(root, "done")}}, testLogger())
	assert.Equal(t, []string{in}, collect(s))
}

func TestFiles_SkipsUnreadableSubtree(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced")
	}
	root := t.TempDir()
	before := touch(t, root, "a.xml")
	touch(t, root, "locked", "hidden.xml")
	after := touch(t, root, "z.xml")

	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o750) })

	assert.Equal(t, []string{before, after}, collect(New(root, Options{}, testLogger())))
}

func TestFiles_EarlyStop(t *testing.T) {
	root := t.TempDir()
	first := touch(t, root, "a.xml")
	touch(t, root, "b.xml")
	touch(t, root, "c.xml")

	var got []string
	for p := range New(root, Options{}, testLogger()).Files(context.Background()) {
		got = append(got, p)
		break
	}
	assert.Equal(t, []string{first}, got)
}

func TestFiles_CancelledContext(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "a.xml")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Empty(t, slices.Collect(New(root, Options{}, testLogger()).Files(ctx)))
}

func TestFiles_SkipsSymlinks(t *testing.T) {
	root := t.TempDir()
	target := touch(t, root, "real.xml")
	require.NoError(t, os.Symlink(target, filepath.Join(root, "link.xml")))

	assert.Equal(t, []string{target}, collect(New(root, Options{}, testLogger())))
}
