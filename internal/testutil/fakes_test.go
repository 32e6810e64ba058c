package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filecrawler/internal/entry"
)

func TestDeterministicIDs_Monotonic(t *testing.T) {
	ids := NewDeterministicIDs(0)
	assert.Equal(t, int64(0), ids.Current())
	assert.Equal(t, int64(1), ids.Next())
	assert.Equal(t, int64(2), ids.Next())
	assert.Equal(t, int64(2), ids.Current())

	ids.Reset()
	assert.Equal(t, int64(1), ids.Next())
}

func TestDeterministicIDs_ThreadSafe(t *testing.T) {
	ids := NewDeterministicIDs(10)
	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	seen := make(chan int64, goroutines*perGoroutine)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				seen <- ids.Next()
			}
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int64]bool)
	for id := range seen {
		assert.False(t, unique[id], "duplicate id %d", id)
		unique[id] = true
	}
	assert.Equal(t, int64(10+goroutines*perGoroutine), ids.Current())
}

func TestFixedTokenGenerator(t *testing.T) {
	assert.Equal(t, "tick-1", NewFixedTokenGenerator("tick-1").Generate())
	assert.Equal(t, "test-tick-default", NewFixedTokenGenerator("").Generate())
}

func TestFakeRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewFakeRepository()

	id, err := repo.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.NoError(t, repo.Insert(ctx, &entry.Entry{ID: id, Content: "a"}))
	ok, err := repo.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, repo.Inserts())

	repo.Seed(40)
	ok, err = repo.Exists(ctx, 40)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, repo.Inserts())

	repo.ExistsErr = errors.New("down")
	_, err = repo.Exists(ctx, 40)
	assert.Error(t, err)
}

func TestFakeFiles_MoveTo(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.xml")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	files := NewFakeFiles()
	files.Lock(src)
	assert.True(t, files.IsLocked(src))
	files.Unlock(src)
	assert.False(t, files.IsLocked(src))

	dest := filepath.Join(dir, "done")
	require.NoError(t, files.MoveTo(src, dest))
	assert.False(t, files.Exists(src))
	assert.True(t, files.Exists(filepath.Join(dest, "a.xml")))
	assert.Equal(t, []Move{{Path: src, Dest: dest}}, files.Moves())
}

func TestRawParser(t *testing.T) {
	src := filepath.Join(t.TempDir(), "a.xml")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))
	date := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	e, err := RawParser(date, nil).Analyze(context.Background(), src, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), e.ID)
	assert.Equal(t, "payload", e.Content)
	assert.Equal(t, src, e.Source)

	_, err = FailingParser(errors.New("bad")).Analyze(context.Background(), src, 1)
	assert.EqualError(t, err, "bad")
}
