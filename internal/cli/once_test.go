package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/filecrawler/internal/store"
)

func TestOnceIngestsFiles(t *testing.T) {
	cfgPath, d := writeTestConfig(t)
	writeEntry(t, d.Watch, "doc1.xml", "first")
	writeEntry(t, d.Watch, "doc2.xml", "second")
	require.NoError(t, os.WriteFile(filepath.Join(d.Watch, "bad.xml"), []byte("<Entry>"), 0o644))

	stdout, _, err := executeRoot(t, context.Background(), "once", "--config", cfgPath, "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   TickSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Dispatched)
	assert.NotEmpty(t, resp.Data.Tick)

	assert.FileExists(t, filepath.Join(d.OK, "doc1.xml"))
	assert.FileExists(t, filepath.Join(d.OK, "doc2.xml"))
	assert.FileExists(t, filepath.Join(d.Fail, "bad.xml"))

	db, err := store.OpenSQLite(d.DB)
	require.NoError(t, err)
	defer db.Close()
	n, err := db.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestOnceFlagsOverrideConfig(t *testing.T) {
	cfgPath, d := writeTestConfig(t)
	other := filepath.Join(t.TempDir(), "other")
	require.NoError(t, os.MkdirAll(other, 0o750))
	writeEntry(t, other, "doc.xml", "elsewhere")

	_, _, err := executeRoot(t, context.Background(), "once", "--config", cfgPath, "--watch", other)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(d.OK, "doc.xml"))
}

func TestOnceInvalidConfig(t *testing.T) {
	cfgPath, _ := writeTestConfig(t)

	_, _, err := executeRoot(t, context.Background(), "once", "--config", cfgPath, "--workers", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "workers")
}

func TestOnceMissingConfigFile(t *testing.T) {
	_, _, err := executeRoot(t, context.Background(), "once", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
