package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: single_file
description: "One valid file is stored and moved"
files:
  - name: a.xml
    body: "<Entry><content>a</content><creationDate>2024-03-01 12:30:00</creationDate></Entry>"
assertions:
  - type: file_in
    file: a.xml
    dir: success
  - type: entry
    id: 1
    content: a
`

const failingScenario = `name: wrong_dir
description: "Asserts a valid file failed"
files:
  - name: a.xml
    body: "<Entry><content>a</content><creationDate>2024-03-01 12:30:00</creationDate></Entry>"
assertions:
  - type: file_in
    file: a.xml
    dir: fail
`

func writeScenario(t *testing.T, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, _, err := executeRoot(t, context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, _, err := executeRoot(t, context.Background(), "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenarios directory not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDir(t *testing.T) {
	out, _, err := executeRoot(t, context.Background(), "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTestCommandPassingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "single_file.yaml", passingScenario)

	out, _, err := executeRoot(t, context.Background(), "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ single_file")
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommandFailingScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "single_file.yaml", passingScenario)
	writeScenario(t, dir, "wrong_dir.yaml", failingScenario)

	out, _, err := executeRoot(t, context.Background(), "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong_dir")
	assert.Contains(t, out, "a.xml in fail")
	assert.Contains(t, out, "1 passed, 1 failed, 2 total")
}

func TestTestCommandFilter(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "single_file.yaml", passingScenario)
	writeScenario(t, dir, "wrong_dir.yaml", failingScenario)

	out, _, err := executeRoot(t, context.Background(), "test", dir, "--filter", "single_*")
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed, 1 total")
}

func TestTestCommandLoadError(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\n")

	out, _, err := executeRoot(t, context.Background(), "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandUpdateThenCompareGolden(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "single_file.yaml", passingScenario)

	_, _, err := executeRoot(t, context.Background(), "test", dir, "--update")
	require.NoError(t, err)

	goldenPath := filepath.Join(dir, "golden", "single_file.golden")
	data, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario": "single_file"`)

	_, _, err = executeRoot(t, context.Background(), "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0o644))
	out, _, err := executeRoot(t, context.Background(), "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestTestCommandJSONOutput(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "wrong_dir.yaml", failingScenario)

	out, _, err := executeRoot(t, context.Background(), "--format", "json", "test", dir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, 1, resp.Data.Failed)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
}
