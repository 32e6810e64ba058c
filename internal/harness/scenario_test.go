package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ValidFile(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "crash_recovery.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "crash_recovery", s.Name)
	assert.Equal(t, 1, s.Workers)
	assert.Equal(t, 1, s.Ticks)
	assert.Len(t, s.Files, 2)
	assert.Len(t, s.WAL, 2)
	assert.Equal(t, "INSERT", s.WAL[1].Command)
	assert.Equal(t, int64(8), s.WAL[1].ID)
	assert.Equal(t, 1, s.Assertions[0].Expect["resumed"])
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "typo.yaml")
	doc := `
name: typo
description: "misspelled key"
assertion:
  - type: entry_count
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "missing name",
			doc:  "description: d\nassertions: [{type: entry_count}]",
			want: "name is required",
		},
		{
			name: "missing description",
			doc:  "name: n\nassertions: [{type: entry_count}]",
			want: "description is required",
		},
		{
			name: "no assertions",
			doc:  "name: n\ndescription: d",
			want: "assertions list is required",
		},
		{
			name: "absolute file",
			doc:  "name: n\ndescription: d\nfiles: [{name: /etc/passwd}]\nassertions: [{type: entry_count}]",
			want: "must be relative",
		},
		{
			name: "escaping file",
			doc:  "name: n\ndescription: d\nfiles: [{name: ../x.xml}]\nassertions: [{type: entry_count}]",
			want: "must be relative",
		},
		{
			name: "duplicate file",
			doc:  "name: n\ndescription: d\nfiles: [{name: a.xml}, {name: a.xml}]\nassertions: [{type: entry_count}]",
			want: "duplicate file",
		},
		{
			name: "bad wal phase",
			doc:  "name: n\ndescription: d\nwal: [{file: a.xml, phase: HALF, command: INSERT, id: 1}]\nassertions: [{type: entry_count}]",
			want: "phase must be OPEN or CLOSE",
		},
		{
			name: "wal without id",
			doc:  "name: n\ndescription: d\nwal: [{file: a.xml, phase: OPEN, command: INSERT}]\nassertions: [{type: entry_count}]",
			want: "id must be positive",
		},
		{
			name: "bad creation date",
			doc:  "name: n\ndescription: d\ndatabase: [{id: 1, content: c, creation_date: yesterday, file: a.xml}]\nassertions: [{type: entry_count}]",
			want: "creation_date",
		},
		{
			name: "unknown assertion",
			doc:  "name: n\ndescription: d\nassertions: [{type: vibes}]",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "file_in bad dir",
			doc:  "name: n\ndescription: d\nassertions: [{type: file_in, file: a.xml, dir: trash}]",
			want: "dir must be",
		},
		{
			name: "tick out of range",
			doc:  "name: n\ndescription: d\nticks: 2\nassertions: [{type: tick, tick: 3, expect: {resumed: 1}}]",
			want: "tick must be between 1 and 2",
		},
		{
			name: "tick unknown counter",
			doc:  "name: n\ndescription: d\nassertions: [{type: tick, tick: 1, expect: {healed: 1}}]",
			want: `unknown tick counter "healed"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_RawWALNeedsNoRecordFields(t *testing.T) {
	doc := "name: n\ndescription: d\nwal: [{file: a.xml, raw: garbage}]\nassertions: [{type: pending_count}]"
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "garbage", s.WAL[0].Raw)
}
