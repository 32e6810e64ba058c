package wal

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLastRecordTerminators(t *testing.T) {
	want := Record{Phase: PhaseOpen, Command: "INSERT", ID: 7, Path: "/a/b.xml"}

	for name, content := range map[string]string{
		"lf":           "OPEN INSERT 7 /a/b.xml\n",
		"crlf":         "OPEN INSERT 7 /a/b.xml\r\n",
		"cr":           "OPEN INSERT 7 /a/b.xml\r",
		"none":         "OPEN INSERT 7 /a/b.xml",
		"history":      "OPEN INSERT 6 /a/old.xml\nCLOSE INSERT 6 /a/old.xml\nOPEN INSERT 7 /a/b.xml\n",
		"crlf history": "CLOSE INSERT 6 /a/old.xml\r\nOPEN INSERT 7 /a/b.xml\r\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "x"+Ext)
			writeRaw(t, path, content)

			got, err := ReadLastRecord(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestReadLastRecordLongLog(t *testing.T) {
	// Lines longer than a read chunk and many of them.
	longPath := "/deep/" + strings.Repeat("segment/", 200) + "file.xml"
	var sb strings.Builder
	for i := 1; i <= 50; i++ {
		sb.WriteString(Record{Phase: PhaseOpen, Command: "INSERT", ID: int64(i), Path: longPath}.String())
		sb.WriteString("\n")
	}
	sb.WriteString(Record{Phase: PhaseClose, Command: "INSERT", ID: 50, Path: longPath}.String())
	sb.WriteString("\n")

	path := filepath.Join(t.TempDir(), "long"+Ext)
	writeRaw(t, path, sb.String())

	got, err := ReadLastRecord(path)
	require.NoError(t, err)
	assert.Equal(t, PhaseClose, got.Phase)
	assert.Equal(t, int64(50), got.ID)
	assert.Equal(t, longPath, got.Path)
}

func TestReadLastRecordUnusable(t *testing.T) {
	for name, content := range map[string]string{
		"empty":          "",
		"only newline":   "\n",
		"blank last":     "OPEN INSERT 7 /a/b.xml\n\n",
		"garbage":        "not a record\n",
		"truncated line": "OPEN INSERT 7 /a/b.xml\nCLOSE INS",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad"+Ext)
			writeRaw(t, path, content)

			_, err := ReadLastRecord(path)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoRecord)
		})
	}
}

func TestReadLastRecordMissingFile(t *testing.T) {
	_, err := ReadLastRecord(filepath.Join(t.TempDir(), "missing"+Ext))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoRecord)
}
