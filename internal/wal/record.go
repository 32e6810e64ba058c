package wal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase marks whether a record opens or closes a step.
type Phase string

const (
	// PhaseOpen is written before a step runs.
	PhaseOpen Phase = "OPEN"
	// PhaseClose is written after a step completed.
	PhaseClose Phase = "CLOSE"
)

// ErrNoRecord is returned when a log holds no usable last record.
var ErrNoRecord = errors.New("wal: no usable record")

// Record is one decoded WAL line.
type Record struct {
	Phase   Phase
	Command string
	ID      int64
	Path    string
}

var (
	pathEncoder = strings.NewReplacer("%", "%25", "\n", "%0A", "\r", "%0D")
	pathDecoder = strings.NewReplacer("%25", "%", "%0A", "\n", "%0D", "\r", "%0a", "\n", "%0d", "\r")
)

// String formats the record as it appears on disk, without the terminator.
func (r Record) String() string {
	return fmt.Sprintf("%s %s %d %s", r.Phase, r.Command, r.ID, pathEncoder.Replace(r.Path))
}

// ParseRecord decodes a single line (without its terminator).
//
// The line must carry at least phase, command and id separated by
// whitespace; anything after the id is the path, kept byte for byte.
func ParseRecord(line string) (Record, error) {
	phase, rest := nextToken(line)
	command, rest := nextToken(rest)
	idToken, rest := nextToken(rest)
	if idToken == "" {
		return Record{}, fmt.Errorf("%w: want at least 3 tokens in %q", ErrNoRecord, line)
	}

	var rec Record
	switch Phase(phase) {
	case PhaseOpen, PhaseClose:
		rec.Phase = Phase(phase)
	default:
		return Record{}, fmt.Errorf("%w: unknown phase %q", ErrNoRecord, phase)
	}

	id, err := strconv.ParseInt(idToken, 10, 64)
	if err != nil || id <= 0 {
		return Record{}, fmt.Errorf("%w: id %q is not a positive integer", ErrNoRecord, idToken)
	}

	rec.Command = command
	rec.ID = id
	rec.Path = pathDecoder.Replace(rest)
	return rec, nil
}

// nextToken splits off the first whitespace-delimited token. The returned
// rest starts right after the single separator following the token.
func nextToken(s string) (token, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i+1:]
}
