package harness

import (
	"fmt"
	"slices"
	"strings"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, actual %s", e.Type, e.Expected, e.Actual)
}

func evaluate(r *Result, a Assertion) error {
	switch a.Type {
	case AssertFileIn:
		return assertFileIn(r.State, a)
	case AssertPending:
		return assertPending(r.State, a)
	case AssertPendingCount:
		return assertCount(AssertPendingCount, len(r.State.Pending), a.Count)
	case AssertEntry:
		return assertEntry(r.State, a)
	case AssertEntryCount:
		return assertCount(AssertEntryCount, len(r.State.Entries), a.Count)
	case AssertTick:
		return assertTick(r.Ticks, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertFileIn(s State, a Assertion) error {
	var files []string
	switch a.Dir {
	case DirWatch:
		files = s.Watch
	case DirSuccess:
		files = s.Success
	case DirFail:
		files = s.Fail
	}
	if slices.Contains(files, a.File) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFileIn,
		Expected: fmt.Sprintf("%s in %s", a.File, a.Dir),
		Actual:   fmt.Sprintf("%s holds [%s]", a.Dir, strings.Join(files, ", ")),
	}
}

func assertPending(s State, a Assertion) error {
	for _, line := range s.Pending {
		file, record := pendingRecord(line)
		if file != a.File {
			continue
		}
		if a.Record == "" || a.Record == record {
			return nil
		}
		return &AssertionError{
			Type:     AssertPending,
			Expected: fmt.Sprintf("%s with last record %q", a.File, a.Record),
			Actual:   fmt.Sprintf("last record %q", record),
		}
	}
	return &AssertionError{
		Type:     AssertPending,
		Expected: fmt.Sprintf("a pending wal for %s", a.File),
		Actual:   fmt.Sprintf("pending [%s]", strings.Join(s.Pending, ", ")),
	}
}

func assertEntry(s State, a Assertion) error {
	for _, e := range s.Entries {
		if e.ID != a.ID {
			continue
		}
		if a.Content != "" && e.Content != a.Content {
			return &AssertionError{
				Type:     AssertEntry,
				Expected: fmt.Sprintf("entry %d with content %q", a.ID, a.Content),
				Actual:   fmt.Sprintf("content %q", e.Content),
			}
		}
		if a.File != "" && e.File != a.File {
			return &AssertionError{
				Type:     AssertEntry,
				Expected: fmt.Sprintf("entry %d from %s", a.ID, a.File),
				Actual:   fmt.Sprintf("from %s", e.File),
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertEntry,
		Expected: fmt.Sprintf("entry %d", a.ID),
		Actual:   "not found",
	}
}

func assertCount(kind string, got, want int) error {
	if got == want {
		return nil
	}
	return &AssertionError{
		Type:     kind,
		Expected: fmt.Sprintf("%d", want),
		Actual:   fmt.Sprintf("%d", got),
	}
}

func assertTick(ticks []TickCounts, a Assertion) error {
	if a.Tick < 1 || a.Tick > len(ticks) {
		return &AssertionError{
			Type:     AssertTick,
			Expected: fmt.Sprintf("tick %d", a.Tick),
			Actual:   fmt.Sprintf("%d ticks ran", len(ticks)),
		}
	}
	counts := ticks[a.Tick-1]

	var mismatches []string
	for _, name := range sortedKeys(a.Expect) {
		if got := counts.get(name); got != a.Expect[name] {
			mismatches = append(mismatches, fmt.Sprintf("%s=%d (want %d)", name, got, a.Expect[name]))
		}
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertTick,
		Expected: fmt.Sprintf("tick %d counters %v", a.Tick, a.Expect),
		Actual:   strings.Join(mismatches, ", "),
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
