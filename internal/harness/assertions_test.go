package harness

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() State {
	return State{
		Watch:   []string{"sub/late.xml"},
		Success: []string{"a.xml"},
		Fail:    []string{"b.xml"},
		Pending: []string{"c.xml: OPEN INSERT 3"},
		Entries: []EntryState{
			{ID: 1, Content: "alpha", CreationDate: "2024-03-01 12:30:00", File: "a.xml"},
		},
	}
}

func TestAssertFileIn(t *testing.T) {
	s := sampleState()

	assert.NoError(t, assertFileIn(s, Assertion{File: "a.xml", Dir: DirSuccess}))
	assert.NoError(t, assertFileIn(s, Assertion{File: "b.xml", Dir: DirFail}))
	assert.NoError(t, assertFileIn(s, Assertion{File: "sub/late.xml", Dir: DirWatch}))

	err := assertFileIn(s, Assertion{File: "a.xml", Dir: DirFail})
	var ae *AssertionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, AssertFileIn, ae.Type)
	assert.Contains(t, ae.Actual, "b.xml")
}

func TestAssertPending(t *testing.T) {
	s := sampleState()

	assert.NoError(t, assertPending(s, Assertion{File: "c.xml"}))
	assert.NoError(t, assertPending(s, Assertion{File: "c.xml", Record: "OPEN INSERT 3"}))
	assert.Error(t, assertPending(s, Assertion{File: "c.xml", Record: "CLOSE INSERT 3"}))
	assert.Error(t, assertPending(s, Assertion{File: "a.xml"}))
}

func TestAssertEntry(t *testing.T) {
	s := sampleState()

	assert.NoError(t, assertEntry(s, Assertion{ID: 1}))
	assert.NoError(t, assertEntry(s, Assertion{ID: 1, Content: "alpha", File: "a.xml"}))
	assert.ErrorContains(t, assertEntry(s, Assertion{ID: 1, Content: "beta"}), `content "alpha"`)
	assert.ErrorContains(t, assertEntry(s, Assertion{ID: 1, File: "z.xml"}), "from a.xml")
	assert.ErrorContains(t, assertEntry(s, Assertion{ID: 2}), "not found")
}

func TestAssertTick(t *testing.T) {
	ticks := []TickCounts{{Resumed: 1, Dispatched: 2}}

	assert.NoError(t, assertTick(ticks, Assertion{Tick: 1, Expect: map[string]int{"resumed": 1, "dispatched": 2, "locked": 0}}))

	err := assertTick(ticks, Assertion{Tick: 1, Expect: map[string]int{"resumed": 0, "abandoned": 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abandoned=0 (want 1), resumed=1 (want 0)")

	assert.ErrorContains(t, assertTick(ticks, Assertion{Tick: 2, Expect: map[string]int{"resumed": 1}}), "1 ticks ran")
}

func TestAssertCount(t *testing.T) {
	assert.NoError(t, assertCount(AssertEntryCount, 2, 2))
	assert.ErrorContains(t, assertCount(AssertPendingCount, 1, 0), "expected 0, actual 1")
}

func TestDescribePending(t *testing.T) {
	s := &Scenario{Workers: 1, Ticks: 1}
	h, err := newHarness(t.TempDir(), s)
	require.NoError(t, err)
	defer h.db.Close()

	require.NoError(t, h.seed(context.Background(), &Scenario{
		WAL: []WALEntry{
			{File: "ok.xml", Phase: "CLOSE", Command: "INSERT", ID: 6},
			{File: "bad.xml", Raw: "garbage"},
		},
	}))

	pending, err := h.wal.ListPending()
	require.NoError(t, err)
	require.Len(t, pending, 2)

	var lines []string
	for _, p := range pending {
		lines = append(lines, h.describePending(p))
	}
	assert.ElementsMatch(t, []string{"ok.xml: CLOSE INSERT 6", "bad.xml: unreadable"}, lines)

	// Logs the scenario never named fall back to their own file name.
	stray := h.wal.Path(h.source("other.xml"))
	require.NoError(t, os.WriteFile(stray, []byte("x\n"), 0o640))
	assert.Contains(t, h.describePending(stray), ".wal: unreadable")
}
