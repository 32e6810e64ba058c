// Package harness replays crash-recovery scenarios against the real
// ingestion stack.
//
// # Scenario Format
//
// Scenarios are YAML files describing the state a crash left behind and
// what the scheduler must make of it:
//
//	name: crash_mid_insert
//	description: "doc1 committed, doc2 lost its insert"
//	workers: 1
//	ticks: 1
//	files:
//	  - name: doc1.xml
//	    body: |
//	      <Entry><content>first</content>...</Entry>
//	    locked_ticks: 0
//	database:
//	  - id: 7
//	    content: first
//	    creation_date: "2024-03-01 12:30:00"
//	    file: doc1.xml
//	wal:
//	  - file: doc1.xml
//	    phase: OPEN
//	    command: INSERT
//	    id: 7
//	  - file: doc3.xml
//	    raw: "garbage"
//	assertions:
//	  - type: file_in
//	    file: doc1.xml
//	    dir: success
//	  - type: entry
//	    id: 7
//	    content: first
//	    file: doc1.xml
//
// File names are relative to the watch directory. A file with locked_ticks
// set reports as held by a writer for that many ticks.
//
// # Assertion Types
//
//   - file_in: the file sits in the watch, success or fail directory
//   - pending: the file still has a WAL, optionally with a given last record
//   - pending_count: exactly count WAL files remain
//   - entry: an entry with the id exists, optionally checking content and source
//   - entry_count: exactly count entries are stored
//   - tick: the counters of one tick (1-based) match expect
//
// # Determinism
//
// Every run gets fresh directories and a fresh SQLite database, a fixed
// tick token, and a lock state driven only by the scenario. With one worker
// ids are assigned in scan order, so the final state can be compared
// against a golden snapshot.
package harness
