// Package pipeline implements the per-file ingestion state machine.
//
// A Machine drives one source file through a fixed command sequence:
//
//	ANALYZE -> INSERT -> MOVE
//
// ANALYZE parses the file into an entry. INSERT persists it inside a WAL
// bracket (OPEN, insert, CLOSE). MOVE relocates the file to the success or
// fail directory and deletes the WAL, which is the terminal transition.
//
// # Recovery
//
// Restore rebuilds a Machine from a pending WAL file left by a crash. Only
// the last WAL record matters. An INSERT whose id is present in the
// repository resumes at MOVE with the success directory; an id that is not
// present cannot be told apart from "never inserted" and the WAL is
// abandoned. Recovery therefore never re-runs ANALYZE.
//
// A resumed Machine keeps the id read from the WAL. A fresh id is drawn
// from the repository only when the task carries none.
//
// A last record whose path does not map back to its WAL file, as a torn
// append leaves it, is abandoned. The source is then ingested again from
// scratch.
//
// # Failure semantics
//
// Steps are not retried within one Execute call. A failed ANALYZE or INSERT
// routes the file to the fail directory on the same pass; MOVE still runs.
// Missing or locked files are skipped without side effects and retried on
// a later scan.
//
// An ANALYZE or INSERT that fails because ctx was cancelled is an
// interruption, not a rejection. Execute stops with the file in place and
// any open INSERT record left in the WAL for a later tick.
//
// A Machine is owned by exactly one goroutine for its whole life.
package pipeline
