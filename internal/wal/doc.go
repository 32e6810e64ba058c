// Package wal implements the per-file write-ahead log used to make ingestion
// crash-recoverable.
//
// Every source file in flight owns exactly one log file in the WAL directory.
// The log is append-only text, one record per line:
//
//	<PHASE> <COMMAND> <ID> <PATH>
//
// PHASE is OPEN (a step is about to run) or CLOSE (the step finished). The
// last line of a log is the only thing recovery looks at; a trailing OPEN
// with no CLOSE means the step was interrupted.
//
// # Durability
//
//   - Each append opens the file, writes one line, fsyncs and closes.
//     No descriptors are held between records.
//   - Deleting the log is the terminal transition: a missing log means the
//     file needs no recovery.
//   - Nothing is cached in memory; recovery always re-reads from disk.
//
// # Path field
//
// PATH is the verbatim remainder of the line after the id token, so paths
// containing spaces round-trip unchanged. The three bytes that would break
// the one-record-per-line framing ('%', '\n', '\r') are percent-encoded.
package wal
