// Package store provides durable storage for ingested entries.
//
// Two repositories share one contract (Insert, Exists, NextID):
//   - SQLite: the default, a single local database file
//   - Postgres: a pgx connection pool for shared deployments
//
// # Invariants
//
//   - Exists reflects committed rows only. Recovery asks it whether an
//     interrupted INSERT actually landed, so a dirty read would lose files.
//   - Insert replaces an existing row with the same id, so re-running an
//     INSERT after a crash never creates duplicates.
//   - NextID is monotonic and safe for concurrent callers. The counter is
//     seeded once from MAX(id) on first use (see Sequence).
//
// # Database Configuration (SQLite)
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=FULL: Committed rows survive power loss
//   - busy_timeout=5000: Wait for locks up to 5 seconds
package store
