// Package store provides the SQLite-backed submission sink.
//
// Each finished session is written as:
//   - Submissions: one row per submission holding the canonical JSON payload
//   - Submission answers: one row per answer, addressed by list, person,
//     section and question, for reporting queries
//
// # Critical Patterns
//
// Content-Addressed Idempotency
//   - submissions.id is the hash of the canonical payload and session token
//   - Writing the same submission twice is a no-op and returns the first seq
//
// Logical Ordering
//   - All ordering uses seq INTEGER assigned on insert, NEVER timestamps
//
// Deterministic Query Results
//   - Submission queries use ORDER BY seq ASC, id COLLATE BINARY ASC
//   - Answer queries order by every addressing column
//   - QueryAnswers builds a queryir join and lets querysql emit the SQL, so
//     filters are always parameters and the ORDER BY is never omitted
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Schema upgrades are tracked in PRAGMA user_version. Each migration runs
// in its own transaction together with its version bump. Columns added
// after the first release, such as submissions.form_hash, exist only through
// migrations; schema.sql keeps the original shape.
//
// Submission ids are computed by ir.SubmissionID using canonical JSON and
// SHA-256 with domain separation.
package store
