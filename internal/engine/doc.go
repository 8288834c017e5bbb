// Package engine implements eligibility resolution and the round-robin
// evaluation flow for a single respondent.
//
// ARCHITECTURE:
//
// Pure resolution:
// ResolveVisibleSections, ResolveVisibleQuestions and
// ResolveManagementSections are pure functions over an ir.FormConfig
// snapshot. Identical inputs always produce identical results.
//
// Owned session state:
// A Session holds one read-only FormConfig clone, the Scheduler cursor and
// the ResponseStore. The cursor moves only through Advance, Retreat and
// Seek; the store changes only through Record and Clear. Sessions share
// nothing, so no locking is needed.
//
// Respondent flow:
//  1. Start resolves visible sections (standard) or builds the list plan
//     (management, year rules ignored)
//  2. Record stores answers addressed by the current cursor
//  3. Advance validates required answers on the current page, then moves
//  4. Submit validates everything, aggregates and returns an ir.Submission
//
// CRITICAL PATTERNS:
//
// Ordering law:
// Section varies fastest, person next, list slowest. Out-of-range moves are
// no-ops that report false, never errors and never wrap.
//
// Logical clock:
// Every session event is stamped with a monotonic seq from Clock.Next().
// Traces are compared by seq, never by wall-clock time.
package engine
