// Package ir provides the canonical representation types for formflow.
//
// This package contains type definitions and their serialization only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Enumerations (condition types, roles, question types) are closed:
//     parsing an unknown string fails at construction time
//   - NO float answers - numeric answers are int64
//   - Section id sets collapse duplicates and iterate in ascending order
//   - All JSON tags use snake_case
package ir
