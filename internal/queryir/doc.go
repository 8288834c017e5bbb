// Package queryir provides an abstract query representation for reading the
// flattened answer rows of stored submissions.
//
// Reporting consumers filter answers by form, question, management list,
// evaluated person and section. Those filters are expressed as a Query and
// compiled to SQL by a backend (see querysql), so callers never assemble
// SQL text themselves.
//
// QUERY SHAPES:
//
//   - Select(from, filter, bindings): access to one reporting table
//   - Join(left, right, on): inner join of two selects
//   - Predicates: Equals, BoundEquals, ColumnEquals, And
//   - Explicit column bindings, no SELECT *
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so backends can switch
// exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	    // single table
//	case Join:
//	    // inner join
//	}
//
// SCHEMA:
//
// Validate checks a query against a Schema, the tables and columns a
// backend exposes. ReportSchema describes the submission sink: the
// submissions table and the submission_answers reporting rows.
//
// VALUES:
//
// Literal values are ir.AnswerValue scalars (string, int, bool). Option sets
// are not comparable in a predicate; filter on question_id instead.
package queryir
