package queryir

import "github.com/roach88/formflow/internal/ir"

// Query represents an abstract query.
//
// This is a sealed interface - only types in this package implement it.
//
// Query types:
//   - Select: one table with filtering and column bindings
//   - Join: two selects combined with an inner join
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: column = literal
//   - BoundEquals: column = named parameter supplied at compile time
//   - ColumnEquals: column = column (join conditions)
//   - And: all predicates must be true
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select represents access to one table.
//
// Semantics:
//
//	SELECT <bindings> FROM <from> WHERE <filter>
//
// Example:
//
//	Select{
//	  From:     "submission_answers",
//	  Filter:   Equals{Field: "question_id", Value: ir.AnswerInt(40)},
//	  Bindings: map[string]string{"person": "person", "value": "value"},
//	}
//
// Inside a Join, columns are qualified with the table name
// ("submissions.form_id"); a standalone Select may use bare names.
type Select struct {
	From     string            // Table name
	Filter   Predicate         // WHERE conditions (nil = no filter)
	Bindings map[string]string // column → result name
}

func (Select) queryNode() {}

// Join represents an inner join of two selects.
//
// Semantics:
//
//	SELECT <left bindings>, <right bindings>
//	FROM <left> INNER JOIN <right> ON <on>
//	WHERE <left filter> AND <right filter>
//
// Example:
//
//	Join{
//	  Left:  Select{From: "submissions", Bindings: map[string]string{"submissions.seq": "seq"}},
//	  Right: Select{From: "submission_answers", Bindings: map[string]string{"submission_answers.value": "value"}},
//	  On:    ColumnEquals{Left: "submissions.id", Right: "submission_answers.submission_id"},
//	}
//
// Only inner joins are expressed. On is required.
type Join struct {
	Left  Query     // Select
	Right Query     // Select
	On    Predicate // Join condition
}

func (Join) queryNode() {}

// Equals represents a column-equals-literal predicate.
//
//	Equals{Field: "person", Value: ir.AnswerString("Alice")}
//
// translates to "person = ?" with "Alice" as the parameter.
type Equals struct {
	Field string         // Column name
	Value ir.AnswerValue // Scalar literal (no option sets)
}

func (Equals) predicateNode() {}

// BoundEquals represents a column-equals-parameter predicate. The value is
// looked up by name when the query is compiled, so one query can be reused
// for many values.
//
//	BoundEquals{Field: "form_id", Param: "form"}
type BoundEquals struct {
	Field string // Column name
	Param string // Parameter name
}

func (BoundEquals) predicateNode() {}

// ColumnEquals compares two columns, typically across a join.
//
//	ColumnEquals{Left: "submissions.id", Right: "submission_answers.submission_id"}
type ColumnEquals struct {
	Left  string
	Right string
}

func (ColumnEquals) predicateNode() {}

// And represents a conjunction of predicates.
// An empty Predicates slice is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Conjoin combines preds into one predicate, dropping nils.
// Returns nil when nothing remains and the single predicate when only one
// remains.
func Conjoin(preds ...Predicate) Predicate {
	kept := make([]Predicate, 0, len(preds))
	for _, p := range preds {
		if p != nil {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return And{Predicates: kept}
	}
}
