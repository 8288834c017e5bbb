package queryir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/formflow/internal/ir"
)

// Schema lists the columns of each table a backend exposes.
type Schema map[string][]string

// ReportSchema is the reporting surface of the submission sink.
var ReportSchema = Schema{
	"submissions":        {"seq", "id", "form_id", "session_token", "kind"},
	"submission_answers": {"submission_id", "list_name", "person", "section", "question_id", "value"},
}

// HasColumn reports whether table has column.
func (s Schema) HasColumn(table, column string) bool {
	return slices.Contains(s[table], column)
}

// ValidationResult contains the problems found in a query.
type ValidationResult struct {
	// Valid is true when the query only references known tables and columns
	// and every literal is comparable.
	Valid bool

	// Problems lists what is wrong. Empty when Valid is true.
	Problems []string
}

// Validate checks query against schema.
//
// Rules:
//  1. Every From names a schema table
//  2. Bindings are explicit (no SELECT *)
//  3. Every referenced column exists; inside a Join columns are qualified
//     with one of the joined tables
//  4. Equals literals are scalars
//  5. Joins combine two selects and carry an On predicate
//
// Validate is a pure function with no side effects.
func Validate(query Query, schema Schema) ValidationResult {
	v := &validator{schema: schema, problems: []string{}}
	v.validateQuery(query)

	return ValidationResult{
		Valid:    len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	schema   Schema
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case nil:
		v.addProblem("nil query")
	case Select:
		v.validateSelect(query, []string{query.From}, false)
	case *Select:
		v.validateSelect(*query, []string{query.From}, false)
	case Join:
		v.validateJoin(query)
	case *Join:
		v.validateJoin(*query)
	default:
		v.addProblem("unknown query type: %T", q)
	}
}

func (v *validator) validateSelect(sel Select, scope []string, qualified bool) {
	if _, ok := v.schema[sel.From]; !ok {
		v.addProblem("unknown table %q", sel.From)
		return
	}
	if len(sel.Bindings) == 0 {
		v.addProblem("select from %s has no bindings", sel.From)
	}
	for _, col := range sortedKeys(sel.Bindings) {
		v.checkColumn(col, scope, qualified)
	}
	v.validatePredicate(sel.Filter, scope, qualified)
}

func (v *validator) validateJoin(join Join) {
	left, lok := asSelect(join.Left)
	right, rok := asSelect(join.Right)
	if !lok || !rok {
		v.addProblem("join sides must be selects")
		return
	}
	if join.On == nil {
		v.addProblem("join of %s and %s has no on predicate", left.From, right.From)
	}

	scope := []string{left.From, right.From}
	v.validateSelect(left, scope, true)
	v.validateSelect(right, scope, true)
	v.validatePredicate(join.On, scope, true)
}

func (v *validator) validatePredicate(p Predicate, scope []string, qualified bool) {
	switch pred := p.(type) {
	case nil:
	case Equals:
		v.validateEquals(pred, scope, qualified)
	case *Equals:
		v.validateEquals(*pred, scope, qualified)
	case BoundEquals:
		v.validateBound(pred, scope, qualified)
	case *BoundEquals:
		v.validateBound(*pred, scope, qualified)
	case ColumnEquals:
		v.checkColumn(pred.Left, scope, qualified)
		v.checkColumn(pred.Right, scope, qualified)
	case *ColumnEquals:
		v.checkColumn(pred.Left, scope, qualified)
		v.checkColumn(pred.Right, scope, qualified)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub, scope, qualified)
		}
	case *And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub, scope, qualified)
		}
	default:
		v.addProblem("unknown predicate type: %T", p)
	}
}

func (v *validator) validateEquals(eq Equals, scope []string, qualified bool) {
	v.checkColumn(eq.Field, scope, qualified)
	switch eq.Value.(type) {
	case ir.AnswerString, ir.AnswerInt, ir.AnswerBool:
	case nil:
		v.addProblem("column %s compared to nil", eq.Field)
	default:
		v.addProblem("column %s compared to %T; only scalars are comparable", eq.Field, eq.Value)
	}
}

func (v *validator) validateBound(beq BoundEquals, scope []string, qualified bool) {
	v.checkColumn(beq.Field, scope, qualified)
	if beq.Param == "" {
		v.addProblem("column %s bound to an unnamed parameter", beq.Field)
	}
}

// checkColumn resolves column within scope. Qualified scopes need
// "table.column"; unqualified scopes accept either form.
func (v *validator) checkColumn(column string, scope []string, qualified bool) {
	table, name, ok := strings.Cut(column, ".")
	if !ok {
		if qualified {
			v.addProblem("column %q must be qualified with a table in a join", column)
			return
		}
		table, name = scope[0], column
	}
	if !slices.Contains(scope, table) {
		v.addProblem("column %q references table %s outside the query", column, table)
		return
	}
	if !v.schema.HasColumn(table, name) {
		v.addProblem("table %s has no column %s", table, name)
	}
}

func asSelect(q Query) (Select, bool) {
	switch query := q.(type) {
	case Select:
		return query, true
	case *Select:
		return *query, true
	default:
		return Select{}, false
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
