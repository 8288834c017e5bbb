// Package querysql compiles queryir queries to parameterized SQLite SQL.
package querysql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/queryir"
)

// stableOrder is the deterministic row order of each reporting table.
// Text columns use COLLATE BINARY so ordering matches Go string comparison.
var stableOrder = map[string][]string{
	"submissions": {"seq ASC"},
	"submission_answers": {
		"submission_id COLLATE BINARY ASC",
		"list_name COLLATE BINARY ASC",
		"person COLLATE BINARY ASC",
		"section COLLATE BINARY ASC",
		"question_id ASC",
	},
}

// SQLCompiler compiles queryir queries to parameterized SQL for SQLite.
//
// Every query gets an ORDER BY, and values are always passed as parameters,
// never interpolated.
type SQLCompiler struct {
	// BoundValues holds the values for BoundEquals predicates, by parameter name.
	BoundValues map[string]any
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{
		BoundValues: make(map[string]any),
	}
}

// Bind sets the value of a named parameter and returns the compiler.
func (c *SQLCompiler) Bind(name string, value any) *SQLCompiler {
	c.BoundValues[name] = value
	return c
}

// Compile converts a query to SQL and its parameters.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	if q == nil {
		return "", nil, fmt.Errorf("cannot compile nil query")
	}

	switch query := q.(type) {
	case queryir.Select:
		return c.compileSelect(query)
	case *queryir.Select:
		return c.compileSelect(*query)
	case queryir.Join:
		return c.compileJoin(query)
	case *queryir.Join:
		return c.compileJoin(*query)
	default:
		return "", nil, fmt.Errorf("unsupported query type: %T", q)
	}
}

func (c *SQLCompiler) compileSelect(q queryir.Select) (string, []any, error) {
	orderBy, err := stableOrderKey(q.From, false)
	if err != nil {
		return "", nil, err
	}

	var whereClause string
	var params []any
	if q.Filter != nil {
		filterSQL, filterParams, err := c.compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		whereClause = " WHERE " + filterSQL
		params = filterParams
	}

	sql := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		compileBindings(q.Bindings),
		q.From,
		whereClause,
		orderBy)
	return sql, params, nil
}

// compileJoin compiles an inner join of two selects. Parameters follow the
// placeholder order: ON first, then the left and right filters.
func (c *SQLCompiler) compileJoin(j queryir.Join) (string, []any, error) {
	left, ok := getSelect(j.Left)
	if !ok {
		return "", nil, fmt.Errorf("join left must be a select")
	}
	right, ok := getSelect(j.Right)
	if !ok {
		return "", nil, fmt.Errorf("join right must be a select")
	}
	if j.On == nil {
		return "", nil, fmt.Errorf("join of %s and %s needs an on predicate", left.From, right.From)
	}

	leftOrder, err := stableOrderKey(left.From, true)
	if err != nil {
		return "", nil, err
	}
	rightOrder, err := stableOrderKey(right.From, true)
	if err != nil {
		return "", nil, err
	}

	onSQL, params, err := c.compilePredicate(j.On)
	if err != nil {
		return "", nil, fmt.Errorf("compile join on: %w", err)
	}

	var where []string
	for _, side := range []queryir.Select{left, right} {
		if side.Filter == nil {
			continue
		}
		sql, sideParams, err := c.compilePredicate(side.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile %s filter: %w", side.From, err)
		}
		where = append(where, sql)
		params = append(params, sideParams...)
	}

	columns := compileBindings(left.Bindings) + ", " + compileBindings(right.Bindings)
	sql := fmt.Sprintf("SELECT %s FROM %s INNER JOIN %s ON %s",
		columns,
		left.From,
		right.From,
		onSQL)
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY " + leftOrder + ", " + rightOrder

	return sql, params, nil
}

// compileBindings converts bindings to a SELECT column list.
// Example: {"submissions.seq": "seq"} → "submissions.seq AS seq"
// Columns are sorted for deterministic output.
func compileBindings(bindings map[string]string) string {
	if len(bindings) == 0 {
		return "*"
	}

	columns := make([]string, 0, len(bindings))
	for col := range bindings {
		columns = append(columns, col)
	}
	slices.Sort(columns)

	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		name := bindings[col]
		if col == name {
			parts = append(parts, col)
		} else {
			parts = append(parts, fmt.Sprintf("%s AS %s", col, name))
		}
	}
	return strings.Join(parts, ", ")
}

// stableOrderKey returns the ORDER BY terms of a table, qualified with the
// table name inside joins.
func stableOrderKey(table string, qualified bool) (string, error) {
	terms, ok := stableOrder[table]
	if !ok {
		return "", fmt.Errorf("no stable order for table %q", table)
	}
	if !qualified {
		return strings.Join(terms, ", "), nil
	}
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = table + "." + t
	}
	return strings.Join(out, ", "), nil
}

func (c *SQLCompiler) compilePredicate(p queryir.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case nil:
		return "1 = 1", nil, nil
	case queryir.Equals:
		return compileEquals(pred)
	case *queryir.Equals:
		return compileEquals(*pred)
	case queryir.BoundEquals:
		return c.compileBoundEquals(pred)
	case *queryir.BoundEquals:
		return c.compileBoundEquals(*pred)
	case queryir.ColumnEquals:
		return fmt.Sprintf("%s = %s", pred.Left, pred.Right), nil, nil
	case *queryir.ColumnEquals:
		return fmt.Sprintf("%s = %s", pred.Left, pred.Right), nil, nil
	case queryir.And:
		return c.compileAnd(pred)
	case *queryir.And:
		return c.compileAnd(*pred)
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

func compileEquals(eq queryir.Equals) (string, []any, error) {
	param, err := valueToParam(eq.Value)
	if err != nil {
		return "", nil, fmt.Errorf("column %s: %w", eq.Field, err)
	}
	return eq.Field + " = ?", []any{param}, nil
}

func (c *SQLCompiler) compileAnd(and queryir.And) (string, []any, error) {
	if len(and.Predicates) == 0 {
		return "1 = 1", nil, nil
	}

	parts := make([]string, 0, len(and.Predicates))
	var params []any
	for _, pred := range and.Predicates {
		sql, predParams, err := c.compilePredicate(pred)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, predParams...)
	}
	return strings.Join(parts, " AND "), params, nil
}

// compileBoundEquals looks the parameter up in BoundValues.
// A parameter without a value is an error.
func (c *SQLCompiler) compileBoundEquals(beq queryir.BoundEquals) (string, []any, error) {
	val, ok := c.BoundValues[beq.Param]
	if !ok {
		return "", nil, fmt.Errorf("no value bound for parameter %q", beq.Param)
	}
	return beq.Field + " = ?", []any{val}, nil
}

func getSelect(q queryir.Query) (queryir.Select, bool) {
	switch query := q.(type) {
	case queryir.Select:
		return query, true
	case *queryir.Select:
		return *query, true
	default:
		return queryir.Select{}, false
	}
}

// valueToParam converts a scalar answer value to a SQL parameter.
func valueToParam(v ir.AnswerValue) (any, error) {
	switch val := v.(type) {
	case ir.AnswerString:
		return string(val), nil
	case ir.AnswerInt:
		return int64(val), nil
	case ir.AnswerBool:
		return bool(val), nil
	case ir.AnswerSet:
		return nil, fmt.Errorf("option sets cannot be used as SQL parameters")
	case nil:
		return nil, fmt.Errorf("nil value")
	default:
		return nil, fmt.Errorf("unsupported value type for SQL parameter: %T", v)
	}
}
