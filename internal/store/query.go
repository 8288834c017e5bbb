package store

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/queryir"
	"github.com/roach88/formflow/internal/querysql"
)

// AnswerFilter narrows QueryAnswers. Zero fields match everything.
// Person and List are compared after NFC normalization, matching how people
// names are stored.
type AnswerFilter struct {
	FormID     string
	Kind       ir.PayloadKind
	QuestionID ir.QuestionID
	List       string
	Person     string
	Section    string
}

// AnswerRecord is one stored answer with the submission it belongs to.
type AnswerRecord struct {
	Seq          int64
	SubmissionID string
	FormID       string
	ir.AnswerRow
}

// Query builds the reporting query for f. The form filter is a bound
// parameter; the others are literals.
func (f AnswerFilter) Query() queryir.Join {
	var subFilters, answerFilters []queryir.Predicate
	if f.FormID != "" {
		subFilters = append(subFilters, queryir.BoundEquals{Field: "submissions.form_id", Param: "form"})
	}
	if f.Kind != "" {
		subFilters = append(subFilters, queryir.Equals{Field: "submissions.kind", Value: ir.AnswerString(f.Kind)})
	}
	if f.QuestionID != 0 {
		answerFilters = append(answerFilters, queryir.Equals{Field: "submission_answers.question_id", Value: ir.AnswerInt(f.QuestionID)})
	}
	if f.List != "" {
		answerFilters = append(answerFilters, queryir.Equals{Field: "submission_answers.list_name", Value: ir.AnswerString(normalize(f.List))})
	}
	if f.Person != "" {
		answerFilters = append(answerFilters, queryir.Equals{Field: "submission_answers.person", Value: ir.AnswerString(normalize(f.Person))})
	}
	if f.Section != "" {
		answerFilters = append(answerFilters, queryir.Equals{Field: "submission_answers.section", Value: ir.AnswerString(f.Section)})
	}

	return queryir.Join{
		Left: queryir.Select{
			From:   "submissions",
			Filter: queryir.Conjoin(subFilters...),
			Bindings: map[string]string{
				"submissions.seq":     "seq",
				"submissions.id":      "submission_id",
				"submissions.form_id": "form_id",
			},
		},
		Right: queryir.Select{
			From:   "submission_answers",
			Filter: queryir.Conjoin(answerFilters...),
			Bindings: map[string]string{
				"submission_answers.list_name":   "list_name",
				"submission_answers.person":      "person",
				"submission_answers.section":     "section",
				"submission_answers.question_id": "question_id",
				"submission_answers.value":       "value",
			},
		},
		On: queryir.ColumnEquals{Left: "submissions.id", Right: "submission_answers.submission_id"},
	}
}

// QueryAnswers returns the stored answers matching f, ordered by submission
// seq, then list, person, section and question.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) QueryAnswers(ctx context.Context, f AnswerFilter) ([]AnswerRecord, error) {
	query := f.Query()
	if v := queryir.Validate(query, queryir.ReportSchema); !v.Valid {
		return nil, fmt.Errorf("query answers: invalid query: %v", v.Problems)
	}

	sqlText, params, err := querysql.NewSQLCompiler().Bind("form", f.FormID).Compile(query)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	// Column order follows the compiler's sorted bindings.
	records := []AnswerRecord{}
	for rows.Next() {
		var r AnswerRecord
		var qid int64
		var value string
		if err := rows.Scan(&r.FormID, &r.SubmissionID, &r.Seq,
			&r.ListName, &r.Person, &qid, &r.Section, &value); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		r.QuestionID = ir.QuestionID(qid)
		r.Value = []byte(value)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return records, nil
}

func normalize(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
