package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/formflow/internal/ir"
)

// ReadSubmission retrieves a single submission by ID, including its answer rows.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSubmission(ctx context.Context, id string) (ir.Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, form_id, form_hash, session_token, kind, payload, seq
		FROM submissions
		WHERE id = ?
	`, id)

	sub, err := scanSubmissionRow(row)
	if err != nil {
		return ir.Submission{}, err
	}

	answers, err := s.ReadAnswers(ctx, id)
	if err != nil {
		return ir.Submission{}, err
	}
	sub.Answers = answers

	return sub, nil
}

// ReadPayload retrieves and decodes the payload of a submission.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadPayload(ctx context.Context, id string) (*ir.SubmissionPayload, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM submissions WHERE id = ?`, id).Scan(&data)
	if err != nil {
		return nil, err
	}
	return unmarshalPayload(data)
}

// ListSubmissions returns the submissions for a form, or every submission
// when formID is empty. Answer rows are not loaded.
// Results are ordered by seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if no submissions exist.
func (s *Store) ListSubmissions(ctx context.Context, formID string) ([]ir.Submission, error) {
	var rows *sql.Rows
	var err error
	if formID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, form_id, form_hash, session_token, kind, payload, seq
			FROM submissions
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, form_id, form_hash, session_token, kind, payload, seq
			FROM submissions
			WHERE form_id = ?
			ORDER BY seq ASC, id COLLATE BINARY ASC
		`, formID)
	}
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	subs := []ir.Submission{}
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}

	return subs, nil
}

// ReadAnswers returns the flattened answer rows of a submission ordered by
// list, person, section and question.
//
// Returns an empty slice (not nil) if the submission has no answers.
func (s *Store) ReadAnswers(ctx context.Context, submissionID string) ([]ir.AnswerRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT list_name, person, section, question_id, value
		FROM submission_answers
		WHERE submission_id = ?
		ORDER BY list_name COLLATE BINARY ASC, person COLLATE BINARY ASC,
			section COLLATE BINARY ASC, question_id ASC
	`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("read answers: %w", err)
	}
	defer rows.Close()

	answers := []ir.AnswerRow{}
	for rows.Next() {
		var a ir.AnswerRow
		var qid int64
		var value string
		if err := rows.Scan(&a.ListName, &a.Person, &a.Section, &qid, &value); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.QuestionID = ir.QuestionID(qid)
		a.Value = []byte(value)
		answers = append(answers, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}

	return answers, nil
}

// CountAnswers returns the number of stored answers for a question across
// every submission of a form.
func (s *Store) CountAnswers(ctx context.Context, formID string, qid ir.QuestionID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM submission_answers a
		JOIN submissions s ON s.id = a.submission_id
		WHERE a.question_id = ? AND s.form_id = ?
	`, int64(qid), formID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return count, nil
}

// scanSubmission scans a row into a Submission struct.
func scanSubmission(rows *sql.Rows) (ir.Submission, error) {
	var sub ir.Submission
	var kind, payload string

	if err := rows.Scan(&sub.ID, &sub.FormID, &sub.FormHash, &sub.SessionToken, &kind, &payload, &sub.Seq); err != nil {
		return ir.Submission{}, fmt.Errorf("scan submission: %w", err)
	}

	sub.Kind = ir.PayloadKind(kind)
	sub.Payload = []byte(payload)
	return sub, nil
}

// scanSubmissionRow scans a single row into a Submission struct.
func scanSubmissionRow(row *sql.Row) (ir.Submission, error) {
	var sub ir.Submission
	var kind, payload string

	if err := row.Scan(&sub.ID, &sub.FormID, &sub.FormHash, &sub.SessionToken, &kind, &payload, &sub.Seq); err != nil {
		return ir.Submission{}, err
	}

	sub.Kind = ir.PayloadKind(kind)
	sub.Payload = []byte(payload)
	return sub, nil
}
