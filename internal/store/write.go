package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/formflow/internal/ir"
)

// ErrEmptySubmission is returned when a submission has no id or payload.
var ErrEmptySubmission = errors.New("submission has no id or payload")

// WriteSubmission stores a submission and its flattened answers in one
// transaction. Returns the assigned seq and whether a new record was inserted.
//
// Uses ON CONFLICT(id) DO NOTHING for idempotency. If the submission already
// exists its answers are left untouched and the existing seq is returned with
// inserted=false. sub.Seq is set to the returned seq.
func (s *Store) WriteSubmission(ctx context.Context, sub *ir.Submission) (seq int64, inserted bool, err error) {
	if sub.ID == "" || len(sub.Payload) == 0 {
		return 0, false, fmt.Errorf("write submission: %w", ErrEmptySubmission)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("write submission: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO submissions
		(id, form_id, form_hash, session_token, kind, payload, engine_version, payload_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sub.ID,
		sub.FormID,
		sub.FormHash,
		sub.SessionToken,
		string(sub.Kind),
		string(sub.Payload),
		ir.EngineVersion,
		ir.PayloadVersion,
	)
	if err != nil {
		return 0, false, fmt.Errorf("write submission: insert: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("write submission: rows affected: %w", err)
	}

	if rowsAffected == 0 {
		err = tx.QueryRowContext(ctx, `SELECT seq FROM submissions WHERE id = ?`, sub.ID).Scan(&seq)
		if err != nil {
			return 0, false, fmt.Errorf("write submission: select existing: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("write submission: commit: %w", err)
		}
		sub.Seq = seq
		return seq, false, nil
	}

	seq, err = result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("write submission: last insert id: %w", err)
	}

	if err := writeAnswers(ctx, tx, sub.ID, sub.Answers); err != nil {
		return 0, false, fmt.Errorf("write submission: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("write submission: commit: %w", err)
	}

	sub.Seq = seq
	return seq, true, nil
}

// writeAnswers inserts the flattened answer rows of a submission.
// Duplicate addresses are ignored; Rows never produces them.
func writeAnswers(ctx context.Context, tx *sql.Tx, submissionID string, rows []ir.AnswerRow) error {
	if len(rows) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO submission_answers
		(submission_id, list_name, person, section, question_id, value)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare answers: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		_, err := stmt.ExecContext(ctx,
			submissionID,
			row.ListName,
			row.Person,
			row.Section,
			int64(row.QuestionID),
			string(row.Value),
		)
		if err != nil {
			return fmt.Errorf("insert answer %d: %w", row.QuestionID, err)
		}
	}
	return nil
}
