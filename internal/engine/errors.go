package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/formflow/internal/ir"
)

// EngineError represents an error surfaced to the respondent input surface.
//
// Engine errors include:
//   - Incomplete answer: a required question on the page has no value
//   - Unknown question: the question is not visible at the current position
//   - Invalid answer: the value does not fit the question type or options
//   - Session closed: the session was already submitted
//
// EngineError includes structured fields so the UI can highlight the
// offending question.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// SessionToken identifies the affected session.
	SessionToken string

	// QuestionID identifies the question, zero when not applicable.
	QuestionID ir.QuestionID

	// Cursor is the traversal position, nil for standard pages.
	Cursor *Cursor

	// Details contains additional context.
	Details map[string]string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeIncompleteAnswer indicates a required question has no usable value.
	ErrCodeIncompleteAnswer ErrorCode = "INCOMPLETE_REQUIRED_ANSWER"

	// ErrCodeUnknownQuestion indicates the question is not visible here.
	ErrCodeUnknownQuestion ErrorCode = "UNKNOWN_QUESTION"

	// ErrCodeInvalidAnswer indicates a value does not fit the question.
	ErrCodeInvalidAnswer ErrorCode = "INVALID_ANSWER"

	// ErrCodeSessionClosed indicates the session was already submitted.
	ErrCodeSessionClosed ErrorCode = "SESSION_CLOSED"

	// ErrCodeUnknownList indicates a selected management list does not exist.
	ErrCodeUnknownList ErrorCode = "UNKNOWN_LIST"

	// ErrCodeDuplicateList indicates two planned lists, or two sections of
	// one list, would share a key in the aggregated payload.
	ErrCodeDuplicateList ErrorCode = "DUPLICATE_LIST"

	// ErrCodeCursorOutOfRange indicates Seek was asked for a missing position.
	ErrCodeCursorOutOfRange ErrorCode = "CURSOR_OUT_OF_RANGE"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	switch {
	case e.QuestionID != 0 && e.Cursor != nil:
		return fmt.Sprintf("%s: %s (question=%d, at=%s)", e.Code, e.Message, e.QuestionID, e.Cursor)
	case e.QuestionID != 0:
		return fmt.Sprintf("%s: %s (question=%d)", e.Code, e.Message, e.QuestionID)
	case e.Cursor != nil:
		return fmt.Sprintf("%s: %s (at=%s)", e.Code, e.Message, e.Cursor)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// CodeOf returns the ErrorCode of an EngineError anywhere in err's chain,
// or "" if there is none.
func CodeOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

// IsIncompleteAnswer returns true if the error blocks on a missing required answer.
// Uses errors.As to handle wrapped errors.
func IsIncompleteAnswer(err error) bool {
	return CodeOf(err) == ErrCodeIncompleteAnswer
}

// IsUnknownQuestion returns true if the error is an unknown question error.
func IsUnknownQuestion(err error) bool {
	return CodeOf(err) == ErrCodeUnknownQuestion
}

// IsInvalidAnswer returns true if the error is an invalid answer error.
func IsInvalidAnswer(err error) bool {
	return CodeOf(err) == ErrCodeInvalidAnswer
}

// IsSessionClosed returns true if the session was already submitted.
func IsSessionClosed(err error) bool {
	return CodeOf(err) == ErrCodeSessionClosed
}

// NewIncompleteAnswerError creates an EngineError for a missing required answer.
func NewIncompleteAnswerError(token string, qid ir.QuestionID, at *Cursor) *EngineError {
	return &EngineError{
		Code:         ErrCodeIncompleteAnswer,
		Message:      "required question has no answer",
		SessionToken: token,
		QuestionID:   qid,
		Cursor:       at,
	}
}

// NewInvalidAnswerError creates an EngineError for a value that does not fit.
func NewInvalidAnswerError(token string, qid ir.QuestionID, reason string) *EngineError {
	return &EngineError{
		Code:         ErrCodeInvalidAnswer,
		Message:      reason,
		SessionToken: token,
		QuestionID:   qid,
	}
}
