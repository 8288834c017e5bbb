package engine

import "github.com/roach88/formflow/internal/ir"

// EventKind names a session operation.
type EventKind string

const (
	EventRecord  EventKind = "record"
	EventClear   EventKind = "clear"
	EventAdvance EventKind = "advance"
	EventRetreat EventKind = "retreat"
	EventSeek    EventKind = "seek"
	EventSubmit  EventKind = "submit"
)

// Event is one entry of a session trace.
//
// Cursor is the position after the operation; nil for standard sessions.
// Error holds the code of a rejected operation.
type Event struct {
	Seq        int64         `json:"seq"`
	Kind       EventKind     `json:"kind"`
	QuestionID ir.QuestionID `json:"question_id,omitempty"`
	Cursor     *Cursor       `json:"cursor,omitempty"`
	Moved      bool          `json:"moved,omitempty"`
	Error      ErrorCode     `json:"error,omitempty"`
}

// Trace returns the session's events in seq order.
func (s *Session) Trace() []Event {
	return append([]Event(nil), s.trace...)
}
