package harness

import (
	"github.com/roach88/formflow/internal/engine"
	"github.com/roach88/formflow/internal/ir"
)

// Result is what running one scenario produced.
type Result struct {
	// Pass is false once any step expectation or assertion fails.
	Pass bool `json:"pass"`

	// Trace is the session's event log in seq order.
	Trace []engine.Event `json:"trace"`

	// Errors lists failure messages in the order they were found.
	Errors []string `json:"errors,omitempty"`

	// Payload is the canonical map of the aggregated payload at the end of
	// the flow, submitted or not. Nil when the session never started.
	Payload map[string]any `json:"payload,omitempty"`

	// Submission is set when a submit step succeeded.
	Submission *ir.Submission `json:"submission,omitempty"`
}

// NewResult returns a passing result with empty, non-nil slices.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []engine.Event{},
		Errors: []string{},
	}
}

// AddError records a failure.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}
