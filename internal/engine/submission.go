package engine

import (
	"fmt"

	"github.com/roach88/formflow/internal/ir"
)

// NewSubmission turns an aggregated payload into a content-addressed
// submission with canonical JSON and flattened reporting rows. form is the
// configuration the session resolved against; its FormHash is recorded.
func NewSubmission(token string, form *ir.FormConfig, payload *ir.SubmissionPayload) (*ir.Submission, error) {
	id, canonical, err := ir.SubmissionID(token, payload)
	if err != nil {
		return nil, err
	}
	formHash, err := ir.FormHash(form)
	if err != nil {
		return nil, err
	}
	rows, err := payload.Rows()
	if err != nil {
		return nil, fmt.Errorf("flatten answers: %w", err)
	}
	return &ir.Submission{
		ID:           id,
		FormID:       payload.FormID,
		FormHash:     formHash,
		SessionToken: token,
		Kind:         payload.Kind,
		Payload:      canonical,
		Answers:      rows,
	}, nil
}
