package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/formflow/internal/ir"
)

// unmarshalPayload parses a stored canonical payload.
// Answer values decode through ir.Answers, so integers never pass through
// float64.
func unmarshalPayload(data string) (*ir.SubmissionPayload, error) {
	var p ir.SubmissionPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.RespondentInfo == nil {
		p.RespondentInfo = map[string]string{}
	}
	if p.Responses == nil {
		p.Responses = ir.Answers{}
	}
	return &p, nil
}
