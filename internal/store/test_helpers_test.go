package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/formflow/internal/engine"
	"github.com/roach88/formflow/internal/ir"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createStandardPayload creates a standard payload with the given responses.
func createStandardPayload(formID string, responses ir.Answers) *ir.SubmissionPayload {
	return &ir.SubmissionPayload{
		FormID:         formID,
		Kind:           ir.PayloadStandard,
		RespondentInfo: map[string]string{},
		Responses:      responses,
	}
}

// createManagementPayload creates a multi-list management payload with one
// person evaluated in one section.
func createManagementPayload(formID, list, person, section string, answers ir.Answers) *ir.SubmissionPayload {
	return &ir.SubmissionPayload{
		FormID:         formID,
		Kind:           ir.PayloadManagement,
		SelectedRole:   ir.RoleManagement,
		RespondentInfo: map[string]string{"name": "Dana"},
		Responses:      ir.Answers{"100": ir.AnswerString("Dana")},
		Evaluations: map[string]ir.PersonEvaluations{
			list: {person: {section: answers}},
		},
		EvaluatedPeople: []string{person},
		MultipleLists:   true,
	}
}

// createTestSubmission turns a payload into a submission for the given token.
// The recorded form is a bare configuration carrying only the payload's form id.
func createTestSubmission(t *testing.T, token string, payload *ir.SubmissionPayload) *ir.Submission {
	t.Helper()
	sub, err := engine.NewSubmission(token, &ir.FormConfig{ID: payload.FormID}, payload)
	if err != nil {
		t.Fatalf("NewSubmission() failed: %v", err)
	}
	return sub
}
