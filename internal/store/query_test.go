package store

import (
	"context"
	"testing"

	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/queryir"
)

// seedAnswers stores one standard and two management submissions.
func seedAnswers(t *testing.T, s *Store) []*ir.Submission {
	t.Helper()
	ctx := context.Background()

	subs := []*ir.Submission{
		createTestSubmission(t, "tok-1", createStandardPayload("annual-review", ir.Answers{
			"100": ir.AnswerString("Jane"),
			"20":  ir.AnswerInt(4),
		})),
		createTestSubmission(t, "tok-2", createManagementPayload(
			"annual-review", "Team A", "Alice", "Peer Review",
			ir.Answers{"40": ir.AnswerInt(5), "41": ir.AnswerString("great")},
		)),
		createTestSubmission(t, "tok-3", createManagementPayload(
			"annual-review", "Team B", "Carol", "Peer Review",
			ir.Answers{"40": ir.AnswerInt(3)},
		)),
		createTestSubmission(t, "tok-4", createStandardPayload("pulse", ir.Answers{
			"1": ir.AnswerInt(2),
		})),
	}
	for _, sub := range subs {
		if _, _, err := s.WriteSubmission(ctx, sub); err != nil {
			t.Fatalf("WriteSubmission() failed: %v", err)
		}
	}
	return subs
}

func TestQueryAnswers_All(t *testing.T) {
	s := createTestStore(t)
	seedAnswers(t, s)

	got, err := s.QueryAnswers(context.Background(), AnswerFilter{})
	if err != nil {
		t.Fatalf("QueryAnswers() failed: %v", err)
	}
	// 2 standard + (1 + 2) + (1 + 1) management + 1 pulse
	if len(got) != 8 {
		t.Fatalf("len = %d, want 8", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Seq < got[i-1].Seq {
			t.Errorf("records out of seq order at %d: %d after %d", i, got[i].Seq, got[i-1].Seq)
		}
	}
	if got[0].QuestionID != 20 || got[1].QuestionID != 100 {
		t.Errorf("first submission questions = %d, %d, want 20, 100", got[0].QuestionID, got[1].QuestionID)
	}
	if got[7].FormID != "pulse" {
		t.Errorf("last record form = %q, want pulse", got[7].FormID)
	}
}

func TestQueryAnswers_Filters(t *testing.T) {
	s := createTestStore(t)
	subs := seedAnswers(t, s)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter AnswerFilter
		want   int
	}{
		{"form", AnswerFilter{FormID: "pulse"}, 1},
		{"unknown_form", AnswerFilter{FormID: "exit-interview"}, 0},
		{"kind", AnswerFilter{Kind: ir.PayloadManagement}, 5},
		{"question", AnswerFilter{FormID: "annual-review", QuestionID: 40}, 2},
		{"list", AnswerFilter{List: "Team A"}, 2},
		{"person", AnswerFilter{Person: "Carol"}, 1},
		{"person_trimmed", AnswerFilter{Person: "  Carol "}, 1},
		{"self", AnswerFilter{Person: ir.SelfPerson, QuestionID: 100}, 3},
		{"section", AnswerFilter{Section: "Peer Review", QuestionID: 41}, 1},
		{"combined", AnswerFilter{FormID: "annual-review", Kind: ir.PayloadManagement, List: "Team B", QuestionID: 40}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryAnswers(ctx, tt.filter)
			if err != nil {
				t.Fatalf("QueryAnswers() failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d (%+v)", len(got), tt.want, got)
			}
		})
	}

	got, err := s.QueryAnswers(ctx, AnswerFilter{List: "Team B", QuestionID: 40})
	if err != nil {
		t.Fatalf("QueryAnswers() failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	r := got[0]
	if r.SubmissionID != subs[2].ID || r.Seq != 3 || r.Person != "Carol" || string(r.Value) != "3" {
		t.Errorf("record = %+v, want Carol=3 in submission 3", r)
	}
}

func TestQueryAnswers_Empty(t *testing.T) {
	s := createTestStore(t)

	got, err := s.QueryAnswers(context.Background(), AnswerFilter{FormID: "annual-review"})
	if err != nil {
		t.Fatalf("QueryAnswers() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %v, want empty non-nil slice", got)
	}
}

func TestAnswerFilter_QueryIsValid(t *testing.T) {
	filters := []AnswerFilter{
		{},
		{FormID: "f", Kind: ir.PayloadStandard, QuestionID: 1, List: "l", Person: "p", Section: "s"},
	}
	for _, f := range filters {
		if v := queryir.Validate(f.Query(), queryir.ReportSchema); !v.Valid {
			t.Errorf("query for %+v is invalid: %v", f, v.Problems)
		}
	}
}
