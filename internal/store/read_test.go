package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/roach88/formflow/internal/ir"
)

func TestReadSubmission_Exists(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	sub := createTestSubmission(t, "tok-1", createManagementPayload(
		"annual-review", "Team A", "Alice", "Peer Review",
		ir.Answers{"40": ir.AnswerInt(5)},
	))
	if _, _, err := s.WriteSubmission(ctx, sub); err != nil {
		t.Fatalf("WriteSubmission() failed: %v", err)
	}

	got, err := s.ReadSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("ReadSubmission() failed: %v", err)
	}

	if got.ID != sub.ID {
		t.Errorf("ID = %q, want %q", got.ID, sub.ID)
	}
	if got.FormID != "annual-review" {
		t.Errorf("FormID = %q, want %q", got.FormID, "annual-review")
	}
	if got.SessionToken != "tok-1" {
		t.Errorf("SessionToken = %q, want %q", got.SessionToken, "tok-1")
	}
	if got.FormHash != sub.FormHash {
		t.Errorf("FormHash = %q, want %q", got.FormHash, sub.FormHash)
	}
	if got.Kind != ir.PayloadManagement {
		t.Errorf("Kind = %q, want %q", got.Kind, ir.PayloadManagement)
	}
	if got.Seq != 1 {
		t.Errorf("Seq = %d, want 1", got.Seq)
	}
	if string(got.Payload) != string(sub.Payload) {
		t.Errorf("Payload = %s, want %s", got.Payload, sub.Payload)
	}
	if len(got.Answers) != 2 {
		t.Fatalf("len(Answers) = %d, want 2", len(got.Answers))
	}
	if got.Answers[1].Person != "Alice" || got.Answers[1].QuestionID != 40 {
		t.Errorf("Answers[1] = %+v, want Alice/40", got.Answers[1])
	}
}

func TestReadSubmission_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadSubmission(context.Background(), "nonexistent")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestReadPayload_DecodesAnswers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	year := 2024
	payload := createStandardPayload("annual-review", ir.Answers{
		"10": ir.AnswerString("yes"),
		"20": ir.AnswerInt(4),
		"30": ir.NewAnswerSet("mentoring", "hiring"),
	})
	payload.SelectedYear = &year
	payload.SelectedRole = ir.RoleTeamLead

	sub := createTestSubmission(t, "tok-1", payload)
	if _, _, err := s.WriteSubmission(ctx, sub); err != nil {
		t.Fatalf("WriteSubmission() failed: %v", err)
	}

	got, err := s.ReadPayload(ctx, sub.ID)
	if err != nil {
		t.Fatalf("ReadPayload() failed: %v", err)
	}

	if got.SelectedYear == nil || *got.SelectedYear != 2024 {
		t.Errorf("SelectedYear = %v, want 2024", got.SelectedYear)
	}
	if got.SelectedRole != ir.RoleTeamLead {
		t.Errorf("SelectedRole = %q, want %q", got.SelectedRole, ir.RoleTeamLead)
	}
	if v, ok := got.Responses["20"].(ir.AnswerInt); !ok || v != 4 {
		t.Errorf("Responses[20] = %#v, want AnswerInt(4)", got.Responses["20"])
	}
	set, ok := got.Responses["30"].(ir.AnswerSet)
	if !ok || len(set) != 2 || set[0] != "hiring" || set[1] != "mentoring" {
		t.Errorf("Responses[30] = %#v, want [hiring mentoring]", got.Responses["30"])
	}

	// Re-canonicalizing the decoded payload reproduces the stored bytes.
	again := createTestSubmission(t, "tok-1", got)
	if again.ID != sub.ID {
		t.Errorf("decoded payload hashes to %q, want %q", again.ID, sub.ID)
	}
}

func TestReadPayload_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadPayload(context.Background(), "nonexistent")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListSubmissions_Empty(t *testing.T) {
	s := createTestStore(t)

	subs, err := s.ListSubmissions(context.Background(), "")
	if err != nil {
		t.Fatalf("ListSubmissions() failed: %v", err)
	}
	if subs == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(subs) != 0 {
		t.Errorf("expected 0 submissions, got %d", len(subs))
	}
}

func TestListSubmissions_DeterministicOrdering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tokens := []string{"tok-c", "tok-a", "tok-b"}
	for _, tok := range tokens {
		sub := createTestSubmission(t, tok, createStandardPayload("annual-review", ir.Answers{
			"10": ir.AnswerString("yes"),
		}))
		if _, _, err := s.WriteSubmission(ctx, sub); err != nil {
			t.Fatalf("WriteSubmission(%s) failed: %v", tok, err)
		}
	}

	subs, err := s.ListSubmissions(ctx, "")
	if err != nil {
		t.Fatalf("ListSubmissions() failed: %v", err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(subs))
	}

	// Insertion order, not token order
	for i, tok := range tokens {
		if subs[i].SessionToken != tok {
			t.Errorf("subs[%d].SessionToken = %q, want %q", i, subs[i].SessionToken, tok)
		}
		if subs[i].Seq != int64(i+1) {
			t.Errorf("subs[%d].Seq = %d, want %d", i, subs[i].Seq, i+1)
		}
		if subs[i].Answers != nil {
			t.Errorf("subs[%d].Answers loaded, want nil", i)
		}
	}
}

func TestListSubmissions_FilterByForm(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, form := range []string{"annual-review", "onboarding", "annual-review"} {
		tok := fmt.Sprintf("tok-%d", i)
		sub := createTestSubmission(t, tok, createStandardPayload(form, ir.Answers{}))
		if _, _, err := s.WriteSubmission(ctx, sub); err != nil {
			t.Fatalf("WriteSubmission() failed: %v", err)
		}
	}

	subs, err := s.ListSubmissions(ctx, "annual-review")
	if err != nil {
		t.Fatalf("ListSubmissions() failed: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(subs))
	}
	for _, sub := range subs {
		if sub.FormID != "annual-review" {
			t.Errorf("FormID = %q, want annual-review", sub.FormID)
		}
	}
	if subs[0].Seq >= subs[1].Seq {
		t.Errorf("seq order = %d, %d, want ascending", subs[0].Seq, subs[1].Seq)
	}
}

func TestReadAnswers_Ordering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	payload := createManagementPayload("annual-review", "Team A", "Bob", "Peer Review",
		ir.Answers{"41": ir.AnswerString("ok"), "40": ir.AnswerInt(3)})
	payload.Evaluations["Team A"]["Alice"] = ir.SectionAnswers{"Goals": {"50": ir.AnswerString("ship")}}
	payload.EvaluatedPeople = []string{"Bob", "Alice"}

	sub := createTestSubmission(t, "tok-1", payload)
	if _, _, err := s.WriteSubmission(ctx, sub); err != nil {
		t.Fatalf("WriteSubmission() failed: %v", err)
	}

	answers, err := s.ReadAnswers(ctx, sub.ID)
	if err != nil {
		t.Fatalf("ReadAnswers() failed: %v", err)
	}

	want := []struct {
		person string
		qid    ir.QuestionID
		value  string
	}{
		{"self", 100, `"Dana"`},
		{"Alice", 50, `"ship"`},
		{"Bob", 40, `3`},
		{"Bob", 41, `"ok"`},
	}
	if len(answers) != len(want) {
		t.Fatalf("got %d answers, want %d", len(answers), len(want))
	}
	for i, w := range want {
		a := answers[i]
		if a.Person != w.person || a.QuestionID != w.qid || string(a.Value) != w.value {
			t.Errorf("answers[%d] = %s/%d/%s, want %s/%d/%s",
				i, a.Person, a.QuestionID, a.Value, w.person, w.qid, w.value)
		}
	}
}

func TestReadAnswers_Empty(t *testing.T) {
	s := createTestStore(t)

	answers, err := s.ReadAnswers(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("ReadAnswers() failed: %v", err)
	}
	if answers == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestCountAnswers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, tok := range []string{"tok-a", "tok-b"} {
		sub := createTestSubmission(t, tok, createStandardPayload("annual-review", ir.Answers{
			"10": ir.AnswerString("yes"),
		}))
		if _, _, err := s.WriteSubmission(ctx, sub); err != nil {
			t.Fatalf("WriteSubmission() failed: %v", err)
		}
	}

	n, err := s.CountAnswers(ctx, "annual-review", 10)
	if err != nil {
		t.Fatalf("CountAnswers() failed: %v", err)
	}
	if n != 2 {
		t.Errorf("CountAnswers(10) = %d, want 2", n)
	}

	n, err = s.CountAnswers(ctx, "onboarding", 10)
	if err != nil {
		t.Fatalf("CountAnswers() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("CountAnswers(onboarding, 10) = %d, want 0", n)
	}
}
