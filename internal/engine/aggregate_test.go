package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/testutil"
)

func TestAggregate_Standard(t *testing.T) {
	s := startSession(t, testutil.SampleForm(), Selection{
		Year:       testutil.Year(2024),
		Role:       testutil.Role(ir.RoleEmployee),
		Respondent: map[string]string{"name": "Jane"},
	})
	require.NoError(t, s.Record(100, "Jane"))
	require.NoError(t, s.Record(10, "yes"))
	require.NoError(t, s.Record(20, 4))

	want := &ir.SubmissionPayload{
		FormID:         "annual-review",
		Kind:           ir.PayloadStandard,
		RespondentInfo: map[string]string{"name": "Jane"},
		SelectedYear:   testutil.Year(2024),
		SelectedRole:   ir.RoleEmployee,
		Responses: ir.Answers{
			"100": ir.AnswerString("Jane"),
			"10":  ir.AnswerString("yes"),
			"20":  ir.AnswerInt(4),
		},
	}
	if diff := cmp.Diff(want, s.Payload()); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_ManagementMultiList(t *testing.T) {
	s := startSession(t, testutil.SampleForm(), Selection{
		Year: testutil.Year(2024),
		Role: testutil.Role(ir.RoleManagement),
	})
	require.NoError(t, s.Record(100, "Mo"))

	// Team A: Alice (Peer Review, Goals), Bob (Peer Review, Goals); Team B: Carol (Peer Review)
	answers := []struct {
		qid   ir.QuestionID
		value any
	}{
		{40, 5}, {50, "Ship it"},
		{40, 3}, {50, "Mentor"},
		{40, 4},
	}
	for i, a := range answers {
		require.NoError(t, s.Record(a.qid, a.value), "position %d", i)
		moved, err := s.Advance()
		require.NoError(t, err)
		assert.Equal(t, i < len(answers)-1, moved)
	}
	// back to Bob's Peer Review page for optional feedback
	for i := 0; i < 2; i++ {
		_, err := s.Retreat()
		require.NoError(t, err)
	}
	require.NoError(t, s.Record(41, "Solid"))

	want := &ir.SubmissionPayload{
		FormID:         "annual-review",
		Kind:           ir.PayloadManagement,
		RespondentInfo: map[string]string{},
		SelectedYear:   testutil.Year(2024),
		SelectedRole:   ir.RoleManagement,
		Responses:      ir.Answers{"100": ir.AnswerString("Mo")},
		Evaluations: map[string]ir.PersonEvaluations{
			"Team A": {
				"Alice": {
					"Peer Review": {"40": ir.AnswerInt(5)},
					"Goals":       {"50": ir.AnswerString("Ship it")},
				},
				"Bob": {
					"Peer Review": {"40": ir.AnswerInt(3), "41": ir.AnswerString("Solid")},
					"Goals":       {"50": ir.AnswerString("Mentor")},
				},
			},
			"Team B": {
				"Carol": {
					"Peer Review": {"40": ir.AnswerInt(4)},
				},
			},
		},
		EvaluatedPeople: []string{"Alice", "Bob", "Carol"},
		MultipleLists:   true,
	}
	if diff := cmp.Diff(want, s.Payload()); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_ManagementUnansweredLeavesEmptyGroups(t *testing.T) {
	s := startSession(t, testutil.SampleForm(), Selection{
		Role:    testutil.Role(ir.RoleManagement),
		ListIDs: []ir.ListID{2},
	})

	p := s.Payload()
	assert.Equal(t, ir.Answers{}, p.Evaluations["Team B"]["Carol"]["Peer Review"], "no null entries")
	assert.Equal(t, []string{"Carol"}, p.EvaluatedPeople)
	assert.Empty(t, p.Responses)
	assert.Nil(t, p.SelectedYear)
}

func TestAggregate_Legacy(t *testing.T) {
	form := testutil.SampleForm()
	form.ManagementLists = nil
	form.RoleRules = append(form.RoleRules, ir.RoleRule{
		Role:       ir.RoleManagement,
		SectionIDs: ir.NewSectionSet(testutil.SectionGoals),
		People:     []string{"Dana", "Eli"},
	})

	s := startSession(t, form, Selection{Role: testutil.Role(ir.RoleManagement)})
	require.NoError(t, s.Record(50, "Grow"))
	_, err := s.Advance()
	require.NoError(t, err)
	require.NoError(t, s.Record(50, "Hire"))

	want := &ir.SubmissionPayload{
		FormID:         "annual-review",
		Kind:           ir.PayloadManagement,
		RespondentInfo: map[string]string{},
		SelectedRole:   ir.RoleManagement,
		Responses:      ir.Answers{},
		EvaluationsByPerson: ir.PersonEvaluations{
			"Dana": {"Goals": {"50": ir.AnswerString("Grow")}},
			"Eli":  {"Goals": {"50": ir.AnswerString("Hire")}},
		},
		EvaluatedPeople: []string{"Dana", "Eli"},
		MultipleLists:   false,
	}
	if diff := cmp.Diff(want, s.Payload()); diff != "" {
		t.Errorf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_DuplicatePeopleShareAnswers(t *testing.T) {
	form := testutil.SampleForm()
	form.ManagementLists = []ir.ManagementList{
		{ID: 1, Name: "Dupes", People: []string{"Alice", "Alice"}, SectionIDs: ir.NewSectionSet(testutil.SectionGoals)},
	}

	s := startSession(t, form, Selection{Role: testutil.Role(ir.RoleManagement)})
	require.NoError(t, s.Record(50, "Once"))
	_, err := s.Advance()
	require.NoError(t, err)

	v, ok := s.Answer(50)
	require.True(t, ok, "second slot sees the first slot's answer")
	assert.Equal(t, ir.AnswerString("Once"), v)

	p := s.Payload()
	assert.Equal(t, []string{"Alice", "Alice"}, p.EvaluatedPeople)
	assert.Len(t, p.Evaluations["Dupes"], 1)
}

func TestNewSubmission(t *testing.T) {
	s := startSession(t, testutil.SampleForm(), Selection{Year: testutil.Year(2024)})
	require.NoError(t, s.Record(100, "Jane"))
	require.NoError(t, s.Record(10, "yes"))
	require.NoError(t, s.Record(20, 4))

	sub, err := NewSubmission("session-1", s.Form(), s.Payload())
	require.NoError(t, err)

	assert.Len(t, sub.ID, 64, "sha256 hex")
	formHash, err := ir.FormHash(testutil.SampleForm())
	require.NoError(t, err)
	assert.Equal(t, formHash, sub.FormHash, "records the rule set the session resolved against")
	assert.Equal(t,
		`{"form_id":"annual-review","kind":"standard","multiple_lists":false,"payload_version":"1","respondent_info":{},"responses":{"10":"yes","100":"Jane","20":4},"selected_year":2024}`,
		string(sub.Payload))

	require.Len(t, sub.Answers, 3)
	assert.Equal(t, ir.QuestionID(10), sub.Answers[0].QuestionID)
	assert.Equal(t, ir.SelfPerson, sub.Answers[0].Person)
	assert.Equal(t, `"yes"`, string(sub.Answers[0].Value))
	assert.Equal(t, ir.QuestionID(20), sub.Answers[1].QuestionID)
	assert.Equal(t, ir.QuestionID(100), sub.Answers[2].QuestionID)

	other, err := NewSubmission("session-2", s.Form(), s.Payload())
	require.NoError(t, err)
	assert.NotEqual(t, sub.ID, other.ID, "token is part of the identity")
	assert.Equal(t, sub.Payload, other.Payload)

	edited := testutil.SampleForm()
	edited.Title = "Annual review 2025"
	third, err := NewSubmission("session-1", edited, s.Payload())
	require.NoError(t, err)
	assert.Equal(t, sub.ID, third.ID, "the form hash is not part of the content address")
	assert.NotEqual(t, sub.FormHash, third.FormHash)
}
