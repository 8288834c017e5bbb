package harness

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formflow/internal/engine"
	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/testutil"
)

func startTestSession(t *testing.T, sel engine.Selection) *engine.Session {
	t.Helper()
	sess, err := engine.Start(testutil.SampleForm(), sel,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithTokenGenerator(testutil.NewFixedTokenGenerator("tok")),
	)
	require.NoError(t, err)
	return sess
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertCursor,
		Expected: "0/1/0",
		Actual:   "0/0/0",
		Trace: []engine.Event{
			{Seq: 1, Kind: engine.EventRecord, QuestionID: 40, Cursor: &engine.Cursor{}},
			{Seq: 2, Kind: engine.EventAdvance, Error: engine.ErrCodeIncompleteAnswer, Cursor: &engine.Cursor{}},
		},
	}

	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: cursor")
	assert.Contains(t, msg, "Expected: 0/1/0")
	assert.Contains(t, msg, "Actual: 0/0/0")
	assert.Contains(t, msg, "[1] record question=40 at=0/0/0")
	assert.Contains(t, msg, "[2] advance at=0/0/0 error=INCOMPLETE_REQUIRED_ANSWER")
}

func TestAssertVisibleQuestions(t *testing.T) {
	sess := startTestSession(t, engine.Selection{Year: testutil.Year(2024)})

	assert.NoError(t, assertVisibleQuestions(sess, Assertion{Questions: []int64{100, 101, 10, 11, 20}}))

	err := assertVisibleQuestions(sess, Assertion{Questions: []int64{100, 10}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: [100 101 10 11 20]")
}

func TestAssertVisibleSections_OrderInsensitive(t *testing.T) {
	sess := startTestSession(t, engine.Selection{Year: testutil.Year(2024), Role: testutil.Role(ir.RoleTeamLead)})

	assert.NoError(t, assertVisibleSections(sess, Assertion{Sections: []int64{3, 1, 2}}))
	assert.Error(t, assertVisibleSections(sess, Assertion{Sections: []int64{1, 2}}))
}

func TestAssertNoMatchingSections(t *testing.T) {
	sess := startTestSession(t, engine.Selection{Year: testutil.Year(2001)})

	assert.NoError(t, assertNoMatchingSections(sess, Assertion{Expect: boolPtr(true)}))
	assert.Error(t, assertNoMatchingSections(sess, Assertion{Expect: boolPtr(false)}))
}

func TestAssertCursor_NoTraversal(t *testing.T) {
	sess := startTestSession(t, engine.Selection{})

	err := assertCursor(sess, Assertion{Cursor: &engine.Cursor{}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no traversal")
}

func TestAssertTraversal_Mismatch(t *testing.T) {
	sess := startTestSession(t, engine.Selection{Role: testutil.Role(ir.RoleManagement), ListIDs: []ir.ListID{2}})

	assert.NoError(t, assertTraversal(sess, Assertion{Steps: []string{"Team B/Carol/Peer Review"}}))

	err := assertTraversal(sess, Assertion{Steps: []string{"Team B/Carol/Goals"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: Team B/Carol/Peer Review")
}

func TestAssertPayload(t *testing.T) {
	sess := startTestSession(t, engine.Selection{Role: testutil.Role(ir.RoleManagement)})
	require.NoError(t, sess.Record(100, "Dana"))
	require.NoError(t, sess.Record(40, 5))
	require.NoError(t, sess.Record(41, "steady"))
	payload := sess.Payload().CanonicalMap()

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "scalar",
			assertion: Assertion{Path: []string{"responses", "100"}, Equals: "Dana"},
		},
		{
			name: "section map with int keys",
			assertion: Assertion{
				Path:   []string{"evaluations", "Team A", "Alice", "Peer Review"},
				Equals: map[any]any{40: 5, 41: "steady"},
			},
		},
		{
			name:      "empty section",
			assertion: Assertion{Path: []string{"evaluations", "Team A", "Bob", "Goals"}, Equals: map[string]any{}},
		},
		{
			name:      "list index",
			assertion: Assertion{Path: []string{"evaluated_people", "1"}, Equals: "Bob"},
		},
		{
			name:      "absent",
			assertion: Assertion{Path: []string{"selected_year"}, Absent: true},
		},
		{
			name:      "wrong value",
			assertion: Assertion{Path: []string{"evaluations", "Team A", "Alice", "Peer Review", "40"}, Equals: 4},
			wantErr:   `Actual: evaluations > Team A > Alice > Peer Review > 40 = 5`,
		},
		{
			name:      "missing path",
			assertion: Assertion{Path: []string{"evaluations", "Team C"}, Equals: map[string]any{}},
			wantErr:   "evaluations > Team C absent",
		},
		{
			name:      "present but expected absent",
			assertion: Assertion{Path: []string{"multiple_lists"}, Absent: true},
			wantErr:   "multiple_lists = true",
		},
		{
			name:      "index out of range",
			assertion: Assertion{Path: []string{"evaluated_people", "9"}, Equals: "Zed"},
			wantErr:   "absent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertPayload(payload, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertPayload_SetOrderInsensitive(t *testing.T) {
	sess := startTestSession(t, engine.Selection{Role: testutil.Role(ir.RoleTeamLead)})
	require.NoError(t, sess.Record(30, []any{"planning", "hiring"}))
	payload := sess.Payload().CanonicalMap()

	err := assertPayload(payload, Assertion{Path: []string{"responses", "30"}, Equals: []any{"hiring", "planning"}})
	assert.NoError(t, err)
	err = assertPayload(payload, Assertion{Path: []string{"responses", "30"}, Equals: []any{"planning", "hiring"}})
	assert.NoError(t, err)
}

func TestNormalizeYAML(t *testing.T) {
	in := map[any]any{
		40:     5,
		"rest": []any{map[any]any{1: "x"}},
	}
	want := map[string]any{
		"40":   5,
		"rest": []any{map[string]any{"1": "x"}},
	}
	assert.Equal(t, want, normalizeYAML(in))
}

func TestAssertTraceCount(t *testing.T) {
	trace := []engine.Event{
		{Seq: 1, Kind: engine.EventRecord},
		{Seq: 2, Kind: engine.EventAdvance},
		{Seq: 3, Kind: engine.EventAdvance},
	}

	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "advance", Count: intPtr(2)}))
	assert.NoError(t, assertTraceCount(trace, Assertion{Event: "submit", Count: intPtr(0)}))

	err := assertTraceCount(trace, Assertion{Event: "record", Count: intPtr(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record appears 1 times")
}

func TestAssertStoredAnswers_NothingSubmitted(t *testing.T) {
	err := assertStoredAnswers(context.Background(), nil, nil, Assertion{Count: intPtr(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing was submitted")
}

func TestEvaluateAssertions_RequiresSession(t *testing.T) {
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: AssertCursor}}, nil)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "requires a session")
}

func TestEvaluateAssertions_UnknownType(t *testing.T) {
	sess := startTestSession(t, engine.Selection{})
	errs := EvaluateAssertions(NewResult(), []Assertion{{Type: "final_state"}}, &AssertionContext{Session: sess})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `unknown assertion type "final_state"`)
}
