package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formflow/internal/engine"
)

func traceJSON(t *testing.T, script string, args ...string) (TraceResult, CLIResponse, error) {
	t.Helper()
	out, err := execute(NewTraceCommand(&RootOptions{Format: "json"}), append([]string{formsDir, scriptPath(script)}, args...)...)
	var result TraceResult
	resp := decodeResponse(t, out, &result)
	return result, resp, err
}

func TestTraceManagementTimeline(t *testing.T) {
	result, resp, err := traceJSON(t, "manager.yaml")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)

	assert.Equal(t, "annual-review", result.Form)
	assert.Equal(t, engine.FlowManagement, result.Flow)
	assert.Equal(t, []TraceEvent{
		{Seq: 1, Kind: "record", QuestionID: 100, Cursor: "0/0/0"},
		{Seq: 2, Kind: "record", QuestionID: 40, Cursor: "0/0/0"},
		{Seq: 3, Kind: "record", QuestionID: 41, Cursor: "0/0/0"},
		{Seq: 4, Kind: "advance", Cursor: "0/0/0"},
	}, result.Timeline)
	assert.Equal(t, TraceStats{TotalEvents: 4, Position: 0, Positions: 1, Ready: true}, result.Stats)
	assert.Empty(t, result.SubmissionID, "trace does not auto-submit")
}

func TestTraceStandardSubmitted(t *testing.T) {
	result, _, err := traceJSON(t, "team_lead.yaml")
	require.NoError(t, err)

	assert.Equal(t, "script-session-0001", result.SessionToken)
	assert.Equal(t, engine.FlowStandard, result.Flow)
	require.Len(t, result.Timeline, 5)
	assert.Equal(t, "submit", result.Timeline[4].Kind)
	assert.Empty(t, result.Timeline[4].Cursor)
	assert.True(t, result.Stats.Submitted)
	assert.Len(t, result.SubmissionID, 64)
}

func TestTraceKindFilter(t *testing.T) {
	result, _, err := traceJSON(t, "manager.yaml", "--kind", "advance")
	require.NoError(t, err)

	require.Len(t, result.Timeline, 1)
	assert.Equal(t, int64(4), result.Timeline[0].Seq)
	assert.Equal(t, 4, result.Stats.TotalEvents, "stats cover the unfiltered trace")
}

func TestTraceMismatchStillReportsTimeline(t *testing.T) {
	result, resp, err := traceJSON(t, "incomplete.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScriptFailed, resp.Error.Code)
	require.Len(t, result.Timeline, 2)
	assert.Equal(t, string(engine.ErrCodeIncompleteAnswer), result.Timeline[1].Error)
	assert.Equal(t, 1, result.Stats.Rejected)
	assert.NotEmpty(t, result.Failure)
}

func TestTraceText(t *testing.T) {
	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), formsDir, scriptPath("manager.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "on form annual-review (management flow)")
	assert.Contains(t, out, "[1] record  question=100 at=0/0/0")
	assert.Contains(t, out, "[4] advance at=0/0/0")
	assert.Contains(t, out, "Events: 4 (0 rejected, 0 move(s))")
	assert.Contains(t, out, "Position: 1 of 1")
	assert.Contains(t, out, "At final position")
}

func TestTraceTextMismatch(t *testing.T) {
	out, err := execute(NewTraceCommand(&RootOptions{Format: "text"}), formsDir, scriptPath("incomplete.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "error=INCOMPLETE_REQUIRED_ANSWER")
	assert.Contains(t, out, "✗ flow[1] submit")
}
