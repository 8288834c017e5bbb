package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formflow/internal/engine"
	"github.com/roach88/formflow/internal/ir"
)

// writeScenario writes content to a YAML file in a temp dir.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
form: annual-review
session_token: tok-1
respondent:
  year: 2024
  role: team_lead
  lists: [1]
  info: { name: Jane }
flow:
  - record: 10
    value: "yes"
  - action: advance
    times: 2
    expect:
      moved: false
  - seek: { list: 0, person: 1, section: 0 }
    expect:
      error: CURSOR_OUT_OF_RANGE
assertions:
  - type: visible_questions
    questions: [100, 10]
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "annual-review", scenario.Form)
	assert.Equal(t, "tok-1", scenario.SessionToken)
	require.NotNil(t, scenario.Respondent.Year)
	assert.Equal(t, 2024, *scenario.Respondent.Year)
	assert.Equal(t, "team_lead", scenario.Respondent.Role)
	assert.Equal(t, []int64{1}, scenario.Respondent.Lists)
	assert.Equal(t, map[string]string{"name": "Jane"}, scenario.Respondent.Info)

	require.Len(t, scenario.Flow, 3)
	assert.Equal(t, StepRecord, scenario.Flow[0].Kind())
	assert.Equal(t, "yes", scenario.Flow[0].Value)
	assert.Equal(t, StepAdvance, scenario.Flow[1].Kind())
	assert.Equal(t, 2, scenario.Flow[1].Times)
	require.NotNil(t, scenario.Flow[1].Expect.Moved)
	assert.False(t, *scenario.Flow[1].Expect.Moved)
	assert.Equal(t, StepSeek, scenario.Flow[2].Kind())
	assert.Equal(t, engine.Cursor{ListIndex: 0, PersonIndex: 1, SectionIndex: 0}, *scenario.Flow[2].Seek)
	assert.Equal(t, "CURSOR_OUT_OF_RANGE", scenario.Flow[2].Expect.Error)

	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, []int64{100, 10}, scenario.Assertions[0].Questions)
}

func TestLoadScenario_TestdataFiles(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			_, err := LoadScenario(path)
			assert.NoError(t, err)
		})
	}
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, `
name: typo
description: "Misspelled assertions key"
form: annual-review
assertion:
  - type: cursor
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_FileNotFound(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing name",
			content: `
description: d
form: f
assertions: [{type: visible_questions}]
`,
			wantErr: "name is required",
		},
		{
			name: "missing description",
			content: `
name: n
form: f
assertions: [{type: visible_questions}]
`,
			wantErr: "description is required",
		},
		{
			name: "missing form",
			content: `
name: n
description: d
assertions: [{type: visible_questions}]
`,
			wantErr: "form is required",
		},
		{
			name: "unknown role",
			content: `
name: n
description: d
form: f
respondent: { role: director }
assertions: [{type: visible_questions}]
`,
			wantErr: "respondent",
		},
		{
			name: "no assertions",
			content: `
name: n
description: d
form: f
`,
			wantErr: "assertions list is required",
		},
		{
			name: "step with two operations",
			content: `
name: n
description: d
form: f
flow:
  - record: 10
    value: x
    action: advance
assertions: [{type: visible_questions}]
`,
			wantErr: "flow[0]: exactly one of",
		},
		{
			name: "record without value",
			content: `
name: n
description: d
form: f
flow:
  - record: 10
assertions: [{type: visible_questions}]
`,
			wantErr: "value is required for record",
		},
		{
			name: "unknown action",
			content: `
name: n
description: d
form: f
flow:
  - action: jump
assertions: [{type: visible_questions}]
`,
			wantErr: `unknown action "jump"`,
		},
		{
			name: "times on record",
			content: `
name: n
description: d
form: f
flow:
  - record: 10
    value: x
    times: 2
assertions: [{type: visible_questions}]
`,
			wantErr: "times only applies",
		},
		{
			name: "unknown assertion type",
			content: `
name: n
description: d
form: f
assertions: [{type: final_state}]
`,
			wantErr: `unknown assertion type "final_state"`,
		},
		{
			name: "payload without equals or absent",
			content: `
name: n
description: d
form: f
assertions: [{type: payload, path: [responses]}]
`,
			wantErr: "exactly one of equals or absent",
		},
		{
			name: "trace_count without count",
			content: `
name: n
description: d
form: f
assertions: [{type: trace_count, event: advance}]
`,
			wantErr: "count must be non-negative",
		},
		{
			name: "cursor without cursor",
			content: `
name: n
description: d
form: f
assertions: [{type: cursor}]
`,
			wantErr: "cursor is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScript_RelaxedFields(t *testing.T) {
	path := writeScenario(t, `
form: annual-review
respondent: { role: employee }
flow:
  - record: 100
    value: Sam
`)

	script, err := LoadScript(path)
	require.NoError(t, err)
	assert.Empty(t, script.Name)
	assert.Empty(t, script.Assertions)
	require.Len(t, script.Flow, 1)
}

func TestRespondent_Selection(t *testing.T) {
	year := 2023
	r := Respondent{Year: &year, Role: "management", Lists: []int64{2, 1}, Info: map[string]string{"name": "Dana"}}

	sel, err := r.Selection()
	require.NoError(t, err)
	require.NotNil(t, sel.Role)
	assert.Equal(t, ir.RoleManagement, *sel.Role)
	assert.Equal(t, &year, sel.Year)
	assert.Equal(t, []ir.ListID{2, 1}, sel.ListIDs)
	assert.Equal(t, "Dana", sel.Respondent["name"])
}

func TestRespondent_SelectionEmpty(t *testing.T) {
	sel, err := Respondent{}.Selection()
	require.NoError(t, err)
	assert.Nil(t, sel.Role)
	assert.Nil(t, sel.Year)
	assert.Empty(t, sel.ListIDs)
}

func TestFlowStep_Kind(t *testing.T) {
	qid := int64(10)
	assert.Equal(t, StepRecord, FlowStep{Record: &qid, Value: "x"}.Kind())
	assert.Equal(t, StepClear, FlowStep{Clear: &qid}.Kind())
	assert.Equal(t, StepSeek, FlowStep{Seek: &engine.Cursor{}}.Kind())
	assert.Equal(t, StepSubmit, FlowStep{Action: "submit"}.Kind())
	assert.Equal(t, "", FlowStep{}.Kind())
	assert.Equal(t, "", FlowStep{Clear: &qid, Action: "advance"}.Kind())
}
