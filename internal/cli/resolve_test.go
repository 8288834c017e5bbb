package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formflow/internal/engine"
)

func resolveJSON(t *testing.T, args ...string) ResolveResult {
	t.Helper()
	out, err := execute(NewResolveCommand(&RootOptions{Format: "json"}), append([]string{formsDir}, args...)...)
	require.NoError(t, err, "output: %s", out)

	var result ResolveResult
	resp := decodeResponse(t, out, &result)
	require.Equal(t, "ok", resp.Status)
	return result
}

func sectionIDs(views []SectionView) []int64 {
	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func questionIDs(views []QuestionView) []int64 {
	ids := make([]int64, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func TestResolveYearAndRoleUnion(t *testing.T) {
	result := resolveJSON(t, "--form", "annual-review", "--year", "2024", "--role", "team_lead")

	assert.Equal(t, engine.FlowStandard, result.Flow)
	assert.False(t, result.NoMatchingSections)
	assert.False(t, result.Unconditional)
	assert.Equal(t, []int64{1, 2, 3}, sectionIDs(result.Sections))
	assert.Equal(t, []int64{100, 101, 10, 11, 20, 30}, questionIDs(result.Questions))
	assert.Empty(t, result.Traversal)
}

func TestResolveYearOnly(t *testing.T) {
	result := resolveJSON(t, "--form", "annual-review", "--year", "2024", "--role", "employee")
	assert.Equal(t, []int64{1, 2}, sectionIDs(result.Sections))
}

func TestResolveRoleOnly(t *testing.T) {
	result := resolveJSON(t, "--form", "annual-review", "--year", "2019", "--role", "team_lead")
	assert.Equal(t, []int64{2, 3}, sectionIDs(result.Sections))
}

func TestResolveNoMatchingSections(t *testing.T) {
	result := resolveJSON(t, "--form", "annual-review", "--year", "2019", "--role", "employee")

	assert.True(t, result.NoMatchingSections)
	assert.Empty(t, result.Sections)
	assert.Equal(t, []int64{100, 101}, questionIDs(result.Questions))
}

func TestResolveUnconditionalForm(t *testing.T) {
	result := resolveJSON(t, "--form", "pulse")

	assert.True(t, result.Unconditional)
	assert.False(t, result.NoMatchingSections)
	assert.Equal(t, []int64{1}, sectionIDs(result.Sections))
}

func TestResolveManagementTraversal(t *testing.T) {
	result := resolveJSON(t, "--form", "annual-review", "--role", "management", "--year", "2024")

	assert.Equal(t, engine.FlowManagement, result.Flow)
	assert.Equal(t, []int64{100, 101}, questionIDs(result.Questions))
	assert.Empty(t, result.Sections, "year rules are not consulted for management")

	require.Len(t, result.Traversal, 5)
	got := make([]string, len(result.Traversal))
	for i, s := range result.Traversal {
		got[i] = s.List + "/" + s.Person + "/" + s.Section
	}
	assert.Equal(t, []string{
		"Team A/Alice/Peer Review",
		"Team A/Alice/Goals",
		"Team A/Bob/Peer Review",
		"Team A/Bob/Goals",
		"Team B/Carol/Peer Review",
	}, got)
	assert.Equal(t, "0/1/1", result.Traversal[3].Cursor)
	assert.Equal(t, []int64{40, 41}, result.Traversal[0].Questions)
	assert.Equal(t, []int64{50}, result.Traversal[1].Questions)
}

func TestResolveManagementListOrder(t *testing.T) {
	result := resolveJSON(t, "--form", "annual-review", "--role", "management", "--list", "2", "--list", "1")

	require.Len(t, result.Traversal, 5)
	assert.Equal(t, "Team B", result.Traversal[0].List)
	assert.Equal(t, "Carol", result.Traversal[0].Person)
	assert.Equal(t, "1/0/0", result.Traversal[1].Cursor)
	assert.Equal(t, "Team A", result.Traversal[1].List)
}

func TestResolveText(t *testing.T) {
	out, err := execute(NewResolveCommand(&RootOptions{Format: "text"}),
		formsDir, "--form", "annual-review", "--role", "management", "--list", "2")
	require.NoError(t, err)

	assert.Contains(t, out, "Form annual-review (management flow)")
	assert.Contains(t, out, "*100 [text] Your name")
	assert.Contains(t, out, "Traversal (1 step(s)):")
	assert.Contains(t, out, "0/0/0  Team B / Carol / Peer Review  questions [40 41]")
}

func TestResolveTextNoMatch(t *testing.T) {
	out, err := execute(NewResolveCommand(&RootOptions{Format: "text"}),
		formsDir, "--form", "annual-review", "--role", "employee")
	require.NoError(t, err)
	assert.Contains(t, out, "No sections match this selection.")
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown_form", []string{"--form", "exit-interview"}, ErrCodeUnknownForm},
		{"unknown_role", []string{"--form", "annual-review", "--role", "ceo"}, ErrCodeInvalidValue},
		{"unknown_list", []string{"--form", "annual-review", "--role", "management", "--list", "9"}, string(engine.ErrCodeUnknownList)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(NewResolveCommand(&RootOptions{Format: "json"}), append([]string{formsDir}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			resp := decodeResponse(t, out, nil)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestResolveRequiresForm(t *testing.T) {
	_, err := execute(NewResolveCommand(&RootOptions{Format: "text"}), formsDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"form" not set`)
}
