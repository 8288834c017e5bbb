package testutil

import "github.com/roach88/formflow/internal/ir"

// Sample section ids.
const (
	SectionGeneral    ir.SectionID = 1
	SectionGrowth     ir.SectionID = 2
	SectionLeadership ir.SectionID = 3
	SectionPeer       ir.SectionID = 4
	SectionGoals      ir.SectionID = 5
)

// SampleForm returns a fresh copy of the shared fixture form.
//
//	year rule  equals 2024     → {1, 2}
//	role rule  team_lead       → {2, 3}
//	list 1     "Team A"        Alice, Bob × {4, 5}
//	list 2     "Team B"        Carol      × {4}
//
// Questions 100 (required) and 101 are unassigned.
func SampleForm() *ir.FormConfig {
	return &ir.FormConfig{
		ID:    "annual-review",
		Title: "Annual review",
		Sections: []ir.Section{
			{ID: SectionGeneral, Name: "General", OrderNumber: 1},
			{ID: SectionGrowth, Name: "Growth", OrderNumber: 2},
			{ID: SectionLeadership, Name: "Leadership", OrderNumber: 3},
			{ID: SectionPeer, Name: "Peer Review", OrderNumber: 4},
			{ID: SectionGoals, Name: "Goals", OrderNumber: 5},
		},
		Questions: []ir.Question{
			{ID: 100, Type: ir.QuestionText, Text: "Your name", IsRequired: true, OrderNumber: 1},
			{ID: 101, Type: ir.QuestionTextarea, Text: "Anything else?", OrderNumber: 2},
			{ID: 10, SectionID: Section(SectionGeneral), Type: ir.QuestionRadio, Text: "Settled in?", IsRequired: true, OrderNumber: 1, Options: []string{"yes", "no"}},
			{ID: 11, SectionID: Section(SectionGeneral), Type: ir.QuestionText, Text: "Comments", OrderNumber: 2},
			{ID: 20, SectionID: Section(SectionGrowth), Type: ir.QuestionRating, Text: "Growth rating", IsRequired: true, OrderNumber: 1},
			{ID: 30, SectionID: Section(SectionLeadership), Type: ir.QuestionCheckbox, Text: "Responsibilities", IsRequired: true, OrderNumber: 1, Options: []string{"hiring", "mentoring", "planning"}},
			{ID: 40, SectionID: Section(SectionPeer), Type: ir.QuestionRating, Text: "Collaboration", IsRequired: true, OrderNumber: 1},
			{ID: 41, SectionID: Section(SectionPeer), Type: ir.QuestionTextarea, Text: "Feedback", OrderNumber: 2},
			{ID: 50, SectionID: Section(SectionGoals), Type: ir.QuestionText, Text: "Next goal", IsRequired: true, OrderNumber: 1},
		},
		YearRules: []ir.YearRule{
			{Condition: ir.ConditionEquals, Value: "2024", SectionIDs: ir.NewSectionSet(SectionGeneral, SectionGrowth)},
		},
		RoleRules: []ir.RoleRule{
			{Role: ir.RoleTeamLead, SectionIDs: ir.NewSectionSet(SectionGrowth, SectionLeadership)},
		},
		ManagementLists: []ir.ManagementList{
			{ID: 1, Name: "Team A", People: []string{"Alice", "Bob"}, SectionIDs: ir.NewSectionSet(SectionPeer, SectionGoals)},
			{ID: 2, Name: "Team B", People: []string{"Carol"}, SectionIDs: ir.NewSectionSet(SectionPeer)},
		},
	}
}

// Section returns a pointer to id, for Question.SectionID literals.
func Section(id ir.SectionID) *ir.SectionID {
	return &id
}

// Year returns a pointer to y, for engine.Selection literals.
func Year(y int) *int {
	return &y
}

// Role returns a pointer to r, for engine.Selection literals.
func Role(r ir.Role) *ir.Role {
	return &r
}
