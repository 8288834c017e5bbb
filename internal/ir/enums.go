package ir

import (
	"encoding/json"
	"fmt"
)

// ConditionType is the comparison a YearRule applies to the entry year.
type ConditionType string

const (
	ConditionEquals       ConditionType = "equals"
	ConditionLessEqual    ConditionType = "less_equal"
	ConditionGreaterEqual ConditionType = "greater_equal"
	ConditionBetween      ConditionType = "between"
)

// ConditionTypes lists every condition type in declaration order.
var ConditionTypes = []ConditionType{
	ConditionEquals,
	ConditionLessEqual,
	ConditionGreaterEqual,
	ConditionBetween,
}

// ParseConditionType converts a configuration string into a ConditionType.
// The "year_" prefix used by older form exports is accepted.
func ParseConditionType(s string) (ConditionType, error) {
	switch s {
	case "equals", "year_equals":
		return ConditionEquals, nil
	case "less_equal", "year_less_equal":
		return ConditionLessEqual, nil
	case "greater_equal", "year_greater_equal":
		return ConditionGreaterEqual, nil
	case "between", "year_between":
		return ConditionBetween, nil
	default:
		return "", fmt.Errorf("unknown condition type %q", s)
	}
}

// UnmarshalJSON rejects unknown condition types.
func (c *ConditionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseConditionType(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Role is a respondent's self-reported role.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleTeamLead   Role = "team_lead"
	RoleManagement Role = "management"
)

// Roles lists every role in declaration order.
var Roles = []Role{RoleEmployee, RoleTeamLead, RoleManagement}

// ParseRole converts a respondent input string into a Role.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEmployee, RoleTeamLead, RoleManagement:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// UnmarshalJSON rejects unknown roles.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// QuestionType is the input kind of a question.
type QuestionType string

const (
	QuestionText     QuestionType = "text"
	QuestionTextarea QuestionType = "textarea"
	QuestionNumber   QuestionType = "number"
	QuestionEmail    QuestionType = "email"
	QuestionDate     QuestionType = "date"
	QuestionRadio    QuestionType = "radio"
	QuestionSelect   QuestionType = "select"
	QuestionRating   QuestionType = "rating"
	QuestionCheckbox QuestionType = "checkbox"
)

// ParseQuestionType converts a configuration string into a QuestionType.
func ParseQuestionType(s string) (QuestionType, error) {
	switch QuestionType(s) {
	case QuestionText, QuestionTextarea, QuestionNumber, QuestionEmail, QuestionDate,
		QuestionRadio, QuestionSelect, QuestionRating, QuestionCheckbox:
		return QuestionType(s), nil
	default:
		return "", fmt.Errorf("unknown question type %q", s)
	}
}

// MultiSelect reports whether answers to this type are string sets.
func (t QuestionType) MultiSelect() bool {
	return t == QuestionCheckbox
}

// UnmarshalJSON rejects unknown question types.
func (t *QuestionType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseQuestionType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
