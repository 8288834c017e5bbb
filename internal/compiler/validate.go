package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/formflow/internal/ir"
)

// Validation error codes (E200-E299)
const (
	// Structural errors (E201-E203, E208, E211-E212): the form cannot be served
	ErrDuplicateSection   = "E201" // two sections share an id
	ErrDuplicateQuestion  = "E202" // two questions share an id
	ErrUnknownQuestionSec = "E203" // question names a section that does not exist
	ErrDuplicateList      = "E208" // two management lists share an id
	ErrDuplicateListName  = "E211" // two management lists share a name
	ErrDuplicateListSec   = "E212" // one list evaluates two sections with the same name

	// Ambiguities (E204-E207, E209-E210): the engine recovers, authors should fix
	ErrUnknownRuleSection = "E204" // rule or list names a section that does not exist
	ErrMalformedYear      = "E205" // year rule value does not parse
	ErrInvertedBetween    = "E206" // between range written high-low
	ErrEmptyList          = "E207" // management list has no people
	ErrDuplicatePerson    = "E209" // person appears twice in one list
	ErrNoOptions          = "E210" // choice question has no options
)

// Severity classifies a ValidationError.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError represents a form configuration problem.
type ValidationError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Line     int      `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// HasErrors reports whether any entry has error severity.
func HasErrors(errs []ValidationError) bool {
	return slices.ContainsFunc(errs, func(e ValidationError) bool {
		return e.Severity == SeverityError
	})
}

// Validate checks a compiled form for broken references and ambiguities.
// Returns all findings (does not fail-fast).
func Validate(form *ir.FormConfig) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateSections(form)...)
	errs = append(errs, validateQuestions(form)...)
	errs = append(errs, validateYearRules(form)...)
	errs = append(errs, validateRoleRules(form)...)
	errs = append(errs, validateManagementLists(form)...)
	return errs
}

func validateSections(form *ir.FormConfig) []ValidationError {
	var errs []ValidationError
	seen := make(map[ir.SectionID]bool)
	for i, s := range form.Sections {
		if seen[s.ID] {
			errs = append(errs, ValidationError{
				Field:    fmt.Sprintf("sections[%d].id", i),
				Message:  fmt.Sprintf("duplicate section id %d", s.ID),
				Code:     ErrDuplicateSection,
				Severity: SeverityError,
			})
		}
		seen[s.ID] = true
	}
	return errs
}

func validateQuestions(form *ir.FormConfig) []ValidationError {
	var errs []ValidationError
	seen := make(map[ir.QuestionID]bool)
	for i, q := range form.Questions {
		field := fmt.Sprintf("questions[%d]", i)
		if seen[q.ID] {
			errs = append(errs, ValidationError{
				Field:    field + ".id",
				Message:  fmt.Sprintf("duplicate question id %d", q.ID),
				Code:     ErrDuplicateQuestion,
				Severity: SeverityError,
			})
		}
		seen[q.ID] = true

		if q.SectionID != nil {
			if _, ok := form.SectionByID(*q.SectionID); !ok {
				errs = append(errs, ValidationError{
					Field:    field + ".section",
					Message:  fmt.Sprintf("question %d names unknown section %d", q.ID, *q.SectionID),
					Code:     ErrUnknownQuestionSec,
					Severity: SeverityError,
				})
			}
		}

		if isChoice(q.Type) && len(q.Options) == 0 {
			errs = append(errs, ValidationError{
				Field:    field + ".options",
				Message:  fmt.Sprintf("%s question %d has no options", q.Type, q.ID),
				Code:     ErrNoOptions,
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func isChoice(t ir.QuestionType) bool {
	switch t {
	case ir.QuestionRadio, ir.QuestionSelect, ir.QuestionCheckbox:
		return true
	default:
		return false
	}
}

func validateYearRules(form *ir.FormConfig) []ValidationError {
	var errs []ValidationError
	for i, r := range form.YearRules {
		field := fmt.Sprintf("year_rules[%d]", i)
		if _, _, err := r.Bounds(); err != nil {
			errs = append(errs, ValidationError{
				Field:    field + ".value",
				Message:  fmt.Sprintf("rule never matches: %v", err),
				Code:     ErrMalformedYear,
				Severity: SeverityWarning,
			})
		} else if r.Inverted() {
			errs = append(errs, ValidationError{
				Field:    field + ".value",
				Message:  fmt.Sprintf("between range %q is inverted; treated as low-high", r.Value),
				Code:     ErrInvertedBetween,
				Severity: SeverityWarning,
			})
		}
		errs = append(errs, unknownSections(form, field+".sections", r.SectionIDs)...)
	}
	return errs
}

func validateRoleRules(form *ir.FormConfig) []ValidationError {
	var errs []ValidationError
	for i, r := range form.RoleRules {
		field := fmt.Sprintf("role_rules[%d]", i)
		errs = append(errs, unknownSections(form, field+".sections", r.SectionIDs)...)
		errs = append(errs, duplicatePeople(field+".people", r.People)...)
	}
	return errs
}

func validateManagementLists(form *ir.FormConfig) []ValidationError {
	var errs []ValidationError
	seen := make(map[ir.ListID]bool)
	names := make(map[string]ir.ListID)
	for i, l := range form.ManagementLists {
		field := fmt.Sprintf("management_lists[%d]", i)
		if seen[l.ID] {
			errs = append(errs, ValidationError{
				Field:    field + ".id",
				Message:  fmt.Sprintf("duplicate management list id %d", l.ID),
				Code:     ErrDuplicateList,
				Severity: SeverityError,
			})
		}
		seen[l.ID] = true

		if first, dup := names[l.Name]; dup {
			errs = append(errs, ValidationError{
				Field:    field + ".name",
				Message:  fmt.Sprintf("list name %q is already used by list %d", l.Name, first),
				Code:     ErrDuplicateListName,
				Severity: SeverityError,
			})
		} else {
			names[l.Name] = l.ID
		}
		errs = append(errs, duplicateSectionNames(form, field+".sections", l.SectionIDs)...)

		if len(l.People) == 0 {
			errs = append(errs, ValidationError{
				Field:    field + ".people",
				Message:  fmt.Sprintf("list %q has no people and will be skipped", l.Name),
				Code:     ErrEmptyList,
				Severity: SeverityWarning,
			})
		}
		errs = append(errs, duplicatePeople(field+".people", l.People)...)
		errs = append(errs, unknownSections(form, field+".sections", l.SectionIDs)...)
	}
	return errs
}

// duplicateSectionNames reports sections of one list that share a name.
// Evaluations are keyed by section name, so their answers would merge.
func duplicateSectionNames(form *ir.FormConfig, field string, ids ir.SectionSet) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]ir.SectionID)
	for _, id := range ids {
		sec, ok := form.SectionByID(id)
		if !ok {
			continue
		}
		if first, dup := seen[sec.Name]; dup {
			errs = append(errs, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("sections %d and %d are both named %q", first, id, sec.Name),
				Code:     ErrDuplicateListSec,
				Severity: SeverityError,
			})
			continue
		}
		seen[sec.Name] = id
	}
	return errs
}

func unknownSections(form *ir.FormConfig, field string, ids ir.SectionSet) []ValidationError {
	var errs []ValidationError
	for _, id := range ids {
		if _, ok := form.SectionByID(id); !ok {
			errs = append(errs, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("unknown section %d is ignored", id),
				Code:     ErrUnknownRuleSection,
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

func duplicatePeople(field string, people []string) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for _, p := range people {
		if seen[p] {
			errs = append(errs, ValidationError{
				Field:    field,
				Message:  fmt.Sprintf("%q appears more than once; answers for both entries are shared", p),
				Code:     ErrDuplicatePerson,
				Severity: SeverityWarning,
			})
		}
		seen[p] = true
	}
	return errs
}
