package ir

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
)

// PayloadKind distinguishes the two submission shapes.
type PayloadKind string

const (
	PayloadStandard   PayloadKind = "standard"
	PayloadManagement PayloadKind = "management"
)

// SelfPerson is the person key used for standard (non-management) entries.
const SelfPerson = "self"

// SectionAnswers maps section names to that section's answers.
type SectionAnswers map[string]Answers

// PersonEvaluations maps evaluated person names to their section answers.
type PersonEvaluations map[string]SectionAnswers

// SubmissionPayload is the logical structure handed to the submission sink.
//
// Standard respondents fill Responses only. Management respondents fill
// Evaluations (list name → person → section name → answers) when the form
// has ManagementList records, or EvaluationsByPerson for the legacy
// single-list shape; MultipleLists tells the two apart. Answers to
// unassigned questions always live in Responses. Unanswered questions are
// absent, never null.
type SubmissionPayload struct {
	FormID              string                       `json:"form_id"`
	Kind                PayloadKind                  `json:"kind"`
	RespondentInfo      map[string]string            `json:"respondent_info"`
	SelectedYear        *int                         `json:"selected_year,omitempty"`
	SelectedRole        Role                         `json:"selected_role,omitempty"`
	Responses           Answers                      `json:"responses"`
	Evaluations         map[string]PersonEvaluations `json:"evaluations,omitempty"`
	EvaluationsByPerson PersonEvaluations            `json:"evaluations_by_person,omitempty"`
	EvaluatedPeople     []string                     `json:"evaluated_people,omitempty"`
	MultipleLists       bool                         `json:"multiple_lists"`
}

// CanonicalMap converts the payload into plain maps and slices for
// MarshalCanonical, which only handles answer types and primitives.
func (p *SubmissionPayload) CanonicalMap() map[string]any {
	info := make(map[string]any, len(p.RespondentInfo))
	for k, v := range p.RespondentInfo {
		info[k] = v
	}

	m := map[string]any{
		"payload_version": PayloadVersion,
		"form_id":         p.FormID,
		"kind":            string(p.Kind),
		"respondent_info": info,
		"responses":       answersMap(p.Responses),
		"multiple_lists":  p.MultipleLists,
	}
	if p.SelectedYear != nil {
		m["selected_year"] = *p.SelectedYear
	}
	if p.SelectedRole != "" {
		m["selected_role"] = string(p.SelectedRole)
	}
	if p.Evaluations != nil {
		lists := make(map[string]any, len(p.Evaluations))
		for name, people := range p.Evaluations {
			lists[name] = peopleMap(people)
		}
		m["evaluations"] = lists
	}
	if p.EvaluationsByPerson != nil {
		m["evaluations_by_person"] = peopleMap(p.EvaluationsByPerson)
	}
	if p.Kind == PayloadManagement {
		people := make([]any, len(p.EvaluatedPeople))
		for i, name := range p.EvaluatedPeople {
			people[i] = name
		}
		m["evaluated_people"] = people
	}
	return m
}

func peopleMap(people PersonEvaluations) map[string]any {
	out := make(map[string]any, len(people))
	for person, sections := range people {
		sm := make(map[string]any, len(sections))
		for section, answers := range sections {
			sm[section] = answersMap(answers)
		}
		out[person] = sm
	}
	return out
}

func answersMap(a Answers) map[string]any {
	out := make(map[string]any, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Submission is a finished payload ready for the sink.
type Submission struct {
	ID           string      `json:"id"` // Content-addressed hash of Payload
	FormID       string      `json:"form_id"`
	FormHash     string      `json:"form_hash,omitempty"` // FormHash of the rule set the session started on
	SessionToken string      `json:"session_token"`
	Kind         PayloadKind `json:"kind"`
	Payload      []byte      `json:"-"`   // Canonical JSON
	Seq          int64       `json:"seq"` // Assigned by the store
	Answers      []AnswerRow `json:"answers,omitempty"`
}

// AnswerRow is one flattened answer, addressed by every traversal dimension.
// Standard entries use empty ListName/Section and Person = SelfPerson.
type AnswerRow struct {
	ListName   string     `json:"list_name"`
	Person     string     `json:"person"`
	Section    string     `json:"section"`
	QuestionID QuestionID `json:"question_id"`
	Value      []byte     `json:"value"` // Canonical JSON
}

// Rows flattens the payload into reporting rows in deterministic order.
func (p *SubmissionPayload) Rows() ([]AnswerRow, error) {
	var rows []AnswerRow
	appendAnswers := func(list, person, section string, answers Answers) error {
		for key, val := range answers {
			qid, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return fmt.Errorf("question key %q: %w", key, err)
			}
			data, err := MarshalCanonical(val)
			if err != nil {
				return fmt.Errorf("question %s: %w", key, err)
			}
			rows = append(rows, AnswerRow{
				ListName:   list,
				Person:     person,
				Section:    section,
				QuestionID: QuestionID(qid),
				Value:      data,
			})
		}
		return nil
	}

	if err := appendAnswers("", SelfPerson, "", p.Responses); err != nil {
		return nil, err
	}
	for list, people := range p.Evaluations {
		for person, sections := range people {
			for section, answers := range sections {
				if err := appendAnswers(list, person, section, answers); err != nil {
					return nil, err
				}
			}
		}
	}
	for person, sections := range p.EvaluationsByPerson {
		for section, answers := range sections {
			if err := appendAnswers("", person, section, answers); err != nil {
				return nil, err
			}
		}
	}

	slices.SortFunc(rows, compareRows)
	return rows, nil
}

func compareRows(a, b AnswerRow) int {
	if c := cmp.Compare(a.ListName, b.ListName); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Person, b.Person); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Section, b.Section); c != 0 {
		return c
	}
	return cmp.Compare(a.QuestionID, b.QuestionID)
}
