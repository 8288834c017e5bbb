package engine

import (
	"maps"

	"github.com/roach88/formflow/internal/ir"
)

// Aggregate assembles the session's answers into one submission payload.
//
// Standard sessions fill Responses. Management sessions also fill
// Evaluations (list → person → section → answers) or, for the legacy
// single-list shape, EvaluationsByPerson; EvaluatedPeople lists every person
// of every processed list in traversal order. Groups are built by walking
// the plan, so every person and section is present; unanswered questions
// are absent.
func Aggregate(s *Session) *ir.SubmissionPayload {
	p := &ir.SubmissionPayload{
		FormID:         s.form.ID,
		Kind:           ir.PayloadStandard,
		RespondentInfo: maps.Clone(s.selection.Respondent),
		SelectedYear:   s.selection.Year,
		Responses:      ir.Answers{},
	}
	if p.RespondentInfo == nil {
		p.RespondentInfo = map[string]string{}
	}
	if s.selection.Role != nil {
		p.SelectedRole = *s.selection.Role
	}

	for _, e := range s.responses.Entries() {
		if e.Key.Standard {
			p.Responses[e.Key.QuestionID.String()] = e.Value
		}
	}

	if s.flow != FlowManagement {
		return p
	}

	p.Kind = ir.PayloadManagement
	p.EvaluatedPeople = []string{}
	if s.scheduler.Legacy() {
		p.EvaluationsByPerson = ir.PersonEvaluations{}
	} else {
		p.Evaluations = map[string]ir.PersonEvaluations{}
		p.MultipleLists = true
	}

	for li, plan := range s.scheduler.Plans() {
		people := p.EvaluationsByPerson
		if !s.scheduler.Legacy() {
			if p.Evaluations[plan.Name] == nil {
				p.Evaluations[plan.Name] = ir.PersonEvaluations{}
			}
			people = p.Evaluations[plan.Name]
		}

		for pi, person := range plan.People {
			p.EvaluatedPeople = append(p.EvaluatedPeople, person)
			if people[person] == nil {
				people[person] = ir.SectionAnswers{}
			}
			for si, section := range plan.Sections {
				step := Step{
					Cursor:  Cursor{ListIndex: li, PersonIndex: pi, SectionIndex: si},
					List:    plan.Name,
					Person:  person,
					Section: section,
				}
				answers := people[person][section.Name]
				if answers == nil {
					answers = ir.Answers{}
					people[person][section.Name] = answers
				}
				for _, q := range SectionQuestions(section.ID, s.form.Questions) {
					if v, ok := s.responses.Get(StepKey(step, q.ID)); ok {
						answers[q.ID.String()] = v
					}
				}
			}
		}
	}
	return p
}
