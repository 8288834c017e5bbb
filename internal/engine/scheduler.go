package engine

import (
	"fmt"

	"github.com/roach88/formflow/internal/ir"
)

// Cursor is the position within a round-robin traversal.
// Indexes address the scheduler's plans, the plan's people and the plan's
// sections.
type Cursor struct {
	ListIndex    int `json:"list_index" yaml:"list"`
	PersonIndex  int `json:"person_index" yaml:"person"`
	SectionIndex int `json:"section_index" yaml:"section"`
}

// String renders the cursor as "list/person/section".
func (c Cursor) String() string {
	return fmt.Sprintf("%d/%d/%d", c.ListIndex, c.PersonIndex, c.SectionIndex)
}

// ListPlan is one management list prepared for traversal.
type ListPlan struct {
	Index    int          // Position in the traversal
	ListID   ir.ListID    // Zero for the legacy single-list flow
	Name     string       // Key in the aggregated payload
	People   []string     // Encounter order, duplicates kept
	Sections []ir.Section // Display order
}

// Size returns the number of (person, section) positions in the plan.
func (p ListPlan) Size() int {
	return len(p.People) * len(p.Sections)
}

// Step describes the triple a cursor addresses.
type Step struct {
	Cursor  Cursor
	List    string
	ListID  ir.ListID
	Person  string
	Section ir.Section
}

// Scheduler drives the (list, person, section) cursor for management
// respondents.
//
// INVARIANTS:
//   - every plan has at least one person and one section
//   - the cursor always addresses an existing triple while plans exist
//   - moves never wrap; out-of-range moves are no-ops
type Scheduler struct {
	plans  []ListPlan
	cursor Cursor
	legacy bool
}

// NewScheduler creates a scheduler over plans in the given order.
// Plans without people or sections are skipped. Index fields are
// reassigned to the traversal position. The cursor starts at 0/0/0.
func NewScheduler(plans []ListPlan) *Scheduler {
	kept := make([]ListPlan, 0, len(plans))
	for _, p := range plans {
		if p.Size() == 0 {
			continue
		}
		p.Index = len(kept)
		kept = append(kept, p)
	}
	return &Scheduler{plans: kept}
}

// NewSchedulerFor plans the management lists of form and creates a
// scheduler over them. See PlanLists for the selection rules.
func NewSchedulerFor(form *ir.FormConfig, selected []ir.ListID) (*Scheduler, error) {
	plans, legacy, err := PlanLists(form, selected)
	if err != nil {
		return nil, err
	}
	s := NewScheduler(plans)
	s.legacy = legacy
	return s, nil
}

// PlanLists builds the traversal plan for a management respondent.
//
// With ManagementList records present, the selected lists are planned in
// selection order; an empty selection plans every list in configuration
// order. Without records, management role rules that carry People form the
// legacy single-list plan. The flag reports the legacy shape.
//
// Returns an UNKNOWN_LIST EngineError if a selected id does not exist, and a
// DUPLICATE_LIST EngineError if an id is selected twice, two planned lists
// share a name, or one list has two sections with the same name.
func PlanLists(form *ir.FormConfig, selected []ir.ListID) (plans []ListPlan, legacy bool, err error) {
	if len(form.ManagementLists) == 0 {
		if plan, ok := legacyPlan(form); ok {
			if err := checkPlanKeys([]ListPlan{plan}); err != nil {
				return nil, false, err
			}
			return []ListPlan{plan}, true, nil
		}
		return nil, false, nil
	}

	lists := form.ManagementLists
	if len(selected) > 0 {
		lists = make([]ir.ManagementList, 0, len(selected))
		seen := make(map[ir.ListID]bool, len(selected))
		for _, id := range selected {
			if seen[id] {
				return nil, false, &EngineError{
					Code:    ErrCodeDuplicateList,
					Message: fmt.Sprintf("management list %d is selected more than once", id),
				}
			}
			seen[id] = true
			l, ok := form.ListByID(id)
			if !ok {
				return nil, false, &EngineError{
					Code:    ErrCodeUnknownList,
					Message: fmt.Sprintf("management list %d does not exist", id),
				}
			}
			lists = append(lists, l)
		}
	}

	plans = make([]ListPlan, 0, len(lists))
	for i, l := range lists {
		plans = append(plans, ListPlan{
			Index:    i,
			ListID:   l.ID,
			Name:     l.Name,
			People:   l.People,
			Sections: ResolveManagementSections(l, form.Sections),
		})
	}
	if err := checkPlanKeys(plans); err != nil {
		return nil, false, err
	}
	return plans, false, nil
}

// checkPlanKeys rejects plans whose answers would collide in the payload,
// which is keyed by list name and section name. Plans without people or
// sections are skipped by the scheduler and never reach the payload.
func checkPlanKeys(plans []ListPlan) error {
	names := make(map[string]bool, len(plans))
	for _, p := range plans {
		if p.Size() == 0 {
			continue
		}
		if names[p.Name] {
			return &EngineError{
				Code:    ErrCodeDuplicateList,
				Message: fmt.Sprintf("two management lists are named %q", p.Name),
			}
		}
		names[p.Name] = true

		sections := make(map[string]bool, len(p.Sections))
		for _, sec := range p.Sections {
			if sections[sec.Name] {
				return &EngineError{
					Code:    ErrCodeDuplicateList,
					Message: fmt.Sprintf("list %q has two sections named %q", p.Name, sec.Name),
				}
			}
			sections[sec.Name] = true
		}
	}
	return nil
}

// legacyPlan folds management role rules carrying People into one plan.
func legacyPlan(form *ir.FormConfig) (ListPlan, bool) {
	var people []string
	var ids ir.SectionSet
	for _, r := range form.RoleRules {
		if r.Role != ir.RoleManagement || len(r.People) == 0 {
			continue
		}
		people = append(people, r.People...)
		ids = ids.Union(r.SectionIDs)
	}
	if len(people) == 0 {
		return ListPlan{}, false
	}
	return ListPlan{
		People:   people,
		Sections: sectionsIn(ids, form.Sections),
	}, true
}

// Empty reports whether there is nothing to traverse.
func (s *Scheduler) Empty() bool {
	return len(s.plans) == 0
}

// Plans returns the traversal plans.
func (s *Scheduler) Plans() []ListPlan {
	return s.plans
}

// Cursor returns the current cursor.
func (s *Scheduler) Cursor() Cursor {
	return s.cursor
}

// Current returns the step the cursor addresses. ok is false when empty.
func (s *Scheduler) Current() (step Step, ok bool) {
	if s.Empty() {
		return Step{}, false
	}
	return s.stepAt(s.cursor), true
}

func (s *Scheduler) stepAt(c Cursor) Step {
	p := s.plans[c.ListIndex]
	return Step{
		Cursor:  c,
		List:    p.Name,
		ListID:  p.ListID,
		Person:  p.People[c.PersonIndex],
		Section: p.Sections[c.SectionIndex],
	}
}

// Advance moves the cursor one position forward.
// Returns false without moving at the terminal position.
func (s *Scheduler) Advance() bool {
	if s.Empty() {
		return false
	}
	c := s.cursor
	p := s.plans[c.ListIndex]
	switch {
	case c.SectionIndex < len(p.Sections)-1:
		c.SectionIndex++
	case c.PersonIndex < len(p.People)-1:
		c.PersonIndex++
		c.SectionIndex = 0
	case c.ListIndex < len(s.plans)-1:
		c = Cursor{ListIndex: c.ListIndex + 1}
	default:
		return false
	}
	s.cursor = c
	return true
}

// Retreat moves the cursor one position back.
// Returns false without moving at the initial position.
func (s *Scheduler) Retreat() bool {
	if s.Empty() {
		return false
	}
	c := s.cursor
	switch {
	case c.SectionIndex > 0:
		c.SectionIndex--
	case c.PersonIndex > 0:
		c.PersonIndex--
		c.SectionIndex = len(s.plans[c.ListIndex].Sections) - 1
	case c.ListIndex > 0:
		prev := s.plans[c.ListIndex-1]
		c = Cursor{
			ListIndex:    c.ListIndex - 1,
			PersonIndex:  len(prev.People) - 1,
			SectionIndex: len(prev.Sections) - 1,
		}
	default:
		return false
	}
	s.cursor = c
	return true
}

// Seek jumps to c. Returns a CURSOR_OUT_OF_RANGE EngineError, leaving the
// cursor unchanged, if c addresses no triple.
func (s *Scheduler) Seek(c Cursor) error {
	if !s.Valid(c) {
		return &EngineError{
			Code:    ErrCodeCursorOutOfRange,
			Message: "cursor addresses no list, person and section",
			Cursor:  &c,
		}
	}
	s.cursor = c
	return nil
}

// Valid reports whether c addresses an existing triple.
func (s *Scheduler) Valid(c Cursor) bool {
	if c.ListIndex < 0 || c.ListIndex >= len(s.plans) {
		return false
	}
	p := s.plans[c.ListIndex]
	return c.PersonIndex >= 0 && c.PersonIndex < len(p.People) &&
		c.SectionIndex >= 0 && c.SectionIndex < len(p.Sections)
}

// AtStart reports whether the cursor is at the initial position.
func (s *Scheduler) AtStart() bool {
	return s.cursor == Cursor{}
}

// AtEnd reports whether the cursor is at the terminal position.
// An empty scheduler is at its end.
func (s *Scheduler) AtEnd() bool {
	return s.Empty() || s.Position() == s.Total()-1
}

// Total returns the number of positions: the sum of people times sections.
func (s *Scheduler) Total() int {
	n := 0
	for _, p := range s.plans {
		n += p.Size()
	}
	return n
}

// Position returns the 0-based linear index of the cursor.
func (s *Scheduler) Position() int {
	if s.Empty() {
		return 0
	}
	n := 0
	for _, p := range s.plans[:s.cursor.ListIndex] {
		n += p.Size()
	}
	p := s.plans[s.cursor.ListIndex]
	return n + s.cursor.PersonIndex*len(p.Sections) + s.cursor.SectionIndex
}

// Steps returns every position in traversal order.
func (s *Scheduler) Steps() []Step {
	steps := make([]Step, 0, s.Total())
	for li, p := range s.plans {
		for pi := range p.People {
			for si := range p.Sections {
				steps = append(steps, s.stepAt(Cursor{ListIndex: li, PersonIndex: pi, SectionIndex: si}))
			}
		}
	}
	return steps
}

// Legacy reports whether the plan is the legacy single-list shape.
func (s *Scheduler) Legacy() bool {
	return s.legacy
}
