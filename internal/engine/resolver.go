package engine

import (
	"cmp"
	"slices"

	"github.com/roach88/formflow/internal/ir"
)

// Resolution is the outcome of ResolveVisibleSections.
type Resolution struct {
	// Sections holds the visible section ids, restricted to sections that exist.
	Sections ir.SectionSet

	// Unconditional is true when the form has no year or role rules at all
	// and therefore behaves as a plain form.
	Unconditional bool
}

// NoMatchingSections reports whether rules are configured but none of them
// revealed a section. The caller shows a "no questions for this selection"
// state instead of falling back to all sections.
func (r Resolution) NoMatchingSections() bool {
	return !r.Unconditional && r.Sections.Empty()
}

// YearMatches reports whether year satisfies rule. Malformed rules never match.
func YearMatches(rule ir.YearRule, year int) bool {
	return rule.Matches(year)
}

// ResolveVisibleSections combines year rules and role rules with union
// semantics.
//
//   - year and role sets both non-empty: their union
//   - only one non-empty: that set
//   - both empty but some rule configured: empty (NoMatchingSections)
//   - no rules configured at all: every section (Unconditional)
//
// A nil year or role contributes nothing. Ids naming no section are dropped
// after combination.
func ResolveVisibleSections(
	yearRules []ir.YearRule,
	roleRules []ir.RoleRule,
	year *int,
	role *ir.Role,
	allSections []ir.Section,
) Resolution {
	existing := make(ir.SectionSet, 0, len(allSections))
	for _, s := range allSections {
		existing = existing.Add(s.ID)
	}

	if len(yearRules) == 0 && len(roleRules) == 0 {
		return Resolution{Sections: existing, Unconditional: true}
	}

	var yearIDs ir.SectionSet
	if year != nil {
		for _, r := range yearRules {
			if YearMatches(r, *year) {
				yearIDs = yearIDs.Union(r.SectionIDs)
			}
		}
	}

	var roleIDs ir.SectionSet
	if role != nil {
		for _, r := range roleRules {
			if r.Role == *role {
				roleIDs = roleIDs.Union(r.SectionIDs)
			}
		}
	}

	var combined ir.SectionSet
	switch {
	case !yearIDs.Empty() && !roleIDs.Empty():
		combined = yearIDs.Union(roleIDs)
	case !yearIDs.Empty():
		combined = yearIDs
	case !roleIDs.Empty():
		combined = roleIDs
	}

	visible := ir.SectionSet{}
	for _, id := range combined {
		if existing.Contains(id) {
			visible = visible.Add(id)
		}
	}
	return Resolution{Sections: visible}
}

// ResolveVisibleQuestions selects the questions a respondent sees.
// Unassigned questions are always included; assigned questions are included
// iff their section is visible.
//
// Output order: unassigned questions first, then by section order, then by
// question order. Ties break by id.
func ResolveVisibleQuestions(sections []ir.Section, questions []ir.Question, res Resolution) []ir.Question {
	rank := sectionRanks(sections)

	visible := []ir.Question{}
	for _, q := range questions {
		if q.Unassigned() || res.Sections.Contains(*q.SectionID) {
			visible = append(visible, q)
		}
	}

	slices.SortStableFunc(visible, func(a, b ir.Question) int {
		if c := cmp.Compare(questionRank(a, rank), questionRank(b, rank)); c != 0 {
			return c
		}
		return compareQuestions(a, b)
	})
	return visible
}

// ResolveManagementSections returns the sections of a management list in
// display order. Year and role rules are not consulted. Ids naming no
// section are dropped.
func ResolveManagementSections(list ir.ManagementList, sections []ir.Section) []ir.Section {
	return sectionsIn(list.SectionIDs, sections)
}

// SectionQuestions returns the questions assigned to a section in display order.
func SectionQuestions(section ir.SectionID, questions []ir.Question) []ir.Question {
	out := []ir.Question{}
	for _, q := range questions {
		if q.SectionID != nil && *q.SectionID == section {
			out = append(out, q)
		}
	}
	slices.SortStableFunc(out, compareQuestions)
	return out
}

// UnassignedQuestions returns the questions that belong to no section.
func UnassignedQuestions(questions []ir.Question) []ir.Question {
	out := []ir.Question{}
	for _, q := range questions {
		if q.Unassigned() {
			out = append(out, q)
		}
	}
	slices.SortStableFunc(out, compareQuestions)
	return out
}

func sectionsIn(ids ir.SectionSet, sections []ir.Section) []ir.Section {
	out := []ir.Section{}
	for _, s := range sections {
		if ids.Contains(s.ID) {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, compareSections)
	return out
}

func compareSections(a, b ir.Section) int {
	if c := cmp.Compare(a.OrderNumber, b.OrderNumber); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareQuestions(a, b ir.Question) int {
	if c := cmp.Compare(a.OrderNumber, b.OrderNumber); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// sectionRanks maps each section id to its 1-based display position.
func sectionRanks(sections []ir.Section) map[ir.SectionID]int {
	ordered := slices.Clone(sections)
	slices.SortStableFunc(ordered, compareSections)
	rank := make(map[ir.SectionID]int, len(ordered))
	for i, s := range ordered {
		if _, dup := rank[s.ID]; !dup {
			rank[s.ID] = i + 1
		}
	}
	return rank
}

// questionRank is 0 for unassigned questions and the section rank otherwise.
func questionRank(q ir.Question, rank map[ir.SectionID]int) int {
	if q.Unassigned() {
		return 0
	}
	return rank[*q.SectionID]
}
