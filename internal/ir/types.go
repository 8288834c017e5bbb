package ir

import (
	"encoding/json"
	"slices"
	"strconv"
)

// SectionID identifies a form section.
type SectionID int64

// QuestionID identifies a form question.
type QuestionID int64

// ListID identifies a management list.
type ListID int64

// String returns the decimal form used as a JSON object key.
func (id QuestionID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// FormConfig is the RuleModel snapshot for one form.
// It is produced by the compiler and read-only to the engine.
type FormConfig struct {
	ID              string           `json:"id"`
	Title           string           `json:"title,omitempty"`
	Sections        []Section        `json:"sections"`
	Questions       []Question       `json:"questions"`
	YearRules       []YearRule       `json:"year_rules"`
	RoleRules       []RoleRule       `json:"role_rules"`
	ManagementLists []ManagementList `json:"management_lists"`
}

// Section groups questions. A section may be empty.
type Section struct {
	ID          SectionID `json:"id"`
	Name        string    `json:"name"`
	OrderNumber int       `json:"order_number"`
}

// Question is a single form question.
type Question struct {
	ID          QuestionID   `json:"id"`
	SectionID   *SectionID   `json:"section_id,omitempty"` // nil = unassigned
	Type        QuestionType `json:"type"`
	Text        string       `json:"text,omitempty"`
	IsRequired  bool         `json:"is_required"`
	OrderNumber int          `json:"order_number"`
	Options     []string     `json:"options,omitempty"`
}

// Unassigned reports whether the question belongs to no section.
func (q Question) Unassigned() bool {
	return q.SectionID == nil
}

// YearRule reveals sections when the respondent's entry year matches.
// Value is a single year, or "low-high" for ConditionBetween.
type YearRule struct {
	Condition  ConditionType `json:"condition"`
	Value      string        `json:"value"`
	SectionIDs SectionSet    `json:"section_ids"`
}

// RoleRule reveals sections for a respondent role.
//
// People is only meaningful for RoleManagement: it is the legacy ad hoc
// evaluation list used when a form has no ManagementList records.
type RoleRule struct {
	Role       Role       `json:"role"`
	SectionIDs SectionSet `json:"section_ids"`
	People     []string   `json:"people,omitempty"`
}

// ManagementList is a named group of people, each evaluated against the
// same sections. People keep their encounter order; duplicates are kept.
type ManagementList struct {
	ID         ListID     `json:"id"`
	Name       string     `json:"name"`
	People     []string   `json:"people"`
	SectionIDs SectionSet `json:"section_ids"`
}

// SectionByID returns the section with the given id.
func (f *FormConfig) SectionByID(id SectionID) (Section, bool) {
	for _, s := range f.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// QuestionByID returns the question with the given id.
func (f *FormConfig) QuestionByID(id QuestionID) (Question, bool) {
	for _, q := range f.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// ListByID returns the management list with the given id.
func (f *FormConfig) ListByID(id ListID) (ManagementList, bool) {
	for _, l := range f.ManagementLists {
		if l.ID == id {
			return l, true
		}
	}
	return ManagementList{}, false
}

// AllSectionIDs returns every configured section id.
func (f *FormConfig) AllSectionIDs() SectionSet {
	set := make(SectionSet, 0, len(f.Sections))
	for _, s := range f.Sections {
		set = set.Add(s.ID)
	}
	return set
}

// Clone returns a deep copy so a session can hold a snapshot the
// configuration provider cannot mutate underneath it.
func (f *FormConfig) Clone() *FormConfig {
	c := &FormConfig{
		ID:        f.ID,
		Title:     f.Title,
		Sections:  slices.Clone(f.Sections),
		Questions: make([]Question, len(f.Questions)),
		YearRules: make([]YearRule, len(f.YearRules)),
		RoleRules: make([]RoleRule, len(f.RoleRules)),
	}
	for i, q := range f.Questions {
		if q.SectionID != nil {
			sid := *q.SectionID
			q.SectionID = &sid
		}
		q.Options = slices.Clone(q.Options)
		c.Questions[i] = q
	}
	for i, r := range f.YearRules {
		r.SectionIDs = slices.Clone(r.SectionIDs)
		c.YearRules[i] = r
	}
	for i, r := range f.RoleRules {
		r.SectionIDs = slices.Clone(r.SectionIDs)
		r.People = slices.Clone(r.People)
		c.RoleRules[i] = r
	}
	if f.ManagementLists != nil {
		c.ManagementLists = make([]ManagementList, len(f.ManagementLists))
		for i, l := range f.ManagementLists {
			l.People = slices.Clone(l.People)
			l.SectionIDs = slices.Clone(l.SectionIDs)
			c.ManagementLists[i] = l
		}
	}
	return c
}

// SectionSet is a set of section ids kept sorted ascending and free of
// duplicates. The zero value is an empty set.
type SectionSet []SectionID

// NewSectionSet builds a set from ids, collapsing duplicates.
func NewSectionSet(ids ...SectionID) SectionSet {
	var set SectionSet
	for _, id := range ids {
		set = set.Add(id)
	}
	return set
}

// Add returns the set with id inserted.
func (s SectionSet) Add(id SectionID) SectionSet {
	i, found := slices.BinarySearch(s, id)
	if found {
		return s
	}
	return slices.Insert(s, i, id)
}

// Contains reports whether id is in the set.
func (s SectionSet) Contains(id SectionID) bool {
	_, found := slices.BinarySearch(s, id)
	return found
}

// Union returns a new set holding the ids of both sets.
func (s SectionSet) Union(other SectionSet) SectionSet {
	out := slices.Clone(s)
	for _, id := range other {
		out = out.Add(id)
	}
	return out
}

// Empty reports whether the set has no ids.
func (s SectionSet) Empty() bool {
	return len(s) == 0
}

// Equal reports whether both sets hold the same ids.
func (s SectionSet) Equal(other SectionSet) bool {
	return slices.Equal(s, other)
}

// UnmarshalJSON decodes a JSON array and restores set ordering.
func (s *SectionSet) UnmarshalJSON(data []byte) error {
	var ids []SectionID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSectionSet(ids...)
	return nil
}
