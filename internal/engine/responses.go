package engine

import (
	"cmp"
	"maps"
	"slices"

	"github.com/roach88/formflow/internal/ir"
)

// ResponseKey addresses one recorded answer.
//
// Standard keys carry Person = ir.SelfPerson and zero indexes. Management
// keys carry the cursor's list and section index and the evaluated person's
// name, so duplicate names in one list share their answers.
type ResponseKey struct {
	Standard     bool
	ListIndex    int
	Person       string
	SectionIndex int
	QuestionID   ir.QuestionID
}

// StandardKey returns the key for a question outside the traversal.
func StandardKey(qid ir.QuestionID) ResponseKey {
	return ResponseKey{Standard: true, Person: ir.SelfPerson, QuestionID: qid}
}

// StepKey returns the key for a question at a traversal step.
func StepKey(step Step, qid ir.QuestionID) ResponseKey {
	return ResponseKey{
		ListIndex:    step.Cursor.ListIndex,
		Person:       step.Person,
		SectionIndex: step.Cursor.SectionIndex,
		QuestionID:   qid,
	}
}

// compareKeys orders standard keys first, then list, person, section, question.
func compareKeys(a, b ResponseKey) int {
	if a.Standard != b.Standard {
		if a.Standard {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(a.ListIndex, b.ListIndex); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Person, b.Person); c != 0 {
		return c
	}
	if c := cmp.Compare(a.SectionIndex, b.SectionIndex); c != 0 {
		return c
	}
	return cmp.Compare(a.QuestionID, b.QuestionID)
}

// Entry is one recorded answer.
type Entry struct {
	Key   ResponseKey
	Value ir.AnswerValue
}

// ResponseStore holds the answers of one session.
// Values are validated by the Session before they reach the store.
type ResponseStore struct {
	entries map[ResponseKey]ir.AnswerValue
}

// NewResponseStore creates an empty store.
func NewResponseStore() *ResponseStore {
	return &ResponseStore{entries: make(map[ResponseKey]ir.AnswerValue)}
}

// Record stores value for question qid at a traversal step, replacing any
// earlier value.
func (s *ResponseStore) Record(step Step, qid ir.QuestionID, value ir.AnswerValue) {
	s.entries[StepKey(step, qid)] = value
}

// RecordStandard stores value for a question outside the traversal.
func (s *ResponseStore) RecordStandard(qid ir.QuestionID, value ir.AnswerValue) {
	s.entries[StandardKey(qid)] = value
}

func (s *ResponseStore) set(key ResponseKey, value ir.AnswerValue) {
	s.entries[key] = value
}

// Get returns the value stored under key.
func (s *ResponseStore) Get(key ResponseKey) (ir.AnswerValue, bool) {
	v, ok := s.entries[key]
	return v, ok
}

// Clear removes the value stored under key. Returns false if there was none.
func (s *ResponseStore) Clear(key ResponseKey) bool {
	if _, ok := s.entries[key]; !ok {
		return false
	}
	delete(s.entries, key)
	return true
}

// Len returns the number of recorded answers.
func (s *ResponseStore) Len() int {
	return len(s.entries)
}

// Entries returns every recorded answer in key order.
func (s *ResponseStore) Entries() []Entry {
	keys := slices.SortedFunc(maps.Keys(s.entries), compareKeys)
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = Entry{Key: k, Value: s.entries[k]}
	}
	return out
}
