package engine

import (
	"fmt"
	"slices"

	"github.com/roach88/formflow/internal/ir"
)

// MissingRequired returns the first required question in questions whose
// answer is absent or blank. lookup returns the recorded value for a question.
func MissingRequired(questions []ir.Question, lookup func(ir.QuestionID) (ir.AnswerValue, bool)) (ir.QuestionID, bool) {
	for _, q := range questions {
		if !q.IsRequired {
			continue
		}
		v, ok := lookup(q.ID)
		if !ok || ir.IsBlank(v) {
			return q.ID, true
		}
	}
	return 0, false
}

// CheckAnswer validates value against the question's type and options.
//
//   - checkbox questions take a set; every option must be configured
//   - radio and select take a string naming a configured option
//   - every other type takes a scalar (string, int or bool)
//
// Option membership is only checked when the question has options.
func CheckAnswer(q ir.Question, value ir.AnswerValue) error {
	if q.Type.MultiSelect() {
		set, ok := value.(ir.AnswerSet)
		if !ok {
			return fmt.Errorf("%s question takes a set of options, got %T", q.Type, value)
		}
		for _, opt := range set {
			if len(q.Options) > 0 && !slices.Contains(q.Options, opt) {
				return fmt.Errorf("%q is not an option", opt)
			}
		}
		return nil
	}

	if _, ok := value.(ir.AnswerSet); ok {
		return fmt.Errorf("%s question takes a single value, got a set", q.Type)
	}

	switch q.Type {
	case ir.QuestionRadio, ir.QuestionSelect:
		s, ok := value.(ir.AnswerString)
		if !ok {
			return fmt.Errorf("%s question takes an option string, got %T", q.Type, value)
		}
		if s != "" && len(q.Options) > 0 && !slices.Contains(q.Options, string(s)) {
			return fmt.Errorf("%q is not an option", string(s))
		}
	}
	return nil
}
