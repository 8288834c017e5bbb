package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// AnswerValue is a sealed interface representing a recorded answer.
// Only AnswerString, AnswerInt, AnswerBool and AnswerSet implement it.
// NO floats - they break canonical serialization.
type AnswerValue interface {
	answerValue() // Sealed - only these types implement it
}

// AnswerString is a free-text or single-choice answer.
type AnswerString string

func (AnswerString) answerValue() {}

// AnswerInt is a numeric or rating answer. Always int64.
type AnswerInt int64

func (AnswerInt) answerValue() {}

// AnswerBool is a yes/no answer.
type AnswerBool bool

func (AnswerBool) answerValue() {}

// AnswerSet is a multi-select answer: sorted, without duplicates.
// Build with NewAnswerSet to keep the invariant.
type AnswerSet []string

func (AnswerSet) answerValue() {}

// NewAnswerSet builds a set from the selected options.
func NewAnswerSet(options ...string) AnswerSet {
	set := AnswerSet(slices.Clone(options))
	slices.Sort(set)
	set = slices.Compact(set)
	if set == nil {
		set = AnswerSet{}
	}
	return set
}

// IsBlank reports whether an answer counts as missing for a required
// question: nil, whitespace-only strings and empty sets.
func IsBlank(v AnswerValue) bool {
	switch val := v.(type) {
	case nil:
		return true
	case AnswerString:
		return strings.TrimSpace(string(val)) == ""
	case AnswerSet:
		return len(val) == 0
	default:
		return false
	}
}

// ToAnswer converts a decoded YAML/JSON value into an AnswerValue.
// Lists become sets and must hold only strings. Floats are rejected.
func ToAnswer(v any) (AnswerValue, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not an answer")
	case AnswerValue:
		return val, nil
	case string:
		return AnswerString(val), nil
	case bool:
		return AnswerBool(val), nil
	case int:
		return AnswerInt(val), nil
	case int64:
		return AnswerInt(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return nil, fmt.Errorf("floats are not answers: %s", val)
		}
		return AnswerInt(n), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are not answers: %v", val)
	case []string:
		return NewAnswerSet(val...), nil
	case []any:
		opts := make([]string, 0, len(val))
		for i, elem := range val {
			s, ok := elem.(string)
			if !ok {
				return nil, fmt.Errorf("set[%d]: options must be strings, got %T", i, elem)
			}
			opts = append(opts, s)
		}
		return NewAnswerSet(opts...), nil
	default:
		return nil, fmt.Errorf("unsupported answer type: %T", v)
	}
}

// UnmarshalAnswer decodes a JSON-encoded answer with strict validation.
func UnmarshalAnswer(data []byte) (AnswerValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return ToAnswer(raw)
}

// Answers maps question ids (decimal strings) to recorded values.
type Answers map[string]AnswerValue

// UnmarshalJSON decodes each entry through UnmarshalAnswer.
func (a *Answers) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*a = make(Answers, len(raw))
	for k, v := range raw {
		val, err := UnmarshalAnswer(v)
		if err != nil {
			return fmt.Errorf("answer %q: %w", k, err)
		}
		(*a)[k] = val
	}
	return nil
}
