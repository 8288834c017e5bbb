package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Bounds returns the inclusive year range a rule accepts.
//
//   - equals:        [v, v]
//   - less_equal:    [math.MinInt, v]
//   - greater_equal: [v, math.MaxInt]
//   - between:       [low, high] from "low-high"; an inverted range is swapped
//
// Malformed values return an error; callers treat such rules as non-matching.
func (r YearRule) Bounds() (low, high int, err error) {
	switch r.Condition {
	case ConditionEquals, ConditionLessEqual, ConditionGreaterEqual:
		v, err := parseYear(r.Value)
		if err != nil {
			return 0, 0, err
		}
		switch r.Condition {
		case ConditionLessEqual:
			return math.MinInt, v, nil
		case ConditionGreaterEqual:
			return v, math.MaxInt, nil
		default:
			return v, v, nil
		}

	case ConditionBetween:
		lo, hi, ok := strings.Cut(r.Value, "-")
		if !ok {
			return 0, 0, fmt.Errorf("between value %q: want \"low-high\"", r.Value)
		}
		low, err := parseYear(lo)
		if err != nil {
			return 0, 0, err
		}
		high, err := parseYear(hi)
		if err != nil {
			return 0, 0, err
		}
		if low > high {
			low, high = high, low
		}
		return low, high, nil

	default:
		return 0, 0, fmt.Errorf("unknown condition type %q", r.Condition)
	}
}

// Inverted reports whether a between rule was written high-low.
func (r YearRule) Inverted() bool {
	if r.Condition != ConditionBetween {
		return false
	}
	lo, hi, ok := strings.Cut(r.Value, "-")
	if !ok {
		return false
	}
	low, errLo := parseYear(lo)
	high, errHi := parseYear(hi)
	return errLo == nil && errHi == nil && low > high
}

// Matches reports whether year satisfies the rule. Malformed rules never match.
func (r YearRule) Matches(year int) bool {
	low, high, err := r.Bounds()
	if err != nil {
		return false
	}
	return low <= year && year <= high
}

func parseYear(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("year %q is not a number", s)
	}
	return v, nil
}
