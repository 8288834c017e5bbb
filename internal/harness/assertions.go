package harness

import (
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/formflow/internal/engine"
	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Trace    []engine.Event // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", event.Seq, event.Kind)
			if event.QuestionID != 0 {
				fmt.Fprintf(&buf, " question=%d", event.QuestionID)
			}
			if event.Cursor != nil {
				fmt.Fprintf(&buf, " at=%s", event.Cursor)
			}
			if event.Error != "" {
				fmt.Fprintf(&buf, " error=%s", event.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// assertVisibleQuestions checks the visible questions, in display order.
func assertVisibleQuestions(sess *engine.Session, a Assertion) error {
	got := []int64{}
	for _, q := range sess.VisibleQuestions() {
		got = append(got, int64(q.ID))
	}
	want := nonNil(a.Questions)
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertVisibleQuestions,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
	}
}

// assertVisibleSections checks the resolved section ids.
func assertVisibleSections(sess *engine.Session, a Assertion) error {
	got := []int64{}
	for _, id := range sess.Resolution().Sections {
		got = append(got, int64(id))
	}
	want := slices.Sorted(slices.Values(nonNil(a.Sections)))
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertVisibleSections,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
	}
}

func assertNoMatchingSections(sess *engine.Session, a Assertion) error {
	if got := sess.NoMatchingSections(); got != *a.Expect {
		return &AssertionError{
			Type:     AssertNoMatchingSections,
			Expected: strconv.FormatBool(*a.Expect),
			Actual:   strconv.FormatBool(got),
		}
	}
	return nil
}

func assertCursor(sess *engine.Session, a Assertion, trace []engine.Event) error {
	sched := sess.Scheduler()
	if sched == nil || sched.Empty() {
		return &AssertionError{
			Type:     AssertCursor,
			Expected: a.Cursor.String(),
			Actual:   "no traversal",
			Trace:    trace,
		}
	}
	if got := sched.Cursor(); got != *a.Cursor {
		return &AssertionError{
			Type:     AssertCursor,
			Expected: a.Cursor.String(),
			Actual:   got.String(),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraversal checks every traversal step as "list/person/section".
func assertTraversal(sess *engine.Session, a Assertion) error {
	got := []string{}
	if sched := sess.Scheduler(); sched != nil {
		for _, step := range sched.Steps() {
			got = append(got, fmt.Sprintf("%s/%s/%s", step.List, step.Person, step.Section.Name))
		}
	}
	want := nonNil(a.Steps)
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraversal,
		Expected: strings.Join(want, ", "),
		Actual:   strings.Join(got, ", "),
	}
}

// assertPayload checks the value at a path in the canonical payload.
// Values compare by canonical JSON.
func assertPayload(payload map[string]any, a Assertion) error {
	path := strings.Join(a.Path, " > ")
	actual, found := lookupPath(payload, a.Path)

	if a.Absent {
		if !found {
			return nil
		}
		return &AssertionError{
			Type:     AssertPayload,
			Expected: fmt.Sprintf("%s absent", path),
			Actual:   fmt.Sprintf("%s = %s", path, canonicalString(actual)),
		}
	}

	if !found {
		return &AssertionError{
			Type:     AssertPayload,
			Expected: fmt.Sprintf("%s = %s", path, canonicalString(normalizeYAML(a.Equals))),
			Actual:   fmt.Sprintf("%s absent", path),
		}
	}

	expected := normalizeYAML(a.Equals)
	if _, isSet := actual.(ir.AnswerSet); isSet {
		if v, err := ir.ToAnswer(expected); err == nil {
			expected = v
		}
	}

	want, err := ir.MarshalCanonical(expected)
	if err != nil {
		return fmt.Errorf("payload %s: invalid expected value: %w", path, err)
	}
	got, err := ir.MarshalCanonical(actual)
	if err != nil {
		return fmt.Errorf("payload %s: %w", path, err)
	}
	if !bytes.Equal(got, want) {
		return &AssertionError{
			Type:     AssertPayload,
			Expected: fmt.Sprintf("%s = %s", path, want),
			Actual:   fmt.Sprintf("%s = %s", path, got),
		}
	}
	return nil
}

// lookupPath walks maps by key and lists by index.
func lookupPath(v any, path []string) (any, bool) {
	for _, key := range path {
		switch node := v.(type) {
		case map[string]any:
			next, ok := node[key]
			if !ok {
				return nil, false
			}
			v = next
		case []any:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			v = node[i]
		default:
			return nil, false
		}
	}
	return v, true
}

// normalizeYAML converts yaml.v3 generic values into canonical-JSON types.
// Mappings with non-string keys (e.g. question ids) get string keys.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalizeYAML(elem)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = normalizeYAML(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalizeYAML(elem)
		}
		return out
	default:
		return v
	}
}

func canonicalString(v any) string {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

// assertTraceCount checks if the event kind appears exactly the specified
// number of times.
func assertTraceCount(trace []engine.Event, a Assertion) error {
	count := 0
	for _, event := range trace {
		if string(event.Kind) == a.Event {
			count++
		}
	}

	if count != *a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s appears %d times", a.Event, *a.Count),
			Actual:   fmt.Sprintf("%s appears %d times", a.Event, count),
			Trace:    trace,
		}
	}
	return nil
}

// assertStoredAnswers reads the submission back from the store and checks
// its answer rows.
func assertStoredAnswers(ctx context.Context, st *store.Store, sub *ir.Submission, a Assertion) error {
	if sub == nil {
		return &AssertionError{
			Type:     AssertStoredAnswers,
			Expected: fmt.Sprintf("%d stored answers", *a.Count),
			Actual:   "nothing was submitted",
		}
	}

	stored, err := st.ReadSubmission(ctx, sub.ID)
	if err != nil {
		return fmt.Errorf("stored_answers: failed to read submission %s: %w", sub.ID, err)
	}

	if len(stored.Answers) != *a.Count {
		return &AssertionError{
			Type:     AssertStoredAnswers,
			Expected: fmt.Sprintf("%d stored answers", *a.Count),
			Actual:   fmt.Sprintf("%d stored answers", len(stored.Answers)),
		}
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// AssertionContext provides the session and database access for assertions.
type AssertionContext struct {
	Session *engine.Session
	Store   *store.Store
	Ctx     context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
// The actx parameter provides the session and the submission store.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		if actx == nil || actx.Session == nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %s requires a session", i, assertion.Type))
			continue
		}
		sess := actx.Session

		switch assertion.Type {
		case AssertVisibleQuestions:
			err = assertVisibleQuestions(sess, assertion)
		case AssertVisibleSections:
			err = assertVisibleSections(sess, assertion)
		case AssertNoMatchingSections:
			err = assertNoMatchingSections(sess, assertion)
		case AssertCursor:
			err = assertCursor(sess, assertion, result.Trace)
		case AssertTraversal:
			err = assertTraversal(sess, assertion)
		case AssertPayload:
			err = assertPayload(result.Payload, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertStoredAnswers:
			if actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: stored_answers requires database context", i)
			} else {
				err = assertStoredAnswers(actx.Ctx, actx.Store, result.Submission, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
