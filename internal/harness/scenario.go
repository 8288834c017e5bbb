package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/formflow/internal/engine"
	"github.com/roach88/formflow/internal/ir"
)

// Scenario defines a respondent scenario.
// Scenarios start a session for one form, play a respondent's flow of
// answers and navigation, and assert on the resulting session, trace and
// payload.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Form is the id of the form the session runs against.
	Form string `yaml:"form"`

	// SessionToken is an optional fixed session token for deterministic tests.
	// If empty, defaults to "test-session-default" so golden files stay stable.
	SessionToken string `yaml:"session_token,omitempty"`

	// Respondent is the self-reported input the session starts with.
	Respondent Respondent `yaml:"respondent"`

	// StartError is the engine error code Start is expected to return.
	// When set, the flow and assertions are skipped.
	StartError string `yaml:"start_error,omitempty"`

	// Flow contains the respondent's operations in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final session, trace and payload.
	Assertions []Assertion `yaml:"assertions"`
}

// Respondent is the YAML form of engine.Selection.
type Respondent struct {
	Year  *int              `yaml:"year,omitempty"`
	Role  string            `yaml:"role,omitempty"`
	Lists []int64           `yaml:"lists,omitempty"`
	Info  map[string]string `yaml:"info,omitempty"`
}

// Selection converts the respondent into an engine.Selection.
func (r Respondent) Selection() (engine.Selection, error) {
	sel := engine.Selection{Year: r.Year, Respondent: r.Info}
	if r.Role != "" {
		role, err := ir.ParseRole(r.Role)
		if err != nil {
			return engine.Selection{}, err
		}
		sel.Role = &role
	}
	for _, id := range r.Lists {
		sel.ListIDs = append(sel.ListIDs, ir.ListID(id))
	}
	return sel, nil
}

// FlowStep is one respondent operation. Exactly one of Record, Clear,
// Seek or Action is set.
type FlowStep struct {
	// Record is the question to answer with Value.
	Record *int64 `yaml:"record,omitempty"`

	// Value is the answer for Record: a string, integer, boolean or a list
	// of option strings.
	Value any `yaml:"value,omitempty"`

	// Clear is the question whose answer is removed.
	Clear *int64 `yaml:"clear,omitempty"`

	// Seek is the cursor to jump to.
	Seek *engine.Cursor `yaml:"seek,omitempty"`

	// Action is one of "advance", "retreat" or "submit".
	Action string `yaml:"action,omitempty"`

	// Times repeats an advance or retreat. Zero means once.
	Times int `yaml:"times,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the operation must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Step kinds.
const (
	StepRecord  = "record"
	StepClear   = "clear"
	StepSeek    = "seek"
	StepAdvance = "advance"
	StepRetreat = "retreat"
	StepSubmit  = "submit"
)

// Kind returns the operation the step performs, or "" if none or more than
// one is set.
func (s FlowStep) Kind() string {
	var kinds []string
	if s.Record != nil {
		kinds = append(kinds, StepRecord)
	}
	if s.Clear != nil {
		kinds = append(kinds, StepClear)
	}
	if s.Seek != nil {
		kinds = append(kinds, StepSeek)
	}
	if s.Action != "" {
		kinds = append(kinds, s.Action)
	}
	if len(kinds) != 1 {
		return ""
	}
	return kinds[0]
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected engine error code (e.g. "INCOMPLETE_REQUIRED_ANSWER").
	// Empty means the operation succeeds.
	Error string `yaml:"error,omitempty"`

	// Moved is the expected navigation result of advance and retreat.
	// For repeated steps it applies to the last repetition.
	Moved *bool `yaml:"moved,omitempty"`

	// Cursor is the expected position after the step.
	Cursor *engine.Cursor `yaml:"cursor,omitempty"`
}

// Assertion validates the final session, trace or payload.
type Assertion struct {
	// Type specifies the assertion type:
	// - "visible_questions": visible question ids in display order
	// - "visible_sections": resolved visible section ids
	// - "no_matching_sections": Expect is the expected flag
	// - "cursor": final traversal position
	// - "traversal": every step as "list/person/section" names
	// - "payload": value at Path equals Equals (or Absent)
	// - "trace_count": Event appears exactly Count times
	// - "stored_answers": the stored submission has Count answer rows
	Type string `yaml:"type"`

	// Questions are the expected question ids (visible_questions).
	Questions []int64 `yaml:"questions,omitempty"`

	// Sections are the expected section ids (visible_sections).
	Sections []int64 `yaml:"sections,omitempty"`

	// Expect is the expected flag (no_matching_sections).
	Expect *bool `yaml:"expect,omitempty"`

	// Cursor is the expected position (cursor).
	Cursor *engine.Cursor `yaml:"cursor,omitempty"`

	// Steps are the expected traversal names (traversal).
	Steps []string `yaml:"steps,omitempty"`

	// Path addresses a value in the canonical payload (payload).
	// Map keys are used as-is; list elements are addressed by index.
	Path []string `yaml:"path,omitempty"`

	// Equals is the expected value at Path (payload).
	Equals any `yaml:"equals,omitempty"`

	// Absent asserts that Path addresses nothing (payload).
	Absent bool `yaml:"absent,omitempty"`

	// Event is the trace event kind (trace_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected number (trace_count, stored_answers).
	Count *int `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertVisibleQuestions   = "visible_questions"
	AssertVisibleSections    = "visible_sections"
	AssertNoMatchingSections = "no_matching_sections"
	AssertCursor             = "cursor"
	AssertTraversal          = "traversal"
	AssertPayload            = "payload"
	AssertTraceCount         = "trace_count"
	AssertStoredAnswers      = "stored_answers"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	scenario, err := decodeScenario(path)
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario, true); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return scenario, nil
}

// LoadScript reads a respondent script: a scenario whose name, description
// and assertions are optional. Used to drive a session outside of tests.
func LoadScript(path string) (*Scenario, error) {
	scenario, err := decodeScenario(path)
	if err != nil {
		return nil, err
	}

	if err := validateScenario(scenario, false); err != nil {
		return nil, fmt.Errorf("invalid script: %w", err)
	}

	return scenario, nil
}

func decodeScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario, strict bool) error {
	if strict && s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if strict && s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Form == "" {
		return fmt.Errorf("form is required")
	}

	if s.Respondent.Role != "" {
		if _, err := ir.ParseRole(s.Respondent.Role); err != nil {
			return fmt.Errorf("respondent: %w", err)
		}
	}

	if strict && s.StartError == "" && len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep validates a single flow step.
func validateStep(index int, step FlowStep) error {
	kind := step.Kind()
	switch kind {
	case "":
		return fmt.Errorf("flow[%d]: exactly one of record, clear, seek or action is required", index)
	case StepRecord:
		if step.Value == nil {
			return fmt.Errorf("flow[%d]: value is required for record", index)
		}
	case StepClear, StepSeek, StepSubmit:
	case StepAdvance, StepRetreat:
		if step.Times < 0 {
			return fmt.Errorf("flow[%d]: times must be non-negative", index)
		}
	default:
		return fmt.Errorf("flow[%d]: unknown action %q", index, kind)
	}

	if step.Times != 0 && kind != StepAdvance && kind != StepRetreat {
		return fmt.Errorf("flow[%d]: times only applies to advance and retreat", index)
	}
	if step.Value != nil && kind != StepRecord {
		return fmt.Errorf("flow[%d]: value only applies to record", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertVisibleQuestions, AssertVisibleSections, AssertTraversal:
		// An empty list is a valid expectation.
	case AssertNoMatchingSections:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: expect is required for no_matching_sections", index)
		}
	case AssertCursor:
		if a.Cursor == nil {
			return fmt.Errorf("assertions[%d]: cursor is required for cursor", index)
		}
	case AssertPayload:
		if len(a.Path) == 0 {
			return fmt.Errorf("assertions[%d]: path is required for payload", index)
		}
		if a.Absent == (a.Equals != nil) {
			return fmt.Errorf("assertions[%d]: payload needs exactly one of equals or absent", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertStoredAnswers:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for stored_answers", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
