package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/formflow/internal/engine"
	"github.com/roach88/formflow/internal/ir"
)

// TraceSnapshot captures the trace and final payload of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	SessionToken string         `json:"session_token,omitempty"`
	Trace        []engine.Event `json:"trace"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles answer types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"seq":  event.Seq,
			"kind": string(event.Kind),
		}
		if event.QuestionID != 0 {
			eventMap["question_id"] = int64(event.QuestionID)
		}
		if event.Cursor != nil {
			eventMap["cursor"] = event.Cursor.String()
		}
		if event.Moved {
			eventMap["moved"] = true
		}
		if event.Error != "" {
			eventMap["error"] = string(event.Error)
		}
		traceList[i] = eventMap
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
	}
	if s.SessionToken != "" {
		result["session_token"] = s.SessionToken
	}
	if s.Payload != nil {
		result["payload"] = s.Payload
	}
	return result
}

// MarshalSnapshot renders the snapshot of a result as canonical JSON.
func MarshalSnapshot(scenarioName, sessionToken string, result *Result) ([]byte, error) {
	snapshot := TraceSnapshot{
		ScenarioName: scenarioName,
		SessionToken: sessionToken,
		Trace:        result.Trace,
		Payload:      result.Payload,
	}
	return ir.MarshalCanonical(snapshot.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the trace and payload
// against a golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, forms Forms) error {
	t.Helper()

	result, err := Run(scenario, forms)
	if err != nil {
		return err
	}

	data, err := MarshalSnapshot(scenario.Name, scenario.SessionToken, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)

	return nil
}

// AssertGolden compares the given result's snapshot against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, "", result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
