// Package harness provides scenario testing for formflow forms.
//
// The harness starts a real engine.Session for a compiled form, plays a
// respondent's flow of answers and navigation, and validates the resulting
// session, trace and payload as executable contract tests.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	form: annual-review
//	session_token: test-session-0001
//	respondent:
//	  year: 2024
//	  role: management
//	  lists: [1, 2]
//	  info: { name: Dana }
//	flow:
//	  - record: 40
//	    value: 5
//	  - action: advance
//	    expect:
//	      moved: true
//	      cursor: { list: 0, person: 0, section: 1 }
//	  - action: submit
//	    expect:
//	      error: INCOMPLETE_REQUIRED_ANSWER
//	assertions:
//	  - type: visible_questions
//	    questions: [100, 101]
//	  - type: payload
//	    path: [evaluations, Team A, Alice, Peer Review, "40"]
//	    equals: 5
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - visible_questions: Visible question ids in display order
//   - visible_sections: Resolved visible section ids
//   - no_matching_sections: Rules configured but none matched
//   - cursor: Final traversal position
//   - traversal: Every traversal step as "list/person/section"
//   - payload: Value at a path of the canonical payload
//   - trace_count: Number of events of a kind
//   - stored_answers: Answer rows stored for the submission
//
// # Deterministic Testing
//
// All scenarios execute with a fixed session token and the session's own
// logical clock, so identical scenarios produce identical traces and
// payloads. Submissions go to an in-memory SQLite store, isolated per run.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/team_lead.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario, harness.Forms{form.ID: form})
//	if !result.Pass {
//	    for _, err := range result.Errors {
//	        log.Println(err)
//	    }
//	}
package harness
