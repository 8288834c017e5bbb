package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/formflow/internal/engine"
	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/store"
	"github.com/roach88/formflow/internal/testutil"
)

// Forms maps form ids to compiled forms.
type Forms map[string]*ir.FormConfig

// Harness is the test execution engine.
// It runs one scenario against a live engine.Session with a fixed session
// token and a fresh in-memory submission store.
type Harness struct {
	store   *store.Store
	session *engine.Session
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Start a session for the scenario's form and respondent
// 3. Execute flow steps, checking each step's expect clause
// 4. Evaluate assertions
// 5. Return result with pass/fail, trace, payload and errors
//
// Returns an error only when the scenario cannot run at all; expectation
// mismatches are reported in the result.
func Run(scenario *Scenario, forms Forms) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), scenario, forms)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario, forms Forms) (*Result, error) {
	form, ok := forms[scenario.Form]
	if !ok {
		return nil, fmt.Errorf("scenario %q: form %q not found", scenario.Name, scenario.Form)
	}

	sel, err := scenario.Respondent.Selection()
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	result := NewResult()

	sess, err := engine.Start(form, sel,
		engine.WithLogger(h.logger),
		engine.WithTokenGenerator(testutil.NewFixedTokenGenerator(scenario.SessionToken)),
	)
	if scenario.StartError != "" {
		if got := engine.CodeOf(err); string(got) != scenario.StartError {
			result.AddError(fmt.Sprintf("start: expected error %s, got %s", scenario.StartError, describeErr(err)))
		}
		return result, nil
	}
	if err != nil {
		result.AddError(fmt.Sprintf("start: unexpected error: %v", err))
		return result, nil
	}
	h.session = sess

	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step, result)
	}

	result.Trace = sess.Trace()
	result.Payload = sess.Payload().CanonicalMap()

	actx := &AssertionContext{
		Session: sess,
		Store:   h.store,
		Ctx:     ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// Execute plays a respondent script against form and returns the final
// session. Unlike Run it stops at the first step whose outcome differs from
// its expect clause and returns that as an error. logger and tokens are
// passed to the session.
func Execute(form *ir.FormConfig, script *Scenario, logger *slog.Logger, tokens engine.TokenGenerator) (*engine.Session, *ir.Submission, error) {
	sel, err := script.Respondent.Selection()
	if err != nil {
		return nil, nil, err
	}

	sess, err := engine.Start(form, sel, engine.WithLogger(logger), engine.WithTokenGenerator(tokens))
	if err != nil {
		return nil, nil, err
	}

	h := &Harness{session: sess, logger: logger}
	result := NewResult()
	for i, step := range script.Flow {
		h.executeStep(context.Background(), i, step, result)
		if !result.Pass {
			return sess, result.Submission, errors.New(result.Errors[0])
		}
	}
	return sess, result.Submission, nil
}

// executeStep runs one flow step and records mismatches in result.
func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) {
	kind := step.Kind()

	var (
		err   error
		moved *bool
	)
	switch kind {
	case StepRecord:
		err = h.session.Record(ir.QuestionID(*step.Record), step.Value)
	case StepClear:
		err = h.session.Clear(ir.QuestionID(*step.Clear))
	case StepSeek:
		err = h.session.Seek(*step.Seek)
	case StepAdvance, StepRetreat:
		times := max(step.Times, 1)
		var m bool
		for range times {
			if kind == StepAdvance {
				m, err = h.session.Advance()
			} else {
				m, err = h.session.Retreat()
			}
			if err != nil {
				break
			}
		}
		moved = &m
	case StepSubmit:
		var sub *ir.Submission
		sub, err = h.session.Submit()
		if err == nil {
			result.Submission = sub
			if h.store != nil {
				if _, _, werr := h.store.WriteSubmission(ctx, sub); werr != nil {
					result.AddError(fmt.Sprintf("flow[%d]: failed to store submission: %v", i, werr))
				}
			}
		}
	default:
		result.AddError(fmt.Sprintf("flow[%d]: invalid step", i))
		return
	}

	h.logger.Debug("flow step completed", "step", i, "kind", kind, "error", engine.CodeOf(err))

	expect := step.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}

	if err != nil && engine.CodeOf(err) == "" {
		result.AddError(fmt.Sprintf("flow[%d] %s: %v", i, kind, err))
		return
	}

	if got := engine.CodeOf(err); string(got) != expect.Error {
		if expect.Error == "" {
			result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, kind, err))
		} else {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected error %s, got %s", i, kind, expect.Error, describeErr(err)))
		}
		return
	}

	if expect.Moved != nil && moved != nil && *expect.Moved != *moved {
		result.AddError(fmt.Sprintf("flow[%d] %s: moved = %v, want %v", i, kind, *moved, *expect.Moved))
	}

	if expect.Cursor != nil {
		sched := h.session.Scheduler()
		if sched == nil || sched.Empty() {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected cursor %s, session has no traversal", i, kind, expect.Cursor))
		} else if got := sched.Cursor(); got != *expect.Cursor {
			result.AddError(fmt.Sprintf("flow[%d] %s: cursor = %s, want %s", i, kind, got, expect.Cursor))
		}
	}
}

func describeErr(err error) string {
	if err == nil {
		return "success"
	}
	if code := engine.CodeOf(err); code != "" {
		return string(code)
	}
	return err.Error()
}
