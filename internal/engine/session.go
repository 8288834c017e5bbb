package engine

import (
	"fmt"
	"log/slog"
	"maps"

	"github.com/roach88/formflow/internal/ir"
)

// Flow is the kind of questionnaire a session drives.
type Flow string

const (
	// FlowStandard is a single pass over the resolved visible questions.
	FlowStandard Flow = "standard"

	// FlowManagement is the round-robin (list, person, section) traversal.
	FlowManagement Flow = "management"
)

// Selection is the respondent's self-reported input.
type Selection struct {
	Year       *int              // Entry year, nil when not given
	Role       *ir.Role          // Role, nil when not given
	ListIDs    []ir.ListID       // Management lists to evaluate; empty = all
	Respondent map[string]string // Free-form respondent info for the payload
}

// Page is what the respondent currently sees.
type Page struct {
	// Step is the traversal position; nil on the standard page.
	Step *Step

	// Questions are the questions answerable on this page, in display order.
	Questions []ir.Question
}

// Session owns one respondent's questionnaire.
//
// The form snapshot is read-only; the cursor changes only through Advance,
// Retreat and Seek; the response store changes only through Record and
// Clear. A Session is not safe for concurrent use and needs no locking
// because nothing is shared between sessions.
type Session struct {
	token      string
	form       *ir.FormConfig
	selection  Selection
	flow       Flow
	resolution Resolution
	visible    []ir.Question // Standard page, or unassigned questions for management
	scheduler  *Scheduler    // Nil for FlowStandard
	responses  *ResponseStore
	clock      *Clock
	trace      []Event
	logger     *slog.Logger
	tokens     TokenGenerator
	closed     bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithTokenGenerator sets the session token source. Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(s *Session) {
		s.tokens = g
	}
}

// Start creates a session for form and the respondent's selection.
//
// A management respondent on a form that has ManagementList records or
// legacy role-rule people gets the management flow. Everyone else gets the
// standard flow over ResolveVisibleSections. Year rules never apply to a
// management respondent in either flow.
//
// The form is cloned, so later changes by the configuration provider do not
// reach the session.
func Start(form *ir.FormConfig, sel Selection, opts ...Option) (*Session, error) {
	s := &Session{
		form:      form.Clone(),
		selection: cloneSelection(sel),
		responses: NewResponseStore(),
		clock:     NewClock(),
		logger:    slog.Default(),
		tokens:    UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if sel.Role != nil && *sel.Role == ir.RoleManagement && hasManagementConfig(s.form) {
		sched, err := NewSchedulerFor(s.form, sel.ListIDs)
		if err != nil {
			return nil, err
		}
		s.flow = FlowManagement
		s.scheduler = sched
		s.visible = UnassignedQuestions(s.form.Questions)
	} else {
		year := sel.Year
		if sel.Role != nil && *sel.Role == ir.RoleManagement {
			year = nil
		}
		s.flow = FlowStandard
		s.resolution = ResolveVisibleSections(s.form.YearRules, s.form.RoleRules, year, sel.Role, s.form.Sections)
		s.visible = ResolveVisibleQuestions(s.form.Sections, s.form.Questions, s.resolution)
		s.logMalformedRules()
	}

	s.token = s.tokens.Generate()
	s.logger.Debug("session started",
		"token", s.token,
		"form", s.form.ID,
		"flow", s.flow,
		"no_matching_sections", s.NoMatchingSections(),
	)
	return s, nil
}

func hasManagementConfig(form *ir.FormConfig) bool {
	if len(form.ManagementLists) > 0 {
		return true
	}
	_, ok := legacyPlan(form)
	return ok
}

func cloneSelection(sel Selection) Selection {
	out := Selection{
		ListIDs:    append([]ir.ListID(nil), sel.ListIDs...),
		Respondent: maps.Clone(sel.Respondent),
	}
	if sel.Year != nil {
		y := *sel.Year
		out.Year = &y
	}
	if sel.Role != nil {
		r := *sel.Role
		out.Role = &r
	}
	return out
}

// logMalformedRules reports year rules that the resolver skipped.
func (s *Session) logMalformedRules() {
	for i, r := range s.form.YearRules {
		if _, _, err := r.Bounds(); err != nil {
			s.logger.Debug("year rule skipped", "form", s.form.ID, "index", i, "error", err)
		}
	}
}

// Token returns the session token.
func (s *Session) Token() string {
	return s.token
}

// Form returns the session's form snapshot. Callers must not modify it.
func (s *Session) Form() *ir.FormConfig {
	return s.form
}

// Flow returns the kind of questionnaire.
func (s *Session) Flow() Flow {
	return s.flow
}

// Resolution returns the standard-flow section resolution.
// It is the zero Resolution for management sessions.
func (s *Session) Resolution() Resolution {
	return s.resolution
}

// NoMatchingSections reports whether the selection revealed nothing to
// evaluate. Unassigned questions may still be shown.
func (s *Session) NoMatchingSections() bool {
	if s.flow == FlowManagement {
		return s.scheduler.Empty()
	}
	return s.resolution.NoMatchingSections()
}

// Scheduler returns the traversal driver, nil for standard sessions.
func (s *Session) Scheduler() *Scheduler {
	return s.scheduler
}

// VisibleQuestions returns the standard page questions: the resolved
// visible set for standard sessions, unassigned questions for management.
func (s *Session) VisibleQuestions() []ir.Question {
	return s.visible
}

// Responses returns the response store. Callers must not modify it.
func (s *Session) Responses() *ResponseStore {
	return s.responses
}

// Closed reports whether the session was submitted.
func (s *Session) Closed() bool {
	return s.closed
}

// Page returns the current page. Management sessions show the questions of
// the current section; standard sessions show every visible question.
func (s *Session) Page() Page {
	if s.flow == FlowStandard {
		return Page{Questions: s.visible}
	}
	step, ok := s.scheduler.Current()
	if !ok {
		return Page{Questions: []ir.Question{}}
	}
	return Page{
		Step:      &step,
		Questions: SectionQuestions(step.Section.ID, s.form.Questions),
	}
}

// Record stores an answer for question qid at the current position.
//
// value may be an ir.AnswerValue or a decoded YAML/JSON value (see
// ir.ToAnswer). Unassigned questions in a management session are recorded
// outside the traversal. Returns UNKNOWN_QUESTION if the question is not
// answerable here and INVALID_ANSWER if the value does not fit.
func (s *Session) Record(qid ir.QuestionID, value any) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	q, key, err := s.locate(qid)
	if err != nil {
		s.emit(Event{Kind: EventRecord, QuestionID: qid, Error: CodeOf(err)})
		return err
	}

	answer, err := ir.ToAnswer(value)
	if err == nil {
		err = CheckAnswer(q, answer)
	}
	if err != nil {
		ee := NewInvalidAnswerError(s.token, qid, err.Error())
		s.emit(Event{Kind: EventRecord, QuestionID: qid, Error: ee.Code})
		return ee
	}

	s.responses.set(key, answer)
	s.emit(Event{Kind: EventRecord, QuestionID: qid})
	return nil
}

// Clear removes the answer for question qid at the current position.
func (s *Session) Clear(qid ir.QuestionID) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	_, key, err := s.locate(qid)
	if err != nil {
		return err
	}
	s.responses.Clear(key)
	s.emit(Event{Kind: EventClear, QuestionID: qid})
	return nil
}

// Answer returns the recorded answer for qid at the current position.
func (s *Session) Answer(qid ir.QuestionID) (ir.AnswerValue, bool) {
	_, key, err := s.locate(qid)
	if err != nil {
		return nil, false
	}
	return s.responses.Get(key)
}

// locate finds the question and the store key qid resolves to here.
func (s *Session) locate(qid ir.QuestionID) (ir.Question, ResponseKey, error) {
	for _, q := range s.visible {
		if q.ID == qid {
			return q, StandardKey(qid), nil
		}
	}
	if s.flow == FlowManagement {
		if step, ok := s.scheduler.Current(); ok {
			for _, q := range SectionQuestions(step.Section.ID, s.form.Questions) {
				if q.ID == qid {
					return q, StepKey(step, qid), nil
				}
			}
		}
	}
	return ir.Question{}, ResponseKey{}, &EngineError{
		Code:         ErrCodeUnknownQuestion,
		Message:      "question is not visible at the current position",
		SessionToken: s.token,
		QuestionID:   qid,
		Cursor:       s.cursorRef(),
	}
}

// Advance validates the current page and moves forward.
//
// Returns an INCOMPLETE_REQUIRED_ANSWER EngineError without moving if a
// required question on the page is unanswered. Returns false at the
// terminal position; standard sessions have one page and never move.
func (s *Session) Advance() (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	if err := s.validatePage(); err != nil {
		s.emit(Event{Kind: EventAdvance, Error: CodeOf(err)})
		return false, err
	}
	moved := s.flow == FlowManagement && s.scheduler.Advance()
	s.emit(Event{Kind: EventAdvance, Moved: moved})
	s.logger.Debug("advance", "token", s.token, "moved", moved, "at", s.cursorRef())
	return moved, nil
}

// Retreat moves back one position without validation; recorded answers are
// kept. Returns false at the initial position.
func (s *Session) Retreat() (bool, error) {
	if err := s.checkOpen(); err != nil {
		return false, err
	}
	moved := s.flow == FlowManagement && s.scheduler.Retreat()
	s.emit(Event{Kind: EventRetreat, Moved: moved})
	s.logger.Debug("retreat", "token", s.token, "moved", moved, "at", s.cursorRef())
	return moved, nil
}

// Seek jumps to c, for reviewing an earlier answer.
func (s *Session) Seek(c Cursor) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if s.flow != FlowManagement {
		err := &EngineError{
			Code:         ErrCodeCursorOutOfRange,
			Message:      "standard sessions have no traversal",
			SessionToken: s.token,
			Cursor:       &c,
		}
		s.emit(Event{Kind: EventSeek, Error: err.Code})
		return err
	}
	if err := s.scheduler.Seek(c); err != nil {
		s.emit(Event{Kind: EventSeek, Error: CodeOf(err)})
		return err
	}
	s.emit(Event{Kind: EventSeek, Moved: true})
	return nil
}

// Ready reports whether the cursor is at the last position.
func (s *Session) Ready() bool {
	return s.flow == FlowStandard || s.scheduler.AtEnd()
}

// Payload aggregates the answers recorded so far without validating them.
func (s *Session) Payload() *ir.SubmissionPayload {
	return Aggregate(s)
}

// Submit validates every page, aggregates the payload and closes the session.
//
// Returns an INCOMPLETE_REQUIRED_ANSWER EngineError naming the first
// unanswered required question in display order; the session stays open.
func (s *Session) Submit() (*ir.Submission, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if err := s.validateAll(); err != nil {
		s.emit(Event{Kind: EventSubmit, Error: CodeOf(err)})
		return nil, err
	}

	sub, err := NewSubmission(s.token, s.form, Aggregate(s))
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	s.closed = true
	s.emit(Event{Kind: EventSubmit})
	s.logger.Info("session submitted",
		"token", s.token,
		"form", s.form.ID,
		"submission", sub.ID,
		"answers", len(sub.Answers),
	)
	return sub, nil
}

func (s *Session) checkOpen() error {
	if s.closed {
		return &EngineError{
			Code:         ErrCodeSessionClosed,
			Message:      "session was already submitted",
			SessionToken: s.token,
		}
	}
	return nil
}

// validatePage checks the questions answerable on the current page.
// Management pages cover only the current section; unassigned questions are
// checked at Submit.
func (s *Session) validatePage() error {
	if s.flow == FlowStandard {
		return s.checkStandard()
	}
	step, ok := s.scheduler.Current()
	if !ok {
		return nil
	}
	return s.checkStep(step)
}

func (s *Session) validateAll() error {
	if err := s.checkStandard(); err != nil {
		return err
	}
	if s.flow == FlowStandard {
		return nil
	}
	for _, step := range s.scheduler.Steps() {
		if err := s.checkStep(step); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) checkStandard() error {
	qid, missing := MissingRequired(s.visible, func(id ir.QuestionID) (ir.AnswerValue, bool) {
		return s.responses.Get(StandardKey(id))
	})
	if missing {
		return NewIncompleteAnswerError(s.token, qid, nil)
	}
	return nil
}

func (s *Session) checkStep(step Step) error {
	questions := SectionQuestions(step.Section.ID, s.form.Questions)
	qid, missing := MissingRequired(questions, func(id ir.QuestionID) (ir.AnswerValue, bool) {
		return s.responses.Get(StepKey(step, id))
	})
	if !missing {
		return nil
	}
	at := step.Cursor
	err := NewIncompleteAnswerError(s.token, qid, &at)
	err.Details = map[string]string{
		"list":    step.List,
		"person":  step.Person,
		"section": step.Section.Name,
	}
	return err
}

func (s *Session) cursorRef() *Cursor {
	if s.flow != FlowManagement || s.scheduler.Empty() {
		return nil
	}
	c := s.scheduler.Cursor()
	return &c
}

func (s *Session) emit(e Event) {
	e.Seq = s.clock.Next()
	if e.Cursor == nil {
		e.Cursor = s.cursorRef()
	}
	s.trace = append(s.trace, e)
}
