package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/formflow/internal/engine"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Kind string // optional - filter to one event kind

	// Tokens allows overriding the session token generator (for testing).
	Tokens engine.TokenGenerator
}

// TraceEvent represents a single event in the trace timeline.
type TraceEvent struct {
	Seq        int64  `json:"seq"`
	Kind       string `json:"kind"`
	QuestionID int64  `json:"question_id,omitempty"`
	Cursor     string `json:"cursor,omitempty"`
	Moved      bool   `json:"moved,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Form         string       `json:"form"`
	SessionToken string       `json:"session_token"`
	Flow         engine.Flow  `json:"flow"`
	Timeline     []TraceEvent `json:"timeline"`
	Stats        TraceStats   `json:"stats"`
	SubmissionID string       `json:"submission_id,omitempty"`
	Failure      string       `json:"failure,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int  `json:"total_events"`
	Rejected    int  `json:"rejected"`
	Moves       int  `json:"moves"`
	Position    int  `json:"position"`
	Positions   int  `json:"positions"`
	Ready       bool `json:"ready"`
	Submitted   bool `json:"submitted"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <config-dir> <script.yaml>",
		Short: "Show the event trace of a respondent script",
		Long: `Play a respondent script in memory and show the session's event trace.

Every record, clear, seek, advance, retreat and submit is listed with its
sequence number, the cursor after the operation and the error code of
rejected operations. Nothing is written to a database.

Examples:
  formflow trace ./forms ./scripts/manager.yaml
  formflow trace ./forms ./scripts/manager.yaml --kind advance
  formflow trace ./forms ./scripts/manager.yaml --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one event kind (record|clear|seek|advance|retreat|submit)")

	return cmd
}

func runTrace(opts *TraceOptions, configDir, scriptPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = opts.Logger(cmd.ErrOrStderr())
	}

	sess, sub, mismatch, err := playScript(formatter, logger, configDir, scriptPath, opts.Tokens)
	if err != nil {
		return err
	}

	result := buildTraceResult(sess, opts.Kind)
	if sub != nil {
		result.SubmissionID = sub.ID
	}
	if mismatch != nil {
		result.Failure = mismatch.Error()
	}

	if formatter.JSON() {
		if mismatch != nil {
			if err := formatter.Failure(ErrCodeScriptFailed, result.Failure, result); err != nil {
				return err
			}
		} else if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputTraceText(formatter.Writer, result)
	}

	if mismatch != nil {
		return NewExitError(ExitFailure, result.Failure)
	}
	return nil
}

// buildTraceResult converts the session trace. Stats cover every event;
// the timeline honours the kind filter.
func buildTraceResult(sess *engine.Session, kind string) TraceResult {
	events := sess.Trace()
	result := TraceResult{
		Form:         sess.Form().ID,
		SessionToken: sess.Token(),
		Flow:         sess.Flow(),
		Timeline:     make([]TraceEvent, 0, len(events)),
		Stats: TraceStats{
			TotalEvents: len(events),
			Ready:       sess.Ready(),
			Submitted:   sess.Closed(),
		},
	}

	if sched := sess.Scheduler(); sched != nil {
		result.Stats.Position = sched.Position()
		result.Stats.Positions = sched.Total()
	}

	for _, e := range events {
		if e.Error != "" {
			result.Stats.Rejected++
		}
		if e.Moved {
			result.Stats.Moves++
		}
		if kind != "" && string(e.Kind) != kind {
			continue
		}
		te := TraceEvent{
			Seq:        e.Seq,
			Kind:       string(e.Kind),
			QuestionID: int64(e.QuestionID),
			Moved:      e.Moved,
			Error:      string(e.Error),
		}
		if e.Cursor != nil {
			te.Cursor = e.Cursor.String()
		}
		result.Timeline = append(result.Timeline, te)
	}
	return result
}

func outputTraceText(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "Session %s on form %s (%s flow)\n\n", result.SessionToken, result.Form, result.Flow)

	fmt.Fprintln(w, "Timeline:")
	for _, e := range result.Timeline {
		line := fmt.Sprintf("  [%d] %-7s", e.Seq, e.Kind)
		if e.QuestionID != 0 {
			line += fmt.Sprintf(" question=%d", e.QuestionID)
		}
		if e.Cursor != "" {
			line += " at=" + e.Cursor
		}
		if e.Moved {
			line += " moved"
		}
		if e.Error != "" {
			line += " error=" + e.Error
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w)

	s := result.Stats
	fmt.Fprintf(w, "Events: %d (%d rejected, %d move(s))\n", s.TotalEvents, s.Rejected, s.Moves)
	if s.Positions > 0 {
		fmt.Fprintf(w, "Position: %d of %d\n", s.Position+1, s.Positions)
	}
	switch {
	case s.Submitted:
		fmt.Fprintf(w, "Submitted: %s\n", result.SubmissionID)
	case s.Ready:
		fmt.Fprintln(w, "At final position")
	default:
		fmt.Fprintln(w, "Not at final position")
	}
	if result.Failure != "" {
		fmt.Fprintf(w, "✗ %s\n", result.Failure)
	}
}
