package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/formflow/internal/engine"
	"github.com/roach88/formflow/internal/harness"
	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string

	// Tokens allows overriding the session token generator (for testing).
	// If nil, scripts with a session_token use it and others get a UUIDv7.
	Tokens engine.TokenGenerator
}

// RunResult reports the stored submission.
type RunResult struct {
	SubmissionID string         `json:"submission_id"`
	FormID       string         `json:"form_id"`
	Kind         ir.PayloadKind `json:"kind"`
	SessionToken string         `json:"session_token"`
	Seq          int64          `json:"seq"`
	Inserted     bool           `json:"inserted"`
	Answers      int            `json:"answers"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config-dir> <script.yaml>",
		Short: "Play a respondent script and store the submission",
		Long: `Play a respondent script against a form and store the submission.

The script names the form, the respondent's year, role and lists, and the
flow of record/clear/seek/advance/retreat/submit steps. Steps may carry an
expect clause; the first step whose outcome differs stops the run. A script
without a submit step is submitted after its last step.

The database is created if it does not exist. Submissions are content
addressed, so storing the same session twice is a no-op.

Exit codes:
  0 - Submission stored (or already present)
  1 - Script step did not match its expectation, or submit failed
  2 - Command error (invalid paths, unknown form, database error)

Examples:
  formflow run ./forms ./scripts/lead.yaml --db ./formflow.db
  FORMFLOW_DB=./formflow.db formflow run ./forms ./scripts/lead.yaml`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $"+EnvDatabase+")")

	return cmd
}

func runScript(opts *RunOptions, configDir, scriptPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.Logger(cmd.ErrOrStderr())

	dbPath, err := databasePath(opts.Database)
	if err != nil {
		return err
	}

	sess, sub, mismatch, err := playScript(formatter, logger, configDir, scriptPath, opts.Tokens)
	if err != nil {
		return err
	}
	if mismatch != nil {
		return formatter.Fail(ExitFailure, ErrCodeScriptFailed, mismatch.Error(), nil)
	}
	if sub == nil {
		sub, err = sess.Submit()
		if err != nil {
			return formatter.Fail(ExitFailure, string(engine.CodeOf(err)), err.Error(), nil)
		}
	}

	logger.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	seq, inserted, err := st.WriteSubmission(ctx, sub)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to store submission: %v", err), nil)
	}
	logger.Info("submission stored", "id", sub.ID, "seq", seq, "inserted", inserted)

	result := RunResult{
		SubmissionID: sub.ID,
		FormID:       sub.FormID,
		Kind:         sub.Kind,
		SessionToken: sub.SessionToken,
		Seq:          seq,
		Inserted:     inserted,
		Answers:      len(sub.Answers),
	}
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if inserted {
		fmt.Fprintf(w, "✓ Stored %s submission %s (seq %d, %d answer(s))\n", result.Kind, result.SubmissionID, seq, result.Answers)
	} else {
		fmt.Fprintf(w, "✓ Submission %s already stored (seq %d)\n", result.SubmissionID, seq)
	}
	return nil
}

// playScript loads the forms and the script and plays it in a fresh session.
// The returned submission is nil when the script has no submit step.
//
// err is a command error that has already been reported through formatter.
// mismatch is the first step whose outcome differed from its expect clause;
// the session is returned alongside it and the caller reports it.
func playScript(formatter *OutputFormatter, logger *slog.Logger, configDir, scriptPath string, tokens engine.TokenGenerator) (sess *engine.Session, sub *ir.Submission, mismatch, err error) {
	loaded, err := loadFormsOrFail(formatter, configDir)
	if err != nil {
		return nil, nil, nil, err
	}

	script, err := harness.LoadScript(scriptPath)
	if err != nil {
		return nil, nil, nil, formatter.Fail(ExitCommandError, ErrCodeBadScript, err.Error(), nil)
	}

	form, err := loaded.Lookup(script.Form)
	if err != nil {
		code, message := parseLoadError(err)
		return nil, nil, nil, formatter.Fail(ExitCommandError, code, message, nil)
	}

	if tokens == nil {
		if script.SessionToken != "" {
			tokens = engine.NewFixedGenerator(script.SessionToken)
		} else {
			tokens = engine.UUIDv7Generator{}
		}
	}

	formatter.VerboseLog("Playing %d step(s) of %s against form %s", len(script.Flow), scriptPath, form.ID)
	sess, sub, execErr := harness.Execute(form, script, logger, tokens)
	if execErr != nil && sess == nil {
		code := string(engine.CodeOf(execErr))
		if code == "" {
			code = ErrCodeBadScript
		}
		return nil, nil, nil, formatter.Fail(ExitCommandError, code, execErr.Error(), nil)
	}
	return sess, sub, execErr, nil
}
