package cli

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database string
	FormID   string // optional - specific form only
	Config   string // optional - configuration to re-derive form hashes from
}

// VerifySubmissionResult holds the verification result for one submission.
type VerifySubmissionResult struct {
	ID       string   `json:"id"`
	Seq      int64    `json:"seq"`
	FormID   string   `json:"form_id"`
	FormHash string   `json:"form_hash,omitempty"`
	Answers  int      `json:"answers"`
	Verified bool     `json:"verified"`
	Problems []string `json:"problems,omitempty"`

	// FormChanged is set with --config when the recorded form hash differs
	// from the configured form's, or the form is no longer configured.
	// It does not fail verification.
	FormChanged bool `json:"form_changed,omitempty"`
}

// VerifyResult holds the overall verification result.
type VerifyResult struct {
	Submissions []VerifySubmissionResult `json:"submissions"`
	Total       int                      `json:"total"`
	AllVerified bool                     `json:"all_verified"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify stored submissions against their content addresses",
		Long: `Re-read every stored submission and verify it is intact.

For each submission the payload is decoded and re-encoded as canonical JSON,
its content-addressed id is recomputed from the session token and payload,
and the flattened answer rows are rebuilt and compared with the stored rows.
The recorded form hash must be well formed. With --config, each form hash is
re-derived from that configuration and submissions answered against a
different rule set are reported as changed.

Exit codes:
  0 - All submissions verified
  1 - One or more submissions do not match their id or rows
  2 - Command error (database not found, etc.)

Examples:
  formflow verify --db ./formflow.db
  formflow verify --db ./formflow.db --form annual-review --format json
  formflow verify --db ./formflow.db --config ./forms`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $"+EnvDatabase+")")
	cmd.Flags().StringVar(&opts.FormID, "form", "", "verify one form only")
	cmd.Flags().StringVar(&opts.Config, "config", "", "config directory to re-derive form hashes from")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	var current map[string]string
	if opts.Config != "" {
		loaded, err := loadFormsOrFail(formatter, opts.Config)
		if err != nil {
			return err
		}
		current = make(map[string]string, len(loaded.Forms))
		for _, f := range loaded.Forms {
			h, err := ir.FormHash(f)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeGeneric, fmt.Sprintf("failed to hash form %s: %v", f.ID, err), nil)
			}
			current[f.ID] = h
		}
	}

	st, err := openExistingStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	subs, err := st.ListSubmissions(ctx, opts.FormID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to list submissions: %v", err), nil)
	}

	result := VerifyResult{
		Submissions: make([]VerifySubmissionResult, 0, len(subs)),
		Total:       len(subs),
		AllVerified: true,
	}
	for _, sub := range subs {
		vr, err := verifySubmission(ctx, st, sub)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to verify %s: %v", sub.ID, err), nil)
		}
		if current != nil {
			h, ok := current[sub.FormID]
			vr.FormChanged = !ok || h != sub.FormHash
		}
		formatter.VerboseLog("Verified %s: %v", sub.ID, vr.Verified)
		if !vr.Verified {
			result.AllVerified = false
		}
		result.Submissions = append(result.Submissions, vr)
	}

	return outputVerify(formatter, result)
}

// verifySubmission checks one stored submission. A mismatch is reported in
// the result; err is only set when the database cannot be read.
func verifySubmission(ctx context.Context, st *store.Store, sub ir.Submission) (VerifySubmissionResult, error) {
	vr := VerifySubmissionResult{ID: sub.ID, Seq: sub.Seq, FormID: sub.FormID, FormHash: sub.FormHash}
	if !validFormHash(sub.FormHash) {
		vr.Problems = append(vr.Problems, fmt.Sprintf("form hash %q is not a sha256 hex digest", sub.FormHash))
	}

	stored, err := st.ReadAnswers(ctx, sub.ID)
	if err != nil {
		return vr, err
	}
	vr.Answers = len(stored)

	payload, err := st.ReadPayload(ctx, sub.ID)
	if err != nil {
		vr.Problems = append(vr.Problems, fmt.Sprintf("payload does not decode: %v", err))
		return vr, nil
	}

	id, canonical, err := ir.SubmissionID(sub.SessionToken, payload)
	if err != nil {
		vr.Problems = append(vr.Problems, fmt.Sprintf("payload does not encode: %v", err))
		return vr, nil
	}
	if id != sub.ID {
		vr.Problems = append(vr.Problems, fmt.Sprintf("content address is %s", id))
	}
	if !bytes.Equal(canonical, sub.Payload) {
		vr.Problems = append(vr.Problems, "stored payload is not canonical JSON")
	}
	if payload.FormID != sub.FormID {
		vr.Problems = append(vr.Problems, fmt.Sprintf("payload form %q differs from column %q", payload.FormID, sub.FormID))
	}
	if payload.Kind != sub.Kind {
		vr.Problems = append(vr.Problems, fmt.Sprintf("payload kind %q differs from column %q", payload.Kind, sub.Kind))
	}

	rows, err := payload.Rows()
	if err != nil {
		vr.Problems = append(vr.Problems, fmt.Sprintf("answers do not flatten: %v", err))
	} else if !slices.EqualFunc(rows, stored, equalRows) {
		vr.Problems = append(vr.Problems, fmt.Sprintf("stored %d answer row(s), payload flattens to %d", len(stored), len(rows)))
	}

	vr.Verified = len(vr.Problems) == 0
	return vr, nil
}

// validFormHash accepts the lowercase hex produced by ir.FormHash. Rows
// written before form hashes were recorded carry an empty hash.
func validFormHash(h string) bool {
	if h == "" {
		return true
	}
	if len(h) != 64 {
		return false
	}
	_, err := hex.DecodeString(h)
	return err == nil && h == strings.ToLower(h)
}

func equalRows(a, b ir.AnswerRow) bool {
	return a.ListName == b.ListName &&
		a.Person == b.Person &&
		a.Section == b.Section &&
		a.QuestionID == b.QuestionID &&
		bytes.Equal(a.Value, b.Value)
}

func outputVerify(formatter *OutputFormatter, result VerifyResult) error {
	failed := 0
	for _, s := range result.Submissions {
		if !s.Verified {
			failed++
		}
	}
	var exitErr error
	if failed > 0 {
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("%d submission(s) failed verification", failed))
	}

	if formatter.JSON() {
		if failed == 0 {
			return formatter.Success(result)
		}
		if err := formatter.Failure(ErrCodeCorrupt, exitErr.Error(), result); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No submissions found.")
		return nil
	}
	for _, s := range result.Submissions {
		if s.Verified {
			fmt.Fprintf(w, "✓ %d %s (%d answer(s))\n", s.Seq, s.ID, s.Answers)
			if s.FormChanged {
				fmt.Fprintf(w, "  form %s changed since this submission\n", s.FormID)
			}
			continue
		}
		fmt.Fprintf(w, "✗ %d %s\n", s.Seq, s.ID)
		for _, p := range s.Problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	fmt.Fprintln(w)
	if exitErr != nil {
		fmt.Fprintf(w, "✗ %s\n", exitErr.Error())
		return exitErr
	}
	fmt.Fprintf(w, "✓ All %d submission(s) verified\n", result.Total)
	return nil
}
