package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/store"
)

// SubmissionsOptions holds flags for the submissions command.
type SubmissionsOptions struct {
	*RootOptions
	Database string
	FormID   string // optional - specific form only
	Answers  bool   // include answer rows
}

// SubmissionSummary is one stored submission.
type SubmissionSummary struct {
	Seq          int64          `json:"seq"`
	ID           string         `json:"id"`
	FormID       string         `json:"form_id"`
	FormHash     string         `json:"form_hash,omitempty"`
	Kind         ir.PayloadKind `json:"kind"`
	SessionToken string         `json:"session_token"`
	Answers      []AnswerView   `json:"answers,omitempty"`
}

// AnswerView is one stored answer row.
type AnswerView struct {
	List     string `json:"list,omitempty"`
	Person   string `json:"person"`
	Section  string `json:"section,omitempty"`
	Question int64  `json:"question"`
	Value    string `json:"value"` // Canonical JSON
}

// SubmissionsResult holds the listing.
type SubmissionsResult struct {
	Submissions []SubmissionSummary `json:"submissions"`
	Total       int                 `json:"total"`
}

// NewSubmissionsCommand creates the submissions command.
func NewSubmissionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SubmissionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submissions",
		Short: "List stored submissions",
		Long: `List the submissions stored in a database, oldest first.

Examples:
  formflow submissions --db ./formflow.db
  formflow submissions --db ./formflow.db --form annual-review --answers
  formflow submissions --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmissions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $"+EnvDatabase+")")
	cmd.Flags().StringVar(&opts.FormID, "form", "", "list one form only")
	cmd.Flags().BoolVar(&opts.Answers, "answers", false, "include answer rows")

	return cmd
}

func runSubmissions(opts *SubmissionsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	st, err := openExistingStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	subs, err := st.ListSubmissions(ctx, opts.FormID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to list submissions: %v", err), nil)
	}

	result := SubmissionsResult{
		Submissions: make([]SubmissionSummary, 0, len(subs)),
		Total:       len(subs),
	}
	for _, sub := range subs {
		summary := SubmissionSummary{
			Seq:          sub.Seq,
			ID:           sub.ID,
			FormID:       sub.FormID,
			FormHash:     sub.FormHash,
			Kind:         sub.Kind,
			SessionToken: sub.SessionToken,
		}
		if opts.Answers {
			rows, err := st.ReadAnswers(ctx, sub.ID)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to read answers of %s: %v", sub.ID, err), nil)
			}
			summary.Answers = make([]AnswerView, len(rows))
			for i, r := range rows {
				summary.Answers[i] = AnswerView{
					List:     r.ListName,
					Person:   r.Person,
					Section:  r.Section,
					Question: int64(r.QuestionID),
					Value:    string(r.Value),
				}
			}
		}
		result.Submissions = append(result.Submissions, summary)
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No submissions found.")
		return nil
	}
	for _, s := range result.Submissions {
		fmt.Fprintf(w, "%4d  %s  %-10s  %s  %s\n", s.Seq, s.FormID, s.Kind, s.SessionToken, s.ID)
		for _, a := range s.Answers {
			where := a.Person
			if a.List != "" {
				where = fmt.Sprintf("%s / %s / %s", a.List, a.Person, a.Section)
			}
			fmt.Fprintf(w, "        %s  q%d = %s\n", where, a.Question, a.Value)
		}
	}
	fmt.Fprintf(w, "\n%d submission(s)\n", result.Total)
	return nil
}

// openExistingStore opens the database named by flag or FORMFLOW_DB.
// Reading commands do not create a database that does not exist.
func openExistingStore(formatter *OutputFormatter, flag string) (*store.Store, error) {
	dbPath, err := databasePath(flag)
	if err != nil {
		return nil, err
	}
	if dbPath != ":memory:" {
		if _, statErr := os.Stat(dbPath); statErr != nil {
			return nil, formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath), nil)
		}
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to open database: %v", err), nil)
	}
	return st, nil
}
