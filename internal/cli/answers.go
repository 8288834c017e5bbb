package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/formflow/internal/ir"
	"github.com/roach88/formflow/internal/store"
)

// AnswersOptions holds flags for the answers command.
type AnswersOptions struct {
	*RootOptions
	Database string
	FormID   string
	Kind     string
	Question int64
	List     string
	Person   string
	Section  string
}

// AnswerRecordView is one reporting row.
type AnswerRecordView struct {
	Seq          int64  `json:"seq"`
	SubmissionID string `json:"submission_id"`
	FormID       string `json:"form_id"`
	AnswerView
}

// AnswersResult holds the matching rows.
type AnswersResult struct {
	Answers []AnswerRecordView `json:"answers"`
	Total   int                `json:"total"`
}

// NewAnswersCommand creates the answers command.
func NewAnswersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AnswersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "answers",
		Short: "Query stored answer rows",
		Long: `Query the flattened answer rows of stored submissions.

Every answer is one row keyed by list, person, section and question.
Standard answers carry the person "self" and no list or section. Filters
combine with AND; a filter left empty matches everything.

Examples:
  formflow answers --db ./formflow.db --form annual-review --question 40
  formflow answers --db ./formflow.db --list "Team A" --person Alice
  formflow answers --kind management --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnswers(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default $"+EnvDatabase+")")
	cmd.Flags().StringVar(&opts.FormID, "form", "", "form id")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "submission kind (standard|management)")
	cmd.Flags().Int64Var(&opts.Question, "question", 0, "question id")
	cmd.Flags().StringVar(&opts.List, "list", "", "management list name")
	cmd.Flags().StringVar(&opts.Person, "person", "", "evaluated person, or \"self\"")
	cmd.Flags().StringVar(&opts.Section, "section", "", "section name")

	return cmd
}

func runAnswers(opts *AnswersOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	ctx := context.Background()

	filter := store.AnswerFilter{
		FormID:     opts.FormID,
		QuestionID: ir.QuestionID(opts.Question),
		List:       opts.List,
		Person:     opts.Person,
		Section:    opts.Section,
	}
	switch kind := ir.PayloadKind(opts.Kind); kind {
	case "", ir.PayloadStandard, ir.PayloadManagement:
		filter.Kind = kind
	default:
		return formatter.Fail(ExitCommandError, ErrCodeInvalidValue, fmt.Sprintf("unknown submission kind %q", opts.Kind), nil)
	}

	st, err := openExistingStore(formatter, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.QueryAnswers(ctx, filter)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("failed to query answers: %v", err), nil)
	}

	result := AnswersResult{
		Answers: make([]AnswerRecordView, len(records)),
		Total:   len(records),
	}
	for i, r := range records {
		result.Answers[i] = AnswerRecordView{
			Seq:          r.Seq,
			SubmissionID: r.SubmissionID,
			FormID:       r.FormID,
			AnswerView: AnswerView{
				List:     r.ListName,
				Person:   r.Person,
				Section:  r.Section,
				Question: int64(r.QuestionID),
				Value:    string(r.Value),
			},
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	if result.Total == 0 {
		fmt.Fprintln(w, "No answers found.")
		return nil
	}
	for _, a := range result.Answers {
		where := a.Person
		if a.List != "" {
			where = fmt.Sprintf("%s / %s / %s", a.List, a.Person, a.Section)
		}
		fmt.Fprintf(w, "%4d  %s  %s  q%d = %s\n", a.Seq, a.FormID, where, a.Question, a.Value)
	}
	fmt.Fprintf(w, "\n%d answer(s)\n", result.Total)
	return nil
}
