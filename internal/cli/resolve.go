package cli

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/formflow/internal/engine"
	"github.com/roach88/formflow/internal/ir"
)

// ResolveOptions holds flags for the resolve command.
type ResolveOptions struct {
	*RootOptions
	Form  string
	Year  int
	Role  string
	Lists []int64
}

// SectionView is a visible section.
type SectionView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

// QuestionView is a question the respondent will see.
type QuestionView struct {
	ID       int64  `json:"id"`
	Section  *int64 `json:"section,omitempty"`
	Type     string `json:"type"`
	Text     string `json:"text"`
	Required bool   `json:"required"`
}

// StepView is one position of a management traversal.
type StepView struct {
	Cursor    string  `json:"cursor"`
	List      string  `json:"list"`
	Person    string  `json:"person"`
	SectionID int64   `json:"section_id"`
	Section   string  `json:"section"`
	Questions []int64 `json:"questions"`
}

// ResolveResult describes what a respondent with the given selection sees.
type ResolveResult struct {
	Form               string         `json:"form"`
	Flow               engine.Flow    `json:"flow"`
	Unconditional      bool           `json:"unconditional"`
	NoMatchingSections bool           `json:"no_matching_sections"`
	Legacy             bool           `json:"legacy,omitempty"`
	Sections           []SectionView  `json:"sections"`
	Questions          []QuestionView `json:"questions"`
	Traversal          []StepView     `json:"traversal,omitempty"`
}

// NewResolveCommand creates the resolve command.
func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResolveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "resolve <config-dir>",
		Short: "Show what a respondent would see",
		Long: `Resolve the visible sections and questions of a form for a respondent.

Standard respondents see the union of the sections their year and role
reveal plus every unassigned question. Management respondents get the
round-robin traversal of every (list, person, section) triple instead.

Examples:
  formflow resolve ./forms --form annual-review --year 2024 --role team_lead
  formflow resolve ./forms --form annual-review --role management --list 2 --list 1
  formflow resolve ./forms --form annual-review --role employee --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Form, "form", "", "form id (required)")
	_ = cmd.MarkFlagRequired("form")
	cmd.Flags().IntVar(&opts.Year, "year", 0, "respondent entry year")
	cmd.Flags().StringVar(&opts.Role, "role", "", "respondent role (employee|team_lead|management)")
	cmd.Flags().Int64SliceVar(&opts.Lists, "list", nil, "management list id, repeatable; order is traversal order")

	return cmd
}

func runResolve(opts *ResolveOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loaded, err := loadFormsOrFail(formatter, configDir)
	if err != nil {
		return err
	}
	form, err := loaded.Lookup(opts.Form)
	if err != nil {
		code, message := parseLoadError(err)
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	sel := engine.Selection{}
	if cmd.Flags().Changed("year") {
		year := opts.Year
		sel.Year = &year
	}
	if opts.Role != "" {
		role, err := ir.ParseRole(opts.Role)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidValue, err.Error(), nil)
		}
		sel.Role = &role
	}
	for _, id := range opts.Lists {
		sel.ListIDs = append(sel.ListIDs, ir.ListID(id))
	}

	sess, err := engine.Start(form, sel, engine.WithLogger(opts.Logger(cmd.ErrOrStderr())))
	if err != nil {
		return formatter.Fail(ExitCommandError, string(engine.CodeOf(err)), err.Error(), nil)
	}

	result := buildResolveResult(sess)
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputResolveText(formatter, result)
}

// buildResolveResult captures the session's initial view.
func buildResolveResult(sess *engine.Session) ResolveResult {
	form := sess.Form()
	result := ResolveResult{
		Form:      form.ID,
		Flow:      sess.Flow(),
		Sections:  []SectionView{},
		Questions: questionViews(sess.VisibleQuestions()),
	}

	if sess.Flow() == engine.FlowStandard {
		res := sess.Resolution()
		result.Unconditional = res.Unconditional
		result.NoMatchingSections = res.NoMatchingSections()
		for _, s := range form.Sections {
			if res.Sections.Contains(s.ID) {
				result.Sections = append(result.Sections, SectionView{ID: int64(s.ID), Name: s.Name, Order: s.OrderNumber})
			}
		}
		slices.SortStableFunc(result.Sections, func(a, b SectionView) int {
			if c := cmp.Compare(a.Order, b.Order); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		return result
	}

	sched := sess.Scheduler()
	result.Legacy = sched.Legacy()
	result.Traversal = []StepView{}
	for _, step := range sched.Steps() {
		qids := []int64{}
		for _, q := range engine.SectionQuestions(step.Section.ID, form.Questions) {
			qids = append(qids, int64(q.ID))
		}
		result.Traversal = append(result.Traversal, StepView{
			Cursor:    step.Cursor.String(),
			List:      step.List,
			Person:    step.Person,
			SectionID: int64(step.Section.ID),
			Section:   step.Section.Name,
			Questions: qids,
		})
	}
	return result
}

func questionViews(questions []ir.Question) []QuestionView {
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		v := QuestionView{
			ID:       int64(q.ID),
			Type:     string(q.Type),
			Text:     q.Text,
			Required: q.IsRequired,
		}
		if q.SectionID != nil {
			sid := int64(*q.SectionID)
			v.Section = &sid
		}
		views[i] = v
	}
	return views
}

func outputResolveText(formatter *OutputFormatter, result ResolveResult) error {
	w := formatter.Writer
	fmt.Fprintf(w, "Form %s (%s flow)\n\n", result.Form, result.Flow)

	if result.Flow == engine.FlowStandard {
		switch {
		case result.NoMatchingSections:
			fmt.Fprintln(w, "No sections match this selection.")
		case result.Unconditional:
			fmt.Fprintln(w, "Form has no year or role rules; every section is shown.")
		}
		if len(result.Sections) > 0 {
			fmt.Fprintln(w, "Sections:")
			for _, s := range result.Sections {
				fmt.Fprintf(w, "  %d %s\n", s.ID, s.Name)
			}
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintln(w, "Questions:")
	for _, q := range result.Questions {
		marker := " "
		if q.Required {
			marker = "*"
		}
		fmt.Fprintf(w, "  %s%d [%s] %s\n", marker, q.ID, q.Type, q.Text)
	}

	if result.Flow == engine.FlowManagement {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Traversal (%d step(s)):\n", len(result.Traversal))
		for _, s := range result.Traversal {
			fmt.Fprintf(w, "  %s  %s / %s / %s  questions %s\n",
				s.Cursor, s.List, s.Person, s.Section, joinIDs(s.Questions))
		}
	}
	return nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
