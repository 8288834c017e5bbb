package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/formflow/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled forms.
type CompilationResult struct {
	Forms []*ir.FormConfig `json:"forms"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	FormCount     int
	SectionCount  int
	QuestionCount int
	RuleCount     int
	ListCount     int
	PeopleCount   int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <config-dir>",
		Short: "Compile CUE form configuration to canonical JSON",
		Long: `Compile the CUE form configuration in a directory to canonical JSON.

Every field of the top-level form struct is unified with the built-in
#Form schema, converted to the engine's form model and rendered as
canonical JSON (sorted keys, no insignificant whitespace).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	loadResult, loadErrors := LoadForms(configDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, configDir)
	for _, form := range loadResult.Forms {
		formatter.VerboseLog("Compiled form: %s", form.ID)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := &CompilationResult{Forms: loadResult.Forms}
	stats := calculateStats(result)

	if opts.Output != "" {
		if err := writeFormsToFile(result, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, stats, opts.Output)
}

// calculateStats computes summary statistics from compilation result.
func calculateStats(result *CompilationResult) CompilationStats {
	stats := CompilationStats{FormCount: len(result.Forms)}
	for _, form := range result.Forms {
		stats.SectionCount += len(form.Sections)
		stats.QuestionCount += len(form.Questions)
		stats.RuleCount += len(form.YearRules) + len(form.RoleRules)
		stats.ListCount += len(form.ManagementLists)
		for _, l := range form.ManagementLists {
			stats.PeopleCount += len(l.People)
		}
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d form(s): %d section(s), %d question(s), %d rule(s), %d list(s) naming %d people\n\n",
		stats.FormCount, stats.SectionCount, stats.QuestionCount, stats.RuleCount, stats.ListCount, stats.PeopleCount)

	for _, form := range result.Forms {
		fmt.Fprintf(w, "  %s: %d section(s), %d question(s), %d year rule(s), %d role rule(s), %d management list(s)\n",
			form.ID, len(form.Sections), len(form.Questions),
			len(form.YearRules), len(form.RoleRules), len(form.ManagementLists))
	}
	fmt.Fprintln(w)

	if outputFile != "" {
		fmt.Fprintf(w, "Wrote canonical JSON to %s\n", outputFile)
	}

	return nil
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	exitErr := NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}
		if err := formatter.Failure(cliErrors[0].Code, cliErrors[0].Message, cliErrors); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		if loadErr, ok := err.(*LoadError); ok && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return exitErr
}

// writeFormsToFile writes the compiled forms as one canonical JSON array.
func writeFormsToFile(result *CompilationResult, filename string) error {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, form := range result.Forms {
		if i > 0 {
			buf.WriteByte(',')
		}
		data, err := ir.MarshalForm(form)
		if err != nil {
			return fmt.Errorf("marshaling form %s: %w", form.ID, err)
		}
		buf.Write(data)
	}
	buf.WriteByte(']')

	if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
