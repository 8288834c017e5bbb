package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/formflow/internal/compiler"
)

// Finding is one validation finding attributed to a form.
type Finding struct {
	Form string `json:"form"`
	compiler.ValidationError
}

// ValidationResult holds validation results.
// Valid is false when any finding has error severity; warnings alone
// leave the configuration valid.
type ValidationResult struct {
	Valid    bool      `json:"valid"`
	Errors   int       `json:"errors"`
	Warnings int       `json:"warnings"`
	Findings []Finding `json:"findings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-dir>",
		Short: "Validate form configuration",
		Long: `Validate the CUE form configuration in a directory.

Checks schema conformance, then reports broken references (duplicate ids,
questions or rules naming missing sections) as errors and ambiguities the
engine recovers from (malformed or inverted year rules, empty lists,
duplicate people, choice questions without options) as warnings.

Exit codes:
  0 - No errors (warnings may be present)
  1 - One or more errors
  2 - Command error (invalid paths, CUE that does not load)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, configDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loadResult, loadErrors := LoadForms(configDir, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		code, message := parseLoadError(loadErrors[0])
		return formatter.Fail(ExitCommandError, code, message, nil)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", loadResult.FileCount, configDir)

	result := ValidationResult{}
	for _, err := range loadErrors {
		code, message := parseLoadError(err)
		finding := Finding{ValidationError: compiler.ValidationError{
			Field:    "load",
			Message:  message,
			Code:     code,
			Severity: compiler.SeverityError,
		}}
		if le, ok := err.(*LoadError); ok && le.Pos.IsValid() {
			finding.Line = le.Pos.Line()
		}
		result.add(finding)
	}

	for _, form := range loadResult.Forms {
		formatter.VerboseLog("Validating form: %s", form.ID)
		for _, v := range compiler.Validate(form) {
			result.add(Finding{Form: form.ID, ValidationError: v})
		}
	}
	result.Valid = result.Errors == 0

	return outputValidation(formatter, result)
}

func (r *ValidationResult) add(f Finding) {
	if f.Severity == compiler.SeverityError {
		r.Errors++
	} else {
		r.Warnings++
	}
	r.Findings = append(r.Findings, f)
}

// outputValidation outputs the validation report.
// Errors are validation failures (exit code 1).
func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	var exitErr error
	if !result.Valid {
		exitErr = NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", result.Errors))
	}

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		first := firstError(result.Findings)
		if err := formatter.Failure(first.Code, first.Message, result); err != nil {
			return err
		}
		return exitErr
	}

	w := formatter.Writer
	if result.Valid {
		fmt.Fprintf(w, "✓ All forms valid (%d warning(s))\n", result.Warnings)
	} else {
		fmt.Fprintf(w, "✗ Validation failed: %d error(s), %d warning(s)\n", result.Errors, result.Warnings)
	}
	if len(result.Findings) > 0 {
		fmt.Fprintln(w)
	}

	for _, f := range result.Findings {
		prefix := f.Form
		if prefix == "" {
			prefix = "(config)"
		}
		if f.Line > 0 {
			fmt.Fprintf(w, "%s line %d\n", prefix, f.Line)
		} else {
			fmt.Fprintln(w, prefix)
		}
		fmt.Fprintf(w, "  %s %s: %s: %s\n\n", f.Severity, f.Code, f.Field, f.Message)
	}

	return exitErr
}

func firstError(findings []Finding) Finding {
	for _, f := range findings {
		if f.Severity == compiler.SeverityError {
			return f
		}
	}
	return findings[0]
}
