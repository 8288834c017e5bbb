package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/formflow/internal/compiler"
	"github.com/roach88/formflow/internal/harness"
	"github.com/roach88/formflow/internal/ir"
)

// LoadMode controls how errors are handled during form loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the forms compiled from a configuration directory.
type LoadResult struct {
	Forms     []*ir.FormConfig // In CUE field order
	CUEValue  cue.Value        // The raw CUE value for additional processing
	FileCount int              // Number of CUE files found
}

// FormSet indexes the loaded forms by id.
func (r *LoadResult) FormSet() harness.Forms {
	forms := make(harness.Forms, len(r.Forms))
	for _, f := range r.Forms {
		forms[f.ID] = f
	}
	return forms
}

// Lookup returns the form with the given id.
func (r *LoadResult) Lookup(id string) (*ir.FormConfig, error) {
	for _, f := range r.Forms {
		if f.ID == id {
			return f, nil
		}
	}
	ids := make([]string, len(r.Forms))
	for i, f := range r.Forms {
		ids[i] = f.ID
	}
	sort.Strings(ids)
	return nil, &LoadError{Code: ErrCodeUnknownForm, Message: fmt.Sprintf("form %q not found (have %v)", id, ids)}
}

// LoadError represents an error that occurred during form loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadForms loads the CUE package in dir and compiles every field of its
// top-level form struct.
//
//	form: "annual-review": { sections: [...], questions: [...], ... }
//
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
// A nil result means nothing could be loaded at all.
func LoadForms(dir string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("config directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing config directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("resolving %s: %v", dir, err)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: absDir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}

	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	formsVal := value.LookupPath(cue.ParsePath("form"))
	if !formsVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoForms, Message: "no form field found in configuration"}}
	}

	iter, err := formsVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating forms: %v", err)}}
	}

	seen := make(map[string]bool)
	for iter.Next() {
		form, compileErr := compiler.CompileForm(iter.Value())
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, "form."+iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		if seen[form.ID] {
			errs = append(errs, &LoadError{
				Code:    ErrCodeDuplicateForm,
				Message: fmt.Sprintf("form id %q is defined twice", form.ID),
				Pos:     iter.Value().Pos(),
			})
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		seen[form.ID] = true
		result.Forms = append(result.Forms, form)
	}

	if len(result.Forms) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoForms, Message: "form struct is empty"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// loadFormsOrFail loads dir fail-fast and converts the first error into an
// ExitError, reporting it through formatter.
func loadFormsOrFail(formatter *OutputFormatter, dir string) (*LoadResult, error) {
	result, errs := LoadForms(dir, LoadModeFailFast)
	if len(errs) > 0 {
		code, message := parseLoadError(errs[0])
		return nil, formatter.Fail(ExitCommandError, code, message, nil)
	}
	return result, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, context string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", context, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: fmt.Sprintf("%s: %v", context, err),
	}
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return MapFieldToErrorCode(compileErr.Field), compileErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// Error code constants - unified across all CLI commands.
// Form reference and ambiguity findings use the compiler's E2xx codes.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStoreFailed = "E008" // Database open/read/write error
	ErrCodeBadScript   = "E009" // Respondent script or scenario does not load

	// Execution failures
	ErrCodeScriptFailed = "E_SCRIPT_FAILED" // A script step did not match its expectation
	ErrCodeTestFailed   = "E_TEST_FAILED"   // One or more scenarios failed
	ErrCodeCorrupt      = "E_CORRUPT"       // Stored submission does not match its content address

	// Form compilation errors
	ErrCodeNoForms       = "E101" // No form struct or it is empty
	ErrCodeMissingFormID = "E102" // Form has no id
	ErrCodeSchema        = "E103" // Value violates the #Form schema
	ErrCodeDuplicateForm = "E104" // Two forms share an id
	ErrCodeUnknownForm   = "E105" // Requested form id does not exist
	ErrCodeInvalidValue  = "E106" // A field failed conversion after schema checks
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "id":
		return ErrCodeMissingFormID
	case "cue":
		return ErrCodeSchema
	case "":
		return ErrCodeGeneric
	default:
		return ErrCodeInvalidValue
	}
}
