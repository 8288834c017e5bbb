package harness

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioNotFoundError is returned when a scenario directory holds no
// scenario files.
type ScenarioNotFoundError struct {
	Dir    string
	Filter string
}

// Error implements the error interface.
func (e *ScenarioNotFoundError) Error() string {
	if e.Filter != "" {
		return fmt.Sprintf("no scenario files matching %q in %s", e.Filter, e.Dir)
	}
	return fmt.Sprintf("no scenario files in %s", e.Dir)
}

// DiscoverScenarios returns the .yaml and .yml files under dir in lexical
// order. A non-empty filter keeps only files whose base name contains it.
func DiscoverScenarios(dir, filter string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("scenario directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scenario directory: %s is not a directory", dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" && !strings.Contains(filepath.Base(path), filter) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk scenarios: %w", err)
	}

	if len(paths) == 0 {
		return nil, &ScenarioNotFoundError{Dir: dir, Filter: filter}
	}

	sort.Strings(paths)
	return paths, nil
}

// SuiteResult summarizes a run over many scenario files.
type SuiteResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
	Results        []ScenarioOutcome `json:"results"`
}

// ScenarioFailure represents a failed scenario.
type ScenarioFailure struct {
	Scenario     string   `json:"scenario"`
	ScenarioPath string   `json:"scenario_path"`
	Errors       []string `json:"errors"`
}

// ScenarioOutcome pairs a loaded scenario with its result.
// Result is nil when the scenario could not be loaded or run.
type ScenarioOutcome struct {
	Path     string    `json:"path"`
	Scenario *Scenario `json:"-"`
	Result   *Result   `json:"result,omitempty"`
}

// RunSuite loads and runs every scenario path against forms.
//
// For each path:
// 1. Load the scenario (strict)
// 2. Run it via Run
// 3. Collect and report results
//
// Load and execution failures count as failed scenarios; RunSuite itself
// does not fail.
func RunSuite(paths []string, forms Forms) *SuiteResult {
	result := &SuiteResult{Results: []ScenarioOutcome{}}

	for _, path := range paths {
		result.TotalScenarios++

		scenario, err := LoadScenario(path)
		if err != nil {
			result.fail(path, filepath.Base(path), fmt.Sprintf("failed to load scenario: %v", err))
			result.Results = append(result.Results, ScenarioOutcome{Path: path})
			continue
		}

		runResult, err := Run(scenario, forms)
		if err != nil {
			result.fail(path, scenario.Name, fmt.Sprintf("scenario execution failed: %v", err))
			result.Results = append(result.Results, ScenarioOutcome{Path: path, Scenario: scenario})
			continue
		}

		result.Results = append(result.Results, ScenarioOutcome{Path: path, Scenario: scenario, Result: runResult})
		if !runResult.Pass {
			result.fail(path, scenario.Name, runResult.Errors...)
			continue
		}

		result.Passed++
	}

	return result
}

func (r *SuiteResult) fail(path, name string, errs ...string) {
	r.Failed++
	r.Failures = append(r.Failures, ScenarioFailure{
		Scenario:     name,
		ScenarioPath: path,
		Errors:       errs,
	})
}
