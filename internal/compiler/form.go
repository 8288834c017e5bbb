package compiler

import (
	_ "embed"
	"fmt"
	"strconv"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/formflow/internal/ir"
)

//go:embed schema.cue
var schemaSource string

// CompileForm parses a CUE value into a FormConfig.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the form struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`form: onboarding: { ... }`)
//	form, err := CompileForm(v.LookupPath(cue.ParsePath("form.onboarding")))
//
// The form id defaults to the struct label when no id field is set.
func CompileForm(v cue.Value) (*ir.FormConfig, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema := v.Context().CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile embedded schema: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Form")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	form := &ir.FormConfig{}

	labels := v.Path().Selectors()
	if len(labels) > 0 {
		form.ID = labels[len(labels)-1].String()
	}
	if idVal, ok := lookupConcrete(unified, "id"); ok {
		id, err := idVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		form.ID = id
	}
	if form.ID == "" {
		return nil, &CompileError{Field: "id", Message: "form id is required", Pos: v.Pos()}
	}

	if titleVal, ok := lookupConcrete(unified, "title"); ok {
		title, err := titleVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		form.Title = title
	}

	var err error
	if form.Sections, err = parseSections(unified); err != nil {
		return nil, err
	}
	if form.Questions, err = parseQuestions(unified); err != nil {
		return nil, err
	}
	if form.YearRules, err = parseYearRules(unified); err != nil {
		return nil, err
	}
	if form.RoleRules, err = parseRoleRules(unified); err != nil {
		return nil, err
	}
	if form.ManagementLists, err = parseManagementLists(unified); err != nil {
		return nil, err
	}

	return form, nil
}

// eachElement calls fn for every element of the list at path.
func eachElement(v cue.Value, path string, fn func(cue.Value) error) error {
	listVal := v.LookupPath(cue.ParsePath(path))
	if !listVal.Exists() {
		return nil
	}
	iter, err := listVal.List()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func parseSections(v cue.Value) ([]ir.Section, error) {
	sections := []ir.Section{}
	err := eachElement(v, "sections", func(el cue.Value) error {
		id, err := intField(el, "id")
		if err != nil {
			return err
		}
		name, err := stringField(el, "name")
		if err != nil {
			return err
		}
		order, err := intField(el, "order")
		if err != nil {
			return err
		}
		sections = append(sections, ir.Section{
			ID:          ir.SectionID(id),
			Name:        name,
			OrderNumber: int(order),
		})
		return nil
	})
	return sections, err
}

func parseQuestions(v cue.Value) ([]ir.Question, error) {
	questions := []ir.Question{}
	err := eachElement(v, "questions", func(el cue.Value) error {
		id, err := intField(el, "id")
		if err != nil {
			return err
		}
		typeName, err := stringField(el, "type")
		if err != nil {
			return err
		}
		qt, err := ir.ParseQuestionType(typeName)
		if err != nil {
			return &CompileError{Field: "questions.type", Message: err.Error(), Pos: el.Pos()}
		}
		text, err := stringField(el, "text")
		if err != nil {
			return err
		}
		required, err := boolField(el, "required")
		if err != nil {
			return err
		}
		order, err := intField(el, "order")
		if err != nil {
			return err
		}

		q := ir.Question{
			ID:          ir.QuestionID(id),
			Type:        qt,
			Text:        text,
			IsRequired:  required,
			OrderNumber: int(order),
		}
		if sv, ok := lookupConcrete(el, "section"); ok {
			sid, err := sv.Int64()
			if err != nil {
				return formatCUEError(err)
			}
			section := ir.SectionID(sid)
			q.SectionID = &section
		}
		if _, ok := lookupConcrete(el, "options"); ok {
			q.Options, err = stringList(el, "options")
			if err != nil {
				return err
			}
		}
		questions = append(questions, q)
		return nil
	})
	return questions, err
}

func parseYearRules(v cue.Value) ([]ir.YearRule, error) {
	rules := []ir.YearRule{}
	err := eachElement(v, "year_rules", func(el cue.Value) error {
		condName, err := stringField(el, "condition")
		if err != nil {
			return err
		}
		cond, err := ir.ParseConditionType(condName)
		if err != nil {
			return &CompileError{Field: "year_rules.condition", Message: err.Error(), Pos: el.Pos()}
		}

		// value may be written as a bare year or as a string
		valueVal := el.LookupPath(cue.ParsePath("value"))
		var value string
		if valueVal.IncompleteKind() == cue.IntKind {
			n, err := valueVal.Int64()
			if err != nil {
				return formatCUEError(err)
			}
			value = strconv.FormatInt(n, 10)
		} else {
			value, err = valueVal.String()
			if err != nil {
				return formatCUEError(err)
			}
		}

		ids, err := sectionSet(el, "sections")
		if err != nil {
			return err
		}
		rules = append(rules, ir.YearRule{Condition: cond, Value: value, SectionIDs: ids})
		return nil
	})
	return rules, err
}

func parseRoleRules(v cue.Value) ([]ir.RoleRule, error) {
	rules := []ir.RoleRule{}
	err := eachElement(v, "role_rules", func(el cue.Value) error {
		roleName, err := stringField(el, "role")
		if err != nil {
			return err
		}
		role, err := ir.ParseRole(roleName)
		if err != nil {
			return &CompileError{Field: "role_rules.role", Message: err.Error(), Pos: el.Pos()}
		}
		ids, err := sectionSet(el, "sections")
		if err != nil {
			return err
		}
		rule := ir.RoleRule{Role: role, SectionIDs: ids}
		if _, ok := lookupConcrete(el, "people"); ok {
			rule.People, err = peopleField(el, "people")
			if err != nil {
				return err
			}
		}
		rules = append(rules, rule)
		return nil
	})
	return rules, err
}

func parseManagementLists(v cue.Value) ([]ir.ManagementList, error) {
	lists := []ir.ManagementList{}
	err := eachElement(v, "management_lists", func(el cue.Value) error {
		id, err := intField(el, "id")
		if err != nil {
			return err
		}
		name, err := stringField(el, "name")
		if err != nil {
			return err
		}
		people, err := peopleField(el, "people")
		if err != nil {
			return err
		}
		ids, err := sectionSet(el, "sections")
		if err != nil {
			return err
		}
		lists = append(lists, ir.ManagementList{
			ID:         ir.ListID(id),
			Name:       name,
			People:     people,
			SectionIDs: ids,
		})
		return nil
	})
	return lists, err
}

// peopleField accepts free text (one person per line) or a list of names.
func peopleField(v cue.Value, path string) ([]string, error) {
	pv := v.LookupPath(cue.ParsePath(path))
	if pv.IncompleteKind() == cue.StringKind {
		text, err := pv.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ParsePeople(text), nil
	}
	names, err := stringList(v, path)
	if err != nil {
		return nil, err
	}
	return NormalizePeople(names), nil
}

// lookupConcrete returns the value at path if it is present and concrete.
// Optional schema fields the form left unset are reported as absent.
func lookupConcrete(v cue.Value, path string) (cue.Value, bool) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() || !fv.IsConcrete() {
		return fv, false
	}
	return fv, true
}

func intField(v cue.Value, path string) (int64, error) {
	n, err := v.LookupPath(cue.ParsePath(path)).Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func stringField(v cue.Value, path string) (string, error) {
	s, err := v.LookupPath(cue.ParsePath(path)).String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func boolField(v cue.Value, path string) (bool, error) {
	b, err := v.LookupPath(cue.ParsePath(path)).Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func stringList(v cue.Value, path string) ([]string, error) {
	var out []string
	err := eachElement(v, path, func(el cue.Value) error {
		s, err := el.String()
		if err != nil {
			return formatCUEError(err)
		}
		out = append(out, s)
		return nil
	})
	return out, err
}

func sectionSet(v cue.Value, path string) (ir.SectionSet, error) {
	set := ir.SectionSet{}
	err := eachElement(v, path, func(el cue.Value) error {
		n, err := el.Int64()
		if err != nil {
			return formatCUEError(err)
		}
		set = set.Add(ir.SectionID(n))
		return nil
	})
	return set, err
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
