package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSubmission = "formflow/submission/v1"
	DomainForm       = "formflow/form/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SubmissionID computes the content-addressed id of a submission.
// The session token is part of the identity so two respondents giving
// identical answers still produce distinct submissions.
func SubmissionID(sessionToken string, payload *SubmissionPayload) (string, []byte, error) {
	canonical, err := MarshalCanonical(payload.CanonicalMap())
	if err != nil {
		return "", nil, fmt.Errorf("SubmissionID: failed to marshal: %w", err)
	}
	keyed, err := MarshalCanonical(map[string]any{
		"session_token": sessionToken,
		"payload":       string(canonical),
	})
	if err != nil {
		return "", nil, fmt.Errorf("SubmissionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSubmission, keyed), canonical, nil
}

// FormHash computes a stable hash of a compiled form configuration.
// Submissions record it so verify can tell whether the rule set they were
// answered against is still the configured one.
func FormHash(form *FormConfig) (string, error) {
	canonical, err := MarshalForm(form)
	if err != nil {
		return "", fmt.Errorf("FormHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainForm, canonical), nil
}

// MarshalForm renders a compiled form as canonical JSON.
func MarshalForm(form *FormConfig) ([]byte, error) {
	return MarshalCanonical(form.canonicalMap())
}

func (f *FormConfig) canonicalMap() map[string]any {
	sections := make([]any, len(f.Sections))
	for i, s := range f.Sections {
		sections[i] = map[string]any{
			"id":           int64(s.ID),
			"name":         s.Name,
			"order_number": s.OrderNumber,
		}
	}
	questions := make([]any, len(f.Questions))
	for i, q := range f.Questions {
		options := q.Options
		if options == nil {
			options = []string{}
		}
		qm := map[string]any{
			"id":           int64(q.ID),
			"type":         string(q.Type),
			"text":         q.Text,
			"is_required":  q.IsRequired,
			"order_number": q.OrderNumber,
			"options":      options,
		}
		if q.SectionID != nil {
			qm["section_id"] = int64(*q.SectionID)
		}
		questions[i] = qm
	}
	yearRules := make([]any, len(f.YearRules))
	for i, r := range f.YearRules {
		yearRules[i] = map[string]any{
			"condition":   string(r.Condition),
			"value":       r.Value,
			"section_ids": sectionIDList(r.SectionIDs),
		}
	}
	roleRules := make([]any, len(f.RoleRules))
	for i, r := range f.RoleRules {
		rm := map[string]any{
			"role":        string(r.Role),
			"section_ids": sectionIDList(r.SectionIDs),
		}
		if len(r.People) > 0 {
			rm["people"] = r.People
		}
		roleRules[i] = rm
	}
	lists := make([]any, len(f.ManagementLists))
	for i, l := range f.ManagementLists {
		people := l.People
		if people == nil {
			people = []string{}
		}
		lists[i] = map[string]any{
			"id":          int64(l.ID),
			"name":        l.Name,
			"people":      people,
			"section_ids": sectionIDList(l.SectionIDs),
		}
	}
	return map[string]any{
		"id":               f.ID,
		"title":            f.Title,
		"sections":         sections,
		"questions":        questions,
		"year_rules":       yearRules,
		"role_rules":       roleRules,
		"management_lists": lists,
	}
}

func sectionIDList(set SectionSet) []any {
	out := make([]any, len(set))
	for i, id := range set {
		out[i] = int64(id)
	}
	return out
}
