package compiler

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// listNumbering matches a leading "1. " or "1) " on a people line.
var listNumbering = regexp.MustCompile(`^\d+[.)]\s*`)

// ParsePeople splits free text into person names, one per non-empty line.
// Leading numbering is stripped, names are trimmed and NFC-normalized.
// Order and duplicates are preserved.
func ParsePeople(text string) []string {
	people := []string{}
	for _, line := range strings.Split(text, "\n") {
		name := NormalizeName(listNumbering.ReplaceAllString(strings.TrimSpace(line), ""))
		if name == "" {
			continue
		}
		people = append(people, name)
	}
	return people
}

// NormalizePeople applies NormalizeName to an explicit list, dropping blanks.
func NormalizePeople(names []string) []string {
	people := make([]string, 0, len(names))
	for _, n := range names {
		if name := NormalizeName(n); name != "" {
			people = append(people, name)
		}
	}
	return people
}

// NormalizeName trims a person name and converts it to NFC.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
