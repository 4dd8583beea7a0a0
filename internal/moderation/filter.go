// Package moderation implements the content filter that gates every text
// message before it is persisted.
package moderation

import "strings"

// DefaultTerms is the built-in disallowed-term list. Deployments override it
// via MODERATION_TERMS.
var DefaultTerms = []string{
	"lol",
	"badword2",
	"badword3",
	"badword4",
	"badword5",
}

// Filter flags text containing any configured disallowed term. It is a pure
// function of its input: case-insensitive substring match, no side effects.
type Filter struct {
	terms []string
}

// NewFilter creates a filter over the given term list. Empty terms are
// dropped; a nil or empty list flags nothing.
func NewFilter(terms []string) *Filter {
	normalized := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			normalized = append(normalized, t)
		}
	}
	return &Filter{terms: normalized}
}

// Classify reports whether text matches a disallowed term.
func (f *Filter) Classify(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range f.terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
