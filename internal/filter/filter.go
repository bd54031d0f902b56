// Package filter applies the user's discipline, methodology and category
// criteria to a snapshot.
package filter

import (
	"strings"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

// State holds the three independent criteria. A blank criterion imposes no
// constraint.
type State struct {
	Discipline  string
	Methodology string
	Category    string
}

func (s State) IsZero() bool {
	return strings.TrimSpace(s.Discipline) == "" &&
		strings.TrimSpace(s.Methodology) == "" &&
		strings.TrimSpace(s.Category) == ""
}

// Match reports whether r satisfies every non-blank criterion.
func (s State) Match(r record.Record) bool {
	if !equalFacet(r.Discipline, s.Discipline) {
		return false
	}
	if !equalFacet(r.Methodology, s.Methodology) {
		return false
	}
	return containsCategory(r.Categories, s.Category)
}

func equalFacet(value, criterion string) bool {
	criterion = strings.TrimSpace(criterion)
	if criterion == "" {
		return true
	}
	value = strings.TrimSpace(value)
	return value != "" && strings.EqualFold(value, criterion)
}

func containsCategory(cats record.Categories, criterion string) bool {
	needle := strings.ToLower(strings.TrimSpace(criterion))
	if needle == "" {
		return true
	}
	for _, c := range record.Normalize(cats) {
		if strings.Contains(strings.ToLower(c), needle) {
			return true
		}
	}
	return false
}

// Apply returns the records matching s, in their original order. The input
// slice is not modified.
func Apply(records []record.Record, s State) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		if s.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
