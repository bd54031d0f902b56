// Package facet derives the distinct discipline and methodology values present
// in a snapshot, used to populate the filter options.
package facet

import (
	"slices"
	"strings"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

// Index holds the distinct facet values, each sorted lexicographically.
type Index struct {
	Disciplines   []string
	Methodologies []string
}

// Build scans records once and collects every non-empty discipline and
// methodology value, trimmed of surrounding whitespace.
func Build(records []record.Record) Index {
	disc := make(map[string]struct{})
	meth := make(map[string]struct{})
	for _, r := range records {
		if v := strings.TrimSpace(r.Discipline); v != "" {
			disc[v] = struct{}{}
		}
		if v := strings.TrimSpace(r.Methodology); v != "" {
			meth[v] = struct{}{}
		}
	}
	return Index{
		Disciplines:   sortedKeys(disc),
		Methodologies: sortedKeys(meth),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Reconcile returns prev when it is still one of options, otherwise "" (no
// constraint). It never substitutes a different option.
func Reconcile(prev string, options []string) string {
	if prev == "" {
		return ""
	}
	if _, ok := slices.BinarySearch(options, prev); ok {
		return prev
	}
	return ""
}

// Next cycles through "" followed by options, returning the option after cur.
// Step may be negative to cycle backwards.
func Next(cur string, options []string, step int) string {
	n := len(options) + 1
	pos := 0
	if i, ok := slices.BinarySearch(options, cur); ok && cur != "" {
		pos = i + 1
	}
	pos = ((pos+step)%n + n) % n
	if pos == 0 {
		return ""
	}
	return options[pos-1]
}
