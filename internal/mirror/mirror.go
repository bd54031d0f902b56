// Package mirror holds the local copy of the most recent feed snapshot.
package mirror

import (
	"slices"
	"strings"
	"sync/atomic"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

// Mirror is a single slot holding the latest snapshot. Replace swaps the whole
// slot at once, so readers see either the old or the new snapshot, never a mix.
type Mirror struct {
	current atomic.Pointer[[]record.Record]
}

func New() *Mirror {
	m := &Mirror{}
	empty := []record.Record{}
	m.current.Store(&empty)
	return m
}

// Replace installs snapshot as the new mirror contents. Categories are
// normalized, facet values are trimmed, and records repeating an earlier id are dropped, keeping the
// first (newest) occurrence. The caller's slice is not retained.
func (m *Mirror) Replace(snapshot []record.Record) {
	next := make([]record.Record, 0, len(snapshot))
	seen := make(map[string]struct{}, len(snapshot))
	for _, r := range snapshot {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		r.Discipline = strings.TrimSpace(r.Discipline)
		r.Methodology = strings.TrimSpace(r.Methodology)
		r.Categories = record.Normalize(r.Categories)
		next = append(next, r)
	}
	m.current.Store(&next)
}

// Read returns a copy of the current snapshot in feed order.
func (m *Mirror) Read() []record.Record {
	cur := *m.current.Load()
	out := make([]record.Record, len(cur))
	for i, r := range cur {
		r.Categories = slices.Clone(r.Categories)
		out[i] = r
	}
	return out
}

func (m *Mirror) Len() int {
	return len(*m.current.Load())
}

func (m *Mirror) Empty() bool {
	return m.Len() == 0
}
