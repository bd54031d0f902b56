// Package library ties the mirror, the facet index and the filter state
// together and produces the view consumed by the rendering layer.
//
// A Library is owned by a single event loop. Replace and the Select/Set
// methods are its only mutators; each runs to completion before the next
// event is handled, so a View never reflects a half-applied update.
package library

import (
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/facet"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/filter"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/mirror"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

// View is everything the rendering layer needs for one frame.
type View struct {
	Records []record.Record
	Facets  facet.Index
	Filter  filter.State
	Total   int
	Loaded  bool
}

// Empty reports whether the mirror itself holds no records, as opposed to the
// filter hiding all of them.
func (v View) Empty() bool {
	return v.Total == 0
}

type Library struct {
	mirror *mirror.Mirror
	facets facet.Index
	filter filter.State
	loaded bool
}

func New() *Library {
	return &Library{mirror: mirror.New()}
}

// Replace installs a new snapshot, rebuilds the facet index and drops any
// discipline or methodology selection that is no longer an option.
func (l *Library) Replace(snapshot []record.Record) {
	l.mirror.Replace(snapshot)
	l.facets = facet.Build(l.mirror.Read())
	l.filter.Discipline = facet.Reconcile(l.filter.Discipline, l.facets.Disciplines)
	l.filter.Methodology = facet.Reconcile(l.filter.Methodology, l.facets.Methodologies)
	l.loaded = true
}

func (l *Library) SelectDiscipline(v string) {
	l.filter.Discipline = v
}

func (l *Library) SelectMethodology(v string) {
	l.filter.Methodology = v
}

func (l *Library) SetCategory(v string) {
	l.filter.Category = v
}

// CycleDiscipline moves the discipline selection step options forward,
// passing through "All".
func (l *Library) CycleDiscipline(step int) {
	l.filter.Discipline = facet.Next(l.filter.Discipline, l.facets.Disciplines, step)
}

func (l *Library) CycleMethodology(step int) {
	l.filter.Methodology = facet.Next(l.filter.Methodology, l.facets.Methodologies, step)
}

// ClearFilter resets every criterion.
func (l *Library) ClearFilter() {
	l.filter = filter.State{}
}

func (l *Library) Filter() filter.State {
	return l.filter
}

func (l *Library) Facets() facet.Index {
	return l.facets
}

func (l *Library) View() View {
	records := l.mirror.Read()
	return View{
		Records: filter.Apply(records, l.filter),
		Facets:  l.facets,
		Filter:  l.filter,
		Total:   len(records),
		Loaded:  l.loaded,
	}
}
