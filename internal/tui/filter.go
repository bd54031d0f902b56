package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/filter"
)

const allLabel = "All"

func facetChip(value string) string {
	if value == "" {
		return facetValueStyle.Render(allLabel)
	}
	return facetActiveStyle.Render(value)
}

// renderFilterBar shows the active criteria. categoryInput replaces the
// category chip while the user is typing.
func renderFilterBar(f filter.State, categoryInput string, width int) string {
	sep := "  "
	row := facetLabelStyle.Render("discipline ") + facetChip(f.Discipline) + sep +
		facetLabelStyle.Render("methodology ") + facetChip(f.Methodology) + sep

	if categoryInput != "" {
		row += categoryInput
	} else {
		row += facetLabelStyle.Render("category ") + facetChip(f.Category)
	}

	return lipgloss.NewStyle().PaddingLeft(1).MaxWidth(width).Render(row)
}
