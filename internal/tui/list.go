package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "pending"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}

func renderListItem(r record.Record, selected bool, width int) string {
	if width < 10 {
		width = 30
	}

	var title string
	if selected {
		title = itemSelectedStyle.Render("> " + truncateStr(r.DisplayTitle(), width-4))
	} else {
		title = itemTitleStyle.Render("  " + truncateStr(r.DisplayTitle(), width-4))
	}

	facets := r.Discipline
	if r.Methodology != "" {
		if facets != "" {
			facets += " / "
		}
		facets += r.Methodology
	}
	meta := "  " + itemDisciplineStyle.Render(truncateStr(facets, width-12)) +
		" " + itemTimeStyle.Render("· "+relativeTime(r.CreatedAt))

	return title + "\n" + meta
}

func truncateStr(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

// renderList draws the visible window of records around cursor. empty is
// shown when there is nothing to list.
func renderList(records []record.Record, cursor, height, width int, empty string) string {
	if len(records) == 0 {
		return centerLine(empty, width, height)
	}

	// title line + meta line + blank line
	itemHeight := 3
	visible := height / itemHeight
	if visible < 1 {
		visible = 1
	}

	start := 0
	if cursor >= visible {
		start = cursor - visible + 1
	}
	end := start + visible
	if end > len(records) {
		end = len(records)
		start = end - visible
		if start < 0 {
			start = 0
		}
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(renderListItem(records[i], i == cursor, width))
		if i < end-1 {
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func centerLine(s string, width, height int) string {
	pad := (width - len([]rune(s))) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat("\n", height/3) + strings.Repeat(" ", pad) + emptyStyle.Render(s)
}
