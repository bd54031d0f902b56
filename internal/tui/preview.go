package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

func renderPreview(r *record.Record, width, height, scroll int) string {
	if r == nil {
		return centerLine("Select a paper", width, height)
	}

	contentWidth := width - 2
	if contentWidth < 10 {
		contentWidth = 10
	}

	title := previewTitleStyle.Width(contentWidth).Render(r.DisplayTitle())

	facets := []string{}
	for _, v := range []string{r.Discipline, r.Methodology} {
		if v != "" {
			facets = append(facets, v)
		}
	}
	meta := previewMetaStyle.Render(strings.Join(facets, " · "))

	var tags []string
	for _, c := range r.Categories {
		tags = append(tags, previewTagStyle.Render(c))
	}
	tagLine := wrapRendered(tags, contentWidth)

	added := "Added by: " + r.Submitter()
	if !r.CreatedAt.IsZero() {
		added += " · " + r.CreatedAt.Local().Format("Jan 2, 2006 15:04")
	}

	body := previewBodyStyle.Width(contentWidth).Render(wrapText(r.Abstract, contentWidth))

	parts := []string{title, meta}
	if tagLine != "" {
		parts = append(parts, tagLine)
	}
	parts = append(parts, itemTimeStyle.Render(added), "", body)
	if r.Link != "" {
		parts = append(parts, "", previewLinkStyle.Width(contentWidth).Render("Source: "+r.Link))
	}
	content := lipgloss.JoinVertical(lipgloss.Left, parts...)

	lines := strings.Split(content, "\n")
	if scroll > 0 && scroll < len(lines) {
		lines = lines[scroll:]
	}
	if len(lines) < height {
		lines = append(lines, make([]string, height-len(lines))...)
	} else if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

// wrapRendered lays out already styled chips, breaking lines at width.
func wrapRendered(chips []string, width int) string {
	var lines []string
	line := ""
	for _, c := range chips {
		candidate := c
		if line != "" {
			candidate = line + " " + c
		}
		if lipgloss.Width(candidate) > width && line != "" {
			lines = append(lines, line)
			line = c
			continue
		}
		line = candidate
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) > width {
			lines = append(lines, line)
			line = w
		} else {
			line += " " + w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
