package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type notice struct {
	text string
	err  bool
}

func renderStatusBar(shown, total int, n notice, hints string, width int) string {
	var left string
	switch {
	case n.text != "" && n.err:
		left = statusErrStyle.Render(n.text)
	case n.text != "":
		left = statusOKStyle.Render(n.text)
	case shown == total:
		left = fmt.Sprintf("%d papers", total)
	default:
		left = fmt.Sprintf("%d of %d papers", shown, total)
	}

	right := " " + hints + " "
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 0 {
		gap = 0
	}
	bar := left + fmt.Sprintf("%*s", gap, "") + right
	return statusBarStyle.Width(width).Render(bar)
}
