package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var asciiLogo = []string{
	`█   █ ▀ █▄ █ ▀ █▀▀ █▀█ █▀█ ▀█▀ █▀▀`,
	`█ █ █ █ █ ▀█ █ ▀▀█ █ █ █▀▄  █  ▀▀█`,
	`▀▀ ▀▀ ▀ ▀  ▀ ▀ ▀▀▀ ▀▀▀ ▀ ▀  ▀  ▀▀▀`,
}

const (
	emptyLibraryText = "No papers yet. Be the first to add one!"
	feedFailedText   = "Failed to load papers. Please try again later."
	loadingText      = "Loading papers..."
	noMatchText      = "No papers match the current filters"
)

// renderWelcome fills the content area when the library has nothing to list.
func renderWelcome(width, height int, message string) string {
	logoStyle := lipgloss.NewStyle().Foreground(colorAccent)
	keyStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)

	var lines []string
	for _, l := range asciiLogo {
		lines = append(lines, logoStyle.Render(l))
	}
	lines = append(lines, "", "", emptyStyle.Render(message), "")
	lines = append(lines, keyStyle.Render("[a]")+"  add a paper    "+keyStyle.Render("[q]")+"  quit")

	content := strings.Join(lines, "\n")
	topPad := (height - len(lines)) / 3
	if topPad < 0 {
		topPad = 0
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top,
		strings.Repeat("\n", topPad)+content)
}
