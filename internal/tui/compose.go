package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/submit"
)

type composeField int

const (
	fieldTitle composeField = iota
	fieldAbstract
	fieldLink
	fieldCount
)

// compose is the draft form. Its contents survive leaving compose mode and
// failed submissions; only a stored record or an explicit reset clears it.
type compose struct {
	title    textinput.Model
	abstract textarea.Model
	link     textinput.Model
	focus    composeField
}

func newCompose() compose {
	title := textinput.New()
	title.Placeholder = "Title (optional)"
	title.Prompt = promptStyle.Render("› ")
	title.CharLimit = 300

	abstract := textarea.New()
	abstract.Placeholder = "Paste the research paper abstract here..."
	abstract.ShowLineNumbers = false
	abstract.CharLimit = 10000
	abstract.SetHeight(8)

	link := textinput.New()
	link.Placeholder = "https://... (optional)"
	link.Prompt = promptStyle.Render("› ")
	link.CharLimit = 500

	c := compose{title: title, abstract: abstract, link: link}
	c.title.Focus()
	return c
}

func (c *compose) form() submit.Form {
	return submit.Form{
		Title:    c.title.Value(),
		Abstract: c.abstract.Value(),
		Link:     c.link.Value(),
	}
}

func (c *compose) reset() {
	c.title.Reset()
	c.abstract.Reset()
	c.link.Reset()
}

func (c *compose) setWidth(w int) {
	if w < 20 {
		w = 20
	}
	c.title.Width = w - 4
	c.abstract.SetWidth(w)
	c.link.Width = w - 4
}

// move shifts focus by step fields, wrapping around.
func (c *compose) move(step int) tea.Cmd {
	c.title.Blur()
	c.abstract.Blur()
	c.link.Blur()

	c.focus = composeField((int(c.focus) + step + int(fieldCount)) % int(fieldCount))
	switch c.focus {
	case fieldTitle:
		return c.title.Focus()
	case fieldAbstract:
		return c.abstract.Focus()
	default:
		return c.link.Focus()
	}
}

func (c *compose) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch c.focus {
	case fieldTitle:
		c.title, cmd = c.title.Update(msg)
	case fieldAbstract:
		c.abstract, cmd = c.abstract.Update(msg)
	case fieldLink:
		c.link, cmd = c.link.Update(msg)
	}
	return cmd
}

func (c *compose) view(width int, busy string) string {
	heading := previewTitleStyle.Render("Add a paper")
	parts := []string{
		heading,
		composeLabelStyle.Render("Title"), c.title.View(), "",
		composeLabelStyle.Render("Abstract"), c.abstract.View(), "",
		composeLabelStyle.Render("Link"), c.link.View(),
	}
	if busy != "" {
		parts = append(parts, "", busy)
	}
	return lipgloss.NewStyle().Width(width).Padding(1, 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
