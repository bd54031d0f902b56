package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/browser"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/config"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/debounce"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/feed"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/library"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/session"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/submit"
)

// authNoticeTTL is how long "Authenticating..." stays on screen.
const authNoticeTTL = 3 * time.Second

type focusPane int

const (
	focusList focusPane = iota
	focusPreview
)

type mode int

const (
	modeNormal mode = iota
	modeCategory
	modeCompose
	modeHelp
)

// RunOpts holds the collaborators the TUI is wired to.
type RunOpts struct {
	Cfg       *config.Config
	Session   session.Provider
	Transport feed.Transport
	Pipeline  *submit.Pipeline
	Log       *zap.Logger
}

type App struct {
	cfg      *config.Config
	session  session.Provider
	adapter  *feed.Adapter
	pipeline *submit.Pipeline
	log      *zap.Logger

	lib        *library.Library
	view       library.View
	userID     string
	authErr    error
	feedFailed bool

	cursor        int
	previewScroll int
	focus         focusPane
	mode          mode
	width         int
	height        int

	categoryInput    textinput.Model
	categoryDebounce *debounce.Debouncer[string]
	compose          compose
	spinner          spinner.Model
	submitting       bool

	notice    notice
	noticeGen int

	ctx    context.Context
	cancel context.CancelFunc
}

func NewApp(opts RunOpts) *App {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}

	ti := textinput.New()
	ti.Placeholder = "filter by category..."
	ti.Prompt = promptStyle.Render("category ")
	ti.CharLimit = 100

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = spinnerStyle

	ctx, cancel := context.WithCancel(context.Background())
	q := feed.NewQuery(opts.Cfg.AppID, opts.Cfg.PageSize())

	return &App{
		cfg:              opts.Cfg,
		session:          opts.Session,
		adapter:          feed.NewAdapter(opts.Transport, q, log),
		pipeline:         opts.Pipeline,
		log:              log.Named("tui"),
		lib:              library.New(),
		categoryInput:    ti,
		categoryDebounce: debounce.New[string](opts.Cfg.DebounceInterval()),
		compose:          newCompose(),
		spinner:          sp,
		ctx:              ctx,
		cancel:           cancel,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.establishSession(), a.spinner.Tick)
}

// Close stops the subscription and drops any pending recomputation.
func (a *App) Close() {
	a.categoryDebounce.Cancel()
	a.cancel()
	a.adapter.Stop()
}

func (a *App) establishSession() tea.Cmd {
	provider := a.session
	ctx := a.ctx
	return func() tea.Msg {
		id, err := provider.Establish(ctx)
		if err != nil {
			return sessionErrMsg{err: err}
		}
		return sessionReadyMsg{userID: id}
	}
}

func (a *App) startFeed() tea.Cmd {
	adapter := a.adapter
	ctx := a.ctx
	uid := a.userID
	return func() tea.Msg {
		if err := adapter.Start(ctx, uid); err != nil {
			return feedErrMsg{err: err}
		}
		return feedStartedMsg{}
	}
}

func waitForFeed(events <-chan feed.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return feedEventMsg{ev: ev}
	}
}

func (a *App) submitCmd() tea.Cmd {
	form := a.compose.form()
	uid := a.userID
	p := a.pipeline
	ctx := a.ctx
	return func() tea.Msg {
		res, err := p.Submit(ctx, uid, &form)
		return submitDoneMsg{result: res, err: err}
	}
}

func openBrowserCmd(url string) tea.Cmd {
	return func() tea.Msg {
		if err := browser.Open(url); err != nil {
			return openErrMsg{err: err}
		}
		return nil
	}
}

// refresh recomputes the view after any library mutation.
func (a *App) refresh() {
	a.view = a.lib.View()
	if a.cursor >= len(a.view.Records) {
		a.cursor = max(0, len(a.view.Records)-1)
	}
}

func (a *App) setNotice(text string, isErr bool) {
	a.noticeGen++
	a.notice = notice{text: text, err: isErr}
}

// flash shows text until ttl passes or another notice replaces it.
func (a *App) flash(text string, ttl time.Duration) tea.Cmd {
	a.setNotice(text, false)
	gen := a.noticeGen
	return tea.Tick(ttl, func(time.Time) tea.Msg { return clearNoticeMsg{gen: gen} })
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.compose.setWidth(msg.Width - 8)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case sessionReadyMsg:
		a.userID = msg.userID
		a.log.Info("session established", zap.String("user_id", msg.userID))
		return a, a.startFeed()

	case sessionErrMsg:
		a.log.Error("session failed", zap.Error(msg.err))
		a.authErr = msg.err
		a.feedFailed = true
		a.setNotice("Sign-in failed: "+msg.err.Error(), true)
		return a, nil

	case feedStartedMsg:
		return a, waitForFeed(a.adapter.Events())

	case feedEventMsg:
		if msg.ev.Err != nil {
			return a.Update(feedErrMsg{err: msg.ev.Err})
		}
		a.lib.Replace(msg.ev.Snapshot)
		a.refresh()
		return a, waitForFeed(a.adapter.Events())

	case feedErrMsg:
		a.feedFailed = true
		a.log.Error("feed failed", zap.Error(msg.err))
		a.setNotice(feedFailedText, true)
		return a, nil

	case debounce.Msg:
		if v, ok := a.categoryDebounce.Resolve(msg); ok {
			a.lib.SetCategory(v)
			a.cursor = 0
			a.refresh()
		}
		return a, nil

	case submitDoneMsg:
		a.submitting = false
		return a, a.handleSubmitDone(msg)

	case clearNoticeMsg:
		if msg.gen == a.noticeGen {
			a.notice = notice{}
		}
		return a, nil

	case openErrMsg:
		a.setNotice(msg.err.Error(), true)
		return a, nil

	case spinner.TickMsg:
		if a.submitting || (!a.view.Loaded && !a.feedFailed) {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil
	}

	switch a.mode {
	case modeCompose:
		if a.submitting {
			return a, nil
		}
		return a, a.compose.update(msg)
	case modeCategory:
		var cmd tea.Cmd
		a.categoryInput, cmd = a.categoryInput.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleSubmitDone(msg submitDoneMsg) tea.Cmd {
	var (
		ce *submit.ClassificationError
		pe *submit.PersistError
	)
	switch err := msg.err; {
	case err == nil:
		r := msg.result.Record
		a.compose.reset()
		a.mode = modeNormal
		a.setNotice(fmt.Sprintf("Classified as %s / %s", r.Discipline, r.Methodology), false)
		return nil
	case errors.Is(err, submit.ErrAuthNotReady):
		return a.flash("Authenticating...", authNoticeTTL)
	case errors.As(err, &ce), errors.As(err, &pe):
		a.log.Warn("submission failed", zap.Error(err))
		a.setNotice(err.Error(), true)
	default:
		a.setNotice(err.Error(), true)
	}
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.mode {
	case modeCategory:
		return a.handleCategoryKey(msg)
	case modeCompose:
		return a.handleComposeKey(msg)
	case modeHelp:
		switch msg.String() {
		case "?", "esc", "q":
			a.mode = modeNormal
		}
		return a, nil
	}

	// Clear a sticky notice on any keypress in normal mode.
	a.notice = notice{}

	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "j", "down":
		if a.focus == focusList && a.cursor < len(a.view.Records)-1 {
			a.cursor++
			a.previewScroll = 0
		} else if a.focus == focusPreview {
			a.previewScroll++
		}
	case "k", "up":
		if a.focus == focusList && a.cursor > 0 {
			a.cursor--
			a.previewScroll = 0
		} else if a.focus == focusPreview && a.previewScroll > 0 {
			a.previewScroll--
		}
	case "tab":
		if a.focus == focusList {
			a.focus = focusPreview
		} else {
			a.focus = focusList
		}
	case "o", "enter":
		if r := a.selected(); r != nil {
			if r.Link == "" {
				a.setNotice("This paper has no source link", true)
				return a, nil
			}
			return a, openBrowserCmd(r.Link)
		}
	case "d":
		a.lib.CycleDiscipline(1)
		a.filterChanged()
	case "D":
		a.lib.CycleDiscipline(-1)
		a.filterChanged()
	case "m":
		a.lib.CycleMethodology(1)
		a.filterChanged()
	case "M":
		a.lib.CycleMethodology(-1)
		a.filterChanged()
	case "/":
		a.mode = modeCategory
		a.categoryInput.SetValue(a.lib.Filter().Category)
		a.categoryInput.CursorEnd()
		return a, a.categoryInput.Focus()
	case "c":
		a.categoryDebounce.Cancel()
		a.categoryInput.SetValue("")
		a.lib.ClearFilter()
		a.filterChanged()
	case "a":
		a.mode = modeCompose
		return a, a.compose.move(0)
	case "?":
		a.mode = modeHelp
	}
	return a, nil
}

func (a *App) filterChanged() {
	a.cursor = 0
	a.previewScroll = 0
	a.refresh()
}

func (a *App) handleCategoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.categoryDebounce.Cancel()
		a.categoryInput.SetValue("")
		a.categoryInput.Blur()
		a.lib.SetCategory("")
		a.mode = modeNormal
		a.filterChanged()
		return a, nil
	case "enter":
		a.categoryDebounce.Cancel()
		a.categoryInput.Blur()
		a.lib.SetCategory(a.categoryInput.Value())
		a.mode = modeNormal
		a.filterChanged()
		return a, nil
	}

	before := a.categoryInput.Value()
	var cmd tea.Cmd
	a.categoryInput, cmd = a.categoryInput.Update(msg)
	if a.categoryInput.Value() == before {
		return a, cmd
	}
	return a, tea.Batch(cmd, a.categoryChanged())
}

// categoryChanged schedules the category filter to follow the input once
// typing pauses.
func (a *App) categoryChanged() tea.Cmd {
	return a.categoryDebounce.Trigger(a.categoryInput.Value())
}

func (a *App) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.mode = modeNormal
		return a, nil
	}

	// The draft is frozen while a submission is in flight.
	if a.submitting {
		if msg.String() == "ctrl+s" {
			a.setNotice(submit.ErrBusy.Error(), true)
		}
		return a, nil
	}

	switch msg.String() {
	case "tab":
		return a, a.compose.move(1)
	case "shift+tab":
		return a, a.compose.move(-1)
	case "ctrl+r":
		a.compose.reset()
		a.notice = notice{}
		a.noticeGen++
		return a, nil
	case "ctrl+s":
		if a.pipeline.Busy() {
			a.setNotice(submit.ErrBusy.Error(), true)
			return a, nil
		}
		a.submitting = true
		a.notice = notice{}
		return a, tea.Batch(a.submitCmd(), a.spinner.Tick)
	}
	return a, a.compose.update(msg)
}

func (a *App) selected() *record.Record {
	if a.cursor < 0 || a.cursor >= len(a.view.Records) {
		return nil
	}
	r := a.view.Records[a.cursor]
	return &r
}

func (a *App) View() string {
	if a.width == 0 {
		return lipgloss.NewStyle().Foreground(colorAccent).Render("  winisorts")
	}
	if a.mode == modeHelp {
		return a.renderHelp()
	}

	contentHeight := a.height - 3
	if contentHeight < 5 {
		contentHeight = 5
	}

	header := a.renderHeader()

	categoryView := ""
	if a.mode == modeCategory {
		categoryView = a.categoryInput.View()
	}
	filterBar := renderFilterBar(a.view.Filter, categoryView, a.width)

	var content, hints string
	switch {
	case a.mode == modeCompose:
		busy := ""
		if a.submitting {
			state := a.pipeline.State().String()
			busy = a.spinner.View() + " " + strings.ToUpper(state[:1]) + state[1:] + "..."
		}
		content = a.compose.view(a.width, busy)
		hints = "tab next  ctrl+s submit  ctrl+r reset  esc back"
	case !a.view.Loaded || a.view.Empty():
		msg := emptyLibraryText
		switch {
		case a.feedFailed:
			msg = feedFailedText
		case !a.view.Loaded:
			msg = a.spinner.View() + " " + loadingText
		}
		content = renderWelcome(a.width, contentHeight, msg)
		hints = "a add  ? help  q quit"
	default:
		content = a.renderPanes(contentHeight)
		hints = "a add  d/m facets  / category  c clear  o open  ? help  q quit"
		if a.mode == modeCategory {
			hints = "enter apply  esc clear"
		}
	}

	content = lipgloss.NewStyle().Height(contentHeight).MaxHeight(contentHeight).Render(content)
	n := a.notice
	if n.text == "" && a.feedFailed {
		n = notice{text: feedFailedText, err: true}
	}
	status := renderStatusBar(len(a.view.Records), a.view.Total, n, hints, a.width)
	return lipgloss.JoinVertical(lipgloss.Left, header, filterBar, content, status)
}

func (a *App) renderHeader() string {
	left := headerStyle.Render("WiniSorts")
	var right string
	switch {
	case a.userID != "":
		right = headerUserStyle.Render("User ID: " + a.userID + " ")
	case a.authErr != nil:
		right = statusErrStyle.Render("Sign-in failed: " + a.authErr.Error() + " ")
	default:
		right = headerUserStyle.Render("Authenticating... ")
	}
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

func (a *App) renderPanes(height int) string {
	paneHeight := height - 2
	listWidth := int(float64(a.width) * 0.4)
	previewWidth := a.width - listWidth - 1

	listContent := renderList(a.view.Records, a.cursor, paneHeight, listWidth-4, noMatchText)
	previewContent := renderPreview(a.selected(), previewWidth-4, paneHeight, a.previewScroll)

	listStyle, previewStyle := paneActiveStyle, paneStyle
	if a.focus == focusPreview {
		listStyle, previewStyle = paneStyle, paneActiveStyle
	}
	listPane := listStyle.Width(listWidth - 2).Height(paneHeight).Render(listContent)
	previewPane := previewStyle.Width(previewWidth - 2).Height(paneHeight).Render(previewContent)
	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, " ", previewPane)
}

func (a *App) renderHelp() string {
	title := lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Render("WiniSorts")
	dim := helpDimStyle

	help := title + dim.Render("  keyboard shortcuts") + "\n\n" +
		dim.Render("Library") + "\n" +
		"  j/k, ↑/↓      Move through papers\n" +
		"  tab            Switch between list and details\n" +
		"  o, enter       Open the paper's source link\n\n" +
		dim.Render("Filters") + "\n" +
		"  d / D          Next / previous discipline\n" +
		"  m / M          Next / previous methodology\n" +
		"  /              Filter by category\n" +
		"  c              Clear all filters\n\n" +
		dim.Render("Add a paper") + "\n" +
		"  a              Open the form\n" +
		"  tab            Next field\n" +
		"  ctrl+s         Classify and save\n" +
		"  ctrl+r         Reset the form\n\n" +
		dim.Render("General") + "\n" +
		"  ?              Toggle this help\n" +
		"  q, ctrl+c      Quit"

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, helpCardStyle.Render(help))
}

// Run starts the TUI and blocks until the user quits.
func Run(opts RunOpts) error {
	app := NewApp(opts)
	defer app.Close()
	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
