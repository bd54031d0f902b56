package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/classifier"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/config"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/debounce"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/feed"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/session"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/submit"
)

type nopTransport struct{}

func (nopTransport) Subscribe(context.Context, feed.Query, func([]record.Record), func(error)) (feed.Unsubscribe, error) {
	return func() {}, nil
}

type stubClassifier struct{}

func (stubClassifier) Classify(context.Context, string) (classifier.Response, error) {
	return classifier.Response{
		PrimaryCategory:     "Physics",
		ResearchMethodology: "Simulation",
		Categories:          record.Categories{"astrophysics"},
	}, nil
}

type stubStore struct {
	mu  sync.Mutex
	err error
	got []record.Record
}

func (s *stubStore) AddRecord(_ context.Context, _ string, r record.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.got = append(s.got, r)
	return "doc-1", nil
}

func newTestApp(t *testing.T, st *stubStore) *App {
	t.Helper()
	cfg := &config.Config{AppID: "test", Debounce: "1ms"}
	a := NewApp(RunOpts{
		Cfg:       cfg,
		Session:   session.Static("user-1"),
		Transport: nopTransport{},
		Pipeline:  submit.New(stubClassifier{}, st, feed.CollectionPath(cfg.AppID), nil),
	})
	t.Cleanup(a.Close)
	a.Update(tea.WindowSizeMsg{Width: 140, Height: 40})
	return a
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// drain runs cmd and any batched commands, returning the messages produced.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func submitResult(t *testing.T, cmd tea.Cmd) submitDoneMsg {
	t.Helper()
	for _, msg := range drain(cmd) {
		if done, ok := msg.(submitDoneMsg); ok {
			return done
		}
	}
	t.Fatal("no submission result produced")
	return submitDoneMsg{}
}

func papers() []record.Record {
	return []record.Record{
		{ID: "1", Title: "Halo Dynamics", Discipline: "Physics", Methodology: "Simulation",
			Categories: record.Categories{"astrophysics"}, Abstract: "halos", CreatedAt: time.Now()},
		{ID: "2", Title: "Gene Atlas", Discipline: "Biology", Methodology: "Empirical",
			Categories: record.Categories{"genomics"}, Abstract: "genes", Link: "https://example.org/2", CreatedAt: time.Now()},
		{ID: "3", Title: "Field Notes", Discipline: "Physics", Methodology: "Theoretical",
			Categories: record.Categories{"quantum"}, Abstract: "fields", CreatedAt: time.Now()},
	}
}

func TestSessionStartsFeed(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	msgs := drain(a.Init())

	var ready *sessionReadyMsg
	for _, m := range msgs {
		if r, ok := m.(sessionReadyMsg); ok {
			ready = &r
		}
	}
	require.NotNil(t, ready)

	_, cmd := a.Update(*ready)
	assert.Equal(t, "user-1", a.userID)
	assert.Contains(t, a.View(), "User ID: user-1")
	assert.Equal(t, []tea.Msg{feedStartedMsg{}}, drain(cmd))
}

func TestSnapshotPopulatesView(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	assert.Contains(t, a.View(), loadingText)

	a.Update(feedEventMsg{ev: feed.Event{Snapshot: papers()}})
	out := a.View()
	assert.Equal(t, 3, a.view.Total)
	assert.Contains(t, out, "Halo Dynamics")
	assert.Contains(t, out, "3 papers")
}

func TestEmptyLibraryMessage(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(feedEventMsg{ev: feed.Event{Snapshot: nil}})
	assert.Contains(t, a.View(), emptyLibraryText)
}

func TestFeedFailureMessage(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(feedEventMsg{ev: feed.Event{Err: &feed.FeedError{Path: "p", Err: errors.New("denied")}}})
	assert.True(t, a.feedFailed)
	assert.Contains(t, a.View(), feedFailedText)
}

func TestFeedFailureSurvivesKeypress(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(feedEventMsg{ev: feed.Event{Snapshot: papers()}})
	a.Update(feedEventMsg{ev: feed.Event{Err: &feed.FeedError{Path: "p", Err: errors.New("denied")}}})
	require.Contains(t, a.View(), feedFailedText)

	a.Update(key("j"))
	assert.Equal(t, "", a.notice.text)
	out := a.View()
	assert.Contains(t, out, feedFailedText)
	assert.Contains(t, out, "Halo Dynamics")
}

func TestSessionFailureStaysInHeader(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(sessionErrMsg{err: errors.New("offline")})
	a.Update(key("j"))

	header := a.renderHeader()
	assert.Contains(t, header, "Sign-in failed: offline")
	assert.NotContains(t, header, "Authenticating...")
	assert.Contains(t, a.View(), feedFailedText)
}

func TestFacetKeysSurviveSnapshots(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(feedEventMsg{ev: feed.Event{Snapshot: papers()}})

	a.Update(key("d"))
	assert.Equal(t, "Biology", a.view.Filter.Discipline)
	require.Len(t, a.view.Records, 1)

	a.Update(key("d"))
	assert.Equal(t, "Physics", a.view.Filter.Discipline)
	assert.Len(t, a.view.Records, 2)

	a.Update(key("m"))
	assert.Equal(t, "Empirical", a.view.Filter.Methodology)
	assert.Empty(t, a.view.Records)

	// Physics is still an option, Empirical is not.
	a.Update(feedEventMsg{ev: feed.Event{Snapshot: []record.Record{papers()[0]}}})
	assert.Equal(t, "Physics", a.view.Filter.Discipline)
	assert.Equal(t, "", a.view.Filter.Methodology)
	assert.Len(t, a.view.Records, 1)

	a.Update(key("c"))
	assert.True(t, a.view.Filter.IsZero())
}

func TestCategoryInputIsDebounced(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(feedEventMsg{ev: feed.Event{Snapshot: papers()}})
	a.Update(key("/"))
	require.Equal(t, modeCategory, a.mode)

	a.categoryInput.SetValue("gen")
	first := a.categoryChanged()
	a.categoryInput.SetValue("genom")
	second := a.categoryChanged()

	// The superseded tick changes nothing.
	a.Update(first())
	assert.Equal(t, "", a.view.Filter.Category)
	assert.Len(t, a.view.Records, 3)

	msg := second()
	require.IsType(t, debounce.Msg{}, msg)
	a.Update(msg)
	assert.Equal(t, "genom", a.view.Filter.Category)
	require.Len(t, a.view.Records, 1)
	assert.Equal(t, "2", a.view.Records[0].ID)
}

func TestSnapshotDuringPendingCategory(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(feedEventMsg{ev: feed.Event{Snapshot: papers()}})
	a.Update(key("/"))
	a.categoryInput.SetValue("gen")
	pending := a.categoryChanged()

	newer := append(papers(), record.Record{ID: "4", Title: "Genome Drift", Discipline: "Biology",
		Methodology: "Simulation", Categories: record.Categories{"population genetics"}, CreatedAt: time.Now()})
	a.Update(feedEventMsg{ev: feed.Event{Snapshot: newer}})
	assert.Equal(t, "", a.view.Filter.Category)
	assert.Equal(t, 4, a.view.Total)
	require.True(t, a.categoryDebounce.Pending())

	a.Update(pending())
	assert.Equal(t, "gen", a.view.Filter.Category)
	assert.Equal(t, 4, a.view.Total)
	var ids []string
	for _, r := range a.view.Records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"2", "4"}, ids)
}

func TestCategoryEscClearsAndCancels(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(feedEventMsg{ev: feed.Event{Snapshot: papers()}})
	a.Update(key("/"))
	a.categoryInput.SetValue("quantum")
	pending := a.categoryChanged()

	a.Update(key("esc"))
	a.Update(pending())
	assert.Equal(t, modeNormal, a.mode)
	assert.Equal(t, "", a.view.Filter.Category)
	assert.Len(t, a.view.Records, 3)
}

func TestCategoryEnterAppliesImmediately(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(feedEventMsg{ev: feed.Event{Snapshot: papers()}})
	a.Update(key("/"))
	a.categoryInput.SetValue("QUANTUM")
	a.Update(key("enter"))
	require.Len(t, a.view.Records, 1)
	assert.Equal(t, "3", a.view.Records[0].ID)
}

func TestSubmitClearsDraftOnSuccess(t *testing.T) {
	st := &stubStore{}
	a := newTestApp(t, st)
	a.Update(sessionReadyMsg{userID: "user-1"})
	a.Update(key("a"))
	require.Equal(t, modeCompose, a.mode)

	a.compose.title.SetValue("Halos")
	a.compose.abstract.SetValue("  Monte Carlo halos.  ")
	_, cmd := a.Update(key("ctrl+s"))
	assert.True(t, a.submitting)

	a.Update(submitResult(t, cmd))
	assert.False(t, a.submitting)
	assert.Equal(t, modeNormal, a.mode)
	assert.Equal(t, submit.Form{}, a.compose.form())
	assert.Contains(t, a.notice.text, "Physics / Simulation")

	require.Len(t, st.got, 1)
	assert.Equal(t, "Monte Carlo halos.", st.got[0].Abstract)
	assert.Equal(t, "user-1", st.got[0].SubmittedBy)
}

func TestSubmitKeepsDraftOnFailure(t *testing.T) {
	a := newTestApp(t, &stubStore{err: errors.New("quota exceeded")})
	a.Update(sessionReadyMsg{userID: "user-1"})
	a.Update(key("a"))
	a.compose.abstract.SetValue("Monte Carlo halos.")

	_, cmd := a.Update(key("ctrl+s"))
	a.Update(submitResult(t, cmd))

	assert.Equal(t, modeCompose, a.mode)
	assert.Equal(t, "Monte Carlo halos.", a.compose.form().Abstract)
	assert.True(t, a.notice.err)
	assert.Contains(t, a.notice.text, "quota exceeded")

	a.Update(key("ctrl+r"))
	assert.Equal(t, submit.Form{}, a.compose.form())
	assert.Equal(t, "", a.notice.text)
}

func TestDraftIsFrozenWhileSubmitting(t *testing.T) {
	st := &stubStore{}
	a := newTestApp(t, st)
	a.Update(sessionReadyMsg{userID: "user-1"})
	a.Update(key("a"))
	a.compose.abstract.SetValue("Monte Carlo halos.")
	_, cmd := a.Update(key("ctrl+s"))
	require.True(t, a.submitting)

	focus := a.compose.focus
	a.Update(key("x"))
	a.Update(key("ctrl+r"))
	a.Update(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, submit.Form{Abstract: "Monte Carlo halos."}, a.compose.form())
	assert.Equal(t, focus, a.compose.focus)

	_, again := a.Update(key("ctrl+s"))
	assert.Nil(t, again)
	assert.Equal(t, submit.ErrBusy.Error(), a.notice.text)

	a.Update(submitResult(t, cmd))
	assert.False(t, a.submitting)
	assert.Equal(t, submit.Form{}, a.compose.form())
	require.Len(t, st.got, 1)
}

func TestSubmitBeforeSessionShowsAuthenticating(t *testing.T) {
	st := &stubStore{}
	a := newTestApp(t, st)
	a.Update(key("a"))
	a.compose.abstract.SetValue("Monte Carlo halos.")

	_, cmd := a.Update(key("ctrl+s"))
	_, clear := a.Update(submitResult(t, cmd))
	assert.Equal(t, "Authenticating...", a.notice.text)
	assert.NotNil(t, clear)
	assert.Empty(t, st.got)

	a.Update(clearNoticeMsg{gen: a.noticeGen - 1})
	assert.Equal(t, "Authenticating...", a.notice.text)
	a.Update(clearNoticeMsg{gen: a.noticeGen})
	assert.Equal(t, "", a.notice.text)
}

func TestEmptyAbstractIsRejected(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(sessionReadyMsg{userID: "user-1"})
	a.Update(key("a"))
	a.compose.title.SetValue("Only a title")

	_, cmd := a.Update(key("ctrl+s"))
	a.Update(submitResult(t, cmd))
	assert.True(t, a.notice.err)
	assert.Equal(t, submit.ErrEmptyInput.Error(), a.notice.text)
	assert.Equal(t, "Only a title", a.compose.form().Title)
}

func TestOpenWithoutLink(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(feedEventMsg{ev: feed.Event{Snapshot: papers()}})
	_, cmd := a.Update(key("o"))
	assert.Nil(t, cmd)
	assert.True(t, strings.Contains(a.notice.text, "no source link"))
}

func TestHelpToggle(t *testing.T) {
	a := newTestApp(t, &stubStore{})
	a.Update(key("?"))
	assert.Contains(t, a.View(), "keyboard shortcuts")
	a.Update(key("esc"))
	assert.Equal(t, modeNormal, a.mode)
}
