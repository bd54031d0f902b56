package tui

import (
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/feed"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/submit"
)

type sessionReadyMsg struct {
	userID string
}

type sessionErrMsg struct {
	err error
}

type feedStartedMsg struct{}

type feedEventMsg struct {
	ev feed.Event
}

// feedErrMsg reports that the subscription could not be started or failed.
type feedErrMsg struct {
	err error
}

type submitDoneMsg struct {
	result submit.Result
	err    error
}

// clearNoticeMsg ends a transient notice. Only the notice with the same
// generation is cleared.
type clearNoticeMsg struct {
	gen int
}

type openErrMsg struct {
	err error
}
