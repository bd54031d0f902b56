package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/feed"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/metrics"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/remote"
)

const (
	maxFeedLimit = 500
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = (pongWait * 9) / 10
)

// Records is the backing store of the library server.
type Records interface {
	feed.Transport
	AddRecord(ctx context.Context, collection string, r record.Record) (string, error)
}

type Library struct {
	records  Records
	log      *zap.Logger
	upgrader websocket.Upgrader

	stopOnce sync.Once
	stop     chan struct{}
}

// NewLibrary returns the library server. Open feed connections are closed
// when the server shuts down.
func NewLibrary(records Records, log *zap.Logger) *echo.Echo {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Library{
		records: records,
		log:     log.Named("library"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		stop: make(chan struct{}),
	}

	e := newEcho(l.log)
	e.Server.RegisterOnShutdown(l.closeFeeds)
	e.GET("/healthz", l.health)
	e.POST(remote.RecordsPath, l.addRecord)
	e.GET(remote.FeedPath, l.feed)
	return e
}

func (l *Library) closeFeeds() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Library) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (l *Library) addRecord(c echo.Context) error {
	var req remote.AddRequest
	if err := c.Bind(&req); err != nil {
		metrics.RecordAdd("invalid")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		metrics.RecordAdd("invalid")
		return err
	}

	r := req.Record
	r.Abstract = strings.TrimSpace(r.Abstract)
	r.SubmittedBy = strings.TrimSpace(r.SubmittedBy)
	switch {
	case r.Abstract == "":
		metrics.RecordAdd("invalid")
		return echo.NewHTTPError(http.StatusBadRequest, "abstract is required")
	case r.SubmittedBy == "":
		metrics.RecordAdd("invalid")
		return echo.NewHTTPError(http.StatusBadRequest, "submittedBy is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		r.Title = record.DefaultTitle
	}

	id, err := l.records.AddRecord(c.Request().Context(), req.Collection, r)
	if err != nil {
		metrics.RecordAdd("error")
		metrics.RecordError("add_record")
		l.log.Error("add record failed", zap.String("collection", req.Collection), zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store record")
	}
	metrics.RecordAdd("ok")
	return c.JSON(http.StatusCreated, remote.AddResponse{ID: id})
}

func feedQuery(c echo.Context) (feed.Query, error) {
	collection := strings.TrimSpace(c.QueryParam("collection"))
	if collection == "" {
		return feed.Query{}, echo.NewHTTPError(http.StatusBadRequest, "collection is required")
	}
	limit := feed.DefaultLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > maxFeedLimit {
			return feed.Query{}, echo.NewHTTPError(http.StatusBadRequest, "limit must be between 1 and 500")
		}
		limit = n
	}
	return feed.Query{
		CollectionPath: collection,
		OrderField:     "createdAt",
		Descending:     true,
		Limit:          limit,
	}, nil
}

// feed upgrades to a websocket and pushes a snapshot frame on every change to
// the collection. A store failure is sent as one error frame before closing.
func (l *Library) feed(c echo.Context) error {
	q, err := feedQuery(c)
	if err != nil {
		return err
	}

	conn, err := l.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already replied.
		l.log.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer conn.Close()

	metrics.FeedSubscribers.Inc()
	defer metrics.FeedSubscribers.Dec()
	log := l.log.With(zap.String("collection", q.CollectionPath), zap.Int("limit", q.Limit))
	log.Info("feed opened")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reading keeps control frames flowing and notices the peer leaving.
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	frames := make(chan remote.Frame, 1)
	push := func(f remote.Frame) {
		select {
		case frames <- f:
		case <-ctx.Done():
		}
	}

	unsub, err := l.records.Subscribe(ctx, q,
		func(recs []record.Record) {
			push(remote.Frame{Type: remote.FrameSnapshot, Records: recs})
		},
		func(err error) {
			metrics.RecordError("feed")
			push(remote.Frame{Type: remote.FrameError, Error: err.Error()})
		})
	if err != nil {
		log.Warn("subscribe failed", zap.Error(err))
		l.write(conn, remote.Frame{Type: remote.FrameError, Error: err.Error()})
		return nil
	}
	defer func() {
		cancel()
		unsub()
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case f := <-frames:
			if f.Type == remote.FrameSnapshot {
				metrics.RecordSnapshot(len(f.Records))
			}
			if err := l.write(conn, f); err != nil || f.Type == remote.FrameError {
				return nil
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-ctx.Done():
			log.Info("feed closed")
			return nil
		case <-l.stop:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return nil
		}
	}
}

func (l *Library) write(conn *websocket.Conn, f remote.Frame) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(f); err != nil {
		l.log.Debug("feed write failed", zap.Error(err))
		return err
	}
	return nil
}
