// Package remote talks to a library server over HTTP and websockets. A Client
// is both a feed transport and a record persister, so the terminal client
// can run against a shared library instead of a local store.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/feed"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

const (
	FeedPath    = "/v1/feed"
	RecordsPath = "/v1/records"
)

const (
	FrameSnapshot = "snapshot"
	FrameError    = "error"
)

// Frame is one message on the feed websocket.
type Frame struct {
	Type    string          `json:"type"`
	Records []record.Record `json:"records,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// AddRequest is the body of POST /v1/records.
type AddRequest struct {
	Collection string        `json:"collection" validate:"required"`
	Record     record.Record `json:"record"`
}

type AddResponse struct {
	ID string `json:"id"`
}

// ErrorResponse is returned by the server on any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusError reports a non-2xx reply from the library server.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("library API %d: %s", e.Status, e.Body)
}

type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
	log    *zap.Logger
}

func New(baseURL string, timeout time.Duration, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid library url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("library url scheme must be http or https, got %q", u.Scheme)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: timeout},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		log: log.Named("remote"),
	}, nil
}

// AddRecord asks the server to store r. The server assigns the id and the
// creation time.
func (c *Client) AddRecord(ctx context.Context, collection string, r record.Record) (string, error) {
	body, err := json.Marshal(AddRequest{Collection: collection, Record: r})
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+RecordsPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("library API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	var out AddResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding add response: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("library API returned no id")
	}
	return out.ID, nil
}

func (c *Client) feedURL(q feed.Query) string {
	u := *c.base
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + FeedPath
	v := url.Values{}
	v.Set("collection", q.CollectionPath)
	v.Set("limit", strconv.Itoa(q.Limit))
	u.RawQuery = v.Encode()
	return u.String()
}

// Subscribe implements feed.Transport over the server's feed websocket.
func (c *Client) Subscribe(ctx context.Context, q feed.Query, onSnapshot func([]record.Record), onError func(error)) (feed.Unsubscribe, error) {
	conn, resp, err := c.dialer.DialContext(ctx, c.feedURL(q), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dialing feed: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dialing feed: %w", err)
	}

	var (
		closing  = make(chan struct{})
		exited   = make(chan struct{})
		stopOnce sync.Once
	)
	log := c.log.With(zap.String("collection", q.CollectionPath))

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-closing:
		case <-exited:
		}
	}()

	go func() {
		defer close(exited)
		for {
			var f Frame
			if err := conn.ReadJSON(&f); err != nil {
				select {
				case <-closing:
					return
				default:
				}
				if ctx.Err() != nil {
					return
				}
				log.Warn("feed connection lost", zap.Error(err))
				onError(fmt.Errorf("feed connection lost: %w", err))
				return
			}

			switch f.Type {
			case FrameSnapshot:
				onSnapshot(f.Records)
			case FrameError:
				onError(errors.New(f.Error))
				return
			default:
				log.Debug("ignoring frame", zap.String("type", f.Type))
			}
		}
	}()

	return func() {
		stopOnce.Do(func() {
			close(closing)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			conn.Close()
			<-exited
		})
	}, nil
}
