// Package feed adapts an ordered, size-bounded upstream collection into a
// stream of whole-snapshot events.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

// DefaultLimit bounds a snapshot to the most recent records.
const DefaultLimit = 50

var (
	ErrSessionNotReady = errors.New("feed started before the session was established")
	ErrAlreadyStarted  = errors.New("feed already started")
)

// CollectionPath is where an application's public paper records live.
func CollectionPath(appID string) string {
	return fmt.Sprintf("artifacts/%s/public/data/papers", appID)
}

// Query describes the subscription: the newest Limit records of a collection
// ordered by OrderField.
type Query struct {
	CollectionPath string
	OrderField     string
	Descending     bool
	Limit          int
}

func NewQuery(appID string, limit int) Query {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return Query{
		CollectionPath: CollectionPath(appID),
		OrderField:     "createdAt",
		Descending:     true,
		Limit:          limit,
	}
}

// Unsubscribe ends a subscription. After it returns the transport invokes no
// further callbacks.
type Unsubscribe func()

// Transport delivers the complete current result of q on every upstream
// change. onError is invoked at most once per failure, after which the
// transport delivers nothing further for that subscription.
type Transport interface {
	Subscribe(ctx context.Context, q Query, onSnapshot func([]record.Record), onError func(error)) (Unsubscribe, error)
}

// FeedError reports that the subscription failed and will not recover on its
// own.
type FeedError struct {
	Path string
	Err  error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed %s unavailable: %v", e.Path, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}

// Event carries either a complete snapshot or the subscription's failure.
type Event struct {
	Snapshot []record.Record
	Err      error
}

// Adapter owns one logical subscription.
type Adapter struct {
	transport Transport
	query     Query
	log       *zap.Logger

	events   chan Event
	done     chan struct{}
	inflight sync.WaitGroup

	mu      sync.Mutex
	unsub   Unsubscribe
	started bool
	failed  bool
	stopped bool
}

func NewAdapter(t Transport, q Query, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		transport: t,
		query:     q,
		log:       log.Named("feed"),
		events:    make(chan Event, 8),
		done:      make(chan struct{}),
	}
}

// Events delivers snapshots and errors in the order the upstream emits them.
// The channel is closed by Stop.
func (a *Adapter) Events() <-chan Event {
	return a.events
}

func (a *Adapter) Query() Query {
	return a.query
}

// Start subscribes upstream. userID is the established session identity; an
// empty userID means the session step has not completed and is rejected.
func (a *Adapter) Start(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrSessionNotReady
	}

	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	a.started = true
	a.mu.Unlock()

	unsub, err := a.transport.Subscribe(ctx, a.query, a.onSnapshot, a.onError)
	if err != nil {
		a.mu.Lock()
		a.failed = true
		a.mu.Unlock()
		return &FeedError{Path: a.query.CollectionPath, Err: err}
	}

	a.mu.Lock()
	a.unsub = unsub
	stopped := a.stopped
	a.mu.Unlock()
	if stopped {
		unsub()
	}

	a.log.Info("subscribed",
		zap.String("collection", a.query.CollectionPath),
		zap.Int("limit", a.query.Limit))
	return nil
}

func (a *Adapter) onSnapshot(snapshot []record.Record) {
	if !a.enter(false) {
		return
	}
	defer a.inflight.Done()

	a.log.Debug("snapshot", zap.Int("records", len(snapshot)))
	a.send(Event{Snapshot: snapshot})
}

func (a *Adapter) onError(err error) {
	if !a.enter(true) {
		return
	}
	defer a.inflight.Done()

	a.log.Warn("subscription failed", zap.String("collection", a.query.CollectionPath), zap.Error(err))
	a.send(Event{Err: &FeedError{Path: a.query.CollectionPath, Err: err}})
}

// enter admits a callback unless the adapter has stopped or already failed.
// A failing callback marks the adapter failed so the error is reported once.
func (a *Adapter) enter(failing bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped || a.failed {
		return false
	}
	if failing {
		a.failed = true
	}
	a.inflight.Add(1)
	return true
}

func (a *Adapter) send(ev Event) {
	select {
	case a.events <- ev:
	case <-a.done:
	}
}

// Stop unsubscribes and closes Events. It is safe to call more than once.
func (a *Adapter) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	unsub := a.unsub
	a.mu.Unlock()

	close(a.done)
	if unsub != nil {
		unsub()
	}
	a.inflight.Wait()
	close(a.events)
}
