package store

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/feed"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

type subscriber struct {
	collection string
	dirty      chan struct{}
	done       chan struct{}
	once       sync.Once
	exited     chan struct{}
}

func (sub *subscriber) stop() {
	sub.once.Do(func() { close(sub.done) })
	<-sub.exited
}

// Subscribe implements feed.Transport. The current result of q is delivered
// right away and again after every change to the collection. Changes that
// land while a snapshot is being delivered coalesce into one re-query. A
// query failure is reported once through onError and ends the subscription.
func (s *Store) Subscribe(ctx context.Context, q feed.Query, onSnapshot func([]record.Record), onError func(error)) (feed.Unsubscribe, error) {
	if q.OrderField != "" && q.OrderField != "createdAt" {
		return nil, fmt.Errorf("unsupported order field %q", q.OrderField)
	}
	if !q.Descending {
		return nil, fmt.Errorf("only newest-first queries are supported")
	}

	sub := &subscriber{
		collection: q.CollectionPath,
		dirty:      make(chan struct{}, 1),
		done:       make(chan struct{}),
		exited:     make(chan struct{}),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub
	s.mu.Unlock()

	log := s.log.With(zap.String("collection", q.CollectionPath), zap.Uint64("sub", id))
	log.Debug("subscribed")

	go func() {
		defer close(sub.exited)
		defer s.remove(id)
		for {
			recs, err := s.Latest(ctx, q.CollectionPath, q.Limit)
			select {
			case <-sub.done:
				return
			default:
			}
			if err != nil {
				if ctx.Err() == nil {
					log.Warn("subscription query failed", zap.Error(err))
					onError(err)
				}
				return
			}
			onSnapshot(recs)

			select {
			case <-sub.dirty:
			case <-sub.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		sub.stop()
		log.Debug("unsubscribed")
	}, nil
}

func (s *Store) remove(id uint64) {
	s.mu.Lock()
	delete(s.subs, id)
	s.mu.Unlock()
}

func (s *Store) notify(collection string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.collection == collection {
			sub.mark()
		}
	}
}

func (s *Store) notifyAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		sub.mark()
	}
}

func (sub *subscriber) mark() {
	select {
	case sub.dirty <- struct{}{}:
	default:
	}
}
