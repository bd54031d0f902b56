package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeTransport hands the callbacks to the test so it can play the upstream.
type fakeTransport struct {
	mu           sync.Mutex
	query        Query
	onSnapshot   func([]record.Record)
	onError      func(error)
	subscribeErr error
	subscribes   int
	unsubscribed bool
}

func (f *fakeTransport) Subscribe(_ context.Context, q Query, onSnapshot func([]record.Record), onError func(error)) (Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.query = q
	f.onSnapshot = onSnapshot
	f.onError = onError
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.mu.Unlock()
	}, nil
}

func (f *fakeTransport) emit(snapshot []record.Record) {
	f.mu.Lock()
	cb := f.onSnapshot
	f.mu.Unlock()
	cb(snapshot)
}

func (f *fakeTransport) fail(err error) {
	f.mu.Lock()
	cb := f.onError
	f.mu.Unlock()
	cb(err)
}

func next(t *testing.T, a *Adapter) Event {
	t.Helper()
	select {
	case ev := <-a.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for feed event")
		return Event{}
	}
}

func TestNewQuery(t *testing.T) {
	q := NewQuery("default-app-id", 0)
	assert.Equal(t, "artifacts/default-app-id/public/data/papers", q.CollectionPath)
	assert.Equal(t, "createdAt", q.OrderField)
	assert.True(t, q.Descending)
	assert.Equal(t, 50, q.Limit)

	assert.Equal(t, 10, NewQuery("x", 10).Limit)
}

func TestStartRequiresSession(t *testing.T) {
	tr := &fakeTransport{}
	a := NewAdapter(tr, NewQuery("app", 50), zap.NewNop())
	defer a.Stop()

	err := a.Start(context.Background(), "")
	assert.ErrorIs(t, err, ErrSessionNotReady)
	assert.Equal(t, 0, tr.subscribes, "transport must not be touched before the session exists")
}

func TestStartTwice(t *testing.T) {
	tr := &fakeTransport{}
	a := NewAdapter(tr, NewQuery("app", 50), nil)
	defer a.Stop()

	require.NoError(t, a.Start(context.Background(), "user-1"))
	assert.ErrorIs(t, a.Start(context.Background(), "user-1"), ErrAlreadyStarted)
	assert.Equal(t, 1, tr.subscribes)
}

func TestSnapshotsDeliveredInOrder(t *testing.T) {
	tr := &fakeTransport{}
	a := NewAdapter(tr, NewQuery("app", 50), zap.NewNop())
	defer a.Stop()
	require.NoError(t, a.Start(context.Background(), "user-1"))
	assert.Equal(t, "artifacts/app/public/data/papers", tr.query.CollectionPath)

	go func() {
		tr.emit([]record.Record{{ID: "a"}})
		tr.emit([]record.Record{{ID: "b"}, {ID: "a"}})
		tr.emit(nil)
	}()

	ev := next(t, a)
	require.NoError(t, ev.Err)
	assert.Len(t, ev.Snapshot, 1)

	ev = next(t, a)
	require.Len(t, ev.Snapshot, 2)
	assert.Equal(t, "b", ev.Snapshot[0].ID)

	ev = next(t, a)
	assert.NoError(t, ev.Err)
	assert.Empty(t, ev.Snapshot)
}

func TestErrorDeliveredOnce(t *testing.T) {
	tr := &fakeTransport{}
	a := NewAdapter(tr, NewQuery("app", 50), zap.NewNop())
	defer a.Stop()
	require.NoError(t, a.Start(context.Background(), "user-1"))

	boom := errors.New("permission denied")
	tr.fail(boom)
	tr.fail(errors.New("second"))
	tr.emit([]record.Record{{ID: "late"}})

	ev := next(t, a)
	var fe *FeedError
	require.ErrorAs(t, ev.Err, &fe)
	assert.ErrorIs(t, ev.Err, boom)
	assert.Equal(t, "artifacts/app/public/data/papers", fe.Path)

	select {
	case ev := <-a.Events():
		t.Fatalf("unexpected event after failure: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeFailure(t *testing.T) {
	tr := &fakeTransport{subscribeErr: errors.New("dial refused")}
	a := NewAdapter(tr, NewQuery("app", 50), zap.NewNop())
	defer a.Stop()

	err := a.Start(context.Background(), "user-1")
	var fe *FeedError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, err.Error(), "dial refused")
}

func TestStopUnsubscribesAndClosesEvents(t *testing.T) {
	tr := &fakeTransport{}
	a := NewAdapter(tr, NewQuery("app", 50), zap.NewNop())
	require.NoError(t, a.Start(context.Background(), "user-1"))

	a.Stop()
	a.Stop()

	tr.mu.Lock()
	assert.True(t, tr.unsubscribed)
	tr.mu.Unlock()

	_, open := <-a.Events()
	assert.False(t, open)

	// Callbacks racing with Stop are dropped rather than panicking.
	tr.emit([]record.Record{{ID: "x"}})
}

func TestStopUnblocksPendingSend(t *testing.T) {
	tr := &fakeTransport{}
	a := NewAdapter(tr, NewQuery("app", 50), zap.NewNop())
	require.NoError(t, a.Start(context.Background(), "user-1"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			tr.emit([]record.Record{{ID: "x"}})
		}
	}()

	time.Sleep(20 * time.Millisecond)
	a.Stop()
	<-done
}
