package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/feed"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

const papers = "artifacts/test/public/data/papers"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testDB(t *testing.T) *Store {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// clock steps one minute per call so insertion order is creation order.
func clock(db *Store, start time.Time) {
	var mu sync.Mutex
	now := start
	db.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

func samplePapers() []record.Record {
	return []record.Record{
		{Title: "Paper A", Discipline: "Physics", Methodology: "Simulation", Categories: record.Categories{"cosmology"}, Abstract: "a", SubmittedBy: "u1"},
		{Title: "Paper B", Discipline: "Biology", Methodology: "Empirical", Categories: record.Categories{" genomics ", ""}, Abstract: "b", SubmittedBy: "u2", Link: "https://b.example"},
		{Title: "Paper C", Discipline: "Physics", Methodology: "Theoretical", Abstract: "c", SubmittedBy: "u1"},
	}
}

func addAll(t *testing.T, db *Store, collection string, recs []record.Record) []string {
	t.Helper()
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		id, err := db.AddRecord(context.Background(), collection, r)
		if err != nil {
			t.Fatalf("add: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func TestAddAndLatest(t *testing.T) {
	db := testDB(t)
	clock(db, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	ids := addAll(t, db, papers, samplePapers())

	got, err := db.Latest(context.Background(), papers, 50)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	// Newest first
	if got[0].ID != ids[2] || got[2].ID != ids[0] {
		t.Errorf("expected newest first, got %s, %s, %s", got[0].ID, got[1].ID, got[2].ID)
	}
	if !got[0].CreatedAt.After(got[1].CreatedAt) {
		t.Errorf("expected descending createdAt, got %v then %v", got[0].CreatedAt, got[1].CreatedAt)
	}
	b := got[1]
	if len(b.Categories) != 1 || b.Categories[0] != "genomics" {
		t.Errorf("expected normalized categories [genomics], got %q", b.Categories)
	}
	if b.Link != "https://b.example" || b.SubmittedBy != "u2" {
		t.Errorf("unexpected record fields: %+v", b)
	}
	if len(got[0].Categories) != 0 {
		t.Errorf("expected no categories, got %q", got[0].Categories)
	}
}

func TestAddStampsCreatedAt(t *testing.T) {
	db := testDB(t)
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return stamp }

	_, err := db.AddRecord(context.Background(), papers, record.Record{
		Title: "x", Abstract: "x", SubmittedBy: "u", CreatedAt: time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	got, _ := db.Latest(context.Background(), papers, 1)
	if !got[0].CreatedAt.Equal(stamp) {
		t.Errorf("expected server stamp %v, got %v", stamp, got[0].CreatedAt)
	}
}

func TestAddRequiresCollection(t *testing.T) {
	db := testDB(t)
	if _, err := db.AddRecord(context.Background(), " ", record.Record{Abstract: "x"}); err == nil {
		t.Error("expected error for blank collection")
	}
}

func TestLatestLimitAndCollection(t *testing.T) {
	db := testDB(t)
	clock(db, time.Now())
	addAll(t, db, papers, samplePapers())
	addAll(t, db, "artifacts/other/public/data/papers", samplePapers()[:1])

	got, err := db.Latest(context.Background(), papers, 2)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 records with limit, got %d", len(got))
	}
	if got[0].Title != "Paper C" {
		t.Errorf("expected Paper C first, got %q", got[0].Title)
	}
}

func TestEmptyDB(t *testing.T) {
	db := testDB(t)
	got, err := db.Latest(context.Background(), papers, 50)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected 0 records in empty db, got %d", len(got))
	}
}

func TestHasLink(t *testing.T) {
	db := testDB(t)
	addAll(t, db, papers, samplePapers())

	ok, err := db.HasLink(context.Background(), papers, "https://b.example")
	if err != nil || !ok {
		t.Errorf("expected link to be found, got %v, %v", ok, err)
	}
	ok, _ = db.HasLink(context.Background(), papers, "https://missing.example")
	if ok {
		t.Error("expected missing link to be absent")
	}
	ok, _ = db.HasLink(context.Background(), papers, "")
	if ok {
		t.Error("expected empty link to never match")
	}
}

func TestPruneDeletesOldRecords(t *testing.T) {
	db := testDB(t)
	start := time.Now().Add(-72 * time.Hour)
	db.now = func() time.Time { return start }
	addAll(t, db, papers, samplePapers()[:1])
	db.now = time.Now
	addAll(t, db, papers, samplePapers()[1:])

	deleted, err := db.Prune(context.Background(), 24*time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 pruned, got %d", deleted)
	}
	got, _ := db.Latest(context.Background(), papers, 50)
	if len(got) != 2 {
		t.Errorf("expected 2 remaining records, got %d", len(got))
	}
}

func TestStats(t *testing.T) {
	db := testDB(t)
	addAll(t, db, papers, samplePapers())
	addAll(t, db, "artifacts/other/public/data/papers", samplePapers()[:1])

	st, err := db.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Records != 4 || st.Collections != 2 {
		t.Errorf("expected 4 records in 2 collections, got %+v", st)
	}
	if st.SizeBytes == 0 {
		t.Error("expected non-zero db size")
	}
	if !st.LastImport.IsZero() {
		t.Errorf("expected no last import, got %v", st.LastImport)
	}

	if err := db.SetLastImport(context.Background()); err != nil {
		t.Fatalf("SetLastImport: %v", err)
	}
	st, _ = db.Stats(context.Background())
	if time.Since(st.LastImport) > time.Minute {
		t.Errorf("last import too old: %v", st.LastImport)
	}
}

type collector struct {
	mu    sync.Mutex
	snaps [][]record.Record
	errs  []error
	ch    chan struct{}
}

func newCollector() *collector {
	return &collector{ch: make(chan struct{}, 16)}
}

func (c *collector) onSnapshot(recs []record.Record) {
	c.mu.Lock()
	c.snaps = append(c.snaps, recs)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *collector) onError(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
	c.ch <- struct{}{}
}

func (c *collector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
}

func (c *collector) last() []record.Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snaps[len(c.snaps)-1]
}

func TestSubscribeDeliversInitialAndChanges(t *testing.T) {
	db := testDB(t)
	clock(db, time.Now())
	addAll(t, db, papers, samplePapers()[:1])

	c := newCollector()
	unsub, err := db.Subscribe(context.Background(), feed.NewQuery("test", 2), c.onSnapshot, c.onError)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	c.wait(t)
	if got := c.last(); len(got) != 1 || got[0].Title != "Paper A" {
		t.Fatalf("unexpected initial snapshot: %+v", got)
	}

	addAll(t, db, papers, samplePapers()[1:2])
	c.wait(t)
	if got := c.last(); len(got) != 2 || got[0].Title != "Paper B" {
		t.Fatalf("unexpected snapshot after add: %+v", got)
	}

	// Bounded by the query limit.
	addAll(t, db, papers, samplePapers()[2:])
	c.wait(t)
	if got := c.last(); len(got) != 2 || got[0].Title != "Paper C" {
		t.Fatalf("unexpected bounded snapshot: %+v", got)
	}
}

func TestSubscribeIgnoresOtherCollections(t *testing.T) {
	db := testDB(t)
	c := newCollector()
	unsub, err := db.Subscribe(context.Background(), feed.NewQuery("test", 50), c.onSnapshot, c.onError)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()
	c.wait(t)

	addAll(t, db, "artifacts/other/public/data/papers", samplePapers()[:1])
	select {
	case <-c.ch:
		t.Fatal("unexpected snapshot for a foreign collection")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeRejectsAscending(t *testing.T) {
	db := testDB(t)
	q := feed.NewQuery("test", 50)
	q.Descending = false
	if _, err := db.Subscribe(context.Background(), q, func([]record.Record) {}, func(error) {}); err == nil {
		t.Error("expected ascending query to be rejected")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	db := testDB(t)
	c := newCollector()
	unsub, err := db.Subscribe(context.Background(), feed.NewQuery("test", 50), c.onSnapshot, c.onError)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	c.wait(t)
	unsub()
	unsub()

	addAll(t, db, papers, samplePapers()[:1])
	select {
	case <-c.ch:
		t.Fatal("snapshot delivered after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeAfterClose(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.Close()

	if _, err := db.Subscribe(context.Background(), feed.NewQuery("test", 50), func([]record.Record) {}, func(error) {}); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestStoreDrivesFeedAdapter(t *testing.T) {
	db := testDB(t)
	clock(db, time.Now())

	a := feed.NewAdapter(db, feed.NewQuery("test", 50), nil)
	if err := a.Start(context.Background(), "u1"); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer a.Stop()

	ev := <-a.Events()
	if ev.Err != nil || len(ev.Snapshot) != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", ev)
	}

	addAll(t, db, papers, samplePapers()[:2])
	var last feed.Event
	deadline := time.After(2 * time.Second)
	for len(last.Snapshot) < 2 {
		select {
		case last = <-a.Events():
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
	if last.Snapshot[0].Title != "Paper B" {
		t.Errorf("expected newest first, got %q", last.Snapshot[0].Title)
	}
}
