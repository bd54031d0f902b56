// Package store persists classified papers in sqlite and notifies
// subscribers whenever a collection changes.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/record"
)

var ErrClosed = errors.New("store closed")

type Store struct {
	readDB  *sql.DB
	writeDB *sql.DB
	path    string
	log     *zap.Logger
	now     func() time.Time

	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	closed bool
}

func Open(dbPath string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating store dir: %w", err)
	}

	writeDB, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening write db: %w", err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite", "file:"+dbPath+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("opening read db: %w", err)
	}

	s := &Store{
		readDB:  readDB,
		writeDB: writeDB,
		path:    dbPath,
		log:     log.Named("store"),
		now:     time.Now,
		subs:    make(map[uint64]*subscriber),
	}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init() error {
	_, err := s.writeDB.Exec(`
		CREATE TABLE IF NOT EXISTS records (
			id           TEXT PRIMARY KEY,
			collection   TEXT NOT NULL,
			title        TEXT NOT NULL,
			discipline   TEXT NOT NULL DEFAULT '',
			methodology  TEXT NOT NULL DEFAULT '',
			categories   TEXT NOT NULL DEFAULT '[]',
			abstract     TEXT NOT NULL,
			submitted_by TEXT NOT NULL,
			link         TEXT NOT NULL DEFAULT '',
			created_at   INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_records_created ON records(collection, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_records_link ON records(collection, link);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Path is the database file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Close ends every subscription and releases both connections. Feed adapters
// reading from the store must be stopped first.
func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	subs := make([]*subscriber, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}

	var errs []error
	if s.readDB != nil {
		errs = append(errs, s.readDB.Close())
	}
	if s.writeDB != nil {
		errs = append(errs, s.writeDB.Close())
	}
	return errors.Join(errs...)
}

// AddRecord inserts r into collection under a fresh id. The creation time is
// always stamped here; any value on r is ignored.
func (s *Store) AddRecord(ctx context.Context, collection string, r record.Record) (string, error) {
	if strings.TrimSpace(collection) == "" {
		return "", errors.New("collection path is required")
	}
	cats, err := json.Marshal(record.Normalize(r.Categories))
	if err != nil {
		return "", fmt.Errorf("encoding categories: %w", err)
	}

	id := uuid.NewString()
	created := s.now().UTC()
	_, err = s.writeDB.ExecContext(ctx, `
		INSERT INTO records (id, collection, title, discipline, methodology, categories, abstract, submitted_by, link, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, collection, r.Title, r.Discipline, r.Methodology, string(cats), r.Abstract, r.SubmittedBy, r.Link, created.UnixNano())
	if err != nil {
		return "", fmt.Errorf("inserting record: %w", err)
	}

	s.log.Debug("record added", zap.String("id", id), zap.String("collection", collection))
	s.notify(collection)
	return id, nil
}

// Latest returns up to limit records of collection, newest first.
func (s *Store) Latest(ctx context.Context, collection string, limit int) ([]record.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.readDB.QueryContext(ctx, `
		SELECT id, title, discipline, methodology, categories, abstract, submitted_by, link, created_at
		FROM records
		WHERE collection = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	out := make([]record.Record, 0, limit)
	for rows.Next() {
		var (
			r       record.Record
			cats    string
			created int64
		)
		if err := rows.Scan(&r.ID, &r.Title, &r.Discipline, &r.Methodology, &cats, &r.Abstract, &r.SubmittedBy, &r.Link, &created); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if err := json.Unmarshal([]byte(cats), &r.Categories); err != nil {
			return nil, fmt.Errorf("decoding categories of %s: %w", r.ID, err)
		}
		r.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// HasLink reports whether collection already holds a record imported from link.
func (s *Store) HasLink(ctx context.Context, collection, link string) (bool, error) {
	if link == "" {
		return false, nil
	}
	var n int
	err := s.readDB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM records WHERE collection = ? AND link = ?", collection, link).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("looking up link: %w", err)
	}
	return n > 0, nil
}

// Prune deletes records older than retention and returns how many went.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).UnixNano()
	res, err := s.writeDB.ExecContext(ctx, "DELETE FROM records WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.notifyAll()
	}
	return n, nil
}

type Stats struct {
	Records     int
	Collections int
	SizeBytes   int64
	LastImport  time.Time
}

func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.readDB.QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT collection) FROM records").Scan(&st.Records, &st.Collections)
	if err != nil {
		return Stats{}, fmt.Errorf("counting records: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		st.SizeBytes = info.Size()
	}
	if v, err := s.meta(ctx, "last_import"); err == nil {
		st.LastImport, _ = time.Parse(time.RFC3339, v)
	}
	return st, nil
}

func (s *Store) SetLastImport(ctx context.Context) error {
	return s.setMeta(ctx, "last_import", s.now().UTC().Format(time.RFC3339))
}

func (s *Store) meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.readDB.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	return value, err
}

func (s *Store) setMeta(ctx context.Context, key, value string) error {
	_, err := s.writeDB.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
