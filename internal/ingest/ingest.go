// Package ingest pulls paper abstracts from RSS/Atom feeds and files each one
// through the submission pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/config"
	"github.com/Winz-the-Pu/CM3070-FYP-WiniSorts/internal/submit"
)

// MaxAbstract bounds how much of an entry's description is kept.
const MaxAbstract = 4000

// Item is one feed entry that looks like a paper.
type Item struct {
	Source    string
	Title     string
	Link      string
	Abstract  string
	Published time.Time
}

type Fetcher interface {
	Fetch(ctx context.Context, source config.Source) ([]Item, error)
}

type RSSFetcher struct {
	parser *gofeed.Parser
	maxAge time.Duration
	now    func() time.Time
}

// NewRSSFetcher returns a fetcher that drops entries older than maxAge. A
// zero maxAge keeps everything.
func NewRSSFetcher(maxAge time.Duration) *RSSFetcher {
	return &RSSFetcher{parser: gofeed.NewParser(), maxAge: maxAge, now: time.Now}
}

func (f *RSSFetcher) Fetch(ctx context.Context, source config.Source) ([]Item, error) {
	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", source.Name, err)
	}
	return f.items(source, feed), nil
}

func (f *RSSFetcher) items(source config.Source, feed *gofeed.Feed) []Item {
	now := f.now()
	out := make([]Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		pub := now
		if it.PublishedParsed != nil {
			pub = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			pub = *it.UpdatedParsed
		}
		if f.maxAge > 0 && pub.Before(now.Add(-f.maxAge)) {
			continue
		}

		desc := it.Description
		if desc == "" {
			desc = it.Content
		}
		abstract := truncate(cleanAbstract(stripHTML(desc)), MaxAbstract)
		if abstract == "" {
			continue
		}

		out = append(out, Item{
			Source:    source.Name,
			Title:     strings.Join(strings.Fields(it.Title), " "),
			Link:      strings.TrimSpace(it.Link),
			Abstract:  abstract,
			Published: pub,
		})
	}
	return out
}

// cleanAbstract drops the announcement preamble some preprint feeds put in
// front of the abstract text.
func cleanAbstract(s string) string {
	if i := strings.Index(s, "Abstract:"); i >= 0 {
		s = s[i+len("Abstract:"):]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

type FetchResult struct {
	Items  []Item
	Errors []error
}

// FetchAll fetches every source concurrently. A failing source is reported in
// Errors and does not stop the others.
func FetchAll(ctx context.Context, f Fetcher, sources []config.Source) FetchResult {
	var (
		mu     sync.Mutex
		result FetchResult
		wg     sync.WaitGroup
	)

	for _, src := range sources {
		wg.Add(1)
		go func(s config.Source) {
			defer wg.Done()
			items, err := f.Fetch(ctx, s)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, err)
				return
			}
			result.Items = append(result.Items, items...)
		}(src)
	}

	wg.Wait()
	return result
}

// LinkChecker is implemented by stores that can tell whether a link was
// already imported.
type LinkChecker interface {
	HasLink(ctx context.Context, collection, link string) (bool, error)
}

type Report struct {
	Imported int
	Skipped  int
	Failed   int
	Errors   []error
}

// Importer classifies and stores feed items one at a time, paced so a burst
// of entries does not flood the classifier.
type Importer struct {
	pipeline   *submit.Pipeline
	seen       LinkChecker
	collection string
	userID     string
	limiter    *rate.Limiter
	log        *zap.Logger
}

// NewImporter files items as userID. seen may be nil, in which case every
// item is submitted. perSecond <= 0 disables pacing.
func NewImporter(p *submit.Pipeline, seen LinkChecker, collection, userID string, perSecond float64, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &Importer{
		pipeline:   p,
		seen:       seen,
		collection: collection,
		userID:     userID,
		limiter:    rate.NewLimiter(limit, 1),
		log:        log.Named("ingest"),
	}
}

// Import submits items in order. It stops early only when ctx ends; other
// failures are counted and collected in the report.
func (im *Importer) Import(ctx context.Context, items []Item) (Report, error) {
	var rep Report
	for _, it := range items {
		if im.seen != nil && it.Link != "" {
			dup, err := im.seen.HasLink(ctx, im.collection, it.Link)
			if err != nil {
				return rep, fmt.Errorf("checking %s: %w", it.Link, err)
			}
			if dup {
				rep.Skipped++
				continue
			}
		}

		if err := im.limiter.Wait(ctx); err != nil {
			return rep, err
		}

		form := submit.Form{Title: it.Title, Abstract: it.Abstract, Link: it.Link}
		res, err := im.pipeline.Submit(ctx, im.userID, &form)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return rep, err
			}
			if errors.Is(err, submit.ErrEmptyInput) {
				rep.Skipped++
				continue
			}
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Errorf("%s: %w", it.Title, err))
			im.log.Warn("import failed", zap.String("link", it.Link), zap.Error(err))
			continue
		}
		rep.Imported++
		im.log.Info("imported",
			zap.String("id", res.ID),
			zap.String("source", it.Source),
			zap.String("discipline", res.Record.Discipline))
	}
	return rep, nil
}
