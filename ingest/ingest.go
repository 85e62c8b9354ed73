// Package ingest pulls candidate items out of RSS/Atom feeds. One broken
// source never aborts the others.
package ingest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"newsgate/config"
	"newsgate/repository"
)

const maxDescriptionRunes = 300

type Fetcher struct {
	parser *gofeed.Parser
	logger *zap.Logger
}

func NewFetcher(logger *zap.Logger) *Fetcher {
	return &Fetcher{parser: gofeed.NewParser(), logger: logger}
}

// Fetch parses one source and keeps items published after cutoff. Items
// without a parseable timestamp are assumed fresh.
func (f *Fetcher) Fetch(ctx context.Context, source config.Source, cutoff time.Time) ([]repository.NewsItem, error) {
	feed, err := f.parser.ParseURLWithContext(source.URL, ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items := make([]repository.NewsItem, 0, len(feed.Items))
	for _, entry := range feed.Items {
		pub := now
		if entry.PublishedParsed != nil {
			pub = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			pub = *entry.UpdatedParsed
		}
		if pub.Before(cutoff) {
			continue
		}

		desc := entry.Description
		if desc == "" {
			desc = entry.Content
		}
		desc = truncate(stripHTML(desc), maxDescriptionRunes)

		items = append(items, repository.NewsItem{
			ID:          repository.NewsItemID(entry.Title, source.Name, pub),
			Title:       strings.TrimSpace(entry.Title),
			Description: desc,
			URL:         entry.Link,
			Source:      source.Name,
			Category:    source.Category,
			PublishedAt: pub,
		})
	}
	return items, nil
}

// FetchAll fans out over all sources and collects per-source errors
// alongside whatever succeeded.
func (f *Fetcher) FetchAll(ctx context.Context, sources []config.Source, lookback time.Duration) []repository.NewsItem {
	cutoff := time.Now().Add(-lookback)

	var (
		mu    sync.Mutex
		items []repository.NewsItem
		wg    sync.WaitGroup
	)

	for _, src := range sources {
		wg.Add(1)
		go func(s config.Source) {
			defer wg.Done()
			fetched, err := f.Fetch(ctx, s, cutoff)
			if err != nil {
				f.logger.Warn("source fetch failed",
					zap.String("source", s.Name), zap.Error(err))
				return
			}
			f.logger.Info("source fetched",
				zap.String("source", s.Name), zap.Int("items", len(fetched)))
			mu.Lock()
			items = append(items, fetched...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	return items
}

// stripHTML renders RSS description markup down to plain text.
func stripHTML(s string) string {
	if !strings.ContainsRune(s, '<') {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
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
