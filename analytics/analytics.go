// Package analytics summarizes the post history: totals, engagement and
// trending topics over recent titles.
package analytics

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kljensen/snowball"

	"newsgate/repository"
)

type HistoryReader interface {
	AllPosts() ([]repository.PostRecord, error)
	PostsInWindow(start, end time.Time) ([]repository.PostRecord, error)
}

type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type Stats struct {
	TotalPosts  int           `json:"total_posts"`
	Today       int           `json:"today"`
	Week        int           `json:"week"`
	TotalViews  int64         `json:"total_views"`
	TotalClicks int64         `json:"total_clicks"`
	TopSources  []SourceCount `json:"top_sources"`
}

type Topic struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type Analyzer struct {
	history HistoryReader
	now     func() time.Time
}

func New(history HistoryReader) *Analyzer {
	return &Analyzer{history: history, now: time.Now}
}

func NewWithClock(history HistoryReader, now func() time.Time) *Analyzer {
	return &Analyzer{history: history, now: now}
}

// Stats aggregates the full history.
func (a *Analyzer) Stats() (Stats, error) {
	posts, err := a.history.AllPosts()
	if err != nil {
		return Stats{}, err
	}

	now := a.now()
	stats := Stats{TotalPosts: len(posts)}
	sources := make(map[string]int)

	for _, p := range posts {
		stats.TotalViews += p.Views
		stats.TotalClicks += p.Clicks
		if p.PostedAt.After(now.Add(-24 * time.Hour)) {
			stats.Today++
		}
		if p.PostedAt.After(now.Add(-7 * 24 * time.Hour)) {
			stats.Week++
		}
		sources[p.Source]++
	}

	for src, n := range sources {
		stats.TopSources = append(stats.TopSources, SourceCount{Source: src, Count: n})
	}
	sort.Slice(stats.TopSources, func(i, j int) bool {
		if stats.TopSources[i].Count != stats.TopSources[j].Count {
			return stats.TopSources[i].Count > stats.TopSources[j].Count
		}
		return stats.TopSources[i].Source < stats.TopSources[j].Source
	})
	if len(stats.TopSources) > 3 {
		stats.TopSources = stats.TopSources[:3]
	}

	return stats, nil
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

var stopWords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"will": true, "been": true, "were": true, "your": true, "their": true,
	"they": true, "them": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "after": true, "before": true, "about": true,
	"into": true, "over": true, "more": true, "most": true, "some": true,
	"than": true, "then": true, "here": true, "there": true, "just": true,
	"says": true, "said": true,
}

// TrendingTopics counts stemmed words across recent post titles and
// returns the topK most frequent, each reported by the first surface form
// seen for its stem.
func (a *Analyzer) TrendingTopics(hours int, topK int) ([]Topic, error) {
	now := a.now()
	posts, err := a.history.PostsInWindow(now.Add(-time.Duration(hours)*time.Hour), now)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	surface := make(map[string]string)

	for _, p := range posts {
		title := nonWord.ReplaceAllString(strings.ToLower(p.Title), " ")
		for _, word := range strings.Fields(title) {
			if len(word) <= 3 || stopWords[word] {
				continue
			}
			stem, err := snowball.Stem(word, "english", true)
			if err != nil || stem == "" {
				stem = word
			}
			if _, seen := surface[stem]; !seen {
				surface[stem] = word
			}
			counts[stem]++
		}
	}

	topics := make([]Topic, 0, len(counts))
	for stem, n := range counts {
		topics = append(topics, Topic{Word: surface[stem], Count: n})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].Count != topics[j].Count {
			return topics[i].Count > topics[j].Count
		}
		return topics[i].Word < topics[j].Word
	})
	if len(topics) > topK {
		topics = topics[:topK]
	}
	return topics, nil
}
