package repository

import "time"

// PostRecord is one published item in the history store. Append-only:
// records are never deleted, only the engagement counters mutate after the
// fact.
type PostRecord struct {
	ID         string    `json:"id"`
	NewsItemID string    `json:"news_item_id"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Source     string    `json:"source"`
	PostedAt   time.Time `json:"posted_at"`
	Views      int64     `json:"views"`
	Clicks     int64     `json:"clicks"`
}
