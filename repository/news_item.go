package repository

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// NewsItem is a candidate article produced by ingestion. It lives only for
// the duration of a single run; only its id, embedding and post metadata
// survive in the durable stores.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	Embedding   []float32 `json:"-"`
}

// NewsItemID derives a stable content hash from the normalized title,
// source and publication date. The same article seen on two different runs
// maps to the same id.
func NewsItemID(title, source string, publishedAt time.Time) string {
	norm := strings.ToLower(strings.Join(strings.Fields(title), " "))
	key := fmt.Sprintf("%s|%s|%s", norm, strings.ToLower(source), publishedAt.UTC().Format("2006-01-02"))
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h[:16])
}

// EmbedText returns the text fed to the embedding provider.
func (n *NewsItem) EmbedText() string {
	if n.Description == "" {
		return n.Title
	}
	return n.Title + " " + n.Description
}
