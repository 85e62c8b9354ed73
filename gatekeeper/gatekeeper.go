// Package gatekeeper decides, per candidate item, whether publication is
// admitted: duplicate check first, then rate limit, re-evaluated
// immediately before every individual publish.
package gatekeeper

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"newsgate/dedup"
	"newsgate/history"
	"newsgate/ratelimit"
	"newsgate/repository"
)

// Publisher delivers one formatted post to the outside world. Idempotency
// is the publisher's own concern; the gatekeeper treats each call as
// at-most-once.
type Publisher interface {
	Publish(ctx context.Context, text, url string) error
}

// Candidate is a ranked, publish-ready item produced by the external
// formatter.
type Candidate struct {
	Item repository.NewsItem
	Text string
}

// FormatFunc ranks the surviving candidates and produces publish-ready
// text. A failure degrades to "no candidates this run".
type FormatFunc func(ctx context.Context, items []repository.NewsItem) ([]Candidate, error)

type Rejection struct {
	ItemID     string  `json:"item_id"`
	Title      string  `json:"title"`
	Reason     string  `json:"reason"`
	MatchedID  string  `json:"matched_id,omitempty"`
	Similarity float32 `json:"similarity,omitempty"`
}

// Summary is reported for every run, regardless of partial failures.
type Summary struct {
	Considered  int         `json:"considered"`
	Duplicates  int         `json:"duplicates"`
	RateLimited int         `json:"rate_limited"`
	Published   int         `json:"published"`
	Errors      int         `json:"errors"`
	Rejections  []Rejection `json:"rejections,omitempty"`
}

type Gatekeeper struct {
	detector  *dedup.Detector
	limiter   *ratelimit.Limiter
	history   *history.Store
	index     repository.SimilarityIndex
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func New(
	detector *dedup.Detector,
	limiter *ratelimit.Limiter,
	hist *history.Store,
	index repository.SimilarityIndex,
	publisher Publisher,
	logger *zap.Logger,
) *Gatekeeper {
	return &Gatekeeper{
		detector:  detector,
		limiter:   limiter,
		history:   hist,
		index:     index,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock injects a clock for tests.
func (g *Gatekeeper) WithClock(now func() time.Time) *Gatekeeper {
	g.now = now
	return g
}

// Run processes one batch of candidate items in the externally supplied
// order: duplicate prefilter, external format/rank, then the admit loop.
// The returned Summary is valid even when err is non-nil; a non-nil err
// means the run must not be reported as successful.
func (g *Gatekeeper) Run(ctx context.Context, items []repository.NewsItem, format FormatFunc) (Summary, error) {
	summary := Summary{Considered: len(items)}

	unique := make([]repository.NewsItem, 0, len(items))
	for i := range items {
		item := &items[i]
		res, err := g.detector.IsDuplicate(ctx, item)
		if err != nil {
			g.logger.Error("duplicate check failed, skipping item",
				zap.String("item_id", item.ID), zap.Error(err))
			summary.Errors++
			continue
		}
		if res.Duplicate {
			g.reject(&summary, item, "duplicate", res)
			continue
		}
		unique = append(unique, *item)
	}

	if len(unique) == 0 {
		return summary, g.index.Persist(ctx)
	}

	candidates, err := format(ctx, unique)
	if err != nil {
		g.logger.Warn("formatter failed, no candidates this run", zap.Error(err))
		candidates = nil
	}

	for _, cand := range candidates {
		if err := g.admit(ctx, cand, &summary); err != nil {
			return summary, err
		}
	}

	return summary, g.index.Persist(ctx)
}

// admit publishes one candidate if both gates pass. Errors returned from
// here are fatal to the run (persistence failures); everything else is
// per-item and absorbed into the summary.
func (g *Gatekeeper) admit(ctx context.Context, cand Candidate, summary *Summary) error {
	item := cand.Item

	// Re-probe: an item published earlier in this run may have turned
	// this one into a duplicate.
	res, err := g.detector.IsDuplicate(ctx, &item)
	if err != nil {
		g.logger.Error("duplicate re-check failed, skipping item",
			zap.String("item_id", item.ID), zap.Error(err))
		summary.Errors++
		return nil
	}
	if res.Duplicate {
		g.reject(summary, &item, "duplicate", res)
		return nil
	}

	// Never cached: earlier publishes in this run change the answer.
	allowed, reason, err := g.limiter.CanPostNow()
	if err != nil {
		return err
	}
	if !allowed {
		g.reject(summary, &item, reason, dedup.Result{})
		return nil
	}

	// External publish strictly before any store mutation: a failure
	// here must leave both stores unchanged so the item can be retried
	// next run without being flagged as a duplicate of itself.
	if err := g.publisher.Publish(ctx, cand.Text, item.URL); err != nil {
		g.logger.Error("publish failed, stores untouched",
			zap.String("item_id", item.ID), zap.Error(err))
		summary.Errors++
		return nil
	}

	rec := repository.PostRecord{
		ID:         uuid.NewString(),
		NewsItemID: item.ID,
		Title:      item.Title,
		URL:        item.URL,
		Source:     item.Source,
		PostedAt:   g.now(),
	}
	if err := g.history.Record(rec); err != nil {
		var dup *repository.DuplicatePostError
		if errors.As(err, &dup) {
			g.logger.Error("post already recorded, invariant violation upstream",
				zap.String("news_item_id", dup.NewsItemID))
			summary.Errors++
			return nil
		}
		return err
	}

	if err := g.index.Insert(ctx, item.ID, item.Embedding); err != nil {
		var dim *repository.DimensionMismatchError
		if errors.As(err, &dim) {
			g.logger.Error("index insert rejected item",
				zap.String("item_id", item.ID), zap.Error(err))
			summary.Errors++
			return nil
		}
		return err
	}
	if err := g.index.Persist(ctx); err != nil {
		return err
	}

	summary.Published++
	g.logger.Info("published",
		zap.String("item_id", item.ID),
		zap.String("title", item.Title),
		zap.String("source", item.Source))
	return nil
}

func (g *Gatekeeper) reject(summary *Summary, item *repository.NewsItem, reason string, res dedup.Result) {
	rej := Rejection{ItemID: item.ID, Title: item.Title, Reason: reason}
	if reason == "duplicate" {
		rej.MatchedID = res.MatchedID
		rej.Similarity = res.Similarity
		summary.Duplicates++
	} else {
		summary.RateLimited++
	}
	summary.Rejections = append(summary.Rejections, rej)

	g.logger.Info("rejected",
		zap.String("item_id", item.ID),
		zap.String("title", item.Title),
		zap.String("reason", reason),
		zap.String("matched_id", rej.MatchedID),
		zap.Float32("similarity", rej.Similarity))
}
