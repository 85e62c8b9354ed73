// Package dedup wraps the similarity index with the duplicate policy: an
// item is a duplicate of its nearest neighbor iff their cosine similarity
// reaches the configured threshold.
package dedup

import (
	"context"
	"fmt"

	"newsgate/repository"
)

// Result of a duplicate probe. MatchedID and Similarity are only
// meaningful when Duplicate is true.
type Result struct {
	Duplicate  bool
	MatchedID  string
	Similarity float32
}

type Detector struct {
	index     repository.SimilarityIndex
	threshold float32
}

// New builds a detector. A threshold of exactly 1.0 flags only
// bit-identical vectors; 0.0 makes every item a duplicate once the index
// is non-empty. Both are valid configurations.
func New(index repository.SimilarityIndex, threshold float32) *Detector {
	return &Detector{index: index, threshold: threshold}
}

// IsDuplicate probes the index read-only. Insertion is a separate step
// taken only after a successful publish, so rejected candidates never
// pollute the index.
func (d *Detector) IsDuplicate(ctx context.Context, item *repository.NewsItem) (Result, error) {
	neighbors, err := d.index.QueryNearest(ctx, item.Embedding, 1)
	if err != nil {
		return Result{}, fmt.Errorf("duplicate probe for %s: %w", item.ID, err)
	}
	if len(neighbors) == 0 {
		return Result{}, nil
	}

	nearest := neighbors[0]
	if nearest.Similarity >= d.threshold {
		return Result{Duplicate: true, MatchedID: nearest.ID, Similarity: nearest.Similarity}, nil
	}
	return Result{Similarity: nearest.Similarity}, nil
}
