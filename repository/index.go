package repository

import "context"

// Neighbor is a single nearest-neighbor result from a similarity query.
type Neighbor struct {
	ID         string
	Similarity float32
}

// SimilarityIndex is a persistent nearest-neighbor store over item
// embeddings. The gatekeeper is the only writer.
type SimilarityIndex interface {
	// Insert adds an entry. It is idempotent: inserting an id that is
	// already present is a no-op, so a crash between insert and the
	// history append can be retried safely. Returns a
	// *DimensionMismatchError when the vector dimension is wrong.
	Insert(ctx context.Context, id string, embedding []float32) error

	// QueryNearest returns up to k entries ordered by cosine similarity,
	// highest first. An empty index yields an empty slice.
	QueryNearest(ctx context.Context, embedding []float32, k int) ([]Neighbor, error)

	// Load reads the durable snapshot, if any.
	Load(ctx context.Context) error

	// Persist flushes the index to durable storage. A crash mid-write
	// must leave the previous snapshot intact.
	Persist(ctx context.Context) error
}
