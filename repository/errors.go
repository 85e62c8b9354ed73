package repository

import "fmt"

// DimensionMismatchError reports an embedding whose dimensionality does not
// match the index.
type DimensionMismatchError struct {
	ID   string
	Got  int
	Want int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch for %q: got %d, want %d", e.ID, e.Got, e.Want)
}

// DuplicatePostError reports an attempt to record a news item that is
// already in the history store. This indicates a logic error upstream, not
// a retryable condition.
type DuplicatePostError struct {
	NewsItemID string
}

func (e *DuplicatePostError) Error() string {
	return fmt.Sprintf("news item %q already recorded in post history", e.NewsItemID)
}
