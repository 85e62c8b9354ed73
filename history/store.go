// Package history is the durable log of published items. Records are
// append-only; only the engagement counters are updated after the fact.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"newsgate/repository"
)

var (
	postsBucket   = []byte("posts")
	postIDsBucket = []byte("post_ids")
)

type Store struct {
	db     *bolt.DB
	logger *zap.Logger
}

// Open opens (or creates) the history database and its buckets.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for history store: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(postsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(postIDsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history buckets: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// keyLayout is fixed-width so lexicographic bucket order matches
// chronological order (RFC3339Nano trims trailing zeros and does not).
const keyLayout = "2006-01-02T15:04:05.000000000Z"

// postKey orders records chronologically in the bucket; the record id
// breaks ties for posts in the same nanosecond.
func postKey(postedAt time.Time, recordID string) []byte {
	return []byte(postedAt.UTC().Format(keyLayout) + "|" + recordID)
}

// Record appends a PostRecord. A news item that is already recorded is a
// programming invariant violation upstream and yields a
// *repository.DuplicatePostError.
func (s *Store) Record(rec repository.PostRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode post record: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		ids := tx.Bucket(postIDsBucket)
		if ids.Get([]byte(rec.NewsItemID)) != nil {
			return &repository.DuplicatePostError{NewsItemID: rec.NewsItemID}
		}

		key := postKey(rec.PostedAt, rec.ID)
		if err := tx.Bucket(postsBucket).Put(key, data); err != nil {
			return err
		}
		return ids.Put([]byte(rec.NewsItemID), key)
	})
}

// PostsInWindow returns records with start <= PostedAt <= end, ascending
// by PostedAt. The end bound is inclusive so that a post made at the very
// instant a window closes still counts against it.
func (s *Store) PostsInWindow(start, end time.Time) ([]repository.PostRecord, error) {
	var out []repository.PostRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(postsBucket).Cursor()
		min := postKey(start, "")
		for k, v := c.Seek(min); k != nil; k, v = c.Next() {
			var rec repository.PostRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt post record %q: %w", k, err)
			}
			if rec.PostedAt.After(end) {
				break
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// LastPostTime returns the PostedAt of the most recent record; ok is false
// when the store is empty.
func (s *Store) LastPostTime() (time.Time, bool, error) {
	var (
		last time.Time
		ok   bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(postsBucket).Cursor()
		k, v := c.Last()
		if k == nil {
			return nil
		}
		var rec repository.PostRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			return fmt.Errorf("corrupt post record %q: %w", k, err)
		}
		last = rec.PostedAt
		ok = true
		return nil
	})
	return last, ok, err
}

// AllPosts returns every record, ascending by PostedAt.
func (s *Store) AllPosts() ([]repository.PostRecord, error) {
	var out []repository.PostRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(postsBucket).ForEach(func(k, v []byte) error {
			var rec repository.PostRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("corrupt post record %q: %w", k, err)
			}
			out = append(out, rec)
			return nil
		})
	})
	return out, err
}

// IncrementEngagement bumps the view/click counters for a published item.
// Engagement updates come from an asynchronous, less-trusted source, so an
// unknown id is logged and swallowed rather than surfaced.
func (s *Store) IncrementEngagement(newsItemID string, viewsDelta, clicksDelta int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		key := tx.Bucket(postIDsBucket).Get([]byte(newsItemID))
		if key == nil {
			s.logger.Warn("engagement update for unknown news item",
				zap.String("news_item_id", newsItemID))
			return nil
		}

		posts := tx.Bucket(postsBucket)
		var rec repository.PostRecord
		if err := json.Unmarshal(posts.Get(key), &rec); err != nil {
			return fmt.Errorf("corrupt post record %q: %w", key, err)
		}
		rec.Views += viewsDelta
		rec.Clicks += clicksDelta

		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return posts.Put(key, data)
	})
}
