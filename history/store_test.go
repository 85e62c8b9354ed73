package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"newsgate/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "posts.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(id, newsItemID string, postedAt time.Time) repository.PostRecord {
	return repository.PostRecord{
		ID:         id,
		NewsItemID: newsItemID,
		Title:      "title " + newsItemID,
		Source:     "TestSource",
		PostedAt:   postedAt,
	}
}

func TestRecordAndWindow(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(record("p2", "n2", base.Add(2*time.Hour))))
	require.NoError(t, s.Record(record("p1", "n1", base)))
	require.NoError(t, s.Record(record("p3", "n3", base.Add(30*time.Hour))))

	posts, err := s.PostsInWindow(base, base.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "n1", posts[0].NewsItemID)
	assert.Equal(t, "n2", posts[1].NewsItemID)
	assert.True(t, posts[0].PostedAt.Before(posts[1].PostedAt))
}

func TestWindowOrderingWithFractionalSeconds(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	// A whole-second timestamp must sort before a fractional one in the
	// same second.
	require.NoError(t, s.Record(record("p2", "n2", base.Add(500*time.Millisecond))))
	require.NoError(t, s.Record(record("p1", "n1", base)))

	posts, err := s.PostsInWindow(base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "n1", posts[0].NewsItemID)
	assert.Equal(t, "n2", posts[1].NewsItemID)
}

func TestRecordDuplicateNewsItem(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()

	require.NoError(t, s.Record(record("p1", "n1", now)))

	err := s.Record(record("p2", "n1", now.Add(time.Hour)))
	var dup *repository.DuplicatePostError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "n1", dup.NewsItemID)

	// The failed record must not have been appended.
	posts, err := s.AllPosts()
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestLastPostTime(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.LastPostTime()
	require.NoError(t, err)
	assert.False(t, ok)

	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Record(record("p1", "n1", base)))
	require.NoError(t, s.Record(record("p2", "n2", base.Add(time.Hour))))

	last, ok, err := s.LastPostTime()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(base.Add(time.Hour)))
}

func TestIncrementEngagement(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	require.NoError(t, s.Record(record("p1", "n1", now)))

	require.NoError(t, s.IncrementEngagement("n1", 10, 2))
	require.NoError(t, s.IncrementEngagement("n1", 5, 0))

	posts, err := s.AllPosts()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(15), posts[0].Views)
	assert.Equal(t, int64(2), posts[0].Clicks)
}

func TestIncrementEngagementUnknownIDIsSilent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.IncrementEngagement("missing", 1, 1))
}

func TestDurabilityAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posts.db")

	s, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, s.Record(record("p1", "n1", now)))
	require.NoError(t, s.Close())

	reopened, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	defer reopened.Close()

	posts, err := reopened.AllPosts()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "n1", posts[0].NewsItemID)
}
