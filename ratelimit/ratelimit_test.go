package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsgate/config"
	"newsgate/repository"
)

// fakeHistory is an in-memory HistoryReader for limiter tests.
type fakeHistory struct {
	postedAt []time.Time
}

func (f *fakeHistory) PostsInWindow(start, end time.Time) ([]repository.PostRecord, error) {
	var out []repository.PostRecord
	for _, ts := range f.postedAt {
		if !ts.Before(start) && !ts.After(end) {
			out = append(out, repository.PostRecord{ID: "p", NewsItemID: "n", PostedAt: ts})
		}
	}
	return out, nil
}

func (f *fakeHistory) LastPostTime() (time.Time, bool, error) {
	if len(f.postedAt) == 0 {
		return time.Time{}, false, nil
	}
	last := f.postedAt[0]
	for _, ts := range f.postedAt[1:] {
		if ts.After(last) {
			last = ts
		}
	}
	return last, true, nil
}

func settings(maxPerDay, intervalMin int, enabled bool) config.Settings {
	return config.Settings{
		MaxPostsPerDay:      maxPerDay,
		MinIntervalMinutes:  intervalMin,
		SimilarityThreshold: 0.85,
		Enabled:             enabled,
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestDisabled(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	l := NewWithClock(&fakeHistory{}, settings(10, 60, false), fixedClock(now))

	allowed, reason, err := l.CanPostNow()
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, ReasonDisabled, reason)
}

func TestEmptyHistoryAllows(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	l := NewWithClock(&fakeHistory{}, settings(2, 60, true), fixedClock(now))

	allowed, reason, err := l.CanPostNow()
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, ReasonOK, reason)
}

func TestDailyLimit(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	hist := &fakeHistory{postedAt: []time.Time{
		now.Add(-3 * time.Hour),
		now.Add(-2 * time.Hour),
	}}
	l := NewWithClock(hist, settings(2, 0, true), fixedClock(now))

	allowed, reason, err := l.CanPostNow()
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, ReasonDailyLimit, reason)
}

func TestDailyLimitAgesOut(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	hist := &fakeHistory{postedAt: []time.Time{
		now.Add(-25 * time.Hour), // outside the rolling window
		now.Add(-2 * time.Hour),
	}}
	l := NewWithClock(hist, settings(2, 0, true), fixedClock(now))

	allowed, reason, err := l.CanPostNow()
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, ReasonOK, reason)
}

func TestDailyLimitZeroBlocksEverything(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	l := NewWithClock(&fakeHistory{}, settings(0, 0, true), fixedClock(now))

	allowed, reason, err := l.CanPostNow()
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, ReasonDailyLimit, reason)
}

func TestIntervalBoundary(t *testing.T) {
	postT := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	hist := &fakeHistory{postedAt: []time.Time{postT}}

	testCases := []struct {
		name    string
		now     time.Time
		allowed bool
		reason  string
	}{
		{"At59Minutes", postT.Add(59 * time.Minute), false, ReasonInterval},
		{"At60Minutes", postT.Add(60 * time.Minute), true, ReasonOK},
		{"At61Minutes", postT.Add(61 * time.Minute), true, ReasonOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l := NewWithClock(hist, settings(10, 60, true), fixedClock(tc.now))
			allowed, reason, err := l.CanPostNow()
			require.NoError(t, err)
			assert.Equal(t, tc.allowed, allowed)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestZeroIntervalSkipsIntervalCheck(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	hist := &fakeHistory{postedAt: []time.Time{now.Add(-time.Second)}}
	l := NewWithClock(hist, settings(10, 0, true), fixedClock(now))

	allowed, reason, err := l.CanPostNow()
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, ReasonOK, reason)
}

func TestDailyLimitCheckedBeforeInterval(t *testing.T) {
	// Both conditions trip at once; the daily limit wins by check order.
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	hist := &fakeHistory{postedAt: []time.Time{
		now.Add(-30 * time.Minute),
		now.Add(-10 * time.Minute),
	}}
	l := NewWithClock(hist, settings(2, 60, true), fixedClock(now))

	allowed, reason, err := l.CanPostNow()
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, ReasonDailyLimit, reason)
}
