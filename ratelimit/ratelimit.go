// Package ratelimit decides whether a publish is admissible right now. It
// is a pure predicate over the history store and the settings, recomputed
// from scratch on every call: posts published earlier in the same run
// change the answer for later candidates, so the result is never cached.
package ratelimit

import (
	"time"

	"newsgate/config"
	"newsgate/repository"
)

// Decision reasons, stable strings for run summaries and the API.
const (
	ReasonOK         = "ok"
	ReasonDisabled   = "disabled"
	ReasonDailyLimit = "daily_limit"
	ReasonInterval   = "interval"
)

// HistoryReader is the slice of the history store the limiter needs.
type HistoryReader interface {
	PostsInWindow(start, end time.Time) ([]repository.PostRecord, error)
	LastPostTime() (time.Time, bool, error)
}

type Limiter struct {
	history  HistoryReader
	settings config.Settings
	now      func() time.Time
}

func New(history HistoryReader, settings config.Settings) *Limiter {
	return &Limiter{history: history, settings: settings, now: time.Now}
}

// NewWithClock injects a clock for tests.
func NewWithClock(history HistoryReader, settings config.Settings, now func() time.Time) *Limiter {
	return &Limiter{history: history, settings: settings, now: now}
}

// CanPostNow evaluates, in order: enabled flag, rolling 24h daily limit,
// minimum interval since the last post. The daily limit is checked before
// the interval.
func (l *Limiter) CanPostNow() (bool, string, error) {
	if !l.settings.Enabled {
		return false, ReasonDisabled, nil
	}

	now := l.now()

	recent, err := l.history.PostsInWindow(now.Add(-24*time.Hour), now)
	if err != nil {
		return false, "", err
	}
	if len(recent) >= l.settings.MaxPostsPerDay {
		return false, ReasonDailyLimit, nil
	}

	if l.settings.MinIntervalMinutes > 0 {
		last, ok, err := l.history.LastPostTime()
		if err != nil {
			return false, "", err
		}
		if ok && now.Sub(last) < l.settings.MinInterval() {
			return false, ReasonInterval, nil
		}
	}

	return true, ReasonOK, nil
}
