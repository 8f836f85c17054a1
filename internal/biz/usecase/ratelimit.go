package usecase

import (
	"sync"
	"time"
)

const (
	// DefaultRateLimit is the number of answered requests allowed per chat per window
	DefaultRateLimit = 100

	defaultRateWindow = time.Hour
)

// RateLimiter enforces a per-chat sliding-window limit on model calls.
//
// It keeps the accepted request instants of each chat inside the window and
// prunes stale ones on every check. Rejected requests are not recorded.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	counters map[string][]time.Time // chatID → accepted instants in window
}

// NewRateLimiter returns a limiter allowing limit requests per chat per window.
// Non-positive values fall back to 100 per hour.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = defaultRateWindow
	}
	return &RateLimiter{
		limit:    limit,
		window:   window,
		counters: make(map[string][]time.Time),
	}
}

// prune drops instants at or before now-window; callers hold mu
func (r *RateLimiter) prune(chatID string, now time.Time) []time.Time {
	cutoff := now.Add(-r.window)
	existing := r.counters[chatID]
	valid := existing[:0]
	for _, t := range existing {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	return valid
}

// CheckAndRecord returns true and records now when the chat is under its limit
func (r *RateLimiter) CheckAndRecord(chatID string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	valid := r.prune(chatID, now)
	if len(valid) >= r.limit {
		r.counters[chatID] = valid
		return false
	}

	r.counters[chatID] = append(valid, now)
	return true
}

// Remaining returns how many more requests the chat may make at now
func (r *RateLimiter) Remaining(chatID string, now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	valid := r.prune(chatID, now)
	if len(valid) == 0 {
		delete(r.counters, chatID)
	} else {
		r.counters[chatID] = valid
	}
	if rem := r.limit - len(valid); rem > 0 {
		return rem
	}
	return 0
}

// Sweep forgets chats with no instants left in the window and returns how many were dropped
func (r *RateLimiter) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for chatID := range r.counters {
		if valid := r.prune(chatID, now); len(valid) == 0 {
			delete(r.counters, chatID)
			dropped++
		} else {
			r.counters[chatID] = valid
		}
	}
	return dropped
}

// Limit returns the configured per-window ceiling
func (r *RateLimiter) Limit() int {
	return r.limit
}
