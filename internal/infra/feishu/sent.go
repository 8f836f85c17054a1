package feishu

import (
	"sync"
	"time"
)

// sentTracker remembers IDs of messages the bot sent so replies to them can be recognized
type sentTracker struct {
	mu  sync.Mutex
	ids map[string]time.Time
	ttl time.Duration
	max int
}

func newSentTracker(ttl time.Duration, max int) *sentTracker {
	return &sentTracker{
		ids: make(map[string]time.Time),
		ttl: ttl,
		max: max,
	}
}

// Add records a sent message ID, evicting expired entries when full
func (t *sentTracker) Add(id string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.ids) >= t.max {
		t.evict(now)
	}
	t.ids[id] = now
}

// Contains reports whether id was sent within the TTL
func (t *sentTracker) Contains(id string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	at, ok := t.ids[id]
	return ok && now.Sub(at) < t.ttl
}

// evict drops expired entries; if none expired, the oldest entry goes
func (t *sentTracker) evict(now time.Time) {
	var oldestID string
	var oldest time.Time
	for id, at := range t.ids {
		if now.Sub(at) >= t.ttl {
			delete(t.ids, id)
			continue
		}
		if oldestID == "" || at.Before(oldest) {
			oldestID, oldest = id, at
		}
	}
	if len(t.ids) >= t.max && oldestID != "" {
		delete(t.ids, oldestID)
	}
}
