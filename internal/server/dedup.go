package server

import (
	"sync"
	"time"
)

// dedupWindow is how long a delivered message ID is remembered
const dedupWindow = 5 * time.Minute

// seenCache drops redelivered messages; expired records are cleaned up when new ones are marked
type seenCache struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

func newSeenCache(ttl time.Duration) *seenCache {
	return &seenCache{seen: make(map[string]time.Time), ttl: ttl}
}

// markNew records msgID and reports whether it had not been seen yet
func (c *seenCache) markNew(msgID string, now time.Time) bool {
	if msgID == "" {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ts, ok := c.seen[msgID]; ok && now.Sub(ts) < c.ttl {
		return false
	}
	c.seen[msgID] = now

	cutoff := now.Add(-c.ttl)
	for id, ts := range c.seen {
		if ts.Before(cutoff) {
			delete(c.seen, id)
		}
	}
	return true
}
