package usecase

import (
	"sync"
	"sync/atomic"
)

// ChatActivity is the sleep flag of one chat plus the lock that scopes
// all processing attributable to that chat.
type ChatActivity struct {
	mu       sync.Mutex
	sleeping atomic.Bool
}

// Sleeping reports the current flag
func (a *ChatActivity) Sleeping() bool {
	return a.sleeping.Load()
}

// SetSleeping updates the flag; callers hold the chat scope
func (a *ChatActivity) SetSleeping(v bool) {
	a.sleeping.Store(v)
}

// Release ends the chat scope started by ActivityStore.Acquire
func (a *ChatActivity) Release() {
	a.mu.Unlock()
}

// ActivityStore owns per-chat activity state for the process lifetime.
// Chats start awake; entries are created on first use.
type ActivityStore struct {
	mu    sync.Mutex
	chats map[string]*ChatActivity
}

// NewActivityStore creates an empty store
func NewActivityStore() *ActivityStore {
	return &ActivityStore{
		chats: make(map[string]*ChatActivity),
	}
}

func (s *ActivityStore) entry(chatID string) *ChatActivity {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.chats[chatID]
	if !ok {
		a = &ChatActivity{}
		s.chats[chatID] = a
	}
	return a
}

// Acquire locks the chat and returns its entry; call Release when done.
// Different chats never block each other.
func (s *ActivityStore) Acquire(chatID string) *ChatActivity {
	a := s.entry(chatID)
	a.mu.Lock()
	return a
}

// IsSleeping reads the flag without taking the chat scope
func (s *ActivityStore) IsSleeping(chatID string) bool {
	s.mu.Lock()
	a, ok := s.chats[chatID]
	s.mu.Unlock()
	return ok && a.Sleeping()
}

// SetSleeping overrides the flag from outside the message flow (operator API).
// It waits for the chat scope, so it never lands in the middle of a gate decision.
func (s *ActivityStore) SetSleeping(chatID string, sleeping bool) {
	a := s.Acquire(chatID)
	defer a.Release()
	a.SetSleeping(sleeping)
}

// Len returns the number of tracked chats
func (s *ActivityStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.chats)
}

// Close drops all state; chats read as awake afterwards
func (s *ActivityStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = make(map[string]*ChatActivity)
}
