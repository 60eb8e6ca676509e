package assistant

import (
	"sync"
	"time"
)

// Scheduler holds at most one pending assistant reply per conversation.
// Scheduling a new reply replaces the previous pending one; switching away
// from a conversation cancels its timer so replies never land in stale state.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*time.Timer

	// afterFunc is swapped in tests to fire synchronously.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		timers:    make(map[string]*time.Timer),
		afterFunc: time.AfterFunc,
	}
}

// Schedule queues fn to run after delay, keyed to conversationID. Any reply
// already pending for that conversation is dropped.
func (s *Scheduler) Schedule(conversationID string, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.timers[conversationID]; ok {
		prev.Stop()
	}
	s.timers[conversationID] = s.afterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, conversationID)
		s.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending reply for conversationID, if any.
func (s *Scheduler) Cancel(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[conversationID]; ok {
		t.Stop()
		delete(s.timers, conversationID)
	}
}

// Stop cancels every pending reply. Called on unmount.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// Pending reports whether a reply is queued for conversationID.
func (s *Scheduler) Pending(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[conversationID]
	return ok
}
