package realtime

import (
	"sort"
	"sync"
	"time"
)

// Scheduler keeps one Session per key, such as an editor tab or a file path.
// Ordering holds within a key; nothing is promised across keys.
type Scheduler struct {
	analyzer Analyzer
	delay    time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
	closed   bool
}

// NewScheduler creates a scheduler whose sessions share one analyzer and
// debounce delay.
func NewScheduler(a Analyzer, delay time.Duration) *Scheduler {
	return &Scheduler{
		analyzer: a,
		delay:    delay,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session for key, creating it on first use.
func (s *Scheduler) Session(key string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrDisposed
	}
	sess, ok := s.sessions[key]
	if !ok {
		sess = NewSession(s.analyzer, s.delay)
		s.sessions[key] = sess
	}
	return sess, nil
}

// Submit debounces req on the session for key.
func (s *Scheduler) Submit(key string, req Request, cb Callback) error {
	sess, err := s.Session(key)
	if err != nil {
		return err
	}
	return sess.Submit(req, cb)
}

// Remove disposes and forgets the session for key.
func (s *Scheduler) Remove(key string) {
	s.mu.Lock()
	sess, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()

	if ok {
		sess.Dispose()
	}
}

// Keys returns the active session keys, sorted.
func (s *Scheduler) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.sessions))
	for k := range s.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Close disposes every session. Later calls to Session and Submit return
// ErrDisposed.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.Dispose()
	}
}
