// Package realtime debounces analysis requests coming from an editor so only
// the most recent input in a burst is analyzed and delivered.
package realtime

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

// ErrDisposed is returned when submitting to a session that was disposed.
var ErrDisposed = errors.New("realtime: session disposed")

// DefaultDelay is used when a session is created with a non-positive delay.
const DefaultDelay = 500 * time.Millisecond

// Analyzer runs one analysis pass. *analysis.Engine implements it.
type Analyzer interface {
	Analyze(code string, opts analysis.Options, fctx *analysis.FeedbackContext) analysis.CodeAnalysis
	FailureAnalysis(code string, lang analysis.Language, cause error) analysis.CodeAnalysis
}

// Request is the input of one real-time call.
type Request struct {
	Code    string
	Options analysis.Options
	Context *analysis.FeedbackContext
}

// Callback receives the analysis of the surviving request.
type Callback func(analysis.CodeAnalysis)

// State is the lifecycle state of a Session.
type State int

const (
	StateIdle State = iota
	StatePending
	StateRunning
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type call struct {
	req Request
	cb  Callback
}

// Session owns a single debounce timer. Every Submit replaces the pending
// request and re-arms the timer, so a burst of calls closer together than
// the delay yields exactly one callback, for the last call.
//
// At most one analysis runs at a time. A timer that fires while an analysis
// is running marks the pending request due, and it starts as soon as the
// running one has been delivered.
//
// Callbacks run on the timer goroutine, or on the caller's goroutine for
// Flush. A callback must not call Dispose or Flush on its own session.
type Session struct {
	analyzer Analyzer
	delay    time.Duration

	mu      sync.Mutex
	state   State
	timer   *time.Timer
	gen     uint64
	pending *call
	running bool
	due     bool

	// deliverMu is held while a callback runs so Dispose can wait for it.
	deliverMu sync.Mutex
}

// NewSession creates an idle session.
func NewSession(a Analyzer, delay time.Duration) *Session {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Session{analyzer: a, delay: delay}
}

// Submit schedules req for analysis after the debounce delay, cancelling
// any request still waiting.
func (s *Session) Submit(req Request, cb Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisposed {
		return ErrDisposed
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.pending != nil {
		recordSuperseded()
	}

	s.gen++
	gen := s.gen
	s.pending = &call{req: req, cb: cb}
	s.due = false
	if !s.running {
		s.state = StatePending
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
	return nil
}

// Flush runs the pending request immediately on the calling goroutine.
// If an analysis is already running, the pending request runs right after
// it instead. It reports whether there was a pending request.
func (s *Session) Flush() bool {
	s.mu.Lock()
	if s.state == StateDisposed || s.pending == nil {
		s.mu.Unlock()
		return false
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	if s.running {
		s.due = true
		s.mu.Unlock()
		return true
	}
	c := s.take()
	s.mu.Unlock()

	s.deliver(c)
	return true
}

// Dispose stops the timer and drops any pending request. It waits for a
// callback that is already running, and no callback starts afterwards.
// Dispose is idempotent.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.pending = nil
	s.due = false
	s.state = StateDisposed
	s.mu.Unlock()

	// Wait out a callback that is already running.
	s.deliverMu.Lock()
	s.deliverMu.Unlock()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) fire(gen uint64) {
	s.mu.Lock()
	if s.state == StateDisposed || gen != s.gen || s.pending == nil {
		s.mu.Unlock()
		return
	}
	if s.running {
		s.due = true
		s.mu.Unlock()
		return
	}
	c := s.take()
	s.mu.Unlock()

	s.deliver(c)
}

// take moves the pending call to RUNNING. Callers hold mu.
func (s *Session) take() *call {
	c := s.pending
	s.pending = nil
	s.timer = nil
	s.due = false
	s.running = true
	s.state = StateRunning
	return c
}

// next takes the pending call if its timer fired while the previous one was
// running.
func (s *Session) next() *call {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateDisposed || s.running || !s.due || s.pending == nil {
		return nil
	}
	return s.take()
}

func (s *Session) deliver(c *call) {
	for c != nil {
		if !s.deliverOne(c) {
			return
		}
		c = s.next()
	}
}

// deliverOne runs c and hands the result to its callback. It reports false
// when the session was disposed in the meantime.
func (s *Session) deliverOne(c *call) bool {
	result := s.run(c.req)

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	s.running = false
	if s.state == StateDisposed {
		s.mu.Unlock()
		log.Debug().Msg("session disposed during analysis, dropping result")
		return false
	}
	if s.pending == nil {
		s.state = StateIdle
	} else {
		s.state = StatePending
	}
	s.mu.Unlock()

	if c.cb != nil {
		c.cb(result)
	}
	return true
}

// run analyzes req, substituting the failure analysis if the analyzer
// panics so the callback is still delivered.
func (s *Session) run(req Request) (a analysis.CodeAnalysis) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("real-time analysis failed")
			a = s.analyzer.FailureAnalysis(req.Code, req.Options.Language, fmt.Errorf("%v", r))
		}
	}()
	return s.analyzer.Analyze(req.Code, req.Options, req.Context)
}
