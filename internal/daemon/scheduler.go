package daemon

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/ulyssesdeck/internal/deck"
	ferrors "git.home.luguber.info/inful/ulyssesdeck/internal/foundation/errors"
)

// State is the rebuild scheduler state.
type State int

const (
	// StateIdle: no pass is owed.
	StateIdle State = iota
	// StateRunning: a pass is in progress or waiting for the cooldown boundary.
	StateRunning
	// StatePendingRerun: requests arrived during a pass; exactly one more pass follows it.
	StatePendingRerun
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePendingRerun:
		return "pending_rerun"
	default:
		return "unknown"
	}
}

// PassFunc runs one flatten-and-write pass.
type PassFunc func(ctx context.Context) (deck.Result, error)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Cooldown is the minimum interval between the starts of two passes.
	Cooldown time.Duration
	Pass     PassFunc
	// OnComplete is called after every pass with its outcome and the number
	// of requests it absorbed.
	OnComplete func(res deck.Result, err error, requests int)
}

// Scheduler throttles rebuild requests into passes.
//
// The first request of a quiet period starts a pass promptly. Requests that
// arrive while a pass is running or before the cooldown boundary are coalesced
// into exactly one follow-up pass at the boundary. At most one pass is ever in
// flight, and requests are never dropped.
type Scheduler struct {
	cfg SchedulerConfig

	mu        sync.Mutex
	state     State
	lastStart time.Time
	requests  int

	wake      chan struct{}
	readyOnce sync.Once
	ready     chan struct{}
	passes    atomic.Int64
}

// NewScheduler validates cfg and creates a Scheduler. Call Run to start it.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Pass == nil {
		return nil, ferrors.ValidationError("pass function is required").Build()
	}
	if cfg.Cooldown <= 0 {
		return nil, ferrors.ValidationError("cooldown must be > 0").Build()
	}
	return &Scheduler{
		cfg:   cfg,
		wake:  make(chan struct{}, 1),
		ready: make(chan struct{}),
	}, nil
}

// Ready is closed once Run is accepting work.
func (s *Scheduler) Ready() <-chan struct{} {
	return s.ready
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Passes returns the number of completed passes.
func (s *Scheduler) Passes() int64 {
	return s.passes.Load()
}

// Request asks for a pass. It never blocks and is safe for concurrent use.
func (s *Scheduler) Request() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests++
	switch s.state {
	case StateIdle:
		s.state = StateRunning
		s.signal()
	case StateRunning:
		s.state = StatePendingRerun
	case StatePendingRerun:
	}
}

// Run executes passes until ctx is done. A pass that has started always runs
// to completion; it is not handed the cancelable context.
func (s *Scheduler) Run(ctx context.Context) error {
	if ctx == nil {
		return ferrors.ValidationError("context cannot be nil").Build()
	}
	s.readyOnce.Do(func() { close(s.ready) })

	passCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		}

		if wait := s.untilBoundary(); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil
			case <-t.C:
			}
		}

		absorbed := s.begin()
		res, err := s.cfg.Pass(passCtx)
		s.passes.Add(1)
		if s.cfg.OnComplete != nil {
			s.cfg.OnComplete(res, err, absorbed)
		}
		s.finish()
	}
}

func (s *Scheduler) untilBoundary() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastStart.IsZero() {
		return 0
	}
	return s.cfg.Cooldown - time.Since(s.lastStart)
}

// begin marks the pass as started. Requests received so far are satisfied by it.
func (s *Scheduler) begin() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateRunning
	s.lastStart = time.Now()
	n := s.requests
	s.requests = 0
	return n
}

func (s *Scheduler) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePendingRerun {
		s.state = StateRunning
		s.signal()
		return
	}
	s.state = StateIdle
}

// signal wakes Run; the one-slot buffer coalesces repeated signals.
func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}
