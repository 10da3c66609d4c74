// Package scheduler runs the keepalive loop: an initial ping, then sleep, ping and a periodic
// retention sweep until the context is cancelled.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"supabase-keepalive/internal/keepalive/service"
)

// Defaults matching a free-tier project that pauses after a week of inactivity.
const (
	DefaultInterval      = 2 * time.Hour
	DefaultCleanupEvery  = 24
	DefaultRetentionDays = 7
)

var (
	// ErrInitialPingFailed is returned when the first ping fails; the loop is never entered.
	ErrInitialPingFailed = errors.New("scheduler: initial ping failed")
	// ErrUnexpected wraps a failure inside the loop body that is not a ping or sweep outcome.
	ErrUnexpected = errors.New("scheduler: unexpected error")
)

// State is the scheduler's position in the loop.
type State int

const (
	StateStarting State = iota
	StatePinging
	StateSleeping
	StateCleaning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StatePinging:
		return "pinging"
	case StateSleeping:
		return "sleeping"
	case StateCleaning:
		return "cleaning"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Pinger is the keepalive work the scheduler drives. *service.Service implements it.
type Pinger interface {
	Ping(ctx context.Context) bool
	Cleanup(ctx context.Context, daysToKeep int)
}

// Observer is told about state transitions and ping outcomes. Calls happen on the scheduler goroutine.
type Observer interface {
	StateChanged(state State)
	PingResult(ok bool)
}

// Config holds the loop timing.
type Config struct {
	Interval      time.Duration
	CleanupEvery  int
	RetentionDays int
}

// Option customizes a Scheduler.
type Option func(*Scheduler)

// WithSleeper replaces SleepContext, e.g. with a fake clock in tests.
func WithSleeper(sleep Sleeper) Option {
	return func(s *Scheduler) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithObserver registers o for state and ping notifications.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) { s.observer = o }
}

// Scheduler is the keepalive state machine. Run it once.
type Scheduler struct {
	pinger   Pinger
	sleep    Sleeper
	observer Observer
	cfg      Config

	mu    sync.Mutex
	state State
	count int
}

// New returns a Scheduler driving p. Non-positive Config values fall back to the defaults.
func New(p Pinger, cfg Config, opts ...Option) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.CleanupEvery <= 0 {
		cfg.CleanupEvery = DefaultCleanupEvery
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	s := &Scheduler{pinger: p, sleep: SleepContext, cfg: cfg, state: StateStarting}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Count returns the number of pings attempted so far, the initial ping included.
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Run pings once, then loops until ctx is cancelled. It returns nil on cancellation,
// ErrInitialPingFailed when the first ping fails, and an error wrapping ErrUnexpected
// when the loop body panics or the sleeper fails for another reason.
func (s *Scheduler) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnexpected, r)
		}
		s.setState(StateStopped)
	}()

	s.setState(StateStarting)
	if !s.ping(ctx) {
		if ctx.Err() != nil {
			return nil
		}
		log.Printf("scheduler: initial ping failed; check the database connection and table setup")
		return ErrInitialPingFailed
	}

	for {
		s.setState(StateSleeping)
		log.Printf("scheduler: sleeping for %s (next ping will be #%d)", s.cfg.Interval, s.Count()+1)
		if err := s.sleep(ctx, s.cfg.Interval); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: sleep: %v", ErrUnexpected, err)
		}

		n := s.Count() + 1
		s.ping(ctx)
		if ctx.Err() != nil {
			return nil
		}

		if n%s.cfg.CleanupEvery == 0 {
			s.setState(StateCleaning)
			s.pinger.Cleanup(service.WithPingNumber(ctx, n), s.cfg.RetentionDays)
			if ctx.Err() != nil {
				return nil
			}
		}
	}
}

// ping runs one ping and bumps the counter regardless of outcome.
func (s *Scheduler) ping(ctx context.Context) bool {
	s.setState(StatePinging)
	s.mu.Lock()
	s.count++
	n := s.count
	s.mu.Unlock()

	ok := s.pinger.Ping(service.WithPingNumber(ctx, n))
	if s.observer != nil {
		s.observer.PingResult(ok)
	}
	return ok
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	changed := s.state != state
	s.state = state
	s.mu.Unlock()
	if changed && s.observer != nil {
		s.observer.StateChanged(state)
	}
}
