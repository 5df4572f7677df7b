// Package debounce coalesces bursts of calls into a single deferred callback.
//
// A Scheduler owns at most one pending timer. Every Schedule call cancels
// the pending timer and starts a new one, so the callback runs once per
// burst and only after the quiescence window has passed with no further
// calls. Cancel must be called when the owner is torn down.
package debounce

import (
	"sync"
	"time"
)

// DefaultDelay is the quiescence window used when none is configured.
const DefaultDelay = 250 * time.Millisecond

// Timer is the handle returned by a Clock.
type Timer interface {
	Stop() bool
}

// Clock creates deferred callbacks. Tests substitute a simulated clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock returns a Clock backed by the runtime timers.
func RealClock() Clock {
	return realClock{}
}

// Scheduler groups rapid calls together
type Scheduler struct {
	clock Clock
	mutex sync.Mutex
	timer Timer

	// generation is bumped on every Schedule and Cancel. A timer that fires
	// with a stale generation was superseded after the runtime had already
	// queued it and must not run its callback.
	generation uint64
}

// New creates a scheduler. A nil clock uses the runtime timers.
func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = RealClock()
	}
	return &Scheduler{clock: clock}
}

// Schedule cancels any pending timer and arranges for callback to run after
// delay, unless another Schedule or Cancel happens first.
func (s *Scheduler) Schedule(callback func(), delay time.Duration) {
	if delay <= 0 {
		delay = DefaultDelay
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.stopLocked()
	s.generation++
	gen := s.generation

	s.timer = s.clock.AfterFunc(delay, func() {
		s.fire(gen, callback)
	})
}

// Cancel stops the pending timer, if any. It is safe to call repeatedly.
func (s *Scheduler) Cancel() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.stopLocked()
	s.generation++
}

// Pending reports whether a timer is waiting to fire.
func (s *Scheduler) Pending() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.timer != nil
}

func (s *Scheduler) stopLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Scheduler) fire(gen uint64, callback func()) {
	s.mutex.Lock()
	if gen != s.generation {
		s.mutex.Unlock()
		return
	}
	s.timer = nil
	s.mutex.Unlock()

	callback()
}
