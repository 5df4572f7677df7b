package testutils

import (
	"sort"
	"sync"
	"time"

	"github.com/conneroisu/livepane/internal/debounce"
)

// FakeClock is a simulated debounce.Clock. Timers only fire when Advance
// moves simulated time past their deadline, and they fire synchronously on
// the goroutine calling Advance.
type FakeClock struct {
	mutex  sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Duration
	fn       func()
	done     bool
}

// NewFakeClock creates a clock at simulated time zero.
func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

// AfterFunc implements debounce.Clock.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) debounce.Timer {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	t := &fakeTimer{clock: c, deadline: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop implements debounce.Timer.
func (t *fakeTimer) Stop() bool {
	t.clock.mutex.Lock()
	defer t.clock.mutex.Unlock()

	if t.done {
		return false
	}
	t.done = true
	return true
}

// Advance moves simulated time forward and runs every timer that became due,
// in deadline order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mutex.Lock()
	c.now += d

	var due []*fakeTimer
	live := c.timers[:0]
	for _, t := range c.timers {
		switch {
		case t.done:
		case t.deadline <= c.now:
			t.done = true
			due = append(due, t)
		default:
			live = append(live, t)
		}
	}
	c.timers = live
	c.mutex.Unlock()

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline < due[j].deadline
	})
	for _, t := range due {
		t.fn()
	}
}

// Now returns the simulated time elapsed since the clock was created.
func (c *FakeClock) Now() time.Duration {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.now
}

// PendingTimers returns the number of timers that have neither fired nor
// been stopped.
func (c *FakeClock) PendingTimers() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.done {
			n++
		}
	}
	return n
}
