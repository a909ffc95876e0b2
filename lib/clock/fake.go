// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"time"
)

// Fake is a Clock under test control. Time only moves when Advance is
// called; waiters registered through After and NewTicker fire
// synchronously inside Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	channel  chan time.Time
	interval time.Duration // zero for one-shot After waiters
	stopped  bool
}

// NewFake returns a Fake starting at a fixed, arbitrary epoch. The
// epoch is deliberately not time.Now() so that tests cannot
// accidentally depend on wall-clock time.
func NewFake() *Fake {
	return &Fake{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the fake clock forward by d, firing any waiters whose
// deadlines are reached, in deadline order. Ticker waiters re-arm.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.now.Add(d)
	for {
		next := f.earliestWaiterLocked(target)
		if next == nil {
			break
		}
		f.now = next.deadline
		select {
		case next.channel <- f.now:
		default:
			// Capacity-1 channel already holds an undelivered tick.
		}
		if next.interval > 0 {
			next.deadline = next.deadline.Add(next.interval)
		} else {
			next.stopped = true
		}
	}
	f.now = target
	f.pruneLocked()
}

func (f *Fake) earliestWaiterLocked(limit time.Time) *fakeWaiter {
	var earliest *fakeWaiter
	for _, w := range f.waiters {
		if w.stopped || w.deadline.After(limit) {
			continue
		}
		if earliest == nil || w.deadline.Before(earliest.deadline) {
			earliest = w
		}
	}
	return earliest
}

func (f *Fake) pruneLocked() {
	kept := f.waiters[:0]
	for _, w := range f.waiters {
		if !w.stopped {
			kept = append(kept, w)
		}
	}
	f.waiters = kept
}

// After registers a one-shot waiter firing when the fake clock reaches
// now+d. If d <= 0, the channel receives immediately.
func (f *Fake) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- f.now
		return channel
	}
	f.waiters = append(f.waiters, &fakeWaiter{
		deadline: f.now.Add(d),
		channel:  channel,
	})
	return channel
}

// NewTicker registers a repeating waiter at the given interval.
func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	waiter := &fakeWaiter{
		deadline: f.now.Add(d),
		channel:  make(chan time.Time, 1),
		interval: d,
	}
	f.waiters = append(f.waiters, waiter)

	return &Ticker{
		C: waiter.channel,
		stopFunc: func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			waiter.stopped = true
		},
	}
}

// Sleep on a Fake returns immediately. Tests drive time with Advance;
// a blocking Sleep would deadlock them.
func (f *Fake) Sleep(time.Duration) {}
