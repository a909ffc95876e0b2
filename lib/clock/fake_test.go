// Copyright 2026 The BNS Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNowAdvances(t *testing.T) {
	fake := NewFake()
	start := fake.Now()
	fake.Advance(5 * time.Minute)
	if got := fake.Now().Sub(start); got != 5*time.Minute {
		t.Errorf("advanced %v, want 5m", got)
	}
}

func TestFakeAfterFires(t *testing.T) {
	fake := NewFake()
	ch := fake.After(10 * time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	fake.Advance(10 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("After did not fire after Advance")
	}
}

func TestFakeAfterImmediate(t *testing.T) {
	fake := NewFake()
	select {
	case <-fake.After(0):
	default:
		t.Fatal("After(0) should fire immediately")
	}
}

func TestFakeTicker(t *testing.T) {
	fake := NewFake()
	ticker := fake.NewTicker(time.Minute)
	defer ticker.Stop()

	fake.Advance(time.Minute)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker should fire on first interval")
	}

	fake.Advance(time.Minute)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker should re-arm and fire again")
	}
}

func TestFakeTickerStop(t *testing.T) {
	fake := NewFake()
	ticker := fake.NewTicker(time.Minute)
	ticker.Stop()

	fake.Advance(5 * time.Minute)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker should not fire")
	default:
	}
}

func TestFakeTickerDropsBackloggedTicks(t *testing.T) {
	fake := NewFake()
	ticker := fake.NewTicker(time.Minute)
	defer ticker.Stop()

	// Three intervals with no consumer: only one tick buffered.
	fake.Advance(3 * time.Minute)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("capacity-1 channel should drop extra ticks")
	default:
	}
}
