package core

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("RealClock.Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestFakeClock_Advance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)

	if !clock.Now().Equal(start) {
		t.Errorf("expected %v, got %v", start, clock.Now())
	}

	clock.Advance(5 * time.Second)
	want := start.Add(5 * time.Second)
	if !clock.Now().Equal(want) {
		t.Errorf("expected %v after advance, got %v", want, clock.Now())
	}

	if got := clock.Since(start); got != 5*time.Second {
		t.Errorf("expected Since of 5s, got %v", got)
	}
}

func TestFakeClock_Set(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	target := time.Unix(1000, 0)
	clock.Set(target)
	if !clock.Now().Equal(target) {
		t.Errorf("expected %v, got %v", target, clock.Now())
	}
}

func TestStopwatch_ElapsedFollowsClock(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	watch := StartStopwatch(clock)

	if got := watch.Elapsed(); got != 0 {
		t.Errorf("expected zero elapsed at start, got %v", got)
	}
	clock.Advance(250 * time.Millisecond)
	if got := watch.Elapsed(); got != 250*time.Millisecond {
		t.Errorf("expected 250ms elapsed, got %v", got)
	}
}
