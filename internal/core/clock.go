package core

import "time"

// Clock provides time operations that can be mocked for testing.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock uses the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// FakeClock is a test clock that can be manually advanced.
type FakeClock struct {
	current time.Time
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{current: start}
}

func (f *FakeClock) Now() time.Time                  { return f.current }
func (f *FakeClock) Since(t time.Time) time.Duration { return f.current.Sub(t) }
func (f *FakeClock) Advance(d time.Duration)         { f.current = f.current.Add(d) }
func (f *FakeClock) Set(t time.Time)                 { f.current = t }

// Stopwatch measures elapsed time against a Clock from the moment it was
// started. The zero value is not usable; always go through StartStopwatch.
type Stopwatch struct {
	clock Clock
	start time.Time
}

// StartStopwatch captures the clock's current time as the origin.
func StartStopwatch(c Clock) Stopwatch {
	return Stopwatch{clock: c, start: c.Now()}
}

// Elapsed reports the time passed since the stopwatch was started.
func (s Stopwatch) Elapsed() time.Duration {
	return s.clock.Since(s.start)
}
