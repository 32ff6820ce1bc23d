// Package timeline compiles declarative load simulations into a gap-free,
// time-indexed schedule of target concurrency and injection rate.
package timeline

import (
	"fmt"
	"math"
	"time"
)

// Mode distinguishes concurrency-level simulations from injection-rate ones.
type Mode int

const (
	// Closed targets a number of concurrent copies.
	Closed Mode = iota
	// Open targets a rate of copies spawned per second.
	Open
)

// Kind identifies one of the four load simulation shapes.
type Kind int

const (
	KindRampConstant Kind = iota
	KindKeepConstant
	KindRampPerSec
	KindInjectPerSec
)

func (k Kind) String() string {
	switch k {
	case KindRampConstant:
		return "ramp_constant"
	case KindKeepConstant:
		return "keep_constant"
	case KindRampPerSec:
		return "ramp_per_sec"
	case KindInjectPerSec:
		return "inject_per_sec"
	}
	return "unknown"
}

// Mode returns the load model the kind belongs to.
func (k Kind) Mode() Mode {
	if k == KindRampPerSec || k == KindInjectPerSec {
		return Open
	}
	return Closed
}

// Simulation is one declarative load phase.
type Simulation struct {
	Kind   Kind
	Copies int
	Rate   int
	During time.Duration
}

// RampConstant linearly changes the number of concurrent copies to the
// target over the interval.
func RampConstant(copies int, during time.Duration) Simulation {
	return Simulation{Kind: KindRampConstant, Copies: copies, During: during}
}

// KeepConstant maintains exactly copies concurrent copies for the interval.
func KeepConstant(copies int, during time.Duration) Simulation {
	return Simulation{Kind: KindKeepConstant, Copies: copies, During: during}
}

// RampPerSec linearly changes the injection rate to the target over the
// interval. Each injected copy runs the pipeline once.
func RampPerSec(rate int, during time.Duration) Simulation {
	return Simulation{Kind: KindRampPerSec, Rate: rate, During: during}
}

// InjectPerSec spawns copies at a constant rate for the interval.
func InjectPerSec(rate int, during time.Duration) Simulation {
	return Simulation{Kind: KindInjectPerSec, Rate: rate, During: during}
}

// ErrEmptySimulations reports a scenario scheduled with no load simulations.
type ErrEmptySimulations struct {
	Scenario string
}

func (e ErrEmptySimulations) Error() string {
	return fmt.Sprintf("scenario %q has no load simulations", e.Scenario)
}

// ErrInvalidDuration reports a simulation with a non-positive duration.
type ErrInvalidDuration struct {
	Scenario   string
	Simulation string
}

func (e ErrInvalidDuration) Error() string {
	return fmt.Sprintf("scenario %q: simulation %s has a non-positive duration", e.Scenario, e.Simulation)
}

// Interval is one compiled timeline segment [Start, End). Values are
// interpolated linearly between StartValue and EndValue.
type Interval struct {
	Start      time.Duration
	End        time.Duration
	Mode       Mode
	StartValue float64
	EndValue   float64
}

// Timeline is the compiled, total-ordered, gap-free schedule starting at t=0.
type Timeline struct {
	intervals []Interval
	planned   time.Duration
}

// Compile translates simulations into a timeline. Ramps start from the end
// value of the previous interval of the same mode; the first ramp starts
// from zero.
func Compile(scenarioName string, sims []Simulation) (*Timeline, error) {
	if len(sims) == 0 {
		return nil, ErrEmptySimulations{Scenario: scenarioName}
	}

	t := &Timeline{intervals: make([]Interval, 0, len(sims))}
	var cursor time.Duration
	var lastCopies, lastRate float64

	for _, sim := range sims {
		if sim.During <= 0 {
			return nil, ErrInvalidDuration{Scenario: scenarioName, Simulation: sim.Kind.String()}
		}

		iv := Interval{
			Start: cursor,
			End:   cursor + sim.During,
			Mode:  sim.Kind.Mode(),
		}
		switch sim.Kind {
		case KindKeepConstant:
			iv.StartValue = float64(sim.Copies)
			iv.EndValue = float64(sim.Copies)
		case KindRampConstant:
			iv.StartValue = lastCopies
			iv.EndValue = float64(sim.Copies)
		case KindInjectPerSec:
			iv.StartValue = float64(sim.Rate)
			iv.EndValue = float64(sim.Rate)
		case KindRampPerSec:
			iv.StartValue = lastRate
			iv.EndValue = float64(sim.Rate)
		}
		if iv.Mode == Closed {
			lastCopies = iv.EndValue
		} else {
			lastRate = iv.EndValue
		}

		t.intervals = append(t.intervals, iv)
		cursor = iv.End
	}
	t.planned = cursor
	return t, nil
}

// PlannedDuration is the sum of all simulation durations.
func (t *Timeline) PlannedDuration() time.Duration {
	return t.planned
}

// IsDone reports whether the offset is past the end of the schedule.
func (t *Timeline) IsDone(offset time.Duration) bool {
	return offset >= t.planned
}

// Target is the instantaneous schedule value at one offset.
type Target struct {
	Mode Mode
	// Copies is the concurrency level for closed intervals.
	Copies int
	// Rate is copies per second for open intervals.
	Rate float64
}

// TargetAt returns the schedule value for offset in [0, PlannedDuration).
// Offsets past the end return the final interval's end value.
func (t *Timeline) TargetAt(offset time.Duration) Target {
	if offset < 0 {
		offset = 0
	}
	iv := t.intervals[len(t.intervals)-1]
	for _, candidate := range t.intervals {
		if offset < candidate.End {
			iv = candidate
			break
		}
	}

	progress := 1.0
	if span := iv.End - iv.Start; span > 0 && offset < iv.End {
		progress = float64(offset-iv.Start) / float64(span)
	}
	value := iv.StartValue + (iv.EndValue-iv.StartValue)*progress

	if iv.Mode == Closed {
		return Target{Mode: Closed, Copies: int(math.Round(value))}
	}
	return Target{Mode: Open, Rate: value}
}

// Intervals returns a copy of the compiled segments.
func (t *Timeline) Intervals() []Interval {
	out := make([]Interval, len(t.intervals))
	copy(out, t.intervals)
	return out
}
