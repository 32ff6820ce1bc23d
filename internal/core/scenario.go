package core

import (
	"context"
	"time"

	"surge/internal/timeline"
)

// InitFunc runs once before a scenario's schedulers start.
type InitFunc func(ctx context.Context, sc *ScenarioContext) error

// CleanFunc runs once after a scenario finished; failures are logged and
// ignored.
type CleanFunc func(ctx context.Context, sc *ScenarioContext) error

// Scenario is a named step pipeline plus its load description.
type Scenario struct {
	Name            string
	Init            InitFunc
	Clean           CleanFunc
	Steps           []*Step
	WarmUpDuration  time.Duration
	LoadSimulations []timeline.Simulation
	CustomSettings  string
	// StepsOrder returns a permutation of step indices, consulted once per
	// pipeline pass. Nil means natural order.
	StepsOrder func() []int
}

// NewScenario creates a scenario over the given steps.
func NewScenario(name string, steps ...*Step) *Scenario {
	return &Scenario{Name: name, Steps: steps}
}

// WithInit attaches an init hook.
func (s *Scenario) WithInit(fn InitFunc) *Scenario {
	s.Init = fn
	return s
}

// WithClean attaches a clean hook.
func (s *Scenario) WithClean(fn CleanFunc) *Scenario {
	s.Clean = fn
	return s
}

// WithWarmUpDuration enables the warm-up phase.
func (s *Scenario) WithWarmUpDuration(d time.Duration) *Scenario {
	s.WarmUpDuration = d
	return s
}

// WithLoadSimulations sets the load description of the main phase.
func (s *Scenario) WithLoadSimulations(sims ...timeline.Simulation) *Scenario {
	s.LoadSimulations = sims
	return s
}

// WithCustomSettings attaches a free-form settings string, typically JSON.
func (s *Scenario) WithCustomSettings(raw string) *Scenario {
	s.CustomSettings = raw
	return s
}

// WithStepsOrder overrides the step execution order per pipeline pass.
func (s *Scenario) WithStepsOrder(fn func() []int) *Scenario {
	s.StepsOrder = fn
	return s
}
