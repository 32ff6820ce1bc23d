// Package core defines the fundamental types shared by the surge engine:
// steps, scenarios, responses, contexts, and the error taxonomy.
package core

import "context"

// StepFunc is a user-supplied step body. It may suspend arbitrarily and must
// cooperate with ctx cancellation for prompt shutdown.
type StepFunc func(ctx *StepContext) Response

// PoolArgs declares a connection pool a step wants to use. The runtime pool
// is resolved by name during session init; steps never hold the pool itself.
type PoolArgs struct {
	Name  string
	Count int
	Open  func(ctx context.Context, index int) (any, error)
	Close func(ctx context.Context, conn any) error
}

// Feed is a lazy item source bound to a step. Pull must be safe for
// concurrent use by many virtual users.
type Feed interface {
	Name() string
	Pull() any
}

// Step is a single named operation in a scenario pipeline.
type Step struct {
	Name    string
	Execute StepFunc
	// Pool, when set, gives each virtual user a connection keyed by its
	// copy number modulo the pool size.
	Pool *PoolArgs
	Feed Feed
	// DoNotTrack excludes the step from stats recording and reporting.
	DoNotTrack bool
}

// NewStep creates a tracked step.
func NewStep(name string, execute StepFunc) *Step {
	return &Step{Name: name, Execute: execute}
}

// WithPool binds declarative pool args to the step.
func (s *Step) WithPool(args *PoolArgs) *Step {
	s.Pool = args
	return s
}

// WithFeed binds a feed to the step.
func (s *Step) WithFeed(f Feed) *Step {
	s.Feed = f
	return s
}

// WithDoNotTrack excludes the step from statistics.
func (s *Step) WithDoNotTrack() *Step {
	s.DoNotTrack = true
	return s
}
