// Package stats aggregates per-step outcomes into concurrent counters and
// produces NodeStats snapshots for reporting sinks.
package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"surge/internal/core"
)

// Outcome is one observed step execution, emitted by the pipeline.
type Outcome struct {
	Scenario  string
	Step      string
	Ok        bool
	Latency   time.Duration
	SizeBytes int64
}

// Aggregator collects outcomes keyed by (scenario, step). It is sharded per
// scenario; shards hold atomic counters plus latency and size histograms so
// the hot path takes no aggregator-wide lock.
type Aggregator struct {
	sessionID string
	clock     core.Clock

	mu        sync.RWMutex
	scenarios map[string]*scenarioShard
	order     []string
}

type scenarioShard struct {
	name string

	mu       sync.RWMutex
	steps    map[string]*stepShard
	order    []string
	started  time.Time
	executed time.Duration
	finished bool
}

type stepShard struct {
	scenario string
	step     string

	okCount   atomic.Int64
	failCount atomic.Int64
	allBytes  atomic.Int64
	latency   *safeHistogram
	size      *safeHistogram
}

// New creates an aggregator for one session.
func New(sessionID string, clock core.Clock) *Aggregator {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Aggregator{
		sessionID: sessionID,
		clock:     clock,
		scenarios: make(map[string]*scenarioShard),
	}
}

// ScenarioStarted marks the begin of a scenario phase; the elapsed time is
// the denominator for live RPS until ScenarioFinished fixes it.
func (a *Aggregator) ScenarioStarted(name string) {
	shard := a.scenario(name)
	shard.mu.Lock()
	shard.started = a.clock.Now()
	shard.finished = false
	shard.mu.Unlock()
}

// ScenarioFinished records the executed duration used for final RPS.
func (a *Aggregator) ScenarioFinished(name string, executed time.Duration) {
	shard := a.scenario(name)
	shard.mu.Lock()
	shard.executed = executed
	shard.finished = true
	shard.mu.Unlock()
}

// Record stores one outcome. Safe for concurrent use by all virtual users.
func (a *Aggregator) Record(o Outcome) {
	shard := a.scenario(o.Scenario)
	step := shard.stepShard(o.Step)

	if o.Ok {
		step.okCount.Add(1)
	} else {
		step.failCount.Add(1)
	}
	step.latency.record(o.Latency.Microseconds())
	if o.SizeBytes > 0 {
		step.size.record(o.SizeBytes)
		step.allBytes.Add(o.SizeBytes)
	}
}

// ResetScenario clears all counters of a scenario and restarts its clock.
// Called exactly at the warm-up to main-run boundary.
func (a *Aggregator) ResetScenario(name string) {
	shard := a.scenario(name)
	shard.mu.Lock()
	for _, step := range shard.steps {
		step.okCount.Store(0)
		step.failCount.Store(0)
		step.allBytes.Store(0)
		step.latency.reset()
		step.size.reset()
	}
	shard.started = a.clock.Now()
	shard.finished = false
	shard.mu.Unlock()
}

// ValidateWarmUp folds across the per-step warm-up stats of a scenario and
// fails on the first step whose failures exceed its successes.
func (a *Aggregator) ValidateWarmUp(name string) error {
	shard := a.scenario(name)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	for _, stepName := range shard.order {
		step := shard.steps[stepName]
		ok := step.okCount.Load()
		fail := step.failCount.Load()
		if fail > ok {
			return core.ErrWarmUpManyFailures{
				Scenario:  name,
				Step:      stepName,
				OkCount:   ok,
				FailCount: fail,
			}
		}
	}
	return nil
}

func (a *Aggregator) scenario(name string) *scenarioShard {
	a.mu.RLock()
	shard, ok := a.scenarios[name]
	a.mu.RUnlock()
	if ok {
		return shard
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if shard, ok = a.scenarios[name]; ok {
		return shard
	}
	shard = &scenarioShard{
		name:    name,
		steps:   make(map[string]*stepShard),
		started: a.clock.Now(),
	}
	a.scenarios[name] = shard
	a.order = append(a.order, name)
	return shard
}

func (s *scenarioShard) stepShard(name string) *stepShard {
	s.mu.RLock()
	step, ok := s.steps[name]
	s.mu.RUnlock()
	if ok {
		return step
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if step, ok = s.steps[name]; ok {
		return step
	}
	step = &stepShard{
		scenario: s.name,
		step:     name,
		latency:  newLatencyHistogram(),
		size:     newSizeHistogram(),
	}
	s.steps[name] = step
	s.order = append(s.order, name)
	return step
}
