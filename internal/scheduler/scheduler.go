// Package scheduler materializes a scenario's load timeline into concurrent
// virtual users, running the warm-up and main phases.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"surge/internal/core"
	"surge/internal/pipeline"
	"surge/internal/stats"
	"surge/internal/timeline"
)

// Options tunes the scheduling loop.
type Options struct {
	// ClosedTick is the adjustment cadence for concurrency-level intervals.
	ClosedTick time.Duration
	// OpenTick is the loop cadence for injection-rate intervals; it bounds
	// the rate-update error of ramps.
	OpenTick time.Duration
	// GracePeriod is how long shutdown waits for copies to finish their
	// current step before abandoning them.
	GracePeriod time.Duration
}

const (
	defaultClosedTick  = 1 * time.Second
	defaultOpenTick    = 100 * time.Millisecond
	defaultGracePeriod = 5 * time.Second
)

func (o Options) withDefaults() Options {
	if o.ClosedTick <= 0 {
		o.ClosedTick = defaultClosedTick
	}
	if o.OpenTick <= 0 {
		o.OpenTick = defaultOpenTick
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = defaultGracePeriod
	}
	return o
}

// Scheduler runs one scenario through its warm-up and main phases.
type Scheduler struct {
	scenario *core.Scenario
	tl       *timeline.Timeline
	pipe     *pipeline.Pipeline
	agg      *stats.Aggregator
	clock    core.Clock
	log      *logrus.Entry
	opts     Options

	// nextCopy is monotonic across both phases so correlation IDs never repeat.
	nextCopy atomic.Int64
	executed atomic.Int64
}

// New creates a scheduler for one scenario over its compiled timeline.
func New(scenario *core.Scenario, tl *timeline.Timeline, pipe *pipeline.Pipeline, agg *stats.Aggregator, clock core.Clock, logger *logrus.Logger, opts Options) *Scheduler {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Scheduler{
		scenario: scenario,
		tl:       tl,
		pipe:     pipe,
		agg:      agg,
		clock:    clock,
		log:      logger.WithField("scenario", scenario.Name),
		opts:     opts.withDefaults(),
	}
}

// ExecutedDuration reports how long the main phase actually ran. It is at
// most the timeline's planned duration; less means the run was cut short.
func (s *Scheduler) ExecutedDuration() time.Duration {
	return time.Duration(s.executed.Load())
}

// Run executes the warm-up phase (when configured), validates it, resets
// the aggregator, then drives the main phase to completion or cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.scenario.WarmUpDuration > 0 {
		if err := s.runWarmUp(ctx); err != nil {
			return err
		}
	}

	s.agg.ScenarioStarted(s.scenario.Name)
	s.log.WithField("planned", s.tl.PlannedDuration()).Info("main phase starting")

	watch := core.StartStopwatch(s.clock)
	s.runTimeline(ctx, s.tl)

	executed := watch.Elapsed()
	if planned := s.tl.PlannedDuration(); executed > planned {
		executed = planned
	}
	s.executed.Store(int64(executed))
	s.agg.ScenarioFinished(s.scenario.Name, executed)
	s.log.WithField("executed", executed).Info("main phase finished")
	return nil
}

// runWarmUp drives a fixed single-copy load for the warm-up duration and
// aborts the scenario when failures dominate successes.
func (s *Scheduler) runWarmUp(ctx context.Context) error {
	warm, err := timeline.Compile(s.scenario.Name, []timeline.Simulation{
		timeline.KeepConstant(1, s.scenario.WarmUpDuration),
	})
	if err != nil {
		return err
	}

	s.agg.ScenarioStarted(s.scenario.Name)
	s.log.WithField("duration", s.scenario.WarmUpDuration).Info("warm-up starting")
	s.runTimeline(ctx, warm)

	if err := s.agg.ValidateWarmUp(s.scenario.Name); err != nil {
		s.log.WithError(err).Error("warm-up failed, scenario aborted")
		return err
	}
	s.agg.ResetScenario(s.scenario.Name)
	return nil
}

// phaseRun owns the live copies of one timeline execution. Warm-up and main
// phases get separate instances so an abandoned warm-up copy can never leak
// into the main phase's bookkeeping.
type phaseRun struct {
	wg     sync.WaitGroup
	active atomic.Int32
	// looping counts only closed-model copies. One-shot open-model copies
	// are excluded so closed convergence never counts them.
	looping   atomic.Int32
	stopMu    sync.Mutex
	stopChans []chan struct{}
}

func (s *Scheduler) runTimeline(ctx context.Context, tl *timeline.Timeline) {
	run := &phaseRun{}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pace := newPacer(0)
	go s.injectLoop(ctx, run, pace)

	watch := core.StartStopwatch(s.clock)
	lastClosedAdjust := s.clock.Now().Add(-s.opts.ClosedTick)

	ticker := time.NewTicker(s.opts.OpenTick)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			offset := watch.Elapsed()
			if tl.IsDone(offset) {
				break loop
			}
			target := tl.TargetAt(offset)
			switch target.Mode {
			case timeline.Closed:
				pace.SetRate(0)
				if s.clock.Since(lastClosedAdjust) >= s.opts.ClosedTick {
					lastClosedAdjust = s.clock.Now()
					s.adjustCopies(ctx, run, target.Copies)
				}
			case timeline.Open:
				// Looping copies from an earlier closed interval have no
				// place in an open one; retire them all.
				s.adjustCopies(ctx, run, 0)
				pace.SetRate(target.Rate)
			}
		}
	}

	cancel()
	s.stopAll(run)
	s.waitWithGrace(run)
}

// adjustCopies converges the looping copy count onto the closed-model
// target. Excess copies are retired newest-first.
func (s *Scheduler) adjustCopies(ctx context.Context, run *phaseRun, target int) {
	current := int(run.looping.Load())
	if current < target {
		for i := current; i < target; i++ {
			s.spawnLooping(ctx, run)
		}
	} else if current > target {
		s.stopCopies(run, current-target)
	}
}

// spawnLooping starts a copy that re-runs the pipeline until retired,
// cancelled, or the session stops.
func (s *Scheduler) spawnLooping(ctx context.Context, run *phaseRun) {
	stopCh := make(chan struct{})
	copyNumber := int(s.nextCopy.Add(1))
	run.active.Add(1)
	run.looping.Add(1)
	run.wg.Add(1)

	run.stopMu.Lock()
	run.stopChans = append(run.stopChans, stopCh)
	run.stopMu.Unlock()

	go func() {
		defer func() {
			run.looping.Add(-1)
			run.active.Add(-1)
			run.wg.Done()
		}()
		vu := s.pipe.NewVirtualUser(copyNumber)
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			default:
				if err := vu.RunOnce(ctx); err != nil {
					return
				}
			}
		}
	}()
}

// injectLoop spawns one-shot copies at the pacer's current rate. Each open
// model copy runs the pipeline exactly once and exits.
func (s *Scheduler) injectLoop(ctx context.Context, run *phaseRun, pace *pacer) {
	for {
		ok, err := pace.Wait(ctx, s.opts.OpenTick)
		if err != nil {
			return
		}
		if !ok {
			continue
		}
		copyNumber := int(s.nextCopy.Add(1))
		run.active.Add(1)
		run.wg.Add(1)
		go func() {
			defer func() {
				run.active.Add(-1)
				run.wg.Done()
			}()
			vu := s.pipe.NewVirtualUser(copyNumber)
			_ = vu.RunOnce(ctx)
		}()
	}
}

// stopCopies retires n copies LIFO so ramp-downs release the newest copies.
func (s *Scheduler) stopCopies(run *phaseRun, n int) {
	run.stopMu.Lock()
	defer run.stopMu.Unlock()
	for i := 0; i < n && len(run.stopChans) > 0; i++ {
		last := len(run.stopChans) - 1
		close(run.stopChans[last])
		run.stopChans = run.stopChans[:last]
	}
}

func (s *Scheduler) stopAll(run *phaseRun) {
	run.stopMu.Lock()
	for _, ch := range run.stopChans {
		close(ch)
	}
	run.stopChans = nil
	run.stopMu.Unlock()
}

// waitWithGrace waits for live copies to finish their current step, then
// abandons non-cooperating ones.
func (s *Scheduler) waitWithGrace(run *phaseRun) {
	done := make(chan struct{})
	go func() {
		run.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(s.opts.GracePeriod):
		s.log.WithField("remaining", run.active.Load()).
			Warn("grace period expired, abandoning copies")
	}
}
