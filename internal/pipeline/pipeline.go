// Package pipeline drives one virtual user through a single pass of its
// scenario's steps, carrying data between consecutive steps and recording
// per-step timings.
package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"surge/internal/core"
	"surge/internal/pool"
	"surge/internal/stats"
)

// Pipeline is the immutable per-scenario execution plan, shared by all
// virtual users of that scenario.
type Pipeline struct {
	scenario *core.Scenario
	// pools is parallel to scenario.Steps; nil entries mean no pool.
	pools    []*pool.Pool
	agg      *stats.Aggregator
	clock    core.Clock
	log      *logrus.Entry
	stopTest func(reason string)
}

// New assembles a pipeline. pools must be parallel to scenario.Steps, with
// nil entries for steps that declared no pool.
func New(scenario *core.Scenario, pools []*pool.Pool, agg *stats.Aggregator, clock core.Clock, logger *logrus.Logger, stopTest func(reason string)) *Pipeline {
	if clock == nil {
		clock = core.RealClock{}
	}
	return &Pipeline{
		scenario: scenario,
		pools:    pools,
		agg:      agg,
		clock:    clock,
		log:      logger.WithField("scenario", scenario.Name),
		stopTest: stopTest,
	}
}

// VirtualUser is one copy of the scenario. It owns its invocation counter
// and previous-response slot; nothing here is shared between copies.
type VirtualUser struct {
	p           *Pipeline
	corr        core.CorrelationID
	log         *logrus.Entry
	invocations int
	warnedOrder bool
}

// NewVirtualUser creates a copy with a fresh correlation ID.
func (p *Pipeline) NewVirtualUser(copyNumber int) *VirtualUser {
	corr := core.NewCorrelationID(p.scenario.Name, copyNumber)
	return &VirtualUser{
		p:    p,
		corr: corr,
		log:  p.log.WithField("copy", copyNumber),
	}
}

// Invocations returns the number of started pipeline passes.
func (vu *VirtualUser) Invocations() int {
	return vu.invocations
}

// RunOnce executes one full pass through the scenario's steps. It returns
// the context error when cancelled mid-pass, nil otherwise. Step failures
// are recorded, never propagated.
func (vu *VirtualUser) RunOnce(ctx context.Context) error {
	p := vu.p
	vu.invocations++

	order := vu.stepsOrder()
	var prev any
	hasPrev := false

	for _, idx := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if idx < 0 || idx >= len(p.scenario.Steps) {
			if !vu.warnedOrder {
				vu.warnedOrder = true
				vu.log.WithField("index", idx).Warn("steps order returned an invalid index, skipping")
			}
			continue
		}
		step := p.scenario.Steps[idx]

		var conn any
		if p.pools[idx] != nil {
			conn = p.pools[idx].Get(vu.corr.CopyNumber)
		}
		var feedItem any
		if step.Feed != nil {
			feedItem = step.Feed.Pull()
		}

		sctx := core.NewStepContext(ctx, vu.corr, conn, feedItem, vu.invocations, prev, hasPrev, vu.log, p.stopTest)

		watch := core.StartStopwatch(p.clock)
		resp := executeStep(step, sctx)

		latency := resp.Latency
		if latency <= 0 {
			latency = watch.Elapsed()
		}

		if !step.DoNotTrack {
			p.agg.Record(stats.Outcome{
				Scenario:  p.scenario.Name,
				Step:      step.Name,
				Ok:        resp.Ok,
				Latency:   latency,
				SizeBytes: resp.EffectiveSize(),
			})
		}

		prev = resp.Payload
		hasPrev = true

		if resp.Exit == core.ExitStopTest {
			reason := resp.Message
			if reason == "" {
				reason = fmt.Sprintf("step %q requested stop", step.Name)
			}
			p.stopTest(reason)
		}
	}
	return nil
}

// stepsOrder consults the scenario's order function once per pass.
func (vu *VirtualUser) stepsOrder() []int {
	if vu.p.scenario.StepsOrder != nil {
		return vu.p.scenario.StepsOrder()
	}
	order := make([]int, len(vu.p.scenario.Steps))
	for i := range order {
		order[i] = i
	}
	return order
}

// executeStep shields the engine from user code: a panicking step body is
// converted into a failed response.
func executeStep(step *core.Step, sctx *core.StepContext) (resp core.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = core.NewFailResponse(fmt.Sprintf("panic: %v", r))
		}
	}()
	return step.Execute(sctx)
}
