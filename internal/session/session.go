// Package session orchestrates a full test run: validation, connection pool
// lifecycle, scenario schedulers, stats merging, and the final report.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"surge/internal/config"
	"surge/internal/core"
	"surge/internal/pipeline"
	"surge/internal/pool"
	"surge/internal/report"
	"surge/internal/scheduler"
	"surge/internal/stats"
	"surge/internal/timeline"
)

// Options configures a session run. The zero value is usable.
type Options struct {
	Logger *logrus.Logger
	Clock  core.Clock
	// Config carries external overrides applied on top of the programmatic
	// scenario defaults.
	Config *config.EngineConfig
	// TargetScenarios filters the set of scenarios to run; empty means all.
	// Takes precedence over the config's own list.
	TargetScenarios []string
	Sinks           []report.Sink
	Scheduler       scheduler.Options
}

// Run drives the whole session and returns the final stats snapshot.
// Scenario-level warm-up failures abort only their scenario; they are
// joined into the returned error while the snapshot still covers the
// scenarios that ran.
func Run(ctx context.Context, scenarios []*core.Scenario, opts Options) (*stats.NodeStats, error) {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}
	clock := opts.Clock
	if clock == nil {
		clock = core.RealClock{}
	}

	if err := validate(scenarios); err != nil {
		return nil, err
	}
	if err := config.Apply(opts.Config, scenarios); err != nil {
		return nil, err
	}
	scenarios = filterTargets(scenarios, targetList(opts))
	if len(scenarios) == 0 {
		return nil, errors.New("no scenarios match the requested targets")
	}

	// Load simulations may have been replaced by the config; re-validate
	// before compiling the final timelines.
	if err := validate(scenarios); err != nil {
		return nil, err
	}

	sessionID := uuid.NewString()
	log.WithField("session", sessionID).Info("session starting")

	agg := stats.New(sessionID, clock)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var stopOnce sync.Once
	stopTest := func(reason string) {
		stopOnce.Do(func() {
			log.WithField("reason", reason).Info("stop test requested")
			cancel()
		})
	}

	pools, stepPools := resolvePools(scenarios, opts.Config, log)
	if err := openPools(sessionCtx, pools); err != nil {
		disposePools(context.Background(), pools)
		return nil, err
	}

	if err := runInits(sessionCtx, scenarios, log); err != nil {
		disposePools(context.Background(), pools)
		return nil, err
	}

	interval := time.Duration(0)
	if opts.Config != nil {
		interval = opts.Config.Reporting.SendStatsInterval.Std()
	}
	pusher := report.NewPusher(agg, opts.Sinks, interval, log)
	pusher.Start(sessionCtx)

	runErr := runSchedulers(sessionCtx, scenarios, stepPools, agg, clock, log, opts.Scheduler, stopTest)

	runCleans(context.Background(), scenarios, log)
	pusher.Stop(context.Background())
	disposePools(context.Background(), pools)

	node := agg.Snapshot()
	log.WithField("session", sessionID).Info("session finished")
	return node, runErr
}

func targetList(opts Options) []string {
	if len(opts.TargetScenarios) > 0 {
		return opts.TargetScenarios
	}
	if opts.Config != nil {
		return opts.Config.TargetScenarios
	}
	return nil
}

func filterTargets(scenarios []*core.Scenario, targets []string) []*core.Scenario {
	if len(targets) == 0 {
		return scenarios
	}
	wanted := make(map[string]bool, len(targets))
	for _, name := range targets {
		wanted[name] = true
	}
	out := make([]*core.Scenario, 0, len(scenarios))
	for _, sc := range scenarios {
		if wanted[sc.Name] {
			out = append(out, sc)
		}
	}
	return out
}

// resolvePools builds the name-to-pool table and the per-step pool slices.
// Pool names are prefixed with the scenario name so independent scenarios
// never collide; steps sharing a name within one scenario share the pool.
func resolvePools(scenarios []*core.Scenario, cfg *config.EngineConfig, log *logrus.Logger) (map[string]*pool.Pool, map[string][]*pool.Pool) {
	pools := make(map[string]*pool.Pool)
	stepPools := make(map[string][]*pool.Pool, len(scenarios))

	for _, sc := range scenarios {
		slots := make([]*pool.Pool, len(sc.Steps))
		for i, step := range sc.Steps {
			if step.Pool == nil {
				continue
			}
			resolved := sc.Name + "." + step.Pool.Name
			p, ok := pools[resolved]
			if !ok {
				p = pool.New(resolved, step.Pool, log)
				if n := cfg.PoolCount(resolved); n > 0 {
					p.SetCount(n)
				}
				pools[resolved] = p
			}
			slots[i] = p
		}
		stepPools[sc.Name] = slots
	}
	return pools, stepPools
}

// openPools opens every distinct pool in parallel; the first failure wins
// and the caller rolls back the rest.
func openPools(ctx context.Context, pools map[string]*pool.Pool) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, p := range pools {
		p := p
		g.Go(func() error {
			return p.Init(gctx)
		})
	}
	return g.Wait()
}

func disposePools(ctx context.Context, pools map[string]*pool.Pool) {
	for _, p := range pools {
		p.Dispose(ctx)
	}
}

// runInits executes every scenario's init hook in parallel; any failure
// aborts the session.
func runInits(ctx context.Context, scenarios []*core.Scenario, log *logrus.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, sc := range scenarios {
		sc := sc
		if sc.Init == nil {
			continue
		}
		g.Go(func() error {
			sctx := scenarioContext(sc, log)
			if err := sc.Init(gctx, sctx); err != nil {
				return core.ErrInit{Scenario: sc.Name, Cause: err}
			}
			return nil
		})
	}
	return g.Wait()
}

// runCleans executes clean hooks best-effort; failures are logged, never
// propagated.
func runCleans(ctx context.Context, scenarios []*core.Scenario, log *logrus.Logger) {
	var wg sync.WaitGroup
	for _, sc := range scenarios {
		sc := sc
		if sc.Clean == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx := scenarioContext(sc, log)
			if err := sc.Clean(ctx, sctx); err != nil {
				log.WithField("scenario", sc.Name).WithError(err).Warn("clean hook failed")
			}
		}()
	}
	wg.Wait()
}

func scenarioContext(sc *core.Scenario, log *logrus.Logger) *core.ScenarioContext {
	return &core.ScenarioContext{
		ScenarioName:   sc.Name,
		CustomSettings: core.NewCustomSettings(sc.CustomSettings),
		Logger:         log.WithField("scenario", sc.Name),
	}
}

// runSchedulers launches one scheduler per runnable scenario in parallel
// and joins their errors. A warm-up abort in one scenario does not cancel
// the others.
func runSchedulers(ctx context.Context, scenarios []*core.Scenario, stepPools map[string][]*pool.Pool, agg *stats.Aggregator, clock core.Clock, log *logrus.Logger, opts scheduler.Options, stopTest func(string)) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(scenarios))

	for _, sc := range scenarios {
		sc := sc
		if len(sc.Steps) == 0 {
			continue
		}
		tl, err := timeline.Compile(sc.Name, sc.LoadSimulations)
		if err != nil {
			// Unreachable after validation; surface it anyway.
			errCh <- err
			continue
		}
		pipe := pipeline.New(sc, stepPools[sc.Name], agg, clock, log, stopTest)
		sched := scheduler.New(sc, tl, pipe, agg, clock, log, opts)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sched.Run(ctx); err != nil {
				errCh <- err
			}
		}()
	}

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
