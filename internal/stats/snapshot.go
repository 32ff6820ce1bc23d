package stats

import "time"

// NodeStats is a point-in-time view of every scenario's counters, suitable
// for reporting sinks.
type NodeStats struct {
	SessionID    string           `json:"sessionId"`
	Timestamp    time.Time        `json:"timestamp"`
	AllOkCount   int64            `json:"allOkCount"`
	AllFailCount int64            `json:"allFailCount"`
	AllDataMB    float64          `json:"allDataMB"`
	Scenarios    []*ScenarioStats `json:"scenarios"`
}

// ScenarioStats aggregates one scenario's steps.
type ScenarioStats struct {
	Name      string        `json:"name"`
	Duration  time.Duration `json:"duration"`
	OkCount   int64         `json:"okCount"`
	FailCount int64         `json:"failCount"`
	Steps     []*StepStats  `json:"steps"`
}

// StepStats is the per-(scenario, step) report row.
type StepStats struct {
	ScenarioName string        `json:"scenarioName"`
	StepName     string        `json:"stepName"`
	OkCount      int64         `json:"okCount"`
	FailCount    int64         `json:"failCount"`
	Min          time.Duration `json:"min"`
	Mean         time.Duration `json:"mean"`
	Max          time.Duration `json:"max"`
	P50          time.Duration `json:"p50"`
	P95          time.Duration `json:"p95"`
	P99          time.Duration `json:"p99"`
	RPS          float64       `json:"rps"`
	DataMinKB    float64       `json:"dataMinKB"`
	DataMeanKB   float64       `json:"dataMeanKB"`
	DataMaxKB    float64       `json:"dataMaxKB"`
	AllDataMB    float64       `json:"allDataMB"`
}

const (
	bytesPerKB = 1024.0
	bytesPerMB = 1024.0 * 1024.0
)

// Snapshot renders the current totals. Interleaving with concurrent Record
// calls is arbitrary; counts reflect outcomes observed up to this moment.
func (a *Aggregator) Snapshot() *NodeStats {
	a.mu.RLock()
	names := make([]string, len(a.order))
	copy(names, a.order)
	a.mu.RUnlock()

	node := &NodeStats{
		SessionID: a.sessionID,
		Timestamp: a.clock.Now(),
	}

	for _, name := range names {
		shard := a.scenario(name)
		sc := a.snapshotScenario(shard)
		node.AllOkCount += sc.OkCount
		node.AllFailCount += sc.FailCount
		for _, step := range sc.Steps {
			node.AllDataMB += step.AllDataMB
		}
		node.Scenarios = append(node.Scenarios, sc)
	}
	return node
}

func (a *Aggregator) snapshotScenario(shard *scenarioShard) *ScenarioStats {
	shard.mu.RLock()
	stepNames := make([]string, len(shard.order))
	copy(stepNames, shard.order)
	executed := shard.executed
	if !shard.finished {
		executed = a.clock.Since(shard.started)
	}
	shard.mu.RUnlock()

	sc := &ScenarioStats{Name: shard.name, Duration: executed}
	seconds := executed.Seconds()
	if seconds < 1 {
		seconds = 1
	}

	for _, stepName := range stepNames {
		shard.mu.RLock()
		step := shard.steps[stepName]
		shard.mu.RUnlock()

		ok := step.okCount.Load()
		fail := step.failCount.Load()
		allBytes := step.allBytes.Load()

		row := &StepStats{
			ScenarioName: shard.name,
			StepName:     stepName,
			OkCount:      ok,
			FailCount:    fail,
			Min:          time.Duration(step.latency.min()) * time.Microsecond,
			Mean:         time.Duration(step.latency.mean()) * time.Microsecond,
			Max:          time.Duration(step.latency.max()) * time.Microsecond,
			P50:          time.Duration(step.latency.quantile(50)) * time.Microsecond,
			P95:          time.Duration(step.latency.quantile(95)) * time.Microsecond,
			P99:          time.Duration(step.latency.quantile(99)) * time.Microsecond,
			RPS:          float64(ok) / seconds,
			DataMinKB:    float64(step.size.min()) / bytesPerKB,
			DataMeanKB:   step.size.mean() / bytesPerKB,
			DataMaxKB:    float64(step.size.max()) / bytesPerKB,
			AllDataMB:    float64(allBytes) / bytesPerMB,
		}
		sc.OkCount += ok
		sc.FailCount += fail
		sc.Steps = append(sc.Steps, row)
	}
	return sc
}
