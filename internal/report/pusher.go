package report

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"surge/internal/stats"
)

// Pusher periodically snapshots the aggregator and fans the result out to
// every sink. Sink failures are logged and do not interrupt the run.
type Pusher struct {
	agg      *stats.Aggregator
	sinks    []Sink
	interval time.Duration
	log      *logrus.Entry
	stopCh   chan struct{}
	stopped  atomic.Bool
}

func NewPusher(agg *stats.Aggregator, sinks []Sink, interval time.Duration, logger *logrus.Logger) *Pusher {
	if interval <= 0 {
		interval = DefaultSendInterval
	}
	return &Pusher{
		agg:      agg,
		sinks:    sinks,
		interval: interval,
		log:      logger.WithField("component", "report-pusher"),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the push loop. It returns immediately; the loop ends when
// ctx is cancelled or Stop is called.
func (p *Pusher) Start(ctx context.Context) {
	if len(p.sinks) == 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.push(ctx)
			}
		}
	}()
}

// Stop ends the loop and performs one final push so sinks observe the
// closing totals.
func (p *Pusher) Stop(ctx context.Context) {
	if p.stopped.Swap(true) {
		return
	}
	close(p.stopCh)
	if len(p.sinks) > 0 {
		p.push(ctx)
	}
}

func (p *Pusher) push(ctx context.Context) {
	node := p.agg.Snapshot()
	for _, sink := range p.sinks {
		if err := sink.Push(ctx, node); err != nil {
			p.log.WithField("sink", sink.Name()).WithError(err).Warn("pushing stats failed")
		}
	}
}
