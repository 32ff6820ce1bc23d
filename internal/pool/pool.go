// Package pool manages named bounded sets of externally-opened connections
// shared across the steps of a session.
package pool

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"surge/internal/core"
)

// Pool holds count connections opened once at session start. Virtual users
// read slots by copy number; they never take exclusive ownership.
type Pool struct {
	name  string
	args  *core.PoolArgs
	conns []any
	log   *logrus.Entry
}

// New creates an unopened pool. name is the resolved pool name, already
// prefixed with the scenario name.
func New(name string, args *core.PoolArgs, logger *logrus.Logger) *Pool {
	return &Pool{
		name: name,
		args: args,
		log:  logger.WithField("pool", name),
	}
}

// Name returns the resolved pool name.
func (p *Pool) Name() string { return p.name }

// Count returns the configured connection count.
func (p *Pool) Count() int { return p.args.Count }

// SetCount overrides the connection count before Init. Used when external
// settings resize a pool.
func (p *Pool) SetCount(n int) {
	if n > 0 {
		p.args.Count = n
	}
}

// Init opens all connections in parallel. On any failure the already-opened
// connections are closed and the first error is returned.
func (p *Pool) Init(ctx context.Context) error {
	count := p.args.Count
	if count <= 0 {
		count = 1
		p.args.Count = count
	}
	p.conns = make([]any, count)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		g.Go(func() error {
			conn, err := p.args.Open(gctx, i)
			if err != nil {
				return core.ErrPoolOpen{Pool: p.name, Index: i, Cause: err}
			}
			mu.Lock()
			p.conns[i] = conn
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		p.Dispose(ctx)
		p.conns = nil
		return err
	}
	p.log.WithField("count", count).Info("connection pool opened")
	return nil
}

// Get returns the slot for a copy number. Never allocates and never fails
// after a successful Init.
func (p *Pool) Get(copyNumber int) any {
	return p.conns[copyNumber%len(p.conns)]
}

// Dispose closes every opened connection. Individual close failures are
// logged at warn level and do not fail the session.
func (p *Pool) Dispose(ctx context.Context) {
	if p.args.Close == nil {
		return
	}
	for i, conn := range p.conns {
		if conn == nil {
			continue
		}
		if err := p.args.Close(ctx, conn); err != nil {
			p.log.WithField("index", i).WithError(err).Warn("closing connection failed")
		}
	}
}
