package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pacer spaces open-model injections using a token-bucket limiter whose
// rate follows the timeline. A zero rate pauses injection entirely.
type pacer struct {
	limiter *rate.Limiter
	mu      sync.RWMutex
}

func newPacer(perSec float64) *pacer {
	return &pacer{
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// Wait blocks until the next injection is due. It returns false when the
// current rate is zero; callers should re-check after a short sleep.
func (p *pacer) Wait(ctx context.Context, idleTick time.Duration) (bool, error) {
	p.mu.RLock()
	limiter := p.limiter
	limit := limiter.Limit()
	p.mu.RUnlock()

	if limit <= 0 {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(idleTick):
			return false, nil
		}
	}
	if err := limiter.Wait(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (p *pacer) SetRate(perSec float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter.SetLimit(rate.Limit(perSec))
}
