package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// safeHistogram is a thread-safe wrapper around hdrhistogram.
type safeHistogram struct {
	hist *hdrhistogram.Histogram
	mu   sync.Mutex
}

// newLatencyHistogram tracks values from 1us to 10min at 3 significant figures.
func newLatencyHistogram() *safeHistogram {
	return &safeHistogram{
		hist: hdrhistogram.New(1, int64(10*time.Minute/time.Microsecond), 3),
	}
}

// newSizeHistogram tracks byte counts from 1B to 1GB at 3 significant figures.
func newSizeHistogram() *safeHistogram {
	return &safeHistogram{
		hist: hdrhistogram.New(1, 1<<30, 3),
	}
}

func (h *safeHistogram) record(v int64) {
	if v < 1 {
		v = 1
	}
	h.mu.Lock()
	// RecordValue only fails for out-of-range values; those are dropped.
	_ = h.hist.RecordValue(v)
	h.mu.Unlock()
}

func (h *safeHistogram) min() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.hist.TotalCount() == 0 {
		return 0
	}
	return h.hist.Min()
}

func (h *safeHistogram) max() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.Max()
}

func (h *safeHistogram) mean() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.Mean()
}

func (h *safeHistogram) quantile(q float64) int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.ValueAtQuantile(q)
}

func (h *safeHistogram) reset() {
	h.mu.Lock()
	h.hist.Reset()
	h.mu.Unlock()
}
