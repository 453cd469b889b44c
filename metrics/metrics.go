// Package metrics holds the in-process counters of the relay components.
// Registries report every accepted and rejected transition here; the
// values are read back through Registry.Snapshot.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type named struct{ name string }

// Name returns the metric name.
func (n named) Name() string { return n.name }

// Counter only goes up.
type Counter struct {
	named
	n atomic.Int64
}

func NewCounter(name string) *Counter { return &Counter{named: named{name}} }

// Inc adds one.
func (c *Counter) Inc() { c.n.Add(1) }

// Add adds delta; negative and zero deltas are dropped.
func (c *Counter) Add(delta int64) {
	if delta <= 0 {
		return
	}
	c.n.Add(delta)
}

func (c *Counter) Value() int64 { return c.n.Load() }

// Gauge holds the last value set.
type Gauge struct {
	named
	v atomic.Int64
}

func NewGauge(name string) *Gauge { return &Gauge{named: named{name}} }

func (g *Gauge) Set(v int64) { g.v.Store(v) }

func (g *Gauge) Value() int64 { return g.v.Load() }

// HistogramStats summarizes a Histogram's observations.
type HistogramStats struct {
	Count int64
	Sum   float64
	Max   float64
}

// Mean is Sum/Count, or 0 without observations.
func (s HistogramStats) Mean() float64 {
	if s.Count == 0 {
		return 0
	}
	return s.Sum / float64(s.Count)
}

// Histogram accumulates observations into HistogramStats.
type Histogram struct {
	named
	mu    sync.Mutex
	stats HistogramStats
}

func NewHistogram(name string) *Histogram { return &Histogram{named: named{name}} }

// Observe records v.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	if h.stats.Count == 0 || v > h.stats.Max {
		h.stats.Max = v
	}
	h.stats.Count++
	h.stats.Sum += v
	h.mu.Unlock()
}

// Stats returns a copy of the accumulated statistics.
func (h *Histogram) Stats() HistogramStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

func (h *Histogram) Count() int64 { return h.Stats().Count }
func (h *Histogram) Mean() float64 { return h.Stats().Mean() }
func (h *Histogram) Max() float64 { return h.Stats().Max }

// Timer measures one operation in microseconds.
type Timer struct {
	into  *Histogram
	begin time.Time
}

// NewTimer starts timing; Stop records into h.
func NewTimer(h *Histogram) *Timer { return &Timer{into: h, begin: time.Now()} }

// Stop records the elapsed time and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.begin)
	if t.into != nil {
		t.into.Observe(float64(elapsed.Microseconds()))
	}
	return elapsed
}
