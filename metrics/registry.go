package metrics

import (
	"cmp"
	"slices"
	"sync"
)

// Registry indexes metrics by name, creating them on first use.
type Registry struct {
	mu      sync.Mutex
	metrics map[string]any // *Counter, *Gauge or *Histogram
}

// DefaultRegistry holds the metrics declared in standard.go.
var DefaultRegistry = NewRegistry()

func NewRegistry() *Registry {
	return &Registry{metrics: make(map[string]any)}
}

// lookup returns the metric called name if it has type T, or registers the
// result of create. A name taken by another metric type panics.
func lookup[T any](r *Registry, name string, create func(string) *T) *T {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.metrics[name]; ok {
		typed, ok := m.(*T)
		if !ok {
			panic("metrics: " + name + " registered with another type")
		}
		return typed
	}
	m := create(name)
	r.metrics[name] = m
	return m
}

func (r *Registry) Counter(name string) *Counter { return lookup(r, name, NewCounter) }

func (r *Registry) Gauge(name string) *Gauge { return lookup(r, name, NewGauge) }

func (r *Registry) Histogram(name string) *Histogram { return lookup(r, name, NewHistogram) }

// Sample is one metric's reading.
type Sample struct {
	Name  string
	Kind  string  // counter, gauge or histogram
	Value float64 // histogram mean
	Count int64   // histograms only
}

// Snapshot reads every metric, ordered by name.
func (r *Registry) Snapshot() []Sample {
	r.mu.Lock()
	samples := make([]Sample, 0, len(r.metrics))
	for name, m := range r.metrics {
		s := Sample{Name: name}
		switch m := m.(type) {
		case *Counter:
			s.Kind, s.Value = "counter", float64(m.Value())
		case *Gauge:
			s.Kind, s.Value = "gauge", float64(m.Value())
		case *Histogram:
			st := m.Stats()
			s.Kind, s.Value, s.Count = "histogram", st.Mean(), st.Count
		}
		samples = append(samples, s)
	}
	r.mu.Unlock()
	slices.SortFunc(samples, func(a, b Sample) int { return cmp.Compare(a.Name, b.Name) })
	return samples
}
