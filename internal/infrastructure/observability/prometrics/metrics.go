package prometrics

import (
	"errors"
	"sync"

	"github.com/h4food/foodmarket/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry turns metric specs into Prometheus collectors registered on reg.
type Registry struct {
	reg        prometheus.Registerer
	namespace  string
	mu         sync.Mutex
	counters   map[observability.MetricKey]*prometheus.CounterVec
	histograms map[observability.MetricKey]*prometheus.HistogramVec
}

func New(reg prometheus.Registerer, namespace string) *Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &Registry{
		reg:        reg,
		namespace:  namespace,
		counters:   make(map[observability.MetricKey]*prometheus.CounterVec),
		histograms: make(map[observability.MetricKey]*prometheus.HistogramVec),
	}
}

type counter struct{ v *prometheus.CounterVec }

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

type histogram struct{ v *prometheus.HistogramVec }

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}

// Counter registers spec once and returns the shared instrument on later calls.
func (r *Registry) Counter(spec observability.MetricSpec) (observability.Counter, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.counters[spec.Key]; ok {
		return &counter{v: v}, nil
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Name: string(spec.Key), Help: spec.Help,
	}, spec.Labels)
	if err := r.reg.Register(cv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		cv = existing
	}
	r.counters[spec.Key] = cv
	return &counter{v: cv}, nil
}

func (r *Registry) Histogram(spec observability.MetricSpec) (observability.Histogram, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if v, ok := r.histograms[spec.Key]; ok {
		return &histogram{v: v}, nil
	}
	buckets := spec.Buckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Name: string(spec.Key), Help: spec.Help, Buckets: buckets,
	}, spec.Labels)
	if err := r.reg.Register(hv); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, err
		}
		hv = existing
	}
	r.histograms[spec.Key] = hv
	return &histogram{v: hv}, nil
}
