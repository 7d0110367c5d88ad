package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics tracks lending engine transitions. It satisfies the engine's
// Metrics interface.
type LendingMetrics struct {
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_transitions_total",
				Help: "Count of applied lending state transitions by kind.",
			}, []string{"kind"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_rejections_total",
				Help: "Count of rejected lending state transitions by kind.",
			}, []string{"kind"}),
		}
		prometheus.MustRegister(
			lendingRegistry.transitions,
			lendingRegistry.rejections,
		)
	})
	return lendingRegistry
}

func (m *LendingMetrics) ObserveTransition(kind string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind).Inc()
}

func (m *LendingMetrics) ObserveRejection(kind string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(kind).Inc()
}
