package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// initRuntimeMetrics registers the process gauges refreshed by
// UpdateSystemMetrics before each scrape.
func (r *Registry) initRuntimeMetrics() {
	r.UptimeSeconds = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "botnetsim_uptime_seconds",
			Help: "Seconds since the simulator process started",
		},
	)

	r.GoRoutines = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "botnetsim_goroutines",
			Help: "Goroutines alive, including tick workers",
		},
	)

	r.HeapAllocBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "botnetsim_heap_alloc_bytes",
			Help: "Bytes of live heap, dominated by node state and adjacency",
		},
	)

	r.HeapObjects = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "botnetsim_heap_objects",
			Help: "Number of allocated heap objects",
		},
	)

	r.GCCycles = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "botnetsim_gc_cycles",
			Help: "Completed garbage collection cycles",
		},
	)
}
