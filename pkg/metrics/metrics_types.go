package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the simulator
type Registry struct {
	// Graph Metrics
	GraphNodes   prometheus.Gauge
	GraphEdges   prometheus.Gauge
	GraphDevices *prometheus.GaugeVec

	// Simulation Metrics
	InfectedNodes   prometheus.Gauge
	InfectedPeak    prometheus.Gauge
	TicksTotal      prometheus.Counter
	SeedsTotal      prometheus.Counter
	InfectionsTotal prometheus.Counter
	RecoveriesTotal prometheus.Counter
	TickInterval    prometheus.Histogram
	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram

	// Export Metrics
	ExportsTotal      *prometheus.CounterVec
	ExportBytesTotal  *prometheus.CounterVec
	StreamEventsTotal *prometheus.CounterVec

	// Runtime Metrics
	UptimeSeconds  prometheus.Gauge
	GoRoutines     prometheus.Gauge
	HeapAllocBytes prometheus.Gauge
	HeapObjects    prometheus.Gauge
	GCCycles       prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.Mutex
	peak     int
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initGraphMetrics()
	r.initSimulationMetrics()
	r.initExportMetrics()
	r.initRuntimeMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
