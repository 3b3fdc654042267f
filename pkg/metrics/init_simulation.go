package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "botnetsim_graph_nodes",
			Help: "Number of devices in the generated graph",
		},
	)

	r.GraphEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "botnetsim_graph_edges",
			Help: "Number of directed links in the generated graph",
		},
	)

	r.GraphDevices = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "botnetsim_graph_devices",
			Help: "Number of devices per device type",
		},
		[]string{"device_type"},
	)
}

func (r *Registry) initSimulationMetrics() {
	r.InfectedNodes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "botnetsim_infected_nodes",
			Help: "Infected nodes at the start of the latest tick",
		},
	)

	r.InfectedPeak = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "botnetsim_infected_peak",
			Help: "Highest infected count observed in the current run",
		},
	)

	r.TicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "botnetsim_ticks_total",
			Help: "Total number of simulated ticks",
		},
	)

	r.SeedsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "botnetsim_seed_infections_total",
			Help: "Total number of nodes infected by seeding",
		},
	)

	r.InfectionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "botnetsim_infections_total",
			Help: "Total number of clean-to-infected transitions",
		},
	)

	r.RecoveriesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "botnetsim_recoveries_total",
			Help: "Total number of infected-to-clean transitions",
		},
	)

	r.TickInterval = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "botnetsim_tick_interval_seconds",
			Help:    "Wall time between consecutive tick events",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0},
		},
	)

	r.RunsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "botnetsim_runs_total",
			Help: "Total number of scenario runs",
		},
		[]string{"status"},
	)

	r.RunDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "botnetsim_run_duration_seconds",
			Help:    "Scenario run duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
	)
}

func (r *Registry) initExportMetrics() {
	r.ExportsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "botnetsim_exports_total",
			Help: "Total number of artifact exports",
		},
		[]string{"sink", "status"},
	)

	r.ExportBytesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "botnetsim_export_bytes_total",
			Help: "Total bytes written by artifact exports",
		},
		[]string{"sink"},
	)

	r.StreamEventsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "botnetsim_stream_events_total",
			Help: "Tick events sent on the network stream",
		},
		[]string{"status"},
	)
}
