package metrics

import (
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
)

// RecordGraph publishes the size and device mix of a generated graph
func (r *Registry) RecordGraph(s iotgraph.Summary) {
	r.GraphNodes.Set(float64(s.Nodes))
	r.GraphEdges.Set(float64(s.Edges))
	for _, dt := range iotgraph.DeviceTypes {
		r.GraphDevices.WithLabelValues(dt.String()).Set(float64(s.DeviceCounts[dt]))
	}
}

// StartRun resets the per-run gauges
func (r *Registry) StartRun() {
	r.mu.Lock()
	r.peak = 0
	r.mu.Unlock()

	r.InfectedPeak.Set(0)
	r.InfectedNodes.Set(0)
}

// RecordSeeds counts nodes infected by seeding
func (r *Registry) RecordSeeds(n int) {
	r.SeedsTotal.Add(float64(n))
}

// RecordTick records one tick event
func (r *Registry) RecordTick(ev propagation.TickEvent) {
	r.TicksTotal.Inc()
	r.InfectedNodes.Set(float64(ev.Infected))
	r.InfectionsTotal.Add(float64(ev.NewInfections))
	r.RecoveriesTotal.Add(float64(ev.Recoveries))

	r.mu.Lock()
	if ev.Infected > r.peak {
		r.peak = ev.Infected
		r.InfectedPeak.Set(float64(r.peak))
	}
	r.mu.Unlock()
}

// RecordRun records a completed scenario run
func (r *Registry) RecordRun(status string, duration time.Duration) {
	r.RunsTotal.WithLabelValues(status).Inc()
	r.RunDuration.Observe(duration.Seconds())
}

// RecordExport records an artifact write to a sink
func (r *Registry) RecordExport(sink, status string, bytes int) {
	r.ExportsTotal.WithLabelValues(sink, status).Inc()
	if bytes > 0 {
		r.ExportBytesTotal.WithLabelValues(sink).Add(float64(bytes))
	}
}

// RecordStreamEvent records a tick event sent (or failed) on the network stream
func (r *Registry) RecordStreamEvent(status string) {
	r.StreamEventsTotal.WithLabelValues(status).Inc()
}

// UpdateSystemMetrics refreshes uptime and Go runtime gauges
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.HeapAllocBytes.Set(float64(m.HeapAlloc))
	r.HeapObjects.Set(float64(m.HeapObjects))
	r.GCCycles.Set(float64(m.NumGC))
}

// Handler serves this registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Observer returns a propagation.Observer that records every tick and the
// wall time between consecutive ticks.
func (r *Registry) Observer() propagation.Observer {
	var last time.Time
	return propagation.ObserverFunc(func(ev propagation.TickEvent) {
		now := time.Now()
		if !last.IsZero() {
			r.TickInterval.Observe(now.Sub(last).Seconds())
		}
		last = now
		r.RecordTick(ev)
	})
}
