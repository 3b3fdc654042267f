package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}

	if r.GraphNodes == nil {
		t.Error("GraphNodes not initialized")
	}
	if r.InfectedNodes == nil {
		t.Error("InfectedNodes not initialized")
	}
	if r.RunsTotal == nil {
		t.Error("RunsTotal not initialized")
	}
	if r.ExportsTotal == nil {
		t.Error("ExportsTotal not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestRecordGraph(t *testing.T) {
	r := NewRegistry()

	g, err := iotgraph.Generate(30, 0.1, iotgraph.WithSeed(4))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := g.Summary()
	r.RecordGraph(s)

	if got := gaugeValue(t, r.GraphNodes); got != 30 {
		t.Errorf("GraphNodes = %v, want 30", got)
	}
	if got := gaugeValue(t, r.GraphEdges); got != float64(s.Edges) {
		t.Errorf("GraphEdges = %v, want %d", got, s.Edges)
	}

	total := 0.0
	for _, dt := range iotgraph.DeviceTypes {
		total += testutil.ToFloat64(r.GraphDevices.WithLabelValues(dt.String()))
	}
	if total != 30 {
		t.Errorf("device gauges sum to %v, want 30", total)
	}
}

func TestRecordTickAndPeak(t *testing.T) {
	r := NewRegistry()
	r.StartRun()

	r.RecordTick(propagation.TickEvent{Tick: 0, Infected: 3, NewInfections: 4, Recoveries: 1})
	r.RecordTick(propagation.TickEvent{Tick: 1, Infected: 6, NewInfections: 2, Recoveries: 0})
	r.RecordTick(propagation.TickEvent{Tick: 2, Infected: 8, NewInfections: 0, Recoveries: 5})

	if got := counterValue(t, r.TicksTotal); got != 3 {
		t.Errorf("TicksTotal = %v, want 3", got)
	}
	if got := counterValue(t, r.InfectionsTotal); got != 6 {
		t.Errorf("InfectionsTotal = %v, want 6", got)
	}
	if got := counterValue(t, r.RecoveriesTotal); got != 6 {
		t.Errorf("RecoveriesTotal = %v, want 6", got)
	}
	if got := gaugeValue(t, r.InfectedNodes); got != 8 {
		t.Errorf("InfectedNodes = %v, want 8", got)
	}
	if got := gaugeValue(t, r.InfectedPeak); got != 8 {
		t.Errorf("InfectedPeak = %v, want 8", got)
	}

	r.StartRun()
	if got := gaugeValue(t, r.InfectedPeak); got != 0 {
		t.Errorf("InfectedPeak after StartRun = %v, want 0", got)
	}
}

func TestObserverRecordsEngineRun(t *testing.T) {
	r := NewRegistry()

	g, err := iotgraph.FromEdges(5, [][2]int{{0, 1}, {1, 2}})
	if err != nil {
		t.Fatalf("FromEdges: %v", err)
	}
	e, err := propagation.New(g, propagation.Config{InfectionProb: 1}, propagation.WithObserver(r.Observer()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer e.Close()

	if err := e.InfectNodes(0); err != nil {
		t.Fatalf("InfectNodes: %v", err)
	}
	if err := e.Run(context.Background(), 3); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := counterValue(t, r.TicksTotal); got != 3 {
		t.Errorf("TicksTotal = %v, want 3", got)
	}
	if got := counterValue(t, r.InfectionsTotal); got != 2 {
		t.Errorf("InfectionsTotal = %v, want 2", got)
	}
	if got := gaugeValue(t, r.InfectedPeak); got != 3 {
		t.Errorf("InfectedPeak = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(r.TickInterval); n != 1 {
		t.Errorf("TickInterval families = %d, want 1", n)
	}
}

func TestRecordRunAndExport(t *testing.T) {
	r := NewRegistry()

	r.RecordRun("success", 120*time.Millisecond)
	r.RecordRun("success", 80*time.Millisecond)
	r.RecordRun("invariant_failed", 10*time.Millisecond)
	r.RecordSeeds(3)
	r.RecordExport("file", "success", 2048)
	r.RecordExport("s3", "error", 0)
	r.RecordStreamEvent("sent")

	if got := testutil.ToFloat64(r.RunsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("runs{success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.RunsTotal.WithLabelValues("invariant_failed")); got != 1 {
		t.Errorf("runs{invariant_failed} = %v, want 1", got)
	}
	if got := counterValue(t, r.SeedsTotal); got != 3 {
		t.Errorf("SeedsTotal = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.ExportBytesTotal.WithLabelValues("file")); got != 2048 {
		t.Errorf("export bytes{file} = %v, want 2048", got)
	}
	if got := testutil.ToFloat64(r.ExportsTotal.WithLabelValues("s3", "error")); got != 1 {
		t.Errorf("exports{s3,error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.StreamEventsTotal.WithLabelValues("sent")); got != 1 {
		t.Errorf("stream events{sent} = %v, want 1", got)
	}

	var metric dto.Metric
	if err := r.RunDuration.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 3 {
		t.Errorf("RunDuration count = %d, want 3", metric.Histogram.GetSampleCount())
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics(time.Now().Add(-5 * time.Second))

	if got := gaugeValue(t, r.UptimeSeconds); got < 5 {
		t.Errorf("UptimeSeconds = %v, want >= 5", got)
	}
	if got := gaugeValue(t, r.GoRoutines); got < 1 {
		t.Errorf("GoRoutines = %v, want >= 1", got)
	}
	if got := gaugeValue(t, r.HeapAllocBytes); got <= 0 {
		t.Errorf("HeapAllocBytes = %v, want > 0", got)
	}
	if got := gaugeValue(t, r.HeapObjects); got <= 0 {
		t.Errorf("HeapObjects = %v, want > 0", got)
	}
}

func TestGetPrometheusRegistry(t *testing.T) {
	r := NewRegistry()
	promRegistry := r.GetPrometheusRegistry()

	if promRegistry == nil {
		t.Fatal("GetPrometheusRegistry() returned nil")
	}

	metrics, err := promRegistry.Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	expectedMetrics := []string{
		"botnetsim_graph_nodes",
		"botnetsim_infected_nodes",
		"botnetsim_ticks_total",
		"botnetsim_uptime_seconds",
	}

	metricNames := make(map[string]bool)
	for _, m := range metrics {
		metricNames[m.GetName()] = true
	}

	for _, expected := range expectedMetrics {
		if !metricNames[expected] {
			t.Errorf("Expected metric %s not found", expected)
		}
	}
}

func TestHandlerServesExposition(t *testing.T) {
	r := NewRegistry()
	r.RecordTick(propagation.TickEvent{Infected: 7})

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "botnetsim_infected_nodes 7") {
		t.Errorf("exposition missing infected gauge:\n%s", body)
	}
}
