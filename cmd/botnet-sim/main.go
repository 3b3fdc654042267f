package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-botnetsim/pkg/health"
	"github.com/dd0wney/cluso-botnetsim/pkg/logging"
	"github.com/dd0wney/cluso-botnetsim/pkg/metrics"
	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
	"github.com/dd0wney/cluso-botnetsim/pkg/pubsub"
	"github.com/dd0wney/cluso-botnetsim/pkg/report"
	"github.com/dd0wney/cluso-botnetsim/pkg/scenario"
	"github.com/dd0wney/cluso-botnetsim/pkg/stream"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailed    = 1 // an invariant failed
	exitUsage     = 2
	exitRunFailed = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, logging.DefaultLogger())
	stop()
	os.Exit(code)
}

type options struct {
	scenarioPath string
	jsonOut      bool
	outDir       string
	compress     bool
	metricsAddr  string
	streamAddr   string
	linger       time.Duration
	progress     bool

	nodes, seeds, steps, workers        int
	edgeProb, infectionProb, recoveryProb float64
	seed                                uint64
}

func parseFlags(args []string, stderr io.Writer) (*options, *flag.FlagSet, error) {
	fs := flag.NewFlagSet("botnet-sim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.scenarioPath, "scenario", "", "Scenario YAML file (defaults apply when empty)")
	fs.IntVar(&o.nodes, "nodes", scenario.DefaultNodes, "Number of IoT devices")
	fs.Float64Var(&o.edgeProb, "edge-prob", scenario.DefaultEdgeProb, "Probability of each directed link")
	fs.Float64Var(&o.infectionProb, "infection-prob", scenario.DefaultInfectionProb, "Per-link infection probability per tick")
	fs.Float64Var(&o.recoveryProb, "recovery-prob", scenario.DefaultRecoveryProb, "Per-node recovery probability per tick")
	fs.IntVar(&o.seeds, "seeds", scenario.DefaultNumSeeds, "Number of initially infected devices")
	fs.IntVar(&o.steps, "steps", scenario.DefaultSteps, "Number of ticks to simulate")
	fs.Uint64Var(&o.seed, "seed", 0, "Random seed (0 derives one from the clock)")
	fs.IntVar(&o.workers, "workers", 0, "Parallel workers for each tick (0 or 1 = sequential)")
	fs.BoolVar(&o.jsonOut, "json", false, "Write the report as JSON")
	fs.StringVar(&o.outDir, "out", "", "Directory for exported artifacts")
	fs.BoolVar(&o.compress, "compress", false, "Snappy-compress the exported JSON document")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	fs.StringVar(&o.streamAddr, "stream-addr", "", "Publish tick events on this mangos address (e.g. tcp://127.0.0.1:40899)")
	fs.DurationVar(&o.linger, "linger", 0, "Keep the metrics endpoint up this long after the run")
	fs.BoolVar(&o.progress, "progress", false, "Print one line per tick to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return o, fs, nil
}

// buildScenario loads the scenario file, if any, then applies only the
// flags given on the command line.
func buildScenario(o *options, fs *flag.FlagSet) (scenario.Scenario, error) {
	s := scenario.Default()
	if o.scenarioPath != "" {
		loaded, err := scenario.Load(o.scenarioPath)
		if err != nil {
			return s, err
		}
		s = loaded
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "nodes":
			s.Graph.Nodes = o.nodes
		case "edge-prob":
			s.Graph.EdgeProb = o.edgeProb
		case "infection-prob":
			s.Propagation.InfectionProb = o.infectionProb
		case "recovery-prob":
			s.Propagation.RecoveryProb = o.recoveryProb
		case "seeds":
			s.Propagation.NumSeeds = o.seeds
			s.Propagation.SeedNodes = nil
		case "steps":
			s.Propagation.Steps = o.steps
		case "seed":
			s.Seed = o.seed
		case "workers":
			s.Propagation.Workers = o.workers
		case "out":
			s.Export.Dir = o.outDir
		case "compress":
			s.Export.Compress = o.compress
		}
	})

	return s, s.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, logger logging.Logger) int {
	o, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	s, err := buildScenario(o, fs)
	if err != nil {
		fmt.Fprintf(stderr, "Invalid scenario: %v\n", err)
		return exitUsage
	}

	startTime := time.Now()
	runID := uuid.NewString()
	logger = logging.OrNop(logger).With(logging.Component("botnet-sim"), logging.RunID(runID))
	reg := metrics.NewRegistry()

	var latest lastResult
	tracker := health.NewRunTracker()
	if o.metricsAddr != "" {
		srv := newMetricsServer(o.metricsAddr, reg, newHealthChecker(tracker), &latest, startTime)
		go func() {
			logger.Info("metrics endpoint listening", logging.String("addr", o.metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics endpoint failed", logging.Error(err))
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	observers := []propagation.Observer{tracker}

	var pub *stream.Publisher
	if o.streamAddr != "" {
		pub, err = stream.NewPublisher(o.streamAddr, stream.WithLogger(logger), stream.WithRecorder(reg))
		if err != nil {
			fmt.Fprintf(stderr, "Failed to open stream: %v\n", err)
			return exitRunFailed
		}
		defer pub.Close()
		observers = append(observers, pub.Observer())
	}

	var progressDone sync.WaitGroup
	if o.progress {
		bus := pubsub.NewPubSubWithBuffer(s.Propagation.Steps + 1)
		sub, err := bus.Subscribe(ctx, runID)
		if err != nil {
			fmt.Fprintf(stderr, "Failed to subscribe: %v\n", err)
			return exitRunFailed
		}
		observers = append(observers, bus.Observer(""))
		progressDone.Add(1)
		go func() {
			defer progressDone.Done()
			for ev := range sub.Channel() {
				fmt.Fprintf(stderr, "tick %4d  infected %6d/%d  +%d -%d\n",
					ev.Tick, ev.Infected, ev.Nodes, ev.NewInfections, ev.Recoveries)
			}
		}()
		defer func() {
			bus.Shutdown()
			progressDone.Wait()
		}()
	}

	tracker.Start(runID, s.Propagation.Steps)
	res, runErr := scenario.Run(ctx, s, scenario.RunOptions{
		RunID:     runID,
		Logger:    logger,
		Metrics:   reg,
		Observers: observers,
	})
	reg.UpdateSystemMetrics(startTime)
	if res == nil {
		tracker.Finish(false, runErr)
		fmt.Fprintf(stderr, "Simulation failed: %v\n", runErr)
		return exitRunFailed
	}
	latest.set(res)
	tracker.Finish(res.Success, runErr)

	if pub != nil {
		done := stream.RunDone{RunID: res.RunID, Ticks: len(res.History), FinalInfected: res.FinalInfected, Success: res.Success}
		if err := pub.PublishDone(done); err != nil {
			logger.Warn("failed to publish run completion", logging.Error(err))
		}
	}

	format := report.FormatText
	if o.jsonOut {
		format = report.FormatJSON
	}
	if err := report.Write(stdout, res, format); err != nil {
		fmt.Fprintf(stderr, "Failed to write report: %v\n", err)
		return exitRunFailed
	}

	if o.metricsAddr != "" && o.linger > 0 {
		logger.Info("lingering for metrics scrape", logging.Duration("linger", o.linger))
		select {
		case <-time.After(o.linger):
		case <-ctx.Done():
		}
	}

	if runErr != nil {
		fmt.Fprintf(stderr, "Export failed: %v\n", runErr)
		return exitRunFailed
	}
	if !res.Success {
		return exitFailed
	}
	return exitOK
}

// lastResult holds the most recent run for the HTTP endpoint.
type lastResult struct {
	mu  sync.RWMutex
	res *scenario.Result
}

func (l *lastResult) set(res *scenario.Result) {
	l.mu.Lock()
	l.res = res
	l.mu.Unlock()
}

func (l *lastResult) get() *scenario.Result {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.res
}

func newHealthChecker(tracker *health.RunTracker) *health.HealthChecker {
	hc := health.NewHealthChecker()
	hc.RegisterCheck("run", health.RunProgressCheck(tracker))
	hc.RegisterCheck("memory", health.MemoryCheck(health.RuntimeMemory))
	hc.RegisterReadinessCheck("run_complete", health.RunCompleteCheck(tracker))
	hc.RegisterLivenessCheck("process", func() health.Check {
		return health.SimpleCheck("process")
	})
	return hc
}

func newMetricsServer(addr string, reg *metrics.Registry, hc *health.HealthChecker, latest *lastResult, startTime time.Time) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.UpdateSystemMetrics(startTime)
		reg.Handler().ServeHTTP(w, r)
	}))
	mux.HandleFunc("/health", hc.HTTPHandler())
	mux.HandleFunc("/health/ready", hc.ReadinessHandler())
	mux.HandleFunc("/health/live", hc.LivenessHandler())
	mux.HandleFunc("/runs/latest", func(w http.ResponseWriter, r *http.Request) {
		res := latest.get()
		if res == nil {
			http.Error(w, "no completed run", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
