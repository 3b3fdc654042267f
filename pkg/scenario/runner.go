package scenario

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-botnetsim/pkg/analysis"
	"github.com/dd0wney/cluso-botnetsim/pkg/export"
	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
	"github.com/dd0wney/cluso-botnetsim/pkg/logging"
	"github.com/dd0wney/cluso-botnetsim/pkg/metrics"
	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
)

// Run statuses reported to metrics.
const (
	StatusSuccess   = "success"
	StatusFailed    = "invariant_failed"
	StatusCancelled = "cancelled"
	StatusError     = "error"
)

// RunOptions carries the collaborators of a run. All fields are optional.
type RunOptions struct {
	RunID     string
	Logger    logging.Logger
	Metrics   *metrics.Registry
	Observers []propagation.Observer
	// Exporter overrides the sinks built from the scenario's export section.
	Exporter *export.Exporter
}

// Run executes s end to end. Invalid scenarios fail before any work is
// done. An export failure returns the complete Result together with the
// error; any other failure returns a nil Result.
func Run(ctx context.Context, s Scenario, opts RunOptions) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	seed := s.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	// collaborators add their own component and run fields
	base := logging.OrNop(opts.Logger).With(logging.Seed(seed))
	logger := base.With(logging.Component("scenario"), logging.RunID(runID))
	logger.Info("starting scenario",
		logging.String("scenario", s.Name),
		logging.Float64("infection_prob", s.Propagation.InfectionProb),
		logging.Float64("recovery_prob", s.Propagation.RecoveryProb),
		logging.Int("steps", s.Propagation.Steps))

	start := time.Now()
	reg := opts.Metrics
	res, e, err := simulate(ctx, s, seed, runID, opts, base, logger)
	if err != nil {
		status := StatusError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = StatusCancelled
		}
		if reg != nil {
			reg.RecordRun(status, time.Since(start))
		}
		logger.Error("scenario failed", logging.String("status", status), logging.Error(err))
		return nil, err
	}
	defer e.Close()

	EvaluateInvariants(res, s.Invariants)
	res.Duration = time.Since(start)

	status := StatusSuccess
	if !res.Success {
		status = StatusFailed
	}
	if reg != nil {
		reg.RecordRun(status, res.Duration)
	}
	logger.Info("scenario complete",
		logging.String("status", status),
		logging.Int("final_infected", res.FinalInfected),
		logging.Int("peak_infected", res.Peak),
		logging.Float64("attack_rate", res.AttackRate),
		logging.Latency(res.Duration))

	exporter := opts.Exporter
	if exporter == nil {
		exporter, err = BuildExporter(ctx, s.Export, reg, base.With(logging.RunID(runID)))
		if err != nil {
			return res, err
		}
	}
	if exporter != nil {
		artifacts, err := exporter.Export(ctx, export.NewDocument(runID, e, res.Seeds))
		for _, a := range artifacts {
			res.Artifacts = append(res.Artifacts, a.Key)
		}
		if err != nil {
			return res, fmt.Errorf("run %s: export: %w", runID, err)
		}
	}

	return res, nil
}

// simulate builds the graph, seeds the engine and runs it to completion.
// The returned engine is still open for export.
func simulate(ctx context.Context, s Scenario, seed uint64, runID string, opts RunOptions,
	base, logger logging.Logger) (*Result, *propagation.Engine, error) {
	reg := opts.Metrics
	g, err := buildGraph(s, seed, base)
	if err != nil {
		return nil, nil, err
	}
	summary := g.Summary()
	logger.Info("graph generated",
		logging.Nodes(summary.Nodes),
		logging.Edges(summary.Edges),
		logging.Any("device_counts", summary.DeviceCounts))
	if reg != nil {
		reg.RecordGraph(summary)
		reg.StartRun()
	}

	engineOpts := []propagation.Option{
		propagation.WithLogger(base),
		propagation.WithRunID(runID),
	}
	if reg != nil {
		engineOpts = append(engineOpts, propagation.WithObserver(reg.Observer()))
	}
	for _, o := range opts.Observers {
		engineOpts = append(engineOpts, propagation.WithObserver(o))
	}

	e, err := propagation.New(g, propagation.Config{
		InfectionProb: s.Propagation.InfectionProb,
		RecoveryProb:  s.Propagation.RecoveryProb,
		Seed:          seed,
		Workers:       s.Propagation.Workers,
	}, engineOpts...)
	if err != nil {
		return nil, nil, err
	}

	seeds, err := seedEngine(e, s.Propagation)
	if err != nil {
		e.Close()
		return nil, nil, err
	}
	if reg != nil {
		reg.RecordSeeds(len(seeds))
	}

	if err := e.Run(ctx, s.Propagation.Steps); err != nil {
		e.Close()
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}

	res := &Result{
		RunID:         runID,
		ScenarioName:  s.Name,
		Seed:          seed,
		Summary:       summary,
		Seeds:         seeds,
		History:       e.History(),
		FinalInfected: e.InfectedCount(),
		EverInfected:  e.EverInfected(),
	}
	res.Peak, res.PeakTick = peak(res.History, res.FinalInfected)
	res.AttackRate = res.fraction(res.EverInfected)

	if err := analyze(res, g, s.Analysis); err != nil {
		e.Close()
		return nil, nil, err
	}
	return res, e, nil
}

func buildGraph(s Scenario, seed uint64, logger logging.Logger) (*iotgraph.Graph, error) {
	opts := []iotgraph.BuilderOption{iotgraph.WithSeed(seed), iotgraph.WithLogger(logger)}
	if s.FixedTopology() {
		return iotgraph.FromEdges(s.Graph.Nodes, s.edgePairs(), opts...)
	}
	return iotgraph.Generate(s.Graph.Nodes, s.Graph.EdgeProb, opts...)
}

// seedEngine infects the listed nodes, or NumSeeds random ones.
func seedEngine(e *propagation.Engine, p PropagationConfig) ([]int, error) {
	if len(p.SeedNodes) == 0 {
		return e.InitializeInfection(p.NumSeeds)
	}
	if err := e.InfectNodes(p.SeedNodes...); err != nil {
		return nil, err
	}
	seeds := slices.Clone(p.SeedNodes)
	slices.Sort(seeds)
	return slices.Compact(seeds), nil
}

// peak scans the per-tick counts followed by the final count. Ties keep the
// earliest tick.
func peak(history []int, final int) (value, tick int) {
	value, tick = final, len(history)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i] >= value {
			value, tick = history[i], i
		}
	}
	return value, tick
}

func analyze(res *Result, g *iotgraph.Graph, cfg AnalysisConfig) error {
	br, err := analysis.ComputeBlastRadius(g, res.Seeds, cfg.MaxHops)
	if err != nil {
		return err
	}
	res.BlastRadius = br.TotalReachable
	res.BlastRadiusFraction = br.Fraction(g.NumNodes())
	res.LargestComponent = analysis.WeakComponents(g).Largest()
	res.TopSpreaders = analysis.DegreeRanking(g, cfg.TopK)
	return nil
}

// BuildExporter creates an exporter for the configured sinks, or returns nil
// when none is configured.
func BuildExporter(ctx context.Context, cfg ExportConfig, reg *metrics.Registry, logger logging.Logger) (*export.Exporter, error) {
	var sinks []export.Sink
	if cfg.Dir != "" {
		fs, err := export.NewFileSink(cfg.Dir)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, fs)
	}
	if cfg.S3 != nil {
		s3, err := export.NewS3Sink(ctx, *cfg.S3)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s3)
	}
	if len(sinks) == 0 {
		return nil, nil
	}

	opts := []export.Option{
		export.WithCompression(cfg.Compress),
		export.WithLogger(logger),
	}
	if reg != nil {
		opts = append(opts, export.WithRecorder(reg))
	}
	return export.NewExporter(sinks, opts...), nil
}
