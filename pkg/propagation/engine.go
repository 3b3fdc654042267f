// Package propagation simulates botnet-style spread over an iotgraph.Graph
// in discrete, synchronous ticks.
//
// Every tick computes the complete next HealthState from an immutable
// start-of-tick snapshot and swaps it in afterwards. A clean node receives
// one independent Bernoulli(InfectionProb) trial per infected predecessor and
// becomes infected if any succeeds; an infected node receives one
// Bernoulli(RecoveryProb) trial. Node v at tick t draws from its own PCG
// stream derived from (Seed, t, v), so results do not depend on the number
// of workers or on iteration order.
//
// An Engine is not safe for concurrent use.
package propagation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync/atomic"

	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
	"github.com/dd0wney/cluso-botnetsim/pkg/logging"
	"github.com/dd0wney/cluso-botnetsim/pkg/parallel"
	"github.com/dd0wney/cluso-botnetsim/pkg/validation"
)

// Config holds the transition probabilities and the random seed.
type Config struct {
	InfectionProb float64 `json:"infection_prob" yaml:"infection_prob"`
	RecoveryProb  float64 `json:"recovery_prob" yaml:"recovery_prob"`
	Seed          uint64  `json:"seed" yaml:"seed"`
	// Workers > 1 spreads each tick over a worker pool.
	Workers int `json:"workers" yaml:"workers"`
}

// Engine owns the per-node HealthState and the InfectionHistory for one graph.
type Engine struct {
	graph *iotgraph.Graph
	cfg   Config

	rng     *rand.Rand // seed selection only; ticks use per-node streams
	state   []State
	next    []State
	ever    []bool
	history []int

	infected     int
	everInfected int
	tick         int

	runID     string
	pool      *parallel.WorkerPool
	observers []Observer
	logger    logging.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger routes progress lines ("Time t: Infected nodes = k") to logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.OrNop(logger)
	}
}

// WithObserver registers an observer for tick events.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observers = append(e.observers, o)
		}
	}
}

// WithRunID tags log lines and tick events with a run identifier.
func WithRunID(id string) Option {
	return func(e *Engine) {
		e.runID = id
	}
}

// New validates cfg and creates an engine with every node Clean and an empty history.
func New(g *iotgraph.Graph, cfg Config, opts ...Option) (*Engine, error) {
	if g == nil {
		return nil, validation.NewError("New").Param("graph").Value(nil).Reason("cannot be nil").Err()
	}
	if err := validation.Probability("New", "infection_prob", cfg.InfectionProb); err != nil {
		return nil, err
	}
	if err := validation.Probability("New", "recovery_prob", cfg.RecoveryProb); err != nil {
		return nil, err
	}
	if err := validation.NonNegative("New", "workers", cfg.Workers); err != nil {
		return nil, err
	}

	n := g.NumNodes()
	e := &Engine{
		graph:   g,
		cfg:     cfg,
		rng:     rand.New(rand.NewPCG(cfg.Seed, splitmix64(cfg.Seed))),
		state:   make([]State, n),
		next:    make([]State, n),
		ever:    make([]bool, n),
		history: make([]int, 0),
		logger:  logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(e)
	}

	fields := []logging.Field{logging.Component("propagation")}
	if e.runID != "" {
		fields = append(fields, logging.RunID(e.runID))
	}
	e.logger = e.logger.With(fields...)

	if cfg.Workers > 1 {
		pool, err := parallel.NewWorkerPool(cfg.Workers, e.logger)
		if err != nil {
			return nil, err
		}
		e.pool = pool
	}

	return e, nil
}

// Close releases the worker pool, if any. The engine stays usable and
// continues single-threaded.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Close()
		e.pool = nil
	}
}

// InitializeInfection infects numSeeds distinct nodes chosen uniformly at
// random without replacement and returns their ids in ascending order.
// Calling it again compounds on top of nodes that are already infected.
func (e *Engine) InitializeInfection(numSeeds int) ([]int, error) {
	n := len(e.state)
	if err := validation.NonNegative("InitializeInfection", "num_seeds", numSeeds); err != nil {
		return nil, err
	}
	if err := validation.AtMost("InitializeInfection", "num_seeds", numSeeds, n); err != nil {
		return nil, err
	}

	// partial Fisher-Yates: the first numSeeds slots are a uniform sample
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	for i := 0; i < numSeeds; i++ {
		j := i + e.rng.IntN(n-i)
		ids[i], ids[j] = ids[j], ids[i]
	}
	seeds := ids[:numSeeds:numSeeds]
	slices.Sort(seeds)

	for _, id := range seeds {
		e.infect(id)
	}

	e.logger.Info(fmt.Sprintf("Initial infected nodes: %v", seeds), logging.NodeIDs(seeds), logging.Infected(e.infected))
	return slices.Clone(seeds), nil
}

// InfectNodes forces the given nodes into the Infected state.
func (e *Engine) InfectNodes(ids ...int) error {
	for _, id := range ids {
		if err := validation.InRange("InfectNodes", "id", id, 0, len(e.state)); err != nil {
			return err
		}
	}
	for _, id := range ids {
		e.infect(id)
	}
	e.logger.Info(fmt.Sprintf("Initial infected nodes: %v", ids), logging.NodeIDs(ids), logging.Infected(e.infected))
	return nil
}

func (e *Engine) infect(id int) {
	if e.state[id] == Clean {
		e.state[id] = Infected
		e.infected++
	}
	if !e.ever[id] {
		e.ever[id] = true
		e.everInfected++
	}
}

// Step advances the system by exactly one synchronous tick.
func (e *Engine) Step() StepStats {
	var newInfections, recoveries, firstInfections int64

	compute := func(lo, hi int) {
		ni, rc, fi := e.computeRange(lo, hi)
		atomic.AddInt64(&newInfections, int64(ni))
		atomic.AddInt64(&recoveries, int64(rc))
		atomic.AddInt64(&firstInfections, int64(fi))
	}

	if e.pool != nil {
		e.pool.ForRange(len(e.state), compute)
	} else {
		compute(0, len(e.state))
	}

	// commit: the computed buffer becomes the current state
	e.state, e.next = e.next, e.state
	e.infected += int(newInfections) - int(recoveries)
	e.everInfected += int(firstInfections)
	e.tick++

	return StepStats{NewInfections: int(newInfections), Recoveries: int(recoveries)}
}

// computeRange fills e.next[lo:hi] from the e.state snapshot. It reads
// e.state only and writes only its own slots of e.next and e.ever.
func (e *Engine) computeRange(lo, hi int) (newInfections, recoveries, firstInfections int) {
	cur, next := e.state, e.next
	pInf, pRec := e.cfg.InfectionProb, e.cfg.RecoveryProb

	src := rand.NewPCG(0, 0)
	r := rand.New(src)

	for v := lo; v < hi; v++ {
		src.Seed(streamSeed(e.cfg.Seed, e.tick, v))

		if cur[v] == Infected {
			if r.Float64() < pRec {
				next[v] = Clean
				recoveries++
			} else {
				next[v] = Infected
			}
			continue
		}

		next[v] = Clean
		e.graph.ForEachPredecessor(v, func(u int) bool {
			if cur[u] != Infected {
				return true
			}
			if r.Float64() < pInf {
				next[v] = Infected
				newInfections++
				if !e.ever[v] {
					e.ever[v] = true
					firstInfections++
				}
				return false // outcome decided; remaining trials cannot change it
			}
			return true
		})
	}
	return newInfections, recoveries, firstInfections
}

// Run executes steps ticks. Each tick first records the current infected
// count in the history, then performs one Step. The context is checked
// between ticks; on cancellation Run returns ctx.Err() and the history keeps
// the ticks already executed.
func (e *Engine) Run(ctx context.Context, steps int) error {
	if err := validation.NonNegative("Run", "steps", steps); err != nil {
		return err
	}

	for t := 0; t < steps; t++ {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("run cancelled", logging.Tick(e.tick), logging.Error(err))
			return err
		}

		count := e.infected
		e.history = append(e.history, count)
		e.logger.Info(fmt.Sprintf("Time %d: Infected nodes = %d", t, count), logging.Tick(e.tick), logging.Infected(count))

		stats := e.Step()

		if len(e.observers) > 0 {
			ev := TickEvent{
				RunID:         e.runID,
				Tick:          len(e.history) - 1,
				Nodes:         len(e.state),
				Infected:      count,
				NewInfections: stats.NewInfections,
				Recoveries:    stats.Recoveries,
			}
			for _, o := range e.observers {
				o.ObserveTick(ev)
			}
		}
	}
	return nil
}

// InfectedCount returns the number of Infected nodes right now.
func (e *Engine) InfectedCount() int {
	return e.infected
}

// EverInfected returns how many distinct nodes have been Infected at any
// point, seeds included.
func (e *Engine) EverInfected() int {
	return e.everInfected
}

// States returns a copy of the per-node HealthState, indexed by node id.
func (e *Engine) States() []State {
	return slices.Clone(e.state)
}

// State returns the current state of one node.
func (e *Engine) State(id int) (State, bool) {
	if id < 0 || id >= len(e.state) {
		return Clean, false
	}
	return e.state[id], true
}

// InfectedNodes returns the ids of currently infected nodes in ascending order.
func (e *Engine) InfectedNodes() []int {
	ids := make([]int, 0, e.infected)
	for id, s := range e.state {
		if s == Infected {
			ids = append(ids, id)
		}
	}
	return ids
}

// History returns a copy of the infected count recorded at the start of each tick.
func (e *Engine) History() []int {
	return slices.Clone(e.history)
}

// Tick returns the number of Step calls made so far.
func (e *Engine) Tick() int {
	return e.tick
}

// Graph returns the graph the engine runs on.
func (e *Engine) Graph() *iotgraph.Graph {
	return e.graph
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

func streamSeed(seed uint64, tick, node int) (uint64, uint64) {
	hi := splitmix64(seed ^ splitmix64(uint64(tick)))
	return hi, splitmix64(hi ^ uint64(node))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
