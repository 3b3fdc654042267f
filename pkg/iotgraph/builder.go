// Package iotgraph generates synthetic Social IoT graphs: typed devices,
// users and cloud services joined by directed, attributed communication
// links sampled independently per ordered pair.
package iotgraph

import (
	"math/rand/v2"
	"time"

	"github.com/dd0wney/cluso-botnetsim/pkg/logging"
	"github.com/dd0wney/cluso-botnetsim/pkg/validation"
)

// Builder owns its random source and the node/edge sets under construction.
// A Builder is not safe for concurrent use; the Graph it hands out is.
type Builder struct {
	rng    *rand.Rand
	seed   uint64
	nodes  []Node
	edges  []Edge
	logger logging.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithSeed makes generation reproducible.
func WithSeed(seed uint64) BuilderOption {
	return func(b *Builder) {
		b.seed = seed
		b.rng = NewRand(seed)
	}
}

// WithRand supplies a caller-owned generator. Seed() reports 0.
func WithRand(r *rand.Rand) BuilderOption {
	return func(b *Builder) {
		b.seed = 0
		b.rng = r
	}
}

// WithLogger routes builder progress to logger.
func WithLogger(logger logging.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = logging.OrNop(logger).With(logging.Component("iotgraph"))
	}
}

// NewRand returns the PCG generator used for a given seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// NewBuilder creates a builder. Without WithSeed or WithRand the seed is
// taken from the clock and is available through Seed().
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{logger: logging.NopLogger{}}
	for _, opt := range opts {
		opt(b)
	}
	if b.rng == nil {
		WithSeed(uint64(time.Now().UnixNano()))(b)
	}
	return b
}

// Seed returns the seed the builder's generator was created from.
func (b *Builder) Seed() uint64 {
	return b.seed
}

// GenerateNodes replaces the node set with n fresh nodes (ids 0..n-1) and
// clears any existing edges.
func (b *Builder) GenerateNodes(n int) error {
	if err := validation.NonNegative("GenerateNodes", "n", n); err != nil {
		return err
	}

	nodes := make([]Node, n)
	for i := range nodes {
		nodes[i] = Node{
			ID:            i,
			DeviceType:    DeviceTypes[b.rng.IntN(len(DeviceTypes))],
			AvgPacketRate: uniform(b.rng, MinPacketRate, MaxPacketRate),
			AnomalyScore:  b.rng.Float64(),
		}
	}
	b.nodes = nodes
	b.edges = nil

	b.logger.Debug("nodes generated", logging.Nodes(n))
	return nil
}

// GenerateEdges performs one Bernoulli(p) trial per ordered pair (u, v),
// u != v, and adds u -> v on success. Existing edges are replaced.
func (b *Builder) GenerateEdges(p float64) error {
	if err := validation.Probability("GenerateEdges", "p", p); err != nil {
		return err
	}

	n := len(b.nodes)
	expected := int(p * float64(n) * float64(max(n-1, 0)))
	edges := make([]Edge, 0, expected)
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			if u == v {
				continue
			}
			// Float64 is in [0, 1): p == 0 never fires, p == 1 always does.
			if b.rng.Float64() < p {
				edges = append(edges, b.newEdge(u, v))
			}
		}
	}
	b.edges = edges

	b.logger.Debug("edges generated", logging.Edges(len(edges)), logging.Float64("p", p))
	return nil
}

// ConnectPairs replaces the edge set with the given ordered pairs, sampling
// attributes for each. Endpoints must be existing node ids, distinct, and
// each pair may appear once.
func (b *Builder) ConnectPairs(pairs [][2]int) error {
	n := len(b.nodes)
	seen := make(map[[2]int]struct{}, len(pairs))
	for i, pair := range pairs {
		if err := validation.InRange("ConnectPairs", "source", pair[0], 0, n); err != nil {
			return err
		}
		if err := validation.InRange("ConnectPairs", "target", pair[1], 0, n); err != nil {
			return err
		}
		if pair[0] == pair[1] {
			return validation.NewError("ConnectPairs").Param("pairs").Value(pair).
				Reason("self loop at index %d", i).Err()
		}
		if _, dup := seen[pair]; dup {
			return validation.NewError("ConnectPairs").Param("pairs").Value(pair).
				Reason("duplicate edge at index %d", i).Err()
		}
		seen[pair] = struct{}{}
	}

	edges := make([]Edge, len(pairs))
	for i, pair := range pairs {
		edges[i] = b.newEdge(pair[0], pair[1])
	}
	b.edges = edges
	return nil
}

func (b *Builder) newEdge(u, v int) Edge {
	return Edge{
		Source:    u,
		Target:    v,
		Protocol:  Protocols[b.rng.IntN(len(Protocols))],
		Bandwidth: uniform(b.rng, MinBandwidth, MaxBandwidth),
		Latency:   uniform(b.rng, MinLatency, MaxLatency),
	}
}

// Summary reports the current node/edge counts and device distribution.
func (b *Builder) Summary() Summary {
	return summarize(b.nodes, len(b.edges))
}

// Graph seals the current node and edge sets into an immutable Graph.
// Later builder calls never affect a Graph already returned.
func (b *Builder) Graph() *Graph {
	nodes := append([]Node(nil), b.nodes...)
	edges := append([]Edge(nil), b.edges...)
	return newGraph(nodes, edges)
}

// Generate is the usual two-phase build: n nodes, then edges with probability p.
func Generate(n int, p float64, opts ...BuilderOption) (*Graph, error) {
	b := NewBuilder(opts...)
	if err := b.GenerateNodes(n); err != nil {
		return nil, err
	}
	if err := b.GenerateEdges(p); err != nil {
		return nil, err
	}
	return b.Graph(), nil
}

// FromEdges builds a graph of n nodes with a fixed topology. Node and edge
// attributes are still sampled.
func FromEdges(n int, pairs [][2]int, opts ...BuilderOption) (*Graph, error) {
	b := NewBuilder(opts...)
	if err := b.GenerateNodes(n); err != nil {
		return nil, err
	}
	if err := b.ConnectPairs(pairs); err != nil {
		return nil, err
	}
	return b.Graph(), nil
}

func uniform(r *rand.Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}
