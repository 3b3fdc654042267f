package iotgraph

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestGraphInvariants checks generation invariants over random sizes,
// probabilities and seeds.
func TestGraphInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("node ids cover 0..N-1 exactly once", prop.ForAll(
		func(n int, seed uint64) bool {
			b := NewBuilder(WithSeed(seed))
			if err := b.GenerateNodes(n); err != nil {
				return false
			}
			nodes := b.Graph().Nodes()
			if len(nodes) != n {
				return false
			}
			for i, node := range nodes {
				if node.ID != i {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 200),
		gen.UInt64(),
	))

	properties.Property("edges are simple and within bounds", prop.ForAll(
		func(n int, p float64, seed uint64) bool {
			g, err := Generate(n, p, WithSeed(seed))
			if err != nil {
				return false
			}
			if g.NumEdges() > n*(n-1) {
				return false
			}
			seen := make(map[[2]int]bool, g.NumEdges())
			for _, e := range g.Edges() {
				key := [2]int{e.Source, e.Target}
				if e.Source == e.Target || seen[key] {
					return false
				}
				if e.Source < 0 || e.Source >= n || e.Target < 0 || e.Target >= n {
					return false
				}
				seen[key] = true
			}
			return true
		},
		gen.IntRange(0, 30),
		gen.Float64Range(0, 1),
		gen.UInt64(),
	))

	properties.Property("adjacency agrees with edge list", prop.ForAll(
		func(n int, seed uint64) bool {
			g, err := Generate(n, 0.2, WithSeed(seed))
			if err != nil {
				return false
			}
			outTotal, inTotal := 0, 0
			for u := 0; u < n; u++ {
				outTotal += g.OutDegree(u)
				inTotal += g.InDegree(u)
			}
			return outTotal == g.NumEdges() && inTotal == g.NumEdges()
		},
		gen.IntRange(0, 40),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
