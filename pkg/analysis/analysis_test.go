package analysis

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
	"github.com/dd0wney/cluso-botnetsim/pkg/propagation"
	"github.com/dd0wney/cluso-botnetsim/pkg/validation"
)

// star: 0 -> 1,2,3 ; chain 3 -> 4 -> 5 ; isolated 6
func sampleGraph(t *testing.T) *iotgraph.Graph {
	t.Helper()
	g, err := iotgraph.FromEdges(7, [][2]int{{0, 1}, {0, 2}, {0, 3}, {3, 4}, {4, 5}})
	require.NoError(t, err)
	return g
}

func TestBlastRadius(t *testing.T) {
	g := sampleGraph(t)

	tests := []struct {
		name      string
		seeds     []int
		maxHops   int
		reachable int
		byHop     map[int][]int
	}{
		{"unbounded from hub", []int{0}, 0, 5, map[int][]int{1: {1, 2, 3}, 2: {4}, 3: {5}}},
		{"one hop from hub", []int{0}, 1, 3, map[int][]int{1: {1, 2, 3}}},
		{"leaf reaches nothing", []int{5}, 0, 0, map[int][]int{}},
		{"two seeds share frontier", []int{3, 0}, 0, 4, map[int][]int{1: {1, 2, 4}, 2: {5}}},
		{"duplicate seeds", []int{4, 4}, 0, 1, map[int][]int{1: {5}}},
		{"no seeds", nil, 0, 0, map[int][]int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			br, err := ComputeBlastRadius(g, tt.seeds, tt.maxHops)
			require.NoError(t, err)
			assert.Equal(t, tt.reachable, br.TotalReachable)
			assert.Equal(t, tt.byHop, br.ByHop)
			for _, s := range br.Seeds {
				_, ok := br.Distances[s]
				assert.False(t, ok, "seed %d must not be reported as reachable", s)
			}
		})
	}
}

func TestBlastRadius_FractionAndEccentricity(t *testing.T) {
	br, err := ComputeBlastRadius(sampleGraph(t), []int{0}, 0)
	require.NoError(t, err)

	assert.InDelta(t, 6.0/7.0, br.Fraction(7), 1e-12)
	assert.Equal(t, 3, br.Eccentricity())
	assert.Equal(t, []int{0}, br.Seeds)
	assert.Equal(t, 0.0, (&BlastRadius{}).Fraction(0))
}

func TestBlastRadius_RejectsBadSeed(t *testing.T) {
	_, err := ComputeBlastRadius(sampleGraph(t), []int{0, 7}, 0)
	assert.ErrorIs(t, err, validation.ErrInvalidParameter)
}

func TestDegreeRanking(t *testing.T) {
	g := sampleGraph(t)

	top := DegreeRanking(g, 3)
	require.Len(t, top, 3)
	assert.Equal(t, 0, top[0].Node.ID)
	assert.InDelta(t, 3.0/6.0, top[0].Score, 1e-12)
	// 3 and 4 tie on out-degree 1; lower id wins
	assert.Equal(t, 3, top[1].Node.ID)
	assert.Equal(t, 4, top[2].Node.ID)

	assert.Nil(t, DegreeRanking(g, 0))
	assert.Len(t, DegreeRanking(g, 100), 7)
}

func TestExposureRanking(t *testing.T) {
	g, err := iotgraph.FromEdges(4, [][2]int{{0, 3}, {1, 3}, {2, 3}, {3, 1}})
	require.NoError(t, err)

	top := ExposureRanking(g, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 3, top[0].Node.ID)
	assert.Equal(t, 1, top[1].Node.ID)
}

func TestWeakComponents(t *testing.T) {
	res := WeakComponents(sampleGraph(t))

	require.Len(t, res.Components, 2)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, res.Components[0].Nodes)
	assert.Equal(t, []int{6}, res.Components[1].Nodes)
	assert.Equal(t, 6, res.Largest())
	assert.Equal(t, 1, res.NodeComponent[6])
	assert.Equal(t, 0, res.NodeComponent[4])

	empty, err := iotgraph.FromEdges(0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, WeakComponents(empty).Largest())
}

// TestBlastRadiusBoundsRun checks that a run never infects a node outside
// the seeds' blast radius.
func TestBlastRadiusBoundsRun(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40

	properties := gopter.NewProperties(parameters)

	properties.Property("ever-infected count within blast radius", prop.ForAll(
		func(n int, seed uint64) bool {
			g, err := iotgraph.Generate(n, 0.05, iotgraph.WithSeed(seed))
			if err != nil {
				return false
			}
			e, err := propagation.New(g, propagation.Config{InfectionProb: 0.6, RecoveryProb: 0.1, Seed: seed})
			if err != nil {
				return false
			}
			seeds, err := e.InitializeInfection(min(2, n))
			if err != nil {
				return false
			}
			br, err := ComputeBlastRadius(g, seeds, 0)
			if err != nil {
				return false
			}
			if err := e.Run(context.Background(), 25); err != nil {
				return false
			}
			return e.EverInfected() <= br.TotalReachable+len(br.Seeds)
		},
		gen.IntRange(0, 50),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
