package iotgraph

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-botnetsim/pkg/validation"
)

func TestGenerateNodes_IDsAndAttributes(t *testing.T) {
	b := NewBuilder(WithSeed(1))
	require.NoError(t, b.GenerateNodes(40))

	g := b.Graph()
	require.Equal(t, 40, g.NumNodes())

	for i, n := range g.Nodes() {
		assert.Equal(t, i, n.ID)
		assert.Less(t, int(n.DeviceType), len(DeviceTypes))
		assert.GreaterOrEqual(t, n.AvgPacketRate, MinPacketRate)
		assert.LessOrEqual(t, n.AvgPacketRate, MaxPacketRate)
		assert.GreaterOrEqual(t, n.AnomalyScore, 0.0)
		assert.LessOrEqual(t, n.AnomalyScore, 1.0)
	}
}

func TestGenerateNodes_ZeroAndNegative(t *testing.T) {
	b := NewBuilder(WithSeed(1))
	require.NoError(t, b.GenerateNodes(0))
	assert.Equal(t, 0, b.Graph().NumNodes())
	require.NoError(t, b.GenerateEdges(0.5))
	assert.Equal(t, 0, b.Graph().NumEdges())

	err := b.GenerateNodes(-1)
	require.Error(t, err)
	assert.ErrorIs(t, err, validation.ErrInvalidParameter)
}

func TestGenerateEdges_Extremes(t *testing.T) {
	b := NewBuilder(WithSeed(7))
	require.NoError(t, b.GenerateNodes(12))

	require.NoError(t, b.GenerateEdges(0))
	assert.Equal(t, 0, b.Graph().NumEdges())

	require.NoError(t, b.GenerateEdges(1))
	g := b.Graph()
	assert.Equal(t, 12*11, g.NumEdges())
	for u := 0; u < 12; u++ {
		for v := 0; v < 12; v++ {
			assert.Equal(t, u != v, g.HasEdge(u, v), "edge %d->%d", u, v)
		}
	}
}

func TestGenerateEdges_RejectsOutOfRange(t *testing.T) {
	b := NewBuilder(WithSeed(7))
	require.NoError(t, b.GenerateNodes(3))

	for _, p := range []float64{-0.1, 1.5, math.NaN()} {
		err := b.GenerateEdges(p)
		assert.ErrorIs(t, err, validation.ErrInvalidParameter, "p=%v", p)
	}
}

func TestGenerateEdges_AttributesAndNoSelfLoops(t *testing.T) {
	g, err := Generate(30, 0.3, WithSeed(42))
	require.NoError(t, err)

	seen := make(map[[2]int]bool)
	for _, e := range g.Edges() {
		assert.NotEqual(t, e.Source, e.Target)
		assert.False(t, seen[[2]int{e.Source, e.Target}], "duplicate edge %d->%d", e.Source, e.Target)
		seen[[2]int{e.Source, e.Target}] = true

		assert.Less(t, int(e.Protocol), len(Protocols))
		assert.GreaterOrEqual(t, e.Bandwidth, MinBandwidth)
		assert.LessOrEqual(t, e.Bandwidth, MaxBandwidth)
		assert.GreaterOrEqual(t, e.Latency, MinLatency)
		assert.LessOrEqual(t, e.Latency, MaxLatency)
	}
}

func TestGenerateEdges_MeanConverges(t *testing.T) {
	const (
		n      = 20
		p      = 0.1
		trials = 200
	)
	b := NewBuilder(WithSeed(2024))
	require.NoError(t, b.GenerateNodes(n))

	total := 0
	for i := 0; i < trials; i++ {
		require.NoError(t, b.GenerateEdges(p))
		total += b.Summary().Edges
	}

	mean := float64(total) / trials
	expected := p * n * (n - 1)
	// sd of the mean is sqrt(38*0.9/200) ~ 0.41; allow a generous band.
	assert.InDelta(t, expected, mean, 2.5)
}

func TestSeedReproducibility(t *testing.T) {
	g1, err := Generate(25, 0.2, WithSeed(99))
	require.NoError(t, err)
	g2, err := Generate(25, 0.2, WithSeed(99))
	require.NoError(t, err)
	g3, err := Generate(25, 0.2, WithSeed(100))
	require.NoError(t, err)

	assert.Equal(t, g1.Nodes(), g2.Nodes())
	assert.Equal(t, g1.Edges(), g2.Edges())
	assert.NotEqual(t, g1.Edges(), g3.Edges())
}

func TestSummary(t *testing.T) {
	b := NewBuilder(WithSeed(5))
	require.NoError(t, b.GenerateNodes(50))
	require.NoError(t, b.GenerateEdges(0.05))

	s := b.Summary()
	assert.Equal(t, 50, s.Nodes)
	assert.Equal(t, b.Graph().NumEdges(), s.Edges)

	total := 0
	for dt, c := range s.DeviceCounts {
		assert.Less(t, int(dt), len(DeviceTypes))
		total += c
	}
	assert.Equal(t, 50, total)
	assert.Equal(t, s, b.Graph().Summary())
}

func TestGraphIsSealed(t *testing.T) {
	b := NewBuilder(WithSeed(3))
	require.NoError(t, b.GenerateNodes(5))
	require.NoError(t, b.GenerateEdges(1))
	g := b.Graph()

	require.NoError(t, b.GenerateNodes(2))
	assert.Equal(t, 5, g.NumNodes(), "rebuilding must not touch a handed-out graph")
	assert.Equal(t, 20, g.NumEdges())

	succ := g.Successors(0)
	succ[0] = 99
	assert.NotEqual(t, 99, g.Successors(0)[0], "accessors must return copies")

	edges := g.Edges()
	edges[0].Target = 99
	assert.NotEqual(t, 99, g.Edges()[0].Target)
}

func TestFromEdges(t *testing.T) {
	g, err := FromEdges(5, [][2]int{{0, 1}, {1, 2}}, WithSeed(1))
	require.NoError(t, err)
	assert.Equal(t, 5, g.NumNodes())
	assert.Equal(t, 2, g.NumEdges())
	assert.Equal(t, []int{1}, g.Successors(0))
	assert.Equal(t, []int{1}, g.Predecessors(2))
	assert.Equal(t, 0, g.InDegree(0))
	assert.Equal(t, 1, g.OutDegree(1))
	assert.Nil(t, g.Successors(17))

	tests := []struct {
		name  string
		pairs [][2]int
	}{
		{"self_loop", [][2]int{{1, 1}}},
		{"out_of_range", [][2]int{{0, 5}}},
		{"negative", [][2]int{{-1, 2}}},
		{"duplicate", [][2]int{{0, 1}, {0, 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromEdges(5, tt.pairs, WithSeed(1))
			assert.ErrorIs(t, err, validation.ErrInvalidParameter)
		})
	}
}

func TestEnumText(t *testing.T) {
	for _, dt := range DeviceTypes {
		text, err := dt.MarshalText()
		require.NoError(t, err)
		var back DeviceType
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, dt, back)
	}

	p, err := ParseProtocol("coap")
	require.NoError(t, err)
	assert.Equal(t, ProtocolCoAP, p)
	assert.Equal(t, "CoAP", p.String())

	_, err = ParseDeviceType("toaster")
	assert.Error(t, err)
	_, err = DeviceType(9).MarshalText()
	assert.Error(t, err)

	data, err := json.Marshal(Summary{Nodes: 1, DeviceCounts: map[DeviceType]int{DeviceGateway: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":1,"edges":0,"device_counts":{"gateway":1}}`, string(data))
}
