package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-botnetsim/pkg/analysis"
	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
	"github.com/dd0wney/cluso-botnetsim/pkg/scenario"
)

func sampleResult() *scenario.Result {
	return &scenario.Result{
		RunID:        "run-1",
		ScenarioName: "path",
		Seed:         7,
		Duration:     12 * time.Millisecond,
		Summary: iotgraph.Summary{
			Nodes:        5,
			Edges:        2,
			DeviceCounts: map[iotgraph.DeviceType]int{iotgraph.DeviceSensor: 3, iotgraph.DeviceCloud: 2},
		},
		Seeds:               []int{0},
		History:             []int{1, 2, 4},
		FinalInfected:       3,
		Peak:                4,
		PeakTick:            2,
		EverInfected:        4,
		AttackRate:          0.8,
		BlastRadius:         3,
		BlastRadiusFraction: 0.8,
		LargestComponent:    4,
		TopSpreaders: []analysis.RankedNode{
			{Node: iotgraph.Node{ID: 0, DeviceType: iotgraph.DeviceGateway}, Score: 0.5},
		},
		Invariants: []scenario.InvariantResult{
			{Metric: "attack_rate", Expected: ">= 0.50", Actual: "0.8000", Passed: true},
			{Metric: "final_infected", Expected: "<= 2.00", Actual: "3.0000", Passed: false},
		},
		Success: false,
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	out := Render(sampleResult())

	for _, want := range []string{
		"Simulation Report: path",
		"run-1",
		"sensor",
		"cloud",
		"4 (tick 2)",
		"0.8000",
		"[PASS]",
		"attack_rate: Expected >= 0.50, Got 0.8000",
		"[FAIL]",
		"final_infected: Expected <= 2.00, Got 3.0000",
		"scenario failed",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "actuator")
}

func TestTimeline(t *testing.T) {
	out := timeline([]int{1, 2, 4}, 0)
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, barWidth/4, strings.Count(lines[0], "█"))
	assert.Equal(t, barWidth, strings.Count(lines[2], "█"))
	assert.Contains(t, lines[3], "final")
	assert.Equal(t, 0, strings.Count(lines[3], "█"))

	assert.Equal(t, 1, strings.Count(timeline(nil, 0), "\n"))
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), FormatJSON))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, false, decoded["success"])
	assert.Len(t, decoded["invariants"], 2)
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	res := sampleResult()
	res.Success = true
	require.NoError(t, Write(&buf, res, FormatText))
	assert.Contains(t, buf.String(), "scenario passed")
}
