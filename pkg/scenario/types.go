package scenario

import (
	"time"

	"github.com/dd0wney/cluso-botnetsim/pkg/analysis"
	"github.com/dd0wney/cluso-botnetsim/pkg/export"
	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
)

// Scenario is a complete, reproducible simulation description.
type Scenario struct {
	Name        string            `json:"name" yaml:"name" validate:"required"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Seed        uint64            `json:"seed" yaml:"seed"` // 0 derives a seed from the clock
	Graph       GraphConfig       `json:"graph" yaml:"graph"`
	Propagation PropagationConfig `json:"propagation" yaml:"propagation"`
	Analysis    AnalysisConfig    `json:"analysis" yaml:"analysis"`
	Invariants  []Invariant       `json:"invariants,omitempty" yaml:"invariants,omitempty" validate:"dive"`
	Export      ExportConfig      `json:"export" yaml:"export"`
}

// GraphConfig selects a random topology, or a fixed one when Edges is set.
type GraphConfig struct {
	Nodes    int     `json:"nodes" yaml:"nodes" validate:"gte=0"`
	EdgeProb float64 `json:"edge_prob" yaml:"edge_prob" validate:"gte=0,lte=1"`
	Edges    [][]int `json:"edges,omitempty" yaml:"edges,omitempty" validate:"omitempty,dive,len=2"`
}

// PropagationConfig holds the engine parameters. SeedNodes, when set,
// replaces random seeding and NumSeeds is ignored.
type PropagationConfig struct {
	InfectionProb float64 `json:"infection_prob" yaml:"infection_prob" validate:"gte=0,lte=1"`
	RecoveryProb  float64 `json:"recovery_prob" yaml:"recovery_prob" validate:"gte=0,lte=1"`
	NumSeeds      int     `json:"num_seeds" yaml:"num_seeds" validate:"gte=0"`
	SeedNodes     []int   `json:"seed_nodes,omitempty" yaml:"seed_nodes,omitempty" validate:"omitempty,dive,gte=0"`
	Steps         int     `json:"steps" yaml:"steps" validate:"gte=0"`
	Workers       int     `json:"workers" yaml:"workers" validate:"gte=0"`
}

// AnalysisConfig tunes the structural analysis attached to the result.
type AnalysisConfig struct {
	TopK    int `json:"top_k" yaml:"top_k" validate:"gte=0"`
	MaxHops int `json:"max_hops" yaml:"max_hops" validate:"gte=0"` // 0 = unbounded
}

// ExportConfig selects artifact sinks. Both are optional.
type ExportConfig struct {
	Dir      string           `json:"dir,omitempty" yaml:"dir,omitempty"`
	Compress bool             `json:"compress" yaml:"compress"`
	S3       *export.S3Config `json:"s3,omitempty" yaml:"s3,omitempty"`
}

// Invariant is a pass/fail condition evaluated on the finished run.
type Invariant struct {
	Metric    string  `json:"metric" yaml:"metric" validate:"required,oneof=final_infected peak_infected peak_fraction final_fraction attack_rate blast_radius_fraction"`
	Condition string  `json:"condition" yaml:"condition" validate:"required,oneof=> >= < <= =="`
	Value     float64 `json:"value" yaml:"value"`
}

// InvariantResult records one evaluated invariant.
type InvariantResult struct {
	Metric   string `json:"metric"`
	Expected string `json:"expected"` // e.g. "<= 0.50"
	Actual   string `json:"actual"`   // e.g. "0.4250"
	Passed   bool   `json:"passed"`
}

// Result is everything a run produced, ready for reporting.
type Result struct {
	RunID        string           `json:"run_id"`
	ScenarioName string           `json:"scenario_name"`
	Seed         uint64           `json:"seed"`
	Duration     time.Duration    `json:"duration"`
	Summary      iotgraph.Summary `json:"summary"`
	Seeds        []int            `json:"seeds"`
	History      []int            `json:"history"`

	FinalInfected int     `json:"final_infected"`
	Peak          int     `json:"peak_infected"`
	PeakTick      int     `json:"peak_tick"`
	EverInfected  int     `json:"ever_infected"`
	AttackRate    float64 `json:"attack_rate"`

	BlastRadius         int                   `json:"blast_radius"`
	BlastRadiusFraction float64               `json:"blast_radius_fraction"`
	LargestComponent    int                   `json:"largest_component"`
	TopSpreaders        []analysis.RankedNode `json:"top_spreaders,omitempty"`

	Invariants []InvariantResult `json:"invariants,omitempty"`
	Success    bool              `json:"success"`
	Artifacts  []string          `json:"artifacts,omitempty"`
}

// fraction divides by the graph size, 0 for an empty graph.
func (r *Result) fraction(k int) float64 {
	if r.Summary.Nodes == 0 {
		return 0
	}
	return float64(k) / float64(r.Summary.Nodes)
}
