// Package scenario loads YAML simulation scenarios and runs them end to end:
// graph generation, seeding, propagation, analysis, invariant checks and
// artifact export.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-botnetsim/pkg/validation"
)

// Default scenario parameters.
const (
	DefaultNodes         = 50
	DefaultEdgeProb      = 0.05
	DefaultInfectionProb = 0.3
	DefaultRecoveryProb  = 0.05
	DefaultNumSeeds      = 3
	DefaultSteps         = 20
	DefaultTopK          = 5
)

// Default returns a scenario populated with the default parameters.
func Default() Scenario {
	return Scenario{
		Name: "default",
		Graph: GraphConfig{
			Nodes:    DefaultNodes,
			EdgeProb: DefaultEdgeProb,
		},
		Propagation: PropagationConfig{
			InfectionProb: DefaultInfectionProb,
			RecoveryProb:  DefaultRecoveryProb,
			NumSeeds:      DefaultNumSeeds,
			Steps:         DefaultSteps,
		},
		Analysis: AnalysisConfig{
			TopK: DefaultTopK,
		},
	}
}

// Load reads and validates a scenario file.
func Load(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return Scenario{}, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes YAML over Default, so omitted keys keep their defaults and
// unknown keys are rejected, then validates the result.
func Parse(data []byte) (Scenario, error) {
	s := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Scenario{}, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Scenario{}, err
	}
	return s, nil
}

// Validate checks field ranges with struct tags, then cross-field limits.
// Every violation wraps validation.ErrInvalidParameter.
func (s *Scenario) Validate() error {
	if err := validation.Struct("scenario", s); err != nil {
		return err
	}

	n := s.Graph.Nodes
	p := s.Propagation

	cv := validation.NewConfigValidator("scenario")
	cv.MaxInt("graph.nodes", n, validation.MaxNodes).
		MaxInt("propagation.steps", p.Steps, validation.MaxSteps).
		MaxInt("propagation.workers", p.Workers, validation.MaxWorkers).
		When(len(p.SeedNodes) == 0, func(cv *validation.ConfigValidator) {
			cv.MaxInt("propagation.num_seeds", p.NumSeeds, n)
		}).
		Custom("propagation.seed_nodes", func() error {
			for _, id := range p.SeedNodes {
				if err := validation.InRange("scenario", "propagation.seed_nodes", id, 0, n); err != nil {
					return err
				}
			}
			return nil
		}).
		Custom("graph.edges", func() error {
			for _, e := range s.Graph.Edges {
				for _, id := range e {
					if err := validation.InRange("scenario", "graph.edges", id, 0, n); err != nil {
						return err
					}
				}
			}
			return nil
		})

	for i, inv := range s.Invariants {
		if inv.Condition == "==" && isFractionMetric(inv.Metric) {
			cv.Probability(fmt.Sprintf("invariants[%d].value", i), inv.Value)
		}
	}

	return cv.Validate()
}

// FixedTopology reports whether the scenario lists its edges explicitly.
func (s *Scenario) FixedTopology() bool {
	return len(s.Graph.Edges) > 0
}

func (s *Scenario) edgePairs() [][2]int {
	pairs := make([][2]int, len(s.Graph.Edges))
	for i, e := range s.Graph.Edges {
		pairs[i] = [2]int{e[0], e[1]}
	}
	return pairs
}
