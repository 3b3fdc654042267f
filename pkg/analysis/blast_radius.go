// Package analysis computes structural exposure measures over an IoT graph:
// how far an infection could reach from its seeds, which devices spread
// to the most neighbours, and how the graph splits into components.
package analysis

import (
	"slices"

	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
	"github.com/dd0wney/cluso-botnetsim/pkg/validation"
)

// BlastRadius holds the multi-source BFS neighbourhood of a seed set along
// outgoing links. It is the upper bound on what a run can ever infect.
type BlastRadius struct {
	Seeds          []int
	ByHop          map[int][]int // hop distance -> node ids at that distance
	Distances      map[int]int   // node id -> shortest hop count from any seed
	TotalReachable int           // excludes the seeds themselves
	MaxHops        int
}

// Fraction returns reachable nodes plus seeds over the graph size.
func (b *BlastRadius) Fraction(n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(b.TotalReachable+len(b.Seeds)) / float64(n)
}

type bfsEntry struct {
	node int
	hop  int
}

// ComputeBlastRadius runs BFS from all seeds at once up to maxHops levels
// along outgoing edges. maxHops <= 0 means unbounded. Seeds are never
// reported as reachable.
func ComputeBlastRadius(g *iotgraph.Graph, seeds []int, maxHops int) (*BlastRadius, error) {
	n := g.NumNodes()
	for _, s := range seeds {
		if err := validation.InRange("ComputeBlastRadius", "seed", s, 0, n); err != nil {
			return nil, err
		}
	}
	if maxHops <= 0 {
		maxHops = n
	}

	visited := make([]bool, n)
	result := &BlastRadius{
		ByHop:     make(map[int][]int),
		Distances: make(map[int]int),
		MaxHops:   maxHops,
	}

	queue := make([]bfsEntry, 0, len(seeds))
	for _, s := range seeds {
		if visited[s] {
			continue
		}
		visited[s] = true
		result.Seeds = append(result.Seeds, s)
		queue = append(queue, bfsEntry{node: s})
	}
	slices.Sort(result.Seeds)

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.hop >= maxHops {
			continue
		}
		nextHop := current.hop + 1

		g.ForEachSuccessor(current.node, func(v int) bool {
			if visited[v] {
				return true
			}
			visited[v] = true
			result.Distances[v] = nextHop
			result.ByHop[nextHop] = append(result.ByHop[nextHop], v)
			result.TotalReachable++
			queue = append(queue, bfsEntry{node: v, hop: nextHop})
			return true
		})
	}

	for hop := range result.ByHop {
		slices.Sort(result.ByHop[hop])
	}
	return result, nil
}

// Eccentricity returns the largest hop distance in the blast radius.
func (b *BlastRadius) Eccentricity() int {
	max := 0
	for hop := range b.ByHop {
		if hop > max {
			max = hop
		}
	}
	return max
}
