package analysis

import (
	"container/heap"

	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
)

// RankedNode pairs a device with its score.
type RankedNode struct {
	Node  iotgraph.Node
	Score float64
}

// rankedNodeHeap is a min-heap on Score, ties broken so larger ids sit at
// the top and are evicted first.
type rankedNodeHeap []RankedNode

func (h rankedNodeHeap) Len() int { return len(h) }
func (h rankedNodeHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].Node.ID > h[j].Node.ID
}
func (h rankedNodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *rankedNodeHeap) Push(x any) {
	*h = append(*h, x.(RankedNode))
}

func (h *rankedNodeHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[0 : n-1]
	return x
}

// topNodes keeps the k best scores in O(n log k), returned best first.
func topNodes(g *iotgraph.Graph, score func(id int) float64, k int) []RankedNode {
	if k <= 0 {
		return nil
	}

	h := make(rankedNodeHeap, 0, k)
	heap.Init(&h)

	for _, node := range g.Nodes() {
		rn := RankedNode{Node: node, Score: score(node.ID)}
		if h.Len() < k {
			heap.Push(&h, rn)
		} else if better(rn, h[0]) {
			heap.Pop(&h)
			heap.Push(&h, rn)
		}
	}

	result := make([]RankedNode, h.Len())
	for i := h.Len() - 1; i >= 0; i-- {
		result[i] = heap.Pop(&h).(RankedNode)
	}
	return result
}

func better(a, b RankedNode) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Node.ID < b.Node.ID
}

// DegreeRanking returns the k devices with the most outgoing links, i.e.
// the ones that expose the most neighbours once infected. Scores are
// normalised by N-1.
func DegreeRanking(g *iotgraph.Graph, k int) []RankedNode {
	norm := float64(g.NumNodes() - 1)
	return topNodes(g, func(id int) float64 {
		if norm <= 0 {
			return 0
		}
		return float64(g.OutDegree(id)) / norm
	}, k)
}

// ExposureRanking returns the k devices with the most incoming links, the
// ones with the most chances to be infected each tick.
func ExposureRanking(g *iotgraph.Graph, k int) []RankedNode {
	norm := float64(g.NumNodes() - 1)
	return topNodes(g, func(id int) float64 {
		if norm <= 0 {
			return 0
		}
		return float64(g.InDegree(id)) / norm
	}, k)
}
