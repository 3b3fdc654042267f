package analysis

import (
	"sort"

	"github.com/dd0wney/cluso-botnetsim/pkg/iotgraph"
)

// Component is a weakly connected set of devices.
type Component struct {
	ID    int
	Nodes []int
}

// ComponentResult partitions the graph into weakly connected components.
type ComponentResult struct {
	Components    []Component // largest first
	NodeComponent []int       // node id -> component id
}

// Largest returns the size of the biggest component, 0 for an empty graph.
func (r *ComponentResult) Largest() int {
	if len(r.Components) == 0 {
		return 0
	}
	return len(r.Components[0].Nodes)
}

// WeakComponents finds the weakly connected components, ignoring link
// direction. Isolated devices form singleton components.
func WeakComponents(g *iotgraph.Graph) *ComponentResult {
	n := g.NumNodes()
	nodeComponent := make([]int, n)
	for i := range nodeComponent {
		nodeComponent[i] = -1
	}

	var components []Component
	for start := 0; start < n; start++ {
		if nodeComponent[start] >= 0 {
			continue
		}

		id := len(components)
		comp := Component{ID: id}
		queue := []int{start}
		nodeComponent[start] = id

		visit := func(v int) bool {
			if nodeComponent[v] < 0 {
				nodeComponent[v] = id
				queue = append(queue, v)
			}
			return true
		}

		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			comp.Nodes = append(comp.Nodes, u)

			g.ForEachSuccessor(u, visit)
			g.ForEachPredecessor(u, visit)
		}
		sort.Ints(comp.Nodes)
		components = append(components, comp)
	}

	// largest first, then by smallest member; renumber to match
	sort.SliceStable(components, func(i, j int) bool {
		if len(components[i].Nodes) != len(components[j].Nodes) {
			return len(components[i].Nodes) > len(components[j].Nodes)
		}
		return components[i].Nodes[0] < components[j].Nodes[0]
	})
	for i := range components {
		components[i].ID = i
		for _, v := range components[i].Nodes {
			nodeComponent[v] = i
		}
	}

	return &ComponentResult{Components: components, NodeComponent: nodeComponent}
}
