package iotgraph

// Graph is an immutable directed attributed graph. It has no exported
// mutators; accessors hand out copies, so a Graph can be shared freely
// between goroutines once built.
type Graph struct {
	nodes []Node
	edges []Edge
	out   [][]int // out[u] = successor ids, in edge insertion order
	in    [][]int // in[v] = predecessor ids, in edge insertion order
}

// newGraph seals nodes and edges into a Graph. Callers hand over ownership
// of both slices.
func newGraph(nodes []Node, edges []Edge) *Graph {
	g := &Graph{
		nodes: nodes,
		edges: edges,
		out:   make([][]int, len(nodes)),
		in:    make([][]int, len(nodes)),
	}
	for _, e := range edges {
		g.out[e.Source] = append(g.out[e.Source], e.Target)
		g.in[e.Target] = append(g.in[e.Target], e.Source)
	}
	return g
}

// NumNodes returns N. Node ids are exactly 0..N-1.
func (g *Graph) NumNodes() int {
	return len(g.nodes)
}

// NumEdges returns the number of directed edges.
func (g *Graph) NumEdges() int {
	return len(g.edges)
}

// Node returns the node with the given id.
func (g *Graph) Node(id int) (Node, bool) {
	if id < 0 || id >= len(g.nodes) {
		return Node{}, false
	}
	return g.nodes[id], true
}

// Nodes returns a copy of the node set ordered by id.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Edges returns a copy of the edge set in generation order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Successors returns a copy of u's direct out-neighbours.
func (g *Graph) Successors(u int) []int {
	if u < 0 || u >= len(g.out) {
		return nil
	}
	return append([]int(nil), g.out[u]...)
}

// Predecessors returns a copy of v's direct in-neighbours.
func (g *Graph) Predecessors(v int) []int {
	if v < 0 || v >= len(g.in) {
		return nil
	}
	return append([]int(nil), g.in[v]...)
}

// ForEachSuccessor calls fn for each out-neighbour of u until fn returns false.
func (g *Graph) ForEachSuccessor(u int, fn func(v int) bool) {
	if u < 0 || u >= len(g.out) {
		return
	}
	for _, v := range g.out[u] {
		if !fn(v) {
			return
		}
	}
}

// ForEachPredecessor calls fn for each in-neighbour of v until fn returns false.
func (g *Graph) ForEachPredecessor(v int, fn func(u int) bool) {
	if v < 0 || v >= len(g.in) {
		return
	}
	for _, u := range g.in[v] {
		if !fn(u) {
			return
		}
	}
}

// OutDegree returns the number of edges leaving u.
func (g *Graph) OutDegree(u int) int {
	if u < 0 || u >= len(g.out) {
		return 0
	}
	return len(g.out[u])
}

// InDegree returns the number of edges entering v.
func (g *Graph) InDegree(v int) int {
	if v < 0 || v >= len(g.in) {
		return 0
	}
	return len(g.in[v])
}

// HasEdge reports whether u -> v exists.
func (g *Graph) HasEdge(u, v int) bool {
	found := false
	g.ForEachSuccessor(u, func(w int) bool {
		found = w == v
		return !found
	})
	return found
}

// Summary counts nodes, edges and nodes per device type.
func (g *Graph) Summary() Summary {
	return summarize(g.nodes, len(g.edges))
}

func summarize(nodes []Node, edgeCount int) Summary {
	s := Summary{
		Nodes:        len(nodes),
		Edges:        edgeCount,
		DeviceCounts: make(map[DeviceType]int),
	}
	for _, n := range nodes {
		s.DeviceCounts[n.DeviceType]++
	}
	return s
}
