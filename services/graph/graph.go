// Package graph provides the directed-graph plumbing shared by compute
// graphs: edge indices keyed by node id, socket-level connectivity queries
// and a topological ordering that can leave out a chosen set of nodes.
package graph

import "errors"

// ErrCycle is reported when a topological order cannot cover every node.
var ErrCycle = errors.New("graph contains a cycle")

// Edge is a directed connection between two node sockets. Whether the edge
// carries data or control is a property of the sockets it touches, which the
// owning layer resolves; the index treats all edges alike.
type Edge struct {
	ID         int    `json:"id"`
	FromNode   int    `json:"from_node_id"`
	FromSocket string `json:"from_socket_id"`
	ToNode     int    `json:"to_node_id"`
	ToSocket   string `json:"to_socket_id"`
}

// Adjacency holds dense per-node edge indices for a fixed node and edge set.
// Build it once at graph construction; Has, Edge, InEdges and OutEdges never
// allocate.
type Adjacency struct {
	order    []int // node ids in insertion order, drives deterministic traversal
	present  map[int]bool
	edgeByID map[int]Edge
	inEdges  map[int][]Edge
	outEdges map[int][]Edge
}

// NewAdjacency indexes the given nodes and edges. Edges referencing unknown
// nodes are indexed as-is; structural validation is the caller's concern.
func NewAdjacency(nodeIDs []int, edges []Edge) *Adjacency {
	a := &Adjacency{
		order:    append([]int(nil), nodeIDs...),
		present:  make(map[int]bool, len(nodeIDs)),
		edgeByID: make(map[int]Edge, len(edges)),
		inEdges:  make(map[int][]Edge, len(nodeIDs)),
		outEdges: make(map[int][]Edge, len(nodeIDs)),
	}
	for _, id := range nodeIDs {
		a.present[id] = true
	}
	for _, e := range edges {
		a.edgeByID[e.ID] = e
		a.outEdges[e.FromNode] = append(a.outEdges[e.FromNode], e)
		a.inEdges[e.ToNode] = append(a.inEdges[e.ToNode], e)
	}
	return a
}

// NodeIDs returns node ids in insertion order.
func (a *Adjacency) NodeIDs() []int {
	return a.order
}

// Has reports whether the node id is part of the graph.
func (a *Adjacency) Has(id int) bool {
	return a.present[id]
}

// Edge returns the edge with the given id.
func (a *Adjacency) Edge(id int) (Edge, bool) {
	e, ok := a.edgeByID[id]
	return e, ok
}

// InEdges returns the edges arriving at the node, in input order.
func (a *Adjacency) InEdges(nodeID int) []Edge {
	return a.inEdges[nodeID]
}

// OutEdges returns the edges leaving the node, in input order.
func (a *Adjacency) OutEdges(nodeID int) []Edge {
	return a.outEdges[nodeID]
}

// Neighbours returns the ids of nodes connected to the given socket of the
// given node, regardless of edge direction.
func (a *Adjacency) Neighbours(nodeID int, socketID string) []int {
	var ids []int
	for _, e := range a.outEdges[nodeID] {
		if e.FromSocket == socketID {
			ids = append(ids, e.ToNode)
		}
	}
	for _, e := range a.inEdges[nodeID] {
		if e.ToSocket == socketID {
			ids = append(ids, e.FromNode)
		}
	}
	return ids
}

// TopologicalOrder returns node ids in dependency order using Kahn's
// algorithm. Nodes in the exclude set are skipped entirely: they do not
// appear in the result and edges touching them do not constrain the order.
// Ties break on node insertion order, so the result is deterministic for a
// given graph. Returns ErrCycle if the included subgraph cannot be fully
// ordered.
func (a *Adjacency) TopologicalOrder(exclude map[int]bool) ([]int, error) {
	included := func(id int) bool {
		return a.present[id] && !exclude[id]
	}

	inDegree := make(map[int]int, len(a.order))
	var queue []int
	for _, id := range a.order {
		if !included(id) {
			continue
		}
		degree := 0
		for _, e := range a.inEdges[id] {
			if included(e.FromNode) {
				degree++
			}
		}
		inDegree[id] = degree
		if degree == 0 {
			queue = append(queue, id)
		}
	}

	want := len(inDegree)
	order := make([]int, 0, want)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		for _, e := range a.outEdges[id] {
			if !included(e.ToNode) {
				continue
			}
			inDegree[e.ToNode]--
			if inDegree[e.ToNode] == 0 {
				queue = append(queue, e.ToNode)
			}
		}
	}

	if len(order) != want {
		return nil, ErrCycle
	}
	return order, nil
}
