// Package depgraph builds a last-writer/reader dependency DAG over a
// sequence of items keyed by qubit id. It generalizes qc/dag.DAG's edge
// construction (one parent per last op touching each incident qubit, edge
// set deduped via a per-node parent set) with a type parameter on the
// qubit-id type, so the same algorithm builds the leaf-level gate DAG
// (int qubit indices) and the physical-level instruction DAG (string tile
// qubit ids) that spec.md §4.3 both require.
package depgraph

// ID identifies a node by its position of insertion (sequence number).
type ID int

// Node is one DAG vertex wrapping caller-supplied Item, along with the set
// of qubit ids it touches and its computed parents/children.
type Node[K comparable, V any] struct {
	ID       ID
	Item     V
	Qubits   []K
	Parents  []ID
	Children []ID
}

// Graph is a dependency DAG over items of type V keyed by qubit ids of
// type K. Edges mean "must complete before": an edge src->dst exists iff
// src and dst share a qubit id and src precedes dst in insertion order
// with no intervening node on that qubit (§4.3, §8 property 3).
type Graph[K comparable, V any] struct {
	nodes []*Node[K, V]
	last  map[K]ID // last writer/reader per qubit id; absent = none yet
}

// New creates an empty dependency graph.
func New[K comparable, V any]() *Graph[K, V] {
	return &Graph[K, V]{last: make(map[K]ID)}
}

// Add appends item touching the given qubit ids, wiring an edge from the
// last node that touched each id (deduped so a multi-qubit item sharing a
// predecessor on two of its operands gets one edge, not two).
func (g *Graph[K, V]) Add(item V, qubits []K) ID {
	id := ID(len(g.nodes))
	n := &Node[K, V]{ID: id, Item: item, Qubits: append([]K(nil), qubits...)}
	g.nodes = append(g.nodes, n)

	seen := make(map[ID]struct{})
	for _, q := range qubits {
		if prev, ok := g.last[q]; ok && prev != id {
			if _, dup := seen[prev]; !dup {
				seen[prev] = struct{}{}
				n.Parents = append(n.Parents, prev)
				pn := g.nodes[prev]
				pn.Children = append(pn.Children, id)
			}
		}
		g.last[q] = id
	}
	return id
}

// Node returns the node with the given id.
func (g *Graph[K, V]) Node(id ID) *Node[K, V] { return g.nodes[id] }

// Len returns the number of nodes in the graph.
func (g *Graph[K, V]) Len() int { return len(g.nodes) }

// Nodes returns all nodes in insertion order.
func (g *Graph[K, V]) Nodes() []*Node[K, V] { return g.nodes }

// TopoSort returns node ids in a valid topological order via Kahn's
// algorithm, matching qc/dag.DAG.calculateTopoSort's approach.
func (g *Graph[K, V]) TopoSort() []ID {
	inDeg := make([]int, len(g.nodes))
	for i, n := range g.nodes {
		inDeg[i] = len(n.Parents)
	}
	queue := make([]ID, 0, len(g.nodes))
	for i, d := range inDeg {
		if d == 0 {
			queue = append(queue, ID(i))
		}
	}
	order := make([]ID, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, c := range g.nodes[id].Children {
			inDeg[c]--
			if inDeg[c] == 0 {
				queue = append(queue, c)
			}
		}
	}
	return order
}

// RemoveInEdges decrements the remaining-predecessor count of every child
// of id in remaining (the node's own Parents lists are left unchanged),
// returning the children whose count drops to zero. Used by schedulers to enable successors as a node
// completes, mirroring §4.4 step 3's "clear out-edges ... add any child
// whose in-degree becomes zero to ready_gates".
func (g *Graph[K, V]) RemoveInEdges(id ID, remaining map[ID]int) []ID {
	var newlyReady []ID
	for _, c := range g.nodes[id].Children {
		remaining[c]--
		if remaining[c] == 0 {
			newlyReady = append(newlyReady, c)
		}
	}
	return newlyReady
}

// InitialInDegree returns a fresh map of each node's parent count, used to
// seed a scheduler's remaining-predecessor tracking.
func (g *Graph[K, V]) InitialInDegree() map[ID]int {
	m := make(map[ID]int, len(g.nodes))
	for i, n := range g.nodes {
		m[ID(i)] = len(n.Parents)
	}
	return m
}

// Roots returns the ids of nodes with no parents, the initial ready set.
func (g *Graph[K, V]) Roots() []ID {
	var roots []ID
	for i, n := range g.nodes {
		if len(n.Parents) == 0 {
			roots = append(roots, ID(i))
		}
	}
	return roots
}

// AddCrossEdge adds an explicit edge from src to dst without going through
// the last-writer bookkeeping, used for the three teleport-completion
// edges §4.3 calls out (data-move/epr1-move/epr2-move -> first downstream
// user of the relocated data qubit).
func (g *Graph[K, V]) AddCrossEdge(src, dst ID) {
	s, d := g.nodes[src], g.nodes[dst]
	for _, p := range d.Parents {
		if p == src {
			return
		}
	}
	d.Parents = append(d.Parents, src)
	s.Children = append(s.Children, dst)
}
