// Package leafsched implements the SIMD-k width-bounded list scheduler for
// one leaf basic block (L), plus its critical-path priority computation
// (§4.5). It schedules the same leaf independently for each SIMD width
// k in 1..K_max and keeps only the widths that strictly improve length,
// yielding a per-leaf Pareto rectangle list.
package leafsched

import (
	"github.com/kegliz/qkqest/internal/depgraph"
	"github.com/kegliz/qkqest/internal/isa"
)

// Rectangle is one point on a leaf's Pareto front: at SIMD width K, the
// leaf finishes in Length cycles, contributing TGates/TGatesPar T-gate
// counts (§3's module-profile fields, restricted to the subset the leaf
// scheduler itself computes).
type Rectangle struct {
	Width         int
	Length        int
	TGates        int
	TGatesUB      int
	TGatesPar     int
	TGatesParUB   int
	Ops           int
	Moves         int
}

// slot is one (gate_type, count) pair in a SIMD time slot, abstracted per
// §9's design note as a SlotBundle rather than the source's two parallel
// NUM_QGATES-indexed arrays.
type slot struct {
	kind  isa.Op
	count int
}

// CriticalPathDepth computes, for every gate in g, its unbounded
// critical-path depth from the DAG's outputs (a reverse topological pass):
// a sink has depth 0; every other node's depth is 1 + max(children depth).
// Priority order is descending depth, matching the source's
// highest-priority-first greedy placement.
func CriticalPathDepth(g *depgraph.Graph[int, isa.Gate]) map[depgraph.ID]int {
	order := g.TopoSort()
	depth := make(map[depgraph.ID]int, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		n := g.Node(id)
		max := 0
		for _, c := range n.Children {
			if depth[c]+1 > max {
				max = depth[c] + 1
			}
		}
		depth[id] = max
	}
	return depth
}

// PriorityOrder returns gate ids sorted by descending critical-path depth,
// the order the greedy placer consumes them in.
func PriorityOrder(g *depgraph.Graph[int, isa.Gate]) []depgraph.ID {
	depth := CriticalPathDepth(g)
	order := append([]depgraph.ID(nil), g.TopoSort()...)
	// stable sort by descending depth, ties broken by program order (topo index)
	for i := 1; i < len(order); i++ {
		j := i
		for j > 0 && depth[order[j-1]] < depth[order[j]] {
			order[j-1], order[j] = order[j], order[j-1]
			j--
		}
	}
	return order
}

// Schedule greedily places every gate of g into SIMD slots for width k,
// honoring dConstraint same-type-gates-per-slot, and returns the leaf's
// finishing length in cycles for that width.
func Schedule(g *depgraph.Graph[int, isa.Gate], k, dConstraint int) Rectangle {
	priority := PriorityOrder(g)

	lastStep := make(map[int]int) // per-qubit last occupied step
	// timeSlots[step] holds up to k SlotBundles for that step.
	var timeSlots [][]slot

	place := func(step int, op isa.Op) int {
		for len(timeSlots) <= step {
			timeSlots = append(timeSlots, nil)
		}
		for {
			bundles := timeSlots[step]
			if len(bundles) < k {
				// find a matching or empty bundle
				for i := range bundles {
					if bundles[i].kind == op && bundles[i].count < dConstraint {
						bundles[i].count++
						timeSlots[step] = bundles
						return step
					}
				}
				timeSlots[step] = append(bundles, slot{kind: op, count: 1})
				return step
			}
			// all k slots full at this step but maybe one matches with room
			placed := false
			for i := range bundles {
				if bundles[i].kind == op && bundles[i].count < dConstraint {
					bundles[i].count++
					placed = true
					break
				}
			}
			if placed {
				return step
			}
			step++
			for len(timeSlots) <= step {
				timeSlots = append(timeSlots, nil)
			}
		}
	}

	maxStep := 0
	tGates, tGatesPar, ops := 0, 0, 0
	quiescentBarrier := 0

	for _, id := range priority {
		n := g.Node(id)
		gate := n.Item
		ops++

		tStar := 0
		for _, q := range gate.Qubits {
			if lastStep[q] > tStar {
				tStar = lastStep[q]
			}
		}

		if gate.Op == isa.MeasZ && tStar > quiescentBarrier+1 {
			// a measurement after a long quiescent phase synchronises all
			// qubits' lastStep to the current maximum (§4.5's barrier rule).
			max := 0
			for _, v := range lastStep {
				if v > max {
					max = v
				}
			}
			for q := range lastStep {
				lastStep[q] = max
			}
			tStar = max
		}
		quiescentBarrier = tStar

		step := place(tStar, gate.Op)
		for _, q := range gate.Qubits {
			lastStep[q] = step
		}
		if step > maxStep {
			maxStep = step
		}
		if gate.Op.IsTGate() {
			tGates++
			if k > 1 {
				tGatesPar++
			}
		}
	}

	return Rectangle{
		Width: k, Length: maxStep + 1,
		TGates: tGates, TGatesUB: tGates,
		TGatesPar: tGatesPar, TGatesParUB: tGatesPar,
		Ops: ops,
	}
}

// ParetoFront runs Schedule for every width 1..kMax and keeps only the
// rectangles that strictly improve length over the previous width,
// matching §4.5's "keep only those that strictly improve" rule.
func ParetoFront(g *depgraph.Graph[int, isa.Gate], kMax, dConstraint int) []Rectangle {
	var front []Rectangle
	best := -1
	for k := 1; k <= kMax; k++ {
		r := Schedule(g, k, dConstraint)
		if best == -1 || r.Length < best {
			front = append(front, r)
			best = r.Length
		}
	}
	return front
}
