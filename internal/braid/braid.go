// Package braid computes the node/link sets that make up the geometric
// shapes a gate expansion reserves on the mesh: S-braids, short-Ls, and
// dimension-ordered-routing (DOR) paths. A Braid is a transient value type,
// built fresh for each event and consumed once the scheduler attempts it.
package braid

import "github.com/kegliz/qkqest/internal/mesh"

// Orientation selects which axis a DOR path walks first.
type Orientation int

const (
	XY Orientation = iota // walk X (columns) fully, then Y (rows)
	YX                    // walk Y (rows) fully, then X (columns)
)

// Braid is the ordered node/link sequence reserved by one phase of a gate.
// Braids compose by concatenation (Append).
type Braid struct {
	Nodes []mesh.NodeID
	Links []mesh.LinkID
}

// Append returns the concatenation of b and b2 (b is a value receiver, so
// the caller's braid is left as it was; the result is meant for chaining,
// mirroring the teacher's builder-style DAG construction).
func (b Braid) Append(b2 Braid) Braid {
	b.Nodes = append(b.Nodes, b2.Nodes...)
	b.Links = append(b.Links, b2.Links...)
	return b
}

// DropLastNode returns a copy of b with its final node removed, used by the
// route-1 braids of the CNOT expansion (§4.2 steps cnot3/cnot4).
func (b Braid) DropLastNode() Braid {
	if len(b.Nodes) == 0 {
		return b
	}
	out := Braid{Nodes: append([]mesh.NodeID(nil), b.Nodes[:len(b.Nodes)-1]...), Links: append([]mesh.LinkID(nil), b.Links...)}
	return out
}

// DropLastLink returns a copy of b with its final link removed.
func (b Braid) DropLastLink() Braid {
	if len(b.Links) == 0 {
		return b
	}
	out := Braid{Nodes: append([]mesh.NodeID(nil), b.Nodes...), Links: append([]mesh.LinkID(nil), b.Links[:len(b.Links)-1]...)}
	return out
}

// KeepNode returns a copy of b with n appended back onto its node list,
// used by close-event variants that retain one anchor node (§4.2 cnot4).
func (b Braid) KeepNode(n mesh.NodeID) Braid {
	out := Braid{Nodes: append(append([]mesh.NodeID(nil), b.Nodes...), n), Links: append([]mesh.LinkID(nil), b.Links...)}
	return out
}

// SBraid builds the S-braid through qubit q starting at corner c: the link
// from c to its vertical neighbour, the diagonal node, and the link from
// the diagonal to the horizontal neighbour of c.
func SBraid(m *mesh.Mesh, q int, c mesh.NodeID) Braid {
	v := m.Vertical(q, c)
	h := m.Horizontal(q, c)
	d := m.Diagonal(q, c)

	b := Braid{}
	if l, ok := m.LinkBetween(c, v); ok {
		b.Links = append(b.Links, l)
	}
	b.Nodes = append(b.Nodes, d)
	if l, ok := m.LinkBetween(d, h); ok {
		b.Links = append(b.Links, l)
	}
	return b
}

// ShortL builds the short-L around qubit q starting at corner c: the link
// from c to its horizontal neighbour, the link from there to the diagonal
// node, and both traversed nodes (horizontal neighbour and diagonal).
func ShortL(m *mesh.Mesh, q int, c mesh.NodeID) Braid {
	h := m.Horizontal(q, c)
	d := m.Diagonal(q, c)

	b := Braid{}
	if l, ok := m.LinkBetween(c, h); ok {
		b.Links = append(b.Links, l)
	}
	b.Nodes = append(b.Nodes, h)
	if l, ok := m.LinkBetween(h, d); ok {
		b.Links = append(b.Links, l)
	}
	b.Nodes = append(b.Nodes, d)
	return b
}

// DORPath walks from src to dst, X-then-Y or Y-then-X depending on
// orientation, recording every traversed node and link.
func DORPath(m *mesh.Mesh, src, dst mesh.NodeID, orient Orientation) Braid {
	b := Braid{Nodes: []mesh.NodeID{src}}

	rowOf := func(n mesh.NodeID) int { return int(n) / m.Cols }
	colOf := func(n mesh.NodeID) int { return int(n) % m.Cols }

	cur := src
	walkCols := func() {
		dc := colOf(dst) - colOf(cur)
		step := mesh.NodeID(1)
		if dc < 0 {
			step = -1
		}
		for colOf(cur) != colOf(dst) {
			next := cur + step
			if l, ok := m.LinkBetween(cur, next); ok {
				b.Links = append(b.Links, l)
			}
			cur = next
			b.Nodes = append(b.Nodes, cur)
		}
	}
	walkRows := func() {
		dr := rowOf(dst) - rowOf(cur)
		step := mesh.NodeID(m.Cols)
		if dr < 0 {
			step = -mesh.NodeID(m.Cols)
		}
		for rowOf(cur) != rowOf(dst) {
			next := cur + step
			if l, ok := m.LinkBetween(cur, next); ok {
				b.Links = append(b.Links, l)
			}
			cur = next
			b.Nodes = append(b.Nodes, cur)
		}
	}

	if orient == XY {
		walkCols()
		walkRows()
	} else {
		walkRows()
		walkCols()
	}
	return b
}

// AncillaCorners picks the two anchor corners on src used as the CNOT
// ancilla pair, per §4.2: if src and dst are adjacent, the two corners of
// src on the side away from dst; otherwise the two top corners of src if
// dst is below, the two bottom corners otherwise — keeping the ancilla
// pair off the boundary shared with dst's own cell.
func AncillaCorners(m *mesh.Mesh, src, dst int, qcols int) (anc1, anc2 mesh.NodeID) {
	tl, tr, bl, br := m.Corners(src)
	srow, scol := src/qcols, src%qcols
	drow, dcol := dst/qcols, dst%qcols

	if mesh.AreAdjacent(src, dst, qcols) {
		if dcol > scol {
			return tl, bl
		}
		return tr, br
	}
	if drow > srow {
		return tl, tr
	}
	return bl, br
}
