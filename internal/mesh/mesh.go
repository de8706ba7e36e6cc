// Package mesh models the physical node/link ownership lattice that the
// braid scheduler and the tile simulator reserve resources on.
//
// The lattice has (R+1) rows and (C+1) columns of corner nodes; a logical
// qubit index q in [0, R*C) occupies the 2x2 cell whose four corners are
// derived from q by fixed arithmetic. Node state is held in a flat array
// indexed by row*(C+1)+col, and link state in two flat arrays (horizontal,
// vertical) indexed by the link's lower-index endpoint, with adjacency
// computed arithmetically, per spec.md's design note that the teacher's
// adjacency-list approach is overkill for a fixed, regular lattice.
package mesh

import "math"

// Dims returns the R x C qubit-grid dimensions for N logical qubits
// (the node lattice is (R+1) x (C+1)): R = ceil(sqrt(N)), and C is R-1
// when R*(R-1) >= N, otherwise R.
func Dims(n int) (rows, cols int) {
	if n <= 0 {
		return 1, 1
	}
	r := int(math.Ceil(math.Sqrt(float64(n))))
	c := r
	if (r - 1) * r >= n {
		c = r - 1
	}
	return r, c
}

// Direction enumerates the three corner-relative directions used by the
// braid-geometry helpers.
type Direction int

const (
	Horizontal Direction = iota
	Vertical
	Diagonal
)

// Mesh owns the live ownership state of every node and link on the lattice.
// owner == 0 means free; any other value is the sequence number of the gate
// that currently holds the cell. Mutation is restricted to event attempts
// in braidsched (§5): a cell may only be released by a close-event issued
// by the same owner that opened it.
type Mesh struct {
	Rows, Cols int // node-lattice dims: (R+1) x (C+1)
	QRows      int // qubit-grid rows R
	QCols      int // qubit-grid cols C

	nodeOwner []uint64 // len Rows*Cols
	// links: horizontal link from node i to i+1, vertical link from node i to i+Cols.
	// Stored as two flat arrays indexed by the "from" node id.
	hLinkOwner []uint64
	vLinkOwner []uint64
}

// New builds a mesh sized for n logical qubits.
func New(n int) *Mesh {
	qr, qc := Dims(n)
	rows, cols := qr+1, qc+1
	return &Mesh{
		Rows: rows, Cols: cols,
		QRows: qr, QCols: qc,
		nodeOwner:  make([]uint64, rows*cols),
		hLinkOwner: make([]uint64, rows*cols),
		vLinkOwner: make([]uint64, rows*cols),
	}
}

// NodeID identifies a lattice corner node by its flat index.
type NodeID int

// LinkKind distinguishes horizontal (row-wise) from vertical (column-wise)
// links so a LinkID can be resolved without ambiguity.
type LinkKind int

const (
	HLink LinkKind = iota
	VLink
)

// LinkID identifies an undirected link by its lower-index endpoint and kind.
type LinkID struct {
	From NodeID
	Kind LinkKind
}

func (m *Mesh) row(n NodeID) int { return int(n) / m.Cols }
func (m *Mesh) col(n NodeID) int { return int(n) % m.Cols }

// Corners returns the four corner nodes (TL, TR, BL, BR) of logical qubit q.
func (m *Mesh) Corners(q int) (tl, tr, bl, br NodeID) {
	tl = NodeID(q + q/m.QCols)
	tr = tl + 1
	bl = tl + NodeID(m.QCols) + 1
	br = bl + 1
	return
}

// Horizontal returns the node horizontally adjacent to n (same row, col+-1
// chosen toward the interior) — concretely the other horizontal corner
// sharing n's row within its qubit cell.
func (m *Mesh) Horizontal(q int, n NodeID) NodeID {
	tl, tr, bl, br := m.Corners(q)
	switch n {
	case tl:
		return tr
	case tr:
		return tl
	case bl:
		return br
	case br:
		return bl
	}
	return n
}

// Vertical returns the node vertically adjacent to n within qubit q's cell.
func (m *Mesh) Vertical(q int, n NodeID) NodeID {
	tl, tr, bl, br := m.Corners(q)
	switch n {
	case tl:
		return bl
	case tr:
		return br
	case bl:
		return tl
	case br:
		return tr
	}
	return n
}

// Diagonal returns the diagonally opposite corner of n within qubit q's cell.
func (m *Mesh) Diagonal(q int, n NodeID) NodeID {
	tl, tr, bl, br := m.Corners(q)
	switch n {
	case tl:
		return br
	case tr:
		return bl
	case bl:
		return tr
	case br:
		return tl
	}
	return n
}

// Nearest returns the corner of q closest to src by row/col comparison.
func (m *Mesh) Nearest(q int, src NodeID) NodeID {
	tl, tr, bl, br := m.Corners(q)
	sr, sc := m.row(src), m.col(src)

	best := tl
	bestDist := m.dist(sr, sc, tl)
	for _, cand := range []NodeID{tr, bl, br} {
		if d := m.dist(sr, sc, cand); d < bestDist {
			best, bestDist = cand, d
		}
	}
	return best
}

func (m *Mesh) dist(sr, sc int, n NodeID) int {
	r, c := m.row(n), m.col(n)
	dr, dc := r-sr, c-sc
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// AreAdjacent reports whether q1 and q2 share a row and differ by one
// column in the qubit grid.
func AreAdjacent(q1, q2 int, qcols int) bool {
	r1, c1 := q1/qcols, q1%qcols
	r2, c2 := q2/qcols, q2%qcols
	return r1 == r2 && abs(c1-c2) == 1
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// linkBetween resolves the LinkID connecting two adjacent nodes, or false
// if they are not adjacent.
func (m *Mesh) linkBetween(a, b NodeID) (LinkID, bool) {
	if b == a+1 && m.col(a) < m.Cols-1 {
		return LinkID{From: a, Kind: HLink}, true
	}
	if a == b+1 && m.col(b) < m.Cols-1 {
		return LinkID{From: b, Kind: HLink}, true
	}
	if b == a+NodeID(m.Cols) {
		return LinkID{From: a, Kind: VLink}, true
	}
	if a == b+NodeID(m.Cols) {
		return LinkID{From: b, Kind: VLink}, true
	}
	return LinkID{}, false
}

// LinkBetween is the exported form of linkBetween, used by braid geometry.
func (m *Mesh) LinkBetween(a, b NodeID) (LinkID, bool) { return m.linkBetween(a, b) }

func (m *Mesh) linkOwnerSlice(kind LinkKind) []uint64 {
	if kind == HLink {
		return m.hLinkOwner
	}
	return m.vLinkOwner
}

// NodeOwner returns the current owner of node n (0 = free).
func (m *Mesh) NodeOwner(n NodeID) uint64 { return m.nodeOwner[n] }

// LinkOwner returns the current owner of link l (0 = free).
func (m *Mesh) LinkOwner(l LinkID) uint64 { return m.linkOwnerSlice(l.Kind)[l.From] }

// CanOpen reports whether every node and link in the given sets is free.
func (m *Mesh) CanOpen(nodes []NodeID, links []LinkID) bool {
	for _, n := range nodes {
		if m.nodeOwner[n] != 0 {
			return false
		}
	}
	for _, l := range links {
		if m.linkOwnerSlice(l.Kind)[l.From] != 0 {
			return false
		}
	}
	return true
}

// CanClose reports whether every node and link is owned by owner.
func (m *Mesh) CanClose(nodes []NodeID, links []LinkID, owner uint64) bool {
	for _, n := range nodes {
		if m.nodeOwner[n] != owner {
			return false
		}
	}
	for _, l := range links {
		if m.linkOwnerSlice(l.Kind)[l.From] != owner {
			return false
		}
	}
	return true
}

// Open sets owner on every node and link. The caller must have verified
// CanOpen first; Open panics on a mismatched owner to surface mesh-invariant
// violations (§7) rather than silently corrupting shared state.
func (m *Mesh) Open(nodes []NodeID, links []LinkID, owner uint64) {
	for _, n := range nodes {
		if m.nodeOwner[n] != 0 {
			panic("mesh: open on already-owned node")
		}
		m.nodeOwner[n] = owner
	}
	for _, l := range links {
		s := m.linkOwnerSlice(l.Kind)
		if s[l.From] != 0 {
			panic("mesh: open on already-owned link")
		}
		s[l.From] = owner
	}
}

// Close releases every node and link, asserting they were owned by owner.
func (m *Mesh) Close(nodes []NodeID, links []LinkID, owner uint64) {
	for _, n := range nodes {
		if m.nodeOwner[n] != owner {
			panic("mesh: close with mismatched owner")
		}
		m.nodeOwner[n] = 0
	}
	for _, l := range links {
		s := m.linkOwnerSlice(l.Kind)
		if s[l.From] != owner {
			panic("mesh: close with mismatched owner")
		}
		s[l.From] = 0
	}
}

// Purge releases every cell owned by owner, regardless of current braid
// membership. Used by the drop-escalation path (§4.4 step 4) to reclaim a
// dropped gate's reservations without needing its original open sets.
func (m *Mesh) Purge(owner uint64) {
	for i, o := range m.nodeOwner {
		if o == owner {
			m.nodeOwner[i] = 0
		}
	}
	for i, o := range m.hLinkOwner {
		if o == owner {
			m.hLinkOwner[i] = 0
		}
	}
	for i, o := range m.vLinkOwner {
		if o == owner {
			m.vLinkOwner[i] = 0
		}
	}
}
