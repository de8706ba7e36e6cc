// Package gateexpand translates one logical gate (§4.2) into its ordered
// queue of timed open/close events over mesh braids. A CNOT expands into
// seven events (cnot1..cnot7); an H expands into two (h1, h2); every other
// single-qubit logical op (X, Z, S, Sdag, T, Tdag, PrepZ, MeasZ) expands
// into a single zero-braid logical event that occupies a DAG node and a
// scheduler slot without reserving mesh cells of its own.
package gateexpand

import (
	"github.com/kegliz/qkqest/internal/braid"
	"github.com/kegliz/qkqest/internal/isa"
	"github.com/kegliz/qkqest/internal/mesh"
)

// Kind distinguishes an open event (claims mesh cells) from a close event
// (releases them).
type Kind int

const (
	Open Kind = iota
	Close
)

// Event is one timed mesh-resource reservation attempt belonging to a
// gate's event queue (§3). Timer is -1 while waiting on a DAG predecessor,
// 0 once ready to attempt, and decrements from a positive value while
// ticking.
type Event struct {
	Braid    braid.Braid
	Kind     Kind
	GateSeq  int
	Phase    isa.PhaseTag
	Timer    int
	Attempts int

	// Orientation records which DOR orientation this event's braid used,
	// so a paired open/close event can be rewritten together on a
	// yx_threshold escalation (§4.4 step 4).
	Orientation braid.Orientation
}

// Queue is the FIFO of events belonging to one live gate.
type Queue struct {
	GateSeq int
	Events  []*Event
}

// Head returns the queue's active event, or nil if empty.
func (q *Queue) Head() *Event {
	if len(q.Events) == 0 {
		return nil
	}
	return q.Events[0]
}

// Pop removes the head event.
func (q *Queue) Pop() { q.Events = q.Events[1:] }

// Empty reports whether the queue has no remaining events.
func (q *Queue) Empty() bool { return len(q.Events) == 0 }

// Expand builds the event queue for gate g on mesh m, given the
// qubit-grid column count qcols (needed for adjacency/ancilla geometry).
func Expand(m *mesh.Mesh, g isa.Gate, qcols int) *Queue {
	switch g.Op {
	case isa.CNOT:
		return expandCNOT(m, g, qcols)
	case isa.H:
		return expandH(m, g)
	default:
		return expandLogical(g)
	}
}

func expandLogical(g isa.Gate) *Queue {
	e := &Event{Kind: Open, GateSeq: g.Seq, Phase: isa.Logical1, Timer: -1}
	return &Queue{GateSeq: g.Seq, Events: []*Event{e}}
}

func expandH(m *mesh.Mesh, g isa.Gate) *Queue {
	q := g.Qubits[0]
	tl, tr, bl, br := m.Corners(q)

	b := braid.Braid{}
	if l, ok := m.LinkBetween(tl, tr); ok {
		b.Links = append(b.Links, l)
	}
	if l, ok := m.LinkBetween(bl, br); ok {
		b.Links = append(b.Links, l)
	}

	open := &Event{Braid: b, Kind: Open, GateSeq: g.Seq, Phase: isa.H1, Timer: -1}
	closeEv := &Event{Braid: b, Kind: Close, GateSeq: g.Seq, Phase: isa.H2, Timer: -1}
	return &Queue{GateSeq: g.Seq, Events: []*Event{open, closeEv}}
}

func expandCNOT(m *mesh.Mesh, g isa.Gate, qcols int) *Queue {
	src, dst := g.Qubits[0], g.Qubits[1]
	anc1, anc2 := braid.AncillaCorners(m, src, dst, qcols)

	ancLink, ok := m.LinkBetween(anc1, anc2)
	if !ok {
		panic("gateexpand: ancilla pair not link-adjacent")
	}
	ancBraid := braid.Braid{Links: []mesh.LinkID{ancLink}}

	route1Open, route1CloseBraid := buildRoute1(m, src, dst, anc1, braid.XY)
	route2Open, route2CloseBraid := buildRoute2(m, src, dst, anc1, braid.XY)

	events := []*Event{
		{Braid: ancBraid, Kind: Open, GateSeq: g.Seq, Phase: isa.Cnot1, Timer: -1},
		{Braid: ancBraid, Kind: Close, GateSeq: g.Seq, Phase: isa.Cnot2, Timer: -1},
		{Braid: route1Open, Kind: Open, GateSeq: g.Seq, Phase: isa.Cnot3, Timer: -1, Orientation: braid.XY},
		{Braid: route1CloseBraid, Kind: Close, GateSeq: g.Seq, Phase: isa.Cnot4, Timer: -1, Orientation: braid.XY},
		{Braid: route2Open, Kind: Open, GateSeq: g.Seq, Phase: isa.Cnot5, Timer: -1, Orientation: braid.XY},
		{Braid: route2CloseBraid, Kind: Close, GateSeq: g.Seq, Phase: isa.Cnot6, Timer: -1, Orientation: braid.XY},
		{Braid: braid.Braid{Nodes: []mesh.NodeID{anc1, anc2}, Links: []mesh.LinkID{ancLink}}, Kind: Close, GateSeq: g.Seq, Phase: isa.Cnot7, Timer: -1},
	}
	return &Queue{GateSeq: g.Seq, Events: events}
}

// buildRoute1 builds the open/close braid pair for the cnot3/cnot4 DOR leg
// (anc1 to the corner of dst nearest anc1) at the given orientation.
func buildRoute1(m *mesh.Mesh, src, dst int, anc1 mesh.NodeID, orient braid.Orientation) (open, close braid.Braid) {
	dstNear := m.Nearest(dst, anc1)
	route1 := braid.SBraid(m, src, anc1).Append(braid.DORPath(m, anc1, dstNear, orient)).Append(braid.SBraid(m, dst, dstNear))
	open = route1.DropLastNode()
	close = open.KeepNode(anc1)
	return
}

// buildRoute2 builds the open/close braid pair for the cnot5/cnot6 DOR leg
// (dst's far diagonal back to src's vertical neighbour of anc1) at the
// given orientation.
func buildRoute2(m *mesh.Mesh, src, dst int, anc1 mesh.NodeID, orient braid.Orientation) (open, close braid.Braid) {
	dstNear := m.Nearest(dst, anc1)
	dstDiag := m.Diagonal(dst, dstNear)
	vAnc1 := m.Vertical(src, anc1)
	route2 := braid.ShortL(m, dst, dstDiag).Append(braid.DORPath(m, dstDiag, vAnc1, orient)).Append(braid.SBraid(m, src, vAnc1))
	open = route2
	close = route2.KeepNode(anc1).DropLastLink()
	return
}

// RebuildRoute recomputes the open/close braid pair for a DOR-routed CNOT
// phase (Cnot3/Cnot4 or Cnot5/Cnot6) at the given orientation, for the
// DOR-switch escalation (§4.4 step 4) to splice back into an already-queued
// event pair.
func RebuildRoute(m *mesh.Mesh, g isa.Gate, qcols int, phase isa.PhaseTag, orient braid.Orientation) (open, close braid.Braid) {
	src, dst := g.Qubits[0], g.Qubits[1]
	anc1, _ := braid.AncillaCorners(m, src, dst, qcols)
	switch phase {
	case isa.Cnot3, isa.Cnot4:
		return buildRoute1(m, src, dst, anc1, orient)
	case isa.Cnot5, isa.Cnot6:
		return buildRoute2(m, src, dst, anc1, orient)
	}
	return braid.Braid{}, braid.Braid{}
}
