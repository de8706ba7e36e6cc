// Package tilesim implements the event-driven tile-lattice simulator
// (S2): it walks a leaf's physical instruction DAG, lazily creates
// qubits on first touch, ticks ballistic moves and in-place operations to
// completion, and performs the atomic teleport identity-swap once a
// teleport's three final BMOVs all complete (§4.8).
package tilesim

import (
	"strings"

	"github.com/kegliz/qkqest/internal/depgraph"
	"github.com/kegliz/qkqest/internal/instr"
	"github.com/kegliz/qkqest/internal/teleport"
)

// QState is a qubit's lifecycle state (§3).
type QState int

const (
	Idle QState = iota
	InOp
	InMov
)

// Kind classifies a qubit by id suffix, inferred the way §4.8 step 1
// specifies: "_zero" -> ZERO, "_epr1"/"_epr2" -> EPR1/EPR2, "_magic" ->
// MAGIC, else DATA.
type Kind int

const (
	DataKind Kind = iota
	EPR1Kind
	EPR2Kind
	ZeroKind
	MagicKind
)

func inferKind(id string) Kind {
	switch {
	case strings.Contains(id, "_epr1"):
		return EPR1Kind
	case strings.Contains(id, "_epr2"):
		return EPR2Kind
	case strings.Contains(id, "_zero"):
		return ZeroKind
	case strings.Contains(id, "_magic"):
		return MagicKind
	default:
		return DataKind
	}
}

// Qubit is the tile simulator's live per-id resource record (§3).
type Qubit struct {
	ID    string
	Kind  Kind
	Age   int
	Tile  int
	Sub   instr.SubLoc
	State QState

	opRemaining    int
	routeCountdown int
	moveDest       int
	moveDestSub    instr.SubLoc
}

// Policy bundles the per-cycle smoothing knobs (§4.8): forward admission
// of not-yet-existing ancilla moves within a window and cap. Backward is
// carried in the struct but Simulator never reads it: no ancilla moves of
// a following leaf are pre-fetched.
type Policy struct {
	ForwardWindow int // -1 = unlimited ("inf")
	ForwardCap    int // -1 = unlimited ("inf")
	Backward      bool
}

// Metrics is the per-cycle time series §4.8 step 5 records.
type Metrics struct {
	LiveQubits      []int
	LiveZero        []int
	LiveEPR         []int
	LiveMagic       []int
}

// Simulator drives one leaf's physical instruction list to completion.
type Simulator struct {
	dag       *depgraph.Graph[string, *instr.Instr]
	remaining map[depgraph.ID]int
	ready     []depgraph.ID
	executing map[depgraph.ID]bool
	qubits    map[string]*Qubit
	tuples    []teleport.Tuple
	manhattan func(src, dst int) int
	concatLvl int
	policy    Policy

	Cycle   int
	Metrics Metrics
}

// New builds a simulator for dag (the leaf's physical-instruction
// dependency graph, keyed by qubit id), with a Manhattan-distance function
// over tile indices used to size inter-tile routing countdowns.
func New(dag *depgraph.Graph[string, *instr.Instr], tuples []teleport.Tuple, manhattan func(int, int) int, concatLvl int, policy Policy) *Simulator {
	return &Simulator{
		dag:       dag,
		remaining: dag.InitialInDegree(),
		ready:     append([]depgraph.ID(nil), dag.Roots()...),
		executing: make(map[depgraph.ID]bool),
		qubits:    make(map[string]*Qubit),
		tuples:    tuples,
		manhattan: manhattan,
		concatLvl: concatLvl,
		policy:    policy,
	}
}

func pow7(n int) int {
	p := 1
	for i := 0; i < n; i++ {
		p *= 7
	}
	return p
}

// Run steps the simulator until both the ready queue and executing set
// are empty, returning the total cycle count for this leaf.
func (s *Simulator) Run() int {
	for len(s.ready) > 0 || len(s.executing) > 0 {
		s.Step()
	}
	return s.Cycle
}

// Step advances the simulator by exactly one cycle, following §4.8's
// admit -> tick -> complete -> teleport-swap -> metrics phase order.
func (s *Simulator) Step() {
	s.admit()
	s.tick()
	s.completeFinished()
	s.swapTeleports()
	s.recordMetrics()
	for id := range s.qubits {
		s.qubits[id].Age++
	}
	s.Cycle++
}

// admit moves eligible ready-queue instructions into the executing set,
// applying the forward-smoothing window/cap to ancilla BMOVs whose
// qubits don't exist yet.
func (s *Simulator) admit() {
	admitted := 0
	var stillReady []depgraph.ID
	for i, id := range s.ready {
		in := s.dag.Node(id).Item
		if !s.eligible(in, i) {
			stillReady = append(stillReady, id)
			continue
		}
		_, exists := s.qubits[in.QID]
		newAncilla := in.Kind == instr.KindBMOV && !exists && inferKind(in.QID) != DataKind
		if newAncilla && s.policy.ForwardCap >= 0 && admitted >= s.policy.ForwardCap {
			stillReady = append(stillReady, id)
			continue
		}
		s.startExecuting(id, in)
		s.executing[id] = true
		if newAncilla {
			admitted++
		}
	}
	s.ready = stillReady
}

func (s *Simulator) eligible(in *instr.Instr, posInReady int) bool {
	if in.Kind != instr.KindBMOV {
		return true
	}
	if _, exists := s.qubits[in.QID]; exists {
		return true
	}
	k := inferKind(in.QID)
	if k == DataKind {
		return true // created lazily on first touch
	}
	if s.policy.ForwardWindow < 0 {
		return true
	}
	return posInReady <= s.policy.ForwardWindow
}

func (s *Simulator) startExecuting(id depgraph.ID, in *instr.Instr) {
	switch in.Kind {
	case instr.KindBMOV:
		q, ok := s.qubits[in.QID]
		if !ok {
			q = &Qubit{ID: in.QID, Kind: inferKind(in.QID), Tile: in.Src, Sub: in.SrcSub}
			s.qubits[in.QID] = q
		}
		q.State = InMov
		q.moveDest = in.Dst
		q.moveDestSub = in.DstSub
		if in.Src == in.Dst {
			q.routeCountdown = 1
		} else {
			dist := 1
			if s.manhattan != nil {
				dist = s.manhattan(in.Src, in.Dst)
			}
			q.routeCountdown = dist * pow7(s.concatLvl)
		}
	case instr.KindOP:
		for _, qid := range in.QIDs {
			q, ok := s.qubits[qid]
			if !ok {
				q = &Qubit{ID: qid, Kind: inferKind(qid)}
				s.qubits[qid] = q
			}
			q.State = InOp
			q.opRemaining = 1
		}
	}
}

// tick decrements routing/op countdowns for every qubit owned by an
// executing instruction, transitioning to Idle at zero.
func (s *Simulator) tick() {
	for id := range s.executing {
		in := s.dag.Node(id).Item
		switch in.Kind {
		case instr.KindBMOV:
			q := s.qubits[in.QID]
			if q.State != InMov {
				continue
			}
			q.routeCountdown--
			if q.routeCountdown <= 0 {
				q.Tile = q.moveDest
				q.Sub = q.moveDestSub
				q.State = Idle
			}
		case instr.KindOP:
			for _, qid := range in.QIDs {
				q := s.qubits[qid]
				if q.State != InOp {
					continue
				}
				q.opRemaining--
				if q.opRemaining <= 0 {
					q.State = Idle
				}
			}
		}
	}
}

// completeFinished removes instructions whose qubits have all reached
// Idle, enabling their successors and deleting qubits marked no_child
// that aren't part of an outstanding teleport tuple.
func (s *Simulator) completeFinished() {
	var done []depgraph.ID
	for id := range s.executing {
		in := s.dag.Node(id).Item
		if s.allIdle(in) {
			done = append(done, id)
		}
	}
	for _, id := range done {
		in := s.dag.Node(id).Item
		delete(s.executing, id)
		in.IsComplete = true

		newlyReady := s.dag.RemoveInEdges(id, s.remaining)
		s.ready = append(s.ready, newlyReady...)

		if in.NoChild && !s.inTeleportTuple(in) {
			for _, qid := range in.QubitIDs() {
				delete(s.qubits, qid)
			}
		}
	}
}

func (s *Simulator) allIdle(in *instr.Instr) bool {
	for _, qid := range in.QubitIDs() {
		q, ok := s.qubits[qid]
		if !ok || q.State != Idle {
			return false
		}
	}
	return true
}

func (s *Simulator) inTeleportTuple(in *instr.Instr) bool {
	for _, tp := range s.tuples {
		if tp.DataFinal == in.Seq || tp.EPR1Final == in.Seq || tp.EPR2Final == in.Seq {
			return true
		}
	}
	return false
}

// swapTeleports performs the identity swap for any teleport tuple whose
// three final BMOVs have all completed: epr2 becomes the new data qubit
// (stripped of its epr suffix), and the old data/epr1 qubits are
// destroyed (§4.8 step 4, §8 property 6).
func (s *Simulator) swapTeleports() {
	var remaining []teleport.Tuple
	for _, tp := range s.tuples {
		if s.tupleDone(tp) {
			if epr2, ok := s.qubits[tp.EPR2ID]; ok {
				epr2.ID = tp.DataID
				epr2.Kind = DataKind
				delete(s.qubits, tp.EPR2ID)
				s.qubits[tp.DataID] = epr2
			}
			delete(s.qubits, tp.EPR1ID)
		} else {
			remaining = append(remaining, tp)
		}
	}
	s.tuples = remaining
}

func (s *Simulator) tupleDone(tp teleport.Tuple) bool {
	return s.instrComplete(tp.DataFinal) && s.instrComplete(tp.EPR1Final) && s.instrComplete(tp.EPR2Final)
}

func (s *Simulator) instrComplete(seq int) bool {
	for _, n := range s.dag.Nodes() {
		if n.Item.Seq == seq {
			return n.Item.IsComplete
		}
	}
	return false
}

func (s *Simulator) recordMetrics() {
	live, zero, epr, magic := 0, 0, 0, 0
	for _, q := range s.qubits {
		live++
		switch q.Kind {
		case ZeroKind:
			zero++
		case EPR1Kind, EPR2Kind:
			epr++
		case MagicKind:
			magic++
		}
	}
	s.Metrics.LiveQubits = append(s.Metrics.LiveQubits, live)
	s.Metrics.LiveZero = append(s.Metrics.LiveZero, zero)
	s.Metrics.LiveEPR = append(s.Metrics.LiveEPR, epr)
	s.Metrics.LiveMagic = append(s.Metrics.LiveMagic, magic)
}

// PeakLiveQubits returns the maximum live-qubit count observed across the
// run, the quantity the aggregator multiplies by 7^ell (§4.9).
func (s *Simulator) PeakLiveQubits() int {
	max := 0
	for _, v := range s.Metrics.LiveQubits {
		if v > max {
			max = v
		}
	}
	return max
}
