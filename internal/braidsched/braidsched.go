// Package braidsched implements the cycle-accurate event-driven braid
// scheduler (S1): it walks the gate dependency DAG, expands each ready
// gate into its event queue via gateexpand, attempts events against the
// mesh each cycle, and escalates through DOR-orientation switches and
// gate drops on repeated conflict (§4.4).
package braidsched

import (
	"errors"

	"github.com/kegliz/qkqest/internal/braid"
	"github.com/kegliz/qkqest/internal/depgraph"
	"github.com/kegliz/qkqest/internal/gateexpand"
	"github.com/kegliz/qkqest/internal/isa"
	"github.com/kegliz/qkqest/internal/logger"
	"github.com/kegliz/qkqest/internal/mesh"
)

// ErrDeadlock is returned when no DAG edges are removed for the
// configured detection window (§7's "STUCK" condition).
var ErrDeadlock = errors.New("braidsched: no progress within deadlock window")

// Config carries the scheduler's tunable thresholds (§6 CLI flags --yx,
// --drop) and the code distance used for phase-timer lookups.
type Config struct {
	CodeDistance  int
	YXThreshold   int
	DropThreshold int
	QCols         int // qubit-grid column count, for ancilla/DOR geometry
}

// Result accumulates the scheduler's outcome counters (§4.4's result sets).
type Result struct {
	Cycles int

	SuccessEvents  int
	ConflictTotal  int
	ConflictUnique map[int]bool // keyed by (gateSeq<<8 | phase), deduped
	DroppedTotal   int
	DroppedUnique  map[int]bool
	AttemptsHist   map[int]int // attempts -> occurrence count
}

func newResult() *Result {
	return &Result{
		ConflictUnique: make(map[int]bool),
		DroppedUnique:  make(map[int]bool),
		AttemptsHist:   make(map[int]int),
	}
}

func eventKey(gateSeq int, phase isa.PhaseTag) int { return gateSeq<<8 | int(phase) }

// liveGate tracks one in-flight gate's event queue, its DAG node id (so a
// drop can re-admit it without a search), and the mesh commitment it owns.
type liveGate struct {
	id    depgraph.ID
	gate  isa.Gate
	queue *gateexpand.Queue
}

// Scheduler runs the braid scheduler over a gate-level dependency graph.
type Scheduler struct {
	cfg  Config
	mesh *mesh.Mesh
	log  *logger.Logger

	dag *depgraph.Graph[int, isa.Gate]
}

// New creates a scheduler for the given mesh, gate DAG, and configuration.
func New(m *mesh.Mesh, dag *depgraph.Graph[int, isa.Gate], cfg Config) *Scheduler {
	return &Scheduler{cfg: cfg, mesh: m, dag: dag, log: logger.SpawnForService("braidsched")}
}

// maxDeadlockCycles bounds the "no edges removed" deadlock detector (§7)
// at the spec's production threshold.
const maxDeadlockCycles = 1_000_000

// Run drives the scheduler to completion (all queues empty, DAG edgeless)
// and returns the accumulated Result.
func (s *Scheduler) Run() (*Result, error) {
	return s.RunWithLimit(maxDeadlockCycles)
}

// RunWithLimit is Run with an explicit deadlock-detection window, so tests
// can exercise the STUCK path without waiting a million cycles.
func (s *Scheduler) RunWithLimit(deadlockWindow int) (*Result, error) {
	res := newResult()

	remaining := s.dag.InitialInDegree()
	readyGates := append([]depgraph.ID(nil), s.dag.Roots()...)

	live := make(map[int]*liveGate) // keyed by gate.Seq
	var readyEvents []*gateexpand.Event
	eventOwner := make(map[*gateexpand.Event]int) // event -> gate seq

	totalNodes := s.dag.Len()
	completed := 0
	edgesRemovedSince := 0

	for completed < totalNodes || len(live) > 0 {
		// 1. Expand ready gates.
		for _, id := range readyGates {
			n := s.dag.Node(id)
			g := n.Item
			q := gateexpand.Expand(s.mesh, g, s.cfg.QCols)
			live[g.Seq] = &liveGate{id: id, gate: g, queue: q}
		}
		readyGates = readyGates[:0]

		// 2. Tick: promote timers that hit zero.
		for _, lg := range live {
			head := lg.queue.Head()
			if head == nil {
				continue
			}
			if head.Timer < 0 {
				head.Timer = 0 // newly exposed head becomes ready immediately
			}
			if head.Timer == 0 {
				if _, already := eventOwner[head]; !already {
					readyEvents = append(readyEvents, head)
					eventOwner[head] = lg.gate.Seq
				}
			} else {
				head.Timer--
			}
		}

		// 3. Attempt ready events in insertion order.
		var stillPending []*gateexpand.Event
		progressed := false
		for _, ev := range readyEvents {
			gateSeq, owned := eventOwner[ev]
			if !owned {
				continue
			}
			lg, ok := live[gateSeq]
			if !ok {
				delete(eventOwner, ev)
				continue // gate was dropped mid-cycle
			}

			var success bool
			switch ev.Kind {
			case gateexpand.Open:
				if s.mesh.CanOpen(ev.Braid.Nodes, ev.Braid.Links) {
					s.mesh.Open(ev.Braid.Nodes, ev.Braid.Links, uint64(gateSeq))
					success = true
				}
			case gateexpand.Close:
				if s.mesh.CanClose(ev.Braid.Nodes, ev.Braid.Links, uint64(gateSeq)) {
					s.mesh.Close(ev.Braid.Nodes, ev.Braid.Links, uint64(gateSeq))
					success = true
				}
			}

			if success {
				res.SuccessEvents++
				res.AttemptsHist[ev.Attempts]++
				progressed = true
				lg.queue.Pop()
				delete(eventOwner, ev)
				if lg.queue.Empty() {
					delete(live, gateSeq)
					newlyReady := s.dag.RemoveInEdges(lg.id, remaining)
					readyGates = append(readyGates, newlyReady...)
					completed++
					edgesRemovedSince = 0
				} else {
					next := lg.queue.Head()
					next.Timer = next.Phase.Latency(s.cfg.CodeDistance) - 1
					if next.Timer < 0 {
						next.Timer = 0
					}
				}
			} else {
				res.ConflictTotal++
				res.ConflictUnique[eventKey(gateSeq, ev.Phase)] = true
				ev.Attempts++

				if ev.Attempts > s.cfg.YXThreshold && (ev.Phase == isa.Cnot3 || ev.Phase == isa.Cnot5) {
					s.switchOrientation(lg, ev)
					s.log.Warn().Int("gate", gateSeq).Int("phase", int(ev.Phase)).Msg("dor orientation switch")
				}
				if ev.Attempts > s.cfg.DropThreshold {
					s.dropGate(lg, res)
					delete(live, gateSeq)
					delete(eventOwner, ev)
					readyGates = append(readyGates, lg.id)
					s.log.Warn().Int("gate", gateSeq).Msg("gate dropped")
					continue
				}
				stillPending = append(stillPending, ev)
			}
		}
		readyEvents = stillPending

		res.Cycles++
		if !progressed {
			edgesRemovedSince++
		}
		if edgesRemovedSince > deadlockWindow {
			return res, ErrDeadlock
		}
	}

	return res, nil
}

// switchOrientation rewrites ev's braid (and its paired close event's
// orientation, when still queued) to use YX DOR instead of XY, resetting
// the attempt counter for the new route (§4.4 step 4).
func (s *Scheduler) switchOrientation(lg *liveGate, ev *gateexpand.Event) {
	openBraid, closeBraid := gateexpand.RebuildRoute(s.mesh, lg.gate, s.cfg.QCols, ev.Phase, braid.YX)
	ev.Braid = openBraid
	ev.Orientation = braid.YX
	ev.Attempts = 0
	paired := pairedClosePhase(ev.Phase)
	for _, other := range lg.queue.Events {
		if other.Phase == paired {
			other.Braid = closeBraid
			other.Orientation = braid.YX
		}
	}
}

func pairedClosePhase(p isa.PhaseTag) isa.PhaseTag {
	switch p {
	case isa.Cnot3:
		return isa.Cnot4
	case isa.Cnot5:
		return isa.Cnot6
	}
	return p
}

// dropGate cancels gate lg entirely: purges its mesh reservations and
// discards its event queue. The caller re-admits lg.id to the ready set
// with a fresh attempt counter on the new instance (§5's cancellation
// semantics).
func (s *Scheduler) dropGate(lg *liveGate, res *Result) {
	s.mesh.Purge(uint64(lg.gate.Seq))
	res.DroppedTotal++
	res.DroppedUnique[lg.gate.Seq] = true
}
