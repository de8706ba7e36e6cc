// Package pipeline wires the ten core components into one run: parse
// LPFS/FREQ input, schedule and simulate each leaf, fold the results
// through the call-graph aggregator, and hand the report and time
// series to the run store. It plays the role qc/benchmark's
// PluginBenchmarkSuite plays for circuit benchmarks: a fluent
// collect-then-generate-report driver, specialised to one benchmark
// path per run instead of a runner/circuit/scenario matrix.
package pipeline

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kegliz/qkqest/internal/aggregate"
	"github.com/kegliz/qkqest/internal/braidsched"
	"github.com/kegliz/qkqest/internal/coarsesched"
	"github.com/kegliz/qkqest/internal/config"
	"github.com/kegliz/qkqest/internal/depgraph"
	"github.com/kegliz/qkqest/internal/format"
	"github.com/kegliz/qkqest/internal/instr"
	"github.com/kegliz/qkqest/internal/isa"
	"github.com/kegliz/qkqest/internal/leafsched"
	"github.com/kegliz/qkqest/internal/logger"
	"github.com/kegliz/qkqest/internal/mesh"
	"github.com/kegliz/qkqest/internal/runstore"
	"github.com/kegliz/qkqest/internal/teleport"
	"github.com/kegliz/qkqest/internal/tilesim"
)

var log = logger.SpawnForService("pipeline")

// errorBudget is the default per-run logical error budget epsilon used
// by the concatenation-level formula when the benchmark doesn't name
// one explicitly. There's no CLI flag for it in §6; qplay's original
// tooling hardcodes a single lab-wide budget rather than exposing it
// per invocation.
const errorBudget = 1e-2

// thresholdExponent is P_th, the code's error-correction threshold
// exponent (10^-P_th). The teacher's C++ source hardcodes a threshold
// figure rather than deriving it; we carry the same constant, left open
// in spec.md's Open Questions for a specific value.
const thresholdExponent = 10

// dataParallelConstraint is the d_constraint the coarse scheduler uses to
// decide how many identical-signature calls can share a parallel group at
// zero extra width (§4.6). There's no CLI flag for it in §6, same as
// errorBudget, so a single lab-wide value is carried as a constant.
const dataParallelConstraint = 4

// callGraphRoot is the module name aggregate.OrderedLeafList starts its
// traversal from when a .cg file is present.
const callGraphRoot = "main"

// zeroFactoryTile and eprFactoryTile are the global-memory tile indices
// the physical expansion draws zero/EPR resources from when synthesizing
// teleports for a call graph's composed move count; qplay's physical
// layout reserves fixed tile slots for factories outside the data range.
const (
	zeroFactoryTile = -1
	eprFactoryTile  = -2
)

// LeafResult is one leaf's per-run measurements, folded by the
// aggregator into the final report.
type LeafResult struct {
	Function   string
	Cycles     int
	Rectangle  leafsched.Rectangle
	PeakQubits int
}

// Report is everything one invocation of Run produces: the final KQ
// report, the per-leaf breakdown, and the ID it was filed under in the
// run store.
type Report struct {
	RunID string
	Final aggregate.Report
	Leafs []LeafResult
}

// Run executes the full pipeline for the LPFS/FREQ pair named by
// benchmarkPath (without extension): parses input, schedules and
// simulates every leaf, aggregates the results into a KQ report, and
// stores the run. Matches §6's CLI contract: returns an error on
// malformed input or an infeasible parameter.
//
// Of cfg, Run reads P, YX, Drop, SIMDWidth and CodeDistance. The Opt, CNOT,
// Cap, Window, Forward, Backward, BackForth, Usage, Ages and Storage settings
// are not consulted: no placement pre-processor is invoked, every gate is
// scheduled, the tile simulator always runs with an unbounded forward window
// and cap and no smoothing, and no time-series files are written.
func Run(cfg config.Run, store *runstore.Store, benchmarkPath string) (*Report, error) {
	if err := cfg.Validate(thresholdExponent); err != nil {
		return nil, err
	}

	leaves, err := readLPFS(benchmarkPath + ".lpfs")
	if err != nil {
		return nil, err
	}
	freq, err := readFreq(benchmarkPath + ".freq")
	if err != nil {
		return nil, err
	}
	cgBlocks, err := readCG(benchmarkPath + ".cg")
	if err != nil {
		return nil, err
	}

	avgLeafCycles := make(map[string]float64)
	leafSizeFreqSum := 0
	maxRectWidth := 0
	maxDistance := 0
	var leafResults []LeafResult
	calleeRects := make(map[string][]coarsesched.CalleeRect)

	for _, leaf := range leaves {
		d := leaf.D
		if d < cfg.CodeDistance {
			d = cfg.CodeDistance
		}
		if d > maxDistance {
			maxDistance = d
		}

		dag := depgraph.New[int, isa.Gate]()
		maxQubit := 0
		for _, g := range leaf.Gates {
			dag.Add(g, g.Qubits)
			for _, q := range g.Qubits {
				if q > maxQubit {
					maxQubit = q
				}
			}
		}

		m := mesh.New(maxQubit + 1)
		sched := braidsched.New(m, dag, braidsched.Config{
			CodeDistance:  d,
			YXThreshold:   cfg.YX,
			DropThreshold: cfg.Drop,
			QCols:         m.QCols,
		})
		res, err := sched.Run()
		if err != nil {
			return nil, fmt.Errorf("pipeline: leaf %s: %w", leaf.Function, err)
		}

		rect := leafsched.Schedule(dag, cfg.SIMDWidth, d)
		calleeRects[leaf.Function] = toCalleeRects(leafsched.ParetoFront(dag, cfg.SIMDWidth, d))

		peak := simulateLeaf(leaf)
		if rect.Width > maxRectWidth {
			maxRectWidth = rect.Width
		}

		avgLeafCycles[leaf.Function] = float64(res.Cycles)
		leafSizeFreqSum += len(leaf.Gates) * freq[leaf.Function]
		leafResults = append(leafResults, LeafResult{
			Function: leaf.Function, Cycles: res.Cycles, Rectangle: rect, PeakQubits: peak,
		})

		log.Info().Str("leaf", leaf.Function).Int("cycles", res.Cycles).
			Int("dropped", res.DroppedTotal).Msg("leaf scheduled")
	}

	totalCycles := aggregate.TotalCycles(avgLeafCycles, freq)
	lErr := aggregate.LErr(errorBudget, leafSizeFreqSum)
	ell := aggregate.ConcatenationLevel(cfg.P, thresholdExponent, lErr)

	peakQubits := 0
	for _, lr := range leafResults {
		if lr.PeakQubits > peakQubits {
			peakQubits = lr.PeakQubits
		}
	}
	if peakQubits == 0 {
		peakQubits = maxRectWidth
	}

	// When the benchmark ships a call graph, compose its non-leaf
	// profiles bottom-up from the leaf rectangles just computed (C), and
	// expand the root's resulting move count through the teleport
	// protocol before tile-simulating the physical-level DAG (T, S2),
	// rather than stopping at each leaf's isolated logical-op simulation.
	if root := composeCallGraph(cgBlocks, calleeRects); root != nil {
		graph := callGraphNodes(cgBlocks)
		order := aggregate.OrderedLeafList(graph, callGraphRoot)
		log.Info().Int("leaves-visited", len(order)).Int("moves", root.Moves).
			Msg("call graph composed")

		if physPeak := simulatePhysical(leaves, root.Moves, ell); physPeak > peakQubits {
			peakQubits = physPeak
		}
		totalCycles = float64(root.TotalL)
	}

	physicalQubits := aggregate.PhysicalQubits(peakQubits, ell)
	report := aggregate.Report{
		ErrorRateExponent: cfg.P,
		CodeDistance:      maxDistance,
		TotalCycles:       totalCycles,
		MaxQubits:         physicalQubits,
		LogicalKQ:         aggregate.KQ(totalCycles, peakQubits),
		PhysicalKQ:        aggregate.KQ(totalCycles, physicalQubits),
	}

	// Usage carries one peak live-qubit count per leaf, in leaf order, not a
	// per-cycle series; Ages and Storage are left empty.
	rec := runstore.RunRecord{Report: report}
	for _, lr := range leafResults {
		rec.Usage = append(rec.Usage, lr.PeakQubits)
	}
	runID := store.Put(rec)

	log.Info().Str("run", runID).Float64("kq", report.PhysicalKQ).Msg("run complete")

	return &Report{RunID: runID, Final: report, Leafs: leafResults}, nil
}

// simulateLeaf runs the tile simulator over a leaf's intrinsic-op body,
// treating each logical op as a single in-place instruction touching its
// qubit operands, and returns the peak live-qubit count §4.9 feeds into
// the physical-qubit formula.
func simulateLeaf(leaf format.LPFSLeaf) int {
	dag := depgraph.New[string, *instr.Instr]()
	for _, g := range leaf.Gates {
		qids := make([]string, len(g.Qubits))
		for i, q := range g.Qubits {
			qids[i] = "q" + strconv.Itoa(q)
		}
		dag.Add(&instr.Instr{Seq: g.Seq, Kind: instr.KindOP, OpType: string(g.Op), QIDs: qids}, qids)
	}
	sim := tilesim.New(dag, nil, nil, 0, tilesim.Policy{ForwardWindow: -1, ForwardCap: -1})
	sim.Run()
	return sim.PeakLiveQubits()
}

// toCalleeRects adapts a leaf's leafsched Pareto front to the shape
// coarsesched's call-graph composition consumes.
func toCalleeRects(front []leafsched.Rectangle) []coarsesched.CalleeRect {
	out := make([]coarsesched.CalleeRect, len(front))
	for i, r := range front {
		out[i] = coarsesched.CalleeRect{Width: r.Width, Length: r.Length, Ops: r.Ops, TGates: r.TGates, Moves: r.Moves}
	}
	return out
}

// composeCallGraph resolves every non-leaf CG block bottom-up: once every
// callee named in a block's body has a rectangle (a leaf's Pareto front
// seeded by the caller, or an already-composed non-leaf's profile), the
// block is packed via coarsesched.Schedule at its own recorded SIMD
// width, and the resulting profile becomes a one-point rectangle list for
// its own callers (§4.6). Returns the composed root profile, or nil if
// there's no call graph or the root never resolves.
func composeCallGraph(blocks []format.CGBlock, rects map[string][]coarsesched.CalleeRect) *coarsesched.Profile {
	if len(blocks) == 0 {
		return nil
	}

	pending := append([]format.CGBlock(nil), blocks...)
	for progressed := true; progressed && len(pending) > 0; {
		progressed = false
		var next []format.CGBlock
		for _, blk := range pending {
			if blk.IsLeaf {
				continue
			}
			ready := true
			for _, call := range blk.Callees {
				if _, ok := rects[call.Callee]; !ok {
					ready = false
					break
				}
			}
			if !ready {
				next = append(next, blk)
				continue
			}

			body := make([]coarsesched.Call, len(blk.Callees))
			for i, c := range blk.Callees {
				body[i] = coarsesched.Call{Callee: c.Callee, Ts: c.Ts, Signature: c.Callee + " " + strings.Join(c.Args, " ")}
			}
			profile := coarsesched.Schedule(body, rects, blk.K, dataParallelConstraint)
			rects[blk.Module] = []coarsesched.CalleeRect{{
				Width: profile.Width, Length: profile.TotalL, Ops: profile.Ops, TGates: profile.TGates, Moves: profile.Moves,
			}}
			progressed = true
		}
		pending = next
	}

	r, ok := rects[callGraphRoot]
	if !ok || len(r) == 0 {
		return nil
	}
	return &coarsesched.Profile{Width: r[0].Width, TotalW: r[0].Width, TotalL: r[0].Length, Ops: r[0].Ops, TGates: r[0].TGates, Moves: r[0].Moves}
}

// callGraphNodes adapts the parsed CG blocks into the graph shape
// aggregate.OrderedLeafList walks.
func callGraphNodes(blocks []format.CGBlock) map[string]*aggregate.CallGraphNode {
	graph := make(map[string]*aggregate.CallGraphNode, len(blocks))
	for _, blk := range blocks {
		callees := make([]string, len(blk.Callees))
		for i, c := range blk.Callees {
			callees[i] = c.Callee
		}
		graph[blk.Module] = &aggregate.CallGraphNode{
			Name: blk.Module, IsLeaf: blk.IsLeaf, Size: blk.Size, Callees: callees,
		}
	}
	return graph
}

// simulatePhysical builds the physical-level instruction DAG for every
// leaf's intrinsic ops, plus moveCount teleport expansions synthesized
// from the call graph's composed move total, QEC-wraps each synthesized
// teleport step, and tile-simulates the result (§4.7/§4.8), returning the
// peak live-qubit count.
func simulatePhysical(leaves []format.LPFSLeaf, moveCount int, concatLvl int) int {
	dag := depgraph.New[string, *instr.Instr]()
	for _, leaf := range leaves {
		for _, g := range leaf.Gates {
			qids := make([]string, len(g.Qubits))
			for i, q := range g.Qubits {
				qids[i] = "q" + strconv.Itoa(q)
			}
			dag.Add(&instr.Instr{Seq: g.Seq, Kind: instr.KindOP, OpType: string(g.Op), QIDs: qids}, qids)
		}
	}

	alloc := teleport.NewAllocator()
	var tuples []teleport.Tuple
	for i := 0; i < moveCount; i++ {
		qid := fmt.Sprintf("cgmov%d", i)
		src, dst := i%4, (i+1)%4
		insts, tuple := teleport.ExpandMove(alloc, qid, src, dst, eprFactoryTile)
		tuples = append(tuples, tuple)
		for _, in := range insts {
			dag.Add(in, in.QubitIDs())
			for _, qec := range teleport.InjectQEC(alloc, in, zeroFactoryTile, 1) {
				dag.Add(qec, qec.QubitIDs())
			}
		}
	}

	sim := tilesim.New(dag, tuples, nil, concatLvl, tilesim.Policy{ForwardWindow: -1, ForwardCap: -1})
	sim.Run()
	return sim.PeakLiveQubits()
}

func readLPFS(path string) ([]format.LPFSLeaf, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	defer f.Close()
	leaves, err := format.ParseLPFS(f)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return leaves, nil
}

// readFreq reads the FREQ file if present; a missing frequency file
// means every module defaults to frequency zero, matching a benchmark
// with no recorded call-graph traversal yet.
func readFreq(path string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]int{}, nil
		}
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	defer f.Close()
	return parseFreqOrEmpty(f)
}

func parseFreqOrEmpty(r io.Reader) (map[string]int, error) {
	freq, err := format.ParseFreq(r)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return freq, nil
}

// readCG reads the call-graph file if present; a missing CG file means
// the run has no recorded module structure, so the call-graph
// composition stage is skipped and every leaf is treated independently,
// matching the pre-call-graph benchmark shape.
func readCG(path string) ([]format.CGBlock, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	defer f.Close()
	blocks, err := format.ParseCG(f)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return blocks, nil
}
