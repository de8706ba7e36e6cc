// Package format parses the line-oriented ASCII LPFS/FREQ/CG input files
// (§6) and writes the .kq/.usage/.ages/.storage output report files,
// following qc/benchmark's reporter pattern: accumulate results, then
// generate and serialize a report on demand.
package format

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/kegliz/qkqest/internal/aggregate"
	"github.com/kegliz/qkqest/internal/isa"
)

// LPFSLeaf is one parsed leaf schedule: its function name, SIMD width k,
// code distance d, and ordered intrinsic-op body.
type LPFSLeaf struct {
	Function string
	K        int
	D        int
	Gates    []isa.Gate
}

// ParseLPFS reads the leaf-schedule format (§6): a header line
// "Function <name> ... k <K> d <D>" followed by intrinsic op lines.
func ParseLPFS(r io.Reader) ([]LPFSLeaf, error) {
	scanner := bufio.NewScanner(r)
	var leaves []LPFSLeaf
	var cur *LPFSLeaf
	seq := 0

	flush := func() {
		if cur != nil {
			leaves = append(leaves, *cur)
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		if fields[0] == "Function" {
			flush()
			leaf := LPFSLeaf{Function: fields[1]}
			for i := 2; i < len(fields)-1; i++ {
				switch fields[i] {
				case "k":
					leaf.K, _ = strconv.Atoi(fields[i+1])
				case "d":
					leaf.D, _ = strconv.Atoi(fields[i+1])
				}
			}
			cur = &leaf
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("format: LPFS body line before any Function header: %q", line)
		}

		switch fields[0] {
		case "TMOV", "BMOV":
			// teleport/local-memory moves aren't logical gates; skip at
			// the LPFS layer, they're produced again by the teleport
			// expander from the chosen schedule.
			continue
		default:
			if strings.Contains(fields[0], ",") {
				// "<ts>,<zone> <op> <q1> [<q2>]" scheduled-op form.
				opTok := fields[1]
				op, err := isa.ParseOp(opTok)
				if err != nil {
					return nil, err
				}
				qs, err := parseQubits(fields[2:])
				if err != nil {
					return nil, err
				}
				seq++
				cur.Gates = append(cur.Gates, isa.Gate{Seq: seq, Op: op, Qubits: qs, Cbit: -1})
				continue
			}
			op, err := isa.ParseOp(fields[0])
			if err != nil {
				return nil, err
			}
			qs, err := parseQubits(fields[1:])
			if err != nil {
				return nil, err
			}
			seq++
			cur.Gates = append(cur.Gates, isa.Gate{Seq: seq, Op: op, Qubits: qs, Cbit: -1})
		}
	}
	flush()
	return leaves, scanner.Err()
}

func parseQubits(fields []string) ([]int, error) {
	qs := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("format: bad qubit index %q: %w", f, err)
		}
		qs = append(qs, n)
	}
	return qs, nil
}

// ParseFreq reads the FREQ format: one line per module, "<name> <8
// ignored fields> <frequency>".
func ParseFreq(r io.Reader) (map[string]int, error) {
	scanner := bufio.NewScanner(r)
	freq := make(map[string]int)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 10 {
			return nil, fmt.Errorf("format: malformed FREQ line: %q", line)
		}
		f, err := strconv.Atoi(fields[len(fields)-1])
		if err != nil {
			return nil, fmt.Errorf("format: bad frequency in %q: %w", line, err)
		}
		freq[fields[0]] = f
	}
	return freq, scanner.Err()
}

// CGBlock is one call-graph summary block: its SIMD k/d, module name,
// size, leaf flag, and callee body lines.
type CGBlock struct {
	K, D     int
	Module   string
	Size     int
	IsLeaf   bool
	Callees  []CGCall
}

// CGCall is one body line within a CG block: "<callee> <ts> <arg1>
// <arg2>…".
type CGCall struct {
	Callee string
	Ts     int
	Args   []string
}

// ParseCG reads the call-graph format: blocks separated by a summary
// line "SIMD k=<k> d=<d> <module> <size> <leaf_flag>".
func ParseCG(r io.Reader) ([]CGBlock, error) {
	scanner := bufio.NewScanner(r)
	var blocks []CGBlock
	var cur *CGBlock

	flush := func() {
		if cur != nil {
			blocks = append(blocks, *cur)
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		if fields[0] == "SIMD" {
			flush()
			blk := CGBlock{}
			for _, f := range fields[1:] {
				if strings.HasPrefix(f, "k=") {
					blk.K, _ = strconv.Atoi(strings.TrimPrefix(f, "k="))
				} else if strings.HasPrefix(f, "d=") {
					blk.D, _ = strconv.Atoi(strings.TrimPrefix(f, "d="))
				}
			}
			if len(fields) >= 6 {
				blk.Module = fields[3]
				blk.Size, _ = strconv.Atoi(fields[4])
				blk.IsLeaf = fields[5] == "1"
			}
			cur = &blk
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("format: CG body line before any SIMD header: %q", line)
		}
		ts, _ := strconv.Atoi(fields[1])
		cur.Callees = append(cur.Callees, CGCall{Callee: fields[0], Ts: ts, Args: fields[2:]})
	}
	flush()
	return blocks, scanner.Err()
}

// Writer collects a run's report and per-cycle time series, then
// serializes them to the .kq/.usage/.ages/.storage output files (§6),
// following qc/benchmark's BenchmarkReporter collect-then-generate shape.
type Writer struct {
	report aggregate.Report

	usage   []int // per-cycle live-qubit count
	ages    []int // per-cycle max qubit age
	storage []int // per-cycle per-tile occupancy sum
}

// NewWriter creates an empty report writer.
func NewWriter(report aggregate.Report) *Writer { return &Writer{report: report} }

// RecordCycle appends one cycle's usage/ages/storage sample.
func (w *Writer) RecordCycle(liveQubits, maxAge, storageSum int) {
	w.usage = append(w.usage, liveQubits)
	w.ages = append(w.ages, maxAge)
	w.storage = append(w.storage, storageSum)
}

// WriteKQ writes the textual .kq report (§6): error rate, code distance,
// total cycles, max qubits, logical KQ, physical KQ.
func (w *Writer) WriteKQ(out io.Writer) error {
	_, err := fmt.Fprintf(out,
		"error rate 10^-%d\ncode distance %d\ntotal cycles %.0f\nmax qubits %d\nlogical KQ %.0f\nphysical kq %.0f\n",
		w.report.ErrorRateExponent, w.report.CodeDistance, w.report.TotalCycles,
		w.report.MaxQubits, w.report.LogicalKQ, w.report.PhysicalKQ)
	return err
}

// WriteUsage writes the per-cycle live-qubit-count time series (.usage).
func (w *Writer) WriteUsage(out io.Writer) error { return writeSeries(out, w.usage) }

// WriteAges writes the per-cycle max-qubit-age time series (.ages).
func (w *Writer) WriteAges(out io.Writer) error { return writeSeries(out, w.ages) }

// WriteStorage writes the per-cycle tile-occupancy time series (.storage).
func (w *Writer) WriteStorage(out io.Writer) error { return writeSeries(out, w.storage) }

func writeSeries(out io.Writer, series []int) error {
	bw := bufio.NewWriter(out)
	for i, v := range series {
		if _, err := fmt.Fprintf(bw, "%d %d\n", i, v); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// OutputFileName builds the .kq report filename per §6's convention:
// "<name>.p.<P>.yx.<YX>.drop.<DROP>[.opt].kq".
func OutputFileName(name string, p, yx, drop int, opt bool, ext string) string {
	base := fmt.Sprintf("%s.p.%d.yx.%d.drop.%d", name, p, yx, drop)
	if opt {
		base += ".opt"
	}
	return base + "." + ext
}

// SortedModuleNames returns freq's keys in a stable, deterministic order,
// used by callers that otherwise would iterate a map non-deterministically
// when building reports.
func SortedModuleNames(freq map[string]int) []string {
	names := make([]string, 0, len(freq))
	for k := range freq {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
