// Package teleport expands a logical qubit move into the physical
// ballistic-move and operation sequence that implements it by
// teleportation, and injects QEC ancilla blocks around each physical op
// or move (§4.7).
package teleport

import (
	"fmt"

	"github.com/kegliz/qkqest/internal/instr"
)

// Tuple records the three final BMOVs of one teleport (data, epr1, epr2)
// so the tile simulator can atomically swap qubit identities once all
// three complete (§4.8 step 4).
type Tuple struct {
	DataFinal, EPR1Final, EPR2Final int // instr.Seq of the three final BMOVs
	DataID, EPR1ID, EPR2ID          string
}

// Level carries the concatenation-level-dependent factory parameters.
type Level int

// FactorySize returns the {zero, epr, magic} factory sizes for
// concatenation level ell (§4.7): zero = 8*7^(ell-1), epr/magic =
// 2*8*7^(ell-1), degenerating to 1, 2, 2 at ell=0.
func (ell Level) FactorySize() (zero, epr, magic int) {
	if ell <= 0 {
		return 1, 2, 2
	}
	pow := 1
	for i := 0; i < int(ell)-1; i++ {
		pow *= 7
	}
	zero = 8 * pow
	return zero, 2 * zero, 2 * zero
}

// FactoryDelay returns the cycle delay to draw a fresh resource from the
// zero/epr/magic factory at concatenation level ell. Modeled as a fixed
// linear combination of a base op delay and ell, per §4.7; the base delay
// is the caller's per-physical-op cycle cost (from isa op latencies at the
// code distance in force).
func (ell Level) FactoryDelay(baseOpDelay int) int {
	return baseOpDelay * (int(ell) + 1)
}

// QECPattern is the fixed 6-op ancilla-entanglement sequence injected
// around a data qubit: H, CNOT, MeasZ on one ancilla; CNOT, H, MeasZ on
// the other (§4.7).
var QECPattern = []string{"H", "CNOT", "MeasZ", "CNOT", "H", "MeasZ"}

// seqAllocator hands out strictly increasing instruction sequence numbers.
type seqAllocator struct{ next int }

func (a *seqAllocator) next_() int {
	a.next++
	return a.next
}

// ExpandMove translates logical MOV(q, src, dst) into the six physical
// ballistic moves and four ops of §4.7's teleport protocol, returning the
// instructions in execution order and the teleport tuple recording the
// three final BMOVs.
func ExpandMove(alloc *seqAllocator, q string, src, dst int, eprFactory int) ([]*instr.Instr, Tuple) {
	if alloc == nil {
		alloc = &seqAllocator{}
	}
	dataID := q
	epr1ID := fmt.Sprintf("%s_epr1", q)
	epr2ID := fmt.Sprintf("%s_epr2", q)

	var out []*instr.Instr
	bmov := func(id string, from, to int, fromSub, toSub instr.SubLoc) *instr.Instr {
		return &instr.Instr{Seq: alloc.next_(), Kind: instr.KindBMOV, QID: id, Src: from, Dst: to, SrcSub: fromSub, DstSub: toSub}
	}
	op := func(opType string, qids ...string) *instr.Instr {
		return &instr.Instr{Seq: alloc.next_(), Kind: instr.KindOP, OpType: opType, QIDs: qids}
	}

	out = append(out,
		bmov(dataID, src, src, instr.LocT, instr.LocTUT),
		bmov(epr1ID, eprFactory, src, instr.LocG, instr.LocTUG),
		bmov(epr2ID, eprFactory, dst, instr.LocG, instr.LocTUG),
	)

	out = append(out,
		op("CNOT", dataID, epr1ID),
		op("H", dataID),
		op("MeasZ", dataID),
		op("MeasZ", epr1ID),
	)

	dataFinal := bmov(dataID, src, eprFactory, instr.LocTUT, instr.LocG)
	epr1Final := bmov(epr1ID, src, eprFactory, instr.LocTUG, instr.LocG)
	epr2Final := bmov(epr2ID, dst, dst, instr.LocTUG, instr.LocT)
	dataFinal.NoChild = true
	epr1Final.NoChild = true

	out = append(out, epr2Final, epr1Final, dataFinal)

	tuple := Tuple{
		DataFinal: dataFinal.Seq, EPR1Final: epr1Final.Seq, EPR2Final: epr2Final.Seq,
		DataID: dataID, EPR1ID: epr1ID, EPR2ID: epr2ID,
	}
	return out, tuple
}

// InjectQEC wraps op (a physical op or ballistic move, excluding moves
// to/from ancilla factories or local memory) with a QEC block: zeroCount
// fresh zero qubits per data qubit, entangled via QECPattern, then
// returned to the zero factory.
func InjectQEC(alloc *seqAllocator, op *instr.Instr, zeroFactory int, zeroCount int) []*instr.Instr {
	if op.SrcSub == instr.LocG || op.DstSub == instr.LocG || op.SrcSub == instr.LocL || op.DstSub == instr.LocL {
		return nil
	}
	var block []*instr.Instr
	for _, dataQ := range op.QubitIDs() {
		for i := 0; i < zeroCount; i++ {
			anc1 := fmt.Sprintf("%s_zero%d_a", dataQ, i)
			anc2 := fmt.Sprintf("%s_zero%d_b", dataQ, i)

			bmovIn1 := &instr.Instr{Seq: alloc.next_(), Kind: instr.KindBMOV, QID: anc1, Src: zeroFactory, Dst: zeroFactory, SrcSub: instr.LocG, DstSub: instr.LocT}
			bmovIn2 := &instr.Instr{Seq: alloc.next_(), Kind: instr.KindBMOV, QID: anc2, Src: zeroFactory, Dst: zeroFactory, SrcSub: instr.LocG, DstSub: instr.LocT}
			block = append(block, bmovIn1, bmovIn2)

			block = append(block,
				&instr.Instr{Seq: alloc.next_(), Kind: instr.KindOP, OpType: "H", QIDs: []string{anc1}},
				&instr.Instr{Seq: alloc.next_(), Kind: instr.KindOP, OpType: "CNOT", QIDs: []string{anc1, dataQ}},
				&instr.Instr{Seq: alloc.next_(), Kind: instr.KindOP, OpType: "MeasZ", QIDs: []string{anc1}},
				&instr.Instr{Seq: alloc.next_(), Kind: instr.KindOP, OpType: "CNOT", QIDs: []string{dataQ, anc2}},
				&instr.Instr{Seq: alloc.next_(), Kind: instr.KindOP, OpType: "H", QIDs: []string{anc2}},
				&instr.Instr{Seq: alloc.next_(), Kind: instr.KindOP, OpType: "MeasZ", QIDs: []string{anc2}},
			)

			bmovOut1 := &instr.Instr{Seq: alloc.next_(), Kind: instr.KindBMOV, QID: anc1, Src: zeroFactory, Dst: zeroFactory, SrcSub: instr.LocT, DstSub: instr.LocG, NoChild: true}
			bmovOut2 := &instr.Instr{Seq: alloc.next_(), Kind: instr.KindBMOV, QID: anc2, Src: zeroFactory, Dst: zeroFactory, SrcSub: instr.LocT, DstSub: instr.LocG, NoChild: true}
			block = append(block, bmovOut1, bmovOut2)
		}
	}
	return block
}

// NewAllocator creates a fresh sequence-number allocator for one leaf's
// physical instruction expansion.
func NewAllocator() *seqAllocator { return &seqAllocator{} }
