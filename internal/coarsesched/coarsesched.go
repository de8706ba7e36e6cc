// Package coarsesched implements the call-graph-order aggregation of leaf
// (width, length) rectangles into per-module profiles (C): walking a
// non-leaf's body in priority order, packing callees into parallel groups
// bounded by the current SIMD width, and committing groups to the
// module's total length when no more callees fit (§4.6).
package coarsesched

import "sort"

// Profile is one point on a non-leaf's Pareto front.
type Profile struct {
	Width     int
	TotalW    int
	TotalL    int
	Ops       int
	TGates    int
	Moves     int
}

// CalleeRect is one entry of a callee's own Pareto rectangle list — either
// a leafsched.Rectangle (for a leaf callee) or a Profile (for a non-leaf
// callee recursively scheduled by this same package), adapted to the
// common (width, length, ops, tgates, moves) shape this scheduler needs.
type CalleeRect struct {
	Width  int
	Length int
	Ops    int
	TGates int
	Moves  int
}

// Call is one invocation in a non-leaf's body: callee name, its ready
// time (program-order timestamp from the CG input, §6), and a signature
// used to detect data-parallel coalescence of identical calls.
type Call struct {
	Callee    string
	Ts        int
	Signature string
}

// group tracks one in-flight parallel-admission window.
type group struct {
	calls   []Call
	currW   int
	currL   int
	firstTS int
}

// Schedule packs body (already in priority order) against rects (callee
// name -> Pareto rectangle list, widest-first) for SIMD width k, applying
// the admit/repack/commit ladder of §4.6, and returns the resulting
// (totalW, totalL, ops, tgates, moves) for this width.
func Schedule(body []Call, rects map[string][]CalleeRect, k, dConstraint int) Profile {
	totalW, totalL := 0, 0
	ops, tgates, moves := 0, 0, 0

	var cur group
	cur.calls = nil

	commit := func() {
		if len(cur.calls) == 0 {
			return
		}
		totalL += cur.currL
		if cur.currW > totalW {
			totalW = cur.currW
		}
		cur = group{}
	}

	for _, call := range body {
		// Data-parallel coalescence: an identical signature already
		// running in the current group shares it at zero extra width,
		// if dConstraint permits another occurrence.
		if coalesced(&cur, call, dConstraint) {
			continue
		}

		best, ok := widestFitting(rects[call.Callee], k-cur.currW)
		if !ok {
			// Nothing fits even alone; commit what we have and start a
			// fresh group containing only this call at its narrowest form.
			commit()
			best, ok = widestFitting(rects[call.Callee], k)
			if !ok {
				continue
			}
		}

		t := call.Ts
		if t < totalL+cur.currL && best.Width+cur.currW <= k {
			firstStep := max(t, totalL)
			cur.currW += best.Width
			cur.currL = max(firstStep-totalL+best.Length, cur.currL)
			cur.calls = append(cur.calls, call)
			ops += best.Ops
			tgates += best.TGates
			moves += best.Moves
			continue
		}

		if t < totalL+cur.currL {
			if repacked, ok := tryRepack(cur.calls, call, rects, k); ok {
				cur = repacked
				ops += best.Ops
				tgates += best.TGates
				moves += best.Moves
				continue
			}
		}

		commit()
		cur = group{calls: []Call{call}, currW: best.Width, currL: best.Length, firstTS: t}
		ops += best.Ops
		tgates += best.TGates
		moves += best.Moves
	}
	commit()

	return Profile{Width: k, TotalW: totalW, TotalL: totalL, Ops: ops, TGates: tgates, Moves: moves}
}

func coalesced(cur *group, call Call, dConstraint int) bool {
	count := 0
	for _, c := range cur.calls {
		if c.Signature == call.Signature {
			count++
		}
	}
	if count > 0 && count < dConstraint {
		cur.calls = append(cur.calls, call)
		return true
	}
	return false
}

func widestFitting(options []CalleeRect, maxWidth int) (CalleeRect, bool) {
	sorted := append([]CalleeRect(nil), options...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Width > sorted[j].Width })
	var best CalleeRect
	found := false
	for _, o := range sorted {
		if o.Width <= maxWidth {
			if !found || o.Length < best.Length {
				best = o
				found = true
			}
		}
	}
	return best, found
}

// tryRepack attempts to fit call into the current group by repacking
// already-admitted callees into 2-, 3-, or 4-way combinations, per §4.6's
// open-ended "combinations of already-parallel callees" rule. The source
// enumerates only up to 4-deep groups (spec.md §9's open question notes
// this bound is preserved without resolving whether it is deliberate);
// this implementation keeps the same 4-way ceiling and returns failure
// beyond it, exactly matching the observed behavior.
func tryRepack(existing []Call, call Call, rects map[string][]CalleeRect, k int) (group, bool) {
	if len(existing) == 0 || len(existing) > 3 {
		return group{}, false
	}
	// A repack only ever helps when the literal sum of narrowest widths
	// fits; this is a conservative approximation of the source's
	// try-every-combination search, bounded at 4-way per the spec note.
	total := call.Width(rects)
	if total < 0 {
		return group{}, false
	}
	for _, c := range existing {
		w := c.Width(rects)
		if w < 0 {
			return group{}, false
		}
		total += w
	}
	if total > k {
		return group{}, false
	}
	g := group{calls: append(append([]Call(nil), existing...), call)}
	for _, c := range g.calls {
		best, _ := widestFitting(rects[c.Callee], k)
		g.currW += best.Width
		if best.Length > g.currL {
			g.currL = best.Length
		}
	}
	return g, true
}

// Width returns the callee's narrowest-available rectangle width, used
// only by tryRepack's conservative fit check.
func (c Call) Width(rects map[string][]CalleeRect) int {
	options := rects[c.Callee]
	if len(options) == 0 {
		return -1
	}
	min := options[0].Width
	for _, o := range options {
		if o.Width < min {
			min = o.Width
		}
	}
	return min
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ParetoFront runs Schedule for every width 1..kMax and keeps only the
// profiles that strictly improve total length over the previous width.
func ParetoFront(body []Call, rects map[string][]CalleeRect, kMax, dConstraint int) []Profile {
	var front []Profile
	best := -1
	for k := 1; k <= kMax; k++ {
		p := Schedule(body, rects, k, dConstraint)
		if best == -1 || p.TotalL < best {
			front = append(front, p)
			best = p.TotalL
		}
	}
	return front
}
