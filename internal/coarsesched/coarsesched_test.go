package coarsesched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedule_SerializesWhenNothingParallelizable(t *testing.T) {
	require := require.New(t)
	body := []Call{
		{Callee: "leafA", Ts: 0, Signature: "leafA()"},
		{Callee: "leafB", Ts: 100, Signature: "leafB()"},
	}
	rects := map[string][]CalleeRect{
		"leafA": {{Width: 1, Length: 10, Ops: 4}},
		"leafB": {{Width: 1, Length: 20, Ops: 8}},
	}

	p := Schedule(body, rects, 2, 4)
	require.Equal(30, p.TotalL, "non-overlapping ready times should serialize")
}

func TestSchedule_AdmitsParallelWhenWidthAllows(t *testing.T) {
	require := require.New(t)
	body := []Call{
		{Callee: "leafA", Ts: 0, Signature: "leafA()"},
		{Callee: "leafB", Ts: 0, Signature: "leafB()"},
	}
	rects := map[string][]CalleeRect{
		"leafA": {{Width: 1, Length: 10, Ops: 4}},
		"leafB": {{Width: 1, Length: 8, Ops: 4}},
	}

	p := Schedule(body, rects, 2, 4)
	require.Equal(10, p.TotalL, "both callees ready at t=0 with width 2 should run in parallel")
}

func TestParetoFront_NonEmptyForSingleCallee(t *testing.T) {
	assert := assert.New(t)
	body := []Call{{Callee: "leafA", Ts: 0, Signature: "leafA()"}}
	rects := map[string][]CalleeRect{"leafA": {{Width: 1, Length: 5, Ops: 2}}}

	front := ParetoFront(body, rects, 2, 4)
	assert.NotEmpty(front)
}

func TestCoalescence_SharesGroupAtZeroWidth(t *testing.T) {
	require := require.New(t)
	body := []Call{
		{Callee: "leafA", Ts: 0, Signature: "leafA()"},
		{Callee: "leafA", Ts: 0, Signature: "leafA()"},
	}
	rects := map[string][]CalleeRect{"leafA": {{Width: 1, Length: 5, Ops: 2}}}

	p := Schedule(body, rects, 1, 4)
	require.Equal(5, p.TotalL, "identical signature under d_constraint should coalesce at zero extra width")
}
