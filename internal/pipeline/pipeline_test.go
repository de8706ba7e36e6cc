package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kegliz/qkqest/internal/config"
	"github.com/kegliz/qkqest/internal/format"
	"github.com/kegliz/qkqest/internal/isa"
	"github.com/kegliz/qkqest/internal/runstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBenchmark(t *testing.T, dir string) string {
	t.Helper()
	base := filepath.Join(dir, "bench")
	require.NoError(t, os.WriteFile(base+".lpfs", []byte(
		"Function main ... k 2 d 3\nH 0\nCNOT 0 1\nMeasZ 1\n"), 0o644))
	require.NoError(t, os.WriteFile(base+".freq", []byte(
		"main 0 0 0 0 0 0 0 0 1\n"), 0o644))
	return base
}

func TestRun_ProducesReportAndStoresRun(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	dir := t.TempDir()
	base := writeBenchmark(t, dir)

	cfg := config.Defaults()
	store := runstore.New()

	report, err := Run(cfg, store, base)
	require.NoError(err)
	require.Len(report.Leafs, 1)
	assert.Equal("main", report.Leafs[0].Function)
	assert.Greater(report.Leafs[0].Cycles, 0)
	assert.GreaterOrEqual(report.Final.PhysicalKQ, report.Final.LogicalKQ)

	rec, ok := store.Get(report.RunID)
	require.True(ok)
	assert.Equal(report.Final, rec.Report)
}

func TestRun_RejectsInfeasibleErrorExponent(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()
	base := writeBenchmark(t, dir)

	cfg := config.Defaults()
	cfg.P = thresholdExponent + 5
	store := runstore.New()

	_, err := Run(cfg, store, base)
	assert.ErrorIs(err, config.ErrNoQECBenefit)
}

func TestRun_MissingInputFileIsAnError(t *testing.T) {
	assert := assert.New(t)

	cfg := config.Defaults()
	store := runstore.New()

	_, err := Run(cfg, store, filepath.Join(t.TempDir(), "nope"))
	assert.Error(err)
}

// TestRun_ComposesCallGraphWhenCGFilePresent covers the .cg-driven path:
// two leaves called from a non-leaf "main" module compose into a single
// root profile via coarsesched, and the run completes by tile-simulating
// the physical expansion of that composed schedule instead of stopping at
// each leaf in isolation.
func TestRun_ComposesCallGraphWhenCGFilePresent(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	dir := t.TempDir()
	base := filepath.Join(dir, "bench")
	require.NoError(os.WriteFile(base+".lpfs", []byte(
		"Function leafA ... k 2 d 3\nH 0\n"+
			"Function leafB ... k 2 d 3\nCNOT 0 1\n"), 0o644))
	require.NoError(os.WriteFile(base+".freq", []byte(
		"leafA 0 0 0 0 0 0 0 0 1\nleafB 0 0 0 0 0 0 0 0 1\n"), 0o644))
	require.NoError(os.WriteFile(base+".cg", []byte(
		"SIMD k=2 d=3 main 0 0\n"+
			"leafA 0 q0\n"+
			"leafB 1 q0 q1\n"+
			"SIMD k=2 d=3 leafA 1 1\n"+
			"SIMD k=2 d=3 leafB 2 1\n"), 0o644))

	cfg := config.Defaults()
	store := runstore.New()

	report, err := Run(cfg, store, base)
	require.NoError(err)
	require.Len(report.Leafs, 2)
	assert.Greater(report.Final.TotalCycles, 0.0)
	assert.GreaterOrEqual(report.Final.PhysicalKQ, report.Final.LogicalKQ)
}

// TestSimulatePhysical_ExpandsTeleportMoves exercises the teleport
// expansion directly: a nonzero move count must route through
// teleport.ExpandMove/InjectQEC into the tile simulator and report a
// positive peak qubit count.
func TestSimulatePhysical_ExpandsTeleportMoves(t *testing.T) {
	assert := assert.New(t)

	leaves := []format.LPFSLeaf{{
		Function: "leafA",
		Gates:    []isa.Gate{{Seq: 1, Op: isa.H, Qubits: []int{0}, Cbit: -1}},
	}}

	peak := simulatePhysical(leaves, 2, 0)
	assert.Greater(peak, 0)
}
