package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/lox/bodegabrawl/internal/equilibrium"
	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/solver"
	"github.com/lox/bodegabrawl/internal/store"
	"github.com/lox/bodegabrawl/sdk/agent"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})
}

func TestSolveFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "brawl.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
solver {
  workers  = 12
  schedule = "level"
  output   = "from-config.json"
}
`), 0o644))

	cmd := &SolveCmd{
		Config:       path,
		NumProcs:     3,
		Preset:       "small",
		PollInterval: 5 * time.Millisecond,
	}
	cfg, err := cmd.resolve()
	require.NoError(t, err)

	small, err := game.Preset("small")
	require.NoError(t, err)
	assert.Equal(t, small, cfg.Rules)
	assert.Equal(t, 3, cfg.Solver.Workers)
	assert.Equal(t, solver.ScheduleLevel, cfg.Solver.Schedule)
	assert.Equal(t, 5*time.Millisecond, cfg.Solver.PollInterval)
	assert.Equal(t, "from-config.json", cfg.Output)

	cmd.Schedule = "sideways"
	_, err = cmd.resolve()
	assert.Error(t, err)
}

func TestSolveWritesTable(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "tiny.json.zst")
	cmd := &SolveCmd{
		Config:       filepath.Join(dir, "missing.hcl"),
		NumProcs:     2,
		Preset:       "tiny",
		Out:          out,
		FailuresDir:  filepath.Join(dir, "failures"),
		PollInterval: time.Millisecond,
	}
	require.NoError(t, cmd.Run(context.Background(), quietLogger()))

	solved, err := agent.Load(out)
	require.NoError(t, err)
	assert.NotEmpty(t, solved.Table().RunID)

	v, err := solved.Value(solved.Rules().Initial())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-6)

	evalCmd := &EvalCmd{Table: out, Opponent: "random", Games: 50, Seed: 4}
	require.NoError(t, evalCmd.Run(context.Background(), quietLogger()))
}

func TestResolveFailure(t *testing.T) {
	dir := t.TempDir()
	rec := store.NewRecorder(dir, "run_test")

	rps := mat.NewDense(3, 3, []float64{
		0.5, 0.9, 0.1,
		0.1, 0.5, 0.9,
		0.9, 0.1, 0.5,
	})
	s := game.DefaultRules().Initial()
	path, err := rec.Record(7, s, rps, &equilibrium.Failure{Kind: equilibrium.KindSolve, Err: assert.AnError})
	require.NoError(t, err)

	cmd := &ResolveFailureCmd{File: path, Tolerance: equilibrium.DefaultTolerance}
	require.NoError(t, cmd.Run(context.Background(), quietLogger()))

	cmd.File = filepath.Join(dir, "missing.json")
	assert.Error(t, cmd.Run(context.Background(), quietLogger()))
}

func TestSetupLogger(t *testing.T) {
	assert.Equal(t, log.DebugLevel, setupLogger(true, "error").GetLevel())
	assert.Equal(t, log.WarnLevel, setupLogger(false, "WARN").GetLevel())
	assert.Equal(t, log.InfoLevel, setupLogger(false, "bogus").GetLevel())
}
