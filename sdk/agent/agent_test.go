package agent

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/index"
	"github.com/lox/bodegabrawl/internal/randutil"
	"github.com/lox/bodegabrawl/internal/solver"
)

func solvedTable(t *testing.T, preset string) (*solver.Table, *index.Indexer) {
	t.Helper()
	rules, err := game.Preset(preset)
	require.NoError(t, err)
	ix, err := index.New(rules)
	require.NoError(t, err)

	cfg := solver.DefaultConfig()
	cfg.Workers = 2
	cfg.PollInterval = time.Millisecond
	cfg.ProgressInterval = 10 * time.Millisecond
	cfg.FailureDir = t.TempDir()

	pool, err := solver.NewPool(ix, cfg, solver.Options{
		Logger: log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel}),
	})
	require.NoError(t, err)
	table, err := pool.Run(context.Background())
	require.NoError(t, err)
	return table, ix
}

func solvedTiny(t *testing.T) *Solved {
	t.Helper()
	table, ix := solvedTable(t, "tiny")
	a, err := NewSolved(table, ix)
	require.NoError(t, err)
	return a
}

// liveStates returns every indexed state.
func liveStates(t *testing.T, ix *index.Indexer) []game.GameState {
	t.Helper()
	out := make([]game.GameState, ix.Total())
	for i := range out {
		s, err := ix.StateOf(i)
		require.NoError(t, err)
		out[i] = s
	}
	return out
}

func requireLegalDistribution(t *testing.T, s game.GameState, p [game.NumActions]float64) {
	t.Helper()
	legal := map[int]bool{}
	for _, a := range s.Mover.Cards.ActionSpace() {
		legal[a.ID()] = true
	}
	sum := 0.0
	for id, w := range p {
		if !legal[id] {
			require.Zero(t, w, "illegal action %s in %s", game.Actions[id], s.Serialize())
		}
		sum += w
	}
	require.InDelta(t, 1.0, sum, 1e-5)
}

func TestSolvedMatchesTable(t *testing.T) {
	a := solvedTiny(t)
	ix, err := index.New(a.Rules())
	require.NoError(t, err)

	for i, s := range liveStates(t, ix) {
		p, err := a.Policy(s)
		require.NoError(t, err)
		want, err := a.Table().PolicyAt(i)
		require.NoError(t, err)
		assert.Equal(t, want, p)
		requireLegalDistribution(t, s, p)

		v, err := a.Value(s)
		require.NoError(t, err)
		assert.Equal(t, a.Table().Value[i], v)
	}

	v, err := a.Value(a.Rules().Initial())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, v, 1e-6)
}

func TestSolvedTerminalStates(t *testing.T) {
	a := solvedTiny(t)
	s := a.Rules().Initial()
	s.Opponent.Hits.Head = a.Rules().MaxHeadHits

	_, err := a.Policy(s)
	assert.ErrorIs(t, err, ErrTerminal)

	v, err := a.Value(s)
	require.NoError(t, err)
	assert.Equal(t, game.ValueWin, v)
}

func TestLoadFromDisk(t *testing.T) {
	table, _ := solvedTable(t, "tiny")
	path := filepath.Join(t.TempDir(), "tiny.json.zst")
	require.NoError(t, table.Save(path))

	a, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, table.Rules, a.Rules())
	assert.Equal(t, table.Value, a.Table().Value)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestNewSolvedRejectsMismatch(t *testing.T) {
	table, _ := solvedTable(t, "tiny")
	small, err := game.Preset("small")
	require.NoError(t, err)
	ix, err := index.New(small)
	require.NoError(t, err)

	_, err = NewSolved(table, ix)
	assert.Error(t, err)
	_, err = NewSolved(nil, ix)
	assert.Error(t, err)
}

func TestRandomIsUniformOverLegalActions(t *testing.T) {
	rules, err := game.Preset("medium")
	require.NoError(t, err)
	a := Random{Rules: rules}

	s := rules.Initial()
	s.Mover.Cards = game.CardState{0, 2, 0, 0, 1, 0}
	p, err := a.Policy(s)
	require.NoError(t, err)

	// HEAD_AC_A, HEAD_AC_C, LEGS_A_A
	third := 1.0 / 3
	assert.Equal(t, [game.NumActions]float64{0, third, third, 0, 0, 0, third, 0, 0}, p)

	v, err := a.Value(s)
	require.NoError(t, err)
	assert.Equal(t, game.ValueDraw, v)

	s.Mover.Hits.Head = rules.MaxHeadHits
	_, err = a.Policy(s)
	assert.ErrorIs(t, err, ErrTerminal)
	v, err = a.Value(s)
	require.NoError(t, err)
	assert.Equal(t, game.ValueLoss, v)
}

func TestBestResponseEarnsGameValue(t *testing.T) {
	solved := solvedTiny(t)
	br := NewBestResponse(solved)
	ix, err := index.New(solved.Rules())
	require.NoError(t, err)

	// Against an equilibrium opponent no pure reply beats the game value,
	// and the best one reaches it.
	for _, s := range liveStates(t, ix) {
		p, err := br.Policy(s)
		require.NoError(t, err)
		requireLegalDistribution(t, s, p)
		assert.Contains(t, p, 1.0, "pure reply expected for %s", s.Serialize())

		got, err := br.Value(s)
		require.NoError(t, err)
		want, err := solved.Value(s)
		require.NoError(t, err)
		assert.InDelta(t, want, got, 1e-5, "state %s", s.Serialize())
	}
}

func TestArgmaxCounterPlaysPureLegalReplies(t *testing.T) {
	solved := solvedTiny(t)
	ac := NewArgmaxCounter(solved)
	ix, err := index.New(solved.Rules())
	require.NoError(t, err)

	for _, s := range liveStates(t, ix) {
		p, err := ac.Policy(s)
		require.NoError(t, err)
		requireLegalDistribution(t, s, p)
		assert.Contains(t, p, 1.0)

		v, err := ac.Value(s)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, game.ValueLoss-1e-9)
		assert.LessOrEqual(t, v, game.ValueWin+1e-9)
	}

	s := solved.Rules().Initial()
	s.Mover.Hits.Body = solved.Rules().MaxBodyHits
	_, err = ac.Policy(s)
	assert.ErrorIs(t, err, ErrTerminal)
}

func TestArgmaxPicksLowestOnTies(t *testing.T) {
	p := [game.NumActions]float64{0, 0.4, 0, 0, 0.4, 0.2}
	assert.Equal(t, [game.NumActions]float64{0, 1}, argmax(p))
}

func TestSample(t *testing.T) {
	rng := randutil.New(1)

	var onehot [game.NumActions]float64
	onehot[5] = 1
	for range 20 {
		a, err := Sample(onehot, rng)
		require.NoError(t, err)
		assert.Equal(t, game.Actions[5], a)
	}

	var mixed [game.NumActions]float64
	mixed[1], mixed[7] = 0.25, 0.75
	counts := map[int]int{}
	const n = 20000
	for range n {
		a, err := Sample(mixed, rng)
		require.NoError(t, err)
		counts[a.ID()]++
	}
	assert.Len(t, counts, 2)
	assert.InDelta(t, 0.25, float64(counts[1])/n, 0.02)
	assert.InDelta(t, 0.75, float64(counts[7])/n, 0.02)

	_, err := Sample([game.NumActions]float64{}, rng)
	assert.Error(t, err)
	_, err = Sample([game.NumActions]float64{-1, 2}, rng)
	assert.Error(t, err)
}
