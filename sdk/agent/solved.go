package agent

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/lox/bodegabrawl/internal/equilibrium"
	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/index"
	"github.com/lox/bodegabrawl/internal/payoff"
	"github.com/lox/bodegabrawl/internal/solver"
)

// Solved plays the equilibrium stored in a table.
type Solved struct {
	table   *solver.Table
	ix      *index.Indexer
	builder *payoff.Builder
}

// Load reads a table from disk and indexes it under its own rules.
func Load(path string) (*Solved, error) {
	t, err := solver.LoadTable(path)
	if err != nil {
		return nil, err
	}
	ix, err := index.New(t.Rules)
	if err != nil {
		return nil, err
	}
	return NewSolved(t, ix)
}

// NewSolved wraps a table that was produced for ix.
func NewSolved(t *solver.Table, ix *index.Indexer) (*Solved, error) {
	if t == nil || ix == nil {
		return nil, errors.New("table and indexer are required")
	}
	if err := t.Check(ix); err != nil {
		return nil, err
	}
	a := &Solved{table: t, ix: ix}
	a.builder = &payoff.Builder{Indexer: ix, Resolver: a}
	return a, nil
}

// Rules returns the rules the table was solved under.
func (a *Solved) Rules() game.Rules {
	return a.ix.Rules()
}

// Table returns the backing table (read-only).
func (a *Solved) Table() *solver.Table {
	return a.table
}

func (a *Solved) Policy(s game.GameState) ([game.NumActions]float64, error) {
	if a.ix.Rules().Terminal(s) {
		return [game.NumActions]float64{}, ErrTerminal
	}
	i, err := a.ix.IndexOf(s)
	if err != nil {
		return [game.NumActions]float64{}, err
	}
	return a.table.PolicyAt(i)
}

func (a *Solved) Value(s game.GameState) (float64, error) {
	if v, ok := a.ix.Rules().TerminalValue(s); ok {
		return v, nil
	}
	i, err := a.ix.IndexOf(s)
	if err != nil {
		return 0, err
	}
	return a.table.ValueAt(i)
}

// Resolve implements payoff.Resolver from the table.
func (a *Solved) Resolve(_ context.Context, i int) (float64, error) {
	return a.table.ValueAt(i)
}

// Game returns the one-round payoff matrix for the mover of s, with the
// table supplying every continuation value.
func (a *Solved) Game(s game.GameState) (*mat.Dense, []game.Action, error) {
	return a.builder.Build(context.Background(), s)
}

// opponentRows projects the opponent's nine-slot policy onto the rows of
// the mover's payoff matrix.
func (a *Solved) opponentRows(s game.GameState, policy [game.NumActions]float64) []float64 {
	_, opp := s.ActionSpace()
	rows := make([]float64, len(opp))
	for r, act := range opp {
		rows[r] = policy[act.ID()]
	}
	return rows
}

// responder answers a fixed belief about the opponent with a pure best
// response over one round, valuing continuations from the table.
type responder struct {
	solved *Solved
	belief func(opp [game.NumActions]float64) [game.NumActions]float64
}

func (r responder) respond(s game.GameState) ([game.NumActions]float64, float64, error) {
	var out [game.NumActions]float64
	if r.solved.Rules().Terminal(s) {
		return out, 0, ErrTerminal
	}
	oppPolicy, err := r.solved.Policy(s.Swap())
	if err != nil {
		return out, 0, fmt.Errorf("opponent policy: %w", err)
	}
	m, own, err := r.solved.Game(s)
	if err != nil {
		return out, 0, err
	}
	dist := r.solved.opponentRows(s, r.belief(oppPolicy))
	policy, value, err := equilibrium.BestResponse(m, dist)
	if err != nil {
		return out, 0, err
	}
	for c, act := range own {
		out[act.ID()] = policy[c]
	}
	return out, value, nil
}

// BestResponse plays the pure best reply to the solved opponent's mixed
// policy.
type BestResponse struct {
	responder
}

// NewBestResponse builds a best-response agent on top of a solved table.
func NewBestResponse(s *Solved) *BestResponse {
	return &BestResponse{responder{solved: s, belief: identity}}
}

func (a *BestResponse) Policy(s game.GameState) ([game.NumActions]float64, error) {
	p, _, err := a.respond(s)
	return p, err
}

// Value is the expected payoff of the reply against the opponent's policy.
func (a *BestResponse) Value(s game.GameState) (float64, error) {
	if v, ok := a.solved.Rules().TerminalValue(s); ok {
		return v, nil
	}
	_, v, err := a.respond(s)
	return v, err
}

// ArgmaxCounter assumes the solved opponent plays its most probable action
// and plays the pure best reply to that.
type ArgmaxCounter struct {
	responder
}

// NewArgmaxCounter builds an argmax-counter agent on top of a solved table.
func NewArgmaxCounter(s *Solved) *ArgmaxCounter {
	return &ArgmaxCounter{responder{solved: s, belief: argmax}}
}

func (a *ArgmaxCounter) Policy(s game.GameState) ([game.NumActions]float64, error) {
	p, _, err := a.respond(s)
	return p, err
}

// Value is the expected payoff of the reply if the opponent really plays
// its argmax action.
func (a *ArgmaxCounter) Value(s game.GameState) (float64, error) {
	if v, ok := a.solved.Rules().TerminalValue(s); ok {
		return v, nil
	}
	_, v, err := a.respond(s)
	return v, err
}

func identity(p [game.NumActions]float64) [game.NumActions]float64 {
	return p
}

// argmax returns a one-hot vector on the heaviest action, lowest id first.
func argmax(p [game.NumActions]float64) [game.NumActions]float64 {
	best := 0
	for id := 1; id < game.NumActions; id++ {
		if p[id] > p[best] {
			best = id
		}
	}
	var out [game.NumActions]float64
	out[best] = 1
	return out
}
