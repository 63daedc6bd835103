// Package payoff builds one-round payoff matrices from solved successor
// values.
package payoff

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/lox/bodegabrawl/internal/game"
	"github.com/lox/bodegabrawl/internal/index"
)

// Resolver returns the solved value of a non-terminal successor. Solver
// resolvers may block until the successor has been published.
type Resolver interface {
	Resolve(ctx context.Context, i int) (float64, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, i int) (float64, error)

func (f ResolverFunc) Resolve(ctx context.Context, i int) (float64, error) {
	return f(ctx, i)
}

// Builder assembles payoff matrices for the mover.
type Builder struct {
	Indexer  *index.Indexer
	Resolver Resolver
}

// Build returns the payoff matrix for s with rows for the opponent's
// legal actions and columns for the mover's, plus the mover's action list
// in column order. Each entry is the terminal value of the successor or
// the resolved value of its index.
func (b *Builder) Build(ctx context.Context, s game.GameState) (*mat.Dense, []game.Action, error) {
	rules := b.Indexer.Rules()
	own, opp := rules.ActionSpace(s)
	if len(own) == 0 || len(opp) == 0 {
		return nil, nil, fmt.Errorf("state %s has no legal actions", s.Serialize())
	}

	m := mat.NewDense(len(opp), len(own), nil)
	for col, a := range own {
		for row, o := range opp {
			next := rules.Transition(s, game.JointAction{Own: a, Opponent: o})
			v, err := b.value(ctx, next)
			if err != nil {
				return nil, nil, fmt.Errorf("successor of %s via (%s, %s): %w", s.Serialize(), a, o, err)
			}
			m.Set(row, col, v)
		}
	}
	return m, own, nil
}

func (b *Builder) value(ctx context.Context, s game.GameState) (float64, error) {
	if v, ok := b.Indexer.Rules().TerminalValue(s); ok {
		return v, nil
	}
	i, err := b.Indexer.IndexOf(s)
	if err != nil {
		return 0, err
	}
	return b.Resolver.Resolve(ctx, i)
}
