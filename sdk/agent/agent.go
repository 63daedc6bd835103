// Package agent exposes solved tables and simple baselines behind one
// interface so they can be played against each other.
package agent

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/lox/bodegabrawl/internal/game"
)

// ErrTerminal is returned when a policy is requested for a finished game.
var ErrTerminal = errors.New("state is terminal")

// Agent chooses a distribution over the nine canonical actions for the
// mover of a state. Illegal actions get zero weight.
type Agent interface {
	Policy(s game.GameState) ([game.NumActions]float64, error)
	Value(s game.GameState) (float64, error)
}

// Sample draws one action from policy. Weights need not sum exactly to
// one; they are scaled by their total.
func Sample(policy [game.NumActions]float64, rng *rand.Rand) (game.Action, error) {
	total := 0.0
	for _, p := range policy {
		if p < 0 {
			return game.Action{}, fmt.Errorf("negative weight in policy %v", policy)
		}
		total += p
	}
	if total <= 0 {
		return game.Action{}, errors.New("policy has no positive weight")
	}

	r := rng.Float64() * total
	last := -1
	for id, p := range policy {
		if p == 0 {
			continue
		}
		last = id
		r -= p
		if r < 0 {
			return game.Actions[id], nil
		}
	}
	// Rounding left r at or just above zero.
	return game.Actions[last], nil
}

// Random plays uniformly over the mover's legal actions.
type Random struct {
	Rules game.Rules
}

func (a Random) Policy(s game.GameState) ([game.NumActions]float64, error) {
	var out [game.NumActions]float64
	if a.Rules.Terminal(s) {
		return out, ErrTerminal
	}
	legal := s.Mover.Cards.ActionSpace()
	for _, act := range legal {
		out[act.ID()] = 1 / float64(len(legal))
	}
	return out, nil
}

// Value has no estimate for live states and reports a draw.
func (a Random) Value(s game.GameState) (float64, error) {
	if v, ok := a.Rules.TerminalValue(s); ok {
		return v, nil
	}
	return game.ValueDraw, nil
}
